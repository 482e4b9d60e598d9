// Package safeconv converts tree-sitter offsets and counts to Go ints.
package safeconv

// MaxInt is the maximum value for int type (platform-dependent).
const MaxInt = int(^uint(0) >> 1)

// MustUintToInt converts uint to int, panics on overflow.
// Use only when overflow is logically impossible.
func MustUintToInt(v uint) int {
	if v > uint(MaxInt) {
		panic("safeconv: uint to int overflow")
	}

	return int(v)
}

// MustIntToUint converts int to uint, panics if negative.
// Use only when negative values are logically impossible.
func MustIntToUint(v int) uint {
	if v < 0 {
		panic("safeconv: negative int to uint conversion")
	}

	return uint(v)
}

// Span converts a byte range to slice bounds of a buffer of length size.
// It reports false for inverted ranges or ranges past the end.
func Span(start, end uint, size int) (from, to int, ok bool) {
	if start > end || end > MustIntToUint(size) {
		return 0, 0, false
	}

	return MustUintToInt(start), MustUintToInt(end), true
}
