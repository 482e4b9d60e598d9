package docblock

import (
	"iter"
	"strings"
)

const varTag = "@var"

// VarType returns the first "@var TYPE" token of a doc comment.
func VarType(text string) (string, bool) {
	for token := range varTokens(text) {
		return token, true
	}

	return "", false
}

// VarElementType returns T from the first "@var T[]" annotation, looking
// past @var annotations that are not array-of-T.
func VarElementType(text string) (string, bool) {
	for token := range varTokens(text) {
		cut := strings.LastIndex(token, "[]")
		if cut > 0 {
			return token[:cut], true
		}
	}

	return "", false
}

// varTokens yields the non-space run following each "@var" + blanks.
func varTokens(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		rest := text

		for {
			at := strings.Index(rest, varTag)
			if at < 0 {
				return
			}

			rest = rest[at+len(varTag):]

			afterBlank := strings.TrimLeft(rest, " \t")
			if len(afterBlank) == len(rest) {
				continue
			}

			end := 0
			for end < len(afterBlank) && !isSpace(afterBlank[end]) {
				end++
			}

			if end == 0 {
				continue
			}

			if !yield(afterBlank[:end]) {
				return
			}
		}
	}
}

// IsClassLike reports whether a type token looks like an unqualified class
// name: an uppercase letter, at least one more word character, then the end
// of the token, an array marker "[" or a union marker "|".
func IsClassLike(token string) bool {
	if len(token) < 2 || !isUpper(token[0]) {
		return false
	}

	end := 1
	for end < len(token) && isWordByte(token[end]) {
		end++
	}

	if end < 2 {
		return false
	}

	return end == len(token) || token[end] == '[' || token[end] == '|'
}
