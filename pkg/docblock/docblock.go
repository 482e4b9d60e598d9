// Package docblock tokenizes PHP documentation comments and edits their
// annotations in place.
package docblock

import (
	"strings"
)

// Line is one physical line of a doc comment.
type Line struct {
	// Text is the full line including leading "*" decoration.
	Text string
	// Index is the zero-based line number within the comment.
	Index int
}

// Tag is an annotation found at the start of a line ("@name body").
type Tag struct {
	Name string
	Body string
	Line int
}

// Lines splits a comment into physical lines, keeping their decoration.
func Lines(text string) []Line {
	raw := strings.Split(text, "\n")
	lines := make([]Line, len(raw))

	for idx, lineText := range raw {
		lines[idx] = Line{Text: strings.TrimSuffix(lineText, "\r"), Index: idx}
	}

	return lines
}

// Tags returns every "@name" annotation that starts a line, in order.
func Tags(text string) []Tag {
	var tags []Tag

	for _, line := range Lines(text) {
		rest, ok := tagStart(line.Text)
		if !ok {
			continue
		}

		name, body := splitName(rest)
		tags = append(tags, Tag{Name: name, Body: body, Line: line.Index})
	}

	return tags
}

// tagStart skips the "[ \t*]*" decoration and returns the text after "@".
// Tags sharing a line with the "/**" opener are not recognized.
func tagStart(line string) (string, bool) {
	rest := strings.TrimLeft(line, " \t*")

	if !strings.HasPrefix(rest, "@") {
		return "", false
	}

	return rest[1:], true
}

func splitName(rest string) (name, body string) {
	end := 0
	for end < len(rest) && isNameByte(rest[end]) {
		end++
	}

	return rest[:end], rest[end:]
}

func isNameByte(b byte) bool {
	return isWordByte(b) || b == '-' || b == '\\'
}

// isWordByte matches the ASCII "\w" class.
func isWordByte(b byte) bool {
	return b == '_' || isDigit(b) || isUpper(b) || (b >= 'a' && b <= 'z')
}

func isUpper(b byte) bool { return b >= 'A' && b <= 'Z' }

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isBlank(b byte) bool { return b == ' ' || b == '\t' }

func isSpace(b byte) bool {
	return isBlank(b) || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

// IsEmpty reports whether a doc comment holds nothing but its delimiters,
// decoration and whitespace.
func IsEmpty(text string) bool {
	body := strings.TrimSpace(text)
	body = strings.TrimPrefix(body, "/**")
	body = strings.TrimSuffix(body, "*/")

	return strings.Trim(body, " \t\r\n*") == ""
}
