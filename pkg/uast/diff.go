package uast

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// diffContext is the number of unchanged lines kept around each hunk.
const diffContext = 3

type diffLine struct {
	op   diffmatchpatch.Operation
	text string
}

// UnifiedDiff renders a line-based unified diff of before and after, or ""
// when they are equal.
func UnifiedDiff(name string, before, after []byte) string {
	if string(before) == string(after) {
		return ""
	}

	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToChars(string(before), string(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(src, dst, false), lines)

	var flat []diffLine

	for _, d := range diffs {
		for _, line := range splitLines(d.Text) {
			flat = append(flat, diffLine{op: d.Type, text: line})
		}
	}

	var out strings.Builder

	fmt.Fprintf(&out, "--- a/%s\n+++ b/%s\n", name, name)

	for _, h := range hunks(flat) {
		writeHunk(&out, flat, h)
	}

	return out.String()
}

// hunk is a half-open range of flat diff lines.
type hunk struct{ from, to int }

func hunks(flat []diffLine) []hunk {
	var out []hunk

	for idx := 0; idx < len(flat); idx++ {
		if flat[idx].op == diffmatchpatch.DiffEqual {
			continue
		}

		from := max(0, idx-diffContext)
		to := idx

		// Extend while the next change is close enough to share context.
		for to < len(flat) {
			if flat[to].op != diffmatchpatch.DiffEqual {
				to++

				continue
			}

			next := to
			for next < len(flat) && flat[next].op == diffmatchpatch.DiffEqual {
				next++
			}

			if next == len(flat) || next-to > 2*diffContext {
				break
			}

			to = next
		}

		to = min(len(flat), to+diffContext)

		if len(out) > 0 && out[len(out)-1].to >= from {
			out[len(out)-1].to = to
		} else {
			out = append(out, hunk{from: from, to: to})
		}

		idx = to - 1
	}

	return out
}

func writeHunk(out *strings.Builder, flat []diffLine, h hunk) {
	oldStart, newStart := 1, 1

	for _, line := range flat[:h.from] {
		if line.op != diffmatchpatch.DiffInsert {
			oldStart++
		}

		if line.op != diffmatchpatch.DiffDelete {
			newStart++
		}
	}

	var oldLen, newLen int

	var body strings.Builder

	for _, line := range flat[h.from:h.to] {
		switch line.op {
		case diffmatchpatch.DiffEqual:
			oldLen++
			newLen++

			body.WriteString(" " + line.text + "\n")
		case diffmatchpatch.DiffDelete:
			oldLen++

			body.WriteString("-" + line.text + "\n")
		case diffmatchpatch.DiffInsert:
			newLen++

			body.WriteString("+" + line.text + "\n")
		}
	}

	fmt.Fprintf(out, "@@ -%s +%s @@\n", hunkRange(oldStart, oldLen), hunkRange(newStart, newLen))
	out.WriteString(body.String())
}

func hunkRange(start, length int) string {
	if length == 0 {
		return fmt.Sprintf("%d,0", start-1)
	}

	if length == 1 {
		return fmt.Sprintf("%d", start)
	}

	return fmt.Sprintf("%d,%d", start, length)
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return []string{""}
	}

	return strings.Split(text, "\n")
}

// WriteColorDiff prints a unified diff with removed lines in red, added
// lines in green and hunk headers in cyan.
func WriteColorDiff(w io.Writer, diff string) {
	removed := color.New(color.FgRed)
	added := color.New(color.FgGreen)
	header := color.New(color.FgCyan)
	bold := color.New(color.Bold)

	for _, line := range splitLines(diff) {
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			bold.Fprintln(w, line)
		case strings.HasPrefix(line, "@@"):
			header.Fprintln(w, line)
		case strings.HasPrefix(line, "-"):
			removed.Fprintln(w, line)
		case strings.HasPrefix(line, "+"):
			added.Fprintln(w, line)
		default:
			fmt.Fprintln(w, line)
		}
	}
}
