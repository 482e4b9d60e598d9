package docblock

import (
	"strings"

	"github.com/Sumatoshi-tech/refang/pkg/uast/pkg/node"
)

// namedTokens is how many leading body tokens may carry the annotated name:
// "@method getFoo()" and "@method int getFoo()" both name getFoo.
const namedTokens = 2

// RemoveAnnotation deletes every "@tag" line of n's leading doc comment that
// annotates name. A comment left without content is blanked, not detached,
// so printers can still locate the original text. Reports whether anything
// was removed.
func RemoveAnnotation(n *node.Node, tag, name string) bool {
	doc := n.DocComment()
	if doc == nil || doc.Token == "" {
		return false
	}

	text, removed := WithoutAnnotation(doc.Token, tag, name)
	if !removed {
		return false
	}

	if IsEmpty(text) {
		text = ""
	}

	doc.Token = text

	return true
}

// WithoutAnnotation returns text minus the "@tag" lines annotating name.
func WithoutAnnotation(text, tag, name string) (string, bool) {
	drop := make(map[int]bool)

	for _, found := range Tags(text) {
		if found.Name == tag && annotates(found.Body, name) {
			drop[found.Line] = true
		}
	}

	if len(drop) == 0 {
		return text, false
	}

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))

	for idx, line := range lines {
		if !drop[idx] {
			kept = append(kept, line)
		}
	}

	return strings.Join(kept, "\n"), true
}

func annotates(body, name string) bool {
	fields := strings.Fields(body)

	for idx := 0; idx < len(fields) && idx < namedTokens; idx++ {
		candidate, _, _ := strings.Cut(fields[idx], "(")
		if candidate == name {
			return true
		}
	}

	return false
}
