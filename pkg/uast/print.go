package uast

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/refang/pkg/safeconv"
	"github.com/Sumatoshi-tech/refang/pkg/uast/pkg/node"
)

var (
	// ErrUnprintable is returned when a rewritten tree cannot be mapped back
	// onto its source.
	ErrUnprintable = errors.New("tree cannot be printed")

	errOverlap = errors.New("overlapping edits")
)

// edit replaces src[start:end] with text; start == end inserts.
type edit struct {
	start int
	end   int
	text  string
}

// printer re-emits a parsed source, splicing in only what rules changed:
// rewritten doc comments, members inserted into classes and argument or
// parameter lists that gained entries. Untouched text is copied verbatim.
type printer struct {
	src   []byte
	edits []edit
}

// Print returns src with the changes made to root since it was parsed.
func Print(src []byte, root *node.Node) ([]byte, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: nil root", ErrUnprintable)
	}

	p := &printer{src: src}

	if err := p.collect(root); err != nil {
		return nil, err
	}

	out, err := p.splice(0, len(src))
	if err != nil {
		return nil, err
	}

	return []byte(out), nil
}

func (p *printer) collect(n *node.Node) error {
	if n.Type == node.UASTComment && n.HasAnyRole(node.RoleDoc) {
		return p.docComment(n)
	}

	if n.Type == node.UASTList && n.Pos != nil {
		return p.list(n)
	}

	for idx, child := range n.Children {
		if child == nil {
			continue
		}

		if child.IsSynthetic() {
			if err := p.insert(n, idx); err != nil {
				return err
			}

			continue
		}

		if err := p.collect(child); err != nil {
			return err
		}
	}

	return nil
}

// docComment replaces an edited comment. A blanked comment is removed
// together with the whitespace that separated it from the next token.
func (p *printer) docComment(n *node.Node) error {
	start, end, err := p.span(n)
	if err != nil {
		return err
	}

	if n.Token == string(p.src[start:end]) {
		return nil
	}

	if n.Token == "" {
		for end < len(p.src) && isSpaceByte(p.src[end]) {
			end++
		}
	}

	p.edits = append(p.edits, edit{start: start, end: end, text: n.Token})

	return nil
}

// list handles argument and parameter lists. Entries appended after the
// original ones are inserted after the last original entry; any other
// change re-renders the whole list.
func (p *printer) list(n *node.Node) error {
	start, end, err := p.span(n)
	if err != nil {
		return err
	}

	originals := 0
	appended := false

	for _, child := range n.Children {
		if child.IsSynthetic() {
			appended = true

			continue
		}

		if appended {
			return p.rerenderList(n, start, end)
		}

		originals++
	}

	if arity := n.Arity(); arity >= 0 && arity != originals {
		return p.rerenderList(n, start, end)
	}

	for _, child := range n.Children[:originals] {
		if err := p.collect(child); err != nil {
			return err
		}
	}

	if !appended {
		return nil
	}

	anchor := start + 1
	sep := ""

	if originals > 0 {
		_, anchor, err = p.span(n.Children[originals-1])
		if err != nil {
			return err
		}

		sep = ", "
	}

	var text strings.Builder

	for _, child := range n.Children[originals:] {
		rendered, emitErr := Emit(child)
		if emitErr != nil {
			return emitErr
		}

		text.WriteString(sep + rendered)
		sep = ", "
	}

	p.edits = append(p.edits, edit{start: anchor, end: anchor, text: text.String()})

	return nil
}

func (p *printer) rerenderList(n *node.Node, start, end int) error {
	parts := make([]string, 0, len(n.Children))

	for _, child := range n.Children {
		part, err := p.render(child)
		if err != nil {
			return err
		}

		parts = append(parts, part)
	}

	p.edits = append(p.edits, edit{start: start, end: end, text: "(" + strings.Join(parts, ", ") + ")"})

	return nil
}

// render returns the current text of n: emitted when synthetic, otherwise
// its source with its own edits applied.
func (p *printer) render(n *node.Node) (string, error) {
	if n.IsSynthetic() {
		return Emit(n)
	}

	start, end, err := p.span(n)
	if err != nil {
		return "", err
	}

	sub := &printer{src: p.src}
	if err := sub.collect(n); err != nil {
		return "", err
	}

	return sub.splice(start, end)
}

// insert places the synthetic child parent.Children[idx] before the next
// original sibling, or before the closing brace of parent.
func (p *printer) insert(parent *node.Node, idx int) error {
	rendered, err := Emit(parent.Children[idx])
	if err != nil {
		return err
	}

	gap := "\n"
	if parent.Type == node.UASTClass || parent.Type == node.UASTInterface {
		gap = "\n\n"
	}

	if next := nextOriginal(parent.Children[idx+1:]); next != nil {
		anchor, spanErr := p.leadingStart(next)
		if spanErr != nil {
			return spanErr
		}

		indent, ok := p.lineIndent(anchor)
		if !ok {
			indent = p.memberIndent(parent)
		}

		text := indentLines(rendered, indent, false) + gap + indent
		p.edits = append(p.edits, edit{start: anchor, end: anchor, text: text})

		return nil
	}

	afterInserted := idx > 0 && parent.Children[idx-1] != nil && parent.Children[idx-1].IsSynthetic()

	return p.insertBeforeClose(parent, rendered, gap, afterInserted)
}

func (p *printer) insertBeforeClose(parent *node.Node, rendered, gap string, afterInserted bool) error {
	_, end, err := p.span(parent)
	if err != nil {
		return err
	}

	closing := end - 1
	if closing < 0 || p.src[closing] != '}' {
		return fmt.Errorf("%w: %s has no closing brace", ErrUnprintable, parent.Type)
	}

	indent := p.memberIndent(parent)
	body := indentLines(rendered, indent, true)

	if outer, ok := p.lineIndent(closing); ok {
		lineStart := closing - len(outer)
		lead := ""

		if afterInserted || p.hasMemberBefore(parent, lineStart) {
			lead = strings.TrimSuffix(gap, "\n")
		}

		p.edits = append(p.edits, edit{start: lineStart, end: lineStart, text: lead + body + "\n"})

		return nil
	}

	outer := p.indentOf(parent)
	p.edits = append(p.edits, edit{start: closing, end: closing, text: "\n" + body + "\n" + outer})

	return nil
}

// hasMemberBefore reports whether the body of parent holds any text
// between its opening brace and offset.
func (p *printer) hasMemberBefore(parent *node.Node, offset int) bool {
	start, _, err := p.span(parent)
	if err != nil {
		return false
	}

	open := bytes.IndexByte(p.src[start:offset], '{')
	if open < 0 {
		return false
	}

	return len(bytes.TrimSpace(p.src[start+open+1:offset])) > 0
}

// leadingStart is where n begins including its leading doc comment.
func (p *printer) leadingStart(n *node.Node) (int, error) {
	start, _, err := p.span(n)
	if err != nil {
		return 0, err
	}

	if doc := n.DocComment(); doc != nil && doc.Pos != nil {
		if docStart, _, docErr := p.span(doc); docErr == nil && docStart < start {
			return docStart, nil
		}
	}

	return start, nil
}

// lineIndent returns the whitespace between the start of offset's line and
// offset, and false when other text precedes offset on that line.
func (p *printer) lineIndent(offset int) (string, bool) {
	lineStart := bytes.LastIndexByte(p.src[:offset], '\n') + 1
	prefix := p.src[lineStart:offset]

	if len(bytes.TrimLeft(prefix, " \t")) != 0 {
		return "", false
	}

	return string(prefix), true
}

// indentOf returns the indentation of the line n starts on.
func (p *printer) indentOf(n *node.Node) string {
	start, _, err := p.span(n)
	if err != nil {
		return ""
	}

	lineStart := bytes.LastIndexByte(p.src[:start], '\n') + 1
	line := p.src[lineStart:start]

	return string(line[:len(line)-len(bytes.TrimLeft(line, " \t"))])
}

func (p *printer) memberIndent(parent *node.Node) string {
	return p.indentOf(parent) + indentUnit
}

func (p *printer) span(n *node.Node) (start, end int, err error) {
	if n.Pos == nil {
		return 0, 0, fmt.Errorf("%w: %s has no position", ErrUnprintable, n.Type)
	}

	start, end, ok := safeconv.Span(n.Pos.StartOffset, n.Pos.EndOffset, len(p.src))
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s spans [%d,%d) outside the source", ErrUnprintable, n.Type,
			n.Pos.StartOffset, n.Pos.EndOffset)
	}

	return start, end, nil
}

// splice applies the collected edits that fall inside [from, to).
func (p *printer) splice(from, to int) (string, error) {
	slices.SortStableFunc(p.edits, func(a, b edit) int {
		if c := cmp.Compare(a.start, b.start); c != 0 {
			return c
		}

		return cmp.Compare(a.end, b.end)
	})

	var out strings.Builder

	cursor := from

	for _, e := range p.edits {
		if e.start < from || e.end > to {
			continue
		}

		if e.start < cursor {
			return "", fmt.Errorf("%w at byte %d", errOverlap, e.start)
		}

		out.Write(p.src[cursor:e.start])
		out.WriteString(e.text)
		cursor = e.end
	}

	out.Write(p.src[cursor:to])

	return out.String(), nil
}

func nextOriginal(siblings []*node.Node) *node.Node {
	for _, sibling := range siblings {
		if sibling != nil && !sibling.IsSynthetic() {
			return sibling
		}
	}

	return nil
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
