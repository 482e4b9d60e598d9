// Package uast parses PHP into the canonical node model, prints rewritten
// trees back to source and renders diffs of the result.
package uast

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/refang/pkg/uast/pkg/node"
)

// Sentinel errors for parser operations.
var (
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrSyntax          = errors.New("syntax error")

	errNoRootNode = errors.New("no root node")
	errPoolType   = errors.New("unexpected parser pool type")
)

// Parser converts PHP sources to node trees. It is safe for concurrent use;
// tree-sitter parsers are pooled.
type Parser struct {
	pool sync.Pool
}

// NewParser creates a Parser.
func NewParser() *Parser {
	return &Parser{
		pool: sync.Pool{
			New: func() any {
				tsParser := sitter.NewParser()
				tsParser.SetLanguage(phpLanguage())

				return tsParser
			},
		},
	}
}

// Parse parses src and lowers it into a File node. Sources containing
// syntax errors are rejected with ErrSyntax.
func (parser *Parser) Parse(ctx context.Context, filename string, src []byte) (*node.Node, error) {
	if !IsSupported(filename) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filename)
	}

	tsParser, ok := parser.pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer parser.pool.Put(tsParser)

	tree, err := tsParser.ParseString(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, fmt.Errorf("%s: %w", filename, errNoRootNode)
	}

	if bad, found := findError(root); found {
		return nil, fmt.Errorf("%s:%d:%d: %w", filename, bad.StartPoint().Row+1, bad.StartPoint().Column+1, ErrSyntax)
	}

	lw := newLowering(src)
	file := lw.file(root)
	file.SetProp(node.PropName, filename)

	return file, nil
}

// findError returns the first ERROR or MISSING node in pre-order.
func findError(tsNode sitter.Node) (sitter.Node, bool) {
	if tsNode.IsMissing() || tsNode.Type() == "ERROR" {
		return tsNode, true
	}

	if !tsNode.HasError() {
		return sitter.Node{}, false
	}

	for idx := range tsNode.ChildCount() {
		if found, ok := findError(tsNode.Child(idx)); ok {
			return found, true
		}
	}

	return sitter.Node{}, false
}
