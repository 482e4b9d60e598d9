package uast

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/refang/pkg/uast/pkg/node"
)

const indentUnit = "    "

var errCannotEmit = errors.New("cannot emit synthetic node")

// Emit renders a node built in memory as PHP source. Method declarations
// follow PSR-12 layout with the opening brace on its own line.
func Emit(n *node.Node) (string, error) {
	if n == nil {
		return "", fmt.Errorf("%w: nil", errCannotEmit)
	}

	switch n.Type {
	case node.UASTMethod:
		return emitMethod(n)
	case node.UASTParameter:
		return emitParameter(n)
	case node.UASTList:
		return emitList(n)
	case node.UASTBlock:
		return emitBlock(n)
	case node.UASTReturn:
		return emitReturn(n)
	case node.UASTAssignment:
		return emitAssignment(n)
	case node.UASTIdentifier, node.UASTLiteral, node.UASTExpression:
		return n.Token, nil
	default:
		return "", fmt.Errorf("%w: %s", errCannotEmit, n.Type)
	}
}

func emitMethod(n *node.Node) (string, error) {
	var head strings.Builder

	visibility := n.Prop(node.PropVisibility)
	if visibility == "" {
		visibility = "public"
	}

	head.WriteString(visibility)

	if n.HasAnyRole(node.RoleStatic) {
		head.WriteString(" static")
	}

	name := n.Prop(node.PropName)
	if name == "" {
		name = n.Token
	}

	head.WriteString(" function " + name)

	params := ""

	if list := n.FirstChild(node.UASTList, node.RoleParameter); list != nil {
		rendered, err := emitList(list)
		if err != nil {
			return "", err
		}

		params = rendered
	}

	head.WriteString("(" + params + ")")

	if returns := n.Prop(node.PropReturns); returns != "" {
		head.WriteString(": " + returns)
	}

	body := n.FirstChild(node.UASTBlock, node.RoleBody)
	if body == nil {
		return head.String() + ";", nil
	}

	block, err := emitBlock(body)
	if err != nil {
		return "", err
	}

	return head.String() + "\n" + block, nil
}

func emitParameter(n *node.Node) (string, error) {
	name := n.Prop(node.PropName)
	if name == "" {
		name = n.Token
	}

	out := name
	if typ := n.Prop(node.PropType); typ != "" {
		out = typeRef(typ) + " " + out
	}

	if def := n.Prop(node.PropDefault); def != "" {
		out += " = " + def
	}

	return out, nil
}

// typeRef renders a resolved type for use in source: namespaced names
// become fully qualified and "T[]" collections become array.
func typeRef(typ string) string {
	parts := strings.Split(typ, "|")

	for idx, part := range parts {
		switch {
		case strings.HasSuffix(part, "[]"):
			parts[idx] = "array"
		case strings.Contains(part, nsSep) && !strings.HasPrefix(part, nsSep):
			parts[idx] = nsSep + part
		}
	}

	return strings.Join(parts, "|")
}

func emitList(n *node.Node) (string, error) {
	parts := make([]string, 0, len(n.Children))

	for _, child := range n.Children {
		part, err := Emit(child)
		if err != nil {
			return "", err
		}

		parts = append(parts, part)
	}

	return strings.Join(parts, ", "), nil
}

func emitBlock(n *node.Node) (string, error) {
	var out strings.Builder

	out.WriteString("{\n")

	for _, stmt := range n.Children {
		line, err := Emit(stmt)
		if err != nil {
			return "", err
		}

		if stmt.Type != node.UASTReturn {
			line += ";"
		}

		out.WriteString(indentLines(line, indentUnit, true) + "\n")
	}

	out.WriteString("}")

	return out.String(), nil
}

func emitReturn(n *node.Node) (string, error) {
	if len(n.Children) == 0 {
		return "return;", nil
	}

	value, err := Emit(n.Children[0])
	if err != nil {
		return "", err
	}

	return "return " + value + ";", nil
}

func emitAssignment(n *node.Node) (string, error) {
	if len(n.Children) != 2 {
		return "", fmt.Errorf("%w: assignment with %d operands", errCannotEmit, len(n.Children))
	}

	left, err := Emit(n.Children[0])
	if err != nil {
		return "", err
	}

	right, err := Emit(n.Children[1])
	if err != nil {
		return "", err
	}

	return left + " = " + right, nil
}

// indentLines prefixes every non-empty line with indent; the first line
// only when first is set.
func indentLines(text, indent string, first bool) string {
	lines := strings.Split(text, "\n")

	for idx, line := range lines {
		if line == "" || (idx == 0 && !first) {
			continue
		}

		lines[idx] = indent + line
	}

	return strings.Join(lines, "\n")
}
