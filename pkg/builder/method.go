// Package builder constructs new nodes for rewrite rules: accessor method
// declarations and literal values.
package builder

import (
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/refang/pkg/uast/pkg/node"
)

// Mutator prefixes; every other accessor is built as a getter.
const (
	prefixSet = "set"
	prefixAdd = "add"
)

const thisVar = "$this"

// MethodBuilder builds accessor method declarations.
type MethodBuilder struct {
	// Visibility of generated methods; "public" when empty.
	Visibility string
}

// Build returns a method declaration named method that reads, assigns or
// accumulates into property. typ is the parameter type of setters and
// adders; empty leaves the parameter untyped. Getters ("get*", "is*")
// return the property; setters and adders return $this.
func (mb MethodBuilder) Build(class *node.Node, method, typ, property string) *node.Node {
	visibility := mb.Visibility
	if visibility == "" {
		visibility = "public"
	}

	params := node.NewBuilder().
		WithType(node.UASTList).
		WithRoles(node.RoleParameter).
		Build()

	body := node.NewBuilder().
		WithType(node.UASTBlock).
		WithRoles(node.RoleBody).
		Build()

	role := node.Role(node.RoleGetter)
	fetch := thisVar + "->" + property

	switch {
	case strings.HasPrefix(method, prefixSet):
		role = node.RoleSetter
		param := "$" + property
		params.AddChild(parameter(param, typ))
		body.AddChild(assign(fetch, param))
		body.AddChild(ret(thisVar))
	case strings.HasPrefix(method, prefixAdd):
		role = node.RoleSetter
		param := "$" + strings.TrimSuffix(property, "s")
		params.AddChild(parameter(param, typ))
		body.AddChild(assign(fetch+"[]", param))
		body.AddChild(ret(thisVar))
	default:
		body.AddChild(ret(fetch))
	}

	params.SetProp(node.PropArity, strconv.Itoa(len(params.Children)))

	return node.NewBuilder().
		WithType(node.UASTMethod).
		WithToken(method).
		WithRoles(node.RoleDeclaration, node.RoleMember, role).
		WithProp(node.PropName, method).
		WithProp(node.PropClass, class.Prop(node.PropFQN)).
		WithProp(node.PropVisibility, visibility).
		WithChildren(params, body).
		Build()
}

func parameter(name, typ string) *node.Node {
	builder := node.NewBuilder().
		WithType(node.UASTParameter).
		WithToken(name).
		WithRoles(node.RoleParameter).
		WithProp(node.PropName, name)

	if typ != "" {
		builder.WithProp(node.PropType, typ)
	}

	return builder.Build()
}

func assign(target, value string) *node.Node {
	return node.NewBuilder().
		WithType(node.UASTAssignment).
		WithToken("=").
		WithRoles(node.RoleAssignment).
		WithChildren(
			node.NewNodeWithToken(node.UASTIdentifier, target),
			node.NewNodeWithToken(node.UASTIdentifier, value),
		).
		Build()
}

func ret(value string) *node.Node {
	return node.NewBuilder().
		WithType(node.UASTReturn).
		WithRoles(node.RoleReturn).
		WithChildren(node.NewNodeWithToken(node.UASTIdentifier, value)).
		Build()
}
