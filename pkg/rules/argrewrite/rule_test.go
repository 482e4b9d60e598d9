package argrewrite_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/refang/pkg/reflection"
	"github.com/Sumatoshi-tech/refang/pkg/rewrite"
	"github.com/Sumatoshi-tech/refang/pkg/rules/argrewrite"
	"github.com/Sumatoshi-tech/refang/pkg/uast/pkg/node"
)

var testReflector = reflection.Static{
	"TypeX":  {Name: "TypeX"},
	"ChildX": {Name: "ChildX", Parent: "TypeX"},
	"Other":  {Name: "Other"},
}

func newTable(t *testing.T, spec argrewrite.Spec) *argrewrite.Table {
	t.Helper()

	table, err := argrewrite.NewTable(spec)
	require.NoError(t, err)

	return table
}

func newCall(receiver, method string, args ...string) *node.Node {
	list := node.NewBuilder().
		WithType(node.UASTList).
		WithRoles(node.RoleArgument).
		WithProp(node.PropArity, strconv.Itoa(len(args))).
		Build()

	for _, arg := range args {
		list.AddChild(node.NewBuilder().
			WithType(node.UASTIdentifier).
			WithToken(arg).
			WithRoles(node.RoleArgument).
			WithPosition(&node.Positions{StartLine: 1}).
			Build())
	}

	return node.NewBuilder().
		WithType(node.UASTCall).
		WithRoles(node.RoleCall, node.RoleMember).
		WithProp(node.PropName, method).
		WithProp(node.PropReceiver, receiver).
		WithPosition(&node.Positions{StartLine: 1}).
		WithChildren(list).
		Build()
}

func newMethod(class, method string, params ...string) *node.Node {
	list := node.NewBuilder().
		WithType(node.UASTList).
		WithRoles(node.RoleParameter).
		WithProp(node.PropArity, strconv.Itoa(len(params))).
		Build()

	for _, param := range params {
		list.AddChild(node.NewBuilder().
			WithType(node.UASTParameter).
			WithToken(param).
			WithRoles(node.RoleParameter).
			WithProp(node.PropName, param).
			Build())
	}

	body := node.NewBuilder().WithType(node.UASTBlock).WithRoles(node.RoleBody).Build()

	return node.NewBuilder().
		WithType(node.UASTMethod).
		WithRoles(node.RoleDeclaration, node.RoleMember).
		WithProp(node.PropName, method).
		WithProp(node.PropClass, class).
		WithChildren(list, body).
		Build()
}

func arguments(n *node.Node) []*node.Node {
	if n.Type == node.UASTMethod {
		return n.FirstChild(node.UASTList, node.RoleParameter).Children
	}

	return n.FirstChild(node.UASTList, node.RoleArgument).Children
}

func matchAndApply(t *testing.T, rule *argrewrite.Rule, n *node.Node) *node.Node {
	t.Helper()

	candidate, ok := rule.Match(n)
	require.True(t, ok)

	out, err := rule.Apply(n, candidate)
	require.NoError(t, err)

	return out
}

func TestRemoveGapMatchesButKeepsArguments(t *testing.T) {
	t.Parallel()

	table := newTable(t, argrewrite.Spec{"TypeX": {"methodY": {"1": {Op: "remove"}}}})
	rule := argrewrite.New(table, testReflector)
	call := newCall("TypeX", "methodY", "$a")

	out := matchAndApply(t, rule, call)

	args := arguments(out)
	require.Len(t, args, 1)
	assert.Equal(t, "$a", args[0].Token)
}

func TestSetDefaultFillsEmptyCall(t *testing.T) {
	t.Parallel()

	table := newTable(t, argrewrite.Spec{"TypeX": {"methodY": {"0": {Op: "set_default", Value: "foo"}}}})
	rule := argrewrite.New(table, testReflector)

	out := matchAndApply(t, rule, newCall("TypeX", "methodY"))

	args := arguments(out)
	require.Len(t, args, 1)
	assert.Equal(t, node.Type(node.UASTLiteral), args[0].Type)
	assert.Equal(t, "'foo'", args[0].Token)
	assert.Equal(t, "foo", args[0].Prop(node.PropValue))
	assert.True(t, args[0].IsSynthetic())

	_, again := rule.Match(out)
	assert.False(t, again)
}

func TestSuppliedPositionsDoNotMatch(t *testing.T) {
	t.Parallel()

	table := newTable(t, argrewrite.Spec{"TypeX": {"methodY": {
		"0": {Op: "remove"},
		"1": {Op: "set_default", Value: 1},
	}}})
	rule := argrewrite.New(table, testReflector)

	_, ok := rule.Match(newCall("TypeX", "methodY", "$a", "$b"))
	assert.False(t, ok)

	_, ok = rule.Match(newCall("TypeX", "methodY", "$a", "$b", "$c"))
	assert.False(t, ok)
}

func TestMatchRequiresConfiguredTypeAndMethod(t *testing.T) {
	t.Parallel()

	table := newTable(t, argrewrite.Spec{"TypeX": {"methodY": {"0": {Op: "set_default", Value: 1}}}})
	rule := argrewrite.New(table, testReflector)

	tests := []struct {
		name string
		node *node.Node
		want bool
	}{
		{name: "exact type", node: newCall("TypeX", "methodY"), want: true},
		{name: "subtype receiver", node: newCall("ChildX", "methodY"), want: true},
		{name: "method case-insensitive", node: newCall("TypeX", "METHODY"), want: true},
		{name: "other type", node: newCall("Other", "methodY"), want: false},
		{name: "unknown receiver", node: newCall("", "methodY"), want: false},
		{name: "other method", node: newCall("TypeX", "methodZ"), want: false},
		{name: "declaration", node: newMethod("ChildX", "methodY"), want: true},
		{name: "foreign declaration", node: newMethod("Other", "methodY"), want: false},
		{name: "class node", node: node.NewBuilder().WithType(node.UASTClass).Build(), want: false},
		{name: "nil", node: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, ok := rule.Match(tt.node)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestStaticCallsMatch(t *testing.T) {
	t.Parallel()

	table := newTable(t, argrewrite.Spec{"TypeX": {"create": {"1": {Op: "set_default", Value: false}}}})
	rule := argrewrite.New(table, testReflector)

	call := newCall("TypeX", "create", "$a")
	call.Roles = []node.Role{node.RoleCall, node.RoleStatic}

	out := matchAndApply(t, rule, call)

	args := arguments(out)
	require.Len(t, args, 2)
	assert.Equal(t, "false", args[1].Token)
}

// Positions refer to the argument indices seen at match time, are visited
// in ascending order and only gaps are filled. Empty slots collapse.
func TestMultipleChangesUseOriginalIndices(t *testing.T) {
	t.Parallel()

	table := newTable(t, argrewrite.Spec{"TypeX": {"methodY": {
		"0": {Op: "remove"},
		"1": {Op: "remove"},
		"2": {Op: "set_default", Value: 2},
		"4": {Op: "set_default", Value: 4},
	}}})
	rule := argrewrite.New(table, testReflector)

	out := matchAndApply(t, rule, newCall("TypeX", "methodY", "$a"))

	tokens := make([]string, 0, 3)
	for _, arg := range arguments(out) {
		tokens = append(tokens, arg.Token)
	}

	assert.Equal(t, []string{"$a", "2", "4"}, tokens)

	_, ok := rule.Match(out)
	assert.False(t, ok)
}

func TestSparseDefaultDoesNotRematch(t *testing.T) {
	t.Parallel()

	table := newTable(t, argrewrite.Spec{"TypeX": {"methodY": {"2": {Op: "set_default", Value: true}}}})
	rule := argrewrite.New(table, testReflector)

	tests := []struct {
		name string
		site *node.Node
		want []string
	}{
		{name: "call", site: newCall("TypeX", "methodY", "'a'"), want: []string{"'a'", "true"}},
		{name: "declaration", site: newMethod("TypeX", "methodY", "$to"), want: []string{"$to", "$arg2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out := matchAndApply(t, rule, tt.site)

			tokens := make([]string, 0, len(tt.want))
			for _, arg := range arguments(out) {
				tokens = append(tokens, arg.Token)
			}

			assert.Equal(t, tt.want, tokens)

			_, ok := rule.Match(out)
			assert.False(t, ok)
		})
	}
}

func TestSuppliedArgumentUnlikeDefaultStillMatches(t *testing.T) {
	t.Parallel()

	table := newTable(t, argrewrite.Spec{"TypeX": {"methodY": {"2": {Op: "set_default", Value: true}}}})
	rule := argrewrite.New(table, testReflector)

	out := matchAndApply(t, rule, newCall("TypeX", "methodY", "'a'", "'b'"))

	tokens := make([]string, 0, 3)
	for _, arg := range arguments(out) {
		tokens = append(tokens, arg.Token)
	}

	assert.Equal(t, []string{"'a'", "'b'", "true"}, tokens)

	_, ok := rule.Match(out)
	assert.False(t, ok)
}

func TestDeclarationGetsOptionalParameter(t *testing.T) {
	t.Parallel()

	table := newTable(t, argrewrite.Spec{"TypeX": {"methodY": {"1": {Op: "set_default", Value: nil}}}})
	rule := argrewrite.New(table, testReflector)

	out := matchAndApply(t, rule, newMethod("TypeX", "methodY", "$a"))

	params := arguments(out)
	require.Len(t, params, 2)
	assert.Equal(t, "$a", params[0].Token)
	assert.Equal(t, node.Type(node.UASTParameter), params[1].Type)
	assert.Equal(t, "$arg1", params[1].Prop(node.PropName))
	assert.Equal(t, "null", params[1].Prop(node.PropDefault))
}

func TestApplyRejectsForeignCandidate(t *testing.T) {
	t.Parallel()

	table := newTable(t, argrewrite.Spec{"TypeX": {"methodY": {"0": {Op: "set_default", Value: 1}}}})
	rule := argrewrite.New(table, testReflector)

	first := newCall("TypeX", "methodY")
	second := newCall("TypeX", "methodY")

	candidate, ok := rule.Match(first)
	require.True(t, ok)

	_, err := rule.Apply(second, candidate)
	require.ErrorIs(t, err, rewrite.ErrContractViolation)
	assert.Empty(t, arguments(second))
}
