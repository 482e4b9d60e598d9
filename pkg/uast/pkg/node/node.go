// Package node provides the canonical UAST node structure and operations for
// tree traversal, querying, and in-place rewriting.
package node

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// UAST node type constants.
const (
	UASTFile        = "File"
	UASTNamespace   = "Namespace"
	UASTImport      = "Import"
	UASTClass       = "Class"
	UASTInterface   = "Interface"
	UASTMethod      = "Method"
	UASTFunction    = "Function"
	UASTField       = "Field"
	UASTParameter   = "Parameter"
	UASTBlock       = "Block"
	UASTReturn      = "Return"
	UASTAssignment  = "Assignment"
	UASTCall        = "Call"
	UASTIdentifier  = "Identifier"
	UASTLiteral     = "Literal"
	UASTExpression  = "Expression"
	UASTList        = "List"
	UASTComment     = "Comment"
	UASTDocString   = "DocString"
	UASTSynthetic   = "Synthetic"
	UASTUnsupported = "Unsupported"
)

// Role constants for syntactic and semantic labeling.
const (
	RoleDeclaration = "Declaration"
	RoleName        = "Name"
	RoleReference   = "Reference"
	RoleCall        = "Call"
	RoleParameter   = "Parameter"
	RoleArgument    = "Argument"
	RoleBody        = "Body"
	RolePublic      = "Public"
	RolePrivate     = "Private"
	RoleProtected   = "Protected"
	RoleStatic      = "Static"
	RoleMember      = "Member"
	RoleGetter      = "Getter"
	RoleSetter      = "Setter"
	RoleLiteral     = "Literal"
	RoleDoc         = "Doc"
	RoleComment     = "Comment"
	RoleClass       = "Class"
	RoleReturn      = "Return"
	RoleAssignment  = "Assignment"
)

// Role represents a syntactic/semantic label for a node.
type Role string

// Type represents a type label for a node.
type Type string

// Positions represents the byte and line/col offsets for a node.
// All fields are 1-based except StartOffset/EndOffset, which are byte offsets.
type Positions struct {
	StartLine   uint `json:"start_line,omitempty"`
	StartCol    uint `json:"start_col,omitempty"`
	StartOffset uint `json:"start_offset,omitempty"`
	EndLine     uint `json:"end_line,omitempty"`
	EndCol      uint `json:"end_col,omitempty"`
	EndOffset   uint `json:"end_offset,omitempty"`
}

// Node is the canonical UAST node structure.
//
// Fields:
//
//	ID: unique node identifier (optional).
//	Type: node type (e.g., "Class", "Call").
//	Token: string value or token for leaf nodes.
//	Roles: semantic/syntactic roles (see Role).
//	Pos: source code position info; nil for synthesized nodes.
//	Props: additional properties (language-specific, see the Prop* keys).
//	Children: child nodes (ordered).
type Node struct {
	ID       string            `json:"id,omitempty"`
	Token    string            `json:"token,omitempty"`
	Type     Type              `json:"type,omitempty"`
	Roles    []Role            `json:"roles,omitempty"`
	Pos      *Positions        `json:"pos,omitempty"`
	Props    map[string]string `json:"props,omitempty"`
	Children []*Node           `json:"children,omitempty"`
}

type nodeAncestorFrame struct {
	node   *Node
	parent []*Node
}

// NodeBuilder provides a fluent interface for building Node instances.
type NodeBuilder struct {
	node *Node
}

// Allocation constants.
const (
	initialChildCap = 4
)

// NewBuilder creates a new NodeBuilder.
func NewBuilder() *NodeBuilder {
	return &NodeBuilder{node: &Node{}}
}

// WithID sets the node ID.
func (builder *NodeBuilder) WithID(nodeID string) *NodeBuilder {
	builder.node.ID = nodeID

	return builder
}

// WithType sets the node type.
func (builder *NodeBuilder) WithType(nodeType Type) *NodeBuilder {
	builder.node.Type = nodeType

	return builder
}

// WithToken sets the node token.
func (builder *NodeBuilder) WithToken(token string) *NodeBuilder {
	builder.node.Token = token

	return builder
}

// WithRoles sets the node roles.
func (builder *NodeBuilder) WithRoles(roles ...Role) *NodeBuilder {
	builder.node.Roles = roles

	return builder
}

// WithPosition sets the node position.
func (builder *NodeBuilder) WithPosition(pos *Positions) *NodeBuilder {
	builder.node.Pos = pos

	return builder
}

// WithProp sets a single node property.
func (builder *NodeBuilder) WithProp(key, value string) *NodeBuilder {
	if builder.node.Props == nil {
		builder.node.Props = make(map[string]string)
	}

	builder.node.Props[key] = value

	return builder
}

// WithChildren appends child nodes.
func (builder *NodeBuilder) WithChildren(children ...*Node) *NodeBuilder {
	builder.node.Children = append(builder.node.Children, children...)

	return builder
}

// Build creates and returns the final Node.
func (builder *NodeBuilder) Build() *Node {
	if builder.node.Children == nil {
		builder.node.Children = make([]*Node, 0, initialChildCap)
	}

	return builder.node
}

// NewNodeWithToken creates a new Node with type and token.
func NewNodeWithToken(nodeType Type, token string) *Node {
	return &Node{Type: nodeType, Token: token}
}

// NewLiteralNode creates a new Node for literal values.
func NewLiteralNode(token string) *Node {
	return NewNodeWithToken(UASTLiteral, token)
}

// Prop returns the property value for key, or "" if unset.
func (targetNode *Node) Prop(key string) string {
	if targetNode == nil || targetNode.Props == nil {
		return ""
	}

	return targetNode.Props[key]
}

// SetProp sets a property, allocating the map on first use.
func (targetNode *Node) SetProp(key, value string) {
	if targetNode.Props == nil {
		targetNode.Props = make(map[string]string)
	}

	targetNode.Props[key] = value
}

// Find returns all nodes in the tree (including root) for which predicate(node) is true.
// Traversal is pre-order. Returns nil if n is nil.
func (targetNode *Node) Find(predicate func(*Node) bool) []*Node {
	if targetNode == nil {
		return nil
	}

	return findNodesWithPredicate(targetNode, predicate)
}

// FirstChild returns the first direct child with the given type and all of roles.
func (targetNode *Node) FirstChild(nodeType Type, roles ...Role) *Node {
	if targetNode == nil {
		return nil
	}

	for _, child := range targetNode.Children {
		if child.Type != nodeType {
			continue
		}

		if len(roles) == 0 || child.HasAllRoles(roles...) {
			return child
		}
	}

	return nil
}

// AddChild appends a child node to n.
func (targetNode *Node) AddChild(child *Node) {
	targetNode.Children = append(targetNode.Children, child)
}

// InsertChild inserts child at index, clamping index into [0, len(Children)].
func (targetNode *Node) InsertChild(index int, child *Node) {
	index = max(0, min(index, len(targetNode.Children)))
	targetNode.Children = slices.Insert(targetNode.Children, index, child)
}

// RemoveChild removes the first occurrence of the given child node from n.
// Returns true if the child was found and removed.
func (targetNode *Node) RemoveChild(child *Node) bool {
	for idx, candidate := range targetNode.Children {
		if candidate == child {
			removeChildAtIndex(targetNode, idx)

			return true
		}
	}

	return false
}

// ReplaceChild replaces the first occurrence of old in Children with replacement.
// Returns true if replaced.
func (targetNode *Node) ReplaceChild(old, replacement *Node) bool {
	for idx, candidate := range targetNode.Children {
		if candidate == old {
			targetNode.Children[idx] = replacement

			return true
		}
	}

	return false
}

// VisitPreOrder visits all nodes in pre-order (root, then children left-to-right).
func (targetNode *Node) VisitPreOrder(fn func(*Node)) {
	if targetNode == nil {
		return
	}

	transformInPlace(targetNode, func(visitNode *Node) bool {
		fn(visitNode)

		return true
	})
}

// Ancestors returns the list of ancestors from root to the parent of target (empty if not found).
// Returns nil if n or target is nil.
func (targetNode *Node) Ancestors(target *Node) []*Node {
	if targetNode == nil || target == nil {
		return nil
	}

	return findAncestors(targetNode, target)
}

// HasAnyRole checks if the node has any of the given roles.
func (targetNode *Node) HasAnyRole(roles ...Role) bool {
	if targetNode == nil || len(targetNode.Roles) == 0 {
		return false
	}

	for _, role := range roles {
		if slices.Contains(targetNode.Roles, role) {
			return true
		}
	}

	return false
}

// HasAllRoles checks if the node has all of the given roles.
func (targetNode *Node) HasAllRoles(roles ...Role) bool {
	if targetNode == nil || len(targetNode.Roles) == 0 {
		return false
	}

	for _, role := range roles {
		if !slices.Contains(targetNode.Roles, role) {
			return false
		}
	}

	return true
}

// HasAnyType checks if the node has any of the given types.
func (targetNode *Node) HasAnyType(nodeTypes ...Type) bool {
	if targetNode == nil {
		return false
	}

	return slices.Contains(nodeTypes, targetNode.Type)
}

// TransformInPlace walks the tree pre-order and mutates it in place using fn.
// Returning false from fn skips the children of the current node.
// Example:
//
//	root.TransformInPlace(func(n *node.Node) bool {
//	    if n.Type == node.UASTComment {
//	        n.Token = ""
//	    }
//	    return true // continue traversal
//	})
func (targetNode *Node) TransformInPlace(fn func(*Node) bool) {
	if targetNode == nil {
		return
	}

	transformInPlace(targetNode, fn)
}

// Clone returns a deep copy of the subtree rooted at n.
func (targetNode *Node) Clone() *Node {
	if targetNode == nil {
		return nil
	}

	clone := *targetNode
	clone.Roles = slices.Clone(targetNode.Roles)
	clone.Props = maps.Clone(targetNode.Props)

	if targetNode.Pos != nil {
		pos := *targetNode.Pos
		clone.Pos = &pos
	}

	clone.Children = make([]*Node, len(targetNode.Children))

	for idx, child := range targetNode.Children {
		clone.Children[idx] = child.Clone()
	}

	return &clone
}

func removeChildAtIndex(targetNode *Node, index int) {
	targetNode.Children = append(targetNode.Children[:index], targetNode.Children[index+1:]...)
}

// String returns a string representation of the node.
func (targetNode *Node) String() string {
	return nodeString(targetNode)
}

// Optimized string representation without JSON marshaling.
func nodeString(targetNode *Node) string {
	if targetNode == nil {
		return "nil"
	}

	var buf strings.Builder

	buf.WriteString("Node{")
	buf.WriteString("Type:")
	buf.WriteString(string(targetNode.Type))

	appendToken(&buf, targetNode.Token)
	appendRoles(&buf, targetNode.Roles)
	appendProps(&buf, targetNode.Props)
	appendChildren(&buf, targetNode.Children)

	buf.WriteString("}")

	return buf.String()
}

func appendToken(buf *strings.Builder, token string) {
	if token != "" {
		buf.WriteString(",Token:")
		buf.WriteString(token)
	}
}

func appendRoles(buf *strings.Builder, roles []Role) {
	if len(roles) > 0 {
		buf.WriteString(",Roles:[")

		for idx, role := range roles {
			if idx > 0 {
				buf.WriteString(" ")
			}

			buf.WriteString(string(role))
		}

		buf.WriteString("]")
	}
}

func appendProps(buf *strings.Builder, props map[string]string) {
	if len(props) > 0 {
		fmt.Fprintf(buf, ",Props:%v", props)
	}
}

func appendChildren(buf *strings.Builder, children []*Node) {
	if len(children) > 0 {
		buf.WriteString(",Children:")
		buf.WriteString(strconv.Itoa(len(children)))
	}
}

func findNodesWithPredicate(targetNode *Node, predicate func(*Node) bool) []*Node {
	var result []*Node

	stack := []*Node{targetNode}

	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if predicate(curr) {
			result = append(result, curr)
		}

		pushReversedChildren(curr, &stack)
	}

	return result
}

func pushReversedChildren(targetNode *Node, stack *[]*Node) {
	children := targetNode.Children

	for idx := len(children) - 1; idx >= 0; idx-- {
		if children[idx] != nil {
			*stack = append(*stack, children[idx])
		}
	}
}

func findAncestors(targetNode, target *Node) []*Node {
	stack := []nodeAncestorFrame{{node: targetNode, parent: nil}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.node == target {
			return top.parent
		}

		ancestorPath := append(append([]*Node{}, top.parent...), top.node)

		for idx := len(top.node.Children) - 1; idx >= 0; idx-- {
			stack = append(stack, nodeAncestorFrame{
				node:   top.node.Children[idx],
				parent: ancestorPath,
			})
		}
	}

	return nil
}

func transformInPlace(root *Node, fn func(*Node) bool) {
	stack := []*Node{root}

	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if fn(curr) {
			pushReversedChildren(curr, &stack)
		}
	}
}
