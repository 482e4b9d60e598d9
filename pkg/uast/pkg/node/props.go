package node

import "strconv"

// Property keys shared by the front-end, the rules and the printer.
const (
	PropName       = "name"
	PropFQN        = "fqn"
	PropNamespace  = "namespace"
	PropExtends    = "extends"
	PropImplements = "implements"
	PropClass      = "class"
	PropReceiver   = "receiver"
	PropValue      = "value"
	PropKind       = "kind"
	PropDefault    = "default"
	PropType       = "type"
	PropArity      = "arity"
	PropReturns    = "returns"
	PropVisibility = "visibility"
)

// Literal kinds stored under PropKind.
const (
	LiteralNull   = "null"
	LiteralBool   = "bool"
	LiteralInt    = "int"
	LiteralFloat  = "float"
	LiteralString = "string"
	LiteralArray  = "array"
	LiteralExpr   = "expr"
)

// DocComment returns the leading documentation block of a declaration, or nil.
func (targetNode *Node) DocComment() *Node {
	return targetNode.FirstChild(UASTComment, RoleDoc)
}

// IsSynthetic reports whether the node was built in memory rather than parsed.
func (targetNode *Node) IsSynthetic() bool {
	return targetNode != nil && targetNode.Pos == nil
}

// Arity returns the list length recorded at parse time, or -1 when unknown.
func (targetNode *Node) Arity() int {
	raw := targetNode.Prop(PropArity)
	if raw == "" {
		return -1
	}

	arity, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}

	return arity
}
