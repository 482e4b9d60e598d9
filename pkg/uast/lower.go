package uast

import (
	"strconv"
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/refang/pkg/docblock"
	"github.com/Sumatoshi-tech/refang/pkg/safeconv"
	"github.com/Sumatoshi-tech/refang/pkg/uast/pkg/node"
)

// Tree-sitter PHP node kinds the lowering recognizes.
const (
	tsComment           = "comment"
	tsNamespace         = "namespace_definition"
	tsUse               = "namespace_use_declaration"
	tsClass             = "class_declaration"
	tsInterface         = "interface_declaration"
	tsTrait             = "trait_declaration"
	tsFunction          = "function_definition"
	tsMethod            = "method_declaration"
	tsProperty          = "property_declaration"
	tsPropertyElement   = "property_element"
	tsBaseClause        = "base_clause"
	tsInterfaceClause   = "class_interface_clause"
	tsMemberCall        = "member_call_expression"
	tsNullsafeCall      = "nullsafe_member_call_expression"
	tsScopedCall        = "scoped_call_expression"
	tsFunctionCall      = "function_call_expression"
	tsCreation          = "object_creation_expression"
	tsAssignment        = "assignment_expression"
	tsArguments         = "arguments"
	tsArgument          = "argument"
	tsVariable          = "variable_name"
	tsName              = "name"
	tsQualifiedName     = "qualified_name"
	tsRelativeScope     = "relative_scope"
	tsMemberAccess      = "member_access_expression"
	tsNullsafeAccess    = "nullsafe_member_access_expression"
	tsParenthesized     = "parenthesized_expression"
	tsStaticModifier    = "static_modifier"
	tsVisibility        = "visibility_modifier"
	tsSimpleParameter   = "simple_parameter"
	tsVariadicParameter = "variadic_parameter"
	tsPromotedParameter = "property_promotion_parameter"
	tsVariadicHole      = "variadic_placeholder"
)

const (
	thisVar        = "$this"
	constructor    = "__construct"
	docOpener      = "/**"
	internPoolSize = 128
)

// literalKinds maps tree-sitter literal kinds to node literal kinds.
var literalKinds = map[string]string{
	"string":                    node.LiteralString,
	"encapsed_string":           node.LiteralString,
	"integer":                   node.LiteralInt,
	"float":                     node.LiteralFloat,
	"boolean":                   node.LiteralBool,
	"null":                      node.LiteralNull,
	"array_creation_expression": node.LiteralArray,
}

// lowering converts one tree-sitter PHP tree. It tracks the name scope and
// the variable types of the function being lowered so calls can carry the
// type of their receiver.
type lowering struct {
	src      []byte
	names    *nameScope
	props    map[string]string
	vars     map[string]string
	interner map[string]string
}

func newLowering(src []byte) *lowering {
	return &lowering{
		src:      src,
		names:    newNameScope(),
		vars:     make(map[string]string),
		interner: make(map[string]string, internPoolSize),
	}
}

func (lw *lowering) file(root sitter.Node) *node.Node {
	return node.NewBuilder().
		WithType(node.UASTFile).
		WithPosition(positions(root)).
		WithChildren(lw.statements(root)...).
		Build()
}

// statements lowers the children of a statement container, attaching a doc
// comment to the declaration that immediately follows it.
func (lw *lowering) statements(container sitter.Node) []*node.Node {
	var (
		out []*node.Node
		doc *node.Node
	)

	for idx := range container.NamedChildCount() {
		child := container.NamedChild(idx)

		switch child.Type() {
		case tsComment:
			doc = lw.docComment(child)

			continue
		case tsNamespace:
			out = append(out, lw.namespace(child))
		case tsUse:
			out = append(out, lw.imports(child)...)
		case tsClass, tsInterface, tsTrait:
			out = append(out, lw.classLike(child, doc))
		case tsFunction:
			out = append(out, lw.function(child, doc))
		default:
			out = append(out, lw.expressions(child)...)
		}

		doc = nil
	}

	return out
}

func (lw *lowering) namespace(tsNode sitter.Node) *node.Node {
	name := lw.text(tsNode.ChildByFieldName("name"))
	body := tsNode.ChildByFieldName("body")

	ns := node.NewBuilder().
		WithType(node.UASTNamespace).
		WithToken(name).
		WithRoles(node.RoleDeclaration).
		WithProp(node.PropName, name).
		WithPosition(positions(tsNode))

	if body.IsNull() {
		lw.names.enterNamespace(name)

		return ns.Build()
	}

	saved := *lw.names
	lw.names.enterNamespace(name)
	ns.WithChildren(lw.statements(body)...)
	*lw.names = saved

	return ns.Build()
}

func (lw *lowering) imports(tsNode sitter.Node) []*node.Node {
	clauses := parseUse(lw.text(tsNode))
	out := make([]*node.Node, 0, len(clauses))

	for _, clause := range clauses {
		lw.names.addUse(clause)

		out = append(out, node.NewBuilder().
			WithType(node.UASTImport).
			WithToken(clause.Alias).
			WithRoles(node.RoleReference).
			WithProp(node.PropName, clause.Alias).
			WithProp(node.PropFQN, clause.FQN).
			WithPosition(positions(tsNode)).
			Build())
	}

	return out
}

func (lw *lowering) classLike(tsNode sitter.Node, doc *node.Node) *node.Node {
	name := lw.text(tsNode.ChildByFieldName("name"))
	fqn := lw.names.declared(name)
	kind := tsNode.Type()

	var (
		extends    string
		implements []string
	)

	for idx := range tsNode.NamedChildCount() {
		child := tsNode.NamedChild(idx)

		switch child.Type() {
		case tsBaseClause:
			bases := lw.classNames(child)
			if kind == tsInterface {
				implements = append(implements, bases...)
			} else if len(bases) > 0 {
				extends = bases[0]
			}
		case tsInterfaceClause:
			implements = append(implements, lw.classNames(child)...)
		}
	}

	nodeType := node.Type(node.UASTClass)
	if kind == tsInterface {
		nodeType = node.UASTInterface
	}

	builder := node.NewBuilder().
		WithType(nodeType).
		WithToken(name).
		WithRoles(node.RoleDeclaration, node.RoleClass).
		WithProp(node.PropName, name).
		WithProp(node.PropFQN, fqn).
		WithProp(node.PropNamespace, lw.names.namespace).
		WithPosition(positions(tsNode))

	if extends != "" {
		builder.WithProp(node.PropExtends, extends)
	}

	if len(implements) > 0 {
		builder.WithProp(node.PropImplements, strings.Join(implements, ","))
	}

	if doc != nil {
		builder.WithChildren(doc)
	}

	class := builder.Build()

	savedClass, savedParent, savedProps := lw.names.class, lw.names.parent, lw.props
	lw.names.class, lw.names.parent = fqn, extends

	defer func() {
		lw.names.class, lw.names.parent, lw.props = savedClass, savedParent, savedProps
	}()

	body := tsNode.ChildByFieldName("body")
	if body.IsNull() {
		return class
	}

	lw.props = lw.propertyTypes(body)

	for _, member := range lw.members(body) {
		class.AddChild(member)
	}

	return class
}

// classNames resolves the class references of an extends/implements clause.
func (lw *lowering) classNames(clause sitter.Node) []string {
	var names []string

	for idx := range clause.NamedChildCount() {
		child := clause.NamedChild(idx)
		if child.Type() == tsName || child.Type() == tsQualifiedName {
			if resolved := lw.names.resolve(lw.text(child)); resolved != "" {
				names = append(names, resolved)
			}
		}
	}

	return names
}

// propertyTypes collects the class types of all properties of a class body,
// including promoted constructor parameters, before any method is lowered.
func (lw *lowering) propertyTypes(body sitter.Node) map[string]string {
	types := make(map[string]string)

	var docText string

	for idx := range body.NamedChildCount() {
		child := body.NamedChild(idx)

		switch child.Type() {
		case tsComment:
			docText = lw.text(child)

			continue
		case tsProperty:
			declared := lw.typeText(child)
			if varType, ok := docblock.VarType(docText); ok {
				declared = varType
			}

			for _, element := range namedChildrenOf(child, tsPropertyElement) {
				name := strings.TrimPrefix(lw.text(firstOfType(element, tsVariable)), "$")
				if typ := lw.names.resolveType(declared); typ != "" {
					types[name] = typ
				}
			}
		case tsMethod:
			if !strings.EqualFold(lw.text(child.ChildByFieldName("name")), constructor) {
				break
			}

			for _, param := range namedChildrenOf(child.ChildByFieldName("parameters"), tsPromotedParameter) {
				name := strings.TrimPrefix(lw.text(param.ChildByFieldName("name")), "$")
				if typ := lw.names.resolveType(lw.typeText(param)); typ != "" {
					types[name] = typ
				}
			}
		}

		docText = ""
	}

	return types
}

// members lowers a class body into Field and Method nodes.
func (lw *lowering) members(body sitter.Node) []*node.Node {
	var (
		out      []*node.Node
		promoted []*node.Node
		doc      *node.Node
	)

	for idx := range body.NamedChildCount() {
		child := body.NamedChild(idx)

		switch child.Type() {
		case tsComment:
			doc = lw.docComment(child)

			continue
		case tsProperty:
			out = append(out, lw.fields(child, doc)...)
		case tsMethod:
			method, fields := lw.method(child, doc)
			out = append(out, method)
			promoted = append(promoted, fields...)
		}

		doc = nil
	}

	return append(out, promoted...)
}

func (lw *lowering) fields(decl sitter.Node, doc *node.Node) []*node.Node {
	static := hasChildOfType(decl, tsStaticModifier)
	visibility := lw.text(firstOfType(decl, tsVisibility))
	typ := lw.typeText(decl)

	var out []*node.Node

	for _, element := range namedChildrenOf(decl, tsPropertyElement) {
		name := strings.TrimPrefix(lw.text(firstOfType(element, tsVariable)), "$")

		field := lw.field(name, typ, visibility, static, decl)

		if doc != nil {
			if len(out) == 0 {
				field.Children = append(field.Children, doc)
			} else {
				field.Children = append(field.Children, doc.Clone())
			}
		}

		out = append(out, field)
	}

	return out
}

func (lw *lowering) field(name, typ, visibility string, static bool, at sitter.Node) *node.Node {
	roles := []node.Role{node.RoleMember}
	if static {
		roles = append(roles, node.RoleStatic)
	}

	builder := node.NewBuilder().
		WithType(node.UASTField).
		WithToken(name).
		WithRoles(roles...).
		WithProp(node.PropName, name).
		WithPosition(positions(at))

	if typ != "" {
		builder.WithProp(node.PropType, typ)
	}

	if visibility != "" {
		builder.WithProp(node.PropVisibility, visibility)
	}

	return builder.Build()
}

// method lowers a method declaration. Promoted constructor parameters are
// returned as Field nodes of the enclosing class.
func (lw *lowering) method(decl sitter.Node, doc *node.Node) (*node.Node, []*node.Node) {
	name := lw.text(decl.ChildByFieldName("name"))

	roles := []node.Role{node.RoleDeclaration, node.RoleMember}
	if hasChildOfType(decl, tsStaticModifier) {
		roles = append(roles, node.RoleStatic)
	}

	builder := node.NewBuilder().
		WithType(node.UASTMethod).
		WithToken(name).
		WithRoles(roles...).
		WithProp(node.PropName, name).
		WithProp(node.PropClass, lw.names.class).
		WithPosition(positions(decl))

	if visibility := lw.text(firstOfType(decl, tsVisibility)); visibility != "" {
		builder.WithProp(node.PropVisibility, visibility)
	}

	if returns := lw.text(decl.ChildByFieldName("return_type")); returns != "" {
		builder.WithProp(node.PropReturns, returns)
	}

	if doc != nil {
		builder.WithChildren(doc)
	}

	method := builder.Build()

	savedVars := lw.vars
	lw.vars = make(map[string]string)

	defer func() { lw.vars = savedVars }()

	params := decl.ChildByFieldName("parameters")
	method.AddChild(lw.parameters(params))

	var promoted []*node.Node

	if strings.EqualFold(name, constructor) {
		for _, param := range namedChildrenOf(params, tsPromotedParameter) {
			fieldName := strings.TrimPrefix(lw.text(param.ChildByFieldName("name")), "$")
			visibility := lw.text(firstOfType(param, tsVisibility))
			promoted = append(promoted, lw.field(fieldName, lw.typeText(param), visibility, false, param))
		}
	}

	if body := decl.ChildByFieldName("body"); !body.IsNull() {
		method.AddChild(lw.block(body))
	}

	return method, promoted
}

func (lw *lowering) function(decl sitter.Node, doc *node.Node) *node.Node {
	name := lw.text(decl.ChildByFieldName("name"))

	builder := node.NewBuilder().
		WithType(node.UASTFunction).
		WithToken(name).
		WithRoles(node.RoleDeclaration).
		WithProp(node.PropName, lw.names.declared(name)).
		WithPosition(positions(decl))

	if doc != nil {
		builder.WithChildren(doc)
	}

	function := builder.Build()

	savedVars := lw.vars
	lw.vars = make(map[string]string)

	defer func() { lw.vars = savedVars }()

	function.AddChild(lw.parameters(decl.ChildByFieldName("parameters")))

	if body := decl.ChildByFieldName("body"); !body.IsNull() {
		function.AddChild(lw.block(body))
	}

	return function
}

// parameters lowers a formal parameter list and records typed parameters
// as variable types.
func (lw *lowering) parameters(list sitter.Node) *node.Node {
	params := node.NewBuilder().
		WithType(node.UASTList).
		WithRoles(node.RoleParameter)

	if list.IsNull() {
		return params.WithProp(node.PropArity, "0").Build()
	}

	params.WithPosition(positions(list))

	var children []*node.Node

	for idx := range list.NamedChildCount() {
		child := list.NamedChild(idx)

		switch child.Type() {
		case tsSimpleParameter, tsVariadicParameter, tsPromotedParameter:
		default:
			continue
		}

		name := lw.text(child.ChildByFieldName("name"))
		if name == "" {
			name = lw.text(firstOfType(child, tsVariable))
		}

		typ := lw.typeText(child)

		param := node.NewBuilder().
			WithType(node.UASTParameter).
			WithToken(name).
			WithRoles(node.RoleParameter).
			WithProp(node.PropName, name).
			WithPosition(positions(child))

		if typ != "" {
			param.WithProp(node.PropType, typ)
		}

		if def := lw.text(child.ChildByFieldName("default_value")); def != "" {
			param.WithProp(node.PropDefault, def)
		}

		if vt := lw.names.resolveType(typ); vt != "" {
			lw.vars[name] = vt
		}

		children = append(children, param.Build())
	}

	return params.
		WithProp(node.PropArity, strconv.Itoa(len(children))).
		WithChildren(children...).
		Build()
}

func (lw *lowering) block(body sitter.Node) *node.Node {
	return node.NewBuilder().
		WithType(node.UASTBlock).
		WithRoles(node.RoleBody).
		WithPosition(positions(body)).
		WithChildren(lw.expressions(body)...).
		Build()
}

// expressions collects the calls and nested declarations under tsNode in
// source order. Everything else is flattened away.
func (lw *lowering) expressions(tsNode sitter.Node) []*node.Node {
	if tsNode.IsNull() {
		return nil
	}

	switch tsNode.Type() {
	case tsMemberCall, tsNullsafeCall:
		return []*node.Node{lw.memberCall(tsNode)}
	case tsScopedCall:
		return []*node.Node{lw.scopedCall(tsNode)}
	case tsFunctionCall:
		return []*node.Node{lw.functionCall(tsNode)}
	case tsCreation:
		return []*node.Node{lw.creation(tsNode)}
	case tsAssignment:
		return lw.assignment(tsNode)
	case tsClass, tsInterface, tsTrait:
		return []*node.Node{lw.classLike(tsNode, nil)}
	case tsFunction:
		return []*node.Node{lw.function(tsNode, nil)}
	case tsComment:
		return nil
	}

	var out []*node.Node

	for idx := range tsNode.NamedChildCount() {
		out = append(out, lw.expressions(tsNode.NamedChild(idx))...)
	}

	return out
}

// assignment lowers both sides and tracks "$v = <typed expr>" so later
// calls on $v know their receiver.
func (lw *lowering) assignment(tsNode sitter.Node) []*node.Node {
	left := tsNode.ChildByFieldName("left")
	right := tsNode.ChildByFieldName("right")

	out := lw.expressions(right)
	out = append(out, lw.expressions(left)...)

	if !left.IsNull() && left.Type() == tsVariable {
		lw.vars[lw.text(left)] = lw.typeOf(right)
	}

	return out
}

func (lw *lowering) memberCall(tsNode sitter.Node) *node.Node {
	object := tsNode.ChildByFieldName("object")

	call := lw.call(tsNode, lw.methodName(tsNode), lw.typeOf(object), node.RoleMember)
	call.Children = append(lw.expressions(object), call.Children...)

	return call
}

func (lw *lowering) scopedCall(tsNode sitter.Node) *node.Node {
	scope := tsNode.ChildByFieldName("scope")

	call := lw.call(tsNode, lw.methodName(tsNode), lw.typeOf(scope), node.RoleStatic)
	call.Children = append(lw.expressions(scope), call.Children...)

	return call
}

func (lw *lowering) functionCall(tsNode sitter.Node) *node.Node {
	function := tsNode.ChildByFieldName("function")

	name := ""
	if !function.IsNull() && (function.Type() == tsName || function.Type() == tsQualifiedName) {
		name = lw.text(function)
	}

	call := lw.call(tsNode, name, "")
	if name == "" {
		call.Children = append(lw.expressions(function), call.Children...)
	}

	return call
}

func (lw *lowering) creation(tsNode sitter.Node) *node.Node {
	class := ""

	for idx := range tsNode.NamedChildCount() {
		child := tsNode.NamedChild(idx)
		if child.Type() == tsName || child.Type() == tsQualifiedName {
			class = lw.names.resolve(lw.text(child))

			break
		}
	}

	return lw.call(tsNode, constructor, class)
}

func (lw *lowering) methodName(tsNode sitter.Node) string {
	name := tsNode.ChildByFieldName("name")
	if name.IsNull() || name.Type() != tsName {
		return ""
	}

	return lw.text(name)
}

// call builds a Call node whose children are the lowered argument list.
func (lw *lowering) call(tsNode sitter.Node, name, receiver string, roles ...node.Role) *node.Node {
	builder := node.NewBuilder().
		WithType(node.UASTCall).
		WithToken(name).
		WithRoles(append([]node.Role{node.RoleCall}, roles...)...).
		WithPosition(positions(tsNode))

	if name != "" {
		builder.WithProp(node.PropName, name)
	}

	if receiver != "" {
		builder.WithProp(node.PropReceiver, receiver)
	}

	args := tsNode.ChildByFieldName("arguments")
	if args.IsNull() {
		args = firstOfType(tsNode, tsArguments)
	}

	if !args.IsNull() {
		builder.WithChildren(lw.arguments(args))
	}

	return builder.Build()
}

func (lw *lowering) arguments(list sitter.Node) *node.Node {
	var children []*node.Node

	for idx := range list.NamedChildCount() {
		child := list.NamedChild(idx)

		switch child.Type() {
		case tsArgument, tsVariadicHole:
			children = append(children, lw.argument(child))
		}
	}

	return node.NewBuilder().
		WithType(node.UASTList).
		WithRoles(node.RoleArgument).
		WithProp(node.PropArity, strconv.Itoa(len(children))).
		WithPosition(positions(list)).
		WithChildren(children...).
		Build()
}

// argument lowers one argument; its token is the argument's source text.
func (lw *lowering) argument(arg sitter.Node) *node.Node {
	builder := node.NewBuilder().
		WithToken(lw.text(arg)).
		WithPosition(positions(arg))

	count := arg.NamedChildCount()
	if count == 0 {
		return builder.WithType(node.UASTExpression).WithRoles(node.RoleArgument).Build()
	}

	value := arg.NamedChild(count - 1)

	if label := arg.ChildByFieldName("name"); !label.IsNull() {
		builder.WithProp(node.PropName, lw.text(label))
	}

	switch kind, isLiteral := literalKinds[value.Type()]; {
	case isLiteral:
		builder.WithType(node.UASTLiteral).
			WithRoles(node.RoleArgument, node.RoleLiteral).
			WithProp(node.PropKind, kind)
	case value.Type() == tsVariable:
		builder.WithType(node.UASTIdentifier).WithRoles(node.RoleArgument)
	default:
		builder.WithType(node.UASTExpression).WithRoles(node.RoleArgument)
	}

	return builder.WithChildren(lw.expressions(value)...).Build()
}

// typeOf infers the class of an expression from the enclosing class,
// typed parameters, tracked assignments and typed properties.
func (lw *lowering) typeOf(expr sitter.Node) string {
	if expr.IsNull() {
		return ""
	}

	switch expr.Type() {
	case tsVariable:
		name := lw.text(expr)
		if name == thisVar {
			return lw.names.class
		}

		return lw.vars[name]
	case tsMemberAccess, tsNullsafeAccess:
		if lw.text(expr.ChildByFieldName("object")) != thisVar {
			return ""
		}

		return lw.props[lw.text(expr.ChildByFieldName("name"))]
	case tsCreation:
		for idx := range expr.NamedChildCount() {
			child := expr.NamedChild(idx)
			if child.Type() == tsName || child.Type() == tsQualifiedName {
				return lw.names.resolve(lw.text(child))
			}
		}
	case tsParenthesized:
		if expr.NamedChildCount() > 0 {
			return lw.typeOf(expr.NamedChild(0))
		}
	case tsName, tsQualifiedName, tsRelativeScope:
		return lw.names.resolve(lw.text(expr))
	}

	return ""
}

// typeText returns the declared type of a property or parameter.
func (lw *lowering) typeText(decl sitter.Node) string {
	if typ := decl.ChildByFieldName("type"); !typ.IsNull() {
		return lw.text(typ)
	}

	for idx := range decl.NamedChildCount() {
		child := decl.NamedChild(idx)
		if strings.HasSuffix(child.Type(), "_type") {
			return lw.text(child)
		}
	}

	return ""
}

// docComment lowers "/** ... */" comments; other comments yield nil.
func (lw *lowering) docComment(tsNode sitter.Node) *node.Node {
	text := lw.text(tsNode)
	if !strings.HasPrefix(text, docOpener) {
		return nil
	}

	return node.NewBuilder().
		WithType(node.UASTComment).
		WithToken(text).
		WithRoles(node.RoleDoc, node.RoleComment).
		WithPosition(positions(tsNode)).
		Build()
}

// text returns the source of tsNode. Short strings are interned within the
// current parse.
func (lw *lowering) text(tsNode sitter.Node) string {
	if tsNode.IsNull() {
		return ""
	}

	from, to, ok := safeconv.Span(tsNode.StartByte(), tsNode.EndByte(), len(lw.src))
	if !ok {
		return ""
	}

	raw := lw.src[from:to]
	if len(raw) > maxInternLen {
		return string(raw)
	}

	if interned, found := lw.interner[string(raw)]; found {
		return interned
	}

	s := string(raw)
	lw.interner[s] = s

	return s
}

const maxInternLen = 64

func positions(tsNode sitter.Node) *node.Positions {
	start, end := tsNode.StartPoint(), tsNode.EndPoint()

	return &node.Positions{
		StartLine:   start.Row + 1,
		StartCol:    start.Column + 1,
		StartOffset: tsNode.StartByte(),
		EndLine:     end.Row + 1,
		EndCol:      end.Column + 1,
		EndOffset:   tsNode.EndByte(),
	}
}

func hasChildOfType(tsNode sitter.Node, kind string) bool {
	return !firstOfType(tsNode, kind).IsNull()
}

func firstOfType(tsNode sitter.Node, kind string) sitter.Node {
	if tsNode.IsNull() {
		return sitter.Node{}
	}

	for idx := range tsNode.NamedChildCount() {
		if child := tsNode.NamedChild(idx); child.Type() == kind {
			return child
		}
	}

	return sitter.Node{}
}

func namedChildrenOf(tsNode sitter.Node, kind string) []sitter.Node {
	if tsNode.IsNull() {
		return nil
	}

	var out []sitter.Node

	for idx := range tsNode.NamedChildCount() {
		if child := tsNode.NamedChild(idx); child.Type() == kind {
			out = append(out, child)
		}
	}

	return out
}
