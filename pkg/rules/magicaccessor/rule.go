// Package magicaccessor turns "@method" annotations on subclasses of a
// legacy magic-accessor base class into real accessor methods.
package magicaccessor

import (
	"log/slog"
	"strings"

	"github.com/Sumatoshi-tech/refang/pkg/builder"
	"github.com/Sumatoshi-tech/refang/pkg/docblock"
	"github.com/Sumatoshi-tech/refang/pkg/reflection"
	"github.com/Sumatoshi-tech/refang/pkg/rewrite"
	"github.com/Sumatoshi-tech/refang/pkg/uast/pkg/node"
)

const (
	// Name identifies the rule in configuration.
	Name = "magic_accessor"

	// DefaultLegacyBase is the base class whose subclasses get accessors.
	DefaultLegacyBase = `Nette\Object`

	methodTag = "method"
	nsSep     = `\`
)

// Accessor is one method to synthesize.
type Accessor struct {
	// Method is the full method name, e.g. "setFoo".
	Method string
	// Op is the accessor operation; "is" is reported as get.
	Op docblock.Op
	// Property is the backing property.
	Property string
	// Type is the parameter type of setters and adders; empty when unknown.
	Type string
}

// Plan is an ordered set of accessors keyed by method name. Re-adding a
// method replaces its entry without moving it.
type Plan struct {
	accessors []Accessor
	index     map[string]int
}

// Upsert adds or replaces the accessor for a.Method.
func (p *Plan) Upsert(a Accessor) {
	if p.index == nil {
		p.index = make(map[string]int)
	}

	if at, ok := p.index[a.Method]; ok {
		p.accessors[at] = a

		return
	}

	p.index[a.Method] = len(p.accessors)
	p.accessors = append(p.accessors, a)
}

// Accessors returns the planned accessors in annotation order.
func (p *Plan) Accessors() []Accessor {
	return p.accessors
}

// Len returns the number of planned accessors.
func (p *Plan) Len() int {
	return len(p.accessors)
}

// Target is the candidate produced by Match: the class and its plan.
type Target struct {
	Class *node.Node
	Plan  Plan
}

// Node implements rewrite.Candidate.
func (t *Target) Node() *node.Node {
	if t == nil {
		return nil
	}

	return t.Class
}

// Rule implements rewrite.Rule.
type Rule struct {
	reflector  reflection.Reflector
	builder    builder.MethodBuilder
	legacyBase string
	logger     *slog.Logger
}

// Option configures a Rule.
type Option func(*Rule)

// WithLegacyBase overrides DefaultLegacyBase.
func WithLegacyBase(fqn string) Option {
	return func(r *Rule) {
		if fqn != "" {
			r.legacyBase = reflection.Normalize(fqn)
		}
	}
}

// WithBuilder sets the method builder.
func WithBuilder(mb builder.MethodBuilder) Option {
	return func(r *Rule) { r.builder = mb }
}

// WithLogger sets the logger used for skipped classes.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Rule) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates the rule. The reflector answers property questions about
// candidate classes.
func New(reflector reflection.Reflector, opts ...Option) *Rule {
	rule := &Rule{
		reflector:  reflector,
		legacyBase: DefaultLegacyBase,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(rule)
	}

	return rule
}

// Name implements rewrite.Rule.
func (r *Rule) Name() string {
	return Name
}

// Describe implements rewrite.Describer.
func (r *Rule) Describe() string {
	return "@method accessors on subclasses of " + r.legacyBase
}

// Match implements rewrite.Rule.
func (r *Rule) Match(n *node.Node) (rewrite.Candidate, bool) {
	if n == nil || n.Type != node.UASTClass {
		return nil, false
	}

	if !strings.EqualFold(reflection.Normalize(n.Prop(node.PropExtends)), r.legacyBase) {
		return nil, false
	}

	doc := n.DocComment()
	if doc == nil || strings.TrimSpace(doc.Token) == "" {
		return nil, false
	}

	fqn := reflection.Normalize(n.Prop(node.PropFQN))
	if _, ok := r.reflector.Lookup(fqn); !ok {
		r.logger.Debug("class not reflected, skipping", "rule", Name, "class", fqn)

		return nil, false
	}

	target := &Target{Class: n}
	namespace := namespaceOf(fqn)

	for _, tag := range docblock.MethodTags(doc.Token) {
		accessor, ok := r.accessor(fqn, namespace, tag)
		if ok {
			target.Plan.Upsert(accessor)
		}
	}

	if target.Plan.Len() == 0 {
		return nil, false
	}

	return target, true
}

func (r *Rule) accessor(fqn, namespace string, tag docblock.MethodTag) (Accessor, bool) {
	property := tag.Property()

	prop, ok := reflection.FindProperty(r.reflector, fqn, property)
	if !ok || prop.Static {
		return Accessor{}, false
	}

	accessor := Accessor{
		Method:   tag.Method(),
		Op:       tag.Op,
		Property: property,
	}

	switch tag.Op {
	case docblock.OpGet, docblock.OpIs:
		accessor.Op = docblock.OpGet
	case docblock.OpSet, docblock.OpAdd:
		accessor.Type = parameterType(namespace, tag, prop)
	}

	return accessor, true
}

// parameterType picks the parameter type of a setter or adder: the type
// written in the annotation, else the property's declared type (element
// type of its @var for adders). Doc types are qualified with the declaring
// namespace. A native property type is kept as written, since PHP resolves
// it against the same imports as the generated method.
func parameterType(namespace string, tag docblock.MethodTag, prop reflection.Property) string {
	if tag.ParamType != "" {
		return qualify(namespace, tag.ParamType)
	}

	if tag.Op == docblock.OpAdd {
		element, _ := docblock.VarElementType(prop.Doc)

		return qualify(namespace, element)
	}

	typ := prop.DeclaredType()
	if _, fromDoc := docblock.VarType(prop.Doc); !fromDoc {
		return typ
	}

	return qualify(namespace, typ)
}

// qualify prefixes bare class-like names with the declaring namespace.
func qualify(namespace, typ string) string {
	if typ == "" || namespace == "" || !docblock.IsClassLike(typ) {
		return typ
	}

	return namespace + nsSep + typ
}

func namespaceOf(fqn string) string {
	at := strings.LastIndex(fqn, nsSep)
	if at < 0 {
		return ""
	}

	return fqn[:at]
}

// Apply implements rewrite.Rule. Accessors are inserted at the top of the
// class body in annotation order and their annotations are removed.
func (r *Rule) Apply(n *node.Node, c rewrite.Candidate) (*node.Node, error) {
	target, err := rewrite.CheckCandidate[*Target](Name, n, c)
	if err != nil {
		return n, err
	}

	accessors := target.Plan.Accessors()
	at := bodyStart(n)

	for idx := len(accessors) - 1; idx >= 0; idx-- {
		accessor := accessors[idx]

		n.InsertChild(at, r.builder.Build(n, accessor.Method, accessor.Type, accessor.Property))
		docblock.RemoveAnnotation(n, methodTag, accessor.Method)
	}

	return n, nil
}

// bodyStart is the index just past the class doc comment.
func bodyStart(class *node.Node) int {
	if len(class.Children) > 0 && class.Children[0].HasAllRoles(node.RoleDoc) {
		return 1
	}

	return 0
}
