package magicaccessor_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/refang/pkg/docblock"
	"github.com/Sumatoshi-tech/refang/pkg/reflection"
	"github.com/Sumatoshi-tech/refang/pkg/rewrite"
	"github.com/Sumatoshi-tech/refang/pkg/rules/magicaccessor"
	"github.com/Sumatoshi-tech/refang/pkg/uast/pkg/node"
)

const testFQN = `App\Models\Foo`

func newClass(fqn, extends, doc string) *node.Node {
	class := node.NewBuilder().
		WithType(node.UASTClass).
		WithRoles(node.RoleDeclaration, node.RoleClass).
		WithProp(node.PropFQN, fqn).
		WithProp(node.PropExtends, extends).
		Build()

	if doc != "" {
		class.AddChild(node.NewBuilder().
			WithType(node.UASTComment).
			WithRoles(node.RoleDoc, node.RoleComment).
			WithToken(doc).
			Build())
	}

	class.AddChild(node.NewBuilder().
		WithType(node.UASTField).
		WithToken("existing").
		WithRoles(node.RoleMember).
		Build())

	return class
}

func newReflector(props ...reflection.Property) reflection.Static {
	cd := reflection.ClassDescriptor{
		Name:       testFQN,
		Parent:     magicaccessor.DefaultLegacyBase,
		Properties: make(map[string]reflection.Property),
	}

	for _, prop := range props {
		cd.Properties[prop.Name] = prop
	}

	return reflection.Static{testFQN: cd}
}

func methodNames(class *node.Node) []string {
	var names []string

	for _, child := range class.Children {
		if child.Type == node.UASTMethod {
			names = append(names, child.Prop(node.PropName))
		}
	}

	return names
}

func TestMatch_RequiresLegacyBase(t *testing.T) {
	t.Parallel()

	doc := "/**\n * @method getFoo()\n */"
	reflector := newReflector(reflection.Property{Name: "foo"})
	rule := magicaccessor.New(reflector)

	tests := []struct {
		name    string
		extends string
		want    bool
	}{
		{name: "legacy base", extends: `Nette\Object`, want: true},
		{name: "leading separator", extends: `\Nette\Object`, want: true},
		{name: "case differs", extends: `nette\object`, want: true},
		{name: "no parent", extends: "", want: false},
		{name: "other parent", extends: `Nette\SmartObject`, want: false},
		{name: "grandchild", extends: `App\Models\Base`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, ok := rule.Match(newClass(testFQN, tt.extends, doc))
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestMatch_FalseWithoutGrammarMatches(t *testing.T) {
	t.Parallel()

	rule := magicaccessor.New(newReflector(reflection.Property{Name: "foo"}))

	docs := []string{
		"",
		"/** */",
		"/**\n * Plain description.\n */",
		"/**\n * @method foo()\n */",
		"/**\n * @method getfoo()\n */",
		"/**\n * @property int $foo\n */",
		"/** @method getFoo() */",
	}

	for _, doc := range docs {
		_, ok := rule.Match(newClass(testFQN, magicaccessor.DefaultLegacyBase, doc))
		assert.False(t, ok, doc)
	}
}

func TestMatch_SkipsMissingAndStaticProperties(t *testing.T) {
	t.Parallel()

	rule := magicaccessor.New(newReflector(
		reflection.Property{Name: "counter", Static: true},
		reflection.Property{Name: "name"},
	))

	doc := "/**\n * @method getCounter()\n * @method getMissing()\n * @method getName()\n */"

	candidate, ok := rule.Match(newClass(testFQN, magicaccessor.DefaultLegacyBase, doc))
	require.True(t, ok)

	target, ok := candidate.(*magicaccessor.Target)
	require.True(t, ok)
	require.Equal(t, 1, target.Plan.Len())
	assert.Equal(t, "getName", target.Plan.Accessors()[0].Method)
}

func TestMatch_UnreflectedClass(t *testing.T) {
	t.Parallel()

	rule := magicaccessor.New(reflection.Static{})

	_, ok := rule.Match(newClass(testFQN, magicaccessor.DefaultLegacyBase, "/**\n * @method getFoo()\n */"))
	assert.False(t, ok)
}

func TestMatch_InheritedProperty(t *testing.T) {
	t.Parallel()

	reflector := newReflector()
	reflector[`App\Models\Base`] = reflection.ClassDescriptor{
		Name:       `App\Models\Base`,
		Properties: map[string]reflection.Property{"title": {Name: "title"}},
	}

	cd := reflector[testFQN]
	cd.Parent = `App\Models\Base`
	reflector[testFQN] = cd

	rule := magicaccessor.New(reflector)

	_, ok := rule.Match(newClass(testFQN, magicaccessor.DefaultLegacyBase, "/**\n * @method getTitle()\n */"))
	assert.True(t, ok)
}

func TestMatch_TypeResolution(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		doc      string
		property reflection.Property
		method   string
		op       docblock.Op
		want     string
	}{
		{
			name:     "class var is qualified",
			doc:      "@method setFoo()",
			property: reflection.Property{Name: "foo", Doc: "/** @var Foo */"},
			method:   "setFoo",
			op:       docblock.OpSet,
			want:     `App\Models\Foo`,
		},
		{
			name:     "scalar var stays",
			doc:      "@method setFoo()",
			property: reflection.Property{Name: "foo", Doc: "/** @var int */"},
			method:   "setFoo",
			op:       docblock.OpSet,
			want:     "int",
		},
		{
			name:     "native type without var",
			doc:      "@method setFoo()",
			property: reflection.Property{Name: "foo", Type: "int"},
			method:   "setFoo",
			op:       docblock.OpSet,
			want:     "int",
		},
		{
			name:     "native class type kept",
			doc:      "@method setFoo()",
			property: reflection.Property{Name: "foo", Type: "Bar"},
			method:   "setFoo",
			op:       docblock.OpSet,
			want:     "Bar",
		},
		{
			name:     "explicit type wins",
			doc:      "@method setFoo(Bar $foo)",
			property: reflection.Property{Name: "foo", Doc: "/** @var int */"},
			method:   "setFoo",
			op:       docblock.OpSet,
			want:     `App\Models\Bar`,
		},
		{
			name:     "qualified explicit type kept",
			doc:      `@method setFoo(\Other\Bar $foo)`,
			property: reflection.Property{Name: "foo"},
			method:   "setFoo",
			op:       docblock.OpSet,
			want:     `\Other\Bar`,
		},
		{
			name:     "union is qualified",
			doc:      "@method setFoo()",
			property: reflection.Property{Name: "foo", Doc: "/** @var Foo|null */"},
			method:   "setFoo",
			op:       docblock.OpSet,
			want:     `App\Models\Foo|null`,
		},
		{
			name:     "adder takes element type",
			doc:      "@method addItem()",
			property: reflection.Property{Name: "items", Doc: "/** @var Item[] */"},
			method:   "addItem",
			op:       docblock.OpAdd,
			want:     `App\Models\Item`,
		},
		{
			name:     "adder ignores non-array var",
			doc:      "@method addItem()",
			property: reflection.Property{Name: "items", Doc: "/** @var array */"},
			method:   "addItem",
			op:       docblock.OpAdd,
			want:     "",
		},
		{
			name:     "getter has no type",
			doc:      "@method Foo getFoo()",
			property: reflection.Property{Name: "foo", Doc: "/** @var Foo */"},
			method:   "getFoo",
			op:       docblock.OpGet,
			want:     "",
		},
		{
			name:     "is normalized to get",
			doc:      "@method isActive()",
			property: reflection.Property{Name: "active", Doc: "/** @var bool */"},
			method:   "isActive",
			op:       docblock.OpGet,
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rule := magicaccessor.New(newReflector(tt.property))
			class := newClass(testFQN, magicaccessor.DefaultLegacyBase, "/**\n * "+tt.doc+"\n */")

			candidate, ok := rule.Match(class)
			require.True(t, ok)

			accessors := candidate.(*magicaccessor.Target).Plan.Accessors()
			require.Len(t, accessors, 1)
			assert.Equal(t, tt.method, accessors[0].Method)
			assert.Equal(t, tt.op, accessors[0].Op)
			assert.Equal(t, tt.want, accessors[0].Type)
		})
	}
}

func TestMatch_GlobalNamespaceLeavesTypes(t *testing.T) {
	t.Parallel()

	reflector := reflection.Static{"Foo": {
		Name:       "Foo",
		Properties: map[string]reflection.Property{"bar": {Name: "bar", Doc: "/** @var Bar */"}},
	}}
	rule := magicaccessor.New(reflector)

	candidate, ok := rule.Match(newClass("Foo", magicaccessor.DefaultLegacyBase, "/**\n * @method setBar()\n */"))
	require.True(t, ok)
	assert.Equal(t, "Bar", candidate.(*magicaccessor.Target).Plan.Accessors()[0].Type)
}

func TestApply_PreservesOrderAndIsIdempotent(t *testing.T) {
	t.Parallel()

	rule := magicaccessor.New(newReflector(
		reflection.Property{Name: "a"},
		reflection.Property{Name: "b", Doc: "/** @var int */"},
		reflection.Property{Name: "c"},
	))

	doc := "/**\n * Legacy entity.\n * @method getA()\n * @method setB()\n * @method isC()\n */"
	class := newClass(testFQN, magicaccessor.DefaultLegacyBase, doc)

	candidate, ok := rule.Match(class)
	require.True(t, ok)

	out, err := rule.Apply(class, candidate)
	require.NoError(t, err)
	assert.Same(t, class, out)

	assert.Equal(t, []string{"getA", "setB", "isC"}, methodNames(out))
	assert.Equal(t, node.Type(node.UASTComment), out.Children[0].Type)
	assert.Equal(t, node.Type(node.UASTField), out.Children[len(out.Children)-1].Type)
	assert.Equal(t, "/**\n * Legacy entity.\n */", out.DocComment().Token)

	_, again := rule.Match(out)
	assert.False(t, again)
}

func TestApply_DuplicateAnnotationsOverwriteInPlace(t *testing.T) {
	t.Parallel()

	rule := magicaccessor.New(newReflector(
		reflection.Property{Name: "a"},
		reflection.Property{Name: "b"},
	))

	doc := "/**\n * @method setA(int $a)\n * @method getB()\n * @method setA(string $a)\n */"
	class := newClass(testFQN, magicaccessor.DefaultLegacyBase, doc)

	candidate, ok := rule.Match(class)
	require.True(t, ok)

	accessors := candidate.(*magicaccessor.Target).Plan.Accessors()
	require.Len(t, accessors, 2)
	assert.Equal(t, "setA", accessors[0].Method)
	assert.Equal(t, "string", accessors[0].Type)

	out, err := rule.Apply(class, candidate)
	require.NoError(t, err)
	assert.Equal(t, []string{"setA", "getB"}, methodNames(out))
	assert.Empty(t, out.DocComment().Token)
}

func TestApply_RejectsForeignCandidates(t *testing.T) {
	t.Parallel()

	rule := magicaccessor.New(newReflector(reflection.Property{Name: "foo"}))
	doc := "/**\n * @method getFoo()\n */"

	first := newClass(testFQN, magicaccessor.DefaultLegacyBase, doc)
	second := newClass(testFQN, magicaccessor.DefaultLegacyBase, doc)

	candidate, ok := rule.Match(first)
	require.True(t, ok)

	_, err := rule.Apply(second, candidate)
	require.Error(t, err)
	assert.True(t, errors.Is(err, rewrite.ErrContractViolation))

	_, err = rule.Apply(first, nil)
	assert.ErrorIs(t, err, rewrite.ErrContractViolation)

	assert.Empty(t, methodNames(second))
}

func TestWithLegacyBase(t *testing.T) {
	t.Parallel()

	reflector := newReflector(reflection.Property{Name: "foo"})
	rule := magicaccessor.New(reflector, magicaccessor.WithLegacyBase(`\Legacy\Base`))

	_, ok := rule.Match(newClass(testFQN, `Legacy\Base`, "/**\n * @method getFoo()\n */"))
	assert.True(t, ok)

	_, ok = rule.Match(newClass(testFQN, magicaccessor.DefaultLegacyBase, "/**\n * @method getFoo()\n */"))
	assert.False(t, ok)
	assert.Contains(t, rule.Describe(), `Legacy\Base`)
}
