package uast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseUse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		statement string
		want      []useClause
	}{
		{
			name:      "single",
			statement: `use Foo\Bar;`,
			want:      []useClause{{Alias: "Bar", FQN: `Foo\Bar`}},
		},
		{
			name:      "leading separator and alias",
			statement: `use \Foo\Bar as Baz;`,
			want:      []useClause{{Alias: "Baz", FQN: `Foo\Bar`}},
		},
		{
			name:      "group",
			statement: "use Foo\\{A,\n    B\\C as D};",
			want:      []useClause{{Alias: "A", FQN: `Foo\A`}, {Alias: "D", FQN: `Foo\B\C`}},
		},
		{
			name:      "comma list",
			statement: `USE A, B\C;`,
			want:      []useClause{{Alias: "A", FQN: "A"}, {Alias: "C", FQN: `B\C`}},
		},
		{name: "function import", statement: `use function Foo\bar;`},
		{name: "const import", statement: `use const Foo\BAR;`},
		{name: "not a use", statement: `user Foo;`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, parseUse(tt.statement))
		})
	}
}

func newTestScope() *nameScope {
	ns := newNameScope()
	ns.enterNamespace("App")
	ns.addUse(useClause{Alias: "Collection", FQN: `Doctrine\Collection`})
	ns.class = `App\User`
	ns.parent = `App\Base`

	return ns
}

func TestNameScope_Resolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want string
	}{
		{name: `\Foo\Bar`, want: `Foo\Bar`},
		{name: "self", want: `App\User`},
		{name: "static", want: `App\User`},
		{name: "Parent", want: `App\Base`},
		{name: "int"},
		{name: "$this"},
		{name: ""},
		{name: `namespace\Sub\X`, want: `App\Sub\X`},
		{name: "collection", want: `Doctrine\Collection`},
		{name: `Collection\Item`, want: `Doctrine\Collection\Item`},
		{name: "Local", want: `App\Local`},
		{name: `Sub\Local`, want: `App\Sub\Local`},
	}

	ns := newTestScope()

	for _, tt := range tests {
		assert.Equal(t, tt.want, ns.resolve(tt.name), tt.name)
	}
}

func TestNameScope_ResolveType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ  string
		want string
	}{
		{typ: "?Foo", want: `App\Foo`},
		{typ: "Foo|null", want: `App\Foo`},
		{typ: "null|false|Foo", want: `App\Foo`},
		{typ: "Foo[]"},
		{typ: "Foo[]|Bar", want: `App\Bar`},
		{typ: "Foo&Countable", want: `App\Foo`},
		{typ: "Collection<int, Foo>", want: `Doctrine\Collection`},
		{typ: "string"},
		{typ: ""},
	}

	ns := newTestScope()

	for _, tt := range tests {
		assert.Equal(t, tt.want, ns.resolveType(tt.typ), tt.typ)
	}
}

func TestNameScope_EnterNamespaceDropsImports(t *testing.T) {
	t.Parallel()

	ns := newTestScope()
	ns.enterNamespace(`\Other`)

	assert.Equal(t, "Other", ns.namespace)
	assert.Equal(t, `Other\Collection`, ns.resolve("Collection"))
	assert.Equal(t, `Other\Thing`, ns.declared("Thing"))
}

func TestLastSegment(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Bar", lastSegment(`Foo\Bar`))
	assert.Equal(t, "Bar", lastSegment("Bar"))
}
