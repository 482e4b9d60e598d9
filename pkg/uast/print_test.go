package uast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/refang/pkg/builder"
	"github.com/Sumatoshi-tech/refang/pkg/uast/pkg/node"
)

func printSource(t *testing.T, src string, root *node.Node) string {
	t.Helper()

	out, err := Print([]byte(src), root)
	require.NoError(t, err)

	return string(out)
}

func argumentsOf(t *testing.T, root *node.Node, call string) *node.Node {
	t.Helper()

	list := findCall(t, root, call).FirstChild(node.UASTList, node.RoleArgument)
	require.NotNil(t, list)

	return list
}

func nullArgument(t *testing.T) *node.Node {
	t.Helper()

	literal, err := builder.Literal(nil)
	require.NoError(t, err)

	literal.Roles = append(literal.Roles, node.RoleArgument)

	return literal
}

func TestPrint_Unchanged(t *testing.T) {
	t.Parallel()

	root := parseSource(t, "User.php", userSource)
	assert.Equal(t, userSource, printSource(t, userSource, root))
}

func TestPrint_DocComment(t *testing.T) {
	t.Parallel()

	src := "<?php\n\n/**\n * @method int getA()\n */\nclass A\n{\n}\n"

	t.Run("blank removes comment", func(t *testing.T) {
		t.Parallel()

		root := parseSource(t, "a.php", src)
		root.FirstChild(node.UASTClass).DocComment().Token = ""

		assert.Equal(t, "<?php\n\nclass A\n{\n}\n", printSource(t, src, root))
	})

	t.Run("rewritten", func(t *testing.T) {
		t.Parallel()

		root := parseSource(t, "a.php", src)
		root.FirstChild(node.UASTClass).DocComment().Token = "/**\n * @author x\n */"

		assert.Equal(t, "<?php\n\n/**\n * @author x\n */\nclass A\n{\n}\n", printSource(t, src, root))
	})
}

func TestPrint_MethodAppendedAfterMembers(t *testing.T) {
	t.Parallel()

	src := "<?php\nclass A\n{\n    private $a;\n}\n"

	root := parseSource(t, "a.php", src)
	class := root.FirstChild(node.UASTClass)
	class.AddChild(builder.MethodBuilder{}.Build(class, "getA", "", "a"))

	want := "<?php\nclass A\n{\n    private $a;\n\n" +
		"    public function getA()\n    {\n        return $this->a;\n    }\n}\n"
	assert.Equal(t, want, printSource(t, src, root))
}

func TestPrint_MethodsIntoEmptyClass(t *testing.T) {
	t.Parallel()

	src := "<?php\nclass A\n{\n}\n"

	root := parseSource(t, "a.php", src)
	class := root.FirstChild(node.UASTClass)
	methods := builder.MethodBuilder{}
	class.AddChild(methods.Build(class, "getA", "", "a"))
	class.AddChild(methods.Build(class, "setA", "int", "a"))

	want := "<?php\nclass A\n{\n" +
		"    public function getA()\n    {\n        return $this->a;\n    }\n\n" +
		"    public function setA(int $a)\n    {\n        $this->a = $a;\n        return $this;\n    }\n}\n"
	assert.Equal(t, want, printSource(t, src, root))
}

func TestPrint_MethodBeforeDocumentedMember(t *testing.T) {
	t.Parallel()

	src := "<?php\nclass A\n{\n    /** doc */\n    public function b()\n    {\n    }\n}\n"

	root := parseSource(t, "a.php", src)
	class := root.FirstChild(node.UASTClass)
	class.InsertChild(0, builder.MethodBuilder{}.Build(class, "getA", "", "a"))

	want := "<?php\nclass A\n{\n" +
		"    public function getA()\n    {\n        return $this->a;\n    }\n\n" +
		"    /** doc */\n    public function b()\n    {\n    }\n}\n"
	assert.Equal(t, want, printSource(t, src, root))
}

func TestPrint_ArgumentLists(t *testing.T) {
	t.Parallel()

	t.Run("appended", func(t *testing.T) {
		t.Parallel()

		src := "<?php\n$x->f(1);\n$y->g();\n"
		root := parseSource(t, "a.php", src)

		for _, call := range []string{"f", "g"} {
			list := argumentsOf(t, root, call)
			list.AddChild(nullArgument(t))
		}

		assert.Equal(t, "<?php\n$x->f(1, null);\n$y->g(null);\n", printSource(t, src, root))
	})

	t.Run("inserted between originals", func(t *testing.T) {
		t.Parallel()

		src := "<?php\n$x->f(1,  2);\n"
		root := parseSource(t, "a.php", src)
		argumentsOf(t, root, "f").InsertChild(1, nullArgument(t))

		assert.Equal(t, "<?php\n$x->f(1, null, 2);\n", printSource(t, src, root))
	})

	t.Run("parameter default", func(t *testing.T) {
		t.Parallel()

		src := "<?php\nclass A\n{\n    public function f($a)\n    {\n    }\n}\n"
		root := parseSource(t, "a.php", src)

		method := root.FirstChild(node.UASTClass).FirstChild(node.UASTMethod)
		require.NotNil(t, method)

		params := method.FirstChild(node.UASTList, node.RoleParameter)
		params.AddChild(node.NewBuilder().
			WithType(node.UASTParameter).
			WithRoles(node.RoleParameter).
			WithProp(node.PropName, "$arg1").
			WithProp(node.PropDefault, "null").
			Build())

		want := "<?php\nclass A\n{\n    public function f($a, $arg1 = null)\n    {\n    }\n}\n"
		assert.Equal(t, want, printSource(t, src, root))
	})
}

func TestPrint_Errors(t *testing.T) {
	t.Parallel()

	_, err := Print([]byte("<?php\n"), nil)
	require.ErrorIs(t, err, ErrUnprintable)

	outside := node.NewBuilder().
		WithType(node.UASTList).
		WithPosition(&node.Positions{StartOffset: 2, EndOffset: 100}).
		Build()

	_, err = Print([]byte("<?php\n"), outside)
	require.ErrorIs(t, err, ErrUnprintable)

	src := "<?php\nclass A\n{\n}\n"
	root := parseSource(t, "a.php", src)
	root.FirstChild(node.UASTClass).AddChild(node.NewNodeWithToken(node.UASTField, "x"))

	_, err = Print([]byte(src), root)
	require.ErrorIs(t, err, errCannotEmit)
}
