package uast

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnifiedDiff_Equal(t *testing.T) {
	t.Parallel()

	assert.Empty(t, UnifiedDiff("a.php", []byte("x\n"), []byte("x\n")))
}

func TestUnifiedDiff_SingleHunk(t *testing.T) {
	t.Parallel()

	got := UnifiedDiff("a.php", []byte("a\nb\nc\n"), []byte("a\nB\nc\n"))

	assert.Equal(t, "--- a/a.php\n+++ b/a.php\n@@ -1,3 +1,3 @@\n a\n-b\n+B\n c\n", got)
}

func TestUnifiedDiff_SeparateHunks(t *testing.T) {
	t.Parallel()

	var before, after strings.Builder

	for line := 1; line <= 20; line++ {
		fmt.Fprintf(&before, "l%d\n", line)

		if line == 2 || line == 18 {
			fmt.Fprintf(&after, "L%d\n", line)
		} else {
			fmt.Fprintf(&after, "l%d\n", line)
		}
	}

	got := UnifiedDiff("a.php", []byte(before.String()), []byte(after.String()))

	assert.Equal(t, 2, strings.Count(got, "\n@@ "))
	assert.Contains(t, got, "@@ -1,5 +1,5 @@\n l1\n-l2\n+L2\n l3\n")
	assert.Contains(t, got, "@@ -15,6 +15,6 @@\n l15\n l16\n l17\n-l18\n+L18\n l19\n l20\n")
}

func TestUnifiedDiff_Insertion(t *testing.T) {
	t.Parallel()

	got := UnifiedDiff("a.php", []byte("a\n"), []byte("a\nb\n"))

	assert.Contains(t, got, "@@ -1 +1,2 @@\n a\n+b\n")
}

func TestWriteColorDiff(t *testing.T) {
	t.Parallel()

	diff := UnifiedDiff("a.php", []byte("a\nb\n"), []byte("a\nc\n"))

	var out bytes.Buffer

	WriteColorDiff(&out, diff)

	for _, line := range []string{"--- a/a.php", "+++ b/a.php", " a", "-b", "+c"} {
		assert.Contains(t, out.String(), line)
	}
}
