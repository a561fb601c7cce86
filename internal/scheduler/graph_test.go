package scheduler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vorpal-build/vorpal/pkg/digest"
)

func TestTopoSortOrdersDependenciesFirst(t *testing.T) {
	a := digest.Digest("sha256:" + zeros("a"))
	b := digest.Digest("sha256:" + zeros("b"))
	c := digest.Digest("sha256:" + zeros("c"))

	// a depends on b, b depends on c.
	edges := map[digest.Digest][]digest.Digest{
		a: {b},
		b: {c},
	}

	order, err := topoSort(edges)
	require.NoError(t, err)
	require.Equal(t, []digest.Digest{c, b, a}, order)
}

func TestTopoSortBreaksTiesLexicographically(t *testing.T) {
	a := digest.Digest("sha256:" + zeros("a"))
	b := digest.Digest("sha256:" + zeros("b"))
	c := digest.Digest("sha256:" + zeros("c"))

	// a and b both depend on nothing and have no relation to each other;
	// c depends on both. a and b must appear in lexicographic order.
	edges := map[digest.Digest][]digest.Digest{
		c: {a, b},
	}

	order, err := topoSort(edges)
	require.NoError(t, err)
	require.Equal(t, []digest.Digest{a, b, c}, order)
}

func TestTopoSortDetectsCycle(t *testing.T) {
	a := digest.Digest("sha256:" + zeros("a"))
	b := digest.Digest("sha256:" + zeros("b"))

	edges := map[digest.Digest][]digest.Digest{
		a: {b},
		b: {a},
	}

	_, err := topoSort(edges)
	require.Error(t, err)
}

// zeros pads s into a deterministic 64-char hex-looking string so digests
// sort predictably in tests without depending on real hash output.
func zeros(s string) string {
	return s + strings.Repeat("0", 64-len(s))
}
