package graph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lci/internal/types"
)

func TestScopesAndUsagesMemoizesOnMatchingHash(t *testing.T) {
	g := New()
	calls := 0
	compute := func() ([]types.Scope, []types.KeyUsage) {
		calls++
		return nil, []types.KeyUsage{{FileID: 1, ResolvedKey: "hello.world", Namespace: "common"}}
	}

	g.ScopesAndUsages(types.FileID(1), 1, 0, 42, compute)
	g.ScopesAndUsages(types.FileID(1), 1, 0, 42, compute)

	require.Equal(t, 1, calls, "second call with identical key/hash must hit the memoized value")
}

func TestScopesAndUsagesRecomputesOnHashChange(t *testing.T) {
	g := New()
	calls := 0
	compute := func() ([]types.Scope, []types.KeyUsage) {
		calls++
		return nil, nil
	}

	g.ScopesAndUsages(types.FileID(1), 1, 0, 42, compute)
	g.ScopesAndUsages(types.FileID(1), 2, 0, 99, compute)

	require.Equal(t, 2, calls)
}

func TestUsagesOfIndexesByNamespaceAndKey(t *testing.T) {
	g := New()
	g.ScopesAndUsages(types.FileID(1), 1, 0, 1, func() ([]types.Scope, []types.KeyUsage) {
		return nil, []types.KeyUsage{{FileID: 1, ResolvedKey: "hello.world", Namespace: "common"}}
	})

	found := g.UsagesOf("common", "hello.world")
	require.Len(t, found, 1)
	require.Equal(t, types.FileID(1), found[0].FileID)

	require.Empty(t, g.UsagesOf("common", "nope"))
}

func TestEvictFileRemovesStaleUsagesFromIndex(t *testing.T) {
	g := New()
	g.ScopesAndUsages(types.FileID(1), 1, 0, 1, func() ([]types.Scope, []types.KeyUsage) {
		return nil, []types.KeyUsage{{FileID: 1, ResolvedKey: "a.b", Namespace: "common"}}
	})
	require.Len(t, g.UsagesOf("common", "a.b"), 1)

	// Re-resolving the same file with a new version and no matching
	// usage should evict the old entry from the reverse index.
	g.ScopesAndUsages(types.FileID(1), 2, 0, 2, func() ([]types.Scope, []types.KeyUsage) {
		return nil, nil
	})
	require.Empty(t, g.UsagesOf("common", "a.b"))
}

func TestForgetRemovesFile(t *testing.T) {
	g := New()
	g.ScopesAndUsages(types.FileID(1), 1, 0, 1, func() ([]types.Scope, []types.KeyUsage) {
		return nil, []types.KeyUsage{{FileID: 1, ResolvedKey: "a.b", Namespace: "common"}}
	})
	g.Forget(types.FileID(1))
	require.Empty(t, g.UsagesOf("common", "a.b"))
	require.Empty(t, g.AllUsages())
}

func TestResetClearsEverything(t *testing.T) {
	g := New()
	g.ScopesAndUsages(types.FileID(1), 1, 0, 1, func() ([]types.Scope, []types.KeyUsage) {
		return nil, []types.KeyUsage{{FileID: 1, ResolvedKey: "a.b", Namespace: "common"}}
	})
	g.Reset()
	require.Empty(t, g.AllUsages())
	require.Empty(t, g.UsagesOf("common", "a.b"))
}

func TestContentHashDiffersOnDifferentContent(t *testing.T) {
	require.NotEqual(t, ContentHash([]byte("a")), ContentHash([]byte("b")))
	require.Equal(t, ContentHash([]byte("a")), ContentHash([]byte("a")))
}
