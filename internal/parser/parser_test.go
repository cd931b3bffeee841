package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lci/internal/types"
)

func TestCacheParseFreshThenIncremental(t *testing.T) {
	c, err := NewCache()
	require.NoError(t, err)
	defer c.Close()

	src := []byte(`const { t } = useTranslation("common"); t("hello.world");`)
	tree := c.Parse(types.FileID(1), types.LangJS, src, nil)
	require.NotNil(t, tree)
	require.Equal(t, tree, c.Tree(types.FileID(1)))

	edited := []byte(`const { t } = useTranslation("common"); t("hello.there");`)
	edit := &Edit{
		StartByte:  51,
		OldEndByte: 56,
		NewEndByte: 56,
	}
	tree2 := c.Parse(types.FileID(1), types.LangJS, edited, edit)
	require.NotNil(t, tree2)

	fresh := c.Parse(types.FileID(2), types.LangJS, edited, nil)
	require.Equal(t, tree2.RootNode().Kind(), fresh.RootNode().Kind())
	require.Equal(t, tree2.RootNode().ChildCount(), fresh.RootNode().ChildCount())
}

func TestCacheUnknownLanguageReturnsNil(t *testing.T) {
	c, err := NewCache()
	require.NoError(t, err)
	defer c.Close()

	tree := c.Parse(types.FileID(1), types.LangUnknown, []byte("x"), nil)
	require.Nil(t, tree)
}

func TestCacheForgetReleasesTree(t *testing.T) {
	c, err := NewCache()
	require.NoError(t, err)
	defer c.Close()

	c.Parse(types.FileID(7), types.LangTSX, []byte(`const x = t("a.b");`), nil)
	require.NotNil(t, c.Tree(types.FileID(7)))

	c.Forget(types.FileID(7))
	require.Nil(t, c.Tree(types.FileID(7)))
}

func TestParseJSONIndependentOfFileCache(t *testing.T) {
	c, err := NewCache()
	require.NoError(t, err)
	defer c.Close()

	tree := c.ParseJSON([]byte(`{"hello": {"world": "Hello, world!"}}`))
	require.NotNil(t, tree)
	require.Equal(t, "document", tree.RootNode().Kind())
}
