package translation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lci/internal/parser"
	"github.com/standardbeagle/lci/internal/types"
)

func newCache(t *testing.T) *parser.Cache {
	t.Helper()
	c, err := parser.NewCache()
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestLoadFlattensNestedKeys(t *testing.T) {
	c := newCache(t)
	content := []byte(`{
  "hello": {
    "world": "Hello, world!"
  },
  "goodbye": "Goodbye"
}`)

	tf := Load(types.FileID(1), "/workspace/public/locales/en/common.json", content, c, ".")
	require.False(t, tf.Malformed)
	require.Equal(t, "en", tf.LanguageTag)
	require.Equal(t, "common", tf.NamespaceTag)
	require.Equal(t, "Hello, world!", tf.FlattenedKeys["hello.world"].Value)
	require.Equal(t, "Goodbye", tf.FlattenedKeys["goodbye"].Value)
}

func TestLoadFlattensArrayElementsAsIndexedKeys(t *testing.T) {
	c := newCache(t)
	content := []byte(`{
  "colors": ["red", "green", "blue"],
  "nested": {
    "items": [{"label": "one"}, {"label": "two"}]
  }
}`)

	tf := Load(types.FileID(1), "/workspace/public/locales/en/common.json", content, c, ".")
	require.False(t, tf.Malformed)
	require.Equal(t, "red", tf.FlattenedKeys["colors.0"].Value)
	require.Equal(t, "green", tf.FlattenedKeys["colors.1"].Value)
	require.Equal(t, "blue", tf.FlattenedKeys["colors.2"].Value)
	require.Equal(t, "one", tf.FlattenedKeys["nested.items.0.label"].Value)
	require.Equal(t, "two", tf.FlattenedKeys["nested.items.1.label"].Value)
}

func TestLoadMarksMalformedOnSyntaxError(t *testing.T) {
	c := newCache(t)
	content := []byte(`{ "hello": `)
	tf := Load(types.FileID(1), "/workspace/locales/en/common.json", content, c, ".")
	require.True(t, tf.Malformed)
}

func TestSetKeyReplacesExistingValueInPlace(t *testing.T) {
	c := newCache(t)
	content := []byte(`{"hello": "old"}`)
	tf := Load(types.FileID(1), "/workspace/locales/en/common.json", content, c, ".")

	updated := SetKey(content, tf, "hello", "new")
	require.Equal(t, `{"hello": "new"}`, string(updated))
}

func TestSetKeyAppendsNewKey(t *testing.T) {
	c := newCache(t)
	content := []byte(`{"hello": "world"}`)
	tf := Load(types.FileID(1), "/workspace/locales/en/common.json", content, c, ".")

	updated := SetKey(content, tf, "goodbye", "moon")

	tf2 := Load(types.FileID(1), "/workspace/locales/en/common.json", updated, c, ".")
	require.False(t, tf2.Malformed)
	require.Equal(t, "moon", tf2.FlattenedKeys["goodbye"].Value)
	require.Equal(t, "world", tf2.FlattenedKeys["hello"].Value)
}

func TestDeleteKeyRemovesPairAndComma(t *testing.T) {
	c := newCache(t)
	content := []byte(`{"hello": "world", "goodbye": "moon"}`)
	tf := Load(types.FileID(1), "/workspace/locales/en/common.json", content, c, ".")

	updated := DeleteKey(content, tf, "hello")

	tf2 := Load(types.FileID(1), "/workspace/locales/en/common.json", updated, c, ".")
	require.False(t, tf2.Malformed)
	_, stillThere := tf2.FlattenedKeys["hello"]
	require.False(t, stillThere)
	require.Equal(t, "moon", tf2.FlattenedKeys["goodbye"].Value)
}
