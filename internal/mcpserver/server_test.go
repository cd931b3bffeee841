package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lci/internal/config"
	"github.com/standardbeagle/lci/internal/indexer"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "app.tsx"), `
function Greeting() {
  const { t } = useTranslation("common");
  return t("hello.world");
}
`)
	writeFile(t, filepath.Join(root, "public", "locales", "en", "common.json"),
		`{"hello": {"world": "Hello, world!"}}`)
	writeFile(t, filepath.Join(root, "public", "locales", "fr", "common.json"),
		`{"hello": {}}`)

	cfg := config.Default(root)
	cfg.IncludePatterns = []string{"**/*.tsx"}
	cfg.TranslationFilePattern = "**/locales/**/*.json"

	ix, err := indexer.New(root, cfg)
	require.NoError(t, err)
	t.Cleanup(ix.Close)
	require.NoError(t, ix.Reload(context.Background()))

	return New(ix, cfg), root
}

func invoke(t *testing.T, h func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error), args any) map[string]interface{} {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	res, err := h(context.Background(), &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: raw}})
	require.NoError(t, err)
	require.False(t, res.IsError, "%v", res)
	text := res.Content[0].(*mcp.TextContent).Text
	var out interface{}
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	if m, ok := out.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{"_": out}
}

func TestUsagesOfAndDefinitionsOf(t *testing.T) {
	s, _ := newTestServer(t)

	usagesOut, err := s.handleUsagesOf(context.Background(), rawRequest(t, map[string]string{"namespace": "common", "key": "hello.world"}))
	require.NoError(t, err)
	require.False(t, usagesOut.IsError)

	defsOut, err := s.handleDefinitionsOf(context.Background(), rawRequest(t, map[string]string{"namespace": "common", "key": "hello.world"}))
	require.NoError(t, err)
	require.False(t, defsOut.IsError)
}

func TestGetAvailableLanguages(t *testing.T) {
	s, _ := newTestServer(t)
	out := invoke(t, s.handleGetAvailableLanguages, map[string]string{})
	langs, ok := out["languages"].([]interface{})
	require.True(t, ok)
	require.ElementsMatch(t, []interface{}{"en", "fr"}, langs)
}

func TestCurrentLanguageRoundTrip(t *testing.T) {
	s, _ := newTestServer(t)

	got := invoke(t, s.handleGetCurrentLanguage, map[string]string{})
	require.Nil(t, got["language"])

	_, err := s.handleSetCurrentLanguage(context.Background(), rawRequest(t, map[string]string{"language": "fr"}))
	require.NoError(t, err)

	got = invoke(t, s.handleGetCurrentLanguage, map[string]string{})
	require.Equal(t, "fr", got["language"])
}

func TestGetTranslationValue(t *testing.T) {
	s, _ := newTestServer(t)
	out := invoke(t, s.handleGetTranslationValue, map[string]string{"lang": "en", "key": "hello.world"})
	require.Equal(t, "Hello, world!", out["value"])
}

func TestEditTranslationWritesAndReindexes(t *testing.T) {
	s, root := newTestServer(t)

	_, err := s.handleEditTranslation(context.Background(), rawRequest(t, map[string]string{
		"lang": "fr", "key": "hello.world", "value": "Bonjour le monde!",
	}))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "public", "locales", "fr", "common.json"))
	require.NoError(t, err)
	require.Contains(t, string(data), "Bonjour le monde!")

	out := invoke(t, s.handleGetTranslationValue, map[string]string{"lang": "fr", "key": "hello.world"})
	require.Equal(t, "Bonjour le monde!", out["value"])
}

func rawRequest(t *testing.T, args interface{}) *mcp.CallToolRequest {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: raw}}
}

func fileURI(path string) string {
	return "file://" + filepath.ToSlash(path)
}

func TestMissingReportsSourceFileLackingRequiredLanguage(t *testing.T) {
	s, root := newTestServer(t)
	s.cfg.MissingTranslation.RequiredLanguages = []string{"en", "de"}

	out := invoke(t, s.handleMissing, map[string]string{"uri": fileURI(filepath.Join(root, "src", "app.tsx"))})
	entries, ok := out["_"].([]interface{})
	require.True(t, ok)
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]interface{})
	require.Equal(t, "hello.world", entry["Key"])
	require.ElementsMatch(t, []interface{}{"de"}, entry["MissingLanguages"])
}

func TestMissingUnknownFileYieldsEmptyResult(t *testing.T) {
	s, _ := newTestServer(t)
	out := invoke(t, s.handleMissing, map[string]string{"uri": "file:///no/such/file.tsx"})
	entries, ok := out["_"].([]interface{})
	require.True(t, ok)
	require.Empty(t, entries)
}

func TestUnusedEmptyWhenEveryKeyIsReferenced(t *testing.T) {
	s, root := newTestServer(t)
	out := invoke(t, s.handleUnused, map[string]string{"uri": fileURI(filepath.Join(root, "public", "locales", "en", "common.json"))})
	entries, ok := out["_"].([]interface{})
	require.True(t, ok)
	require.Empty(t, entries, "every en key is referenced by app.tsx's usage")
}

func TestGetDecorationsReturnsTruncatedValueForUsage(t *testing.T) {
	s, root := newTestServer(t)
	out := invoke(t, s.handleGetDecorations, map[string]interface{}{
		"uri":      fileURI(filepath.Join(root, "src", "app.tsx")),
		"language": "en",
	})
	entries, ok := out["_"].([]interface{})
	require.True(t, ok)
	require.Len(t, entries, 1)
	deco := entries[0].(map[string]interface{})
	require.Equal(t, "Hello, world!", deco["TruncatedValue"])
}

func TestGetKeyAtPositionResolvesUsageUnderCursor(t *testing.T) {
	s, root := newTestServer(t)
	out := invoke(t, s.handleGetKeyAtPosition, map[string]interface{}{
		"uri":      fileURI(filepath.Join(root, "src", "app.tsx")),
		"position": map[string]int{"line": 3, "character": 12},
	})
	require.Equal(t, "hello.world", out["key"])
	require.Equal(t, "common", out["namespace"])
	require.Equal(t, true, out["resolvable"])
}

func TestGetKeyAtPositionOutsideAnyUsageYieldsUnresolvable(t *testing.T) {
	s, root := newTestServer(t)
	out := invoke(t, s.handleGetKeyAtPosition, map[string]interface{}{
		"uri":      fileURI(filepath.Join(root, "src", "app.tsx")),
		"position": map[string]int{"line": 0, "character": 0},
	})
	require.Equal(t, "", out["key"])
	require.Equal(t, false, out["resolvable"])
}

func TestDeleteUnusedKeysRemovesOnlyUnreferencedKeys(t *testing.T) {
	s, root := newTestServer(t)
	enPath := filepath.Join(root, "public", "locales", "en", "common.json")
	writeFile(t, enPath, `{"hello": {"world": "Hello, world!"}, "orphan": "gone"}`)
	require.NoError(t, s.ix.Reload(context.Background()))

	out := invoke(t, s.handleDeleteUnusedKeys, map[string]string{"uri": fileURI(enPath)})
	deleted, ok := out["deleted"].([]interface{})
	require.True(t, ok)
	require.Equal(t, []interface{}{"orphan"}, deleted)

	data, err := os.ReadFile(enPath)
	require.NoError(t, err)
	require.NotContains(t, string(data), "orphan")
	require.Contains(t, string(data), "Hello, world!")
}
