package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lci/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReloadResolvesSourceAndTranslationFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "app.tsx"), `
function Greeting() {
  const { t } = useTranslation("common");
  return t("hello.world");
}
`)
	writeFile(t, filepath.Join(root, "public", "locales", "en", "common.json"), `{"hello": {"world": "Hello, world!"}}`)

	cfg := config.Default(root)
	cfg.IncludePatterns = []string{"**/*.tsx"}
	cfg.TranslationFilePattern = "**/locales/**/*.json"

	ix, err := New(root, cfg)
	require.NoError(t, err)
	defer ix.Close()

	require.NoError(t, ix.Reload(context.Background()))

	usages := ix.Graph().UsagesOf("common", "hello.world")
	require.Len(t, usages, 1)

	translations := ix.Graph().AllTranslations()
	require.Len(t, translations, 1)
	require.Equal(t, "Hello, world!", translations[0].FlattenedKeys["hello.world"].Value)
}

func TestReloadIndexesAllTranslationsAndSourcesAcrossBothPhases(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 3; i++ {
		writeFile(t, filepath.Join(root, "src", "c"+string(rune('a'+i))+".tsx"), `
function Greeting() {
  const { t } = useTranslation("common");
  return t("hello.world");
}
`)
	}
	writeFile(t, filepath.Join(root, "public", "locales", "en", "common.json"), `{"hello": {"world": "Hello, world!"}}`)
	writeFile(t, filepath.Join(root, "public", "locales", "fr", "common.json"), `{"hello": {"world": "Bonjour"}}`)

	cfg := config.Default(root)
	cfg.IncludePatterns = []string{"**/*.tsx"}
	cfg.TranslationFilePattern = "**/locales/**/*.json"

	ix, err := New(root, cfg)
	require.NoError(t, err)
	defer ix.Close()

	require.NoError(t, ix.Reload(context.Background()))

	// spec.md §4.G's cold-start contract: every translation file is
	// indexed, and every source usage resolves, regardless of how the
	// two-phase worker pool interleaves individual file completions.
	require.Len(t, ix.Graph().AllTranslations(), 2)
	require.Len(t, ix.Graph().UsagesOf("common", "hello.world"), 3)
}

func TestDidChangeTakesPrecedenceOverDiskEvent(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "src", "app.tsx")
	writeFile(t, path, `t("original.key");`)

	cfg := config.Default(root)
	cfg.IncludePatterns = []string{"**/*.tsx"}

	ix, err := New(root, cfg)
	require.NoError(t, err)
	defer ix.Close()

	require.NoError(t, ix.Reload(context.Background()))

	ix.DidChange(path, []byte(`t("edited.key");`), 2)

	// A disk-driven re-resolution (as the watcher would trigger after
	// the editor eventually writes to disk) must not clobber the
	// editor-authoritative version.
	ix.resolveFile(path)

	_, version, _, ok := ix.Registry().Content(ix.Registry().GetOrCreate(path))
	require.True(t, ok)
	require.Equal(t, 2, version)
}

func TestStartAndStopWatcherIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "app.tsx"), `t("a.b");`)

	cfg := config.Default(root)
	ix, err := New(root, cfg)
	require.NoError(t, err)
	defer ix.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, ix.Start(ctx))
	time.Sleep(10 * time.Millisecond)
	ix.Stop()
	ix.Stop() // idempotent
}
