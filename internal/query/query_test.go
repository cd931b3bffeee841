package query

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/standardbeagle/lci/internal/config"
	"github.com/standardbeagle/lci/internal/graph"
	"github.com/standardbeagle/lci/internal/registry"
	"github.com/standardbeagle/lci/internal/types"
)

func valueSpan(s string) types.TranslationValue {
	return types.TranslationValue{Value: s}
}

func setup(t *testing.T, cfg *config.Config) (*API, *graph.Graph, *registry.Registry) {
	t.Helper()
	if cfg == nil {
		cfg = config.Default(t.TempDir())
	}
	gr := graph.New()
	reg := registry.New(cfg)
	return New(cfg, gr, reg), gr, reg
}

func TestUsagesOfReturnsEveryRecordedCallSite(t *testing.T) {
	api, gr, _ := setup(t, nil)
	gr.ScopesAndUsages(types.FileID(1), 1, 0, 1, func() ([]types.Scope, []types.KeyUsage) {
		return nil, []types.KeyUsage{{FileID: 1, ResolvedKey: "hello.world", Namespace: "common"}}
	})

	got := api.UsagesOf("common", "hello.world")
	require.Len(t, got, 1)
	require.Equal(t, types.FileID(1), got[0].FileID)
}

func TestDefinitionsOfOrdersByPrimaryLanguageThenLexicographic(t *testing.T) {
	cfg := config.Default(t.TempDir())
	cfg.PrimaryLanguages = []string{"fr"}
	api, gr, _ := setup(t, cfg)

	gr.Translation(types.FileID(1), 0, 0, 1, func() types.TranslationFile {
		return types.TranslationFile{FileID: 1, LanguageTag: "en", NamespaceTag: "common",
			FlattenedKeys: map[string]types.TranslationValue{"hello": valueSpan("Hello")}}
	})
	gr.Translation(types.FileID(2), 0, 0, 1, func() types.TranslationFile {
		return types.TranslationFile{FileID: 2, LanguageTag: "fr", NamespaceTag: "common",
			FlattenedKeys: map[string]types.TranslationValue{"hello": valueSpan("Bonjour")}}
	})

	defs := api.DefinitionsOf("common", "hello")
	require.Len(t, defs, 2)
	require.Equal(t, "fr", defs[0].Language)
	require.Equal(t, "en", defs[1].Language)
}

func TestMissingReportsOnlyRequiredLanguagesLackingTheKey(t *testing.T) {
	cfg := config.Default(t.TempDir())
	cfg.MissingTranslation.RequiredLanguages = []string{"en", "ja"}
	api, gr, _ := setup(t, cfg)

	gr.Translation(types.FileID(10), 0, 0, 1, func() types.TranslationFile {
		return types.TranslationFile{FileID: 10, LanguageTag: "en", NamespaceTag: "common",
			FlattenedKeys: map[string]types.TranslationValue{"hello.world": valueSpan("Hi")}}
	})
	gr.ScopesAndUsages(types.FileID(1), 1, 0, 1, func() ([]types.Scope, []types.KeyUsage) {
		return nil, []types.KeyUsage{{FileID: 1, ResolvedKey: "hello.world", Namespace: "common"}}
	})

	missing := api.Missing(types.FileID(1))
	require.Len(t, missing, 1)
	require.Equal(t, "hello.world", missing[0].Key)
	require.Equal(t, []string{"ja"}, missing[0].MissingLanguages)
}

func TestMissingSatisfiedByAnyPluralSuffixVariant(t *testing.T) {
	cfg := config.Default(t.TempDir())
	cfg.MissingTranslation.RequiredLanguages = []string{"en"}
	api, gr, _ := setup(t, cfg)

	gr.Translation(types.FileID(10), 0, 0, 1, func() types.TranslationFile {
		return types.TranslationFile{FileID: 10, LanguageTag: "en", NamespaceTag: "common",
			FlattenedKeys: map[string]types.TranslationValue{"item_other": valueSpan("items")}}
	})
	gr.ScopesAndUsages(types.FileID(1), 1, 0, 1, func() ([]types.Scope, []types.KeyUsage) {
		return nil, []types.KeyUsage{{FileID: 1, ResolvedKey: "item", Namespace: "common",
			PluralSuffix: types.AllPluralSuffixes}}
	})

	require.Empty(t, api.Missing(types.FileID(1)))
}

func TestMissingSkipsAmbiguousUsages(t *testing.T) {
	api, gr, _ := setup(t, nil)
	gr.ScopesAndUsages(types.FileID(1), 1, 0, 1, func() ([]types.Scope, []types.KeyUsage) {
		return nil, []types.KeyUsage{{FileID: 1, ResolvedKey: "x", Namespace: "", Ambiguous: true}}
	})
	require.Empty(t, api.Missing(types.FileID(1)))
}

func TestUnusedExcludesKeysWithUsagesAndIgnoredPatterns(t *testing.T) {
	cfg := config.Default(t.TempDir())
	cfg.UnusedTranslation.IgnorePatterns = []string{"debug.*"}
	api, gr, _ := setup(t, cfg)

	gr.Translation(types.FileID(5), 0, 0, 1, func() types.TranslationFile {
		return types.TranslationFile{FileID: 5, LanguageTag: "en", NamespaceTag: "common",
			FlattenedKeys: map[string]types.TranslationValue{
				"hello.world": valueSpan("Hi"),
				"unused.key":  valueSpan("Nope"),
				"debug.flag":  valueSpan("skip me"),
			}}
	})
	gr.ScopesAndUsages(types.FileID(1), 1, 0, 1, func() ([]types.Scope, []types.KeyUsage) {
		return nil, []types.KeyUsage{{FileID: 1, ResolvedKey: "hello.world", Namespace: "common"}}
	})

	unused := api.Unused(types.FileID(5))
	require.Len(t, unused, 1)
	require.Equal(t, "unused.key", unused[0].Key)
}

func TestDecorationsTruncatesToMaxWidth(t *testing.T) {
	api, gr, _ := setup(t, nil)
	gr.Translation(types.FileID(5), 0, 0, 1, func() types.TranslationFile {
		return types.TranslationFile{FileID: 5, LanguageTag: "en", NamespaceTag: "common",
			FlattenedKeys: map[string]types.TranslationValue{"hello.world": valueSpan("Hello, world!")}}
	})
	gr.ScopesAndUsages(types.FileID(1), 1, 0, 1, func() ([]types.Scope, []types.KeyUsage) {
		return nil, []types.KeyUsage{{FileID: 1, ResolvedKey: "hello.world", Namespace: "common",
			Span: types.Span{StartByte: 0, EndByte: 5}}}
	})

	decos := api.Decorations(types.FileID(1), nil, 5)
	require.Len(t, decos, 1)
	require.Equal(t, "Hello…", decos[0].TruncatedValue)
}

func TestHoverReturnsNilOutsideAnyUsageOrUnscannedFile(t *testing.T) {
	api, gr, reg := setup(t, nil)
	require.Nil(t, api.Hover(types.FileID(99), protocol.Position{}))

	id := reg.GetOrCreate("/ws/app.tsx")
	reg.SetContent(id, []byte(`t("hello.world");`), 0)
	gr.ScopesAndUsages(id, 0, 0, graph.ContentHash([]byte(`t("hello.world");`)), func() ([]types.Scope, []types.KeyUsage) {
		return nil, []types.KeyUsage{{FileID: id, ResolvedKey: "hello.world", Namespace: "common",
			Span: types.Span{StartByte: 0, EndByte: 2}}}
	})
	gr.Translation(types.FileID(5), 0, 0, 1, func() types.TranslationFile {
		return types.TranslationFile{FileID: 5, LanguageTag: "en", NamespaceTag: "common",
			FlattenedKeys: map[string]types.TranslationValue{"hello.world": valueSpan("Hi")}}
	})

	// Position outside the usage's span (byte 10) yields nil.
	require.Nil(t, api.Hover(id, protocol.Position{Line: 0, Character: 10}))

	// Position inside the usage's span resolves.
	res := api.Hover(id, protocol.Position{Line: 0, Character: 1})
	require.NotNil(t, res)
	require.Equal(t, "hello.world", res.Key)
	require.Equal(t, "Hi", res.PerLanguageValues["en"])
}

func TestCompletionsListsKeysInEnclosingScopeNamespace(t *testing.T) {
	api, gr, reg := setup(t, nil)

	id := reg.GetOrCreate("/ws/app.tsx")
	content := []byte(`function C() { const { t } = useTranslation("common"); return t("h"); }`)
	reg.SetContent(id, content, 0)

	gr.ScopesAndUsages(id, 0, 0, graph.ContentHash(content), func() ([]types.Scope, []types.KeyUsage) {
		return []types.Scope{{FileID: id, StartByte: 0, EndByte: uint32(len(content)), LocalName: "t", Namespace: "common"}}, nil
	})
	gr.Translation(types.FileID(5), 0, 0, 1, func() types.TranslationFile {
		return types.TranslationFile{FileID: 5, LanguageTag: "en", NamespaceTag: "common",
			FlattenedKeys: map[string]types.TranslationValue{"hello.world": valueSpan("Hi")}}
	})

	got := api.Completions(id, protocol.Position{Line: 0, Character: 5})
	require.Len(t, got, 1)
	require.Equal(t, "hello.world", got[0].Key)
	require.Equal(t, "Hi", got[0].PerLanguageValues["en"])
}
