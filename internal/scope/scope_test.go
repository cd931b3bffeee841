package scope

import (
	"testing"

	"github.com/stretchr/testify/require"

	lciparser "github.com/standardbeagle/lci/internal/parser"
	"github.com/standardbeagle/lci/internal/types"
)

func parseAndQuery(t *testing.T, src string) ([][]lciparser.Match, []byte) {
	t.Helper()
	c, err := lciparser.NewCache()
	require.NoError(t, err)
	t.Cleanup(c.Close)

	content := []byte(src)
	tree := c.Parse(types.FileID(1), types.LangJS, content, nil)
	require.NotNil(t, tree)

	q, err := lciparser.Engine()
	require.NoError(t, err)
	return q.Run(tree, content), content
}

func TestResolveDirectCallWithinHookScope(t *testing.T) {
	matches, content := parseAndQuery(t, `
function Greeting() {
  const { t } = useTranslation("common");
  return t("hello.world");
}
`)

	sep := Separators{Key: "."}
	scopes, usages := Resolve(types.FileID(1), content, matches, sep)

	require.NotEmpty(t, scopes)
	require.Len(t, usages, 1)
	require.Equal(t, "hello.world", usages[0].ResolvedKey)
	require.Equal(t, "common", usages[0].Namespace)
	require.False(t, usages[0].Ambiguous)
}

func TestResolveCallOutsideAnyScopeIsAmbiguous(t *testing.T) {
	matches, content := parseAndQuery(t, `t("orphan.key");`)

	sep := Separators{Key: "."}
	_, usages := Resolve(types.FileID(1), content, matches, sep)

	require.Len(t, usages, 1)
	require.True(t, usages[0].Ambiguous)
}

func TestResolveArrayNamespaceFallback(t *testing.T) {
	matches, content := parseAndQuery(t, `
function Greeting() {
  const { t } = useTranslation(["common", "errors"]);
  return t("hello.world");
}
`)

	sep := Separators{Key: "."}
	_, usages := Resolve(types.FileID(1), content, matches, sep)

	require.Len(t, usages, 1)
	require.Equal(t, "common", usages[0].Namespace)
	require.Equal(t, []string{"common", "errors"}, usages[0].FallbackNS)
}

func TestSuggestRanksCloserKeysFirst(t *testing.T) {
	known := []string{"hello.world", "hello.worId", "goodbye.moon"}
	out := Suggest("hello.wrold", known, 2)
	require.Len(t, out, 2)
	require.Contains(t, out, "hello.world")
}

func TestPluralCandidatesCoversAllSuffixes(t *testing.T) {
	cands := PluralCandidates("item")
	require.Len(t, cands, len(types.AllPluralSuffixes))
	require.Contains(t, cands, "item_one")
	require.Contains(t, cands, "item_other")
}

func TestResolveKeyPrefixOptionPrependsToKey(t *testing.T) {
	matches, content := parseAndQuery(t, `
function Greeting() {
  const { t } = useTranslation("common", {keyPrefix: "buttons"});
  return t("save");
}
`)

	sep := Separators{Key: "."}
	_, usages := Resolve(types.FileID(1), content, matches, sep)

	require.Len(t, usages, 1)
	require.Equal(t, "buttons.save", usages[0].ResolvedKey)
	require.Equal(t, "common", usages[0].Namespace)
}

func TestResolveInCallNamespaceWinsOverScopeButKeyPrefixStillApplies(t *testing.T) {
	matches, content := parseAndQuery(t, `
function Greeting() {
  const { t } = useTranslation("common", {keyPrefix: "buttons"});
  return t("save", {ns: "errors"});
}
`)

	sep := Separators{Key: "."}
	_, usages := Resolve(types.FileID(1), content, matches, sep)

	require.Len(t, usages, 1)
	require.Equal(t, "errors", usages[0].Namespace)
	require.Equal(t, "buttons.save", usages[0].ResolvedKey)
}

func TestResolveBareCallFallsBackToDefaultNamespace(t *testing.T) {
	matches, content := parseAndQuery(t, `
function Greeting() {
  const { t } = useTranslation();
  return t("welcome");
}
`)

	sep := Separators{Key: ".", DefaultNamespace: "translation"}
	_, usages := Resolve(types.FileID(1), content, matches, sep)

	require.Len(t, usages, 1)
	require.Equal(t, "translation", usages[0].Namespace)
	require.False(t, usages[0].Ambiguous)
}

func TestResolveNamespaceInKeySyntax(t *testing.T) {
	matches, content := parseAndQuery(t, `t("errors:notFound");`)

	sep := Separators{Key: ".", Namespace: ":", DefaultNamespace: "translation"}
	_, usages := Resolve(types.FileID(1), content, matches, sep)

	require.Len(t, usages, 1)
	require.Equal(t, "errors", usages[0].Namespace)
	require.Equal(t, "notFound", usages[0].ResolvedKey)
}

func TestResolveCountOptionSetsPluralSuffixCandidates(t *testing.T) {
	matches, content := parseAndQuery(t, `
function Greeting() {
  const { t } = useTranslation("common");
  return t("item", {count: 5});
}
`)

	sep := Separators{Key: "."}
	_, usages := Resolve(types.FileID(1), content, matches, sep)

	require.Len(t, usages, 1)
	require.Equal(t, types.AllPluralSuffixes, usages[0].PluralSuffix)
}

func TestResolveTranslationRenderPropScope(t *testing.T) {
	matches, content := parseAndQuery(t, `
function Greeting() {
  return <Translation keyPrefix="buttons">{t => t("save")}</Translation>;
}
`)

	sep := Separators{Key: "."}
	scopes, usages := Resolve(types.FileID(1), content, matches, sep)

	require.Len(t, scopes, 1)
	require.Equal(t, "buttons", scopes[0].KeyPrefix)
	require.Len(t, usages, 1)
	require.Equal(t, "buttons.save", usages[0].ResolvedKey)
}
