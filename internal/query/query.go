// Package query is the read-only accessor surface spec.md §4.H exposes
// to the LSP layer: usages_of, definitions_of, missing, unused,
// decorations, completions, hover. Every operation is pure over the
// current snapshot of the incremental graph -- none of them mutate the
// registry or the graph, and none of them ever fail with a panic;
// ambiguous input (an unresolved position, a file never scanned) simply
// yields an empty or nil result, per spec.md §4.H's failure semantics.
//
// Grounded on the teacher's internal/symbollinker query-layer shape
// (thin accessor methods over a shared engine, no business logic beyond
// read/filter/sort) adapted to this codebase's graph and config types.
package query

import (
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"go.lsp.dev/protocol"

	"github.com/standardbeagle/lci/internal/config"
	"github.com/standardbeagle/lci/internal/graph"
	"github.com/standardbeagle/lci/internal/registry"
	"github.com/standardbeagle/lci/internal/scope"
	"github.com/standardbeagle/lci/internal/types"
)

// API bundles the collaborators every query needs: the active config
// (for language priority and diagnostic rules), the incremental graph
// (the data), and the registry (byte-offset <-> Position conversion).
type API struct {
	cfg *config.Config
	gr  *graph.Graph
	reg *registry.Registry
}

// New builds a query API over cfg/gr/reg. Callers should rebuild (or
// call SetConfig) after a config reload so diagnostic rules and
// language priority reflect the new config's epoch.
func New(cfg *config.Config, gr *graph.Graph, reg *registry.Registry) *API {
	return &API{cfg: cfg, gr: gr, reg: reg}
}

// SetConfig installs a new active config, mirroring registry.SetConfig.
func (a *API) SetConfig(cfg *config.Config) { a.cfg = cfg }

// Usage is one call site referencing a namespace/key pair.
type Usage struct {
	FileID types.FileID
	Span   types.Span
}

// UsagesOf returns every known call site for namespace/key, for
// find-references.
func (a *API) UsagesOf(namespace, key string) []Usage {
	raw := a.gr.UsagesOf(namespace, key)
	out := make([]Usage, 0, len(raw))
	for _, u := range raw {
		out = append(out, Usage{FileID: u.FileID, Span: u.Span})
	}
	return out
}

// Definition is one translation file's value for a namespace/key pair,
// for go-to-definition.
type Definition struct {
	FileID    types.FileID
	Language  string
	ValueSpan types.Span
}

// DefinitionsOf returns every translation file's definition of
// namespace/key, ordered by language priority (primary languages first,
// then lexicographic, per spec.md §4.H).
func (a *API) DefinitionsOf(namespace, key string) []Definition {
	var out []Definition
	for _, tf := range a.gr.AllTranslations() {
		if tf.NamespaceTag != namespace {
			continue
		}
		v, ok := tf.FlattenedKeys[key]
		if !ok {
			continue
		}
		out = append(out, Definition{FileID: tf.FileID, Language: tf.LanguageTag, ValueSpan: v.ValueSpan})
	}
	sort.Slice(out, func(i, j int) bool { return a.languageLess(out[i].Language, out[j].Language) })
	return out
}

// MissingEntry is one usage whose key lacks a translation in at least
// one language the missing-translation rule requires.
type MissingEntry struct {
	Span             types.Span
	Key              string
	MissingLanguages []string
	// Suggestion names the closest other known key in the same namespace
	// by scope.Suggest's ranking (SPEC_FULL.md §4.H); no similarity
	// threshold applies, so it is nil only when the namespace defines no
	// other key.
	Suggestion *string
}

// Missing reports, for every resolvable usage in fileID, the languages
// (per the active RequiredLanguages/OptionalLanguages rule) that lack a
// definition. Ambiguous usages and usages with no literal key are
// excluded, per spec.md §7's Scope-ambiguous handling.
func (a *API) Missing(fileID types.FileID) []MissingEntry {
	if !a.cfg.MissingTranslation.Enabled {
		return nil
	}
	_, usages, ok := a.gr.FileScopesAndUsages(fileID)
	if !ok {
		return nil
	}
	allTF := a.gr.AllTranslations()

	var out []MissingEntry
	for _, u := range usages {
		if u.Ambiguous || u.ResolvedKey == "" {
			continue
		}
		known := languagesForNamespace(allTF, u.Namespace)
		required := a.requiredLanguageSet(known)

		var missingLangs []string
		for lang := range required {
			if !hasKeyForLanguage(allTF, u.Namespace, lang, u.ResolvedKey, u.PluralSuffix) {
				missingLangs = append(missingLangs, lang)
			}
		}
		if len(missingLangs) == 0 {
			continue
		}
		sort.Strings(missingLangs)
		out = append(out, MissingEntry{
			Span:             u.Span,
			Key:              u.ResolvedKey,
			MissingLanguages: missingLangs,
			Suggestion:       a.suggestKey(allTF, u.Namespace, u.ResolvedKey),
		})
	}
	return out
}

// requiredLanguageSet resolves the mutually-exclusive
// RequiredLanguages/OptionalLanguages rule (spec.md §6) against the set
// of languages actually present for a namespace: RequiredLanguages
// names the exact set to check; OptionalLanguages instead names the
// set to exempt from an implicit "every known language is required".
func (a *API) requiredLanguageSet(knownLanguages []string) map[string]bool {
	rule := a.cfg.MissingTranslation
	set := make(map[string]bool)

	if len(rule.RequiredLanguages) > 0 {
		for _, l := range rule.RequiredLanguages {
			set[l] = true
		}
		return set
	}

	optional := make(map[string]bool, len(rule.OptionalLanguages))
	for _, l := range rule.OptionalLanguages {
		optional[l] = true
	}
	for _, l := range knownLanguages {
		if !optional[l] {
			set[l] = true
		}
	}
	return set
}

// UnusedEntry is one translation key with no observed call site.
type UnusedEntry struct {
	Key     string
	KeySpan types.Span
	// Suggestion names the closest resolved key actually referenced in
	// the same namespace (e.g. the new name after a rename that left the
	// old key behind). No similarity threshold applies: it is nil only
	// when no key of the namespace is referenced at all.
	Suggestion *string
}

// Unused returns the keys in translation file fileID that no indexed
// usage references, excluding keys matched by an ignore_patterns glob.
func (a *API) Unused(fileID types.FileID) []UnusedEntry {
	if !a.cfg.UnusedTranslation.Enabled {
		return nil
	}
	tf, ok := a.gr.FileTranslation(fileID)
	if !ok {
		return nil
	}

	usedKeys := make([]string, 0)
	seen := make(map[string]bool)
	for _, u := range a.gr.AllUsages() {
		if u.Namespace == tf.NamespaceTag && u.ResolvedKey != "" && !seen[u.ResolvedKey] {
			seen[u.ResolvedKey] = true
			usedKeys = append(usedKeys, u.ResolvedKey)
		}
	}

	var out []UnusedEntry
	for key, v := range tf.FlattenedKeys {
		if a.keyIgnored(key) {
			continue
		}
		if len(a.gr.UsagesOf(tf.NamespaceTag, key)) > 0 {
			continue
		}
		var suggestion *string
		if candidates := scope.Suggest(key, usedKeys, 1); len(candidates) > 0 {
			s := candidates[0]
			suggestion = &s
		}
		out = append(out, UnusedEntry{Key: key, KeySpan: v.KeySpan, Suggestion: suggestion})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (a *API) keyIgnored(key string) bool {
	for _, p := range a.cfg.UnusedTranslation.IgnorePatterns {
		if ok, _ := doublestar.Match(p, key); ok {
			return true
		}
	}
	return false
}

// suggestKey finds the closest known key in namespace to a missing key,
// for the "did you mean" hint attached to Missing/Unused entries.
func (a *API) suggestKey(allTF []types.TranslationFile, namespace, key string) *string {
	seen := make(map[string]bool)
	var known []string
	for _, tf := range allTF {
		if tf.NamespaceTag != namespace {
			continue
		}
		for k := range tf.FlattenedKeys {
			if k != key && !seen[k] {
				seen[k] = true
				known = append(known, k)
			}
		}
	}
	candidates := scope.Suggest(key, known, 1)
	if len(candidates) == 0 {
		return nil
	}
	return &candidates[0]
}

// Decoration is one usage's inline editor decoration: the resolved
// value for a chosen language, cut to maxWidth runes plus an ellipsis
// when longer.
type Decoration struct {
	Span           types.Span
	TruncatedValue string
}

// Decorations returns one Decoration per resolvable usage in fileID.
// language, if non-nil, pins the displayed language; otherwise the
// usual language-priority order picks the first language with a value.
func (a *API) Decorations(fileID types.FileID, language *string, maxWidth int) []Decoration {
	_, usages, ok := a.gr.FileScopesAndUsages(fileID)
	if !ok {
		return nil
	}
	allTF := a.gr.AllTranslations()

	var out []Decoration
	for _, u := range usages {
		if u.Ambiguous || u.ResolvedKey == "" {
			continue
		}
		val, ok := a.bestValue(allTF, u.Namespace, u.ResolvedKey, language)
		if !ok {
			continue
		}
		out = append(out, Decoration{Span: u.Span, TruncatedValue: truncate(val, maxWidth)})
	}
	return out
}

// Completion is one candidate key offered at a completion position,
// with its value in every language it's defined for.
type Completion struct {
	Key               string
	PerLanguageValues map[string]string
}

// Completions returns every key defined in the namespace of the scope
// enclosing pos within fileID. Returns nil if pos falls outside any
// i18n-hook scope, or fileID hasn't been scanned yet.
func (a *API) Completions(fileID types.FileID, pos protocol.Position) []Completion {
	off, ok := a.reg.ToByteOffset(fileID, pos)
	if !ok {
		return nil
	}
	scopes, _, ok := a.gr.FileScopesAndUsages(fileID)
	if !ok {
		return nil
	}

	namespace, found := "", false
	for _, s := range scopes {
		if s.Contains(off) {
			namespace, found = s.Namespace, true
			break
		}
	}
	if !found {
		return nil
	}

	byKey := make(map[string]map[string]string)
	for _, tf := range a.gr.AllTranslations() {
		if tf.NamespaceTag != namespace {
			continue
		}
		for key, v := range tf.FlattenedKeys {
			vals, ok := byKey[key]
			if !ok {
				vals = make(map[string]string)
				byKey[key] = vals
			}
			vals[tf.LanguageTag] = v.Value
		}
	}

	out := make([]Completion, 0, len(byKey))
	for key, vals := range byKey {
		out = append(out, Completion{Key: key, PerLanguageValues: vals})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// HoverResult is the per-language value set shown for the key under the
// cursor.
type HoverResult struct {
	Key               string
	Namespace         string
	PerLanguageValues map[string]string
}

// Hover returns the translation values for the usage at pos within
// fileID, or nil if pos isn't inside a resolvable usage (including the
// cold-start case: a file not yet scanned returns nil, not an error).
func (a *API) Hover(fileID types.FileID, pos protocol.Position) *HoverResult {
	off, ok := a.reg.ToByteOffset(fileID, pos)
	if !ok {
		return nil
	}
	_, usages, ok := a.gr.FileScopesAndUsages(fileID)
	if !ok {
		return nil
	}

	for _, u := range usages {
		if u.Ambiguous || u.ResolvedKey == "" || off < u.Span.StartByte || off >= u.Span.EndByte {
			continue
		}
		vals := make(map[string]string)
		for _, tf := range a.gr.AllTranslations() {
			if tf.NamespaceTag != u.Namespace {
				continue
			}
			if v, ok := tf.FlattenedKeys[u.ResolvedKey]; ok {
				vals[tf.LanguageTag] = v.Value
			}
		}
		if len(vals) == 0 {
			return nil
		}
		return &HoverResult{Key: u.ResolvedKey, Namespace: u.Namespace, PerLanguageValues: vals}
	}
	return nil
}

func (a *API) bestValue(allTF []types.TranslationFile, namespace, key string, language *string) (string, bool) {
	if language != nil {
		for _, tf := range allTF {
			if tf.NamespaceTag == namespace && tf.LanguageTag == *language {
				if v, ok := tf.FlattenedKeys[key]; ok {
					return v.Value, true
				}
			}
		}
		return "", false
	}

	var candidates []types.TranslationFile
	for _, tf := range allTF {
		if tf.NamespaceTag != namespace {
			continue
		}
		if _, ok := tf.FlattenedKeys[key]; ok {
			candidates = append(candidates, tf)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Slice(candidates, func(i, j int) bool { return a.languageLess(candidates[i].LanguageTag, candidates[j].LanguageTag) })
	return candidates[0].FlattenedKeys[key].Value, true
}

// languageLess orders languages by primary-language rank first, then
// lexicographically, per spec.md §4.H's "absent filter" default order.
func (a *API) languageLess(x, y string) bool {
	rx, ry := a.languageRank(x), a.languageRank(y)
	if rx != ry {
		return rx < ry
	}
	return x < y
}

func (a *API) languageRank(lang string) int {
	for i, p := range a.cfg.PrimaryLanguages {
		if p == lang {
			return i
		}
	}
	return len(a.cfg.PrimaryLanguages) + 1
}

func languagesForNamespace(allTF []types.TranslationFile, namespace string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tf := range allTF {
		if tf.NamespaceTag == namespace && !seen[tf.LanguageTag] {
			seen[tf.LanguageTag] = true
			out = append(out, tf.LanguageTag)
		}
	}
	return out
}

// hasKeyForLanguage reports whether namespace/lang defines key, or --
// when pluralSuffixes is non-nil (the usage's call carried a
// count/plural option, spec.md §4.D step 4) -- any of key's suffixed
// plural variants (spec.md §8: "a usage is satisfied if any of its
// suffix variants exists").
func hasKeyForLanguage(allTF []types.TranslationFile, namespace, lang, key string, pluralSuffixes []types.PluralSuffix) bool {
	for _, tf := range allTF {
		if tf.NamespaceTag != namespace || tf.LanguageTag != lang {
			continue
		}
		if _, ok := tf.FlattenedKeys[key]; ok {
			return true
		}
		if len(pluralSuffixes) == 0 {
			return false
		}
		for _, cand := range scope.PluralCandidates(key) {
			if _, ok := tf.FlattenedKeys[cand]; ok {
				return true
			}
		}
		return false
	}
	return false
}

// truncate keeps the first maxWidth runes of a longer s and appends an
// ellipsis, so a truncated result is maxWidth+1 runes long. maxWidth <= 0
// disables truncation.
func truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxWidth {
		return s
	}
	return string(r[:maxWidth]) + "…"
}
