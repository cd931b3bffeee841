// Package scope implements the scope resolver (spec.md §4.D): turns raw
// query captures from internal/parser's query engine into lexical
// Scopes and resolved KeyUsages, without building a full symbol table --
// a scope is just the byte range of its enclosing function/block, per
// spec.md's "conservative scope" design note.
//
// Grounded on the teacher's internal/parser/parser.go ancestor-walk
// helpers (getParentNodeCached, node.Parent()) for finding an enclosing
// function/block, and internal/symbollinker's innermost-wins tie-break
// convention carried over from its scope/shadowing handling. Fuzzy
// "did you mean" suggestions and plural-suffix handling have no teacher
// precedent; they follow spec.md §4.D directly using libraries named in
// SPEC_FULL.md's domain stack (go-edlib, porter2).
package scope

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/surgebase/porter2"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	lciparser "github.com/standardbeagle/lci/internal/parser"
	"github.com/standardbeagle/lci/internal/types"
)

// scopeBoundaryKinds are the node kinds whose byte range becomes a
// Scope's extent: the nearest enclosing one of these, walking up from a
// hook call, is what spec.md calls the scope's "enclosing
// function/block byte range".
var scopeBoundaryKinds = map[string]bool{
	"function_declaration": true,
	"function_expression":  true,
	"arrow_function":       true,
	"generator_function":   true,
	"method_definition":    true,
	"statement_block":      true,
	"program":              true,
}

func enclosingBoundary(n tree_sitter.Node) tree_sitter.Node {
	cur := n.Parent()
	for !cur.IsNull() {
		if scopeBoundaryKinds[cur.Kind()] {
			return cur
		}
		cur = cur.Parent()
	}
	return n
}

// unquote strips the surrounding quote characters a string_fragment
// capture's sibling already excludes; kept defensive in case a capture
// ever lands on the full `string` node instead of its `string_fragment`.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '`' && s[len(s)-1] == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func flavourFromHookFn(fn string) types.LibraryFlavour {
	switch fn {
	case "useTranslation":
		return types.FlavourReactI18next
	case "useTranslations", "getTranslations", "getTranslator":
		return types.FlavourNextIntl
	default:
		return types.FlavourUnknown
	}
}

// Separators carries the config-resolved key/namespace separators the
// resolver needs; passing them explicitly (rather than internal/config
// import) keeps this package testable without constructing a full
// Config value.
type Separators struct {
	Key       string
	Namespace string // "" disables namespace-in-key syntax entirely
	// DefaultNamespace is spec.md §4.D step 2/3's fallback: a bare
	// translation-function call with no enclosing useTranslation scope
	// still resolves against this namespace, as if a scope had
	// synthesised it, instead of being marked Scope-ambiguous; so does a
	// call inside a scope whose hook named no namespace (useTranslation()).
	DefaultNamespace string
}

// Resolve walks a file's query matches and produces its scopes and key
// usages. content must be the same byte slice the tree was parsed from.
func Resolve(fileID types.FileID, content []byte, matches [][]lciparser.Match, sep Separators) ([]types.Scope, []types.KeyUsage) {
	scopes := buildScopes(fileID, content, matches)
	usages := resolveUsages(fileID, content, matches, scopes, sep)
	return scopes, usages
}

func buildScopes(fileID types.FileID, content []byte, matches [][]lciparser.Match) []types.Scope {
	var scopes []types.Scope

	for _, row := range matches {
		var hookCall, binding, optsArg tree_sitter.Node
		var nsArg tree_sitter.Node
		var hookFn string
		haveHook := false

		var transScope, transParam, transKeyPrefix tree_sitter.Node
		haveTrans := false

		for _, m := range row {
			switch m.Capture {
			case "hook.call":
				hookCall = m.Node
				haveHook = true
			case "hook.binding":
				binding = m.Node
			case "hook.ns_arg":
				nsArg = m.Node
			case "hook.opts":
				optsArg = m.Node
			case "hook.fn":
				hookFn = lciparser.Text(m.Node, content)
			case "trans.scope":
				transScope = m.Node
				haveTrans = true
			case "trans.param":
				transParam = m.Node
			case "trans.key_prefix":
				transKeyPrefix = m.Node
			}
		}

		if haveTrans {
			// <Translation keyPrefix="...">{t => ...}</Translation>:
			// the `{...}` JSX expression holding the render-prop arrow
			// function is the scope's extent, and the arrow function's
			// bare parameter is the local `t` binding.
			localName := "t"
			if transParam.Kind() == "identifier" {
				localName = lciparser.Text(transParam, content)
			}
			keyPrefix := ""
			if !transKeyPrefix.IsNull() {
				keyPrefix = lciparser.Text(transKeyPrefix, content)
			}
			scopes = append(scopes, types.Scope{
				FileID:    fileID,
				StartByte: transScope.StartByte(),
				EndByte:   transScope.EndByte(),
				LocalName: localName,
				KeyPrefix: keyPrefix,
				Flavour:   types.FlavourReactI18next,
			})
			continue
		}

		if !haveHook {
			continue
		}

		boundary := enclosingBoundary(hookCall)
		localName := "t"
		if binding.Kind() == "identifier" {
			localName = lciparser.Text(binding, content)
		} else if binding.Kind() == "object_pattern" {
			// destructured `const { t } = useTranslation(...)`: default
			// local name stays "t" unless renamed, which spec.md treats
			// as an edge case outside the conservative scope model.
			localName = "t"
		}

		namespace, fallback := "", []string(nil)
		if !nsArg.IsNull() {
			ns, multi := extractNamespaceArg(nsArg, content)
			if multi != nil {
				fallback = multi
				if len(multi) > 0 {
					namespace = multi[0]
				}
			} else {
				namespace = ns
			}
		}

		keyPrefix := ""
		if kp, ok := stringOption(optsArg, content, "keyPrefix"); ok {
			keyPrefix = kp
		}

		scopes = append(scopes, types.Scope{
			FileID:     fileID,
			StartByte:  boundary.StartByte(),
			EndByte:    boundary.EndByte(),
			LocalName:  localName,
			Namespace:  namespace,
			FallbackNS: fallback,
			KeyPrefix:  keyPrefix,
			Flavour:    flavourFromHookFn(hookFn),
		})
	}

	sort.Slice(scopes, func(i, j int) bool { return scopes[i].Width() < scopes[j].Width() })
	return scopes
}

// stringOption reads a string-valued property named prop from a JS
// object-literal node -- a hook's options argument
// (useTranslation("ns", {keyPrefix: "buttons"})) or an in-call options
// object (t("key", {ns: "errors"})) share the same shape. ok is false
// when obj isn't an object literal or has no such property with a
// string value.
func stringOption(obj tree_sitter.Node, content []byte, prop string) (string, bool) {
	if obj.IsNull() || obj.Kind() != "object" {
		return "", false
	}
	for i := uint(0); i < obj.NamedChildCount(); i++ {
		pair := obj.NamedChild(i)
		if pair.Kind() != "pair" {
			continue
		}
		keyNode := pair.ChildByFieldName("key")
		if keyNode.IsNull() || keyNode.Kind() != "property_identifier" || lciparser.Text(keyNode, content) != prop {
			continue
		}
		valNode := pair.ChildByFieldName("value")
		if valNode.IsNull() || valNode.Kind() != "string" {
			continue
		}
		for j := uint(0); j < valNode.ChildCount(); j++ {
			c := valNode.Child(j)
			if c.Kind() == "string_fragment" {
				return lciparser.Text(c, content), true
			}
		}
	}
	return "", false
}

// hasOption reports whether an object-literal node defines prop at all
// (e.g. {count: 5}), regardless of the property's value kind -- used
// for the plural/count option, whose value is never read, only its
// presence.
func hasOption(obj tree_sitter.Node, content []byte, prop string) bool {
	if obj.IsNull() || obj.Kind() != "object" {
		return false
	}
	for i := uint(0); i < obj.NamedChildCount(); i++ {
		pair := obj.NamedChild(i)
		if pair.Kind() != "pair" {
			continue
		}
		keyNode := pair.ChildByFieldName("key")
		if !keyNode.IsNull() && keyNode.Kind() == "property_identifier" && lciparser.Text(keyNode, content) == prop {
			return true
		}
	}
	return false
}

// extractNamespaceArg reads useTranslation's first argument: either a
// single-quoted namespace string, or an array literal
// ["common","errors"] giving a primary namespace plus fallbacks
// (spec.md §4.D tie-break rule).
func extractNamespaceArg(arg tree_sitter.Node, content []byte) (string, []string) {
	switch arg.Kind() {
	case "string":
		for i := uint(0); i < arg.ChildCount(); i++ {
			c := arg.Child(i)
			if c.Kind() == "string_fragment" {
				return lciparser.Text(c, content), nil
			}
		}
	case "array":
		var all []string
		for i := uint(0); i < arg.ChildCount(); i++ {
			el := arg.Child(i)
			if el.Kind() != "string" {
				continue
			}
			for j := uint(0); j < el.ChildCount(); j++ {
				c := el.Child(j)
				if c.Kind() == "string_fragment" {
					all = append(all, lciparser.Text(c, content))
				}
			}
		}
		if len(all) > 0 {
			return all[0], all
		}
	}
	return "", nil
}

// innermostScope returns the narrowest scope binding localName whose
// range contains b, or nil if no scope matches (spec.md "Innermost
// scope wins").
func innermostScope(scopes []types.Scope, localName string, b uint32) *types.Scope {
	for i := range scopes {
		s := &scopes[i]
		if s.LocalName == localName && s.Contains(b) {
			return s
		}
	}
	return nil
}

func resolveUsages(fileID types.FileID, content []byte, matches [][]lciparser.Match, scopes []types.Scope, sep Separators) []types.KeyUsage {
	var usages []types.KeyUsage

	for _, row := range matches {
		var callExpr, keyNode, fn, argsNode tree_sitter.Node
		haveCall := false
		for _, m := range row {
			switch m.Capture {
			case "call.expr":
				callExpr = m.Node
				haveCall = true
			case "call.key":
				keyNode = m.Node
			case "call.fn":
				fn = m.Node
			case "call.args":
				argsNode = m.Node
			}
		}
		if !haveCall || keyNode.IsNull() {
			continue
		}

		localName := "t"
		if !fn.IsNull() {
			localName = lciparser.Text(fn, content)
		}

		rawKey := lciparser.Text(keyNode, content)
		s := innermostScope(scopes, localName, callExpr.StartByte())

		// explicit_namespace: an in-call {ns: "..."} option (spec.md
		// §4.D step 3/tie-break -- "in-call wins" over the scope's own
		// namespace).
		callNS, hasCallNS := stringOption(argsNode, content, "ns")
		hasCount := hasOption(argsNode, content, "count")

		key := rawKey
		namespace := ""
		ambiguous := false
		flavour := types.FlavourUnknown
		var fallback []string
		var pluralSuffix []types.PluralSuffix

		if sep.Namespace != "" && strings.Contains(rawKey, sep.Namespace) {
			parts := strings.SplitN(rawKey, sep.Namespace, 2)
			namespace, key = parts[0], parts[1]
			if s != nil {
				flavour = s.Flavour
			}
		} else {
			switch {
			case hasCallNS:
				namespace = callNS
				if s != nil {
					flavour = s.Flavour
				}
			case s != nil:
				namespace = s.Namespace
				fallback = s.FallbackNS
				flavour = s.Flavour
				if namespace == "" {
					namespace = sep.DefaultNamespace
				}
			case sep.DefaultNamespace != "":
				// spec.md §4.D step 2: a bare call with no enclosing
				// scope still resolves when a default namespace is
				// configured, as if a scope had synthesised it.
				namespace = sep.DefaultNamespace
			default:
				// No enclosing useTranslation scope, no in-call
				// namespace, and no configured default: the call can
				// still power completion, but namespace resolution
				// failed (spec.md §7 Scope-ambiguous).
				ambiguous = true
			}
		}

		// The scope's key_prefix always prepends, regardless of which
		// rule above supplied the namespace (spec.md §4.D step 3(b) and
		// §8 scenario 3's in-call-ns example).
		if s != nil && s.KeyPrefix != "" {
			key = s.KeyPrefix + sep.Key + key
		}
		if hasCount {
			pluralSuffix = types.AllPluralSuffixes
		}

		usages = append(usages, types.KeyUsage{
			FileID:       fileID,
			Span:         lciparser.Span(callExpr),
			ResolvedKey:  key,
			Namespace:    namespace,
			Flavour:      flavour,
			PluralSuffix: pluralSuffix,
			Ambiguous:    ambiguous,
			FallbackNS:   fallback,
		})
	}

	return usages
}

// Suggest returns the closest known keys to an unresolved key, ranked by
// Jaro-Winkler similarity over the Porter2-stemmed key (spec.md §4.D
// "did you mean"). known is typically the set of flattened keys for the
// usage's resolved namespace; limit bounds the returned slice.
func Suggest(key string, known []string, limit int) []string {
	if len(known) == 0 {
		return nil
	}
	stemmedKey := porter2.Stem(strings.ToLower(key))

	type scored struct {
		key   string
		score float32
	}
	var ranked []scored
	for _, k := range known {
		stemmedK := porter2.Stem(strings.ToLower(k))
		sim, err := edlib.StringsSimilarity(stemmedKey, stemmedK, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		ranked = append(ranked, scored{key: k, score: sim})
	}

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if limit > len(ranked) {
		limit = len(ranked)
	}
	out := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, ranked[i].key)
	}
	return out
}

// PluralCandidates returns the suffixed key variants to check when a
// usage carries a count/plural option (spec.md §4.D step 4). Plural
// matching only activates in this caller-supplied-count case; a key
// that exists solely in suffixed form but is looked up without a count
// option resolves as an ordinary missing-key diagnostic (see
// SPEC_FULL.md §9, resolved Open Question).
func PluralCandidates(baseKey string) []string {
	out := make([]string, 0, len(types.AllPluralSuffixes))
	for _, suf := range types.AllPluralSuffixes {
		out = append(out, baseKey+"_"+string(suf))
	}
	return out
}
