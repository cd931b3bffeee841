package parser

import (
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"

	"github.com/standardbeagle/lci/internal/types"
)

// i18nQuerySrc is the declarative AST pattern set for Component C: every
// call shape a scope resolver needs to see. Grounded on the teacher's
// parser_language_setup.go query strings (same NewQuery/CaptureNames/
// QueryCursor.Matches usage), rewritten for i18n call shapes instead of
// symbol declarations. JS and TSX share one query since the capture
// names only reference nodes common to both grammars (call_expression,
// string literals, JSX elements); TSX additionally matches JSX nodes
// that the plain JS grammar also defines, so one query string serves
// both pools.
const i18nQuerySrc = `
; useTranslation("ns") / useTranslation("ns", {keyPrefix}) / useTranslations("ns")
(variable_declarator
  name: (object_pattern) @hook.binding
  value: (call_expression
    function: (identifier) @hook.fn
    arguments: (arguments . (_)? @hook.ns_arg (_)? @hook.opts)) @hook.call)

(variable_declarator
  name: (identifier) @hook.binding
  value: (call_expression
    function: (identifier) @hook.fn
    arguments: (arguments . (_)? @hook.ns_arg (_)? @hook.opts)) @hook.call)

; direct call: t("key"), t("key", { count }), t("key", { ns }), i18n.t("key")
(call_expression
  function: (identifier) @call.fn
  arguments: (arguments
    .
    (string (string_fragment) @call.key)
    (_)? @call.args)) @call.expr

(call_expression
  function: (member_expression
    property: (property_identifier) @call.fn)
  arguments: (arguments
    .
    (string (string_fragment) @call.key)
    (_)? @call.args)) @call.expr

; <Trans i18nKey="key" ns="namespace">...</Trans>
(jsx_opening_element
  name: (identifier) @jsx.name
  (jsx_attribute
    (property_identifier) @jsx.attr_name
    (#eq? @jsx.attr_name "i18nKey")
    (string (string_fragment) @jsx.key))) @jsx.open

(jsx_self_closing_element
  name: (identifier) @jsx.name
  (jsx_attribute
    (property_identifier) @jsx.attr_name
    (#eq? @jsx.attr_name "i18nKey")
    (string (string_fragment) @jsx.key))) @jsx.open

; <Translation keyPrefix="buttons">{t => ...}</Translation> render-prop
(jsx_element
  (jsx_opening_element
    name: (identifier) @trans.name
    (#eq? @trans.name "Translation")
    (jsx_attribute
      (property_identifier) @trans.attr_name
      (#eq? @trans.attr_name "keyPrefix")
      (string (string_fragment) @trans.key_prefix))?)
  (jsx_expression
    (arrow_function
      (identifier) @trans.param)) @trans.scope) @trans.element
`

// Query holds the compiled i18n query plus the capture-name index, per
// spec.md's requirement that capture lookups never re-walk the capture
// name slice on every match.
type Query struct {
	q       *tree_sitter.Query
	byIndex []string
}

var (
	engineOnce sync.Once
	engineErr  error
	jsQuery    *Query
)

// Engine returns the shared query compiled against the JavaScript
// grammar. A distinct grammar instance from the parser Cache is used
// here because tree-sitter queries are bound to the Language they were
// compiled against, not to a parse tree; the byte ranges a match
// reports are still relative to whatever tree the caller ran the query
// on, so the same Query works against JS, JSX, TS and TSX trees as long
// as those grammars define the referenced node kinds (they do, since
// TypeScript's grammar is a superset of JavaScript's for these shapes).
func Engine() (*Query, error) {
	engineOnce.Do(func() {
		language := tree_sitter.NewLanguage(tree_sitter_javascript.Language())
		q, err := tree_sitter.NewQuery(language, i18nQuerySrc)
		if q == nil {
			engineErr = err
			return
		}
		jsQuery = &Query{q: q, byIndex: q.CaptureNames()}
	})
	return jsQuery, engineErr
}

// Match is one captured node from a single query match, resolved to a
// human capture name.
type Match struct {
	Capture string
	Node    tree_sitter.Node
}

// Run executes the query against tree/content and returns each match as
// a slice of named captures. Grounded on the teacher's capture-iteration
// loop in internal/parser/parser.go (NewQueryCursor, Matches, Next until
// nil, CaptureNames indexing).
func (q *Query) Run(tree *tree_sitter.Tree, content []byte) [][]Match {
	if tree == nil {
		return nil
	}
	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()

	var out [][]Match
	matches := qc.Matches(q.q, tree.RootNode(), content)
	for {
		m := matches.Next()
		if m == nil {
			break
		}
		row := make([]Match, 0, len(m.Captures))
		for _, c := range m.Captures {
			name := ""
			if int(c.Index) < len(q.byIndex) {
				name = q.byIndex[c.Index]
			}
			row = append(row, Match{Capture: name, Node: c.Node})
		}
		out = append(out, row)
	}
	return out
}

// Text re-slices content for a captured node's byte range.
func Text(n tree_sitter.Node, content []byte) string {
	return string(content[n.StartByte():n.EndByte()])
}

// Span converts a node's byte range into a types.Span. The Range field
// is left zero; the file registry's ToSpan (Component A) can fill it in
// from its line-offset table, which is the single place spec.md
// designates as authoritative for byte<->position conversion.
func Span(n tree_sitter.Node) types.Span {
	return types.Span{StartByte: n.StartByte(), EndByte: n.EndByte()}
}
