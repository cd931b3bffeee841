// Package parser is the parser cache (spec.md §4.B): one pooled
// tree-sitter parser per language kind, incremental re-parse against a
// prior tree when an edit range is known, and a JSON grammar used by
// the translation loader (Component E) for CST-preserving edits.
//
// Grounded on the teacher's internal/parser/parser_language_setup.go
// (language/query wiring pattern, including the documented go-tree-sitter
// typed-nil-error quirk) and internal/parser/parser.go's direct node
// API usage (StartByte/EndByte/Kind/ChildByFieldName). The teacher never
// threads an old tree into Parse; the incremental-edit path here is
// written against the go-tree-sitter API directly since spec.md §4.B
// requires it.
package parser

import (
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_json "github.com/tree-sitter/tree-sitter-json/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/standardbeagle/lci/internal/types"
)

// Edit describes a single text replacement, in the byte/point
// coordinates tree-sitter's Tree.Edit wants. Callers (the text-sync
// collaborator) compute this from an LSP didChange range; a nil Edit
// passed to Cache.Parse forces a fresh parse.
type Edit struct {
	StartByte  uint32
	OldEndByte uint32
	NewEndByte uint32

	StartPoint  tree_sitter.Point
	OldEndPoint tree_sitter.Point
	NewEndPoint tree_sitter.Point
}

func (e *Edit) inputEdit() tree_sitter.InputEdit {
	return tree_sitter.InputEdit{
		StartByte:      e.StartByte,
		OldEndByte:     e.OldEndByte,
		NewEndByte:     e.NewEndByte,
		StartPosition:  e.StartPoint,
		OldEndPosition: e.OldEndPoint,
		NewEndPosition: e.NewEndPoint,
	}
}

// langEntry pools a single tree-sitter parser per language, guarded by
// its own mutex. go-tree-sitter parsers are not goroutine-safe; the
// query engine (Component C) only ever touches the tree/content it is
// handed, never the parser itself, so a per-language lock (rather than
// a parser-per-call allocation) is enough to keep Parse serialized
// without blocking unrelated languages.
type langEntry struct {
	mu     sync.Mutex
	parser *tree_sitter.Parser
	lang   *tree_sitter.Language
}

// Cache owns one tree-sitter parser per language kind plus the JSON
// grammar, and the last-known tree per file so incremental edits can be
// applied against it.
type Cache struct {
	js   *langEntry
	ts   *langEntry
	json *langEntry

	treesMu sync.RWMutex
	trees   map[types.FileID]*tree_sitter.Tree
}

// NewCache builds the parser pool. JS and JSX share the JavaScript
// grammar (spec.md's two kinds differ only in how Component C classifies
// JSX-specific query captures); TS and TSX share the bundled
// TypeScript-with-JSX grammar variant, mirroring the teacher's
// LanguageTsx() / LanguageTypescript() split.
func NewCache() (*Cache, error) {
	jsEntry, err := newEntry(tree_sitter.NewLanguage(tree_sitter_javascript.Language()))
	if err != nil {
		return nil, err
	}
	tsEntry, err := newEntry(tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()))
	if err != nil {
		return nil, err
	}
	jsonEntry, err := newEntry(tree_sitter.NewLanguage(tree_sitter_json.Language()))
	if err != nil {
		return nil, err
	}
	return &Cache{
		js:    jsEntry,
		ts:    tsEntry,
		json:  jsonEntry,
		trees: make(map[types.FileID]*tree_sitter.Tree),
	}, nil
}

func newEntry(language *tree_sitter.Language) (*langEntry, error) {
	p := tree_sitter.NewParser()
	if err := p.SetLanguage(language); err != nil {
		return nil, err
	}
	return &langEntry{parser: p, lang: language}, nil
}

func (c *Cache) entryFor(lang types.LanguageKind) *langEntry {
	switch lang {
	case types.LangJS, types.LangJSX:
		return c.js
	case types.LangTS, types.LangTSX:
		return c.ts
	default:
		return nil
	}
}

// Parse parses content for fileID under the given language. If edit is
// non-nil and a prior tree for fileID exists, the prior tree is mutated
// with Tree.Edit and handed to Parser.Parse as the old tree, giving
// tree-sitter's incremental re-parse; otherwise a fresh parse runs.
// Re-parsing the same content from scratch (edit == nil) must always
// yield a tree whose node shapes match the incrementally-edited one --
// spec.md's idempotence invariant -- because both paths bottom out in
// the same Parser.Parse call.
func (c *Cache) Parse(fileID types.FileID, lang types.LanguageKind, content []byte, edit *Edit) *tree_sitter.Tree {
	entry := c.entryFor(lang)
	if entry == nil {
		return nil
	}

	c.treesMu.RLock()
	oldTree := c.trees[fileID]
	c.treesMu.RUnlock()

	entry.mu.Lock()
	var tree *tree_sitter.Tree
	if edit != nil && oldTree != nil {
		ie := edit.inputEdit()
		oldTree.Edit(&ie)
		tree = entry.parser.Parse(content, oldTree)
	} else {
		tree = entry.parser.Parse(content, nil)
	}
	entry.mu.Unlock()

	c.treesMu.Lock()
	if oldTree != nil && oldTree != tree {
		oldTree.Close()
	}
	c.trees[fileID] = tree
	c.treesMu.Unlock()

	return tree
}

// ParseJSON parses translation-file JSON content with the JSON grammar,
// independent of the per-file tree cache above: translation files are
// reparsed fresh on every edit rather than incrementally, since edits
// there come from the editing tools (Component H's editTranslation) in
// whole-file granularity.
func (c *Cache) ParseJSON(content []byte) *tree_sitter.Tree {
	c.json.mu.Lock()
	defer c.json.mu.Unlock()
	return c.json.parser.Parse(content, nil)
}

// Forget drops the cached tree for a file, releasing its tree-sitter
// resources. Called when a file is closed or removed from the
// workspace.
func (c *Cache) Forget(fileID types.FileID) {
	c.treesMu.Lock()
	defer c.treesMu.Unlock()
	if t, ok := c.trees[fileID]; ok {
		t.Close()
		delete(c.trees, fileID)
	}
}

// Tree returns the last tree parsed for fileID, if any.
func (c *Cache) Tree(fileID types.FileID) *tree_sitter.Tree {
	c.treesMu.RLock()
	defer c.treesMu.RUnlock()
	return c.trees[fileID]
}

// Close releases every pooled parser and cached tree.
func (c *Cache) Close() {
	c.treesMu.Lock()
	for id, t := range c.trees {
		t.Close()
		delete(c.trees, id)
	}
	c.treesMu.Unlock()

	for _, e := range []*langEntry{c.js, c.ts, c.json} {
		e.mu.Lock()
		e.parser.Close()
		e.mu.Unlock()
	}
}
