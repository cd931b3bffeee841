// Package mcpserver is the wire surface spec.md §6 calls the "exposed to
// LSP layer" operations: it publishes the Component H query API and the
// i18n.* custom commands as MCP tools, since the LSP transport itself is
// an explicit non-goal (spec.md §1). The core packages this wraps
// (internal/query, internal/indexer) have no wire-format opinion of
// their own -- this package is the only place JSON-RPC, jsonschema, and
// the MCP SDK's types appear.
//
// Grounded on the teacher's internal/mcp/server.go tool-registration
// shape (mcp.NewServer, Server.AddTool with a *jsonschema.Schema input
// schema, stdio transport via Run), repurposed from "codebase
// intelligence tools" to "i18n commands".
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/standardbeagle/lci/internal/config"
	"github.com/standardbeagle/lci/internal/debug"
	"github.com/standardbeagle/lci/internal/indexer"
	"github.com/standardbeagle/lci/internal/query"
	"github.com/standardbeagle/lci/internal/translation"
	"github.com/standardbeagle/lci/internal/types"
)

// Server owns the MCP tool registration plus the small piece of
// administrative state spec.md §6 asks for outside the pure query API:
// the "current language" a client has pinned for decoration/hover
// rendering.
type Server struct {
	ix  *indexer.Indexer
	api *query.API
	cfg *config.Config
	srv *mcp.Server

	mu              sync.Mutex
	currentLanguage *string

	editVersion int64
}

// New wires a Server over an already-constructed indexer and its active
// config. Call Run to start serving over stdio.
func New(ix *indexer.Indexer, cfg *config.Config) *Server {
	s := &Server{
		ix:  ix,
		api: query.New(cfg, ix.Graph(), ix.Registry()),
		cfg: cfg,
	}
	s.srv = mcp.NewServer(&mcp.Implementation{
		Name:    "jsils-mcp-server",
		Version: "0.1.0",
	}, nil)
	s.registerTools()
	return s
}

// Run serves the registered tools over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	debug.SetMCPMode(true)
	return s.srv.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.srv.AddTool(&mcp.Tool{
		Name:        "usagesOf",
		Description: "Find every call site referencing a translation key, for find-references.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"namespace": {Type: "string"},
				"key":       {Type: "string"},
			},
			Required: []string{"key"},
		},
	}, s.handleUsagesOf)

	s.srv.AddTool(&mcp.Tool{
		Name:        "definitionsOf",
		Description: "Find every translation file's definition of a key, for go-to-definition.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"namespace": {Type: "string"},
				"key":       {Type: "string"},
			},
			Required: []string{"key"},
		},
	}, s.handleDefinitionsOf)

	s.srv.AddTool(&mcp.Tool{
		Name:        "missing",
		Description: "List usages in a source file missing a translation in a required language.",
		InputSchema: uriOnlySchema(),
	}, s.handleMissing)

	s.srv.AddTool(&mcp.Tool{
		Name:        "unused",
		Description: "List keys in a translation file no usage references.",
		InputSchema: uriOnlySchema(),
	}, s.handleUnused)

	s.srv.AddTool(&mcp.Tool{
		Name:        "i18n.getDecorations",
		Description: "Return inline decoration spans and truncated values for a source file.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"uri":      {Type: "string"},
				"language": {Type: "string"},
				"maxWidth": {Type: "integer"},
			},
			Required: []string{"uri"},
		},
	}, s.handleGetDecorations)

	s.srv.AddTool(&mcp.Tool{
		Name:        "i18n.getKeyAtPosition",
		Description: "Resolve the translation key (if any) under a cursor position.",
		InputSchema: positionSchema(),
	}, s.handleGetKeyAtPosition)

	s.srv.AddTool(&mcp.Tool{
		Name:        "i18n.getTranslationValue",
		Description: "Look up the value of a key in a specific language.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"lang": {Type: "string"},
				"key":  {Type: "string"},
			},
			Required: []string{"lang", "key"},
		},
	}, s.handleGetTranslationValue)

	s.srv.AddTool(&mcp.Tool{
		Name:        "i18n.editTranslation",
		Description: "Insert or update a key's value in the translation file for a language.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"lang":  {Type: "string"},
				"key":   {Type: "string"},
				"value": {Type: "string"},
			},
			Required: []string{"lang", "key", "value"},
		},
	}, s.handleEditTranslation)

	s.srv.AddTool(&mcp.Tool{
		Name:        "i18n.deleteUnusedKeys",
		Description: "Delete every key flagged unused in the translation file identified by uri.",
		InputSchema: uriOnlySchema(),
	}, s.handleDeleteUnusedKeys)

	s.srv.AddTool(&mcp.Tool{
		Name:        "i18n.setCurrentLanguage",
		Description: "Pin the language used to resolve single-language displays (decorations, hover). Omit language to clear.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"language": {Type: "string"},
			},
		},
	}, s.handleSetCurrentLanguage)

	s.srv.AddTool(&mcp.Tool{
		Name:        "i18n.getCurrentLanguage",
		Description: "Return the currently pinned language, if any.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleGetCurrentLanguage)

	s.srv.AddTool(&mcp.Tool{
		Name:        "i18n.getAvailableLanguages",
		Description: "List every language tag observed across indexed translation files.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleGetAvailableLanguages)
}

func uriOnlySchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{"uri": {Type: "string"}},
		Required:   []string{"uri"},
	}
}

func positionSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"uri": {Type: "string"},
			"position": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"line":      {Type: "integer"},
					"character": {Type: "integer"},
				},
				Required: []string{"line", "character"},
			},
		},
		Required: []string{"uri", "position"},
	}
}

// fileIDFromURI resolves a file:// URI (or bare path) to its registered
// FileID. A file that hasn't been scanned yet -- the cold-start case --
// returns ok=false, which every handler below turns into an empty
// result rather than an error (spec.md §4.H: "Missing files are treated
// as empty").
func (s *Server) fileIDFromURI(raw string) (types.FileID, bool) {
	path := raw
	if u, err := uri.Parse(raw); err == nil {
		if fn := u.Filename(); fn != "" {
			path = fn
		}
	}
	return s.ix.Registry().Lookup(path)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(b)}}}, nil
}

func errResult(err error) (*mcp.CallToolResult, error) {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}, nil
}

type namespaceKeyParams struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
}

func (s *Server) handleUsagesOf(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p namespaceKeyParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errResult(err)
	}
	return jsonResult(s.api.UsagesOf(p.Namespace, p.Key))
}

func (s *Server) handleDefinitionsOf(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p namespaceKeyParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errResult(err)
	}
	return jsonResult(s.api.DefinitionsOf(p.Namespace, p.Key))
}

type uriParams struct {
	URI string `json:"uri"`
}

func (s *Server) handleMissing(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p uriParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errResult(err)
	}
	id, ok := s.fileIDFromURI(p.URI)
	if !ok {
		return jsonResult([]query.MissingEntry{})
	}
	return jsonResult(s.api.Missing(id))
}

func (s *Server) handleUnused(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p uriParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errResult(err)
	}
	id, ok := s.fileIDFromURI(p.URI)
	if !ok {
		return jsonResult([]query.UnusedEntry{})
	}
	return jsonResult(s.api.Unused(id))
}

type decorationsParams struct {
	URI      string  `json:"uri"`
	Language *string `json:"language,omitempty"`
	MaxWidth int     `json:"maxWidth,omitempty"`
}

func (s *Server) handleGetDecorations(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p decorationsParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errResult(err)
	}
	id, ok := s.fileIDFromURI(p.URI)
	if !ok {
		return jsonResult([]query.Decoration{})
	}
	lang := p.Language
	if lang == nil {
		lang = s.getCurrentLanguage()
	}
	return jsonResult(s.api.Decorations(id, lang, p.MaxWidth))
}

type positionParams struct {
	URI      string            `json:"uri"`
	Position protocol.Position `json:"position"`
}

type keyAtPositionResult struct {
	Key        string     `json:"key"`
	Namespace  string     `json:"namespace"`
	Span       types.Span `json:"span"`
	Resolvable bool       `json:"resolvable"`
}

func (s *Server) handleGetKeyAtPosition(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p positionParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errResult(err)
	}
	id, ok := s.fileIDFromURI(p.URI)
	if !ok {
		return jsonResult(keyAtPositionResult{})
	}
	off, ok := s.ix.Registry().ToByteOffset(id, p.Position)
	if !ok {
		return jsonResult(keyAtPositionResult{})
	}
	_, usages, ok := s.ix.Graph().FileScopesAndUsages(id)
	if !ok {
		return jsonResult(keyAtPositionResult{})
	}
	for _, u := range usages {
		if off < u.Span.StartByte || off >= u.Span.EndByte {
			continue
		}
		return jsonResult(keyAtPositionResult{
			Key:        u.ResolvedKey,
			Namespace:  u.Namespace,
			Span:       u.Span,
			Resolvable: !u.Ambiguous && u.ResolvedKey != "",
		})
	}
	return jsonResult(keyAtPositionResult{})
}

type langKeyParams struct {
	Lang string `json:"lang"`
	Key  string `json:"key"`
}

func (s *Server) handleGetTranslationValue(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p langKeyParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errResult(err)
	}
	for _, tf := range s.ix.Graph().AllTranslations() {
		if tf.LanguageTag != p.Lang {
			continue
		}
		if v, ok := tf.FlattenedKeys[p.Key]; ok {
			return jsonResult(map[string]string{"value": v.Value})
		}
	}
	return jsonResult(map[string]interface{}{"value": nil})
}

type editTranslationParams struct {
	Lang  string `json:"lang"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// handleEditTranslation implements i18n.editTranslation (spec.md §6):
// find the translation file for Lang that already owns Key, or -- if
// none does -- the first translation file for Lang, splice the new
// value in via Component E's CST-preserving SetKey, write it back to
// disk, and feed the new bytes to the indexer as a DidChange so the
// graph picks up the edit immediately instead of waiting for the
// watcher's disk-echo debounce.
func (s *Server) handleEditTranslation(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p editTranslationParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errResult(err)
	}

	target, ok := s.pickTranslationFile(p.Lang, p.Key)
	if !ok {
		return errResult(fmt.Errorf("no translation file found for language %q", p.Lang))
	}

	content, _, _, ok := s.ix.Registry().Content(target.FileID)
	if !ok {
		return errResult(fmt.Errorf("translation file %s has no tracked content", target.Path))
	}

	newContent := translation.SetKey(content, target, p.Key, p.Value)
	if err := os.WriteFile(target.Path, newContent, 0o644); err != nil {
		return errResult(fmt.Errorf("write %s: %w", target.Path, err))
	}
	s.ix.DidChange(target.Path, newContent, s.nextEditVersion())
	return jsonResult(map[string]bool{"ok": true})
}

// handleDeleteUnusedKeys implements i18n.deleteUnusedKeys (spec.md §6):
// every key Component H's Unused reports for the translation file named
// by uri is spliced out. All spans come from the file as last loaded, so
// the deletions run from the last pair in the file to the first: each
// one only moves bytes after the spans still to be deleted. deleted
// lists the keys in Unused's order.
func (s *Server) handleDeleteUnusedKeys(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p uriParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errResult(err)
	}
	id, ok := s.fileIDFromURI(p.URI)
	if !ok {
		return jsonResult(map[string]interface{}{"deleted": []string{}})
	}
	tf, ok := s.ix.Graph().FileTranslation(id)
	if !ok {
		return jsonResult(map[string]interface{}{"deleted": []string{}})
	}
	content, _, _, ok := s.ix.Registry().Content(id)
	if !ok {
		return jsonResult(map[string]interface{}{"deleted": []string{}})
	}

	unused := s.api.Unused(id)
	deleted := make([]string, 0, len(unused))
	for _, entry := range unused {
		deleted = append(deleted, entry.Key)
	}
	sort.Slice(unused, func(i, j int) bool { return unused[i].KeySpan.StartByte > unused[j].KeySpan.StartByte })
	for _, entry := range unused {
		content = translation.DeleteKey(content, tf, entry.Key)
	}
	if len(deleted) == 0 {
		return jsonResult(map[string]interface{}{"deleted": deleted})
	}
	if err := os.WriteFile(tf.Path, content, 0o644); err != nil {
		return errResult(fmt.Errorf("write %s: %w", tf.Path, err))
	}
	s.ix.DidChange(tf.Path, content, s.nextEditVersion())
	return jsonResult(map[string]interface{}{"deleted": deleted})
}

// pickTranslationFile finds the translation file editTranslation should
// target: the one already defining key in lang, or else the first
// translation file indexed for lang (a brand-new key lands in whichever
// namespace file the workspace happens to load first for that
// language). key is matched literally against each file's flattened
// keys; a namespace prefix inside key does not select a namespace file.
func (s *Server) pickTranslationFile(lang, key string) (types.TranslationFile, bool) {
	var fallback *types.TranslationFile
	for _, tf := range s.ix.Graph().AllTranslations() {
		if tf.LanguageTag != lang {
			continue
		}
		tf := tf
		if _, ok := tf.FlattenedKeys[key]; ok {
			return tf, true
		}
		if fallback == nil {
			fallback = &tf
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return types.TranslationFile{}, false
}

// nextEditVersion returns a strictly increasing version number for an
// MCP-driven translation-file edit. Any value >= 1 marks the file as
// editor-tracked in the registry, so a later disk echo of this same
// write is a no-op rather than a stale overwrite (spec.md's "didChange
// wins" rule, reused here for translation-file commands).
func (s *Server) nextEditVersion() int {
	return int(atomic.AddInt64(&s.editVersion, 1))
}

type setCurrentLanguageParams struct {
	Language *string `json:"language,omitempty"`
}

func (s *Server) handleSetCurrentLanguage(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p setCurrentLanguageParams
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
			return errResult(err)
		}
	}
	s.mu.Lock()
	s.currentLanguage = p.Language
	s.mu.Unlock()
	return jsonResult(map[string]bool{"ok": true})
}

func (s *Server) handleGetCurrentLanguage(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]interface{}{"language": s.getCurrentLanguage()})
}

func (s *Server) getCurrentLanguage() *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLanguage
}

func (s *Server) handleGetAvailableLanguages(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seen := make(map[string]bool)
	var langs []string
	for _, tf := range s.ix.Graph().AllTranslations() {
		if !seen[tf.LanguageTag] {
			seen[tf.LanguageTag] = true
			langs = append(langs, tf.LanguageTag)
		}
	}
	sort.Strings(langs)
	return jsonResult(map[string][]string{"languages": langs})
}
