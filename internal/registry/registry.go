// Package registry is the file registry (spec.md §4.A): path<->FileID
// identity, language/class classification from the active config's glob
// patterns, and the line-offset table every byte<->Position conversion
// in the rest of the system goes through.
//
// Grounded on the teacher's internal/symbollinker/linker_engine.go
// (GetOrCreateFileID/path-registry pattern, monotone counter under a
// single mutex) and internal/core/file_content_store.go
// (computeLineOffsets, FastHash via xxhash). Glob classification follows
// internal/indexing/pipeline_types.go's shouldExcludeFast/
// shouldIncludeFast doublestar.Match usage.
package registry

import (
	"path/filepath"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
	"go.lsp.dev/protocol"

	"github.com/standardbeagle/lci/internal/config"
	"github.com/standardbeagle/lci/internal/types"
)

// entry is the registry's per-file record. SetContent overwrites its
// content, line-offset table, hash and version in place under the
// registry's write lock; accessors copy fields out under the read lock,
// so no caller ever holds a reference into an entry.
type entry struct {
	fileID      types.FileID
	path        string
	class       types.FileClass
	language    types.LanguageKind
	content     []byte
	lineOffsets []uint32
	hash        uint64
	version     int
}

// Registry assigns and tracks FileIDs. Registration is monotone: once a
// path has a FileID, that FileID is never reused, even if the path is
// later deleted and re-created (spec.md's registry invariant).
type Registry struct {
	mu sync.RWMutex

	nextID types.FileID
	byPath map[string]types.FileID
	byID   map[types.FileID]*entry
	cfg    *config.Config
}

// New builds an empty registry bound to cfg's glob patterns. A file's
// class is computed once, when GetOrCreate first registers its path,
// and is not recomputed afterwards.
func New(cfg *config.Config) *Registry {
	return &Registry{
		nextID: types.InvalidFileID + 1,
		byPath: make(map[string]types.FileID),
		byID:   make(map[types.FileID]*entry),
		cfg:    cfg,
	}
}

// SetConfig installs a new active config. Existing FileIDs and their
// classes are unaffected; only paths registered afterwards are
// classified with the new patterns.
func (r *Registry) SetConfig(cfg *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
}

// GetOrCreate returns the FileID for path, assigning a new one if this
// is the first time path has been seen. path should already be
// absolute (the workspace indexer normalizes before calling in).
func (r *Registry) GetOrCreate(path string) types.FileID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byPath[path]; ok {
		return id
	}

	id := r.nextID
	r.nextID++
	r.byPath[path] = id
	r.byID[id] = &entry{fileID: id, path: path, class: r.classify(path)}
	return id
}

// Lookup returns the FileID already assigned to path, if any.
func (r *Registry) Lookup(path string) (types.FileID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPath[path]
	return id, ok
}

// Path returns the path a FileID was registered under.
func (r *Registry) Path(id types.FileID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return "", false
	}
	return e.path, true
}

// Class returns a file's classification (source/translation/config/ignored).
func (r *Registry) Class(id types.FileID) types.FileClass {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return types.ClassIgnored
	}
	return e.class
}

// SetContent replaces a file's content, recomputing its line-offset
// table and content hash. version threads through from the LSP
// text-document version (disk-driven updates from the cold-start scan
// and the watcher pass 0), and is folded into Component F's cache key
// alongside the config epoch.
func (r *Registry) SetContent(id types.FileID, content []byte, version int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return
	}
	e.content = content
	e.lineOffsets = computeLineOffsets(content)
	e.hash = xxhash.Sum64(content)
	e.version = version
}

// Content returns a file's last-registered content, its version, and
// its content hash (used by Component F for value-equality short
// circuiting rather than comparing full byte slices).
func (r *Registry) Content(id types.FileID) (content []byte, version int, hash uint64, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, found := r.byID[id]
	if !found {
		return nil, 0, 0, false
	}
	return e.content, e.version, e.hash, true
}

// Language classifies a source file's language kind from its extension.
// JSX is assumed for .jsx files and for .js files that the parser later
// finds JSX syntax in (Component B does not fail on JSX inside .js,
// tree-sitter's JavaScript grammar already accepts it); the distinction
// here only matters for Component B's parser-pool selection, so the
// simpler extension-based answer is sufficient.
func Language(path string) types.LanguageKind {
	switch filepath.Ext(path) {
	case ".js":
		return types.LangJS
	case ".jsx":
		return types.LangJSX
	case ".ts":
		return types.LangTS
	case ".tsx":
		return types.LangTSX
	default:
		return types.LangUnknown
	}
}

// ToPosition converts a byte offset into an editor Position using id's
// line-offset table. This registry is the single authoritative place
// spec.md designates for byte<->position conversion; every other
// component asks it rather than recomputing offsets itself.
func (r *Registry) ToPosition(id types.FileID, byteOffset uint32) protocol.Position {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok || len(e.lineOffsets) == 0 {
		return protocol.Position{}
	}
	line := searchLine(e.lineOffsets, byteOffset)
	col := byteOffset - e.lineOffsets[line]
	return protocol.Position{Line: uint32(line), Character: col}
}

// ToByteOffset converts an editor Position back into a byte offset, the
// inverse of ToPosition. Component H's position-based queries
// (completions, hover) use this to turn an LSP cursor position into the
// byte offset the scope/usage spans are expressed in.
func (r *Registry) ToByteOffset(id types.FileID, pos protocol.Position) (uint32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok || int(pos.Line) >= len(e.lineOffsets) {
		return 0, false
	}
	return e.lineOffsets[pos.Line] + pos.Character, true
}

// ToSpan fills in a Span's Range field from its byte offsets.
func (r *Registry) ToSpan(id types.FileID, s types.Span) types.Span {
	s.Range = protocol.Range{
		Start: r.ToPosition(id, s.StartByte),
		End:   r.ToPosition(id, s.EndByte),
	}
	return s
}

func searchLine(offsets []uint32, b uint32) int {
	lo, hi := 0, len(offsets)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if offsets[mid] <= b {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// computeLineOffsets returns the byte offset of the start of each line.
// Grounded on the teacher's internal/core/file_content_store.go
// computeLineOffsets (same first-line-is-zero, scan-for-newline
// approach), simplified since this registry does not need the
// teacher's capacity-estimation tuning.
func computeLineOffsets(content []byte) []uint32 {
	offsets := make([]uint32, 1, len(content)/40+2)
	offsets[0] = 0
	for i, b := range content {
		if b == '\n' && i+1 < len(content) {
			offsets = append(offsets, uint32(i+1))
		}
	}
	return offsets
}

// classify assigns a FileClass from the active config's glob patterns,
// matched against the path relative to Project.Root (a path outside
// that root is matched as given). Order matters: the config file name
// is checked first, then the translation-file pattern (a JSON file under
// the locales tree is a TranslationFile even where an exclude pattern
// also matches), then exclude patterns, then include patterns; anything
// else is ignored.
func (r *Registry) classify(path string) types.FileClass {
	if r.cfg == nil {
		return types.ClassIgnored
	}
	base := filepath.Base(path)
	if base == config.ConfigFileName {
		return types.ClassConfig
	}
	if r.cfg.Project.Root != "" {
		if rel, err := filepath.Rel(r.cfg.Project.Root, path); err == nil && filepath.IsLocal(rel) {
			path = filepath.ToSlash(rel)
		}
	}
	if ok, _ := doublestar.Match(r.cfg.TranslationFilePattern, path); ok {
		return types.ClassTranslation
	}
	for _, pattern := range r.cfg.ExcludePatterns {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return types.ClassIgnored
		}
	}
	for _, pattern := range r.cfg.IncludePatterns {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return types.ClassSource
		}
	}
	return types.ClassIgnored
}
