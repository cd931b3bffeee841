// Package graph is the incremental computation graph (spec.md §4.F):
// memoizes per-file query results keyed on (FileID, version, config
// epoch), so an unrelated file edit never forces a given file's
// usages/scopes to be recomputed.
//
// Grounded on the teacher's internal/indexing/index_locks.go
// read/write lock acquisition shape, simplified to spec.md's literal
// "sync.RWMutex, single-writer/many-reader" design -- the teacher's
// retry/backoff/metrics lock manager solves a different problem
// (coordinating many independent index types under contention) that
// this single-graph-per-workspace model doesn't have.
package graph

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/lci/internal/types"
)

// key identifies one memoized computation. Epoch is the config's Epoch
// field; a call with a different epoch misses every existing entry,
// since the resolved KeyUsages depend on the config's separators and
// namespace handling.
type key struct {
	file    types.FileID
	version int
	epoch   uint64
}

// fileResult is what Component D/E compute for one file: its scopes and
// usages (for a source file) or its flattened translation file (for a
// translation file). Exactly one pair is populated, matching the file's
// FileClass.
type fileResult struct {
	contentHash uint64

	scopes []types.Scope
	usages []types.KeyUsage

	translation *types.TranslationFile
}

// Graph is the process-wide incremental cache. A single RWMutex guards
// it: readers (the Query API, Component H) take RLock; the one writer
// per recomputation (Component G's indexer, or the text-sync path
// reacting to didChange) takes Lock. spec.md's lock ordering is
// config -> graph -> registry: callers must have already resolved the
// config epoch and the registry's content hash before calling into
// Graph.
type Graph struct {
	mu      sync.RWMutex
	results map[key]*fileResult

	// Reverse indexes, rebuilt incrementally as entries are written;
	// kept under the same lock as results since they are derived from
	// the same writes and must never be observed out of sync with them.
	usagesByNamespaceKey map[string][]types.KeyUsage
	latestByFile         map[types.FileID]key
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		results:              make(map[key]*fileResult),
		usagesByNamespaceKey: make(map[string][]types.KeyUsage),
		latestByFile:         make(map[types.FileID]key),
	}
}

func indexKey(namespace, resolvedKey string) string { return namespace + "\x00" + resolvedKey }

// ScopesAndUsages returns the memoized result for (fileID, version,
// epoch) if present and the content hash matches; compute is invoked
// on a miss (outside the lock) and its result memoized under the write
// lock. A result is reused only when the (fileID, version, epoch) key
// matches exactly and the content hash agrees: the same bytes under a
// new version or epoch are recomputed, and the indexer calls in without
// comparing hashes first.
func (g *Graph) ScopesAndUsages(fileID types.FileID, version int, epoch uint64, contentHash uint64,
	compute func() ([]types.Scope, []types.KeyUsage)) ([]types.Scope, []types.KeyUsage) {

	k := key{file: fileID, version: version, epoch: epoch}

	g.mu.RLock()
	if r, ok := g.results[k]; ok && r.contentHash == contentHash {
		scopes, usages := r.scopes, r.usages
		g.mu.RUnlock()
		return scopes, usages
	}
	g.mu.RUnlock()

	scopes, usages := compute()

	g.mu.Lock()
	g.evictFileLocked(fileID)
	g.results[k] = &fileResult{contentHash: contentHash, scopes: scopes, usages: usages}
	g.latestByFile[fileID] = k
	for _, u := range usages {
		idx := indexKey(u.Namespace, u.ResolvedKey)
		g.usagesByNamespaceKey[idx] = append(g.usagesByNamespaceKey[idx], u)
	}
	g.mu.Unlock()

	return scopes, usages
}

// Translation returns the memoized flattened translation file for
// (fileID, version, epoch), computing and storing it on a miss.
func (g *Graph) Translation(fileID types.FileID, version int, epoch uint64, contentHash uint64,
	compute func() types.TranslationFile) types.TranslationFile {

	k := key{file: fileID, version: version, epoch: epoch}

	g.mu.RLock()
	if r, ok := g.results[k]; ok && r.contentHash == contentHash && r.translation != nil {
		tf := *r.translation
		g.mu.RUnlock()
		return tf
	}
	g.mu.RUnlock()

	tf := compute()

	g.mu.Lock()
	g.evictFileLocked(fileID)
	g.results[k] = &fileResult{contentHash: contentHash, translation: &tf}
	g.latestByFile[fileID] = k
	g.mu.Unlock()

	return tf
}

// evictFileLocked removes a file's previous entry (and its
// contribution to the reverse index) before a fresh one is installed.
// Must be called with mu held for writing.
func (g *Graph) evictFileLocked(fileID types.FileID) {
	prevKey, ok := g.latestByFile[fileID]
	if !ok {
		return
	}
	prev, ok := g.results[prevKey]
	if !ok {
		return
	}
	for _, u := range prev.usages {
		idx := indexKey(u.Namespace, u.ResolvedKey)
		filtered := g.usagesByNamespaceKey[idx][:0]
		for _, existing := range g.usagesByNamespaceKey[idx] {
			if existing.FileID != fileID {
				filtered = append(filtered, existing)
			}
		}
		if len(filtered) == 0 {
			delete(g.usagesByNamespaceKey, idx)
		} else {
			g.usagesByNamespaceKey[idx] = filtered
		}
	}
	delete(g.results, prevKey)
}

// UsagesOf returns every known usage of namespace/key across the
// workspace, for Component H's usages_of operation.
func (g *Graph) UsagesOf(namespace, resolvedKey string) []types.KeyUsage {
	g.mu.RLock()
	defer g.mu.RUnlock()
	src := g.usagesByNamespaceKey[indexKey(namespace, resolvedKey)]
	out := make([]types.KeyUsage, len(src))
	copy(out, src)
	return out
}

// AllUsages returns every usage currently memoized, for Component H's
// missing/unused computations which need a full scan.
func (g *Graph) AllUsages() []types.KeyUsage {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []types.KeyUsage
	for _, r := range g.results {
		out = append(out, r.usages...)
	}
	return out
}

// AllTranslations returns every memoized translation file.
func (g *Graph) AllTranslations() []types.TranslationFile {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []types.TranslationFile
	for _, r := range g.results {
		if r.translation != nil {
			out = append(out, *r.translation)
		}
	}
	return out
}

// FileScopesAndUsages returns the most recently memoized scopes/usages
// for fileID, for Component H's per-file queries (missing, decorations,
// completions, hover). ok is false if fileID has never been resolved as
// a source file (not yet scanned, or a translation/ignored file).
func (g *Graph) FileScopesAndUsages(fileID types.FileID) (scopes []types.Scope, usages []types.KeyUsage, ok bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	k, ok := g.latestByFile[fileID]
	if !ok {
		return nil, nil, false
	}
	r, ok := g.results[k]
	if !ok {
		return nil, nil, false
	}
	return r.scopes, r.usages, true
}

// FileTranslation returns the most recently memoized translation file
// for fileID, for Component H's unused-keys query. ok is false if
// fileID has never been resolved as a translation file.
func (g *Graph) FileTranslation(fileID types.FileID) (types.TranslationFile, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	k, ok := g.latestByFile[fileID]
	if !ok {
		return types.TranslationFile{}, false
	}
	r, ok := g.results[k]
	if !ok || r.translation == nil {
		return types.TranslationFile{}, false
	}
	return *r.translation, true
}

// Forget drops every memoized entry for fileID, e.g. when the file is
// deleted from the workspace.
func (g *Graph) Forget(fileID types.FileID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.evictFileLocked(fileID)
	delete(g.latestByFile, fileID)
}

// Reset clears the entire graph, e.g. on a config reload whose effect
// on classification can't be reasoned about incrementally (spec.md
// allows a full Reload to simply invalidate everything rather than
// prove which entries survive).
func (g *Graph) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.results = make(map[key]*fileResult)
	g.usagesByNamespaceKey = make(map[string][]types.KeyUsage)
	g.latestByFile = make(map[types.FileID]key)
}

// ContentHash is a thin re-export so callers don't need a second import
// just to compute the hash Graph's cache key depends on.
func ContentHash(content []byte) uint64 { return xxhash.Sum64(content) }
