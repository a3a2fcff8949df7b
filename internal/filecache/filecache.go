// SPDX-License-Identifier: MPL-2.0

// Package filecache tracks every file a mod touches and buffers all
// mod-authored writes in memory until a single flush point.
//
// Each tracked path owns one Record holding provenance flags and an
// append-only operation log, keyed by the normalized path. Pending
// writes live in cache entries that later mods read in place of the
// on-disk or archived bytes, so edits chain across mods before
// anything reaches disk.
package filecache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"modsmith/internal/platform"
)

// OpKind identifies an entry in a Record's operation log.
type OpKind string

const (
	OpExtract OpKind = "extract"
	OpRead    OpKind = "read"
	OpWrite   OpKind = "write"
)

// Origin says where a tracked file first came from.
type Origin int

const (
	OriginUnknown Origin = iota
	// OriginGame marks files extracted from the game's data archive.
	OriginGame
	// OriginMod marks files authored by a mod.
	OriginMod
)

type (
	// Operation is one entry in a Record's audit trail.
	Operation struct {
		Kind  OpKind
		Actor string
	}

	// Record is the provenance state of a single tracked path. Records
	// are created lazily on first reference and live for the whole run.
	Record struct {
		// Path is the normalized path the record is keyed by.
		Path      string
		Exists    bool
		Extracted bool
		Modified  bool
		Origin    Origin
		// Operations is append-only; insertion order is the audit order.
		Operations []Operation
	}

	entry struct {
		content []byte
		dirty   bool
	}

	// Cache owns all Records and all pending write entries. A single
	// mutex guards everything: mods run strictly sequentially, so there
	// is never contention worth optimizing for.
	Cache struct {
		mu         sync.Mutex
		outputRoot string
		records    map[string]*Record
		entries    map[string]entry
		logger     *slog.Logger
	}

	// Summary reports run-level counters for operator output.
	Summary struct {
		Tracked   int
		Extracted int
		Modified  int
		Pending   int
	}
)

// FlushError reports the first path that failed to reach disk during
// Flush. The failed entry and everything after it stay cached.
type FlushError struct {
	Path string
	Err  error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("flush %s: %v", e.Path, e.Err)
}

func (e *FlushError) Unwrap() error { return e.Err }

// ErrNotCached is returned by ReadCached when no pending entry exists
// for the path; callers fall through to the extraction gateway.
var ErrNotCached = fmt.Errorf("no cached entry")

// New creates a Cache that flushes into outputRoot.
func New(outputRoot string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		outputRoot: outputRoot,
		records:    make(map[string]*Record),
		entries:    make(map[string]entry),
		logger:     logger,
	}
}

// Normalize maps a path to its canonical tracked form: lowercase with
// forward slashes. Normalize is idempotent.
func Normalize(path string) string {
	return strings.ToLower(strings.ReplaceAll(path, "\\", "/"))
}

// OutputRoot returns the directory Flush writes into.
func (c *Cache) OutputRoot() string { return c.outputRoot }

func (c *Cache) record(path string) *Record {
	normalized := Normalize(path)
	rec, ok := c.records[normalized]
	if !ok {
		rec = &Record{Path: normalized}
		c.records[normalized] = rec
	}
	return rec
}

// RecordExtract marks path as extracted from the game archive by actor.
func (c *Cache) RecordExtract(path, actor string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := c.record(path)
	rec.Exists = true
	rec.Extracted = true
	rec.Origin = OriginGame
	rec.Operations = append(rec.Operations, Operation{Kind: OpExtract, Actor: actor})
	c.logger.Debug("extracted", "path", rec.Path, "actor", actor)
}

// RecordRead appends a read operation for path by actor.
func (c *Cache) RecordRead(path, actor string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := c.record(path)
	rec.Exists = true
	rec.Operations = append(rec.Operations, Operation{Kind: OpRead, Actor: actor})
	c.logger.Debug("read", "path", rec.Path, "actor", actor)
}

// RecordWrite appends a write operation for path by actor.
func (c *Cache) RecordWrite(path, actor string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recordWriteLocked(path, actor)
}

func (c *Cache) recordWriteLocked(path, actor string) {
	rec := c.record(path)
	rec.Exists = true
	rec.Modified = true
	if rec.Origin == OriginUnknown {
		rec.Origin = OriginMod
	}
	rec.Operations = append(rec.Operations, Operation{Kind: OpWrite, Actor: actor})
	c.logger.Debug("wrote", "path", rec.Path, "actor", actor)
}

// ReadCached returns the pending bytes for path and records the read.
// It fails with ErrNotCached when no entry is pending.
func (c *Cache) ReadCached(path, actor string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	normalized := Normalize(path)
	ent, ok := c.entries[normalized]
	if !ok {
		return nil, ErrNotCached
	}

	rec := c.record(normalized)
	rec.Exists = true
	rec.Operations = append(rec.Operations, Operation{Kind: OpRead, Actor: actor})
	c.logger.Debug("read cached", "path", normalized, "actor", actor)

	out := make([]byte, len(ent.content))
	copy(out, ent.content)
	return out, nil
}

// WriteCached stores content as the pending write for path. Nothing
// touches disk; the write becomes durable only at Flush. A later write
// to the same path replaces the entry (last writer wins).
func (c *Cache) WriteCached(path string, content []byte, actor string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	normalized := Normalize(path)
	buf := make([]byte, len(content))
	copy(buf, content)
	c.entries[normalized] = entry{content: buf, dirty: true}
	c.recordWriteLocked(normalized, actor)
}

// IsCached reports whether a pending entry exists for path.
func (c *Cache) IsCached(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[Normalize(path)]
	return ok
}

// Status returns a snapshot of the Record for path.
func (c *Cache) Status(path string) (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[Normalize(path)]
	if !ok {
		return Record{}, false
	}

	snapshot := *rec
	snapshot.Operations = make([]Operation, len(rec.Operations))
	copy(snapshot.Operations, rec.Operations)
	return snapshot, true
}

// Flush writes every pending entry to outputRoot and drains the cache.
// Entries are flushed in sorted path order. On the first failing path
// Flush stops and returns a FlushError; the failed entry and all
// remaining ones stay cached so a retry can resume. Paths that would
// resolve outside outputRoot, or that contain a Windows reserved name,
// fail the same way. A second Flush with no new writes is a no-op.
func (c *Cache) Flush(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	paths := make([]string, 0, len(c.entries))
	for p := range c.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	written := 0
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return written, &FlushError{Path: p, Err: err}
		}

		if !filepath.IsLocal(filepath.FromSlash(p)) {
			return written, &FlushError{Path: p, Err: fmt.Errorf("path escapes the output root")}
		}
		if segment := platform.ReservedComponent(p); segment != "" {
			return written, &FlushError{Path: p, Err: fmt.Errorf("%q is a reserved name on Windows", segment)}
		}

		ent := c.entries[p]
		dest := filepath.Join(c.outputRoot, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return written, &FlushError{Path: p, Err: err}
		}
		if err := os.WriteFile(dest, ent.content, 0o644); err != nil {
			return written, &FlushError{Path: p, Err: err}
		}

		delete(c.entries, p)
		written++
		c.logger.Info("flushed", "path", p)
	}

	return written, nil
}

// ModifiedBy returns the normalized paths written by actor, sorted.
func (c *Cache) ModifiedBy(actor string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var paths []string
	for _, rec := range c.records {
		for _, op := range rec.Operations {
			if op.Kind == OpWrite && op.Actor == actor {
				paths = append(paths, rec.Path)
				break
			}
		}
	}
	sort.Strings(paths)
	return paths
}

// Stats returns run-level counters over all tracked records.
func (c *Cache) Stats() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{Tracked: len(c.records), Pending: len(c.entries)}
	for _, rec := range c.records {
		if rec.Extracted {
			s.Extracted++
		}
		if rec.Modified {
			s.Modified++
		}
	}
	return s
}
