// SPDX-License-Identifier: MPL-2.0

// Package extract resolves logical game-data paths to bytes, preferring
// a mod's pending in-memory edit over anything on disk or in the game
// archive. This ordering is what lets mods chain edits: a later mod's
// read always sees an earlier mod's write before it is flushed.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"modsmith/internal/archive"
	"modsmith/internal/filecache"
)

// NotFoundError reports a path that resolved nowhere: not cached, not
// in the output tree, not in the archive under any variant, and not in
// the raw game install.
type NotFoundError struct {
	Path string
	// Attempted lists the archive variant strings tried, in order.
	Attempted []string
}

func (e *NotFoundError) Error() string {
	if len(e.Attempted) == 0 {
		return fmt.Sprintf("file not found: %s (no archive open)", e.Path)
	}
	return fmt.Sprintf("file not found: %s (tried %s)", e.Path, strings.Join(e.Attempted, ", "))
}

// Gateway resolves game-data paths through the cache, the output tree,
// the archive store, and the raw game directory, in that order.
type Gateway struct {
	cache    *filecache.Cache
	store    archive.Store // nil when no archive is open
	gameRoot string
	logger   *slog.Logger
}

// New builds a Gateway. store may be nil; extraction then falls back
// to copying loose files out of gameRoot.
func New(cache *filecache.Cache, store archive.Store, gameRoot string, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{cache: cache, store: store, gameRoot: gameRoot, logger: logger}
}

// EnsureAvailable returns the current bytes for path on behalf of
// actor. Resolution order, first hit wins:
//
//  1. a pending cache entry (another mod's unflushed edit),
//  2. the output-tree copy of an already extracted file,
//  3. the archive store, trying each path variant in order; bytes are
//     also materialized into the output tree,
//  4. the same relative path in the raw game install.
//
// Step 4 runs even when an archive store is open and every variant
// missed: a directory store is always open here, so gating the loose
// game tree on a missing store would make it unreachable.
//
// Every successful call records a read; extraction additionally
// records the provenance.
func (g *Gateway) EnsureAvailable(ctx context.Context, path, actor string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if content, err := g.cache.ReadCached(path, actor); err == nil {
		return content, nil
	}

	normalized := filecache.Normalize(path)
	outPath := filepath.Join(g.cache.OutputRoot(), filepath.FromSlash(normalized))

	if rec, ok := g.cache.Status(normalized); ok && rec.Extracted {
		if content, err := os.ReadFile(outPath); err == nil {
			g.cache.RecordRead(normalized, actor)
			return content, nil
		}
	}

	var attempted []string
	if g.store != nil {
		for _, variant := range archive.Variants(path) {
			attempted = append(attempted, variant)
			entry, err := g.store.Entry(variant)
			if err != nil {
				if errors.Is(err, archive.ErrEntryNotFound) {
					continue
				}
				return nil, fmt.Errorf("archive lookup %s: %w", variant, err)
			}

			content, err := g.materialize(entry, outPath)
			if err != nil {
				return nil, fmt.Errorf("extract %s: %w", variant, err)
			}

			g.logger.Debug("extracted from archive", "path", normalized, "variant", variant, "bytes", len(content))
			g.cache.RecordExtract(normalized, actor)
			g.cache.RecordRead(normalized, actor)
			return content, nil
		}
	}

	if g.gameRoot != "" {
		gamePath := filepath.Join(g.gameRoot, filepath.FromSlash(normalized))
		if content, err := os.ReadFile(gamePath); err == nil {
			if err := writeFileAll(outPath, content); err != nil {
				return nil, fmt.Errorf("copy from game dir %s: %w", normalized, err)
			}
			g.logger.Debug("copied from game dir", "path", normalized, "bytes", len(content))
			g.cache.RecordExtract(normalized, actor)
			g.cache.RecordRead(normalized, actor)
			return content, nil
		}
	}

	return nil, &NotFoundError{Path: path, Attempted: attempted}
}

// materialize extracts entry into the output tree and returns its
// bytes.
func (g *Gateway) materialize(entry archive.Entry, outPath string) ([]byte, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := entry.Extract(&buf); err != nil {
		return nil, err
	}
	content := buf.Bytes()

	if err := os.WriteFile(outPath, content, 0o644); err != nil {
		return nil, err
	}
	return content, nil
}

func writeFileAll(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o644)
}
