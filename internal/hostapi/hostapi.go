// SPDX-License-Identifier: MPL-2.0

// Package hostapi implements every host operation a mod script may
// invoke, in engine-neutral terms. The script-engine bindings translate
// their native values to and from the neutral set (nil, bool, float64,
// string, []any, map[string]any) and delegate here; no engine type ever
// crosses into this package.
//
// All reads route through the extraction gateway so that pending cache
// entries win over disk and archive content, and all writes land in the
// file cache only. In dry-run mode write operations log their intent
// and succeed without mutating anything.
package hostapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"modsmith/internal/extract"
	"modsmith/internal/filecache"
	"modsmith/internal/tabular"
)

// Version is the host API compatibility constant reported to scripts.
const Version = 1.5

// FullVersion is the expanded form of Version.
var FullVersion = [3]int{1, 5, 0}

// ParseError reports malformed JSON, tabular, or non-UTF-8 content.
type ParseError struct {
	Path   string
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s as %s: %v", e.Path, e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ModError is an error raised explicitly by a mod script via the
// host's error operation.
type ModError struct {
	Message string
}

func (e *ModError) Error() string { return e.Message }

// Core is one mod's view of the host. Each mod gets a fresh Core bound
// to the shared cache and gateway.
type Core struct {
	modID   string
	modPath string
	cache   *filecache.Cache
	gateway *extract.Gateway
	dryRun  bool
	logger  *slog.Logger

	// intents collects the normalized paths dry-run writes would have
	// touched; empty outside dry-run mode.
	intents map[string]struct{}
}

// Options configures a Core.
type Options struct {
	ModID   string
	ModPath string
	Cache   *filecache.Cache
	Gateway *extract.Gateway
	DryRun  bool
	Logger  *slog.Logger
}

// New builds a Core for one mod.
func New(opts Options) *Core {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Core{
		modID:   opts.ModID,
		modPath: opts.ModPath,
		cache:   opts.Cache,
		gateway: opts.Gateway,
		dryRun:  opts.DryRun,
		logger:  logger.With("mod", opts.ModID),
		intents: make(map[string]struct{}),
	}
}

// ModID returns the bound mod's identifier.
func (c *Core) ModID() string { return c.modID }

// Logger returns the mod-scoped logger, for the bindings' console
// sinks.
func (c *Core) Logger() *slog.Logger { return c.logger }

// GetVersion returns the host API compatibility constant.
func (c *Core) GetVersion() float64 { return Version }

// GetFullVersion returns the major, minor, and patch components.
func (c *Core) GetFullVersion() (int, int, int) {
	return FullVersion[0], FullVersion[1], FullVersion[2]
}

// noteIntent records a path a dry-run write would have touched.
func (c *Core) noteIntent(p string) {
	c.intents[filecache.Normalize(p)] = struct{}{}
}

// WriteIntents returns the normalized paths dry-run writes would have
// touched, sorted. Outside dry-run mode the result is always empty.
func (c *Core) WriteIntents() []string {
	paths := make([]string, 0, len(c.intents))
	for p := range c.intents {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Throw converts a script-raised message into a host error. The
// binding propagates it as the script's fatal failure.
func (c *Core) Throw(message string) error {
	c.logger.Error("mod raised error", "message", message)
	return &ModError{Message: message}
}

// ReadJSON reads and parses a JSON game file. A UTF-8 byte order mark
// is tolerated; the game ships some files with one.
func (c *Core) ReadJSON(ctx context.Context, p string) (any, error) {
	c.logger.Debug("readJson", "path", p)
	content, err := c.gateway.EnsureAvailable(ctx, p, c.modID)
	if err != nil {
		return nil, err
	}

	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	var value any
	if err := json.Unmarshal(content, &value); err != nil {
		return nil, &ParseError{Path: p, Format: "json", Err: err}
	}
	return value, nil
}

// WriteJSON serializes value and stores it as the pending write for p.
func (c *Core) WriteJSON(ctx context.Context, p string, value any) error {
	c.logger.Debug("writeJson", "path", p)
	if c.dryRun {
		c.logger.Info("dry run: would write json", "path", p)
		c.noteIntent(p)
		return nil
	}

	content, err := marshalJSON(value)
	if err != nil {
		return &ParseError{Path: p, Format: "json", Err: err}
	}
	c.cache.WriteCached(p, content, c.modID)
	return nil
}

// ReadTSV reads and parses a tab-separated game table.
func (c *Core) ReadTSV(ctx context.Context, p string) (*tabular.Table, error) {
	c.logger.Debug("readTsv", "path", p)
	content, err := c.gateway.EnsureAvailable(ctx, p, c.modID)
	if err != nil {
		return nil, err
	}

	table, err := tabular.Parse(content)
	if err != nil {
		return nil, &ParseError{Path: p, Format: "tsv", Err: err}
	}
	return table, nil
}

// WriteTSV serializes table and stores it as the pending write for p.
func (c *Core) WriteTSV(ctx context.Context, p string, table *tabular.Table) error {
	c.logger.Debug("writeTsv", "path", p, "rows", len(table.Rows))
	if c.dryRun {
		c.logger.Info("dry run: would write tsv", "path", p)
		c.noteIntent(p)
		return nil
	}

	c.cache.WriteCached(p, table.Marshal(), c.modID)
	return nil
}

// ReadText reads a game file as UTF-8 text.
func (c *Core) ReadText(ctx context.Context, p string) (string, error) {
	c.logger.Debug("readTxt", "path", p)
	content, err := c.gateway.EnsureAvailable(ctx, p, c.modID)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(content) {
		return "", &ParseError{Path: p, Format: "text", Err: fmt.Errorf("invalid UTF-8")}
	}
	return string(content), nil
}

// WriteText stores content as the pending write for p.
func (c *Core) WriteText(ctx context.Context, p, content string) error {
	c.logger.Debug("writeTxt", "path", p)
	if c.dryRun {
		c.logger.Info("dry run: would write text", "path", p)
		c.noteIntent(p)
		return nil
	}

	c.cache.WriteCached(p, []byte(content), c.modID)
	return nil
}

// ExtractFile forces extraction of a game file into the output tree
// without returning its content.
func (c *Core) ExtractFile(ctx context.Context, p string) error {
	c.logger.Debug("extractFile", "path", p)
	_, err := c.gateway.EnsureAvailable(ctx, p, c.modID)
	return err
}

// CopyFile copies src (relative to the mod directory) to dst (relative
// to the output tree). Directories copy recursively and always
// overwrite; single files honor overwrite. When src does not exist in
// the mod directory it is treated as a game-data path and resolved
// through the gateway. Copied content lands in the cache like any
// other write.
func (c *Core) CopyFile(ctx context.Context, src, dst string, overwrite bool) error {
	c.logger.Debug("copyFile", "src", src, "dst", dst, "overwrite", overwrite)
	if c.dryRun {
		c.logger.Info("dry run: would copy", "src", src, "dst", dst)
		c.noteIntent(dst)
		return nil
	}

	srcPath := filepath.Join(c.modPath, filepath.FromSlash(src))
	info, err := os.Stat(srcPath)
	switch {
	case err == nil && info.IsDir():
		return c.copyDir(srcPath, dst)
	case err == nil:
		return c.copyOne(srcPath, dst, overwrite)
	default:
		// Not in the mod directory: resolve as a game-data path.
		content, err := c.gateway.EnsureAvailable(ctx, src, c.modID)
		if err != nil {
			return err
		}
		c.cache.WriteCached(dst, content, c.modID)
		return nil
	}
}

func (c *Core) copyDir(srcDir, dstRel string) error {
	return filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}

		content, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		c.cache.WriteCached(path.Join(dstRel, filepath.ToSlash(rel)), content, c.modID)
		return nil
	})
}

func (c *Core) copyOne(srcPath, dst string, overwrite bool) error {
	if !overwrite && c.destinationExists(dst) {
		c.logger.Debug("copy skipped, destination exists", "dst", dst)
		return nil
	}

	content, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	c.cache.WriteCached(dst, content, c.modID)
	return nil
}

func (c *Core) destinationExists(dst string) bool {
	if c.cache.IsCached(dst) {
		return true
	}
	outPath := filepath.Join(c.cache.OutputRoot(), filepath.FromSlash(filecache.Normalize(dst)))
	_, err := os.Stat(outPath)
	return err == nil
}

// marshalJSON pretty-prints without HTML escaping, matching the game
// files' own formatting.
func marshalJSON(value any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
