// SPDX-License-Identifier: MPL-2.0

package install

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"modsmith/internal/archive"
	"modsmith/internal/config"
	"modsmith/internal/extract"
	"modsmith/internal/filecache"
	"modsmith/internal/hostapi"
	"modsmith/internal/issue"
	"modsmith/internal/manifest"
	"modsmith/internal/script"
)

// ModInfoFileName is the marker file written next to the output tree so
// the game picks the generated files up as a save-path mod.
const ModInfoFileName = "modinfo.json"

type (
	// Options configures one install run.
	Options struct {
		// GamePath is the game installation root.
		GamePath string
		// ModDirs are the mod directories to run, in order.
		ModDirs []string
		// OutputPath is the directory the cache flushes into.
		OutputPath string
		// DryRun executes scripts but skips every write, including the
		// final flush and the modinfo marker.
		DryRun bool
		// DisableLua and DisableJS switch individual engines off.
		DisableLua bool
		DisableJS  bool
	}

	// ModResult is the outcome of one mod. Err is set when the mod was
	// skipped; the run continues past it.
	ModResult struct {
		ID      string
		Name    string
		Version string
		Engine  script.Engine
		Err     error
	}

	// Result summarizes a run: per-mod outcomes, the number of files
	// written by the flush, and the cache statistics. Intended counts
	// the distinct paths dry-run writes would have touched; it is zero
	// outside dry-run mode.
	Result struct {
		Mods     []ModResult
		Written  int
		Intended int
		Stats    filecache.Summary
	}

	// Orchestrator sequences mods against a shared cache and flushes
	// the combined edits once at the end.
	Orchestrator struct {
		logger *slog.Logger
	}
)

// Failed returns the number of mods that were skipped with an error.
func (r *Result) Failed() int {
	n := 0
	for _, m := range r.Mods {
		if m.Err != nil {
			n++
		}
	}
	return n
}

// New builds an Orchestrator.
func New(logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{logger: logger}
}

// Run executes every mod in order and flushes the cache. A failing mod
// is recorded and skipped; a failing flush aborts the run with the
// partial Result.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Result, error) {
	store, err := archive.OpenDir(opts.GamePath)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("open game data").
			WithResource(opts.GamePath).
			WithSuggestion("Point --game at the game installation root").
			Wrap(err).
			BuildError()
	}
	defer store.Close()

	cache := filecache.New(opts.OutputPath, o.logger)
	gateway := extract.New(cache, store, opts.GamePath, o.logger)

	result := &Result{}
	intended := make(map[string]struct{})
	for _, modDir := range opts.ModDirs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		res, intents := o.runMod(ctx, modDir, cache, gateway, opts)
		result.Mods = append(result.Mods, res)
		for _, p := range intents {
			intended[p] = struct{}{}
		}
	}

	if opts.DryRun {
		result.Intended = len(intended)
		o.logger.Info("dry run, skipping flush", "intended", result.Intended)
		result.Stats = cache.Stats()
		return result, nil
	}

	written, err := cache.Flush(ctx)
	result.Written = written
	result.Stats = cache.Stats()
	if err != nil {
		return result, issue.NewErrorContext().
			WithOperation("flush output tree").
			WithResource(opts.OutputPath).
			WithSuggestion("Check permissions on the output directory").
			WithSuggestion("Rerun once the problem is fixed; pending edits are kept").
			Wrap(err).
			BuildError()
	}

	if err := writeModInfo(opts.OutputPath); err != nil {
		return result, err
	}

	o.logger.Info("install finished",
		"mods", len(result.Mods),
		"failed", result.Failed(),
		"written", written)
	return result, nil
}

// runMod walks one mod through the full runtime lifecycle and returns
// its result plus any dry-run write intents. Every failure is folded
// into the ModResult; nothing here aborts the run.
func (o *Orchestrator) runMod(ctx context.Context, modDir string, cache *filecache.Cache, gateway *extract.Gateway, opts Options) (ModResult, []string) {
	res := ModResult{ID: filepath.Base(modDir)}

	mod, err := manifest.Load(modDir)
	if err != nil {
		o.logger.Error("skipping mod", "mod", res.ID, "error", err)
		res.Err = err
		return res, nil
	}
	res.Name = mod.Manifest.Name
	res.Version = mod.Manifest.Version

	core := hostapi.New(hostapi.Options{
		ModID:   mod.ID,
		ModPath: mod.Path,
		Cache:   cache,
		Gateway: gateway,
		DryRun:  opts.DryRun,
		Logger:  o.logger,
	})

	rt, err := script.Select(ctx, mod.Path, core, script.SelectorOptions{
		DisableLua: opts.DisableLua,
		DisableJS:  opts.DisableJS,
	})
	if err != nil {
		o.logger.Error("skipping mod", "mod", mod.ID, "error", err)
		res.Err = err
		return res, nil
	}
	res.Engine = rt.Engine()
	defer func() {
		if err := rt.Cleanup(); err != nil {
			o.logger.Warn("runtime cleanup failed", "mod", mod.ID, "error", err)
		}
	}()

	o.logger.Info("running mod", "mod", mod.ID, "name", mod.Manifest.Name,
		"version", mod.Manifest.Version, "engine", rt.Engine())

	if err := rt.SetupAPI(); err != nil {
		res.Err = err
		return res, core.WriteIntents()
	}
	if err := rt.SetupConfig(mod.Settings); err != nil {
		res.Err = err
		return res, core.WriteIntents()
	}
	if err := rt.Execute(); err != nil {
		o.logger.Error("mod failed", "mod", mod.ID, "error", err)
		res.Err = err
		return res, core.WriteIntents()
	}
	return res, core.WriteIntents()
}

// writeModInfo drops the save-path marker next to the output tree.
func writeModInfo(outputPath string) error {
	parent := filepath.Dir(outputPath)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("creating output parent: %w", err)
	}

	info := map[string]string{
		"name":     config.AppName,
		"savepath": filepath.Base(outputPath) + "/",
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(parent, ModInfoFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", ModInfoFileName, err)
	}
	return nil
}
