// SPDX-License-Identifier: MPL-2.0

package script

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"modsmith/internal/extract"
	"modsmith/internal/filecache"
	"modsmith/internal/hostapi"
)

// newMod lays out a mod directory plus a loose game tree and wires a
// Core bound to both.
func newMod(t *testing.T, modFiles, gameFiles map[string]string) (string, *hostapi.Core, *filecache.Cache) {
	t.Helper()

	modPath := t.TempDir()
	writeTree(t, modPath, modFiles)

	game := t.TempDir()
	writeTree(t, game, gameFiles)

	cache := filecache.New(t.TempDir(), nil)
	gateway := extract.New(cache, nil, game, nil)
	core := hostapi.New(hostapi.Options{
		ModID:   "test-mod",
		ModPath: modPath,
		Cache:   cache,
		Gateway: gateway,
	})
	return modPath, core, cache
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for p, content := range files {
		full := filepath.Join(root, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// run drives a runtime through its full lifecycle.
func run(t *testing.T, rt Runtime, config map[string]any) error {
	t.Helper()
	if err := rt.SetupAPI(); err != nil {
		t.Fatalf("SetupAPI() error = %v", err)
	}
	if err := rt.SetupConfig(config); err != nil {
		t.Fatalf("SetupConfig() error = %v", err)
	}
	execErr := rt.Execute()
	if err := rt.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	return execErr
}

func TestSelectPrefersLua(t *testing.T) {
	t.Parallel()

	modPath, core, _ := newMod(t, map[string]string{
		"mod.lua": "",
		"mod.js":  "",
	}, nil)

	rt, err := Select(context.Background(), modPath, core, SelectorOptions{})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if rt.Engine() != EngineLua {
		t.Errorf("Engine() = %q, want %q", rt.Engine(), EngineLua)
	}
}

func TestSelectFallsBackToJS(t *testing.T) {
	t.Parallel()

	modPath, core, _ := newMod(t, map[string]string{"mod.js": ""}, nil)

	rt, err := Select(context.Background(), modPath, core, SelectorOptions{})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if rt.Engine() != EngineJS {
		t.Errorf("Engine() = %q, want %q", rt.Engine(), EngineJS)
	}
}

func TestSelectNoScript(t *testing.T) {
	t.Parallel()

	modPath, core, _ := newMod(t, nil, nil)

	_, err := Select(context.Background(), modPath, core, SelectorOptions{})
	if !errors.Is(err, ErrNoScriptFound) {
		t.Errorf("Select() error = %v, want ErrNoScriptFound", err)
	}
}

func TestSelectDisabledEngine(t *testing.T) {
	t.Parallel()

	modPath, core, _ := newMod(t, map[string]string{"mod.lua": ""}, nil)

	_, err := Select(context.Background(), modPath, core, SelectorOptions{DisableLua: true})
	if !errors.Is(err, ErrRuntimeDisabled) {
		t.Errorf("Select() error = %v, want ErrRuntimeDisabled", err)
	}
}

func TestLifecycleRejectsSkippedStage(t *testing.T) {
	t.Parallel()

	var l lifecycle
	if err := l.advance(StateConfigBound); err == nil {
		t.Error("advance(config-bound) from constructed should fail")
	}
	if err := l.advance(StateAPIBound); err != nil {
		t.Errorf("advance(api-bound) error = %v", err)
	}
	if err := l.advance(StateCleanedUp); err != nil {
		t.Errorf("advance(cleaned-up) error = %v", err)
	}
	if err := l.advance(StateCleanedUp); err != nil {
		t.Errorf("second advance(cleaned-up) error = %v", err)
	}
}
