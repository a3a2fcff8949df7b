// SPDX-License-Identifier: MPL-2.0

package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"modsmith/internal/hostapi"
)

var (
	// ErrNoScriptFound means the mod directory has neither entry file.
	ErrNoScriptFound = errors.New("no mod.lua or mod.js entry script found")

	// ErrRuntimeDisabled means the matching engine is switched off in
	// this configuration.
	ErrRuntimeDisabled = errors.New("script engine disabled")
)

// SelectorOptions toggles individual engines. Both are enabled by the
// zero value.
type SelectorOptions struct {
	DisableLua bool
	DisableJS  bool
}

// Select inspects modPath for the Lua entry file first, then the
// JavaScript one, and constructs the matching runtime bound to core.
func Select(ctx context.Context, modPath string, core *hostapi.Core, opts SelectorOptions) (Runtime, error) {
	if fileExists(filepath.Join(modPath, LuaEntryFile)) {
		if opts.DisableLua {
			return nil, fmt.Errorf("%s: %w", LuaEntryFile, ErrRuntimeDisabled)
		}
		return NewLuaRuntime(ctx, modPath, core), nil
	}

	if fileExists(filepath.Join(modPath, JSEntryFile)) {
		if opts.DisableJS {
			return nil, fmt.Errorf("%s: %w", JSEntryFile, ErrRuntimeDisabled)
		}
		return NewJSRuntime(ctx, modPath, core), nil
	}

	return nil, fmt.Errorf("%s: %w", modPath, ErrNoScriptFound)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
