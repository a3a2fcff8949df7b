// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeMod(t *testing.T, root, id, manifest string) string {
	t.Helper()
	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := writeMod(t, t.TempDir(), "runes", `{
		"name": "Runes",
		"version": "1.2",
		"author": "someone",
		"config": [
			{"type": "section", "name": "General"},
			{"type": "checkbox", "id": "enabled", "name": "Enabled", "defaultValue": true},
			{"type": "number", "id": "scale", "name": "Scale", "defaultValue": 2.5},
			{"type": "text", "id": "prefix", "name": "Prefix", "defaultValue": "x"},
			{"type": "select", "id": "mode", "name": "Mode", "defaultValue": "fast",
				"options": [{"label": "Fast", "value": "fast"}, {"label": "Slow", "value": "slow"}]}
		]
	}`)

	mod, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if mod.ID != "runes" {
		t.Errorf("ID = %q, want runes", mod.ID)
	}
	if mod.Manifest.Name != "Runes" || mod.Manifest.Version != "1.2" {
		t.Errorf("manifest = %+v", mod.Manifest)
	}

	want := map[string]any{
		"enabled": true,
		"scale":   2.5,
		"prefix":  "x",
		"mode":    "fast",
	}
	if !reflect.DeepEqual(mod.Settings, want) {
		t.Errorf("Settings = %v, want %v", mod.Settings, want)
	}
}

func TestLoadStripsBOM(t *testing.T) {
	t.Parallel()

	dir := writeMod(t, t.TempDir(), "bom", "\xef\xbb\xbf"+`{"name": "BOM", "version": "1.0"}`)

	mod, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if mod.Manifest.Name != "BOM" {
		t.Errorf("Name = %q", mod.Manifest.Name)
	}
}

func TestLoadRejectsMissingName(t *testing.T) {
	t.Parallel()

	dir := writeMod(t, t.TempDir(), "anon", `{"version": "1.0"}`)

	_, err := Load(dir)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Load() error = %v, want *ParseError", err)
	}
}

func TestLoadMissingManifest(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "empty")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	var parseErr *ParseError
	if _, err := Load(dir); !errors.As(err, &parseErr) {
		t.Fatalf("Load() error = %v, want *ParseError", err)
	}
}

func TestDiscoverSkipsNonMods(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeMod(t, root, "beta", `{"name": "Beta", "version": "1"}`)
	writeMod(t, root, "alpha", `{"name": "Alpha", "version": "1"}`)
	if err := os.MkdirAll(filepath.Join(root, "not-a-mod"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "loose.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	dirs, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	want := []string{filepath.Join(root, "alpha"), filepath.Join(root, "beta")}
	if !reflect.DeepEqual(dirs, want) {
		t.Errorf("Discover() = %v, want %v", dirs, want)
	}
}

func TestResolveDefaultsZeroValues(t *testing.T) {
	t.Parallel()

	settings, err := ResolveDefaults([]Option{
		{Type: OptionCheckbox, ID: "flag"},
		{Type: OptionNumber, ID: "count"},
		{Type: OptionText, ID: "label"},
	})
	if err != nil {
		t.Fatalf("ResolveDefaults() error = %v", err)
	}
	want := map[string]any{"flag": false, "count": float64(0), "label": ""}
	if !reflect.DeepEqual(settings, want) {
		t.Errorf("settings = %v, want %v", settings, want)
	}
}

func TestResolveDefaultsTypeMismatch(t *testing.T) {
	t.Parallel()

	_, err := ResolveDefaults([]Option{
		{Type: OptionCheckbox, ID: "flag", DefaultValue: json.RawMessage(`"yes"`)},
	})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want *ConfigError", err)
	}
	if cfgErr.OptionKey != "flag" {
		t.Errorf("OptionKey = %q, want flag", cfgErr.OptionKey)
	}
}

func TestResolveDefaultsSelectOutsideChoices(t *testing.T) {
	t.Parallel()

	_, err := ResolveDefaults([]Option{
		{
			Type:         OptionSelect,
			ID:           "mode",
			DefaultValue: json.RawMessage(`"turbo"`),
			Options: []SelectChoice{
				{Label: "Fast", Value: json.RawMessage(`"fast"`)},
			},
		},
	})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want *ConfigError", err)
	}
}

func TestResolveDefaultsNameFallbackKey(t *testing.T) {
	t.Parallel()

	settings, err := ResolveDefaults([]Option{
		{Type: OptionText, Name: "Greeting", DefaultValue: json.RawMessage(`"hi"`)},
	})
	if err != nil {
		t.Fatalf("ResolveDefaults() error = %v", err)
	}
	if settings["Greeting"] != "hi" {
		t.Errorf("settings = %v", settings)
	}
}
