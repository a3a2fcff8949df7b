// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, resolved, err := loadWithOptions(context.Background(), LoadOptions{
		ConfigDirPath: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if resolved != "" {
		t.Errorf("resolved path = %q, want empty", resolved)
	}
	if cfg.ModsPath != "mods" || cfg.OutputPath != "output" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("ColorScheme = %q, want auto", cfg.UI.ColorScheme)
	}
}

func TestLoadFromConfigDir(t *testing.T) {
	dir := t.TempDir()
	content := "game_path = \"/games/d2\"\n\n[ui]\nverbose = true\n"
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if resolved != path {
		t.Errorf("resolved = %q, want %q", resolved, path)
	}
	if cfg.GamePath != "/games/d2" {
		t.Errorf("GamePath = %q", cfg.GamePath)
	}
	if !cfg.UI.Verbose {
		t.Error("ui.verbose should be true")
	}
	// Unset fields keep their defaults.
	if cfg.ModsPath != "mods" {
		t.Errorf("ModsPath = %q, want default", cfg.ModsPath)
	}
}

func TestLoadExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")
	if err := os.WriteFile(path, []byte("output_path = \"out\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if resolved != path {
		t.Errorf("resolved = %q, want %q", resolved, path)
	}
	if cfg.OutputPath != "out" {
		t.Errorf("OutputPath = %q", cfg.OutputPath)
	}
}

func TestLoadExplicitFileMissing(t *testing.T) {
	_, _, err := loadWithOptions(context.Background(), LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "nope.toml"),
	})
	if err == nil {
		t.Fatal("missing explicit config file should fail")
	}
}

func TestLoadMalformedTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte("game_path = \n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir}); err == nil {
		t.Fatal("malformed TOML should fail")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MODSMITH_GAME_PATH", "/env/game")

	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if cfg.GamePath != "/env/game" {
		t.Errorf("GamePath = %q, want env override", cfg.GamePath)
	}
}

func TestLoadCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := loadWithOptions(ctx, LoadOptions{ConfigDirPath: t.TempDir()}); err == nil {
		t.Fatal("canceled context should fail")
	}
}

func TestGenerateTOMLRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.GamePath = "/games/d2"

	content, err := GenerateTOML(cfg)
	if err != nil {
		t.Fatalf("GenerateTOML() error = %v", err)
	}
	if !strings.HasPrefix(content, "# Modsmith Configuration File") {
		t.Error("generated file should start with the header comment")
	}
	if !strings.Contains(content, "game_path = '/games/d2'") &&
		!strings.Contains(content, `game_path = "/games/d2"`) {
		t.Errorf("generated file missing game_path:\n%s", content)
	}
	if !strings.Contains(content, "[ui]") {
		t.Errorf("generated file missing [ui] table:\n%s", content)
	}
}

func TestCreateDefaultConfigIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	if err := CreateDefaultConfig(); err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// Second call leaves the existing file alone.
	if err := os.WriteFile(path, append(first, []byte("# edited\n")...), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CreateDefaultConfig(); err != nil {
		t.Fatalf("second CreateDefaultConfig() error = %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(second), "# edited") {
		t.Error("CreateDefaultConfig() overwrote an existing file")
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	cfg := DefaultConfig()
	cfg.GamePath = "/games/d2"
	cfg.UI.Verbose = true
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("reload error = %v", err)
	}
	if loaded.GamePath != "/games/d2" || !loaded.UI.Verbose {
		t.Errorf("reloaded = %+v", loaded)
	}
}
