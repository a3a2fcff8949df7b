// SPDX-License-Identifier: MPL-2.0

package modsrc

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// branchArchive builds a zip the way GitHub serves branch archives: a
// single repo-branch root directory wrapping the tree.
func branchArchive(t *testing.T, root string, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(root + "/" + name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFetchUnpacksArchive(t *testing.T) {
	t.Parallel()

	archive := branchArchive(t, "runes-main", map[string]string{
		"mod.json": `{"name": "Runes", "version": "1.0"}`,
		"mod.lua":  `-- entry`,
	})

	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Path != "/alice/runes/zip/refs/heads/main" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write(archive)
	}))
	defer server.Close()

	d := NewDownloader(t.TempDir(), WithBaseURL(server.URL))
	src, err := Parse("github:alice/runes")
	if err != nil {
		t.Fatal(err)
	}

	dir, err := d.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "mod.json")); err != nil {
		t.Errorf("mod.json not unpacked: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "mod.lua")); err != nil {
		t.Errorf("mod.lua not unpacked: %v", err)
	}

	// A second fetch is a cache hit.
	if _, err := d.Fetch(context.Background(), src); err != nil {
		t.Fatalf("second Fetch() error = %v", err)
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1", requests)
	}
}

func TestFetchSubdir(t *testing.T) {
	t.Parallel()

	archive := branchArchive(t, "pack-main", map[string]string{
		"mods/lite/mod.json": `{"name": "Lite", "version": "1.0"}`,
		"README.md":          "docs",
	})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer server.Close()

	d := NewDownloader(t.TempDir(), WithBaseURL(server.URL))
	src, err := Parse("github:alice/pack:mods/lite")
	if err != nil {
		t.Fatal(err)
	}

	dir, err := d.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "mod.json")); err != nil {
		t.Errorf("subdir manifest missing: %v", err)
	}
}

func TestFetchMissingSubdir(t *testing.T) {
	t.Parallel()

	archive := branchArchive(t, "pack-main", map[string]string{"README.md": "docs"})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer server.Close()

	d := NewDownloader(t.TempDir(), WithBaseURL(server.URL))
	src, err := Parse("github:alice/pack:no/such/dir")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := d.Fetch(context.Background(), src); err == nil {
		t.Error("Fetch() should fail for a missing subdir")
	}
}

func TestFetchHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	d := NewDownloader(t.TempDir(), WithBaseURL(server.URL))
	src, err := Parse("github:alice/missing")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := d.Fetch(context.Background(), src); err == nil {
		t.Error("Fetch() should fail on a 404")
	}
}

func TestFetchRejectsLocalSource(t *testing.T) {
	t.Parallel()

	d := NewDownloader(t.TempDir())
	if _, err := d.Fetch(context.Background(), Source{Kind: KindLocal, Path: "x"}); err == nil {
		t.Error("Fetch() should reject local sources")
	}
}

func TestClearCache(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	nested := filepath.Join(cacheDir, "alice", "runes", "main")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(nested, "mod.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	d := NewDownloader(cacheDir)
	if err := d.ClearCache(); err != nil {
		t.Fatalf("ClearCache() error = %v", err)
	}
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		t.Fatalf("cache dir should still exist: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("cache dir not empty: %v", entries)
	}
}
