// SPDX-License-Identifier: MPL-2.0

package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"modsmith/internal/archive"
	"modsmith/internal/filecache"
)

// fakeStore records every variant lookup and serves a fixed set of
// entries keyed by exact variant string.
type fakeStore struct {
	entries  map[string][]byte
	attempts []string
}

func (s *fakeStore) Entry(name string) (archive.Entry, error) {
	s.attempts = append(s.attempts, name)
	content, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", archive.ErrEntryNotFound, name)
	}
	return fakeEntry(content), nil
}

func (s *fakeStore) Close() error { return nil }

type fakeEntry []byte

func (e fakeEntry) Extract(w io.Writer) (int64, error) {
	n, err := io.Copy(w, bytes.NewReader(e))
	return n, err
}

func TestEnsureAvailablePrefersCache(t *testing.T) {
	t.Parallel()

	cache := filecache.New(t.TempDir(), nil)
	cache.WriteCached("items.json", []byte("cached"), "modA")

	store := &fakeStore{entries: map[string][]byte{"items.json": []byte("archived")}}
	g := New(cache, store, "", nil)

	got, err := g.EnsureAvailable(context.Background(), "items.json", "modB")
	if err != nil {
		t.Fatalf("EnsureAvailable() error = %v", err)
	}
	if string(got) != "cached" {
		t.Errorf("EnsureAvailable() = %q, want cached edit", got)
	}
	if len(store.attempts) != 0 {
		t.Errorf("archive consulted despite cache hit: %v", store.attempts)
	}
}

func TestEnsureAvailableVariantOrder(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	cache := filecache.New(out, nil)

	// Only the bare forward-slash variant (the last one) exists.
	store := &fakeStore{entries: map[string][]byte{
		"global/excel/x.txt": []byte("content"),
	}}
	g := New(cache, store, "", nil)

	got, err := g.EnsureAvailable(context.Background(), "global\\excel\\x.txt", "mod1")
	if err != nil {
		t.Fatalf("EnsureAvailable() error = %v", err)
	}
	if string(got) != "content" {
		t.Errorf("EnsureAvailable() = %q, want %q", got, "content")
	}

	if len(store.attempts) < 2 {
		t.Fatalf("attempts = %v, want at least two variants before success", store.attempts)
	}
	if !strings.HasPrefix(store.attempts[0], "data:data\\") {
		t.Errorf("first variant = %q, want namespaced backslash form", store.attempts[0])
	}
	if !strings.HasPrefix(store.attempts[1], "data:data/") {
		t.Errorf("second variant = %q, want namespaced forward-slash form", store.attempts[1])
	}

	// Extraction materialized the output copy and recorded provenance.
	if _, err := os.Stat(filepath.Join(out, "global", "excel", "x.txt")); err != nil {
		t.Errorf("output copy missing after extraction: %v", err)
	}
	rec, ok := cache.Status("global/excel/x.txt")
	if !ok || !rec.Extracted {
		t.Errorf("Status() = %+v, %v, want extracted record", rec, ok)
	}
}

func TestEnsureAvailableOutputCopyReuse(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	cache := filecache.New(out, nil)
	store := &fakeStore{entries: map[string][]byte{
		"data:data\\a.txt": []byte("v1"),
	}}
	g := New(cache, store, "", nil)

	if _, err := g.EnsureAvailable(context.Background(), "a.txt", "mod1"); err != nil {
		t.Fatalf("first EnsureAvailable() error = %v", err)
	}

	firstAttempts := len(store.attempts)
	if _, err := g.EnsureAvailable(context.Background(), "a.txt", "mod2"); err != nil {
		t.Fatalf("second EnsureAvailable() error = %v", err)
	}
	if len(store.attempts) != firstAttempts {
		t.Errorf("archive consulted again for an already extracted file")
	}
}

func TestEnsureAvailableGameDirFallback(t *testing.T) {
	t.Parallel()

	game := t.TempDir()
	if err := os.MkdirAll(filepath.Join(game, "global"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(game, "global", "loose.txt"), []byte("loose"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := t.TempDir()
	cache := filecache.New(out, nil)
	g := New(cache, nil, game, nil)

	got, err := g.EnsureAvailable(context.Background(), "Global\\loose.txt", "mod1")
	if err != nil {
		t.Fatalf("EnsureAvailable() error = %v", err)
	}
	if string(got) != "loose" {
		t.Errorf("EnsureAvailable() = %q, want %q", got, "loose")
	}
	if _, err := os.Stat(filepath.Join(out, "global", "loose.txt")); err != nil {
		t.Errorf("output copy missing after game-dir fallback: %v", err)
	}
}

func TestEnsureAvailableNotFound(t *testing.T) {
	t.Parallel()

	cache := filecache.New(t.TempDir(), nil)
	store := &fakeStore{entries: map[string][]byte{}}
	g := New(cache, store, t.TempDir(), nil)

	_, err := g.EnsureAvailable(context.Background(), "nope.txt", "mod1")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("EnsureAvailable() error = %v, want *NotFoundError", err)
	}
	if nf.Path != "nope.txt" {
		t.Errorf("NotFoundError.Path = %q, want %q", nf.Path, "nope.txt")
	}
	if len(nf.Attempted) != 5 {
		t.Errorf("len(Attempted) = %d, want all 5 variants", len(nf.Attempted))
	}
}

func TestEnsureAvailableCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := New(filecache.New(t.TempDir(), nil), nil, "", nil)
	if _, err := g.EnsureAvailable(ctx, "a.txt", "mod1"); !errors.Is(err, context.Canceled) {
		t.Errorf("EnsureAvailable() error = %v, want context.Canceled", err)
	}
}
