// SPDX-License-Identifier: MPL-2.0

// Package archive defines the contract for the game's read-only data
// archive and provides a directory-backed store for loose installs.
//
// The archive format is inconsistent about path separators and entry
// namespacing, so every lookup tries a fixed sequence of path variants
// (see Variants) until one resolves.
package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrEntryNotFound is returned by Store.Entry when no path variant
// resolves to an archive entry.
var ErrEntryNotFound = errors.New("archive entry not found")

type (
	// Store is an open game data archive.
	Store interface {
		// Entry resolves a single path-variant string to an archive
		// entry, returning ErrEntryNotFound when the variant does not
		// exist. Callers iterate Variants(path) themselves so that test
		// doubles can observe the attempted order.
		Entry(name string) (Entry, error)
		Close() error
	}

	// Entry is a single readable archive entry.
	Entry interface {
		// Extract copies the entry's bytes to w.
		Extract(w io.Writer) (int64, error)
	}
)

// Variants returns the lookup strings to try for a logical path, in
// fixed fallback order: the archive's namespaced prefix with each
// separator convention, the path as given, then each bare separator
// convention.
func Variants(path string) []string {
	backslashed := strings.ReplaceAll(path, "/", "\\")
	forwardslashed := strings.ReplaceAll(path, "\\", "/")
	return []string{
		"data:data\\" + backslashed,
		"data:data/" + forwardslashed,
		path,
		backslashed,
		forwardslashed,
	}
}

// DirStore serves archive entries out of a plain directory tree. It
// backs loose (pre-extracted) game installs and tests; the real CASC
// decoder lives behind the same Store interface in an external
// binding.
type DirStore struct {
	root string
}

// OpenDir opens a directory-backed store rooted at root. Like the
// game's own layout, a Data subdirectory is preferred when present.
func OpenDir(root string) (*DirStore, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("open archive dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open archive dir: %s is not a directory", root)
	}

	dataDir := filepath.Join(root, "Data")
	if info, err := os.Stat(dataDir); err == nil && info.IsDir() {
		root = dataDir
	}

	return &DirStore{root: root}, nil
}

// Entry resolves a single variant against the directory tree.
func (s *DirStore) Entry(name string) (Entry, error) {
	rel := strings.TrimPrefix(name, "data:data\\")
	rel = strings.TrimPrefix(rel, "data:data/")
	rel = filepath.FromSlash(strings.ReplaceAll(rel, "\\", "/"))

	full := filepath.Join(s.root, rel)
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	return &fileEntry{path: full}, nil
}

func (s *DirStore) Close() error { return nil }

type fileEntry struct {
	path string
}

func (e *fileEntry) Extract(w io.Writer) (int64, error) {
	f, err := os.Open(e.path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(w, f)
}
