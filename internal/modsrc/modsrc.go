// SPDX-License-Identifier: MPL-2.0

// Package modsrc reads mod source lists. A list file names one source
// per line: a local directory, or a GitHub repository reference of the
// form github:owner/repo[:subdir][@branch] which the downloader
// materializes into a local cache.
package modsrc

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Kind discriminates source entries.
type Kind string

const (
	KindLocal  Kind = "local"
	KindGitHub Kind = "github"
)

// DefaultBranch is used when a GitHub reference names no branch.
const DefaultBranch = "main"

const githubPrefix = "github:"

// Source is one parsed mod source.
type Source struct {
	Kind Kind
	Raw  string

	// Path is set for local sources.
	Path string

	// GitHub reference fields.
	Owner  string
	Repo   string
	Subdir string
	Branch string
}

// ParseError is a malformed source line.
type ParseError struct {
	Line   int
	Entry  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("source line %d %q: %s", e.Line, e.Entry, e.Reason)
}

// Parse reads a single source entry.
func Parse(entry string) (Source, error) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return Source{}, fmt.Errorf("empty source entry")
	}

	if !strings.HasPrefix(entry, githubPrefix) {
		return Source{Kind: KindLocal, Raw: entry, Path: entry}, nil
	}

	ref := strings.TrimPrefix(entry, githubPrefix)
	branch := DefaultBranch
	if at := strings.LastIndex(ref, "@"); at >= 0 {
		branch = ref[at+1:]
		ref = ref[:at]
		if branch == "" {
			return Source{}, fmt.Errorf("empty branch in %q", entry)
		}
	}

	subdir := ""
	if colon := strings.Index(ref, ":"); colon >= 0 {
		subdir = ref[colon+1:]
		ref = ref[:colon]
	}

	owner, repo, ok := strings.Cut(ref, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return Source{}, fmt.Errorf("reference %q is not owner/repo", entry)
	}

	return Source{
		Kind:   KindGitHub,
		Raw:    entry,
		Owner:  owner,
		Repo:   repo,
		Subdir: subdir,
		Branch: branch,
	}, nil
}

// LoadList parses a source list file. Blank lines and lines starting
// with # are skipped.
func LoadList(path string) ([]Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sources []Source
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		src, err := Parse(line)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Entry: line, Reason: err.Error()}
		}
		sources = append(sources, src)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return sources, nil
}
