// SPDX-License-Identifier: MPL-2.0

package modsrc

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParseLocal(t *testing.T) {
	t.Parallel()

	src, err := Parse("mods/expanded-stash")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if src.Kind != KindLocal || src.Path != "mods/expanded-stash" {
		t.Errorf("Parse() = %+v", src)
	}
}

func TestParseGitHub(t *testing.T) {
	t.Parallel()

	cases := []struct {
		entry string
		want  Source
	}{
		{
			entry: "github:alice/runes",
			want:  Source{Kind: KindGitHub, Owner: "alice", Repo: "runes", Branch: "main"},
		},
		{
			entry: "github:alice/runes@dev",
			want:  Source{Kind: KindGitHub, Owner: "alice", Repo: "runes", Branch: "dev"},
		},
		{
			entry: "github:alice/runes:mods/lite",
			want:  Source{Kind: KindGitHub, Owner: "alice", Repo: "runes", Subdir: "mods/lite", Branch: "main"},
		},
		{
			entry: "github:alice/runes:mods/lite@v2",
			want:  Source{Kind: KindGitHub, Owner: "alice", Repo: "runes", Subdir: "mods/lite", Branch: "v2"},
		},
	}
	for _, tc := range cases {
		got, err := Parse(tc.entry)
		if err != nil {
			t.Errorf("Parse(%q) error = %v", tc.entry, err)
			continue
		}
		tc.want.Raw = tc.entry
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Parse(%q) = %+v, want %+v", tc.entry, got, tc.want)
		}
	}
}

func TestParseRejectsMalformedReference(t *testing.T) {
	t.Parallel()

	for _, entry := range []string{
		"github:",
		"github:norepo",
		"github:a/b/c",
		"github:alice/runes@",
	} {
		if _, err := Parse(entry); err == nil {
			t.Errorf("Parse(%q) should fail", entry)
		}
	}
}

func TestLoadList(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mods.txt")
	content := "# enabled mods\nmods/local-one\n\ngithub:alice/runes@dev\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	sources, err := LoadList(path)
	if err != nil {
		t.Fatalf("LoadList() error = %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(sources))
	}
	if sources[0].Kind != KindLocal || sources[1].Branch != "dev" {
		t.Errorf("sources = %+v", sources)
	}
}

func TestLoadListReportsLine(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mods.txt")
	if err := os.WriteFile(path, []byte("good/mod\ngithub:broken\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadList(path)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("LoadList() error = %v, want *ParseError", err)
	}
	if parseErr.Line != 2 {
		t.Errorf("Line = %d, want 2", parseErr.Line)
	}
}
