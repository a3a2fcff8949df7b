// SPDX-License-Identifier: MPL-2.0

package modsrc

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// maxArchiveBytes bounds a downloaded repository archive (100 MB).
const maxArchiveBytes = 100 << 20

// Downloader fetches GitHub sources as branch zip archives and unpacks
// them into an on-disk cache, one directory per owner/repo/branch. A
// populated cache directory is reused without touching the network.
type Downloader struct {
	httpClient *http.Client
	baseURL    string
	cacheDir   string
	userAgent  string
}

// DownloaderOption configures a Downloader during construction.
type DownloaderOption func(*Downloader)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) DownloaderOption {
	return func(d *Downloader) { d.httpClient = c }
}

// WithBaseURL overrides the archive host, primarily for test servers.
func WithBaseURL(base string) DownloaderOption {
	return func(d *Downloader) { d.baseURL = strings.TrimRight(base, "/") }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) DownloaderOption {
	return func(d *Downloader) { d.userAgent = ua }
}

// NewDownloader creates a Downloader caching under cacheDir.
func NewDownloader(cacheDir string, opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		httpClient: http.DefaultClient,
		baseURL:    "https://codeload.github.com",
		cacheDir:   cacheDir,
		userAgent:  "modsmith/dev",
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CacheDir returns the downloader's cache root.
func (d *Downloader) CacheDir() string { return d.cacheDir }

// Fetch materializes a GitHub source and returns the local directory
// holding the mod (the requested subdir of the unpacked archive).
func (d *Downloader) Fetch(ctx context.Context, src Source) (string, error) {
	if src.Kind != KindGitHub {
		return "", fmt.Errorf("source %q is not a GitHub reference", src.Raw)
	}

	dest := filepath.Join(d.cacheDir, src.Owner, src.Repo, src.Branch)
	if !dirPopulated(dest) {
		if err := d.download(ctx, src, dest); err != nil {
			return "", fmt.Errorf("downloading %s: %w", src.Raw, err)
		}
	}

	modDir := filepath.Join(dest, filepath.FromSlash(src.Subdir))
	if info, err := os.Stat(modDir); err != nil || !info.IsDir() {
		return "", fmt.Errorf("source %q: subdir %q not present in archive", src.Raw, src.Subdir)
	}
	return modDir, nil
}

// ClearCache removes every cached archive.
func (d *Downloader) ClearCache() error {
	if err := os.RemoveAll(d.cacheDir); err != nil {
		return err
	}
	return os.MkdirAll(d.cacheDir, 0o755)
}

func (d *Downloader) download(ctx context.Context, src Source, dest string) error {
	url := fmt.Sprintf("%s/%s/%s/zip/refs/heads/%s", d.baseURL, src.Owner, src.Repo, src.Branch)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveBytes))
	if err != nil {
		return err
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}
	return unpack(reader, dest)
}

// unpack extracts an archive under dest, dropping the top-level
// "repo-branch" directory GitHub puts at the root of branch archives.
func unpack(reader *zip.Reader, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	for _, file := range reader.File {
		rel := stripRoot(file.Name)
		if rel == "" {
			continue
		}
		if !filepath.IsLocal(filepath.FromSlash(rel)) {
			return fmt.Errorf("archive entry %q escapes the extraction root", file.Name)
		}

		target := filepath.Join(dest, filepath.FromSlash(rel))
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := writeEntry(file, target); err != nil {
			return fmt.Errorf("extracting %s: %w", file.Name, err)
		}
	}
	return nil
}

func writeEntry(file *zip.File, target string) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func stripRoot(name string) string {
	name = path.Clean(strings.TrimPrefix(name, "/"))
	_, rel, ok := strings.Cut(name, "/")
	if !ok {
		return ""
	}
	return rel
}

func dirPopulated(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}
