// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"modsmith/internal/app/install"
	"modsmith/internal/config"
	"modsmith/internal/issue"
	"modsmith/internal/manifest"
	"modsmith/internal/modsrc"

	"github.com/spf13/cobra"
)

var (
	installGamePath   string
	installModsPath   string
	installModList    string
	installOutputPath string
	installDryRun     bool
	installNoLua      bool
	installNoJS       bool
	installClearCache bool

	installCmd = &cobra.Command{
		Use:   "install",
		Short: "Run mod scripts and write the combined output tree",
		Long: `Run every mod's script against the game data and flush the
combined edits to the output directory.

Mods come either from the mods directory (every subdirectory with a
mod.json) or, with --mod-list, from a list file where each line is a
local path or a github:owner/repo[:subdir][@branch] reference.

A failing mod is reported and skipped; the remaining mods still run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context())
		},
	}
)

func init() {
	installCmd.Flags().StringVar(&installGamePath, "game", "", "game installation root (overrides config)")
	installCmd.Flags().StringVar(&installModsPath, "mods", "", "directory containing mod subdirectories (overrides config)")
	installCmd.Flags().StringVar(&installModList, "mod-list", "", "mod list file instead of the mods directory")
	installCmd.Flags().StringVar(&installOutputPath, "output", "", "output directory for the generated mod (overrides config)")
	installCmd.Flags().BoolVar(&installDryRun, "dry-run", false, "execute scripts without writing any files")
	installCmd.Flags().BoolVar(&installNoLua, "no-lua", false, "disable the Lua engine")
	installCmd.Flags().BoolVar(&installNoJS, "no-js", false, "disable the JavaScript engine")
	installCmd.Flags().BoolVar(&installClearCache, "clear-cache", false, "clear the download cache before fetching")
}

func runInstall(ctx context.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		rendered, _ := issue.Get(issue.ConfigLoadFailedId).Render("dark")
		fmt.Fprint(os.Stderr, rendered)
		return err
	}

	gamePath := firstNonEmpty(installGamePath, string(cfg.GamePath))
	if gamePath == "" {
		return fmt.Errorf("no game path: pass --game or set game_path in the config")
	}
	outputPath := firstNonEmpty(installOutputPath, string(cfg.OutputPath))

	modDirs, err := resolveModDirs(ctx, cfg)
	if err != nil {
		return err
	}
	if len(modDirs) == 0 {
		fmt.Println(SubtitleStyle.Render("No mods found, nothing to do."))
		return nil
	}

	result, err := install.New(slog.Default()).Run(ctx, install.Options{
		GamePath:   gamePath,
		ModDirs:    modDirs,
		OutputPath: outputPath,
		DryRun:     installDryRun,
		DisableLua: installNoLua,
		DisableJS:  installNoJS,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
		if result != nil {
			renderInstallSummary(result)
		}
		return &ExitError{Code: 1, Err: err}
	}
	renderInstallSummary(result)

	if result.Failed() == len(result.Mods) {
		return &ExitError{Code: 1, Err: fmt.Errorf("all %d mods failed", len(result.Mods))}
	}
	return nil
}

// resolveModDirs turns the configured mod source into concrete mod
// directories, fetching GitHub references through the download cache.
func resolveModDirs(ctx context.Context, cfg *config.Config) ([]string, error) {
	if installModList == "" {
		modsPath := firstNonEmpty(installModsPath, string(cfg.ModsPath))
		dirs, err := manifest.Discover(modsPath)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("discover mods").
				WithResource(modsPath).
				WithSuggestion("Create the mods directory or pass --mods").
				Wrap(err).
				BuildError()
		}
		return dirs, nil
	}

	sources, err := modsrc.LoadList(installModList)
	if err != nil {
		rendered, _ := issue.Get(issue.SourceListParseErrorId).Render("dark")
		fmt.Fprint(os.Stderr, rendered)
		return nil, err
	}

	cacheDir := string(cfg.CacheDir)
	if cacheDir == "" {
		if cacheDir, err = config.DefaultCacheDir(); err != nil {
			return nil, err
		}
	}
	dl := modsrc.NewDownloader(cacheDir)
	if installClearCache {
		if err := dl.ClearCache(); err != nil {
			return nil, err
		}
	}

	listDir := filepath.Dir(installModList)
	dirs := make([]string, 0, len(sources))
	for _, src := range sources {
		switch src.Kind {
		case modsrc.KindLocal:
			path := src.Path
			if !filepath.IsAbs(path) {
				path = filepath.Join(listDir, path)
			}
			dirs = append(dirs, path)
		case modsrc.KindGitHub:
			dir, err := dl.Fetch(ctx, src)
			if err != nil {
				rendered, _ := issue.Get(issue.DownloadFailedId).Render("dark")
				fmt.Fprint(os.Stderr, rendered)
				return nil, fmt.Errorf("fetching %s: %w", src.Raw, err)
			}
			dirs = append(dirs, dir)
		}
	}
	return dirs, nil
}

func renderInstallSummary(result *install.Result) {
	fmt.Println()
	fmt.Println(TitleStyle.Render("Install Summary"))
	for _, m := range result.Mods {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		if m.Err != nil {
			fmt.Printf("  %s %s: %s\n", ErrorStyle.Render("✗"), ModStyle.Render(name), m.Err)
			continue
		}
		label := name
		if m.Version != "" {
			label += " " + m.Version
		}
		fmt.Printf("  %s %s (%s)\n", SuccessStyle.Render("✓"), ModStyle.Render(label), m.Engine)
	}

	fmt.Println()
	if installDryRun {
		fmt.Printf("%s %d files would be written (%d tracked)\n",
			WarningStyle.Render("Dry run:"), result.Intended, result.Stats.Tracked)
		return
	}
	fmt.Printf("%s %d files written, %d mods run, %d failed\n",
		SuccessStyle.Render("Done:"), result.Written, len(result.Mods), result.Failed())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
