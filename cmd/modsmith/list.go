// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"modsmith/internal/manifest"
	"modsmith/internal/script"

	"github.com/spf13/cobra"
)

var (
	listModsPath string

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List discovered mods",
		Long: `List every mod found under the mods directory, with its
manifest metadata and the engine its entry script selects.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd)
		},
	}
)

func init() {
	listCmd.Flags().StringVar(&listModsPath, "mods", "", "directory containing mod subdirectories (overrides config)")
}

func runList(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}

	modsPath := firstNonEmpty(listModsPath, string(cfg.ModsPath))
	dirs, err := manifest.Discover(modsPath)
	if err != nil {
		return err
	}
	if len(dirs) == 0 {
		fmt.Println(SubtitleStyle.Render("No mods found under " + modsPath))
		return nil
	}

	fmt.Println(TitleStyle.Render("Mods") + SubtitleStyle.Render(" ("+modsPath+")"))
	fmt.Println()
	for _, dir := range dirs {
		mod, err := manifest.Load(dir)
		if err != nil {
			fmt.Printf("  %s %s: %v\n", ErrorStyle.Render("✗"), ModStyle.Render(filepath.Base(dir)), err)
			continue
		}

		label := mod.Manifest.Name
		if mod.Manifest.Version != "" {
			label += " " + mod.Manifest.Version
		}
		fmt.Printf("  %s %s\n", SuccessStyle.Render("•"), ModStyle.Render(label))
		if mod.Manifest.Author != "" {
			fmt.Printf("      %s %s\n", SubtitleStyle.Render("author:"), mod.Manifest.Author)
		}
		if mod.Manifest.Description != "" {
			fmt.Printf("      %s\n", VerboseStyle.Render(mod.Manifest.Description))
		}
		fmt.Printf("      %s %s  %s %d\n",
			SubtitleStyle.Render("engine:"), describeEntryScript(dir),
			SubtitleStyle.Render("settings:"), len(mod.Settings))
	}
	return nil
}

// describeEntryScript reports which entry file a mod directory carries.
func describeEntryScript(dir string) string {
	switch {
	case fileExistsCheck(filepath.Join(dir, script.LuaEntryFile)):
		return "lua"
	case fileExistsCheck(filepath.Join(dir, script.JSEntryFile)):
		return "js"
	default:
		return "none"
	}
}
