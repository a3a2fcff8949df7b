// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"modsmith/internal/manifest"
	"modsmith/internal/script"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <mod-dir>",
	Short: "Validate a single mod directory",
	Long: `Validate a mod directory: the manifest must parse, its option
defaults must match their declared types, and an entry script must be
present.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(args[0])
	},
}

func runValidate(dir string) error {
	mod, err := manifest.Load(dir)
	if err != nil {
		fmt.Printf("%s %s\n", ErrorStyle.Render("✗"), err)
		return &ExitError{Code: 1, Err: err}
	}
	fmt.Printf("%s manifest ok: %s\n", SuccessStyle.Render("✓"), ModStyle.Render(mod.Manifest.Name))

	engine := describeEntryScript(dir)
	if engine == "none" {
		err := fmt.Errorf("%s: %w", dir, script.ErrNoScriptFound)
		fmt.Printf("%s %s\n", ErrorStyle.Render("✗"), err)
		return &ExitError{Code: 1, Err: err}
	}
	fmt.Printf("%s entry script ok: %s\n", SuccessStyle.Render("✓"), engine)

	for key, value := range mod.Settings {
		fmt.Printf("  %s = %v\n", VerboseStyle.Render(key), value)
	}
	return nil
}

// fileExistsCheck reports whether path exists and is a regular file.
func fileExistsCheck(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
