// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for modsmith.
//
// This package implements the Cobra command hierarchy for the modsmith
// CLI: the root command, the install pipeline, mod listing and
// validation, and configuration management.
package cmd
