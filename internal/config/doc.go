// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with TOML as the file format.
//
// Configuration is loaded from ~/.config/modsmith/config.toml (or XDG equivalent on Linux,
// ~/Library/Application Support/modsmith/config.toml on macOS, %APPDATA%\modsmith\config.toml
// on Windows), with MODSMITH_* environment variables layered on top. The package provides
// type-safe configuration access for the game path, mods path, output path, download cache,
// and UI settings.
package config
