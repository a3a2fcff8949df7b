// SPDX-License-Identifier: MPL-2.0

// Package manifest loads mod metadata from mod.json files. A manifest
// names the mod and declares its config options; resolving the options
// produces the settings map handed to the mod's script as the config
// global.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
)

// FileName is the manifest file every mod directory must carry.
const FileName = "mod.json"

// OptionType discriminates config option declarations.
type OptionType string

const (
	OptionCheckbox OptionType = "checkbox"
	OptionNumber   OptionType = "number"
	OptionText     OptionType = "text"
	OptionSelect   OptionType = "select"
	// OptionSection is a visual grouping marker. It contributes no
	// setting.
	OptionSection OptionType = "section"
)

// SelectChoice is one entry of a select option.
type SelectChoice struct {
	Label string          `json:"label"`
	Value json.RawMessage `json:"value"`
}

// Option declares one config knob of a mod.
type Option struct {
	Type         OptionType      `json:"type"`
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	DefaultValue json.RawMessage `json:"defaultValue,omitempty"`
	Options      []SelectChoice  `json:"options,omitempty"`
}

// Key is the settings-map key for this option: the id when declared,
// the display name otherwise.
func (o Option) Key() string {
	if o.ID != "" {
		return o.ID
	}
	return o.Name
}

// Manifest is the parsed mod.json.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Author      string   `json:"author,omitempty"`
	Description string   `json:"description,omitempty"`
	Website     string   `json:"website,omitempty"`
	Config      []Option `json:"config,omitempty"`
}

// Mod is a loaded mod: its directory, its manifest, and the settings
// resolved from the manifest's config defaults.
type Mod struct {
	ID       string
	Path     string
	Manifest Manifest
	Settings map[string]any
}

// ParseError is a malformed or incomplete manifest.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("manifest %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConfigError is an invalid config option declaration.
type ConfigError struct {
	OptionKey string
	Reason    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config option %q: %s", e.OptionKey, e.Reason)
}

// Load reads a mod from its directory. The directory's base name
// becomes the mod id.
func Load(dir string) (*Mod, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if m.Name == "" {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("missing name")}
	}

	settings, err := ResolveDefaults(m.Config)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	return &Mod{
		ID:       filepath.Base(dir),
		Path:     dir,
		Manifest: m,
		Settings: settings,
	}, nil
}

// Discover lists the subdirectories of dir that carry a manifest,
// sorted by name. Entries without one are not mods and are skipped.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(dir, entry.Name())
		if _, err := os.Stat(filepath.Join(candidate, FileName)); err != nil {
			continue
		}
		dirs = append(dirs, candidate)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// ResolveDefaults turns option declarations into the settings map the
// mod's script sees. Sections are skipped; every other option needs a
// key and a default matching its declared type.
func ResolveDefaults(options []Option) (map[string]any, error) {
	settings := make(map[string]any, len(options))

	for _, opt := range options {
		if opt.Type == OptionSection {
			continue
		}
		key := opt.Key()
		if key == "" {
			return nil, &ConfigError{OptionKey: "(unnamed)", Reason: "has neither id nor name"}
		}

		value, err := opt.defaultValue()
		if err != nil {
			return nil, err
		}
		settings[key] = value
	}
	return settings, nil
}

func (o Option) defaultValue() (any, error) {
	key := o.Key()

	if len(o.DefaultValue) == 0 {
		switch o.Type {
		case OptionCheckbox:
			return false, nil
		case OptionNumber:
			return float64(0), nil
		case OptionText:
			return "", nil
		case OptionSelect:
			return nil, &ConfigError{OptionKey: key, Reason: "select option needs a defaultValue"}
		default:
			return nil, &ConfigError{OptionKey: key, Reason: fmt.Sprintf("unknown type %q", o.Type)}
		}
	}

	var value any
	if err := json.Unmarshal(o.DefaultValue, &value); err != nil {
		return nil, &ConfigError{OptionKey: key, Reason: fmt.Sprintf("invalid defaultValue: %v", err)}
	}

	switch o.Type {
	case OptionCheckbox:
		if _, ok := value.(bool); !ok {
			return nil, &ConfigError{OptionKey: key, Reason: "checkbox default must be a boolean"}
		}
	case OptionNumber:
		if _, ok := value.(float64); !ok {
			return nil, &ConfigError{OptionKey: key, Reason: "number default must be numeric"}
		}
	case OptionText:
		if _, ok := value.(string); !ok {
			return nil, &ConfigError{OptionKey: key, Reason: "text default must be a string"}
		}
	case OptionSelect:
		if len(o.Options) == 0 {
			return nil, &ConfigError{OptionKey: key, Reason: "select option has no choices"}
		}
		if !o.hasChoice(value) {
			return nil, &ConfigError{OptionKey: key, Reason: "default is not one of the declared choices"}
		}
	default:
		return nil, &ConfigError{OptionKey: key, Reason: fmt.Sprintf("unknown type %q", o.Type)}
	}
	return value, nil
}

func (o Option) hasChoice(value any) bool {
	for _, choice := range o.Options {
		var choiceValue any
		if err := json.Unmarshal(choice.Value, &choiceValue); err != nil {
			continue
		}
		if reflect.DeepEqual(choiceValue, value) {
			return true
		}
	}
	return false
}
