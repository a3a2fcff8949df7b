// SPDX-License-Identifier: MPL-2.0

// Package script runs mod scripts against the host API. A mod is
// written in either Lua or JavaScript; both engines bind the same host
// operations and differ only in value conversion. Each runtime walks a
// linear lifecycle: construct, bind the API, bind the mod's config,
// execute the entry script once, clean up.
package script

import (
	"fmt"
)

// Engine identifies a script engine binding.
type Engine string

const (
	// EngineLua runs mod.lua entries through gopher-lua.
	EngineLua Engine = "lua"
	// EngineJS runs mod.js entries through goja.
	EngineJS Engine = "js"
)

// Entry file names checked by the selector, in priority order.
const (
	LuaEntryFile = "mod.lua"
	JSEntryFile  = "mod.js"
)

// State is a runtime's lifecycle stage. Transitions are strictly
// linear; execution happens exactly once.
type State int

const (
	StateConstructed State = iota
	StateAPIBound
	StateConfigBound
	StateExecuted
	StateCleanedUp
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateAPIBound:
		return "api-bound"
	case StateConfigBound:
		return "config-bound"
	case StateExecuted:
		return "executed"
	case StateCleanedUp:
		return "cleaned-up"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Runtime is one mod's script engine instance.
type Runtime interface {
	// Engine reports which binding this runtime is.
	Engine() Engine

	// SetupAPI binds every host operation plus the console logger into
	// the engine's global namespace.
	SetupAPI() error

	// SetupConfig injects the mod's resolved configuration values as a
	// global, converted into the engine's native types.
	SetupConfig(config map[string]any) error

	// Execute loads and runs the mod's entry script. It may be called
	// only once; failures carry the mod id and any engine-reported
	// location.
	Execute() error

	// Cleanup releases engine resources. Safe to call after a failed
	// Execute and safe to call more than once.
	Cleanup() error
}

// ExecutionError is a script failure: an engine-level syntax or
// runtime exception, or an explicit error raised by the mod.
type ExecutionError struct {
	ModID  string
	Engine Engine
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("mod %s (%s): %v", e.ModID, e.Engine, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// lifecycle enforces the linear state machine shared by both bindings.
type lifecycle struct {
	state State
}

// advance moves to the next stage. Cleanup is reachable from any stage
// and is idempotent; every other transition must be exactly one step
// forward.
func (l *lifecycle) advance(to State) error {
	if to == StateCleanedUp {
		l.state = StateCleanedUp
		return nil
	}
	if to != l.state+1 {
		return fmt.Errorf("invalid transition %s -> %s", l.state, to)
	}
	l.state = to
	return nil
}
