// SPDX-License-Identifier: MPL-2.0

package script

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"modsmith/internal/hostapi"
	"modsmith/internal/tabular"
)

// LuaRuntime runs a mod.lua entry through an embedded gopher-lua
// state. The state opens only the base, table, string, and math
// libraries; the os and io libraries and the file loaders never exist
// inside it, so scripts cannot reach the host filesystem except
// through the bound API.
type LuaRuntime struct {
	lifecycle

	ctx     context.Context
	modPath string
	core    *hostapi.Core
	vm      *lua.LState
}

// NewLuaRuntime allocates the Lua state for one mod.
func NewLuaRuntime(ctx context.Context, modPath string, core *hostapi.Core) *LuaRuntime {
	vm := lua.NewState(lua.Options{SkipOpenLibs: true})

	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		vm.Push(vm.NewFunction(lib.open))
		vm.Push(lua.LString(lib.name))
		vm.Call(1, 0)
	}

	// The base library still registers file loaders; drop them.
	for _, name := range []string{"dofile", "loadfile", "load", "require"} {
		vm.SetGlobal(name, lua.LNil)
	}

	return &LuaRuntime{ctx: ctx, modPath: modPath, core: core, vm: vm}
}

func (r *LuaRuntime) Engine() Engine { return EngineLua }

// SetupAPI binds the modsmith and console globals.
func (r *LuaRuntime) SetupAPI() error {
	if err := r.advance(StateAPIBound); err != nil {
		return err
	}

	api := r.vm.NewTable()

	r.vm.SetField(api, "getVersion", r.vm.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(r.core.GetVersion()))
		return 1
	}))

	r.vm.SetField(api, "getFullVersion", r.vm.NewFunction(func(L *lua.LState) int {
		major, minor, patch := r.core.GetFullVersion()
		tbl := L.NewTable()
		tbl.RawSetInt(1, lua.LNumber(major))
		tbl.RawSetInt(2, lua.LNumber(minor))
		tbl.RawSetInt(3, lua.LNumber(patch))
		L.Push(tbl)
		return 1
	}))

	r.vm.SetField(api, "readJson", r.hostFunc(func(L *lua.LState) (int, error) {
		value, err := r.core.ReadJSON(r.ctx, L.CheckString(1))
		if err != nil {
			return 0, err
		}
		L.Push(toLua(L, value))
		return 1, nil
	}))

	r.vm.SetField(api, "writeJson", r.hostFunc(func(L *lua.LState) (int, error) {
		path := L.CheckString(1)
		value, err := fromLua(L.CheckAny(2))
		if err != nil {
			return 0, err
		}
		return 0, r.core.WriteJSON(r.ctx, path, value)
	}))

	r.vm.SetField(api, "readTsv", r.hostFunc(func(L *lua.LState) (int, error) {
		table, err := r.core.ReadTSV(r.ctx, L.CheckString(1))
		if err != nil {
			return 0, err
		}
		L.Push(r.tableToLua(table))
		return 1, nil
	}))

	r.vm.SetField(api, "writeTsv", r.hostFunc(func(L *lua.LState) (int, error) {
		path := L.CheckString(1)
		table, err := luaToTable(L.CheckTable(2))
		if err != nil {
			return 0, err
		}
		return 0, r.core.WriteTSV(r.ctx, path, table)
	}))

	r.vm.SetField(api, "readTxt", r.hostFunc(func(L *lua.LState) (int, error) {
		content, err := r.core.ReadText(r.ctx, L.CheckString(1))
		if err != nil {
			return 0, err
		}
		L.Push(lua.LString(content))
		return 1, nil
	}))

	r.vm.SetField(api, "writeTxt", r.hostFunc(func(L *lua.LState) (int, error) {
		return 0, r.core.WriteText(r.ctx, L.CheckString(1), L.CheckString(2))
	}))

	r.vm.SetField(api, "copyFile", r.hostFunc(func(L *lua.LState) (int, error) {
		return 0, r.core.CopyFile(r.ctx, L.CheckString(1), L.CheckString(2), L.OptBool(3, false))
	}))

	r.vm.SetField(api, "extractFile", r.hostFunc(func(L *lua.LState) (int, error) {
		return 0, r.core.ExtractFile(r.ctx, L.CheckString(1))
	}))

	r.vm.SetField(api, "error", r.hostFunc(func(L *lua.LState) (int, error) {
		return 0, r.core.Throw(L.CheckString(1))
	}))

	r.vm.SetGlobal("modsmith", api)
	r.vm.SetGlobal("console", r.consoleTable())
	return nil
}

// SetupConfig injects the resolved config values as the config global.
func (r *LuaRuntime) SetupConfig(config map[string]any) error {
	if err := r.advance(StateConfigBound); err != nil {
		return err
	}

	tbl := r.vm.NewTable()
	for key, value := range config {
		tbl.RawSetString(key, toLua(r.vm, value))
	}
	r.vm.SetGlobal("config", tbl)
	return nil
}

// Execute loads and runs mod.lua.
func (r *LuaRuntime) Execute() error {
	if err := r.advance(StateExecuted); err != nil {
		return err
	}

	fn, err := r.vm.LoadFile(filepath.Join(r.modPath, LuaEntryFile))
	if err != nil {
		return &ExecutionError{ModID: r.core.ModID(), Engine: EngineLua, Err: err}
	}

	r.vm.Push(fn)
	if err := r.vm.PCall(0, lua.MultRet, nil); err != nil {
		return &ExecutionError{ModID: r.core.ModID(), Engine: EngineLua, Err: err}
	}
	return nil
}

// Cleanup closes the Lua state.
func (r *LuaRuntime) Cleanup() error {
	if err := r.advance(StateCleanedUp); err != nil {
		return err
	}
	if r.vm != nil {
		r.vm.Close()
		r.vm = nil
	}
	return nil
}

// hostFunc wraps a host-delegating binding so that any host error is
// raised as a Lua error inside the calling script.
func (r *LuaRuntime) hostFunc(f func(L *lua.LState) (int, error)) *lua.LFunction {
	return r.vm.NewFunction(func(L *lua.LState) int {
		n, err := f(L)
		if err != nil {
			L.RaiseError("%s", err.Error())
		}
		return n
	})
}

func (r *LuaRuntime) consoleTable() *lua.LTable {
	logger := r.core.Logger()
	console := r.vm.NewTable()

	bind := func(name string, log func(msg string, args ...any)) {
		r.vm.SetField(console, name, r.vm.NewFunction(func(L *lua.LState) int {
			log(luaFormatArgs(L))
			return 0
		}))
	}
	bind("log", logger.Info)
	bind("debug", logger.Debug)
	bind("warn", logger.Warn)
	bind("error", logger.Error)
	return console
}

// luaFormatArgs renders every argument of a console call, space
// separated.
func luaFormatArgs(L *lua.LState) string {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.Get(i).String())
	}
	return strings.Join(parts, " ")
}

// tableToLua renders a parsed table for the script: rows live at
// indices 1..n, each row addressable by header name and by 1-based
// column index, the header list under __headers__, and an add method
// that appends an empty header-keyed row.
func (r *LuaRuntime) tableToLua(t *tabular.Table) *lua.LTable {
	tbl := r.vm.NewTable()

	headers := r.vm.NewTable()
	for i, h := range t.Headers {
		headers.RawSetInt(i+1, lua.LString(h))
	}
	tbl.RawSetString("__headers__", headers)

	for i, row := range t.Rows {
		rowTbl := r.vm.NewTable()
		for j, cell := range row.Cells {
			rowTbl.RawSetInt(j+1, lua.LString(cell))
		}
		for key, value := range row.Values {
			rowTbl.RawSetString(key, lua.LString(value))
		}
		tbl.RawSetInt(i+1, rowTbl)
	}

	meta := r.vm.NewTable()
	r.vm.SetField(meta, "__index", meta)
	r.vm.SetField(meta, "add", r.vm.NewFunction(func(L *lua.LState) int {
		this := L.CheckTable(1)
		next := this.MaxN() + 1

		row := L.NewTable()
		if hv, ok := this.RawGetString("__headers__").(*lua.LTable); ok {
			hv.ForEach(func(_, h lua.LValue) {
				row.RawSetString(h.String(), lua.LString(""))
			})
		}

		this.RawSetInt(next, row)
		L.Push(row)
		L.Push(lua.LNumber(next))
		return 2
	}))
	r.vm.SetMetatable(tbl, meta)

	return tbl
}

// luaToTable rebuilds a neutral table from the script's representation.
// The header list under __headers__ is required; each row contributes
// its header-keyed and positional cells.
func luaToTable(tbl *lua.LTable) (*tabular.Table, error) {
	hv, ok := tbl.RawGetString("__headers__").(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("tsv table has no __headers__ list")
	}

	t := &tabular.Table{}
	hv.ForEach(func(_, h lua.LValue) {
		t.Headers = append(t.Headers, h.String())
	})

	rowTables := make(map[int]*lua.LTable)
	var indices []int
	var convErr error
	tbl.ForEach(func(k, v lua.LValue) {
		n, ok := k.(lua.LNumber)
		if !ok || int(n) < 1 {
			return
		}
		rt, ok := v.(*lua.LTable)
		if !ok {
			convErr = fmt.Errorf("tsv row %d is not a table", int(n))
			return
		}
		indices = append(indices, int(n))
		rowTables[int(n)] = rt
	})
	if convErr != nil {
		return nil, convErr
	}
	sort.Ints(indices)

	for _, i := range indices {
		row := &tabular.Row{Values: make(map[string]string)}
		rowTables[i].ForEach(func(k, v lua.LValue) {
			switch key := k.(type) {
			case lua.LNumber:
				row.SetCell(int(key), v.String())
			case lua.LString:
				row.Values[string(key)] = v.String()
			}
		})
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}
