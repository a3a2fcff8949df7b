// SPDX-License-Identifier: MPL-2.0

package script

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dop251/goja"

	"modsmith/internal/hostapi"
	"modsmith/internal/tabular"
)

// JSRuntime runs a mod.js entry on an embedded goja interpreter. The
// interpreter starts empty, so the only host access a script has is
// the bound API.
type JSRuntime struct {
	lifecycle

	ctx     context.Context
	modPath string
	core    *hostapi.Core
	vm      *goja.Runtime
}

// NewJSRuntime allocates the JavaScript interpreter for one mod.
func NewJSRuntime(ctx context.Context, modPath string, core *hostapi.Core) *JSRuntime {
	return &JSRuntime{ctx: ctx, modPath: modPath, core: core, vm: goja.New()}
}

func (r *JSRuntime) Engine() Engine { return EngineJS }

// SetupAPI binds the modsmith and console globals.
func (r *JSRuntime) SetupAPI() error {
	if err := r.advance(StateAPIBound); err != nil {
		return err
	}

	api := r.vm.NewObject()

	must := func(err error) {
		if err != nil {
			panic(r.vm.NewGoError(err))
		}
	}

	_ = api.Set("getVersion", func() float64 { return r.core.GetVersion() })
	_ = api.Set("getFullVersion", func() []int {
		major, minor, patch := r.core.GetFullVersion()
		return []int{major, minor, patch}
	})

	_ = api.Set("readJson", func(path string) any {
		value, err := r.core.ReadJSON(r.ctx, path)
		must(err)
		return value
	})
	_ = api.Set("writeJson", func(path string, value goja.Value) {
		converted, err := fromJS(value)
		must(err)
		must(r.core.WriteJSON(r.ctx, path, converted))
	})

	_ = api.Set("readTsv", func(path string) map[string]any {
		table, err := r.core.ReadTSV(r.ctx, path)
		must(err)
		return tableToJS(table)
	})
	_ = api.Set("writeTsv", func(path string, value goja.Value) {
		converted, err := fromJS(value)
		must(err)
		table, err := jsToTable(converted)
		must(err)
		must(r.core.WriteTSV(r.ctx, path, table))
	})

	_ = api.Set("readTxt", func(path string) string {
		content, err := r.core.ReadText(r.ctx, path)
		must(err)
		return content
	})
	_ = api.Set("writeTxt", func(path, content string) {
		must(r.core.WriteText(r.ctx, path, content))
	})

	_ = api.Set("copyFile", func(call goja.FunctionCall) goja.Value {
		src := call.Argument(0).String()
		dst := call.Argument(1).String()
		overwrite := call.Argument(2).ToBoolean()
		must(r.core.CopyFile(r.ctx, src, dst, overwrite))
		return goja.Undefined()
	})
	_ = api.Set("extractFile", func(path string) {
		must(r.core.ExtractFile(r.ctx, path))
	})
	_ = api.Set("error", func(message string) {
		must(r.core.Throw(message))
	})

	if err := r.vm.Set("modsmith", api); err != nil {
		return err
	}
	return r.vm.Set("console", r.consoleObject())
}

// SetupConfig injects the resolved config values as the config global.
func (r *JSRuntime) SetupConfig(config map[string]any) error {
	if err := r.advance(StateConfigBound); err != nil {
		return err
	}
	return r.vm.Set("config", config)
}

// Execute loads and runs mod.js.
func (r *JSRuntime) Execute() error {
	if err := r.advance(StateExecuted); err != nil {
		return err
	}

	entry := filepath.Join(r.modPath, JSEntryFile)
	src, err := os.ReadFile(entry)
	if err != nil {
		return &ExecutionError{ModID: r.core.ModID(), Engine: EngineJS, Err: err}
	}

	program, err := goja.Compile(JSEntryFile, string(src), false)
	if err != nil {
		return &ExecutionError{ModID: r.core.ModID(), Engine: EngineJS, Err: err}
	}

	if _, err := r.vm.RunProgram(program); err != nil {
		return &ExecutionError{ModID: r.core.ModID(), Engine: EngineJS, Err: err}
	}
	return nil
}

// Cleanup releases the interpreter.
func (r *JSRuntime) Cleanup() error {
	if err := r.advance(StateCleanedUp); err != nil {
		return err
	}
	r.vm = nil
	return nil
}

func (r *JSRuntime) consoleObject() *goja.Object {
	logger := r.core.Logger()
	console := r.vm.NewObject()

	bind := func(name string, log func(msg string, args ...any)) {
		_ = console.Set(name, func(call goja.FunctionCall) goja.Value {
			log(jsFormatArgs(call))
			return goja.Undefined()
		})
	}
	bind("log", logger.Info)
	bind("debug", logger.Debug)
	bind("warn", logger.Warn)
	bind("error", logger.Error)
	return console
}

func jsFormatArgs(call goja.FunctionCall) string {
	msg := ""
	for i, arg := range call.Arguments {
		if i > 0 {
			msg += " "
		}
		msg += arg.String()
	}
	return msg
}

// tableToJS renders a parsed table as {headers, rows}: each row object
// carries header-keyed cells plus "1".."n" positional keys.
func tableToJS(t *tabular.Table) map[string]any {
	headers := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		headers[i] = h
	}

	rows := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		obj := make(map[string]any, len(row.Values)+len(row.Cells))
		for j, cell := range row.Cells {
			obj[strconv.Itoa(j+1)] = cell
		}
		for key, value := range row.Values {
			obj[key] = value
		}
		rows[i] = obj
	}

	return map[string]any{"headers": headers, "rows": rows}
}

// jsToTable rebuilds a neutral table from the {headers, rows} shape.
// Row keys that parse as positive integers are positional, everything
// else is header keyed.
func jsToTable(value any) (*tabular.Table, error) {
	root, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("tsv value must be an object, got %T", value)
	}

	headerList, ok := root["headers"].([]any)
	if !ok {
		return nil, fmt.Errorf("tsv object has no headers list")
	}
	rowList, ok := root["rows"].([]any)
	if !ok {
		return nil, fmt.Errorf("tsv object has no rows list")
	}

	t := &tabular.Table{}
	for _, h := range headerList {
		name, ok := h.(string)
		if !ok {
			return nil, fmt.Errorf("tsv header must be a string, got %T", h)
		}
		t.Headers = append(t.Headers, name)
	}

	for i, raw := range rowList {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("tsv row %d is not an object", i+1)
		}
		row := &tabular.Row{Values: make(map[string]string)}
		for key, cell := range obj {
			text := cellText(cell)
			if col, err := strconv.Atoi(key); err == nil && col >= 1 {
				row.SetCell(col, text)
				continue
			}
			row.Values[key] = text
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

func cellText(v any) string {
	switch typed := v.(type) {
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(typed, 10)
	case bool:
		return strconv.FormatBool(typed)
	case nil:
		return ""
	default:
		return fmt.Sprint(typed)
	}
}
