// SPDX-License-Identifier: MPL-2.0

package script

import (
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// toLua converts a neutral value (nil, bool, float64, string, []any,
// map[string]any) into its Lua representation. Lists become 1-based
// sequences; maps become string-keyed tables.
func toLua(L *lua.LState, value any) lua.LValue {
	switch v := value.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(v)
	case float64:
		return lua.LNumber(v)
	case int:
		return lua.LNumber(v)
	case string:
		return lua.LString(v)
	case []any:
		tbl := L.NewTable()
		for i, item := range v {
			tbl.RawSetInt(i+1, toLua(L, item))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for key, item := range v {
			tbl.RawSetString(key, toLua(L, item))
		}
		return tbl
	default:
		return lua.LNil
	}
}

// fromLua converts a Lua value back into the neutral set. Values
// outside the closed set (functions, userdata, threads, channels) are
// rejected rather than coerced.
func fromLua(value lua.LValue) (any, error) {
	switch v := value.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LBool:
		return bool(v), nil
	case lua.LNumber:
		return float64(v), nil
	case lua.LString:
		return string(v), nil
	case *lua.LTable:
		return fromLuaTable(v)
	default:
		return nil, fmt.Errorf("unsupported Lua value of type %s", value.Type())
	}
}

// fromLuaTable maps a contiguous integer-keyed table to a list and a
// string-keyed table to a map. An empty table is a map. Mixed or
// non-contiguous keys are rejected.
func fromLuaTable(tbl *lua.LTable) (any, error) {
	intKeys := make(map[int]lua.LValue)
	strKeys := make(map[string]lua.LValue)
	var keyErr error

	tbl.ForEach(func(k, v lua.LValue) {
		switch key := k.(type) {
		case lua.LNumber:
			i := int(key)
			if lua.LNumber(i) != key || i < 1 {
				keyErr = fmt.Errorf("non-positive or fractional table key %v", key)
				return
			}
			intKeys[i] = v
		case lua.LString:
			strKeys[string(key)] = v
		default:
			keyErr = fmt.Errorf("unsupported table key of type %s", k.Type())
		}
	})
	if keyErr != nil {
		return nil, keyErr
	}

	if len(intKeys) > 0 && len(strKeys) > 0 {
		return nil, fmt.Errorf("table mixes positional and named keys")
	}

	if len(intKeys) > 0 {
		indices := make([]int, 0, len(intKeys))
		for i := range intKeys {
			indices = append(indices, i)
		}
		sort.Ints(indices)
		if indices[len(indices)-1] != len(indices) {
			return nil, fmt.Errorf("table has non-contiguous positional keys")
		}

		list := make([]any, 0, len(indices))
		for _, i := range indices {
			item, err := fromLua(intKeys[i])
			if err != nil {
				return nil, err
			}
			list = append(list, item)
		}
		return list, nil
	}

	obj := make(map[string]any, len(strKeys))
	for key, v := range strKeys {
		item, err := fromLua(v)
		if err != nil {
			return nil, err
		}
		obj[key] = item
	}
	return obj, nil
}
