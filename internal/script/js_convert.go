// SPDX-License-Identifier: MPL-2.0

package script

import (
	"fmt"

	"github.com/dop251/goja"
)

// fromJS normalizes an exported goja value into the neutral value set:
// nil, bool, float64, string, []any, and map[string]any. Anything
// outside that set, functions included, is rejected.
func fromJS(value goja.Value) (any, error) {
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, nil
	}
	return normalizeExported(value.Export())
}

func normalizeExported(v any) (any, error) {
	switch typed := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return typed, nil
	case string:
		return typed, nil
	case float64:
		return typed, nil
	case int64:
		return float64(typed), nil
	case int:
		return float64(typed), nil
	case []any:
		out := make([]any, len(typed))
		for i, elem := range typed {
			converted, err := normalizeExported(elem)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, elem := range typed {
			converted, err := normalizeExported(elem)
			if err != nil {
				return nil, err
			}
			out[key] = converted
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported script value of type %T", v)
	}
}
