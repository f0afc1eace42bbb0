package domain

import (
	"encoding/json"
	"math"
)

// NormalizeLocation coerces a stored location value into nil, a scalar, or a flat list
// of scalars. Anything else, including nested lists and objects, becomes nil.
func NormalizeLocation(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string, bool:
		return t
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return t
	case float32:
		return normalizeFloat(float64(t))
	case float64:
		return normalizeFloat(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return normalizeFloat(f)
		}
		return nil
	case Location:
		return t.Value()
	case []int:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = x
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, el := range t {
			switch el.(type) {
			case []any, map[string]any, []int:
				return nil
			}
			n := NormalizeLocation(el)
			if n == nil && el != nil {
				return nil
			}
			out = append(out, n)
		}
		return out
	default:
		return nil
	}
}

// ParseLocation decodes a JSON-encoded location column into its normalized form.
// Undecodable input yields nil.
func ParseLocation(raw string) any {
	if raw == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil
	}
	return NormalizeLocation(v)
}

// normalizeFloat returns integral floats as int64 so JSON renders 12 rather than 12.0.
func normalizeFloat(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}
