package shared

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// LookupAny: safe nested lookup with dot paths on maps.
func LookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// LookupStr returns string at path or "".
func LookupStr(m map[string]any, path string) string {
	if v := LookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// FirstNonEmpty returns the first non-empty string among paths.
func FirstNonEmpty(m map[string]any, paths ...string) string {
	for _, p := range paths {
		if s := LookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

// ToFloat coerces float64/ints/numeric strings ("4,5" too). nil is 0.
// NaN and infinities are rejected; they cannot be encoded as JSON.
func ToFloat(v any) (float64, error) {
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %v", v)
	}
	return f, nil
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		if s == "" {
			return 0, nil
		}
		return strconv.ParseFloat(s, 64)
	case fmt.Stringer: // json.Number and friends
		return strconv.ParseFloat(t.String(), 64)
	}
	return 0, fmt.Errorf("not a number: %T", v)
}

// ToInt is ToFloat truncated; unparseable values are 0.
func ToInt(v any) int {
	f, err := ToFloat(v)
	if err != nil {
		return 0
	}
	return int(f)
}

// ToBool accepts bools, 0/1 ints and "true"/"1" strings (MySQL TINYINT).
func ToBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	default:
		return ToInt(v) != 0
	}
}

// ToString renders scalars; nil is "".
func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	}
	return fmt.Sprint(v)
}
