package docstore

import (
	"encoding/json"
	"time"
)

// String returns the string field or "" when missing or of another type.
func (d Data) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Int returns the numeric field as int64, or 0.
func (d Data) Int(key string) int64 {
	n, _ := toInt64(d[key])
	return n
}

// Time returns the timestamp field and whether it was present and parseable.
func (d Data) Time(key string) (time.Time, bool) {
	return toTime(d[key])
}

// Strings returns the string elements of an array field.
func (d Data) Strings(key string) []string {
	arr := toSlice(d[key])
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		return int64(t), true
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		ts, err := time.Parse(time.RFC3339Nano, t)
		return ts, err == nil
	}
	return time.Time{}, false
}

func toSlice(v any) []any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		copy(out, t)
		return out
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	}
	return []any{}
}
