package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Row is a single table record as exchanged with clients and store backends.
type Row map[string]any

// ID returns the canonical string form of the row's id column.
func (r Row) ID() string {
	if r == nil {
		return ""
	}
	return KeyOf(r[ColumnID])
}

// String returns the column value as a string, or "" when absent.
func (r Row) String(column string) string {
	switch v := r[column].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return KeyOf(v)
	}
}

// Clone returns a deep copy so callers can mutate the result without touching
// store-owned state.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, inner := range typed {
			out[k] = cloneValue(inner)
		}
		return out
	case Row:
		return typed.Clone()
	case []any:
		out := make([]any, len(typed))
		for i, inner := range typed {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}

// Merge copies patch onto a clone of r. The id column is never overwritten.
func (r Row) Merge(patch Row) Row {
	out := r.Clone()
	if out == nil {
		out = Row{}
	}
	for k, v := range patch {
		if k == ColumnID {
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

// KeyOf renders an id or filter value in the canonical form used for equality
// comparisons across backends: integral floats lose their fraction so that a
// JSON-decoded 7 equals the path segment "7".
func KeyOf(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	case int:
		return strconv.Itoa(typed)
	case int32:
		return strconv.FormatInt(int64(typed), 10)
	case int64:
		return strconv.FormatInt(typed, 10)
	case uint64:
		return strconv.FormatUint(typed, 10)
	case float32:
		return formatFloat(float64(typed))
	case float64:
		return formatFloat(typed)
	case bool:
		return strconv.FormatBool(typed)
	case time.Time:
		return typed.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// NumericID parses id as a positive integer, reporting whether it is one.
func NumericID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Number converts a JSON-decoded numeric value to float64.
func Number(v any) (float64, bool) {
	switch typed := v.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case json.Number:
		f, err := typed.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(typed, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
