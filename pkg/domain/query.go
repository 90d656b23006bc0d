package domain

import (
	"sort"
	"strings"
)

// Filter is an equality predicate on a single column.
type Filter struct {
	Column string
	Value  any
}

// Eq builds an equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Value: value}
}

// Query narrows and orders a List call.
type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Matches reports whether row satisfies every filter.
func (q Query) Matches(row Row) bool {
	return MatchFilters(row, q.Filters)
}

// MatchFilters reports whether row satisfies every filter. Values are compared
// by their canonical key form.
func MatchFilters(row Row, filters []Filter) bool {
	for _, f := range filters {
		if KeyOf(row[f.Column]) != KeyOf(f.Value) {
			return false
		}
	}
	return true
}

// Apply filters, orders and limits rows in place for backends that evaluate
// queries in process. The input order is treated as insertion order.
func (q Query) Apply(rows []Row) []Row {
	out := rows[:0]
	for _, row := range rows {
		if q.Matches(row) {
			out = append(out, row)
		}
	}
	if q.OrderBy != "" {
		col := q.OrderBy
		sort.SliceStable(out, func(i, j int) bool {
			c := CompareValues(out[i][col], out[j][col])
			if q.Descending {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// CompareValues orders two column values: numbers numerically, everything else
// by canonical string form. Missing values sort first.
func CompareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	fa, okA := numericOnly(a)
	fb, okB := numericOnly(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(KeyOf(a), KeyOf(b))
}

// numericOnly is Number without string parsing, so "10" and "9" stay strings.
func numericOnly(v any) (float64, bool) {
	if _, isString := v.(string); isString {
		return 0, false
	}
	return Number(v)
}
