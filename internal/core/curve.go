package core

import (
	"context"
	"sort"
	"time"

	"portflow/pkg/domain"
)

// CurveKeyLayout formats the minute bucket of a resource curve point.
const CurveKeyLayout = "2006-01-02 15:04"

// BuildResourceCurve groups usage rows into minute buckets keyed in loc. Within
// a bucket a later row overwrites an earlier one of the same resource type.
// Rows whose recorded_at cannot be parsed are skipped.
func BuildResourceCurve(rows []domain.Row, loc *time.Location) []domain.CurvePoint {
	grouped := make(map[string]domain.CurvePoint)
	for _, row := range rows {
		ts, ok := domain.ParseTimestamp(row["recorded_at"])
		if !ok {
			continue
		}
		key := ts.In(loc).Format(CurveKeyLayout)
		point, exists := grouped[key]
		if !exists {
			point = domain.CurvePoint{"datetime": key}
			grouped[key] = point
		}
		resource := row.String("resource_type")
		if resource == "" || resource == "datetime" {
			continue
		}
		point[resource] = row["usage_percentage"]
	}
	keys := make([]string, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]domain.CurvePoint, 0, len(keys))
	for _, key := range keys {
		out = append(out, grouped[key])
	}
	return out
}

// ResourceCurve returns the resource usage time series for the energy chart.
func (s *Service) ResourceCurve(ctx context.Context) ([]domain.CurvePoint, error) {
	var points []domain.CurvePoint
	err := s.run(ctx, "resource_curve", func(ctx context.Context) error {
		rows, err := s.store.List(ctx, domain.TableResourceUsage, domain.Query{})
		if err != nil {
			return err
		}
		points = BuildResourceCurve(rows, s.location)
		return nil
	})
	return points, err
}
