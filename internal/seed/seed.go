// Package seed fills an empty store with a representative day of port data.
package seed

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"portflow/internal/core"
	"portflow/pkg/domain"
)

// Result counts inserted rows per table. Skipped tables are listed separately.
type Result struct {
	Inserted map[domain.Table]int
	Skipped  []domain.Table
}

// Options controls a seed run.
type Options struct {
	// Force inserts even into tables that already hold rows.
	Force bool
	// Now anchors generated timestamps. Zero means the service clock.
	Now time.Time
}

type batch struct {
	table domain.Table
	rows  []domain.Row
}

func zones() []domain.Row {
	return []domain.Row{
		{"name": "Terminal A"},
		{"name": "Terminal B"},
		{"name": "Terminal C"},
		{"name": "Terminal D"},
	}
}

func fixtures(now time.Time) []batch {
	ts := func(d time.Duration) string { return now.Add(d).UTC().Format(time.RFC3339) }
	var usage []domain.Row
	for i := 5; i >= 0; i-- {
		at := ts(-time.Duration(i) * time.Hour)
		usage = append(usage,
			domain.Row{"resource_type": "electricity", "usage_percentage": 55 + 5*i%20, "consumption": 1200 - 40*i, "unit": "kWh", "recorded_at": at},
			domain.Row{"resource_type": "fuel", "usage_percentage": 30 + 3*i, "consumption": 300 - 10*i, "unit": "L", "recorded_at": at},
			domain.Row{"resource_type": "water", "usage_percentage": 20 + 2*i, "consumption": 80 + i, "unit": "m3", "recorded_at": at},
		)
	}
	return []batch{
		{domain.TableMetrics, []domain.Row{
			{"metric_type": "temperature", "value": 24, "unit": "°C", "recorded_at": ts(0)},
			{"metric_type": "efficiency", "value": 87, "unit": "%", "recorded_at": ts(0)},
			{"metric_type": "occupancy", "value": 65, "unit": "%", "recorded_at": ts(0)},
		}},
		{domain.TableEquipment, []domain.Row{
			{"name": "RTG-001", "type": "crane", "status": "active", "load": 40, "fuel_level": 85, "battery_level": 92, "sensor_value": "normal"},
			{"name": "STS-002", "type": "crane", "status": "active", "load": 65, "fuel_level": 78, "battery_level": 88, "sensor_value": "normal"},
			{"name": "STS-003", "type": "crane", "status": "maintenance", "load": 0, "fuel_level": 60, "battery_level": 70, "sensor_value": "warning"},
			{"name": "TRACT-01", "type": "tractor", "status": "inactive", "load": 0, "fuel_level": 50, "battery_level": 60, "sensor_value": "normal"},
			{"name": "SENS-01", "type": "sensor", "status": "active", "sensor_value": "OK"},
		}},
		{domain.TableVessels, []domain.Row{
			{"name": "MSC Fantasia", "status": "docked", "berth": "A12", "cargo_type": "Containers", "eta": ts(-26 * time.Hour), "etd": ts(6 * time.Hour)},
			{"name": "Maersk Sealand", "status": "approaching", "berth": "B08", "cargo_type": "Containers", "eta": ts(4 * time.Hour), "etd": ts(40 * time.Hour)},
			{"name": "CMA CGM Marco Polo", "status": "departing", "berth": "C03", "cargo_type": "Containers", "eta": ts(-50 * time.Hour), "etd": ts(time.Hour)},
		}},
		{domain.TableContainers, []domain.Row{
			{"container_number": "MSCU1234567", "status": "import_waiting", "location": "Terminal A-12", "type": "40ft Standard", "weight": 25.5},
			{"container_number": "MAEU7654321", "status": "in_transit", "location": "Terminal B-08", "type": "20ft Standard", "weight": 15.2},
			{"container_number": "CMAU9876543", "status": "in_storage", "location": "Terminal C-03", "type": "40ft High Cube", "weight": 28.7},
			{"container_number": "HLXU4455667", "status": "export_waiting", "location": "Terminal A-04", "type": "20ft Reefer", "weight": 19.9},
			{"container_number": "OOLU2233445", "status": "delivered", "location": "Gate 2", "type": "40ft Standard", "weight": 22.1},
		}},
		{domain.TableResourceUsage, usage},
		{domain.TableWeatherConditions, []domain.Row{
			{"temperature": 22, "conditions": "Sunny", "wind_speed": 12, "wave_height": 1.2, "next_high_tide": ts(3 * time.Hour), "next_low_tide": ts(9 * time.Hour), "recorded_at": ts(0)},
		}},
		{domain.TableCustoms, []domain.Row{
			{"name": "Poste douane Nord", "status": "open"},
			{"name": "Poste douane Sud", "status": "open"},
		}},
		{domain.TablePortStatus, []domain.Row{
			{"status": "operational", "berth_occupancy": 67, "yard_occupancy": 58, "notes": "Trafic normal"},
		}},
	}
}

// Run inserts the fixtures through svc.
func Run(ctx context.Context, svc *core.Service, opts Options, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now.IsZero() {
		now = svc.Now()
	}
	res := Result{Inserted: make(map[domain.Table]int)}
	batches := append([]batch{{domain.TableZones, zones()}}, fixtures(now)...)
	for _, b := range batches {
		if !opts.Force {
			existing, err := svc.List(ctx, b.table, domain.Query{Limit: 1})
			if err != nil {
				return res, fmt.Errorf("check %s: %w", b.table, err)
			}
			if len(existing) > 0 {
				res.Skipped = append(res.Skipped, b.table)
				logger.Info("seed skipped non-empty table", zap.String("table", string(b.table)))
				continue
			}
		}
		for _, row := range b.rows {
			if b.table == domain.TablePortStatus {
				if _, err := svc.RecordPortStatus(ctx, row); err != nil {
					return res, fmt.Errorf("seed %s: %w", b.table, err)
				}
			} else if _, err := svc.Create(ctx, b.table, row); err != nil {
				return res, fmt.Errorf("seed %s: %w", b.table, err)
			}
			res.Inserted[b.table]++
		}
		logger.Info("seeded table", zap.String("table", string(b.table)), zap.Int("rows", len(b.rows)))
	}
	return res, nil
}
