package core

import (
	"context"
	"testing"
	"time"

	"portflow/pkg/domain"
)

func TestRecordSimulationLog(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	stored, err := svc.RecordSimulationLog(ctx, domain.SimulationLog{
		UserID:   "u1",
		UserName: "Amina",
		Action:   domain.SimulationEnabled,
		Category: domain.CategoryCranes,
		Details:  "crane simulation on",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if stored.ID == "" || !stored.Timestamp.Equal(fixedNow) {
		t.Fatalf("expected id and defaulted timestamp, got %+v", stored)
	}

	cases := []domain.SimulationLog{
		{Action: domain.SimulationEnabled, Category: domain.CategoryCranes},
		{UserID: "u1", Action: "SIMULATION_PAUSED", Category: domain.CategoryCranes},
		{UserID: "u1", Action: domain.SimulationDisabled, Category: "trucks"},
	}
	for _, c := range cases {
		if _, err := svc.RecordSimulationLog(ctx, c); !domain.IsValidation(err) {
			t.Fatalf("expected validation error for %+v, got %v", c, err)
		}
	}
}

func TestSimulationLogsOrderingAndFilters(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	base := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	entries := []domain.SimulationLog{
		{UserID: "u1", Action: domain.SimulationEnabled, Category: domain.CategoryVessels, Timestamp: base},
		{UserID: "u2", Action: domain.SimulationEnabled, Category: domain.CategoryCustoms, Timestamp: base.Add(2 * time.Hour)},
		{UserID: "u1", Action: domain.SimulationDisabled, Category: domain.CategoryVessels, Timestamp: base.Add(time.Hour + 500*time.Millisecond)},
	}
	for _, e := range entries {
		if _, err := svc.RecordSimulationLog(ctx, e); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	all, err := svc.SimulationLogs(ctx, SimulationLogFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("list: %v %d", err, len(all))
	}
	if all[0].UserID != "u2" || all[1].Action != domain.SimulationDisabled || !all[2].Timestamp.Equal(base) {
		t.Fatalf("expected newest first, got %+v", all)
	}

	mine, err := svc.SimulationLogs(ctx, SimulationLogFilter{UserID: "u1", Category: domain.CategoryVessels, Limit: 1})
	if err != nil || len(mine) != 1 || mine[0].Action != domain.SimulationDisabled {
		t.Fatalf("filtered list %+v %v", mine, err)
	}
	enabled, _ := svc.SimulationLogs(ctx, SimulationLogFilter{Action: domain.SimulationEnabled})
	if len(enabled) != 2 {
		t.Fatalf("expected 2 enabled entries, got %d", len(enabled))
	}
}
