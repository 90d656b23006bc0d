package core

import (
	"context"
	"testing"

	"portflow/pkg/domain"
)

func TestActiveTeam(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	zone := mustInsert(t, store, domain.TableZones, domain.Row{"name": "Terminal A"})
	mustInsert(t, store, domain.TableUsers, domain.Row{"id": "u1", "email": "z@port.ma", "full_name": "Zineb", "role": "operator"})
	mustInsert(t, store, domain.TableUsers, domain.Row{"id": "u2", "email": "a@port.ma", "full_name": "Amine", "role": "supervisor"})
	mustInsert(t, store, domain.TableUsers, domain.Row{"id": "u3", "email": "o@port.ma", "full_name": "Omar", "role": "operator"})
	mustInsert(t, store, domain.TableTeamAssignments, domain.Row{"user_id": "u1", "zone_id": zone["id"], "status": "online"})
	mustInsert(t, store, domain.TableTeamAssignments, domain.Row{"user_id": "u2", "zone_id": "1", "status": "busy"})
	mustInsert(t, store, domain.TableTeamAssignments, domain.Row{"user_id": "u3", "zone_id": 1, "status": "offline"})

	members, err := svc.ActiveTeam(ctx)
	if err != nil {
		t.Fatalf("active team: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 active members, got %+v", members)
	}
	if members[0].FullName != "Amine" || members[1].FullName != "Zineb" {
		t.Fatalf("expected members sorted by name, got %+v", members)
	}
	if members[1].ZoneName != "Terminal A" || members[1].Email != "z@port.ma" || members[1].ZoneID != "1" {
		t.Fatalf("expected enriched member, got %+v", members[1])
	}
}

func TestPortStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	latest, err := svc.LatestPortStatus(ctx)
	if err != nil || latest == nil || len(latest) != 0 {
		t.Fatalf("expected empty list, got %+v %v", latest, err)
	}
	if _, err := svc.RecordPortStatus(ctx, domain.Row{"status": "normal"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	second, err := svc.RecordPortStatus(ctx, domain.Row{"status": "congested", "berth_occupancy": 92})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if second["recorded_at"] != "2025-03-14T09:30:00Z" {
		t.Fatalf("expected recorded_at stamped, got %+v", second)
	}
	latest, err = svc.LatestPortStatus(ctx)
	if err != nil || len(latest) != 1 || latest[0]["status"] != "congested" {
		t.Fatalf("expected latest congested, got %+v %v", latest, err)
	}
	if _, err := svc.RecordPortStatus(ctx, domain.Row{}); !domain.IsValidation(err) {
		t.Fatalf("expected missing status rejected, got %v", err)
	}
}
