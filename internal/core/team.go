package core

import (
	"context"
	"sort"
	"time"

	"portflow/pkg/domain"
)

func indexByID(rows []domain.Row) map[string]domain.Row {
	out := make(map[string]domain.Row, len(rows))
	for _, row := range rows {
		out[row.ID()] = row
	}
	return out
}

// joinActiveTeam keeps assignments that are not offline and enriches them with
// the user and zone rows they reference.
func joinActiveTeam(assignments, users, zones []domain.Row) []domain.TeamMember {
	userByID := indexByID(users)
	zoneByID := indexByID(zones)
	members := make([]domain.TeamMember, 0, len(assignments))
	for _, a := range assignments {
		if a.String("status") == domain.TeamStatusOffline {
			continue
		}
		m := domain.TeamMember{
			UserID: a.String("user_id"),
			ZoneID: a.String("zone_id"),
			Status: a.String("status"),
		}
		if u, ok := userByID[m.UserID]; ok {
			m.FullName = u.String("full_name")
			m.Email = u.String("email")
			m.Role = u.String("role")
		}
		if z, ok := zoneByID[m.ZoneID]; ok {
			m.ZoneName = z.String("name")
		}
		members = append(members, m)
	}
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].FullName != members[j].FullName {
			return members[i].FullName < members[j].FullName
		}
		return members[i].UserID < members[j].UserID
	})
	return members
}

// ActiveTeam returns the team members currently on shift.
func (s *Service) ActiveTeam(ctx context.Context) ([]domain.TeamMember, error) {
	var members []domain.TeamMember
	err := s.run(ctx, "active_team", func(ctx context.Context) error {
		assignments, err := s.store.List(ctx, domain.TableTeamAssignments, domain.Query{})
		if err != nil {
			return err
		}
		users, err := s.store.List(ctx, domain.TableUsers, domain.Query{})
		if err != nil {
			return err
		}
		zones, err := s.store.List(ctx, domain.TableZones, domain.Query{})
		if err != nil {
			return err
		}
		members = joinActiveTeam(assignments, users, zones)
		return nil
	})
	return members, err
}

// LatestPortStatus returns the most recent port status row as a list of zero
// or one element.
func (s *Service) LatestPortStatus(ctx context.Context) ([]domain.Row, error) {
	var rows []domain.Row
	err := s.run(ctx, "latest_port_status", func(ctx context.Context) error {
		var err error
		rows, err = s.store.List(ctx, domain.TablePortStatus, domain.Query{
			OrderBy:    domain.ColumnID,
			Descending: true,
			Limit:      1,
		})
		return err
	})
	return rows, err
}

// RecordPortStatus stores a new port status row, stamping recorded_at when absent.
func (s *Service) RecordPortStatus(ctx context.Context, row domain.Row) (domain.Row, error) {
	row = row.Clone()
	if row == nil {
		row = domain.Row{}
	}
	if _, ok := row["recorded_at"]; !ok {
		row["recorded_at"] = s.clock.Now().UTC().Format(time.RFC3339Nano)
	}
	return s.Create(ctx, domain.TablePortStatus, row)
}
