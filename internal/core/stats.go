package core

import (
	"context"
	"strings"

	"portflow/pkg/domain"
)

// Customs summary states.
const (
	CustomsOpen   = "open"
	CustomsClosed = "closed"
)

func countContainers(rows []domain.Row) domain.ContainerStats {
	stats := domain.ContainerStats{Total: len(rows)}
	for _, row := range rows {
		switch row.String("status") {
		case domain.ContainerImportWaiting, domain.ContainerExportWaiting:
			stats.Waiting++
		}
	}
	return stats
}

func countVessels(rows []domain.Row) domain.VesselStats {
	stats := domain.VesselStats{Total: len(rows)}
	for _, row := range rows {
		if domain.ContainsFold(domain.BerthStatuses, row.String("status")) {
			stats.Occupied++
		}
	}
	return stats
}

func countCranes(rows []domain.Row) domain.EquipmentStats {
	var stats domain.EquipmentStats
	for _, row := range rows {
		if !strings.EqualFold(row.String("type"), domain.EquipmentTypeCrane) {
			continue
		}
		stats.Total++
		if domain.ContainsFold(domain.ActiveEquipmentStatuses, row.String("status")) {
			stats.Active++
		}
	}
	return stats
}

func containerStatusCounts(rows []domain.Row) map[string]int {
	counts := make(map[string]int, len(domain.ContainerStatuses))
	for _, status := range domain.ContainerStatuses {
		counts[status] = 0
	}
	for _, row := range rows {
		if status := row.String("status"); status != "" {
			counts[status]++
		}
	}
	return counts
}

// ContainerStats counts containers and those waiting for import or export.
func (s *Service) ContainerStats(ctx context.Context) (domain.ContainerStats, error) {
	var stats domain.ContainerStats
	err := s.run(ctx, "container_stats", func(ctx context.Context) error {
		rows, err := s.store.List(ctx, domain.TableContainers, domain.Query{})
		if err != nil {
			return err
		}
		stats = countContainers(rows)
		return nil
	})
	return stats, err
}

// VesselStats counts vessels and those occupying a berth.
func (s *Service) VesselStats(ctx context.Context) (domain.VesselStats, error) {
	var stats domain.VesselStats
	err := s.run(ctx, "vessel_stats", func(ctx context.Context) error {
		rows, err := s.store.List(ctx, domain.TableVessels, domain.Query{})
		if err != nil {
			return err
		}
		stats = countVessels(rows)
		return nil
	})
	return stats, err
}

// EquipmentStats counts cranes and the active ones.
func (s *Service) EquipmentStats(ctx context.Context) (domain.EquipmentStats, error) {
	var stats domain.EquipmentStats
	err := s.run(ctx, "equipment_stats", func(ctx context.Context) error {
		rows, err := s.store.List(ctx, domain.TableEquipment, domain.Query{})
		if err != nil {
			return err
		}
		stats = countCranes(rows)
		return nil
	})
	return stats, err
}

// CustomsStatus reports the customs posts as open only when every post is open.
func (s *Service) CustomsStatus(ctx context.Context) (domain.CustomsStatus, error) {
	var status domain.CustomsStatus
	err := s.run(ctx, "customs_status", func(ctx context.Context) error {
		rows, err := s.store.List(ctx, domain.TableCustoms, domain.Query{})
		if err != nil {
			return err
		}
		status.Total = len(rows)
		for _, row := range rows {
			if domain.ContainsFold(domain.OpenCustomsStatuses, row.String("status")) {
				status.Open++
			}
		}
		status.Status = CustomsClosed
		if status.Total > 0 && status.Open == status.Total {
			status.Status = CustomsOpen
		}
		return nil
	})
	return status, err
}

// Statistics gathers the totals shown on the statistics page.
func (s *Service) Statistics(ctx context.Context) (domain.Statistics, error) {
	var stats domain.Statistics
	err := s.run(ctx, "statistics", func(ctx context.Context) error {
		containers, err := s.store.List(ctx, domain.TableContainers, domain.Query{})
		if err != nil {
			return err
		}
		vessels, err := s.store.List(ctx, domain.TableVessels, domain.Query{})
		if err != nil {
			return err
		}
		equipment, err := s.store.List(ctx, domain.TableEquipment, domain.Query{})
		if err != nil {
			return err
		}
		users, err := s.store.List(ctx, domain.TableUsers, domain.Query{})
		if err != nil {
			return err
		}
		assignments, err := s.store.List(ctx, domain.TableTeamAssignments, domain.Query{})
		if err != nil {
			return err
		}
		stats.Containers = countContainers(containers)
		stats.Vessels = countVessels(vessels)
		stats.Equipment = domain.EquipmentStats{Total: len(equipment)}
		for _, row := range equipment {
			if domain.ContainsFold(domain.ActiveEquipmentStatuses, row.String("status")) {
				stats.Equipment.Active++
			}
		}
		stats.Users = countActiveUsers(users, assignments)
		stats.ContainerStatusCounts = containerStatusCounts(containers)
		return nil
	})
	return stats, err
}

// countActiveUsers counts users holding at least one assignment that is not
// offline, the same membership rule as ActiveTeam.
func countActiveUsers(users, assignments []domain.Row) domain.UserStats {
	onShift := make(map[string]bool)
	for _, a := range assignments {
		if a.String("status") != domain.TeamStatusOffline {
			onShift[a.String("user_id")] = true
		}
	}
	stats := domain.UserStats{Total: len(users)}
	for _, u := range users {
		if onShift[u.ID()] {
			stats.Active++
		}
	}
	return stats
}
