package core

import (
	"context"

	"golang.org/x/sync/errgroup"

	"portflow/pkg/domain"
)

// Dashboard loads every collection the operator dashboard renders. The reads
// run concurrently and the first failure cancels the rest.
func (s *Service) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	var out domain.Dashboard
	err := s.run(ctx, "dashboard", func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		load := func(table domain.Table, dst *[]domain.Row) {
			g.Go(func() error {
				rows, err := s.store.List(gctx, table, domain.Query{})
				if err != nil {
					return err
				}
				*dst = rows
				return nil
			})
		}
		load(domain.TableEquipment, &out.Equipment)
		load(domain.TableVessels, &out.Vessels)
		load(domain.TableContainers, &out.Containers)
		load(domain.TableMetrics, &out.Metrics)
		load(domain.TableResourceUsage, &out.ResourceUsage)
		var assignments, users, zones []domain.Row
		load(domain.TableTeamAssignments, &assignments)
		load(domain.TableUsers, &users)
		load(domain.TableZones, &zones)
		if err := g.Wait(); err != nil {
			return err
		}
		out.TeamMembers = joinActiveTeam(assignments, users, zones)
		return nil
	})
	return out, err
}
