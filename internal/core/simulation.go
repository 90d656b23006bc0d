package core

import (
	"context"
	"sort"
	"strings"

	"portflow/pkg/domain"
)

// SimulationLogFilter narrows a simulation log listing. Zero fields match all.
type SimulationLogFilter struct {
	UserID   string
	Action   domain.SimulationAction
	Category domain.SimulationCategory
	Limit    int
}

func (f SimulationLogFilter) filters() []domain.Filter {
	var out []domain.Filter
	if f.UserID != "" {
		out = append(out, domain.Eq("user_id", f.UserID))
	}
	if f.Action != "" {
		out = append(out, domain.Eq("action", string(f.Action)))
	}
	if f.Category != "" {
		out = append(out, domain.Eq("category", string(f.Category)))
	}
	return out
}

func validateSimulationLog(log domain.SimulationLog) error {
	var missing []string
	if strings.TrimSpace(log.UserID) == "" {
		missing = append(missing, "user_id")
	}
	if log.Action == "" {
		missing = append(missing, "action")
	}
	if log.Category == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return domain.MissingFields(missing)
	}
	if !log.Action.Valid() {
		return domain.ValidationError{Field: "action", Message: "must be SIMULATION_ENABLED or SIMULATION_DISABLED"}
	}
	if !log.Category.Valid() {
		return domain.ValidationError{Field: "category", Message: "must be one of navires, grues, conteneurs, douane"}
	}
	return nil
}

// RecordSimulationLog validates and stores a simulation toggle entry. A zero
// timestamp is replaced by the current time.
func (s *Service) RecordSimulationLog(ctx context.Context, log domain.SimulationLog) (domain.SimulationLog, error) {
	var stored domain.SimulationLog
	err := s.run(ctx, "record_simulation_log", func(ctx context.Context) error {
		if err := validateSimulationLog(log); err != nil {
			return err
		}
		if log.Timestamp.IsZero() {
			log.Timestamp = s.clock.Now()
		}
		log.ID = ""
		row, err := s.store.Insert(ctx, domain.TableSimulationLogs, log.Row())
		if err != nil {
			return err
		}
		stored = domain.SimulationLogFromRow(row)
		return nil
	})
	return stored, err
}

// SimulationLogs lists entries newest first.
func (s *Service) SimulationLogs(ctx context.Context, filter SimulationLogFilter) ([]domain.SimulationLog, error) {
	var logs []domain.SimulationLog
	err := s.run(ctx, "list_simulation_logs", func(ctx context.Context) error {
		rows, err := s.store.List(ctx, domain.TableSimulationLogs, domain.Query{Filters: filter.filters()})
		if err != nil {
			return err
		}
		logs = make([]domain.SimulationLog, 0, len(rows))
		for _, row := range rows {
			logs = append(logs, domain.SimulationLogFromRow(row))
		}
		sort.SliceStable(logs, func(i, j int) bool {
			if !logs[i].Timestamp.Equal(logs[j].Timestamp) {
				return logs[i].Timestamp.After(logs[j].Timestamp)
			}
			return domain.CompareValues(idValue(logs[i].ID), idValue(logs[j].ID)) > 0
		})
		if filter.Limit > 0 && len(logs) > filter.Limit {
			logs = logs[:filter.Limit]
		}
		return nil
	})
	return logs, err
}

func idValue(id string) any {
	if n, ok := domain.NumericID(id); ok {
		return n
	}
	return id
}
