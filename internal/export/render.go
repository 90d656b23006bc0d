// Package export renders port data as CSV or JSON reports and stores them in
// blob storage from a background worker.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"portflow/internal/core"
	"portflow/pkg/domain"
)

// Format is an artifact encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// Report kinds beyond the exposed tables.
const (
	KindSimulationLogs = "simulation_logs"
	KindStatistics     = "statistics"
)

// Source is the read surface reports are built from.
type Source interface {
	List(ctx context.Context, table domain.Table, q domain.Query) ([]domain.Row, error)
	SimulationLogs(ctx context.Context, filter core.SimulationLogFilter) ([]domain.SimulationLog, error)
	Statistics(ctx context.Context) (domain.Statistics, error)
}

// ParseFormat validates a requested format. Empty selects CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", domain.ValidationError{Field: "format", Message: "must be csv or json"}
}

// ValidKind reports whether kind names a report.
func ValidKind(kind string) bool {
	if kind == KindSimulationLogs || kind == KindStatistics {
		return true
	}
	spec, ok := domain.Lookup(kind)
	return ok && spec.CRUD
}

// Render builds the report for kind in format.
func Render(ctx context.Context, src Source, kind string, format Format) ([]byte, error) {
	switch kind {
	case KindSimulationLogs:
		logs, err := src.SimulationLogs(ctx, core.SimulationLogFilter{})
		if err != nil {
			return nil, err
		}
		if format == FormatJSON {
			return marshalJSON(logs)
		}
		return SimulationLogsCSV(logs)
	case KindStatistics:
		stats, err := src.Statistics(ctx)
		if err != nil {
			return nil, err
		}
		if format == FormatJSON {
			return marshalJSON(stats)
		}
		return StatisticsCSV(stats)
	}
	if !ValidKind(kind) {
		return nil, domain.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown report %q", kind)}
	}
	rows, err := src.List(ctx, domain.Table(kind), domain.Query{})
	if err != nil {
		return nil, err
	}
	if format == FormatJSON {
		return marshalJSON(rows)
	}
	return RowsCSV(domain.Tables[domain.Table(kind)], rows)
}

func marshalJSON(v any) ([]byte, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return out, nil
}

func writeCSV(records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// cell renders a column value. Nested values are written as JSON.
func cell(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case map[string]any, []any, domain.Row:
		b, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}
		return string(b)
	default:
		return domain.KeyOf(typed)
	}
}

// RowsCSV writes rows with the table's columns as header.
func RowsCSV(spec domain.TableSpec, rows []domain.Row) ([]byte, error) {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, append([]string(nil), spec.Columns...))
	for _, row := range rows {
		rec := make([]string, len(spec.Columns))
		for i, col := range spec.Columns {
			rec[i] = cell(row[col])
		}
		records = append(records, rec)
	}
	return writeCSV(records)
}

// SimulationLogsCSV writes one line per log entry.
func SimulationLogsCSV(logs []domain.SimulationLog) ([]byte, error) {
	records := [][]string{{"id", "timestamp", "user_id", "user_name", "user_role", "action", "category", "details"}}
	for _, l := range logs {
		ts := ""
		if !l.Timestamp.IsZero() {
			ts = l.Timestamp.UTC().Format(time.RFC3339)
		}
		records = append(records, []string{
			l.ID, ts, l.UserID, l.UserName, l.UserRole, string(l.Action), string(l.Category), l.Details,
		})
	}
	return writeCSV(records)
}

// StatisticsCSV writes the resource totals followed by the container status
// breakdown.
func StatisticsCSV(stats domain.Statistics) ([]byte, error) {
	itoa := strconv.Itoa
	records := [][]string{
		{"resource", "total", "active"},
		{"containers", itoa(stats.Containers.Total), itoa(stats.Containers.Waiting)},
		{"vessels", itoa(stats.Vessels.Total), itoa(stats.Vessels.Occupied)},
		{"equipment", itoa(stats.Equipment.Total), itoa(stats.Equipment.Active)},
		{"users", itoa(stats.Users.Total), itoa(stats.Users.Active)},
		{"container_status", "count", ""},
	}
	for _, status := range domain.ContainerStatuses {
		records = append(records, []string{status, itoa(stats.ContainerStatusCounts[status]), ""})
	}
	return writeCSV(records)
}
