package domain

import (
	"sort"
	"strings"
)

// Table names a relation in the port schema.
type Table string

const (
	TableContainers        Table = "containers"
	TableVessels           Table = "vessels"
	TableEquipment         Table = "equipment"
	TableMetrics           Table = "metrics"
	TableUsers             Table = "users"
	TableWeatherConditions Table = "weather_conditions"
	TableResourceUsage     Table = "resource_usage"
	TableTeamAssignments   Table = "team_assignments"
	TableSimulationLogs    Table = "simulation_logs"
	TablePortStatus        Table = "port_status"
	TableCustoms           Table = "customs"
	TableZones             Table = "zones"
	TableAuthCredentials   Table = "auth_credentials"
)

// ColumnID is the primary key column shared by every table.
const ColumnID = "id"

// TableSpec describes the columns a table accepts and which of them a create
// payload must carry.
type TableSpec struct {
	Name     Table
	Columns  []string
	Required []string
	// CRUD marks tables served by the generic resource router.
	CRUD bool
}

// Tables is the schema catalog. Column lists mirror the DDL bundle used by the
// postgres backend.
var Tables = map[Table]TableSpec{
	TableContainers: {
		Name:     TableContainers,
		Columns:  []string{"id", "container_number", "iso_code", "size", "status", "type", "location", "weight", "zone_id", "vessel_id", "customs_cleared", "arrival", "departure", "arrival_date", "departure_date", "created_at", "updated_at"},
		Required: []string{"container_number", "status"},
		CRUD:     true,
	},
	TableVessels: {
		Name:     TableVessels,
		Columns:  []string{"id", "name", "imo_number", "status", "vessel_type", "cargo_type", "eta", "etd", "berth_id", "berth", "quay", "dock", "location", "capacity_teu", "length_overall", "created_at", "updated_at"},
		Required: []string{"name", "status"},
		CRUD:     true,
	},
	TableEquipment: {
		Name:     TableEquipment,
		Columns:  []string{"id", "name", "type", "equipment_code", "status", "zone_id", "load", "load_percentage", "fuel_level", "battery_level", "sensor_value", "metric_name", "metric_value", "metric_unit", "created_at", "updated_at"},
		Required: []string{"name", "type", "status"},
		CRUD:     true,
	},
	TableMetrics: {
		Name:     TableMetrics,
		Columns:  []string{"id", "metric_type", "value", "unit", "recorded_at"},
		Required: []string{"metric_type", "value"},
		CRUD:     true,
	},
	TableUsers: {
		Name:     TableUsers,
		Columns:  []string{"id", "email", "full_name", "role", "created_at"},
		Required: []string{"id", "email", "full_name", "role"},
	},
	TableWeatherConditions: {
		Name:     TableWeatherConditions,
		Columns:  []string{"id", "temperature", "conditions", "wind_speed", "wave_height", "next_high_tide", "next_low_tide", "recorded_at"},
		Required: []string{"temperature"},
		CRUD:     true,
	},
	TableResourceUsage: {
		Name:     TableResourceUsage,
		Columns:  []string{"id", "resource_type", "usage_percentage", "consumption", "unit", "recorded_at"},
		Required: []string{"resource_type", "usage_percentage", "recorded_at"},
		CRUD:     true,
	},
	TableTeamAssignments: {
		Name:     TableTeamAssignments,
		Columns:  []string{"id", "user_id", "zone_id", "status", "assigned_at"},
		Required: []string{"user_id", "zone_id", "status"},
	},
	TableSimulationLogs: {
		Name:     TableSimulationLogs,
		Columns:  []string{"id", "user_id", "user_name", "user_role", "action", "category", "timestamp", "details"},
		Required: []string{"user_id", "action", "category"},
	},
	TablePortStatus: {
		Name:     TablePortStatus,
		Columns:  []string{"id", "status", "berth_occupancy", "yard_occupancy", "notes", "recorded_at"},
		Required: []string{"status"},
	},
	TableCustoms: {
		Name:     TableCustoms,
		Columns:  []string{"id", "name", "status"},
		Required: []string{"name", "status"},
	},
	TableZones: {
		Name:     TableZones,
		Columns:  []string{"id", "name"},
		Required: []string{"name"},
	},
	TableAuthCredentials: {
		Name:     TableAuthCredentials,
		Columns:  []string{"id", "email", "password_hash", "full_name", "role", "created_at"},
		Required: []string{"id", "email", "password_hash"},
	},
}

// Lookup returns the TableSpec for a table name.
func Lookup(name string) (TableSpec, bool) {
	spec, ok := Tables[Table(name)]
	return spec, ok
}

// CRUDTables lists the tables exposed by the generic resource router, sorted.
func CRUDTables() []Table {
	var out []Table
	for name, spec := range Tables {
		if spec.CRUD {
			out = append(out, name)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasColumn reports whether the table declares column.
func (s TableSpec) HasColumn(column string) bool {
	for _, c := range s.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// CheckColumns rejects payload keys that are not columns of the table.
func (s TableSpec) CheckColumns(row Row) error {
	var unknown []string
	for k := range row {
		if !s.HasColumn(k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return ValidationError{Message: "unknown columns for " + string(s.Name) + ": " + strings.Join(unknown, ", ")}
}

// CheckRequired rejects a create payload that lacks a required column or
// carries it empty.
func (s TableSpec) CheckRequired(row Row) error {
	var missing []string
	for _, col := range s.Required {
		if isBlank(row[col]) {
			missing = append(missing, col)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return MissingFields(missing)
}

func isBlank(v any) bool {
	switch typed := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	default:
		return false
	}
}
