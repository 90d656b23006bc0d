package domain

import (
	"strings"
	"time"
)

// Container statuses used by the statistics views.
const (
	ContainerImportWaiting = "import_waiting"
	ContainerExportWaiting = "export_waiting"
	ContainerInStorage     = "in_storage"
	ContainerInTransit     = "in_transit"
	ContainerDelivered     = "delivered"
)

// ContainerStatuses lists the known container statuses in display order.
var ContainerStatuses = []string{
	ContainerImportWaiting,
	ContainerExportWaiting,
	ContainerInStorage,
	ContainerInTransit,
	ContainerDelivered,
}

// Vessel statuses that count as occupying a berth.
var BerthStatuses = []string{"at_berth", "quai", "docked"}

// Equipment statuses that count as active.
var ActiveEquipmentStatuses = []string{"active", "actif"}

// Customs statuses that count as open.
var OpenCustomsStatuses = []string{"open", "ouvert"}

// EquipmentTypeCrane identifies cranes in the equipment table.
const EquipmentTypeCrane = "crane"

// Team assignment statuses.
const (
	TeamStatusOnline  = "online"
	TeamStatusBusy    = "busy"
	TeamStatusAway    = "away"
	TeamStatusOffline = "offline"
)

// SimulationAction is the toggle recorded by a simulation log entry.
type SimulationAction string

const (
	SimulationEnabled  SimulationAction = "SIMULATION_ENABLED"
	SimulationDisabled SimulationAction = "SIMULATION_DISABLED"
)

// SimulationCategory is the dashboard area a simulation toggle applies to.
type SimulationCategory string

const (
	CategoryVessels    SimulationCategory = "navires"
	CategoryCranes     SimulationCategory = "grues"
	CategoryContainers SimulationCategory = "conteneurs"
	CategoryCustoms    SimulationCategory = "douane"
)

// Valid reports whether a is a known action.
func (a SimulationAction) Valid() bool {
	return a == SimulationEnabled || a == SimulationDisabled
}

// Valid reports whether c is a known category.
func (c SimulationCategory) Valid() bool {
	switch c {
	case CategoryVessels, CategoryCranes, CategoryContainers, CategoryCustoms:
		return true
	}
	return false
}

// SimulationLog is an audit entry for a simulation toggle on the dashboard.
type SimulationLog struct {
	ID        string             `json:"id,omitempty"`
	UserID    string             `json:"user_id"`
	UserName  string             `json:"user_name"`
	UserRole  string             `json:"user_role"`
	Action    SimulationAction   `json:"action"`
	Category  SimulationCategory `json:"category"`
	Timestamp time.Time          `json:"timestamp"`
	Details   string             `json:"details"`
}

// Row converts the log into its stored form.
func (l SimulationLog) Row() Row {
	row := Row{
		"user_id":   l.UserID,
		"user_name": l.UserName,
		"user_role": l.UserRole,
		"action":    string(l.Action),
		"category":  string(l.Category),
		"timestamp": l.Timestamp.UTC().Format(time.RFC3339Nano),
		"details":   l.Details,
	}
	if l.ID != "" {
		row[ColumnID] = l.ID
	}
	return row
}

// SimulationLogFromRow decodes a stored log row.
func SimulationLogFromRow(row Row) SimulationLog {
	log := SimulationLog{
		ID:       row.ID(),
		UserID:   row.String("user_id"),
		UserName: row.String("user_name"),
		UserRole: row.String("user_role"),
		Action:   SimulationAction(row.String("action")),
		Category: SimulationCategory(row.String("category")),
		Details:  row.String("details"),
	}
	if ts, ok := ParseTimestamp(row["timestamp"]); ok {
		log.Timestamp = ts
	}
	return log
}

// ContainerStats counts containers and those waiting for import or export.
type ContainerStats struct {
	Total   int `json:"total"`
	Waiting int `json:"waiting"`
}

// VesselStats counts vessels and those occupying a berth.
type VesselStats struct {
	Total    int `json:"total"`
	Occupied int `json:"occupied"`
}

// EquipmentStats counts equipment (or cranes) and the active subset.
type EquipmentStats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

// CustomsStatus summarizes customs posts.
type CustomsStatus struct {
	Total  int    `json:"total"`
	Open   int    `json:"open"`
	Status string `json:"status"`
}

// UserStats counts users and those with an assignment that is not offline.
type UserStats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

// Statistics is the summary shown on the statistics page.
type Statistics struct {
	Containers            ContainerStats `json:"containers"`
	Vessels               VesselStats    `json:"vessels"`
	Equipment             EquipmentStats `json:"equipment"`
	Users                 UserStats      `json:"users"`
	ContainerStatusCounts map[string]int `json:"container_status_counts"`
}

// TeamMember is an active team assignment joined with its user and zone.
type TeamMember struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	ZoneID   string `json:"zone_id"`
	ZoneName string `json:"zone_name,omitempty"`
	Status   string `json:"status"`
}

// CurvePoint is one time bucket of the resource usage chart: the "datetime" key
// plus one entry per resource type.
type CurvePoint map[string]any

// Dashboard bundles the collections the operator dashboard loads at once.
type Dashboard struct {
	Equipment     []Row        `json:"equipment"`
	Vessels       []Row        `json:"vessels"`
	Containers    []Row        `json:"containers"`
	Metrics       []Row        `json:"metrics"`
	ResourceUsage []Row        `json:"resource_usage"`
	TeamMembers   []TeamMember `json:"team_members"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp accepts the timestamp shapes produced by JSON clients and by
// Postgres row_to_json output.
func ParseTimestamp(v any) (time.Time, bool) {
	switch typed := v.(type) {
	case time.Time:
		return typed, true
	case string:
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, typed); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// ContainsFold reports whether value matches any candidate case-insensitively.
func ContainsFold(candidates []string, value string) bool {
	for _, c := range candidates {
		if strings.EqualFold(c, value) {
			return true
		}
	}
	return false
}
