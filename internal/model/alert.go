package model

import "time"

// AlertType 告警类型
type AlertType string

const (
	AlertTypeDTC           AlertType = "DTC"
	AlertTypeInspectionDue AlertType = "inspection-due"
	AlertTypeOilDue        AlertType = "oil-due"
	AlertTypeHighCost      AlertType = "high-cost"
	AlertTypeGeofenceEnter AlertType = "geofence-enter"
	AlertTypeGeofenceExit  AlertType = "geofence-exit"
)

// AllAlertTypes in display order
var AllAlertTypes = []AlertType{
	AlertTypeDTC,
	AlertTypeInspectionDue,
	AlertTypeOilDue,
	AlertTypeHighCost,
	AlertTypeGeofenceEnter,
	AlertTypeGeofenceExit,
}

// IsCondition reports whether the alert reflects a standing vehicle condition
// (as opposed to a one-off geofence transition).
func (t AlertType) IsCondition() bool {
	switch t {
	case AlertTypeDTC, AlertTypeInspectionDue, AlertTypeOilDue, AlertTypeHighCost:
		return true
	}
	return false
}

// AlertStatus 告警状态
type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "active"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
)

// CriticalAlertSeverity alerts at or above this level count as critical in reports
const CriticalAlertSeverity = 3

// AlertEvent 告警事件
type AlertEvent struct {
	ID             string      `json:"id"`
	VehicleID      string      `json:"vehicle_id"`
	GeofenceID     string      `json:"geofence_id,omitempty"`
	Type           AlertType   `json:"type"`
	Severity       int         `json:"severity"`
	Message        string      `json:"message"`
	Timestamp      time.Time   `json:"timestamp"`
	Status         AlertStatus `json:"status"`
	Acknowledged   bool        `json:"acknowledged"`
	AcknowledgedBy string      `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time  `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time  `json:"resolved_at,omitempty"`
}

// AlertSummary is the derived per-vehicle alert state. Never persisted.
type AlertSummary struct {
	CriticalDTC          bool    `json:"critical_dtc"`
	InspectionDue        bool    `json:"inspection_due"`
	DaysUntilInspection  *int    `json:"days_until_inspection"`
	OilDue               bool    `json:"oil_due"`
	KmRemainingOil       *int    `json:"km_remaining_oil"`
	TotalMaintenanceCost float64 `json:"total_maintenance_cost"`
	HighCostAlert        bool    `json:"high_cost_alert"`
	Severity             int     `json:"severity"`
}

// AlertListQuery 告警查询
type AlertListQuery struct {
	VehicleID   string    `form:"vehicle_id"`
	Type        AlertType `form:"type"`
	UnackedOnly bool      `form:"unacknowledged"`
	Limit       int       `form:"limit"`
}

// AlertStats 告警统计
type AlertStats struct {
	Total    int                 `json:"total"`
	ByType   map[AlertType]int   `json:"by_type"`
	ByStatus map[AlertStatus]int `json:"by_status"`
	Critical int                 `json:"critical"`
}

// WSMessage is pushed to dashboard WebSocket clients
type WSMessage struct {
	Type string      `json:"type"` // alert, location
	Data interface{} `json:"data"`
}

// LocationUpdate 位置推送
type LocationUpdate struct {
	VehicleID string    `json:"vehicle_id"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// InspectionDigest counts vehicles whose inspection is overdue or coming up
type InspectionDigest struct {
	Overdue    int             `json:"overdue"`
	DueSoon    int             `json:"due_soon"`
	WindowDays int             `json:"window_days"`
	Vehicles   []InspectionRow `json:"vehicles"`
}

// InspectionRow one line of the digest
type InspectionRow struct {
	VehicleID string    `json:"vehicle_id"`
	Plate     string    `json:"plate"`
	Name      string    `json:"name"`
	DueDate   time.Time `json:"due_date"`
	DaysLeft  int       `json:"days_left"`
	Overdue   bool      `json:"overdue"`
}
