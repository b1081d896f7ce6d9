package model

import (
	"strings"
	"time"
)

// VehicleStatus operating state shown on the dashboard
type VehicleStatus string

const (
	VehicleStatusEnRoute     VehicleStatus = "en_route"
	VehicleStatusParked      VehicleStatus = "parked"
	VehicleStatusMaintenance VehicleStatus = "maintenance"
)

// ServiceTypeOilChange is the reserved maintenance type that drives the oil interval check.
const ServiceTypeOilChange = "Oil Change"

// ServiceTypes known maintenance categories
var ServiceTypes = []string{
	ServiceTypeOilChange,
	"Timing Belt",
	"Brakes",
	"Tires Rotation",
	"Battery Replacement",
	"Other",
}

// Location is a coordinate pair in decimal degrees
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PositionSample is one entry of a vehicle's location history
type PositionSample struct {
	Location
	Timestamp time.Time `json:"timestamp"`
}

// Vehicle 车辆信息
type Vehicle struct {
	ID                 string              `json:"id"`
	Make               string              `json:"make"`
	Model              string              `json:"model"`
	Year               int                 `json:"year"`
	Plate              string              `json:"plate"`
	VIN                string              `json:"vin,omitempty"`
	Status             VehicleStatus       `json:"status"`
	CurrentOdometer    int                 `json:"current_odometer"`
	MaintenanceHistory []MaintenanceRecord `json:"maintenance_history"`
	Errors             []DiagnosticCode    `json:"errors"`
	NextInspectionDate *time.Time          `json:"next_inspection_date,omitempty"`
	Location           *Location           `json:"location,omitempty"`
	AssignedToUserID   string              `json:"assigned_to_user_id,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
}

// Clone returns a deep copy so callers never share slices or pointers with the store.
func (v *Vehicle) Clone() Vehicle {
	c := *v
	if v.MaintenanceHistory != nil {
		c.MaintenanceHistory = append([]MaintenanceRecord(nil), v.MaintenanceHistory...)
	}
	if v.Errors != nil {
		c.Errors = append([]DiagnosticCode(nil), v.Errors...)
	}
	if v.NextInspectionDate != nil {
		d := *v.NextInspectionDate
		c.NextInspectionDate = &d
	}
	if v.Location != nil {
		l := *v.Location
		c.Location = &l
	}
	return c
}

// DisplayName make and model as shown in alert messages
func (v *Vehicle) DisplayName() string {
	return strings.TrimSpace(v.Make + " " + v.Model)
}

// MaintenanceRecord 维修保养记录
type MaintenanceRecord struct {
	ID        string    `json:"id"`
	VehicleID string    `json:"vehicle_id"`
	Type      string    `json:"type"`
	Date      time.Time `json:"date"`
	Km        int       `json:"km"`
	Cost      float64   `json:"cost"`
	Notes     string    `json:"notes,omitempty"`
}

// DiagnosticCode is a diagnostic trouble code reported by the vehicle
type DiagnosticCode struct {
	ID          string      `json:"id"`
	Code        string      `json:"code"`
	Description string      `json:"description"`
	Severity    DTCSeverity `json:"severity"`
	Timestamp   time.Time   `json:"timestamp"`
}

// CreateVehicleRequest 创建车辆请求
type CreateVehicleRequest struct {
	Make               string     `json:"make"`
	Model              string     `json:"model"`
	Year               int        `json:"year"`
	Plate              string     `json:"plate" binding:"required"`
	VIN                string     `json:"vin"`
	CurrentOdometer    int        `json:"current_odometer" binding:"min=0"`
	NextInspectionDate *time.Time `json:"next_inspection_date"`
	AssignedToUserID   string     `json:"assigned_to_user_id"`
}

// UpdateInspectionRequest sets or clears the next inspection (ITV) date
type UpdateInspectionRequest struct {
	NextInspectionDate *time.Time `json:"next_inspection_date"`
}

// UpdateOdometerRequest records a new odometer reading
type UpdateOdometerRequest struct {
	CurrentOdometer int `json:"current_odometer" binding:"min=0"`
}

// CreateMaintenanceRequest 添加保养记录请求
type CreateMaintenanceRequest struct {
	Type  string    `json:"type" binding:"required"`
	Date  time.Time `json:"date" binding:"required"`
	Km    int       `json:"km" binding:"min=0"`
	Cost  float64   `json:"cost" binding:"min=0"`
	Notes string    `json:"notes"`
}

// CreateDTCRequest reports a new diagnostic trouble code
type CreateDTCRequest struct {
	Code        string      `json:"code" binding:"required"`
	Description string      `json:"description"`
	Severity    DTCSeverity `json:"severity" binding:"required"`
}

// VehicleListQuery 车辆列表查询
type VehicleListQuery struct {
	Query    string `form:"q"`
	Year     int    `form:"year"`
	Severity string `form:"severity"` // low, medium, high
	SortBy   string `form:"sort"`     // km, cost, severity
}

// VehicleView is a vehicle together with its current alert summary
type VehicleView struct {
	Vehicle
	Summary AlertSummary `json:"summary"`
}
