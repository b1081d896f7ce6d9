package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/programadoraburrido/gestion-flota/internal/model"
)

// DemoPassword shared by the seeded accounts
const DemoPassword = "123"

// PasswordHasher turns a plain password into the stored hash
type PasswordHasher func(plain string) (string, error)

type seedUser struct {
	id       string
	username string
	name     string
	role     model.Role
}

var demoUsers = []seedUser{
	{"user_123", "admin", "Administrador", model.RoleAdmin},
	{"user_456", "manager", "Conductor A", model.RoleManager},
	{"user_777", "driver", "Conductor B", model.RoleDriver},
	{"user_999", "guest", "Invitado", model.RoleGuest},
}

// Seed loads the demo fleet, users and a depot geofence. Inspection dates and DTC
// timestamps are relative to the store clock so the dashboard always has something due.
func (s *Store) Seed(ctx context.Context, hash PasswordHasher) error {
	now := s.now()
	day := func(offset int) *time.Time {
		t := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
		return &t
	}
	date := func(monthsAgo int) time.Time {
		return now.AddDate(0, -monthsAgo, 0).Truncate(24 * time.Hour)
	}

	vehicles := []*model.Vehicle{
		{
			ID: "v_101", Make: "Ford", Model: "Transit", Year: 2020, Plate: "9876-ABC", VIN: "FORD9876ABC",
			CurrentOdometer: 125000, NextInspectionDate: day(330), Status: model.VehicleStatusEnRoute,
			Location: &model.Location{Lat: 40.45, Lng: -3.70}, AssignedToUserID: "user_456",
			MaintenanceHistory: []model.MaintenanceRecord{
				{ID: "m_001", Type: model.ServiceTypeOilChange, Date: date(7), Km: 110000, Cost: 150, Notes: "Standard service A."},
				{ID: "m_003", Type: "Other", Date: date(12), Km: 101000, Cost: 80, Notes: "Technical inspection passed."},
			},
		},
		{
			ID: "v_102", Make: "Mercedes", Model: "Sprinter", Year: 2018, Plate: "1234-XYZ", VIN: "MERCEDES1234XYZ",
			CurrentOdometer: 89000, NextInspectionDate: day(-240), Status: model.VehicleStatusMaintenance,
			Location: &model.Location{Lat: 40.40, Lng: -3.65},
			MaintenanceHistory: []model.MaintenanceRecord{
				{ID: "m_002", Type: "Brakes", Date: date(9), Km: 82000, Cost: 450, Notes: "Front pads and discs replaced."},
			},
		},
		{
			ID: "v_103", Make: "Renault", Model: "Kangoo", Year: 2022, Plate: "5678-DEF", VIN: "RENAULT5678DEF",
			CurrentOdometer: 21000, NextInspectionDate: day(740), Status: model.VehicleStatusEnRoute,
			Location: &model.Location{Lat: 40.42, Lng: -3.75}, AssignedToUserID: "user_456",
		},
		{
			ID: "v_104", Make: "Toyota", Model: "Corolla", Year: 2023, Plate: "2345-GHI", VIN: "TOYOTA2345GHI",
			CurrentOdometer: 15000, NextInspectionDate: day(20), Status: model.VehicleStatusEnRoute,
			Location: &model.Location{Lat: 40.48, Lng: -3.68}, AssignedToUserID: "user_777",
			Errors: []model.DiagnosticCode{
				{ID: "dtc_001", Code: "P0171", Description: "System too lean (Bank 1)", Severity: model.SeverityCritical, Timestamp: now.Add(-time.Hour)},
				{ID: "dtc_002", Code: "C1201", Description: "ABS sensor circuit fault", Severity: model.SeverityWarning, Timestamp: now.Add(-24 * time.Hour)},
			},
		},
		{
			ID: "v_105", Make: "Nissan", Model: "NV200", Year: 2019, Plate: "6789-JKL", VIN: "NISSAN6789JKL",
			CurrentOdometer: 95000, NextInspectionDate: day(125), Status: model.VehicleStatusMaintenance,
			Location: &model.Location{Lat: 40.35, Lng: -3.73}, AssignedToUserID: "user_777",
			MaintenanceHistory: []model.MaintenanceRecord{
				{ID: "m_004", Type: "Tires Rotation", Date: date(1), Km: 94000, Cost: 600, Notes: "Four winter tires fitted."},
			},
		},
		{
			ID: "v_106", Make: "Volvo", Model: "FH", Year: 2017, Plate: "1111-VLV", VIN: "VOLVO1111VLV",
			CurrentOdometer: 350000, NextInspectionDate: day(530), Status: model.VehicleStatusParked,
			Location: &model.Location{Lat: 40.30, Lng: -3.78},
			Errors: []model.DiagnosticCode{
				{ID: "dtc_003", Code: "U0100", Description: "Lost communication with ECM/PCM", Severity: model.SeverityCritical, Timestamp: now.Add(-5 * time.Minute)},
			},
		},
	}

	for _, v := range vehicles {
		if err := s.CreateVehicle(ctx, v); err != nil {
			return fmt.Errorf("seed vehicle %s: %w", v.ID, err)
		}
	}

	for _, u := range demoUsers {
		h, err := hash(DemoPassword)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.username, err)
		}
		if err := s.CreateUser(ctx, &model.User{
			ID: u.id, Username: u.username, Name: u.name, Role: u.role, PasswordHash: h,
		}); err != nil {
			return fmt.Errorf("seed user %s: %w", u.username, err)
		}
	}

	depot := &model.Geofence{
		ID:   "g_depot",
		Name: "Madrid depot",
		Polygon: []model.Location{
			{Lat: 40.40, Lng: -3.72},
			{Lat: 40.44, Lng: -3.72},
			{Lat: 40.44, Lng: -3.68},
			{Lat: 40.40, Lng: -3.68},
		},
		CreatedBy: "user_123",
	}
	if err := s.CreateGeofence(ctx, depot); err != nil {
		return fmt.Errorf("seed geofence: %w", err)
	}
	return nil
}
