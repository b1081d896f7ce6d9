package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/programadoraburrido/gestion-flota/internal/metrics"
	"github.com/programadoraburrido/gestion-flota/internal/model"
	"github.com/programadoraburrido/gestion-flota/internal/repository"
)

var (
	adminP   = &model.Principal{UserID: "user_123", Username: "admin", Role: model.RoleAdmin}
	managerP = &model.Principal{UserID: "user_456", Username: "manager", Role: model.RoleManager}
	driverP  = &model.Principal{UserID: "user_777", Username: "driver", Role: model.RoleDriver}
	guestP   = &model.Principal{UserID: "user_999", Username: "guest", Role: model.RoleGuest}
)

type fleetFixture struct {
	store       *repository.Store
	evaluator   *AlertEvaluator
	vehicles    *VehicleService
	maintenance *MaintenanceService
}

func newFleetFixture(t *testing.T) *fleetFixture {
	t.Helper()
	store := repository.NewStore(repository.WithClock(fixedClock))
	if err := store.Seed(context.Background(), plainHasher); err != nil {
		t.Fatal(err)
	}
	evaluator := newTestEvaluator(model.DefaultIntervals())
	summaries := NewSummaryCache(evaluator, time.Minute)
	vehicles := NewVehicleService(store, evaluator, summaries, zap.NewNop())
	return &fleetFixture{
		store:       store,
		evaluator:   evaluator,
		vehicles:    vehicles,
		maintenance: NewMaintenanceService(store, vehicles, summaries, zap.NewNop()),
	}
}

func ids(views []model.VehicleView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.ID)
	}
	return out
}

func TestVehicleVisibility(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		p    *model.Principal
		want int
	}{
		{"admin sees all", adminP, 6},
		{"manager sees assigned", managerP, 2},
		{"driver sees assigned", driverP, 2},
		{"guest has nothing assigned", guestP, 0},
		{"anonymous", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(f.vehicles.List(ctx, tt.p, model.VehicleListQuery{})); got != tt.want {
				t.Errorf("visible = %d, want %d", got, tt.want)
			}
		})
	}

	if _, err := f.vehicles.Get(ctx, driverP, "v_101"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("driver reading manager vehicle err = %v", err)
	}
}

func TestVehicleListFilters(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		q     model.VehicleListQuery
		first string
		count int
	}{
		{"default sort by km", model.VehicleListQuery{}, "v_106", 6},
		{"search plate", model.VehicleListQuery{Query: "2345-ghi"}, "v_104", 1},
		{"search make", model.VehicleListQuery{Query: "volvo"}, "v_106", 1},
		{"year", model.VehicleListQuery{Year: 2018}, "v_102", 1},
		{"low band", model.VehicleListQuery{Severity: "low"}, "v_101", 3},
		{"medium band", model.VehicleListQuery{Severity: "medium"}, "v_106", 2},
		{"high band", model.VehicleListQuery{Severity: "high"}, "v_104", 1},
		{"sort by severity", model.VehicleListQuery{SortBy: "severity"}, "v_104", 6},
		{"sort by cost", model.VehicleListQuery{SortBy: "cost"}, "v_105", 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.vehicles.List(ctx, adminP, tt.q)
			if len(got) != tt.count {
				t.Fatalf("count = %d, want %d (%v)", len(got), tt.count, ids(got))
			}
			if got[0].ID != tt.first {
				t.Errorf("first = %s, want %s (%v)", got[0].ID, tt.first, ids(got))
			}
		})
	}
}

func TestVehicleCreate(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	vw, err := f.vehicles.Create(ctx, managerP, model.CreateVehicleRequest{Plate: "7777-new", VIN: "abc123456", CurrentOdometer: 1000})
	if err != nil {
		t.Fatal(err)
	}
	if vw.Make != "FORD" || vw.Model != "TRANSIT" || vw.Year != 2020 {
		t.Errorf("vin not decoded: %+v", vw.Vehicle)
	}
	if vw.Plate != "7777-NEW" || vw.AssignedToUserID != "user_456" {
		t.Errorf("plate/assignment = %s/%s", vw.Plate, vw.AssignedToUserID)
	}
	if vw.Location == nil ||
		vw.Location.Lat < 40.42-0.025 || vw.Location.Lat > 40.42+0.025 ||
		vw.Location.Lng < -3.70-0.025 || vw.Location.Lng > -3.70+0.025 {
		t.Errorf("location not near origin: %+v", vw.Location)
	}

	if _, err := f.vehicles.Create(ctx, managerP, model.CreateVehicleRequest{Plate: "8888-NEW"}); !errors.Is(err, ErrInvalidVehicle) {
		t.Errorf("missing make err = %v", err)
	}
	if _, err := f.vehicles.Create(ctx, managerP, model.CreateVehicleRequest{Plate: "9876-ABC", Make: "Seat", Model: "Leon"}); !errors.Is(err, repository.ErrAlreadyExists) {
		t.Errorf("duplicate plate err = %v", err)
	}
}

func TestVehicleUpdatesInvalidateSummary(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	before, err := f.vehicles.Get(ctx, adminP, "v_103")
	if err != nil {
		t.Fatal(err)
	}
	if before.Summary.InspectionDue {
		t.Fatal("v_103 should not be due")
	}

	after, err := f.vehicles.UpdateInspection(ctx, adminP, "v_103", daysFromNow(5))
	if err != nil {
		t.Fatal(err)
	}
	if !after.Summary.InspectionDue || after.Summary.Severity != 2 {
		t.Errorf("summary not refreshed: %+v", after.Summary)
	}

	cleared, err := f.vehicles.UpdateInspection(ctx, adminP, "v_103", nil)
	if err != nil {
		t.Fatal(err)
	}
	if cleared.NextInspectionDate != nil || cleared.Summary.DaysUntilInspection != nil {
		t.Errorf("inspection not cleared: %+v", cleared.Summary)
	}

	if _, err := f.vehicles.UpdateOdometer(ctx, adminP, "v_103", 100); !errors.Is(err, ErrInvalidVehicle) {
		t.Errorf("rolled back odometer err = %v", err)
	}
	if _, err := f.maintenance.Add(ctx, adminP, "v_103", model.CreateMaintenanceRequest{
		Type: "timing belt", Date: evalNow, Km: 21000, Cost: 5200,
	}); err != nil {
		t.Fatal(err)
	}
	got, _ := f.vehicles.Get(ctx, adminP, "v_103")
	if !got.Summary.HighCostAlert {
		t.Errorf("high cost not reflected: %+v", got.Summary)
	}
}

func TestMaintenanceValidation(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		p       *model.Principal
		vehicle string
		req     model.CreateMaintenanceRequest
		wantErr error
	}{
		{"known type", adminP, "v_101", model.CreateMaintenanceRequest{Type: "Brakes", Date: evalNow, Cost: 10}, nil},
		{"unknown type", adminP, "v_101", model.CreateMaintenanceRequest{Type: "Car wash", Date: evalNow}, ErrInvalidRecord},
		{"negative cost", adminP, "v_101", model.CreateMaintenanceRequest{Type: "Brakes", Date: evalNow, Cost: -1}, ErrInvalidRecord},
		{"not visible", driverP, "v_101", model.CreateMaintenanceRequest{Type: "Brakes", Date: evalNow}, repository.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.maintenance.Add(ctx, tt.p, tt.vehicle, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDTCRaisesSeverity(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	dtc, err := f.maintenance.AddDTC(ctx, managerP, "v_103", model.CreateDTCRequest{Code: "p0300", Severity: model.SeverityCritical})
	if err != nil {
		t.Fatal(err)
	}
	if dtc.Code != "P0300" {
		t.Errorf("code = %s", dtc.Code)
	}
	vw, _ := f.vehicles.Get(ctx, managerP, "v_103")
	if !vw.Summary.CriticalDTC || vw.Summary.Severity != 3 {
		t.Errorf("summary = %+v", vw.Summary)
	}

	if err := f.maintenance.ClearDTC(ctx, managerP, "v_103", dtc.ID); err != nil {
		t.Fatal(err)
	}
	vw, _ = f.vehicles.Get(ctx, managerP, "v_103")
	if vw.Summary.CriticalDTC {
		t.Error("critical flag survived clearing the dtc")
	}
}

func TestInspectionDigest(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	d := f.vehicles.InspectionDigest(ctx, adminP)
	if d.Overdue != 1 || d.DueSoon != 1 || d.WindowDays != InspectionDueSoonDays {
		t.Fatalf("digest = %+v", d)
	}
	if len(d.Vehicles) != 2 || d.Vehicles[0].VehicleID != "v_102" || !d.Vehicles[0].Overdue {
		t.Errorf("rows = %+v", d.Vehicles)
	}

	if d := f.vehicles.InspectionDigest(ctx, managerP); d.Overdue != 0 || d.DueSoon != 0 {
		t.Errorf("manager digest = %+v", d)
	}
}

func TestRecommendations(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	rules, err := f.vehicles.Recommendations(ctx, adminP, "v_101")
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 3 {
		t.Errorf("Ford Transit 2020 rules = %d", len(rules))
	}
	rules, _ = f.vehicles.Recommendations(ctx, adminP, "v_106")
	if len(rules) != 0 {
		t.Errorf("Volvo FH rules = %d", len(rules))
	}
}

func TestVehicleWritePermissions(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	if _, err := f.vehicles.Create(ctx, guestP, model.CreateVehicleRequest{Plate: "1234-GST", Make: "Seat", Model: "Ibiza"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("guest create err = %v", err)
	}
	if err := f.vehicles.Delete(ctx, driverP, "v_104"); !errors.Is(err, ErrForbidden) {
		t.Errorf("driver delete err = %v", err)
	}
	if err := f.vehicles.Delete(ctx, adminP, "v_104"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.vehicles.Get(ctx, adminP, "v_104"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("deleted vehicle err = %v", err)
	}
}

func TestVehicleDeleteDropsSeverityGauge(t *testing.T) {
	f := newFleetFixture(t)
	ctx := context.Background()

	metrics.VehicleSeverity.WithLabelValues("v_102").Set(2)
	if err := f.vehicles.Delete(ctx, adminP, "v_102"); err != nil {
		t.Fatal(err)
	}
	if metrics.VehicleSeverity.DeleteLabelValues("v_102") {
		t.Error("severity series survived the delete")
	}
}
