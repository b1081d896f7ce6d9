package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    time.Time
		wantErr bool
	}{
		{"date only", "2025-05-30", time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC), false},
		{"rfc3339", "2025-05-30T10:15:00Z", time.Date(2025, 5, 30, 10, 15, 0, 0, time.UTC), false},
		{"day first", "30/05/2025", time.Time{}, true},
		{"empty", "", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCreateMaintenanceRequestDates(t *testing.T) {
	want := time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC)
	for _, body := range []string{
		`{"type":"Oil Change","date":"2025-05-30","km":1000,"cost":90}`,
		`{"type":"Oil Change","date":"2025-05-30T00:00:00Z","km":1000,"cost":90}`,
	} {
		var req CreateMaintenanceRequest
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			t.Fatalf("%s: %v", body, err)
		}
		if !req.Date.Equal(want) || req.Type != "Oil Change" || req.Km != 1000 || req.Cost != 90 {
			t.Errorf("%s decoded to %+v", body, req)
		}
	}

	var req CreateMaintenanceRequest
	if err := json.Unmarshal([]byte(`{"type":"Brakes","date":"30-05-2025"}`), &req); err == nil {
		t.Error("malformed date accepted")
	}
}

func TestInspectionDates(t *testing.T) {
	var upd UpdateInspectionRequest
	if err := json.Unmarshal([]byte(`{"next_inspection_date":"2025-07-01"}`), &upd); err != nil {
		t.Fatal(err)
	}
	if upd.NextInspectionDate == nil || !upd.NextInspectionDate.Equal(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("inspection = %v", upd.NextInspectionDate)
	}
	if err := json.Unmarshal([]byte(`{"next_inspection_date":null}`), &upd); err != nil || upd.NextInspectionDate != nil {
		t.Errorf("null should clear the date, got %v (%v)", upd.NextInspectionDate, err)
	}

	var create CreateVehicleRequest
	body := `{"plate":"7777-DTE","make":"Seat","model":"Leon","year":2021,"next_inspection_date":"2026-01-15"}`
	if err := json.Unmarshal([]byte(body), &create); err != nil {
		t.Fatal(err)
	}
	if create.Plate != "7777-DTE" || create.Year != 2021 || create.NextInspectionDate == nil ||
		create.NextInspectionDate.Format(DateLayout) != "2026-01-15" {
		t.Errorf("create = %+v", create)
	}
}
