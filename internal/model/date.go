package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is what the dashboard's date inputs send
const DateLayout = "2006-01-02"

// ParseDate accepts RFC3339 or a bare YYYY-MM-DD, the latter at midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC3339", raw)
	}
	return t, nil
}

// decodeDate reads an optional JSON date. Absent, null and "" decode to nil.
func decodeDate(data json.RawMessage) (*time.Time, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("date must be a string: %w", err)
	}
	if raw == "" {
		return nil, nil
	}
	t, err := ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *CreateVehicleRequest) UnmarshalJSON(data []byte) error {
	type plain CreateVehicleRequest
	aux := struct {
		*plain
		NextInspectionDate json.RawMessage `json:"next_inspection_date"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d, err := decodeDate(aux.NextInspectionDate)
	if err != nil {
		return err
	}
	r.NextInspectionDate = d
	return nil
}

func (r *UpdateInspectionRequest) UnmarshalJSON(data []byte) error {
	var aux struct {
		NextInspectionDate json.RawMessage `json:"next_inspection_date"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d, err := decodeDate(aux.NextInspectionDate)
	if err != nil {
		return err
	}
	r.NextInspectionDate = d
	return nil
}

func (r *CreateMaintenanceRequest) UnmarshalJSON(data []byte) error {
	type plain CreateMaintenanceRequest
	aux := struct {
		*plain
		Date json.RawMessage `json:"date"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d, err := decodeDate(aux.Date)
	if err != nil {
		return err
	}
	if d != nil {
		r.Date = *d
	} else {
		r.Date = time.Time{}
	}
	return nil
}
