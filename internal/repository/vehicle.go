package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/programadoraburrido/gestion-flota/internal/model"
)

// ListVehicles 获取全部车辆, in creation order
func (s *Store) ListVehicles(ctx context.Context) []model.Vehicle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Vehicle, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.vehicles[id].Clone())
	}
	return out
}

// GetVehicle 获取车辆
func (s *Store) GetVehicle(ctx context.Context, id string) (*model.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("vehicle %s: %w", id, ErrNotFound)
	}
	c := v.Clone()
	return &c, nil
}

// CreateVehicle 创建车辆. An empty ID is generated; plates are unique.
func (s *Store) CreateVehicle(ctx context.Context, v *model.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v.ID == "" {
		v.ID = newID()
	}
	if _, ok := s.vehicles[v.ID]; ok {
		return fmt.Errorf("vehicle %s: %w", v.ID, ErrAlreadyExists)
	}
	for _, existing := range s.vehicles {
		if strings.EqualFold(existing.Plate, v.Plate) {
			return fmt.Errorf("plate %s: %w", v.Plate, ErrAlreadyExists)
		}
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = s.now()
	}
	if v.MaintenanceHistory == nil {
		v.MaintenanceHistory = []model.MaintenanceRecord{}
	}
	if v.Errors == nil {
		v.Errors = []model.DiagnosticCode{}
	}
	for i := range v.MaintenanceHistory {
		v.MaintenanceHistory[i].VehicleID = v.ID
	}

	stored := v.Clone()
	s.vehicles[v.ID] = &stored
	s.order = append(s.order, v.ID)
	if v.Location != nil {
		s.appendHistory(v.ID, *v.Location, v.CreatedAt)
	}
	return nil
}

// UpdateVehicle applies fn to the stored vehicle under the write lock. fn may reject the
// change by returning an error, in which case nothing is written.
func (s *Store) UpdateVehicle(ctx context.Context, id string, fn func(v *model.Vehicle) error) (*model.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("vehicle %s: %w", id, ErrNotFound)
	}
	draft := v.Clone()
	if err := fn(&draft); err != nil {
		return nil, err
	}
	draft.ID = id
	s.vehicles[id] = &draft
	out := draft.Clone()
	return &out, nil
}

// DeleteVehicle 删除车辆 and its history
func (s *Store) DeleteVehicle(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vehicles[id]; !ok {
		return fmt.Errorf("vehicle %s: %w", id, ErrNotFound)
	}
	delete(s.vehicles, id)
	delete(s.history, id)
	for i, vid := range s.order {
		if vid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// SetInspectionDate sets or clears (nil) the next inspection date
func (s *Store) SetInspectionDate(ctx context.Context, id string, date *time.Time) error {
	_, err := s.UpdateVehicle(ctx, id, func(v *model.Vehicle) error {
		if date == nil {
			v.NextInspectionDate = nil
			return nil
		}
		d := *date
		v.NextInspectionDate = &d
		return nil
	})
	return err
}

// SetLocation moves the vehicle and records the sample in its history
func (s *Store) SetLocation(ctx context.Context, id string, loc model.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vehicles[id]
	if !ok {
		return fmt.Errorf("vehicle %s: %w", id, ErrNotFound)
	}
	l := loc
	v.Location = &l
	s.appendHistory(id, loc, s.now())
	return nil
}

// appendHistory must be called with the write lock held
func (s *Store) appendHistory(id string, loc model.Location, at time.Time) {
	h := append(s.history[id], model.PositionSample{Location: loc, Timestamp: at})
	if len(h) > s.historySize {
		h = append([]model.PositionSample(nil), h[len(h)-s.historySize:]...)
	}
	s.history[id] = h
}

// LocationHistory returns the recorded positions, oldest first
func (s *Store) LocationHistory(ctx context.Context, id string) ([]model.PositionSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.vehicles[id]; !ok {
		return nil, fmt.Errorf("vehicle %s: %w", id, ErrNotFound)
	}
	return append([]model.PositionSample{}, s.history[id]...), nil
}

// AddMaintenanceRecord 添加保养记录
func (s *Store) AddMaintenanceRecord(ctx context.Context, vehicleID string, rec model.MaintenanceRecord) (*model.MaintenanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vehicles[vehicleID]
	if !ok {
		return nil, fmt.Errorf("vehicle %s: %w", vehicleID, ErrNotFound)
	}
	if rec.ID == "" {
		rec.ID = newID()
	}
	rec.VehicleID = vehicleID
	v.MaintenanceHistory = append(v.MaintenanceHistory, rec)
	return &rec, nil
}

// DeleteMaintenanceRecord 删除保养记录
func (s *Store) DeleteMaintenanceRecord(ctx context.Context, vehicleID, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vehicles[vehicleID]
	if !ok {
		return fmt.Errorf("vehicle %s: %w", vehicleID, ErrNotFound)
	}
	for i, r := range v.MaintenanceHistory {
		if r.ID == recordID {
			v.MaintenanceHistory = append(v.MaintenanceHistory[:i:i], v.MaintenanceHistory[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("maintenance record %s: %w", recordID, ErrNotFound)
}

// MaintenanceRecords returns the vehicle's records, newest first
func (s *Store) MaintenanceRecords(ctx context.Context, vehicleID string) ([]model.MaintenanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vehicles[vehicleID]
	if !ok {
		return nil, fmt.Errorf("vehicle %s: %w", vehicleID, ErrNotFound)
	}
	out := append([]model.MaintenanceRecord{}, v.MaintenanceHistory...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

// AddDTC 上报故障码
func (s *Store) AddDTC(ctx context.Context, vehicleID string, dtc model.DiagnosticCode) (*model.DiagnosticCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vehicles[vehicleID]
	if !ok {
		return nil, fmt.Errorf("vehicle %s: %w", vehicleID, ErrNotFound)
	}
	if dtc.ID == "" {
		dtc.ID = newID()
	}
	if dtc.Timestamp.IsZero() {
		dtc.Timestamp = s.now()
	}
	v.Errors = append(v.Errors, dtc)
	return &dtc, nil
}

// ClearDTC 清除故障码
func (s *Store) ClearDTC(ctx context.Context, vehicleID, dtcID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vehicles[vehicleID]
	if !ok {
		return fmt.Errorf("vehicle %s: %w", vehicleID, ErrNotFound)
	}
	for i, d := range v.Errors {
		if d.ID == dtcID {
			v.Errors = append(v.Errors[:i:i], v.Errors[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("dtc %s: %w", dtcID, ErrNotFound)
}
