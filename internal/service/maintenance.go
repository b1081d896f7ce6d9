package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/programadoraburrido/gestion-flota/internal/model"
	"github.com/programadoraburrido/gestion-flota/internal/repository"
)

// ErrInvalidRecord maintenance record or DTC failed validation
var ErrInvalidRecord = errors.New("invalid record")

// MaintenanceService 保养记录与故障码
type MaintenanceService struct {
	store     *repository.Store
	vehicles  *VehicleService
	summaries *SummaryCache
	logger    *zap.Logger
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(store *repository.Store, vehicles *VehicleService, summaries *SummaryCache, logger *zap.Logger) *MaintenanceService {
	return &MaintenanceService{
		store:     store,
		vehicles:  vehicles,
		summaries: summaries,
		logger:    logger.Named("maintenance"),
	}
}

func canonicalServiceType(t string) (string, bool) {
	t = strings.TrimSpace(t)
	for _, known := range model.ServiceTypes {
		if strings.EqualFold(t, known) {
			return known, true
		}
	}
	return "", false
}

// List returns the vehicle's records newest first
func (s *MaintenanceService) List(ctx context.Context, p *model.Principal, vehicleID string) ([]model.MaintenanceRecord, error) {
	if _, err := s.vehicles.visible(ctx, p, vehicleID); err != nil {
		return nil, err
	}
	return s.store.MaintenanceRecords(ctx, vehicleID)
}

// Add 添加保养记录
func (s *MaintenanceService) Add(ctx context.Context, p *model.Principal, vehicleID string, req model.CreateMaintenanceRequest) (*model.MaintenanceRecord, error) {
	if _, err := s.vehicles.visible(ctx, p, vehicleID); err != nil {
		return nil, err
	}
	typ, ok := canonicalServiceType(req.Type)
	if !ok {
		return nil, fmt.Errorf("%w: unknown service type %q", ErrInvalidRecord, req.Type)
	}
	if req.Cost < 0 || req.Km < 0 {
		return nil, fmt.Errorf("%w: cost and km must not be negative", ErrInvalidRecord)
	}

	rec, err := s.store.AddMaintenanceRecord(ctx, vehicleID, model.MaintenanceRecord{
		Type:  typ,
		Date:  req.Date,
		Km:    req.Km,
		Cost:  req.Cost,
		Notes: req.Notes,
	})
	if err != nil {
		return nil, err
	}
	s.summaries.Invalidate(vehicleID)
	s.logger.Info("maintenance recorded",
		zap.String("vehicle_id", vehicleID),
		zap.String("type", rec.Type),
		zap.Float64("cost", rec.Cost))
	return rec, nil
}

// Delete 删除保养记录
func (s *MaintenanceService) Delete(ctx context.Context, p *model.Principal, vehicleID, recordID string) error {
	if _, err := s.vehicles.visible(ctx, p, vehicleID); err != nil {
		return err
	}
	if err := s.store.DeleteMaintenanceRecord(ctx, vehicleID, recordID); err != nil {
		return err
	}
	s.summaries.Invalidate(vehicleID)
	return nil
}

// ListDTCs returns the vehicle's active diagnostic codes
func (s *MaintenanceService) ListDTCs(ctx context.Context, p *model.Principal, vehicleID string) ([]model.DiagnosticCode, error) {
	v, err := s.vehicles.visible(ctx, p, vehicleID)
	if err != nil {
		return nil, err
	}
	return v.Errors, nil
}

// AddDTC 上报故障码
func (s *MaintenanceService) AddDTC(ctx context.Context, p *model.Principal, vehicleID string, req model.CreateDTCRequest) (*model.DiagnosticCode, error) {
	if _, err := s.vehicles.visible(ctx, p, vehicleID); err != nil {
		return nil, err
	}
	if !req.Severity.Valid() {
		return nil, fmt.Errorf("%w: severity %d", ErrInvalidRecord, req.Severity)
	}
	dtc, err := s.store.AddDTC(ctx, vehicleID, model.DiagnosticCode{
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Description: req.Description,
		Severity:    req.Severity,
	})
	if err != nil {
		return nil, err
	}
	s.summaries.Invalidate(vehicleID)
	s.logger.Info("dtc reported",
		zap.String("vehicle_id", vehicleID),
		zap.String("code", dtc.Code),
		zap.Stringer("severity", dtc.Severity))
	return dtc, nil
}

// ClearDTC 清除故障码
func (s *MaintenanceService) ClearDTC(ctx context.Context, p *model.Principal, vehicleID, dtcID string) error {
	if _, err := s.vehicles.visible(ctx, p, vehicleID); err != nil {
		return err
	}
	if err := s.store.ClearDTC(ctx, vehicleID, dtcID); err != nil {
		return err
	}
	s.summaries.Invalidate(vehicleID)
	return nil
}
