package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/programadoraburrido/gestion-flota/internal/metrics"
	"github.com/programadoraburrido/gestion-flota/internal/model"
	"github.com/programadoraburrido/gestion-flota/internal/repository"
)

var (
	// ErrForbidden the caller lacks the permission for the operation
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidVehicle request failed validation
	ErrInvalidVehicle = errors.New("invalid vehicle")
)

// New vehicles are dropped somewhere around central Madrid.
var defaultOrigin = model.Location{Lat: 40.42, Lng: -3.70}

const originSpread = 0.05

// VehicleService 车辆业务逻辑
type VehicleService struct {
	store     *repository.Store
	evaluator *AlertEvaluator
	summaries *SummaryCache
	logger    *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewVehicleService creates a new vehicle service
func NewVehicleService(store *repository.Store, evaluator *AlertEvaluator, summaries *SummaryCache, logger *zap.Logger) *VehicleService {
	return &VehicleService{
		store:     store,
		evaluator: evaluator,
		summaries: summaries,
		logger:    logger.Named("vehicle"),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CanSee reports whether p may see v. Admins see the whole fleet, everybody else only the
// vehicles assigned to them.
func CanSee(p *model.Principal, v *model.Vehicle) bool {
	if p == nil {
		return false
	}
	if p.Role.SeesWholeFleet() {
		return true
	}
	return v.AssignedToUserID != "" && v.AssignedToUserID == p.UserID
}

func allowed(p *model.Principal, perm model.Permission) bool {
	return p != nil && p.Role.HasPermission(perm)
}

// Visible returns the vehicles p may see
func (s *VehicleService) Visible(ctx context.Context, p *model.Principal) []model.Vehicle {
	all := s.store.ListVehicles(ctx)
	out := all[:0]
	for i := range all {
		if CanSee(p, &all[i]) {
			out = append(out, all[i])
		}
	}
	return out
}

func (s *VehicleService) view(v model.Vehicle) model.VehicleView {
	return model.VehicleView{Vehicle: v, Summary: s.summaries.Summary(&v)}
}

// List 车辆列表 with search, year, severity band and sort
func (s *VehicleService) List(ctx context.Context, p *model.Principal, q model.VehicleListQuery) []model.VehicleView {
	needle := strings.ToLower(strings.TrimSpace(q.Query))
	views := make([]model.VehicleView, 0)

	for _, v := range s.Visible(ctx, p) {
		if needle != "" {
			haystack := strings.ToLower(strings.Join([]string{v.VIN, v.Plate, v.Make, v.Model}, " "))
			if !strings.Contains(haystack, needle) {
				continue
			}
		}
		if q.Year != 0 && v.Year != q.Year {
			continue
		}
		vw := s.view(v)
		if !inSeverityBand(vw.Summary.Severity, q.Severity) {
			continue
		}
		views = append(views, vw)
	}

	switch q.SortBy {
	case "", "km":
		sort.SliceStable(views, func(i, j int) bool { return views[i].CurrentOdometer > views[j].CurrentOdometer })
	case "cost":
		sort.SliceStable(views, func(i, j int) bool {
			return views[i].Summary.TotalMaintenanceCost > views[j].Summary.TotalMaintenanceCost
		})
	case "severity":
		sort.SliceStable(views, func(i, j int) bool { return views[i].Summary.Severity > views[j].Summary.Severity })
	}
	return views
}

// inSeverityBand: low is 0, medium 2..3, high 4 and above. A score of 1 only shows
// unfiltered.
func inSeverityBand(sev int, band string) bool {
	switch strings.ToLower(band) {
	case "", "all":
		return true
	case "low":
		return sev == 0
	case "medium":
		return sev >= 2 && sev <= 3
	case "high":
		return sev >= 4
	}
	return true
}

// Get 获取车辆详情. Vehicles the caller cannot see are reported as not found.
func (s *VehicleService) Get(ctx context.Context, p *model.Principal, id string) (*model.VehicleView, error) {
	v, err := s.visible(ctx, p, id)
	if err != nil {
		return nil, err
	}
	vw := s.view(*v)
	return &vw, nil
}

func (s *VehicleService) visible(ctx context.Context, p *model.Principal, id string) (*model.Vehicle, error) {
	v, err := s.store.GetVehicle(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanSee(p, v) {
		return nil, fmt.Errorf("vehicle %s: %w", id, repository.ErrNotFound)
	}
	return v, nil
}

// Create 创建车辆. A known VIN fills in make, model and year; the vehicle gets a random
// position near the depot and is assigned to the creator unless another user is named.
func (s *VehicleService) Create(ctx context.Context, p *model.Principal, req model.CreateVehicleRequest) (*model.VehicleView, error) {
	if !allowed(p, model.PermCreate) {
		return nil, ErrForbidden
	}
	v := &model.Vehicle{
		Make:               strings.TrimSpace(req.Make),
		Model:              strings.TrimSpace(req.Model),
		Year:               req.Year,
		Plate:              strings.ToUpper(strings.TrimSpace(req.Plate)),
		VIN:                strings.ToUpper(strings.TrimSpace(req.VIN)),
		CurrentOdometer:    req.CurrentOdometer,
		NextInspectionDate: req.NextInspectionDate,
		Status:             model.VehicleStatusParked,
		AssignedToUserID:   req.AssignedToUserID,
	}
	if info, ok := model.DecodeVIN(v.VIN); ok {
		v.Make, v.Model, v.Year = info.Make, info.Model, info.Year
	}
	if v.Make == "" || v.Model == "" {
		return nil, fmt.Errorf("%w: make and model are required unless the VIN is known", ErrInvalidVehicle)
	}
	if v.Plate == "" {
		return nil, fmt.Errorf("%w: plate is required", ErrInvalidVehicle)
	}
	if v.AssignedToUserID == "" && p != nil {
		v.AssignedToUserID = p.UserID
	}
	loc := s.randomNear(defaultOrigin, originSpread)
	v.Location = &loc

	if err := s.store.CreateVehicle(ctx, v); err != nil {
		return nil, err
	}
	s.logger.Info("vehicle created",
		zap.String("id", v.ID),
		zap.String("plate", v.Plate),
		zap.String("assigned_to", v.AssignedToUserID))

	stored, err := s.store.GetVehicle(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	vw := s.view(*stored)
	return &vw, nil
}

func (s *VehicleService) randomNear(origin model.Location, spread float64) model.Location {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return model.Location{
		Lat: origin.Lat + (s.rng.Float64()-0.5)*spread,
		Lng: origin.Lng + (s.rng.Float64()-0.5)*spread,
	}
}

// UpdateInspection sets or clears the next inspection date
func (s *VehicleService) UpdateInspection(ctx context.Context, p *model.Principal, id string, date *time.Time) (*model.VehicleView, error) {
	if _, err := s.visible(ctx, p, id); err != nil {
		return nil, err
	}
	if err := s.store.SetInspectionDate(ctx, id, date); err != nil {
		return nil, err
	}
	return s.refreshed(ctx, id)
}

// UpdateOdometer records a new reading. Odometers never run backwards.
func (s *VehicleService) UpdateOdometer(ctx context.Context, p *model.Principal, id string, km int) (*model.VehicleView, error) {
	if _, err := s.visible(ctx, p, id); err != nil {
		return nil, err
	}
	_, err := s.store.UpdateVehicle(ctx, id, func(v *model.Vehicle) error {
		if km < v.CurrentOdometer {
			return fmt.Errorf("%w: odometer %d is below current %d", ErrInvalidVehicle, km, v.CurrentOdometer)
		}
		v.CurrentOdometer = km
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.refreshed(ctx, id)
}

func (s *VehicleService) refreshed(ctx context.Context, id string) (*model.VehicleView, error) {
	s.summaries.Invalidate(id)
	v, err := s.store.GetVehicle(ctx, id)
	if err != nil {
		return nil, err
	}
	vw := s.view(*v)
	return &vw, nil
}

// Delete 删除车辆
func (s *VehicleService) Delete(ctx context.Context, p *model.Principal, id string) error {
	if !allowed(p, model.PermDelete) {
		return ErrForbidden
	}
	if _, err := s.visible(ctx, p, id); err != nil {
		return err
	}
	if err := s.store.DeleteVehicle(ctx, id); err != nil {
		return err
	}
	s.summaries.Invalidate(id)
	metrics.VehicleSeverity.DeleteLabelValues(id)
	s.logger.Info("vehicle deleted", zap.String("id", id))
	return nil
}

// Recommendations returns the recommended maintenance plan for the vehicle's make, model
// and year.
func (s *VehicleService) Recommendations(ctx context.Context, p *model.Principal, id string) ([]model.MaintenanceRule, error) {
	v, err := s.visible(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return model.RecommendedMaintenance(v.Make, v.Model, v.Year), nil
}

// History returns the recorded positions of a visible vehicle
func (s *VehicleService) History(ctx context.Context, p *model.Principal, id string) ([]model.PositionSample, error) {
	if _, err := s.visible(ctx, p, id); err != nil {
		return nil, err
	}
	return s.store.LocationHistory(ctx, id)
}

// InspectionDigest counts visible vehicles whose inspection is overdue or inside the due
// window, most urgent first.
func (s *VehicleService) InspectionDigest(ctx context.Context, p *model.Principal) model.InspectionDigest {
	d := model.InspectionDigest{
		WindowDays: s.evaluator.InspectionDueDays(),
		Vehicles:   []model.InspectionRow{},
	}
	for _, v := range s.Visible(ctx, p) {
		days, ok := s.evaluator.DaysUntil(v.NextInspectionDate)
		if !ok {
			continue
		}
		row := model.InspectionRow{
			VehicleID: v.ID,
			Plate:     v.Plate,
			Name:      v.DisplayName(),
			DueDate:   *v.NextInspectionDate,
			DaysLeft:  days,
		}
		switch {
		case days < 0:
			d.Overdue++
			row.Overdue = true
		case days <= d.WindowDays:
			d.DueSoon++
		default:
			continue
		}
		d.Vehicles = append(d.Vehicles, row)
	}
	sort.SliceStable(d.Vehicles, func(i, j int) bool { return d.Vehicles[i].DaysLeft < d.Vehicles[j].DaysLeft })
	return d
}
