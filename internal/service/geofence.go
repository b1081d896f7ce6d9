package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/programadoraburrido/gestion-flota/internal/model"
	"github.com/programadoraburrido/gestion-flota/internal/repository"
)

// ErrInvalidGeofence geofence failed validation
var ErrInvalidGeofence = errors.New("invalid geofence")

// GeofenceService 电子围栏业务逻辑. When a Redis client is configured each geofence is
// mirrored under fms:geofence:<id> for other consumers.
type GeofenceService struct {
	store  *repository.Store
	redis  *redis.Client
	logger *zap.Logger
}

// NewGeofenceService creates a new geofence service. redisClient may be nil.
func NewGeofenceService(store *repository.Store, redisClient *redis.Client, logger *zap.Logger) *GeofenceService {
	return &GeofenceService{
		store:  store,
		redis:  redisClient,
		logger: logger.Named("geofence"),
	}
}

// Create validates and stores a geofence
func (s *GeofenceService) Create(ctx context.Context, p *model.Principal, req model.CreateGeofenceRequest) (*model.Geofence, error) {
	g := &model.Geofence{
		Name:    strings.TrimSpace(req.Name),
		Polygon: req.Polygon,
	}
	if p != nil {
		g.CreatedBy = p.UserID
	}
	if err := validateGeofence(g); err != nil {
		return nil, err
	}
	if err := s.store.CreateGeofence(ctx, g); err != nil {
		return nil, err
	}
	s.cacheGeofence(ctx, g)
	s.logger.Info("geofence created", zap.String("id", g.ID), zap.String("name", g.Name), zap.Int("points", len(g.Polygon)))
	return g, nil
}

// Get 获取围栏
func (s *GeofenceService) Get(ctx context.Context, id string) (*model.Geofence, error) {
	return s.store.GetGeofence(ctx, id)
}

// List 获取围栏列表
func (s *GeofenceService) List(ctx context.Context) []model.Geofence {
	return s.store.ListGeofences(ctx)
}

// Delete 删除围栏
func (s *GeofenceService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteGeofence(ctx, id); err != nil {
		return err
	}
	s.removeGeofenceFromCache(ctx, id)
	s.logger.Info("geofence deleted", zap.String("id", id))
	return nil
}

// CheckPoint runs the membership test on an ad-hoc polygon
func (s *GeofenceService) CheckPoint(req model.CheckPointRequest) (bool, error) {
	if err := validatePoint(req.Point); err != nil {
		return false, err
	}
	if len(req.Polygon) < 3 {
		return false, fmt.Errorf("%w: polygon must have at least 3 points", ErrInvalidGeofence)
	}
	return PointInPolygon(req.Point, req.Polygon), nil
}

// validateGeofence rejects unnamed geofences, polygons under 3 points and coordinates out
// of range.
func validateGeofence(g *model.Geofence) error {
	if g.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidGeofence)
	}
	if len(g.Polygon) < 3 {
		return fmt.Errorf("%w: polygon must have at least 3 points", ErrInvalidGeofence)
	}
	for _, p := range g.Polygon {
		if err := validatePoint(p); err != nil {
			return err
		}
	}
	return nil
}

func validatePoint(p model.Location) error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: invalid latitude %v", ErrInvalidGeofence, p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: invalid longitude %v", ErrInvalidGeofence, p.Lng)
	}
	return nil
}

func (s *GeofenceService) cacheGeofence(ctx context.Context, g *model.Geofence) {
	if s.redis == nil {
		return
	}
	data, _ := json.Marshal(g)
	if err := s.redis.Set(ctx, "fms:geofence:"+g.ID, data, 0).Err(); err != nil {
		s.logger.Warn("cache geofence", zap.String("id", g.ID), zap.Error(err))
	}
}

func (s *GeofenceService) removeGeofenceFromCache(ctx context.Context, id string) {
	if s.redis == nil {
		return
	}
	s.redis.Del(ctx, "fms:geofence:"+id)
}

// calculateDistance haversine distance in meters
func calculateDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000 // Earth's radius in meters

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return R * c
}

// PathDistance total length in meters of a sequence of samples
func PathDistance(samples []model.PositionSample) float64 {
	var total float64
	for i := 1; i < len(samples); i++ {
		a, b := samples[i-1], samples[i]
		total += calculateDistance(a.Lat, a.Lng, b.Lat, b.Lng)
	}
	return total
}
