package repository

import (
	"context"
	"fmt"

	"github.com/programadoraburrido/gestion-flota/internal/model"
)

// ListGeofences 获取围栏列表
func (s *Store) ListGeofences(ctx context.Context) []model.Geofence {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Geofence, 0, len(s.fenceIDs))
	for _, id := range s.fenceIDs {
		out = append(out, s.geofences[id].Clone())
	}
	return out
}

// GetGeofence 获取围栏
func (s *Store) GetGeofence(ctx context.Context, id string) (*model.Geofence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.geofences[id]
	if !ok {
		return nil, fmt.Errorf("geofence %s: %w", id, ErrNotFound)
	}
	c := g.Clone()
	return &c, nil
}

// CreateGeofence 创建围栏. Validation is the caller's job.
func (s *Store) CreateGeofence(ctx context.Context, g *model.Geofence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.ID == "" {
		g.ID = newID()
	}
	if _, ok := s.geofences[g.ID]; ok {
		return fmt.Errorf("geofence %s: %w", g.ID, ErrAlreadyExists)
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.now()
	}
	stored := g.Clone()
	s.geofences[g.ID] = &stored
	s.fenceIDs = append(s.fenceIDs, g.ID)
	return nil
}

// DeleteGeofence 删除围栏
func (s *Store) DeleteGeofence(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.geofences[id]; !ok {
		return fmt.Errorf("geofence %s: %w", id, ErrNotFound)
	}
	delete(s.geofences, id)
	for i, gid := range s.fenceIDs {
		if gid == id {
			s.fenceIDs = append(s.fenceIDs[:i], s.fenceIDs[i+1:]...)
			break
		}
	}
	return nil
}
