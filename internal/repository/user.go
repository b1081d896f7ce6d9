package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/programadoraburrido/gestion-flota/internal/model"
)

// FindUser 按用户名查找用户 (case-insensitive)
func (s *Store) FindUser(ctx context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[strings.ToLower(username)]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	c := *u
	return &c, nil
}

// GetUser looks a user up by ID
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
}

// CreateUser 创建用户. Usernames are unique ignoring case.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(u.Username)
	if _, ok := s.users[key]; ok {
		return fmt.Errorf("user %s: %w", u.Username, ErrAlreadyExists)
	}
	if u.ID == "" {
		u.ID = newID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	c := *u
	s.users[key] = &c
	return nil
}
