package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/programadoraburrido/gestion-flota/internal/model"
	"github.com/programadoraburrido/gestion-flota/internal/repository"
)

func newAuthFixture(t *testing.T) *AuthService {
	t.Helper()
	store := repository.NewStore(repository.WithClock(fixedClock))
	if err := store.Seed(context.Background(), HashPassword); err != nil {
		t.Fatal(err)
	}
	svc := NewAuthService(store, "test-secret", time.Hour, zap.NewNop())
	svc.now = fixedClock
	return svc
}

func TestLogin(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		wantRole model.Role
		wantErr  error
	}{
		{"admin", "admin", "123", model.RoleAdmin, nil},
		{"driver", "driver", "123", model.RoleDriver, nil},
		{"username ignores case", "Manager", "123", model.RoleManager, nil},
		{"wrong password", "admin", "nope", "", ErrInvalidCredentials},
		{"unknown user", "ghost", "123", "", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Login(ctx, model.LoginRequest{Username: tt.username, Password: tt.password})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if resp.User.Role != tt.wantRole {
				t.Errorf("role = %s, want %s", resp.User.Role, tt.wantRole)
			}
			p, err := svc.ParseToken(resp.Token)
			if err != nil {
				t.Fatalf("parse issued token: %v", err)
			}
			if p.UserID != resp.User.ID || p.Role != tt.wantRole {
				t.Errorf("principal = %+v", p)
			}
		})
	}
}

func TestRegisterCreatesDriver(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, model.RegisterRequest{Username: "lucia", Password: "secreto"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.User.Role != model.RoleDriver {
		t.Errorf("role = %s", resp.User.Role)
	}
	if len(resp.Permissions) != 3 {
		t.Errorf("permissions = %v", resp.Permissions)
	}
	if _, err := svc.Login(ctx, model.LoginRequest{Username: "lucia", Password: "secreto"}); err != nil {
		t.Errorf("login after register: %v", err)
	}
	if _, err := svc.Register(ctx, model.RegisterRequest{Username: "admin", Password: "x12"}); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate register err = %v", err)
	}
}

func TestParseTokenRejects(t *testing.T) {
	svc := newAuthFixture(t)
	resp, err := svc.Login(context.Background(), model.LoginRequest{Username: "guest", Password: "123"})
	if err != nil {
		t.Fatal(err)
	}

	other := NewAuthService(repository.NewStore(), "another-secret", time.Hour, zap.NewNop())
	other.now = fixedClock

	expired := newAuthFixture(t)
	expired.now = func() time.Time { return evalNow.Add(2 * time.Hour) }

	tests := []struct {
		name  string
		svc   *AuthService
		token string
	}{
		{"garbage", svc, "not-a-token"},
		{"wrong secret", other, resp.Token},
		{"expired", expired, resp.Token},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.svc.ParseToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}
