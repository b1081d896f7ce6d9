package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/programadoraburrido/gestion-flota/internal/config"
	"github.com/programadoraburrido/gestion-flota/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubParser map[string]*model.Principal

func (s stubParser) ParseToken(token string) (*model.Principal, error) {
	if p, ok := s[token]; ok {
		return p, nil
	}
	return nil, errors.New("bad token")
}

var tokens = stubParser{
	"admin-token": {UserID: "user_123", Username: "admin", Role: model.RoleAdmin},
	"guest-token": {UserID: "user_999", Username: "guest", Role: model.RoleGuest},
}

func newAuthRouter() *gin.Engine {
	r := gin.New()
	r.Use(Auth(tokens))
	r.GET("/vehicles", RequirePermission(model.PermRead), func(c *gin.Context) {
		c.String(http.StatusOK, PrincipalFrom(c).Username)
	})
	r.DELETE("/vehicles/:id", RequirePermission(model.PermDelete), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.POST("/geofences", RequireAnyPermission(model.PermCreate, model.PermManageUsers), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return r
}

func TestAuthAndPermissions(t *testing.T) {
	r := newAuthRouter()

	tests := []struct {
		name   string
		method string
		path   string
		header string
		want   int
	}{
		{"no token", http.MethodGet, "/vehicles", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/vehicles", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", http.MethodGet, "/vehicles", "Basic admin-token", http.StatusUnauthorized},
		{"guest can read", http.MethodGet, "/vehicles", "Bearer guest-token", http.StatusOK},
		{"guest cannot delete", http.MethodDelete, "/vehicles/v_101", "Bearer guest-token", http.StatusForbidden},
		{"admin can delete", http.MethodDelete, "/vehicles/v_101", "Bearer admin-token", http.StatusNoContent},
		{"guest cannot create", http.MethodPost, "/geofences", "Bearer guest-token", http.StatusForbidden},
		{"token in query", http.MethodGet, "/vehicles?token=admin-token", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestMemoryRateLimiterWindow(t *testing.T) {
	l := NewMemoryRateLimiter()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	rule := config.RateLimitRule{Path: "/login", Limit: 2, Window: time.Minute}
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		res, err := l.Allow(ctx, "ip:1.2.3.4", rule)
		if err != nil {
			t.Fatal(err)
		}
		if res.Allowed != want {
			t.Errorf("request %d allowed = %v", i+1, res.Allowed)
		}
	}

	if res, _ := l.Allow(ctx, "ip:5.6.7.8", rule); !res.Allowed || res.Remaining != 1 {
		t.Errorf("other client = %+v", res)
	}

	now = now.Add(time.Minute)
	if res, _ := l.Allow(ctx, "ip:1.2.3.4", rule); !res.Allowed {
		t.Error("next window should admit again")
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, config.RateLimitRule) (*RateLimitResult, error) {
	return nil, errors.New("redis down")
}

func newLimitedRouter(l RateLimiter) *gin.Engine {
	cfg := &config.Config{RateLimit: config.RateLimitConfig{
		Enabled:       true,
		DefaultRule:   config.RateLimitRule{Path: "*", Limit: 100, Window: time.Minute},
		SpecificRules: []config.RateLimitRule{{Path: "/api/v1/auth/login", Limit: 1, Window: time.Minute}},
	}}
	r := gin.New()
	r.Use(RateLimit(l, cfg, zap.NewNop()))
	r.POST("/api/v1/auth/login", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/vehicles", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimitMiddleware(t *testing.T) {
	r := newLimitedRouter(NewMemoryRateLimiter())

	do := func(method, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w
	}

	if w := do(http.MethodPost, "/api/v1/auth/login"); w.Code != http.StatusOK || w.Header().Get("X-RateLimit-Limit") != "1" {
		t.Fatalf("first login = %d, limit header %q", w.Code, w.Header().Get("X-RateLimit-Limit"))
	}
	if w := do(http.MethodPost, "/api/v1/auth/login"); w.Code != http.StatusTooManyRequests {
		t.Errorf("second login = %d", w.Code)
	}
	if w := do(http.MethodGet, "/api/v1/vehicles"); w.Code != http.StatusOK || w.Header().Get("X-RateLimit-Limit") != "100" {
		t.Errorf("default rule not applied: %d %q", w.Code, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	r := newLimitedRouter(failingLimiter{})
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d = %d", i+1, w.Code)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/x", nil))
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight = %d %v", w.Code, w.Header())
	}
}
