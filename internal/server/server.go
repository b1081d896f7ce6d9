package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/programadoraburrido/gestion-flota/docs"
	"github.com/programadoraburrido/gestion-flota/internal/config"
	"github.com/programadoraburrido/gestion-flota/internal/handler"
	"github.com/programadoraburrido/gestion-flota/internal/middleware"
	"github.com/programadoraburrido/gestion-flota/internal/model"
	"github.com/programadoraburrido/gestion-flota/internal/repository"
	"github.com/programadoraburrido/gestion-flota/internal/service"
)

const shutdownTimeout = 5 * time.Second

// Deps external resources handed to the server. Redis and NATS are optional.
type Deps struct {
	Store     *repository.Store
	Intervals service.IntervalProvider
	Redis     *redis.Client
	NATS      *nats.Conn
	Logger    *zap.Logger
	// Now overrides the clock, for tests
	Now func() time.Time
}

// Server represents the HTTP server and the background fleet monitor
type Server struct {
	router *gin.Engine
	config *config.Config
	deps   Deps
	logger *zap.Logger

	summaries *service.SummaryCache
	feed      *service.AlertFeed
	monitor   *service.FleetMonitor
	wsHub     *handler.WSHub
}

// New builds services and routes
func New(cfg *config.Config, deps Deps) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Server{
		config: cfg,
		deps:   deps,
		logger: deps.Logger.Named("server"),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	cfg, deps := s.config, s.deps

	// Initialize services
	evaluator := service.NewAlertEvaluator(deps.Intervals,
		service.WithClock(deps.Now),
		service.WithInspectionDueDays(cfg.Monitor.InspectionDueDays),
	)
	s.summaries = service.NewSummaryCache(evaluator, cfg.SummaryCacheTTL)
	s.feed = service.NewAlertFeed(cfg.Monitor.AlertFeedCapacity, deps.Now, deps.Logger)

	authService := service.NewAuthService(deps.Store, cfg.JWTSecret, cfg.TokenTTL, deps.Logger)
	vehicleService := service.NewVehicleService(deps.Store, evaluator, s.summaries, deps.Logger)
	maintenanceService := service.NewMaintenanceService(deps.Store, vehicleService, s.summaries, deps.Logger)
	geofenceService := service.NewGeofenceService(deps.Store, deps.Redis, deps.Logger)
	reportService := service.NewReportService(deps.Store, vehicleService, s.feed, deps.Now, deps.Logger)

	// WebSocket hub is both an alert sink and the position broadcaster
	s.wsHub = handler.NewWSHub(vehicleService, deps.Logger)
	sinks := []service.Notifier{s.wsHub}
	if deps.NATS != nil {
		sinks = append(sinks, service.NewNATSNotifier(deps.NATS))
	}
	if deps.Redis != nil {
		sinks = append(sinks, service.NewRedisNotifier(deps.Redis))
	}
	s.monitor = service.NewFleetMonitor(
		service.MonitorConfig{
			Interval:         cfg.Monitor.TickInterval,
			SimulateMovement: cfg.Monitor.SimulateMovement,
			JitterDegrees:    cfg.Monitor.JitterDegrees,
		},
		deps.Store, evaluator, service.NewGeofenceEngine(deps.Now), s.feed, s.summaries,
		service.NewMultiNotifier(deps.Logger, sinks...), s.wsHub, deps.Logger,
	)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	vehicleHandler := handler.NewVehicleHandler(vehicleService)
	maintenanceHandler := handler.NewMaintenanceHandler(maintenanceService)
	geofenceHandler := handler.NewGeofenceHandler(geofenceService)
	alertHandler := handler.NewAlertHandler(s.feed, vehicleService)
	reportHandler := handler.NewReportHandler(reportService)
	wsHandler := handler.NewWSHandler(s.wsHub)

	var limiter middleware.RateLimiter = middleware.NewMemoryRateLimiter()
	if deps.Redis != nil {
		limiter = middleware.NewRedisRateLimiter(deps.Redis)
	}

	gin.SetMode(cfg.GinMode)
	s.router = gin.New()
	s.router.Use(gin.Recovery(), middleware.Observe(deps.Logger), middleware.CORS())

	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"alerts":     s.feed.Len(),
			"ws_clients": s.wsHub.ClientCount(),
			"redis":      deps.Redis != nil,
			"nats":       deps.NATS != nil,
		})
	})

	auth := middleware.Auth(authService)
	ratelimit := middleware.RateLimit(limiter, cfg, deps.Logger)

	// WebSocket: token may come in the query string
	s.router.GET("/ws/alerts", auth, wsHandler.HandleAlerts)
	s.router.GET("/ws/stats", wsHandler.Stats)

	// Public routes
	public := s.router.Group("/api/v1")
	public.Use(ratelimit)
	{
		public.POST("/auth/login", authHandler.Login)
		public.POST("/auth/register", authHandler.Register)
	}

	// Protected routes
	api := s.router.Group("/api/v1")
	api.Use(auth, ratelimit)
	{
		read := middleware.RequirePermission(model.PermRead)
		create := middleware.RequirePermission(model.PermCreate)
		update := middleware.RequirePermission(model.PermUpdate)
		del := middleware.RequirePermission(model.PermDelete)

		api.GET("/auth/me", authHandler.Me)

		// Vehicles
		api.GET("/vehicles", read, vehicleHandler.List)
		api.POST("/vehicles", create, vehicleHandler.Create)
		api.GET("/vehicles/:id", read, vehicleHandler.Get)
		api.DELETE("/vehicles/:id", del, vehicleHandler.Delete)
		api.PUT("/vehicles/:id/inspection", update, vehicleHandler.UpdateInspection)
		api.PUT("/vehicles/:id/odometer", update, vehicleHandler.UpdateOdometer)
		api.GET("/vehicles/:id/recommendations", read, vehicleHandler.Recommendations)
		api.GET("/vehicles/:id/history", middleware.RequirePermission(model.PermMap), vehicleHandler.History)
		api.GET("/inspections/digest", read, vehicleHandler.InspectionDigest)

		// Maintenance & DTC
		api.GET("/vehicles/:id/maintenance", read, maintenanceHandler.List)
		api.POST("/vehicles/:id/maintenance", update, maintenanceHandler.Add)
		api.DELETE("/vehicles/:id/maintenance/:recordId", update, maintenanceHandler.Delete)
		api.GET("/vehicles/:id/dtcs", read, maintenanceHandler.ListDTCs)
		api.POST("/vehicles/:id/dtcs", update, maintenanceHandler.AddDTC)
		api.DELETE("/vehicles/:id/dtcs/:dtcId", update, maintenanceHandler.ClearDTC)

		// Geofences
		api.GET("/geofences", middleware.RequirePermission(model.PermMap), geofenceHandler.List)
		api.POST("/geofences", create, geofenceHandler.Create)
		api.POST("/geofences/check", middleware.RequirePermission(model.PermMap), geofenceHandler.Check)
		api.GET("/geofences/:id", middleware.RequirePermission(model.PermMap), geofenceHandler.Get)
		api.DELETE("/geofences/:id", del, geofenceHandler.Delete)

		// Alerts
		api.GET("/alerts", read, alertHandler.List)
		api.GET("/alerts/stats", read, alertHandler.Stats)
		api.GET("/alerts/:id", read, alertHandler.Get)
		api.POST("/alerts/:id/ack", middleware.RequireAnyPermission(model.PermUpdate, model.PermManageUsers), alertHandler.Acknowledge)
		api.POST("/alerts/:id/resolve", update, alertHandler.Resolve)

		// Reports
		api.GET("/reports/fleet.html", read, reportHandler.FleetHTML)
		api.GET("/reports/fleet.xlsx", read, reportHandler.FleetXLSX)
	}
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.router
}

// Summaries returns the per-vehicle summary cache, flushed when the interval table changes
func (s *Server) Summaries() *service.SummaryCache {
	return s.summaries
}

// Monitor returns the fleet monitor
func (s *Server) Monitor() *service.FleetMonitor {
	return s.monitor
}

// Run serves HTTP and runs the hub and the fleet monitor until ctx is done
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.APIPort),
		Handler: s.router,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.wsHub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return s.monitor.Run(ctx)
	})
	g.Go(func() error {
		s.logger.Info("server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
