package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/programadoraburrido/gestion-flota/cmd/flota/app/options"
	"github.com/programadoraburrido/gestion-flota/internal/config"
	"github.com/programadoraburrido/gestion-flota/internal/model"
	"github.com/programadoraburrido/gestion-flota/internal/repository"
	"github.com/programadoraburrido/gestion-flota/internal/server"
	"github.com/programadoraburrido/gestion-flota/internal/service"
	"github.com/programadoraburrido/gestion-flota/pkg/log"
)

// NewServeCommand runs the HTTP API and the fleet monitor
func NewServeCommand() *cobra.Command {
	opts := options.NewServeOptions()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and the fleet monitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := log.New(opts.LogOptions)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return runServe(cmd.Context(), opts, logger)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func runServe(ctx context.Context, opts *options.ServeOptions, logger *zap.Logger) error {
	cfg := config.Load()
	if opts.IntervalsFile != "" {
		cfg.IntervalsFile = opts.IntervalsFile
	}

	store := repository.NewStore(repository.WithHistorySize(cfg.LocationHistorySize))
	if err := store.Seed(ctx, service.HashPassword); err != nil {
		return fmt.Errorf("seed store: %w", err)
	}

	intervals, err := config.NewIntervalSource(cfg.IntervalsFile, logger)
	if err != nil {
		return err
	}

	redisClient, err := connectRedis(ctx, cfg.RedisURL, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	natsConn, err := connectNATS(cfg.NATSURL, logger)
	if err != nil {
		return err
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	srv := server.New(cfg, server.Deps{
		Store:     store,
		Intervals: intervals,
		Redis:     redisClient,
		NATS:      natsConn,
		Logger:    logger,
	})
	intervals.OnChange(func(model.IntervalTable) {
		srv.Summaries().Flush()
	})
	if opts.WatchIntervals {
		intervals.Watch()
	}

	return srv.Run(ctx)
}

// connectRedis accepts either a redis:// URL or a bare host:port. Empty disables Redis.
func connectRedis(ctx context.Context, url string, logger *zap.Logger) (*redis.Client, error) {
	if url == "" {
		logger.Info("redis disabled")
		return nil, nil
	}

	redisOpts := &redis.Options{Addr: url}
	if strings.Contains(url, "://") {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		redisOpts = parsed
	}
	client := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to redis", zap.String("addr", redisOpts.Addr))
	return client, nil
}

func connectNATS(url string, logger *zap.Logger) (*nats.Conn, error) {
	if url == "" {
		logger.Info("nats disabled")
		return nil, nil
	}
	nc, err := nats.Connect(url, nats.Name("gestion-flota"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	logger.Info("connected to nats", zap.String("url", nc.ConnectedUrl()))
	return nc, nil
}
