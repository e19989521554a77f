package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"zara/scraper/internal/api"
	"zara/scraper/internal/cache"
	"zara/scraper/internal/client"
	"zara/scraper/internal/config"
	"zara/scraper/internal/extractor"
	"zara/scraper/internal/metrics"
	"zara/scraper/internal/proxy"
	"zara/scraper/internal/queue"
	"zara/scraper/internal/repository"
	"zara/scraper/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Container holds all initialized components
type Container struct {
	Config  *config.Config
	Client  client.ZaraClient
	Metrics *metrics.Metrics
	Service *service.Service
	Server  *api.Server

	// Optional, nil when disabled in config
	Cache      cache.DocumentCache
	Queue      queue.Queue
	Repository repository.SnapshotRepository

	db    *pgxpool.Pool
	redis *redis.Client
}

// New creates a new container with all dependencies initialized
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	container := &Container{
		Config:  cfg,
		Metrics: metrics.New(),
	}

	proxySupplier := proxy.NewProxySupplier(ctx, cfg.Zara.Proxies, cfg.Zara.BaseURL)
	container.Client = client.NewZaraClient(cfg.Zara, proxySupplier)

	var opts []service.Option

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})
		container.redis = rdb

		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = container.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("✅ Connected to Redis successfully")

		redisQueue, err := queue.NewRedisQueue(ctx, rdb, cfg.Redis.ConsumerGroup)
		if err != nil {
			_ = container.Close()
			return nil, err
		}
		container.Queue = redisQueue
		container.Cache = cache.NewRedisDocumentCache(rdb, cfg.Redis.TTL())

		opts = append(opts,
			service.WithCache(container.Cache),
			service.WithQueue(redisQueue, cfg.Redis.ConsumerGroup, time.Duration(cfg.Redis.MinIdleTime)*time.Second),
		)
	}

	if cfg.Database.Enabled {
		db, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			_ = container.Close()
			return nil, fmt.Errorf("failed to create database pool: %w", err)
		}
		container.db = db

		snapshotRepo := repository.NewSnapshotRepository(db)
		if err := snapshotRepo.EnsureSchema(ctx); err != nil {
			_ = container.Close()
			return nil, err
		}
		log.Info("✅ Connected to Postgres successfully")

		container.Repository = snapshotRepo
		opts = append(opts, service.WithRepository(snapshotRepo))
	}

	container.Service = service.NewService(
		container.Client,
		extractor.New(extractor.WithMaxDepth(cfg.Extractor.MaxDepth)),
		container.Metrics,
		opts...,
	)

	container.Server = api.NewServer(
		container.Service,
		container.Metrics,
		time.Duration(cfg.Server.RequestTimeout)*time.Second,
	)

	return container, nil
}

// Run serves the API and, when the queue is enabled, the refresh workers and
// scheduler until ctx is cancelled or one of them fails.
func (c *Container) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	httpServer := &http.Server{
		Addr:              c.Config.Server.Address(),
		Handler:           c.Server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		log.Infof("🚀 Listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve HTTP: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("🛑 Shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if c.Queue != nil {
		g.Go(func() error {
			return c.Service.RunWorkers(ctx, c.Config.Refresh.Workers)
		})

		if c.Config.Refresh.Interval > 0 {
			g.Go(func() error {
				return c.Service.RunScheduler(ctx, time.Duration(c.Config.Refresh.Interval)*time.Second)
			})
		}
	}

	return g.Wait()
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	var errs []error
	if c.Client != nil {
		errs = append(errs, c.Client.Close())
	}
	if c.db != nil {
		c.db.Close()
	}
	if c.redis != nil {
		errs = append(errs, c.redis.Close())
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to close container: %w", err)
	}

	log.Info("Container shut down successfully")
	return nil
}
