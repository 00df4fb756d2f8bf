package app

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/studysync-backend/internal/data/db"
	"github.com/yungbote/studysync-backend/internal/data/seed"
	"github.com/yungbote/studysync-backend/internal/http"
	"github.com/yungbote/studysync-backend/internal/observability"
	"github.com/yungbote/studysync-backend/internal/platform/envutil"
	"github.com/yungbote/studysync-backend/internal/platform/logger"
	"github.com/yungbote/studysync-backend/internal/realtime"
	"github.com/yungbote/studysync-backend/internal/services"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *http.Server
	Cfg      Config
	Repos    Repos
	Services Services
	Clients  Clients
	SSEHub   *realtime.SSEHub
	Metrics  *observability.Metrics

	dbService    *db.Service
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development", nil))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: cfg.Env,
		Version:     cfg.Version,
	})
	metrics := observability.Init(log)

	dbService, err := db.NewService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	theDB := dbService.DB()
	if err := db.AutoMigrateAll(theDB); err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	clients, err := wireClients(log)
	if err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	hub := realtime.NewSSEHub(log)
	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, clients, hub)
	handlerset := wireHandlers(log, cfg, serviceset, clients, theDB, hub)
	middleware := wireMiddleware(log, serviceset)
	server := wireServer(log, cfg, metrics, handlerset, middleware)

	a := &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Clients:      clients,
		SSEHub:       hub,
		Metrics:      metrics,
		dbService:    dbService,
		otelShutdown: otelShutdown,
	}

	if cfg.SeedOnStart {
		if err := a.Seed(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// Seed loads the embedded demo series, plus the leader account when both
// SEED_LEADER_EMAIL and SEED_LEADER_PASSWORD are set.
func (a *App) Seed(ctx context.Context) error {
	fixture, err := seed.Default()
	if err != nil {
		return err
	}
	var leader *seed.Leader
	if a.Cfg.SeedLeaderEmail != "" && a.Cfg.SeedLeaderPassword != "" {
		hash, err := services.HashPassword(a.Cfg.SeedLeaderPassword)
		if err != nil {
			return err
		}
		leader = &seed.Leader{Email: a.Cfg.SeedLeaderEmail, PasswordHash: hash, FirstName: "Group", LastName: "Leader"}
	}
	seeder := seed.NewSeeder(a.DB, a.Log, a.Repos.User, a.Repos.Series, a.Repos.Week)
	if err := seeder.Run(ctx, fixture, leader); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	return nil
}

// Run serves HTTP until ctx is cancelled. With a bus configured it also
// forwards bus traffic into the local hub.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, ctx := errgroup.WithContext(ctx)

	if a.Clients.Bus != nil {
		if err := a.Clients.Bus.StartForwarder(ctx, a.SSEHub.Broadcast); err != nil {
			return fmt.Errorf("start bus forwarder: %w", err)
		}
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Bus.Client())
	}
	a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
	a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)

	addr := net.JoinHostPort("", a.Cfg.Port)
	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", addr)
		return a.Server.Serve(ctx, addr)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(shutdownCtx); err != nil && a.Log != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.dbService != nil {
		_ = a.dbService.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
