package app

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/studysync-backend/internal/http"
	httpH "github.com/yungbote/studysync-backend/internal/http/handlers"
	httpMW "github.com/yungbote/studysync-backend/internal/http/middleware"
	"github.com/yungbote/studysync-backend/internal/observability"
	"github.com/yungbote/studysync-backend/internal/platform/logger"
	"github.com/yungbote/studysync-backend/internal/realtime"
)

const serviceName = "studysync"

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health       *httpH.HealthHandler
	Auth         *httpH.AuthHandler
	User         *httpH.UserHandler
	Realtime     *httpH.RealtimeHandler
	Series       *httpH.SeriesHandler
	Presentation *httpH.PresentationHandler
}

func wireHandlers(log *logger.Logger, cfg Config, services Services, clients Clients, db *gorm.DB, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:       httpH.NewHealthHandler(readinessChecks(db, clients)...),
		Auth:         httpH.NewAuthHandler(services.Auth),
		User:         httpH.NewUserHandler(services.User),
		Realtime:     httpH.NewRealtimeHandler(log, hub, cfg.Realtime),
		Series:       httpH.NewSeriesHandler(services.Outline),
		Presentation: httpH.NewPresentationHandler(services.Presentation),
	}
}

func readinessChecks(db *gorm.DB, clients Clients) []httpH.ReadinessCheck {
	checks := []httpH.ReadinessCheck{{
		Name: "database",
		Probe: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}
	if clients.Bus != nil {
		checks = append(checks, httpH.ReadinessCheck{Name: "redis", Probe: clients.Bus.Ping})
	}
	return checks
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:                 log,
		Metrics:             metrics,
		ServiceName:         serviceName,
		AllowedOrigins:      cfg.AllowedOrigins,
		HealthHandler:       handlers.Health,
		AuthHandler:         handlers.Auth,
		AuthMiddleware:      middleware.Auth,
		UserHandler:         handlers.User,
		RealtimeHandler:     handlers.Realtime,
		SeriesHandler:       handlers.Series,
		PresentationHandler: handlers.Presentation,
	})
}
