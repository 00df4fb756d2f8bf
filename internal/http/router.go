package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/studysync-backend/internal/http/handlers"
	httpMW "github.com/yungbote/studysync-backend/internal/http/middleware"
	"github.com/yungbote/studysync-backend/internal/observability"
	"github.com/yungbote/studysync-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	AllowedOrigins []string

	AuthHandler     *httpH.AuthHandler
	AuthMiddleware  *httpMW.AuthMiddleware
	UserHandler     *httpH.UserHandler
	RealtimeHandler *httpH.RealtimeHandler

	SeriesHandler       *httpH.SeriesHandler
	PresentationHandler *httpH.PresentationHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.OptionalAuth())
	}
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/login", cfg.AuthHandler.Login)
		}

		// Outline reads (public)
		if cfg.SeriesHandler != nil {
			api.GET("/series", cfg.SeriesHandler.ListSeries)
			api.GET("/series/:slug", cfg.SeriesHandler.GetSeries)
			api.GET("/series/:slug/weeks/:number", cfg.SeriesHandler.GetWeek)
			api.GET("/series/:slug/weeks/:number/present", cfg.SeriesHandler.Present)
		}

		// Presentation snapshot for late joiners (public)
		if cfg.PresentationHandler != nil {
			api.GET("/weeks/:id/presentation/state", cfg.PresentationHandler.GetState)
		}

		// Realtime (public channels)
		if cfg.RealtimeHandler != nil {
			api.GET("/realtime/config", cfg.RealtimeHandler.GetConfig)
			api.GET("/realtime/ws", cfg.RealtimeHandler.WebSocket)
			api.GET("/realtime/sse", cfg.RealtimeHandler.SSEStream)
		}
	}

	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// User (Me)
		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
		}

		// Leader console
		if cfg.SeriesHandler != nil {
			protected.GET("/series/:slug/weeks/:number/control", cfg.SeriesHandler.Control)
		}

		// Presentation mutations (leader only, enforced by the service)
		if cfg.PresentationHandler != nil {
			protected.POST("/weeks/:id/presentation/next", cfg.PresentationHandler.Next)
			protected.POST("/weeks/:id/presentation/previous", cfg.PresentationHandler.Previous)
			protected.POST("/weeks/:id/presentation/jump", cfg.PresentationHandler.Jump)
			protected.POST("/weeks/:id/presentation/toggle-reveal", cfg.PresentationHandler.ToggleReveal)
			protected.POST("/weeks/:id/presentation/highlight", cfg.PresentationHandler.Highlight)
			protected.POST("/weeks/:id/presentation/state", cfg.PresentationHandler.UpdateState)
		}
	}

	return r
}
