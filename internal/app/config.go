package app

import (
	"strings"
	"time"

	"github.com/yungbote/studysync-backend/internal/platform/envutil"
	"github.com/yungbote/studysync-backend/internal/platform/logger"
	"github.com/yungbote/studysync-backend/internal/services"
)

const defaultJWTSecret = "defaultsecret"

type Config struct {
	Env     string
	Version string
	Port    string

	JWTSecretKey   string
	AccessTokenTTL time.Duration
	AllowedOrigins []string

	Realtime services.RealtimeConfig

	SeedOnStart        bool
	SeedLeaderEmail    string
	SeedLeaderPassword string

	MetricsAddr string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Env:            envutil.String("APP_ENV", "development", log),
		Version:        envutil.String("APP_VERSION", "dev", log),
		Port:           envutil.String("PORT", "8080", log),
		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", defaultJWTSecret, log),
		AccessTokenTTL: envutil.Seconds("ACCESS_TOKEN_TTL", time.Hour),
		AllowedOrigins: splitList(envutil.String("CORS_ALLOWED_ORIGINS", "", log)),
		Realtime: services.RealtimeConfig{
			AppKey: envutil.String("REALTIME_APP_KEY", "", log),
			Host:   envutil.String("REALTIME_HOST", "", log),
			Port:   envutil.Int("REALTIME_PORT", 0),
			Scheme: envutil.String("REALTIME_SCHEME", "", log),
		},
		SeedOnStart:        envutil.Bool("SEED_ON_START", false),
		SeedLeaderEmail:    envutil.String("SEED_LEADER_EMAIL", "", log),
		SeedLeaderPassword: envutil.String("SEED_LEADER_PASSWORD", "", log),
		MetricsAddr:        envutil.String("METRICS_ADDR", "", log),
	}
	if cfg.JWTSecretKey == defaultJWTSecret && cfg.Env == "production" {
		log.Warn("JWT_SECRET_KEY is not set; tokens are signed with the default secret")
	}
	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
