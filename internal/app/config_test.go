package app

import (
	"testing"
	"time"

	"github.com/yungbote/studysync-backend/internal/platform/logger"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ACCESS_TOKEN_TTL", "120")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.org, ,https://b.example.org")
	t.Setenv("REALTIME_APP_KEY", "key")
	t.Setenv("REALTIME_PORT", "443")
	t.Setenv("SEED_ON_START", "true")

	cfg := LoadConfig(logger.NewNop())
	if cfg.Port != "9090" || cfg.AccessTokenTTL != 2*time.Minute {
		t.Fatalf("unexpected server config: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example.org" {
		t.Fatalf("origins: %v", cfg.AllowedOrigins)
	}
	if cfg.Realtime.AppKey != "key" || cfg.Realtime.Port != 443 {
		t.Fatalf("realtime: %+v", cfg.Realtime)
	}
	if !cfg.SeedOnStart {
		t.Fatalf("seed flag not read")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ACCESS_TOKEN_TTL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg := LoadConfig(logger.NewNop())
	if cfg.Port != "8080" || cfg.AccessTokenTTL != time.Hour || cfg.AllowedOrigins != nil {
		t.Fatalf("defaults: %+v", cfg)
	}
}
