package setup

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"LIGHTRAG_API_PORT", "ENGINE_PROVIDER", "REDIS_TTL", "CORS_ALLOWED_ORIGINS", "ENABLE_LLM_CACHE"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	if cfg.Port != "9621" {
		t.Errorf("expected default port 9621, got %s", cfg.Port)
	}
	if cfg.EngineProvider != EngineNative {
		t.Errorf("expected native engine, got %s", cfg.EngineProvider)
	}
	if cfg.RedisTTL != 24*time.Hour {
		t.Errorf("expected 24h TTL, got %s", cfg.RedisTTL)
	}
	if !cfg.CacheEnabled {
		t.Error("expected cache enabled by default")
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Errorf("unexpected CORS origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("LIGHTRAG_API_PORT", "8080")
	t.Setenv("REMOTE_ENGINE_TIMEOUT", "5s")
	t.Setenv("EMBEDDING_DIMENSIONS", "1536")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example, ,http://b.example")
	t.Setenv("ENABLE_LLM_CACHE", "false")
	t.Setenv("REDIS_TTL", "not-a-duration")

	cfg := LoadConfig()

	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Port)
	}
	if cfg.RemoteEngineTimeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.RemoteEngineTimeout)
	}
	if cfg.EmbeddingDimensions != 1536 {
		t.Errorf("expected 1536 dimensions, got %d", cfg.EmbeddingDimensions)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "http://b.example" {
		t.Errorf("unexpected CORS origins: %v", cfg.CORSAllowedOrigins)
	}
	if cfg.CacheEnabled {
		t.Error("expected cache disabled")
	}
	if cfg.RedisTTL != 24*time.Hour {
		t.Errorf("invalid duration should fall back to default, got %s", cfg.RedisTTL)
	}
}

func TestWire_RemoteEngine(t *testing.T) {
	cfg := &Config{
		EngineProvider:      EngineRemote,
		RemoteEngineURL:     "http://upstream.invalid",
		RemoteEngineTimeout: time.Second,
		APIKey:              "key",
	}
	logger := zerolog.Nop()

	deps, err := Wire(context.Background(), cfg, &logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer deps.Close()

	if deps.Service == nil || deps.Engine == nil {
		t.Fatal("expected service and engine to be wired")
	}
	if deps.Cache.Enabled() {
		t.Error("cache should be disabled without redis")
	}
	if deps.Auth.Mode() != "api_key" {
		t.Errorf("expected api_key auth mode, got %s", deps.Auth.Mode())
	}
}

func TestWire_UnknownEngine(t *testing.T) {
	logger := zerolog.Nop()
	if _, err := Wire(context.Background(), &Config{EngineProvider: "quantum"}, &logger); err == nil {
		t.Error("expected error for unknown engine provider")
	}
}
