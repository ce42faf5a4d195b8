package setup

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PoLsss/ML-lightrag-core/internal/auth"
	"github.com/PoLsss/ML-lightrag-core/internal/cache"
	"github.com/PoLsss/ML-lightrag-core/internal/config"
	"github.com/PoLsss/ML-lightrag-core/internal/database"
	"github.com/PoLsss/ML-lightrag-core/internal/engine"
	"github.com/PoLsss/ML-lightrag-core/internal/engine/rag"
	"github.com/PoLsss/ML-lightrag-core/internal/engine/remote"
	"github.com/PoLsss/ML-lightrag-core/internal/llm"
	"github.com/PoLsss/ML-lightrag-core/internal/llm/bedrock"
	"github.com/PoLsss/ML-lightrag-core/internal/llm/gpt"
	"github.com/PoLsss/ML-lightrag-core/internal/query"
	"github.com/PoLsss/ML-lightrag-core/internal/redis"
	"github.com/rs/zerolog"
)

const Version = "1.0.0"

const (
	EngineNative = "native"
	EngineRemote = "remote"
)

type Config struct {
	Port               string
	LogLevel           string
	LogFormat          string
	CORSAllowedOrigins []string

	EngineProvider      string
	RemoteEngineURL     string
	RemoteEngineTimeout time.Duration
	RemoteEngineAPIKey  string

	LLMProvider            string
	AWSRegion              string
	ClaudeModelID          string
	BedrockEmbeddingModel  string
	OpenAIKey              string
	OpenAIBaseURL          string
	OpenAIModelID          string
	OpenAIEmbeddingModelID string
	EmbeddingDimensions    int
	RerankModel            string

	Database database.Config

	CacheEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
	CachePrefix   string

	APIKey      string
	TokenSecret string
	TokenIssuer string
	TokenTTL    time.Duration
}

type Dependencies struct {
	Service *query.Service
	Engine  engine.Engine
	Cache   cache.ResponseCache
	Auth    *auth.Authenticator
	Logger  *zerolog.Logger

	closers []func()
}

// Close releases connections opened by Wire, newest first.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func LoadConfig() *Config {
	return &Config{
		Port:               getEnv("LIGHTRAG_API_PORT", "9621"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "console"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		EngineProvider:      getEnv("ENGINE_PROVIDER", EngineNative),
		RemoteEngineURL:     getEnv("REMOTE_ENGINE_URL", "http://localhost:9622"),
		RemoteEngineTimeout: getEnvDuration("REMOTE_ENGINE_TIMEOUT", 30*time.Second),
		RemoteEngineAPIKey:  getEnv("REMOTE_ENGINE_API_KEY", ""),

		LLMProvider:            getEnv("LLM_PROVIDER", "bedrock"),
		AWSRegion:              getEnv("AWS_REGION", "us-east-1"),
		ClaudeModelID:          getEnv("CLAUDE_MODEL_ID", "anthropic.claude-3-5-sonnet-20240620-v1:0"),
		BedrockEmbeddingModel:  getEnv("BEDROCK_EMBEDDING_MODEL_ID", ""),
		OpenAIKey:              getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:          getEnv("OPENAI_BASE_URL", ""),
		OpenAIModelID:          getEnv("OPENAI_MODEL_ID", "gpt-4o-mini"),
		OpenAIEmbeddingModelID: getEnv("OPENAI_EMBEDDING_MODEL_ID", ""),
		EmbeddingDimensions:    getEnvInt("EMBEDDING_DIMENSIONS", 1024),
		RerankModel:            getEnv("RERANK_MODEL", ""),

		Database: database.Config{
			Host:     getEnv("LIGHTRAG_DB_HOST", "localhost"),
			Port:     getEnv("LIGHTRAG_DB_PORT", "5432"),
			User:     getEnv("LIGHTRAG_DB_USER", "postgres"),
			Password: getEnv("LIGHTRAG_DB_PASSWORD", ""),
			Database: getEnv("LIGHTRAG_DB_NAME", "lightrag"),
			SSLMode:  getEnv("LIGHTRAG_DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvInt("LIGHTRAG_DB_MAX_CONNS", 10)),
		},

		CacheEnabled:  getEnvBool("ENABLE_LLM_CACHE", true),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisTTL:      getEnvDuration("REDIS_TTL", 24*time.Hour),
		CachePrefix:   getEnv("REDIS_CACHE_PREFIX", cache.DefaultPrefix),

		APIKey:      getEnv("LIGHTRAG_API_KEY", ""),
		TokenSecret: getEnv("TOKEN_SECRET", ""),
		TokenIssuer: getEnv("TOKEN_ISSUER", "lightrag"),
		TokenTTL:    getEnvDuration("TOKEN_TTL", 48*time.Hour),
	}
}

func Wire(ctx context.Context, cfg *Config, logger *zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: logger, Cache: cache.NopCache{}}

	if cfg.CacheEnabled && cfg.RedisAddr != "" {
		redisClient, err := redis.Connect(ctx, redis.Config{
			Addr:       cfg.RedisAddr,
			Password:   cfg.RedisPassword,
			DB:         cfg.RedisDB,
			MaxRetries: 5,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		deps.closers = append(deps.closers, func() { _ = redisClient.Close() })
		deps.Cache = cache.NewRedisResponseCache(redisClient, cfg.CachePrefix, cfg.RedisTTL)
	}

	var err error
	switch cfg.EngineProvider {
	case EngineRemote:
		deps.Engine = remote.NewClient(remote.Config{
			BaseURL: cfg.RemoteEngineURL,
			APIKey:  cfg.RemoteEngineAPIKey,
			Timeout: cfg.RemoteEngineTimeout,
		}, logger)
	case EngineNative:
		deps.Engine, err = wireNative(ctx, cfg, deps, logger)
	default:
		err = fmt.Errorf("unknown engine provider %q", cfg.EngineProvider)
	}
	if err != nil {
		deps.Close()
		return nil, err
	}

	deps.Auth = auth.New(auth.Config{
		APIKey:      cfg.APIKey,
		TokenSecret: cfg.TokenSecret,
		TokenIssuer: cfg.TokenIssuer,
		TokenTTL:    cfg.TokenTTL,
	}, logger)
	deps.Service = query.NewService(deps.Engine, logger)

	logger.Info().
		Str("engine", cfg.EngineProvider).
		Str("auth_mode", string(deps.Auth.Mode())).
		Bool("cache", deps.Cache.Enabled()).
		Msg("Dependencies wired")

	return deps, nil
}

func wireNative(ctx context.Context, cfg *Config, deps *Dependencies, logger *zerolog.Logger) (engine.Engine, error) {
	defaults, err := config.LoadQueryDefaults()
	if err != nil {
		return nil, fmt.Errorf("failed to load query defaults: %w", err)
	}

	provider, err := createLLMClient(ctx, cfg.LLMProvider, cfg, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.LLMProvider, err)
	}

	var reranker rag.Reranker
	if cfg.RerankModel != "" {
		rerankEmbedder, err := createLLMClient(ctx, cfg.LLMProvider, cfg, cfg.RerankModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create rerank client: %w", err)
		}
		reranker = rag.NewEmbeddingReranker(rerankEmbedder)
	}

	db, err := database.New(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	deps.closers = append(deps.closers, db.Close)

	client := llm.NewRetryingClient(provider, llm.DefaultRetryConfig(), logger)

	native, err := rag.New(db, client, provider, rag.Options{
		Defaults: *defaults,
		Reranker: reranker,
		Cache:    deps.Cache,
	}, logger)
	if err != nil {
		return nil, err
	}
	return native, nil
}

type providerClient interface {
	llm.Client
	llm.Embedder
}

// createLLMClient builds the chat + embedding client for provider. A non-empty
// embeddingModel overrides the configured embedding model.
func createLLMClient(ctx context.Context, provider string, cfg *Config, embeddingModel string) (providerClient, error) {
	switch provider {
	case "openai":
		if embeddingModel == "" {
			embeddingModel = cfg.OpenAIEmbeddingModelID
		}
		return gpt.NewClient(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModelID, embeddingModel, cfg.EmbeddingDimensions)
	case "bedrock":
		if embeddingModel == "" {
			embeddingModel = cfg.BedrockEmbeddingModel
		}
		return bedrock.NewClient(ctx, cfg.AWSRegion, cfg.ClaudeModelID, embeddingModel, cfg.EmbeddingDimensions)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
}

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}

	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	var values []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
