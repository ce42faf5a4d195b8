package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PoLsss/ML-lightrag-core/internal/api"
	"github.com/PoLsss/ML-lightrag-core/internal/api/middleware"
	"github.com/PoLsss/ML-lightrag-core/internal/setup"
	"github.com/PoLsss/ML-lightrag-core/internal/setup/logger"
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func enrichSwaggerObject(swo *spec.Swagger) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "LightRAG Query API",
			Description: "Query a LightRAG knowledge base: answers, streamed answers and raw retrieval data",
			Version:     setup.Version,
		},
	}
	swo.Tags = []spec.Tag{
		{TagProps: spec.TagProps{Name: "health", Description: "Health checks"}},
		{TagProps: spec.TagProps{Name: "query", Description: "Query operations"}},
		{TagProps: spec.TagProps{Name: "admin", Description: "Cache administration"}},
	}
	swo.SecurityDefinitions = spec.SecurityDefinitions{
		"APIKeyHeader": spec.APIKeyAuth("X-API-Key", "header"),
		"BearerToken":  spec.APIKeyAuth("Authorization", "header"),
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found")
	}

	cfg := setup.LoadConfig()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = logger.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	appLogger := log.Logger

	log.Info().Msg("Starting LightRAG Query API Server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := setup.Wire(ctx, cfg, &appLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("Unable to load dependencies")
	}
	defer deps.Close()

	handler := api.NewHandler(deps.Service, deps.Cache, api.Info{
		Version:  setup.Version,
		Engine:   cfg.EngineProvider,
		AuthMode: string(deps.Auth.Mode()),
	}, &appLogger)

	container := restful.NewContainer()

	// Add filters
	container.Filter(middleware.RequestID)
	container.Filter(middleware.Logger)
	container.Filter(middleware.RecoverPanic)

	// register API
	api.RegisterRoutes(container, handler, deps.Auth.Filter)

	config := restfulspec.Config{
		WebServices:                   container.RegisteredWebServices(),
		APIPath:                       "/openapi.json",
		PostBuildSwaggerObjectHandler: enrichSwaggerObject,
	}
	container.Add(restfulspec.NewOpenAPIService(config))
	container.Handle("/metrics", promhttp.Handler())

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Info().Str("address", addr).Msg("Starting server")

	// WriteTimeout stays 0: /query/stream responses live as long as the answer.
	server := http.Server{
		Addr:              addr,
		Handler:           corsHandler.Handler(container),
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed to start")
	}

	log.Info().Msg("Server stopped")
}
