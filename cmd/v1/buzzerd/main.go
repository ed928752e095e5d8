package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/alex-gusto/buzzer/internal/v1/config"
	"github.com/alex-gusto/buzzer/internal/v1/game"
	"github.com/alex-gusto/buzzer/internal/v1/health"
	"github.com/alex-gusto/buzzer/internal/v1/httpapi"
	"github.com/alex-gusto/buzzer/internal/v1/logging"
	"github.com/alex-gusto/buzzer/internal/v1/middleware"
	"github.com/alex-gusto/buzzer/internal/v1/ratelimit"
	"github.com/alex-gusto/buzzer/internal/v1/tracing"
	"github.com/alex-gusto/buzzer/internal/v1/transport"
	"github.com/alex-gusto/buzzer/internal/v1/trivia"
)

const serviceName = "buzzer"

func main() {
	// Load .env for local development, then validate everything up front.
	config.Load()

	cfg, err := config.ValidateEnv()
	if err != nil {
		slog.Error("Environment validation failed", "error", err)
		os.Exit(1)
	}

	if err := logging.Initialize(cfg.DevelopmentMode); err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}

	if cfg.DevelopmentMode {
		slog.Info("Running in DEVELOPMENT MODE")
	}

	// --- Tracing (optional) ---
	var tracerProvider *sdktrace.TracerProvider
	if cfg.OTLPEndpoint != "" {
		tracerProvider, err = tracing.InitTracer(context.Background(), serviceName, cfg.OTLPEndpoint)
		if err != nil {
			slog.Error("Failed to initialize tracer", "error", err)
			os.Exit(1)
		}
		slog.Info("✅ Tracing initialized", "endpoint", cfg.OTLPEndpoint)
	}

	// --- Game core ---
	// The trivia client is the question source; the registry owns rooms and
	// the dispatcher is the single mutation path both surfaces go through.
	source := trivia.NewClient(cfg.TriviaAPIURL, cfg.TriviaTimeout())
	registry := game.NewRegistry(source)
	dispatcher := game.NewDispatcher(registry, cfg.TriviaTimeout())

	rateLimiter, err := ratelimit.NewRateLimiter(cfg)
	if err != nil {
		slog.Error("Failed to build rate limiter", "error", err)
		os.Exit(1)
	}

	hub := transport.NewHub(dispatcher, cfg.Origins(), rateLimiter)

	// --- Set up Server ---
	router := gin.New()
	router.Use(gin.Recovery())
	if tracerProvider != nil {
		router.Use(otelgin.Middleware(serviceName))
	}
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger("/metrics", "/health/live", "/health/ready"))

	// Cors
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Origins()
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, middleware.HeaderXCorrelationID)
	router.Use(cors.New(corsConfig))

	// Routing
	api := router.Group("/api")
	api.Use(rateLimiter.APIMiddleware())
	httpapi.NewHandler(dispatcher).Register(api)

	router.GET("/ws/:code", hub.ServeWs)

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoints
	healthHandler := health.NewHandler(source, registry)
	router.GET("/health/live", healthHandler.Liveness)
	router.GET("/health/ready", healthHandler.Readiness)

	// Start the server.
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// --- Graceful Shutdown ---
	// Start the server in a goroutine so it doesn't block.
	go func() {
		slog.Info("API server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Failed to run server", "error", err)
			syscall.Kill(os.Getpid(), syscall.SIGTERM)
		}
	}()

	// Wait for an interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	// Tell every connected client goodbye before the listener closes.
	dispatcher.Shutdown(ctx)

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown:", "error", err)
	}

	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			slog.Error("Failed to shut down tracer provider:", "error", err)
		}
	}

	_ = logging.GetLogger().Sync()
	slog.Info("Server exiting")
}
