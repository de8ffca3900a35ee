package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"chartgpt-backend/internal/config"
	"chartgpt-backend/internal/database"
	"chartgpt-backend/internal/handlers"
	"chartgpt-backend/internal/logger"
	"chartgpt-backend/internal/middleware"
	"chartgpt-backend/internal/models"
	"chartgpt-backend/internal/router"
	"chartgpt-backend/internal/services"
	"chartgpt-backend/internal/websocket"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	log := logger.New(cfg.LogLevel, cfg.IsProduction())
	defer log.Sync()
	log.Info("Starting ChartGPT backend", zap.String("env", cfg.Env), zap.String("llm_provider", cfg.LLMProvider))

	// ──── Step 2: Initialize LLM Client ────
	var llm services.Completer
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		llm = services.NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.LLMConcurrentRequests, log)
		log.Info("OpenAI client initialized", zap.String("model", cfg.OpenAIModel))
	default:
		geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.LLMConcurrentRequests, log)
		if err != nil {
			log.Fatal("Gemini client initialization failed", zap.Error(err))
		}
		defer geminiService.Close()
		llm = geminiService
		log.Info("Gemini client initialized", zap.String("model", cfg.GeminiModel))
	}

	chartService := services.NewChartService(llm, log)

	// ──── Step 3: Session Store ────
	sessions := services.NewSessionStore(cfg.SessionTTL, log)
	sessions.Start()

	// ──── Step 4: Redis Clients (optional) + WebSocket Hub ────
	var orchestrator *services.Orchestrator
	state := func(sessionID string) models.RequestResult { return orchestrator.State(sessionID) }

	var wsHub *websocket.Hub
	var notifier services.Notifier
	if cfg.RedisURL != "" {
		redisClients, err := database.NewRedisClients(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatal("Redis connection failed", zap.Error(err))
		}
		defer redisClients.Close()
		log.Info("Redis connected")

		wsHub = websocket.NewHub(redisClients.PubSub, state, log)
		notifier = services.NewRedisNotifier(redisClients.Publisher, log)
	} else {
		wsHub = websocket.NewHub(nil, state, log)
		notifier = wsHub
	}
	defer wsHub.Close()

	// ──── Step 5: Orchestrator ────
	policy := services.DiscardStale
	if cfg.StaleResponsePolicy == config.StalePolicyLastWriteWins {
		policy = services.LastWriteWins
	}
	orchestrator = services.NewOrchestrator(chartService, chartService, sessions, services.OrchestratorOptions{
		StalePolicy: policy,
		Timeout:     cfg.RoundTripTimeout,
		Notifier:    notifier,
	}, log)

	// ──── Step 6: Start HTTP Server ────
	defaultKeyLimiter := middleware.NewRateLimiter(cfg.DefaultKeyRequestsPerMin, time.Minute)
	chartHandler := handlers.NewChartHandler(chartService, orchestrator, log)
	r := router.New(chartHandler, wsHub, defaultKeyLimiter, log, cfg.FrontendURL)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Warn("HTTP server shutdown", zap.Error(err))
		}

		orchestrator.Wait()
		defaultKeyLimiter.Stop()
		sessions.Stop()
	}()

	log.Info("ChartGPT backend ready",
		zap.String("api", fmt.Sprintf("http://localhost:%s/api", cfg.Port)),
		zap.String("ws", fmt.Sprintf("ws://localhost:%s/api/v1/ws", cfg.Port)))

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("Server error", zap.Error(err))
	}
	<-done
}
