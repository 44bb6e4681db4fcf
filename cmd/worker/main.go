package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/infra"
	"server/internal/jobs"
	"server/internal/prompt"
	"server/internal/providers/genai"
	"server/internal/providers/payment"
	"server/internal/report"
	"server/internal/session"
	"server/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RedisAddr == "" {
		logger.Fatal().Msg("worker: REDIS_ADDR is required; the queue must be shared with the api process")
	}
	client, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: redis connection failed")
	}
	defer client.Close()
	st := store.NewRedisStore(client)

	// Generation dominates worker latency; the HTTP client timeout has to
	// outlast the slowest model call.
	httpClient := &http.Client{Timeout: 120 * time.Second}
	geminiClient, err := genai.NewClient(genai.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.GeminiModel,
		HTTPClient: httpClient,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure gemini client")
	}
	if cfg.GeminiAPIKey == "" {
		logger.Warn().Str("model", geminiClient.Model()).Msg("worker: gemini api key missing, using synthetic report generation")
	}

	sessions := session.NewManager(st, session.Config{
		TTL:            cfg.SessionTTL,
		MaxScreenshots: cfg.MaxScreenshots,
		MaxBytes:       cfg.MaxUploadBytes,
	}, logger)

	worker := report.NewWorker(
		sessions,
		jobs.NewTracker(st, cfg.JobTTL),
		jobs.NewQueue(st),
		payment.NewClient(payment.Options{BaseURL: cfg.PaymentBaseURL, SecretKey: cfg.PaymentSecretKey}),
		geminiClient,
		prompt.NewLibrary(),
		report.Config{
			PaymentBypass:   cfg.PaymentBypass,
			AcceptedAmounts: cfg.AcceptedAmounts,
			Currency:        cfg.PaymentCurrency,
		},
		logger,
	)

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
