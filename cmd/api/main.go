package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/infra/geoip"
	"server/internal/jobs"
	"server/internal/prompt"
	"server/internal/providers/genai"
	"server/internal/providers/payment"
	"server/internal/ratelimit"
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

	// Without Redis the store lives in process memory, so the worker loop
	// has to run here too; with Redis the hand-off crosses processes and
	// cmd/worker drains the queue.
	var st store.Store
	inProcessWorker := cfg.RedisAddr == ""
	if inProcessWorker {
		logger.Warn().Msg("api: REDIS_ADDR not set, using in-memory store with embedded worker")
		st = store.NewMemoryStore()
	} else {
		client, err := infra.NewRedisClient(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: redis connection failed")
		}
		defer client.Close()
		st = store.NewRedisStore(client)
	}

	geo, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("api: geoip unavailable")
	}

	sessions := session.NewManager(st, session.Config{
		TTL:            cfg.SessionTTL,
		MaxScreenshots: cfg.MaxScreenshots,
		MaxBytes:       cfg.MaxUploadBytes,
	}, logger)
	tracker := jobs.NewTracker(st, cfg.JobTTL)
	queue := jobs.NewQueue(st)
	limiter := ratelimit.NewLimiter(st, cfg.RateLimitMax, cfg.RateLimitWindow)

	if inProcessWorker {
		worker := report.NewWorker(
			sessions,
			tracker,
			queue,
			payment.NewClient(payment.Options{BaseURL: cfg.PaymentBaseURL, SecretKey: cfg.PaymentSecretKey}),
			mustGeminiClient(cfg, &logger),
			prompt.NewLibrary(),
			report.Config{
				PaymentBypass:   cfg.PaymentBypass,
				AcceptedAmounts: cfg.AcceptedAmounts,
				Currency:        cfg.PaymentCurrency,
			},
			logger,
		)
		go func() { _ = worker.Run(ctx) }()
	}

	app := handlers.NewApp(sessions, tracker, queue, geo, logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		Limiter:        limiter,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func mustGeminiClient(cfg *infra.Config, logger *infra.Logger) *genai.Client {
	client, err := genai.NewClient(genai.Options{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure gemini client")
	}
	return client
}
