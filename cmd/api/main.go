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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/zhouzirui/mockview/backend/internal/config"
	"github.com/zhouzirui/mockview/backend/internal/handler"
	"github.com/zhouzirui/mockview/backend/internal/metrics"
	"github.com/zhouzirui/mockview/backend/internal/middleware"
	"github.com/zhouzirui/mockview/backend/internal/model/persona"
	"github.com/zhouzirui/mockview/backend/internal/service/evaluation"
	"github.com/zhouzirui/mockview/backend/internal/service/interview"
	"github.com/zhouzirui/mockview/backend/internal/service/rating"
	"github.com/zhouzirui/mockview/backend/internal/service/resume"
	"github.com/zhouzirui/mockview/backend/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.Named("main")
	if err := run(ctx, log); err != nil {
		log.Error(ctx, "server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log logger.Logger) error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Warn(ctx, "no .env file loaded, continuing with system environment variables only", logger.Error(err))
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.Log.Level); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(registry)

	backend, err := newLanguageModel(ctx, cfg)
	if err != nil {
		return err
	}
	log.Info(ctx, "language model ready", logger.String("provider", backend.provider))

	sessions, err := newSessionStore(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer sessions.close()

	repo, closeRepo, err := newRatingRepository(ctx, cfg.Database, cfg.Log.Level == "debug")
	if err != nil {
		return err
	}
	defer closeRepo()

	engine := interview.NewEngine(sessions.store, backend.generator,
		interview.WithMetrics(recorder),
		interview.WithProvider(backend.provider),
		interview.WithGenerationTimeout(cfg.Interview.GenerationTimeout),
	)
	ratings := rating.NewService(repo,
		rating.WithMetrics(recorder),
		rating.WithLocker(sessions.locker("mockview:lock:rating:")),
	)
	scorer := newScorer(cfg.AI, backend)
	evaluator := evaluation.NewService(engine, scorer, ratings,
		evaluation.WithLocker(sessions.locker("mockview:lock:evaluation:")),
	)

	deps := handler.Dependencies{
		Personas:         persona.NewMemoryStore(persona.Seed()),
		Engine:           engine,
		Evaluator:        evaluator,
		Ratings:          ratings,
		Resume:           resume.NewExtractor(cfg.Interview.MaxResumeBytes),
		DefaultThreshold: cfg.Interview.TurnThreshold,
		Metrics:          recorder,
		Gatherer:         registry,
		Logger:           logger.Named("http"),
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:            rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst:           cfg.RateLimit.Burst,
			CleanupInterval: cfg.RateLimit.CleanupInterval,
		})
		defer limiter.Stop()
		deps.RateLimiter = limiter
	}

	addr, err := cfg.Server.Addr()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info(ctx, "mock interview backend listening", logger.String("addr", addr))
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
