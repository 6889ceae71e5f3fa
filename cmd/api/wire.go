package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/zhouzirui/mockview/backend/internal/config"
	"github.com/zhouzirui/mockview/backend/internal/database"
	ratingrepo "github.com/zhouzirui/mockview/backend/internal/repository/rating"
	"github.com/zhouzirui/mockview/backend/internal/service/ai"
	"github.com/zhouzirui/mockview/backend/internal/service/evaluation"
	"github.com/zhouzirui/mockview/backend/internal/service/interview"
	"github.com/zhouzirui/mockview/backend/internal/service/rating"
	"github.com/zhouzirui/mockview/backend/pkg/keylock"
	"github.com/zhouzirui/mockview/backend/pkg/logger"
)

var errNoLanguageModel = errors.New("no language model configured: set ARK_API_KEY and ARK_MODEL, or AI_PROVIDER=gemini with GEMINI_API_KEY")

// languageModel is the configured backend, used both for interviewer turns and scoring.
type languageModel struct {
	provider  string
	generator interview.Generator
	completer ai.Completer
}

func newLanguageModel(ctx context.Context, cfg *config.Config) (languageModel, error) {
	switch cfg.AI.Provider {
	case config.ProviderGemini:
		if !cfg.Gemini.Enabled() {
			return languageModel{}, errNoLanguageModel
		}
		svc, err := ai.NewGeminiService(ctx, cfg.Gemini)
		if err != nil {
			return languageModel{}, err
		}
		return languageModel{provider: config.ProviderGemini, generator: svc, completer: svc}, nil
	default:
		if !cfg.AI.Enabled() {
			return languageModel{}, errNoLanguageModel
		}
		svc, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			return languageModel{}, fmt.Errorf("failed to initialize ark service: %w", err)
		}
		return languageModel{provider: config.ProviderArk, generator: svc, completer: svc}, nil
	}
}

func newScorer(cfg config.AIConfig, backend languageModel) evaluation.Scorer {
	if cfg.ScoringEnabled && backend.completer != nil {
		return ai.NewScorer(backend.completer)
	}
	logger.Named("main").Info(context.Background(), "model scoring disabled, using keyword heuristic")
	return evaluation.HeuristicScorer{}
}

// sessionBackend holds the session store and, when sessions live in redis, the client that
// also carries the locks shared between instances.
type sessionBackend struct {
	store  interview.SessionStore
	client redis.Cmdable
	close  func()
}

// locker returns a cross-instance lock under prefix, or nil to keep the in-process default.
func (b sessionBackend) locker(prefix string) keylock.Interface {
	if b.client == nil {
		return nil
	}
	return keylock.NewRedisLocker(b.client, prefix, keylock.DefaultLease)
}

func newSessionStore(ctx context.Context, cfg config.RedisConfig) (sessionBackend, error) {
	if cfg.Addr == "" {
		return sessionBackend{store: interview.NewMemoryStore(), close: func() {}}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return sessionBackend{}, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	logger.Named("main").Info(ctx, "sessions stored in redis", logger.String("addr", cfg.Addr))
	return sessionBackend{
		store:  interview.NewRedisStore(client, cfg.SessionTTL),
		client: client,
		close:  func() { _ = client.Close() },
	}, nil
}

func newRatingRepository(ctx context.Context, cfg config.DatabaseConfig, debug bool) (rating.Repository, func(), error) {
	if cfg.DSN == "" {
		return ratingrepo.NewMemoryRepository(), func() {}, nil
	}

	db, err := database.Open(ctx, cfg.DSN, debug)
	if err != nil {
		return nil, nil, err
	}
	if err := ratingrepo.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, nil, err
	}
	return ratingrepo.NewPostgresRepository(db), func() { _ = database.Close(db) }, nil
}
