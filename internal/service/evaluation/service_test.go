package evaluation

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/mockview/backend/internal/analysis/performance"
	"github.com/zhouzirui/mockview/backend/internal/errs"
	interview "github.com/zhouzirui/mockview/backend/internal/model/interview"
	repo "github.com/zhouzirui/mockview/backend/internal/repository/rating"
	engine "github.com/zhouzirui/mockview/backend/internal/service/interview"
	"github.com/zhouzirui/mockview/backend/internal/service/rating"
	"github.com/zhouzirui/mockview/backend/pkg/logger"
)

type echoGenerator struct{}

func (echoGenerator) Generate(context.Context, []interview.Message) (string, error) {
	return "Tell me more.", nil
}

type fixedScorer struct {
	score      performance.Score
	err        error
	transcript []interview.Message
}

func (f *fixedScorer) Score(_ context.Context, _ interview.PersonaContext, transcript []interview.Message) (performance.Score, error) {
	f.transcript = transcript
	return f.score, f.err
}

func uniform(v float64) performance.Score {
	return performance.Score{Technical: v, Communication: v, Confidence: v, ProblemSolving: v, ResumeStrength: v, Leadership: v}
}

type fixture struct {
	engine  *engine.Engine
	ratings *rating.Service
	repo    *repo.MemoryRepository
}

func newFixture() fixture {
	r := repo.NewMemoryRepository()
	return fixture{
		engine:  engine.NewEngine(engine.NewMemoryStore(), echoGenerator{}, engine.WithLogger(logger.Nop())),
		ratings: rating.NewService(r, rating.WithLogger(logger.Nop())),
		repo:    r,
	}
}

func (f fixture) endedSession(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	s, err := f.engine.Create(ctx, interview.PersonaContext{CompanyName: "Acme"}, 2)
	require.NoError(t, err)
	for _, a := range []string{"I led the cache migration.", "We measured latency first."} {
		_, err := f.engine.Advance(ctx, s.ID, a)
		require.NoError(t, err)
	}
	got, err := f.engine.Get(ctx, s.ID)
	require.NoError(t, err)
	require.True(t, got.Terminated)
	return s.ID
}

func TestEvaluateAppliesRating(t *testing.T) {
	f := newFixture()
	id := f.endedSession(t)
	scorer := &fixedScorer{score: uniform(0.8)}
	svc := NewService(f.engine, scorer, f.ratings)

	res, err := svc.Evaluate(context.Background(), Request{SessionID: id, SubjectID: "alice", Difficulty: "medium"})
	require.NoError(t, err)

	assert.InDelta(t, 0.8, res.Average, 1e-9)
	assert.InDelta(t, 80, res.Percent, 1e-9)
	assert.Equal(t, 1200, res.Rating.OldRating)
	assert.Equal(t, 1224, res.Rating.NewRating)
	assert.Empty(t, res.Warning)

	for _, m := range scorer.transcript {
		assert.NotEqual(t, interview.RoleSystem, m.Role)
	}
	assert.Len(t, scorer.transcript, 4)

	got, err := f.engine.Get(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, got.Evaluated)
}

func TestEvaluateOnlyOnce(t *testing.T) {
	f := newFixture()
	id := f.endedSession(t)
	svc := NewService(f.engine, &fixedScorer{score: uniform(0.9)}, f.ratings)
	req := Request{SessionID: id, SubjectID: "alice", Difficulty: "hard"}

	_, err := svc.Evaluate(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Evaluate(context.Background(), req)
	assert.ErrorIs(t, err, errs.ErrInvalidState)

	history, err := f.ratings.History(context.Background(), "alice", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestEvaluateRejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	svc := NewService(f.engine, &fixedScorer{score: uniform(0.5)}, f.ratings)

	active, err := f.engine.Create(ctx, interview.PersonaContext{Name: "Maya"}, 5)
	require.NoError(t, err)

	_, err = svc.Evaluate(ctx, Request{SessionID: active.ID, SubjectID: "bob", Difficulty: "easy"})
	assert.ErrorIs(t, err, errs.ErrInvalidState)

	_, err = svc.Evaluate(ctx, Request{SessionID: "missing", SubjectID: "bob", Difficulty: "easy"})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = svc.Evaluate(ctx, Request{SessionID: active.ID, SubjectID: "bob", Difficulty: "extreme"})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = svc.Evaluate(ctx, Request{SessionID: active.ID, SubjectID: "  ", Difficulty: "easy"})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, ok, err := f.repo.Get(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateScorerFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("scorer error", func(t *testing.T) {
		f := newFixture()
		id := f.endedSession(t)
		svc := NewService(f.engine, &fixedScorer{err: errors.New("model offline")}, f.ratings)

		_, err := svc.Evaluate(ctx, Request{SessionID: id, SubjectID: "carol", Difficulty: "medium"})
		assert.ErrorIs(t, err, errs.ErrUpstream)
		assert.ErrorContains(t, err, "model offline")

		got, err := f.engine.Get(ctx, id)
		require.NoError(t, err)
		assert.False(t, got.Evaluated, "a failed evaluation can be retried")
	})

	t.Run("out of range scores", func(t *testing.T) {
		f := newFixture()
		id := f.endedSession(t)
		svc := NewService(f.engine, &fixedScorer{score: uniform(1.5)}, f.ratings)

		_, err := svc.Evaluate(ctx, Request{SessionID: id, SubjectID: "carol", Difficulty: "medium"})
		assert.ErrorIs(t, err, errs.ErrUpstream)
		assert.NotErrorIs(t, err, errs.ErrInvalidArgument)
	})
}

func TestHeuristicScorerUsesCandidateTurns(t *testing.T) {
	transcript := []interview.Message{
		{Role: interview.RoleCandidate, Content: "I led the team that migrated our database and reduced latency by 40%."},
		{Role: interview.RoleAssistant, Content: "I led the team, mentor, database, cache, api, kubernetes."},
	}

	got, err := HeuristicScorer{}.Score(context.Background(), interview.PersonaContext{}, transcript)
	require.NoError(t, err)
	assert.Equal(t, performance.Heuristic([]string{transcript[0].Content}), got)
	assert.NoError(t, got.Validate())
}

type expiredLocker struct{}

func (expiredLocker) Lock(ctx context.Context, _ string) (func(), error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestEvaluateLockTimeoutIsUpstream(t *testing.T) {
	f := newFixture()
	id := f.endedSession(t)
	svc := NewService(f.engine, &fixedScorer{score: uniform(0.8)}, f.ratings, WithLocker(expiredLocker{}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := svc.Evaluate(ctx, Request{SessionID: id, SubjectID: "dave", Difficulty: "easy"})
	assert.ErrorIs(t, err, errs.ErrUpstream)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, http.StatusBadGateway, errs.HTTPStatus(err))
}
