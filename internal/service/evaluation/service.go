// Package evaluation turns a finished interview into a rating update: the transcript is
// scored, the six dimensions are averaged and the average is fed to the rating engine.
package evaluation

import (
	"context"
	"fmt"
	"strings"

	"github.com/zhouzirui/mockview/backend/internal/analysis/performance"
	"github.com/zhouzirui/mockview/backend/internal/errs"
	interview "github.com/zhouzirui/mockview/backend/internal/model/interview"
	ratingmodel "github.com/zhouzirui/mockview/backend/internal/model/rating"
	"github.com/zhouzirui/mockview/backend/internal/service/rating"
	"github.com/zhouzirui/mockview/backend/pkg/keylock"
	"github.com/zhouzirui/mockview/backend/pkg/logger"
)

// Scorer grades a transcript on the six performance dimensions.
type Scorer interface {
	Score(ctx context.Context, persona interview.PersonaContext, transcript []interview.Message) (performance.Score, error)
}

// Sessions is the part of the interview engine evaluation needs.
type Sessions interface {
	Get(ctx context.Context, sessionID string) (interview.Session, error)
	MarkEvaluated(ctx context.Context, sessionID string) error
}

// Ratings applies a 0-100 score to a subject.
type Ratings interface {
	Apply(ctx context.Context, subjectID string, score float64, difficulty ratingmodel.Difficulty, category string) (rating.Result, error)
}

// Request names the session to grade and whom to credit.
type Request struct {
	SessionID  string `json:"sessionId"`
	SubjectID  string `json:"subjectId"`
	Difficulty string `json:"difficulty"`
	Category   string `json:"category,omitempty"`
}

// Result is the full evaluation outcome.
type Result struct {
	SessionID string            `json:"sessionId"`
	Scores    performance.Score `json:"scores"`
	Average   float64           `json:"average"`
	Percent   float64           `json:"percent"`
	Rating    rating.Result     `json:"rating"`
	Warning   string            `json:"warning,omitempty"`
}

// Service evaluates ended sessions.
type Service struct {
	sessions Sessions
	scorer   Scorer
	ratings  Ratings
	locks    keylock.Interface
	log      logger.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithLocker replaces the in-process lock that keeps one evaluation per session running.
func WithLocker(l keylock.Interface) Option {
	return func(s *Service) {
		if l != nil {
			s.locks = l
		}
	}
}

// NewService wires the collaborators.
func NewService(sessions Sessions, scorer Scorer, ratings Ratings, opts ...Option) *Service {
	s := &Service{
		sessions: sessions,
		scorer:   scorer,
		ratings:  ratings,
		locks:    keylock.New(),
		log:      logger.Named("evaluation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate scores an ended session and applies the result to the subject's rating.
// Each session is rated at most once.
func (s *Service) Evaluate(ctx context.Context, req Request) (Result, error) {
	difficulty, err := rating.ParseDifficulty(req.Difficulty)
	if err != nil {
		return Result{}, err
	}
	subjectID := strings.TrimSpace(req.SubjectID)
	if subjectID == "" {
		return Result{}, fmt.Errorf("subject id is required: %w", errs.ErrInvalidArgument)
	}

	unlock, err := s.locks.Lock(ctx, req.SessionID)
	if err != nil {
		return Result{}, fmt.Errorf("lock evaluation of %s: %w: %w", req.SessionID, errs.ErrUpstream, err)
	}
	defer unlock()

	session, err := s.sessions.Get(ctx, req.SessionID)
	if err != nil {
		return Result{}, err
	}
	switch {
	case !session.Terminated:
		return Result{}, fmt.Errorf("session %s has not ended: %w", req.SessionID, errs.ErrInvalidState)
	case session.Evaluated:
		return Result{}, fmt.Errorf("session %s was already evaluated: %w", req.SessionID, errs.ErrInvalidState)
	}

	scores, err := s.scorer.Score(ctx, session.Persona, visible(session.Messages))
	if err != nil {
		s.log.Warn(ctx, "scoring failed", logger.String("session_id", req.SessionID), logger.Error(err))
		return Result{}, fmt.Errorf("score session %s: %w: %v", req.SessionID, errs.ErrUpstream, err)
	}
	percent, err := scores.Percent()
	if err != nil {
		return Result{}, fmt.Errorf("scorer returned unusable scores: %w: %v", errs.ErrUpstream, err)
	}

	applied, err := s.ratings.Apply(ctx, subjectID, percent, difficulty, req.Category)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		SessionID: req.SessionID,
		Scores:    scores,
		Average:   scores.Average(),
		Percent:   percent,
		Rating:    applied,
	}
	if err := s.sessions.MarkEvaluated(ctx, req.SessionID); err != nil {
		s.log.Error(ctx, "rating applied but session not marked",
			logger.String("session_id", req.SessionID),
			logger.Error(err),
		)
		result.Warning = "session could not be marked as evaluated"
	}

	s.log.Info(ctx, "session evaluated",
		logger.String("session_id", req.SessionID),
		logger.String("subject_id", subjectID),
		logger.Float64("percent", percent),
		logger.Int("new_rating", applied.NewRating),
	)
	return result, nil
}

func visible(messages []interview.Message) []interview.Message {
	out := make([]interview.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role != interview.RoleSystem {
			out = append(out, m)
		}
	}
	return out
}

// HeuristicScorer grades with performance.Heuristic over the candidate's answers.
type HeuristicScorer struct{}

// Score implements Scorer.
func (HeuristicScorer) Score(_ context.Context, _ interview.PersonaContext, transcript []interview.Message) (performance.Score, error) {
	var answers []string
	for _, m := range transcript {
		if m.Role == interview.RoleCandidate {
			answers = append(answers, m.Content)
		}
	}
	return performance.Heuristic(answers), nil
}
