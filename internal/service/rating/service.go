package rating

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/mockview/backend/internal/errs"
	"github.com/zhouzirui/mockview/backend/internal/metrics"
	model "github.com/zhouzirui/mockview/backend/internal/model/rating"
	"github.com/zhouzirui/mockview/backend/pkg/keylock"
	"github.com/zhouzirui/mockview/backend/pkg/logger"
)

const (
	defaultCategory    = "general"
	defaultProfileSize = 10
	maxLeaderboardSize = 100
)

// Repository persists ratings and their history.
type Repository interface {
	// Get returns the stored record; ok is false when the subject was never rated.
	Get(ctx context.Context, subjectID string) (rec model.Record, ok bool, err error)
	Save(ctx context.Context, rec model.Record) error
	AppendHistory(ctx context.Context, entry model.HistoryEntry) error
	// History returns entries oldest first, restricted to the most recent limit when limit > 0.
	History(ctx context.Context, subjectID string, limit int) ([]model.HistoryEntry, error)
	// Top returns records by rating descending.
	Top(ctx context.Context, limit int) ([]model.Record, error)
}

// Result is what a rating update reports back to the caller.
type Result struct {
	SubjectID       string           `json:"subjectId"`
	OldRating       int              `json:"oldRating"`
	NewRating       int              `json:"newRating"`
	Delta           int              `json:"delta"`
	Timestamp       time.Time        `json:"timestamp"`
	Score           float64          `json:"score"`
	Difficulty      model.Difficulty `json:"difficulty"`
	Outcome         model.Outcome    `json:"outcome"`
	HistoryRecorded bool             `json:"historyRecorded"`
	Warning         string           `json:"warning,omitempty"`
}

// Profile bundles a subject's current rating with recent history.
type Profile struct {
	Record  model.Record         `json:"record"`
	History []model.HistoryPoint `json:"history"`
}

// Service wraps the pure update rule with persistence.
type Service struct {
	repo    Repository
	locks   keylock.Interface
	metrics metrics.Recorder
	log     logger.Logger
	now     func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithMetrics reports updates to r.
func WithMetrics(r metrics.Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithLocker replaces the in-process subject lock, e.g. with a keylock.RedisLocker when
// several instances share one repository.
func WithLocker(l keylock.Interface) Option {
	return func(s *Service) {
		if l != nil {
			s.locks = l
		}
	}
}

// NewService builds a Service on repo.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		locks:   keylock.New(),
		metrics: metrics.Nop{},
		log:     logger.Named("rating"),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply updates subjectID's rating from a 0-100 score against difficulty.
// A failed rating write fails the call; a failed history write is reported on the result.
func (s *Service) Apply(ctx context.Context, subjectID string, score float64, difficulty model.Difficulty, category string) (Result, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return Result{}, fmt.Errorf("subject id is required: %w", errs.ErrInvalidArgument)
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = defaultCategory
	}

	unlock, err := s.locks.Lock(ctx, subjectID)
	if err != nil {
		return Result{}, fmt.Errorf("lock subject %s: %w: %w", subjectID, errs.ErrUpstream, err)
	}
	defer unlock()

	current, err := s.current(ctx, subjectID)
	if err != nil {
		return Result{}, err
	}

	update, err := Compute(current.Rating, score, difficulty)
	if err != nil {
		return Result{}, err
	}

	now := s.now()
	if err := s.repo.Save(ctx, model.Record{SubjectID: subjectID, Rating: update.NewRating, UpdatedAt: now}); err != nil {
		return Result{}, fmt.Errorf("save rating for %s: %w", subjectID, err)
	}

	result := Result{
		SubjectID:       subjectID,
		OldRating:       update.OldRating,
		NewRating:       update.NewRating,
		Delta:           update.Delta,
		Timestamp:       now,
		Score:           score,
		Difficulty:      difficulty,
		Outcome:         update.Outcome,
		HistoryRecorded: true,
	}
	s.metrics.RecordRatingUpdate(string(update.Outcome))

	entry := model.HistoryEntry{
		SubjectID:  subjectID,
		Timestamp:  now,
		OldRating:  update.OldRating,
		NewRating:  update.NewRating,
		Delta:      update.Delta,
		RawScore:   score,
		Difficulty: difficulty,
		Category:   category,
		Outcome:    update.Outcome,
	}
	if err := s.repo.AppendHistory(ctx, entry); err != nil {
		s.metrics.RecordHistoryWriteFailure()
		s.log.Warn(ctx, "rating history write failed", logger.String("subject_id", subjectID), logger.Error(err))
		result.HistoryRecorded = false
		result.Warning = "rating updated but history entry was not recorded"
	}

	s.log.Info(ctx, "rating updated",
		logger.String("subject_id", subjectID),
		logger.Int("old", update.OldRating),
		logger.Int("new", update.NewRating),
		logger.String("outcome", string(update.Outcome)),
	)
	return result, nil
}

// Current returns the subject's rating, or the baseline when none is stored.
func (s *Service) Current(ctx context.Context, subjectID string) (model.Record, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return model.Record{}, fmt.Errorf("subject id is required: %w", errs.ErrInvalidArgument)
	}
	return s.current(ctx, subjectID)
}

func (s *Service) current(ctx context.Context, subjectID string) (model.Record, error) {
	rec, ok, err := s.repo.Get(ctx, subjectID)
	if err != nil {
		return model.Record{}, fmt.Errorf("load rating for %s: %w", subjectID, err)
	}
	if !ok {
		return model.Record{SubjectID: subjectID, Rating: BaselineRating}, nil
	}
	return rec, nil
}

// History returns chronological points, capped to the most recent limit when limit > 0.
// Unknown subjects yield an empty slice.
func (s *Service) History(ctx context.Context, subjectID string, limit int) ([]model.HistoryPoint, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, fmt.Errorf("subject id is required: %w", errs.ErrInvalidArgument)
	}
	if limit < 0 {
		return nil, fmt.Errorf("limit %d must not be negative: %w", limit, errs.ErrInvalidArgument)
	}

	entries, err := s.repo.History(ctx, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", subjectID, err)
	}

	points := make([]model.HistoryPoint, 0, len(entries))
	for _, e := range entries {
		points = append(points, e.Point())
	}
	return points, nil
}

// Profile loads the current rating and recent history concurrently.
func (s *Service) Profile(ctx context.Context, subjectID string, limit int) (Profile, error) {
	if limit <= 0 {
		limit = defaultProfileSize
	}

	var (
		profile Profile
		eg      errgroup.Group
	)
	eg.Go(func() error {
		rec, err := s.Current(ctx, subjectID)
		profile.Record = rec
		return err
	})
	eg.Go(func() error {
		points, err := s.History(ctx, subjectID, limit)
		profile.History = points
		return err
	})
	if err := eg.Wait(); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// Leaderboard returns the top-rated subjects.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]model.Record, error) {
	if limit <= 0 || limit > maxLeaderboardSize {
		return nil, fmt.Errorf("limit must be between 1 and %d: %w", maxLeaderboardSize, errs.ErrInvalidArgument)
	}
	records, err := s.repo.Top(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	if records == nil {
		records = []model.Record{}
	}
	return records, nil
}
