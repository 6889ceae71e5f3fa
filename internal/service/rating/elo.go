// Package rating applies ELO-style rating updates from interview scores.
package rating

import (
	"fmt"
	"math"
	"strings"

	"github.com/zhouzirui/mockview/backend/internal/errs"
	model "github.com/zhouzirui/mockview/backend/internal/model/rating"
)

const (
	// BaselineRating is assumed for subjects that have never been rated.
	BaselineRating = 1200

	highRatedThreshold = 1500
	lowRatedThreshold  = 1000

	kHighRated = 16
	kDefault   = 32
	kLowRated  = 40

	winThreshold  = 75.0
	drawThreshold = 50.0

	maxScore = 100.0
)

var benchmarks = map[model.Difficulty]int{
	model.Easy:   1000,
	model.Medium: 1400,
	model.Hard:   1800,
}

// ParseDifficulty normalizes raw input; anything other than easy/medium/hard is rejected.
func ParseDifficulty(raw string) (model.Difficulty, error) {
	d := model.Difficulty(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := benchmarks[d]; !ok {
		return "", fmt.Errorf("difficulty %q must be easy, medium or hard: %w", raw, errs.ErrInvalidArgument)
	}
	return d, nil
}

// Benchmark returns the opponent rating for a difficulty tier.
func Benchmark(d model.Difficulty) (int, error) {
	b, ok := benchmarks[d]
	if !ok {
		return 0, fmt.Errorf("difficulty %q must be easy, medium or hard: %w", d, errs.ErrInvalidArgument)
	}
	return b, nil
}

// KFactor is smaller for high ratings and larger for low ones.
func KFactor(current int) int {
	switch {
	case current > highRatedThreshold:
		return kHighRated
	case current < lowRatedThreshold:
		return kLowRated
	default:
		return kDefault
	}
}

// Classify maps a 0-100 score to an outcome and its numeric value.
func Classify(score float64) (model.Outcome, float64) {
	switch {
	case score >= winThreshold:
		return model.Win, 1.0
	case score >= drawThreshold:
		return model.Draw, 0.5
	default:
		return model.Loss, 0.0
	}
}

// Expected is the logistic win expectation of current against benchmark.
func Expected(current, benchmark int) float64 {
	return 1 / (1 + math.Pow(10, float64(benchmark-current)/400))
}

// Update is the result of one pure rating computation.
type Update struct {
	OldRating  int
	NewRating  int
	Delta      int
	K          int
	Benchmark  int
	Expected   float64
	Outcome    model.Outcome
	Score      float64
	Difficulty model.Difficulty
}

// Compute applies one rating step. It has no side effects.
func Compute(current int, score float64, d model.Difficulty) (Update, error) {
	if math.IsNaN(score) || score < 0 || score > maxScore {
		return Update{}, fmt.Errorf("score %v outside [0,100]: %w", score, errs.ErrInvalidArgument)
	}
	benchmark, err := Benchmark(d)
	if err != nil {
		return Update{}, err
	}

	k := KFactor(current)
	outcome, value := Classify(score)
	expected := Expected(current, benchmark)
	next := int(math.Round(float64(current) + float64(k)*(value-expected)))

	return Update{
		OldRating:  current,
		NewRating:  next,
		Delta:      next - current,
		K:          k,
		Benchmark:  benchmark,
		Expected:   expected,
		Outcome:    outcome,
		Score:      score,
		Difficulty: d,
	}, nil
}

// UpdateRating returns only the new rating.
func UpdateRating(current int, score float64, d model.Difficulty) (int, error) {
	u, err := Compute(current, score, d)
	if err != nil {
		return 0, err
	}
	return u.NewRating, nil
}
