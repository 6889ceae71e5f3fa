// Package performance holds the six-dimension interview score and a keyword heuristic
// used when no language model scorer is configured.
package performance

import (
	"fmt"
	"math"

	"github.com/zhouzirui/mockview/backend/internal/errs"
)

// Dimension names one scored aspect of an interview.
type Dimension string

const (
	Technical      Dimension = "technical"
	Communication  Dimension = "communication"
	Confidence     Dimension = "confidence"
	ProblemSolving Dimension = "problem_solving"
	ResumeStrength Dimension = "resume_strength"
	Leadership     Dimension = "leadership"
)

// Dimensions lists every dimension in reporting order.
var Dimensions = []Dimension{Technical, Communication, Confidence, ProblemSolving, ResumeStrength, Leadership}

// Score is one interview's performance, each dimension in [0,1].
type Score struct {
	Technical      float64 `json:"technical"`
	Communication  float64 `json:"communication"`
	Confidence     float64 `json:"confidence"`
	ProblemSolving float64 `json:"problem_solving"`
	ResumeStrength float64 `json:"resume_strength"`
	Leadership     float64 `json:"leadership"`
}

// Values returns the dimensions in the order of Dimensions.
func (s Score) Values() []float64 {
	return []float64{s.Technical, s.Communication, s.Confidence, s.ProblemSolving, s.ResumeStrength, s.Leadership}
}

// Validate rejects any dimension outside [0,1] or NaN.
func (s Score) Validate() error {
	for i, v := range s.Values() {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%s score %v outside [0,1]: %w", Dimensions[i], v, errs.ErrInvalidArgument)
		}
	}
	return nil
}

// Average is the unweighted mean of the six dimensions.
func (s Score) Average() float64 {
	var sum float64
	values := s.Values()
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Percent converts the average to the 0-100 scale the rating engine classifies.
func (s Score) Percent() (float64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	return s.Average() * 100, nil
}

// Clamp forces every dimension into [0,1]; NaN becomes 0.
func (s Score) Clamp() Score {
	c := func(v float64) float64 {
		switch {
		case math.IsNaN(v), v < 0:
			return 0
		case v > 1:
			return 1
		default:
			return v
		}
	}
	return Score{
		Technical:      c(s.Technical),
		Communication:  c(s.Communication),
		Confidence:     c(s.Confidence),
		ProblemSolving: c(s.ProblemSolving),
		ResumeStrength: c(s.ResumeStrength),
		Leadership:     c(s.Leadership),
	}
}
