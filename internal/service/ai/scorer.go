package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/zhouzirui/mockview/backend/internal/analysis/performance"
	"github.com/zhouzirui/mockview/backend/internal/errs"
	interview "github.com/zhouzirui/mockview/backend/internal/model/interview"
	"github.com/zhouzirui/mockview/backend/pkg/logger"
)

// Completer is any backend that answers a message thread; both Service and GeminiService
// qualify.
type Completer interface {
	Generate(ctx context.Context, thread []interview.Message) (string, error)
}

// Scorer asks a language model to grade a finished interview on the six dimensions.
type Scorer struct {
	completer Completer
	log       logger.Logger
}

// NewScorer wraps completer.
func NewScorer(completer Completer) *Scorer {
	return &Scorer{completer: completer, log: logger.Named("scorer")}
}

// Score grades the transcript. Model or parse failures are returned, not guessed around.
func (s *Scorer) Score(ctx context.Context, persona interview.PersonaContext, transcript []interview.Message) (performance.Score, error) {
	thread := []interview.Message{
		{Role: interview.RoleSystem, Content: scoringSystemPrompt},
		{Role: interview.RoleCandidate, Content: buildScoringRequest(persona, transcript)},
	}

	content, err := s.completer.Generate(ctx, thread)
	if err != nil {
		return performance.Score{}, fmt.Errorf("scoring model call failed: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return performance.Score{}, errors.New("scoring model returned empty output")
	}

	score, err := parseScorerOutput(content)
	if err != nil {
		s.log.Warn(ctx, "scorer output parse failed", logger.Error(err))
		return performance.Score{}, err
	}
	return score, nil
}

// parseScorerOutput extracts the first JSON object in content and validates it.
func parseScorerOutput(content string) (performance.Score, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return performance.Score{}, errors.New("missing json object in scorer output")
	}

	obj := []byte(trimmed[start : end+1])

	// an absent dimension would otherwise decode as 0 and drag the average down
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(obj, &fields); err != nil {
		return performance.Score{}, fmt.Errorf("decode scorer output: %w", err)
	}
	var missing []string
	for _, d := range performance.Dimensions {
		if v, ok := fields[string(d)]; !ok || string(v) == "null" {
			missing = append(missing, string(d))
		}
	}
	if len(missing) > 0 {
		return performance.Score{}, fmt.Errorf("scorer output is missing %s: %w", strings.Join(missing, ", "), errs.ErrInvalidArgument)
	}

	var score performance.Score
	if err := json.Unmarshal(obj, &score); err != nil {
		return performance.Score{}, fmt.Errorf("decode scorer output: %w", err)
	}
	if err := score.Validate(); err != nil {
		return performance.Score{}, err
	}
	return score, nil
}

func buildScoringRequest(p interview.PersonaContext, transcript []interview.Message) string {
	var b strings.Builder
	b.WriteString("Position context:\n")
	if p.CompanyName != "" {
		fmt.Fprintf(&b, "- Company: %s\n", p.CompanyName)
	}
	if p.JobDescription != "" {
		fmt.Fprintf(&b, "- Job description: %s\n", p.JobDescription)
	}
	if p.IntervieweeResume != "" {
		fmt.Fprintf(&b, "- Candidate resume: %s\n", p.IntervieweeResume)
	}

	b.WriteString("\nTranscript:\n")
	for _, msg := range transcript {
		content := strings.TrimSpace(msg.Content)
		if content == "" || msg.Role == interview.RoleSystem {
			continue
		}
		role := "Candidate"
		if msg.Role == interview.RoleAssistant {
			role = "Interviewer"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(content)
		b.WriteString("\n")
	}
	b.WriteString("\nReturn the JSON now.")
	return b.String()
}

const scoringSystemPrompt = "You grade mock job interviews. Read the position context and the transcript, then rate the candidate " +
	"on six dimensions, each a number between 0 and 1: technical, communication, confidence, problem_solving, " +
	"resume_strength, leadership. Output exactly one JSON object with those six keys and nothing else."
