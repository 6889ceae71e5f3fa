package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/mockview/backend/internal/errs"
	interview "github.com/zhouzirui/mockview/backend/internal/model/interview"
)

type cannedCompleter struct {
	content string
	err     error
	thread  []interview.Message
}

func (c *cannedCompleter) Generate(_ context.Context, thread []interview.Message) (string, error) {
	c.thread = thread
	return c.content, c.err
}

func TestScorerParsesJSON(t *testing.T) {
	completer := &cannedCompleter{content: "Here you go:\n```json\n" +
		`{"technical":0.8,"communication":0.7,"confidence":0.6,"problem_solving":0.9,"resume_strength":0.5,"leadership":0.4}` +
		"\n```"}
	scorer := NewScorer(completer)

	score, err := scorer.Score(context.Background(), interview.PersonaContext{CompanyName: "Acme"}, sampleThread())
	require.NoError(t, err)
	assert.InDelta(t, 0.8, score.Technical, 1e-9)
	assert.InDelta(t, 0.4, score.Leadership, 1e-9)

	require.Len(t, completer.thread, 2)
	request := completer.thread[1].Content
	assert.Contains(t, request, "Company: Acme")
	assert.Contains(t, request, "Candidate: hi")
	assert.Contains(t, request, "Interviewer: Hello! Please introduce yourself.")
	assert.NotContains(t, request, "on behalf of Acme", "seed instruction must not leak into the transcript")
}

func TestScorerFailures(t *testing.T) {
	ctx := context.Background()

	_, err := NewScorer(&cannedCompleter{err: errors.New("timeout")}).Score(ctx, interview.PersonaContext{}, nil)
	assert.ErrorContains(t, err, "timeout")

	_, err = NewScorer(&cannedCompleter{content: "   "}).Score(ctx, interview.PersonaContext{}, nil)
	assert.Error(t, err)

	_, err = NewScorer(&cannedCompleter{content: "no json here"}).Score(ctx, interview.PersonaContext{}, nil)
	assert.Error(t, err)

	_, err = NewScorer(&cannedCompleter{content: `{"technical": 7}`}).Score(ctx, interview.PersonaContext{}, nil)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestScorerRejectsMissingDimension(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name    string
		content string
		missing string
	}{
		{
			name:    "absent key",
			content: `{"technical":0.9,"communication":0.9,"confidence":0.9,"problem_solving":0.9,"resume_strength":0.9}`,
			missing: "leadership",
		},
		{
			name:    "null value",
			content: `{"technical":0.9,"communication":null,"confidence":0.9,"problem_solving":0.9,"resume_strength":0.9,"leadership":0.9}`,
			missing: "communication",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewScorer(&cannedCompleter{content: tc.content}).Score(ctx, interview.PersonaContext{}, nil)
			assert.ErrorIs(t, err, errs.ErrInvalidArgument)
			assert.ErrorContains(t, err, tc.missing)
		})
	}
}

func TestScorerIgnoresExtraKeys(t *testing.T) {
	content := `{"technical":0.5,"communication":0.5,"confidence":0.5,"problem_solving":0.5,"resume_strength":0.5,"leadership":0.5,"comment":"solid"}`
	score, err := NewScorer(&cannedCompleter{content: content}).Score(context.Background(), interview.PersonaContext{}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, score.Average(), 1e-9)
}
