package interview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	model "github.com/zhouzirui/mockview/backend/internal/model/interview"
)

func TestSeedInstructionCarriesEveryDirective(t *testing.T) {
	seed := SeedInstruction(model.PersonaContext{
		Name:              "Maya Chen",
		Language:          "English",
		CompanyName:       "Acme",
		JobDescription:    "Build payment APIs in Go.",
		IntervieweeResume: "Five years at a fintech startup.",
	}, 7)

	for _, want := range []string{
		"introduce themselves",
		"one relevant follow-up",
		"resume",
		"company",
		Sentinel,
		"7 questions",
		"Maya Chen",
		"Build payment APIs in Go.",
		"Five years at a fintech startup.",
		"on behalf of Acme",
	} {
		assert.Contains(t, seed, want)
	}
}

func TestSeedInstructionOmitsEmptyFields(t *testing.T) {
	seed := SeedInstruction(model.PersonaContext{CompanyName: "Acme"}, 5)

	assert.NotContains(t, seed, "- Name:")
	assert.NotContains(t, seed, "- Age:")
	assert.NotContains(t, seed, "Candidate resume:")
	assert.NotContains(t, seed, "Conduct the whole interview in")
	assert.Equal(t, 1, strings.Count(seed, Sentinel))
}

func TestVisibleReply(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		want  string
	}{
		{"no sentinel", "What is a goroutine?", "What is a goroutine?"},
		{"trailing sentinel", "Thanks, that is all I needed. END OF INTERVIEW", "Thanks, that is all I needed."},
		{"sentinel with period", "Great talk. END OF INTERVIEW.", "Great talk."},
		{"sentinel only", "END OF INTERVIEW", ClosingStatement},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, VisibleReply(tc.reply))
		})
	}
}

func TestSentinelFilterAcrossChunks(t *testing.T) {
	var out []string
	f := &sentinelFilter{emit: func(s string) { out = append(out, s) }}

	for _, chunk := range []string{"Thanks for your time. E", "ND OF INTER", "VIEW"} {
		f.write(chunk)
	}
	f.flush()

	joined := strings.Join(out, "")
	assert.NotContains(t, joined, Sentinel)
	assert.Equal(t, "Thanks for your time. ", joined)
}

func TestSentinelFilterReleasesFalseStart(t *testing.T) {
	var out []string
	f := &sentinelFilter{emit: func(s string) { out = append(out, s) }}

	f.write("Tell me about your E")
	f.write("TL pipelines.")
	f.flush()

	assert.Equal(t, "Tell me about your ETL pipelines.", strings.Join(out, ""))
}
