package interview

import (
	"fmt"
	"regexp"
	"strings"

	model "github.com/zhouzirui/mockview/backend/internal/model/interview"
)

// Sentinel is the phrase the interviewer model emits when it decides the interview is over.
const Sentinel = "END OF INTERVIEW"

// ClosingStatement is returned by End. It never goes through the model.
const ClosingStatement = "Thank you for your time today. That concludes our interview, and you will receive feedback on your performance shortly."

// ContainsSentinel reports whether a model reply asks to end the interview.
func ContainsSentinel(reply string) bool {
	return strings.Contains(reply, Sentinel)
}

var sentinelPattern = regexp.MustCompile(`\s*` + regexp.QuoteMeta(Sentinel) + `[.!]?`)

// VisibleReply is the reply as shown to the candidate: the sentinel is dropped, and a reply
// that was nothing but the sentinel becomes the closing statement.
func VisibleReply(reply string) string {
	if !ContainsSentinel(reply) {
		return reply
	}
	cleaned := strings.TrimSpace(sentinelPattern.ReplaceAllString(reply, ""))
	if cleaned == "" {
		return ClosingStatement
	}
	return cleaned
}

// sentinelFilter forwards streamed chunks without the sentinel. A tail that could be the
// start of the sentinel is held back until the next chunk settles it.
type sentinelFilter struct {
	emit    func(string)
	pending string
}

func (f *sentinelFilter) write(chunk string) {
	f.pending = strings.ReplaceAll(f.pending+chunk, Sentinel, "")
	cut := len(f.pending) - partialSentinel(f.pending)
	out := f.pending[:cut]
	f.pending = f.pending[cut:]
	if out != "" {
		f.emit(out)
	}
}

func (f *sentinelFilter) flush() {
	if f.pending != "" {
		f.emit(f.pending)
		f.pending = ""
	}
}

// partialSentinel returns the length of the longest suffix of s that is a proper prefix of
// the sentinel.
func partialSentinel(s string) int {
	for n := min(len(s), len(Sentinel)-1); n > 0; n-- {
		if strings.HasSuffix(s, Sentinel[:n]) {
			return n
		}
	}
	return 0
}

// IsTerminated is the termination predicate: an explicit sentinel, or the turn ceiling.
func IsTerminated(reply string, turnCount, threshold int) bool {
	return ContainsSentinel(reply) || turnCount >= threshold
}

// SeedInstruction builds the system message that opens every session thread.
func SeedInstruction(p model.PersonaContext, threshold int) string {
	var b strings.Builder

	b.WriteString("You are conducting a job interview")
	if p.CompanyName != "" {
		fmt.Fprintf(&b, " on behalf of %s", p.CompanyName)
	}
	b.WriteString(".\n\nInterviewer profile:\n")
	writeField(&b, "Name", p.Name)
	writeField(&b, "Age", p.Age)
	writeField(&b, "Language", p.Language)
	writeField(&b, "Company", p.CompanyName)
	writeField(&b, "Interviewing style", p.Style)

	if p.JobDescription != "" {
		b.WriteString("\nJob description:\n")
		b.WriteString(p.JobDescription)
		b.WriteString("\n")
	}
	if p.IntervieweeResume != "" {
		b.WriteString("\nCandidate resume:\n")
		b.WriteString(p.IntervieweeResume)
		b.WriteString("\n")
	}

	b.WriteString("\nRules:\n")
	b.WriteString("1. Begin by greeting the candidate and asking them to introduce themselves.\n")
	b.WriteString("2. After each candidate answer, ask exactly one relevant follow-up question.\n")
	b.WriteString("3. Base every question on the candidate's resume, the company, the job description and the flow of the conversation so far.\n")
	fmt.Fprintf(&b, "4. When the interview reaches a natural stopping point, reply with the exact phrase %q.\n", Sentinel)
	fmt.Fprintf(&b, "5. The interview is limited to %d questions; pace yourself so it can finish within that limit.\n", threshold)
	if p.Language != "" {
		fmt.Fprintf(&b, "\nConduct the whole interview in %s.", p.Language)
	}
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, value)
}
