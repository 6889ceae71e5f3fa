package performance

import (
	"math"
	"strings"
)

var keywordBuckets = map[Dimension][]string{
	Technical: {
		"api", "database", "index", "cache", "latency", "throughput", "concurrency", "goroutine",
		"thread", "algorithm", "complexity", "kubernetes", "docker", "sql", "queue", "microservice",
		"protocol", "memory", "profil", "benchmark", "test",
	},
	ProblemSolving: {
		"because", "trade-off", "tradeoff", "first", "then", "approach", "measure", "root cause",
		"debug", "hypothes", "alternative", "instead", "option", "constraint", "edge case",
	},
	ResumeStrength: {
		"project", "built", "shipped", "delivered", "launched", "designed", "implemented",
		"migrated", "reduced", "improved", "increased", "%",
	},
	Leadership: {
		"led", "lead", "mentor", "team", "owned", "ownership", "coordinated", "stakeholder",
		"hired", "onboard", "cross-functional", "decision",
	},
}

var hedges = []string{"maybe", "i think", "not sure", "i guess", "probably", "kind of", "sort of", "i don't know", "um", "uh"}

const (
	// words per answer treated as fully developed
	fullAnswerWords = 60.0
	// hits per answer treated as saturating a bucket
	saturationHits = 3.0
)

// Heuristic estimates a Score from the candidate's answers alone. It is deterministic and
// coarse; it stands in for the model scorer when none is configured.
func Heuristic(answers []string) Score {
	var (
		count int
		words float64
		hits  = make(map[Dimension]int)
		hedge int
	)

	for _, answer := range answers {
		normalized := strings.ToLower(strings.TrimSpace(answer))
		if normalized == "" {
			continue
		}
		count++
		words += float64(len(strings.Fields(normalized)))
		for dim, keywords := range keywordBuckets {
			for _, kw := range keywords {
				if strings.Contains(normalized, kw) {
					hits[dim]++
				}
			}
		}
		for _, h := range hedges {
			hedge += strings.Count(normalized, h)
		}
	}

	if count == 0 {
		return Score{}
	}

	perAnswer := func(dim Dimension) float64 {
		return math.Min(1, float64(hits[dim])/(saturationHits*float64(count)))
	}

	confidence := 0.8 - 0.15*float64(hedge)/float64(count)

	return Score{
		Technical:      perAnswer(Technical),
		Communication:  math.Min(1, words/float64(count)/fullAnswerWords),
		Confidence:     confidence,
		ProblemSolving: perAnswer(ProblemSolving),
		ResumeStrength: perAnswer(ResumeStrength),
		Leadership:     perAnswer(Leadership),
	}.Clamp()
}
