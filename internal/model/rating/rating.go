package rating

import "time"

// Difficulty selects the benchmark rating an interview is scored against.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Outcome is the win/draw/loss classification of a 0-100 score.
type Outcome string

const (
	Win  Outcome = "win"
	Draw Outcome = "draw"
	Loss Outcome = "loss"
)

// Record is the current rating of one subject.
type Record struct {
	SubjectID string    `json:"subjectId"`
	Rating    int       `json:"rating"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HistoryEntry is one append-only line in a subject's rating log.
type HistoryEntry struct {
	SubjectID  string     `json:"subjectId"`
	Timestamp  time.Time  `json:"timestamp"`
	OldRating  int        `json:"oldRating"`
	NewRating  int        `json:"newRating"`
	Delta      int        `json:"delta"`
	RawScore   float64    `json:"rawScore"`
	Difficulty Difficulty `json:"difficulty"`
	Category   string     `json:"category"`
	Outcome    Outcome    `json:"outcome"`
}

// HistoryPoint is the chart-friendly projection of a HistoryEntry.
type HistoryPoint struct {
	Date   time.Time `json:"date"`
	Score  float64   `json:"score"`
	Rating int       `json:"rating"`
}

// Point projects the entry for history queries.
func (e HistoryEntry) Point() HistoryPoint {
	return HistoryPoint{Date: e.Timestamp, Score: e.RawScore, Rating: e.NewRating}
}
