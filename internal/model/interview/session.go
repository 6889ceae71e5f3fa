package interview

import (
	"time"
)

// Status is ACTIVE until a termination condition fires, then ENDED for good.
type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// PersonaContext is the interviewer configuration captured when a session is created.
// Every field is optional; at least one must be set.
type PersonaContext struct {
	Name              string `json:"name,omitempty"`
	Age               string `json:"age,omitempty"`
	Language          string `json:"language,omitempty"`
	CompanyName       string `json:"companyName,omitempty"`
	JobDescription    string `json:"jobDescription,omitempty"`
	IntervieweeResume string `json:"intervieweeResume,omitempty"`
	Style             string `json:"style,omitempty"`
}

// IsEmpty reports whether no field is set.
func (p PersonaContext) IsEmpty() bool {
	return p == PersonaContext{}
}

// Session is one interview conversation and its thread.
type Session struct {
	ID            string         `json:"id"`
	Persona       PersonaContext `json:"persona"`
	TurnCount     int            `json:"turnCount"`
	TurnThreshold int            `json:"turnThreshold"`
	Terminated    bool           `json:"terminated"`
	Evaluated     bool           `json:"evaluated"`
	Messages      []Message      `json:"messages"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Status derives the lifecycle state.
func (s Session) Status() Status {
	if s.Terminated {
		return StatusEnded
	}
	return StatusActive
}

// Clone copies the session so callers cannot mutate stored messages.
func (s Session) Clone() Session {
	s.Messages = append([]Message(nil), s.Messages...)
	return s
}

// Summary is the session without its thread.
type Summary struct {
	ID            string         `json:"id"`
	Persona       PersonaContext `json:"persona"`
	Status        Status         `json:"status"`
	TurnCount     int            `json:"turnCount"`
	TurnThreshold int            `json:"turnThreshold"`
	Evaluated     bool           `json:"evaluated"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Summary drops the message thread.
func (s Session) Summary() Summary {
	return Summary{
		ID:            s.ID,
		Persona:       s.Persona,
		Status:        s.Status(),
		TurnCount:     s.TurnCount,
		TurnThreshold: s.TurnThreshold,
		Evaluated:     s.Evaluated,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}
