package persona

import "github.com/zhouzirui/mockview/backend/internal/model/interview"

// Persona is a predefined interviewer profile exposed to the frontend.
type Persona struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Age         string   `json:"age,omitempty"`
	Language    string   `json:"language"`
	Title       string   `json:"title"`
	Style       string   `json:"style"`
	Description string   `json:"description,omitempty"`
	Focus       []string `json:"focus,omitempty"` // 考察重点
}

func (p Persona) clone() Persona {
	p.Focus = append([]string(nil), p.Focus...)
	return p
}

// Context converts the preset into the session persona snapshot.
func (p Persona) Context() interview.PersonaContext {
	return interview.PersonaContext{
		Name:     p.Name,
		Age:      p.Age,
		Language: p.Language,
		Style:    p.Style,
	}
}

// Merge fills empty fields of ctx from the preset; explicit request values win.
func (p Persona) Merge(ctx interview.PersonaContext) interview.PersonaContext {
	base := p.Context()
	if ctx.Name == "" {
		ctx.Name = base.Name
	}
	if ctx.Age == "" {
		ctx.Age = base.Age
	}
	if ctx.Language == "" {
		ctx.Language = base.Language
	}
	if ctx.Style == "" {
		ctx.Style = base.Style
	}
	return ctx
}

// Seed provides the default interviewer presets.
func Seed() []Persona {
	return []Persona{
		{
			ID:          "staff-engineer",
			Name:        "Maya Chen",
			Age:         "38",
			Language:    "English",
			Title:       "Staff Software Engineer",
			Style:       "calm, precise, digs into technical depth and trade-offs",
			Description: "Runs the technical deep-dive round. Expects concrete examples and numbers.",
			Focus:       []string{"system design", "debugging", "code quality"},
		},
		{
			ID:          "hiring-manager",
			Name:        "Daniel Okafor",
			Age:         "45",
			Language:    "English",
			Title:       "Engineering Manager",
			Style:       "warm but probing, focuses on ownership, collaboration and impact",
			Description: "Runs the behavioural round. Follows up on team dynamics and decisions.",
			Focus:       []string{"leadership", "conflict", "delivery"},
		},
		{
			ID:          "startup-cto",
			Name:        "李婷",
			Age:         "34",
			Language:    "中文",
			Title:       "创业公司 CTO",
			Style:       "节奏快、直接，关注从零到一的实战经验与取舍",
			Description: "Fast-paced generalist round for early-stage teams.",
			Focus:       []string{"product sense", "breadth", "pragmatism"},
		},
	}
}
