package persona

import (
	"fmt"

	"github.com/zhouzirui/mockview/backend/internal/errs"
	"github.com/zhouzirui/mockview/backend/internal/model/interview"
)

// Store looks up interviewer presets.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
	// Resolve fills the empty fields of explicit from preset id. An empty id returns explicit
	// unchanged; an unknown id is an invalid argument.
	Resolve(id string, explicit interview.PersonaContext) (interview.PersonaContext, error)
}

// MemoryStore indexes presets by id and lists them in the order they were given.
// A later preset with a repeated id replaces the earlier one.
type MemoryStore struct {
	order []string
	byID  map[string]Persona
}

// NewMemoryStore copies items into a new store.
func NewMemoryStore(items []Persona) *MemoryStore {
	s := &MemoryStore{byID: make(map[string]Persona, len(items))}
	for _, p := range items {
		if _, dup := s.byID[p.ID]; !dup {
			s.order = append(s.order, p.ID)
		}
		s.byID[p.ID] = p.clone()
	}
	return s
}

func (s *MemoryStore) List() []Persona {
	out := make([]Persona, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].clone())
	}
	return out
}

func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	p, ok := s.byID[id]
	if !ok {
		return Persona{}, false
	}
	return p.clone(), true
}

func (s *MemoryStore) Resolve(id string, explicit interview.PersonaContext) (interview.PersonaContext, error) {
	if id == "" {
		return explicit, nil
	}
	p, ok := s.byID[id]
	if !ok {
		return interview.PersonaContext{}, fmt.Errorf("interviewer preset %q not found: %w", id, errs.ErrInvalidArgument)
	}
	return p.Merge(explicit), nil
}
