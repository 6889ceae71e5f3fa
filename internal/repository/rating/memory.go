// Package rating stores rating records and history.
package rating

import (
	"context"
	"sort"
	"sync"

	model "github.com/zhouzirui/mockview/backend/internal/model/rating"
)

// MemoryRepository keeps ratings in process memory. Used when no database is configured.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]model.Record
	history map[string][]model.HistoryEntry
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]model.Record),
		history: make(map[string][]model.HistoryEntry),
	}
}

func (r *MemoryRepository) Get(_ context.Context, subjectID string) (model.Record, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[subjectID]
	return rec, ok, nil
}

func (r *MemoryRepository) Save(_ context.Context, rec model.Record) error {
	r.mu.Lock()
	r.records[rec.SubjectID] = rec
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) AppendHistory(_ context.Context, entry model.HistoryEntry) error {
	r.mu.Lock()
	r.history[entry.SubjectID] = append(r.history[entry.SubjectID], entry)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) History(_ context.Context, subjectID string, limit int) ([]model.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.history[subjectID]
	start := 0
	if limit > 0 && len(entries) > limit {
		start = len(entries) - limit
	}
	out := make([]model.HistoryEntry, len(entries)-start)
	copy(out, entries[start:])
	return out, nil
}

func (r *MemoryRepository) Top(_ context.Context, limit int) ([]model.Record, error) {
	r.mu.RLock()
	out := make([]model.Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].SubjectID < out[j].SubjectID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
