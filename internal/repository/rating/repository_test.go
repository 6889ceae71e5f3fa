package rating

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/zhouzirui/mockview/backend/internal/model/rating"
	ratingservice "github.com/zhouzirui/mockview/backend/internal/service/rating"
)

var (
	_ ratingservice.Repository = (*MemoryRepository)(nil)
	_ ratingservice.Repository = (*PostgresRepository)(nil)
)

func TestMemoryRepositoryGetMissing(t *testing.T) {
	repo := NewMemoryRepository()

	_, ok, err := repo.Get(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryRepositoryHistoryKeepsMostRecentInOrder(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.AppendHistory(ctx, model.HistoryEntry{
			SubjectID: "a@example.com",
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			NewRating: 1200 + i,
		}))
	}

	all, err := repo.History(ctx, "a@example.com", 0)
	require.NoError(t, err)
	require.Len(t, all, 5)

	recent, err := repo.History(ctx, "a@example.com", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 1203, recent[0].NewRating)
	assert.Equal(t, 1204, recent[1].NewRating)
	assert.True(t, recent[0].Timestamp.Before(recent[1].Timestamp))
}

func TestMemoryRepositoryHistoryUnknownSubjectIsEmpty(t *testing.T) {
	repo := NewMemoryRepository()

	entries, err := repo.History(context.Background(), "ghost", 10)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestMemoryRepositoryTopOrdersByRatingThenID(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, model.Record{SubjectID: "b", Rating: 1300}))
	require.NoError(t, repo.Save(ctx, model.Record{SubjectID: "a", Rating: 1300}))
	require.NoError(t, repo.Save(ctx, model.Record{SubjectID: "c", Rating: 1500}))

	top, err := repo.Top(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "c", top[0].SubjectID)
	assert.Equal(t, "a", top[1].SubjectID)
}

func TestHistoryRowRoundTrip(t *testing.T) {
	entry := model.HistoryEntry{
		SubjectID:  "a@example.com",
		Timestamp:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		OldRating:  1200,
		NewRating:  1224,
		Delta:      24,
		RawScore:   80,
		Difficulty: model.Medium,
		Category:   "backend",
		Outcome:    model.Win,
	}

	assert.Equal(t, entry, fromHistoryRow(toHistoryRow(entry)))
}
