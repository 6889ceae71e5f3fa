package rating

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	model "github.com/zhouzirui/mockview/backend/internal/model/rating"
)

type ratingRow struct {
	SubjectID string    `gorm:"primaryKey;size:255"`
	Rating    int       `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (ratingRow) TableName() string { return "ratings" }

type historyRow struct {
	ID         uint      `gorm:"primaryKey"`
	SubjectID  string    `gorm:"size:255;not null;index:idx_history_subject_time,priority:1"`
	RecordedAt time.Time `gorm:"not null;index:idx_history_subject_time,priority:2"`
	OldRating  int       `gorm:"not null"`
	NewRating  int       `gorm:"not null"`
	Delta      int       `gorm:"not null"`
	RawScore   float64   `gorm:"not null"`
	Difficulty string    `gorm:"size:16;not null"`
	Category   string    `gorm:"size:64;not null"`
	Outcome    string    `gorm:"size:8;not null"`
}

func (historyRow) TableName() string { return "rating_history" }

// Migrate creates or updates the rating tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&ratingRow{}, &historyRow{}); err != nil {
		return fmt.Errorf("failed to migrate rating tables: %w", err)
	}
	return nil
}

// PostgresRepository stores ratings through GORM.
type PostgresRepository struct {
	db *gorm.DB
}

// NewPostgresRepository wraps db.
func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, subjectID string) (model.Record, bool, error) {
	var row ratingRow
	err := r.db.WithContext(ctx).Where("subject_id = ?", subjectID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Record{}, false, nil
	}
	if err != nil {
		return model.Record{}, false, fmt.Errorf("failed to find rating: %w", err)
	}
	return model.Record{SubjectID: row.SubjectID, Rating: row.Rating, UpdatedAt: row.UpdatedAt}, true, nil
}

func (r *PostgresRepository) Save(ctx context.Context, rec model.Record) error {
	row := ratingRow{SubjectID: rec.SubjectID, Rating: rec.Rating, UpdatedAt: rec.UpdatedAt}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save rating: %w", err)
	}
	return nil
}

func (r *PostgresRepository) AppendHistory(ctx context.Context, entry model.HistoryEntry) error {
	row := toHistoryRow(entry)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to append rating history: %w", err)
	}
	return nil
}

func (r *PostgresRepository) History(ctx context.Context, subjectID string, limit int) ([]model.HistoryEntry, error) {
	var rows []historyRow
	q := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("recorded_at DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list rating history: %w", err)
	}

	// newest-first from the query; callers want oldest first
	out := make([]model.HistoryEntry, len(rows))
	for i, row := range rows {
		out[len(rows)-1-i] = fromHistoryRow(row)
	}
	return out, nil
}

func (r *PostgresRepository) Top(ctx context.Context, limit int) ([]model.Record, error) {
	var rows []ratingRow
	q := r.db.WithContext(ctx).Order("rating DESC").Order("subject_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list top ratings: %w", err)
	}

	out := make([]model.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.Record{SubjectID: row.SubjectID, Rating: row.Rating, UpdatedAt: row.UpdatedAt})
	}
	return out, nil
}

func toHistoryRow(e model.HistoryEntry) historyRow {
	return historyRow{
		SubjectID:  e.SubjectID,
		RecordedAt: e.Timestamp,
		OldRating:  e.OldRating,
		NewRating:  e.NewRating,
		Delta:      e.Delta,
		RawScore:   e.RawScore,
		Difficulty: string(e.Difficulty),
		Category:   e.Category,
		Outcome:    string(e.Outcome),
	}
}

func fromHistoryRow(row historyRow) model.HistoryEntry {
	return model.HistoryEntry{
		SubjectID:  row.SubjectID,
		Timestamp:  row.RecordedAt,
		OldRating:  row.OldRating,
		NewRating:  row.NewRating,
		Delta:      row.Delta,
		RawScore:   row.RawScore,
		Difficulty: model.Difficulty(row.Difficulty),
		Category:   row.Category,
		Outcome:    model.Outcome(row.Outcome),
	}
}
