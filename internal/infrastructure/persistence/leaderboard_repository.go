package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sellerboard/backend/internal/domain/leaderboard"
	"github.com/sellerboard/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormLeaderboardRepository implements leaderboard.Repository using GORM
type GormLeaderboardRepository struct {
	db    *gorm.DB
	table string
}

// LeaderboardRepositoryOption configures a GormLeaderboardRepository
type LeaderboardRepositoryOption func(*GormLeaderboardRepository)

// WithLeaderboardTable reads from a table other than "leaderboard".
// The name must already be validated as an identifier.
func WithLeaderboardTable(table string) LeaderboardRepositoryOption {
	return func(r *GormLeaderboardRepository) {
		if table != "" {
			r.table = table
		}
	}
}

// NewGormLeaderboardRepository creates a new GormLeaderboardRepository
func NewGormLeaderboardRepository(db *gorm.DB, opts ...LeaderboardRepositoryOption) *GormLeaderboardRepository {
	r := &GormLeaderboardRepository{
		db:    db,
		table: models.LeaderboardModel{}.TableName(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FindAllOrderedByRank selects every row ordered by rank ascending.
// Rows with equal rank come back in whatever order the database returns them.
func (r *GormLeaderboardRepository) FindAllOrderedByRank(ctx context.Context) ([]leaderboard.Entry, error) {
	var rows []models.LeaderboardModel
	if err := r.db.WithContext(ctx).
		Table(r.table).
		Order("rank ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]leaderboard.Entry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, nil
}

// FindByProfileID returns the row of one seller
func (r *GormLeaderboardRepository) FindByProfileID(ctx context.Context, profileID uuid.UUID) (*leaderboard.Entry, error) {
	var row models.LeaderboardModel
	if err := r.db.WithContext(ctx).
		Table(r.table).
		Where("profile_id = ?", profileID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, leaderboard.ErrEntryNotFound
		}
		return nil, err
	}

	entry := row.ToDomain()
	return &entry, nil
}

// Ensure GormLeaderboardRepository implements leaderboard.Repository
var _ leaderboard.Repository = (*GormLeaderboardRepository)(nil)
