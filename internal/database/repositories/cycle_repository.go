package repositories

import (
	"context"
	"errors"

	"github.com/lucsky/cuid"
	"gorm.io/gorm"

	"github.com/bbernstein/ledsectional/internal/database/models"
)

// DefaultCycleLimit is how many cycles FindRecent returns when no limit is given.
const DefaultCycleLimit = 20

// CycleRepository handles fetch cycle history.
type CycleRepository struct {
	db *gorm.DB
}

// NewCycleRepository creates a new CycleRepository.
func NewCycleRepository(db *gorm.DB) *CycleRepository {
	return &CycleRepository{db: db}
}

// Create records a fetch cycle.
func (r *CycleRepository) Create(ctx context.Context, cycle *models.FetchCycle) error {
	if cycle.ID == "" {
		cycle.ID = cuid.New()
	}
	return r.db.WithContext(ctx).Create(cycle).Error
}

// FindRecent returns the newest cycles first.
func (r *CycleRepository) FindRecent(ctx context.Context, limit int) ([]models.FetchCycle, error) {
	if limit <= 0 {
		limit = DefaultCycleLimit
	}
	var cycles []models.FetchCycle
	result := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&cycles)
	return cycles, result.Error
}

// Latest returns the newest cycle, or nil when none are recorded.
func (r *CycleRepository) Latest(ctx context.Context) (*models.FetchCycle, error) {
	var cycle models.FetchCycle
	result := r.db.WithContext(ctx).Order("started_at DESC").First(&cycle)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &cycle, nil
}

// Prune deletes all but the newest keep cycles and returns how many were removed.
func (r *CycleRepository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	keepIDs := r.db.Model(&models.FetchCycle{}).
		Select("id").
		Order("started_at DESC").
		Limit(keep)
	result := r.db.WithContext(ctx).
		Where("id NOT IN (?)", keepIDs).
		Delete(&models.FetchCycle{})
	return result.RowsAffected, result.Error
}

// Count returns the number of recorded cycles.
func (r *CycleRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.FetchCycle{}).Count(&count).Error
	return count, err
}
