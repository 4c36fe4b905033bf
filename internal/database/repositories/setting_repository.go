package repositories

import (
	"context"
	"errors"
	"strconv"

	"github.com/lucsky/cuid"
	"gorm.io/gorm"

	"github.com/bbernstein/ledsectional/internal/database/models"
)

// SettingRepository handles setting data access.
type SettingRepository struct {
	db *gorm.DB
}

// NewSettingRepository creates a new SettingRepository.
func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// FindAll returns all settings.
func (r *SettingRepository) FindAll(ctx context.Context) ([]models.Setting, error) {
	var settings []models.Setting
	result := r.db.WithContext(ctx).
		Order("key ASC").
		Find(&settings)
	return settings, result.Error
}

// FindByKey returns a setting by key, or nil when it is not stored.
func (r *SettingRepository) FindByKey(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting
	result := r.db.WithContext(ctx).First(&setting, "key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &setting, nil
}

// GetString returns the stored value for key and whether it exists.
func (r *SettingRepository) GetString(ctx context.Context, key string) (string, bool, error) {
	setting, err := r.FindByKey(ctx, key)
	if err != nil || setting == nil {
		return "", false, err
	}
	return setting.Value, true, nil
}

// GetInt returns the stored integer for key. Missing or non-numeric values
// report false.
func (r *SettingRepository) GetInt(ctx context.Context, key string) (int, bool, error) {
	value, ok, err := r.GetString(ctx, key)
	if err != nil || !ok {
		return 0, false, err
	}
	n, convErr := strconv.Atoi(value)
	if convErr != nil {
		return 0, false, nil
	}
	return n, true, nil
}

// Upsert creates or updates a setting by key.
func (r *SettingRepository) Upsert(ctx context.Context, key, value string) (*models.Setting, error) {
	var setting models.Setting

	result := r.db.WithContext(ctx).First(&setting, "key = ?", key)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		setting = models.Setting{
			ID:    cuid.New(),
			Key:   key,
			Value: value,
		}
		if err := r.db.WithContext(ctx).Create(&setting).Error; err != nil {
			return nil, err
		}
		return &setting, nil
	} else if result.Error != nil {
		return nil, result.Error
	}

	setting.Value = value
	if err := r.db.WithContext(ctx).Save(&setting).Error; err != nil {
		return nil, err
	}

	return &setting, nil
}

// SetInt stores an integer setting.
func (r *SettingRepository) SetInt(ctx context.Context, key string, value int) error {
	_, err := r.Upsert(ctx, key, strconv.Itoa(value))
	return err
}

// Delete deletes a setting by key.
func (r *SettingRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Delete(&models.Setting{}, "key = ?", key).Error
}
