package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/Ackberry/cinetune/internal/domain"
)

// GormProfileRepository implements ProfileRepository using GORM.
type GormProfileRepository struct {
	db *gorm.DB
}

// NewGormProfileRepository creates a new GORM-based profile repository.
func NewGormProfileRepository(db *gorm.DB) *GormProfileRepository {
	return &GormProfileRepository{db: db}
}

// Create creates a new profile. The caller assigns the ID.
func (r *GormProfileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	model := domain.ProfileToModel(profile)
	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		return uniqueError(result.Error)
	}

	profile.CreatedAt = model.CreatedAt
	profile.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByID retrieves a profile by ID.
func (r *GormProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	var model domain.ProfileModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// GetByEmail retrieves a profile by email.
func (r *GormProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	var model domain.ProfileModel
	result := r.db.WithContext(ctx).First(&model, "email = ?", email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// GetByUsername retrieves a profile by username.
func (r *GormProfileRepository) GetByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	var model domain.ProfileModel
	result := r.db.WithContext(ctx).First(&model, "username = ?", username)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// Update updates the mutable profile fields.
func (r *GormProfileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	model := domain.ProfileToModel(profile)
	result := r.db.WithContext(ctx).Model(&domain.ProfileModel{}).
		Where("id = ?", profile.ID).
		Updates(map[string]interface{}{
			"username":     model.Username,
			"display_name": model.DisplayName,
			"avatar_url":   model.AvatarURL,
		})
	if result.Error != nil {
		return uniqueError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProfileNotFound
	}

	var updated domain.ProfileModel
	r.db.WithContext(ctx).First(&updated, "id = ?", profile.ID)
	profile.UpdatedAt = updated.UpdatedAt
	return nil
}

// Search finds profiles whose username or display name matches the query.
func (r *GormProfileRepository) Search(ctx context.Context, query string, limit int) ([]domain.Profile, error) {
	pattern := "%" + query + "%"

	var models []domain.ProfileModel
	result := r.db.WithContext(ctx).
		Where("username LIKE ? OR display_name LIKE ?", pattern, pattern).
		Order("created_at DESC").
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	return profilesToDomain(models), nil
}

// Recent lists the newest profiles, for the discover page default view.
func (r *GormProfileRepository) Recent(ctx context.Context, limit int) ([]domain.Profile, error) {
	var models []domain.ProfileModel
	result := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	return profilesToDomain(models), nil
}

func profilesToDomain(models []domain.ProfileModel) []domain.Profile {
	profiles := make([]domain.Profile, len(models))
	for i, model := range models {
		profiles[i] = *model.ToDomain()
	}
	return profiles
}

// uniqueError converts database-specific unique violations to domain errors.
func uniqueError(err error) error {
	errStr := err.Error()

	// PostgreSQL and SQLite unique constraint violations
	if strings.Contains(errStr, "duplicate key") || strings.Contains(errStr, "UNIQUE constraint") ||
		strings.Contains(errStr, "Duplicate entry") {
		switch {
		case strings.Contains(errStr, "email"):
			return ErrEmailExists
		case strings.Contains(errStr, "username"):
			return ErrUsernameExists
		case strings.Contains(errStr, "direct_key"):
			return ErrDirectKeyExists
		case strings.Contains(errStr, "idx_library_user_media"):
			return ErrItemAlreadySaved
		}
	}

	return err
}
