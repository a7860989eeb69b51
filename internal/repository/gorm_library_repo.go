package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Ackberry/cinetune/internal/domain"
)

// GormLibraryRepository implements LibraryRepository using GORM.
type GormLibraryRepository struct {
	db *gorm.DB
}

// NewGormLibraryRepository creates a new GORM-based library repository.
func NewGormLibraryRepository(db *gorm.DB) *GormLibraryRepository {
	return &GormLibraryRepository{db: db}
}

// Save persists a library item. Re-saving the same catalog item for the same
// user hits the unique index and maps to ErrItemAlreadySaved.
func (r *GormLibraryRepository) Save(ctx context.Context, item *domain.LibraryItem) error {
	model := domain.LibraryItemToModel(item)
	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		return uniqueError(result.Error)
	}
	item.CreatedAt = model.CreatedAt
	return nil
}

// ListByUser returns the user's saved items, newest first.
func (r *GormLibraryRepository) ListByUser(ctx context.Context, userID string) ([]domain.LibraryItem, error) {
	var models []domain.LibraryItemModel
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	items := make([]domain.LibraryItem, len(models))
	for i := range models {
		items[i] = *models[i].ToDomain()
	}
	return items, nil
}

// Delete removes an item. The user filter is the ownership check: removing
// someone else's item reports not found.
func (r *GormLibraryRepository) Delete(ctx context.Context, id, userID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.LibraryItemModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}
