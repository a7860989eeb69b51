package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Ackberry/cinetune/internal/domain"
)

// GormConversationRepository implements ConversationRepository using GORM.
type GormConversationRepository struct {
	db *gorm.DB
}

// NewGormConversationRepository creates a new GORM-based conversation repository.
func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{db: db}
}

// Create inserts the conversation row only. Participant rows are a separate
// insert so the bootstrap rollback semantics stay observable.
func (r *GormConversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	model := domain.ConversationToModel(conv)
	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		return uniqueError(result.Error)
	}

	conv.CreatedAt = model.CreatedAt
	return nil
}

// Delete removes a conversation row and its participant rows. Used as the
// compensating action when participant insertion fails.
func (r *GormConversationRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).
		Delete(&domain.ParticipantModel{}, "conversation_id = ?", id).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Delete(&domain.ConversationModel{}, "id = ?", id).Error
}

// GetByID retrieves a conversation by ID.
func (r *GormConversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var model domain.ConversationModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// GetByDirectKey retrieves the direct conversation for an unordered pair key.
func (r *GormConversationRepository) GetByDirectKey(ctx context.Context, key string) (*domain.Conversation, error) {
	var model domain.ConversationModel
	result := r.db.WithContext(ctx).First(&model, "direct_key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// ListByIDs retrieves conversations by ID set.
func (r *GormConversationRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Conversation, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var models []domain.ConversationModel
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	conversations := make([]domain.Conversation, len(models))
	for i, model := range models {
		conversations[i] = *model.ToDomain()
	}
	return conversations, nil
}

// AddParticipants inserts participant rows for all user IDs in one batch.
func (r *GormConversationRepository) AddParticipants(ctx context.Context, conversationID string, userIDs []string) error {
	models := make([]domain.ParticipantModel, len(userIDs))
	for i, userID := range userIDs {
		models[i] = domain.ParticipantModel{
			ConversationID: conversationID,
			UserID:         userID,
		}
	}
	return r.db.WithContext(ctx).Create(&models).Error
}

// ConversationIDsForUser lists the conversation IDs a user participates in.
func (r *GormConversationRepository) ConversationIDsForUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	result := r.db.WithContext(ctx).Model(&domain.ParticipantModel{}).
		Where("user_id = ?", userID).
		Pluck("conversation_id", &ids)
	if result.Error != nil {
		return nil, result.Error
	}
	return ids, nil
}

// IsParticipant reports whether the user belongs to the conversation.
func (r *GormConversationRepository) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&domain.ParticipantModel{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// Participants lists the participant rows of a conversation.
func (r *GormConversationRepository) Participants(ctx context.Context, conversationID string) ([]domain.Participant, error) {
	var models []domain.ParticipantModel
	result := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	participants := make([]domain.Participant, len(models))
	for i, model := range models {
		participants[i] = *model.ToDomain()
	}
	return participants, nil
}

// OtherParticipantProfile returns the profile of the participant that is not
// the given user. Meaningful for direct conversations; for groups it returns
// an arbitrary other member.
func (r *GormConversationRepository) OtherParticipantProfile(ctx context.Context, conversationID, userID string) (*domain.Profile, error) {
	var model domain.ProfileModel
	result := r.db.WithContext(ctx).
		Joins("JOIN conversation_participants ON conversation_participants.user_id = profiles.id").
		Where("conversation_participants.conversation_id = ? AND conversation_participants.user_id <> ?",
			conversationID, userID).
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// OtherParticipantLastReadAt returns the other participant's last_read_at,
// the input of the direct-conversation read label.
func (r *GormConversationRepository) OtherParticipantLastReadAt(ctx context.Context, conversationID, userID string) (*time.Time, error) {
	var model domain.ParticipantModel
	result := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id <> ?", conversationID, userID).
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, result.Error
	}
	return model.LastReadAt, nil
}

// MarkRead sets the user's last_read_at for the conversation.
func (r *GormConversationRepository) MarkRead(ctx context.Context, conversationID, userID string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&domain.ParticipantModel{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("last_read_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConversationNotFound
	}
	return nil
}
