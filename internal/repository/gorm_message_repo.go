package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Ackberry/cinetune/internal/domain"
	"github.com/Ackberry/cinetune/pkg/feed"
	"github.com/Ackberry/cinetune/pkg/log"
)

// GormMessageRepository implements MessageRepository using GORM. Inserts are
// published to the change feed after commit, which is how open sessions
// (including the sender's own) learn about new rows.
type GormMessageRepository struct {
	db        *gorm.DB
	publisher feed.Publisher
}

// NewGormMessageRepository creates a new GORM-based message repository.
func NewGormMessageRepository(db *gorm.DB, publisher feed.Publisher) *GormMessageRepository {
	return &GormMessageRepository{db: db, publisher: publisher}
}

// messageJoinRow is the flat scan target for message + sender profile joins.
// Sender columns are nullable: the profile row may be gone.
type messageJoinRow struct {
	ID                string
	ConversationID    string
	SenderID          string
	Content           string
	CreatedAt         time.Time
	SenderUsername    sql.NullString
	SenderDisplayName sql.NullString
}

// toDomain normalizes the join row: the sender profile becomes a single
// optional value here, at the boundary, so nothing downstream branches on
// join shape.
func (row *messageJoinRow) toDomain() domain.Message {
	msg := domain.Message{
		ID:             row.ID,
		ConversationID: row.ConversationID,
		SenderID:       row.SenderID,
		Content:        row.Content,
		CreatedAt:      row.CreatedAt,
	}
	if row.SenderUsername.Valid || row.SenderDisplayName.Valid {
		msg.Sender = &domain.SenderProfile{
			Username:    row.SenderUsername.String,
			DisplayName: row.SenderDisplayName.String,
		}
	}
	return msg
}

const messageJoinSelect = "messages.id, messages.conversation_id, messages.sender_id, messages.content, messages.created_at, " +
	"profiles.username AS sender_username, profiles.display_name AS sender_display_name"

// Insert persists a message and emits the INSERT feed event. Feed publish
// failures are logged, not returned: the row is committed and readers will
// pick it up on their next bootstrap.
func (r *GormMessageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	model := domain.MessageToModel(msg)
	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		return result.Error
	}
	msg.CreatedAt = model.CreatedAt

	event, err := feed.NewEvent(feed.TableMessages, feed.OpInsert, domain.MessageInsertRow{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	})
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).
			Str(log.FieldMessageID, msg.ID).
			Msg("failed to encode message insert event")
		return nil
	}

	if err := r.publisher.Publish(ctx, feed.MessagesChannel(msg.ConversationID), event); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).
			Str(log.FieldMessageID, msg.ID).
			Str(log.FieldConversationID, msg.ConversationID).
			Msg("failed to publish message insert event")
	}

	return nil
}

// GetByID retrieves one message with its sender profile joined. This is the
// re-fetch path used by live sessions after a feed event.
func (r *GormMessageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	var row messageJoinRow
	result := r.db.WithContext(ctx).Model(&domain.MessageModel{}).
		Select(messageJoinSelect).
		Joins("LEFT JOIN profiles ON profiles.id = messages.sender_id").
		Where("messages.id = ?", id).
		Take(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, result.Error
	}

	msg := row.toDomain()
	return &msg, nil
}

// ListByConversation returns up to limit of the most recent messages in a
// conversation, oldest first, each with its sender profile.
func (r *GormMessageRepository) ListByConversation(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	var rows []messageJoinRow
	result := r.db.WithContext(ctx).Model(&domain.MessageModel{}).
		Select(messageJoinSelect).
		Joins("LEFT JOIN profiles ON profiles.id = messages.sender_id").
		Where("messages.conversation_id = ?", conversationID).
		Order("messages.created_at DESC").
		Limit(limit).
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	// Fetched newest-first for the limit; reverse to ascending for display.
	messages := make([]domain.Message, len(rows))
	for i := range rows {
		messages[len(rows)-1-i] = rows[i].toDomain()
	}
	return messages, nil
}

// LastByConversations returns the newest message per conversation.
func (r *GormMessageRepository) LastByConversations(ctx context.Context, conversationIDs []string) (map[string]domain.Message, error) {
	if len(conversationIDs) == 0 {
		return map[string]domain.Message{}, nil
	}

	var models []domain.MessageModel
	result := r.db.WithContext(ctx).
		Where("conversation_id IN ?", conversationIDs).
		Order("created_at DESC").
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	last := make(map[string]domain.Message, len(conversationIDs))
	for _, model := range models {
		if _, ok := last[model.ConversationID]; !ok {
			last[model.ConversationID] = *model.ToDomain()
		}
	}
	return last, nil
}

// UnreadCount counts messages from other senders after the since mark. A nil
// since means the user has never opened the conversation.
func (r *GormMessageRepository) UnreadCount(ctx context.Context, conversationID, userID string, since *time.Time) (int, error) {
	query := r.db.WithContext(ctx).Model(&domain.MessageModel{}).
		Where("conversation_id = ? AND sender_id <> ?", conversationID, userID)
	if since != nil {
		query = query.Where("created_at > ?", *since)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}
