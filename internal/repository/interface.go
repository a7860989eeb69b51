package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Ackberry/cinetune/internal/domain"
)

var (
	ErrProfileNotFound      = errors.New("profile not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrItemNotFound         = errors.New("library item not found")

	ErrEmailExists      = errors.New("email already registered")
	ErrUsernameExists   = errors.New("username already taken")
	ErrDirectKeyExists  = errors.New("direct conversation already exists for this pair")
	ErrItemAlreadySaved = errors.New("item already saved to library")
)

// ProfileRepository persists user profiles.
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
	GetByUsername(ctx context.Context, username string) (*domain.Profile, error)
	Update(ctx context.Context, profile *domain.Profile) error
	Search(ctx context.Context, query string, limit int) ([]domain.Profile, error)
	Recent(ctx context.Context, limit int) ([]domain.Profile, error)
}

// ConversationRepository persists conversations and their participant rows.
// Conversation and participant inserts are separate calls on purpose: the
// bootstrap sequence is a two-step with compensating rollback, not a
// transaction.
type ConversationRepository interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	GetByDirectKey(ctx context.Context, key string) (*domain.Conversation, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Conversation, error)

	AddParticipants(ctx context.Context, conversationID string, userIDs []string) error
	ConversationIDsForUser(ctx context.Context, userID string) ([]string, error)
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
	Participants(ctx context.Context, conversationID string) ([]domain.Participant, error)
	OtherParticipantProfile(ctx context.Context, conversationID, userID string) (*domain.Profile, error)
	OtherParticipantLastReadAt(ctx context.Context, conversationID, userID string) (*time.Time, error)
	MarkRead(ctx context.Context, conversationID, userID string, at time.Time) error
}

// MessageRepository persists messages. Insert also emits the INSERT change
// feed event; the feed is the sole path by which open sessions learn about
// new rows, including the sender's own.
type MessageRepository interface {
	Insert(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	ListByConversation(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)
	LastByConversations(ctx context.Context, conversationIDs []string) (map[string]domain.Message, error)
	UnreadCount(ctx context.Context, conversationID, userID string, since *time.Time) (int, error)
}

// LibraryRepository persists saved catalog items.
type LibraryRepository interface {
	Save(ctx context.Context, item *domain.LibraryItem) error
	ListByUser(ctx context.Context, userID string) ([]domain.LibraryItem, error)
	Delete(ctx context.Context, id, userID string) error
}
