package domain

import (
	"strings"
	"time"
)

// Conversation is an addressable chat thread, direct (two participants) or
// group (two or more, named). Fields are immutable after creation.
type Conversation struct {
	ID        string
	IsGroup   bool
	Name      string
	DirectKey string
	CreatedAt time.Time
}

// Participant links a user to a conversation. LastReadAt drives read-state
// and unread counts; nil means the user has never opened the conversation.
type Participant struct {
	ConversationID string
	UserID         string
	LastReadAt     *time.Time
	JoinedAt       time.Time
}

// DirectKey returns the canonical unordered-pair key for a direct
// conversation. The unique index on this key is what makes "at most one
// direct conversation per pair" hold under concurrent creation.
func DirectKey(userA, userB string) string {
	if strings.Compare(userA, userB) > 0 {
		userA, userB = userB, userA
	}
	return userA + ":" + userB
}

// StartDirectRequest opens (or finds) a direct conversation with a user.
type StartDirectRequest struct {
	TargetID string `json:"target_id" binding:"required"`
}

// CreateGroupRequest creates a named group conversation.
type CreateGroupRequest struct {
	Name      string   `json:"name" binding:"required"`
	MemberIDs []string `json:"member_ids" binding:"required,min=1"`
}

// ConversationResponse is a conversation in API responses.
type ConversationResponse struct {
	ID        string    `json:"id"`
	IsGroup   bool      `json:"is_group"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationSummary is a conversation-list entry: the conversation plus
// the other participant (direct only), last message, and unread count.
type ConversationSummary struct {
	ID          string           `json:"id"`
	IsGroup     bool             `json:"is_group"`
	Name        string           `json:"name,omitempty"`
	OtherUser   *ProfileResponse `json:"other_user,omitempty"`
	LastMessage *MessagePreview  `json:"last_message,omitempty"`
	UnreadCount int              `json:"unread_count"`
}

// MessagePreview is the truncated last-message view in conversation lists.
type MessagePreview struct {
	Content   string    `json:"content"`
	SenderID  string    `json:"sender_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ToResponse converts Conversation to ConversationResponse.
func (c *Conversation) ToResponse() ConversationResponse {
	return ConversationResponse{
		ID:        c.ID,
		IsGroup:   c.IsGroup,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
	}
}
