package domain

import "time"

// SenderProfile is the joined display data attached to a message. It is
// normalized at the repository boundary: a message either carries one sender
// profile or none, never a list.
type SenderProfile struct {
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Message is one chat message. Messages are append-only and immutable;
// CreatedAt is assigned by the server and used for ordering.
type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	SenderID       string         `json:"sender_id"`
	Content        string         `json:"content"`
	CreatedAt      time.Time      `json:"created_at"`
	Sender         *SenderProfile `json:"sender,omitempty"`
}

// SendMessageRequest carries the body of a send, over REST or the socket.
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// MessageInsertRow is the raw row carried in a change feed INSERT event.
// Joined sender data is absent; consumers re-fetch by ID.
type MessageInsertRow struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}
