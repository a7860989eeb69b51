package domain

import (
	"time"

	"gorm.io/gorm"
)

// ProfileModel is the GORM model for the profiles table.
type ProfileModel struct {
	ID           string `gorm:"type:varchar(36);primaryKey"`
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null"`
	Username     string `gorm:"type:varchar(50);uniqueIndex"`
	DisplayName  string `gorm:"type:varchar(100)"`
	AvatarURL    string `gorm:"type:varchar(500)"`
	PasswordHash string `gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (ProfileModel) TableName() string {
	return "profiles"
}

// ToDomain converts ProfileModel to domain Profile.
func (m *ProfileModel) ToDomain() *Profile {
	return &Profile{
		ID:           m.ID,
		Email:        m.Email,
		Username:     m.Username,
		DisplayName:  m.DisplayName,
		AvatarURL:    m.AvatarURL,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// ProfileToModel converts domain Profile to ProfileModel.
func ProfileToModel(p *Profile) *ProfileModel {
	return &ProfileModel{
		ID:           p.ID,
		Email:        p.Email,
		Username:     p.Username,
		DisplayName:  p.DisplayName,
		AvatarURL:    p.AvatarURL,
		PasswordHash: p.PasswordHash,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// ConversationModel is the GORM model for the conversations table.
// DirectKey is NULL for groups so the unique index only binds direct pairs.
type ConversationModel struct {
	ID        string  `gorm:"type:varchar(36);primaryKey"`
	IsGroup   bool    `gorm:"not null;default:false"`
	Name      string  `gorm:"type:varchar(100)"`
	DirectKey *string `gorm:"type:varchar(73);uniqueIndex"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ConversationModel) TableName() string {
	return "conversations"
}

// ToDomain converts ConversationModel to domain Conversation.
func (m *ConversationModel) ToDomain() *Conversation {
	c := &Conversation{
		ID:        m.ID,
		IsGroup:   m.IsGroup,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
	}
	if m.DirectKey != nil {
		c.DirectKey = *m.DirectKey
	}
	return c
}

// ConversationToModel converts domain Conversation to ConversationModel.
func ConversationToModel(c *Conversation) *ConversationModel {
	m := &ConversationModel{
		ID:        c.ID,
		IsGroup:   c.IsGroup,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
	}
	if c.DirectKey != "" {
		key := c.DirectKey
		m.DirectKey = &key
	}
	return m
}

// ParticipantModel is the GORM model for the conversation_participants table.
type ParticipantModel struct {
	ConversationID string     `gorm:"type:varchar(36);primaryKey"`
	UserID         string     `gorm:"type:varchar(36);primaryKey;index"`
	LastReadAt     *time.Time
	JoinedAt       time.Time `gorm:"autoCreateTime"`
}

func (ParticipantModel) TableName() string {
	return "conversation_participants"
}

// ToDomain converts ParticipantModel to domain Participant.
func (m *ParticipantModel) ToDomain() *Participant {
	return &Participant{
		ConversationID: m.ConversationID,
		UserID:         m.UserID,
		LastReadAt:     m.LastReadAt,
		JoinedAt:       m.JoinedAt,
	}
}

// MessageModel is the GORM model for the messages table.
type MessageModel struct {
	ID             string    `gorm:"type:varchar(36);primaryKey"`
	ConversationID string    `gorm:"type:varchar(36);index:idx_messages_conv_time,priority:1;not null"`
	SenderID       string    `gorm:"type:varchar(36);not null"`
	Content        string    `gorm:"type:text;not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index:idx_messages_conv_time,priority:2"`
}

func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts MessageModel to domain Message. The sender profile is
// attached separately by the repository when a join is requested.
func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}

// MessageToModel converts domain Message to MessageModel.
func MessageToModel(msg *Message) *MessageModel {
	return &MessageModel{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	}
}

// LibraryItemModel is the GORM model for the library_items table.
type LibraryItemModel struct {
	ID         string `gorm:"type:varchar(36);primaryKey"`
	UserID     string `gorm:"type:varchar(36);index;not null;uniqueIndex:idx_library_user_media,priority:1"`
	MediaType  string `gorm:"type:varchar(10);not null;uniqueIndex:idx_library_user_media,priority:2"`
	ExternalID string `gorm:"type:varchar(100);not null;uniqueIndex:idx_library_user_media,priority:3"`
	Metadata   []byte `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (LibraryItemModel) TableName() string {
	return "library_items"
}

// ToDomain converts LibraryItemModel to domain LibraryItem.
func (m *LibraryItemModel) ToDomain() *LibraryItem {
	return &LibraryItem{
		ID:         m.ID,
		UserID:     m.UserID,
		MediaType:  MediaType(m.MediaType),
		ExternalID: m.ExternalID,
		Metadata:   m.Metadata,
		CreatedAt:  m.CreatedAt,
	}
}

// LibraryItemToModel converts domain LibraryItem to LibraryItemModel.
func LibraryItemToModel(item *LibraryItem) *LibraryItemModel {
	return &LibraryItemModel{
		ID:         item.ID,
		UserID:     item.UserID,
		MediaType:  string(item.MediaType),
		ExternalID: item.ExternalID,
		Metadata:   item.Metadata,
		CreatedAt:  item.CreatedAt,
	}
}

// AllModels lists every model for auto-migration.
func AllModels() []interface{} {
	return []interface{}{
		&ProfileModel{},
		&ConversationModel{},
		&ParticipantModel{},
		&MessageModel{},
		&LibraryItemModel{},
	}
}
