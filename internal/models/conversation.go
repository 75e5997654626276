package models

import "time"

// Conversation types.
const (
	ConversationTypeDirect = "direct"
	ConversationTypeGroup  = "group"
)

// Conversation is a message thread between users. Direct conversations are
// unique per user pair; direct_key holds the normalized pair key that
// enforces this in the database.
type Conversation struct {
	ID                 int        `db:"id" json:"id"`
	Type               string     `db:"type" json:"type"`
	Name               *string    `db:"name" json:"name,omitempty"`
	DirectKey          *string    `db:"direct_key" json:"-"`
	LastMessagePreview *string    `db:"last_message_preview" json:"last_message_preview,omitempty"`
	LastMessageAt      *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// ConversationDetail is the API view of a conversation for one user.
type ConversationDetail struct {
	Conversation
	Participants []ParticipantWithUser `json:"participants"`
	UnreadCount  int                   `json:"unread_count"`
	OtherUser    *User                 `json:"other_user,omitempty"`
}

// UserConversation pairs a conversation with one user's membership row.
type UserConversation struct {
	Conversation Conversation
	Participant  Participant
}

// ConversationList is a paginated conversation listing.
type ConversationList struct {
	Conversations []ConversationDetail `json:"conversations"`
	Total         int                  `json:"total"`
}
