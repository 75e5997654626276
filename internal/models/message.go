package models

import "time"

// Message delivery statuses.
const (
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusRead      = "read"
)

// DeletedMessagePlaceholder replaces the content of soft-deleted messages.
const DeletedMessagePlaceholder = "[Message deleted]"

// Message is a single message in a conversation.
type Message struct {
	ID             int        `db:"id" json:"id"`
	ConversationID int        `db:"conversation_id" json:"conversation_id"`
	SenderID       int        `db:"sender_id" json:"sender_id"`
	Content        string     `db:"content" json:"content"`
	Attachment     *string    `db:"attachment" json:"attachment,omitempty"`
	ReplyToID      *int       `db:"reply_to_id" json:"reply_to_id,omitempty"`
	Status         string     `db:"status" json:"status"`
	IsEdited       bool       `db:"is_edited" json:"is_edited"`
	EditedAt       *time.Time `db:"edited_at" json:"edited_at,omitempty"`
	IsDeleted      bool       `db:"is_deleted" json:"is_deleted"`
	DeletedAt      *time.Time `db:"deleted_at" json:"-"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// MessageWithSender is the API view of a message, carrying the sender record
// and the replied-to message when reply_to_id is set.
type MessageWithSender struct {
	Message
	Sender  *User    `json:"sender,omitempty"`
	ReplyTo *Message `json:"reply_to,omitempty"`
}

// MessageList is a cursor-paginated message page in chronological order.
type MessageList struct {
	Messages []MessageWithSender `json:"messages"`
	Total    int                 `json:"total"`
	HasMore  bool                `json:"has_more"`
}
