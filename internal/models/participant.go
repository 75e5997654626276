package models

import "time"

// Participant tracks one user's membership and per-conversation state.
// A null left_at means the membership is active.
type Participant struct {
	ID                int        `db:"id" json:"id"`
	ConversationID    int        `db:"conversation_id" json:"conversation_id"`
	UserID            int        `db:"user_id" json:"user_id"`
	IsMuted           bool       `db:"is_muted" json:"is_muted"`
	IsArchived        bool       `db:"is_archived" json:"is_archived"`
	IsPinned          bool       `db:"is_pinned" json:"is_pinned"`
	UnreadCount       int        `db:"unread_count" json:"unread_count"`
	LastReadAt        *time.Time `db:"last_read_at" json:"last_read_at,omitempty"`
	LastReadMessageID *int       `db:"last_read_message_id" json:"last_read_message_id,omitempty"`
	JoinedAt          time.Time  `db:"joined_at" json:"joined_at"`
	LeftAt            *time.Time `db:"left_at" json:"-"`
}

// ParticipantWithUser joins the membership row with its user record.
type ParticipantWithUser struct {
	Participant
	User *User `json:"user,omitempty"`
}

// SettingsPatch carries the optional per-conversation flags a user may change.
// Nil fields are left untouched.
type SettingsPatch struct {
	IsMuted    *bool `json:"is_muted,omitempty"`
	IsArchived *bool `json:"is_archived,omitempty"`
	IsPinned   *bool `json:"is_pinned,omitempty"`
}

// UnreadSummary aggregates unread state across a user's conversations.
// Muted conversations are excluded from the total but still counted in
// ConversationsWithUnread.
type UnreadSummary struct {
	TotalUnread             int `json:"total_unread"`
	ConversationsWithUnread int `json:"conversations_with_unread"`
}
