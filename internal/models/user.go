package models

import "time"

// User is the account record shared with the rest of the platform.
type User struct {
	ID        int     `db:"id" json:"id"`
	Username  string  `db:"username" json:"username"`
	Email     string  `db:"email" json:"email"`
	FullName  *string `db:"full_name" json:"full_name,omitempty"`
	AvatarURL *string `db:"avatar_url" json:"avatar_url,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
