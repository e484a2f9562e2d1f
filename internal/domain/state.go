package domain

import "time"

// ChatUserState is the per-(user,chat) presence/read/mute/delete row.
// At most one row exists per pair; all writes go through an atomic upsert
// keyed by (user_id, chat_id).
type ChatUserState struct {
	ID                string     `db:"id"`
	UserID            string     `db:"user_id"`
	ChatID            string     `db:"chat_id"`
	IsOnline          bool       `db:"is_online"`
	LastSeen          time.Time  `db:"last_seen"`
	IsTyping          bool       `db:"is_typing"`
	LastTypingAt      *time.Time `db:"last_typing_at"`
	LastReadMessageID *string    `db:"last_read_message_id"`
	UnreadCount       int        `db:"unread_count"`
	IsMuted           bool       `db:"is_muted"`
	IsDeleted         bool       `db:"is_deleted"`
	DeletedAt         *time.Time `db:"deleted_at"`

	UserName string `db:"-"`
}

// UnreadCount projection for a single chat.
type ChatUnread struct {
	ChatID      string `db:"chat_id"`
	UnreadCount int    `db:"unread_count"`
}

// Send-permission reasons for CanSendMessages.
const (
	SendBlockedNotMember     = "USER_NOT_MEMBER"
	SendBlockedChatDeleted   = "CHAT_DELETED_BY_USER"
	SendBlockedInternalError = "ERROR"
)
