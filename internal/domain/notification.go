package domain

import "time"

type NotificationType string

const (
	NotificationNewMessage     NotificationType = "NEW_MESSAGE"
	NotificationMessageRead    NotificationType = "MESSAGE_READ"
	NotificationUserJoinedChat NotificationType = "USER_JOINED_CHAT"
	NotificationUserLeftChat   NotificationType = "USER_LEFT_CHAT"
	NotificationChatCreated    NotificationType = "CHAT_CREATED"
	NotificationMentioned      NotificationType = "MENTIONED"
)

// Notification is delivered over the realtime channel and, when the store
// is reachable, persisted. In degraded mode it only exists in memory.
type Notification struct {
	ID          string           `db:"id"`
	Type        NotificationType `db:"type"`
	RecipientID string           `db:"recipient_id"`
	SenderID    *string          `db:"sender_id"`
	ChatID      *string          `db:"chat_id"`
	MessageID   *string          `db:"message_id"`
	Content     string           `db:"content"`
	Read        bool             `db:"read"`
	CreatedAt   time.Time        `db:"created_at"`
}
