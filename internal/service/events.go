package service

import (
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// Типы событий, которые уходят в realtime-канал
const (
	EventNewChat                = "new_chat"
	EventChatDeleted            = "chat_deleted"
	EventChatHardDeleted        = "chat_hard_deleted"
	EventChatRestored           = "chat_restored"
	EventPresenceChanged        = "user_presence_changed"
	EventUserTyping             = "user_typing"
	EventUserTypingStopped      = "user_typing_stopped"
	EventMessageRead            = "message_read"
	EventMessagesAllRead        = "messages_all_read"
	EventMessageReceived        = "message_received"
	EventNotification           = "notification"
	EventNewMessageNotification = "new_message_notification"
)

type ChatCreatedPayload struct {
	ChatID    string    `json:"chat_id"`
	Name      string    `json:"name,omitempty"`
	Type      string    `json:"type"`
	CreatedBy string    `json:"created_by"`
	MemberIDs []string  `json:"member_ids"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatDeletedPayload struct {
	ChatID    string    `json:"chat_id"`
	DeletedBy string    `json:"deleted_by"`
	DeletedAt time.Time `json:"deleted_at"`
}

type ChatHardDeletedPayload struct {
	ChatID    string `json:"chat_id"`
	DeletedBy string `json:"deleted_by,omitempty"`
	Permanent bool   `json:"permanent"`
}

type MessageFrom struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ChatRestoredPayload struct {
	ChatID          string      `json:"chat_id"`
	RestoredBecause string      `json:"restored_because"`
	MessageFrom     MessageFrom `json:"message_from"`
	MessagePreview  string      `json:"message_preview"`
}

type PresencePayload struct {
	UserID   string    `json:"user_id"`
	ChatID   string    `json:"chat_id"`
	IsOnline bool      `json:"is_online"`
	LastSeen time.Time `json:"last_seen"`
}

type TypingPayload struct {
	UserID   string `json:"user_id"`
	ChatID   string `json:"chat_id"`
	UserName string `json:"user_name,omitempty"`
}

type MessageReadPayload struct {
	MessageID string    `json:"message_id"`
	ChatID    string    `json:"chat_id"`
	ReadBy    string    `json:"read_by"`
	ReadAt    time.Time `json:"read_at"`
}

type MessagesAllReadPayload struct {
	ChatID            string    `json:"chat_id"`
	ReadBy            string    `json:"read_by"`
	LastReadMessageID string    `json:"last_read_message_id"`
	ReadAt            time.Time `json:"read_at"`
}

type MessagePayload struct {
	ID         string    `json:"id"`
	ChatID     string    `json:"chat_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	Content    string    `json:"content"`
	ReplyToID  *string   `json:"reply_to_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewMessagePayload(m *domain.Message) MessagePayload {
	return MessagePayload{
		ID:         m.ID,
		ChatID:     m.ChatID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Content:    m.Content,
		ReplyToID:  m.ReplyToID,
		CreatedAt:  m.CreatedAt,
	}
}

// NewMessageNotifyPayload is the room-wide fallback delivered while the
// notification store is unreachable.
type NewMessageNotifyPayload struct {
	MessageID  string    `json:"message_id"`
	ChatID     string    `json:"chat_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	Preview    string    `json:"preview"`
	SentAt     time.Time `json:"sent_at"`
}

type NotificationPayload struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	RecipientID string    `json:"recipient_id"`
	SenderID    *string   `json:"sender_id,omitempty"`
	ChatID      *string   `json:"chat_id,omitempty"`
	MessageID   *string   `json:"message_id,omitempty"`
	Content     string    `json:"content"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

func notificationPayload(n *domain.Notification) NotificationPayload {
	return NotificationPayload{
		ID:          n.ID,
		Type:        string(n.Type),
		RecipientID: n.RecipientID,
		SenderID:    n.SenderID,
		ChatID:      n.ChatID,
		MessageID:   n.MessageID,
		Content:     n.Content,
		Read:        n.Read,
		CreatedAt:   n.CreatedAt,
	}
}
