package http

import (
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreateChatRequest struct {
	Name      *string  `json:"name"`
	Type      string   `json:"type"`
	MemberIDs []string `json:"member_ids"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id"`
}

type HardDeleteRequest struct {
	IsAdmin bool `json:"is_admin"`
}

type PresenceRequest struct {
	IsOnline bool `json:"is_online"`
}

type TypingRequest struct {
	IsTyping bool `json:"is_typing"`
}

type MuteRequest struct {
	IsMuted bool `json:"is_muted"`
}

type CreateMessageRequest struct {
	ChatID    string  `json:"chat_id"`
	Content   string  `json:"content"`
	ReplyToID *string `json:"reply_to_id"`
}

type MemberItem struct {
	ChatID   string    `json:"chat_id"`
	UserID   string    `json:"user_id"`
	UserName string    `json:"user_name,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

type MessageItem struct {
	ID         string        `json:"id"`
	ChatID     string        `json:"chat_id"`
	SenderID   string        `json:"sender_id"`
	SenderName string        `json:"sender_name,omitempty"`
	Content    string        `json:"content"`
	ReplyToID  *string       `json:"reply_to_id,omitempty"`
	ReplyTo    *MessageItem  `json:"reply_to,omitempty"`
	Replies    []MessageItem `json:"replies,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

type ChatItem struct {
	ID        string        `json:"id"`
	Name      *string       `json:"name"`
	Type      string        `json:"type"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Members   []MemberItem  `json:"members,omitempty"`
	Messages  []MessageItem `json:"messages,omitempty"`
}

type ChatsListResponse struct {
	Items []ChatItem `json:"items"`
}

type DeleteChatResponse struct {
	PermanentlyDeleted bool      `json:"permanently_deleted"`
	DeletedAt          time.Time `json:"deleted_at"`
}

type StateItem struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	ChatID            string     `json:"chat_id"`
	UserName          string     `json:"user_name,omitempty"`
	IsOnline          bool       `json:"is_online"`
	LastSeen          time.Time  `json:"last_seen"`
	IsTyping          bool       `json:"is_typing"`
	LastTypingAt      *time.Time `json:"last_typing_at,omitempty"`
	LastReadMessageID *string    `json:"last_read_message_id,omitempty"`
	UnreadCount       int        `json:"unread_count"`
	IsMuted           bool       `json:"is_muted"`
	IsDeleted         bool       `json:"is_deleted"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty"`
}

type StatesResponse struct {
	Items []StateItem `json:"items"`
}

type CanSendResponse struct {
	CanSend bool   `json:"can_send"`
	Reason  string `json:"reason,omitempty"`
}

type MessagesListResponse struct {
	Items []MessageItem `json:"items"`
}

type UnreadCountItem struct {
	ChatID      string `json:"chat_id"`
	UnreadCount int    `json:"unread_count"`
}

type UnreadCountsResponse struct {
	Items []UnreadCountItem `json:"items"`
}

type NotificationItem struct {
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

type NotificationsResponse struct {
	Items      []NotificationItem `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

func memberItem(m domain.ChatMember) MemberItem {
	return MemberItem{ChatID: m.ChatID, UserID: m.UserID, UserName: m.UserName, JoinedAt: m.JoinedAt}
}

func messageItem(m *domain.Message) MessageItem {
	item := MessageItem{
		ID:         m.ID,
		ChatID:     m.ChatID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Content:    m.Content,
		ReplyToID:  m.ReplyToID,
		CreatedAt:  m.CreatedAt,
	}
	if m.ReplyTo != nil {
		parent := messageItem(m.ReplyTo)
		item.ReplyTo = &parent
	}
	for _, reply := range m.Replies {
		item.Replies = append(item.Replies, messageItem(reply))
	}
	return item
}

func chatItem(c *domain.Chat) ChatItem {
	item := ChatItem{
		ID:        c.ID,
		Name:      c.Name,
		Type:      string(c.Type),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	for _, m := range c.Members {
		item.Members = append(item.Members, memberItem(m))
	}
	for i := range c.Messages {
		item.Messages = append(item.Messages, messageItem(&c.Messages[i]))
	}
	return item
}

func stateItem(s *domain.ChatUserState) StateItem {
	return StateItem{
		ID:                s.ID,
		UserID:            s.UserID,
		ChatID:            s.ChatID,
		UserName:          s.UserName,
		IsOnline:          s.IsOnline,
		LastSeen:          s.LastSeen,
		IsTyping:          s.IsTyping,
		LastTypingAt:      s.LastTypingAt,
		LastReadMessageID: s.LastReadMessageID,
		UnreadCount:       s.UnreadCount,
		IsMuted:           s.IsMuted,
		IsDeleted:         s.IsDeleted,
		DeletedAt:         s.DeletedAt,
	}
}

func notificationItem(n *domain.Notification) NotificationItem {
	return NotificationItem{
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
