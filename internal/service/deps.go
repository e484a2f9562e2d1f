package service

import (
	"context"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// Store interfaces are the consumer-side views over the postgres
// repositories. They are kept narrow so tests can swap in fakes.

type ChatStore interface {
	Create(ctx context.Context, chat *domain.Chat, memberIDs []string) error
	Get(ctx context.Context, id string) (*domain.Chat, error)
	GetWithHistory(ctx context.Context, id string) (*domain.Chat, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Chat, error)
	FindIndividual(ctx context.Context, userA, userB string) (*domain.Chat, error)
	HardDelete(ctx context.Context, chatID string) error
}

type MemberStore interface {
	IsMember(ctx context.Context, chatID, userID string) (bool, error)
	Add(ctx context.Context, chatID, userID string) (*domain.ChatMember, error)
	ListByChat(ctx context.Context, chatID string) ([]domain.ChatMember, error)
	MemberIDs(ctx context.Context, chatID string) ([]string, error)
	OtherMemberIDs(ctx context.Context, chatID, excludeUserID string) ([]string, error)
}

type StateStore interface {
	UpsertPresence(ctx context.Context, userID, chatID string, isOnline bool) (*domain.ChatUserState, error)
	UpsertTyping(ctx context.Context, userID, chatID string, isTyping bool) (*domain.ChatUserState, error)
	UpsertRead(ctx context.Context, userID, chatID, messageID string) (*domain.ChatUserState, error)
	IncrementUnread(ctx context.Context, userID, chatID string) error
	UpsertMute(ctx context.Context, userID, chatID string, isMuted bool) (*domain.ChatUserState, error)
	UpsertDeleted(ctx context.Context, userID, chatID string, isDeleted bool) (*domain.ChatUserState, error)
	Get(ctx context.Context, userID, chatID string) (*domain.ChatUserState, error)
	ListByChat(ctx context.Context, chatID string) ([]domain.ChatUserState, error)
	ListUnreadByUser(ctx context.Context, userID string) ([]domain.ChatUnread, error)
	DeletedMemberIDs(ctx context.Context, chatID, excludeUserID string) ([]string, error)
	AllMembersDeleted(ctx context.Context, chatID string) (bool, error)
	ExpiredTyping(ctx context.Context, cutoff time.Time) ([]domain.ChatUserState, error)
	ClearTyping(ctx context.Context, stateID string) error
}

type MessageStore interface {
	Create(ctx context.Context, m *domain.Message) error
	Get(ctx context.Context, id string) (*domain.Message, error)
	List(ctx context.Context, chatID, senderID string, limit, offset int) ([]domain.Message, error)
	Latest(ctx context.Context, chatID string) (*domain.Message, error)
}

type NotificationStore interface {
	Ping(ctx context.Context) error
	Create(ctx context.Context, n *domain.Notification) error
	MarkRead(ctx context.Context, id string) error
	ListUnread(ctx context.Context, recipientID string, limit int, cursor string) ([]domain.Notification, string, error)
}

type UserStore interface {
	Get(ctx context.Context, id string) (*domain.User, error)
}

// Publisher delivers realtime events to chat rooms and personal channels.
// Implemented by the ws hub; emits are fire-and-forget.
type Publisher interface {
	EmitToRoom(room, event string, payload any)
	EmitToUser(userID, event string, payload any)
}
