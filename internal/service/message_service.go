package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// UnreadCounter and MessageNotifier are the best-effort hooks the message
// pipeline fires after a message is persisted. Их отказ не валит отправку.
type UnreadCounter interface {
	IncrementUnreadCounter(ctx context.Context, chatID, senderID string) bool
}

type MessageNotifier interface {
	NotifyNewMessage(ctx context.Context, msg *domain.Message)
}

type MessageService struct {
	messages MessageStore
	states   StateStore
	users    UserStore
	unread   UnreadCounter
	notifier MessageNotifier
	pub      Publisher
}

func NewMessageService(messages MessageStore, states StateStore, users UserStore, unread UnreadCounter, notifier MessageNotifier, pub Publisher) *MessageService {
	return &MessageService{
		messages: messages,
		states:   states,
		users:    users,
		unread:   unread,
		notifier: notifier,
		pub:      pub,
	}
}

// CreateMessage сохраняет сообщение и прогоняет его через пайплайн:
// восстановление чата у удаливших, счётчики непрочитанных, оповещения.
// После успешного INSERT ошибки пайплайна не отменяют отправку.
func (s *MessageService) CreateMessage(ctx context.Context, content, senderID, chatID string, replyToID *string) (*domain.Message, error) {
	msg := &domain.Message{
		Content:   content,
		SenderID:  senderID,
		ChatID:    chatID,
		ReplyToID: replyToID,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	msg.SenderName = s.senderName(ctx, senderID)

	s.restoreDeletedFor(ctx, msg)

	if !s.unread.IncrementUnreadCounter(ctx, chatID, senderID) {
		slog.Warn("unread counters not fully updated", "chat", chatID, "message", msg.ID)
	}
	s.notifier.NotifyNewMessage(ctx, msg)

	return msg, nil
}

// restoreDeletedFor снимает персональное удаление у всех, кто скрыл чат:
// новое сообщение возвращает чат в список. Сбой на одном пользователе не
// останавливает остальных.
func (s *MessageService) restoreDeletedFor(ctx context.Context, msg *domain.Message) {
	ids, err := s.states.DeletedMemberIDs(ctx, msg.ChatID, msg.SenderID)
	if err != nil {
		slog.Warn("restore lookup failed", "chat", msg.ChatID, "err", err)
		return
	}
	for _, uid := range ids {
		if _, err := s.states.UpsertDeleted(ctx, uid, msg.ChatID, false); err != nil {
			slog.Warn("chat restore failed", "chat", msg.ChatID, "user", uid, "err", err)
			continue
		}
		s.pub.EmitToUser(uid, EventChatRestored, ChatRestoredPayload{
			ChatID:          msg.ChatID,
			RestoredBecause: "new_message",
			MessageFrom:     MessageFrom{ID: msg.SenderID, Name: msg.SenderName},
			MessagePreview:  msg.Preview(),
		})
	}
}

// GetMessages возвращает страницу сообщений, новые сверху. Пустые chatID и
// senderID отключают соответствующий фильтр.
func (s *MessageService) GetMessages(ctx context.Context, chatID, senderID string, limit, offset int) ([]domain.Message, error) {
	return s.messages.List(ctx, chatID, senderID, limit, offset)
}

func (s *MessageService) GetMessageByID(ctx context.Context, id string) (*domain.Message, error) {
	return s.messages.Get(ctx, id)
}

func (s *MessageService) senderName(ctx context.Context, userID string) string {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		slog.Debug("user lookup failed", "user", userID, "err", err)
		return "User"
	}
	return u.Name
}
