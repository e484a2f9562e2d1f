package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// PresenceService владеет строками chat_user_states: онлайн, набор текста,
// прочтение, mute и персональное удаление чата. Все операции сначала
// проверяют членство в чате.
type PresenceService struct {
	members  MemberStore
	states   StateStore
	messages MessageStore
	users    UserStore
	pub      Publisher
}

func NewPresenceService(members MemberStore, states StateStore, messages MessageStore, users UserStore, pub Publisher) *PresenceService {
	return &PresenceService{
		members:  members,
		states:   states,
		messages: messages,
		users:    users,
		pub:      pub,
	}
}

func (s *PresenceService) requireMember(ctx context.Context, chatID, userID string) error {
	ok, err := s.members.IsMember(ctx, chatID, userID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return domain.ErrNotAMember
	}
	return nil
}

func (s *PresenceService) UpdatePresence(ctx context.Context, userID, chatID string, isOnline bool) (*domain.ChatUserState, error) {
	if err := s.requireMember(ctx, chatID, userID); err != nil {
		return nil, err
	}
	state, err := s.states.UpsertPresence(ctx, userID, chatID, isOnline)
	if err != nil {
		return nil, fmt.Errorf("upsert presence: %w", err)
	}
	s.pub.EmitToRoom(chatID, EventPresenceChanged, PresencePayload{
		UserID:   userID,
		ChatID:   chatID,
		IsOnline: isOnline,
		LastSeen: state.LastSeen,
	})
	return state, nil
}

func (s *PresenceService) UpdateTypingStatus(ctx context.Context, userID, chatID string, isTyping bool) (*domain.ChatUserState, error) {
	if err := s.requireMember(ctx, chatID, userID); err != nil {
		return nil, err
	}
	state, err := s.states.UpsertTyping(ctx, userID, chatID, isTyping)
	if err != nil {
		return nil, fmt.Errorf("upsert typing: %w", err)
	}

	event := EventUserTypingStopped
	if isTyping {
		event = EventUserTyping
	}
	s.pub.EmitToRoom(chatID, event, TypingPayload{
		UserID:   userID,
		ChatID:   chatID,
		UserName: s.userName(ctx, userID),
	})
	return state, nil
}

// TouchPresence обновляет last_seen без рассылки событий. Для HTTP-активности.
func (s *PresenceService) TouchPresence(ctx context.Context, userID, chatID string) error {
	if err := s.requireMember(ctx, chatID, userID); err != nil {
		return err
	}
	_, err := s.states.UpsertPresence(ctx, userID, chatID, true)
	return err
}

// MarkMessageAsRead сбрасывает счётчик непрочитанных и двигает указатель
// последнего прочитанного. Отправителя оповещаем, если читал не он сам.
func (s *PresenceService) MarkMessageAsRead(ctx context.Context, userID, messageID string) (*domain.ChatUserState, error) {
	msg, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, msg.ChatID, userID); err != nil {
		return nil, err
	}
	state, err := s.states.UpsertRead(ctx, userID, msg.ChatID, messageID)
	if err != nil {
		return nil, fmt.Errorf("upsert read: %w", err)
	}
	if msg.SenderID != userID {
		s.pub.EmitToUser(msg.SenderID, EventMessageRead, MessageReadPayload{
			MessageID: messageID,
			ChatID:    msg.ChatID,
			ReadBy:    userID,
			ReadAt:    state.LastSeen,
		})
	}
	return state, nil
}

// MarkAllMessagesAsRead прочитывает чат до самого свежего сообщения.
// Для пустого чата возвращает (nil, nil).
func (s *PresenceService) MarkAllMessagesAsRead(ctx context.Context, userID, chatID string) (*domain.ChatUserState, error) {
	if err := s.requireMember(ctx, chatID, userID); err != nil {
		return nil, err
	}
	latest, err := s.messages.Latest(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("latest message: %w", err)
	}
	if latest == nil {
		return nil, nil
	}
	state, err := s.states.UpsertRead(ctx, userID, chatID, latest.ID)
	if err != nil {
		return nil, fmt.Errorf("upsert read: %w", err)
	}
	if latest.SenderID != userID {
		s.pub.EmitToUser(latest.SenderID, EventMessagesAllRead, MessagesAllReadPayload{
			ChatID:            chatID,
			ReadBy:            userID,
			LastReadMessageID: latest.ID,
			ReadAt:            state.LastSeen,
		})
	}
	return state, nil
}

// IncrementUnreadCounter бампает счётчики всем участникам кроме отправителя.
// Best effort: ошибки логируются, наружу только bool.
func (s *PresenceService) IncrementUnreadCounter(ctx context.Context, chatID, senderID string) bool {
	ids, err := s.members.OtherMemberIDs(ctx, chatID, senderID)
	if err != nil {
		slog.Warn("unread fanout: list members failed", "chat", chatID, "err", err)
		return false
	}
	ok := true
	for _, uid := range ids {
		if err := s.states.IncrementUnread(ctx, uid, chatID); err != nil {
			slog.Warn("unread increment failed", "chat", chatID, "user", uid, "err", err)
			ok = false
		}
	}
	return ok
}

func (s *PresenceService) ToggleMuteStatus(ctx context.Context, userID, chatID string, isMuted bool) (*domain.ChatUserState, error) {
	if err := s.requireMember(ctx, chatID, userID); err != nil {
		return nil, err
	}
	state, err := s.states.UpsertMute(ctx, userID, chatID, isMuted)
	if err != nil {
		return nil, fmt.Errorf("upsert mute: %w", err)
	}
	return state, nil
}

// CanSendMessages отвечает, может ли пользователь писать в чат, и почему нет.
func (s *PresenceService) CanSendMessages(ctx context.Context, userID, chatID string) (bool, string) {
	ok, err := s.members.IsMember(ctx, chatID, userID)
	if err != nil {
		slog.Warn("send check: membership lookup failed", "chat", chatID, "user", userID, "err", err)
		return false, domain.SendBlockedInternalError
	}
	if !ok {
		return false, domain.SendBlockedNotMember
	}
	state, err := s.states.Get(ctx, userID, chatID)
	if err != nil {
		slog.Warn("send check: state lookup failed", "chat", chatID, "user", userID, "err", err)
		return false, domain.SendBlockedInternalError
	}
	if state != nil && state.IsDeleted {
		return false, domain.SendBlockedChatDeleted
	}
	return true, ""
}

func (s *PresenceService) SoftDeleteChat(ctx context.Context, userID, chatID string) (*domain.ChatUserState, error) {
	if err := s.requireMember(ctx, chatID, userID); err != nil {
		return nil, err
	}
	state, err := s.states.UpsertDeleted(ctx, userID, chatID, true)
	if err != nil {
		return nil, fmt.Errorf("soft delete: %w", err)
	}
	return state, nil
}

func (s *PresenceService) RestoreChat(ctx context.Context, userID, chatID string) (*domain.ChatUserState, error) {
	if err := s.requireMember(ctx, chatID, userID); err != nil {
		return nil, err
	}
	state, err := s.states.UpsertDeleted(ctx, userID, chatID, false)
	if err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	return state, nil
}

func (s *PresenceService) GetChatPresenceStates(ctx context.Context, chatID string) ([]domain.ChatUserState, error) {
	return s.states.ListByChat(ctx, chatID)
}

func (s *PresenceService) GetUnreadCountsByUser(ctx context.Context, userID string) ([]domain.ChatUnread, error) {
	return s.states.ListUnreadByUser(ctx, userID)
}

func (s *PresenceService) userName(ctx context.Context, userID string) string {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		slog.Debug("user lookup failed", "user", userID, "err", err)
		return "User"
	}
	return u.Name
}
