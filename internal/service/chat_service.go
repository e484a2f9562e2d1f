package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// ChatNotifier is the slice of the notification dispatcher the chat
// lifecycle needs. Calls are best-effort and never fail the operation.
type ChatNotifier interface {
	NotifyChatCreated(ctx context.Context, chat *domain.Chat, creatorID string, memberIDs []string)
	NotifyUserJoinedChat(ctx context.Context, chatID, userID, userName string)
}

type ChatService struct {
	chats    ChatStore
	members  MemberStore
	states   StateStore
	users    UserStore
	notifier ChatNotifier
	pub      Publisher
}

func NewChatService(chats ChatStore, members MemberStore, states StateStore, users UserStore, notifier ChatNotifier, pub Publisher) *ChatService {
	return &ChatService{
		chats:    chats,
		members:  members,
		states:   states,
		users:    users,
		notifier: notifier,
		pub:      pub,
	}
}

// CreateChat создаёт чат вместе с участниками. Для INDIVIDUAL действует
// строгая уникальность пары: ровно два участника и не больше одного чата
// на пару независимо от порядка id.
func (s *ChatService) CreateChat(ctx context.Context, name *string, chatType domain.ChatType, memberIDs []string, creatorID string) (*domain.Chat, error) {
	if chatType == domain.ChatTypeIndividual {
		if len(memberIDs) != 2 {
			return nil, domain.ErrInvalidMemberCount
		}
		existing, err := s.chats.FindIndividual(ctx, memberIDs[0], memberIDs[1])
		if err != nil {
			return nil, fmt.Errorf("find individual chat: %w", err)
		}
		if existing != nil {
			return nil, domain.ErrDuplicateChat
		}
	}

	chat := &domain.Chat{Name: name, Type: chatType}
	if err := s.chats.Create(ctx, chat, memberIDs); err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	for _, uid := range memberIDs {
		chat.Members = append(chat.Members, domain.ChatMember{ChatID: chat.ID, UserID: uid, JoinedAt: chat.CreatedAt})
	}

	// Оповещения не влияют на результат создания.
	go s.fanoutCreated(context.WithoutCancel(ctx), chat, creatorID, memberIDs)

	return chat, nil
}

func (s *ChatService) fanoutCreated(ctx context.Context, chat *domain.Chat, creatorID string, memberIDs []string) {
	payload := ChatCreatedPayload{
		ChatID:    chat.ID,
		Name:      chat.DisplayName(),
		Type:      string(chat.Type),
		CreatedBy: creatorID,
		MemberIDs: memberIDs,
		CreatedAt: chat.CreatedAt,
	}
	for _, uid := range memberIDs {
		if uid == creatorID {
			continue
		}
		s.pub.EmitToUser(uid, EventNewChat, payload)
	}
	s.notifier.NotifyChatCreated(ctx, chat, creatorID, memberIDs)
}

// FindChatByID возвращает чат с участниками и историей сообщений.
func (s *ChatService) FindChatByID(ctx context.Context, chatID string) (*domain.Chat, error) {
	return s.chats.GetWithHistory(ctx, chatID)
}

// GetChatsByUser возвращает чаты пользователя без удалённых им, каждый с
// последним сообщением.
func (s *ChatService) GetChatsByUser(ctx context.Context, userID string) ([]domain.Chat, error) {
	return s.chats.ListByUser(ctx, userID)
}

func (s *ChatService) AddMember(ctx context.Context, chatID, userID string) (*domain.ChatMember, error) {
	if _, err := s.chats.Get(ctx, chatID); err != nil {
		return nil, err
	}
	member, err := s.members.Add(ctx, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	member.UserName = s.userName(ctx, userID)

	s.notifier.NotifyUserJoinedChat(ctx, chatID, userID, member.UserName)
	return member, nil
}

// ChatDeleteResult reports whether a soft delete cascaded into a hard one.
type ChatDeleteResult struct {
	PermanentlyDeleted bool
	DeletedAt          time.Time
}

// DeleteChat помечает чат удалённым для одного участника. Когда удалили все,
// чат и все зависимые строки стираются насовсем.
func (s *ChatService) DeleteChat(ctx context.Context, chatID, userID string) (*ChatDeleteResult, error) {
	ok, err := s.members.IsMember(ctx, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return nil, domain.ErrNotAMember
	}

	state, err := s.states.UpsertDeleted(ctx, userID, chatID, true)
	if err != nil {
		return nil, fmt.Errorf("soft delete chat: %w", err)
	}
	deletedAt := state.LastSeen
	if state.DeletedAt != nil {
		deletedAt = *state.DeletedAt
	}
	s.pub.EmitToUser(userID, EventChatDeleted, ChatDeletedPayload{
		ChatID:    chatID,
		DeletedBy: userID,
		DeletedAt: deletedAt,
	})

	all, err := s.states.AllMembersDeleted(ctx, chatID)
	if err != nil {
		// Каскад отложится до следующего удаления, soft delete уже применён.
		slog.Warn("cascade check failed", "chat", chatID, "err", err)
		return &ChatDeleteResult{DeletedAt: deletedAt}, nil
	}
	if !all {
		return &ChatDeleteResult{DeletedAt: deletedAt}, nil
	}

	memberIDs, err := s.members.MemberIDs(ctx, chatID)
	if err != nil {
		slog.Warn("list members before hard delete failed", "chat", chatID, "err", err)
	}
	if err := s.chats.HardDelete(ctx, chatID); err != nil {
		return nil, fmt.Errorf("hard delete chat: %w", err)
	}
	for _, uid := range memberIDs {
		s.pub.EmitToUser(uid, EventChatHardDeleted, ChatHardDeletedPayload{
			ChatID:    chatID,
			DeletedBy: userID,
			Permanent: true,
		})
	}
	return &ChatDeleteResult{PermanentlyDeleted: true, DeletedAt: deletedAt}, nil
}

// HardDeleteChat стирает чат немедленно, только для админов.
func (s *ChatService) HardDeleteChat(ctx context.Context, chatID, requestingUserID string, isAdmin bool) error {
	if !isAdmin {
		return domain.ErrForbidden
	}
	if _, err := s.chats.Get(ctx, chatID); err != nil {
		return err
	}

	memberIDs, err := s.members.MemberIDs(ctx, chatID)
	if err != nil {
		slog.Warn("list members before hard delete failed", "chat", chatID, "err", err)
	}
	if err := s.chats.HardDelete(ctx, chatID); err != nil {
		return fmt.Errorf("hard delete chat: %w", err)
	}
	for _, uid := range memberIDs {
		s.pub.EmitToUser(uid, EventChatHardDeleted, ChatHardDeletedPayload{
			ChatID:    chatID,
			DeletedBy: requestingUserID,
			Permanent: true,
		})
	}
	return nil
}

func (s *ChatService) userName(ctx context.Context, userID string) string {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		slog.Debug("user lookup failed", "user", userID, "err", err)
		return "User"
	}
	return u.Name
}
