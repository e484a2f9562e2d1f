package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

const defaultProbeInterval = 30 * time.Second

// NotificationService сохраняет и доставляет уведомления. Когда база
// недоступна, переходит в деградированный режим: realtime-доставка живёт,
// запись выключена, проверка базы не чаще одного раза за probeEvery.
type NotificationService struct {
	store   NotificationStore
	members MemberStore
	pub     Publisher

	mu          sync.Mutex
	dbConnected bool
	lastProbe   time.Time
	probeEvery  time.Duration
	now         func() time.Time
}

func NewNotificationService(store NotificationStore, members MemberStore, pub Publisher, probeEvery time.Duration) *NotificationService {
	if probeEvery <= 0 {
		probeEvery = defaultProbeInterval
	}
	return &NotificationService{
		store:       store,
		members:     members,
		pub:         pub,
		dbConnected: true,
		probeEvery:  probeEvery,
		now:         time.Now,
	}
}

// storeAvailable reports whether persistence should be attempted. В
// деградированном режиме пингует базу не чаще одного раза за интервал.
func (s *NotificationService) storeAvailable(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dbConnected {
		return true
	}
	if s.now().Sub(s.lastProbe) < s.probeEvery {
		return false
	}
	s.lastProbe = s.now()
	if err := s.store.Ping(ctx); err != nil {
		slog.Debug("notification store still unreachable", "err", err)
		return false
	}
	slog.Info("notification store reachable again")
	s.dbConnected = true
	return true
}

func (s *NotificationService) markDegraded(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dbConnected {
		slog.Warn("notification store unreachable, switching to degraded mode", "err", err)
		s.dbConnected = false
		s.lastProbe = s.now()
	}
}

type CreateNotification struct {
	Type        domain.NotificationType
	RecipientID string
	SenderID    *string
	ChatID      *string
	MessageID   *string
	Content     string
}

// CreateNotification всегда возвращает уведомление и всегда шлёт его в
// персональный канал получателя. Запись в базу только когда она доступна;
// её отказ роняет сервис в деградированный режим, но не сам вызов.
func (s *NotificationService) CreateNotification(ctx context.Context, in CreateNotification) *domain.Notification {
	n := &domain.Notification{
		ID:          uuid.New().String(),
		Type:        in.Type,
		RecipientID: in.RecipientID,
		SenderID:    in.SenderID,
		ChatID:      in.ChatID,
		MessageID:   in.MessageID,
		Content:     in.Content,
		CreatedAt:   s.now(),
	}
	if s.storeAvailable(ctx) {
		if err := s.store.Create(ctx, n); err != nil {
			s.markDegraded(err)
		}
	}
	s.pub.EmitToUser(n.RecipientID, EventNotification, notificationPayload(n))
	return n
}

// NotifyNewMessage рассылает NEW_MESSAGE каждому участнику кроме
// отправителя. Без базы шлём одно событие на всю комнату.
func (s *NotificationService) NotifyNewMessage(ctx context.Context, msg *domain.Message) {
	if !s.storeAvailable(ctx) {
		s.emitRoomWide(msg)
		return
	}
	ids, err := s.members.OtherMemberIDs(ctx, msg.ChatID, msg.SenderID)
	if err != nil {
		s.markDegraded(err)
		s.emitRoomWide(msg)
		return
	}
	content := fmt.Sprintf("New message from %s: %s", displayName(msg.SenderName), msg.Preview())
	for _, uid := range ids {
		s.CreateNotification(ctx, CreateNotification{
			Type:        domain.NotificationNewMessage,
			RecipientID: uid,
			SenderID:    &msg.SenderID,
			ChatID:      &msg.ChatID,
			MessageID:   &msg.ID,
			Content:     content,
		})
	}
}

func (s *NotificationService) emitRoomWide(msg *domain.Message) {
	s.pub.EmitToRoom(msg.ChatID, EventNewMessageNotification, NewMessageNotifyPayload{
		MessageID:  msg.ID,
		ChatID:     msg.ChatID,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Preview:    msg.Preview(),
		SentAt:     msg.CreatedAt,
	})
}

// NotifyChatCreated уведомляет всех участников нового чата кроме создателя.
func (s *NotificationService) NotifyChatCreated(ctx context.Context, chat *domain.Chat, creatorID string, memberIDs []string) {
	name := chat.DisplayName()
	if name == "" {
		name = "a new chat"
	}
	content := fmt.Sprintf("You were added to %s", name)
	for _, uid := range memberIDs {
		if uid == creatorID {
			continue
		}
		s.CreateNotification(ctx, CreateNotification{
			Type:        domain.NotificationChatCreated,
			RecipientID: uid,
			SenderID:    &creatorID,
			ChatID:      &chat.ID,
			Content:     content,
		})
	}
}

// NotifyUserJoinedChat уведомляет остальных участников о новичке.
func (s *NotificationService) NotifyUserJoinedChat(ctx context.Context, chatID, userID, userName string) {
	ids, err := s.members.OtherMemberIDs(ctx, chatID, userID)
	if err != nil {
		slog.Warn("join notify: list members failed", "chat", chatID, "err", err)
		return
	}
	content := fmt.Sprintf("%s joined the chat", displayName(userName))
	for _, uid := range ids {
		s.CreateNotification(ctx, CreateNotification{
			Type:        domain.NotificationUserJoinedChat,
			RecipientID: uid,
			SenderID:    &userID,
			ChatID:      &chatID,
			Content:     content,
		})
	}
}

// MarkAsRead помечает уведомление прочитанным. В деградированном режиме
// возвращаем симулированный успех, чтобы клиент мог погасить бейдж.
func (s *NotificationService) MarkAsRead(ctx context.Context, id string) *domain.Notification {
	if s.storeAvailable(ctx) {
		if err := s.store.MarkRead(ctx, id); err != nil {
			s.markDegraded(err)
		}
	}
	return &domain.Notification{ID: id, Read: true}
}

// GetUnreadNotifications возвращает непрочитанные уведомления с курсором.
// Без базы список пуст, это не ошибка.
func (s *NotificationService) GetUnreadNotifications(ctx context.Context, userID string, limit int, cursor string) ([]domain.Notification, string, error) {
	if !s.storeAvailable(ctx) {
		return []domain.Notification{}, "", nil
	}
	items, next, err := s.store.ListUnread(ctx, userID, limit, cursor)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCursor) {
			return nil, "", err
		}
		s.markDegraded(err)
		return []domain.Notification{}, "", nil
	}
	return items, next, nil
}

func displayName(name string) string {
	if name == "" {
		return "User"
	}
	return name
}
