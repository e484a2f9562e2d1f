package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/service"

	"github.com/gorilla/websocket"
)

type MessageSvc interface {
	CreateMessage(ctx context.Context, content, senderID, chatID string, replyToID *string) (*domain.Message, error)
}

type PresenceSvc interface {
	UpdatePresence(ctx context.Context, userID, chatID string, isOnline bool) (*domain.ChatUserState, error)
	UpdateTypingStatus(ctx context.Context, userID, chatID string, isTyping bool) (*domain.ChatUserState, error)
	MarkMessageAsRead(ctx context.Context, userID, messageID string) (*domain.ChatUserState, error)
	CanSendMessages(ctx context.Context, userID, chatID string) (bool, string)
}

type MembershipSvc interface {
	ChatIDs(ctx context.Context, userID string) ([]string, error)
}

type Server struct {
	upgrader    websocket.Upgrader
	hub         *Hub
	presence    PresenceSvc
	messages    MessageSvc
	memberships MembershipSvc

	pingEvery time.Duration
}

func NewServer(hub *Hub, presence PresenceSvc, messages MessageSvc, memberships MembershipSvc) *Server {
	return &Server{
		hub:         hub,
		presence:    presence,
		messages:    messages,
		memberships: memberships,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
}

// WS endpoint: GET /ws?access_token=...&user_id=...
// user_id в query необязателен: соединение можно привязать позже событием
// authenticate.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	accessToken := strings.TrimSpace(q.Get("access_token"))
	if accessToken == "" {
		http.Error(w, "missing access_token", http.StatusUnauthorized)
		return
	}
	userID := strings.TrimSpace(q.Get("user_id"))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn)
	if userID != "" {
		s.bindUser(c, userID)
	}

	go s.writeLoop(r.Context(), c)
	s.readLoop(r.Context(), c)

	s.disconnect(r.Context(), c)

	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "user", c.userID, "err", err)
	}
}

func (s *Server) bindUser(c *wsConn, userID string) {
	c.userID = userID
	s.hub.Join(c, UserChannel(userID))
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case TypeAuthenticate:
			var p AuthPayload
			if decode(msg.Payload, &p) == nil && p.UserID != "" && c.userID == "" {
				s.bindUser(c, p.UserID)
			}

		case TypeJoinChat:
			var p JoinChatPayload
			if decode(msg.Payload, &p) != nil || p.ChatID == "" {
				continue
			}
			s.hub.Join(c, p.ChatID)
			if c.userID != "" {
				if _, err := s.presence.UpdatePresence(ctx, c.userID, p.ChatID, true); err != nil {
					slog.Debug("ws presence online failed", "chat", p.ChatID, "user", c.userID, "err", err)
				}
			}

		case TypeLeaveChat:
			var p JoinChatPayload
			if decode(msg.Payload, &p) != nil || p.ChatID == "" {
				continue
			}
			s.hub.Leave(c, p.ChatID)
			if c.userID != "" {
				if _, err := s.presence.UpdatePresence(ctx, c.userID, p.ChatID, false); err != nil {
					slog.Debug("ws presence offline failed", "chat", p.ChatID, "user", c.userID, "err", err)
				}
			}

		case TypeNewMessage:
			s.handleNewMessage(ctx, c, msg.Payload)

		case TypeTyping:
			if c.userID == "" {
				continue
			}
			var p TypingInPayload
			if decode(msg.Payload, &p) != nil || p.ChatID == "" {
				continue
			}
			if _, err := s.presence.UpdateTypingStatus(ctx, c.userID, p.ChatID, p.IsTyping); err != nil {
				slog.Debug("ws typing update failed", "chat", p.ChatID, "user", c.userID, "err", err)
			}

		case TypeMarkRead:
			if c.userID == "" {
				continue
			}
			var p MarkReadPayload
			if decode(msg.Payload, &p) != nil || p.MessageID == "" {
				continue
			}
			if _, err := s.presence.MarkMessageAsRead(ctx, c.userID, p.MessageID); err != nil {
				slog.Debug("ws mark read failed", "message", p.MessageID, "user", c.userID, "err", err)
			}

		default:
			// ignore
		}
	}
}

func (s *Server) handleNewMessage(ctx context.Context, c *wsConn, payload interface{}) {
	if c.userID == "" {
		_ = c.Send(Message{Type: TypeError, Payload: ErrorPayload{Message: "not authenticated"}})
		return
	}
	var p NewMessageInPayload
	if decode(payload, &p) != nil || p.ChatID == "" {
		return
	}
	text := strings.TrimSpace(p.Content)
	if text == "" {
		return
	}

	if ok, reason := s.presence.CanSendMessages(ctx, c.userID, p.ChatID); !ok {
		_ = c.Send(Message{Type: TypeError, Payload: ErrorPayload{Code: reason, Message: "message rejected"}})
		return
	}

	msg, err := s.messages.CreateMessage(ctx, text, c.userID, p.ChatID, p.ReplyToID)
	if err != nil {
		slog.Warn("ws message save failed", "chat", p.ChatID, "user", c.userID, "err", err)
		_ = c.Send(Message{Type: TypeError, Payload: ErrorPayload{Message: "message not saved"}})
		return
	}

	// ЕДИНЫЙ broadcast всем, включая отправителя.
	s.hub.EmitToRoom(msg.ChatID, service.EventMessageReceived, service.NewMessagePayload(msg))
}

// disconnect снимает соединение со всех комнат и гасит присутствие во всех
// чатах пользователя.
func (s *Server) disconnect(ctx context.Context, c *wsConn) {
	s.hub.RemoveConn(c)
	if c.userID == "" {
		return
	}
	chatIDs, err := s.memberships.ChatIDs(ctx, c.userID)
	if err != nil {
		slog.Debug("ws disconnect: membership lookup failed", "user", c.userID, "err", err)
		return
	}
	for _, chatID := range chatIDs {
		if _, err := s.presence.UpdatePresence(ctx, c.userID, chatID, false); err != nil {
			slog.Debug("ws disconnect: presence offline failed", "chat", chatID, "user", c.userID, "err", err)
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}

// --- helpers ---

func decode(payload interface{}, dst interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return json.Unmarshal(b, dst)
}

type wsConn struct {
	conn   *websocket.Conn
	userID string
	sendMu chan struct{}
	closed chan struct{}
}

func newWsConn(c *websocket.Conn) *wsConn {
	return &wsConn{
		conn:   c,
		sendMu: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) Send(msg Message) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteJSON(msg)
}

func (c *wsConn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}

	return c.conn.Close()
}
