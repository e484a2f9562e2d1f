package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/service"
	httpmw "github.com/cwrk-planet/chat-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	chatSvc     *service.ChatService
	presenceSvc *service.PresenceService
	messageSvc  *service.MessageService
	notifSvc    *service.NotificationService
}

func NewHandler(chat *service.ChatService, presence *service.PresenceService, message *service.MessageService, notif *service.NotificationService) *Handler {
	return &Handler{
		chatSvc:     chat,
		presenceSvc: presence,
		messageSvc:  message,
		notifSvc:    notif,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /chats
func (h *Handler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	userID := httpmw.UserIDFromCtx(r.Context())

	chatType := domain.ChatType(req.Type)
	switch chatType {
	case domain.ChatTypeIndividual, domain.ChatTypeGroup, domain.ChatTypeSubgroup:
	default:
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid chat type"})
		return
	}
	if len(req.MemberIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "member_ids required"})
		return
	}

	chat, err := h.chatSvc.CreateChat(r.Context(), req.Name, chatType, req.MemberIDs, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidMemberCount):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		case errors.Is(err, domain.ErrDuplicateChat):
			writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
		default:
			slog.Error("handler.CreateChat:", slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusCreated, chatItem(chat))
}

// GET /chats
func (h *Handler) GetChats(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())
	chats, err := h.chatSvc.GetChatsByUser(r.Context(), userID)
	if err != nil {
		slog.Error("handler.GetChats:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	resp := ChatsListResponse{Items: make([]ChatItem, 0, len(chats))}
	for i := range chats {
		resp.Items = append(resp.Items, chatItem(&chats[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GET /chats/{chatID}
func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chatID")
	chat, err := h.chatSvc.FindChatByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrChatNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "chat not found"})
			return
		}
		slog.Error("handler.GetChat:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, chatItem(chat))
}

// DELETE /chats/{chatID}
func (h *Handler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chatID")
	userID := httpmw.UserIDFromCtx(r.Context())

	res, err := h.chatSvc.DeleteChat(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotAMember) {
			writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "not a member"})
			return
		}
		slog.Error("handler.DeleteChat:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, DeleteChatResponse{
		PermanentlyDeleted: res.PermanentlyDeleted,
		DeletedAt:          res.DeletedAt,
	})
}

// DELETE /chats/{chatID}/hard
func (h *Handler) HardDeleteChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chatID")
	userID := httpmw.UserIDFromCtx(r.Context())

	var req HardDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	if err := h.chatSvc.HardDeleteChat(r.Context(), id, userID, req.IsAdmin); err != nil {
		switch {
		case errors.Is(err, domain.ErrForbidden):
			writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "admin role required"})
		case errors.Is(err, domain.ErrChatNotFound):
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "chat not found"})
		default:
			slog.Error("handler.HardDeleteChat:", slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// POST /chats/{chatID}/members
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chatID")

	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "user_id required"})
		return
	}

	member, err := h.chatSvc.AddMember(r.Context(), id, req.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrChatNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "chat not found"})
			return
		}
		slog.Error("handler.AddMember:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, memberItem(*member))
}

// POST /chats/{chatID}/restore
func (h *Handler) RestoreChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chatID")
	userID := httpmw.UserIDFromCtx(r.Context())

	state, err := h.presenceSvc.RestoreChat(r.Context(), userID, id)
	if err != nil {
		h.writeStateError(w, "handler.RestoreChat", err)
		return
	}

	writeJSON(w, http.StatusOK, stateItem(state))
}

// GET /chats/{chatID}/presence
func (h *Handler) GetPresence(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chatID")
	states, err := h.presenceSvc.GetChatPresenceStates(r.Context(), id)
	if err != nil {
		slog.Error("handler.GetPresence:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	resp := StatesResponse{Items: make([]StateItem, 0, len(states))}
	for i := range states {
		resp.Items = append(resp.Items, stateItem(&states[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

// PUT /chats/{chatID}/presence
func (h *Handler) UpdatePresence(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chatID")
	userID := httpmw.UserIDFromCtx(r.Context())

	var req PresenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	state, err := h.presenceSvc.UpdatePresence(r.Context(), userID, id, req.IsOnline)
	if err != nil {
		h.writeStateError(w, "handler.UpdatePresence", err)
		return
	}

	writeJSON(w, http.StatusOK, stateItem(state))
}

// PUT /chats/{chatID}/typing
func (h *Handler) UpdateTyping(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chatID")
	userID := httpmw.UserIDFromCtx(r.Context())

	var req TypingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	state, err := h.presenceSvc.UpdateTypingStatus(r.Context(), userID, id, req.IsTyping)
	if err != nil {
		h.writeStateError(w, "handler.UpdateTyping", err)
		return
	}

	writeJSON(w, http.StatusOK, stateItem(state))
}

// PUT /chats/{chatID}/mute
func (h *Handler) ToggleMute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chatID")
	userID := httpmw.UserIDFromCtx(r.Context())

	var req MuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	state, err := h.presenceSvc.ToggleMuteStatus(r.Context(), userID, id, req.IsMuted)
	if err != nil {
		h.writeStateError(w, "handler.ToggleMute", err)
		return
	}

	writeJSON(w, http.StatusOK, stateItem(state))
}

// POST /chats/{chatID}/read-all
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chatID")
	userID := httpmw.UserIDFromCtx(r.Context())

	state, err := h.presenceSvc.MarkAllMessagesAsRead(r.Context(), userID, id)
	if err != nil {
		h.writeStateError(w, "handler.MarkAllRead", err)
		return
	}
	if state == nil {
		// в чате ещё нет сообщений
		writeJSON(w, http.StatusOK, map[string]string{"status": "nothing to read"})
		return
	}

	writeJSON(w, http.StatusOK, stateItem(state))
}

// GET /chats/{chatID}/can-send
func (h *Handler) CanSend(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chatID")
	userID := httpmw.UserIDFromCtx(r.Context())

	ok, reason := h.presenceSvc.CanSendMessages(r.Context(), userID, id)
	writeJSON(w, http.StatusOK, CanSendResponse{CanSend: ok, Reason: reason})
}

// POST /messages
func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())

	var req CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	content := strings.TrimSpace(req.Content)
	if req.ChatID == "" || content == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "chat_id and content required"})
		return
	}

	if ok, reason := h.presenceSvc.CanSendMessages(r.Context(), userID, req.ChatID); !ok {
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: reason})
		return
	}

	msg, err := h.messageSvc.CreateMessage(r.Context(), content, userID, req.ChatID, req.ReplyToID)
	if err != nil {
		slog.Error("handler.CreateMessage:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, messageItem(msg))
}

// GET /messages?chat_id=&sender_id=&limit=&offset=
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 50
	if s := q.Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	offset := 0
	if s := q.Get("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			offset = n
		}
	}

	msgs, err := h.messageSvc.GetMessages(r.Context(), q.Get("chat_id"), q.Get("sender_id"), limit, offset)
	if err != nil {
		slog.Error("handler.ListMessages:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	resp := MessagesListResponse{Items: make([]MessageItem, 0, len(msgs))}
	for i := range msgs {
		resp.Items = append(resp.Items, messageItem(&msgs[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GET /messages/{id}
func (h *Handler) GetMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	msg, err := h.messageSvc.GetMessageByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrMessageNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "message not found"})
			return
		}
		slog.Error("handler.GetMessage:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, messageItem(msg))
}

// POST /messages/{id}/read
func (h *Handler) MarkMessageRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := httpmw.UserIDFromCtx(r.Context())

	state, err := h.presenceSvc.MarkMessageAsRead(r.Context(), userID, id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMessageNotFound):
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "message not found"})
		case errors.Is(err, domain.ErrNotAMember):
			writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "not a member"})
		default:
			slog.Error("handler.MarkMessageRead:", slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusOK, stateItem(state))
}

// GET /notifications/unread?limit=&cursor=
func (h *Handler) GetUnreadNotifications(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	items, next, err := h.notifSvc.GetUnreadNotifications(r.Context(), userID, limit, r.URL.Query().Get("cursor"))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCursor) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_cursor"})
			return
		}
		slog.Error("handler.GetUnreadNotifications:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	resp := NotificationsResponse{Items: make([]NotificationItem, 0, len(items)), NextCursor: next}
	for i := range items {
		resp.Items = append(resp.Items, notificationItem(&items[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

// POST /notifications/{id}/read
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n := h.notifSvc.MarkAsRead(r.Context(), id)

	writeJSON(w, http.StatusOK, notificationItem(n))
}

// GET /users/me/unread-counts
func (h *Handler) GetUnreadCounts(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())
	counts, err := h.presenceSvc.GetUnreadCountsByUser(r.Context(), userID)
	if err != nil {
		slog.Error("handler.GetUnreadCounts:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	resp := UnreadCountsResponse{Items: make([]UnreadCountItem, 0, len(counts))}
	for _, c := range counts {
		resp.Items = append(resp.Items, UnreadCountItem{ChatID: c.ChatID, UnreadCount: c.UnreadCount})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeStateError(w http.ResponseWriter, where string, err error) {
	if errors.Is(err, domain.ErrNotAMember) {
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "not a member"})
		return
	}
	slog.Error(where+":", slog.Any("err", err))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}
