package ws

// Типы событий, которые поступают от клиента
const (
	TypeAuthenticate = "authenticate" // привязка соединения к пользователю
	TypeJoinChat     = "join_chat"    // вход в комнату чата
	TypeLeaveChat    = "leave_chat"   // выход из комнаты
	TypeNewMessage   = "new_message"  // отправка сообщения
	TypeTyping       = "typing"       // индикатор набора
	TypeMarkRead     = "mark_read"    // отметка о прочтении
	TypeError        = "error"        // только исходящее
)

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type AuthPayload struct {
	UserID string `json:"user_id"`
}

type JoinChatPayload struct {
	ChatID string `json:"chat_id"`
}

type NewMessageInPayload struct {
	ChatID    string  `json:"chat_id"`
	Content   string  `json:"content"`
	ReplyToID *string `json:"reply_to_id,omitempty"`
}

type TypingInPayload struct {
	ChatID   string `json:"chat_id"`
	IsTyping bool   `json:"is_typing"`
}

type MarkReadPayload struct {
	MessageID string `json:"message_id"`
}

type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
