package domain

import "time"

type Message struct {
	ID        string    `db:"id"`
	Content   string    `db:"content"`
	SenderID  string    `db:"sender_id"`
	ChatID    string    `db:"chat_id"`
	ReplyToID *string   `db:"reply_to_id"`
	CreatedAt time.Time `db:"created_at"`

	SenderName string     `db:"-"`
	ReplyTo    *Message   `db:"-"`
	Replies    []*Message `db:"-"`
}

const previewLimit = 50

// Preview returns the content truncated for notification payloads.
// Считаем символы, не байты, чтобы не резать multibyte-текст посередине руны.
func (m *Message) Preview() string {
	r := []rune(m.Content)
	if len(r) <= previewLimit {
		return m.Content
	}
	return string(r[:previewLimit]) + "..."
}
