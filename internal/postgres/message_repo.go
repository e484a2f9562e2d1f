package postgres

import (
	"context"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, m *domain.Message) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO messages (content, sender_id, chat_id, reply_to_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, m.Content, m.SenderID, m.ChatID, m.ReplyToID).Scan(&m.ID, &m.CreatedAt)
}

// Get loads the message with its sender name, the message it replies to and
// its direct replies.
func (r *MessageRepository) Get(ctx context.Context, id string) (*domain.Message, error) {
	var m domain.Message
	err := r.db.QueryRow(ctx, `
		SELECT msg.id, msg.content, msg.sender_id, msg.chat_id, msg.reply_to_id, msg.created_at, u.name
		FROM messages msg
		JOIN users u ON u.id = msg.sender_id
		WHERE msg.id=$1
	`, id).Scan(&m.ID, &m.Content, &m.SenderID, &m.ChatID, &m.ReplyToID, &m.CreatedAt, &m.SenderName)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}

	if m.ReplyToID != nil {
		parent, err := r.Get(ctx, *m.ReplyToID)
		if err != nil && err != domain.ErrMessageNotFound {
			return nil, err
		}
		m.ReplyTo = parent
	}

	rows, err := r.db.Query(ctx, `
		SELECT msg.id, msg.content, msg.sender_id, msg.chat_id, msg.reply_to_id, msg.created_at, u.name
		FROM messages msg
		JOIN users u ON u.id = msg.sender_id
		WHERE msg.reply_to_id=$1
		ORDER BY msg.created_at ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var reply domain.Message
		if err := rows.Scan(&reply.ID, &reply.Content, &reply.SenderID, &reply.ChatID,
			&reply.ReplyToID, &reply.CreatedAt, &reply.SenderName); err != nil {
			return nil, err
		}
		m.Replies = append(m.Replies, &reply)
	}
	return &m, rows.Err()
}

// List returns a reverse-chronological page filtered by chat and/or sender.
func (r *MessageRepository) List(ctx context.Context, chatID, senderID string, limit, offset int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `
		SELECT msg.id, msg.content, msg.sender_id, msg.chat_id, msg.reply_to_id, msg.created_at, u.name
		FROM messages msg
		JOIN users u ON u.id = msg.sender_id
		WHERE ($1 = '' OR msg.chat_id::text = $1)
		  AND ($2 = '' OR msg.sender_id::text = $2)
		ORDER BY msg.created_at DESC, msg.id DESC
		LIMIT $3 OFFSET $4`
	rows, err := r.db.Query(ctx, query, chatID, senderID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.Content, &m.SenderID, &m.ChatID,
			&m.ReplyToID, &m.CreatedAt, &m.SenderName); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Latest returns the newest message of a chat or (nil, nil) for empty chats.
func (r *MessageRepository) Latest(ctx context.Context, chatID string) (*domain.Message, error) {
	var m domain.Message
	err := r.db.QueryRow(ctx, `
		SELECT id, content, sender_id, chat_id, reply_to_id, created_at
		FROM messages
		WHERE chat_id=$1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, chatID).Scan(&m.ID, &m.Content, &m.SenderID, &m.ChatID, &m.ReplyToID, &m.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}
