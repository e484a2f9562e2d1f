package postgres

import (
	"context"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChatRepository struct {
	db *pgxpool.Pool
}

func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

// Create persists the chat together with its memberships in one transaction.
func (r *ChatRepository) Create(ctx context.Context, chat *domain.Chat, memberIDs []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO chats (name, type)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, query, chat.Name, chat.Type).
		Scan(&chat.ID, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
		return err
	}

	for _, userID := range memberIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO chat_members (chat_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, chat.ID, userID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *ChatRepository) Get(ctx context.Context, id string) (*domain.Chat, error) {
	var c domain.Chat
	query := `SELECT id, name, type, created_at, updated_at FROM chats WHERE id=$1`
	err := r.db.QueryRow(ctx, query, id).
		Scan(&c.ID, &c.Name, &c.Type, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrChatNotFound
		}
		return nil, err
	}
	return &c, nil
}

// GetWithHistory loads the chat, its members and the ordered message history.
func (r *ChatRepository) GetWithHistory(ctx context.Context, id string) (*domain.Chat, error) {
	chat, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT m.chat_id, m.user_id, m.created_at, u.name
		FROM chat_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.chat_id=$1
		ORDER BY m.created_at ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var m domain.ChatMember
		if err := rows.Scan(&m.ChatID, &m.UserID, &m.JoinedAt, &m.UserName); err != nil {
			return nil, err
		}
		chat.Members = append(chat.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	msgRows, err := r.db.Query(ctx, `
		SELECT msg.id, msg.content, msg.sender_id, msg.chat_id, msg.reply_to_id, msg.created_at, u.name
		FROM messages msg
		JOIN users u ON u.id = msg.sender_id
		WHERE msg.chat_id=$1
		ORDER BY msg.created_at ASC, msg.id ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer msgRows.Close()
	for msgRows.Next() {
		var m domain.Message
		if err := msgRows.Scan(&m.ID, &m.Content, &m.SenderID, &m.ChatID, &m.ReplyToID, &m.CreatedAt, &m.SenderName); err != nil {
			return nil, err
		}
		chat.Messages = append(chat.Messages, m)
	}
	return chat, msgRows.Err()
}

// ListByUser returns the chats a user belongs to, skipping chats the user
// has soft-deleted, each with its most recent message attached.
func (r *ChatRepository) ListByUser(ctx context.Context, userID string) ([]domain.Chat, error) {
	query := `
		SELECT c.id, c.name, c.type, c.created_at, c.updated_at
		FROM chats c
		JOIN chat_members m ON m.chat_id = c.id AND m.user_id = $1
		LEFT JOIN chat_user_states s ON s.chat_id = c.id AND s.user_id = $1
		WHERE s.is_deleted IS DISTINCT FROM TRUE
		ORDER BY c.updated_at DESC, c.id DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []domain.Chat
	for rows.Next() {
		var c domain.Chat
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range chats {
		var m domain.Message
		err := r.db.QueryRow(ctx, `
			SELECT id, content, sender_id, chat_id, reply_to_id, created_at
			FROM messages
			WHERE chat_id=$1
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		`, chats[i].ID).Scan(&m.ID, &m.Content, &m.SenderID, &m.ChatID, &m.ReplyToID, &m.CreatedAt)
		if err != nil {
			if err == pgx.ErrNoRows {
				continue
			}
			return nil, err
		}
		chats[i].Messages = []domain.Message{m}
	}

	return chats, nil
}

// FindIndividual looks up the INDIVIDUAL chat whose full membership set is
// exactly {userA, userB}. Returns (nil, nil) when no such chat exists.
func (r *ChatRepository) FindIndividual(ctx context.Context, userA, userB string) (*domain.Chat, error) {
	var c domain.Chat
	query := `
		SELECT c.id, c.name, c.type, c.created_at, c.updated_at
		FROM chats c
		WHERE c.type = 'INDIVIDUAL'
		  AND EXISTS (SELECT 1 FROM chat_members m WHERE m.chat_id = c.id AND m.user_id = $1)
		  AND EXISTS (SELECT 1 FROM chat_members m WHERE m.chat_id = c.id AND m.user_id = $2)
		  AND (SELECT COUNT(*) FROM chat_members m WHERE m.chat_id = c.id) = 2
		LIMIT 1`
	err := r.db.QueryRow(ctx, query, userA, userB).
		Scan(&c.ID, &c.Name, &c.Type, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// HardDelete removes the chat and every dependent row in one transaction,
// children before the parent.
func (r *ChatRepository) HardDelete(ctx context.Context, chatID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	steps := []string{
		`DELETE FROM notifications WHERE chat_id=$1`,
		`DELETE FROM messages WHERE chat_id=$1`,
		`DELETE FROM chat_user_states WHERE chat_id=$1`,
		`DELETE FROM chat_members WHERE chat_id=$1`,
		`DELETE FROM chats WHERE id=$1`,
	}
	for _, q := range steps {
		if _, err := tx.Exec(ctx, q, chatID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
