package postgres

import (
	"context"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MemberRepository struct {
	db *pgxpool.Pool
}

func NewMemberRepository(db *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) IsMember(ctx context.Context, chatID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM chat_members WHERE chat_id=$1 AND user_id=$2)`,
		chatID, userID).Scan(&exists)
	return exists, err
}

func (r *MemberRepository) Add(ctx context.Context, chatID, userID string) (*domain.ChatMember, error) {
	m := &domain.ChatMember{ChatID: chatID, UserID: userID}
	err := r.db.QueryRow(ctx, `
		INSERT INTO chat_members (chat_id, user_id)
		VALUES ($1, $2)
		RETURNING created_at
	`, chatID, userID).Scan(&m.JoinedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *MemberRepository) ListByChat(ctx context.Context, chatID string) ([]domain.ChatMember, error) {
	rows, err := r.db.Query(ctx, `
		SELECT m.chat_id, m.user_id, m.created_at, u.name
		FROM chat_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.chat_id=$1
		ORDER BY m.created_at ASC
	`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.ChatMember
	for rows.Next() {
		var m domain.ChatMember
		if err := rows.Scan(&m.ChatID, &m.UserID, &m.JoinedAt, &m.UserName); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *MemberRepository) MemberIDs(ctx context.Context, chatID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id FROM chat_members WHERE chat_id=$1`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ChatIDs returns the ids of every chat the user belongs to.
func (r *MemberRepository) ChatIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT chat_id FROM chat_members WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// OtherMemberIDs returns every member of the chat except the given user.
func (r *MemberRepository) OtherMemberIDs(ctx context.Context, chatID, excludeUserID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id FROM chat_members WHERE chat_id=$1 AND user_id<>$2`,
		chatID, excludeUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
