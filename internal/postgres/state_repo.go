package postgres

import (
	"context"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StateRepository owns chat_user_states. Every write is an
// INSERT ... ON CONFLICT (user_id, chat_id) DO UPDATE so concurrent
// first-touch writers can never produce two rows for the same pair.
type StateRepository struct {
	db *pgxpool.Pool
}

func NewStateRepository(db *pgxpool.Pool) *StateRepository {
	return &StateRepository{db: db}
}

const stateColumns = `id, user_id, chat_id, is_online, last_seen, is_typing,
	last_typing_at, last_read_message_id, unread_count, is_muted, is_deleted, deleted_at`

func scanState(row pgx.Row) (*domain.ChatUserState, error) {
	var s domain.ChatUserState
	err := row.Scan(&s.ID, &s.UserID, &s.ChatID, &s.IsOnline, &s.LastSeen, &s.IsTyping,
		&s.LastTypingAt, &s.LastReadMessageID, &s.UnreadCount, &s.IsMuted, &s.IsDeleted, &s.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StateRepository) UpsertPresence(ctx context.Context, userID, chatID string, isOnline bool) (*domain.ChatUserState, error) {
	return scanState(r.db.QueryRow(ctx, `
		INSERT INTO chat_user_states (user_id, chat_id, is_online, last_seen)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, chat_id) DO UPDATE
		SET is_online = $3, last_seen = now()
		RETURNING `+stateColumns,
		userID, chatID, isOnline))
}

// UpsertTyping updates the typing flag; a typing user is always online and
// last_typing_at only advances while typing is on.
func (r *StateRepository) UpsertTyping(ctx context.Context, userID, chatID string, isTyping bool) (*domain.ChatUserState, error) {
	return scanState(r.db.QueryRow(ctx, `
		INSERT INTO chat_user_states (user_id, chat_id, is_typing, last_typing_at, is_online, last_seen)
		VALUES ($1, $2, $3, CASE WHEN $3 THEN now() END, TRUE, now())
		ON CONFLICT (user_id, chat_id) DO UPDATE
		SET is_typing      = $3,
		    last_typing_at = CASE WHEN $3 THEN now() ELSE chat_user_states.last_typing_at END,
		    is_online      = TRUE,
		    last_seen      = now()
		RETURNING `+stateColumns,
		userID, chatID, isTyping))
}

func (r *StateRepository) UpsertRead(ctx context.Context, userID, chatID, messageID string) (*domain.ChatUserState, error) {
	return scanState(r.db.QueryRow(ctx, `
		INSERT INTO chat_user_states (user_id, chat_id, last_read_message_id, unread_count, is_online, last_seen)
		VALUES ($1, $2, $3, 0, TRUE, now())
		ON CONFLICT (user_id, chat_id) DO UPDATE
		SET last_read_message_id = $3,
		    unread_count         = 0,
		    is_online            = TRUE,
		    last_seen            = now()
		RETURNING `+stateColumns,
		userID, chatID, messageID))
}

// IncrementUnread bumps the unread counter atomically, creating the row at 1
// when it does not exist yet.
func (r *StateRepository) IncrementUnread(ctx context.Context, userID, chatID string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO chat_user_states (user_id, chat_id, unread_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, chat_id) DO UPDATE
		SET unread_count = chat_user_states.unread_count + 1
	`, userID, chatID)
	return err
}

func (r *StateRepository) UpsertMute(ctx context.Context, userID, chatID string, isMuted bool) (*domain.ChatUserState, error) {
	return scanState(r.db.QueryRow(ctx, `
		INSERT INTO chat_user_states (user_id, chat_id, is_muted)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, chat_id) DO UPDATE
		SET is_muted = $3
		RETURNING `+stateColumns,
		userID, chatID, isMuted))
}

// UpsertDeleted flips the per-user soft-delete flag. deleted_at is set when
// deleting and cleared on restore.
func (r *StateRepository) UpsertDeleted(ctx context.Context, userID, chatID string, isDeleted bool) (*domain.ChatUserState, error) {
	return scanState(r.db.QueryRow(ctx, `
		INSERT INTO chat_user_states (user_id, chat_id, is_deleted, deleted_at)
		VALUES ($1, $2, $3, CASE WHEN $3 THEN now() END)
		ON CONFLICT (user_id, chat_id) DO UPDATE
		SET is_deleted = $3,
		    deleted_at = CASE WHEN $3 THEN now() END
		RETURNING `+stateColumns,
		userID, chatID, isDeleted))
}

// Get returns (nil, nil) when no state row exists for the pair yet.
func (r *StateRepository) Get(ctx context.Context, userID, chatID string) (*domain.ChatUserState, error) {
	s, err := scanState(r.db.QueryRow(ctx,
		`SELECT `+stateColumns+` FROM chat_user_states WHERE user_id=$1 AND chat_id=$2`,
		userID, chatID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *StateRepository) ListByChat(ctx context.Context, chatID string) ([]domain.ChatUserState, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.id, s.user_id, s.chat_id, s.is_online, s.last_seen, s.is_typing,
		       s.last_typing_at, s.last_read_message_id, s.unread_count, s.is_muted,
		       s.is_deleted, s.deleted_at, u.name
		FROM chat_user_states s
		JOIN users u ON u.id = s.user_id
		WHERE s.chat_id=$1
		ORDER BY u.name ASC
	`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.ChatUserState
	for rows.Next() {
		var s domain.ChatUserState
		if err := rows.Scan(&s.ID, &s.UserID, &s.ChatID, &s.IsOnline, &s.LastSeen, &s.IsTyping,
			&s.LastTypingAt, &s.LastReadMessageID, &s.UnreadCount, &s.IsMuted,
			&s.IsDeleted, &s.DeletedAt, &s.UserName); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// ListUnreadByUser returns per-chat unread counts for chats the user has
// not soft-deleted.
func (r *StateRepository) ListUnreadByUser(ctx context.Context, userID string) ([]domain.ChatUnread, error) {
	rows, err := r.db.Query(ctx, `
		SELECT chat_id, unread_count
		FROM chat_user_states
		WHERE user_id=$1 AND is_deleted=FALSE AND unread_count > 0
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.ChatUnread
	for rows.Next() {
		var u domain.ChatUnread
		if err := rows.Scan(&u.ChatID, &u.UnreadCount); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// DeletedMemberIDs lists members who soft-deleted the chat, excluding one user.
func (r *StateRepository) DeletedMemberIDs(ctx context.Context, chatID, excludeUserID string) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id FROM chat_user_states
		WHERE chat_id=$1 AND user_id<>$2 AND is_deleted=TRUE
	`, chatID, excludeUserID)
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

// AllMembersDeleted reports whether every current member has soft-deleted
// the chat. Members with no state row count as not deleted.
func (r *StateRepository) AllMembersDeleted(ctx context.Context, chatID string) (bool, error) {
	var all bool
	err := r.db.QueryRow(ctx, `
		SELECT NOT EXISTS (
			SELECT 1
			FROM chat_members m
			LEFT JOIN chat_user_states s ON s.chat_id = m.chat_id AND s.user_id = m.user_id
			WHERE m.chat_id=$1 AND s.is_deleted IS DISTINCT FROM TRUE
		)
	`, chatID).Scan(&all)
	return all, err
}

// ExpiredTyping returns rows still flagged as typing whose last keystroke is
// older than the cutoff.
func (r *StateRepository) ExpiredTyping(ctx context.Context, cutoff time.Time) ([]domain.ChatUserState, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, chat_id
		FROM chat_user_states
		WHERE is_typing=TRUE AND last_typing_at < $1
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.ChatUserState
	for rows.Next() {
		var s domain.ChatUserState
		if err := rows.Scan(&s.ID, &s.UserID, &s.ChatID); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *StateRepository) ClearTyping(ctx context.Context, stateID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE chat_user_states SET is_typing=FALSE WHERE id=$1`, stateID)
	return err
}
