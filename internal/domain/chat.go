package domain

import "time"

type ChatType string

const (
	ChatTypeIndividual ChatType = "INDIVIDUAL"
	ChatTypeGroup      ChatType = "GROUP"
	ChatTypeSubgroup   ChatType = "SUBGROUP"
)

type Chat struct {
	ID        string    `db:"id"`
	Name      *string   `db:"name"`
	Type      ChatType  `db:"type"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	Members  []ChatMember `db:"-"`
	Messages []Message    `db:"-"`
}

// DisplayName returns the chat name or empty string for unnamed chats.
func (c *Chat) DisplayName() string {
	if c.Name == nil {
		return ""
	}
	return *c.Name
}

type ChatMember struct {
	ChatID   string    `db:"chat_id"`
	UserID   string    `db:"user_id"`
	JoinedAt time.Time `db:"created_at"`

	UserName string `db:"-"`
}
