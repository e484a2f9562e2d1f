package domain

import "errors"

var (
	ErrNotAMember         = errors.New("user is not a member of this chat")
	ErrInvalidMemberCount = errors.New("individual chats must have exactly 2 members")
	ErrDuplicateChat      = errors.New("individual chat between these users already exists")
	ErrForbidden          = errors.New("operation requires admin role")
	ErrChatNotFound       = errors.New("chat not found")
	ErrMessageNotFound    = errors.New("message not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCursor      = errors.New("invalid cursor")

	ErrPersistenceUnavailable = errors.New("persistence layer unavailable")
)
