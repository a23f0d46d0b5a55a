package models

import (
	"strings"
	"time"

	"blogging-web/internal/utils"

	"github.com/google/uuid"
)

// Comment is embedded in its Post and has no lifecycle of its own.
// Username is copied from the author at write time.
type Comment struct {
	ID        uuid.UUID `json:"_id"`
	Username  string    `json:"username"`
	UserID    uuid.UUID `json:"user"`
	Text      string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewComment(userID uuid.UUID, username, text string) (Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Comment{}, utils.NewValidationError("Comment is required")
	}
	if userID == uuid.Nil {
		return Comment{}, utils.NewValidationError("userId is required")
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return Comment{}, utils.NewValidationError("username is required")
	}

	return Comment{
		ID:        uuid.New(),
		Username:  username,
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}, nil
}
