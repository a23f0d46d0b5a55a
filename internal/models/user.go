package models

import (
	"strings"
	"time"

	"blogging-web/internal/utils"

	"github.com/google/uuid"
)

// DefaultRole is assigned to every account created through signup.
const DefaultRole = "user"

type User struct {
	ID             uuid.UUID `json:"_id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewUser validates the signup fields and returns a user with a fresh ID.
// The email is trimmed and lower-cased so lookups are case-insensitive.
func NewUser(username, email, hashedPassword string) (*User, error) {
	username = strings.TrimSpace(username)
	email = NormalizeEmail(email)
	if username == "" || email == "" || hashedPassword == "" {
		return nil, utils.NewValidationError("All fields required!")
	}

	return &User{
		ID:             uuid.New(),
		Username:       username,
		Email:          email,
		HashedPassword: hashedPassword,
		Role:           DefaultRole,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
