package database

import (
	"context"

	"blogging-web/internal/models"

	"github.com/google/uuid"
)

// Store defines the persistence operations the actors rely on. Lookups that
// miss return a *utils.AppError with a not-found code; a second user with an
// existing email returns ErrDuplicate.
type Store interface {
	Close(ctx context.Context) error

	// User methods
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CountUsers(ctx context.Context) (int64, error)

	// Post methods
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error)
	ListPosts(ctx context.Context) ([]*models.Post, error)
	CountPosts(ctx context.Context) (int64, error)

	// ToggleLike flips userID's membership in the post's liked-by set as one
	// atomic step and returns the new state.
	ToggleLike(ctx context.Context, postID, userID uuid.UUID) (liked bool, totalLikes int, err error)

	// AddComment appends a comment and returns the full updated list.
	AddComment(ctx context.Context, postID uuid.UUID, comment models.Comment) ([]models.Comment, error)
}
