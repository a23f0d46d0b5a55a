// internal/database/user_repository.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blogging-web/internal/models"
	"blogging-web/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserDocument represents the MongoDB schema for a user
type UserDocument struct {
	ID        string    `bson:"_id"`
	Username  string    `bson:"username"`
	Email     string    `bson:"email"`
	Password  string    `bson:"password"` // bcrypt hash
	Role      string    `bson:"role"`
	CreatedAt time.Time `bson:"createdAt"`
}

func userToDocument(user *models.User) *UserDocument {
	return &UserDocument{
		ID:        user.ID.String(),
		Username:  user.Username,
		Email:     user.Email,
		Password:  user.HashedPassword,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

func documentToUser(doc *UserDocument) (*models.User, error) {
	userID, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID in database: %w", err)
	}
	role := doc.Role
	if role == "" {
		role = models.DefaultRole
	}
	return &models.User{
		ID:             userID,
		Username:       doc.Username,
		Email:          doc.Email,
		HashedPassword: doc.Password,
		Role:           role,
		CreatedAt:      doc.CreatedAt,
	}, nil
}

// CreateUser inserts a new user. The unique email index turns a concurrent
// duplicate signup into ErrDuplicate.
func (m *MongoDB) CreateUser(ctx context.Context, user *models.User) error {
	_, err := m.Users.InsertOne(ctx, userToDocument(user))
	if mongo.IsDuplicateKeyError(err) {
		return utils.NewAppError(utils.ErrDuplicate, "User already exists", err)
	}
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "Failed to save user", err)
	}
	return nil
}

// GetUser retrieves a user from MongoDB by their ID
func (m *MongoDB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return m.findUser(ctx, bson.M{"_id": id.String()})
}

// GetUserByEmail retrieves a user from MongoDB by their email address
func (m *MongoDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"email": models.NormalizeEmail(email)})
}

func (m *MongoDB) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc UserDocument
	err := m.Users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewUserNotFoundError()
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "Failed to fetch user", err)
	}
	return documentToUser(&doc)
}

func (m *MongoDB) CountUsers(ctx context.Context) (int64, error) {
	n, err := m.Users.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, utils.NewAppError(utils.ErrDatabase, "Failed to count users", err)
	}
	return n, nil
}
