package database

import (
	"context"
	"sync"

	"blogging-web/internal/models"
	"blogging-web/internal/utils"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process memory. It is selected with
// DB_TYPE=memory and backs the actor and handler tests.
type MemoryStore struct {
	mu sync.RWMutex

	users       map[uuid.UUID]*models.User
	emailToUser map[string]uuid.UUID

	posts     map[uuid.UUID]*models.Post
	postOrder []uuid.UUID
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[uuid.UUID]*models.User),
		emailToUser: make(map[string]uuid.UUID),
		posts:       make(map[uuid.UUID]*models.Post),
	}
}

func (s *MemoryStore) Close(context.Context) error { return nil }

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := models.NormalizeEmail(user.Email)
	if _, exists := s.emailToUser[email]; exists {
		return utils.NewAppError(utils.ErrDuplicate, "User already exists", nil)
	}
	cp := *user
	s.users[user.ID] = &cp
	s.emailToUser[email] = user.ID
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, utils.NewUserNotFoundError()
	}
	cp := *user
	return &cp, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emailToUser[models.NormalizeEmail(email)]
	if !ok {
		return nil, utils.NewUserNotFoundError()
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *MemoryStore) CountUsers(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

func (s *MemoryStore) CreatePost(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.posts[post.ID]; exists {
		return utils.NewAppError(utils.ErrDuplicate, "Post already exists", nil)
	}
	s.posts[post.ID] = post.Clone()
	s.postOrder = append(s.postOrder, post.ID)
	return nil
}

func (s *MemoryStore) GetPost(_ context.Context, id uuid.UUID) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, utils.NewPostNotFoundError()
	}
	return post.Clone(), nil
}

func (s *MemoryStore) ListPosts(context.Context) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := make([]*models.Post, 0, len(s.postOrder))
	for _, id := range s.postOrder {
		posts = append(posts, s.posts[id].Clone())
	}
	return posts, nil
}

func (s *MemoryStore) CountPosts(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.posts)), nil
}

func (s *MemoryStore) ToggleLike(_ context.Context, postID, userID uuid.UUID) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return false, 0, utils.NewPostNotFoundError()
	}
	liked := post.ToggleLike(userID)
	return liked, post.TotalLikes(), nil
}

func (s *MemoryStore) AddComment(_ context.Context, postID uuid.UUID, comment models.Comment) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return nil, utils.NewPostNotFoundError()
	}
	post.Comments = append(post.Comments, comment)
	return append([]models.Comment{}, post.Comments...), nil
}
