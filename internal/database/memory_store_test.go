package database

import (
	"context"
	"sync"
	"testing"

	"blogging-web/internal/models"
	"blogging-web/internal/utils"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeUser(t *testing.T) *models.User {
	t.Helper()
	user, err := models.NewUser(gofakeit.Username(), gofakeit.Email(), "hash")
	require.NoError(t, err)
	return user
}

func newFakePost(t *testing.T) *models.Post {
	t.Helper()
	post, err := models.NewPost(gofakeit.Sentence(5), gofakeit.Sentence(8), gofakeit.Paragraph(2, 3, 10, " "), "/uploads/"+gofakeit.UUID()+".png")
	require.NoError(t, err)
	return post
}

func TestMemoryStoreUsers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	user := newFakeUser(t)

	require.NoError(t, store.CreateUser(ctx, user))

	got, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)

	byEmail, err := store.GetUserByEmail(ctx, "  "+user.Email+" ")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	dup := *user
	dup.ID = uuid.New()
	err = store.CreateUser(ctx, &dup)
	assert.True(t, utils.IsErrorCode(err, utils.ErrDuplicate))

	n, err := store.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.GetUser(ctx, uuid.New())
	assert.True(t, utils.IsErrorCode(err, utils.ErrUserNotFound))
}

func TestMemoryStorePostsKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		post := newFakePost(t)
		ids = append(ids, post.ID)
		require.NoError(t, store.CreatePost(ctx, post))
	}

	posts, err := store.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	for i, p := range posts {
		assert.Equal(t, ids[i], p.ID)
	}

	_, err = store.GetPost(ctx, uuid.New())
	assert.True(t, utils.IsErrorCode(err, utils.ErrPostNotFound))
}

func TestMemoryStoreToggleLikeTwiceRestoresState(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	post := newFakePost(t)
	require.NoError(t, store.CreatePost(ctx, post))
	userID := uuid.New()

	liked, total, err := store.ToggleLike(ctx, post.ID, userID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 1, total)

	liked, total, err = store.ToggleLike(ctx, post.ID, userID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, 0, total)

	got, err := store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, got.LikedBy)

	_, _, err = store.ToggleLike(ctx, uuid.New(), userID)
	assert.True(t, utils.IsNotFound(err))
}

func TestMemoryStoreConcurrentLikesAreNotLost(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	post := newFakePost(t)
	require.NoError(t, store.CreatePost(ctx, post))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := store.ToggleLike(ctx, post.ID, uuid.New())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.TotalLikes())
}

func TestMemoryStoreAddComment(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	post := newFakePost(t)
	require.NoError(t, store.CreatePost(ctx, post))

	c, err := models.NewComment(uuid.New(), "alice", "hello")
	require.NoError(t, err)

	comments, err := store.AddComment(ctx, post.ID, c)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "hello", comments[0].Text)

	// returned slice is a copy
	comments[0].Text = "mutated"
	got, err := store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Comments[0].Text)

	_, err = store.AddComment(ctx, uuid.New(), c)
	assert.True(t, utils.IsNotFound(err))
}
