package database

import (
	"context"
	"testing"
	"time"

	"blogging-web/internal/models"
	"blogging-web/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func mockStore(mt *mtest.T) *MongoDB {
	return &MongoDB{Client: mt.Client, Users: mt.Coll, Posts: mt.Coll}
}

func namespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func userDoc(id uuid.UUID, email string) bson.D {
	return bson.D{
		{Key: "_id", Value: id.String()},
		{Key: "username", Value: "alice"},
		{Key: "email", Value: email},
		{Key: "password", Value: "$2a$10$hash"},
		{Key: "role", Value: "user"},
		{Key: "createdAt", Value: time.Now().UTC()},
	}
}

func postDoc(id uuid.UUID, likedBy ...string) bson.D {
	if likedBy == nil {
		likedBy = []string{}
	}
	return bson.D{
		{Key: "_id", Value: id.String()},
		{Key: "title", Value: "First"},
		{Key: "intro", Value: "Intro"},
		{Key: "content", Value: "Body"},
		{Key: "imageUrl", Value: "/uploads/a.png"},
		{Key: "likes", Value: len(likedBy)},
		{Key: "likedBy", Value: likedBy},
		{Key: "comments", Value: bson.A{}},
		{Key: "createdAt", Value: time.Now().UTC()},
	}
}

func TestMongoUserRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create user", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		user, err := models.NewUser("alice", "alice@example.com", "hash")
		require.NoError(mt, err)
		assert.NoError(mt, mockStore(mt).CreateUser(ctx, user))
	})

	mt.Run("duplicate email", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: users index: email_unique",
		}))
		user, err := models.NewUser("alice", "alice@example.com", "hash")
		require.NoError(mt, err)
		err = mockStore(mt).CreateUser(ctx, user)
		assert.True(mt, utils.IsErrorCode(err, utils.ErrDuplicate))
	})

	mt.Run("find by email", func(mt *mtest.T) {
		id := uuid.New()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, userDoc(id, "alice@example.com")))
		user, err := mockStore(mt).GetUserByEmail(ctx, "Alice@Example.com")
		require.NoError(mt, err)
		assert.Equal(mt, id, user.ID)
		assert.Equal(mt, "$2a$10$hash", user.HashedPassword)
	})

	mt.Run("user not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))
		_, err := mockStore(mt).GetUser(ctx, uuid.New())
		assert.True(mt, utils.IsErrorCode(err, utils.ErrUserNotFound))
	})

	mt.Run("count users", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(4)}))
		n, err := mockStore(mt).CountUsers(ctx)
		require.NoError(mt, err)
		assert.Equal(mt, int64(4), n)
	})
}

func TestMongoPostRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("list posts", func(mt *mtest.T) {
		first, second := uuid.New(), uuid.New()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			postDoc(first), postDoc(second)))
		posts, err := mockStore(mt).ListPosts(ctx)
		require.NoError(mt, err)
		require.Len(mt, posts, 2)
		assert.Equal(mt, first, posts[0].ID)
		assert.Equal(mt, second, posts[1].ID)
	})

	mt.Run("get missing post", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))
		_, err := mockStore(mt).GetPost(ctx, uuid.New())
		assert.True(mt, utils.IsErrorCode(err, utils.ErrPostNotFound))
	})

	mt.Run("toggle like adds user", func(mt *mtest.T) {
		postID, userID := uuid.New(), uuid.New()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: postDoc(postID, userID.String())},
		))
		liked, total, err := mockStore(mt).ToggleLike(ctx, postID, userID)
		require.NoError(mt, err)
		assert.True(mt, liked)
		assert.Equal(mt, 1, total)
	})

	mt.Run("toggle like removes user", func(mt *mtest.T) {
		postID, userID := uuid.New(), uuid.New()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: postDoc(postID)}),
		)
		liked, total, err := mockStore(mt).ToggleLike(ctx, postID, userID)
		require.NoError(mt, err)
		assert.False(mt, liked)
		assert.Equal(mt, 0, total)
	})

	mt.Run("toggle like on missing post", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch),
		)
		_, _, err := mockStore(mt).ToggleLike(ctx, uuid.New(), uuid.New())
		assert.True(mt, utils.IsErrorCode(err, utils.ErrPostNotFound))
	})

	mt.Run("toggle like retries when the like vanishes mid-toggle", func(mt *mtest.T) {
		postID, userID := uuid.New(), uuid.New()
		mt.AddMockResponses(
			// push misses: the user already liked the post
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			// pull misses: another writer removed the like first
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, postDoc(postID)),
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: postDoc(postID, userID.String())}),
		)
		liked, total, err := mockStore(mt).ToggleLike(ctx, postID, userID)
		require.NoError(mt, err)
		assert.True(mt, liked)
		assert.Equal(mt, 1, total)
	})

	mt.Run("add comment", func(mt *mtest.T) {
		postID, userID := uuid.New(), uuid.New()
		c, err := models.NewComment(userID, "alice", "hello")
		require.NoError(mt, err)

		doc := postDoc(postID)
		doc[7] = bson.E{Key: "comments", Value: bson.A{bson.D{
			{Key: "_id", Value: c.ID.String()},
			{Key: "user", Value: userID.String()},
			{Key: "username", Value: "alice"},
			{Key: "comment", Value: "hello"},
			{Key: "createdAt", Value: c.CreatedAt},
		}}}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: doc}))

		comments, err := mockStore(mt).AddComment(ctx, postID, c)
		require.NoError(mt, err)
		require.Len(mt, comments, 1)
		assert.Equal(mt, "alice", comments[0].Username)
		assert.Equal(mt, userID, comments[0].UserID)
	})
}
