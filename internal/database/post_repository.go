// internal/database/post_repository.go
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
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostDocument represents the MongoDB schema for a post.
type PostDocument struct {
	ID        string            `bson:"_id"`
	Title     string            `bson:"title"`
	Intro     string            `bson:"intro"`
	Content   string            `bson:"content"`
	ImageURL  string            `bson:"imageUrl"`
	Likes     int               `bson:"likes"`
	LikedBy   []string          `bson:"likedBy"`
	Comments  []CommentDocument `bson:"comments"`
	CreatedAt time.Time         `bson:"createdAt"`
}

// CommentDocument is the embedded comment shape inside PostDocument.
type CommentDocument struct {
	ID        string    `bson:"_id"`
	User      string    `bson:"user"`
	Username  string    `bson:"username"`
	Comment   string    `bson:"comment"`
	CreatedAt time.Time `bson:"createdAt"`
}

// postToDocument converts a Post model to a MongoDB document.
func postToDocument(post *models.Post) *PostDocument {
	doc := &PostDocument{
		ID:        post.ID.String(),
		Title:     post.Title,
		Intro:     post.Intro,
		Content:   post.Content,
		ImageURL:  post.ImageURL,
		Likes:     len(post.LikedBy),
		LikedBy:   make([]string, len(post.LikedBy)),
		Comments:  make([]CommentDocument, len(post.Comments)),
		CreatedAt: post.CreatedAt,
	}
	for i, id := range post.LikedBy {
		doc.LikedBy[i] = id.String()
	}
	for i, c := range post.Comments {
		doc.Comments[i] = commentToDocument(c)
	}
	return doc
}

func commentToDocument(c models.Comment) CommentDocument {
	return CommentDocument{
		ID:        c.ID.String(),
		User:      c.UserID.String(),
		Username:  c.Username,
		Comment:   c.Text,
		CreatedAt: c.CreatedAt,
	}
}

// documentToPost converts a MongoDB document to a Post model.
func documentToPost(doc *PostDocument) (*models.Post, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid post ID: %w", err)
	}

	likedBy := make([]uuid.UUID, 0, len(doc.LikedBy))
	for _, raw := range doc.LikedBy {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid likedBy entry on post %s: %w", doc.ID, err)
		}
		likedBy = append(likedBy, userID)
	}

	comments, err := documentsToComments(doc.Comments)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", doc.ID, err)
	}

	return &models.Post{
		ID:        id,
		Title:     doc.Title,
		Intro:     doc.Intro,
		Content:   doc.Content,
		ImageURL:  doc.ImageURL,
		CreatedAt: doc.CreatedAt,
		LikedBy:   likedBy,
		Comments:  comments,
	}, nil
}

func documentsToComments(docs []CommentDocument) ([]models.Comment, error) {
	comments := make([]models.Comment, 0, len(docs))
	for _, d := range docs {
		commentID, err := uuid.Parse(d.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid comment ID: %w", err)
		}
		userID, err := uuid.Parse(d.User)
		if err != nil {
			return nil, fmt.Errorf("invalid comment user: %w", err)
		}
		comments = append(comments, models.Comment{
			ID:        commentID,
			Username:  d.Username,
			UserID:    userID,
			Text:      d.Comment,
			CreatedAt: d.CreatedAt,
		})
	}
	return comments, nil
}

// CreatePost inserts a new post.
func (m *MongoDB) CreatePost(ctx context.Context, post *models.Post) error {
	if _, err := m.Posts.InsertOne(ctx, postToDocument(post)); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "Failed to create post", err)
	}
	return nil
}

// GetPost retrieves a post by its ID.
func (m *MongoDB) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var doc PostDocument

	err := m.Posts.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewPostNotFoundError()
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "Failed to fetch post", err)
	}

	return documentToPost(&doc)
}

// ListPosts returns every post in natural (insertion) order.
func (m *MongoDB) ListPosts(ctx context.Context) ([]*models.Post, error) {
	cursor, err := m.Posts.Find(ctx, bson.M{})
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "Failed to fetch posts", err)
	}
	defer cursor.Close(ctx)

	posts := make([]*models.Post, 0)
	for cursor.Next(ctx) {
		var doc PostDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, utils.NewAppError(utils.ErrDatabase, "Failed to decode post", err)
		}
		post, err := documentToPost(&doc)
		if err != nil {
			return nil, utils.NewAppError(utils.ErrDatabase, "Corrupt post document", err)
		}
		posts = append(posts, post)
	}

	if err := cursor.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "Cursor iteration failed", err)
	}
	return posts, nil
}

func (m *MongoDB) CountPosts(ctx context.Context) (int64, error) {
	n, err := m.Posts.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, utils.NewAppError(utils.ErrDatabase, "Failed to count posts", err)
	}
	return n, nil
}

// toggleAttempts bounds the retries when another writer flips the same like
// between the push and the pull.
const toggleAttempts = 3

// ToggleLike adds the user when absent and removes it otherwise. Each branch is
// a single conditional update, so likedBy never holds a user twice.
func (m *MongoDB) ToggleLike(ctx context.Context, postID, userID uuid.UUID) (bool, int, error) {
	pid, uid := postID.String(), userID.String()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	for attempt := 0; attempt < toggleAttempts; attempt++ {
		var doc PostDocument
		err := m.Posts.FindOneAndUpdate(ctx,
			bson.M{"_id": pid, "likedBy": bson.M{"$ne": uid}},
			bson.M{"$push": bson.M{"likedBy": uid}, "$inc": bson.M{"likes": 1}},
			opts,
		).Decode(&doc)
		if err == nil {
			return true, len(doc.LikedBy), nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return false, 0, utils.NewAppError(utils.ErrDatabase, "Failed to like post", err)
		}

		err = m.Posts.FindOneAndUpdate(ctx,
			bson.M{"_id": pid, "likedBy": uid},
			bson.M{"$pull": bson.M{"likedBy": uid}, "$inc": bson.M{"likes": -1}},
			opts,
		).Decode(&doc)
		if err == nil {
			return false, len(doc.LikedBy), nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return false, 0, utils.NewAppError(utils.ErrDatabase, "Failed to unlike post", err)
		}

		// Neither filter matched: the post is gone, or the like was removed
		// concurrently and the push is worth another try.
		if _, err := m.GetPost(ctx, postID); err != nil {
			return false, 0, err
		}
	}
	return false, 0, utils.NewAppError(utils.ErrDatabase, "Failed to toggle like", fmt.Errorf("post %s kept changing", pid))
}

// AddComment pushes a comment onto the post and returns the updated list.
func (m *MongoDB) AddComment(ctx context.Context, postID uuid.UUID, comment models.Comment) ([]models.Comment, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc PostDocument
	err := m.Posts.FindOneAndUpdate(ctx,
		bson.M{"_id": postID.String()},
		bson.M{"$push": bson.M{"comments": commentToDocument(comment)}},
		opts,
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewPostNotFoundError()
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "Failed to add comment", err)
	}

	comments, err := documentsToComments(doc.Comments)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "Corrupt comment document", err)
	}
	return comments, nil
}
