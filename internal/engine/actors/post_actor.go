package actors

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"blogging-web/internal/database"
	"blogging-web/internal/models"
	"blogging-web/internal/utils"
	"blogging-web/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Message types for Post operations
type (
	CreatePostMsg struct {
		Title    string
		Intro    string
		Content  string
		ImageURL string
	}

	ListPostsMsg struct{}

	GetPostMsg struct {
		PostID uuid.UUID
	}

	ToggleLikeMsg struct {
		PostID uuid.UUID
		UserID uuid.UUID
	}

	// Username may be empty, in which case it is looked up from UserID.
	AddCommentMsg struct {
		PostID   uuid.UUID
		UserID   uuid.UUID
		Username string
		Text     string
	}
)

// LikeResult is the reply to ToggleLikeMsg.
type LikeResult struct {
	Liked      bool
	TotalLikes int
}

// PostActor handles post-related operations. It processes one message at a
// time, so mutations of the same post never interleave inside this process.
type PostActor struct {
	store     database.Store
	events    websocket.Publisher
	metrics   *utils.MetricsCollector
	logger    *slog.Logger
	opTimeout time.Duration
}

// NewPostActor creates a new PostActor instance. events may be nil.
func NewPostActor(store database.Store, events websocket.Publisher, metrics *utils.MetricsCollector, logger *slog.Logger, opTimeout time.Duration) actor.Actor {
	return &PostActor{
		store:     store,
		events:    events,
		metrics:   metrics,
		logger:    logger.With("actor", "post"),
		opTimeout: opTimeout,
	}
}

// Receive handles incoming messages
func (a *PostActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		a.logger.Debug("PostActor started")

	case *actor.Stopping:
		a.logger.Debug("PostActor stopping")

	case *CreatePostMsg:
		a.respond(context, "create_post", func(ctx stdctx.Context) (interface{}, error) {
			return a.handleCreatePost(ctx, msg)
		})

	case *ListPostsMsg:
		a.respond(context, "list_posts", func(ctx stdctx.Context) (interface{}, error) {
			return a.store.ListPosts(ctx)
		})

	case *GetPostMsg:
		a.respond(context, "get_post", func(ctx stdctx.Context) (interface{}, error) {
			return a.store.GetPost(ctx, msg.PostID)
		})

	case *ToggleLikeMsg:
		a.respond(context, "toggle_like", func(ctx stdctx.Context) (interface{}, error) {
			return a.handleToggleLike(ctx, msg)
		})

	case *AddCommentMsg:
		a.respond(context, "add_comment", func(ctx stdctx.Context) (interface{}, error) {
			return a.handleAddComment(ctx, msg)
		})

	case *GetCountsMsg:
		a.respond(context, "count_posts", func(ctx stdctx.Context) (interface{}, error) {
			n, err := a.store.CountPosts(ctx)
			return int(n), err
		})

	default:
		a.logger.Debug("unknown message type", "type", fmt.Sprintf("%T", msg))
	}
}

func (a *PostActor) respond(context actor.Context, op string, fn func(stdctx.Context) (interface{}, error)) {
	startTime := time.Now()
	ctx, cancel := stdctx.WithTimeout(stdctx.Background(), a.opTimeout)
	defer cancel()

	result, err := fn(ctx)
	a.metrics.AddOperationLatency(op, time.Since(startTime))
	if err != nil {
		context.Respond(toAppError(a.logger, op, err))
		return
	}
	context.Respond(result)
}

func (a *PostActor) handleCreatePost(ctx stdctx.Context, msg *CreatePostMsg) (*models.Post, error) {
	post, err := models.NewPost(msg.Title, msg.Intro, msg.Content, msg.ImageURL)
	if err != nil {
		return nil, err
	}
	if err := a.store.CreatePost(ctx, post); err != nil {
		return nil, err
	}

	a.logger.Info("post created", "post_id", post.ID)
	a.publish(websocket.Event{Type: websocket.EventPostCreated, PostID: post.ID})
	return post, nil
}

func (a *PostActor) handleToggleLike(ctx stdctx.Context, msg *ToggleLikeMsg) (*LikeResult, error) {
	if msg.UserID == uuid.Nil {
		return nil, utils.NewValidationError("userId is required")
	}

	liked, total, err := a.store.ToggleLike(ctx, msg.PostID, msg.UserID)
	if err != nil {
		return nil, err
	}

	eventType := websocket.EventPostUnliked
	if liked {
		eventType = websocket.EventPostLiked
	}
	a.publish(websocket.Event{Type: eventType, PostID: msg.PostID, UserID: msg.UserID, TotalLikes: &total})
	return &LikeResult{Liked: liked, TotalLikes: total}, nil
}

func (a *PostActor) handleAddComment(ctx stdctx.Context, msg *AddCommentMsg) ([]models.Comment, error) {
	if strings.TrimSpace(msg.Text) == "" {
		return nil, utils.NewValidationError("Comment is required")
	}
	if msg.UserID == uuid.Nil {
		return nil, utils.NewValidationError("userId is required")
	}

	if _, err := a.store.GetPost(ctx, msg.PostID); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(msg.Username)
	if username == "" {
		user, err := a.store.GetUser(ctx, msg.UserID)
		if err != nil {
			return nil, err
		}
		username = user.Username
	}

	comment, err := models.NewComment(msg.UserID, username, msg.Text)
	if err != nil {
		return nil, err
	}
	comments, err := a.store.AddComment(ctx, msg.PostID, comment)
	if err != nil {
		return nil, err
	}

	a.publish(websocket.Event{Type: websocket.EventCommentAdded, PostID: msg.PostID, UserID: msg.UserID})
	return comments, nil
}

func (a *PostActor) publish(event websocket.Event) {
	if a.events != nil {
		a.events.Publish(event)
	}
}
