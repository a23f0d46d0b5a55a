package actors

import (
	stdctx "context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"blogging-web/internal/database"
	"blogging-web/internal/models"
	"blogging-web/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Message types for user operations
type (
	RegisterUserMsg struct {
		Username string
		Email    string
		Password string
	}

	LoginMsg struct {
		Email    string
		Password string
	}

	GetUserMsg struct {
		UserID uuid.UUID
	}

	// GetCountsMsg asks an actor for the size of its collection.
	GetCountsMsg struct{}
)

// UserActor owns account creation and credential checks.
type UserActor struct {
	store      database.Store
	metrics    *utils.MetricsCollector
	logger     *slog.Logger
	opTimeout  time.Duration
	bcryptCost int
}

func NewUserActor(store database.Store, metrics *utils.MetricsCollector, logger *slog.Logger, opTimeout time.Duration) actor.Actor {
	return &UserActor{
		store:      store,
		metrics:    metrics,
		logger:     logger.With("actor", "user"),
		opTimeout:  opTimeout,
		bcryptCost: bcrypt.DefaultCost,
	}
}

func (a *UserActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		a.logger.Debug("UserActor started")

	case *RegisterUserMsg:
		a.respond(context, "register_user", func(ctx stdctx.Context) (interface{}, error) {
			return a.handleRegister(ctx, msg)
		})

	case *LoginMsg:
		a.respond(context, "login", func(ctx stdctx.Context) (interface{}, error) {
			return a.handleLogin(ctx, msg)
		})

	case *GetUserMsg:
		a.respond(context, "get_user", func(ctx stdctx.Context) (interface{}, error) {
			return a.store.GetUser(ctx, msg.UserID)
		})

	case *GetCountsMsg:
		a.respond(context, "count_users", func(ctx stdctx.Context) (interface{}, error) {
			n, err := a.store.CountUsers(ctx)
			return int(n), err
		})
	}
}

// respond runs fn under the operation timeout, records its latency and sends
// either the result or an *utils.AppError back to the sender.
func (a *UserActor) respond(context actor.Context, op string, fn func(stdctx.Context) (interface{}, error)) {
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

func (a *UserActor) handleRegister(ctx stdctx.Context, msg *RegisterUserMsg) (*models.User, error) {
	if strings.TrimSpace(msg.Username) == "" || strings.TrimSpace(msg.Email) == "" || msg.Password == "" {
		return nil, utils.NewValidationError("All fields required!")
	}

	existing, err := a.store.GetUserByEmail(ctx, msg.Email)
	if err == nil && existing != nil {
		return nil, utils.NewAppError(utils.ErrDuplicate, "User already exists", nil)
	}
	if err != nil && !utils.IsNotFound(err) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(msg.Password), a.bcryptCost)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrInvalidInput, "Password cannot be used", err)
	}

	user, err := models.NewUser(msg.Username, msg.Email, string(hash))
	if err != nil {
		return nil, err
	}
	if err := a.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	a.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

func (a *UserActor) handleLogin(ctx stdctx.Context, msg *LoginMsg) (*models.User, error) {
	if strings.TrimSpace(msg.Email) == "" || msg.Password == "" {
		return nil, utils.NewValidationError("Email and password are required")
	}

	user, err := a.store.GetUserByEmail(ctx, msg.Email)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(msg.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, utils.NewAppError(utils.ErrInvalidCredentials, "Invalid credentials", nil)
		}
		return nil, utils.NewAppError(utils.ErrInvalidCredentials, "Invalid credentials", err)
	}
	return user, nil
}

// toAppError keeps AppErrors as they are and wraps anything else as a storage
// failure. Server-side failures are logged here since callers only see the code.
func toAppError(logger *slog.Logger, op string, err error) *utils.AppError {
	appErr, ok := utils.AsAppError(err)
	if !ok {
		appErr = utils.NewAppError(utils.ErrDatabase, "Internal server error", err)
	}
	if utils.AppErrorToHTTPStatus(appErr.Code) >= 500 {
		logger.Error("operation failed", "op", op, "error", err)
	}
	return appErr
}
