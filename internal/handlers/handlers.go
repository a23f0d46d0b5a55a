package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"blogging-web/internal/api"
	"blogging-web/internal/config"
	"blogging-web/internal/engine"
	"blogging-web/internal/middleware"
	"blogging-web/internal/storage"
	"blogging-web/internal/utils"
	"blogging-web/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
)

const maxJSONBody = 1 << 20

// Server holds all server dependencies, including the actor system and engine
type Server struct {
	System         *actor.ActorSystem
	Context        *actor.RootContext
	Engine         *engine.Engine
	Hub            *websocket.Hub
	Images         *storage.ImageStore
	Tokens         *middleware.TokenService
	Cookies        middleware.CookiePolicy
	Auth           *middleware.Authenticator
	Metrics        *utils.MetricsCollector
	Logger         *slog.Logger
	RequestTimeout time.Duration
	AllowedOrigins []string
	MetricsEnabled bool
}

// NewServer creates a new Server instance with the given components
func NewServer(
	system *actor.ActorSystem,
	eng *engine.Engine,
	hub *websocket.Hub,
	images *storage.ImageStore,
	tokens *middleware.TokenService,
	metrics *utils.MetricsCollector,
	logger *slog.Logger,
	cfg *config.Config,
) *Server {
	return &Server{
		System:         system,
		Context:        system.Root,
		Engine:         eng,
		Hub:            hub,
		Images:         images,
		Tokens:         tokens,
		Cookies:        middleware.CookiePolicy{Production: cfg.IsProduction(), MaxAge: tokens.TTL()},
		Auth:           middleware.NewAuthenticator(tokens, logger),
		Metrics:        metrics,
		Logger:         logger,
		RequestTimeout: cfg.Server.RequestTimeout,
		AllowedOrigins: cfg.AllowedOrigins,
		MetricsEnabled: cfg.Server.MetricsEnabled,
	}
}

// Routes registers every endpoint and wraps the mux in logging and CORS.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Auth
	mux.HandleFunc("POST /api/auth/signup", s.HandleSignup())
	mux.HandleFunc("POST /api/auth/signin", s.HandleSignin())
	mux.HandleFunc("POST /api/auth/signout", s.HandleSignout())
	mux.HandleFunc("GET /api/auth/me", s.Auth.RequireSession(s.HandleMe()))

	// Posts
	mux.HandleFunc("POST /api/posts", s.HandleCreatePost())
	mux.HandleFunc("GET /api/posts/all-posts", s.HandleListPosts())
	mux.HandleFunc("GET /api/posts/single-post/{id}", s.HandleGetPost())
	mux.HandleFunc("POST /api/posts/{postId}/like-post", s.Auth.OptionalSession(s.HandleLikePost()))
	mux.HandleFunc("POST /api/posts/{postId}/comment", s.Auth.OptionalSession(s.HandleComment()))
	mux.HandleFunc("GET /api/posts/live", s.HandleLive())

	mux.HandleFunc("GET /health", s.HandleHealth())
	if s.MetricsEnabled {
		mux.Handle("GET /metrics", s.Metrics.Handler())
	}
	mux.Handle("GET "+storage.URLPrefix, s.Images.Handler())

	return middleware.Chain(mux,
		middleware.RequestLogger(s.Logger, s.Metrics),
		middleware.CORSMiddleware(middleware.DefaultCORSConfig(s.AllowedOrigins)),
	)
}

// ask sends msg to pid and waits for the reply. An *utils.AppError reply is
// returned as the error.
func (s *Server) ask(pid *actor.PID, msg interface{}, actorName string) (interface{}, error) {
	result, err := s.Context.RequestFuture(pid, msg, s.RequestTimeout).Result()
	if err != nil {
		return nil, utils.NewActorTimeoutError(actorName, err)
	}
	if appErr, ok := result.(*utils.AppError); ok {
		return nil, appErr
	}
	return result, nil
}

// writeError maps err to a status and writes the error body. Server-side
// failures get a generic message; the cause only goes to the log.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := utils.AsAppError(err)
	if !ok {
		appErr = utils.NewAppError(utils.ErrDatabase, "Internal server error", err)
	}

	status := utils.AppErrorToHTTPStatus(appErr.Code)
	message := appErr.Message
	if utils.IsAuthError(appErr) {
		s.Logger.Debug("unauthorized request", "method", r.Method, "path", r.URL.Path, "reason", message, "error", appErr.Origin)
	}
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "code", appErr.Code, "error", err)
		message = "Internal server error"
	}
	api.WriteError(w, status, message)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	if err := api.WriteJSON(w, status, v); err != nil {
		s.Logger.Warn("failed to encode response", "error", err)
	}
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched so
// the caller's own field validation reports what is missing.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return utils.NewValidationError("Invalid request body")
	}
	return nil
}
