package api

import (
	"encoding/json"
	"net/http"
	"time"

	"blogging-web/internal/models"
)

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LikeRequest carries the liker when no session cookie is present.
type LikeRequest struct {
	UserID string `json:"userId"`
}

type CommentRequest struct {
	Comment  string `json:"comment"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type SignupResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
}

type UserResponse struct {
	Success bool         `json:"success"`
	User    *models.User `json:"user"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type PostsResponse struct {
	Success bool           `json:"success"`
	Posts   []*models.Post `json:"posts"`
}

type PostResponse struct {
	Success bool         `json:"success"`
	Post    *models.Post `json:"post"`
}

type LikeResponse struct {
	Message    string `json:"message"`
	TotalLikes int    `json:"totalLikes"`
	Liked      bool   `json:"liked"`
}

// CommentResponse holds the whole comment list after the append.
type CommentResponse struct {
	Success bool             `json:"success"`
	Comment []models.Comment `json:"comment"`
}

type HealthResponse struct {
	Status          string    `json:"status"`
	PostCount       int       `json:"post_count"`
	UserCount       int       `json:"user_count"`
	LiveConnections int       `json:"live_connections"`
	Uptime          string    `json:"uptime"`
	ServerTime      time.Time `json:"server_time"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// WriteError writes the {"success":false,"message":...} error body.
func WriteError(w http.ResponseWriter, status int, message string) error {
	return WriteJSON(w, status, MessageResponse{Success: false, Message: message})
}
