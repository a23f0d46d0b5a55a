package handlers

import (
	"errors"
	"net/http"

	"blogging-web/internal/api"
	"blogging-web/internal/engine/actors"
	"blogging-web/internal/middleware"
	"blogging-web/internal/models"
	"blogging-web/internal/utils"

	"github.com/google/uuid"
)

// multipart overhead allowed on top of the image size limit
const formOverhead = 1 << 20

// HandleCreatePost accepts a multipart form with title, intro, content and
// an image file. The image is checked before anything else.
func (s *Server) HandleCreatePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.Images.MaxBytes()+formOverhead)
		if err := r.ParseMultipartForm(s.Images.MaxBytes() + formOverhead); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				api.WriteError(w, http.StatusBadRequest, "File too large")
				return
			}
			api.WriteError(w, http.StatusBadRequest, "Image required")
			return
		}
		defer r.MultipartForm.RemoveAll()

		_, header, err := r.FormFile("image")
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "Image required")
			return
		}

		imageURL, err := s.Images.Save(header)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		result, err := s.ask(s.Engine.GetPostActor(), &actors.CreatePostMsg{
			Title:    r.FormValue("title"),
			Intro:    r.FormValue("intro"),
			Content:  r.FormValue("content"),
			ImageURL: imageURL,
		}, "post")
		if err != nil {
			s.discardImage(imageURL, err)
			s.writeError(w, r, err)
			return
		}

		s.writeJSON(w, http.StatusCreated, result.(*models.Post))
	}
}

// discardImage removes an upload whose post was rejected. After a timeout the
// actor may still create the post, so the file is kept.
func (s *Server) discardImage(imageURL string, cause error) {
	if utils.IsErrorCode(cause, utils.ErrActorTimeout) {
		s.Logger.Warn("post creation timed out, keeping image", "url", imageURL)
		return
	}
	if err := s.Images.Remove(imageURL); err != nil {
		s.Logger.Warn("failed to remove orphaned image", "url", imageURL, "error", err)
	}
}

func (s *Server) HandleListPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := s.ask(s.Engine.GetPostActor(), &actors.ListPostsMsg{}, "post")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.PostsResponse{Success: true, Posts: result.([]*models.Post)})
	}
}

func (s *Server) HandleGetPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "Invalid post ID format")
			return
		}

		result, err := s.ask(s.Engine.GetPostActor(), &actors.GetPostMsg{PostID: postID}, "post")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.PostResponse{Success: true, Post: result.(*models.Post)})
	}
}

// HandleLikePost toggles the caller's like. A session user takes precedence
// over the userId in the body.
func (s *Server) HandleLikePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := uuid.Parse(r.PathValue("postId"))
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "Invalid post ID format")
			return
		}

		var req api.LikeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		userID, err := actingUser(r, req.UserID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		result, err := s.ask(s.Engine.GetPostActor(), &actors.ToggleLikeMsg{PostID: postID, UserID: userID}, "post")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		like := result.(*actors.LikeResult)

		message := "disliked"
		if like.Liked {
			message = "liked"
		}
		s.writeJSON(w, http.StatusOK, api.LikeResponse{
			Message:    message,
			TotalLikes: like.TotalLikes,
			Liked:      like.Liked,
		})
	}
}

// HandleComment appends a comment and returns the whole list. With a session
// the username always comes from the stored user.
func (s *Server) HandleComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := uuid.Parse(r.PathValue("postId"))
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "Invalid post ID format")
			return
		}

		var req api.CommentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}

		username := req.Username
		if _, ok := middleware.GetUserIDFromContext(r.Context()); ok {
			username = ""
		}
		userID, err := actingUser(r, req.UserID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		result, err := s.ask(s.Engine.GetPostActor(), &actors.AddCommentMsg{
			PostID:   postID,
			UserID:   userID,
			Username: username,
			Text:     req.Comment,
		}, "post")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, api.CommentResponse{Success: true, Comment: result.([]models.Comment)})
	}
}

// actingUser returns the session user when there is one and otherwise the
// user named in the request body. An empty body value yields uuid.Nil so the
// actor reports the missing field.
func actingUser(r *http.Request, bodyUserID string) (uuid.UUID, error) {
	if userID, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		return userID, nil
	}
	if bodyUserID == "" {
		return uuid.Nil, nil
	}
	userID, err := uuid.Parse(bodyUserID)
	if err != nil {
		return uuid.Nil, utils.NewValidationError("Invalid userId format")
	}
	return userID, nil
}
