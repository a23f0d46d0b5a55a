package handlers

import (
	"net/http"

	"blogging-web/internal/api"
	"blogging-web/internal/engine/actors"
	"blogging-web/internal/middleware"
	"blogging-web/internal/models"
	"blogging-web/internal/utils"
)

// HandleSignup creates the account, sets the session cookie and returns the
// token alongside the user.
func (s *Server) HandleSignup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.SignupRequest
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}

		result, err := s.ask(s.Engine.GetUserActor(), &actors.RegisterUserMsg{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
		}, "user")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		user := result.(*models.User)

		token, err := s.Tokens.Issue(user.ID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.Cookies.Set(w, token)

		s.writeJSON(w, http.StatusCreated, api.SignupResponse{
			Message: "User created successfully",
			Token:   token,
			User:    user,
		})
	}
}

// HandleSignin checks the credentials. Unknown emails are reported as 400
// like a bad password.
func (s *Server) HandleSignin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.SigninRequest
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}

		result, err := s.ask(s.Engine.GetUserActor(), &actors.LoginMsg{
			Email:    req.Email,
			Password: req.Password,
		}, "user")
		if utils.IsNotFound(err) {
			api.WriteError(w, http.StatusBadRequest, "User not found")
			return
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		user := result.(*models.User)

		token, err := s.Tokens.Issue(user.ID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.Cookies.Set(w, token)
		s.writeJSON(w, http.StatusOK, user)
	}
}

func (s *Server) HandleSignout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Cookies.Clear(w)
		s.writeJSON(w, http.StatusOK, api.MessageResponse{
			Success: true,
			Message: "Logged out successfully",
		})
	}
}

// HandleMe expects RequireSession in front of it.
func (s *Server) HandleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			s.writeError(w, r, utils.NewUnauthorizedError("Not authenticated"))
			return
		}

		result, err := s.ask(s.Engine.GetUserActor(), &actors.GetUserMsg{UserID: userID}, "user")
		if utils.IsNotFound(err) {
			err = utils.NewUnauthorizedError("User not found")
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.writeJSON(w, http.StatusOK, api.UserResponse{Success: true, User: result.(*models.User)})
	}
}
