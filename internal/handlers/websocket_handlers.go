package handlers

import (
	"net/http"

	"blogging-web/internal/middleware"
	"blogging-web/internal/utils"
	"blogging-web/internal/websocket"

	ws "github.com/gorilla/websocket"
)

func (s *Server) upgrader() *ws.Upgrader {
	cors := middleware.DefaultCORSConfig(s.AllowedOrigins)
	return &ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || cors.AllowsOrigin(origin)
		},
	}
}

// HandleLive upgrades to a websocket that streams post activity. The token
// comes from the session cookie, a Bearer header, or the token query param.
func (s *Server) HandleLive() http.HandlerFunc {
	upgrader := s.upgrader()

	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := middleware.TokenFromRequest(r)
		if tokenString == "" {
			tokenString = r.URL.Query().Get("token")
		}
		if tokenString == "" {
			s.writeError(w, r, utils.NewUnauthorizedError("Missing authentication token"))
			return
		}

		userID, err := s.Tokens.Verify(tokenString)
		if err != nil {
			s.writeError(w, r, utils.NewAppError(utils.ErrInvalidToken, "Invalid or expired token", err))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error.
			s.Logger.Debug("websocket upgrade failed", "user_id", userID, "error", err)
			return
		}

		go websocket.NewClient(s.Hub, userID, conn).Serve()
	}
}
