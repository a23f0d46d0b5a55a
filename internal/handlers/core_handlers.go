package handlers

import (
	"net/http"
	"time"

	"blogging-web/internal/api"
	"blogging-web/internal/engine/actors"
)

// HandleHealth handles health check requests
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Get the user count from UserActor
		userResult, err := s.ask(s.Engine.GetUserActor(), &actors.GetCountsMsg{}, "user")
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		// Get the post count from PostActor
		postResult, err := s.ask(s.Engine.GetPostActor(), &actors.GetCountsMsg{}, "post")
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.writeJSON(w, http.StatusOK, api.HealthResponse{
			Status:          "healthy",
			PostCount:       postResult.(int),
			UserCount:       userResult.(int),
			LiveConnections: s.Hub.Connections(),
			Uptime:          s.Metrics.Uptime().Round(time.Second).String(),
			ServerTime:      time.Now(),
		})
	}
}
