package server

import "net/http"

// handleHealthz reports liveness plus store connectivity.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.HealthCheck(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("health check failed")
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"store":  err.Error(),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
