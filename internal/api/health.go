package api

import (
	"encoding/json"
	"net/http"
)

// HealthHandler checks both API liveness and database connectivity, kept
// near-verbatim from the teacher's health.go.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := s.Pool.Ping(ctx); err != nil {
			s.Logger.Error("health_check_failed", "error", err, "detail", "database_unreachable")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "unhealthy",
				"error":  "service temporarily unavailable",
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}
}
