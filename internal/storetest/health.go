package storetest

import "net/http"

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Messages int    `json:"messages"`
}

// HealthCheck handles GET /health
// Reports how many messages the store holds.
func (s *Store) HealthCheck(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	n := len(s.messages)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Messages: n})
}
