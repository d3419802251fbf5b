package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// handleLeaderboard handles GET /leaderboard?objective=<tag>&limit=N.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	q := r.URL.Query()

	tag := strings.TrimSpace(q.Get("objective"))
	if tag == "" {
		s.fail(w, r, op, fmt.Errorf("%w: missing objective", ErrBadRequest))
		return
	}

	n := min(defaultLeaderboardLimit, s.maxLimit)
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			s.fail(w, r, op, fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest))
			return
		}
		n = v
	}
	if n > s.maxLimit {
		s.fail(w, r, op, fmt.Errorf("%w: limit above %d", ErrLimitExceeded, s.maxLimit))
		return
	}

	entries, err := s.deps.Leaderboard(r.Context(), tag, n)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
