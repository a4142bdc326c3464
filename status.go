package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
)

type sessionStatus struct {
	Remaining   int  `json:"remaining"`
	TotalQueued int  `json:"total_queued"`
	LikesGiven  int  `json:"likes_given"`
	SkipsGiven  int  `json:"skips_given"`
	MutualCount int  `json:"mutual_count"`
	Completed   bool `json:"completed"`
}

// sessionStatusFor derives the swipe-session counters for a (room, user)
// pair from the queue, interaction and synergy tables. Nothing extra is
// persisted; the status is always recomputed.
func sessionStatusFor(db *sql.DB, roomID, userID int) (sessionStatus, error) {
	var s sessionStatus
	err := db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM match_queue WHERE room_id = $1 AND for_user_id = $2),
			(SELECT COUNT(*) FROM interactions WHERE room_id = $1 AND actor_id = $2 AND action = 'like'),
			(SELECT COUNT(*) FROM interactions WHERE room_id = $1 AND actor_id = $2 AND action = 'skip'),
			(SELECT COUNT(*) FROM synergies WHERE room_id = $1 AND (user_a = $2 OR user_b = $2))
	`, roomID, userID).Scan(&s.TotalQueued, &s.LikesGiven, &s.SkipsGiven, &s.MutualCount)
	if err != nil {
		return s, err
	}

	s.Remaining = s.TotalQueued - s.LikesGiven - s.SkipsGiven
	if s.Remaining < 0 {
		s.Remaining = 0
	}
	s.Completed = s.Remaining <= 0
	return s, nil
}

// GET /rooms/{id}/status
func statusHandler(db *sql.DB, roomID int) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		userID := r.Context().Value(userIDKey).(int)
		if !requireMember(w, db, roomID, userID) {
			return
		}

		status, err := sessionStatusFor(db, roomID, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("Error computing session status:", err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	})
}

// resetQueue clears the user's queue in the room and rebuilds it. The
// interaction history stays: skipped and liked users do not come back,
// and the like/skip counters keep accumulating.
func resetQueue(ctx context.Context, db *sql.DB, roomID, userID int) (int, error) {
	if _, err := db.ExecContext(ctx, `
		DELETE FROM match_queue WHERE room_id = $1 AND for_user_id = $2
	`, roomID, userID); err != nil {
		return 0, err
	}
	return buildQueue(ctx, db, roomID, userID)
}

// POST /rooms/{id}/queue/reset
func resetQueueHandler(db *sql.DB, roomID int) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		userID := r.Context().Value(userIDKey).(int)
		if !requireMember(w, db, roomID, userID) {
			return
		}

		count, err := resetQueue(r.Context(), db, roomID, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "queue_reset_error")
			log.Println("resetQueue error:", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"queued": count})
	})
}
