package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
)

// canonicalPair orders two user IDs so an unordered pair always maps to
// the same (user_a, user_b) row.
func canonicalPair(x, y int) (int, int) {
	if x < y {
		return x, y
	}
	return y, x
}

// recordInteraction upserts the directed like/skip edge. The primary key
// on (room, actor, target) makes re-recording overwrite the prior action.
func recordInteraction(ctx context.Context, db *sql.DB, roomID, actorID, targetID int, action string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO interactions (room_id, actor_id, target_id, action, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (room_id, actor_id, target_id) DO UPDATE SET
			action = EXCLUDED.action,
			updated_at = NOW()
	`, roomID, actorID, targetID, action)
	return err
}

// hasReciprocalLike reports whether target has already liked actor in the room.
func hasReciprocalLike(db *sql.DB, roomID, actorID, targetID int) (bool, error) {
	var liked bool
	err := db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM interactions
			WHERE room_id = $1 AND actor_id = $2 AND target_id = $3 AND action = 'like'
		)
	`, roomID, targetID, actorID).Scan(&liked)
	return liked, err
}

type likeResponse struct {
	Mutual  bool     `json:"mutual"`
	Synergy string   `json:"synergy,omitempty"`
	Profile *Profile `json:"profile,omitempty"`
}

// POST /rooms/{id}/like/{target}
// Records the like, then checks for a reciprocal like. On a mutual match
// the synergy summary is (re)written under the canonical pair order and
// the full target profile crosses the privacy boundary for the first time.
func likeHandler(db *sql.DB, roomID, targetID int) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		me := r.Context().Value(userIDKey).(int)
		if targetID == me {
			writeError(w, http.StatusBadRequest, "invalid_target")
			return
		}
		if !requireMember(w, db, roomID, me) {
			return
		}
		targetIsMember, err := isRoomMember(db, roomID, targetID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		if !targetIsMember {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}

		if err := recordInteraction(r.Context(), db, roomID, me, targetID, "like"); err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("Error recording like:", err)
			return
		}

		mutual, err := hasReciprocalLike(db, roomID, me, targetID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		if !mutual {
			writeJSON(w, http.StatusOK, likeResponse{Mutual: false})
			return
		}

		myProfile, err := loadProfile(db, me)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		targetProfile, err := loadProfile(db, targetID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}

		summary := synergySummary(r.Context(), myProfile, targetProfile)
		userA, userB := canonicalPair(me, targetID)
		_, err = db.ExecContext(r.Context(), `
			INSERT INTO synergies (room_id, user_a, user_b, summary, updated_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (room_id, user_a, user_b) DO UPDATE SET
				summary = EXCLUDED.summary,
				updated_at = NOW()
		`, roomID, userA, userB, summary)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("Error writing synergy record:", err)
			return
		}

		// Tell the other party if they have a socket open; best-effort.
		matchHub.notifyMatch(targetID, roomID, me, summary)

		writeJSON(w, http.StatusOK, likeResponse{
			Mutual:  true,
			Synergy: summary,
			Profile: &targetProfile,
		})
	})
}

// POST /rooms/{id}/skip/{target}
func skipHandler(db *sql.DB, roomID, targetID int) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		me := r.Context().Value(userIDKey).(int)
		if targetID == me {
			writeError(w, http.StatusBadRequest, "invalid_target")
			return
		}
		if !requireMember(w, db, roomID, me) {
			return
		}
		targetIsMember, err := isRoomMember(db, roomID, targetID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		if !targetIsMember {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}

		if err := recordInteraction(r.Context(), db, roomID, me, targetID, "skip"); err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("Error recording skip:", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"recorded": true})
	})
}
