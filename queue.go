package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	"github.com/graph-gophers/dataloader/v7"
)

// maxPreviewItems caps each attribute list in the anonymized candidate view.
const maxPreviewItems = 3

// candidateIDs returns the room's co-members that forUserID has not yet
// acted on. Interacted targets are filtered out here, so a skipped user
// never gets a fresh queue entry on rebuild.
func candidateIDs(db *sql.DB, roomID, forUserID int) ([]int, error) {
	rows, err := db.Query(`
		SELECT m.user_id
		FROM room_members m
		WHERE m.room_id = $1
		  AND m.user_id <> $2
		  AND NOT EXISTS (
		      SELECT 1 FROM interactions i
		      WHERE i.room_id = $1 AND i.actor_id = $2 AND i.target_id = m.user_id
		  )
		ORDER BY m.joined_at ASC
	`, roomID, forUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}

// buildQueue scores every eligible co-member against forUserID and upserts
// one ranked queue entry each. Re-running overwrites entries in place, so
// the builder is idempotent. Individual write failures are logged and
// skipped; the return value is the number of entries actually written.
func buildQueue(ctx context.Context, db *sql.DB, roomID, forUserID int) (int, error) {
	myProfile, err := loadProfile(db, forUserID)
	if err != nil {
		return 0, err
	}

	ids, err := candidateIDs(db, roomID, forUserID)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	// Thunks first, then resolve: the loader coalesces these into one
	// batched profile query.
	loader := newProfileLoader(db)
	thunks := make([]dataloader.Thunk[*Profile], len(ids))
	for i, id := range ids {
		thunks[i] = loader.Load(ctx, id)
	}

	written := 0
	for i := range ids {
		candidate, err := thunks[i]()
		if err != nil {
			log.Printf("Skipping candidate %d in room %d: %v", ids[i], roomID, err)
			continue
		}
		score := compatibilityScore(myProfile, *candidate)
		rationale := explainScore(ctx, myProfile, *candidate, score)

		_, err = db.ExecContext(ctx, `
			INSERT INTO match_queue (room_id, for_user_id, candidate_id, score, rationale, enqueued_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT (room_id, for_user_id, candidate_id) DO UPDATE SET
				score = EXCLUDED.score,
				rationale = EXCLUDED.rationale,
				enqueued_at = EXCLUDED.enqueued_at
		`, roomID, forUserID, candidate.UserID, score, rationale)
		if err != nil {
			log.Printf("Failed to write queue entry for candidate %d in room %d: %v", candidate.UserID, roomID, err)
			continue
		}
		written++
	}
	return written, nil
}

// nextCandidate returns the highest-scoring queued candidate the user has
// not acted on yet, or nil when the queue is exhausted. Ties break on the
// earliest enqueued entry, so the ordering is deterministic.
func nextCandidate(db *sql.DB, roomID, forUserID int) (*Candidate, error) {
	var entry QueueEntry
	err := db.QueryRow(`
		SELECT q.room_id, q.for_user_id, q.candidate_id, q.score, q.rationale, q.enqueued_at
		FROM match_queue q
		WHERE q.room_id = $1
		  AND q.for_user_id = $2
		  AND NOT EXISTS (
		      SELECT 1 FROM interactions i
		      WHERE i.room_id = $1 AND i.actor_id = $2 AND i.target_id = q.candidate_id
		  )
		ORDER BY q.score DESC, q.enqueued_at ASC
		LIMIT 1
	`, roomID, forUserID).Scan(&entry.RoomID, &entry.ForUserID, &entry.CandidateID,
		&entry.Score, &entry.Rationale, &entry.EnqueuedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	profile, err := loadProfile(db, entry.CandidateID)
	if err != nil {
		return nil, err
	}
	candidate := anonymizeCandidate(profile, entry)
	return &candidate, nil
}

// anonymizeCandidate builds the truncated pre-match view: capped attribute
// lists, obscured photo, no name or contact fields.
func anonymizeCandidate(p Profile, entry QueueEntry) Candidate {
	return Candidate{
		CandidateID:   p.UserID,
		Headline:      p.Headline,
		Role:          p.Role,
		Industries:    capList(p.Industries, maxPreviewItems),
		Skills:        capList(p.Skills, maxPreviewItems),
		Interests:     capList(p.Interests, maxPreviewItems),
		Score:         entry.Score,
		Rationale:     entry.Rationale,
		PhotoURL:      p.PhotoURL,
		PhotoObscured: true,
	}
}

func capList(list []string, limit int) []string {
	if list == nil {
		return []string{}
	}
	if len(list) <= limit {
		return list
	}
	return list[:limit]
}

// POST /rooms/{id}/queue/build
func buildQueueHandler(db *sql.DB, roomID int) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		userID := r.Context().Value(userIDKey).(int)
		if !requireMember(w, db, roomID, userID) {
			return
		}

		count, err := buildQueue(r.Context(), db, roomID, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "queue_build_error")
			log.Println("buildQueue error:", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"queued": count})
	})
}

// GET /rooms/{id}/queue/next
// An exhausted queue is the normal end-state, reported as done, never as
// an error.
func nextCandidateHandler(db *sql.DB, roomID int) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		userID := r.Context().Value(userIDKey).(int)
		if !requireMember(w, db, roomID, userID) {
			return
		}

		candidate, err := nextCandidate(db, roomID, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "queue_read_error")
			log.Println("nextCandidate error:", err)
			return
		}
		if candidate == nil {
			writeJSON(w, http.StatusOK, map[string]bool{"done": true})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"done": false, "candidate": candidate})
	})
}
