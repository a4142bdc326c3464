package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"
)

// POST /rooms        - create a room (creator auto-joins)
// GET  /rooms        - list rooms the current user belongs to
func roomsHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(userIDKey).(int)

		switch r.Method {
		case http.MethodPost:
			var req struct {
				Name      string `json:"name"`
				EventName string `json:"event_name"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_json")
				return
			}
			req.Name = strings.TrimSpace(req.Name)
			if req.Name == "" {
				writeError(w, http.StatusBadRequest, "missing_fields")
				return
			}

			var room Room
			err := withTx(r.Context(), db, func(tx *sql.Tx) error {
				if err := tx.QueryRow(`
					INSERT INTO rooms (name, event_name, created_by)
					VALUES ($1, $2, $3)
					RETURNING id, name, event_name, created_by, created_at
				`, req.Name, req.EventName, userID).Scan(
					&room.ID, &room.Name, &room.EventName, &room.CreatedBy, &room.CreatedAt); err != nil {
					return err
				}
				_, err := tx.Exec(`
					INSERT INTO room_members (room_id, user_id) VALUES ($1, $2)
					ON CONFLICT DO NOTHING
				`, room.ID, userID)
				return err
			})
			if err != nil {
				writeError(w, http.StatusInternalServerError, "db_error")
				log.Println("Error creating room:", err)
				return
			}
			writeJSON(w, http.StatusCreated, room)

		case http.MethodGet:
			rows, err := db.Query(`
				SELECT r.id, r.name, r.event_name, r.created_by, r.created_at
				FROM rooms r
				JOIN room_members m ON m.room_id = r.id
				WHERE m.user_id = $1
				ORDER BY r.created_at DESC
			`, userID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "db_error")
				return
			}
			defer rows.Close()

			rooms := []Room{}
			for rows.Next() {
				var room Room
				if err := rows.Scan(&room.ID, &room.Name, &room.EventName, &room.CreatedBy, &room.CreatedAt); err == nil {
					rooms = append(rooms, room)
				}
			}
			writeJSON(w, http.StatusOK, map[string][]Room{"rooms": rooms})

		default:
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
		}
	})
}

// roomsDispatcher routes every /rooms/{id}/... request to the matching
// handler. All matching operations live under a room because matching is
// scoped to co-membership.
func roomsDispatcher(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := pathParts(r)
		if len(parts) < 3 || parts[0] != "rooms" {
			http.NotFound(w, r)
			return
		}
		roomID, ok := parseID(parts[1])
		if !ok {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}

		if len(parts) == 3 {
			switch parts[2] {
			case "join":
				joinRoomHandler(db, roomID).ServeHTTP(w, r)
			case "members":
				roomMembersHandler(db, roomID).ServeHTTP(w, r)
			case "summary":
				roomSummaryHandler(db, roomID).ServeHTTP(w, r)
			case "status":
				statusHandler(db, roomID).ServeHTTP(w, r)
			default:
				http.NotFound(w, r)
			}
			return
		}

		if len(parts) == 4 {
			switch parts[2] {
			case "queue":
				switch parts[3] {
				case "build":
					buildQueueHandler(db, roomID).ServeHTTP(w, r)
				case "next":
					nextCandidateHandler(db, roomID).ServeHTTP(w, r)
				case "reset":
					resetQueueHandler(db, roomID).ServeHTTP(w, r)
				default:
					http.NotFound(w, r)
				}
			case "like", "skip":
				targetID, ok := parseID(parts[3])
				if !ok {
					writeError(w, http.StatusNotFound, "not_found")
					return
				}
				if parts[2] == "like" {
					likeHandler(db, roomID, targetID).ServeHTTP(w, r)
				} else {
					skipHandler(db, roomID, targetID).ServeHTTP(w, r)
				}
			default:
				http.NotFound(w, r)
			}
			return
		}

		http.NotFound(w, r)
	}
}

// POST /rooms/{id}/join
// Joining twice is a no-op, not an error.
func joinRoomHandler(db *sql.DB, roomID int) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(userIDKey).(int)

		var exists bool
		if err := db.QueryRow(`SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)`, roomID).Scan(&exists); err != nil || !exists {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}

		_, err := db.Exec(`
			INSERT INTO room_members (room_id, user_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, roomID, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("Error joining room:", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"room_id": roomID, "joined": true})
	})
}

// GET /rooms/{id}/members
func roomMembersHandler(db *sql.DB, roomID int) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(userIDKey).(int)
		if !requireMember(w, db, roomID, userID) {
			return
		}

		rows, err := db.Query(`
			SELECT user_id FROM room_members WHERE room_id = $1 ORDER BY joined_at ASC
		`, roomID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		defer rows.Close()

		members := []int{}
		for rows.Next() {
			var id int
			if err := rows.Scan(&id); err == nil {
				members = append(members, id)
			}
		}
		writeJSON(w, http.StatusOK, map[string][]int{"members": members})
	})
}

// GET /rooms/{id}/summary
// Aggregate counts for reporting: members, likes, skips, mutual matches.
func roomSummaryHandler(db *sql.DB, roomID int) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(userIDKey).(int)
		if !requireMember(w, db, roomID, userID) {
			return
		}

		var memberCount, likeCount, skipCount, synergyCount int
		var lastActivity sql.NullTime
		err := db.QueryRow(`
			SELECT
				(SELECT COUNT(*) FROM room_members WHERE room_id = $1),
				(SELECT COUNT(*) FROM interactions WHERE room_id = $1 AND action = 'like'),
				(SELECT COUNT(*) FROM interactions WHERE room_id = $1 AND action = 'skip'),
				(SELECT COUNT(*) FROM synergies WHERE room_id = $1),
				(SELECT MAX(updated_at) FROM interactions WHERE room_id = $1)
		`, roomID).Scan(&memberCount, &likeCount, &skipCount, &synergyCount, &lastActivity)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}

		resp := map[string]interface{}{
			"room_id":       roomID,
			"member_count":  memberCount,
			"likes":         likeCount,
			"skips":         skipCount,
			"mutual_count":  synergyCount,
			"last_activity": nil,
		}
		if lastActivity.Valid {
			resp["last_activity"] = lastActivity.Time.Format(time.RFC3339)
		}
		writeJSON(w, http.StatusOK, resp)
	})
}
