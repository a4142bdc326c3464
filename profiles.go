package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/graph-gophers/dataloader/v7"
)

func scanProfileRow(row *sql.Row) (Profile, error) {
	var p Profile
	var industries, skills, interests, goals []byte
	err := row.Scan(&p.UserID, &p.DisplayName, &p.Headline, &p.Role,
		&industries, &skills, &interests, &goals, &p.LinkedinURL, &p.PhotoURL)
	if err != nil {
		return p, err
	}
	json.Unmarshal(industries, &p.Industries)
	json.Unmarshal(skills, &p.Skills)
	json.Unmarshal(interests, &p.Interests)
	json.Unmarshal(goals, &p.NetworkingGoals)
	return p, nil
}

func loadProfile(db *sql.DB, userID int) (Profile, error) {
	row := db.QueryRow(`
		SELECT user_id, display_name, headline, role,
		       industries, skills, interests, networking_goals,
		       linkedin_url, photo_url
		FROM profiles WHERE user_id = $1
	`, userID)
	return scanProfileRow(row)
}

// newProfileLoader returns a dataloader that coalesces profile lookups
// issued within the same window into one IN-clause query. The queue
// builder loads every candidate profile through this.
func newProfileLoader(db *sql.DB) *dataloader.Loader[int, *Profile] {
	return dataloader.NewBatchedLoader(profileBatchFn(db), dataloader.WithWait[int, *Profile](16*time.Millisecond))
}

func profileBatchFn(db *sql.DB) dataloader.BatchFunc[int, *Profile] {
	return func(ctx context.Context, keys []int) []*dataloader.Result[*Profile] {
		results := make([]*dataloader.Result[*Profile], len(keys))
		for i := range results {
			results[i] = &dataloader.Result[*Profile]{}
		}
		if len(keys) == 0 {
			return results
		}

		placeholders := make([]string, len(keys))
		args := make([]interface{}, len(keys))
		for i, key := range keys {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args[i] = key
		}

		query := fmt.Sprintf(`
			SELECT user_id, display_name, headline, role,
			       industries, skills, interests, networking_goals,
			       linkedin_url, photo_url
			FROM profiles
			WHERE user_id IN (%s)
		`, strings.Join(placeholders, ", "))

		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			for i := range results {
				results[i].Error = err
			}
			return results
		}
		defer rows.Close()

		found := make(map[int]*Profile, len(keys))
		for rows.Next() {
			var p Profile
			var industries, skills, interests, goals []byte
			if err := rows.Scan(&p.UserID, &p.DisplayName, &p.Headline, &p.Role,
				&industries, &skills, &interests, &goals, &p.LinkedinURL, &p.PhotoURL); err != nil {
				continue
			}
			json.Unmarshal(industries, &p.Industries)
			json.Unmarshal(skills, &p.Skills)
			json.Unmarshal(interests, &p.Interests)
			json.Unmarshal(goals, &p.NetworkingGoals)
			found[p.UserID] = &p
		}

		for i, key := range keys {
			if p, ok := found[key]; ok {
				results[i].Data = p
			} else {
				results[i].Error = sql.ErrNoRows
			}
		}
		return results
	}
}

// GET/PUT /me/profile
func meProfileHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(userIDKey).(int)

		switch r.Method {
		case http.MethodGet:
			profile, err := loadProfile(db, userID)
			if err == sql.ErrNoRows {
				writeError(w, http.StatusNotFound, "profile_not_found")
				return
			} else if err != nil {
				writeError(w, http.StatusInternalServerError, "db_error")
				return
			}
			writeJSON(w, http.StatusOK, profile)

		case http.MethodPut:
			var req Profile
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_json")
				return
			}
			industries, _ := json.Marshal(emptyIfNil(req.Industries))
			skills, _ := json.Marshal(emptyIfNil(req.Skills))
			interests, _ := json.Marshal(emptyIfNil(req.Interests))
			goals, _ := json.Marshal(emptyIfNil(req.NetworkingGoals))

			_, err := db.Exec(`
				INSERT INTO profiles (user_id, display_name, headline, role,
				                      industries, skills, interests, networking_goals,
				                      linkedin_url, photo_url, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
				ON CONFLICT (user_id) DO UPDATE SET
					display_name = EXCLUDED.display_name,
					headline = EXCLUDED.headline,
					role = EXCLUDED.role,
					industries = EXCLUDED.industries,
					skills = EXCLUDED.skills,
					interests = EXCLUDED.interests,
					networking_goals = EXCLUDED.networking_goals,
					linkedin_url = EXCLUDED.linkedin_url,
					photo_url = EXCLUDED.photo_url,
					updated_at = NOW()
			`, userID, req.DisplayName, req.Headline, req.Role,
				industries, skills, interests, goals, req.LinkedinURL, req.PhotoURL)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "db_error")
				log.Println("Error updating profile:", err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"updated": true})

		default:
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
		}
	})
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

// GET /users/{id}/profile
// The full profile of another user only crosses the wire after a mutual
// match: the pair must have a synergy row in some shared room.
func userProfileHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		parts := pathParts(r)
		if len(parts) != 3 || parts[0] != "users" || parts[2] != "profile" {
			http.NotFound(w, r)
			return
		}
		targetID, ok := parseID(parts[1])
		if !ok {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		me := r.Context().Value(userIDKey).(int)

		if targetID != me {
			a, b := canonicalPair(me, targetID)
			var revealed bool
			err := db.QueryRow(`
				SELECT EXISTS (
					SELECT 1 FROM synergies WHERE user_a = $1 AND user_b = $2
				)
			`, a, b).Scan(&revealed)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "db_error")
				return
			}
			if !revealed {
				writeError(w, http.StatusForbidden, "not_revealed")
				return
			}
		}

		profile, err := loadProfile(db, targetID)
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "not_found")
			return
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		writeJSON(w, http.StatusOK, profile)
	})
}
