package main

import (
	"database/sql"
	"math"
	"net/http"
	"strings"
)

// Weights of the attribute categories in the compatibility score.
// Interests dominate, then skills, then industries; the remaining 10
// points come from the networking-goal bonuses.
const (
	interestsWeight  = 40.0
	skillsWeight     = 30.0
	industriesWeight = 20.0
	goalBonus        = 5
)

// overlapMatches returns up to limit entries present in both lists under
// case-insensitive comparison, preserving the order of a. Empty or nil
// input on either side yields an empty result.
func overlapMatches(a, b []string, limit int) []string {
	matches := []string{}
	if len(a) == 0 || len(b) == 0 || limit <= 0 {
		return matches
	}
	bSet := make(map[string]bool, len(b))
	for _, item := range b {
		bSet[strings.ToLower(item)] = true
	}
	seen := make(map[string]bool, len(a))
	for _, item := range a {
		lower := strings.ToLower(item)
		if bSet[lower] && !seen[lower] {
			matches = append(matches, item)
			seen[lower] = true
			if len(matches) == limit {
				break
			}
		}
	}
	return matches
}

// jaccard computes |A∩B| / |A∪B| over lowercased sets.
// Returns 0 when either side is empty, so no division by zero.
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	aSet := make(map[string]bool, len(a))
	for _, item := range a {
		aSet[strings.ToLower(item)] = true
	}
	union := len(aSet)
	intersection := 0
	bSeen := make(map[string]bool, len(b))
	for _, item := range b {
		lower := strings.ToLower(item)
		if bSeen[lower] {
			continue
		}
		bSeen[lower] = true
		if aSet[lower] {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// compatibilityScore rates two profiles on a 0-100 scale from the weighted
// Jaccard overlap of their interests, skills and industries, plus flat
// bonuses when both sides mention mentorship or cofounder ambitions in
// their networking goals. Symmetric: swapping the arguments never changes
// the result.
func compatibilityScore(me, other Profile) int {
	score := interestsWeight*jaccard(me.Interests, other.Interests) +
		skillsWeight*jaccard(me.Skills, other.Skills) +
		industriesWeight*jaccard(me.Industries, other.Industries)

	// Loose substring check against the joined goals text. "mentorship"
	// inside any longer phrase counts; that looseness is intentional.
	myGoals := strings.ToLower(strings.Join(me.NetworkingGoals, " "))
	theirGoals := strings.ToLower(strings.Join(other.NetworkingGoals, " "))
	if strings.Contains(myGoals, "mentorship") && strings.Contains(theirGoals, "mentorship") {
		score += goalBonus
	}
	if strings.Contains(myGoals, "cofounder") && strings.Contains(theirGoals, "cofounder") {
		score += goalBonus
	}

	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

// GET /score/{id} - compatibility of the current user against another user
func scoreHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		parts := pathParts(r)
		if len(parts) != 2 || parts[0] != "score" {
			http.NotFound(w, r)
			return
		}
		otherID, ok := parseID(parts[1])
		if !ok {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		me := r.Context().Value(userIDKey).(int)
		if otherID == me {
			writeError(w, http.StatusBadRequest, "invalid_target")
			return
		}

		myProfile, err := loadProfile(db, me)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		otherProfile, err := loadProfile(db, otherID)
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "not_found")
			return
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}

		score := compatibilityScore(myProfile, otherProfile)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"user_id":   otherID,
			"score":     score,
			"rationale": explainScore(r.Context(), myProfile, otherProfile, score),
		})
	})
}
