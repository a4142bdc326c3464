package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// ============================================================================
// QUEUE BUILDER AND NEXT-CANDIDATE TEST SUITE
// ============================================================================

func TestQueueSuite(t *testing.T) {
	requireDB(t)

	t.Run("BuildAndExclusion", func(t *testing.T) {
		testBuildAndExclusion(t)
	})

	t.Run("IdempotentBuild", func(t *testing.T) {
		testIdempotentBuild(t)
	})

	t.Run("NextCandidate", func(t *testing.T) {
		testNextCandidate(t)
	})
}

func buildQueueVia(t *testing.T, user TestUser, roomID int) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/rooms/%d/queue/build", roomID), nil)
	req.Header.Set("Authorization", "Bearer "+user.Token)
	w := httptest.NewRecorder()

	roomsDispatcher(db).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("build queue: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var resp struct {
		Queued int `json:"queued"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	return resp.Queued
}

func skipVia(t *testing.T, user TestUser, roomID, targetID int) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/rooms/%d/skip/%d", roomID, targetID), nil)
	req.Header.Set("Authorization", "Bearer "+user.Token)
	w := httptest.NewRecorder()

	roomsDispatcher(db).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("skip: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
}

func likeVia(t *testing.T, user TestUser, roomID, targetID int) likeResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/rooms/%d/like/%d", roomID, targetID), nil)
	req.Header.Set("Authorization", "Bearer "+user.Token)
	w := httptest.NewRecorder()

	roomsDispatcher(db).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("like: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var resp likeResponse
	json.NewDecoder(w.Body).Decode(&resp)
	return resp
}

func nextVia(t *testing.T, user TestUser, roomID int) (bool, *Candidate) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/rooms/%d/queue/next", roomID), nil)
	req.Header.Set("Authorization", "Bearer "+user.Token)
	w := httptest.NewRecorder()

	roomsDispatcher(db).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("next: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var resp struct {
		Done      bool       `json:"done"`
		Candidate *Candidate `json:"candidate"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	return resp.Done, resp.Candidate
}

func queueRowCount(t *testing.T, roomID, forUserID int) int {
	t.Helper()
	var count int
	if err := db.QueryRow(`
		SELECT COUNT(*) FROM match_queue WHERE room_id = $1 AND for_user_id = $2
	`, roomID, forUserID).Scan(&count); err != nil {
		t.Fatalf("count queue rows: %v", err)
	}
	return count
}

func testBuildAndExclusion(t *testing.T) {
	me := createTestUser(t, "qb_me@example.com", "password")
	peer1 := createTestUser(t, "qb_p1@example.com", "password")
	peer2 := createTestUser(t, "qb_p2@example.com", "password")
	peer3 := createTestUser(t, "qb_p3@example.com", "password")
	defer cleanupTestData(me.Email, peer1.Email, peer2.Email, peer3.Email)

	setTestProfile(t, me, Profile{DisplayName: "Me", Interests: []string{"AI", "Climate"}})
	setTestProfile(t, peer1, Profile{DisplayName: "P1", Interests: []string{"AI"}})
	setTestProfile(t, peer2, Profile{DisplayName: "P2", Interests: []string{"Climate"}})
	setTestProfile(t, peer3, Profile{DisplayName: "P3", Interests: []string{"Music"}})

	roomID := createTestRoom(t, me, "Build Room")
	joinTestRoom(t, peer1, roomID)
	joinTestRoom(t, peer2, roomID)
	joinTestRoom(t, peer3, roomID)

	t.Run("skipped member is excluded at build time", func(t *testing.T) {
		// 3 co-members, one already skipped -> exactly 2 entries
		skipVia(t, me, roomID, peer2.ID)

		queued := buildQueueVia(t, me, roomID)
		if queued != 2 {
			t.Fatalf("expected 2 queue entries, got %d", queued)
		}
		if got := queueRowCount(t, roomID, me.ID); got != 2 {
			t.Fatalf("expected 2 rows, got %d", got)
		}

		var skippedQueued bool
		db.QueryRow(`
			SELECT EXISTS (
				SELECT 1 FROM match_queue
				WHERE room_id = $1 AND for_user_id = $2 AND candidate_id = $3
			)
		`, roomID, me.ID, peer2.ID).Scan(&skippedQueued)
		if skippedQueued {
			t.Fatal("skipped user must not get a queue entry on rebuild")
		}
	})

	t.Run("empty candidate set is a no-op, not an error", func(t *testing.T) {
		solo := createTestUser(t, "qb_solo@example.com", "password")
		defer cleanupTestData(solo.Email)
		setTestProfile(t, solo, Profile{DisplayName: "Solo"})
		soloRoom := createTestRoom(t, solo, "Empty Room")

		if queued := buildQueueVia(t, solo, soloRoom); queued != 0 {
			t.Fatalf("expected 0 for a one-member room, got %d", queued)
		}
	})

	t.Run("non-member cannot build", func(t *testing.T) {
		outsider := createTestUser(t, "qb_out@example.com", "password")
		defer cleanupTestData(outsider.Email)

		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/rooms/%d/queue/build", roomID), nil)
		req.Header.Set("Authorization", "Bearer "+outsider.Token)
		w := httptest.NewRecorder()
		roomsDispatcher(db).ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403 for non-member, got %d", w.Code)
		}
	})
}

func testIdempotentBuild(t *testing.T) {
	me := createTestUser(t, "qi_me@example.com", "password")
	peer := createTestUser(t, "qi_peer@example.com", "password")
	defer cleanupTestData(me.Email, peer.Email)

	setTestProfile(t, me, Profile{DisplayName: "Me", Interests: []string{"AI"}})
	setTestProfile(t, peer, Profile{DisplayName: "Peer", Interests: []string{"AI"}})

	roomID := createTestRoom(t, me, "Idempotent Room")
	joinTestRoom(t, peer, roomID)

	first := buildQueueVia(t, me, roomID)
	second := buildQueueVia(t, me, roomID)

	if first != 1 || second != 1 {
		t.Fatalf("expected both builds to queue 1 entry, got %d then %d", first, second)
	}
	if got := queueRowCount(t, roomID, me.ID); got != 1 {
		t.Fatalf("expected entries overwritten not duplicated, got %d rows", got)
	}
}

func testNextCandidate(t *testing.T) {
	me := createTestUser(t, "qn_me@example.com", "password")
	high := createTestUser(t, "qn_high@example.com", "password")
	low := createTestUser(t, "qn_low@example.com", "password")
	defer cleanupTestData(me.Email, high.Email, low.Email)

	setTestProfile(t, me, Profile{
		DisplayName: "Me",
		Interests:   []string{"AI", "Climate", "Robotics"},
		Skills:      []string{"Go", "Python"},
	})
	// Strong overlap with me, and more interests than the preview cap
	setTestProfile(t, high, Profile{
		DisplayName: "High",
		Headline:    "Building things",
		Interests:   []string{"AI", "Climate", "Robotics", "Music", "Biotech"},
		Skills:      []string{"Go", "Python"},
		PhotoURL:    "https://example.com/high.jpg",
		LinkedinURL: "https://linkedin.com/in/high",
	})
	// Barely any overlap
	setTestProfile(t, low, Profile{
		DisplayName: "Low",
		Interests:   []string{"Music"},
		Skills:      []string{"Sales"},
	})

	roomID := createTestRoom(t, me, "Next Room")
	joinTestRoom(t, high, roomID)
	joinTestRoom(t, low, roomID)

	buildQueueVia(t, me, roomID)

	t.Run("highest score first, anonymized", func(t *testing.T) {
		done, candidate := nextVia(t, me, roomID)
		if done || candidate == nil {
			t.Fatal("expected a candidate, got done")
		}
		if candidate.CandidateID != high.ID {
			t.Fatalf("expected highest-scoring candidate %d first, got %d", high.ID, candidate.CandidateID)
		}
		if len(candidate.Interests) > maxPreviewItems {
			t.Fatalf("interests not capped: %v", candidate.Interests)
		}
		if !candidate.PhotoObscured {
			t.Fatal("photo must be flagged for obscuring before a match")
		}
	})

	t.Run("interacted candidates never come back", func(t *testing.T) {
		skipVia(t, me, roomID, high.ID)

		done, candidate := nextVia(t, me, roomID)
		if done || candidate == nil {
			t.Fatal("expected the remaining candidate")
		}
		if candidate.CandidateID == high.ID {
			t.Fatal("skipped candidate returned from the queue")
		}
		if candidate.CandidateID != low.ID {
			t.Fatalf("expected candidate %d, got %d", low.ID, candidate.CandidateID)
		}
	})

	t.Run("exhausted queue reports done", func(t *testing.T) {
		skipVia(t, me, roomID, low.ID)

		done, candidate := nextVia(t, me, roomID)
		if !done || candidate != nil {
			t.Fatalf("expected done=true with no candidate, got done=%v candidate=%v", done, candidate)
		}
	})
}
