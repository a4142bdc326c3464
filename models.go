package main

import "time"

// Profile holds the matching-relevant attributes of a user.
// The list fields are unordered sets of case-insensitive strings.
// A missing list is treated as empty, never as an error.
type Profile struct {
	UserID          int      `json:"user_id"`
	DisplayName     string   `json:"display_name"`
	Headline        string   `json:"headline"`
	Role            string   `json:"role"`
	Industries      []string `json:"industries"`
	Skills          []string `json:"skills"`
	Interests       []string `json:"interests"`
	NetworkingGoals []string `json:"networking_goals"`
	LinkedinURL     string   `json:"linkedin_url"`
	PhotoURL        string   `json:"photo_url"`
}

// Room scopes who can be matched against whom, optionally tied to an event.
type Room struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	EventName string    `json:"event_name,omitempty"`
	CreatedBy int       `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// QueueEntry is one precomputed, ranked candidate awaiting a like/skip decision.
type QueueEntry struct {
	RoomID      int       `json:"room_id"`
	ForUserID   int       `json:"for_user_id"`
	CandidateID int       `json:"candidate_id"`
	Score       int       `json:"score"`
	Rationale   string    `json:"rationale"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// Candidate is the truncated, anonymized view served before a mutual match.
// Attribute lists are capped and the photo is flagged for client-side
// obscuring; name and contact fields never appear here.
type Candidate struct {
	CandidateID   int      `json:"candidate_id"`
	Headline      string   `json:"headline,omitempty"`
	Role          string   `json:"role,omitempty"`
	Industries    []string `json:"industries"`
	Skills        []string `json:"skills"`
	Interests     []string `json:"interests"`
	Score         int      `json:"score"`
	Rationale     string   `json:"rationale"`
	PhotoURL      string   `json:"photo_url,omitempty"`
	PhotoObscured bool     `json:"photo_obscured"`
}
