package main

import (
	"log"
	"net/http"
	"os"
)

// JWT secret from environment variable or fallback
func getJWTSecret() []byte {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return []byte(secret)
	}
	return []byte("your_secret_key_please_change_in_production")
}

var jwtSecret = getJWTSecret()

func main() {
	initDB()
	initTextGenerator()

	mux := http.NewServeMux()

	// Core auth & user endpoints
	mux.Handle("/register", registerHandler(db))
	mux.Handle("/login", loginHandler(db))
	mux.Handle("/me", meHandler(db))
	mux.Handle("/me/profile", meProfileHandler(db))

	// Pairwise compatibility lookup
	mux.Handle("/score/", scoreHandler(db))

	// Rooms + the room-scoped matching pipeline
	// (join, members, summary, status, queue/{build,next,reset}, like, skip)
	mux.Handle("/rooms", roomsHandler(db))
	mux.Handle("/rooms/", roomsDispatcher(db))

	// Full profile of another user; gated until a mutual match exists
	mux.Handle("/users/", userProfileHandler(db))

	// WebSocket for mutual-match notifications
	mux.Handle("/ws/matches", wsMatchesHandler())

	// Health check endpoint for Docker
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Default().Println("Starting RoomLink backend on port " + port + "...")
	http.ListenAndServe(":"+port, withCORS(mux))
}
