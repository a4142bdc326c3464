package main

import (
	"net/http"
	"os"
)

// The backend needs Cross-Origin Resource Sharing to function with the
// frontend in modern browsers.

func withCORS(next http.Handler) http.Handler {
	// FRONTEND_ORIGIN overrides the dev-server default in deployments.
	deployed := os.Getenv("FRONTEND_ORIGIN")
	if deployed == "" {
		deployed = "http://localhost:4173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "http://localhost:5173" || origin == "http://127.0.0.1:5173" ||
			origin == deployed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", deployed)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight request
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
