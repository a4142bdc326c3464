package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// ============================================================================
// AUTHENTICATION TEST SUITE
// ============================================================================

func TestAuthSuite(t *testing.T) {
	requireDB(t)

	t.Run("Register", func(t *testing.T) {
		testRegister(t)
	})

	t.Run("Login", func(t *testing.T) {
		testLogin(t)
	})

	t.Run("Middleware", func(t *testing.T) {
		testAuthMiddleware(t)
	})
}

func testRegister(t *testing.T) {
	defer cleanupTestData("auth_new@example.com")

	t.Run("successful registration returns a token", func(t *testing.T) {
		user := createTestUser(t, "auth_new@example.com", "password123")
		if user.Token == "" || user.ID == 0 {
			t.Fatalf("expected token and id, got %+v", user)
		}
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"email": "auth_new@example.com", "password": "other"})
		req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
		w := httptest.NewRecorder()

		registerHandler(db).ServeHTTP(w, req)

		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"email": "", "password": ""})
		req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
		w := httptest.NewRecorder()

		registerHandler(db).ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}

func testLogin(t *testing.T) {
	user := createTestUser(t, "auth_login@example.com", "password123")
	defer cleanupTestData(user.Email)

	t.Run("valid credentials", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"email": user.Email, "password": user.Password})
		req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
		w := httptest.NewRecorder()

		loginHandler(db).ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
		}
		var resp struct {
			Token string `json:"token"`
			ID    int    `json:"id"`
		}
		json.NewDecoder(w.Body).Decode(&resp)
		if resp.Token == "" || resp.ID != user.ID {
			t.Fatalf("unexpected login response: %+v", resp)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"email": user.Email, "password": "nope"})
		req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
		w := httptest.NewRecorder()

		loginHandler(db).ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"email": "ghost@example.com", "password": "boo"})
		req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
		w := httptest.NewRecorder()

		loginHandler(db).ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})
}

func testAuthMiddleware(t *testing.T) {
	user := createTestUser(t, "auth_mid@example.com", "password123")
	defer cleanupTestData(user.Email)

	t.Run("valid token passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+user.Token)
		w := httptest.NewRecorder()

		meHandler(db).ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("missing token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		w := httptest.NewRecorder()

		meHandler(db).ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer not.a.jwt")
		w := httptest.NewRecorder()

		meHandler(db).ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})
}
