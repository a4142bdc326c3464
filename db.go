package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq" // PostgreSQL driver
)

var db *sql.DB

func initDB() {
	// Load .env if present; real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		log.Default().Println("Loaded environment from .env file")
	}

	// Get database URL from environment variable, fallback to default for development
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		connStr = "user=admin password=password dbname=roomlinkdb sslmode=disable"
		log.Default().Println("Warning: DATABASE_URL not set, using default connection string")
	}

	var err error
	db, err = sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal("Error connecting to the database:", err)
	}
	err = db.Ping()
	if err != nil {
		log.Fatal("Cannot reach the database:", err)
	}
	log.Default().Println("Database connection established successfully")

	if err := ensureSchema(db); err != nil {
		log.Fatal("Error ensuring database schema:", err)
	}
}

// ensureSchema creates the tables on first run. All statements are
// idempotent, so running this against an existing database is a no-op.
func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_online TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			display_name TEXT NOT NULL DEFAULT '',
			headline TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT '',
			industries JSONB NOT NULL DEFAULT '[]',
			skills JSONB NOT NULL DEFAULT '[]',
			interests JSONB NOT NULL DEFAULT '[]',
			networking_goals JSONB NOT NULL DEFAULT '[]',
			linkedin_url TEXT NOT NULL DEFAULT '',
			photo_url TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS rooms (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			event_name TEXT NOT NULL DEFAULT '',
			created_by INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS room_members (
			room_id INTEGER NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (room_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS interactions (
			room_id INTEGER NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
			actor_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			target_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			action TEXT NOT NULL CHECK (action IN ('like', 'skip')),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (room_id, actor_id, target_id)
		)`,
		`CREATE TABLE IF NOT EXISTS match_queue (
			room_id INTEGER NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
			for_user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			candidate_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			score INTEGER NOT NULL,
			rationale TEXT NOT NULL DEFAULT '',
			enqueued_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (room_id, for_user_id, candidate_id)
		)`,
		`CREATE TABLE IF NOT EXISTS synergies (
			room_id INTEGER NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
			user_a INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			user_b INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			summary TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (room_id, user_a, user_b),
			CHECK (user_a < user_b)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
