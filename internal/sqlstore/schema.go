package sqlstore

import "fmt"

// initializeSchema creates the tables the store needs if they don't
// already exist: plain CREATE TABLE IF NOT EXISTS statements run once at
// connect time. The review_records surrogate key needs a driver-specific
// spelling, so every statement that differs between SQLite and Postgres
// branches on DriverName().
func (s *Store) initializeSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			word TEXT NOT NULL,
			meaning TEXT NOT NULL,
			level INTEGER DEFAULT 0,
			virtual_review_count DOUBLE PRECISION DEFAULT 0,
			actual_review_count INTEGER DEFAULT 0,
			sensitivity DOUBLE PRECISION DEFAULT 1,
			next_review_time TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create items table: %v", err)
	}

	recordsIDColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.db.DriverName() == "postgres" {
		recordsIDColumn = "id SERIAL PRIMARY KEY"
	}
	_, err = s.db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS review_records (
			%s,
			item_id TEXT NOT NULL,
			dwell_millis BIGINT NOT NULL,
			review_time TIMESTAMP NOT NULL,
			action TEXT NOT NULL,
			session_id TEXT,
			FOREIGN KEY (item_id) REFERENCES items(id)
		)
	`, recordsIDColumn))
	if err != nil {
		return fmt.Errorf("failed to create review_records table: %v", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_meta table: %v", err)
	}

	return nil
}
