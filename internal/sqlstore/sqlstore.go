// Package sqlstore implements the Storage trait (§6) on top of sqlx,
// supporting both SQLite (via mattn/go-sqlite3, for local/dev use) and
// PostgreSQL (via lib/pq), branching on DB.DriverName() rather than a
// build tag so a single binary supports either driver. This is the
// durable sink the batch writer (C8) is the only path allowed to call.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/example/reviewcore/pkg/models"
)

// Store implements internal/core.Storage.
type Store struct {
	db *sqlx.DB
}

// Open connects to driverName/dsn ("sqlite3"/path or "postgres"/conn
// string). SQLite gets a single connection since it serializes writers;
// handing out a second connection just queues it behind SQLITE_BUSY.
func Open(driverName, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	if driverName == "sqlite3" {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("failed to enable foreign keys: %v", err)
		}
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	s := &Store{db: db}
	if err := s.initializeSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) placeholder(n int) string {
	if s.db.DriverName() == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// PutItem upserts an item by ID.
func (s *Store) PutItem(ctx context.Context, item *models.Item) error {
	if s.db.DriverName() == "postgres" {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO items (id, word, meaning, level, virtual_review_count, actual_review_count, sensitivity, next_review_time, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				word = EXCLUDED.word,
				meaning = EXCLUDED.meaning,
				level = EXCLUDED.level,
				virtual_review_count = EXCLUDED.virtual_review_count,
				actual_review_count = EXCLUDED.actual_review_count,
				sensitivity = EXCLUDED.sensitivity,
				next_review_time = EXCLUDED.next_review_time
		`,
			item.ID, item.Word, item.Meaning, item.Level, item.VirtualReviewCount,
			item.ActualReviewCount, item.Sensitivity, item.NextReviewTime, item.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to put item: %v", err)
		}
		return nil
	}

	// SQLite's UPSERT syntax isn't reliable across driver versions, so
	// fall back to check-then-write instead of ON CONFLICT DO UPDATE.
	var exists int
	err := s.db.GetContext(ctx, &exists, "SELECT COUNT(*) FROM items WHERE id = ?", item.ID)
	if err != nil {
		return fmt.Errorf("failed to check item existence: %v", err)
	}
	if exists > 0 {
		_, err = s.db.ExecContext(ctx, `
			UPDATE items SET word = ?, meaning = ?, level = ?, virtual_review_count = ?,
				actual_review_count = ?, sensitivity = ?, next_review_time = ?
			WHERE id = ?
		`, item.Word, item.Meaning, item.Level, item.VirtualReviewCount,
			item.ActualReviewCount, item.Sensitivity, item.NextReviewTime, item.ID)
	} else {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO items (id, word, meaning, level, virtual_review_count, actual_review_count, sensitivity, next_review_time, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, item.ID, item.Word, item.Meaning, item.Level, item.VirtualReviewCount,
			item.ActualReviewCount, item.Sensitivity, item.NextReviewTime, item.CreatedAt)
	}
	if err != nil {
		return fmt.Errorf("failed to put item: %v", err)
	}
	return nil
}

// AppendRecord inserts a review record for itemID.
func (s *Store) AppendRecord(ctx context.Context, itemID string, record models.ReviewRecord) error {
	query := `
		INSERT INTO review_records (item_id, dwell_millis, review_time, action, session_id)
		VALUES (?, ?, ?, ?, ?)
	`
	if s.db.DriverName() == "postgres" {
		query = `
			INSERT INTO review_records (item_id, dwell_millis, review_time, action, session_id)
			VALUES ($1, $2, $3, $4, $5)
		`
	}
	_, err := s.db.ExecContext(ctx, query, itemID, record.DwellMillis, record.ReviewTime, string(record.Action), record.SessionID)
	if err != nil {
		return fmt.Errorf("failed to append record: %v", err)
	}
	return nil
}

// LoadAllItems returns every item, ordered by next_review_time.
func (s *Store) LoadAllItems(ctx context.Context) ([]*models.Item, error) {
	var items []*models.Item
	err := s.db.SelectContext(ctx, &items, "SELECT * FROM items ORDER BY next_review_time ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %v", err)
	}
	return items, nil
}

// LoadHistory returns itemID's full history in review order, oldest first.
// It applies no length limit; store.GetHistory trims to the last 200.
func (s *Store) LoadHistory(ctx context.Context, itemID string) ([]models.ReviewRecord, error) {
	query := "SELECT item_id, dwell_millis, review_time, action, session_id FROM review_records WHERE item_id = ? ORDER BY review_time ASC"
	if s.db.DriverName() == "postgres" {
		query = "SELECT item_id, dwell_millis, review_time, action, session_id FROM review_records WHERE item_id = $1 ORDER BY review_time ASC"
	}
	var records []models.ReviewRecord
	err := s.db.SelectContext(ctx, &records, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %v", err)
	}
	return records, nil
}

// HighWaterMark reads the persisted item-ID counter from schema_meta,
// returning 0 if it has never been set.
func (s *Store) HighWaterMark(ctx context.Context) (int, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM schema_meta WHERE key = 'item_id_high_water_mark'")
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read id high-water mark: %v", err)
	}
	var n int
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
		return 0, fmt.Errorf("failed to parse id high-water mark: %v", err)
	}
	return n, nil
}

// SaveHighWaterMark persists the item-ID counter so numbering survives a
// restart (Design Note: "Global ID counter ... may be persisted across
// restarts by serializing the current maximum").
func (s *Store) SaveHighWaterMark(ctx context.Context, n int) error {
	value := fmt.Sprintf("%d", n)
	if s.db.DriverName() == "postgres" {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO schema_meta (key, value) VALUES ('item_id_high_water_mark', $1)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
		`, value)
		return err
	}
	var exists int
	if err := s.db.GetContext(ctx, &exists, "SELECT COUNT(*) FROM schema_meta WHERE key = 'item_id_high_water_mark'"); err != nil {
		return err
	}
	if exists > 0 {
		_, err := s.db.ExecContext(ctx, "UPDATE schema_meta SET value = ? WHERE key = 'item_id_high_water_mark'", value)
		return err
	}
	_, err := s.db.ExecContext(ctx, "INSERT INTO schema_meta (key, value) VALUES ('item_id_high_water_mark', ?)", value)
	return err
}
