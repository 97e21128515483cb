package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aliceagent/alice-display/internal/display"
	"github.com/aliceagent/alice-display/internal/history/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore keeps the selection history in a SQLite database.
// Timestamps are stored as Unix nanoseconds in UTC.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens the database at path, applying any pending
// migrations. A database written by a newer binary is refused.
// path can be a file path or ":memory:".
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history database: %w", err)
	}
	if err := migrations.CheckDBMigrationStatus(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("history database schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// NewReadOnlySQLiteStore opens an existing database at path without
// migrating it. The schema must already be current. Record fails on the
// returned store.
func NewReadOnlySQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection("file:" + path + "?mode=ro")
	if err != nil {
		return nil, err
	}
	if err := migrations.CheckDBMigrationStatusReadOnly(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("history database schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each pooled connection to ":memory:" would otherwise get its own database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

// Record inserts entry and deletes everything older than the newest
// MaxHistoryEntries rows, in one transaction.
func (s *SQLiteStore) Record(entry display.HistoryEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO selections (image_id, name, selected_at, weather, time_of_day, activity, run_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Name, entry.Timestamp.UTC().UnixNano(),
		entry.Weather, entry.TimeOfDay, entry.Activity, entry.RunID,
	)
	if err != nil {
		return fmt.Errorf("inserting selection: %w", err)
	}

	_, err = tx.Exec(
		`DELETE FROM selections WHERE id NOT IN (
			SELECT id FROM selections ORDER BY id DESC LIMIT ?
		)`,
		display.MaxHistoryEntries,
	)
	if err != nil {
		return fmt.Errorf("truncating selections: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing selection: %w", err)
	}
	return nil
}

// Entries returns the retained entries, oldest first.
func (s *SQLiteStore) Entries() ([]display.HistoryEntry, error) {
	rows, err := s.db.Query(
		`SELECT image_id, name, selected_at, weather, time_of_day, activity, run_id
		 FROM selections ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing selections: %w", err)
	}
	defer rows.Close()

	var entries []display.HistoryEntry
	for rows.Next() {
		var (
			e  display.HistoryEntry
			ns int64
		)
		if err := rows.Scan(&e.ID, &e.Name, &ns, &e.Weather, &e.TimeOfDay, &e.Activity, &e.RunID); err != nil {
			return nil, fmt.Errorf("scanning selection: %w", err)
		}
		e.Timestamp = time.Unix(0, ns).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating selections: %w", err)
	}
	return entries, nil
}

// RecentIDs returns the ids and names recorded after since.
func (s *SQLiteStore) RecentIDs(since time.Time) (map[string]bool, error) {
	rows, err := s.db.Query(
		`SELECT image_id, name FROM selections WHERE selected_at > ?`,
		since.UTC().UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent selections: %w", err)
	}
	defer rows.Close()

	recent := make(map[string]bool)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scanning recent selection: %w", err)
		}
		if id != "" {
			recent[id] = true
		}
		if name != "" {
			recent[name] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recent selections: %w", err)
	}
	return recent, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
