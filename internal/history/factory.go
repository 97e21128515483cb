package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/aliceagent/alice-display/internal/config"
	"github.com/aliceagent/alice-display/internal/display"
)

// DatabaseName is the SQLite history file inside the configured data dir.
const DatabaseName = "history.db"

// NewHistoryStoreFromConfig creates a HistoryStore implementation based on the history config type.
// A SQLite database that cannot be opened does not fail the run: a corrupt
// file is moved aside and replaced, and any other failure falls back to an
// in-memory history. Both cases are logged.
func NewHistoryStoreFromConfig(cfg config.HistoryConfig, logger display.Logger) (display.HistoryStore, error) {
	if logger == nil {
		logger = display.NewNopLogger()
	}
	switch cfg.Type {
	case "file", "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("path required for file history")
		}
		return NewFileStore(cfg.Path, logger), nil
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite history")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating history data dir: %w", err)
		}
		return openSQLiteHistory(filepath.Join(cfg.DataDir, DatabaseName), logger), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown history type: %s", cfg.Type)
	}
}

// NewReadOnlyHistoryStoreFromConfig creates a HistoryStore for commands that
// only read history. Nothing is created or migrated on disk: a missing
// SQLite database reads as an empty history, and an existing one is opened
// read-only.
func NewReadOnlyHistoryStoreFromConfig(cfg config.HistoryConfig, logger display.Logger) (display.HistoryStore, error) {
	if logger == nil {
		logger = display.NewNopLogger()
	}
	if cfg.Type != "sqlite" {
		return NewHistoryStoreFromConfig(cfg, logger)
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data_dir required for sqlite history")
	}

	path := filepath.Join(cfg.DataDir, DatabaseName)
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("history database unavailable; using empty history", "path", path, "error", err)
		}
		return NewMemoryStore(), nil
	}

	store, err := NewReadOnlySQLiteStore(path)
	if err != nil {
		logger.Warn("history database unavailable; using empty history", "path", path, "error", err)
		return NewMemoryStore(), nil
	}
	return store, nil
}

// openSQLiteHistory opens the database at path, recovering from a corrupt
// file by moving it to <path>.corrupt-<timestamp> and starting fresh.
func openSQLiteHistory(path string, logger display.Logger) display.HistoryStore {
	store, err := NewSQLiteStore(path)
	if err == nil {
		return store
	}

	if isCorrupt(err) {
		aside := path + ".corrupt-" + time.Now().UTC().Format("20060102T150405Z")
		logger.Warn("history database is corrupt; moving it aside", "path", path, "moved_to", aside, "error", err)
		if rerr := os.Rename(path, aside); rerr != nil {
			err = fmt.Errorf("moving corrupt database aside: %w", rerr)
		} else {
			for _, suffix := range []string{"-wal", "-shm", "-journal"} {
				if rerr := os.Rename(path+suffix, aside+suffix); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
					logger.Warn("moving database sidecar aside failed", "path", path+suffix, "error", rerr)
				}
			}
			if store, err = NewSQLiteStore(path); err == nil {
				return store
			}
		}
	}

	logger.Warn("history database unavailable; using in-memory history", "path", path, "error", err)
	return NewMemoryStore()
}

// isCorrupt reports whether err means the file is not a usable SQLite
// database. Errors wrapped by the migration driver lose their type, so the
// message is checked as well.
func isCorrupt(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrNotADB || se.Code == sqlite3.ErrCorrupt
	}
	msg := err.Error()
	return strings.Contains(msg, "file is not a database") || strings.Contains(msg, "malformed")
}
