package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Options tunes connection behaviour. The zero value is usable.
type Options struct {
	// BusyTimeout is how long a writer waits on a locked database before
	// the store reports ErrStoreUnavailable.
	BusyTimeout time.Duration
}

const defaultBusyTimeout = 5 * time.Second

// OpenDB opens a SQLite database at the given path.
// If path is ":memory:", uses an in-memory database.
// Sets WAL mode, a busy timeout and foreign keys on every pooled connection.
// Runs migrations automatically.
func OpenDB(path string, opts ...Options) (*sql.DB, error) {
	var opt Options
	if len(opts) > 0 {
		opt = opts[0]
	}
	if opt.BusyTimeout <= 0 {
		opt.BusyTimeout = defaultBusyTimeout
	}

	memory := path == ":memory:"
	if !memory {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path, opt))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Each in-memory connection is a separate database; pin the pool to one.
	if memory {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", Classify(err))
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

// dsn attaches connection pragmas so they apply to every connection the pool opens.
func dsn(path string, opt Options) string {
	pragmas := fmt.Sprintf("_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", opt.BusyTimeout.Milliseconds())
	if path == ":memory:" {
		return "file::memory:?" + pragmas
	}
	return "file:" + path + "?" + pragmas + "&_pragma=journal_mode(WAL)"
}
