package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/crewdesk/internal/domain"
)

// UnitOfWork manages transactional boundaries. The callback receives a DBTX
// backed by a *sql.Tx; callers create tx-scoped repositories from it.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}

// UoWOption configures a SQLiteUnitOfWork.
type UoWOption func(*SQLiteUnitOfWork)

// WithBusyRetries reruns a transaction that failed with ErrStoreUnavailable
// up to n more times, waiting delay (doubled each attempt) in between.
func WithBusyRetries(n int, delay time.Duration) UoWOption {
	return func(u *SQLiteUnitOfWork) {
		u.retries = max(n, 0)
		u.retryDelay = delay
	}
}

// WithTxWrapper hands fn a wrapped transaction instead of the raw *sql.Tx.
// Tests use it to inject failures; wrap is called once per attempt.
func WithTxWrapper(wrap func(DBTX) DBTX) UoWOption {
	return func(u *SQLiteUnitOfWork) {
		u.wrap = wrap
	}
}

// SQLiteUnitOfWork implements UnitOfWork using database/sql transactions.
type SQLiteUnitOfWork struct {
	db         *sql.DB
	retries    int
	retryDelay time.Duration
	wrap       func(DBTX) DBTX
}

func NewSQLiteUnitOfWork(db *sql.DB, opts ...UoWOption) *SQLiteUnitOfWork {
	u := &SQLiteUnitOfWork{db: db, retries: 2, retryDelay: 20 * time.Millisecond}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// WithinTx runs fn in a transaction, committing on nil and rolling back on
// error or panic. fn may run more than once when the store is busy, so it
// must not have side effects outside tx.
func (u *SQLiteUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	delay := u.retryDelay
	for attempt := 0; ; attempt++ {
		err := u.once(ctx, fn)
		if err == nil || attempt >= u.retries || !errors.Is(err, domain.ErrStoreUnavailable) {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func (u *SQLiteUnitOfWork) once(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", Classify(err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var scoped DBTX = tx
	if u.wrap != nil {
		scoped = u.wrap(tx)
	}
	if err := fn(ctx, scoped); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", Classify(err))
	}
	return nil
}
