package testutil

import (
	"context"
	"database/sql"
	"sync/atomic"

	"github.com/alexanderramin/crewdesk/internal/db"
)

// FailOnNthExecUoW runs transactions like the production unit of work but
// fails the FailOn-th ExecContext (counting from 1) with Err, so multi-row
// writes such as replacing a job's worker set can be checked for rollback.
type FailOnNthExecUoW struct {
	DB     *sql.DB
	FailOn int32
	Err    error
}

func (u *FailOnNthExecUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	uow := db.NewSQLiteUnitOfWork(u.DB, db.WithTxWrapper(func(tx db.DBTX) db.DBTX {
		return &failOnNthExec{DBTX: tx, failOn: u.FailOn, err: u.Err}
	}))
	return uow.WithinTx(ctx, fn)
}

type failOnNthExec struct {
	db.DBTX
	count  atomic.Int32
	failOn int32
	err    error
}

func (f *failOnNthExec) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if f.count.Add(1) == f.failOn {
		return nil, f.err
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}
