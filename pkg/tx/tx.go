// Package tx carries a SQL transaction through context so stores can share
// one transaction without threading *sql.Tx through every signature.
package tx

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/OlyRIO/sim-erp-app/pkg/sentinel"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Runner executes a function within a single transaction scope. Everything
// the function does through context-aware stores commits or rolls back as
// one unit.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

const defaultTxTimeout = 5 * time.Second

// SQL is a Runner backed by database/sql transactions.
type SQL struct {
	db      *sql.DB
	timeout time.Duration
}

func NewSQL(db *sql.DB, timeout time.Duration) *SQL {
	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	return &SQL{db: db, timeout: timeout}
}

func (r *SQL) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

// Serial is a Runner for in-memory stores. A single mutex serializes all
// transactions, which gives the same linearization the row lock provides in
// Postgres. There is no rollback; callers validate before mutating.
type Serial struct {
	mu sync.Mutex
}

func NewSerial() *Serial {
	return &Serial{}
}

func (r *Serial) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}
	return fn(ctx)
}
