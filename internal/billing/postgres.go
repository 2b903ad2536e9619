package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/OlyRIO/sim-erp-app/pkg/sentinel"
	"github.com/OlyRIO/sim-erp-app/pkg/tx"
)

// Postgres persists billing accounts and bills.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) q(ctx context.Context) interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
} {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *Postgres) CreateAccount(ctx context.Context, a *Account) error {
	query := `INSERT INTO billing_accounts (id, account_number, customer_id, status, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.q(ctx).ExecContext(ctx, query, a.ID, a.AccountNumber, a.CustomerID, string(a.Status), a.CreatedAt); err != nil {
		return fmt.Errorf("insert billing account: %w", mapUnique(err))
	}
	return nil
}

func (s *Postgres) GetAccountByNumber(ctx context.Context, accountNumber string) (*Account, error) {
	query := `SELECT id, account_number, customer_id, status, created_at FROM billing_accounts WHERE lower(account_number) = lower($1)`
	var (
		a      Account
		status string
	)
	err := s.q(ctx).QueryRowContext(ctx, query, accountNumber).
		Scan(&a.ID, &a.AccountNumber, &a.CustomerID, &status, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("billing account %q: %w", accountNumber, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get billing account: %w", err)
	}
	a.Status = AccountStatus(status)
	return &a, nil
}

func (s *Postgres) CreateBill(ctx context.Context, b *Bill) error {
	query := `INSERT INTO bills (id, account_id, bill_month, total_amount_cents, status, issue_date, due_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	var due sql.NullTime
	if b.DueDate != nil {
		due = sql.NullTime{Time: *b.DueDate, Valid: true}
	}
	if _, err := s.q(ctx).ExecContext(ctx, query,
		b.ID, b.AccountID, b.BillMonth, b.TotalAmountCents, string(b.Status), b.IssueDate, due, b.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert bill: %w", err)
	}
	return nil
}

// ListOpenBills returns the account's unpaid bills, oldest month first.
func (s *Postgres) ListOpenBills(ctx context.Context, accountID string) ([]*Bill, error) {
	query := `SELECT id, account_id, bill_month, total_amount_cents, status, issue_date, due_date, created_at
		FROM bills WHERE account_id = $1 AND status <> $2 ORDER BY bill_month`
	rows, err := s.q(ctx).QueryContext(ctx, query, accountID, string(BillPaid))
	if err != nil {
		return nil, fmt.Errorf("list open bills: %w", err)
	}
	defer rows.Close()

	var out []*Bill
	for rows.Next() {
		var (
			b      Bill
			status string
			due    sql.NullTime
		)
		if err := rows.Scan(&b.ID, &b.AccountID, &b.BillMonth, &b.TotalAmountCents, &status, &b.IssueDate, &due, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		b.Status = BillStatus(status)
		if due.Valid {
			b.DueDate = &due.Time
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

// LastOpenBill returns the most recent unpaid bill on the account.
func (s *Postgres) LastOpenBill(ctx context.Context, accountID string) (*Bill, error) {
	open, err := s.ListOpenBills(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, fmt.Errorf("open bill for account %s: %w", accountID, sentinel.ErrNotFound)
	}
	return open[len(open)-1], nil
}

func mapUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, sentinel.ErrAlreadyUsed)
	}
	return err
}
