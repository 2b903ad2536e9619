package refdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/OlyRIO/sim-erp-app/pkg/sentinel"
	"github.com/OlyRIO/sim-erp-app/pkg/tx"
)

// Postgres persists customers and tariff plans.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) q(ctx context.Context) interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
} {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *Postgres) CreateCustomer(ctx context.Context, c *Customer) error {
	query := `INSERT INTO customers (id, name, email, created_at) VALUES ($1, $2, $3, $4)`
	var email sql.NullString
	if c.Email != nil {
		email = sql.NullString{String: *c.Email, Valid: true}
	}
	if _, err := s.q(ctx).ExecContext(ctx, query, c.ID, c.Name, email, c.CreatedAt); err != nil {
		return fmt.Errorf("insert customer: %w", mapUnique(err))
	}
	return nil
}

func (s *Postgres) ListCustomers(ctx context.Context) ([]*Customer, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `SELECT id, name, email, created_at FROM customers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []*Customer
	for rows.Next() {
		var (
			c     Customer
			email sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &email, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		if email.Valid {
			c.Email = &email.String
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *Postgres) CreatePlan(ctx context.Context, p *TariffPlan) error {
	query := `INSERT INTO tariff_plans (id, name, description, monthly_price_cents, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.q(ctx).ExecContext(ctx, query, p.ID, p.Name, p.Description, p.MonthlyPriceCents, p.CreatedAt); err != nil {
		return fmt.Errorf("insert tariff plan: %w", mapUnique(err))
	}
	return nil
}

func (s *Postgres) ListPlans(ctx context.Context) ([]*TariffPlan, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `SELECT id, name, description, monthly_price_cents, created_at FROM tariff_plans ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tariff plans: %w", err)
	}
	defer rows.Close()

	var out []*TariffPlan
	for rows.Next() {
		var p TariffPlan
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.MonthlyPriceCents, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tariff plan: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func mapUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, sentinel.ErrAlreadyUsed)
	}
	return err
}
