// Package activationcode exposes the read/update surface the lifecycle
// service needs for activation codes: status check and mark-used. Issuing
// codes belongs to the provisioning flow, not this module.
package activationcode

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/OlyRIO/sim-erp-app/internal/sim/models"
	"github.com/OlyRIO/sim-erp-app/pkg/sentinel"
	"github.com/OlyRIO/sim-erp-app/pkg/tx"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) q(ctx context.Context) interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
} {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *Postgres) Get(ctx context.Context, code string) (*models.ActivationCode, error) {
	query := `
		SELECT code, sim_card_id, status, expires_at, used_at
		FROM activation_codes
		WHERE code = $1
	`
	var (
		ac        models.ActivationCode
		simID     uuid.NullUUID
		status    string
		expiresAt sql.NullTime
		usedAt    sql.NullTime
	)
	err := s.q(ctx).QueryRowContext(ctx, query, code).Scan(&ac.Code, &simID, &status, &expiresAt, &usedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get activation code: %w", err)
	}
	ac.Status = models.CodeStatus(status)
	if simID.Valid {
		ac.SimCardID = &simID.UUID
	}
	if expiresAt.Valid {
		ac.ExpiresAt = &expiresAt.Time
	}
	if usedAt.Valid {
		ac.UsedAt = &usedAt.Time
	}
	return &ac, nil
}

// MarkUsed consumes a code. The WHERE clause guards against double spend
// even if two activations race past the service-level check.
func (s *Postgres) MarkUsed(ctx context.Context, code string, simID uuid.UUID, now time.Time) error {
	query := `
		UPDATE activation_codes
		SET status = $2, sim_card_id = $3, used_at = $4
		WHERE code = $1 AND status = $5
	`
	res, err := s.q(ctx).ExecContext(ctx, query, code, string(models.CodeUsed), simID, now, string(models.CodeUnused))
	if err != nil {
		return fmt.Errorf("mark activation code used: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark activation code used: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}
