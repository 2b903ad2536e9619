// Package event persists the append-only SimEvent audit trail. The store
// never reads or validates business rules; it records what the lifecycle
// service already decided, inside the service's transaction.
package event

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/OlyRIO/sim-erp-app/internal/sim/models"
	"github.com/OlyRIO/sim-erp-app/pkg/tx"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Append inserts one event using the transaction from the context, so the
// event commits or rolls back together with the SimCard mutation it
// documents. Seq comes from a BIGSERIAL and fixes insertion order even for
// same-timestamp events.
func (s *Postgres) Append(ctx context.Context, ev *models.SimEvent) error {
	t, ok := tx.From(ctx)
	if !ok {
		return fmt.Errorf("event append requires a transaction in context")
	}
	query := `
		INSERT INTO sim_events (id, sim_card_id, type, old_status, new_status, note, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq
	`
	err := t.QueryRowContext(ctx, query,
		ev.ID, ev.SimCardID, string(ev.Type),
		nullStatus(ev.OldStatus), nullStatus(ev.NewStatus),
		ev.Note, nullUUID(ev.CreatedBy), ev.CreatedAt,
	).Scan(&ev.Seq)
	if err != nil {
		return fmt.Errorf("insert sim event: %w", err)
	}
	return nil
}

// ListBySim returns a SIM's full event history in insertion order.
func (s *Postgres) ListBySim(ctx context.Context, simID uuid.UUID) ([]*models.SimEvent, error) {
	var q interface {
		QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	} = s.db
	if t, ok := tx.From(ctx); ok {
		q = t
	}

	query := `
		SELECT id, sim_card_id, seq, type, old_status, new_status, note, created_by, created_at
		FROM sim_events
		WHERE sim_card_id = $1
		ORDER BY created_at, seq
	`
	rows, err := q.QueryContext(ctx, query, simID)
	if err != nil {
		return nil, fmt.Errorf("list sim events: %w", err)
	}
	defer rows.Close()

	var out []*models.SimEvent
	for rows.Next() {
		var (
			ev        models.SimEvent
			typ       string
			oldStatus sql.NullString
			newStatus sql.NullString
			createdBy uuid.NullUUID
		)
		if err := rows.Scan(&ev.ID, &ev.SimCardID, &ev.Seq, &typ, &oldStatus, &newStatus, &ev.Note, &createdBy, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sim event: %w", err)
		}
		ev.Type = models.EventType(typ)
		if oldStatus.Valid {
			st := models.Status(oldStatus.String)
			ev.OldStatus = &st
		}
		if newStatus.Valid {
			st := models.Status(newStatus.String)
			ev.NewStatus = &st
		}
		if createdBy.Valid {
			ev.CreatedBy = &createdBy.UUID
		}
		out = append(out, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sim events: %w", err)
	}
	return out, nil
}

func nullStatus(s *models.Status) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*s), Valid: true}
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
