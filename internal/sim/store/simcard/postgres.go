package simcard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/OlyRIO/sim-erp-app/internal/sim/models"
	"github.com/OlyRIO/sim-erp-app/pkg/sentinel"
	"github.com/OlyRIO/sim-erp-app/pkg/tx"
)

// Postgres persists SIM cards. Mutations require a transaction in the
// context (pkg/tx); reads fall back to the pool. The store is pure I/O;
// transition rules live in the service.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) q(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

const simColumns = "id, iccid, msisdn, carrier, status, customer_id, tariff_plan_id, created_at, updated_at"

func (s *Postgres) Create(ctx context.Context, sim *models.SimCard) error {
	query := `
		INSERT INTO sim_cards (` + simColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		sim.ID, sim.ICCID, nullString(sim.MSISDN), sim.Carrier, string(sim.Status),
		nullUUID(sim.CustomerID), nullUUID(sim.TariffPlanID),
		sim.CreatedAt, sim.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sim card: %w", mapPgErr(err))
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, id uuid.UUID) (*models.SimCard, error) {
	query := `SELECT ` + simColumns + ` FROM sim_cards WHERE id = $1`
	sim, err := scanSim(s.q(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get sim card: %w", mapPgErr(err))
	}
	return sim, nil
}

// GetForUpdate reads a SIM under an exclusive row lock. The lock is held
// until the surrounding transaction commits or rolls back, which serializes
// concurrent transitions against the same SIM.
func (s *Postgres) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.SimCard, error) {
	t, ok := tx.From(ctx)
	if !ok {
		return nil, fmt.Errorf("sim row lock requires a transaction in context")
	}
	query := `SELECT ` + simColumns + ` FROM sim_cards WHERE id = $1 FOR UPDATE`
	sim, err := scanSim(t.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock sim card: %w", mapPgErr(err))
	}
	return sim, nil
}

func (s *Postgres) Update(ctx context.Context, sim *models.SimCard) error {
	t, ok := tx.From(ctx)
	if !ok {
		return fmt.Errorf("sim update requires a transaction in context")
	}
	query := `
		UPDATE sim_cards
		SET msisdn = $2, status = $3, customer_id = $4, tariff_plan_id = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := t.ExecContext(ctx, query,
		sim.ID, nullString(sim.MSISDN), string(sim.Status),
		nullUUID(sim.CustomerID), nullUUID(sim.TariffPlanID), sim.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update sim card: %w", mapPgErr(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update sim card: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) List(ctx context.Context, filter models.ListFilter) ([]*models.SimCard, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("(iccid LIKE $%d OR msisdn LIKE $%d)", len(args), len(args)))
	}
	if filter.Carrier != "" {
		args = append(args, "%"+filter.Carrier+"%")
		where = append(where, fmt.Sprintf("carrier ILIKE $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM sim_cards WHERE ` + cond
	if err := s.q(ctx).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sim cards: %w", mapPgErr(err))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM sim_cards WHERE %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		simColumns, cond, len(args)-1, len(args))

	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sim cards: %w", mapPgErr(err))
	}
	defer rows.Close()

	var out []*models.SimCard
	for rows.Next() {
		sim, err := scanSim(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan sim card: %w", err)
		}
		out = append(out, sim)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list sim cards: %w", err)
	}
	return out, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSim(row rowScanner) (*models.SimCard, error) {
	var (
		sim      models.SimCard
		msisdn   sql.NullString
		status   string
		customer uuid.NullUUID
		plan     uuid.NullUUID
	)
	if err := row.Scan(&sim.ID, &sim.ICCID, &msisdn, &sim.Carrier, &status, &customer, &plan, &sim.CreatedAt, &sim.UpdatedAt); err != nil {
		return nil, err
	}
	sim.Status = models.Status(status)
	if msisdn.Valid {
		sim.MSISDN = &msisdn.String
	}
	if customer.Valid {
		sim.CustomerID = &customer.UUID
	}
	if plan.Valid {
		sim.TariffPlanID = &plan.UUID
	}
	return &sim, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// mapPgErr translates Postgres error classes into sentinel facts:
// unique violations become UniqueViolation (the allocator retries on these
// and inspects the column), lock and serialization failures become
// ErrConflict.
func mapPgErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		return &sentinel.UniqueViolation{Column: constraintColumn(pgErr.ConstraintName)}
	case "55P03", "40001", "40P01": // lock_not_available, serialization_failure, deadlock_detected
		return fmt.Errorf("%s: %w", pgErr.Code, sentinel.ErrConflict)
	}
	return err
}

// constraintColumn resolves the schema's named unique constraints to their
// column. An unknown constraint keeps its name so the error stays readable.
func constraintColumn(name string) string {
	switch name {
	case "sim_cards_iccid_key":
		return "iccid"
	case "sim_cards_msisdn_key":
		return "msisdn"
	}
	return name
}
