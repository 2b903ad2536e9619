// Package service implements the SIM lifecycle manager: it is the only
// writer of SimCard status, customer and tariff plan fields, and every
// mutation commits atomically with its audit events.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/OlyRIO/sim-erp-app/internal/sim/identifier"
	"github.com/OlyRIO/sim-erp-app/internal/sim/metrics"
	"github.com/OlyRIO/sim-erp-app/internal/sim/models"
	"github.com/OlyRIO/sim-erp-app/pkg/sentinel"
	"github.com/OlyRIO/sim-erp-app/pkg/simerrors"
	"github.com/OlyRIO/sim-erp-app/pkg/tx"
)

// SimCardStore is the persistence surface for SIM cards. GetForUpdate must
// hold an exclusive per-row lock for the rest of the transaction.
type SimCardStore interface {
	Create(ctx context.Context, sim *models.SimCard) error
	Get(ctx context.Context, id uuid.UUID) (*models.SimCard, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.SimCard, error)
	Update(ctx context.Context, sim *models.SimCard) error
	List(ctx context.Context, filter models.ListFilter) ([]*models.SimCard, int, error)
}

// EventStore appends immutable audit events inside the caller's transaction.
type EventStore interface {
	Append(ctx context.Context, ev *models.SimEvent) error
	ListBySim(ctx context.Context, simID uuid.UUID) ([]*models.SimEvent, error)
}

// ActivationCodeStore is the read/update surface for activation codes.
type ActivationCodeStore interface {
	Get(ctx context.Context, code string) (*models.ActivationCode, error)
	MarkUsed(ctx context.Context, code string, simID uuid.UUID, now time.Time) error
}

// IdentifierGenerator yields format-valid ICCID/MSISDN candidates.
type IdentifierGenerator interface {
	ICCID() string
	MSISDN() string
}

// Service is the lifecycle manager. All mutating operations run inside a
// single transaction: read current state under lock, validate against the
// transition table, write, append events, commit.
type Service struct {
	sims    SimCardStore
	events  EventStore
	codes   ActivationCodeStore
	gen     IdentifierGenerator
	tx      tx.Runner
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	importWorkers int
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithGenerator(gen IdentifierGenerator) Option {
	return func(s *Service) { s.gen = gen }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithImportWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.importWorkers = n
		}
	}
}

func New(sims SimCardStore, events EventStore, codes ActivationCodeStore, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		sims:          sims,
		events:        events,
		codes:         codes,
		gen:           identifier.NewGenerator(),
		tx:            runner,
		logger:        slog.Default(),
		now:           time.Now,
		importWorkers: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lockSim reads a SIM under the row lock and translates store facts into
// domain errors. Call only inside a transaction.
func (s *Service) lockSim(ctx context.Context, id uuid.UUID) (*models.SimCard, error) {
	sim, err := s.sims.GetForUpdate(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, "sim card")
	}
	return sim, nil
}

// wrapStoreErr maps sentinel/infrastructure errors onto the domain
// taxonomy. Errors that already carry a code pass through untouched. Lock
// waits that time out surface as CodeConflict so callers can decide their
// own retry policy; the service never retries transitions.
func wrapStoreErr(err error, what string) error {
	if err == nil {
		return nil
	}
	var coded *simerrors.Error
	if errors.As(err, &coded) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return simerrors.Wrap(err, simerrors.CodeNotFound, what+" not found")
	case errors.Is(err, sentinel.ErrConflict),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return simerrors.Wrap(err, simerrors.CodeConflict, "concurrent access to "+what)
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return simerrors.Wrap(err, simerrors.CodeConflict, what+" identifier already in use")
	case errors.Is(err, sentinel.ErrUnavailable):
		return simerrors.Wrap(err, simerrors.CodeUnavailable, "store unavailable")
	default:
		return simerrors.Wrap(err, simerrors.CodeInternal, "store failure")
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(simerrors.CodeOf(err))
}
