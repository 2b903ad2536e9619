// Package refdata holds the reference entities the SIM core treats as
// opaque foreign keys: customers and tariff plans. Plain CRUD, no lifecycle
// rules; existence is ultimately enforced by the store's foreign keys.
package refdata

import (
	"time"

	"github.com/google/uuid"

	"github.com/OlyRIO/sim-erp-app/pkg/simerrors"
)

type Customer struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewCustomer(id uuid.UUID, name string, email *string, now time.Time) (*Customer, error) {
	if name == "" {
		return nil, simerrors.New(simerrors.CodeValidation, "customer name is required")
	}
	return &Customer{ID: id, Name: name, Email: email, CreatedAt: now}, nil
}

type TariffPlan struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	MonthlyPriceCents int64     `json:"monthly_price_cents"`
	CreatedAt         time.Time `json:"created_at"`
}

func NewTariffPlan(id uuid.UUID, name, description string, monthlyPriceCents int64, now time.Time) (*TariffPlan, error) {
	if name == "" {
		return nil, simerrors.New(simerrors.CodeValidation, "plan name is required")
	}
	if monthlyPriceCents < 0 {
		return nil, simerrors.New(simerrors.CodeValidation, "plan price cannot be negative")
	}
	return &TariffPlan{ID: id, Name: name, Description: description, MonthlyPriceCents: monthlyPriceCents, CreatedAt: now}, nil
}
