package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/OlyRIO/sim-erp-app/pkg/simerrors"
)

// CodeStatus is the consumption state of an activation code.
type CodeStatus string

const (
	CodeUnused CodeStatus = "UNUSED"
	CodeUsed   CodeStatus = "USED"
)

// ActivationCode gates SIM activation. The lifecycle service only checks
// usability and marks codes used; issuing codes belongs to the caller's
// provisioning flow.
type ActivationCode struct {
	Code      string     `json:"code"`
	SimCardID *uuid.UUID `json:"sim_card_id,omitempty"`
	Status    CodeStatus `json:"status"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

// Usable validates that the code can still activate a SIM at the given time.
func (c *ActivationCode) Usable(now time.Time) error {
	if c.Status != CodeUnused {
		return simerrors.New(simerrors.CodeCodeUnusable, "activation code already used")
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return simerrors.New(simerrors.CodeCodeUnusable, "activation code expired")
	}
	return nil
}
