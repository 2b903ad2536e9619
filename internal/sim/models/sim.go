package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/OlyRIO/sim-erp-app/internal/sim/identifier"
	"github.com/OlyRIO/sim-erp-app/pkg/simerrors"
)

// Status is the lifecycle state of a SIM card.
type Status string

const (
	StatusAvailable  Status = "AVAILABLE"
	StatusReserved   Status = "RESERVED"
	StatusActive     Status = "ACTIVE"
	StatusSuspended  Status = "SUSPENDED"
	StatusLostStolen Status = "LOST_STOLEN"
	StatusTerminated Status = "TERMINATED"
)

// Statuses lists every legal status value.
var Statuses = []Status{
	StatusAvailable,
	StatusReserved,
	StatusActive,
	StatusSuspended,
	StatusLostStolen,
	StatusTerminated,
}

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusActive, StatusSuspended, StatusLostStolen, StatusTerminated:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are permitted out of s.
func (s Status) Terminal() bool {
	return s == StatusTerminated
}

// SimCard is the aggregate root for a SIM.
//
// Invariants:
//   - ICCID is 19 digits, Luhn-valid and globally unique
//   - MSISDN, when present, is E.164-shaped and globally unique
//   - Status == ACTIVE implies CustomerID is set
//   - TERMINATED is terminal
//   - CreatedAt is immutable; UpdatedAt is bumped on every mutation
//
// The lifecycle service is the only writer of Status, CustomerID,
// TariffPlanID and UpdatedAt.
type SimCard struct {
	ID     uuid.UUID `json:"id"`
	ICCID  string    `json:"iccid"`
	MSISDN *string   `json:"msisdn,omitempty"`
	// Carrier is derived from the ICCID's operator code at creation and
	// never changes afterwards.
	Carrier      string     `json:"carrier"`
	Status       Status     `json:"status"`
	CustomerID   *uuid.UUID `json:"customer_id,omitempty"`
	TariffPlanID *uuid.UUID `json:"tariff_plan_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewSimCard constructs an AVAILABLE SimCard, validating identifier format.
func NewSimCard(id uuid.UUID, iccid string, msisdn *string, tariffPlanID *uuid.UUID, now time.Time) (*SimCard, error) {
	if !identifier.ValidICCID(iccid) {
		return nil, simerrors.New(simerrors.CodeValidation, "iccid must be 19 digits with a valid Luhn checksum")
	}
	if msisdn != nil && !identifier.ValidMSISDN(*msisdn) {
		return nil, simerrors.New(simerrors.CodeValidation, "msisdn must be a Croatian E.164 mobile number")
	}
	return &SimCard{
		ID:           id,
		ICCID:        iccid,
		MSISDN:       msisdn,
		Carrier:      identifier.Carrier(iccid),
		Status:       StatusAvailable,
		TariffPlanID: tariffPlanID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Clone returns a deep copy so in-memory stores never hand out aliased state.
func (c *SimCard) Clone() *SimCard {
	out := *c
	if c.MSISDN != nil {
		v := *c.MSISDN
		out.MSISDN = &v
	}
	if c.CustomerID != nil {
		v := *c.CustomerID
		out.CustomerID = &v
	}
	if c.TariffPlanID != nil {
		v := *c.TariffPlanID
		out.TariffPlanID = &v
	}
	return &out
}

// ListFilter narrows SIM listings for the read-only query surface.
type ListFilter struct {
	Status *Status
	// Search matches against ICCID and MSISDN substrings.
	Search string
	// Carrier matches the carrier name, case-insensitively, as a substring.
	Carrier string
	Offset  int
	Limit   int
}
