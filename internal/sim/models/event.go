package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies a SimEvent.
type EventType string

const (
	EventCreated       EventType = "CREATED"
	EventAssigned      EventType = "ASSIGNED"
	EventStatusChanged EventType = "STATUS_CHANGED"
	EventActivated     EventType = "ACTIVATED"
	EventSuspended     EventType = "SUSPENDED"
	EventTerminated    EventType = "TERMINATED"
	EventImported      EventType = "IMPORTED"
	EventSwapped       EventType = "SWAPPED"
)

// SimEvent is one append-only audit record. Events are written only by the
// event store, inside the same transaction as the SimCard mutation they
// document, and are never updated or deleted.
//
// Seq is assigned by the store on insert and is strictly increasing, so
// same-timestamp events for one SIM still have a total order.
type SimEvent struct {
	ID        uuid.UUID  `json:"id"`
	SimCardID uuid.UUID  `json:"sim_card_id"`
	Seq       int64      `json:"seq"`
	Type      EventType  `json:"type"`
	OldStatus *Status    `json:"old_status,omitempty"`
	NewStatus *Status    `json:"new_status,omitempty"`
	Note      string     `json:"note,omitempty"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewEvent builds a non-status event (CREATED, ASSIGNED, IMPORTED, SWAPPED).
func NewEvent(simID uuid.UUID, t EventType, note string, now time.Time) *SimEvent {
	return &SimEvent{
		ID:        uuid.New(),
		SimCardID: simID,
		Type:      t,
		Note:      note,
		CreatedAt: now,
	}
}

// NewStatusEvent builds an event documenting a status change.
func NewStatusEvent(simID uuid.UUID, t EventType, from, to Status, note string, now time.Time) *SimEvent {
	ev := NewEvent(simID, t, note, now)
	ev.OldStatus = &from
	ev.NewStatus = &to
	return ev
}
