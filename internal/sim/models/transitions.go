package models

import (
	"fmt"

	"github.com/OlyRIO/sim-erp-app/pkg/simerrors"
)

// Operation names a lifecycle transition request.
type Operation string

const (
	OpReserve    Operation = "reserve"
	OpActivate   Operation = "activate"
	OpSuspend    Operation = "suspend"
	OpResume     Operation = "resume"
	OpReportLost Operation = "report_lost"
	OpTerminate  Operation = "terminate"
)

// Transition is the outcome of a legal (operation, current status) pair.
type Transition struct {
	NextStatus Status
	EventType  EventType
}

// transitions is the whole state machine: exactly the legal edges, checked
// once at the top of each lifecycle operation. A pair absent from this table
// is an invalid transition, full stop.
var transitions = map[Operation]map[Status]Transition{
	OpReserve: {
		StatusAvailable: {StatusReserved, EventStatusChanged},
	},
	OpActivate: {
		StatusAvailable: {StatusActive, EventActivated},
		StatusReserved:  {StatusActive, EventActivated},
	},
	OpSuspend: {
		StatusActive: {StatusSuspended, EventSuspended},
	},
	OpResume: {
		StatusSuspended: {StatusActive, EventStatusChanged},
	},
	OpReportLost: {
		StatusActive:    {StatusLostStolen, EventStatusChanged},
		StatusSuspended: {StatusLostStolen, EventStatusChanged},
		StatusReserved:  {StatusLostStolen, EventStatusChanged},
	},
	OpTerminate: {
		StatusAvailable:  {StatusTerminated, EventTerminated},
		StatusReserved:   {StatusTerminated, EventTerminated},
		StatusActive:     {StatusTerminated, EventTerminated},
		StatusSuspended:  {StatusTerminated, EventTerminated},
		StatusLostStolen: {StatusTerminated, EventTerminated},
	},
}

// Next resolves the transition for op from current, or fails with
// CodeInvalidTransition without touching any state.
func Next(op Operation, current Status) (Transition, error) {
	tr, ok := transitions[op][current]
	if !ok {
		return Transition{}, simerrors.New(simerrors.CodeInvalidTransition,
			fmt.Sprintf("cannot %s sim in status %s", op, current))
	}
	return tr, nil
}

// LegalEdges returns every (from, to) status pair the table permits.
// Exposed so tests can assert the audit trail never records an edge
// outside this set.
func LegalEdges() map[[2]Status]bool {
	edges := make(map[[2]Status]bool)
	for _, byStatus := range transitions {
		for from, tr := range byStatus {
			edges[[2]Status{from, tr.NextStatus}] = true
		}
	}
	return edges
}
