// Package oms implements the order manager (C7): ClientOrderID ->
// LiveOrderRecord tracking, the state-machine enforcement from
// spec.md 3, and idempotent execution-report application. It is grounded
// on the teacher's internal/og/gateway.go and state_machine.go (Gateway
// Send/OnAck/OnFill/Disconnect/Reconnect, StateMachine.ApplyIntent/
// ApplyAck/ApplyFill), generalized from a single-venue gateway map into
// the client/venue-ID-keyed record table spec.md 4.4 requires.
package oms

import (
	"hftcore/internal/core"
	"hftcore/internal/errors"
	"hftcore/internal/ledger"
	"hftcore/internal/quant"
)

var (
	// ErrNotFound is returned by Cancel for a terminal or unknown order.
	ErrNotFound = errors.New("oms: order not found")
	// ErrInvalidTransition marks an execution report whose status change
	// is not allowed by the spec.md 3 state machine; the report is logged
	// and not applied, never converted into a panic or a corrupted record.
	ErrInvalidTransition = errors.New("oms: invalid state transition")
)

// LiveOrderRecord is the order manager's record for one client order.
type LiveOrderRecord struct {
	core.Order
	Reservation    ledger.ReservationID
	HasReservation bool
}

// Manager tracks every live order's state machine and maps client IDs to
// venue IDs. Single-writer: only the event loop calls its methods.
type Manager struct {
	byClient map[quant.ClientOrderID]*LiveOrderRecord
	byVenue  map[quant.OrderID]quant.ClientOrderID

	unknownReports uint64
}

// New returns an empty order manager.
func New() *Manager {
	return &Manager{
		byClient: make(map[quant.ClientOrderID]*LiveOrderRecord),
		byVenue:  make(map[quant.OrderID]quant.ClientOrderID),
	}
}

// Submit records an approved order in the New state, associated with its
// risk-gate reservation, ready to be forwarded to the venue adapter
// through the rate limiter.
func (m *Manager) Submit(order core.NewOrder, reservation ledger.ReservationID, hasReservation bool, now quant.Timestamp) *LiveOrderRecord {
	rec := &LiveOrderRecord{
		Order: core.Order{
			NewOrder:  order,
			Status:    core.StatusNew,
			CreatedTS: now,
		},
		Reservation:    reservation,
		HasReservation: hasReservation,
	}
	m.byClient[order.ClientOrderID] = rec
	return rec
}

// OnAck binds the venue-assigned order_id to a previously submitted
// client order.
func (m *Manager) OnAck(clientID quant.ClientOrderID, venueOrderID quant.OrderID) (*LiveOrderRecord, error) {
	rec, ok := m.byClient[clientID]
	if !ok {
		m.unknownReports++
		return nil, ErrNotFound
	}
	rec.OrderID = venueOrderID
	rec.HasOrderID = true
	m.byVenue[venueOrderID] = clientID
	return rec, nil
}

// Lookup resolves a record by venue order_id, falling back to
// client_order_id, the lookup order spec.md 4.4 specifies for
// on_execution_report.
func (m *Manager) Lookup(venueOrderID quant.OrderID, hasVenueOrderID bool, clientID quant.ClientOrderID) (*LiveOrderRecord, bool) {
	if hasVenueOrderID {
		if cid, ok := m.byVenue[venueOrderID]; ok {
			if rec, ok := m.byClient[cid]; ok {
				return rec, true
			}
		}
	}
	if rec, ok := m.byClient[clientID]; ok {
		return rec, true
	}
	return nil, false
}

// ApplyExecutionReport transitions a live order's state per the spec.md 3
// state machine. Idempotence: a report with the same filled_size and
// status as the current record is a no-op; a report with a smaller
// filled_size than the current record is discarded (spec.md 4.4). An
// unknown order report is counted but never synthesizes a new record.
func (m *Manager) ApplyExecutionReport(report core.ExecutionReport) (*LiveOrderRecord, error) {
	rec, found := m.Lookup(report.OrderID, report.HasOrderID, report.ClientOrderID)
	if !found {
		m.unknownReports++
		return nil, ErrNotFound
	}

	if report.Status == rec.Status && report.Filled == rec.Filled {
		return rec, nil
	}

	if report.Filled < rec.Filled {
		return rec, nil
	}

	if !core.CanTransition(rec.Status, report.Status) && rec.Status != report.Status {
		return rec, ErrInvalidTransition
	}

	rec.Status = report.Status
	rec.Filled = report.Filled
	if report.HasAveragePrice {
		rec.NewOrder.Price = report.AveragePrice
	}

	return rec, nil
}

// Cancel looks up a client order for cancellation. If the order is
// terminal or unknown, ErrNotFound is returned; the caller (event loop)
// still must issue the adapter-side cancel_order call itself — this
// method only validates local state.
func (m *Manager) Cancel(clientID quant.ClientOrderID) (*LiveOrderRecord, error) {
	rec, ok := m.byClient[clientID]
	if !ok || rec.Status.Terminal() {
		return nil, ErrNotFound
	}
	return rec, nil
}

// CancelAll returns every non-terminal order matching (symbol, venue).
func (m *Manager) CancelAll(symbol quant.Symbol, venue quant.VenueID) []*LiveOrderRecord {
	var matches []*LiveOrderRecord
	for _, rec := range m.byClient {
		if rec.Status.Terminal() {
			continue
		}
		if rec.Symbol == symbol && rec.Venue == venue {
			matches = append(matches, rec)
		}
	}
	return matches
}

// UnknownReportCount returns the number of execution reports that could
// not be matched to any live order, the monitor counter spec.md 4.4 calls
// for.
func (m *Manager) UnknownReportCount() uint64 { return m.unknownReports }

// Get returns the record for a client order, for read-only inspection.
func (m *Manager) Get(clientID quant.ClientOrderID) (*LiveOrderRecord, bool) {
	rec, ok := m.byClient[clientID]
	return rec, ok
}
