/*
Package core holds the canonical in-process order and signal model shared
by the strategy engine, risk gate, order manager and ledger: NewOrder,
Order, OrderStatus, ExecutionReport and the Signal union. This is distinct
from internal/schema, which is the wire/WAL encoding of events moving
through the recorder; core types are what strategies and the event loop
actually compute with.
*/
package core

import "hftcore/internal/quant"

// Side is the direction of an order or fill.
type Side int

const (
	Buy Side = iota
	Sell
)

// OrderType is the order's execution style.
type OrderType int

const (
	Market OrderType = iota
	Limit
	StopLoss
	StopLimit
)

// TimeInForce controls how long an order remains working.
type TimeInForce int

const (
	GTC TimeInForce = iota
	IOC
	FOK
)

// NewOrder is a not-yet-submitted order request. Limit and StopLimit
// orders require Price to be set; validation of that requirement happens
// at the API boundary (spec.md 7), never inside risk or OMS logic.
type NewOrder struct {
	Symbol        quant.Symbol
	Venue         quant.VenueID
	Side          Side
	Type          OrderType
	TIF           TimeInForce
	Price         quant.Price
	HasPrice      bool
	Size          quant.Size
	ClientOrderID quant.ClientOrderID
}

// OrderStatus is the order lifecycle state (spec.md 3).
type OrderStatus int

const (
	StatusNew OrderStatus = iota
	StatusPartiallyFilled
	StatusFilled
	StatusCancelled
	StatusRejected
	StatusExpired
)

// Terminal reports whether status is one a live order cannot leave.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusFilled, StatusCancelled, StatusRejected, StatusExpired:
		return true
	default:
		return false
	}
}

// allowedTransitions encodes the state machine in spec.md 3: New ->
// {PartiallyFilled, Filled, Cancelled, Rejected, Expired}; PartiallyFilled
// -> {PartiallyFilled, Filled, Cancelled, Expired}.
var allowedTransitions = map[OrderStatus]map[OrderStatus]bool{
	StatusNew: {
		StatusPartiallyFilled: true,
		StatusFilled:          true,
		StatusCancelled:       true,
		StatusRejected:        true,
		StatusExpired:         true,
	},
	StatusPartiallyFilled: {
		StatusPartiallyFilled: true,
		StatusFilled:          true,
		StatusCancelled:       true,
		StatusExpired:         true,
	},
}

// CanTransition reports whether moving from -> to is legal.
func CanTransition(from, to OrderStatus) bool {
	if from.Terminal() {
		return false
	}
	return allowedTransitions[from][to]
}

// Order is a live order: NewOrder plus venue assignment and fill state.
type Order struct {
	NewOrder
	OrderID    quant.OrderID
	HasOrderID bool
	Filled     quant.Size
	Status     OrderStatus
	CreatedTS  quant.Timestamp
}

// ExecutionReport is a normalized fill/state update from a venue adapter.
// Invariant: Filled + Remaining equals the order's original size for any
// single canonical update (spec.md 3).
type ExecutionReport struct {
	OrderID         quant.OrderID
	HasOrderID      bool
	ClientOrderID   quant.ClientOrderID
	Symbol          quant.Symbol
	Venue           quant.VenueID
	Status          OrderStatus
	Filled          quant.Size
	Remaining       quant.Size
	AveragePrice    quant.Price
	HasAveragePrice bool
	TS              quant.Timestamp
}
