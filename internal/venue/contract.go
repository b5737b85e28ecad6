// Package venue defines the adapter contract (spec.md 6): the interface
// every concrete venue adapter must satisfy, and the normalized event
// types that cross from an adapter into the core event loop. Concrete
// wire-level adapters (authentication, WebSocket reconnection, JSON
// decoding) are explicitly out of core scope per spec.md 1; this package
// is the boundary, plus two reference implementations — sim (paper
// trading) and example (a real transport via gorilla/websocket) — that
// exercise it without pulling either into the core's dependency graph.
package venue

import (
	"context"

	"hftcore/internal/book"
	"hftcore/internal/core"
	"hftcore/internal/quant"
)

// EventKind discriminates the normalized MarketEvent union.
type EventKind int

const (
	BookSnapshot EventKind = iota
	BookDelta
	Trade
)

// MarketEvent is a single normalized market-data update, tagged with
// (VenueID, Symbol, Timestamp) as spec.md 6 requires. Adapters validate
// prices positive, sizes non-negative, and bids/asks sorted before
// emitting one of these.
type MarketEvent struct {
	Kind   EventKind
	Venue  quant.VenueID
	Symbol quant.Symbol
	TS     quant.Timestamp

	// BookSnapshot, BookDelta
	Bids []book.Level
	Asks []book.Level

	// Trade
	TradePrice quant.Price
	TradeSize  quant.Size
}

// ErrorClass enumerates the taxonomy spec.md 6 requires from trading
// operations.
type ErrorClass int

const (
	ClassUnknown ErrorClass = iota
	ClassConnection
	ClassAuthentication
	ClassRateLimited
	ClassInvalidRequest
	ClassOrderNotFound
	ClassInsufficientFunds
	ClassSymbolNotFound
	ClassVenue
)

// Error is a classified venue error; Msg carries the raw venue message
// for ClassVenue and logging.
type Error struct {
	Class ErrorClass
	Msg   string
}

func (e *Error) Error() string { return e.Msg }

// Balance is one asset balance as reported directly by the venue, used at
// startup to reconcile the shadow ledger (spec.md 6 "Account queries").
type Balance struct {
	Name  string
	Total quant.Notional
}

// Adapter is the full contract a concrete venue integration must satisfy.
// The core only ever depends on this interface, never a concrete adapter.
type Adapter interface {
	// MarketData streams normalized market events in source order until
	// ctx is cancelled. On reconnect the adapter MUST emit a fresh
	// BookSnapshot before any BookDelta.
	MarketData(ctx context.Context) (<-chan MarketEvent, error)

	// Executions streams normalized execution reports in source order.
	Executions(ctx context.Context) (<-chan core.ExecutionReport, error)

	PlaceOrder(ctx context.Context, order core.NewOrder) (quant.OrderID, error)
	CancelOrder(ctx context.Context, id quant.OrderID, symbol quant.Symbol) error
	CancelAllOrders(ctx context.Context, symbol quant.Symbol) ([]quant.OrderID, error)

	ServerTime(ctx context.Context) (quant.Timestamp, error)

	Balances(ctx context.Context) ([]Balance, error)
	OpenOrders(ctx context.Context, symbol quant.Symbol, hasSymbol bool) ([]core.Order, error)
}
