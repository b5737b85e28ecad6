package core

import "hftcore/internal/quant"

// SignalKind discriminates the Signal union (spec.md 3 "Signals").
type SignalKind int

const (
	SignalPlaceOrder SignalKind = iota
	SignalCancelOrder
	SignalCancelAllOrders
	SignalUpdateOrder
	SignalArbitragePair
)

// Signal is a strategy's intent to place, amend or cancel orders — not yet
// an order, and not yet risk-checked. The event loop dispatches each
// Signal through the risk gate before it ever reaches the OMS.
type Signal struct {
	Kind SignalKind

	// SignalPlaceOrder
	Order NewOrder

	// SignalCancelOrder
	ClientOrderID quant.ClientOrderID

	// SignalCancelOrder, SignalCancelAllOrders
	Symbol quant.Symbol
	Venue  quant.VenueID

	// SignalUpdateOrder
	NewPrice    quant.Price
	HasNewPrice bool
	NewSize     quant.Size
	HasNewSize  bool

	// SignalArbitragePair: a composite paired buy/sell across venues: the
	// arbitrage strategy always emits both legs, so the event loop risk-
	// checks and submits them as two plain SignalPlaceOrder entries; this
	// kind instead is how the strategy itself reasons about them together
	// for tracking an open arbitrage until both legs settle.
	BuyLeg  NewOrder
	SellLeg NewOrder
}

// PlaceOrder builds a SignalPlaceOrder signal.
func PlaceOrder(o NewOrder) Signal {
	return Signal{Kind: SignalPlaceOrder, Order: o}
}

// CancelOrder builds a SignalCancelOrder signal.
func CancelOrder(id quant.ClientOrderID, symbol quant.Symbol, venue quant.VenueID) Signal {
	return Signal{Kind: SignalCancelOrder, ClientOrderID: id, Symbol: symbol, Venue: venue}
}

// CancelAllOrders builds a SignalCancelAllOrders signal.
func CancelAllOrders(symbol quant.Symbol, venue quant.VenueID) Signal {
	return Signal{Kind: SignalCancelAllOrders, Symbol: symbol, Venue: venue}
}
