// Package sim is an in-memory paper-trading venue.Adapter: it accepts
// orders, fills them immediately against its own last-known book at the
// resting price, and replays a caller-fed sequence of market events. It
// exists so the event loop, strategy engine, and risk gate can be
// exercised end-to-end (and in tests) without a live exchange connection.
package sim

import (
	"context"
	"sync"

	"hftcore/internal/core"
	"hftcore/internal/quant"
	"hftcore/internal/venue"
)

// Adapter is a deterministic, single-venue paper-trading book. Feed(...)
// pushes a MarketEvent the MarketData channel will deliver; PlaceOrder
// fills immediately (Market and marketable Limit orders) or rests
// (non-marketable Limit) until Feed crosses it.
type Adapter struct {
	venueID quant.VenueID

	mu       sync.Mutex
	bestBid  quant.Price
	bestAsk  quant.Price
	nextID   uint64
	resting  map[quant.OrderID]core.NewOrder
	balances []venue.Balance

	marketCh chan venue.MarketEvent
	execCh   chan core.ExecutionReport
}

// New returns a paper-trading adapter for venueID, seeded with balances
// returned from Balances.
func New(venueID quant.VenueID, balances []venue.Balance) *Adapter {
	return &Adapter{
		venueID:  venueID,
		resting:  make(map[quant.OrderID]core.NewOrder),
		balances: balances,
		marketCh: make(chan venue.MarketEvent, 256),
		execCh:   make(chan core.ExecutionReport, 256),
	}
}

// Feed injects a market event as if received from the exchange, updating
// the adapter's notion of the best bid/ask and attempting to fill any
// resting order the new touch crosses.
func (a *Adapter) Feed(ctx context.Context, ev venue.MarketEvent) {
	a.mu.Lock()
	if len(ev.Bids) > 0 {
		a.bestBid = ev.Bids[0].Price
	}
	if len(ev.Asks) > 0 {
		a.bestAsk = ev.Asks[0].Price
	}
	a.fillCrossedLocked(ev.TS)
	a.mu.Unlock()

	select {
	case a.marketCh <- ev:
	case <-ctx.Done():
	}
}

func (a *Adapter) MarketData(ctx context.Context) (<-chan venue.MarketEvent, error) {
	return a.marketCh, nil
}

func (a *Adapter) Executions(ctx context.Context) (<-chan core.ExecutionReport, error) {
	return a.execCh, nil
}

func (a *Adapter) PlaceOrder(ctx context.Context, order core.NewOrder) (quant.OrderID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.nextID++
	id := quant.OrderID(a.nextID)

	if a.marketable(order) {
		a.emitFillLocked(id, order, order.Size, a.fillPrice(order))
		return id, nil
	}

	a.resting[id] = order
	a.emitLocked(core.ExecutionReport{
		OrderID: id, HasOrderID: true, ClientOrderID: order.ClientOrderID,
		Symbol: order.Symbol, Venue: a.venueID, Status: core.StatusNew,
	})
	return id, nil
}

func (a *Adapter) CancelOrder(ctx context.Context, id quant.OrderID, symbol quant.Symbol) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	order, ok := a.resting[id]
	if !ok {
		return &venue.Error{Class: venue.ClassOrderNotFound, Msg: "sim: order not found"}
	}
	delete(a.resting, id)
	a.emitLocked(core.ExecutionReport{
		OrderID: id, HasOrderID: true, ClientOrderID: order.ClientOrderID,
		Symbol: symbol, Venue: a.venueID, Status: core.StatusCancelled,
	})
	return nil
}

func (a *Adapter) CancelAllOrders(ctx context.Context, symbol quant.Symbol) ([]quant.OrderID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var cancelled []quant.OrderID
	for id, order := range a.resting {
		if order.Symbol != symbol {
			continue
		}
		delete(a.resting, id)
		cancelled = append(cancelled, id)
		a.emitLocked(core.ExecutionReport{
			OrderID: id, HasOrderID: true, ClientOrderID: order.ClientOrderID,
			Symbol: symbol, Venue: a.venueID, Status: core.StatusCancelled,
		})
	}
	return cancelled, nil
}

func (a *Adapter) ServerTime(ctx context.Context) (quant.Timestamp, error) {
	return quant.Now(), nil
}

func (a *Adapter) Balances(ctx context.Context) ([]venue.Balance, error) {
	return a.balances, nil
}

func (a *Adapter) OpenOrders(ctx context.Context, symbol quant.Symbol, hasSymbol bool) ([]core.Order, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var open []core.Order
	for id, order := range a.resting {
		if hasSymbol && order.Symbol != symbol {
			continue
		}
		open = append(open, core.Order{NewOrder: order, OrderID: id, HasOrderID: true, Status: core.StatusNew})
	}
	return open, nil
}

func (a *Adapter) marketable(order core.NewOrder) bool {
	if order.Type == core.Market {
		return true
	}
	if !order.HasPrice {
		return false
	}
	if order.Side == core.Buy {
		return a.bestAsk != 0 && order.Price.Sub(a.bestAsk) >= 0
	}
	return a.bestBid != 0 && a.bestBid.Sub(order.Price) >= 0
}

func (a *Adapter) fillPrice(order core.NewOrder) quant.Price {
	if order.Side == core.Buy {
		return a.bestAsk
	}
	return a.bestBid
}

func (a *Adapter) fillCrossedLocked(ts quant.Timestamp) {
	for id, order := range a.resting {
		if !a.marketable(order) {
			continue
		}
		delete(a.resting, id)
		a.emitFillLocked(id, order, order.Size, a.fillPrice(order))
	}
}

func (a *Adapter) emitFillLocked(id quant.OrderID, order core.NewOrder, filled quant.Size, price quant.Price) {
	a.emitLocked(core.ExecutionReport{
		OrderID: id, HasOrderID: true, ClientOrderID: order.ClientOrderID,
		Symbol: order.Symbol, Venue: a.venueID, Status: core.StatusFilled,
		Filled: filled, AveragePrice: price, HasAveragePrice: true, TS: quant.Now(),
	})
}

func (a *Adapter) emitLocked(report core.ExecutionReport) {
	select {
	case a.execCh <- report:
	default:
	}
}
