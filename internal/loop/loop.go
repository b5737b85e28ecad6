// Package loop implements the event loop (C9): it owns market state, the
// strategy engine, the shadow ledger, the risk gate, the order manager
// and the rate limiter, multiplexing normalized market events and
// execution reports from every configured venue adapter into the
// sequential pipeline spec.md 4.6 describes. It is grounded on the
// wider pack's errgroup-supervised engine shape (see
// alanyoungcy-polymarketbot's internal/strategy/engine.go RunAll) and on
// the teacher's own cmd/trader record path. The fan-in the loop reads
// from is two buffered channels (4096 entries each) rather than
// internal/bus.Queue; a per-adapter goroutine blocks on a full channel
// until ctx is cancelled.
package loop

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"hftcore/internal/core"
	"hftcore/internal/ledger"
	"hftcore/internal/market"
	"hftcore/internal/obs"
	"hftcore/internal/oms"
	"hftcore/internal/quant"
	"hftcore/internal/ratelimit"
	"hftcore/internal/risk"
	"hftcore/internal/strategy"
	"hftcore/internal/venue"
)

// AssetPair names the base/quote assets backing a symbol, needed to
// apply a fill to the ledger's per-asset balances.
type AssetPair struct {
	Base  string
	Quote string
}

// Metrics is the loop-level counter set the performance monitor reads
// (spec.md 4.6: fill/reject counters; cancels are counted by obs.Metrics).
type Metrics struct {
	MarketEventsProcessed uint64
	ExecutionReports      uint64
	SignalsApproved       uint64
	SignalsRejected       uint64
	Fills                 uint64
	UnknownReports        uint64
}

// Loop is the single-writer owner of every mutable core component.
// Nothing outside Run's goroutine ever touches market, ledger, oms or
// the risk gate's internal rule state.
type Loop struct {
	market     *market.State
	strategies []strategy.Strategy
	ledger     *ledger.Ledger
	risk       *risk.Gate
	oms        *oms.Manager
	limiter    *ratelimit.Limiter
	adapters   map[quant.VenueID]venue.Adapter
	assets     map[quant.Symbol]AssetPair

	metrics Metrics
	monitor *obs.Metrics
}

// New wires the loop's components together. The risk gate, ledger and
// limiter are constructed by the caller (cmd/trader) so they can
// be seeded from the configuration file before the loop starts. monitor
// may be nil, in which case observations are silently dropped.
func New(
	state *market.State,
	strategies []strategy.Strategy,
	led *ledger.Ledger,
	gate *risk.Gate,
	manager *oms.Manager,
	limiter *ratelimit.Limiter,
	adapters map[quant.VenueID]venue.Adapter,
	assets map[quant.Symbol]AssetPair,
	monitor *obs.Metrics,
) *Loop {
	return &Loop{
		market: state, strategies: strategies, ledger: led, risk: gate,
		oms: manager, limiter: limiter, adapters: adapters, assets: assets,
		monitor: monitor,
	}
}

// Run starts one goroutine per adapter stream and the central dispatch
// loop, returning when ctx is cancelled or any adapter goroutine fails.
func (l *Loop) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	marketCh := make(chan venue.MarketEvent, 4096)
	execCh := make(chan core.ExecutionReport, 4096)

	for _, adapter := range l.adapters {
		adapter := adapter
		g.Go(func() error {
			stream, err := adapter.MarketData(gctx)
			if err != nil {
				return err
			}
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case ev, ok := <-stream:
					if !ok {
						return nil
					}
					select {
					case marketCh <- ev:
					case <-gctx.Done():
						return gctx.Err()
					}
				}
			}
		})
		g.Go(func() error {
			stream, err := adapter.Executions(gctx)
			if err != nil {
				return err
			}
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case rep, ok := <-stream:
					if !ok {
						return nil
					}
					select {
					case execCh <- rep:
					case <-gctx.Done():
						return gctx.Err()
					}
				}
			}
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case ev := <-marketCh:
				l.handleMarketEvent(gctx, ev)
			case rep := <-execCh:
				l.handleExecutionReport(gctx, rep)
			case now := <-ticker.C:
				for venueID := range l.adapters {
					l.limiter.OnSuccessfulMinute(venueID, now)
				}
			}
		}
	})

	return g.Wait()
}

// handleMarketEvent applies the event to market state, dispatches it to
// every strategy, and risk-checks + submits every resulting signal
// (spec.md 4.6 "For each market event").
func (l *Loop) handleMarketEvent(ctx context.Context, ev venue.MarketEvent) {
	l.metrics.MarketEventsProcessed++

	key := market.Key{Venue: ev.Venue, Symbol: ev.Symbol}
	switch ev.Kind {
	case venue.BookSnapshot:
		l.market.Book(key).ApplySnapshot(ev.Bids, ev.Asks, ev.TS)
	case venue.BookDelta:
		b := l.market.Book(key)
		crossedBefore, staleBefore := b.CrossedEvents, b.StaleDeltas
		b.ApplyDelta(ev.Bids, ev.Asks, ev.TS)
		for i := uint64(0); i < b.CrossedEvents-crossedBefore; i++ {
			l.monitor.IncCrossedBook()
		}
		for i := uint64(0); i < b.StaleDeltas-staleBefore; i++ {
			l.monitor.IncStaleDelta()
		}
	case venue.Trade:
		l.market.RecordTrade(key, market.Trade{Price: ev.TradePrice, Size: ev.TradeSize, TS: ev.TS})
	}

	view := l.market.Snapshot()
	for _, s := range l.strategies {
		signals := s.OnEvent(ev, view)
		for _, sig := range signals {
			l.dispatchSignal(ctx, sig, ev.TS)
		}
	}
}

// dispatchSignal risk-checks one signal and, on approval, submits it to
// the OMS through the rate limiter and the venue adapter.
func (l *Loop) dispatchSignal(ctx context.Context, sig core.Signal, now quant.Timestamp) {
	switch sig.Kind {
	case core.SignalPlaceOrder:
		l.placeOrder(ctx, sig.Order, now)
	case core.SignalCancelOrder:
		l.cancelOrder(ctx, sig.ClientOrderID, sig.Symbol, sig.Venue)
	case core.SignalCancelAllOrders:
		l.cancelAll(ctx, sig.Symbol, sig.Venue)
	case core.SignalUpdateOrder:
		// Treated as cancel-then-place by the strategy layer itself
		// (Open Question decision #2); the loop never rewrites an
		// order in place.
	case core.SignalArbitragePair:
		l.placeOrder(ctx, sig.BuyLeg, now)
		l.placeOrder(ctx, sig.SellLeg, now)
	}
}

func (l *Loop) placeOrder(ctx context.Context, order core.NewOrder, now quant.Timestamp) {
	assets := l.assets[order.Symbol]
	candidate := risk.Candidate{
		Order: order, BaseAsset: assets.Base, QuoteAsset: assets.Quote,
		ReferencePrice: l.referencePrice(order), Now: now,
	}

	decision := l.risk.Evaluate(candidate)
	if !decision.Allowed {
		l.metrics.SignalsRejected++
		l.monitor.IncRejectedByRisk()
		log.Printf("loop: order rejected symbol=%s venue=%d reason=%s", order.Symbol, order.Venue, decision.Reason)
		return
	}
	l.metrics.SignalsApproved++

	if err := l.limiter.Allow(order.Venue, now.Time()); err != nil {
		l.metrics.SignalsRejected++
		log.Printf("loop: order throttled symbol=%s venue=%d", order.Symbol, order.Venue)
		return
	}

	l.oms.Submit(order, decision.Reservation, decision.HasReserve, now)

	adapter, ok := l.adapters[order.Venue]
	if !ok {
		return
	}
	venueOrderID, err := adapter.PlaceOrder(ctx, order)
	if err != nil {
		log.Printf("loop: place_order failed client_id=%d err=%v", order.ClientOrderID, err)
		if verr, ok := err.(*venue.Error); ok && verr.Class == venue.ClassRateLimited {
			l.limiter.OnRateLimitHit(order.Venue, quant.Now().Time())
		}
		return
	}
	l.oms.OnAck(order.ClientOrderID, venueOrderID)
	l.monitor.ObserveTickToTrade(quant.Now().Time().Sub(now.Time()))
}

func (l *Loop) cancelOrder(ctx context.Context, clientID quant.ClientOrderID, symbol quant.Symbol, venueID quant.VenueID) {
	rec, err := l.oms.Cancel(clientID)
	if err != nil {
		return
	}
	if err := l.limiter.AllowCancel(venueID, quant.Now().Time()); err != nil {
		return
	}
	if adapter, ok := l.adapters[venueID]; ok && rec.HasOrderID {
		if err := adapter.CancelOrder(ctx, rec.OrderID, symbol); err == nil {
			l.monitor.IncCancel()
		}
	}
}

func (l *Loop) cancelAll(ctx context.Context, symbol quant.Symbol, venueID quant.VenueID) {
	for _, rec := range l.oms.CancelAll(symbol, venueID) {
		if adapter, ok := l.adapters[venueID]; ok && rec.HasOrderID {
			if err := adapter.CancelOrder(ctx, rec.OrderID, symbol); err == nil {
				l.monitor.IncCancel()
			}
		}
	}
}

// referencePrice supplies the best-available price for a market order's
// MaxOrderValue check (spec.md 4.3: "for market orders uses best
// ask/bid at that venue").
func (l *Loop) referencePrice(order core.NewOrder) quant.Price {
	if order.HasPrice {
		return order.Price
	}
	b, ok := l.market.LookupBook(market.Key{Venue: order.Venue, Symbol: order.Symbol})
	if !ok {
		return 0
	}
	if order.Side == core.Buy {
		if ask, ok := b.BestAsk(); ok {
			return ask.Price
		}
	} else if bid, ok := b.BestBid(); ok {
		return bid.Price
	}
	return 0
}

// handleExecutionReport routes a report through the OMS, the ledger and
// every strategy (spec.md 4.6 "For each execution report").
func (l *Loop) handleExecutionReport(ctx context.Context, report core.ExecutionReport) {
	l.metrics.ExecutionReports++

	prior, hadPrior := l.oms.Lookup(report.OrderID, report.HasOrderID, report.ClientOrderID)
	priorFilled := quant.Size(0)
	if hadPrior {
		priorFilled = prior.Filled
	}

	rec, err := l.oms.ApplyExecutionReport(report)
	if err != nil {
		if err == oms.ErrNotFound {
			l.metrics.UnknownReports = l.oms.UnknownReportCount()
			l.monitor.SetUnknownReports(l.metrics.UnknownReports)
		} else {
			log.Printf("loop: execution report not applied client_id=%d err=%v", report.ClientOrderID, err)
		}
		return
	}

	if delta := report.Filled - priorFilled; delta > 0 {
		assets := l.assets[report.Symbol]
		price := report.AveragePrice
		if !report.HasAveragePrice {
			price = rec.Price
		}
		fill := ledger.Fill{
			Symbol: report.Symbol, Venue: report.Venue,
			BaseAsset: assets.Base, QuoteAsset: assets.Quote,
			Side: rec.Side, Size: delta, Price: price,
			Reservation: rec.Reservation, HasReservation: rec.HasReservation,
		}
		if err := l.ledger.ApplyFill(fill); err != nil {
			log.Printf("loop: ledger apply_fill failed: %v", err)
		} else {
			l.metrics.Fills++
			l.monitor.IncFill()
		}
	}

	if report.Status == core.StatusCancelled || report.Status == core.StatusRejected || report.Status == core.StatusExpired {
		if rec.HasReservation {
			l.ledger.Release(rec.Reservation)
		}
	}

	for _, s := range l.strategies {
		s.OnExecution(report)
	}
}

// MetricsSnapshot returns a copy of the loop's counters for the monitor.
func (l *Loop) MetricsSnapshot() Metrics { return l.metrics }
