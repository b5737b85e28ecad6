package strategy

import (
	"hftcore/internal/core"
	"hftcore/internal/market"
	"hftcore/internal/quant"
	"hftcore/internal/venue"
)

// ArbitrageConfig parameterizes a cross-venue arbitrage instance for one
// symbol across a fixed venue set (spec.md 4.2.2).
type ArbitrageConfig struct {
	Symbol          quant.Symbol
	Venues          []quant.VenueID
	MinProfitBps    float64
	OrderSize       quant.Size
	MaxPosition     quant.Size
	MaxBookAge      quant.Timestamp
	CooldownMillis  quant.Timestamp
}

// openPair tracks one emitted arbitrage until both legs settle (spec.md
// 4.2.2 point 3): if one leg terminates without a full fill while the
// other is partially filled, the orphan enters the ordinary inventory
// model and is not auto-hedged by this strategy (Open Question decision
// #1).
type openPair struct {
	BuyVenue, SellVenue   quant.VenueID
	BuyClientID, SellClientID quant.ClientOrderID
	BuyFilled, SellFilled bool
	BuyDone, SellDone     bool
	BuyFilledSize, SellFilledSize quant.Size
}

// Arbitrage implements the cross-venue arbitrage strategy (spec.md
// 4.2.2).
type Arbitrage struct {
	cfg      ArbitrageConfig
	position quant.Size
	open     []openPair
	nextCID  quant.ClientOrderID
	cd       cooldown
	metrics  Metrics
}

// NewArbitrage returns an arbitrage strategy with no open pairs.
func NewArbitrage(cfg ArbitrageConfig) *Arbitrage {
	a := &Arbitrage{cfg: cfg}
	a.cd = newCooldown(cfg.CooldownMillis, &a.metrics)
	return a
}

func (a *Arbitrage) tracksVenue(v quant.VenueID) bool {
	for _, want := range a.cfg.Venues {
		if want == v {
			return true
		}
	}
	return false
}

// OnEvent re-evaluates every configured venue's top of book on each
// update to any of them, selecting the pair maximizing
// best_bid_i - best_ask_j, and emits a paired signal when the spread
// clears the configured threshold.
func (a *Arbitrage) OnEvent(event venue.MarketEvent, view market.View) []core.Signal {
	if event.Symbol != a.cfg.Symbol || !a.tracksVenue(event.Venue) {
		return nil
	}
	if event.Kind != venue.BookSnapshot && event.Kind != venue.BookDelta {
		return nil
	}

	type quote struct {
		venue quant.VenueID
		price quant.Price
		ts    quant.Timestamp
	}
	var bids, asks []quote

	for _, v := range a.cfg.Venues {
		b, ok := view.Book(market.Key{Venue: v, Symbol: a.cfg.Symbol})
		if !ok {
			continue
		}
		if a.cfg.MaxBookAge != 0 && event.TS-b.LastUpdateTS() > a.cfg.MaxBookAge {
			continue
		}
		if bid, ok := b.BestBid(); ok {
			bids = append(bids, quote{venue: v, price: bid.Price, ts: b.LastUpdateTS()})
		}
		if ask, ok := b.BestAsk(); ok {
			asks = append(asks, quote{venue: v, price: ask.Price, ts: b.LastUpdateTS()})
		}
	}
	if len(bids) == 0 || len(asks) == 0 {
		return nil
	}

	var bestBid, bestAsk quote
	bestSpread := quant.Price(0)
	found := false
	for _, bid := range bids {
		for _, ask := range asks {
			if bid.venue == ask.venue {
				continue
			}
			spread := bid.price.Sub(ask.price)
			if !found || spread > bestSpread {
				bestBid, bestAsk, bestSpread, found = bid, ask, spread, true
			}
		}
	}
	if !found {
		return nil
	}

	profitBps := bestSpread.Div(bestAsk.price).Bps()
	if profitBps < a.cfg.MinProfitBps {
		return nil
	}
	if a.cfg.MaxPosition != 0 && (a.position+a.cfg.OrderSize > a.cfg.MaxPosition || a.position-a.cfg.OrderSize < -a.cfg.MaxPosition) {
		return nil
	}

	if !a.cd.allow(cooldownKey{Symbol: a.cfg.Symbol, Venue: bestAsk.venue, Side: core.Buy}, event.TS) {
		return nil
	}

	a.nextCID++
	buyID := a.nextCID
	a.nextCID++
	sellID := a.nextCID

	buyOrder := core.NewOrder{
		Symbol: a.cfg.Symbol, Venue: bestAsk.venue, Side: core.Buy,
		Type: core.Limit, TIF: core.IOC, Price: bestAsk.price, HasPrice: true,
		Size: a.cfg.OrderSize, ClientOrderID: buyID,
	}
	sellOrder := core.NewOrder{
		Symbol: a.cfg.Symbol, Venue: bestBid.venue, Side: core.Sell,
		Type: core.Limit, TIF: core.IOC, Price: bestBid.price, HasPrice: true,
		Size: a.cfg.OrderSize, ClientOrderID: sellID,
	}

	a.open = append(a.open, openPair{
		BuyVenue: bestAsk.venue, SellVenue: bestBid.venue,
		BuyClientID: buyID, SellClientID: sellID,
	})

	return []core.Signal{core.PlaceOrder(buyOrder), core.PlaceOrder(sellOrder)}
}

// OnExecution updates the tracked position from each leg's incremental
// fill delta (spec.md 4.2.1 steps 2-3's MaxPosition check applies here
// too) and retires an open pair once both legs reach a terminal state.
// An orphaned partial fill is left exactly as the ledger recorded it —
// this strategy never emits a hedge on its own behalf.
func (a *Arbitrage) OnExecution(report core.ExecutionReport) []core.Signal {
	retained := a.open[:0]
	for i := range a.open {
		p := &a.open[i]
		if report.ClientOrderID == p.BuyClientID {
			if delta := report.Filled.Sub(p.BuyFilledSize); delta.GreaterThan(0) {
				a.position = a.position.Add(delta)
				p.BuyFilledSize = report.Filled
			}
			if report.Status.Terminal() {
				p.BuyFilled = report.Status == core.StatusFilled
				p.BuyDone = true
			}
		}
		if report.ClientOrderID == p.SellClientID {
			if delta := report.Filled.Sub(p.SellFilledSize); delta.GreaterThan(0) {
				a.position = a.position.Sub(delta)
				p.SellFilledSize = report.Filled
			}
			if report.Status.Terminal() {
				p.SellFilled = report.Status == core.StatusFilled
				p.SellDone = true
			}
		}
		if p.BuyDone && p.SellDone {
			continue
		}
		retained = append(retained, *p)
	}
	a.open = retained
	return nil
}

func (a *Arbitrage) State() any { return a.open }

func (a *Arbitrage) Metrics() Metrics { return a.metrics }

func (a *Arbitrage) Shutdown() {}
