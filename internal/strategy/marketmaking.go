package strategy

import (
	"hftcore/internal/core"
	"hftcore/internal/market"
	"hftcore/internal/quant"
	"hftcore/internal/venue"
)

// MarketMakingConfig parameterizes one market-making instance (spec.md
// 4.2.1): quoting a single (venue, symbol) pair.
type MarketMakingConfig struct {
	Venue    quant.VenueID
	Symbol   quant.Symbol
	Base     string
	Quote    string

	TargetSpreadBps   float64
	MinSpreadBps      float64
	MaxSpreadBps      float64
	OrderSize         quant.Size
	MaxPosition       quant.Size
	InventoryTarget   float64 // not read by OnEvent, which skews around a flat position; no default is applied
	SkewCoeff         float64
	Levels            int
	TickSize          quant.Price
	RequoteToleranceBps float64
	CooldownMillis    quant.Timestamp
}

// quoteLevel is one side of one level of the quote ladder.
type quoteLevel struct {
	Side  core.Side
	Price quant.Price
	Size  quant.Size
}

// liveOrder tracks one outstanding order's side and cumulative filled
// size so OnExecution can derive the signed fill delta from successive
// (cumulative) execution reports for the same order.
type liveOrder struct {
	Side   core.Side
	Filled quant.Size
}

// MarketMaking implements the market-making strategy (spec.md 4.2.1).
type MarketMaking struct {
	cfg      MarketMakingConfig
	position quant.Size
	lastBids []quoteLevel
	lastAsks []quoteLevel
	cd       cooldown
	metrics  Metrics

	nextCID quant.ClientOrderID
	live    map[quant.ClientOrderID]*liveOrder
}

// NewMarketMaking returns a market-making strategy with no prior quotes
// and zero tracked position.
func NewMarketMaking(cfg MarketMakingConfig) *MarketMaking {
	m := &MarketMaking{cfg: cfg, live: make(map[quant.ClientOrderID]*liveOrder)}
	m.cd = newCooldown(cfg.CooldownMillis, &m.metrics)
	return m
}

// OnEvent recomputes the quote ladder on every book update for the
// configured (venue, symbol) and emits a refresh when it differs from
// the prior ladder beyond the configured tolerance.
func (m *MarketMaking) OnEvent(event venue.MarketEvent, view market.View) []core.Signal {
	if event.Venue != m.cfg.Venue || event.Symbol != m.cfg.Symbol {
		return nil
	}
	if event.Kind != venue.BookSnapshot && event.Kind != venue.BookDelta {
		return nil
	}

	b, ok := view.Book(market.Key{Venue: m.cfg.Venue, Symbol: m.cfg.Symbol})
	if !ok {
		return nil
	}
	bidLevel, hasBid := b.BestBid()
	askLevel, hasAsk := b.BestAsk()
	if !hasBid || !hasAsk {
		return nil
	}
	bestBid, bestAsk := bidLevel.Price, askLevel.Price

	mid := quant.Mid(bestBid, bestAsk)
	currentSpreadBps := bestAsk.Sub(bestBid).Div(mid).Bps()

	inventoryRatio := 0.0
	if m.cfg.MaxPosition != 0 {
		inventoryRatio = float64(m.position) / float64(m.cfg.MaxPosition)
	}
	if inventoryRatio > 1 {
		inventoryRatio = 1
	}
	if inventoryRatio < -1 {
		inventoryRatio = -1
	}

	halfSpreadBps := m.cfg.TargetSpreadBps
	if currentSpreadBps > halfSpreadBps {
		halfSpreadBps = currentSpreadBps
	}
	halfSpreadBps /= 2

	bidSpreadBps := clampBps(halfSpreadBps*(1+m.cfg.SkewCoeff*inventoryRatio), m.cfg.MinSpreadBps/2, m.cfg.MaxSpreadBps/2)
	askSpreadBps := clampBps(halfSpreadBps*(1-m.cfg.SkewCoeff*inventoryRatio), m.cfg.MinSpreadBps/2, m.cfg.MaxSpreadBps/2)

	bidBase := offsetPrice(mid, bidSpreadBps, true)
	askBase := offsetPrice(mid, askSpreadBps, false)

	suppressBid := m.cfg.MaxPosition != 0 && m.position+m.cfg.OrderSize > m.cfg.MaxPosition
	suppressAsk := m.cfg.MaxPosition != 0 && m.position-m.cfg.OrderSize < -m.cfg.MaxPosition

	var bids, asks []quoteLevel
	if !suppressBid {
		bids = m.buildLadder(core.Buy, bidBase)
	}
	if !suppressAsk {
		asks = m.buildLadder(core.Sell, askBase)
	}

	if laddersWithinTolerance(m.lastBids, bids, m.cfg.RequoteToleranceBps) &&
		laddersWithinTolerance(m.lastAsks, asks, m.cfg.RequoteToleranceBps) {
		return nil
	}

	side := core.Buy
	if suppressBid && !suppressAsk {
		side = core.Sell
	}
	if !m.cd.allow(cooldownKey{Symbol: m.cfg.Symbol, Venue: m.cfg.Venue, Side: side}, event.TS) {
		return nil
	}

	m.lastBids, m.lastAsks = bids, asks

	signals := []core.Signal{core.CancelAllOrders(m.cfg.Symbol, m.cfg.Venue)}
	for _, lvl := range bids {
		signals = append(signals, m.placeLevel(lvl))
	}
	for _, lvl := range asks {
		signals = append(signals, m.placeLevel(lvl))
	}
	return signals
}

// OnExecution updates the tracked position from the incremental fill
// delta on every execution report so the next OnEvent's inventory ratio
// and MaxPosition suppression reflect it (spec.md 4.2.1 steps 2-3).
// Filled is cumulative per order, so the delta against the last-seen
// value for that ClientOrderID is what actually happened since the
// previous report.
func (m *MarketMaking) OnExecution(report core.ExecutionReport) []core.Signal {
	if report.Symbol != m.cfg.Symbol || report.Venue != m.cfg.Venue {
		return nil
	}
	ord, ok := m.live[report.ClientOrderID]
	if !ok {
		return nil
	}
	if delta := report.Filled.Sub(ord.Filled); delta.GreaterThan(0) {
		if ord.Side == core.Buy {
			m.position = m.position.Add(delta)
		} else {
			m.position = m.position.Sub(delta)
		}
		ord.Filled = report.Filled
	}
	if report.Status.Terminal() {
		delete(m.live, report.ClientOrderID)
	}
	return nil
}

func (m *MarketMaking) State() any { return m.position }

func (m *MarketMaking) Metrics() Metrics { return m.metrics }

func (m *MarketMaking) Shutdown() {}

func (m *MarketMaking) buildLadder(side core.Side, inside quant.Price) []quoteLevel {
	levels := make([]quoteLevel, 0, m.cfg.Levels)
	for i := 0; i < m.cfg.Levels; i++ {
		price := inside
		if i > 0 {
			step := quant.Price(int64(i)) * m.cfg.TickSize
			if side == core.Buy {
				price = inside.Sub(step)
			} else {
				price = inside.Add(step)
			}
		}
		levels = append(levels, quoteLevel{Side: side, Price: price, Size: m.cfg.OrderSize})
	}
	return levels
}

func (m *MarketMaking) placeLevel(lvl quoteLevel) core.Signal {
	m.nextCID++
	id := m.nextCID
	m.live[id] = &liveOrder{Side: lvl.Side}

	order := core.NewOrder{
		Symbol: m.cfg.Symbol, Venue: m.cfg.Venue, Side: lvl.Side,
		Type: core.Limit, TIF: core.GTC, Price: lvl.Price, HasPrice: true, Size: lvl.Size,
		ClientOrderID: id,
	}
	return core.PlaceOrder(order)
}

func clampBps(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func offsetPrice(mid quant.Price, spreadBps float64, isBid bool) quant.Price {
	delta := int64(float64(mid) * spreadBps / 10_000)
	if isBid {
		return mid - quant.Price(delta)
	}
	return mid + quant.Price(delta)
}

func laddersWithinTolerance(prev, next []quoteLevel, toleranceBps float64) bool {
	if len(prev) != len(next) {
		return false
	}
	for i := range prev {
		if prev[i].Size != next[i].Size || prev[i].Side != next[i].Side {
			return false
		}
		diffBps := prev[i].Price.Sub(next[i].Price).Div(prev[i].Price).Bps()
		if diffBps < 0 {
			diffBps = -diffBps
		}
		if diffBps > toleranceBps {
			return false
		}
	}
	return true
}
