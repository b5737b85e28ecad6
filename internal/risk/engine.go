package risk

import (
	"time"

	"hftcore/internal/core"
	"hftcore/internal/ledger"
	"hftcore/internal/quant"
)

// Config carries the parameters for the standard rule set (spec.md 4.3
// and the §6 configuration table's risk.* group). Per-symbol/per-asset
// limits are maps so one Config serves every traded instrument; a missing
// or zero entry means "rule does not apply" for that key, the same
// "limit<=0 disables the check" convention the teacher's engine.go used.
type Config struct {
	KillSwitch bool

	MaxOrderSize  map[quant.Symbol]quant.Size
	MaxOrderValue map[quant.Symbol]quant.Notional
	MaxPosition   map[quant.Symbol]quant.Size
	MinBalance    map[string]quant.Notional

	DailyLossLimit quant.Notional

	RateOfChangeBps    float64
	RateOfChangeWindow time.Duration
}

// Decision is the gate's outcome for one candidate order.
type Decision struct {
	Allowed     bool
	Reason      Reason
	Reservation ledger.ReservationID
	HasReserve  bool
}

// Gate evaluates candidates against the ordered standard rule list and,
// on approval, atomically creates the ledger reservation (spec.md 4.3:
// "the gate atomically creates the ledger reservation for the order's
// required asset amount and returns a reservation handle alongside
// approval").
type Gate struct {
	cfg    Config
	ledger *ledger.Ledger
	rules  []Rule

	rateWindows map[rateKey]rateWindow
	dailyAnchor map[ledger.PositionKey]dailyAnchor
}

type rateKey struct {
	Venue  quant.VenueID
	Symbol quant.Symbol
}

type rateWindow struct {
	startPrice quant.Price
	startTS    quant.Timestamp
}

type dailyAnchor struct {
	date  string // YYYY-MM-DD, UTC
	value quant.Notional
}

// NewGate builds a risk gate evaluating rules in the standard order:
// KillSwitch, MaxOrderSize, RateOfChange, MaxOrderValue, MaxPosition,
// MinBalance, DailyLoss. Callers needing a different order or a subset
// construct Gate directly and set Rules.
func NewGate(cfg Config, led *ledger.Ledger) *Gate {
	g := &Gate{
		cfg:         cfg,
		ledger:      led,
		rateWindows: make(map[rateKey]rateWindow),
		dailyAnchor: make(map[ledger.PositionKey]dailyAnchor),
	}

	g.rules = []Rule{
		RuleFunc(g.killSwitch),
		RuleFunc(g.maxOrderSize),
		RuleFunc(g.rateOfChange),
		RuleFunc(g.maxOrderValue),
		RuleFunc(g.maxPosition),
		RuleFunc(g.minBalance),
		RuleFunc(g.dailyLoss),
	}

	return g
}

// Evaluate runs every rule in order, stopping at the first violation. On
// approval it creates the ledger reservation for the order's required
// asset amount (quote asset for a buy, base asset for a sell) in the same
// call, matching the atomicity spec.md 4.3 requires.
func (g *Gate) Evaluate(c Candidate) Decision {
	snap := g.ledger.Snapshot()
	for _, rule := range g.rules {
		if v := rule.Evaluate(c, snap); v.Violated {
			return Decision{Allowed: false, Reason: v.Reason}
		}
	}

	resID, hasReserve, err := g.reserve(c)
	if err != nil {
		return Decision{Allowed: false, Reason: ReasonMinBalance}
	}

	g.observeRateWindow(c)

	return Decision{Allowed: true, Reservation: resID, HasReserve: hasReserve}
}

// reserve creates the ledger hold for a candidate order. Market orders
// reserve against the reference price as a worst-case estimate; the
// ledger's ApplyFill reconciles the remainder once the actual fill price
// is known.
func (g *Gate) reserve(c Candidate) (ledger.ReservationID, bool, error) {
	asset, amount, ok := reservationRequirement(c)
	if !ok {
		return 0, false, nil
	}

	id, err := g.ledger.Reserve(asset, amount)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func reservationRequirement(c Candidate) (ledger.AssetKey, quant.Notional, bool) {
	price := c.ReferencePrice
	if c.Order.HasPrice {
		price = c.Order.Price
	}
	if price.IsZero() {
		return ledger.AssetKey{}, 0, false
	}

	notional, overflow := price.Mul(c.Order.Size)
	if overflow {
		return ledger.AssetKey{}, 0, false
	}

	switch c.Order.Side {
	case core.Buy:
		return ledger.AssetKey{Asset: c.QuoteAsset, Venue: c.Order.Venue}, notional, true
	default:
		return ledger.AssetKey{Asset: c.BaseAsset, Venue: c.Order.Venue}, quant.Notional(c.Order.Size), true
	}
}

func (g *Gate) observeRateWindow(c Candidate) {
	if g.cfg.RateOfChangeWindow <= 0 {
		return
	}
	price := c.ReferencePrice
	if price.IsZero() {
		return
	}

	key := rateKey{Venue: c.Order.Venue, Symbol: c.Order.Symbol}
	w, ok := g.rateWindows[key]
	if !ok || c.Now-w.startTS >= quant.Timestamp(g.cfg.RateOfChangeWindow.Milliseconds()) {
		g.rateWindows[key] = rateWindow{startPrice: price, startTS: c.Now}
	}
}
