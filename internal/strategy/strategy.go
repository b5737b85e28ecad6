// Package strategy implements the strategy engine (C4): the uniform
// Strategy interface spec.md 4.2 requires, a cooldown/debounce helper
// shared by every strategy implementation, and two concrete strategies —
// market making (4.2.1) and cross-venue arbitrage (4.2.2). Strategies
// never touch a lock: all state mutation happens inside OnEvent/
// OnExecution, called only from the event loop's goroutine (spec.md 4.2
// "single-writer discipline").
package strategy

import (
	"hftcore/internal/core"
	"hftcore/internal/market"
	"hftcore/internal/quant"
	"hftcore/internal/venue"
)

// Metrics is the per-strategy counter set the monitor reads.
type Metrics struct {
	SignalsEmitted    uint64
	SignalsSuppressed uint64
}

// Strategy is the uniform contract every strategy implementation
// satisfies (spec.md 4.2).
type Strategy interface {
	OnEvent(event venue.MarketEvent, view market.View) []core.Signal
	OnExecution(report core.ExecutionReport) []core.Signal
	State() any
	Metrics() Metrics
	Shutdown()
}

// cooldownKey identifies the (symbol, venue, side) debounce bucket
// spec.md 4.2 specifies.
type cooldownKey struct {
	Symbol quant.Symbol
	Venue  quant.VenueID
	Side   core.Side
}

// cooldown tracks last_signal_ts per (symbol, venue, side) and suppresses
// re-emission inside a configured window, preventing jitter-induced order
// storms.
type cooldown struct {
	window  quant.Timestamp
	lastTS  map[cooldownKey]quant.Timestamp
	metrics *Metrics
}

func newCooldown(window quant.Timestamp, metrics *Metrics) cooldown {
	return cooldown{window: window, lastTS: make(map[cooldownKey]quant.Timestamp), metrics: metrics}
}

// allow reports whether a signal for key at time now should be emitted,
// and if so records now as the new last_signal_ts.
func (c *cooldown) allow(key cooldownKey, now quant.Timestamp) bool {
	last, seen := c.lastTS[key]
	if seen && now-last < c.window {
		c.metrics.SignalsSuppressed++
		return false
	}
	c.lastTS[key] = now
	c.metrics.SignalsEmitted++
	return true
}
