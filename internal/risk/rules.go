package risk

import (
	"hftcore/internal/core"
	"hftcore/internal/ledger"
)

// killSwitch: a single global flag; when set, all orders are rejected.
func (g *Gate) killSwitch(c Candidate, snap ledger.Snapshot) Verdict {
	if g.cfg.KillSwitch {
		return violation(ReasonKillSwitch)
	}
	return ok()
}

// maxOrderSize: order.size <= limit.
func (g *Gate) maxOrderSize(c Candidate, snap ledger.Snapshot) Verdict {
	limit, has := g.cfg.MaxOrderSize[c.Order.Symbol]
	if !has || limit.IsZero() {
		return ok()
	}
	if c.Order.Size.Abs().GreaterThan(limit) {
		return violation(ReasonMaxOrderSize)
	}
	return ok()
}

// maxOrderValue: price*order.size <= limit; for market orders (no
// explicit price) the reference price (best ask/bid at that venue) is
// used.
func (g *Gate) maxOrderValue(c Candidate, snap ledger.Snapshot) Verdict {
	limit, has := g.cfg.MaxOrderValue[c.Order.Symbol]
	if !has || limit.IsZero() {
		return ok()
	}

	price := c.ReferencePrice
	if c.Order.HasPrice {
		price = c.Order.Price
	}
	if price.IsZero() {
		return ok()
	}

	value, overflow := price.Mul(c.Order.Size)
	if overflow {
		return violation(ReasonMaxOrderValue)
	}
	if value.GreaterThan(limit) {
		return violation(ReasonMaxOrderValue)
	}
	return ok()
}

// maxPosition: |current_position + signed_size| <= limit.
func (g *Gate) maxPosition(c Candidate, snap ledger.Snapshot) Verdict {
	limit, has := g.cfg.MaxPosition[c.Order.Symbol]
	if !has || limit.IsZero() {
		return ok()
	}

	posKey := ledger.PositionKey{Symbol: c.Order.Symbol, Venue: c.Order.Venue}
	current := snap.Position(posKey).Size

	signed := c.Order.Size
	if c.Order.Side == core.Sell {
		signed = signed.Neg()
	}

	next := current.Add(signed)
	if next.Abs().GreaterThan(limit) {
		return violation(ReasonMaxPosition)
	}
	return ok()
}

// minBalance: post-reservation free on the relevant asset >= floor.
func (g *Gate) minBalance(c Candidate, snap ledger.Snapshot) Verdict {
	asset, amount, has := reservationRequirement(c)
	if !has {
		return ok()
	}

	floor, hasFloor := g.cfg.MinBalance[asset.Asset]
	if !hasFloor {
		return ok()
	}

	bal := snap.Balance(asset)
	if bal.Free.Sub(amount).LessThan(floor) {
		return violation(ReasonMinBalance)
	}
	return ok()
}

// dailyLoss: cumulative realized P&L for the UTC calendar day >= -limit.
func (g *Gate) dailyLoss(c Candidate, snap ledger.Snapshot) Verdict {
	if g.cfg.DailyLossLimit.IsZero() {
		return ok()
	}

	posKey := ledger.PositionKey{Symbol: c.Order.Symbol, Venue: c.Order.Venue}
	today := c.Now.Time().Format("2006-01-02")

	anchor, has := g.dailyAnchor[posKey]
	if !has || anchor.date != today {
		anchor = dailyAnchor{date: today, value: snap.RealizedPnL(posKey)}
		g.dailyAnchor[posKey] = anchor
	}

	dayPnL := snap.RealizedPnL(posKey).Sub(anchor.value)
	if dayPnL.Abs().GreaterThan(g.cfg.DailyLossLimit) && dayPnL < 0 {
		return violation(ReasonDailyLoss)
	}
	return ok()
}

// rateOfChange: reject if |price - last_price_at_window_start| /
// last_price_at_window_start * 10000 > bps (fat-finger protection).
func (g *Gate) rateOfChange(c Candidate, snap ledger.Snapshot) Verdict {
	if g.cfg.RateOfChangeBps <= 0 || g.cfg.RateOfChangeWindow <= 0 {
		return ok()
	}
	if !c.Order.HasPrice {
		return ok()
	}

	key := rateKey{Venue: c.Order.Venue, Symbol: c.Order.Symbol}
	w, has := g.rateWindows[key]
	if !has || w.startPrice.IsZero() {
		return ok()
	}

	diffBps := c.Order.Price.Sub(w.startPrice).Div(w.startPrice).Bps()
	if diffBps < 0 {
		diffBps = -diffBps
	}

	if diffBps > g.cfg.RateOfChangeBps {
		return violation(ReasonRateOfChange)
	}
	return ok()
}
