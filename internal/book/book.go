// Package book implements the per-(venue, symbol) normalized order book:
// snapshot and delta application, top-of-book queries, and the crossed-book
// detection spec.md C2 requires. The hot path is delta merge plus
// top-of-book read, so each side is kept as a slice sorted by price rather
// than a generic map, letting top_n read a contiguous prefix without
// allocating.
package book

import (
	"sort"

	"hftcore/internal/quant"
)

// Level is one (price, size) entry on a book side.
type Level struct {
	Price quant.Price
	Size  quant.Size
}

// Book is the two-sided depth view for a single (venue, symbol). Bids are
// kept sorted descending by price (best bid first); asks ascending (best
// ask first). Zero value is an empty, usable book.
type Book struct {
	bids []Level
	asks []Level

	lastUpdateTS quant.Timestamp

	// CrossedEvents counts transient crossed-book occurrences detected
	// within a single delta batch, reported to the monitor per spec.md
	// 4.1 "Edge cases".
	CrossedEvents uint64
	// StaleDeltas counts deltas rejected for carrying a timestamp older
	// than the book's last_update_ts.
	StaleDeltas uint64
}

// New returns an empty book.
func New() *Book {
	return &Book{}
}

// LastUpdateTS returns the timestamp of the most recent applied
// snapshot/delta.
func (b *Book) LastUpdateTS() quant.Timestamp { return b.lastUpdateTS }

// ApplySnapshot replaces both sides entirely. A snapshot is applied
// unconditionally regardless of ts ordering — it is, by definition, a full
// reset of book state.
func (b *Book) ApplySnapshot(bids, asks []Level, ts quant.Timestamp) {
	b.bids = sortSide(append([]Level(nil), bids...), true)
	b.asks = sortSide(append([]Level(nil), asks...), false)
	b.lastUpdateTS = ts
}

// ApplyDelta merges incremental (price, size) changes into each side.
// size=0 removes a level; size>0 inserts or replaces it. A delta whose ts
// is strictly less than the book's last_update_ts is rejected silently
// (StaleDeltas is incremented; the caller surfaces it to the monitor).
// A batch that leaves the book crossed increments CrossedEvents but is
// still applied — crossing is transient and reported, not rejected.
func (b *Book) ApplyDelta(bids, asks []Level, ts quant.Timestamp) {
	if ts < b.lastUpdateTS {
		b.StaleDeltas++
		return
	}

	for _, lvl := range bids {
		b.bids = applyLevel(b.bids, lvl, true)
	}
	for _, lvl := range asks {
		b.asks = applyLevel(b.asks, lvl, false)
	}

	b.lastUpdateTS = ts

	if b.isCrossed() {
		b.CrossedEvents++
	}
}

func (b *Book) isCrossed() bool {
	if len(b.bids) == 0 || len(b.asks) == 0 {
		return false
	}
	return b.bids[0].Price >= b.asks[0].Price
}

// BestBid returns the best (highest) bid level. ok is false on an empty
// side.
func (b *Book) BestBid() (Level, bool) {
	if len(b.bids) == 0 {
		return Level{}, false
	}
	return b.bids[0], true
}

// BestAsk returns the best (lowest) ask level. ok is false on an empty
// side.
func (b *Book) BestAsk() (Level, bool) {
	if len(b.asks) == 0 {
		return Level{}, false
	}
	return b.asks[0], true
}

// TopN copies up to n best levels on the given side into dst, returning the
// number written. Passing a caller-owned dst with cap>=n keeps this
// allocation-free in the steady state, as spec.md 4.1 requires for n<=20.
func (b *Book) TopN(side Side, n int, dst []Level) int {
	src := b.bids
	if side == Ask {
		src = b.asks
	}

	if n > len(src) {
		n = len(src)
	}
	if n > len(dst) {
		n = len(dst)
	}

	copy(dst[:n], src[:n])
	return n
}

// MidPrice returns (best_bid+best_ask)/2. ok is false unless both sides
// are non-empty.
func (b *Book) MidPrice() (quant.Price, bool) {
	bid, ok := b.BestBid()
	if !ok {
		return 0, false
	}
	ask, ok := b.BestAsk()
	if !ok {
		return 0, false
	}
	return quant.Mid(bid.Price, ask.Price), true
}

// SpreadBps returns (best_ask-best_bid)/mid * 10000. ok is false unless
// both sides are non-empty.
func (b *Book) SpreadBps() (float64, bool) {
	bid, ok := b.BestBid()
	if !ok {
		return 0, false
	}
	ask, ok := b.BestAsk()
	if !ok {
		return 0, false
	}
	mid, ok := b.MidPrice()
	if !ok || mid.IsZero() {
		return 0, false
	}
	return ask.Price.Sub(bid.Price).Div(mid).Bps(), true
}

// Side selects bid or ask for TopN queries.
type Side int

const (
	Bid Side = iota
	Ask
)

func sortSide(levels []Level, descending bool) []Level {
	sort.Slice(levels, func(i, j int) bool {
		if descending {
			return levels[i].Price > levels[j].Price
		}
		return levels[i].Price < levels[j].Price
	})
	return levels
}

// applyLevel inserts, replaces, or removes lvl in a price-sorted slice
// using binary search. descending selects bid (best-first, highest price)
// versus ask (best-first, lowest price) ordering.
func applyLevel(levels []Level, lvl Level, descending bool) []Level {
	less := func(i int) bool {
		if descending {
			return levels[i].Price <= lvl.Price
		}
		return levels[i].Price >= lvl.Price
	}

	idx := sort.Search(len(levels), less)

	if idx < len(levels) && levels[idx].Price == lvl.Price {
		if lvl.Size.IsZero() {
			return append(levels[:idx], levels[idx+1:]...)
		}
		levels[idx].Size = lvl.Size
		return levels
	}

	if lvl.Size.IsZero() {
		return levels
	}

	levels = append(levels, Level{})
	copy(levels[idx+1:], levels[idx:])
	levels[idx] = lvl
	return levels
}
