// Package market holds the aggregate market-state view: every
// (VenueID, Symbol) order book plus a last-trade cache. It is owned
// exclusively by the event loop (C9); the strategy engine only ever
// receives read-only views handed to it per tick, matching spec.md's
// single-writer discipline.
package market

import (
	"hftcore/internal/book"
	"hftcore/internal/quant"
)

// Key identifies one (venue, symbol) market.
type Key struct {
	Venue  quant.VenueID
	Symbol quant.Symbol
}

// Trade is the last observed print for a key.
type Trade struct {
	Price quant.Price
	Size  quant.Size
	TS    quant.Timestamp
}

// State is the mutable aggregate; construct it with New. The zero value
// has nil maps, so Book and RecordTrade panic on it.
type State struct {
	books      map[Key]*book.Book
	lastTrades map[Key]Trade
}

// New returns an empty market state.
func New() *State {
	return &State{
		books:      make(map[Key]*book.Book),
		lastTrades: make(map[Key]Trade),
	}
}

// Book returns the book for key, creating an empty one on first access.
// Only the event loop calls this in its mutating form.
func (s *State) Book(key Key) *book.Book {
	b, ok := s.books[key]
	if !ok {
		b = book.New()
		s.books[key] = b
	}
	return b
}

// LookupBook returns the book for key without creating one, for read-only
// callers (strategies via a View).
func (s *State) LookupBook(key Key) (*book.Book, bool) {
	b, ok := s.books[key]
	return b, ok
}

// RecordTrade updates the last-trade cache for key.
func (s *State) RecordTrade(key Key, t Trade) {
	s.lastTrades[key] = t
}

// LastTrade returns the most recent trade observed for key.
func (s *State) LastTrade(key Key) (Trade, bool) {
	t, ok := s.lastTrades[key]
	return t, ok
}

// Keys returns every (venue, symbol) pair with a book, used by strategies
// that scan across venues (the arbitrage strategy's venue set).
func (s *State) Keys() []Key {
	keys := make([]Key, 0, len(s.books))
	for k := range s.books {
		keys = append(keys, k)
	}
	return keys
}

// View is the read-only snapshot of market state handed to strategies each
// tick. It wraps the same *book.Book pointers (books are never mutated by
// strategies, only read) so constructing a View does not copy book
// contents.
type View struct {
	state *State
}

// Snapshot returns a View over the current state. Safe to call from
// within the event loop's own goroutine only; the View must not outlive
// the tick it was produced for since the underlying books mutate in place.
func (s *State) Snapshot() View {
	return View{state: s}
}

func (v View) Book(key Key) (*book.Book, bool) {
	return v.state.LookupBook(key)
}

func (v View) LastTrade(key Key) (Trade, bool) {
	return v.state.LastTrade(key)
}

func (v View) Keys() []Key {
	return v.state.Keys()
}
