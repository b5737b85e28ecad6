package quant

import "time"

// Symbol is an opaque 1-20 char canonical instrument identifier, e.g.
// "BTCUSDT". It is a plain string rather than a fixed-width charset-packed
// array: the core never puts Symbol on the wire itself (schema.MarketData
// and friends key by SymbolID, a registry-resolved uint32), so there is no
// steady-state allocation pressure to avoid here.
type Symbol string

// MaxSymbolLen is the largest symbol this package accepts.
const MaxSymbolLen = 20

// QuoteAsset returns the last n characters of the symbol, the convention
// used to derive the quote asset from a combined symbol such as "BTCUSDT"
// -> "USDT" (n=4).
func (s Symbol) QuoteAsset(n int) string {
	if n <= 0 || n > len(s) {
		return string(s)
	}
	return string(s[len(s)-n:])
}

func (s Symbol) String() string { return string(s) }

func (s Symbol) Valid() bool {
	return len(s) > 0 && len(s) <= MaxSymbolLen
}

// VenueID identifies a trading venue (exchange). It is opaque and
// registry-resolved the same way schema payloads resolve SymbolID.
type VenueID uint32

// OrderID is venue-assigned; it is only known once the adapter acks the
// order. Distinct from ClientOrderID so the two can never be confused at
// a call site.
type OrderID uint64

// ClientOrderID is locally generated by the order manager at submit time,
// before any venue round trip.
type ClientOrderID uint64

// Timestamp is milliseconds since the Unix epoch, monotonic within a single
// ingress stream (not wall-clock monotonic across streams).
type Timestamp int64

// Now returns the current time as a Timestamp. Only adapters and the event
// loop's timers call this; strategies and risk evaluation receive
// timestamps from events, never from the wall clock, to stay deterministic
// and testable with fixtures.
func Now() Timestamp {
	return Timestamp(time.Now().UnixMilli())
}

func (t Timestamp) Before(other Timestamp) bool { return t < other }
func (t Timestamp) After(other Timestamp) bool  { return t > other }

func (t Timestamp) Sub(other Timestamp) time.Duration {
	return time.Duration(t-other) * time.Millisecond
}

// Time converts the Timestamp to a time.Time in UTC, used by the daily-loss
// risk rule to find calendar-day boundaries.
func (t Timestamp) Time() time.Time {
	return time.UnixMilli(int64(t)).UTC()
}
