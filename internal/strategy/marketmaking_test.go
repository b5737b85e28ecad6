package strategy

import (
	"testing"

	"hftcore/internal/book"
	"hftcore/internal/core"
	"hftcore/internal/market"
	"hftcore/internal/quant"
	"hftcore/internal/venue"
)

func seedBook(state *market.State, key market.Key, bid, ask quant.Price, ts quant.Timestamp) {
	b := state.Book(key)
	b.ApplySnapshot(
		[]book.Level{{Price: bid, Size: 10}},
		[]book.Level{{Price: ask, Size: 10}},
		ts,
	)
}

func TestMarketMakingEmitsQuotesOnBookUpdate(t *testing.T) {
	cfg := MarketMakingConfig{
		Venue: 1, Symbol: "BTCUSDT",
		TargetSpreadBps: 10, MinSpreadBps: 2, MaxSpreadBps: 200,
		OrderSize: 1, MaxPosition: 100, SkewCoeff: 0.5, Levels: 2,
		TickSize: 1, RequoteToleranceBps: 1, CooldownMillis: 0,
	}
	mm := NewMarketMaking(cfg)

	state := market.New()
	key := market.Key{Venue: 1, Symbol: "BTCUSDT"}
	seedBook(state, key, 100_000, 100_100, 1000)

	ev := venue.MarketEvent{Kind: venue.BookSnapshot, Venue: 1, Symbol: "BTCUSDT", TS: 1000}
	signals := mm.OnEvent(ev, state.Snapshot())

	if len(signals) == 0 {
		t.Fatal("expected signals on first quote")
	}
	if signals[0].Kind != core.SignalCancelAllOrders {
		t.Fatalf("expected leading cancel-all, got kind %d", signals[0].Kind)
	}
}

func TestMarketMakingSuppressesWithinTolerance(t *testing.T) {
	cfg := MarketMakingConfig{
		Venue: 1, Symbol: "BTCUSDT",
		TargetSpreadBps: 10, MinSpreadBps: 2, MaxSpreadBps: 200,
		OrderSize: 1, MaxPosition: 100, SkewCoeff: 0, Levels: 1,
		TickSize: 1, RequoteToleranceBps: 1000, CooldownMillis: 0,
	}
	mm := NewMarketMaking(cfg)

	state := market.New()
	key := market.Key{Venue: 1, Symbol: "BTCUSDT"}
	seedBook(state, key, 100_000, 100_100, 1000)

	ev := venue.MarketEvent{Kind: venue.BookSnapshot, Venue: 1, Symbol: "BTCUSDT", TS: 1000}
	first := mm.OnEvent(ev, state.Snapshot())
	if len(first) == 0 {
		t.Fatal("expected initial signals")
	}

	seedBook(state, key, 100_001, 100_101, 2000)
	ev2 := venue.MarketEvent{Kind: venue.BookDelta, Venue: 1, Symbol: "BTCUSDT", TS: 2000}
	second := mm.OnEvent(ev2, state.Snapshot())
	if second != nil {
		t.Fatalf("expected suppression within tolerance, got %d signals", len(second))
	}
}

func TestMarketMakingOnExecutionUpdatesPositionAndSkew(t *testing.T) {
	// E2: a filled buy leg should skew subsequent quotes toward selling
	// down the new long position, and once position reaches
	// MaxPosition the bid side is suppressed entirely.
	cfg := MarketMakingConfig{
		Venue: 1, Symbol: "BTCUSDT",
		TargetSpreadBps: 10, MinSpreadBps: 2, MaxSpreadBps: 200,
		OrderSize: 5, MaxPosition: 5, SkewCoeff: 1, Levels: 1,
		TickSize: 1, RequoteToleranceBps: 0, CooldownMillis: 0,
	}
	mm := NewMarketMaking(cfg)

	state := market.New()
	key := market.Key{Venue: 1, Symbol: "BTCUSDT"}
	seedBook(state, key, 100_000, 100_100, 1000)

	ev := venue.MarketEvent{Kind: venue.BookSnapshot, Venue: 1, Symbol: "BTCUSDT", TS: 1000}
	signals := mm.OnEvent(ev, state.Snapshot())
	if len(signals) == 0 {
		t.Fatal("expected initial signals")
	}

	var buyID quant.ClientOrderID
	for _, sig := range signals {
		if sig.Kind == core.SignalPlaceOrder && sig.Order.Side == core.Buy {
			buyID = sig.Order.ClientOrderID
			break
		}
	}
	if buyID == 0 {
		t.Fatal("expected a buy-side place-order signal with a nonzero ClientOrderID")
	}

	mm.OnExecution(core.ExecutionReport{
		Symbol: "BTCUSDT", Venue: 1, ClientOrderID: buyID,
		Status: core.StatusFilled, Filled: 5,
	})

	if mm.position != 5 {
		t.Fatalf("expected position=5 after full buy fill, got %d", mm.position)
	}

	seedBook(state, key, 100_001, 100_101, 2000)
	ev2 := venue.MarketEvent{Kind: venue.BookDelta, Venue: 1, Symbol: "BTCUSDT", TS: 2000}
	second := mm.OnEvent(ev2, state.Snapshot())
	for _, sig := range second {
		if sig.Kind == core.SignalPlaceOrder && sig.Order.Side == core.Buy {
			t.Fatalf("expected bid side suppressed at MaxPosition, got buy signal %+v", sig)
		}
	}
}

func TestMarketMakingIgnoresOtherSymbols(t *testing.T) {
	cfg := MarketMakingConfig{Venue: 1, Symbol: "BTCUSDT", Levels: 1, OrderSize: 1}
	mm := NewMarketMaking(cfg)

	state := market.New()
	ev := venue.MarketEvent{Kind: venue.BookSnapshot, Venue: 1, Symbol: "ETHUSDT", TS: 1}
	if got := mm.OnEvent(ev, state.Snapshot()); got != nil {
		t.Fatalf("expected nil for unrelated symbol, got %v", got)
	}
}
