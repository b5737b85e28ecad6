package strategy

import (
	"testing"

	"hftcore/internal/core"
	"hftcore/internal/market"
	"hftcore/internal/quant"
	"hftcore/internal/venue"
)

func TestArbitrageEmitsPairedSignalAboveThreshold(t *testing.T) {
	cfg := ArbitrageConfig{
		Symbol: "BTCUSDT", Venues: []quant.VenueID{1, 2},
		MinProfitBps: 10, OrderSize: 1, MaxPosition: 100,
	}
	arb := NewArbitrage(cfg)

	state := market.New()
	seedBook(state, market.Key{Venue: 1, Symbol: "BTCUSDT"}, 100_200, 100_300, 1000)
	seedBook(state, market.Key{Venue: 2, Symbol: "BTCUSDT"}, 99_800, 99_900, 1000)

	ev := venue.MarketEvent{Kind: venue.BookSnapshot, Venue: 1, Symbol: "BTCUSDT", TS: 1000}
	signals := arb.OnEvent(ev, state.Snapshot())

	if len(signals) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(signals))
	}
	if signals[0].Order.Side != core.Buy || signals[0].Order.Venue != 2 {
		t.Fatalf("expected buy leg on venue 2 (cheap ask), got %+v", signals[0].Order)
	}
	if signals[1].Order.Side != core.Sell || signals[1].Order.Venue != 1 {
		t.Fatalf("expected sell leg on venue 1 (rich bid), got %+v", signals[1].Order)
	}
	if len(arb.open) != 1 {
		t.Fatalf("expected one open pair tracked, got %d", len(arb.open))
	}
}

func TestArbitrageBelowThresholdEmitsNothing(t *testing.T) {
	cfg := ArbitrageConfig{
		Symbol: "BTCUSDT", Venues: []quant.VenueID{1, 2},
		MinProfitBps: 500, OrderSize: 1, MaxPosition: 100,
	}
	arb := NewArbitrage(cfg)

	state := market.New()
	seedBook(state, market.Key{Venue: 1, Symbol: "BTCUSDT"}, 100_010, 100_020, 1000)
	seedBook(state, market.Key{Venue: 2, Symbol: "BTCUSDT"}, 99_990, 100_000, 1000)

	ev := venue.MarketEvent{Kind: venue.BookSnapshot, Venue: 1, Symbol: "BTCUSDT", TS: 1000}
	if got := arb.OnEvent(ev, state.Snapshot()); got != nil {
		t.Fatalf("expected no signal below threshold, got %d", len(got))
	}
}

func TestArbitrageOnExecutionUpdatesPositionFromBothLegs(t *testing.T) {
	cfg := ArbitrageConfig{
		Symbol: "BTCUSDT", Venues: []quant.VenueID{1, 2},
		MinProfitBps: 10, OrderSize: 3, MaxPosition: 100,
	}
	arb := NewArbitrage(cfg)

	state := market.New()
	seedBook(state, market.Key{Venue: 1, Symbol: "BTCUSDT"}, 100_200, 100_300, 1000)
	seedBook(state, market.Key{Venue: 2, Symbol: "BTCUSDT"}, 99_800, 99_900, 1000)

	ev := venue.MarketEvent{Kind: venue.BookSnapshot, Venue: 1, Symbol: "BTCUSDT", TS: 1000}
	signals := arb.OnEvent(ev, state.Snapshot())
	buyID := signals[0].Order.ClientOrderID
	sellID := signals[1].Order.ClientOrderID

	// Partial fill on the buy leg only increases position by its delta.
	arb.OnExecution(core.ExecutionReport{ClientOrderID: buyID, Status: core.StatusPartiallyFilled, Filled: 1})
	if arb.position != 1 {
		t.Fatalf("expected position=1 after partial buy fill, got %d", arb.position)
	}

	arb.OnExecution(core.ExecutionReport{ClientOrderID: buyID, Status: core.StatusFilled, Filled: 3})
	if arb.position != 3 {
		t.Fatalf("expected position=3 after buy leg fully fills, got %d", arb.position)
	}

	arb.OnExecution(core.ExecutionReport{ClientOrderID: sellID, Status: core.StatusFilled, Filled: 3})
	if arb.position != 0 {
		t.Fatalf("expected position=0 once sell leg offsets the buy leg, got %d", arb.position)
	}
	if len(arb.open) != 0 {
		t.Fatalf("expected pair retired once both legs terminal, got %d", len(arb.open))
	}
}

func TestArbitrageOrphanLegLeftUnhedgedAfterOneLegFills(t *testing.T) {
	cfg := ArbitrageConfig{
		Symbol: "BTCUSDT", Venues: []quant.VenueID{1, 2},
		MinProfitBps: 10, OrderSize: 1, MaxPosition: 100,
	}
	arb := NewArbitrage(cfg)

	state := market.New()
	seedBook(state, market.Key{Venue: 1, Symbol: "BTCUSDT"}, 100_200, 100_300, 1000)
	seedBook(state, market.Key{Venue: 2, Symbol: "BTCUSDT"}, 99_800, 99_900, 1000)

	ev := venue.MarketEvent{Kind: venue.BookSnapshot, Venue: 1, Symbol: "BTCUSDT", TS: 1000}
	signals := arb.OnEvent(ev, state.Snapshot())
	buyID := signals[0].Order.ClientOrderID
	sellID := signals[1].Order.ClientOrderID

	arb.OnExecution(core.ExecutionReport{ClientOrderID: buyID, Status: core.StatusFilled})
	if len(arb.open) != 1 {
		t.Fatalf("pair should remain open until both legs settle, got %d", len(arb.open))
	}

	arb.OnExecution(core.ExecutionReport{ClientOrderID: sellID, Status: core.StatusCancelled})
	if len(arb.open) != 0 {
		t.Fatalf("expected pair retired once both legs terminal, got %d", len(arb.open))
	}
}
