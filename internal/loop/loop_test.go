package loop

import (
	"context"
	"testing"
	"time"

	"hftcore/internal/book"
	"hftcore/internal/ledger"
	"hftcore/internal/market"
	"hftcore/internal/obs"
	"hftcore/internal/oms"
	"hftcore/internal/quant"
	"hftcore/internal/ratelimit"
	"hftcore/internal/risk"
	"hftcore/internal/strategy"
	"hftcore/internal/venue"
	"hftcore/internal/venue/sim"
)

func TestLoopPlacesOrderOnBookCrossingSignal(t *testing.T) {
	const venueID = quant.VenueID(1)
	symbol := quant.Symbol("BTCUSDT")

	state := market.New()
	led := ledger.New()
	led.SetBalance(ledger.AssetKey{Asset: "USDT", Venue: venueID}, 1_000_000_00000000)
	// Sizes are whole units: Price.Mul is a raw product, so a notional
	// carries the price's 8 decimals.
	led.SetBalance(ledger.AssetKey{Asset: "BTC", Venue: venueID}, 100)

	gate := risk.NewGate(risk.Config{
		MaxOrderSize:  map[quant.Symbol]quant.Size{symbol: 10},
		MaxOrderValue: map[quant.Symbol]quant.Notional{symbol: 1_000_000_00000000},
		MaxPosition:   map[quant.Symbol]quant.Size{symbol: 100},
	}, led)

	manager := oms.New()
	limiter := ratelimit.New()
	limiter.Configure(venueID, 100, 10, time.Now())

	adapter := sim.New(venueID, nil)

	mm := strategy.NewMarketMaking(strategy.MarketMakingConfig{
		Venue: venueID, Symbol: symbol,
		TargetSpreadBps: 10, MinSpreadBps: 2, MaxSpreadBps: 500,
		OrderSize: 1, MaxPosition: 100, SkewCoeff: 0.3,
		Levels: 1, TickSize: 1, RequoteToleranceBps: 1,
	})

	l := New(state, []strategy.Strategy{mm}, led, gate, manager, limiter,
		map[quant.VenueID]venue.Adapter{venueID: adapter},
		map[quant.Symbol]AssetPair{symbol: {Base: "BTC", Quote: "USDT"}},
		obs.NewMetrics(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	adapter.Feed(ctx, venue.MarketEvent{
		Kind: venue.BookSnapshot, Venue: venueID, Symbol: symbol, TS: quant.Now(),
		Bids: []book.Level{{Price: 100_000_00000000, Size: 10}},
		Asks: []book.Level{{Price: 100_010_00000000, Size: 10}},
	})

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if l.MetricsSnapshot().MarketEventsProcessed == 0 {
		t.Fatal("expected at least one market event processed")
	}
	if l.MetricsSnapshot().SignalsApproved == 0 {
		t.Fatal("expected the market-making signal to be approved by the risk gate")
	}
}
