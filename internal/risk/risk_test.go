package risk

import (
	"testing"

	"hftcore/internal/core"
	"hftcore/internal/ledger"
	"hftcore/internal/quant"
)

func TestKillSwitchDeniesEverything(t *testing.T) {
	led := ledger.New()
	gate := NewGate(Config{KillSwitch: true}, led)

	decision := gate.Evaluate(Candidate{
		Order: core.NewOrder{Symbol: "BTCUSDT", Venue: 1, Side: core.Buy, Size: 1},
	})

	if decision.Allowed {
		t.Fatalf("expected denial")
	}
	if decision.Reason != ReasonKillSwitch {
		t.Fatalf("expected kill switch reason, got %v", decision.Reason)
	}
}

func TestMaxOrderValueRejection(t *testing.T) {
	// E3: MaxOrderValue(BTCUSDT, 10,000 USDT); candidate Buy 1 BTC @
	// 15,000 USDT must be denied with no reservation created.
	led := ledger.New()
	led.SetBalance(ledger.AssetKey{Asset: "USDT", Venue: 1}, 1_000_000)

	gate := NewGate(Config{
		MaxOrderValue: map[quant.Symbol]quant.Notional{"BTCUSDT": 10_000},
	}, led)

	decision := gate.Evaluate(Candidate{
		Order: core.NewOrder{
			Symbol: "BTCUSDT", Venue: 1, Side: core.Buy,
			Type: core.Limit, HasPrice: true, Price: 15_000, Size: 1,
		},
		BaseAsset:  "BTC",
		QuoteAsset: "USDT",
	})

	if decision.Allowed {
		t.Fatalf("expected denial")
	}
	if decision.Reason != ReasonMaxOrderValue {
		t.Fatalf("expected max_order_value reason, got %v", decision.Reason)
	}

	bal := led.Balance(ledger.AssetKey{Asset: "USDT", Venue: 1})
	if bal.Used != 0 {
		t.Fatalf("no reservation should have been created, used=%d", bal.Used)
	}
}

func TestApprovalCreatesReservation(t *testing.T) {
	led := ledger.New()
	led.SetBalance(ledger.AssetKey{Asset: "USDT", Venue: 1}, 1_000_000)

	gate := NewGate(Config{}, led)

	decision := gate.Evaluate(Candidate{
		Order: core.NewOrder{
			Symbol: "BTCUSDT", Venue: 1, Side: core.Buy,
			Type: core.Limit, HasPrice: true, Price: 100, Size: 1,
		},
		BaseAsset:  "BTC",
		QuoteAsset: "USDT",
	})

	if !decision.Allowed || !decision.HasReserve {
		t.Fatalf("expected approval with reservation, got %+v", decision)
	}

	bal := led.Balance(ledger.AssetKey{Asset: "USDT", Venue: 1})
	if bal.Used != 100 {
		t.Fatalf("expected 100 reserved, got used=%d", bal.Used)
	}
}

func TestMaxPositionRejection(t *testing.T) {
	led := ledger.New()
	led.SetBalance(ledger.AssetKey{Asset: "USDT", Venue: 1}, 1_000_000)

	gate := NewGate(Config{
		MaxPosition: map[quant.Symbol]quant.Size{"BTCUSDT": 5},
	}, led)

	// simulate an existing position of +5 via a direct fill application
	_ = led.ApplyFill(ledger.Fill{
		Symbol: "BTCUSDT", Venue: 1, BaseAsset: "BTC", QuoteAsset: "USDT",
		Side: core.Buy, Size: 5, Price: 100,
	})

	decision := gate.Evaluate(Candidate{
		Order: core.NewOrder{
			Symbol: "BTCUSDT", Venue: 1, Side: core.Buy,
			Type: core.Limit, HasPrice: true, Price: 100, Size: 1,
		},
		BaseAsset:  "BTC",
		QuoteAsset: "USDT",
	})

	if decision.Allowed {
		t.Fatalf("expected denial")
	}
	if decision.Reason != ReasonMaxPosition {
		t.Fatalf("expected max_position reason, got %v", decision.Reason)
	}
}
