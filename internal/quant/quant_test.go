package quant

import "testing"

func TestPriceSubAddMid(t *testing.T) {
	a := Price(10_000_000_000) // 100.00000000 at scale 8
	b := Price(10_010_000_000) // 100.10000000

	if got := b.Sub(a); got != Price(10_000_000) {
		t.Fatalf("Sub: got %d want %d", got, Price(10_000_000))
	}

	mid := Mid(a, b)
	if mid != Price(10_005_000_000) {
		t.Fatalf("Mid: got %d want %d", mid, Price(10_005_000_000))
	}
}

func TestPriceDivBps(t *testing.T) {
	ask := Price(10_010_000_000)
	bid := Price(10_000_000_000)

	ratio := ask.Sub(bid).Div(bid)
	if bps := ratio.Bps(); bps < 9.9 || bps > 10.1 {
		t.Fatalf("Bps: got %f want ~10", bps)
	}
}

func TestPriceMulNotionalOverflow(t *testing.T) {
	p := Price(maxInt64)
	s := Size(2)

	if _, overflow := p.Mul(s); !overflow {
		t.Fatalf("expected overflow")
	}

	p2 := Price(100)
	s2 := Size(5)
	notional, overflow := p2.Mul(s2)
	if overflow {
		t.Fatalf("unexpected overflow")
	}
	if notional != Notional(500) {
		t.Fatalf("got %d want 500", notional)
	}
}

func TestSizeRatioAndAbs(t *testing.T) {
	pos := Size(5)
	max := Size(10)

	if r := pos.Ratio(max).Float64(); r != 0.5 {
		t.Fatalf("ratio: got %f want 0.5", r)
	}

	if got := Size(-7).Abs(); got != Size(7) {
		t.Fatalf("abs: got %d want 7", got)
	}
}

func TestParsePriceAppendStringRoundTrip(t *testing.T) {
	p, err := ParsePrice("100.50", 8)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	buf := p.AppendString(8, nil)
	if string(buf) != "100.50000000" {
		t.Fatalf("got %q want %q", buf, "100.50000000")
	}
}

func TestParsePriceNegative(t *testing.T) {
	p, err := ParsePrice("-0.0005", 8)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p >= 0 {
		t.Fatalf("expected negative scaled value, got %d", p)
	}
}

func TestSymbolQuoteAsset(t *testing.T) {
	s := Symbol("BTCUSDT")
	if got := s.QuoteAsset(4); got != "USDT" {
		t.Fatalf("got %q want USDT", got)
	}
}

func TestTimestampOrdering(t *testing.T) {
	a := Timestamp(1000)
	b := Timestamp(1001)
	if !a.Before(b) || !b.After(a) {
		t.Fatalf("ordering broken")
	}
}
