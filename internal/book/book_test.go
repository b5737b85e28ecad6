package book

import (
	"testing"

	"hftcore/internal/quant"
)

func TestApplySnapshotReplacesState(t *testing.T) {
	b := New()
	b.ApplySnapshot(
		[]Level{{Price: 100, Size: 1}, {Price: 99, Size: 2}},
		[]Level{{Price: 101, Size: 1}},
		10,
	)

	bid, ok := b.BestBid()
	if !ok || bid.Price != 100 {
		t.Fatalf("best bid: got %+v ok=%v", bid, ok)
	}

	ask, ok := b.BestAsk()
	if !ok || ask.Price != 101 {
		t.Fatalf("best ask: got %+v ok=%v", ask, ok)
	}
}

func TestApplyDeltaInsertUpdateRemove(t *testing.T) {
	b := New()
	b.ApplySnapshot([]Level{{Price: 100, Size: 1}}, []Level{{Price: 101, Size: 1}}, 1)

	b.ApplyDelta([]Level{{Price: 99, Size: 5}}, nil, 2)
	if got := len(b.bids); got != 2 {
		t.Fatalf("expected 2 bid levels, got %d", got)
	}

	b.ApplyDelta([]Level{{Price: 100, Size: 0}}, nil, 3)
	bid, ok := b.BestBid()
	if !ok || bid.Price != 99 {
		t.Fatalf("after removal best bid should be 99, got %+v ok=%v", bid, ok)
	}
}

func TestApplyDeltaStaleRejected(t *testing.T) {
	b := New()
	b.ApplySnapshot([]Level{{Price: 100, Size: 1}}, []Level{{Price: 101, Size: 1}}, 1000)

	b.ApplyDelta([]Level{{Price: 50, Size: 1}}, nil, 999)

	if b.StaleDeltas != 1 {
		t.Fatalf("expected 1 stale delta, got %d", b.StaleDeltas)
	}
	bid, _ := b.BestBid()
	if bid.Price != 100 {
		t.Fatalf("stale delta must not mutate book, got bid %+v", bid)
	}
}

func TestBookCoherenceAfterDeltas(t *testing.T) {
	b := New()
	b.ApplySnapshot(
		[]Level{{Price: 100, Size: 1}},
		[]Level{{Price: 101, Size: 1}},
		1,
	)

	b.ApplyDelta([]Level{{Price: 102, Size: 1}}, nil, 2)

	if b.CrossedEvents == 0 {
		t.Fatalf("expected a crossed-book event to be counted")
	}
}

func TestMidPriceAndSpreadBps(t *testing.T) {
	b := New()
	b.ApplySnapshot(
		[]Level{{Price: quant.Price(10_000_000_000)}},
		[]Level{{Price: quant.Price(10_010_000_000)}},
		1,
	)
	b.bids[0].Size = 1
	b.asks[0].Size = 1

	mid, ok := b.MidPrice()
	if !ok || mid != quant.Price(10_005_000_000) {
		t.Fatalf("mid: got %v ok=%v", mid, ok)
	}

	bps, ok := b.SpreadBps()
	if !ok || bps < 9.9 || bps > 10.1 {
		t.Fatalf("spread bps: got %f ok=%v", bps, ok)
	}
}

func TestTopNAllocationFreeSteadyState(t *testing.T) {
	b := New()
	b.ApplySnapshot(
		[]Level{{Price: 3, Size: 1}, {Price: 2, Size: 1}, {Price: 1, Size: 1}},
		nil,
		1,
	)

	dst := make([]Level, 2)
	n := b.TopN(Bid, 2, dst)
	if n != 2 || dst[0].Price != 3 || dst[1].Price != 2 {
		t.Fatalf("top2: got %+v n=%d", dst, n)
	}
}
