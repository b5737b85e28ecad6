package market

import (
	"testing"

	"hftcore/internal/book"
	"hftcore/internal/quant"
)

func TestBookCreatedOnFirstAccess(t *testing.T) {
	s := New()
	key := Key{Venue: 1, Symbol: "BTCUSDT"}

	b := s.Book(key)
	b.ApplySnapshot([]book.Level{{Price: 100, Size: 1}}, nil, 1)

	b2, ok := s.LookupBook(key)
	if !ok || b2 != b {
		t.Fatalf("expected same book instance on lookup")
	}
}

func TestLastTradeRoundTrip(t *testing.T) {
	s := New()
	key := Key{Venue: 1, Symbol: "BTCUSDT"}

	s.RecordTrade(key, Trade{Price: 100, Size: 1, TS: quant.Timestamp(5)})

	trade, ok := s.LastTrade(key)
	if !ok || trade.Price != 100 {
		t.Fatalf("got %+v ok=%v", trade, ok)
	}
}

func TestViewKeysAcrossVenues(t *testing.T) {
	s := New()
	s.Book(Key{Venue: 1, Symbol: "BTCUSDT"})
	s.Book(Key{Venue: 2, Symbol: "BTCUSDT"})

	view := s.Snapshot()
	if got := len(view.Keys()); got != 2 {
		t.Fatalf("expected 2 keys, got %d", got)
	}
}
