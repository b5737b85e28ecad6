// Package persist is the optional, out-of-core persistence sink (spec.md
// 6 "Persistence (optional, out of core)"): it periodically snapshots
// ledger positions and realized P&L to Postgres so an operator can query
// historical state without replaying the WAL. It never sits on the event
// loop's hot path; cmd/trader drives it from its own ticker goroutine.
// Grounded on the teacher's pkg/conn/pg.go (gorm + gorm/driver/postgres).
package persist

import (
	"context"
	"time"

	"hftcore/internal/ledger"
	"hftcore/internal/quant"
	"hftcore/pkg/conn"
)

// PositionSnapshot is one row of a point-in-time position dump.
type PositionSnapshot struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Symbol       string `gorm:"index"`
	Venue        uint16 `gorm:"index"`
	Size         int64
	AveragePrice int64
	RealizedPnL  int64
	RecordedAt   time.Time `gorm:"index"`
}

// Sink persists ledger snapshots to a Postgres table.
type Sink struct {
	client *conn.Client
}

// NewSink opens client and migrates the PositionSnapshot table.
func NewSink(client *conn.Client) (*Sink, error) {
	if err := client.DB().AutoMigrate(&PositionSnapshot{}); err != nil {
		return nil, err
	}
	return &Sink{client: client}, nil
}

// PersistPositions writes one snapshot row per key, using led's current
// position and realized P&L for each.
func (s *Sink) PersistPositions(ctx context.Context, led *ledger.Ledger, keys []ledger.PositionKey, now time.Time) error {
	if len(keys) == 0 {
		return nil
	}
	rows := make([]PositionSnapshot, 0, len(keys))
	for _, key := range keys {
		pos := led.Position(key)
		rows = append(rows, PositionSnapshot{
			Symbol:       string(key.Symbol),
			Venue:        uint16(key.Venue),
			Size:         int64(pos.Size),
			AveragePrice: int64(pos.AveragePrice),
			RealizedPnL:  int64(led.RealizedPnL(key)),
			RecordedAt:   now,
		})
	}
	return s.client.DB().WithContext(ctx).Create(&rows).Error
}

// Close releases the underlying connection pool.
func (s *Sink) Close() error {
	return s.client.Close()
}

// RunPeriodic persists positions for keys every interval until ctx is
// cancelled, logging failures through errFn rather than stopping.
func RunPeriodic(ctx context.Context, sink *Sink, led *ledger.Ledger, keys []ledger.PositionKey, interval time.Duration, errFn func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := sink.PersistPositions(ctx, led, keys, now); err != nil && errFn != nil {
				errFn(err)
			}
		}
	}
}

// AssetPairKeys builds the (symbol, venue) position keys persistence
// should track from the resolved venue/symbol configuration.
func AssetPairKeys(venues []quant.VenueID, symbols []quant.Symbol) []ledger.PositionKey {
	keys := make([]ledger.PositionKey, 0, len(venues)*len(symbols))
	for _, v := range venues {
		for _, sym := range symbols {
			keys = append(keys, ledger.PositionKey{Symbol: sym, Venue: v})
		}
	}
	return keys
}
