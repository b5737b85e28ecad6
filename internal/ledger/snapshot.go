package ledger

import "hftcore/internal/quant"

// Snapshot is an immutable, point-in-time copy of the balances and
// positions the risk gate needs for one evaluation. spec.md 4.3 requires
// reads to be "snapshot-consistent": the gate must not observe a partial
// mutation from a concurrent ledger write. Since the ledger is
// single-writer and only ever called from the event loop's goroutine, a
// Snapshot is just a defensive copy taken synchronously before risk
// evaluation runs, not a concurrency primitive.
type Snapshot struct {
	balances  map[AssetKey]Balance
	positions map[PositionKey]Position
	pnl       map[PositionKey]quant.Notional
}

func (s Snapshot) Balance(key AssetKey) Balance {
	return s.balances[key]
}

func (s Snapshot) Position(key PositionKey) Position {
	return s.positions[key]
}

func (s Snapshot) RealizedPnL(key PositionKey) quant.Notional {
	return s.pnl[key]
}

// Snapshot takes an immutable copy of the ledger's current state.
func (l *Ledger) Snapshot() Snapshot {
	balances := make(map[AssetKey]Balance, len(l.balances))
	for k, v := range l.balances {
		balances[k] = v
	}

	positions := make(map[PositionKey]Position, len(l.positions))
	for k, v := range l.positions {
		positions[k] = v
	}

	pnl := make(map[PositionKey]quant.Notional, len(l.realizedPnL))
	for k, v := range l.realizedPnL {
		pnl[k] = v
	}

	return Snapshot{balances: balances, positions: positions, pnl: pnl}
}
