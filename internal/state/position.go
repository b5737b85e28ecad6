// Package state rebuilds a position snapshot from the WAL: a flat
// symbol-keyed reducer over fill events, used by cmd/tools/paper and
// cmd/trader's legacy record path to verify replayed state against a
// recorded snapshot (spec.md 6 "Persistence (optional, out of core)").
// It is grounded on the teacher's internal/state/position.go, kept at
// the schema/wire layer (schema.Quantity) since it consumes recorder
// output directly rather than the live domain loop's quant types.
package state

import "hftcore/internal/schema"

// PositionReducer accumulates a signed per-symbol quantity from a stream
// of fills, replayed in event order.
type PositionReducer struct {
	positions map[uint32]schema.Quantity
}

// NewPositionReducer returns a reducer with no tracked symbols.
func NewPositionReducer() *PositionReducer {
	return &PositionReducer{positions: make(map[uint32]schema.Quantity)}
}

// ApplyFill folds one fill into the symbol's running position and
// returns the updated value.
func (r *PositionReducer) ApplyFill(fill schema.Fill) schema.Quantity {
	current := r.positions[fill.SymbolID]
	var next schema.Quantity
	switch fill.Side {
	case schema.OrderSideBuy:
		next = schema.Quantity(int64(current) + int64(fill.Qty))
	case schema.OrderSideSell:
		next = schema.Quantity(int64(current) - int64(fill.Qty))
	default:
		next = current
	}
	r.positions[fill.SymbolID] = next
	return next
}

// ApplySnapshot replaces the tracked positions wholesale from a recovered
// snapshot, used to seed a reducer before replaying the WAL tail.
func (r *PositionReducer) ApplySnapshot(snapshot Snapshot) {
	r.positions = make(map[uint32]schema.Quantity, len(snapshot.Positions))
	for _, entry := range snapshot.Positions {
		r.positions[entry.SymbolID] = entry.Qty
	}
}

// Position returns the current tracked quantity for symbolID.
func (r *PositionReducer) Position(symbolID uint32) schema.Quantity {
	return r.positions[symbolID]
}

// Count returns the number of distinct symbols tracked.
func (r *PositionReducer) Count() int {
	return len(r.positions)
}
