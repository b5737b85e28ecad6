package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"hftcore/internal/schema"
)

// PositionEntry is one symbol's recorded position in a Snapshot.
type PositionEntry struct {
	SymbolID uint32          `json:"symbolId"`
	Qty      schema.Quantity `json:"qty"`
}

// Snapshot is a point-in-time dump of every tracked position plus the WAL
// offset it corresponds to, so recovery knows where to resume replay.
type Snapshot struct {
	Timestamp   int64           `json:"timestamp"`
	LastSeq     uint64          `json:"lastSeq"`
	LastEventTs int64           `json:"lastEventTs"`
	Positions   []PositionEntry `json:"positions"`
}

// Snapshot returns a Snapshot of the reducer's current positions with no
// WAL offset recorded (a standalone dump, not a recovery checkpoint).
func (r *PositionReducer) Snapshot() Snapshot {
	return r.SnapshotWithMeta(0, 0)
}

// SnapshotWithMeta returns a Snapshot tagged with the WAL sequence/event
// timestamp replay had reached, used as a recovery checkpoint.
func (r *PositionReducer) SnapshotWithMeta(lastSeq uint64, lastEventTs int64) Snapshot {
	ids := make([]uint32, 0, len(r.positions))
	for id := range r.positions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	entries := make([]PositionEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, PositionEntry{SymbolID: id, Qty: r.positions[id]})
	}

	return Snapshot{
		Timestamp:   time.Now().UTC().UnixNano(),
		LastSeq:     lastSeq,
		LastEventTs: lastEventTs,
		Positions:   entries,
	}
}

// WriteSnapshot writes snapshot as indented JSON to path, creating parent
// directories as needed.
func WriteSnapshot(path string, snapshot Snapshot) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSnapshot reads and parses a snapshot written by WriteSnapshot.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, err
	}
	return snapshot, nil
}

// CompareSnapshots verifies actual matches expected position-for-position,
// used after a replay to confirm recovered state matches what was
// recorded.
func CompareSnapshots(expected, actual Snapshot) error {
	if len(expected.Positions) != len(actual.Positions) {
		return fmt.Errorf("position count mismatch: expected %d, got %d", len(expected.Positions), len(actual.Positions))
	}
	for i, exp := range expected.Positions {
		act := actual.Positions[i]
		if exp.SymbolID != act.SymbolID {
			return fmt.Errorf("symbol mismatch at index %d: expected %d, got %d", i, exp.SymbolID, act.SymbolID)
		}
		if exp.Qty != act.Qty {
			return fmt.Errorf("qty mismatch for symbol %d: expected %d, got %d", exp.SymbolID, exp.Qty, act.Qty)
		}
	}
	return nil
}
