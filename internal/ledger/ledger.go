// Package ledger implements the shadow ledger (C5): in-memory balances,
// signed positions, frozen reservations, and realized P&L, mutated only by
// apply_execution_report as spec.md 4.3 requires. It is grounded on the
// teacher's position reducer (internal/state/position.go, which remains
// the WAL-replay reducer) generalized from a bare position map to the full
// balance/position/reservation model the risk gate depends on.
package ledger

import (
	"hftcore/internal/core"
	"hftcore/internal/errors"
	"hftcore/internal/quant"
)

// AssetKey identifies a balance by asset symbol and venue.
type AssetKey struct {
	Asset string
	Venue quant.VenueID
}

// PositionKey identifies a position by symbol and venue.
type PositionKey struct {
	Symbol quant.Symbol
	Venue  quant.VenueID
}

// Balance is (total = free + used), all non-negative.
type Balance struct {
	Total quant.Notional
	Free  quant.Notional
	Used  quant.Notional
}

// Position is a signed size plus a size-weighted average entry price.
type Position struct {
	Size         quant.Size
	AveragePrice quant.Price
}

// ReservationID is a locally generated handle for a frozen-funds hold.
type ReservationID uint64

// Reservation freezes amount of Free on (Asset, Venue) against a pending
// order, released on cancel/reject or consumed on fill.
type Reservation struct {
	ID     ReservationID
	Asset  AssetKey
	Amount quant.Notional
}

var (
	// ErrInsufficientFree is returned when a reservation would drive Free
	// negative.
	ErrInsufficientFree = errors.New("ledger: insufficient free balance")
	// ErrReservationNotFound is returned releasing/consuming an unknown
	// reservation.
	ErrReservationNotFound = errors.New("ledger: reservation not found")
	// ErrInvariant is returned when a mutation would violate the
	// total=free+used or non-negativity invariant (the "invariant
	// violation" fault class from spec.md 7). internal/loop logs a fill
	// that fails this way and goes on submitting orders; nothing halts
	// order submission.
	ErrInvariant = errors.New("ledger: invariant violated")
)

// Ledger is the single-writer shadow ledger. Only the event loop mutates
// it; the risk gate reads an immutable Snapshot.
type Ledger struct {
	balances     map[AssetKey]Balance
	positions    map[PositionKey]Position
	reservations map[ReservationID]Reservation
	nextResID    ReservationID
	realizedPnL  map[PositionKey]quant.Notional
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		balances:     make(map[AssetKey]Balance),
		positions:    make(map[PositionKey]Position),
		reservations: make(map[ReservationID]Reservation),
		realizedPnL:  make(map[PositionKey]quant.Notional),
	}
}

// SetBalance seeds or overwrites a balance, used at startup to reconcile
// against venue account queries (spec.md 6 "Account queries").
func (l *Ledger) SetBalance(key AssetKey, total quant.Notional) {
	l.balances[key] = Balance{Total: total, Free: total, Used: 0}
}

// Balance returns the current balance for key.
func (l *Ledger) Balance(key AssetKey) Balance {
	return l.balances[key]
}

// Position returns the current position for key.
func (l *Ledger) Position(key PositionKey) Position {
	return l.positions[key]
}

// RealizedPnL returns the cumulative realized P&L tracked for key, used by
// the DailyLoss risk rule.
func (l *Ledger) RealizedPnL(key PositionKey) quant.Notional {
	return l.realizedPnL[key]
}

// Reserve freezes amount of Free on asset, converting it to Used, and
// returns a handle. The risk gate calls this atomically with its approval
// decision (spec.md 4.3: "the gate atomically creates the ledger
// reservation ... alongside approval").
func (l *Ledger) Reserve(asset AssetKey, amount quant.Notional) (ReservationID, error) {
	bal := l.balances[asset]
	if bal.Free.LessThan(amount) {
		return 0, ErrInsufficientFree
	}

	bal.Free = bal.Free.Sub(amount)
	bal.Used = bal.Used.Add(amount)
	if err := checkBalanceInvariant(bal); err != nil {
		return 0, err
	}
	l.balances[asset] = bal

	l.nextResID++
	id := l.nextResID
	l.reservations[id] = Reservation{ID: id, Asset: asset, Amount: amount}
	return id, nil
}

// Release restores a reservation's amount from Used back to Free, used on
// cancel/reject.
func (l *Ledger) Release(id ReservationID) error {
	res, ok := l.reservations[id]
	if !ok {
		return ErrReservationNotFound
	}
	delete(l.reservations, id)

	bal := l.balances[res.Asset]
	bal.Used = bal.Used.Sub(res.Amount)
	bal.Free = bal.Free.Add(res.Amount)
	if err := checkBalanceInvariant(bal); err != nil {
		return err
	}
	l.balances[res.Asset] = bal
	return nil
}

// ReservationTotal returns the sum of all active reservations on asset,
// which spec.md's property 3 requires to equal the balance's Used amount.
func (l *Ledger) ReservationTotal(asset AssetKey) quant.Notional {
	var total quant.Notional
	for _, r := range l.reservations {
		if r.Asset == asset {
			total = total.Add(r.Amount)
		}
	}
	return total
}

func checkBalanceInvariant(b Balance) error {
	if b.Free < 0 || b.Used < 0 {
		return ErrInvariant
	}
	if b.Free.Add(b.Used) != b.Total {
		return ErrInvariant
	}
	return nil
}

// Fill is a normalized execution-report fill event, carrying enough to
// apply the buy/sell transition rules in spec.md 4.3.
type Fill struct {
	Symbol         quant.Symbol
	Venue          quant.VenueID
	BaseAsset      string
	QuoteAsset     string
	Side           core.Side
	Size           quant.Size
	Price          quant.Price
	Fee            quant.Fee
	Reservation    ReservationID
	HasReservation bool
}

// ApplyFill applies a single execution-report fill: moves quote-asset
// balance, increases/decreases base-asset balance, updates the
// size-weighted average entry price, and consumes the fill's amount from
// any associated reservation (Used and Total shrink). A remainder the
// fill does not consume stays reserved until a later fill uses it up or
// the caller Releases it.
func (l *Ledger) ApplyFill(f Fill) error {
	notional, overflow := f.Price.Mul(f.Size)
	if overflow {
		return ErrInvariant
	}
	cost := notional.Add(f.Fee.AsNotional())
	baseAmount := quant.Notional(f.Size.Abs())

	quoteKey := AssetKey{Asset: f.QuoteAsset, Venue: f.Venue}
	baseKey := AssetKey{Asset: f.BaseAsset, Venue: f.Venue}
	posKey := PositionKey{Symbol: f.Symbol, Venue: f.Venue}

	signedSize := f.Size
	if f.Side == core.Sell {
		signedSize = f.Size.Neg()
	}

	switch f.Side {
	case core.Buy:
		if f.HasReservation {
			if err := l.consumeReservation(f.Reservation, cost); err != nil {
				return err
			}
		} else if err := l.debitFree(quoteKey, cost); err != nil {
			return err
		}
		if err := l.creditFree(baseKey, baseAmount); err != nil {
			return err
		}
	case core.Sell:
		if f.HasReservation {
			if err := l.consumeReservation(f.Reservation, baseAmount); err != nil {
				return err
			}
		} else if err := l.debitFree(baseKey, baseAmount); err != nil {
			return err
		}
		if err := l.creditFree(quoteKey, cost); err != nil {
			return err
		}
	}

	l.applyPosition(posKey, signedSize, f.Price)

	return nil
}

// debitFree removes amount from both Free and Total on key, used when a
// fill consumes funds that were never reserved (e.g. an IOC market order
// submitted without a prior risk-gate reservation).
func (l *Ledger) debitFree(key AssetKey, amount quant.Notional) error {
	bal := l.balances[key]
	bal.Free = bal.Free.Sub(amount)
	bal.Total = bal.Total.Sub(amount)
	if err := checkBalanceInvariant(bal); err != nil {
		return err
	}
	l.balances[key] = bal
	return nil
}

// creditFree adds amount to both Free and Total on key, the proceeds side
// of every fill.
func (l *Ledger) creditFree(key AssetKey, amount quant.Notional) error {
	bal := l.balances[key]
	bal.Free = bal.Free.Add(amount)
	bal.Total = bal.Total.Add(amount)
	if err := checkBalanceInvariant(bal); err != nil {
		return err
	}
	l.balances[key] = bal
	return nil
}

// consumeReservation shrinks a reservation by the notional actually spent
// on one execution report. An order can fill across several reports
// against the same reservation handle; only once the reservation's
// remaining amount is fully consumed (or the caller explicitly Releases
// it) does the reservation disappear and its unconsumed remainder return
// to Free.
func (l *Ledger) consumeReservation(id ReservationID, actual quant.Notional) error {
	res, ok := l.reservations[id]
	if !ok {
		return ErrReservationNotFound
	}

	bal := l.balances[res.Asset]
	bal.Total = bal.Total.Sub(actual)

	remaining := res.Amount.Sub(actual)
	if remaining <= 0 {
		delete(l.reservations, id)
		bal.Used = bal.Used.Sub(res.Amount)
		if excess := actual.Sub(res.Amount); excess > 0 {
			bal.Free = bal.Free.Sub(excess)
		}
	} else {
		bal.Used = bal.Used.Sub(actual)
		res.Amount = remaining
		l.reservations[id] = res
	}

	if err := checkBalanceInvariant(bal); err != nil {
		return err
	}
	l.balances[res.Asset] = bal
	return nil
}

// applyPosition updates the signed position size and recomputes the
// size-weighted average entry price; any fill against the position's sign
// (reducing it or crossing zero) realizes P&L on the closed portion:
// fill price minus average for a long, average minus fill price for a
// short.
func (l *Ledger) applyPosition(key PositionKey, signedSize quant.Size, price quant.Price) {
	pos := l.positions[key]

	closing := !pos.Size.IsZero() && !sameSign(pos.Size, signedSize)
	if closing {
		closedSize := minAbs(pos.Size, signedSize.Neg())
		pnlPerUnit := price.Sub(pos.AveragePrice)
		if pos.Size < 0 {
			pnlPerUnit = pos.AveragePrice.Sub(price)
		}
		realized, _ := pnlPerUnit.Mul(closedSize)
		l.realizedPnL[key] = l.realizedPnL[key].Add(realized)
	}

	newSize := pos.Size.Add(signedSize)

	if pos.Size.IsZero() || sameSign(pos.Size, signedSize) {
		totalAbs := pos.Size.Abs().Add(signedSize.Abs())
		if totalAbs.IsZero() {
			pos.AveragePrice = 0
		} else {
			weighted := weightedAverage(pos.AveragePrice, pos.Size.Abs(), price, signedSize.Abs())
			pos.AveragePrice = weighted
		}
	} else if newSize.Abs() > 0 && sameSign(newSize, signedSize) {
		// position flipped sign: new average price is simply the fill price
		pos.AveragePrice = price
	}

	pos.Size = newSize
	l.positions[key] = pos
}

func sameSign(a, b quant.Size) bool {
	if a.IsZero() || b.IsZero() {
		return true
	}
	return (a > 0) == (b > 0)
}

func minAbs(a, b quant.Size) quant.Size {
	aa, bb := a.Abs(), b.Abs()
	if aa < bb {
		return aa
	}
	return bb
}

func weightedAverage(p1 quant.Price, w1 quant.Size, p2 quant.Price, w2 quant.Size) quant.Price {
	totalW := w1.Add(w2)
	if totalW.IsZero() {
		return 0
	}
	n1, _ := p1.Mul(w1)
	n2, _ := p2.Mul(w2)
	sum := n1.Add(n2)
	return quant.Price(int64(sum) / int64(totalW))
}
