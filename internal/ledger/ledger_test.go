package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"hftcore/internal/core"
	"hftcore/internal/quant"
)

func TestReserveAndReleaseRestoresFree(t *testing.T) {
	l := New()
	quote := AssetKey{Asset: "USDT", Venue: 1}
	l.SetBalance(quote, 1_000)

	id, err := l.Reserve(quote, 300)
	require.NoError(t, err)

	bal := l.Balance(quote)
	require.Equalf(t, quant.Notional(700), bal.Free, "after reserve: got %+v", bal)
	require.Equalf(t, quant.Notional(300), bal.Used, "after reserve: got %+v", bal)

	require.NoError(t, l.Release(id))

	bal = l.Balance(quote)
	require.Equalf(t, quant.Notional(1_000), bal.Free, "after release: got %+v", bal)
	require.Equalf(t, quant.Notional(0), bal.Used, "after release: got %+v", bal)
}

func TestReservationTotalMatchesUsed(t *testing.T) {
	l := New()
	quote := AssetKey{Asset: "USDT", Venue: 1}
	l.SetBalance(quote, 1_000)

	_, err := l.Reserve(quote, 200)
	require.NoError(t, err)
	_, err = l.Reserve(quote, 150)
	require.NoError(t, err)

	bal := l.Balance(quote)
	require.Equal(t, bal.Used, l.ReservationTotal(quote))
}

func TestApplyFillBuyUpdatesBalancesAndPosition(t *testing.T) {
	l := New()
	quote := AssetKey{Asset: "USDT", Venue: 1}
	base := AssetKey{Asset: "BTC", Venue: 1}
	l.SetBalance(quote, 1_000)

	id, err := l.Reserve(quote, 100)
	require.NoError(t, err)

	err = l.ApplyFill(Fill{
		Symbol:         "BTCUSDT",
		Venue:          1,
		BaseAsset:      "BTC",
		QuoteAsset:     "USDT",
		Side:           core.Buy,
		Size:           1,
		Price:          100,
		Reservation:    id,
		HasReservation: true,
	})
	require.NoError(t, err)

	baseBal := l.Balance(base)
	require.Equalf(t, quant.Notional(1), baseBal.Free, "base balance: got %+v", baseBal)

	pos := l.Position(PositionKey{Symbol: "BTCUSDT", Venue: 1})
	require.Equalf(t, quant.Size(1), pos.Size, "position: got %+v", pos)
	require.Equalf(t, quant.Price(100), pos.AveragePrice, "position: got %+v", pos)

	quoteBal := l.Balance(quote)
	require.Equalf(t, quant.Notional(900), quoteBal.Free, "quote balance after consuming reservation: got %+v", quoteBal)
	require.Equalf(t, quant.Notional(0), quoteBal.Used, "quote balance after consuming reservation: got %+v", quoteBal)
}

func TestApplyFillPartialThenCancelReleasesRemainder(t *testing.T) {
	// E4: live limit Buy 10 units @ price 10 (1.0 BTC in tenths); partial
	// fill of 3 units, then cancel releases the reservation on the
	// remaining 7 units.
	l := New()
	quote := AssetKey{Asset: "USDT", Venue: 1}
	base := AssetKey{Asset: "BTC", Venue: 1}
	l.SetBalance(quote, 1_000)

	id, err := l.Reserve(quote, 100) // reserved against 10 units @ 10
	require.NoError(t, err)

	// Partial fill of 3 units consumes only part of the reservation; the
	// same reservation handle must still be live afterwards so a later
	// fill or cancel against it doesn't hit ErrReservationNotFound.
	require.NoError(t, l.ApplyFill(Fill{
		Symbol: "BTCUSDT", Venue: 1, BaseAsset: "BTC", QuoteAsset: "USDT",
		Side: core.Buy, Size: 3, Price: 10,
		Reservation: id, HasReservation: true,
	}))

	bal := l.Balance(quote)
	require.Equalf(t, quant.Notional(70), bal.Used, "expected reservation shrunk to remaining 7 units' worth (70), got used=%d", bal.Used)

	baseBal := l.Balance(base)
	require.Equalf(t, quant.Notional(3), baseBal.Free, "base balance after partial fill: got %+v", baseBal)

	// A second partial fill against the same reservation must still
	// succeed rather than hitting ErrReservationNotFound.
	require.NoError(t, l.ApplyFill(Fill{
		Symbol: "BTCUSDT", Venue: 1, BaseAsset: "BTC", QuoteAsset: "USDT",
		Side: core.Buy, Size: 2, Price: 10,
		Reservation: id, HasReservation: true,
	}))

	bal = l.Balance(quote)
	require.Equalf(t, quant.Notional(50), bal.Used, "expected reservation shrunk to remaining 5 units' worth (50), got used=%d", bal.Used)

	// Order manager reaches a terminal state (Cancelled) and releases
	// the remainder still held under the same reservation.
	require.NoError(t, l.Release(id))

	bal = l.Balance(quote)
	require.Equalf(t, quant.Notional(0), bal.Used, "expected reservation fully released, got used=%d", bal.Used)
}

func TestApplyFillOverflowRejected(t *testing.T) {
	l := New()
	err := l.ApplyFill(Fill{
		Symbol:     "BTCUSDT",
		Venue:      1,
		BaseAsset:  "BTC",
		QuoteAsset: "USDT",
		Side:       core.Buy,
		Size:       quant.Size(1 << 62),
		Price:      quant.Price(1 << 62),
	})
	require.ErrorIs(t, err, ErrInvariant)
}
