package oms

import (
	"testing"

	"hftcore/internal/core"
	"hftcore/internal/quant"
)

func TestSubmitAckApplyReport(t *testing.T) {
	m := New()
	order := core.NewOrder{Symbol: "BTCUSDT", Venue: 1, Side: core.Buy, Size: 1, ClientOrderID: 1}
	m.Submit(order, 0, false, 1000)

	if _, err := m.OnAck(1, 42); err != nil {
		t.Fatalf("ack: %v", err)
	}

	rec, err := m.ApplyExecutionReport(core.ExecutionReport{
		OrderID: 42, HasOrderID: true, ClientOrderID: 1,
		Status: core.StatusPartiallyFilled, Filled: 3, Remaining: 7,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if rec.Status != core.StatusPartiallyFilled || rec.Filled != 3 {
		t.Fatalf("got %+v", rec)
	}
}

func TestIdempotentDuplicateReportIsNoOp(t *testing.T) {
	// Property 5: applying the same execution report twice leaves the
	// OMS unchanged relative to applying it once.
	m := New()
	order := core.NewOrder{Symbol: "BTCUSDT", Venue: 1, Side: core.Buy, Size: 1, ClientOrderID: 1}
	m.Submit(order, 0, false, 1000)
	m.OnAck(1, 42)

	report := core.ExecutionReport{
		OrderID: 42, HasOrderID: true, ClientOrderID: 1,
		Status: core.StatusPartiallyFilled, Filled: 3, Remaining: 7,
	}

	if _, err := m.ApplyExecutionReport(report); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	rec, err := m.ApplyExecutionReport(report)
	if err != nil {
		t.Fatalf("duplicate apply: %v", err)
	}
	if rec.Filled != 3 || rec.Status != core.StatusPartiallyFilled {
		t.Fatalf("duplicate report mutated state: %+v", rec)
	}
}

func TestSmallerFilledSizeDiscarded(t *testing.T) {
	m := New()
	order := core.NewOrder{Symbol: "BTCUSDT", Venue: 1, Side: core.Buy, Size: 1, ClientOrderID: 1}
	m.Submit(order, 0, false, 1000)
	m.OnAck(1, 42)

	m.ApplyExecutionReport(core.ExecutionReport{
		OrderID: 42, HasOrderID: true, ClientOrderID: 1,
		Status: core.StatusPartiallyFilled, Filled: 5,
	})

	rec, err := m.ApplyExecutionReport(core.ExecutionReport{
		OrderID: 42, HasOrderID: true, ClientOrderID: 1,
		Status: core.StatusPartiallyFilled, Filled: 2,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if rec.Filled != 5 {
		t.Fatalf("expected filled to stay at 5, got %d", rec.Filled)
	}
}

func TestPartialFillThenCancel(t *testing.T) {
	// E4: partial fill (0.3/0.7) then cancel -> final state Cancelled
	// with filled=0.3.
	m := New()
	order := core.NewOrder{Symbol: "BTCUSDT", Venue: 1, Side: core.Buy, Size: quant.Size(1_00000000), ClientOrderID: 1}
	m.Submit(order, 7, true, 1000)
	m.OnAck(1, 42)

	m.ApplyExecutionReport(core.ExecutionReport{
		OrderID: 42, HasOrderID: true, ClientOrderID: 1,
		Status: core.StatusPartiallyFilled, Filled: 30000000, Remaining: 70000000,
	})

	rec, err := m.ApplyExecutionReport(core.ExecutionReport{
		OrderID: 42, HasOrderID: true, ClientOrderID: 1,
		Status: core.StatusCancelled, Filled: 30000000, Remaining: 70000000,
	})
	if err != nil {
		t.Fatalf("apply cancel: %v", err)
	}
	if rec.Status != core.StatusCancelled || rec.Filled != 30000000 {
		t.Fatalf("got %+v", rec)
	}
}

func TestInvalidTransitionFromTerminalRejected(t *testing.T) {
	m := New()
	order := core.NewOrder{Symbol: "BTCUSDT", Venue: 1, Side: core.Buy, Size: 1, ClientOrderID: 1}
	m.Submit(order, 0, false, 1000)
	m.OnAck(1, 42)

	m.ApplyExecutionReport(core.ExecutionReport{
		OrderID: 42, HasOrderID: true, ClientOrderID: 1,
		Status: core.StatusFilled, Filled: 1,
	})

	_, err := m.ApplyExecutionReport(core.ExecutionReport{
		OrderID: 42, HasOrderID: true, ClientOrderID: 1,
		Status: core.StatusPartiallyFilled, Filled: 1,
	})
	if err != ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCancelUnknownOrderNotFound(t *testing.T) {
	m := New()
	if _, err := m.Cancel(999); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
