// Package risk implements the synchronous risk gate (C6): a pluggable,
// ordered rule list evaluated against a candidate order and a ledger
// snapshot. The first violated rule stops evaluation (spec.md 4.3: "On
// the first rule violation, evaluation stops"). It is grounded on the
// teacher's internal/risk/engine.go Evaluate method, generalized from a
// fixed sequence of inline checks into an ordered slice of Rule values so
// the rule set is configuration-driven rather than hard-coded.
package risk

import (
	"hftcore/internal/core"
	"hftcore/internal/ledger"
	"hftcore/internal/quant"
)

// Reason enumerates why a candidate order was denied.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonKillSwitch
	ReasonMaxOrderSize
	ReasonMaxOrderValue
	ReasonMaxPosition
	ReasonMinBalance
	ReasonDailyLoss
	ReasonRateOfChange
)

func (r Reason) String() string {
	switch r {
	case ReasonKillSwitch:
		return "kill_switch"
	case ReasonMaxOrderSize:
		return "max_order_size"
	case ReasonMaxOrderValue:
		return "max_order_value"
	case ReasonMaxPosition:
		return "max_position"
	case ReasonMinBalance:
		return "min_balance"
	case ReasonDailyLoss:
		return "daily_loss"
	case ReasonRateOfChange:
		return "rate_of_change"
	default:
		return "none"
	}
}

// Candidate is the order under risk evaluation, plus the context a rule
// needs that is not already in the ledger snapshot (a reference price for
// market orders and the fat-finger check).
type Candidate struct {
	Order          core.NewOrder
	BaseAsset      string
	QuoteAsset     string
	ReferencePrice quant.Price
	Now            quant.Timestamp
}

// Verdict is a rule's outcome: Ok, or a Violation carrying Reason.
type Verdict struct {
	Violated bool
	Reason   Reason
}

func ok() Verdict { return Verdict{} }

func violation(reason Reason) Verdict {
	return Verdict{Violated: true, Reason: reason}
}

// Rule is one pluggable check in the ordered list.
type Rule interface {
	Evaluate(c Candidate, snap ledger.Snapshot) Verdict
}

// RuleFunc adapts a plain function to Rule.
type RuleFunc func(c Candidate, snap ledger.Snapshot) Verdict

func (f RuleFunc) Evaluate(c Candidate, snap ledger.Snapshot) Verdict {
	return f(c, snap)
}
