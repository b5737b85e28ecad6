package quant

// Notional is a scaled-integer exact-decimal monetary amount, the result of
// Price*Size or a balance/P&L figure.
type Notional int64

// ParseNotional converts an author-facing decimal string into a Notional
// scaled by scale fractional digits.
func ParseNotional(s string, scale int) (Notional, error) {
	raw, err := parseScaledInt(s, scale)
	return Notional(raw), err
}

func (n Notional) AppendString(scale int, buf []byte) []byte {
	return appendScaledInt(buf, int64(n), scale)
}

func (n Notional) Add(other Notional) Notional { return n + other }
func (n Notional) Sub(other Notional) Notional { return n - other }
func (n Notional) Neg() Notional               { return -n }

func (n Notional) Abs() Notional {
	if n < 0 {
		return -n
	}
	return n
}

func (n Notional) IsZero() bool { return n == 0 }

func (n Notional) GreaterThan(other Notional) bool { return n > other }
func (n Notional) LessThan(other Notional) bool    { return n < other }

// Fee is a scaled-integer exact-decimal venue fee charged on a fill.
type Fee int64

func ParseFee(s string, scale int) (Fee, error) {
	raw, err := parseScaledInt(s, scale)
	return Fee(raw), err
}

func (f Fee) AppendString(scale int, buf []byte) []byte {
	return appendScaledInt(buf, int64(f), scale)
}

func (f Fee) Add(other Fee) Fee { return f + other }

// AsNotional treats a fee as a monetary amount for balance bookkeeping.
func (f Fee) AsNotional() Notional { return Notional(f) }
