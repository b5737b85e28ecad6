package quant

// Price is a scaled-integer exact-decimal quote price. The scale is a
// property of the symbol's tick size, carried in configuration, not in the
// type. Arithmetic across types is restricted so that Price-Price yields a
// Price, Price/Price yields a Ratio, and Price*Size yields a Notional;
// Price+Size is not an operation this package exposes, so it cannot compile.
type Price int64

// ParsePrice converts an author-facing decimal string into a Price scaled
// by scale fractional digits.
func ParsePrice(s string, scale int) (Price, error) {
	raw, err := parseScaledInt(s, scale)
	return Price(raw), err
}

// AppendString renders the price as a fixed-point decimal string at the
// given scale, appending to buf.
func (p Price) AppendString(scale int, buf []byte) []byte {
	return appendScaledInt(buf, int64(p), scale)
}

// Sub computes Price - Price -> Price.
func (p Price) Sub(other Price) Price { return p - other }

// Add computes Price + Price -> Price.
func (p Price) Add(other Price) Price { return p + other }

// Div computes Price / Price -> a dimensionless Ratio.
func (p Price) Div(other Price) Ratio {
	if other == 0 {
		return Ratio(0)
	}
	return Ratio(float64(p) / float64(other))
}

// Mul computes Price * Size -> Notional, reporting overflow the same way
// the risk gate's MaxOrderValue rule needs to.
func (p Price) Mul(size Size) (Notional, bool) {
	product, overflow := mulOverflow(int64(p), int64(size))
	return Notional(product), overflow
}

func (p Price) IsZero() bool { return p == 0 }

// Mid returns the arithmetic mean of two prices.
func Mid(a, b Price) Price {
	return (a + b) / 2
}

// Ratio is the dimensionless result of dividing two like-dimensioned
// values (e.g. Price/Price). Bps converts it to basis points.
type Ratio float64

// Bps converts the ratio to basis points (1 bps = 1/10,000).
func (r Ratio) Bps() float64 { return float64(r) * 10_000 }

func (r Ratio) Float64() float64 { return float64(r) }
