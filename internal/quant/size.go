package quant

// Size is a scaled-integer exact-decimal order/position size. Positions
// carry a signed Size; order sizes are conventionally non-negative.
type Size int64

// ParseSize converts an author-facing decimal string into a Size scaled by
// scale fractional digits.
func ParseSize(s string, scale int) (Size, error) {
	raw, err := parseScaledInt(s, scale)
	return Size(raw), err
}

// AppendString renders the size as a fixed-point decimal string at the
// given scale, appending to buf.
func (s Size) AppendString(scale int, buf []byte) []byte {
	return appendScaledInt(buf, int64(s), scale)
}

// Add computes Size + Size -> Size.
func (s Size) Add(other Size) Size { return s + other }

// Sub computes Size - Size -> Size.
func (s Size) Sub(other Size) Size { return s - other }

// Neg negates a signed size, used to flip a sell quantity into the signed
// position delta convention.
func (s Size) Neg() Size { return -s }

func (s Size) Abs() Size {
	if s < 0 {
		return -s
	}
	return s
}

func (s Size) IsZero() bool { return s == 0 }

func (s Size) GreaterThan(other Size) bool { return s > other }
func (s Size) LessThan(other Size) bool    { return s < other }

// Ratio computes a dimensionless Size/Size ratio, used for the
// position/max_position inventory ratio.
func (s Size) Ratio(other Size) Ratio {
	if other == 0 {
		return Ratio(0)
	}
	return Ratio(float64(s) / float64(other))
}
