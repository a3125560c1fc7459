package domain

// Side represents the direction of a simulated order.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

const (
	sideStringBuy  = "buy"
	sideStringSell = "sell"
)

// String returns the string representation of the side.
func (s Side) String() string {
	switch s {
	case SideBuy:
		return sideStringBuy
	case SideSell:
		return sideStringSell
	default:
		return "unknown"
	}
}

// ParseSide converts a string into a Side.
func ParseSide(s string) (Side, bool) {
	switch s {
	case sideStringBuy, "BUY":
		return SideBuy, true
	case sideStringSell, "SELL":
		return SideSell, true
	}
	return 0, false
}
