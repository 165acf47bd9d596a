// Package derive computes display fields the backend does not send explicitly.
package derive

import "strings"

type Side string

const (
	Long  Side = "Long"
	Short Side = "Short"
)

// closePrefix marks trade types whose PnL is realized ("Close Long", "Close Short").
const closePrefix = "Close"

// SideFromSize reports Long only for strictly positive sizes; zero is Short.
func SideFromSize(signedSize float64) Side {
	if signedSize > 0 {
		return Long
	}
	return Short
}

// ParseSide reads an already-derived side label, ignoring case and padding.
// An unrecognised label reads as Short with ok false.
func ParseSide(s string) (side Side, ok bool) {
	switch {
	case strings.EqualFold(strings.TrimSpace(s), string(Long)):
		return Long, true
	case strings.EqualFold(strings.TrimSpace(s), string(Short)):
		return Short, true
	default:
		return Short, false
	}
}

// SortKey encodes Long above Short.
func (s Side) SortKey() float64 {
	if s == Long {
		return 1
	}
	return 0
}

func (s Side) String() string {
	return string(s)
}

// PnL picks realized PnL for closing trades and unrealized PnL for everything else.
func PnL(tradeType string, realized, unrealized float64) float64 {
	if strings.HasPrefix(tradeType, closePrefix) {
		return realized
	}
	return unrealized
}

type Sign int

const (
	Negative Sign = iota
	Positive
)

// ClassifySign treats zero as positive.
func ClassifySign(v float64) Sign {
	if v >= 0 {
		return Positive
	}
	return Negative
}

// Class is the CSS class used for colouring.
func (s Sign) Class() string {
	if s == Positive {
		return "positive"
	}
	return "negative"
}
