// Package format turns raw backend values into display strings and back.
package format

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	addressHead  = 6
	addressTail  = 4
	timestampFmt = "2006-01-02 15:04:05"
)

// DefaultExplorerURL links a wallet to its Hyperliquid explorer page.
const DefaultExplorerURL = "https://hypurrscan.io/address/{wallet}"

var printer = message.NewPrinter(language.English)

// Decimal renders v with a fixed number of places and thousands separators.
func Decimal(v float64, places int) string {
	if places < 0 {
		places = 0
	}
	if v == 0 {
		v = 0 // drop negative zero
	}
	return printer.Sprintf("%."+strconv.Itoa(places)+"f", v)
}

// Currency renders v as dollars: $1,234.56 or -$1,234.56.
func Currency(v float64) string {
	if v < 0 {
		return "-$" + Decimal(math.Abs(v), 2)
	}
	return "$" + Decimal(v, 2)
}

// SignedCurrency always carries a sign: +$10.00 for v >= 0, -$5.00 otherwise.
func SignedCurrency(v float64) string {
	if v >= 0 {
		return "+" + Currency(v)
	}
	return Currency(v)
}

// ParseDisplayNumber keeps only digits, signs and the decimal point before parsing,
// so "$1,234.56", "-$12.00" and "+5.00" all come back as numbers. Anything that
// still fails to parse yields 0.
func ParseDisplayNumber(s string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == '-' || r == '+' || r == '.' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

// TruncateAddress shortens addr to its first 6 and last 4 characters.
// Addresses shorter than 10 characters are returned unchanged.
func TruncateAddress(addr string) string {
	runes := []rune(addr)
	if len(runes) < addressHead+addressTail {
		return addr
	}
	return string(runes[:addressHead]) + "..." + string(runes[len(runes)-addressTail:])
}

// ExplorerURL fills the {wallet} placeholder. The wallet is passed through as is.
func ExplorerURL(template, wallet string) string {
	return strings.ReplaceAll(template, "{wallet}", wallet)
}

// Timestamp renders epoch seconds, epoch milliseconds or RFC3339 input in loc.
// Unrecognised input is returned as sent.
func Timestamp(raw string, loc *time.Location) string {
	t, ok := ParseTimestamp(raw)
	if !ok {
		return raw
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(timestampFmt)
}

// ParseTimestamp recognises the timestamp shapes the backend sends.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		// anything past 1e11 cannot be seconds for dates we care about
		if math.Abs(n) >= 1e11 {
			return time.UnixMilli(int64(n)).UTC(), true
		}
		return time.Unix(int64(n), 0).UTC(), true
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", timestampFmt} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
