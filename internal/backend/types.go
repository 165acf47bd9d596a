package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/camuig/whale-dashboard/internal/format"
)

// Text holds a value the backend may send as a string, a number or null.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	*t = Text(b)
	return nil
}

func (t Text) String() string {
	return string(t)
}

// Or returns def when the field was missing or empty.
func (t Text) Or(def string) string {
	if strings.TrimSpace(string(t)) == "" {
		return def
	}
	return string(t)
}

// Number holds a numeric value the backend may send as a number, a numeric string or null.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*n = Number(v)
			return nil
		}
		*n = Number(format.ParseDisplayNumber(s))
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Number(v)
	return nil
}

func (n Number) Float() float64 {
	return float64(n)
}

// ErrorField is the error member of a response. Set follows JavaScript
// truthiness on the raw token: any non-empty string is set, including "0"
// and "false", while null, false, 0 and "" are not.
type ErrorField struct {
	Message string
	Set     bool
}

func (e *ErrorField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*e = ErrorField{}
	switch {
	case len(b) == 0, bytes.Equal(b, []byte("null")), bytes.Equal(b, []byte("false")):
		return nil
	case b[0] == '"':
		if err := json.Unmarshal(b, &e.Message); err != nil {
			return err
		}
		e.Set = e.Message != ""
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		var v float64
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		e.Set = v != 0
		e.Message = string(b)
	default:
		// true, objects and arrays
		e.Set = true
		e.Message = string(b)
	}
	return nil
}

func (e ErrorField) MarshalJSON() ([]byte, error) {
	if !e.Set {
		return []byte("null"), nil
	}
	return json.Marshal(e.Message)
}

// Envelope carries the error field every endpoint may set on an otherwise successful response.
type Envelope struct {
	Error ErrorField `json:"error"`
}

func (e Envelope) ErrorMessage() string {
	if !e.Error.Set {
		return ""
	}
	return e.Error.Message
}

// /analyze

type PositionsSummary struct {
	TotalWallets    Text `json:"total_wallets"`
	ActivePositions Text `json:"active_positions"`
	TotalLongValue  Text `json:"total_long_value"`
	TotalShortValue Text `json:"total_short_value"`
	TotalPnL        Text `json:"total_pnl"`
}

// Position fields other than Wallet and Side arrive pre-formatted ("$1,234.56").
type Position struct {
	Wallet        string `json:"wallet"`
	Side          Text   `json:"side"`
	Size          Text   `json:"size"`
	EntryPrice    Text   `json:"entry_price"`
	PositionValue Text   `json:"position_value"`
	UnrealizedPnL Text   `json:"unrealized_pnl"`
}

type AnalyzeResponse struct {
	Envelope
	Token     string           `json:"token,omitempty"`
	Summary   PositionsSummary `json:"summary"`
	Positions []Position       `json:"positions"`
}

// /whale_trades

type TradesSummary struct {
	TotalTrades      Number `json:"total_trades"`
	TotalVolume      Number `json:"total_volume"`
	AvgTradeSize     Number `json:"avg_trade_size"`
	MostTradedAsset  Text   `json:"most_traded_asset"`
	MostTradedVolume Number `json:"most_traded_volume"`
}

// Trade numbers are raw; Size is signed and its sign encodes the side.
type Trade struct {
	Timestamp     Text   `json:"timestamp"`
	Asset         string `json:"asset"`
	Size          Number `json:"size"`
	Price         Number `json:"price"`
	Value         Number `json:"value"`
	Type          string `json:"type"`
	RealizedPnL   Number `json:"realized_pnl"`
	UnrealizedPnL Number `json:"unrealized_pnl"`
}

type WhaleTradesResponse struct {
	Envelope
	Summary TradesSummary `json:"summary"`
	Trades  []Trade       `json:"trades"`
}

// /recent_positions

type RecentSummary struct {
	TotalNewLong     Number `json:"total_new_long"`
	TotalNewShort    Number `json:"total_new_short"`
	TotalClosedLong  Number `json:"total_closed_long"`
	TotalClosedShort Number `json:"total_closed_short"`
}

type AssetAggregate struct {
	Asset       string `json:"asset"`
	Value       Number `json:"value"`
	Size        Number `json:"size"`
	NewCount    Number `json:"new_count"`
	ClosedCount Number `json:"closed_count"`
	WhaleCount  Number `json:"whale_count"`
}

type RecentPositionsResponse struct {
	Envelope
	Summary        RecentSummary    `json:"summary"`
	LongPositions  []AssetAggregate `json:"long_positions"`
	ShortPositions []AssetAggregate `json:"short_positions"`
}
