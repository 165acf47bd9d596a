package render

import (
	"github.com/camuig/whale-dashboard/internal/backend"
	"github.com/camuig/whale-dashboard/internal/derive"
	"github.com/camuig/whale-dashboard/internal/format"
)

const (
	defaultCount = "0"
	defaultMoney = "$0.00"
	defaultName  = "-"
)

type Slot struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
	Class string `json:"class,omitempty"`
}

type Panel struct {
	Title string `json:"title"`
	Slots []Slot `json:"slots"`
}

// Slot returns the slot named key, or the zero Slot.
func (p Panel) Slot(key string) Slot {
	for _, s := range p.Slots {
		if s.Key == key {
			return s
		}
	}
	return Slot{}
}

func (p Panel) Clone() Panel {
	return Panel{Title: p.Title, Slots: append([]Slot(nil), p.Slots...)}
}

// PositionsSummary colours only the total PnL.
func PositionsSummary(s backend.PositionsSummary) Panel {
	pnl := s.TotalPnL.Or(defaultMoney)
	return Panel{
		Title: "Position Summary",
		Slots: []Slot{
			{Key: "total_wallets", Label: "Whale Wallets", Value: s.TotalWallets.Or(defaultCount)},
			{Key: "active_positions", Label: "Active Positions", Value: s.ActivePositions.Or(defaultCount)},
			{Key: "total_long_value", Label: "Total Long Value", Value: s.TotalLongValue.Or(defaultMoney)},
			{Key: "total_short_value", Label: "Total Short Value", Value: s.TotalShortValue.Or(defaultMoney)},
			{
				Key:   "total_pnl",
				Label: "Total PnL",
				Value: pnl,
				Class: derive.ClassifySign(format.ParseDisplayNumber(pnl)).Class(),
			},
		},
	}
}

func TradesSummary(s backend.TradesSummary) Panel {
	return Panel{
		Title: "Trade Summary",
		Slots: []Slot{
			{Key: "total_trades", Label: "Total Trades", Value: format.Decimal(s.TotalTrades.Float(), 0)},
			{Key: "total_volume", Label: "Total Volume", Value: format.Currency(s.TotalVolume.Float())},
			{Key: "avg_trade_size", Label: "Avg Trade Size", Value: format.Currency(s.AvgTradeSize.Float())},
			{Key: "most_traded_asset", Label: "Most Traded Asset", Value: s.MostTradedAsset.Or(defaultName)},
			{Key: "most_traded_volume", Label: "Most Traded Volume", Value: format.Currency(s.MostTradedVolume.Float())},
		},
	}
}

// RecentSummary styles by position: long slots positive, short slots negative.
func RecentSummary(s backend.RecentSummary) Panel {
	pos := derive.Positive.Class()
	neg := derive.Negative.Class()
	return Panel{
		Title: "Last 24h",
		Slots: []Slot{
			{Key: "total_new_long", Label: "New Longs", Value: format.Decimal(s.TotalNewLong.Float(), 0), Class: pos},
			{Key: "total_new_short", Label: "New Shorts", Value: format.Decimal(s.TotalNewShort.Float(), 0), Class: neg},
			{Key: "total_closed_long", Label: "Closed Longs", Value: format.Decimal(s.TotalClosedLong.Float(), 0), Class: pos},
			{Key: "total_closed_short", Label: "Closed Shorts", Value: format.Decimal(s.TotalClosedShort.Float(), 0), Class: neg},
		},
	}
}

// EmptyPanel is what a view shows before its first successful load.
func EmptyPanel(title string) Panel {
	return Panel{Title: title}
}
