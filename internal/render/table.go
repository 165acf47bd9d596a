// Package render turns backend payloads into view models for the dashboard
// templates and the JSON API.
package render

import (
	"fmt"
	"math"
	"time"

	"github.com/camuig/whale-dashboard/internal/backend"
	"github.com/camuig/whale-dashboard/internal/derive"
	"github.com/camuig/whale-dashboard/internal/format"
)

// Kind decides how the sort engine compares a column.
type Kind string

const (
	KindText    Kind = "text"
	KindNumeric Kind = "numeric"
	KindSide    Kind = "side"
)

type Direction string

const (
	Unsorted   Direction = ""
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Table ids, stable across renders so header actions can find them.
const (
	TablePositions   = "positions"
	TableTrades      = "trades"
	TableRecentLong  = "recent_long"
	TableRecentShort = "recent_short"
)

type Column struct {
	Key       string    `json:"key"`
	Label     string    `json:"label"`
	Kind      Kind      `json:"kind"`
	Direction Direction `json:"direction,omitempty"`
}

// Cell keeps display text apart from the raw sort key. Raw is read for text
// columns, Num for numeric and side columns.
type Cell struct {
	Text  string  `json:"text"`
	Class string  `json:"class,omitempty"`
	Href  string  `json:"href,omitempty"`
	Title string  `json:"title,omitempty"`
	Raw   string  `json:"raw"`
	Num   float64 `json:"num"`
}

// Row.Index is the row's position in the render that produced it.
type Row struct {
	Index int    `json:"index"`
	Cells []Cell `json:"cells"`
}

type Table struct {
	ID      string   `json:"id"`
	Title   string   `json:"title,omitempty"`
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
	Empty   string   `json:"empty,omitempty"`
}

// ColumnIndex returns -1 when key is not a column of t.
func (t *Table) ColumnIndex(key string) int {
	for i, c := range t.Columns {
		if c.Key == key {
			return i
		}
	}
	return -1
}

func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{
		ID:      t.ID,
		Title:   t.Title,
		Columns: append([]Column(nil), t.Columns...),
		Empty:   t.Empty,
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = Row{Index: r.Index, Cells: append([]Cell(nil), r.Cells...)}
	}
	return out
}

func (t *Table) append(cells ...Cell) {
	t.Rows = append(t.Rows, Row{Index: len(t.Rows), Cells: cells})
}

func textCell(s string) Cell {
	return Cell{Text: s, Raw: s}
}

func numCell(text string, v float64) Cell {
	if math.IsNaN(v) {
		v = 0
	}
	return Cell{Text: text, Raw: text, Num: v}
}

func sideCell(s derive.Side) Cell {
	return Cell{Text: s.String(), Class: sideClass(s), Raw: s.String(), Num: s.SortKey()}
}

func sideClass(s derive.Side) string {
	if s == derive.Long {
		return "long"
	}
	return "short"
}

// PositionsTable renders /analyze positions. Numeric fields arrive formatted,
// so their sort keys are recovered here, once.
func PositionsTable(positions []backend.Position, explorer string) *Table {
	t := &Table{
		ID:    TablePositions,
		Empty: "No whale positions for this token",
		Columns: []Column{
			{Key: "wallet", Label: "Wallet", Kind: KindText},
			{Key: "side", Label: "Side", Kind: KindSide},
			{Key: "size", Label: "Size", Kind: KindNumeric},
			{Key: "entry_price", Label: "Entry Price", Kind: KindNumeric},
			{Key: "position_value", Label: "Position Value", Kind: KindNumeric},
			{Key: "unrealized_pnl", Label: "Unrealized PnL", Kind: KindNumeric},
		},
	}

	for _, p := range positions {
		pnl := format.ParseDisplayNumber(p.UnrealizedPnL.String())
		pnlCell := numCell(p.UnrealizedPnL.String(), pnl)
		pnlCell.Class = derive.ClassifySign(pnl).Class()

		side, ok := derive.ParseSide(p.Side.String())
		sc := sideCell(side)
		if !ok {
			sc.Title = fmt.Sprintf("unrecognised side %q", p.Side.String())
		}

		t.append(
			walletCell(p.Wallet, explorer),
			sc,
			numCell(p.Size.String(), format.ParseDisplayNumber(p.Size.String())),
			numCell(p.EntryPrice.String(), format.ParseDisplayNumber(p.EntryPrice.String())),
			numCell(p.PositionValue.String(), format.ParseDisplayNumber(p.PositionValue.String())),
			pnlCell,
		)
	}
	return t
}

func walletCell(wallet, explorer string) Cell {
	return Cell{
		Text:  format.TruncateAddress(wallet),
		Title: wallet,
		Href:  format.ExplorerURL(explorer, wallet),
		Raw:   wallet,
	}
}

// TradesTable renders /whale_trades. Side and PnL are derived; sizes are shown
// as magnitudes.
func TradesTable(trades []backend.Trade, loc *time.Location) *Table {
	t := &Table{
		ID:    TableTrades,
		Empty: "No trades for this wallet",
		Columns: []Column{
			{Key: "timestamp", Label: "Time", Kind: KindText},
			{Key: "asset", Label: "Asset", Kind: KindText},
			{Key: "side", Label: "Side", Kind: KindSide},
			{Key: "size", Label: "Size", Kind: KindNumeric},
			{Key: "price", Label: "Price", Kind: KindNumeric},
			{Key: "value", Label: "Value", Kind: KindNumeric},
			{Key: "type", Label: "Type", Kind: KindText},
			{Key: "pnl", Label: "PnL", Kind: KindNumeric},
		},
	}

	for _, tr := range trades {
		size := tr.Size.Float()
		magnitude := math.Abs(size)
		pnl := derive.PnL(tr.Type, tr.RealizedPnL.Float(), tr.UnrealizedPnL.Float())

		pnlCell := numCell(format.SignedCurrency(pnl), pnl)
		pnlCell.Class = derive.ClassifySign(pnl).Class()

		t.append(
			timestampCell(tr.Timestamp.String(), loc),
			textCell(tr.Asset),
			sideCell(derive.SideFromSize(size)),
			numCell(format.Decimal(magnitude, 4), magnitude),
			numCell(format.Currency(tr.Price.Float()), tr.Price.Float()),
			numCell(format.Currency(tr.Value.Float()), tr.Value.Float()),
			textCell(tr.Type),
			pnlCell,
		)
	}
	return t
}

// timestampKey is fixed width, so lexical order is chronological.
const timestampKey = "2006-01-02T15:04:05.000000000Z"

func timestampCell(raw string, loc *time.Location) Cell {
	c := Cell{Text: format.Timestamp(raw, loc), Raw: raw}
	if ts, ok := format.ParseTimestamp(raw); ok {
		c.Raw = ts.UTC().Format(timestampKey)
	}
	return c
}

// AggregatesTable renders one side of /recent_positions. Value colouring follows
// the table's side, never the value's sign.
func AggregatesTable(id, title string, aggregates []backend.AssetAggregate, side derive.Side) *Table {
	valueClass := derive.Negative.Class()
	if side == derive.Long {
		valueClass = derive.Positive.Class()
	}

	t := &Table{
		ID:    id,
		Title: title,
		Empty: "No " + sideClass(side) + " activity in the last 24h",
		Columns: []Column{
			{Key: "asset", Label: "Asset", Kind: KindText},
			{Key: "value", Label: "Value", Kind: KindNumeric},
			{Key: "size", Label: "Size", Kind: KindNumeric},
			{Key: "new_count", Label: "New", Kind: KindNumeric},
			{Key: "closed_count", Label: "Closed", Kind: KindNumeric},
			{Key: "whale_count", Label: "Whales", Kind: KindNumeric},
		},
	}

	for _, a := range aggregates {
		value := numCell(format.Currency(a.Value.Float()), a.Value.Float())
		value.Class = valueClass

		t.append(
			textCell(a.Asset),
			value,
			numCell(format.Decimal(a.Size.Float(), 4), a.Size.Float()),
			countCell(a.NewCount),
			countCell(a.ClosedCount),
			countCell(a.WhaleCount),
		)
	}
	return t
}

func countCell(n backend.Number) Cell {
	return numCell(format.Decimal(n.Float(), 0), n.Float())
}
