// Package sorting re-orders already rendered tables from their header clicks.
//
// The engine only ever sees the rows currently rendered. It keeps no copy of
// render order, so a fresh render is the only way back to it. By default
// ties are left to sort.Slice and may move between clicks; WithStableTieBreak
// keeps tied rows in render order instead.
package sorting

import (
	"errors"
	"fmt"
	"sort"

	"github.com/camuig/whale-dashboard/internal/render"
)

var ErrUnknownColumn = errors.New("unknown column")

type Engine struct {
	stable bool
}

type Option func(*Engine)

// WithStableTieBreak breaks ties on Row.Index, the order the rows were rendered in.
func WithStableTieBreak() Option {
	return func(e *Engine) {
		e.stable = true
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Next is the header state machine: unsorted and descending go to ascending,
// ascending goes to descending. There is no way back to unsorted.
func Next(d render.Direction) render.Direction {
	if d == render.Ascending {
		return render.Descending
	}
	return render.Ascending
}

// Toggle handles one click on column's header: it resets the other headers,
// flips this one and re-orders t.Rows in place.
func (e *Engine) Toggle(t *render.Table, column string) (render.Direction, error) {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return render.Unsorted, fmt.Errorf("%w %q in table %s", ErrUnknownColumn, column, t.ID)
	}

	dir := Next(t.Columns[idx].Direction)
	for i := range t.Columns {
		t.Columns[i].Direction = render.Unsorted
	}
	t.Columns[idx].Direction = dir

	e.apply(t, idx, t.Columns[idx].Kind, dir)
	return dir, nil
}

func (e *Engine) apply(t *render.Table, idx int, kind render.Kind, dir render.Direction) {
	rows := t.Rows
	cmp := comparator(kind)

	less := func(i, j int) bool {
		a, b := rows[i].Cells[idx], rows[j].Cells[idx]
		c := cmp(a, b)
		if dir == render.Descending {
			c = -c
		}
		if c == 0 && e.stable {
			return rows[i].Index < rows[j].Index
		}
		return c < 0
	}

	if e.stable {
		sort.SliceStable(rows, less)
		return
	}
	sort.Slice(rows, less)
}

// comparator returns a three-way compare on the cell's raw key.
func comparator(kind render.Kind) func(a, b render.Cell) int {
	switch kind {
	case render.KindNumeric, render.KindSide:
		return func(a, b render.Cell) int {
			switch {
			case a.Num < b.Num:
				return -1
			case a.Num > b.Num:
				return 1
			}
			return 0
		}
	default:
		return func(a, b render.Cell) int {
			switch {
			case a.Raw < b.Raw:
				return -1
			case a.Raw > b.Raw:
				return 1
			}
			return 0
		}
	}
}
