package view

import (
	"context"
	"fmt"

	"github.com/camuig/whale-dashboard/internal/logger"
	"github.com/camuig/whale-dashboard/internal/render"
	"github.com/camuig/whale-dashboard/internal/sorting"
)

// Dashboard is one operator's set of views. Views share nothing but the sort engine,
// which is stateless.
type Dashboard struct {
	order       []Name
	controllers map[Name]*Controller
	sorter      *sorting.Engine
}

func NewDashboard(bindings []Binding, sorter *sorting.Engine, log *logger.Logger, history Recorder) *Dashboard {
	if sorter == nil {
		sorter = sorting.NewEngine()
	}
	d := &Dashboard{
		controllers: make(map[Name]*Controller, len(bindings)),
		sorter:      sorter,
	}
	for _, binding := range bindings {
		d.order = append(d.order, binding.Name)
		d.controllers[binding.Name] = NewController(binding, log, history)
	}
	return d
}

func (d *Dashboard) Controller(name Name) (*Controller, error) {
	c, ok := d.controllers[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownView, name)
	}
	return c, nil
}

// Show marks name as visible, firing its one-time refresh if it has one.
func (d *Dashboard) Show(ctx context.Context, name Name) (ViewModel, error) {
	c, err := d.Controller(name)
	if err != nil {
		return ViewModel{}, err
	}
	c.showOnce(ctx)
	return c.Snapshot(), nil
}

func (d *Dashboard) Start(ctx context.Context, name Name, input string) (ViewModel, error) {
	c, err := d.Controller(name)
	if err != nil {
		return ViewModel{}, err
	}
	return c.Start(ctx, input), nil
}

func (d *Dashboard) Refresh(ctx context.Context, name Name, input string) (ViewModel, error) {
	c, err := d.Controller(name)
	if err != nil {
		return ViewModel{}, err
	}
	return c.Refresh(ctx, input), nil
}

func (d *Dashboard) Snapshot(name Name) (ViewModel, error) {
	c, err := d.Controller(name)
	if err != nil {
		return ViewModel{}, err
	}
	return c.Snapshot(), nil
}

// Snapshots returns every view in tab order.
func (d *Dashboard) Snapshots() []ViewModel {
	out := make([]ViewModel, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.controllers[name].Snapshot())
	}
	return out
}

func (d *Dashboard) Sort(name Name, tableID, column string) (*render.Table, render.Direction, error) {
	c, err := d.Controller(name)
	if err != nil {
		return nil, render.Unsorted, err
	}
	return c.Sort(d.sorter, tableID, column)
}

// Wait blocks until all in-flight requests of all views are done.
func (d *Dashboard) Wait() {
	for _, c := range d.controllers {
		c.Wait()
	}
}
