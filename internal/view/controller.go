// Package view holds one state machine per dashboard tab.
//
// A controller moves idle -> loading -> results|error, and every new trigger
// moves it back to loading. Each trigger takes a sequence number; a response
// is applied only while its number is the latest, so a slow earlier request
// can never overwrite a newer one. Earlier requests are not cancelled.
package view

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/camuig/whale-dashboard/internal/backend"
	"github.com/camuig/whale-dashboard/internal/logger"
	"github.com/camuig/whale-dashboard/internal/metrics"
	"github.com/camuig/whale-dashboard/internal/render"
	"github.com/camuig/whale-dashboard/internal/sorting"
	"github.com/camuig/whale-dashboard/internal/storage"
)

var (
	ErrUnknownView  = errors.New("unknown view")
	ErrUnknownTable = errors.New("unknown table")
	ErrNoResults    = errors.New("view has no results to sort")
)

type Name string

const (
	Positions Name = "positions"
	Trades    Name = "trades"
	Recent    Name = "recent"
)

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateError   State = "error"
	StateResults State = "results"
)

type ErrorKind string

const (
	ErrorNone       ErrorKind = ""
	ErrorValidation ErrorKind = "validation"
	ErrorDomain     ErrorKind = "domain"
	ErrorTransport  ErrorKind = "transport"
)

// ViewModel is everything a template or API client needs to draw one tab.
// Panel visibility derives from State alone.
type ViewModel struct {
	View       Name            `json:"view"`
	Title      string          `json:"title"`
	InputField string          `json:"input_field,omitempty"`
	InputLabel string          `json:"input_label,omitempty"`
	State      State           `json:"state"`
	Input      string          `json:"input,omitempty"`
	ErrorKind  ErrorKind       `json:"error_kind,omitempty"`
	Error      string          `json:"error,omitempty"`
	Summary    render.Panel    `json:"summary"`
	Tables     []*render.Table `json:"tables"`
	Seq        uint64          `json:"seq"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (vm ViewModel) ShowLoading() bool { return vm.State == StateLoading }
func (vm ViewModel) ShowError() bool   { return vm.State == StateError }
func (vm ViewModel) ShowResults() bool { return vm.State == StateResults }

func (vm ViewModel) Table(id string) *render.Table {
	for _, t := range vm.Tables {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (vm ViewModel) clone() ViewModel {
	out := vm
	out.Summary = vm.Summary.Clone()
	out.Tables = make([]*render.Table, len(vm.Tables))
	for i, t := range vm.Tables {
		out.Tables[i] = t.Clone()
	}
	return out
}

// Result is a rendered successful response.
type Result struct {
	Summary render.Panel
	Tables  []*render.Table
}

func (r Result) rows() int {
	n := 0
	for _, t := range r.Tables {
		n += len(t.Rows)
	}
	return n
}

type FetchFunc func(ctx context.Context, input string) (Result, error)

// Binding binds a controller to one backend call and its messages.
type Binding struct {
	Name  Name
	Title string
	// InputField is the required form field; empty means the view takes no input.
	InputField        string
	InputLabel        string
	ValidationMessage string
	FailureMessage    string
	// RefreshOnShow triggers one refresh the first time the tab is shown.
	RefreshOnShow bool
	Fetch         FetchFunc
}

// Recorder receives one entry per finished trigger.
type Recorder interface {
	SaveQueryLog(entry *storage.QueryLog) error
}

type Controller struct {
	binding Binding
	logger  *logger.Logger
	history Recorder

	mu    sync.Mutex
	seq   uint64
	vm    ViewModel
	shown bool

	inflight sync.WaitGroup
}

// NewController builds an idle controller. history may be nil.
func NewController(binding Binding, log *logger.Logger, history Recorder) *Controller {
	if log == nil {
		log = logger.Nop()
	}
	return &Controller{
		binding: binding,
		logger:  log.With("view", string(binding.Name)),
		history: history,
		vm: ViewModel{
			View:       binding.Name,
			Title:      binding.Title,
			InputField: binding.InputField,
			InputLabel: binding.InputLabel,
			State:      StateIdle,
			Summary:    render.EmptyPanel(binding.Title),
		},
	}
}

func (c *Controller) Name() Name {
	return c.binding.Name
}

func (c *Controller) Snapshot() ViewModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vm.clone()
}

// Refresh triggers and waits for the outcome.
func (c *Controller) Refresh(ctx context.Context, input string) ViewModel {
	seq, vm, ok := c.begin(input)
	if !ok {
		return vm
	}
	c.finish(ctx, seq, vm.Input)
	return c.Snapshot()
}

// Start triggers and returns at once with the loading snapshot, or with the
// validation error when input was rejected. The request runs until ctx ends.
func (c *Controller) Start(ctx context.Context, input string) ViewModel {
	seq, vm, ok := c.begin(input)
	if !ok {
		return vm
	}
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		c.finish(ctx, seq, vm.Input)
	}()
	return vm
}

// Wait blocks until every request started with Start has finished.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// showOnce starts the first refresh for views that load when first shown.
func (c *Controller) showOnce(ctx context.Context) bool {
	c.mu.Lock()
	first := c.binding.RefreshOnShow && !c.shown && c.vm.State == StateIdle
	c.shown = true
	c.mu.Unlock()

	if first {
		c.Start(ctx, "")
	}
	return first
}

func (c *Controller) begin(input string) (uint64, ViewModel, bool) {
	input = strings.TrimSpace(input)

	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.vm.Seq = seq
	c.vm.Input = input

	if c.binding.InputField != "" && input == "" {
		c.vm.State = StateError
		c.vm.ErrorKind = ErrorValidation
		c.vm.Error = c.binding.ValidationMessage
		c.vm.UpdatedAt = time.Now()
		c.clearResults()
		vm := c.vm.clone()
		c.mu.Unlock()

		c.logger.Debug("validation failed", "seq", seq)
		metrics.RecordRefresh(string(c.binding.Name), metrics.OutcomeValidation)
		c.record(&storage.QueryLog{
			View:      string(c.binding.Name),
			Outcome:   metrics.OutcomeValidation,
			ErrorKind: string(ErrorValidation),
			Error:     c.binding.ValidationMessage,
		})
		return seq, vm, false
	}

	c.vm.State = StateLoading
	c.vm.ErrorKind = ErrorNone
	c.vm.Error = ""
	c.clearResults()
	vm := c.vm.clone()
	c.mu.Unlock()

	c.logger.Debug("refresh started", "seq", seq, "input", input)
	return seq, vm, true
}

func (c *Controller) finish(ctx context.Context, seq uint64, input string) {
	start := time.Now()
	res, err := c.fetch(ctx, input)
	elapsed := time.Since(start)

	kind, message := ErrorNone, ""
	outcome := metrics.OutcomeOK
	if err != nil {
		kind, message = c.classify(err)
		outcome = outcomeFor(kind)
	}

	c.mu.Lock()
	stale := seq != c.seq
	if !stale {
		c.vm.UpdatedAt = time.Now()
		if err != nil {
			c.vm.State = StateError
			c.vm.ErrorKind = kind
			c.vm.Error = message
			c.clearResults()
		} else {
			c.vm.State = StateResults
			c.vm.Summary = res.Summary
			c.vm.Tables = res.Tables
		}
	}
	c.mu.Unlock()

	entry := &storage.QueryLog{
		View:       string(c.binding.Name),
		Input:      input,
		Outcome:    outcome,
		ErrorKind:  string(kind),
		Rows:       res.rows(),
		DurationMs: elapsed.Milliseconds(),
		Stale:      stale,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	c.record(entry)

	if stale {
		c.logger.Debug("stale response dropped", "seq", seq, "outcome", outcome)
		metrics.RecordStale(string(c.binding.Name))
		return
	}

	metrics.RecordRefresh(string(c.binding.Name), outcome)
	switch kind {
	case ErrorTransport:
		c.logger.Warn("refresh failed", "seq", seq, "error", err, "duration", elapsed.String())
	case ErrorDomain:
		c.logger.Info("backend rejected request", "seq", seq, "error", message)
	default:
		c.logger.Debug("refresh done", "seq", seq, "rows", entry.Rows, "duration", elapsed.String())
	}
}

// clearResults drops the previous render so only a results state carries tables.
// The caller holds c.mu.
func (c *Controller) clearResults() {
	c.vm.Summary = render.EmptyPanel(c.binding.Title)
	c.vm.Tables = nil
}

// fetch turns a panicking renderer into a transport-class failure for this view only.
func (c *Controller) fetch(ctx context.Context, input string) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panic: %v", r)
		}
	}()
	return c.binding.Fetch(ctx, input)
}

// classify shows backend messages verbatim and hides everything else behind
// the view's generic failure message.
func (c *Controller) classify(err error) (ErrorKind, string) {
	if msg, ok := backend.IsDomain(err); ok {
		return ErrorDomain, msg
	}
	return ErrorTransport, c.binding.FailureMessage
}

func outcomeFor(kind ErrorKind) string {
	switch kind {
	case ErrorValidation:
		return metrics.OutcomeValidation
	case ErrorDomain:
		return metrics.OutcomeDomain
	case ErrorTransport:
		return metrics.OutcomeTransport
	}
	return metrics.OutcomeOK
}

func (c *Controller) record(entry *storage.QueryLog) {
	if c.history == nil {
		return
	}
	if err := c.history.SaveQueryLog(entry); err != nil {
		c.logger.Warn("save query log", "error", err)
	}
}

// Sort toggles column on one of the currently rendered tables and returns a copy of the result.
func (c *Controller) Sort(engine *sorting.Engine, tableID, column string) (*render.Table, render.Direction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vm.State != StateResults {
		return nil, render.Unsorted, fmt.Errorf("%w: %s is %s", ErrNoResults, c.binding.Name, c.vm.State)
	}
	tbl := c.vm.Table(tableID)
	if tbl == nil {
		return nil, render.Unsorted, fmt.Errorf("%w %q in view %s", ErrUnknownTable, tableID, c.binding.Name)
	}
	dir, err := engine.Toggle(tbl, column)
	if err != nil {
		return nil, render.Unsorted, err
	}
	metrics.RecordSort(tableID)
	return tbl.Clone(), dir, nil
}
