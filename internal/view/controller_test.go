package view

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camuig/whale-dashboard/internal/backend"
	"github.com/camuig/whale-dashboard/internal/render"
	"github.com/camuig/whale-dashboard/internal/sorting"
	"github.com/camuig/whale-dashboard/internal/storage"
)

type fakeSource struct {
	analyzeCalls atomic.Int32
	tradesCalls  atomic.Int32
	recentCalls  atomic.Int32

	analyze func(ctx context.Context, token string) (*backend.AnalyzeResponse, error)
	trades  func(ctx context.Context, wallet string) (*backend.WhaleTradesResponse, error)
	recent  func(ctx context.Context) (*backend.RecentPositionsResponse, error)
}

func (f *fakeSource) Analyze(ctx context.Context, token string) (*backend.AnalyzeResponse, error) {
	f.analyzeCalls.Add(1)
	if f.analyze == nil {
		return &backend.AnalyzeResponse{}, nil
	}
	return f.analyze(ctx, token)
}

func (f *fakeSource) WhaleTrades(ctx context.Context, wallet string) (*backend.WhaleTradesResponse, error) {
	f.tradesCalls.Add(1)
	if f.trades == nil {
		return &backend.WhaleTradesResponse{}, nil
	}
	return f.trades(ctx, wallet)
}

func (f *fakeSource) RecentPositions(ctx context.Context) (*backend.RecentPositionsResponse, error) {
	f.recentCalls.Add(1)
	if f.recent == nil {
		return &backend.RecentPositionsResponse{}, nil
	}
	return f.recent(ctx)
}

type memRecorder struct {
	mu      sync.Mutex
	entries []storage.QueryLog
	err     error
}

func (m *memRecorder) SaveQueryLog(entry *storage.QueryLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return m.err
}

func (m *memRecorder) all() []storage.QueryLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]storage.QueryLog(nil), m.entries...)
}

func onePosition(token string) *backend.AnalyzeResponse {
	return &backend.AnalyzeResponse{
		Summary: backend.PositionsSummary{TotalPnL: "-$50.00", ActivePositions: "1"},
		Positions: []backend.Position{{
			Wallet: "0xAAAA...1111", Side: "Short", Size: "100.0", EntryPrice: "$10.00",
			PositionValue: "$1,000.00", UnrealizedPnL: "-$50.00",
		}},
		Token: token,
	}
}

func assertExactlyOneVisible(t *testing.T, vm ViewModel) {
	t.Helper()
	visible := 0
	for _, v := range []bool{vm.ShowLoading(), vm.ShowError(), vm.ShowResults()} {
		if v {
			visible++
		}
	}
	assert.Equal(t, 1, visible, "state %s", vm.State)
}

func TestControllerStartsIdle(t *testing.T) {
	c := NewController(PositionsBinding(&fakeSource{}, RenderOptions{}), nil, nil)
	vm := c.Snapshot()
	assert.Equal(t, StateIdle, vm.State)
	assert.False(t, vm.ShowLoading() || vm.ShowError() || vm.ShowResults())
}

func TestRefreshSuccess(t *testing.T) {
	src := &fakeSource{analyze: func(_ context.Context, token string) (*backend.AnalyzeResponse, error) {
		return onePosition(token), nil
	}}
	rec := &memRecorder{}
	c := NewController(PositionsBinding(src, RenderOptions{}), nil, rec)

	vm := c.Refresh(context.Background(), "  BTC ")
	assert.Equal(t, StateResults, vm.State)
	assert.Equal(t, "BTC", vm.Input)
	assertExactlyOneVisible(t, vm)
	assert.Equal(t, "negative", vm.Summary.Slot("total_pnl").Class)

	tbl := vm.Table(render.TablePositions)
	require.NotNil(t, tbl)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "negative", tbl.Rows[0].Cells[tbl.ColumnIndex("unrealized_pnl")].Class)

	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "ok", entries[0].Outcome)
	assert.Equal(t, "BTC", entries[0].Input)
	assert.Equal(t, 1, entries[0].Rows)
}

func TestValidationShortCircuits(t *testing.T) {
	src := &fakeSource{}
	rec := &memRecorder{}
	c := NewController(TradesBinding(src, RenderOptions{}), nil, rec)

	vm := c.Start(context.Background(), "   ")
	c.Wait()

	assert.Equal(t, StateError, vm.State)
	assert.Equal(t, ErrorValidation, vm.ErrorKind)
	assert.Equal(t, "Please enter a wallet address", vm.Error)
	assertExactlyOneVisible(t, vm)
	assert.Zero(t, src.tradesCalls.Load())

	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "validation_error", entries[0].Outcome)
}

func TestDomainErrorIsVerbatim(t *testing.T) {
	src := &fakeSource{analyze: func(context.Context, string) (*backend.AnalyzeResponse, error) {
		return nil, &backend.DomainError{Endpoint: backend.EndpointAnalyze, Message: "No whale addresses found"}
	}}
	c := NewController(PositionsBinding(src, RenderOptions{}), nil, nil)

	vm := c.Refresh(context.Background(), "BTC")
	assert.Equal(t, StateError, vm.State)
	assert.Equal(t, ErrorDomain, vm.ErrorKind)
	assert.Equal(t, "No whale addresses found", vm.Error)
	assertExactlyOneVisible(t, vm)
}

func TestTransportErrorIsGeneric(t *testing.T) {
	for _, binding := range []Binding{
		PositionsBinding(&fakeSource{analyze: func(context.Context, string) (*backend.AnalyzeResponse, error) {
			return nil, &backend.TransportError{Endpoint: "analyze", Err: errors.New("connection refused")}
		}}, RenderOptions{}),
		TradesBinding(&fakeSource{trades: func(context.Context, string) (*backend.WhaleTradesResponse, error) {
			return nil, &backend.TransportError{Endpoint: "whale_trades", Err: errors.New("connection refused")}
		}}, RenderOptions{}),
		RecentBinding(&fakeSource{recent: func(context.Context) (*backend.RecentPositionsResponse, error) {
			return nil, &backend.TransportError{Endpoint: "recent_positions", Status: 502, Err: errors.New("bad gateway")}
		}}),
	} {
		t.Run(string(binding.Name), func(t *testing.T) {
			rec := &memRecorder{}
			c := NewController(binding, nil, rec)
			vm := c.Refresh(context.Background(), "input")
			assert.Equal(t, StateError, vm.State)
			assert.Equal(t, ErrorTransport, vm.ErrorKind)
			assert.Equal(t, binding.FailureMessage, vm.Error)
			assert.NotContains(t, vm.Error, "refused")
			assert.NotContains(t, vm.Error, "gateway")

			entries := rec.all()
			require.Len(t, entries, 1)
			assert.Equal(t, "transport_error", entries[0].Outcome)
			assert.NotEmpty(t, entries[0].Error)
		})
	}
}

func TestErrorThenSuccessRecovers(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	src := &fakeSource{analyze: func(_ context.Context, token string) (*backend.AnalyzeResponse, error) {
		if fail.Load() {
			return nil, errors.New("boom")
		}
		return onePosition(token), nil
	}}
	c := NewController(PositionsBinding(src, RenderOptions{}), nil, nil)

	vm := c.Refresh(context.Background(), "BTC")
	require.Equal(t, StateError, vm.State)

	fail.Store(false)
	vm = c.Refresh(context.Background(), "BTC")
	assert.Equal(t, StateResults, vm.State)
	assert.Empty(t, vm.Error)
	assert.Equal(t, ErrorNone, vm.ErrorKind)
}

func TestStartShowsLoadingUntilDone(t *testing.T) {
	release := make(chan struct{})
	src := &fakeSource{analyze: func(_ context.Context, token string) (*backend.AnalyzeResponse, error) {
		<-release
		return onePosition(token), nil
	}}
	c := NewController(PositionsBinding(src, RenderOptions{}), nil, nil)

	vm := c.Start(context.Background(), "BTC")
	assert.Equal(t, StateLoading, vm.State)
	assertExactlyOneVisible(t, vm)
	assert.Equal(t, StateLoading, c.Snapshot().State)

	close(release)
	c.Wait()
	assert.Equal(t, StateResults, c.Snapshot().State)
}

func TestStaleResponseIsDropped(t *testing.T) {
	slow := make(chan struct{})
	src := &fakeSource{analyze: func(_ context.Context, token string) (*backend.AnalyzeResponse, error) {
		if token == "SLOW" {
			<-slow
		}
		return onePosition(token), nil
	}}
	rec := &memRecorder{}
	c := NewController(PositionsBinding(src, RenderOptions{}), nil, rec)

	first := c.Start(context.Background(), "SLOW")
	second := c.Refresh(context.Background(), "FAST")
	require.Equal(t, StateResults, second.State)
	assert.Greater(t, second.Seq, first.Seq)

	close(slow)
	c.Wait()

	vm := c.Snapshot()
	assert.Equal(t, "FAST", vm.Input)
	assert.Equal(t, second.Seq, vm.Seq)

	var staleSeen bool
	for _, e := range rec.all() {
		if e.Input == "SLOW" {
			staleSeen = e.Stale
		}
	}
	assert.True(t, staleSeen)
}

func TestValidationSupersedesInflight(t *testing.T) {
	slow := make(chan struct{})
	src := &fakeSource{analyze: func(_ context.Context, token string) (*backend.AnalyzeResponse, error) {
		<-slow
		return onePosition(token), nil
	}}
	c := NewController(PositionsBinding(src, RenderOptions{}), nil, nil)

	c.Start(context.Background(), "BTC")
	vm := c.Start(context.Background(), "")
	require.Equal(t, ErrorValidation, vm.ErrorKind)

	close(slow)
	c.Wait()
	assert.Equal(t, ErrorValidation, c.Snapshot().ErrorKind)
}

func TestRecorderFailureDoesNotChangeView(t *testing.T) {
	src := &fakeSource{analyze: func(_ context.Context, token string) (*backend.AnalyzeResponse, error) {
		return onePosition(token), nil
	}}
	c := NewController(PositionsBinding(src, RenderOptions{}), nil, &memRecorder{err: errors.New("disk full")})
	vm := c.Refresh(context.Background(), "BTC")
	assert.Equal(t, StateResults, vm.State)
}

func TestRenderPanicBecomesError(t *testing.T) {
	binding := PositionsBinding(&fakeSource{}, RenderOptions{})
	binding.Fetch = func(context.Context, string) (Result, error) {
		panic("bad row")
	}
	c := NewController(binding, nil, nil)
	vm := c.Refresh(context.Background(), "BTC")
	assert.Equal(t, StateError, vm.State)
	assert.Equal(t, ErrorTransport, vm.ErrorKind)
}

func TestSortOnRenderedTable(t *testing.T) {
	src := &fakeSource{analyze: func(context.Context, string) (*backend.AnalyzeResponse, error) {
		return &backend.AnalyzeResponse{Positions: []backend.Position{
			{Wallet: "0x1111111111", Side: "Long", Size: "5"},
			{Wallet: "0x2222222222", Side: "Short", Size: "1"},
		}}, nil
	}}
	c := NewController(PositionsBinding(src, RenderOptions{}), nil, nil)
	engine := sorting.NewEngine()

	_, _, err := c.Sort(engine, render.TablePositions, "size")
	require.ErrorIs(t, err, ErrNoResults)

	c.Refresh(context.Background(), "BTC")

	_, _, err = c.Sort(engine, render.TableTrades, "size")
	require.ErrorIs(t, err, ErrUnknownTable)

	tbl, dir, err := c.Sort(engine, render.TablePositions, "side")
	require.NoError(t, err)
	assert.Equal(t, render.Ascending, dir)
	assert.Equal(t, "Short", tbl.Rows[0].Cells[1].Text)

	// the returned copy is detached from the controller
	tbl.Rows[0].Cells[1].Text = "mutated"
	assert.Equal(t, "Short", c.Snapshot().Table(render.TablePositions).Rows[0].Cells[1].Text)

	_, _, err = c.Sort(engine, render.TablePositions, "nope")
	require.ErrorIs(t, err, sorting.ErrUnknownColumn)

	// a fresh render resets header state
	c.Refresh(context.Background(), "BTC")
	for _, col := range c.Snapshot().Table(render.TablePositions).Columns {
		assert.Equal(t, render.Unsorted, col.Direction)
	}
}

func TestFailureDropsPreviousResults(t *testing.T) {
	fail := false
	src := &fakeSource{analyze: func(_ context.Context, token string) (*backend.AnalyzeResponse, error) {
		if fail {
			return nil, errors.New("connection refused")
		}
		return onePosition(token), nil
	}}
	c := NewController(PositionsBinding(src, RenderOptions{}), nil, nil)
	engine := sorting.NewEngine()

	vm := c.Refresh(context.Background(), "BTC")
	require.Equal(t, StateResults, vm.State)
	require.NotNil(t, vm.Table(render.TablePositions))

	fail = true
	vm = c.Refresh(context.Background(), "BTC")
	assert.Equal(t, StateError, vm.State)
	assert.Empty(t, vm.Tables)
	assert.Empty(t, vm.Summary.Slots)

	_, _, err := c.Sort(engine, render.TablePositions, "size")
	require.ErrorIs(t, err, ErrNoResults)

	// a validation failure also leaves nothing to sort
	fail = false
	c.Refresh(context.Background(), "BTC")
	vm = c.Refresh(context.Background(), "  ")
	assert.Equal(t, ErrorValidation, vm.ErrorKind)
	assert.Empty(t, vm.Tables)
	_, _, err = c.Sort(engine, render.TablePositions, "size")
	require.ErrorIs(t, err, ErrNoResults)
}

func TestLoadingHidesPreviousResults(t *testing.T) {
	gate := make(chan struct{})
	calls := 0
	src := &fakeSource{analyze: func(_ context.Context, token string) (*backend.AnalyzeResponse, error) {
		calls++
		if calls > 1 {
			<-gate
		}
		return onePosition(token), nil
	}}
	c := NewController(PositionsBinding(src, RenderOptions{}), nil, nil)
	c.Refresh(context.Background(), "BTC")

	vm := c.Start(context.Background(), "ETH")
	assert.Equal(t, StateLoading, vm.State)
	assert.Empty(t, vm.Tables)
	_, _, err := c.Sort(sorting.NewEngine(), render.TablePositions, "size")
	require.ErrorIs(t, err, ErrNoResults)

	close(gate)
	c.Wait()
	assert.Equal(t, StateResults, c.Snapshot().State)
}

func TestConcurrentViewsAreIndependent(t *testing.T) {
	gate := make(chan struct{})
	src := &fakeSource{
		analyze: func(_ context.Context, token string) (*backend.AnalyzeResponse, error) {
			<-gate
			return onePosition(token), nil
		},
		trades: func(context.Context, string) (*backend.WhaleTradesResponse, error) {
			return nil, errors.New("down")
		},
	}
	d := NewDashboard(Bindings(src, RenderOptions{}), nil, nil, nil)

	_, err := d.Start(context.Background(), Positions, "BTC")
	require.NoError(t, err)
	vm, err := d.Refresh(context.Background(), Trades, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, StateError, vm.State)

	positions, _ := d.Snapshot(Positions)
	assert.Equal(t, StateLoading, positions.State)

	close(gate)
	done := make(chan struct{})
	go func() { d.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight request did not finish")
	}

	positions, _ = d.Snapshot(Positions)
	assert.Equal(t, StateResults, positions.State)
	trades, _ := d.Snapshot(Trades)
	assert.Equal(t, StateError, trades.State)
}
