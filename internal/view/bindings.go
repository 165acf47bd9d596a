package view

import (
	"context"
	"time"

	"github.com/camuig/whale-dashboard/internal/backend"
	"github.com/camuig/whale-dashboard/internal/derive"
	"github.com/camuig/whale-dashboard/internal/format"
	"github.com/camuig/whale-dashboard/internal/render"
)

// Source is the analytics backend as the views see it.
type Source interface {
	Analyze(ctx context.Context, token string) (*backend.AnalyzeResponse, error)
	WhaleTrades(ctx context.Context, wallet string) (*backend.WhaleTradesResponse, error)
	RecentPositions(ctx context.Context) (*backend.RecentPositionsResponse, error)
}

type RenderOptions struct {
	ExplorerURL string
	Location    *time.Location
}

func (o RenderOptions) withDefaults() RenderOptions {
	if o.ExplorerURL == "" {
		o.ExplorerURL = format.DefaultExplorerURL
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	return o
}

// Bindings returns the three dashboard views in tab order.
func Bindings(src Source, opts RenderOptions) []Binding {
	opts = opts.withDefaults()
	return []Binding{
		PositionsBinding(src, opts),
		TradesBinding(src, opts),
		RecentBinding(src),
	}
}

func PositionsBinding(src Source, opts RenderOptions) Binding {
	opts = opts.withDefaults()
	return Binding{
		Name:              Positions,
		Title:             "Token Positions",
		InputField:        "token",
		InputLabel:        "Token symbol",
		ValidationMessage: "Please enter a token symbol",
		FailureMessage:    "Failed to analyze positions. Please try again.",
		Fetch: func(ctx context.Context, token string) (Result, error) {
			resp, err := src.Analyze(ctx, token)
			if err != nil {
				return Result{}, err
			}
			return Result{
				Summary: render.PositionsSummary(resp.Summary),
				Tables:  []*render.Table{render.PositionsTable(resp.Positions, opts.ExplorerURL)},
			}, nil
		},
	}
}

func TradesBinding(src Source, opts RenderOptions) Binding {
	opts = opts.withDefaults()
	return Binding{
		Name:              Trades,
		Title:             "Whale Trades",
		InputField:        "wallet",
		InputLabel:        "Wallet address",
		ValidationMessage: "Please enter a wallet address",
		FailureMessage:    "Failed to fetch whale trades. Please try again.",
		Fetch: func(ctx context.Context, wallet string) (Result, error) {
			resp, err := src.WhaleTrades(ctx, wallet)
			if err != nil {
				return Result{}, err
			}
			return Result{
				Summary: render.TradesSummary(resp.Summary),
				Tables:  []*render.Table{render.TradesTable(resp.Trades, opts.Location)},
			}, nil
		},
	}
}

func RecentBinding(src Source) Binding {
	return Binding{
		Name:           Recent,
		Title:          "Recent Positions (24h)",
		FailureMessage: "Failed to load recent positions. Please try again.",
		RefreshOnShow:  true,
		Fetch: func(ctx context.Context, _ string) (Result, error) {
			resp, err := src.RecentPositions(ctx)
			if err != nil {
				return Result{}, err
			}
			return Result{
				Summary: render.RecentSummary(resp.Summary),
				Tables: []*render.Table{
					render.AggregatesTable(render.TableRecentLong, "Most Longed", resp.LongPositions, derive.Long),
					render.AggregatesTable(render.TableRecentShort, "Most Shorted", resp.ShortPositions, derive.Short),
				},
			}, nil
		},
	}
}
