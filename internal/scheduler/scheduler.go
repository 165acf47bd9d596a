package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/camuig/whale-dashboard/internal/backend"
	"github.com/camuig/whale-dashboard/internal/config"
	"github.com/camuig/whale-dashboard/internal/format"
	"github.com/camuig/whale-dashboard/internal/logger"
	"github.com/camuig/whale-dashboard/internal/metrics"
	"github.com/camuig/whale-dashboard/internal/storage"
)

const digestView = "digest"

type Source interface {
	RecentPositions(ctx context.Context) (*backend.RecentPositionsResponse, error)
}

type Notifier interface {
	NotifyDigest(text string) error
}

type Recorder interface {
	SaveQueryLog(entry *storage.QueryLog) error
}

// Digest periodically posts the 24h recent-positions summary to the notifier.
type Digest struct {
	source   Source
	notifier Notifier
	history  Recorder
	interval time.Duration
	topN     int
	logger   *logger.Logger
}

// NewDigest builds a digest scheduler. history may be nil.
func NewDigest(src Source, notifier Notifier, history Recorder, cfg *config.Config, log *logger.Logger) *Digest {
	return &Digest{
		source:   src,
		notifier: notifier,
		history:  history,
		interval: cfg.DigestInterval(),
		topN:     cfg.Digest.TopN,
		logger:   log.With("component", "digest"),
	}
}

func (d *Digest) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("digest scheduler started", "interval", d.interval.String(), "top_n", d.topN)

	d.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("digest scheduler stopped")
			return
		case <-ticker.C:
			d.runCycle(ctx)
		}
	}
}

func (d *Digest) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic in digest cycle", "panic", fmt.Sprint(r))
		}
	}()

	if _, err := d.RunOnce(ctx); err != nil {
		d.logger.Error("digest cycle", "error", err)
	}
}

// RunOnce fetches, builds and sends one digest, returning the text that was sent.
func (d *Digest) RunOnce(ctx context.Context) (string, error) {
	start := time.Now()
	text, rows, err := d.Build(ctx)
	if err == nil {
		err = d.notifier.NotifyDigest(text)
	}
	d.record(rows, time.Since(start), err)
	if err != nil {
		return "", err
	}
	d.logger.Info("digest sent", "rows", rows)
	return text, nil
}

// Build fetches recent positions and renders the digest without sending it.
func (d *Digest) Build(ctx context.Context) (string, int, error) {
	resp, err := d.source.RecentPositions(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("fetch recent positions: %w", err)
	}
	return BuildDigest(resp, d.topN), len(resp.LongPositions) + len(resp.ShortPositions), nil
}

func (d *Digest) record(rows int, elapsed time.Duration, err error) {
	outcome := metrics.OutcomeOK
	entry := &storage.QueryLog{View: digestView, Rows: rows, DurationMs: elapsed.Milliseconds()}
	if err != nil {
		outcome = metrics.OutcomeTransport
		if _, ok := backend.IsDomain(err); ok {
			outcome = metrics.OutcomeDomain
		}
		entry.Error = err.Error()
	}
	entry.Outcome = outcome
	metrics.RecordRefresh(digestView, outcome)

	if d.history == nil {
		return
	}
	if dbErr := d.history.SaveQueryLog(entry); dbErr != nil {
		d.logger.Error("save digest log", "error", dbErr)
	}
}

// BuildDigest renders the whale summary and the topN assets per side ordered by value.
// topN <= 0 lists every asset.
func BuildDigest(resp *backend.RecentPositionsResponse, topN int) string {
	var b strings.Builder

	b.WriteString("Whale positions, last 24h\n\n")
	s := resp.Summary
	fmt.Fprintf(&b, "New longs: %s\n", format.Decimal(s.TotalNewLong.Float(), 0))
	fmt.Fprintf(&b, "New shorts: %s\n", format.Decimal(s.TotalNewShort.Float(), 0))
	fmt.Fprintf(&b, "Closed longs: %s\n", format.Decimal(s.TotalClosedLong.Float(), 0))
	fmt.Fprintf(&b, "Closed shorts: %s\n", format.Decimal(s.TotalClosedShort.Float(), 0))

	writeSide(&b, "Most longed", resp.LongPositions, topN)
	writeSide(&b, "Most shorted", resp.ShortPositions, topN)

	return strings.TrimRight(b.String(), "\n")
}

func writeSide(b *strings.Builder, title string, aggregates []backend.AssetAggregate, topN int) {
	fmt.Fprintf(b, "\n%s:\n", title)
	if len(aggregates) == 0 {
		b.WriteString("  none\n")
		return
	}

	top := append([]backend.AssetAggregate(nil), aggregates...)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Value.Float() > top[j].Value.Float()
	})
	if topN > 0 && len(top) > topN {
		top = top[:topN]
	}

	for i, a := range top {
		fmt.Fprintf(b, "  %d. %s %s (%s whales)\n",
			i+1, a.Asset, format.Currency(a.Value.Float()), format.Decimal(a.WhaleCount.Float(), 0))
	}
}
