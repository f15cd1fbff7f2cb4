package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"spendlens/internal/advisor"
	"spendlens/internal/analysis"
	"spendlens/internal/cache"
	"spendlens/internal/core"
)

// TransactionSource supplies the data a report is built from. The
// SQLite repository is the production implementation; tests use stubs.
type TransactionSource interface {
	ListTransactions(ctx context.Context, start, end core.Date) ([]core.Transaction, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	ActiveBudget(ctx context.Context, at core.Date) (*core.Budget, error)
}

// Report is the full output of one analysis run over a window.
type Report struct {
	Window      core.Window
	GeneratedAt time.Time
	Trends      analysis.TrendSummary
	Anomalies   []analysis.Anomaly
	Recurring   []analysis.RecurringPattern
	Assessment  advisor.Assessment
}

// ReportService orchestrates aggregation, trend analysis, pattern
// detection and the budget advisor over a transaction source. Reports
// are cached per window until the source changes.
type ReportService struct {
	source TransactionSource
	cfg    analysis.Config
	cache  *cache.LRUCache[*Report]
}

const (
	reportCacheSize = 32
	reportCacheTTL  = 5 * time.Minute
)

// NewReportService validates the analysis configuration eagerly so a
// bad deployment fails at startup, not on the first request.
func NewReportService(source TransactionSource, cfg analysis.Config) (*ReportService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("report service: %w", err)
	}
	return &ReportService{
		source: source,
		cfg:    cfg,
		cache:  cache.NewLRUCache[*Report](reportCacheSize, reportCacheTTL),
	}, nil
}

// ReportCache exposes the cache for registration with a cleanup manager.
func (s *ReportService) ReportCache() cache.Cleaner { return s.cache }

// InvalidateCache drops every cached report. Call after any write to
// the underlying transactions, categories or budgets.
func (s *ReportService) InvalidateCache() {
	s.cache.Clear()
}

// WindowEndingAt builds the inclusive analysis window covering the
// given number of calendar months and ending at end.
func WindowEndingAt(end core.Date, months int) (core.Window, error) {
	if months <= 0 {
		return core.Window{}, fmt.Errorf("%w: months must be positive, got %d", core.ErrInvalidRange, months)
	}
	// Month arithmetic on the first of the month, not on end itself:
	// stepping back from a month-end day would normalize forward (Mar 31
	// minus one month is Feb 31, i.e. Mar 3) and shorten the window.
	start := core.Date{Time: time.Date(end.Year(), end.Time.Month()-time.Month(months-1), 1, 0, 0, 0, 0, time.UTC)}
	return core.Window{Start: start, End: end}, nil
}

// BuildReport runs the full pipeline for the window. The three source
// reads run concurrently, then trend analysis and pattern detection
// fan out over the same immutable snapshot.
func (s *ReportService) BuildReport(ctx context.Context, w core.Window) (*Report, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	key := w.Start.Format(core.DateLayout) + ".." + w.End.Format(core.DateLayout)
	if r, ok := s.cache.Get(key); ok {
		slog.DebugContext(ctx, "Report served from cache", "window", key)
		return r, nil
	}

	var (
		txs    []core.Transaction
		cats   []core.Category
		budget *core.Budget
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.source.ListTransactions(gctx, w.Start, w.End)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cats, err = s.source.ListCategories(gctx)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		budget, err = s.source.ActiveBudget(gctx, w.End)
		if err != nil {
			return fmt.Errorf("active budget: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	agg, err := analysis.Aggregate(txs, w)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	report := &Report{Window: w, GeneratedAt: time.Now().UTC()}

	// Each stage reads the snapshot and writes only its own field.
	var detect errgroup.Group
	detect.Go(func() error {
		report.Trends = analysis.AnalyzeTrends(agg, s.cfg)
		return nil
	})
	detect.Go(func() error {
		report.Anomalies = analysis.DetectAnomalies(txs, w, s.cfg)
		return nil
	})
	detect.Go(func() error {
		report.Recurring = analysis.DetectRecurring(txs, w, s.cfg)
		return nil
	})
	_ = detect.Wait()

	report.Assessment = advisor.Advise(advisor.Input{
		Trends:      report.Trends,
		Anomalies:   report.Anomalies,
		Recurring:   report.Recurring,
		Aggregates:  agg,
		Categories:  cats,
		TotalIncome: agg.TotalIncome,
		Budget:      budget,
	}, s.cfg)

	s.cache.Set(key, report)
	slog.InfoContext(ctx, "Report generated",
		"window", key,
		"transactions", len(txs),
		"anomalies", len(report.Anomalies),
		"recurring", len(report.Recurring),
		"health_score", report.Assessment.Health.Score)

	return report, nil
}

// ReportEndingAt is a convenience wrapper building the window from an
// end date and a month count before running BuildReport.
func (s *ReportService) ReportEndingAt(ctx context.Context, end core.Date, months int) (*Report, error) {
	w, err := WindowEndingAt(end, months)
	if err != nil {
		return nil, err
	}
	return s.BuildReport(ctx, w)
}
