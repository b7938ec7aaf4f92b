package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"slippage/internal/instrumentation"
	"slippage/internal/models"
	"slippage/internal/orderbook"
	"slippage/internal/pipeline"
)

// ResultPublisher publishes finished results (typically to the Redis cache).
type ResultPublisher interface {
	PublishAnalysis(ctx context.Context, ticker string, result *models.AnalysisResult) error
	PublishJob(ctx context.Context, result *models.JobResult) error
}

// BatchTotals are the share totals of the batch export allocation examples.
var BatchTotals = []int{10000, 50000, 100000}

// BatchIntervals is the interval count of the batch export examples.
const BatchIntervals = 10

// Service loads ticker data, runs analyses on the pool and publishes results.
type Service struct {
	discovery *orderbook.Discovery
	runner    *pipeline.Runner
	publisher ResultPublisher
	metrics   *instrumentation.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a service. publisher and metrics may be nil.
func New(discovery *orderbook.Discovery, runner *pipeline.Runner, publisher ResultPublisher, metrics *instrumentation.Metrics, logger *slog.Logger) *Service {
	return &Service{
		discovery: discovery,
		runner:    runner,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With("component", "aggregator"),
		now:       time.Now,
	}
}

// Tickers lists the available data sources.
func (s *Service) Tickers() ([]orderbook.Ticker, error) {
	return s.discovery.ListTickers()
}

// ValidateParams checks params without running an analysis.
func (s *Service) ValidateParams(params models.Params) error {
	return s.runner.Analyzer().ValidateParams(params)
}

// Analyze runs one analysis for ticker and publishes it. The returned error
// wraps orderbook.ErrTickerNotFound, pipeline.ErrInsufficientData or a
// *pipeline.ValidationError where applicable.
func (s *Service) Analyze(ctx context.Context, ticker string, params models.Params) (*models.AnalysisResult, error) {
	startTime := time.Now()
	if s.metrics != nil {
		defer s.metrics.TrackInFlight()()
	}

	result, err := s.analyze(ctx, ticker, params)
	latencyMs := float64(time.Since(startTime).Milliseconds())

	if s.metrics != nil {
		s.metrics.RecordAnalysis(Outcome(err), latencyMs)
	}
	if err != nil {
		s.logger.Warn("analysis_failed",
			"ticker", ticker,
			"outcome", Outcome(err),
			"error", err,
		)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordSamples(len(result.SlippageData))
		if result.Allocation.Status == models.AllocationFallback {
			s.metrics.RecordFallback()
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishAnalysis(ctx, ticker, result); err != nil {
			// The cache is best effort; the caller still gets its result.
			s.logger.Error("publish_failed", "ticker", ticker, "error", err)
			if s.metrics != nil {
				s.metrics.RecordError("aggregator", "publish_failed")
			}
		}
	}

	s.logger.Info("analysis_completed",
		"ticker", ticker,
		"samples", len(result.SlippageData),
		"a", result.ModelParams.PowerLaw.A,
		"b", result.ModelParams.PowerLaw.B,
		"allocation_status", result.Allocation.Status,
		"total_slippage_cost", result.RiskMetrics.TotalSlippageCost,
		"latency_ms", latencyMs,
	)

	return result, nil
}

func (s *Service) analyze(ctx context.Context, ticker string, params models.Params) (*models.AnalysisResult, error) {
	if err := s.runner.Analyzer().ValidateParams(params); err != nil {
		return nil, err
	}

	source, err := s.discovery.Resolve(ticker)
	if err != nil {
		return nil, err
	}

	snapshots, stats, err := orderbook.LoadFile(source.Path, params.SampleSize)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", ticker, err)
	}
	s.logger.Debug("snapshots_loaded",
		"ticker", ticker,
		"file", source.File,
		"rows", stats.Rows,
		"missing_top_of_book", stats.MissingTopOfBook,
		"unsorted_asks", stats.UnsortedAsks,
	)

	result, err := s.runner.Run(ctx, snapshots, params)
	if err != nil {
		return nil, err
	}

	if err := models.ValidateResult(result); err != nil {
		return nil, fmt.Errorf("result invariant violated: %w", err)
	}

	result.Ticker = ticker
	result.AnalysisParams = &models.AnalysisParams{
		SampleSize:      params.SampleSize,
		OrderSizePoints: params.OrderSizePoints,
		BookDepthPct:    params.BookDepthPct,
		Timestamp:       s.now(),
	}
	return result, nil
}

// ProcessJob runs a queued job and publishes its result. Analysis failures
// produce a failed JobResult, not an error; only a failed publish is
// returned so the message stays pending.
func (s *Service) ProcessJob(ctx context.Context, job *models.Job) (*models.JobResult, error) {
	out := &models.JobResult{ID: job.ID, Ticker: job.Ticker, State: models.JobCompleted}

	result, err := s.Analyze(ctx, job.Ticker, job.Params)
	if err != nil {
		out.State = models.JobFailed
		out.Error = err.Error()
	} else {
		out.Result = result
	}
	out.CompletedAt = s.now()

	if s.metrics != nil {
		s.metrics.RecordJob(string(out.State))
	}

	if s.publisher != nil {
		if err := s.publisher.PublishJob(ctx, out); err != nil {
			return out, fmt.Errorf("publish job %s: %w", job.ID, err)
		}
	}
	return out, nil
}

// Compare runs every scenario concurrently on the pool. Failed scenarios are
// dropped; the order of the survivors follows the input.
func (s *Service) Compare(ctx context.Context, scenarios []Scenario) []*models.AnalysisResult {
	results := make([]*models.AnalysisResult, len(scenarios))

	g, gctx := errgroup.WithContext(ctx)
	for i, sc := range scenarios {
		g.Go(func() error {
			res, err := s.Analyze(gctx, sc.Ticker, sc.Params)
			if err == nil {
				results[i] = res
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*models.AnalysisResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// ComparisonMetrics keys each result as <ticker>_<index>. Fewer than two
// results compare to nothing and yield an empty map.
func ComparisonMetrics(results []*models.AnalysisResult) map[string]models.ComparisonMetric {
	metrics := make(map[string]models.ComparisonMetric)
	if len(results) < 2 {
		return metrics
	}
	for i, r := range results {
		metrics[fmt.Sprintf("%s_%d", r.Ticker, i)] = models.ComparisonMetric{
			TotalCost:          r.RiskMetrics.TotalSlippageCost,
			MaxAllocation:      r.RiskMetrics.MaxAllocation,
			AllocationVariance: r.RiskMetrics.AllocationVariance,
		}
	}
	return metrics
}

// Scenario is one ticker and parameter set of a comparison.
type Scenario struct {
	Ticker string
	Params models.Params
}

// Batch analyses every ticker with default parameters and solves the
// BatchTotals allocation examples. Failed tickers yield nil entries.
func (s *Service) Batch(ctx context.Context, tickers []string) []*models.BatchResult {
	results := make([]*models.BatchResult, len(tickers))
	params := models.DefaultParams()

	g, gctx := errgroup.WithContext(ctx)
	for i, ticker := range tickers {
		g.Go(func() error {
			res, err := s.Analyze(gctx, ticker, params)
			if err != nil {
				return nil
			}
			results[i] = s.batchEntry(ticker, res)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *Service) batchEntry(ticker string, res *models.AnalysisResult) *models.BatchResult {
	entry := &models.BatchResult{
		Ticker:           ticker,
		ModelParams:      res.ModelParams.PowerLaw,
		SlippageData:     res.SlippageData,
		Allocations:      make(map[string][]float64, len(BatchTotals)),
		AllocationStatus: make(map[string]models.AllocationStatus, len(BatchTotals)),
	}

	for _, total := range BatchTotals {
		alloc, err := s.runner.Analyzer().Allocate(total, BatchIntervals, res.ModelParams.PowerLaw)
		if err != nil {
			s.logger.Error("batch_allocation_failed", "ticker", ticker, "total_shares", total, "error", err)
			continue
		}
		key := fmt.Sprintf("%d", total)
		entry.Allocations[key] = alloc.Allocations
		entry.AllocationStatus[key] = alloc.Status
	}
	return entry
}

// Outcome classifies an analysis error for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return instrumentation.OutcomeOK
	case pipeline.IsValidationError(err):
		return instrumentation.OutcomeInvalidInput
	case errors.Is(err, pipeline.ErrInsufficientData):
		return instrumentation.OutcomeInsufficientData
	case errors.Is(err, orderbook.ErrTickerNotFound):
		return instrumentation.OutcomeNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return instrumentation.OutcomeTimeout
	default:
		return instrumentation.OutcomeError
	}
}
