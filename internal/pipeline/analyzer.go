// Package pipeline runs the slippage analysis: sample the book, fit the
// impact models, solve the execution allocation and summarise its risk.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"slippage/internal/metrics"
	"slippage/internal/models"
	"slippage/internal/numeric"
)

// MinUsableRows is the fewest snapshots with a top of book an analysis accepts.
const MinUsableRows = 10

const tracerName = "slippage/pipeline"

// Analyzer is stateless between calls and safe for concurrent use.
type Analyzer struct {
	fitter         numeric.CurveFitter
	solver         numeric.ConstrainedSolver
	tolerantLinear bool
	validate       *validator.Validate
	logger         *slog.Logger
	tracer         trace.Tracer
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithCurveFitter replaces the Levenberg-Marquardt fitter.
func WithCurveFitter(f numeric.CurveFitter) Option {
	return func(a *Analyzer) { a.fitter = f }
}

// WithSolver replaces the projected-gradient allocation solver.
func WithSolver(s numeric.ConstrainedSolver) Option {
	return func(a *Analyzer) { a.solver = s }
}

// WithTolerantLinearFit keeps an analysis alive when only the linear fit
// fails. The result then has a nil linear model.
func WithTolerantLinearFit() Option {
	return func(a *Analyzer) { a.tolerantLinear = true }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// WithTracer sets the tracer used for stage spans.
func WithTracer(t trace.Tracer) Option {
	return func(a *Analyzer) { a.tracer = t }
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		fitter:   numeric.NewLevenbergMarquardt(),
		solver:   numeric.NewProjectedGradient(),
		validate: newValidator(),
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "analyzer")
	return a
}

// ValidateParams rejects out-of-range parameters with a *ValidationError.
func (a *Analyzer) ValidateParams(p models.Params) error {
	if err := a.validate.Struct(p); err != nil {
		return toValidationError(err)
	}
	return nil
}

// Analyze runs the full pipeline over snapshots. Only the first
// params.SampleSize snapshots are considered. Cancellation is checked
// between stages; a running fit or solve is never interrupted.
//
// The result carries no ticker or request metadata and is identical for
// identical inputs.
func (a *Analyzer) Analyze(ctx context.Context, snapshots []models.Snapshot, params models.Params) (*models.AnalysisResult, error) {
	if err := a.ValidateParams(params); err != nil {
		return nil, err
	}

	ctx, span := a.tracer.Start(ctx, "analyze")
	defer span.End()

	result, err := a.run(ctx, snapshots, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

func (a *Analyzer) run(ctx context.Context, snapshots []models.Snapshot, params models.Params) (*models.AnalysisResult, error) {
	rows := usableRows(snapshots, params.SampleSize)
	if len(rows) < MinUsableRows {
		return nil, fmt.Errorf("%w: %d usable rows, need at least %d", ErrInsufficientData, len(rows), MinUsableRows)
	}

	// Sample
	if err := stageErr(ctx, "sample"); err != nil {
		return nil, err
	}
	_, span := a.tracer.Start(ctx, "sample")
	samples := metrics.SampleSlippage(rows, params.BookDepthFraction(), params.OrderSizePoints)
	span.SetAttributes(attribute.Int("rows", len(rows)), attribute.Int("samples", len(samples)))
	span.End()

	// Fit
	if err := stageErr(ctx, "fit"); err != nil {
		return nil, err
	}
	_, span = a.tracer.Start(ctx, "fit")
	model, err := a.fit(samples)
	span.End()
	if err != nil {
		return nil, err
	}

	// Allocate
	if err := stageErr(ctx, "allocate"); err != nil {
		return nil, err
	}
	_, span = a.tracer.Start(ctx, "allocate")
	alloc, err := a.Allocate(params.TotalShares, params.TradingIntervals, model.PowerLaw)
	if err == nil {
		span.SetAttributes(attribute.String("status", string(alloc.Status)), attribute.Int("iterations", alloc.Iterations))
	}
	span.End()
	if err != nil {
		return nil, fmt.Errorf("allocate: %w", err)
	}
	if alloc.Status == models.AllocationFallback {
		a.logger.Warn("allocation_fallback",
			"total_shares", params.TotalShares,
			"intervals", params.TradingIntervals,
			"a", model.PowerLaw.A,
			"b", model.PowerLaw.B,
		)
	}

	// Risk
	if err := stageErr(ctx, "risk"); err != nil {
		return nil, err
	}
	_, span = a.tracer.Start(ctx, "risk")
	risk, err := metrics.CalculateRiskMetrics(alloc.Allocations, model.PowerLaw)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("risk metrics: %w", err)
	}

	a.logger.Debug("analysis_completed",
		"rows", len(rows),
		"samples", len(samples),
		"a", model.PowerLaw.A,
		"b", model.PowerLaw.B,
		"allocation_status", alloc.Status,
		"total_slippage_cost", risk.TotalSlippageCost,
	)

	return &models.AnalysisResult{
		ModelParams:  *model,
		SlippageData: samples,
		Allocation:   *alloc,
		RiskMetrics:  *risk,
	}, nil
}

// Allocate solves an allocation for an already fitted power law with the
// analyzer's solver.
func (a *Analyzer) Allocate(totalShares, intervals int, pl models.PowerLaw) (*models.Allocation, error) {
	return metrics.SolveAllocation(totalShares, intervals, pl, a.solver)
}

func (a *Analyzer) fit(samples []models.SlippagePoint) (*models.ModelParams, error) {
	if !a.tolerantLinear {
		return metrics.FitImpactModels(samples, a.fitter)
	}

	power, err := metrics.FitPowerLaw(samples, a.fitter)
	if err != nil {
		return nil, err
	}

	linear, err := metrics.FitLinear(samples, a.fitter)
	if err != nil {
		a.logger.Warn("linear_fit_failed", "samples", len(samples), "error", err)
	}

	return &models.ModelParams{Linear: linear, PowerLaw: *power}, nil
}

// usableRows applies the row limit, then drops rows missing a top of book.
func usableRows(snapshots []models.Snapshot, limit int) []models.Snapshot {
	if limit < len(snapshots) {
		snapshots = snapshots[:limit]
	}

	rows := make([]models.Snapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if s.HasTopOfBook() {
			rows = append(rows, s)
		}
	}
	return rows
}

func stageErr(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("before %s: %w", stage, err)
	}
	return nil
}
