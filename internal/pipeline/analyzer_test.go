package pipeline

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slippage/internal/models"
	"slippage/internal/numeric"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func book(n int) []models.Snapshot {
	out := make([]models.Snapshot, n)
	for i := range out {
		out[i] = models.Snapshot{
			BidPrice: 99.5,
			AskPrice: 100.0,
			Asks: []models.Level{
				{Price: 100.0, Size: 50},
				{Price: 100.5, Size: 50},
				{Price: 101.0, Size: 50},
			},
		}
	}
	return out
}

type failingFitter struct {
	model string
}

func (f failingFitter) FitCurve(p numeric.CurveProblem) (*numeric.FitResult, error) {
	if p.Model.Name == f.model {
		return nil, numeric.ErrNotConverged
	}
	return numeric.NewLevenbergMarquardt().FitCurve(p)
}

type failingSolver struct{}

func (failingSolver) SolveConstrained(numeric.ConstrainedProblem, []float64) (*numeric.Solution, error) {
	return nil, numeric.ErrNotConverged
}

func TestAnalyze(t *testing.T) {
	a := NewAnalyzer(WithLogger(testLogger()))

	result, err := a.Analyze(context.Background(), book(12), models.DefaultParams())
	require.NoError(t, err)
	require.NoError(t, models.ValidateResult(result))

	assert.Len(t, result.SlippageData, 12*20)
	assert.NotNil(t, result.ModelParams.Linear)
	assert.Greater(t, result.ModelParams.PowerLaw.B, 0.0)
	assert.Equal(t, 50000, result.Allocation.TotalShares)
	assert.Equal(t, 10, result.Allocation.Intervals)
	assert.Equal(t, models.AllocationConverged, result.Allocation.Status)
	assert.Empty(t, result.Ticker)
	assert.Nil(t, result.AnalysisParams)
}

func TestAnalyze_Idempotent(t *testing.T) {
	a := NewAnalyzer(WithLogger(testLogger()))
	params := models.DefaultParams()
	params.TotalShares = 10000

	first, err := a.Analyze(context.Background(), book(15), params)
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), book(15), params)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAnalyze_InsufficientRows(t *testing.T) {
	missingBid := book(12)
	for i := 0; i < 3; i++ {
		missingBid[i].BidPrice = math.NaN()
	}

	limited := models.DefaultParams()
	limited.SampleSize = 5

	tests := []struct {
		name   string
		rows   []models.Snapshot
		params models.Params
	}{
		{name: "nine rows", rows: book(9), params: models.DefaultParams()},
		{name: "rows without top of book", rows: missingBid, params: models.DefaultParams()},
		{name: "sample size below minimum", rows: book(20), params: limited},
		{name: "no rows", rows: nil, params: models.DefaultParams()},
	}

	a := NewAnalyzer(WithLogger(testLogger()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Analyze(context.Background(), tt.rows, tt.params)
			assert.ErrorIs(t, err, ErrInsufficientData)
		})
	}
}

func TestAnalyze_NoPositiveSamples(t *testing.T) {
	rows := book(12)
	for i := range rows {
		// ask at mid across the whole sampled depth
		rows[i].BidPrice = 100
		rows[i].Asks = []models.Level{{Price: 100, Size: 500}}
	}

	_, err := NewAnalyzer(WithLogger(testLogger())).Analyze(context.Background(), rows, models.DefaultParams())
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestAnalyze_MalformedParams(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(p *models.Params)
		field string
	}{
		{name: "one order size point", edit: func(p *models.Params) { p.OrderSizePoints = 1 }, field: "order_size_points"},
		{name: "zero depth", edit: func(p *models.Params) { p.BookDepthPct = 0 }, field: "book_depth_pct"},
		{name: "depth over 100", edit: func(p *models.Params) { p.BookDepthPct = 150 }, field: "book_depth_pct"},
		{name: "zero shares", edit: func(p *models.Params) { p.TotalShares = 0 }, field: "total_shares"},
		{name: "zero intervals", edit: func(p *models.Params) { p.TradingIntervals = 0 }, field: "trading_intervals"},
		{name: "zero sample size", edit: func(p *models.Params) { p.SampleSize = 0 }, field: "sample_size"},
	}

	a := NewAnalyzer(WithLogger(testLogger()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := models.DefaultParams()
			tt.edit(&params)

			_, err := a.Analyze(context.Background(), book(12), params)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tt.field)
		})
	}
}

func TestAnalyze_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAnalyzer(WithLogger(testLogger())).Analyze(ctx, book(12), models.DefaultParams())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyze_FitFailures(t *testing.T) {
	t.Run("power law failure aborts", func(t *testing.T) {
		a := NewAnalyzer(WithLogger(testLogger()), WithCurveFitter(failingFitter{model: "power_law"}))
		_, err := a.Analyze(context.Background(), book(12), models.DefaultParams())
		assert.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("linear failure aborts by default", func(t *testing.T) {
		a := NewAnalyzer(WithLogger(testLogger()), WithCurveFitter(failingFitter{model: "linear"}))
		_, err := a.Analyze(context.Background(), book(12), models.DefaultParams())
		assert.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("linear failure tolerated", func(t *testing.T) {
		a := NewAnalyzer(
			WithLogger(testLogger()),
			WithCurveFitter(failingFitter{model: "linear"}),
			WithTolerantLinearFit(),
		)
		result, err := a.Analyze(context.Background(), book(12), models.DefaultParams())
		require.NoError(t, err)
		assert.Nil(t, result.ModelParams.Linear)
		assert.NoError(t, models.ValidateResult(result))
	})
}

func TestAnalyze_SolverFallback(t *testing.T) {
	a := NewAnalyzer(WithLogger(testLogger()), WithSolver(failingSolver{}))
	params := models.DefaultParams()
	params.TotalShares = 10000

	result, err := a.Analyze(context.Background(), book(12), params)
	require.NoError(t, err)
	assert.Equal(t, models.AllocationFallback, result.Allocation.Status)
	for _, v := range result.Allocation.Allocations {
		assert.Equal(t, 1000.0, v)
	}
	assert.Equal(t, 0.0, result.RiskMetrics.AllocationVariance)
}

func TestAnalyze_SingleInterval(t *testing.T) {
	params := models.DefaultParams()
	params.TradingIntervals = 1

	result, err := NewAnalyzer(WithLogger(testLogger())).Analyze(context.Background(), book(12), params)
	require.NoError(t, err)
	assert.Equal(t, []float64{50000}, result.Allocation.Allocations)
}

func TestAnalyze_TwoOrderSizePoints(t *testing.T) {
	params := models.DefaultParams()
	params.OrderSizePoints = 2

	result, err := NewAnalyzer(WithLogger(testLogger())).Analyze(context.Background(), book(12), params)
	require.NoError(t, err)
	assert.Len(t, result.SlippageData, 24)
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{
		"total_shares":      "must be greater than 0",
		"trading_intervals": "must be greater than 0",
	}}
	assert.Equal(t,
		"invalid parameters: total_shares must be greater than 0; trading_intervals must be greater than 0",
		err.Error())
}
