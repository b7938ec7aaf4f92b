package models

import "time"

// SlippagePoint is one sampled (order size, slippage) pair.
type SlippagePoint struct {
	OrderSize float64 `json:"order_size"`
	Slippage  float64 `json:"slippage"`
}

// Linear is slippage = Beta * order_size.
type Linear struct {
	Beta float64 `json:"beta"`
}

// PowerLaw is slippage = A * order_size^B.
type PowerLaw struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// ModelParams holds both fitted impact models. Linear is nil only when the
// analyzer tolerates a failed linear fit.
type ModelParams struct {
	Linear   *Linear  `json:"linear"`
	PowerLaw PowerLaw `json:"power_law"`
}

// AllocationStatus tells callers whether an allocation is a solved optimum.
type AllocationStatus string

const (
	AllocationConverged AllocationStatus = "converged"
	AllocationFallback  AllocationStatus = "fallback"
)

// Allocation is the per-interval execution schedule.
type Allocation struct {
	TotalShares int              `json:"total_shares"`
	Intervals   int              `json:"intervals"`
	Allocations []float64        `json:"allocations"`
	Status      AllocationStatus `json:"status"`
	Iterations  int              `json:"iterations"`
}

// RiskMetrics summarises an allocation under the fitted power law.
type RiskMetrics struct {
	TotalSlippageCost  float64 `json:"total_slippage_cost"`
	MaxAllocation      float64 `json:"max_allocation"`
	MinAllocation      float64 `json:"min_allocation"`
	AllocationVariance float64 `json:"allocation_variance"`
	AllocationStd      float64 `json:"allocation_std"`
}

// AnalysisParams echoes the request parameters alongside a result.
type AnalysisParams struct {
	SampleSize      int       `json:"sample_size"`
	OrderSizePoints int       `json:"order_size_points"`
	BookDepthPct    float64   `json:"book_depth_pct"`
	Timestamp       time.Time `json:"timestamp"`
}

// AnalysisResult is the full output of one analysis.
type AnalysisResult struct {
	Ticker         string          `json:"ticker,omitempty"`
	ModelParams    ModelParams     `json:"model_params"`
	SlippageData   []SlippagePoint `json:"slippage_data"`
	Allocation     Allocation      `json:"allocation"`
	RiskMetrics    RiskMetrics     `json:"risk_metrics"`
	AnalysisParams *AnalysisParams `json:"analysis_params,omitempty"`
}

// BatchResult is one ticker entry of the batch export file.
type BatchResult struct {
	Ticker           string                      `json:"ticker"`
	ModelParams      PowerLaw                    `json:"model_params"`
	SlippageData     []SlippagePoint             `json:"slippage_data"`
	Allocations      map[string][]float64        `json:"allocations"`
	AllocationStatus map[string]AllocationStatus `json:"allocation_status"`
}

// ComparisonMetric is one scenario's entry in a comparison summary.
type ComparisonMetric struct {
	TotalCost          float64 `json:"total_cost"`
	MaxAllocation      float64 `json:"max_allocation"`
	AllocationVariance float64 `json:"allocation_variance"`
}
