package models

import (
	"fmt"
	"math"
)

// sumTolerance is the relative tolerance on sum(allocations) == total_shares.
const sumTolerance = 1e-6

// ValidateResult checks an analysis result against its business rules.
func ValidateResult(result *AnalysisResult) error {
	if result == nil {
		return fmt.Errorf("result is nil")
	}

	// Model parameters must be usable downstream
	pl := result.ModelParams.PowerLaw
	if !isFinite(pl.A) || !isFinite(pl.B) {
		return fmt.Errorf("power law parameters must be finite: a=%f b=%f", pl.A, pl.B)
	}
	if lin := result.ModelParams.Linear; lin != nil && !isFinite(lin.Beta) {
		return fmt.Errorf("linear beta must be finite, got %f", lin.Beta)
	}

	for i, p := range result.SlippageData {
		if p.Slippage <= 0 {
			return fmt.Errorf("slippage_data[%d] has non-positive slippage %f", i, p.Slippage)
		}
	}

	if err := validateAllocation(&result.Allocation); err != nil {
		return err
	}

	// Risk metrics consistency
	rm := result.RiskMetrics
	if rm.MinAllocation > rm.MaxAllocation {
		return fmt.Errorf("min_allocation %f exceeds max_allocation %f", rm.MinAllocation, rm.MaxAllocation)
	}
	if rm.AllocationVariance < 0 {
		return fmt.Errorf("allocation_variance must be non-negative, got %f", rm.AllocationVariance)
	}
	if diff := math.Abs(rm.AllocationStd - math.Sqrt(rm.AllocationVariance)); diff > 1e-9*math.Max(1, rm.AllocationStd) {
		return fmt.Errorf("allocation_std %f is not sqrt(allocation_variance %f)", rm.AllocationStd, rm.AllocationVariance)
	}

	return nil
}

func validateAllocation(a *Allocation) error {
	if a.Intervals <= 0 {
		return fmt.Errorf("intervals must be positive, got %d", a.Intervals)
	}
	if len(a.Allocations) != a.Intervals {
		return fmt.Errorf("allocation has %d entries for %d intervals", len(a.Allocations), a.Intervals)
	}

	switch a.Status {
	case AllocationConverged, AllocationFallback:
	default:
		return fmt.Errorf("invalid allocation status: %s", a.Status)
	}

	sum := 0.0
	for i, v := range a.Allocations {
		if !isFinite(v) || v < 0 {
			return fmt.Errorf("allocations[%d] must be finite and non-negative, got %f", i, v)
		}
		sum += v
	}

	total := float64(a.TotalShares)
	if math.Abs(sum-total) > sumTolerance*math.Max(1, total) {
		return fmt.Errorf("allocations sum to %f, expected %d", sum, a.TotalShares)
	}

	return nil
}
