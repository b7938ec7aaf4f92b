package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"slippage/internal/models"
)

// CalculateRiskMetrics summarises an allocation under the power law pl.
//
// - total_slippage_cost: sum of a * x^b * x
// - allocation_variance: population variance of the allocations
// - allocation_std: sqrt(allocation_variance)
func CalculateRiskMetrics(allocations []float64, pl models.PowerLaw) (*models.RiskMetrics, error) {
	if len(allocations) == 0 {
		return nil, fmt.Errorf("empty allocation")
	}

	variance := stat.PopVariance(allocations, nil)

	return &models.RiskMetrics{
		TotalSlippageCost:  TotalCost(pl, allocations),
		MaxAllocation:      floats.Max(allocations),
		MinAllocation:      floats.Min(allocations),
		AllocationVariance: variance,
		AllocationStd:      math.Sqrt(variance),
	}, nil
}
