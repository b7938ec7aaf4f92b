package metrics

import (
	"errors"
	"fmt"
	"math"

	"slippage/internal/models"
	"slippage/internal/numeric"
)

// ErrInvalidAllocation is returned for allocation inputs that cannot be solved.
var ErrInvalidAllocation = errors.New("invalid allocation input")

// gradientFloor keeps x^b finite at x == 0 when b < 0.
const gradientFloor = 1e-12

// IntervalCost is the expected slippage cost a * x^b * x of trading x shares
// in one interval, with IntervalCost(0) == 0.
func IntervalCost(pl models.PowerLaw, x float64) float64 {
	if x == 0 {
		return 0
	}
	return ImpactAt(pl, x) * x
}

// TotalCost sums IntervalCost over an allocation.
func TotalCost(pl models.PowerLaw, allocations []float64) float64 {
	total := 0.0
	for _, x := range allocations {
		total += IntervalCost(pl, x)
	}
	return total
}

// UniformAllocation splits totalShares evenly over intervals.
func UniformAllocation(totalShares float64, intervals int) []float64 {
	out := make([]float64, intervals)
	for i := range out {
		out[i] = totalShares / float64(intervals)
	}
	return out
}

// SolveAllocation splits totalShares over intervals to minimise TotalCost
// subject to sum == totalShares and 0 <= x_i <= totalShares.
//
// Solver failure does not fail the call: the uniform split is returned with
// status AllocationFallback.
func SolveAllocation(totalShares, intervals int, pl models.PowerLaw, solver numeric.ConstrainedSolver) (*models.Allocation, error) {
	if totalShares <= 0 || intervals <= 0 {
		return nil, fmt.Errorf("%w: total_shares=%d intervals=%d (must be > 0)", ErrInvalidAllocation, totalShares, intervals)
	}
	if !finite(pl.A) || !finite(pl.B) {
		return nil, fmt.Errorf("%w: non-finite power law a=%f b=%f", ErrInvalidAllocation, pl.A, pl.B)
	}

	total := float64(totalShares)
	alloc := &models.Allocation{
		TotalShares: totalShares,
		Intervals:   intervals,
		Status:      models.AllocationConverged,
	}

	if intervals == 1 {
		alloc.Allocations = []float64{total}
		return alloc, nil
	}

	lower := make([]float64, intervals)
	upper := make([]float64, intervals)
	for i := range upper {
		upper[i] = total
	}

	problem := numeric.ConstrainedProblem{
		Objective: func(x []float64) float64 { return TotalCost(pl, x) },
		Gradient: func(grad, x []float64) {
			for i, v := range x {
				if pl.B < 0 {
					v = math.Max(v, gradientFloor)
				}
				grad[i] = pl.A * (pl.B + 1) * math.Pow(v, pl.B)
			}
		},
		Total: total,
		Lower: lower,
		Upper: upper,
	}

	sol, err := solver.SolveConstrained(problem, UniformAllocation(total, intervals))
	if err != nil || !usable(sol.X, intervals) {
		alloc.Allocations = UniformAllocation(total, intervals)
		alloc.Status = models.AllocationFallback
		return alloc, nil
	}

	alloc.Allocations = sol.X
	alloc.Iterations = sol.Iterations
	return alloc, nil
}

func usable(x []float64, n int) bool {
	if len(x) != n {
		return false
	}
	for _, v := range x {
		if !finite(v) || v < 0 {
			return false
		}
	}
	return true
}
