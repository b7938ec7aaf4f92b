package numeric

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const projectionBisections = 200

// ProjectedGradient minimises a smooth objective over the capped simplex
// {sum(x) == Total, Lower <= x <= Upper} using projected gradient steps with
// Armijo backtracking.
type ProjectedGradient struct {
	MaxIterations int
	// Tolerance is relative to the problem scale (max of |Total| and the
	// widest bound interval).
	Tolerance     float64
	ArmijoC       float64
	MaxBacktracks int
}

// NewProjectedGradient returns a solver with the defaults used by the
// allocation stage.
func NewProjectedGradient() *ProjectedGradient {
	return &ProjectedGradient{
		MaxIterations: 1000,
		Tolerance:     1e-10,
		ArmijoC:       1e-4,
		MaxBacktracks: 60,
	}
}

// SolveConstrained runs the solver from x0, which is first projected onto the
// feasible set. A start that is already stationary is returned unchanged.
func (s *ProjectedGradient) SolveConstrained(problem ConstrainedProblem, x0 []float64) (*Solution, error) {
	if err := problem.validate(len(x0)); err != nil {
		return nil, err
	}

	n := len(x0)
	x := make([]float64, n)
	if feasible(x0, problem) {
		copy(x, x0)
	} else {
		project(x, x0, problem.Lower, problem.Upper, problem.Total)
	}

	f := problem.Objective(x)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: non-finite objective at start", ErrNotConverged)
	}

	scale := math.Max(math.Abs(problem.Total), 1)
	for i := range problem.Lower {
		scale = math.Max(scale, problem.Upper[i]-problem.Lower[i])
	}
	tol := s.Tolerance * scale

	grad := make([]float64, n)
	y := make([]float64, n)
	trial := make([]float64, n)

	for iter := 1; iter <= s.MaxIterations; iter++ {
		problem.Gradient(grad, x)
		if !allFinite(grad) {
			return nil, fmt.Errorf("%w: non-finite gradient at iteration %d", ErrNotConverged, iter)
		}

		gmax := floats.Norm(grad, math.Inf(1))
		if gmax == 0 {
			return &Solution{X: x, F: f, Iterations: iter}, nil
		}
		step := scale / gmax

		floats.AddScaledTo(y, x, -step, grad)
		project(trial, y, problem.Lower, problem.Upper, problem.Total)
		if floats.Distance(trial, x, math.Inf(1)) <= tol {
			return &Solution{X: x, F: f, Iterations: iter}, nil
		}

		gx := floats.Dot(grad, x)
		accepted := false
		var ft float64
		for k := 0; k < s.MaxBacktracks; k++ {
			if k > 0 {
				step /= 2
				floats.AddScaledTo(y, x, -step, grad)
				project(trial, y, problem.Lower, problem.Upper, problem.Total)
			}
			ft = problem.Objective(trial)
			if ft <= f+s.ArmijoC*(floats.Dot(grad, trial)-gx) {
				accepted = true
				break
			}
		}
		if !accepted {
			// No descent left at any resolvable step length.
			return &Solution{X: x, F: f, Iterations: iter}, nil
		}

		moved := floats.Distance(trial, x, math.Inf(1))
		copy(x, trial)
		f = ft
		if moved <= tol {
			return &Solution{X: x, F: f, Iterations: iter}, nil
		}
	}

	return nil, fmt.Errorf("%w: %d iterations", ErrNotConverged, s.MaxIterations)
}

func (p ConstrainedProblem) validate(n int) error {
	if p.Objective == nil || p.Gradient == nil {
		return fmt.Errorf("%w: objective and gradient are required", ErrInvalidProblem)
	}
	if n == 0 || len(p.Lower) != n || len(p.Upper) != n {
		return fmt.Errorf("%w: bounds do not match %d variables", ErrInvalidProblem, n)
	}
	for i := range p.Lower {
		if !(p.Lower[i] <= p.Upper[i]) {
			return fmt.Errorf("%w: empty bound interval at %d", ErrInvalidProblem, i)
		}
	}
	if floats.Sum(p.Lower) > p.Total || floats.Sum(p.Upper) < p.Total {
		return fmt.Errorf("%w: total %g outside reachable range", ErrInvalidProblem, p.Total)
	}
	return nil
}

func feasible(x []float64, p ConstrainedProblem) bool {
	for i, v := range x {
		if v < p.Lower[i] || v > p.Upper[i] {
			return false
		}
	}
	return math.Abs(floats.Sum(x)-p.Total) <= 1e-12*math.Max(math.Abs(p.Total), 1)
}

// project writes the Euclidean projection of y onto the capped simplex into
// dst. The projection is clip(y - tau, lower, upper) for the shift tau that
// restores the total, found by bisection.
func project(dst, y, lower, upper []float64, total float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range y {
		lo = math.Min(lo, y[i]-upper[i])
		hi = math.Max(hi, y[i]-lower[i])
	}

	for k := 0; k < projectionBisections; k++ {
		mid := lo + (hi-lo)/2
		if mid <= lo || mid >= hi {
			break
		}
		if shiftedSum(y, lower, upper, mid) > total {
			lo = mid
		} else {
			hi = mid
		}
	}

	tau := lo + (hi-lo)/2
	for i := range y {
		dst[i] = clamp(y[i]-tau, lower[i], upper[i])
	}
}

func shiftedSum(y, lower, upper []float64, tau float64) float64 {
	sum := 0.0
	for i := range y {
		sum += clamp(y[i]-tau, lower[i], upper[i])
	}
	return sum
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
