package numeric

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// DefaultTolerance matches the MINPACK ftol/xtol defaults.
	DefaultTolerance = 1.49012e-8

	maxDamping = 1e16
	minDamping = 1e-15
	minScale   = 1e-300
)

// LevenbergMarquardt is a damped Gauss-Newton least-squares fitter with
// Marquardt diagonal scaling. It is deterministic for a fixed problem.
type LevenbergMarquardt struct {
	FTol           float64 // relative cost reduction treated as converged
	XTol           float64 // relative scaled step treated as converged
	InitialDamping float64
}

// NewLevenbergMarquardt returns a fitter with MINPACK-like tolerances.
func NewLevenbergMarquardt() *LevenbergMarquardt {
	return &LevenbergMarquardt{
		FTol:           DefaultTolerance,
		XTol:           DefaultTolerance,
		InitialDamping: 1e-3,
	}
}

// DefaultMaxEvaluations is the evaluation budget used when a problem leaves
// MaxEvaluations unset.
func DefaultMaxEvaluations(params int) int {
	return 200 * (params + 1)
}

// FitCurve minimises the sum of squared residuals of problem.
//
// Convergence is declared when the scaled step falls below XTol, when an
// accepted near Gauss-Newton step reduces the cost by at most FTol, or when
// the undamped Gauss-Newton model predicts a relative reduction of at most
// FTol, which means the cost already sits at its rounding floor. Exhausting
// the evaluation budget or the damping range returns ErrNotConverged.
func (lm *LevenbergMarquardt) FitCurve(problem CurveProblem) (*FitResult, error) {
	if err := problem.validate(); err != nil {
		return nil, err
	}

	m := problem.Model.Params
	n := len(problem.X)
	maxEval := problem.MaxEvaluations
	if maxEval <= 0 {
		maxEval = DefaultMaxEvaluations(m)
	}

	p := make([]float64, m)
	copy(p, problem.Initial)

	residuals := make([]float64, n)
	cost := problem.residuals(residuals, p)
	evals := 1
	if math.IsInf(cost, 0) {
		return nil, fmt.Errorf("%w: non-finite residuals at initial guess", ErrNotConverged)
	}

	jac := mat.NewDense(n, m, nil)
	row := make([]float64, m)
	scale := make([]float64, m)
	trial := make([]float64, m)
	trialResiduals := make([]float64, n)
	scaledStep := make([]float64, m)
	scaledParams := make([]float64, m)
	damping := lm.InitialDamping

	for evals < maxEval {
		if cost == 0 {
			return &FitResult{Params: p, Cost: cost, Evaluations: evals}, nil
		}

		for i, x := range problem.X {
			problem.Model.Jacobian(row, x, p)
			jac.SetRow(i, row)
		}

		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		var jtr mat.VecDense
		jtr.MulVec(jac.T(), mat.NewVecDense(n, residuals))

		for j := 0; j < m; j++ {
			scale[j] = math.Max(jtj.At(j, j), minScale)
		}

		if lm.atCostFloor(&jtj, &jtr, cost) {
			return &FitResult{Params: p, Cost: cost, Evaluations: evals}, nil
		}

		for evals < maxEval {
			used := damping

			a := mat.DenseCopyOf(&jtj)
			for j := 0; j < m; j++ {
				a.Set(j, j, a.At(j, j)+used*scale[j])
			}

			var step mat.VecDense
			if err := step.SolveVec(a, &jtr); err != nil {
				damping *= 10
				if damping > maxDamping {
					return nil, fmt.Errorf("%w: singular normal equations", ErrNotConverged)
				}
				continue
			}

			delta := step.RawVector().Data
			floats.AddTo(trial, p, delta)
			trialCost := problem.residuals(trialResiduals, trial)
			evals++

			for j := 0; j < m; j++ {
				d := math.Sqrt(scale[j])
				scaledStep[j] = d * delta[j]
				scaledParams[j] = d * p[j]
			}
			small := floats.Norm(scaledStep, 2) <= lm.XTol*(floats.Norm(scaledParams, 2)+lm.XTol)
			gaussNewton := used <= lm.InitialDamping

			if trialCost < cost {
				reduction := (cost - trialCost) / cost
				copy(p, trial)
				copy(residuals, trialResiduals)
				cost = trialCost
				damping = math.Max(damping/10, minDamping)

				if small || (gaussNewton && reduction <= lm.FTol) {
					return &FitResult{Params: p, Cost: cost, Evaluations: evals}, nil
				}
				break
			}

			// A rejected step this short cannot move the fit, whatever the
			// damping that produced it.
			if small {
				return &FitResult{Params: p, Cost: cost, Evaluations: evals}, nil
			}

			damping *= 10
			if damping > maxDamping {
				return nil, fmt.Errorf("%w: no further reduction possible", ErrNotConverged)
			}
		}
	}

	return nil, fmt.Errorf("%w: evaluation budget of %d exhausted", ErrNotConverged, maxEval)
}

// atCostFloor reports whether the full Gauss-Newton step predicts a relative
// cost reduction of at most FTol. The prediction is g'(J'J)^-1 g for g = J'r.
func (lm *LevenbergMarquardt) atCostFloor(jtj *mat.Dense, jtr *mat.VecDense, cost float64) bool {
	var gn mat.VecDense
	if err := gn.SolveVec(jtj, jtr); err != nil {
		return false
	}
	predicted := mat.Dot(&gn, jtr)
	if math.IsNaN(predicted) || math.IsInf(predicted, 0) || predicted < 0 {
		return false
	}
	return predicted <= lm.FTol*cost
}

func (p CurveProblem) validate() error {
	model := p.Model
	if model.Params <= 0 || model.Func == nil || model.Jacobian == nil {
		return fmt.Errorf("%w: model %q is incomplete", ErrInvalidProblem, model.Name)
	}
	if len(p.X) != len(p.Y) {
		return fmt.Errorf("%w: %d x values but %d y values", ErrInvalidProblem, len(p.X), len(p.Y))
	}
	if len(p.X) < model.Params {
		return fmt.Errorf("%w: %d samples for %d parameters", ErrInvalidProblem, len(p.X), model.Params)
	}
	if len(p.Initial) != model.Params {
		return fmt.Errorf("%w: initial guess has %d values, model needs %d",
			ErrInvalidProblem, len(p.Initial), model.Params)
	}
	return nil
}

// residuals fills dst with y - f(x) and returns the sum of squares, or +Inf
// when any residual is not finite.
func (p CurveProblem) residuals(dst, params []float64) float64 {
	sum := 0.0
	for i, x := range p.X {
		r := p.Y[i] - p.Model.Func(x, params)
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return math.Inf(1)
		}
		dst[i] = r
		sum += r * r
	}
	return sum
}
