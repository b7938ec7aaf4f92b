// Package numeric holds the two numerical capabilities the impact pipeline
// depends on: least-squares curve fitting and smooth minimisation under a
// single sum constraint with box bounds. Both sit behind small interfaces so
// callers can swap the implementation.
package numeric

import "errors"

var (
	// ErrNotConverged is returned when a solver exhausts its budget.
	ErrNotConverged = errors.New("solver did not converge")

	// ErrInvalidProblem is returned for malformed problem definitions.
	ErrInvalidProblem = errors.New("invalid problem")
)

// CurveModel is a parametric curve y = Func(x; p).
type CurveModel struct {
	Name   string
	Params int
	Func   func(x float64, p []float64) float64
	// Jacobian writes dFunc/dp_j at x into dst (len Params).
	Jacobian func(dst []float64, x float64, p []float64)
}

// CurveProblem describes one least-squares fit.
type CurveProblem struct {
	Model          CurveModel
	X              []float64
	Y              []float64
	Initial        []float64
	MaxEvaluations int
}

// FitResult is the outcome of a successful fit.
type FitResult struct {
	Params      []float64
	Cost        float64 // sum of squared residuals
	Evaluations int
}

// CurveFitter fits a model to (x, y) samples.
type CurveFitter interface {
	FitCurve(problem CurveProblem) (*FitResult, error)
}

// ConstrainedProblem minimises Objective subject to sum(x) == Total and
// Lower[i] <= x[i] <= Upper[i].
type ConstrainedProblem struct {
	Objective func(x []float64) float64
	Gradient  func(grad, x []float64)
	Total     float64
	Lower     []float64
	Upper     []float64
}

// Solution is the outcome of a constrained solve.
type Solution struct {
	X          []float64
	F          float64
	Iterations int
}

// ConstrainedSolver solves a ConstrainedProblem from a feasible start.
type ConstrainedSolver interface {
	SolveConstrained(problem ConstrainedProblem, x0 []float64) (*Solution, error)
}
