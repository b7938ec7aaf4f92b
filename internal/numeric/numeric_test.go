package numeric

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	linearModel = CurveModel{
		Name:   "linear",
		Params: 1,
		Func:   func(x float64, p []float64) float64 { return p[0] * x },
		Jacobian: func(dst []float64, x float64, _ []float64) {
			dst[0] = x
		},
	}
	powerModel = CurveModel{
		Name:   "power_law",
		Params: 2,
		Func:   func(x float64, p []float64) float64 { return p[0] * math.Pow(x, p[1]) },
		Jacobian: func(dst []float64, x float64, p []float64) {
			xb := math.Pow(x, p[1])
			dst[0] = xb
			dst[1] = p[0] * xb * math.Log(x)
		},
	}
)

func series(n int, f func(x float64) float64) ([]float64, []float64) {
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i + 1)
		ys[i] = f(xs[i])
	}
	return xs, ys
}

func TestLevenbergMarquardt_LinearRecovery(t *testing.T) {
	xs, ys := series(50, func(x float64) float64 { return 0.0025 * x })

	res, err := NewLevenbergMarquardt().FitCurve(CurveProblem{
		Model:   linearModel,
		X:       xs,
		Y:       ys,
		Initial: []float64{1},
	})
	require.NoError(t, err)
	assert.InEpsilon(t, 0.0025, res.Params[0], 1e-6)
	assert.LessOrEqual(t, res.Evaluations, DefaultMaxEvaluations(1))
}

// noisyLinear returns n samples of beta*x scattered by up to 30% so the
// optimal cost is far from zero.
func noisyLinear(n int, beta float64) ([]float64, []float64, float64) {
	rng := rand.New(rand.NewSource(12))
	xs := make([]float64, n)
	ys := make([]float64, n)
	sxy, sxx := 0.0, 0.0
	for i := range xs {
		xs[i] = 1 + rng.Float64()*5000
		ys[i] = beta * xs[i] * (1 + 0.3*(2*rng.Float64()-1))
		sxy += xs[i] * ys[i]
		sxx += xs[i] * xs[i]
	}
	return xs, ys, sxy / sxx
}

func TestLevenbergMarquardt_NoisyLinear(t *testing.T) {
	xs, ys, best := noisyLinear(4000, 5e-5)

	tests := []struct {
		name    string
		initial float64
		epsilon float64
	}{
		{name: "far seed", initial: 1, epsilon: 1e-4},
		{name: "seed at optimum", initial: best, epsilon: 1e-9},
		{name: "seed just off optimum", initial: best * (1 + 1e-9), epsilon: 1e-8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewLevenbergMarquardt().FitCurve(CurveProblem{
				Model:   linearModel,
				X:       xs,
				Y:       ys,
				Initial: []float64{tt.initial},
			})
			require.NoError(t, err)
			assert.InEpsilon(t, best, res.Params[0], tt.epsilon)
			assert.LessOrEqual(t, res.Evaluations, DefaultMaxEvaluations(1))
		})
	}
}

func TestLevenbergMarquardt_PowerLawRecovery(t *testing.T) {
	xs, ys := series(100, func(x float64) float64 { return 0.002 * math.Pow(x, 1.3) })

	res, err := NewLevenbergMarquardt().FitCurve(CurveProblem{
		Model:          powerModel,
		X:              xs,
		Y:              ys,
		Initial:        []float64{1e-5, 1.5},
		MaxEvaluations: 5000,
	})
	require.NoError(t, err)
	assert.InEpsilon(t, 0.002, res.Params[0], 1e-4)
	assert.InEpsilon(t, 1.3, res.Params[1], 1e-4)
}

func TestLevenbergMarquardt_Deterministic(t *testing.T) {
	xs, ys := series(40, func(x float64) float64 { return 0.01*math.Pow(x, 0.8) + 0.001*math.Sin(x) })
	problem := CurveProblem{Model: powerModel, X: xs, Y: ys, Initial: []float64{1e-5, 1.5}, MaxEvaluations: 5000}

	first, err := NewLevenbergMarquardt().FitCurve(problem)
	require.NoError(t, err)
	second, err := NewLevenbergMarquardt().FitCurve(problem)
	require.NoError(t, err)
	assert.Equal(t, first.Params, second.Params)
}

func TestLevenbergMarquardt_BudgetExhausted(t *testing.T) {
	xs, ys := series(20, func(x float64) float64 { return 0.002 * math.Pow(x, 1.3) })

	_, err := NewLevenbergMarquardt().FitCurve(CurveProblem{
		Model:          powerModel,
		X:              xs,
		Y:              ys,
		Initial:        []float64{1e-5, 1.5},
		MaxEvaluations: 1,
	})
	assert.ErrorIs(t, err, ErrNotConverged)
}

func TestLevenbergMarquardt_InvalidProblem(t *testing.T) {
	tests := []struct {
		name    string
		problem CurveProblem
	}{
		{
			name:    "mismatched lengths",
			problem: CurveProblem{Model: linearModel, X: []float64{1, 2}, Y: []float64{1}, Initial: []float64{1}},
		},
		{
			name:    "fewer samples than parameters",
			problem: CurveProblem{Model: powerModel, X: []float64{1}, Y: []float64{1}, Initial: []float64{1, 1}},
		},
		{
			name:    "wrong initial length",
			problem: CurveProblem{Model: powerModel, X: []float64{1, 2}, Y: []float64{1, 2}, Initial: []float64{1}},
		},
		{
			name:    "missing jacobian",
			problem: CurveProblem{Model: CurveModel{Name: "x", Params: 1}, X: []float64{1}, Y: []float64{1}, Initial: []float64{1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLevenbergMarquardt().FitCurve(tt.problem)
			assert.ErrorIs(t, err, ErrInvalidProblem)
		})
	}
}

func quadratic(weights, centre []float64) (func([]float64) float64, func(grad, x []float64)) {
	obj := func(x []float64) float64 {
		sum := 0.0
		for i := range x {
			d := x[i] - centre[i]
			sum += weights[i] * d * d
		}
		return sum
	}
	grad := func(g, x []float64) {
		for i := range x {
			g[i] = 2 * weights[i] * (x[i] - centre[i])
		}
	}
	return obj, grad
}

func bounds(n int, lo, hi float64) ([]float64, []float64) {
	l := make([]float64, n)
	u := make([]float64, n)
	for i := range l {
		l[i], u[i] = lo, hi
	}
	return l, u
}

func TestProjectedGradient(t *testing.T) {
	tests := []struct {
		name    string
		weights []float64
		centre  []float64
		total   float64
		want    []float64
	}{
		{
			name:    "active lower bounds",
			weights: []float64{1, 1, 1},
			centre:  []float64{10, -5, 1},
			total:   6,
			want:    []float64{6, 0, 0},
		},
		{
			name:    "weighted interior optimum",
			weights: []float64{1, 2, 4},
			centre:  []float64{0, 0, 0},
			total:   7,
			want:    []float64{4, 2, 1},
		},
		{
			name:    "uniform optimum",
			weights: []float64{3, 3, 3, 3},
			centre:  []float64{0, 0, 0, 0},
			total:   100,
			want:    []float64{25, 25, 25, 25},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, grad := quadratic(tt.weights, tt.centre)
			n := len(tt.weights)
			lower, upper := bounds(n, 0, tt.total)
			x0 := make([]float64, n)
			for i := range x0 {
				x0[i] = tt.total / float64(n)
			}

			sol, err := NewProjectedGradient().SolveConstrained(ConstrainedProblem{
				Objective: obj,
				Gradient:  grad,
				Total:     tt.total,
				Lower:     lower,
				Upper:     upper,
			}, x0)
			require.NoError(t, err)
			require.Len(t, sol.X, n)
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], sol.X[i], 1e-6)
			}
			sum := 0.0
			for _, v := range sol.X {
				sum += v
			}
			assert.InDelta(t, tt.total, sum, 1e-6)
		})
	}
}

func TestProjectedGradient_StationaryStartUnchanged(t *testing.T) {
	obj, grad := quadratic([]float64{1, 1, 1, 1, 1}, make([]float64, 5))
	lower, upper := bounds(5, 0, 50)
	x0 := []float64{10, 10, 10, 10, 10}

	sol, err := NewProjectedGradient().SolveConstrained(ConstrainedProblem{
		Objective: obj, Gradient: grad, Total: 50, Lower: lower, Upper: upper,
	}, x0)
	require.NoError(t, err)
	assert.Equal(t, x0, sol.X)
	assert.Equal(t, 1, sol.Iterations)
}

func TestProjectedGradient_IterationBudget(t *testing.T) {
	obj, grad := quadratic([]float64{1, 50, 1000}, []float64{0, 0, 0})
	lower, upper := bounds(3, 0, 10)

	solver := NewProjectedGradient()
	solver.MaxIterations = 1
	_, err := solver.SolveConstrained(ConstrainedProblem{
		Objective: obj, Gradient: grad, Total: 10, Lower: lower, Upper: upper,
	}, []float64{10.0 / 3, 10.0 / 3, 10.0 / 3})
	assert.ErrorIs(t, err, ErrNotConverged)
}

func TestProjectedGradient_InvalidProblem(t *testing.T) {
	obj, grad := quadratic([]float64{1, 1}, []float64{0, 0})
	lower, upper := bounds(2, 0, 1)

	_, err := NewProjectedGradient().SolveConstrained(ConstrainedProblem{
		Objective: obj, Gradient: grad, Total: 5, Lower: lower, Upper: upper,
	}, []float64{2.5, 2.5})
	assert.ErrorIs(t, err, ErrInvalidProblem)
}

func TestProject(t *testing.T) {
	lower, upper := bounds(3, 0, 10)
	dst := make([]float64, 3)

	project(dst, []float64{5, 5, 5}, lower, upper, 9)
	for _, v := range dst {
		assert.InDelta(t, 3, v, 1e-9)
	}

	project(dst, []float64{20, -3, 1}, lower, upper, 10)
	assert.InDelta(t, 10, dst[0], 1e-9)
	assert.InDelta(t, 0, dst[1], 1e-9)
	assert.InDelta(t, 0, dst[2], 1e-9)
}
