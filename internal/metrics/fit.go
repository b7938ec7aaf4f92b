package metrics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"slippage/internal/models"
	"slippage/internal/numeric"
)

// ErrInsufficientData means the samples cannot support a model fit.
var ErrInsufficientData = errors.New("insufficient data to fit models")

const (
	// MinSamples is the smallest sample set a fit is attempted on.
	MinSamples = 2

	powerLawMaxEvaluations = 5000
)

// PowerLawSeed is the initial (a, b) guess for the power-law fit.
var PowerLawSeed = models.PowerLaw{A: 1e-5, B: 1.5}

var (
	linearCurve = numeric.CurveModel{
		Name:   "linear",
		Params: 1,
		Func: func(x float64, p []float64) float64 {
			return p[0] * x
		},
		Jacobian: func(dst []float64, x float64, _ []float64) {
			dst[0] = x
		},
	}

	powerLawCurve = numeric.CurveModel{
		Name:   "power_law",
		Params: 2,
		Func: func(x float64, p []float64) float64 {
			return p[0] * math.Pow(x, p[1])
		},
		Jacobian: func(dst []float64, x float64, p []float64) {
			xb := math.Pow(x, p[1])
			dst[0] = xb
			dst[1] = p[0] * xb * math.Log(x)
		},
	}
)

// FitLinear fits slippage = beta * order_size. The solver is seeded with the
// normal-equation solution sum(xy)/sum(xx), so it only has to confirm the
// optimum.
func FitLinear(samples []models.SlippagePoint, fitter numeric.CurveFitter) (*models.Linear, error) {
	x, y, err := sampleColumns(samples)
	if err != nil {
		return nil, err
	}

	res, err := fitter.FitCurve(numeric.CurveProblem{
		Model:   linearCurve,
		X:       x,
		Y:       y,
		Initial: []float64{linearSeed(x, y)},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: linear fit: %v", ErrInsufficientData, err)
	}

	return &models.Linear{Beta: res.Params[0]}, nil
}

// FitPowerLaw fits slippage = a * order_size^b from PowerLawSeed.
func FitPowerLaw(samples []models.SlippagePoint, fitter numeric.CurveFitter) (*models.PowerLaw, error) {
	x, y, err := sampleColumns(samples)
	if err != nil {
		return nil, err
	}

	res, err := fitter.FitCurve(numeric.CurveProblem{
		Model:          powerLawCurve,
		X:              x,
		Y:              y,
		Initial:        []float64{PowerLawSeed.A, PowerLawSeed.B},
		MaxEvaluations: powerLawMaxEvaluations,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: power law fit: %v", ErrInsufficientData, err)
	}

	return &models.PowerLaw{A: res.Params[0], B: res.Params[1]}, nil
}

// FitImpactModels fits both impact models to the same samples. Either fit
// failing makes the whole result unavailable.
func FitImpactModels(samples []models.SlippagePoint, fitter numeric.CurveFitter) (*models.ModelParams, error) {
	linear, err := FitLinear(samples, fitter)
	if err != nil {
		return nil, err
	}

	power, err := FitPowerLaw(samples, fitter)
	if err != nil {
		return nil, err
	}

	return &models.ModelParams{Linear: linear, PowerLaw: *power}, nil
}

// ImpactAt evaluates the power law at orderSize.
func ImpactAt(pl models.PowerLaw, orderSize float64) float64 {
	return pl.A * math.Pow(orderSize, pl.B)
}

// linearSeed returns sum(xy)/sum(xx), or 1 when the order sizes carry no
// information.
func linearSeed(x, y []float64) float64 {
	sxx := floats.Dot(x, x)
	beta := floats.Dot(x, y) / sxx
	if sxx == 0 || math.IsNaN(beta) || math.IsInf(beta, 0) {
		return 1
	}
	return beta
}

func sampleColumns(samples []models.SlippagePoint) ([]float64, []float64, error) {
	if len(samples) < MinSamples {
		return nil, nil, fmt.Errorf("%w: %d samples, need at least %d", ErrInsufficientData, len(samples), MinSamples)
	}

	x := make([]float64, len(samples))
	y := make([]float64, len(samples))
	for i, s := range samples {
		x[i] = s.OrderSize
		y[i] = s.Slippage
	}
	return x, y, nil
}
