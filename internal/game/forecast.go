package game

import (
	"math"
	"math/rand"
)

// Forecaster turns a nameplate capacity and a period availability factor into
// the renewable bid ceiling for that period. The ceiling stands in for actual
// generation deviating from forecast.
type Forecaster interface {
	Ceiling(nameplateMW, profile float64) float64
}

// GaussianForecaster applies multiplicative noise with mean 1.0 and truncates
// to whole MW, never below zero.
type GaussianForecaster struct {
	Sigma float64
	rng   *rand.Rand
}

func NewGaussianForecaster(sigma float64, rng *rand.Rand) *GaussianForecaster {
	return &GaussianForecaster{Sigma: sigma, rng: rng}
}

func (f *GaussianForecaster) Ceiling(nameplateMW, profile float64) float64 {
	c := math.Floor(nameplateMW * profile * (1 + f.Sigma*f.rng.NormFloat64()))
	if c < 0 {
		return 0
	}
	return c
}

// FixedForecaster returns nameplate × profile unmodified. Used in tests and
// demos where reproducibility matters more than realism.
type FixedForecaster struct{}

func (FixedForecaster) Ceiling(nameplateMW, profile float64) float64 {
	return math.Floor(nameplateMW * profile)
}
