package changepoint

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testReturns(n int, breakAt int, mu1, mu2, sd float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		mu := mu1
		if i >= breakAt {
			mu = mu2
		}
		out[i] = mu + sd*rng.NormFloat64()
	}
	return out
}

func TestNewModelRejectsBadInput(t *testing.T) {
	t.Parallel()

	var mf *ModelFailure

	_, err := NewModel(nil)
	assert.ErrorAs(t, err, &mf)

	_, err = NewModel([]float64{0.01})
	assert.ErrorAs(t, err, &mf)

	_, err = NewModel([]float64{0.01, math.NaN(), 0.02})
	assert.ErrorAs(t, err, &mf)

	_, err = NewModel([]float64{0.01, math.Inf(1)})
	assert.ErrorAs(t, err, &mf)
}

func TestLogPosteriorPrefersTrueBreak(t *testing.T) {
	t.Parallel()

	returns := testReturns(200, 100, 0.0, 0.05, 0.01, 7)
	m, err := NewModel(returns)
	assert.NoError(t, err)

	eta := math.Log(0.01)
	at100 := m.LogPosterior(100, 0.0, 0.05, eta)
	at50 := m.LogPosterior(50, 0.0, 0.05, eta)
	at150 := m.LogPosterior(150, 0.0, 0.05, eta)

	assert.Greater(t, at100, at50)
	assert.Greater(t, at100, at150)
}

func TestGradientMatchesFiniteDifference(t *testing.T) {
	t.Parallel()

	returns := testReturns(120, 60, 0.0, 0.03, 0.02, 3)
	m, err := NewModel(returns)
	assert.NoError(t, err)

	tau := 55
	z := [3]float64{0.005, 0.02, math.Log(0.015)}
	grad := m.Gradient(tau, z[0], z[1], z[2])

	const h = 1e-6
	for dim := 0; dim < 3; dim++ {
		up, down := z, z
		up[dim] += h
		down[dim] -= h
		num := (m.LogPosterior(tau, up[0], up[1], up[2]) - m.LogPosterior(tau, down[0], down[1], down[2])) / (2 * h)
		assert.InDelta(t, num, grad[dim], 1e-3*math.Max(1, math.Abs(num)), "dimension %d", dim)
	}
}

func TestLogLikRegimeSplit(t *testing.T) {
	t.Parallel()

	// With tau = 0 every observation sits in regime 2, so mu1 is ignored.
	m, err := NewModel([]float64{0.01, 0.02, 0.03})
	assert.NoError(t, err)

	assert.Equal(t, m.LogLik(0, -5.0, 0.02, 0.01), m.LogLik(0, 5.0, 0.02, 0.01))
	assert.NotEqual(t, m.LogLik(2, -5.0, 0.02, 0.01), m.LogLik(2, 5.0, 0.02, 0.01))
}
