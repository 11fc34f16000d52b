package changepoint

import (
	"fmt"
	"math"
)

// Prior scales. Daily log returns sit near zero, so the regime means get a
// tight Normal(0, 0.1) prior and the shared volatility a HalfNormal(0.1).
const (
	muPriorScale    = 0.1
	sigmaPriorScale = 0.1
)

// Model is the two-regime Gaussian change point model over a fixed vector of
// log returns:
//
//	tau   ~ DiscreteUniform(0, n-1)
//	mu1   ~ Normal(0, 0.1)
//	mu2   ~ Normal(0, 0.1)
//	sigma ~ HalfNormal(0.1)
//	x[i]  ~ Normal(mu1 if i < tau else mu2, sigma)
//
// The continuous block is evaluated in unconstrained space with
// eta = log(sigma); log densities include the change-of-variable Jacobian.
// Prefix sums over x and x^2 make every evaluation O(1) in n.
type Model struct {
	n       int
	prefix  []float64 // prefix[i] = sum of x[0..i)
	prefix2 []float64 // prefix2[i] = sum of x[0..i)^2
}

// ModelFailure reports that the sampler could not produce a valid trace.
// The caller is expected to fall back to the deterministic detector.
type ModelFailure struct {
	Reason string
	Err    error
}

func (e *ModelFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model failure: %s: %v", e.Reason, e.Err)
	}
	return "model failure: " + e.Reason
}

func (e *ModelFailure) Unwrap() error { return e.Err }

// NewModel validates the return vector and precomputes sufficient
// statistics. A series the model cannot be fit on yields a ModelFailure.
func NewModel(returns []float64) (*Model, error) {
	if len(returns) < 2 {
		return nil, &ModelFailure{Reason: fmt.Sprintf("need at least 2 returns, have %d", len(returns))}
	}
	m := &Model{
		n:       len(returns),
		prefix:  make([]float64, len(returns)+1),
		prefix2: make([]float64, len(returns)+1),
	}
	for i, x := range returns {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, &ModelFailure{Reason: fmt.Sprintf("non-finite return at index %d", i)}
		}
		m.prefix[i+1] = m.prefix[i] + x
		m.prefix2[i+1] = m.prefix2[i] + x*x
	}
	return m, nil
}

// N returns the number of observations.
func (m *Model) N() int { return m.n }

// regimes returns the count and the sums of x and x^2 on each side of tau.
func (m *Model) regimes(tau int) (m1 float64, s1, q1 float64, m2 float64, s2, q2 float64) {
	m1 = float64(tau)
	s1 = m.prefix[tau]
	q1 = m.prefix2[tau]
	m2 = float64(m.n - tau)
	s2 = m.prefix[m.n] - s1
	q2 = m.prefix2[m.n] - q1
	return
}

// LogLik is the Gaussian log likelihood at (tau, mu1, mu2, sigma), up to the
// constant -n/2*log(2*pi).
func (m *Model) LogLik(tau int, mu1, mu2, sigma float64) float64 {
	m1, s1, q1, m2, s2, q2 := m.regimes(tau)
	sse := (q1 - 2*mu1*s1 + m1*mu1*mu1) + (q2 - 2*mu2*s2 + m2*mu2*mu2)
	return -float64(m.n)*math.Log(sigma) - sse/(2*sigma*sigma)
}

// LogPosterior is the unnormalized log posterior density in unconstrained
// space (eta = log sigma), including priors and the Jacobian term. This is
// the single primitive the sampler needs.
func (m *Model) LogPosterior(tau int, mu1, mu2, eta float64) float64 {
	sigma := math.Exp(eta)
	lp := m.LogLik(tau, mu1, mu2, sigma)
	lp += -(mu1 * mu1) / (2 * muPriorScale * muPriorScale)
	lp += -(mu2 * mu2) / (2 * muPriorScale * muPriorScale)
	lp += -(sigma * sigma) / (2 * sigmaPriorScale * sigmaPriorScale)
	lp += eta // Jacobian of sigma = exp(eta)
	return lp
}

// Gradient is the gradient of LogPosterior with respect to the continuous
// block (mu1, mu2, eta), holding tau fixed.
func (m *Model) Gradient(tau int, mu1, mu2, eta float64) [3]float64 {
	sigma := math.Exp(eta)
	inv2 := 1 / (sigma * sigma)
	m1, s1, q1, m2, s2, q2 := m.regimes(tau)

	g1 := (s1-m1*mu1)*inv2 - mu1/(muPriorScale*muPriorScale)
	g2 := (s2-m2*mu2)*inv2 - mu2/(muPriorScale*muPriorScale)

	sse := (q1 - 2*mu1*s1 + m1*mu1*mu1) + (q2 - 2*mu2*s2 + m2*mu2*mu2)
	geta := -float64(m.n) + sse*inv2 - (sigma*sigma)/(sigmaPriorScale*sigmaPriorScale) + 1

	return [3]float64{g1, g2, geta}
}
