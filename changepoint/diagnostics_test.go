package changepoint

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func noisyChain(id int, n int, mean float64, seed int64) Chain {
	rng := rand.New(rand.NewSource(seed))
	samples := make([]Sample, n)
	for i := range samples {
		v := mean + 0.01*rng.NormFloat64()
		samples[i] = Sample{Tau: 100 + rng.Intn(3), Mu1: v, Mu2: v, Sigma: 0.01 + math.Abs(v)/100, Chain: id, Iter: i}
	}
	return Chain{ID: id, Samples: samples}
}

func TestDiagnoseConvergedChains(t *testing.T) {
	t.Parallel()

	tr := &Trace{Chains: []Chain{
		noisyChain(0, 500, 0.02, 1),
		noisyChain(1, 500, 0.02, 2),
	}}
	d := Diagnose(tr)

	for _, name := range []string{"tau", "mu1", "mu2", "sigma"} {
		pd, ok := d[name]
		assert.True(t, ok, name)
		assert.InDelta(t, 1.0, pd.RHat, 0.05, name)
		assert.Greater(t, pd.ESS, 50.0, name)
	}
}

func TestDiagnoseDisagreeingChains(t *testing.T) {
	t.Parallel()

	// Chains stuck on different means must show a large scale reduction.
	tr := &Trace{Chains: []Chain{
		noisyChain(0, 500, 0.0, 1),
		noisyChain(1, 500, 1.0, 2),
	}}
	d := Diagnose(tr)
	assert.Greater(t, d["mu1"].RHat, 2.0)
}

func TestDiagnoseTinyChains(t *testing.T) {
	t.Parallel()

	tr := &Trace{Chains: []Chain{{ID: 0, Samples: []Sample{{Tau: 1}, {Tau: 2}}}}}
	d := Diagnose(tr)
	assert.True(t, math.IsNaN(d["tau"].RHat))
}
