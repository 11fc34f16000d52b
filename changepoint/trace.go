// Package changepoint implements single change point inference over daily
// log returns: a two-regime Gaussian model, a hybrid Metropolis/Hamiltonian
// MCMC sampler, convergence diagnostics, a deterministic fallback detector,
// and the aggregation of posterior draws into calendar-date estimates.
package changepoint

// Sample is one posterior draw, tagged with its chain and iteration.
type Sample struct {
	Tau   int
	Mu1   float64
	Mu2   float64
	Sigma float64
	Chain int
	Iter  int
}

// Chain is the retained draws of one independent sampling run.
type Chain struct {
	ID      int
	Samples []Sample
}

// Trace is the set of all chains from one sampler invocation. It is
// immutable once sampling completes. Partial is set when the run was
// cancelled after every chain had reached its minimum retained count.
type Trace struct {
	Chains  []Chain
	Partial bool
}

// Len returns the total number of retained draws across chains.
func (t *Trace) Len() int {
	n := 0
	for _, c := range t.Chains {
		n += len(c.Samples)
	}
	return n
}

// TauDraws concatenates the tau column of every chain, in chain order.
func (t *Trace) TauDraws() []int {
	out := make([]int, 0, t.Len())
	for _, c := range t.Chains {
		for _, s := range c.Samples {
			out = append(out, s.Tau)
		}
	}
	return out
}

// column extracts one parameter as per-chain float slices for diagnostics.
func (t *Trace) column(get func(Sample) float64) [][]float64 {
	out := make([][]float64, len(t.Chains))
	for i, c := range t.Chains {
		col := make([]float64, len(c.Samples))
		for j, s := range c.Samples {
			col[j] = get(s)
		}
		out[i] = col
	}
	return out
}
