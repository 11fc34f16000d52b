package changepoint

import (
	"math"
)

// ParamDiagnostic is the cross-chain convergence summary for one parameter.
type ParamDiagnostic struct {
	RHat float64 // split potential scale reduction; near 1.0 means converged
	ESS  float64 // effective sample size
}

// Diagnostics maps parameter name (tau, mu1, mu2, sigma) to its summary.
// Diagnostics are advisory: they are reported alongside the trace and never
// gate the result.
type Diagnostics map[string]ParamDiagnostic

// Diagnose computes split-R-hat and effective sample size for every model
// parameter across the chains of a trace.
func Diagnose(t *Trace) Diagnostics {
	cols := map[string][][]float64{
		"tau":   t.column(func(s Sample) float64 { return float64(s.Tau) }),
		"mu1":   t.column(func(s Sample) float64 { return s.Mu1 }),
		"mu2":   t.column(func(s Sample) float64 { return s.Mu2 }),
		"sigma": t.column(func(s Sample) float64 { return s.Sigma }),
	}
	out := make(Diagnostics, len(cols))
	for name, chains := range cols {
		out[name] = ParamDiagnostic{
			RHat: splitRHat(chains),
			ESS:  effectiveSampleSize(chains),
		}
	}
	return out
}

// splitRHat is the Gelman potential scale reduction with each chain split in
// half, comparing between-split and within-split variance.
func splitRHat(chains [][]float64) float64 {
	var splits [][]float64
	for _, c := range chains {
		if len(c) < 4 {
			return math.NaN()
		}
		half := len(c) / 2
		splits = append(splits, c[:half], c[half:half*2])
	}

	m := float64(len(splits))
	n := float64(len(splits[0]))

	means := make([]float64, len(splits))
	variances := make([]float64, len(splits))
	for i, s := range splits {
		means[i], variances[i] = meanVar(s)
	}

	grand, _ := meanVar(means)
	b := 0.0
	for _, mu := range means {
		b += (mu - grand) * (mu - grand)
	}
	b *= n / (m - 1)

	w := 0.0
	for _, v := range variances {
		w += v
	}
	w /= m
	if w == 0 {
		// Identical draws everywhere; the chains trivially agree.
		return 1
	}

	varPlus := (n-1)/n*w + b/n
	return math.Sqrt(varPlus / w)
}

// effectiveSampleSize uses Geyer's initial positive sequence estimate of the
// integrated autocorrelation time, averaged across chains.
func effectiveSampleSize(chains [][]float64) float64 {
	total := 0
	tauSum := 0.0
	nChains := 0
	for _, c := range chains {
		if len(c) < 4 {
			continue
		}
		total += len(c)
		tauSum += integratedACT(c)
		nChains++
	}
	if nChains == 0 {
		return math.NaN()
	}
	return float64(total) / (tauSum / float64(nChains))
}

func integratedACT(x []float64) float64 {
	n := len(x)
	mean, v := meanVar(x)
	if v == 0 {
		return 1
	}

	rho := func(lag int) float64 {
		s := 0.0
		for i := 0; i < n-lag; i++ {
			s += (x[i] - mean) * (x[i+lag] - mean)
		}
		return s / (float64(n-1) * v)
	}

	// Sum paired autocorrelations while the pair sums stay positive.
	act := 1.0
	for lag := 1; lag+1 < n; lag += 2 {
		pair := rho(lag) + rho(lag+1)
		if pair <= 0 {
			break
		}
		act += 2 * pair
	}
	if act < 1 {
		act = 1
	}
	return act
}

func meanVar(x []float64) (mean, variance float64) {
	n := float64(len(x))
	for _, v := range x {
		mean += v
	}
	mean /= n
	if len(x) < 2 {
		return mean, 0
	}
	for _, v := range x {
		variance += (v - mean) * (v - mean)
	}
	variance /= n - 1
	return mean, variance
}
