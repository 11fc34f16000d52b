package changepoint

import (
	"math"
	"math/rand"
)

// Gradient-informed update for the continuous block (mu1, mu2, eta), holding
// tau fixed: Hamiltonian trajectories grown by doubling, terminated when they
// start to double back (no-U-turn criterion), with the step size adapted
// during warmup by dual averaging.

const (
	maxTreeDepth = 10
	deltaMax     = 1000 // divergence threshold on the log joint
)

// point caches the gradient and log density at a position so tree building
// never re-evaluates the model.
type point struct {
	z    [3]float64
	grad [3]float64
	logp float64
}

func (m *Model) at(tau int, z [3]float64) point {
	return point{
		z:    z,
		grad: m.Gradient(tau, z[0], z[1], z[2]),
		logp: m.LogPosterior(tau, z[0], z[1], z[2]),
	}
}

func leapfrog(m *Model, tau int, p point, r [3]float64, eps float64) (point, [3]float64) {
	for i := range r {
		r[i] += 0.5 * eps * p.grad[i]
	}
	var z [3]float64
	for i := range z {
		z[i] = p.z[i] + eps*r[i]
	}
	np := m.at(tau, z)
	for i := range r {
		r[i] += 0.5 * eps * np.grad[i]
	}
	return np, r
}

func logJoint(p point, r [3]float64) float64 {
	k := 0.0
	for _, v := range r {
		k += v * v
	}
	return p.logp - 0.5*k
}

func noUTurn(minus, plus point, rminus, rplus [3]float64) bool {
	var span [3]float64
	for i := range span {
		span[i] = plus.z[i] - minus.z[i]
	}
	dm, dp := 0.0, 0.0
	for i := range span {
		dm += span[i] * rminus[i]
		dp += span[i] * rplus[i]
	}
	return dm >= 0 && dp >= 0
}

type tree struct {
	minus, plus   point
	rminus, rplus [3]float64
	prop          point
	n             int
	ok            bool
	alpha         float64
	nalpha        int
}

func buildTree(rng *rand.Rand, m *Model, tau int, p point, r [3]float64, logu float64, dir int, depth int, eps, h0 float64) tree {
	if depth == 0 {
		np, nr := leapfrog(m, tau, p, r, float64(dir)*eps)
		lj := logJoint(np, nr)
		n := 0
		if logu <= lj {
			n = 1
		}
		a := math.Exp(lj - h0)
		if math.IsNaN(a) {
			a = 0
		} else if a > 1 {
			a = 1
		}
		return tree{
			minus: np, plus: np, rminus: nr, rplus: nr,
			prop: np, n: n,
			ok:    !math.IsNaN(lj) && logu < lj+deltaMax,
			alpha: a, nalpha: 1,
		}
	}

	t := buildTree(rng, m, tau, p, r, logu, dir, depth-1, eps, h0)
	if !t.ok {
		return t
	}
	var t2 tree
	if dir < 0 {
		t2 = buildTree(rng, m, tau, t.minus, t.rminus, logu, dir, depth-1, eps, h0)
		t.minus, t.rminus = t2.minus, t2.rminus
	} else {
		t2 = buildTree(rng, m, tau, t.plus, t.rplus, logu, dir, depth-1, eps, h0)
		t.plus, t.rplus = t2.plus, t2.rplus
	}
	if t2.n > 0 && rng.Float64() < float64(t2.n)/float64(t.n+t2.n) {
		t.prop = t2.prop
	}
	t.n += t2.n
	t.alpha += t2.alpha
	t.nalpha += t2.nalpha
	t.ok = t2.ok && noUTurn(t.minus, t.plus, t.rminus, t.rplus)
	return t
}

// nutsStep advances the continuous block one iteration and reports the mean
// acceptance statistic used for step-size adaptation.
func nutsStep(rng *rand.Rand, m *Model, tau int, cur point, eps float64, maxDepth int) (point, float64) {
	var r [3]float64
	for i := range r {
		r[i] = rng.NormFloat64()
	}
	h0 := logJoint(cur, r)
	logu := h0 + math.Log(rng.Float64())

	minus, plus := cur, cur
	rminus, rplus := r, r
	prop := cur
	n := 1
	alphaSum, nAlpha := 0.0, 0

	for depth := 0; depth < maxDepth; depth++ {
		var t tree
		if rng.Float64() < 0.5 {
			t = buildTree(rng, m, tau, minus, rminus, logu, -1, depth, eps, h0)
			minus, rminus = t.minus, t.rminus
		} else {
			t = buildTree(rng, m, tau, plus, rplus, logu, 1, depth, eps, h0)
			plus, rplus = t.plus, t.rplus
		}
		alphaSum += t.alpha
		nAlpha += t.nalpha
		if t.ok && t.n > 0 && rng.Float64() < float64(t.n)/float64(n) {
			prop = t.prop
		}
		n += t.n
		if !t.ok || !noUTurn(minus, plus, rminus, rplus) {
			break
		}
	}

	if nAlpha == 0 {
		return prop, 0
	}
	return prop, alphaSum / float64(nAlpha)
}

// stepAdapter is Nesterov dual averaging of log step size toward a target
// acceptance statistic, per chain, warmup only.
type stepAdapter struct {
	mu        float64
	logEps    float64
	logEpsBar float64
	hBar      float64
	t         int
}

const (
	adaptGamma  = 0.05
	adaptT0     = 10.0
	adaptKappa  = 0.75
	adaptTarget = 0.8
)

func newStepAdapter(eps0 float64) *stepAdapter {
	return &stepAdapter{
		mu:        math.Log(10 * eps0),
		logEps:    math.Log(eps0),
		logEpsBar: 0,
	}
}

func (a *stepAdapter) update(alpha float64) {
	a.t++
	ft := float64(a.t)
	w := 1 / (ft + adaptT0)
	a.hBar = (1-w)*a.hBar + w*(adaptTarget-alpha)
	a.logEps = a.mu - math.Sqrt(ft)/adaptGamma*a.hBar
	wt := math.Pow(ft, -adaptKappa)
	a.logEpsBar = wt*a.logEps + (1-wt)*a.logEpsBar
}

func (a *stepAdapter) current() float64 { return math.Exp(a.logEps) }
func (a *stepAdapter) adapted() float64 { return math.Exp(a.logEpsBar) }

// findEpsilon doubles or halves an initial step size until one leapfrog step
// crosses 50% acceptance, the usual starting heuristic.
func findEpsilon(rng *rand.Rand, m *Model, tau int, p point) float64 {
	eps := 0.1
	var r [3]float64
	for i := range r {
		r[i] = rng.NormFloat64()
	}
	h0 := logJoint(p, r)

	ratio := func(eps float64) float64 {
		np, nr := leapfrog(m, tau, p, r, eps)
		lr := logJoint(np, nr) - h0
		if math.IsNaN(lr) {
			return math.Inf(-1)
		}
		return lr
	}

	dir := -1.0
	if ratio(eps) > math.Log(0.5) {
		dir = 1.0
	}
	for i := 0; i < 50; i++ {
		if dir*ratio(eps) <= dir*math.Log(0.5) {
			break
		}
		eps *= math.Pow(2, dir)
	}
	if eps <= 0 || math.IsNaN(eps) || math.IsInf(eps, 0) {
		eps = 0.1
	}
	return eps
}
