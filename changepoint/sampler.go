package changepoint

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

// Config controls one sampler invocation.
type Config struct {
	Chains       int   // independent chains run in parallel
	Warmup       int   // adaptation iterations, discarded
	Draws        int   // retained iterations per chain
	Seed         int64 // root seed; chain k derives its own stream from it
	MinRetain    int   // minimum retained draws per chain for a partial trace
	TauStep      int   // max size of the symmetric tau random-walk jump
	MaxTreeDepth int   // cap on NUTS trajectory doublings
}

// DefaultConfig mirrors the working sizes of the production analysis.
func DefaultConfig() Config {
	return Config{
		Chains:       2,
		Warmup:       1000,
		Draws:        6000,
		Seed:         42,
		MinRetain:    500,
		TauStep:      7,
		MaxTreeDepth: 10,
	}
}

// Sampler draws from the posterior of a Model using Gibbs-style block
// updates: a clipped random-walk Metropolis step for the discrete tau and a
// no-U-turn Hamiltonian step for (mu1, mu2, sigma). Chains share nothing and
// run as parallel workers; the only synchronization point is the join after
// all chains finish.
type Sampler struct {
	model *Model
	cfg   Config
}

// NewSampler validates the configuration against the model.
func NewSampler(m *Model, cfg Config) (*Sampler, error) {
	if cfg.Chains < 1 {
		return nil, fmt.Errorf("sampler: need at least 1 chain, have %d", cfg.Chains)
	}
	if cfg.Draws < 1 {
		return nil, fmt.Errorf("sampler: need at least 1 draw, have %d", cfg.Draws)
	}
	if cfg.TauStep < 1 {
		cfg.TauStep = 7
	}
	if cfg.MaxTreeDepth < 1 {
		cfg.MaxTreeDepth = maxTreeDepth
	}
	if cfg.MinRetain > cfg.Draws {
		cfg.MinRetain = cfg.Draws
	}
	return &Sampler{model: m, cfg: cfg}, nil
}

// Run samples all chains and returns the combined trace. Cancellation stops
// every chain at its next iteration boundary; the result is a trace flagged
// Partial when each chain already holds MinRetain draws, and a ModelFailure
// otherwise. A truncated trace is never returned unflagged.
func (s *Sampler) Run(ctx context.Context) (*Trace, error) {
	chains := make([]Chain, s.cfg.Chains)

	g, gctx := errgroup.WithContext(ctx)
	for k := 0; k < s.cfg.Chains; k++ {
		k := k
		g.Go(func() error {
			c, err := s.runChain(gctx, k)
			chains[k] = c
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// The group context is always done after Wait; only the caller's
	// context says whether the run was cut short.
	cancelled := ctx.Err() != nil
	if cancelled {
		for _, c := range chains {
			if len(c.Samples) < s.cfg.MinRetain {
				return nil, &ModelFailure{
					Reason: fmt.Sprintf("cancelled with %d of %d minimum draws in chain %d", len(c.Samples), s.cfg.MinRetain, c.ID),
					Err:    ctx.Err(),
				}
			}
		}
	}
	return &Trace{Chains: chains, Partial: cancelled}, nil
}

// chainSeed derives a reproducible per-chain seed from the root seed.
func chainSeed(root int64, k int) int64 {
	return root + int64(uint64(k)*0x9E3779B97F4A7C15>>1)
}

// runChain runs one independent chain. Numerical breakdown is reported as a
// ModelFailure; cancellation returns whatever was retained so far and lets
// Run decide whether that is enough.
func (s *Sampler) runChain(ctx context.Context, k int) (Chain, error) {
	rng := rand.New(rand.NewSource(chainSeed(s.cfg.Seed, k)))
	m := s.model

	// Initialize from prior draws.
	tau := rng.Intn(m.N())
	sigma0 := sigmaPriorScale * math.Abs(rng.NormFloat64())
	if sigma0 < 1e-4 {
		sigma0 = 1e-4
	}
	cur := m.at(tau, [3]float64{
		muPriorScale * rng.NormFloat64(),
		muPriorScale * rng.NormFloat64(),
		math.Log(sigma0),
	})
	if math.IsNaN(cur.logp) || math.IsInf(cur.logp, 1) {
		return Chain{ID: k}, &ModelFailure{Reason: fmt.Sprintf("non-finite log posterior at chain %d start", k)}
	}

	adapter := newStepAdapter(findEpsilon(rng, m, tau, cur))
	eps := adapter.current()

	chain := Chain{ID: k, Samples: make([]Sample, 0, min(s.cfg.Draws, 8192))}
	total := s.cfg.Warmup + s.cfg.Draws
	for iter := 0; iter < total; iter++ {
		if err := ctx.Err(); err != nil {
			return chain, nil // Run applies the MinRetain rule
		}

		if next := s.tauStep(rng, tau, cur); next != tau {
			// The cached log posterior and gradient depend on tau.
			tau = next
			cur = m.at(tau, cur.z)
		}

		var alpha float64
		cur, alpha = nutsStep(rng, m, tau, cur, eps, s.cfg.MaxTreeDepth)
		if math.IsNaN(cur.logp) {
			return chain, &ModelFailure{Reason: fmt.Sprintf("non-finite log posterior at chain %d iteration %d", k, iter)}
		}

		if iter < s.cfg.Warmup {
			adapter.update(alpha)
			eps = adapter.current()
			if iter == s.cfg.Warmup-1 {
				eps = adapter.adapted()
			}
			continue
		}

		chain.Samples = append(chain.Samples, Sample{
			Tau:   tau,
			Mu1:   cur.z[0],
			Mu2:   cur.z[1],
			Sigma: math.Exp(cur.z[2]),
			Chain: k,
			Iter:  iter - s.cfg.Warmup,
		})
	}
	return chain, nil
}

// tauStep is the Metropolis update for the discrete break index: a symmetric
// random-walk proposal of up to TauStep positions, clipped to [0, n-1],
// accepted on the likelihood ratio (the uniform prior cancels).
func (s *Sampler) tauStep(rng *rand.Rand, tau int, cur point) int {
	jump := rng.Intn(2*s.cfg.TauStep+1) - s.cfg.TauStep
	if jump == 0 {
		return tau
	}
	prop := tau + jump
	if prop < 0 {
		prop = 0
	}
	if prop >= s.model.N() {
		prop = s.model.N() - 1
	}
	if prop == tau {
		return tau
	}

	mu1, mu2, sigma := cur.z[0], cur.z[1], math.Exp(cur.z[2])
	logr := s.model.LogLik(prop, mu1, mu2, sigma) - s.model.LogLik(tau, mu1, mu2, sigma)
	if logr >= 0 || math.Log(rng.Float64()) < logr {
		return prop
	}
	return tau
}
