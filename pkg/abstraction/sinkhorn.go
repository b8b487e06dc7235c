package abstraction

import (
	"log/slog"
	"math"
)

// SinkhornConfig tunes the entropic-regularized optimal transport solver.
// Lambda controls the strength of the entropy regularizer (smaller is
// closer to true EMD but slower/less stable); Epsilon is the convergence
// threshold on the max dual update; MaxIters bounds the number of
// alternating updates before giving up and returning the last iterate.
type SinkhornConfig struct {
	Lambda   float64
	Epsilon  float64
	MaxIters int
}

// DefaultSinkhornConfig returns reasonable defaults for street-sized
// histograms (tens to low hundreds of support points).
func DefaultSinkhornConfig() SinkhornConfig {
	return SinkhornConfig{Lambda: 0.1, Epsilon: 1e-6, MaxIters: 200}
}

// Sinkhorn computes an entropically-regularized approximation of the
// Wasserstein-1 distance between src and dst under m via log-domain
// alternating dual updates. On hitting MaxIters without reaching Epsilon
// convergence it returns the last iterate's cost alongside ErrNotConverged;
// the cost is still a usable estimate, not a failure value.
func (m *Metric) Sinkhorn(src, dst *Histogram, cfg SinkhornConfig) (float64, error) {
	p, err := src.Normalize()
	if err != nil {
		return 0, err
	}
	q, err := dst.Normalize()
	if err != nil {
		return 0, err
	}

	x := p.Support()
	y := q.Support()
	if len(x) == 0 || len(y) == 0 {
		return 0, nil
	}
	distance := m.distanceFunc()
	dist := make([][]float64, len(x))
	for i, a := range x {
		dist[i] = make([]float64, len(y))
		for j, b := range y {
			if a == b {
				continue
			}
			dist[i][j] = distance(a, b)
		}
	}

	u := make([]float64, len(x))
	v := make([]float64, len(y))
	logP := make([]float64, len(x))
	logQ := make([]float64, len(y))
	for i, a := range x {
		logP[i] = math.Log(p.Weight(a))
	}
	for j, b := range y {
		logQ[j] = math.Log(q.Weight(b))
	}

	converged := false
	for iter := 0; iter < cfg.MaxIters; iter++ {
		maxDelta := 0.0
		newU := make([]float64, len(x))
		for i := range x {
			terms := make([]float64, len(y))
			for j := range y {
				terms[j] = v[j] - dist[i][j]/cfg.Lambda
			}
			newU[i] = logP[i] - logSumExp(terms)
			if d := math.Abs(newU[i] - u[i]); d > maxDelta {
				maxDelta = d
			}
		}
		u = newU

		newV := make([]float64, len(y))
		for j := range y {
			terms := make([]float64, len(x))
			for i := range x {
				terms[i] = u[i] - dist[i][j]/cfg.Lambda
			}
			newV[j] = logQ[j] - logSumExp(terms)
		}
		v = newV

		if maxDelta < cfg.Epsilon {
			converged = true
			break
		}
	}

	var cost float64
	for i := range x {
		for j := range y {
			transport := math.Exp(u[i] + v[j] - dist[i][j]/cfg.Lambda)
			cost += transport * dist[i][j]
		}
	}
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		return 0, ErrNotConverged
	}
	if !converged {
		slog.Warn("sinkhorn did not converge", "max_iters", cfg.MaxIters, "epsilon", cfg.Epsilon, "cost", cost)
		return cost, ErrNotConverged
	}
	return cost, nil
}

// logSumExp computes log(sum(exp(v))) in a numerically stable way.
func logSumExp(v []float64) float64 {
	max := math.Inf(-1)
	for _, x := range v {
		if x > max {
			max = x
		}
	}
	if math.IsInf(max, -1) {
		return max
	}
	var sum float64
	for _, x := range v {
		sum += math.Exp(x - max)
	}
	return max + math.Log(sum)
}
