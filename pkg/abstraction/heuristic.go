package abstraction

// Heuristic computes a simpler deterministic baseline transport cost
// between src and dst, with no iterative refinement: at each step, the
// support point with the largest remaining demand is discharged into the
// same point in the target (distance 0) if that point still has vacancy,
// otherwise into whichever target point currently has the largest
// remaining vacancy. This is fast and order-independent given identical
// inputs, and by construction costs exactly 0 when src and dst carry the
// same distribution, since every point always finds itself first.
func (m *Metric) Heuristic(src, dst *Histogram) (float64, error) {
	p, err := src.Normalize()
	if err != nil {
		return 0, err
	}
	q, err := dst.Normalize()
	if err != nil {
		return 0, err
	}
	distance := m.distanceFunc()

	demand := make(map[Abstraction]float64)
	for _, a := range p.Support() {
		demand[a] = p.Weight(a)
	}
	vacant := make(map[Abstraction]float64)
	for _, b := range q.Support() {
		vacant[b] = q.Weight(b)
	}

	var cost float64
	for remaining(demand) {
		a := argMax(demand)
		var target Abstraction
		if v, ok := vacant[a]; ok && v > 0 {
			target = a
		} else {
			target = argMax(vacant)
		}

		take := demand[a]
		if vacant[target] < take {
			take = vacant[target]
		}
		if take <= 0 {
			break
		}
		cost += distance(a, target) * take
		demand[a] -= take
		vacant[target] -= take
		if demand[a] <= 1e-12 {
			delete(demand, a)
		}
		if vacant[target] <= 1e-12 {
			delete(vacant, target)
		}
	}
	return cost, nil
}

func remaining(m map[Abstraction]float64) bool {
	return len(m) > 0
}

// argMax returns the key with the largest value, breaking ties by the
// smallest Abstraction value for determinism.
func argMax(m map[Abstraction]float64) Abstraction {
	var best Abstraction
	bestVal := -1.0
	first := true
	for a, v := range m {
		if first || v > bestVal || (v == bestVal && a < best) {
			best, bestVal, first = a, v, false
		}
	}
	return best
}
