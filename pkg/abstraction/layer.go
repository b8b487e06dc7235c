package abstraction

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/behrlich/poker-solver/pkg/cards"
)

// LayerConfig controls how many centroids a street learns and how many
// Lloyd iterations are spent refining them. Preflop has a fixed, known
// basis (169 canonical hole-card classes) and needs neither.
type LayerConfig struct {
	Clusters   int
	Iterations int
	Seed       int64
}

// Layer learns one street's Encoder and Metric from the street below: it
// projects every point on this street into a Histogram over the child
// street's abstractions, clusters those histograms with k-means++ under
// the child street's EMD, and derives this street's Metric by averaging
// the EMD between centroid pairs in both directions.
type Layer struct {
	street    cards.Street
	points    map[cards.Isomorphism]*Histogram // this street's isomorphisms, projected
	outer     *Metric                          // the child street's metric (used to compute EMD between histograms)
	cfg       LayerConfig
	rng       *rand.Rand
	lookup    *Encoder
	centroids map[Abstraction]*Histogram
}

// NewLayer builds the Layer for street, given the already-trained child
// Encoder (next) and its Metric (outerMetric). points is the full set of
// this street's canonical isomorphisms to cluster.
func NewLayer(street cards.Street, points []cards.Isomorphism, next *Encoder, outerMetric *Metric, cfg LayerConfig) (*Layer, error) {
	if street == cards.River {
		return nil, fmt.Errorf("abstraction: River has no child street to learn from")
	}
	if next.Street() != street.Next() {
		return nil, fmt.Errorf("abstraction: child encoder is for street %s, expected %s: %w",
			next.Street(), street.Next(), ErrCrossStreet)
	}

	projected := make(map[cards.Isomorphism]*Histogram, len(points))
	for _, iso := range points {
		h, err := projectIsomorphism(street, iso, next)
		if err != nil {
			return nil, err
		}
		projected[iso] = h
	}

	return &Layer{
		street: street,
		points: projected,
		outer:  outerMetric,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		lookup: NewEncoder(street),
	}, nil
}

// projectIsomorphism builds the Histogram of child-street abstractions
// reachable from iso, which must belong to street, by looking each of
// iso's Children up in the already-trained child encoder next.
func projectIsomorphism(street cards.Street, iso cards.Isomorphism, next *Encoder) (*Histogram, error) {
	if iso.Street() != street {
		return nil, fmt.Errorf("abstraction: isomorphism street %s does not match layer street %s: %w",
			iso.Street(), street, ErrCrossStreet)
	}
	h := NewHistogram()
	for _, child := range iso.Children() {
		a, err := next.Encode(child)
		if err != nil {
			return nil, fmt.Errorf("abstraction: projecting %v: %w", iso, err)
		}
		h.Add(a, 1)
	}
	return h, nil
}

// Cluster runs k-means++ seeding followed by Iterations Lloyd iterations,
// then derives this street's Metric from the final centroids. It returns
// the trained Encoder (isomorphism -> Abstraction) and Metric.
func (l *Layer) Cluster() (*Encoder, *Metric, error) {
	if err := l.seed(); err != nil {
		return nil, nil, err
	}
	for t := 0; t < l.cfg.Iterations; t++ {
		loss, err := l.iterate()
		if err != nil {
			return nil, nil, err
		}
		slog.Info("kmeans iteration", "street", l.street, "t", t, "loss", loss)
	}
	metric, err := l.innerMetric()
	if err != nil {
		return nil, nil, err
	}
	return l.lookup, metric, nil
}

// seed picks the initial centroids via k-means++ weighted sampling: the
// first centroid is uniform-random, every subsequent one is sampled with
// probability proportional to its squared EMD to the nearest
// already-chosen centroid.
func (l *Layer) seed() error {
	isos := l.sortedPoints()
	if len(isos) == 0 {
		return fmt.Errorf("abstraction: layer has no points to cluster on street %s", l.street)
	}

	chosen := make([]cards.Isomorphism, 0, l.cfg.Clusters)
	chosen = append(chosen, isos[l.rng.Intn(len(isos))])

	for len(chosen) < l.cfg.Clusters && len(chosen) < len(isos) {
		weights := make([]float64, len(isos))
		var total float64
		for i, iso := range isos {
			best := math.Inf(1)
			for _, c := range chosen {
				d, err := l.outer.Greedy(l.points[iso], l.points[c])
				if err != nil {
					return err
				}
				if d < best {
					best = d
				}
			}
			weights[i] = best * best
			total += weights[i]
		}
		if total == 0 {
			chosen = append(chosen, isos[l.rng.Intn(len(isos))])
			continue
		}
		target := l.rng.Float64() * total
		var cumulative float64
		for i, w := range weights {
			cumulative += w
			if cumulative >= target {
				chosen = append(chosen, isos[i])
				break
			}
		}
	}

	l.centroids = make(map[Abstraction]*Histogram, len(chosen))
	for i, iso := range chosen {
		a := NewLearnedAbstraction(l.street, i)
		h := NewHistogram()
		h.Absorb(l.points[iso])
		l.centroids[a] = h
	}
	return nil
}

// assignment is one point's nearest centroid and the EMD to it, produced by
// the parallel read-only assignment phase.
type assignment struct {
	point    cards.Isomorphism
	centroid Abstraction
	distance float64
}

// iterate runs one Lloyd step: a parallel read-only pass assigning every
// point to its nearest centroid, followed by a serial update pass that
// rebuilds centroids from their assigned points and reseeds any centroid
// left with no support. Returns the total squared-distance loss.
func (l *Layer) iterate() (float64, error) {
	isos := l.sortedPoints()
	results := make([]assignment, len(isos))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, iso := range isos {
		i, iso := i, iso
		g.Go(func() error {
			centroid, distance, err := l.nearestCentroid(iso)
			if err != nil {
				return err
			}
			results[i] = assignment{point: iso, centroid: centroid, distance: distance}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	for a := range l.centroids {
		l.centroids[a].Clear()
	}
	l.lookup.table = make(map[cards.Isomorphism]Abstraction, len(isos))

	var loss float64
	support := make(map[Abstraction]bool, len(l.centroids))
	for _, r := range results {
		l.lookup.table[r.point] = r.centroid
		l.centroids[r.centroid].Absorb(l.points[r.point])
		loss += r.distance * r.distance
		support[r.centroid] = true
	}

	for a := range l.centroids {
		if !support[a] {
			l.reseedOrphan(a)
		}
	}
	return loss, nil
}

// nearestCentroid finds iso's closest centroid under the outer metric's
// EMD. Read-only with respect to Layer state: safe to call concurrently.
func (l *Layer) nearestCentroid(iso cards.Isomorphism) (Abstraction, float64, error) {
	centroids := l.sortedCentroids()
	best := centroids[0]
	bestDist, err := l.outer.Greedy(l.points[iso], l.centroids[best])
	if err != nil {
		return 0, 0, err
	}
	for _, c := range centroids[1:] {
		d, err := l.outer.Greedy(l.points[iso], l.centroids[c])
		if err != nil {
			return 0, 0, err
		}
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist, nil
}

// reseedOrphan replaces an empty centroid's histogram with a uniformly
// random point's, keeping the cluster count fixed across iterations.
func (l *Layer) reseedOrphan(a Abstraction) {
	isos := l.sortedPoints()
	pick := isos[l.rng.Intn(len(isos))]
	h := NewHistogram()
	h.Absorb(l.points[pick])
	l.centroids[a] = h
	slog.Warn("reseeded orphan centroid", "street", l.street, "abstraction", a)
}

// innerMetric derives this street's Metric from the final centroids: for
// every unordered pair of centroids, the distance is the average of the
// EMD computed in both directions (EMD need not be symmetric under the
// greedy transport algorithm, so this symmetrizes it).
func (l *Layer) innerMetric() (*Metric, error) {
	metric := NewMetric(l.street)
	centroids := l.sortedCentroids()
	for i, a := range centroids {
		for _, b := range centroids[i+1:] {
			fwd, err := l.outer.Greedy(l.centroids[a], l.centroids[b])
			if err != nil {
				return nil, err
			}
			bwd, err := l.outer.Greedy(l.centroids[b], l.centroids[a])
			if err != nil {
				return nil, err
			}
			if err := metric.Set(a, b, (fwd+bwd)/2); err != nil {
				return nil, err
			}
		}
	}
	return metric, nil
}

func (l *Layer) sortedPoints() []cards.Isomorphism {
	out := make([]cards.Isomorphism, 0, len(l.points))
	for iso := range l.points {
		out = append(out, iso)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (l *Layer) sortedCentroids() []Abstraction {
	out := make([]Abstraction, 0, len(l.centroids))
	for a := range l.centroids {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
