package abstraction

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/behrlich/poker-solver/pkg/cards"
)

// pairEntry records one (a, b, distance) triple as originally Set, kept
// alongside the Pair-keyed lookup map so Save can reconstruct every
// concrete abstraction pair; the XOR key alone cannot recover its operands.
type pairEntry struct {
	a, b     Abstraction
	distance float64
}

// Metric stores the precomputed pairwise transport distance between every
// pair of Abstractions on a single street. It is built once per street (the
// River metric is the gap between equity buckets; every other street's metric is
// derived by Layer from the street below) and then used read-only both to
// drive k-means assignment and to answer query-time distance requests.
type Metric struct {
	street    cards.Street
	distances map[Pair]float64
	entries   map[Pair]pairEntry
}

// NewMetric returns an empty Metric scoped to street.
func NewMetric(street cards.Street) *Metric {
	return &Metric{
		street:    street,
		distances: make(map[Pair]float64),
		entries:   make(map[Pair]pairEntry),
	}
}

// Street returns the street this metric is scoped to.
func (m *Metric) Street() cards.Street {
	return m.street
}

// Set records the distance between a and b. Both must belong to m's street.
func (m *Metric) Set(a, b Abstraction, distance float64) error {
	if a.Street() != m.street || b.Street() != m.street {
		return fmt.Errorf("abstraction: cannot set distance for street %s/%s in a %s metric: %w",
			a.Street(), b.Street(), m.street, ErrCrossStreet)
	}
	pair, err := NewPair(a, b)
	if err != nil {
		return err
	}
	m.distances[pair] = distance
	m.entries[pair] = pairEntry{a: a, b: b, distance: distance}
	return nil
}

// Distance returns the precomputed distance between a and b. Identical
// abstractions always have distance 0 without needing a table entry.
func (m *Metric) Distance(a, b Abstraction) (float64, error) {
	if a == b {
		return 0, nil
	}
	pair, err := NewPair(a, b)
	if err != nil {
		return 0, err
	}
	d, ok := m.distances[pair]
	if !ok {
		return 0, fmt.Errorf("abstraction: no precomputed distance for %v/%v on street %s", a, b, m.street)
	}
	return d, nil
}

// Basis returns every Abstraction that appears in at least one recorded
// pair, sorted ascending.
func (m *Metric) Basis() []Abstraction {
	seen := make(map[Abstraction]bool)
	for _, e := range m.entries {
		seen[e.a] = true
		seen[e.b] = true
	}
	out := make([]Abstraction, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Neighbor pairs an Abstraction with its distance from some reference
// point, as returned by Nearby.
type Neighbor struct {
	Abstraction Abstraction
	Distance    float64
}

// Nearby returns, for abs, every other basis abstraction with its distance
// to abs, sorted ascending by distance.
func (m *Metric) Nearby(abs Abstraction) []Neighbor {
	var out []Neighbor
	for _, other := range m.Basis() {
		if other == abs {
			continue
		}
		d, err := m.Distance(abs, other)
		if err != nil {
			continue
		}
		out = append(out, Neighbor{Abstraction: other, Distance: d})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out
}

// Save writes m to path using the same PGCOPY binary layout as
// Encoder.Save, with records of (xor bigint, distance real) instead of
// (obs bigint, abs bigint).
func (m *Metric) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("abstraction: creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.Write(pgcopySignature); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(0)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(0)); err != nil {
		return err
	}

	pairs := make([]Pair, 0, len(m.entries))
	for p := range m.entries {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i] < pairs[j] })

	for _, p := range pairs {
		e := m.entries[p]
		if err := binary.Write(w, binary.BigEndian, uint16(2)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint32(8)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, int64(p)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint32(4)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, math.Float32bits(float32(e.distance))); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.BigEndian, uint16(0xFFFF)); err != nil {
		return err
	}
	return w.Flush()
}

// LoadMetric reads a Metric previously written by Save. Since the XOR key
// alone does not recover its two operands, the caller must supply basis,
// the full ordered set of abstractions the metric was built over (Layer
// persists this alongside the metric file as part of the Encoder it
// trained in the same pass).
func LoadMetric(path string, street cards.Street, basis []Abstraction) (*Metric, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("abstraction: opening %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	sig := make([]byte, len(pgcopySignature))
	if _, err := io.ReadFull(r, sig); err != nil {
		return nil, fmt.Errorf("abstraction: reading %s signature: %w", path, err)
	}
	for i := range sig {
		if sig[i] != pgcopySignature[i] {
			return nil, fmt.Errorf("abstraction: %s is not a PGCOPY file (bad signature)", path)
		}
	}
	var flags, extLen uint32
	if err := binary.Read(r, binary.BigEndian, &flags); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &extLen); err != nil {
		return nil, err
	}
	if extLen > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(extLen)); err != nil {
			return nil, err
		}
	}

	m := NewMetric(street)
	for {
		var fieldCount uint16
		if err := binary.Read(r, binary.BigEndian, &fieldCount); err != nil {
			return nil, fmt.Errorf("abstraction: reading %s record header: %w", path, err)
		}
		if fieldCount != 2 {
			break
		}
		var xorLen uint32
		if err := binary.Read(r, binary.BigEndian, &xorLen); err != nil {
			return nil, err
		}
		var xor int64
		if err := binary.Read(r, binary.BigEndian, &xor); err != nil {
			return nil, err
		}
		var distLen uint32
		if err := binary.Read(r, binary.BigEndian, &distLen); err != nil {
			return nil, err
		}
		var bits uint32
		if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
			return nil, err
		}
		distance := float64(math.Float32frombits(bits))

		pair := Pair(xor)
		resolved := false
		for _, a := range basis {
			b := Abstraction(int64(a) ^ xor)
			for _, candidate := range basis {
				if candidate == b {
					if err := m.Set(a, b, distance); err == nil {
						resolved = true
					}
					break
				}
			}
			if resolved {
				break
			}
		}
		if !resolved {
			return nil, fmt.Errorf("abstraction: %s pair %d does not resolve against supplied basis", path, pair)
		}
	}
	return m, nil
}

// distanceFunc adapts Distance to the signature the transport solvers need,
// panicking on error: within a single Layer or query call every
// abstraction passed in is already known to share m's street, so a lookup
// failure here is an upstream bug (a missing metric entry), not a
// recoverable runtime condition.
func (m *Metric) distanceFunc() func(a, b Abstraction) float64 {
	return func(a, b Abstraction) float64 {
		d, err := m.Distance(a, b)
		if err != nil {
			panic(err)
		}
		return d
	}
}
