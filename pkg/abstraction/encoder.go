package abstraction

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/behrlich/poker-solver/pkg/cards"
)

// EncoderPath returns the conventional artifact path for street's encoder
// inside dir: "encoder.<street>.bin".
func EncoderPath(dir string, street cards.Street) string {
	return filepath.Join(dir, fmt.Sprintf("encoder.%s.bin", street))
}

// MetricPath returns the conventional artifact path for street's metric
// inside dir: "metric.<street>.bin".
func MetricPath(dir string, street cards.Street) string {
	return filepath.Join(dir, fmt.Sprintf("metric.%s.bin", street))
}

// pgcopySignature is the 11-byte magic string that opens PostgreSQL's binary
// COPY format; the zero flags field and zero header-extension length that
// follow it are written separately. Encoder artifacts are written in this exact byte layout so the
// (out-of-scope) external analysis layer can load them with a native
// `COPY ... FROM` against a two-column (obs bigint, abs bigint) table.
var pgcopySignature = []byte("PGCOPY\n\xFF\r\n\x00")

// Encoder maps every canonical Isomorphism on one street to the
// Abstraction it was assigned, either directly (River: one equity bucket
// per isomorphism) or by Layer's k-means++ clustering (Flop/Turn/Preflop).
type Encoder struct {
	street cards.Street
	table  map[cards.Isomorphism]Abstraction
}

// NewEncoder returns an empty Encoder scoped to street.
func NewEncoder(street cards.Street) *Encoder {
	return &Encoder{street: street, table: make(map[cards.Isomorphism]Abstraction)}
}

// Street returns the street this encoder is scoped to.
func (e *Encoder) Street() cards.Street {
	return e.street
}

// Assign records iso's abstraction. iso must belong to e's street.
func (e *Encoder) Assign(iso cards.Isomorphism, a Abstraction) error {
	if iso.Street() != e.street {
		return fmt.Errorf("abstraction: isomorphism street %s does not match encoder street %s: %w",
			iso.Street(), e.street, ErrCrossStreet)
	}
	e.table[iso] = a
	return nil
}

// Encode returns the abstraction assigned to iso, or ErrUnobserved if iso
// was never assigned during training.
func (e *Encoder) Encode(iso cards.Isomorphism) (Abstraction, error) {
	a, ok := e.table[iso]
	if !ok {
		return 0, ErrUnobserved
	}
	return a, nil
}

// Isomorphisms returns every isomorphism this encoder has assigned, sorted
// ascending for deterministic iteration.
func (e *Encoder) Isomorphisms() []cards.Isomorphism {
	out := make([]cards.Isomorphism, 0, len(e.table))
	for iso := range e.table {
		out = append(out, iso)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of isomorphisms assigned.
func (e *Encoder) Len() int {
	return len(e.table)
}

// Projection builds the Histogram of child-street abstractions reachable
// from iso, by looking up each of iso's Children in next (the child
// street's already-trained Encoder). Used by Layer to build the points a
// street's k-means operates over.
func (e *Encoder) Projection(iso cards.Isomorphism, next *Encoder) (*Histogram, error) {
	return projectIsomorphism(e.street, iso, next)
}

// Save writes e to path in PostgreSQL binary COPY format: the standard
// 19-byte header, one (obs bigint, abs bigint) record per isomorphism,
// then the 2-byte 0xFFFF trailer. Byte-exact; see SPEC_FULL.md §0 and
// original_source/src/clustering/lookup.rs for the reference encoding.
func (e *Encoder) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("abstraction: creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.Write(pgcopySignature); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(0)); err != nil { // flags
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(0)); err != nil { // header extension length
		return err
	}

	for _, iso := range e.Isomorphisms() {
		if err := binary.Write(w, binary.BigEndian, uint16(2)); err != nil { // field count
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint32(8)); err != nil { // obs length
			return err
		}
		if err := binary.Write(w, binary.BigEndian, int64(iso)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint32(8)); err != nil { // abs length
			return err
		}
		if err := binary.Write(w, binary.BigEndian, int64(e.table[iso])); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.BigEndian, uint16(0xFFFF)); err != nil { // trailer
		return err
	}
	return w.Flush()
}

// LoadEncoder reads an Encoder previously written by Save. street is
// required rather than inferred, since the artifact itself carries no
// street tag beyond what's embedded in each isomorphism's high bits (which
// this function verifies against, failing loudly on mismatch).
func LoadEncoder(path string, street cards.Street) (*Encoder, error) {
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

	e := NewEncoder(street)
	for {
		var fieldCount uint16
		if err := binary.Read(r, binary.BigEndian, &fieldCount); err != nil {
			return nil, fmt.Errorf("abstraction: reading %s record header: %w", path, err)
		}
		if fieldCount != 2 {
			break // trailer (0xFFFF) or malformed stream
		}

		var obsLen uint32
		if err := binary.Read(r, binary.BigEndian, &obsLen); err != nil {
			return nil, err
		}
		var obs int64
		if err := binary.Read(r, binary.BigEndian, &obs); err != nil {
			return nil, err
		}

		var absLen uint32
		if err := binary.Read(r, binary.BigEndian, &absLen); err != nil {
			return nil, err
		}
		var abs int64
		if err := binary.Read(r, binary.BigEndian, &abs); err != nil {
			return nil, err
		}

		iso := cards.Isomorphism(obs)
		if iso.Street() != street {
			return nil, fmt.Errorf("abstraction: %s contains isomorphism for street %s, expected %s",
				path, iso.Street(), street)
		}
		e.table[iso] = Abstraction(abs)
	}
	return e, nil
}
