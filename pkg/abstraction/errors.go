package abstraction

import "errors"

var (
	// ErrCrossStreet is returned when an operation is given two
	// abstractions, histograms, or isomorphisms from different streets.
	ErrCrossStreet = errors.New("abstraction: operands belong to different streets")

	// ErrZeroMass is returned when normalizing a Histogram with no weight.
	ErrZeroMass = errors.New("abstraction: histogram has zero total mass")

	// ErrUnobserved is returned by Encoder.Encode when the isomorphism was
	// never assigned during training.
	ErrUnobserved = errors.New("abstraction: isomorphism has no assigned abstraction")

	// ErrNotConverged flags that a transport solver hit its iteration
	// budget before its convergence threshold. The returned cost is the
	// last iterate, not a failure value; callers may treat this as
	// informational.
	ErrNotConverged = errors.New("abstraction: solver did not converge within iteration budget")
)
