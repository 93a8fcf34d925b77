package autograd

import (
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Sentinel errors. Failures are wrapped with context; match them with errors.Is.
var (
	// ErrInvalidState reports an operation on a node in the wrong state: reading
	// the gradient of a value that does not require it, using a closed value, or
	// backward through an operand modified in place.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidArgument reports a bad argument, e.g. no unit seed could be
	// inferred for the terminal of a backward pass.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrGraphConsumed reports a backward pass over a graph whose operators were
	// consumed by a previous pass that did not keep the graph.
	ErrGraphConsumed = errors.New("graph consumed")

	// ErrShapeMismatch reports incompatible contexts in a binary operator.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// Try runs fn and returns the error it panicked with, if any.
//
// Fluent operator methods panic on failure so expressions can be chained; Try
// turns those panics back into errors. Panics with non-error values are
// re-raised.
func Try(fn func()) error {
	return exceptions.TryCatch[error](fn)
}
