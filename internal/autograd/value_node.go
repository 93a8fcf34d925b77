package autograd

import "github.com/pkg/errors"

// ValueNode is the non-accumulating half of a graph node: the forward value,
// evaluated lazily at most once, and the operator used to differentiate it.
type ValueNode[D Data[D], C any] struct {
	data      D
	thunk     func() (D, error)
	evaluated bool

	// owned is false for views sharing another node's data; closing a view
	// never releases the data.
	owned bool

	op Operator[D, C]
	// versions of the operands when the node was built, to detect in-place
	// modifications made before backward.
	versions []uint64
	consumed bool
}

// Value returns the forward value, evaluating it on first access.
func (n *ValueNode[D, C]) Value() (D, error) {
	if n.evaluated {
		return n.data, nil
	}
	var zero D
	if n.thunk == nil {
		return zero, errors.Wrap(ErrInvalidState, "value was released")
	}
	d, err := n.thunk()
	if err != nil {
		return zero, errors.WithMessage(err, "evaluating lazy value")
	}
	n.data, n.evaluated, n.thunk = d, true, nil
	return d, nil
}

// Operator returns the descriptor of the operator that produced the node.
func (n *ValueNode[D, C]) Operator() Operator[D, C] {
	return n.op
}

// Consumed reports whether a backward pass without KeepGraph already used
// this node's operator.
func (n *ValueNode[D, C]) Consumed() bool {
	return n.consumed
}

// release drops the data and returns the release error of owned buffers.
func (n *ValueNode[D, C]) release() error {
	var err error
	if n.evaluated && n.owned {
		if r, ok := any(n.data).(Releaser); ok {
			err = r.Release()
		}
	}
	var zero D
	n.data, n.evaluated, n.thunk = zero, false, nil
	n.op = Operator[D, C]{Kind: n.op.Kind, Label: n.op.Label}
	n.versions = nil
	return err
}
