package autograd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/autograd/internal/registry"
)

// Properties configure the construction of a leaf Value.
type Properties[C any] struct {
	// RequiresGrad allocates a GradNode. Immutable after construction.
	RequiresGrad bool
	// Context is the opaque shape/metadata of the value.
	Context C
	// Registry tracks the value. If nil, the active registry (if any) is used.
	Registry *registry.Registry
	// Name is a debugging label.
	Name string
	// Rules combine contexts for operators applied to this value. They are
	// inherited by derived values.
	Rules *ContextRules[C]
}

// Value is a differentiable value: a node of the computation graph.
type Value[D Data[D], C any] struct {
	id    int
	name  string
	state registry.State

	// prev are the operands that produced the value, in order; next are its
	// consumers, kept for diagnostics only.
	prev, next []*Value[D, C]

	// base is the value whose data a view shares; the view dies with it.
	base *Value[D, C]

	value ValueNode[D, C]
	grad  *GradNode[D, C]

	context      C
	requiresGrad bool
	rules        *ContextRules[C]
	registry     *registry.Registry

	// version is bumped by every in-place modification.
	version uint64

	// heldAsGrad is set once v is stored by a GradNode. Gradients may be
	// shared by several GradNodes, so they are never modified in place.
	heldAsGrad bool
}

// NewLeaf creates a leaf value holding data. The value owns data and releases
// it when closed.
func NewLeaf[D Data[D], C any](data D, props Properties[C]) *Value[D, C] {
	v := newValue[D](props)
	v.value.data, v.value.evaluated = data, true
	v.register(props.Registry)
	return v
}

// NewLazy creates a leaf whose data is produced by thunk on first access.
func NewLazy[D Data[D], C any](thunk func() (D, error), props Properties[C]) *Value[D, C] {
	v := newValue[D](props)
	v.value.thunk = thunk
	v.register(props.Registry)
	return v
}

// NewConstant creates a leaf that never requires gradients.
func NewConstant[D Data[D], C any](data D, props Properties[C]) *Value[D, C] {
	props.RequiresGrad = false
	return NewLeaf(data, props)
}

func newValue[D Data[D], C any](props Properties[C]) *Value[D, C] {
	v := &Value[D, C]{
		id:           -1,
		name:         props.Name,
		context:      props.Context,
		requiresGrad: props.RequiresGrad,
		rules:        props.Rules,
	}
	v.value.owned = true
	if v.requiresGrad {
		v.grad = &GradNode[D, C]{}
	}
	return v
}

// register tracks v in r, or in the active registry if r is nil.
func (v *Value[D, C]) register(r *registry.Registry) {
	if r == nil {
		r = registry.Active()
	}
	if r == nil {
		return
	}
	v.registry = r
	v.id = r.Register(v)
}

// ID returns the registry handle of the value, or -1 if untracked.
func (v *Value[D, C]) ID() int {
	return v.id
}

// Name returns the debugging label.
func (v *Value[D, C]) Name() string {
	return v.name
}

// SetName sets the debugging label and returns v.
func (v *Value[D, C]) SetName(name string) *Value[D, C] {
	v.name = name
	return v
}

// Context returns the value's context.
func (v *Value[D, C]) Context() C {
	return v.context
}

// Rules returns the context rules inherited by derived values.
func (v *Value[D, C]) Rules() *ContextRules[C] {
	return v.rules
}

// RequiresGrad reports whether the value accumulates gradients.
func (v *Value[D, C]) RequiresGrad() bool {
	return v.requiresGrad
}

// Registry returns the registry tracking v, or nil.
func (v *Value[D, C]) Registry() *registry.Registry {
	return v.registry
}

// State returns the lifecycle state.
func (v *Value[D, C]) State() registry.State {
	return v.state
}

// Prev returns the operands that produced v.
func (v *Value[D, C]) Prev() []*Value[D, C] {
	return v.prev
}

// Next returns the values built from v.
func (v *Value[D, C]) Next() []*Value[D, C] {
	return v.next
}

// Version returns the number of in-place modifications applied to v.
func (v *Value[D, C]) Version() uint64 {
	return v.version
}

// ValueNode returns the node holding the forward value and operator.
func (v *Value[D, C]) ValueNode() *ValueNode[D, C] {
	return &v.value
}

// GradNode returns the gradient accumulator, or nil if v does not require
// gradients.
func (v *Value[D, C]) GradNode() *GradNode[D, C] {
	return v.grad
}

// IsLeaf reports whether v was created directly rather than by an operator.
func (v *Value[D, C]) IsLeaf() bool {
	return v.value.op.Kind == OpLeaf
}

// Data returns the forward value, evaluating it if lazy.
func (v *Value[D, C]) Data() (D, error) {
	var zero D
	if v.state != registry.Open {
		return zero, errors.Wrapf(ErrInvalidState, "%s is %s", v.label(), v.state)
	}
	if !v.alive() {
		return zero, errors.Wrapf(ErrInvalidState, "%s is a view of a closed value", v.label())
	}
	return v.value.Value()
}

// alive reports whether v and, for views, the value holding its data are open.
func (v *Value[D, C]) alive() bool {
	for ; v != nil; v = v.base {
		if v.state != registry.Open {
			return false
		}
	}
	return true
}

// Float64s returns a flat copy of the forward value.
func (v *Value[D, C]) Float64s() ([]float64, error) {
	d, err := v.Data()
	if err != nil {
		return nil, err
	}
	return d.Float64s(), nil
}

// NumBytes reports the bytes held by the data, if the backend can tell.
func (v *Value[D, C]) NumBytes() int {
	if v.state != registry.Open || !v.value.evaluated || !v.value.owned {
		return 0
	}
	if s, ok := any(v.value.data).(Sizer); ok {
		return s.NumBytes()
	}
	return 0
}

// Grad returns the gradient of v.
//
// It fails with ErrInvalidState if v does not require gradients or is closed.
// It returns nil if no gradient was accumulated yet. If a native source is
// installed and not disabled, the native gradient is returned instead. Reads
// are idempotent: they return the same Value until a backward pass adds to it.
func (v *Value[D, C]) Grad() (*Value[D, C], error) {
	if !v.requiresGrad {
		return nil, errors.Wrapf(ErrInvalidState, "%s does not require gradients", v.label())
	}
	if v.state != registry.Open {
		return nil, errors.Wrapf(ErrInvalidState, "grad of %s, which is %s", v.label(), v.state)
	}
	if !v.grad.useNative() {
		if g := v.grad.grad; g != nil && !g.alive() {
			// Released with its registry.
			return nil, nil
		}
		return v.grad.grad, nil
	}
	if v.grad.nativeValue == nil {
		d, _, err := v.grad.NativeGrad()
		if err != nil {
			return nil, errors.WithMessagef(err, "native gradient of %s", v.label())
		}
		v.grad.nativeValue = v.view(d)
	}
	return v.grad.nativeValue, nil
}

// ZeroGrad forgets the gradient accumulated so far.
func (v *Value[D, C]) ZeroGrad() {
	if v.grad != nil {
		v.grad.Reset()
	}
}

// Detach returns a constant view sharing v's data. The view is not tracked
// by any registry and closing it does not release the data.
func (v *Value[D, C]) Detach() (*Value[D, C], error) {
	d, err := v.Data()
	if err != nil {
		return nil, err
	}
	return v.view(d), nil
}

// view wraps d, which must be v's data or outlive it, as an untracked constant
// with v's context and rules.
func (v *Value[D, C]) view(d D) *Value[D, C] {
	w := &Value[D, C]{
		id:       -1,
		name:     v.name,
		base:     v,
		context:  v.context,
		rules:    v.rules,
		registry: v.registry,
	}
	w.value.data, w.value.evaluated = d, true
	return w
}

// Close releases the value's data and graph links.
//
// Close is idempotent: closing a value that is closing or closed is a no-op.
// Values are usually closed in bulk by Registry.Close.
func (v *Value[D, C]) Close() error {
	if v.state != registry.Open {
		return nil
	}
	v.state = registry.Closing
	for _, p := range v.prev {
		p.dropConsumer(v)
	}
	v.prev, v.next = nil, nil
	v.grad = nil
	err := v.value.release()
	v.state = registry.Closed
	if err != nil {
		return errors.Wrapf(err, "releasing %s", v.label())
	}
	return nil
}

// CloseGraph closes v and every value it was built from.
//
// Shared substructure is closed once: a value already closing or closed is
// skipped. The first release error is returned after the whole graph is closed.
func (v *Value[D, C]) CloseGraph() error {
	var firstErr error
	stack := []*Value[D, C]{v}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.state != registry.Open {
			continue
		}
		// Collect operands before Close drops the links.
		stack = append(stack, n.prev...)
		if err := n.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// dropConsumer unlinks a closing consumer so long-lived operands (e.g.
// parameters) do not keep every graph they were used in.
func (v *Value[D, C]) dropConsumer(c *Value[D, C]) {
	for i, n := range v.next {
		if n == c {
			v.next = slices.Delete(v.next, i, i+1)
			return
		}
	}
}

// label identifies v in error messages.
func (v *Value[D, C]) label() string {
	var handle string
	if v.id >= 0 {
		handle = fmt.Sprintf(" #%d", v.id)
	}
	switch {
	case v.name != "":
		return fmt.Sprintf("value %q%s", v.name, handle)
	case v.IsLeaf():
		return "leaf" + handle
	default:
		return v.value.op.String() + handle
	}
}

// String renders the value for debugging, without forcing lazy evaluation.
func (v *Value[D, C]) String() string {
	var sb strings.Builder
	sb.WriteString("Value(")
	sb.WriteString(v.label())
	if v.state != registry.Open {
		fmt.Fprintf(&sb, ", %s)", v.state)
		return sb.String()
	}
	if !v.alive() {
		sb.WriteString(", view of closed value)")
		return sb.String()
	}
	if v.value.evaluated {
		fmt.Fprintf(&sb, ", data=%v", v.value.data.Float64s())
	} else {
		sb.WriteString(", data=<lazy>")
	}
	if v.requiresGrad {
		if g := v.grad.grad; g != nil && g.alive() && g.value.evaluated {
			fmt.Fprintf(&sb, ", grad=%v", g.value.data.Float64s())
		} else {
			sb.WriteString(", grad=<none>")
		}
	}
	sb.WriteString(")")
	return sb.String()
}
