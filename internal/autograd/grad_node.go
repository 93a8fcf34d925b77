package autograd

// GradNode accumulates the gradient of a Value across every consumer and
// every backward pass.
//
// A node never "has" a gradient until its first contribution. Accumulation
// replaces the stored gradient value with the sum but never replaces the
// GradNode itself, so handles taken before a second backward pass observe its
// contributions.
//
// A native source may supply gradients computed by an external mechanism
// (e.g. the backend's own autodiff). It is authoritative unless disabled, and
// exists to validate the engine against such backends or substitute for them.
type GradNode[D Data[D], C any] struct {
	grad *Value[D, C]

	native        func() (D, error)
	nativeValue   *Value[D, C]
	disableNative bool
}

// SetValue initializes (or overwrites) the stored gradient.
func (n *GradNode[D, C]) SetValue(v *Value[D, C]) {
	n.store(v)
}

// store keeps v as the gradient and drops the cached native gradient, which
// is read again on the next access.
func (n *GradNode[D, C]) store(v *Value[D, C]) {
	if v != nil {
		v.heldAsGrad = true
	}
	n.grad = v
	n.nativeValue = nil
}

// Add accumulates delta: stored = add(stored, delta), or stored = delta on
// the first contribution. A stored gradient that was closed (released with
// its registry) counts as no contribution.
func (n *GradNode[D, C]) Add(delta *Value[D, C], add func(a, b *Value[D, C]) (*Value[D, C], error)) error {
	if delta == nil {
		return nil
	}
	if n.grad == nil || !n.grad.alive() {
		n.store(delta)
		return nil
	}
	sum, err := add(n.grad, delta)
	if err != nil {
		return err
	}
	n.store(sum)
	return nil
}

// Value returns the gradient accumulated by the engine, or nil.
func (n *GradNode[D, C]) Value() *Value[D, C] {
	return n.grad
}

// Reset forgets the accumulated gradient and any cached native gradient.
func (n *GradNode[D, C]) Reset() {
	n.grad = nil
	n.nativeValue = nil
}

// SetNativeSource installs a provider of natively computed gradients.
func (n *GradNode[D, C]) SetNativeSource(fn func() (D, error)) {
	n.native = fn
	n.nativeValue = nil
}

// HasNativeSource reports whether a native provider is installed.
func (n *GradNode[D, C]) HasNativeSource() bool {
	return n.native != nil
}

// SetDisableNativeGradient selects the engine-computed gradient even if a
// native source is installed.
func (n *GradNode[D, C]) SetDisableNativeGradient(disable bool) {
	n.disableNative = disable
}

// IsDisableNativeGradient reports whether native gradients are ignored.
func (n *GradNode[D, C]) IsDisableNativeGradient() bool {
	return n.disableNative
}

// NativeGrad calls the native source. ok is false if none is installed.
func (n *GradNode[D, C]) NativeGrad() (d D, ok bool, err error) {
	if n.native == nil {
		return d, false, nil
	}
	d, err = n.native()
	return d, err == nil, err
}

// useNative reports whether reads resolve to the native source.
func (n *GradNode[D, C]) useNative() bool {
	return n.native != nil && !n.disableNative
}
