package autograd

// ContextRules combine operand contexts when operators are applied.
//
// A nil Binary keeps the first operand's context and a nil Unary keeps the
// operand's context. This default is permissive: it performs no compatibility
// check. Backends that need validation (e.g. strict shape equality) supply
// rules that fail with ErrShapeMismatch, so mismatches surface at forward
// time and never during backward.
type ContextRules[C any] struct {
	Binary func(a, b C) (C, error)
	Unary  func(a C) (C, error)
}

func (r *ContextRules[C]) binary(a, b C) (C, error) {
	if r == nil || r.Binary == nil {
		return a, nil
	}
	return r.Binary(a, b)
}

func (r *ContextRules[C]) unary(a C) (C, error) {
	if r == nil || r.Unary == nil {
		return a, nil
	}
	return r.Unary(a)
}
