package autograd

import (
	"github.com/pkg/errors"

	"github.com/born-ml/autograd/internal/registry"
)

// ApplyBinary applies a differentiable binary operator to a and b.
//
// forward computes the result data eagerly. context combines the operand
// contexts; if nil, a's rules are used (or b's if a has none). A context
// error fails the call immediately. The result requires gradients if either
// operand does and op is differentiable; only then is it linked to a and b.
//
// During backward, the gradient for each operand is computed by op and added
// (never assigned) to the operand's GradNode, since an operand may feed
// several consumers.
func ApplyBinary[D Data[D], C any](a, b *Value[D, C], forward func(x, y D) D, op Operator[D, C],
	context func(x, y C) (C, error)) (*Value[D, C], error) {
	ad, err := a.Data()
	if err != nil {
		return nil, errors.WithMessagef(err, "%s: first operand", op.String())
	}
	bd, err := b.Data()
	if err != nil {
		return nil, errors.WithMessagef(err, "%s: second operand", op.String())
	}
	if context == nil {
		context = a.rulesWith(b).binary
	}
	ctx, err := context(a.context, b.context)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s", op.String())
	}
	requiresGrad := (a.requiresGrad || b.requiresGrad) && op.Kind.Differentiable()
	return derive(forward(ad, bd), ctx, a.rulesWith(b), requiresGrad, op, a, b), nil
}

// ApplyUnary applies a differentiable unary operator to a. See ApplyBinary.
func ApplyUnary[D Data[D], C any](a *Value[D, C], forward func(x D) D, op Operator[D, C],
	context func(x C) (C, error)) (*Value[D, C], error) {
	ad, err := a.Data()
	if err != nil {
		return nil, errors.WithMessagef(err, "%s", op.String())
	}
	if context == nil {
		context = a.rules.unary
	}
	ctx, err := context(a.context)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s", op.String())
	}
	requiresGrad := a.requiresGrad && op.Kind.Differentiable()
	return derive(forward(ad), ctx, a.rules, requiresGrad, op, a), nil
}

// ApplyInlineBinary replaces a's data with forward(a, b), typically an
// in-place backend operation, and returns a.
//
// No node is created: in-place operators are not part of the differentiable
// graph. The version of a is bumped, so a later backward through a node that
// captured a fails instead of producing wrong gradients. Views and values held
// as gradients are rejected with ErrInvalidState: their data is shared.
func ApplyInlineBinary[D Data[D], C any](a, b *Value[D, C], forward func(x, y D) D, label string) (*Value[D, C], error) {
	if !a.value.owned {
		return nil, errors.Wrapf(ErrInvalidState, "%s: in-place update of a view of %s", label, a.label())
	}
	if a.heldAsGrad {
		return nil, errors.Wrapf(ErrInvalidState, "%s: in-place update of %s, which is a gradient", label, a.label())
	}
	ad, err := a.Data()
	if err != nil {
		return nil, errors.WithMessagef(err, "%s: receiver", label)
	}
	bd, err := b.Data()
	if err != nil {
		return nil, errors.WithMessagef(err, "%s: operand", label)
	}
	if _, err := a.rulesWith(b).binary(a.context, b.context); err != nil {
		return nil, errors.WithMessagef(err, "%s", label)
	}
	a.value.data = forward(ad, bd)
	a.version++
	return a, nil
}

// rulesWith returns the context rules for an operator between v and other.
func (v *Value[D, C]) rulesWith(other *Value[D, C]) *ContextRules[C] {
	if v.rules != nil {
		return v.rules
	}
	return other.rules
}

// derive builds the result node of an operator.
func derive[D Data[D], C any](data D, ctx C, rules *ContextRules[C], requiresGrad bool,
	op Operator[D, C], operands ...*Value[D, C]) *Value[D, C] {
	v := &Value[D, C]{
		id:           -1,
		context:      ctx,
		requiresGrad: requiresGrad,
		rules:        rules,
	}
	v.value.data, v.value.evaluated, v.value.owned = data, true, true
	if requiresGrad {
		v.grad = &GradNode[D, C]{}
		v.value.op = op
		v.value.versions = make([]uint64, len(operands))
		v.prev = operands
		for i, o := range operands {
			v.value.versions[i] = o.version
			o.next = append(o.next, v)
		}
	} else {
		// Constants keep the kind for diagnostics but capture nothing.
		v.value.op = Operator[D, C]{Kind: op.Kind, Label: op.Label, Scalar: op.Scalar}
	}

	r := registry.Active()
	for _, o := range operands {
		if r != nil {
			break
		}
		r = o.registry
	}
	v.register(r)
	return v
}
