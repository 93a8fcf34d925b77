package autograd

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/autograd/internal/registry"
)

// BackwardConfig configures a backward pass.
type BackwardConfig struct {
	// KeepGraph retains the graph after the pass. Backward rules then build
	// differentiable nodes, so the gradients can be differentiated again by a
	// later pass, whose contributions accumulate into the same GradNodes.
	//
	// Without it (the default) each visited operator is consumed and a second
	// pass over it fails with ErrGraphConsumed.
	KeepGraph bool
}

// Backward propagates the gradient of v to every value it depends on that
// requires gradients. v is seeded with ones shaped like its data.
func (v *Value[D, C]) Backward(cfg BackwardConfig) error {
	return backward(v, nil, cfg)
}

// BackwardWithSeed is like Backward but seeds v with the given upstream
// gradient.
func (v *Value[D, C]) BackwardWithSeed(seed D, cfg BackwardConfig) error {
	s := v.view(seed)
	s.base = nil
	return backward(v, s, cfg)
}

func backward[D Data[D], C any](root, seed *Value[D, C], cfg BackwardConfig) error {
	if !root.requiresGrad {
		return errors.Wrapf(ErrInvalidState, "backward from %s, which does not require gradients", root.label())
	}
	order, err := reverseTopological(root)
	if err != nil {
		return err
	}
	if seed == nil {
		d, err := root.Data()
		if err != nil {
			return errors.Wrapf(ErrInvalidArgument, "cannot infer unit seed for %s: %v", root.label(), err)
		}
		seed = root.constant(fullLike(d, 1))
	}
	klog.V(2).Infof("backward from %s: %d node(s), keepGraph=%t", root.label(), len(order), cfg.KeepGraph)

	add := func(a, b *Value[D, C]) (*Value[D, C], error) {
		if !cfg.KeepGraph {
			a, b = a.detached(), b.detached()
		}
		return ApplyBinary(a, b, func(x, y D) D { return x.Add(y) }, Operator[D, C]{Kind: OpAdd}, nil)
	}

	// Gradients of this pass only: a node's GradNode may already hold the
	// contributions of earlier passes, which must not be propagated again.
	pending := map[*Value[D, C]]*Value[D, C]{root: seed}
	for _, node := range order {
		g := pending[node]
		if g == nil {
			continue
		}
		delete(pending, node)
		if err := node.grad.Add(g, add); err != nil {
			return errors.WithMessagef(err, "accumulating gradient of %s", node.label())
		}
		if node.IsLeaf() {
			continue
		}
		if err := propagate(node, g, pending, add, cfg.KeepGraph); err != nil {
			return err
		}
	}
	return nil
}

// propagate runs node's backward rule with upstream gradient g and adds the
// results to the pending gradients of its operands.
func propagate[D Data[D], C any](node, g *Value[D, C], pending map[*Value[D, C]]*Value[D, C],
	add func(a, b *Value[D, C]) (*Value[D, C], error), keepGraph bool) error {
	op := &node.value.op
	operands := node.prev
	if !keepGraph {
		g = g.detached()
		operands = make([]*Value[D, C], len(node.prev))
		for i, o := range node.prev {
			operands[i] = o.detached()
		}
	}
	for i, o := range node.prev {
		if !o.requiresGrad {
			continue
		}
		grad, err := op.grad(g, operands, i)
		if err != nil {
			return errors.WithMessagef(err, "backward of %s, operand %d", node.label(), i)
		}
		if grad == nil {
			continue
		}
		if prevGrad := pending[o]; prevGrad != nil {
			if grad, err = add(prevGrad, grad); err != nil {
				return errors.WithMessagef(err, "accumulating gradient of %s", o.label())
			}
		}
		pending[o] = grad
	}
	if !keepGraph {
		node.value.consumed = true
		op.Grads = nil
		node.value.versions = nil
	}
	return nil
}

// reverseTopological lists root and every value it depends on that requires
// gradients, each one after all of its consumers.
//
// The whole graph is validated before anything is accumulated: consumed or
// closed nodes fail with ErrGraphConsumed, operands modified in place since
// they were used fail with ErrInvalidState.
func reverseTopological[D Data[D], C any](root *Value[D, C]) ([]*Value[D, C], error) {
	type frame struct {
		v    *Value[D, C]
		next int
	}
	if err := root.checkBackward(); err != nil {
		return nil, err
	}
	visited := map[*Value[D, C]]bool{root: true}
	stack := []frame{{v: root}}
	var postOrder []*Value[D, C]
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.v.prev) {
			p := top.v.prev[top.next]
			top.next++
			if !p.requiresGrad || visited[p] {
				continue
			}
			if err := p.checkBackward(); err != nil {
				return nil, err
			}
			visited[p] = true
			stack = append(stack, frame{v: p})
			continue
		}
		postOrder = append(postOrder, top.v)
		stack = stack[:len(stack)-1]
	}
	for i, j := 0, len(postOrder)-1; i < j; i, j = i+1, j-1 {
		postOrder[i], postOrder[j] = postOrder[j], postOrder[i]
	}
	return postOrder, nil
}

// checkBackward verifies v can take part in a backward pass.
func (v *Value[D, C]) checkBackward() error {
	if v.state != registry.Open {
		return errors.Wrapf(ErrGraphConsumed, "%s is %s", v.label(), v.state)
	}
	if v.IsLeaf() {
		return nil
	}
	if v.value.consumed {
		return errors.Wrapf(ErrGraphConsumed,
			"%s was used by a backward pass without KeepGraph", v.label())
	}
	for i, o := range v.prev {
		if o.version != v.value.versions[i] {
			return errors.Wrapf(ErrInvalidState,
				"operand %d of %s was modified in place after use (version %d, expected %d)",
				i, v.label(), o.version, v.value.versions[i])
		}
	}
	return nil
}

// detached returns an untracked constant view of v's evaluated data.
func (v *Value[D, C]) detached() *Value[D, C] {
	if !v.requiresGrad && v.id < 0 && !v.value.owned {
		return v
	}
	return v.view(v.value.data)
}

// constant wraps freshly allocated data as a tracked constant shaped like v.
func (v *Value[D, C]) constant(d D) *Value[D, C] {
	c := v.view(d)
	c.name, c.registry, c.base = "", nil, nil
	c.value.owned = true
	r := registry.Active()
	if r == nil {
		r = v.registry
	}
	c.register(r)
	return c
}
