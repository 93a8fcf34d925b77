package autograd_test

import (
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/autograd/internal/autograd"
	"github.com/born-ml/autograd/internal/backend/scalar"
	"github.com/born-ml/autograd/internal/registry"
)

func value(t *testing.T, v *scalar.Value) float64 {
	t.Helper()
	return must.M1(scalar.Float64(v))
}

func grad(t *testing.T, v *scalar.Value) float64 {
	t.Helper()
	return must.M1(scalar.GradFloat64(v))
}

// TestBackward_FanOut checks that c = a + a accumulates both contributions.
func TestBackward_FanOut(t *testing.T) {
	a := scalar.Param(3, "a")
	c := a.Add(a)
	require.NoError(t, c.Backward(autograd.BackwardConfig{}))
	assert.Equal(t, 2.0, grad(t, a))
	assert.Equal(t, 1.0, grad(t, c))
}

// TestBackward_FanOutWithSeed scales the accumulated gradient by the seed.
func TestBackward_FanOutWithSeed(t *testing.T) {
	a := scalar.Param(3, "a")
	c := a.Add(a)
	require.NoError(t, c.BackwardWithSeed(scalar.New(3), autograd.BackwardConfig{}))
	assert.Equal(t, 6.0, grad(t, a))
}

// TestBackward_ReferenceExpression checks a chain of add/mul/div/relu against
// known values.
func TestBackward_ReferenceExpression(t *testing.T) {
	a := scalar.Param(-4, "a")
	b := scalar.Param(2, "b")
	c := a.Add(b)
	d := a.Mul(b).Add(b.Mul(b).Mul(b))
	c = c.Add(c.AddScalar(1))
	c = c.Add(c.AddScalar(1).Sub(a))
	d = d.Add(d.MulScalar(2).Add(b.Add(a).ReLU()))
	d = d.Add(d.MulScalar(3).Add(b.Sub(a).ReLU()))
	e := c.Sub(d)
	f := e.Square()
	g := f.DivScalar(2).Add(f.RDivScalar(10))

	assert.InDelta(t, 24.7041, value(t, g), 1e-4)
	require.NoError(t, g.Backward(autograd.BackwardConfig{}))
	assert.InDelta(t, 138.8338, grad(t, a), 1e-4)
	assert.InDelta(t, 645.5773, grad(t, b), 1e-4)
}

// TestBackward_HessianVectorProduct differentiates the gradients of a
// retained graph a second time.
func TestBackward_HessianVectorProduct(t *testing.T) {
	x := scalar.Param(0.5, "x")
	y := scalar.Param(0.6, "y")
	z := x.Square().Add(y.Mul(x)).Add(y.Square())

	require.NoError(t, z.Backward(autograd.BackwardConfig{KeepGraph: true}))
	assert.InDelta(t, 1.6, grad(t, x), 1e-9)
	assert.InDelta(t, 1.7, grad(t, y), 1e-9)

	gradNodeX, gradNodeY := x.GradNode(), y.GradNode()
	gx := must.M1(x.Grad())
	gy := must.M1(y.Grad())
	require.True(t, gx.RequiresGrad(), "gradients of a retained graph are differentiable")

	s := gx.MulScalar(2).Add(gy)
	require.NoError(t, s.Backward(autograd.BackwardConfig{KeepGraph: true}))
	assert.Same(t, gradNodeX, x.GradNode())
	assert.Same(t, gradNodeY, y.GradNode())
	assert.InDelta(t, 6.6, grad(t, x), 1e-9)
	assert.InDelta(t, 5.7, grad(t, y), 1e-9)
}

// TestBackward_SecondOrderThroughInterior checks that gradients accumulated
// on interior nodes by a first pass are not propagated again by a second one.
func TestBackward_SecondOrderThroughInterior(t *testing.T) {
	x := scalar.Param(2, "x")
	w := x.Mul(x)   // w = x²
	z := w.Mul(w)   // z = x⁴
	require.NoError(t, z.Backward(autograd.BackwardConfig{KeepGraph: true}))
	gx := must.M1(x.Grad())
	assert.InDelta(t, 32.0, value(t, gx), 1e-9) // 4x³

	require.NoError(t, gx.Backward(autograd.BackwardConfig{}))
	assert.InDelta(t, 32.0+48.0, grad(t, x), 1e-9) // + 12x²
}

// TestBackward_GraphConsumed checks that a graph can only be replayed when
// it was retained.
func TestBackward_GraphConsumed(t *testing.T) {
	a := scalar.Param(2, "a")
	b := scalar.Param(5, "b")
	c := a.Mul(b)
	require.NoError(t, c.Backward(autograd.BackwardConfig{}))
	assert.True(t, c.ValueNode().Consumed())

	err := c.Backward(autograd.BackwardConfig{})
	require.ErrorIs(t, err, autograd.ErrGraphConsumed)
	err = c.Backward(autograd.BackwardConfig{KeepGraph: true})
	require.ErrorIs(t, err, autograd.ErrGraphConsumed)

	// A failed pass leaves the gradients untouched.
	assert.Equal(t, 5.0, grad(t, a))
	assert.Equal(t, 2.0, grad(t, b))
}

// TestBackward_ConsumedIntermediate fails for a new terminal built on a
// consumed node.
func TestBackward_ConsumedIntermediate(t *testing.T) {
	a := scalar.Param(2, "a")
	c := a.Mul(a)
	require.NoError(t, c.Backward(autograd.BackwardConfig{}))
	d := c.AddScalar(1)
	require.ErrorIs(t, d.Backward(autograd.BackwardConfig{}), autograd.ErrGraphConsumed)
}

// TestBackward_KeepGraphTwice accumulates two identical passes.
func TestBackward_KeepGraphTwice(t *testing.T) {
	a := scalar.Param(2, "a")
	b := scalar.Param(5, "b")
	c := a.Mul(b)
	require.NoError(t, c.Backward(autograd.BackwardConfig{KeepGraph: true}))
	require.NoError(t, c.Backward(autograd.BackwardConfig{KeepGraph: true}))
	assert.Equal(t, 10.0, grad(t, a))
	assert.Equal(t, 4.0, grad(t, b))
}

// TestGrad_NoGradIsolation checks constants never get gradients.
func TestGrad_NoGradIsolation(t *testing.T) {
	a := scalar.Param(3, "a")
	b := scalar.Const(4)
	assert.Nil(t, b.GradNode())

	c := a.Mul(b)
	require.Len(t, c.Prev(), 2)
	require.NoError(t, c.Backward(autograd.BackwardConfig{}))
	assert.Equal(t, 4.0, grad(t, a))
	assert.Nil(t, b.GradNode())

	_, err := b.Grad()
	require.ErrorIs(t, err, autograd.ErrInvalidState)
}

// TestGrad_ConstantsHaveNoEdges checks that a result that does not require
// gradients records no graph links.
func TestGrad_ConstantsHaveNoEdges(t *testing.T) {
	a, b := scalar.Const(1), scalar.Const(2)
	c := a.Add(b)
	assert.False(t, c.RequiresGrad())
	assert.Empty(t, c.Prev())
	assert.Empty(t, a.Next())
	require.ErrorIs(t, c.Backward(autograd.BackwardConfig{}), autograd.ErrInvalidState)
}

// TestGrad_ReadIsIdempotent checks repeated reads return the same node.
func TestGrad_ReadIsIdempotent(t *testing.T) {
	a := scalar.Param(3, "a")
	assert.Nil(t, must.M1(a.Grad()), "no gradient before the first contribution")

	c := a.Mul(a)
	require.NoError(t, c.Backward(autograd.BackwardConfig{}))
	g1 := must.M1(a.Grad())
	g2 := must.M1(a.Grad())
	assert.Same(t, g1, g2)
	assert.Equal(t, 6.0, value(t, g1))

	a.ZeroGrad()
	assert.Nil(t, must.M1(a.Grad()))
}

// TestInPlace_NotRecorded checks in-place updates create no graph edges.
func TestInPlace_NotRecorded(t *testing.T) {
	x := scalar.Param(1, "x")
	y := scalar.Param(2, "y")
	got := x.AddInPlace(y)
	assert.Same(t, x, got)
	assert.Equal(t, 3.0, value(t, x))
	assert.Empty(t, x.Prev())
	assert.EqualValues(t, 1, x.Version())

	x.SubInPlace(y)
	assert.Equal(t, 1.0, value(t, x))

	// Backward from x only seeds x itself.
	require.NoError(t, x.Backward(autograd.BackwardConfig{}))
	assert.Equal(t, 1.0, grad(t, x))
	assert.Nil(t, must.M1(y.Grad()))
}

// TestInPlace_ConstantFailsBackward checks backward through an in-place
// produced constant fails.
func TestInPlace_ConstantFailsBackward(t *testing.T) {
	x := scalar.Const(1)
	x.AddInPlace(scalar.Param(2, "y"))
	require.ErrorIs(t, x.Backward(autograd.BackwardConfig{}), autograd.ErrInvalidState)
}

// TestInPlace_StaleOperand checks backward refuses operands modified in place
// after they were used.
func TestInPlace_StaleOperand(t *testing.T) {
	x := scalar.Param(2, "x")
	w := scalar.Param(3, "w")
	z := x.Mul(w)
	x.AddInPlace(scalar.Const(1))

	err := z.Backward(autograd.BackwardConfig{})
	require.ErrorIs(t, err, autograd.ErrInvalidState)
	assert.Nil(t, must.M1(w.Grad()))
}

// TestInPlace_ViewRejected checks detached views cannot be updated in place.
func TestInPlace_ViewRejected(t *testing.T) {
	x := scalar.Param(2, "x")
	view := must.M1(x.Detach())
	err := autograd.Try(func() { view.AddInPlace(scalar.Const(1)) })
	require.ErrorIs(t, err, autograd.ErrInvalidState)
	assert.Equal(t, 2.0, value(t, x))
}

// TestOps_Gradients checks the backward rule of every built-in operator.
func TestOps_Gradients(t *testing.T) {
	tests := []struct {
		name         string
		build        func(a, b *scalar.Value) *scalar.Value
		wantValue    float64
		wantA, wantB float64
	}{
		{"add", (*scalar.Value).Add, 5, 1, 1},
		{"sub", (*scalar.Value).Sub, -1, 1, -1},
		{"mul", (*scalar.Value).Mul, 6, 3, 2},
		{"div", (*scalar.Value).Div, 2.0 / 3.0, 1.0 / 3.0, -2.0 / 9.0},
		{"neg", func(a, _ *scalar.Value) *scalar.Value { return a.Neg() }, -2, -1, 0},
		{"add_scalar", func(a, _ *scalar.Value) *scalar.Value { return a.AddScalar(4) }, 6, 1, 0},
		{"sub_scalar", func(a, _ *scalar.Value) *scalar.Value { return a.SubScalar(4) }, -2, 1, 0},
		{"mul_scalar", func(a, _ *scalar.Value) *scalar.Value { return a.MulScalar(4) }, 8, 4, 0},
		{"div_scalar", func(a, _ *scalar.Value) *scalar.Value { return a.DivScalar(4) }, 0.5, 0.25, 0},
		{"rsub_scalar", func(a, _ *scalar.Value) *scalar.Value { return a.RSubScalar(4) }, 2, -1, 0},
		{"rdiv_scalar", func(a, _ *scalar.Value) *scalar.Value { return a.RDivScalar(4) }, 2, -1, 0},
		{"square", func(a, _ *scalar.Value) *scalar.Value { return a.Square() }, 4, 4, 0},
		{"relu_positive", func(a, _ *scalar.Value) *scalar.Value { return a.ReLU() }, 2, 1, 0},
		{"relu_negative", func(_, b *scalar.Value) *scalar.Value { return b.Neg().ReLU() }, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := scalar.Param(2, "a")
			b := scalar.Param(3, "b")
			out := tt.build(a, b)
			assert.InDelta(t, tt.wantValue, value(t, out), 1e-12)
			require.NoError(t, out.Backward(autograd.BackwardConfig{}))
			assert.InDelta(t, tt.wantA, grad(t, a), 1e-12)
			assert.InDelta(t, tt.wantB, grad(t, b), 1e-12)
		})
	}
}

// TestOps_ComparisonMasks checks masks are constants.
func TestOps_ComparisonMasks(t *testing.T) {
	a := scalar.Param(2, "a")
	assert.Equal(t, 1.0, value(t, a.Gt(1)))
	assert.Equal(t, 0.0, value(t, a.Gt(2)))
	assert.Equal(t, 1.0, value(t, a.Gte(2)))
	assert.Equal(t, 0.0, value(t, a.Gte(3)))

	mask := a.Gte(0)
	assert.False(t, mask.RequiresGrad())
	assert.Equal(t, autograd.OpGte, mask.ValueNode().Operator().Kind)
}

// TestApply_Custom checks custom operators route each operand's gradient.
func TestApply_Custom(t *testing.T) {
	a := scalar.Param(2, "a")
	b := scalar.Param(5, "b")
	// f(a, b) = a*b + a
	op := autograd.Custom[*scalar.Scalar, scalar.Unit]("mul_add",
		func(g *scalar.Value, in []*scalar.Value) (*scalar.Value, error) {
			return g.Mul(in[1].AddScalar(1)), nil
		},
		func(g *scalar.Value, in []*scalar.Value) (*scalar.Value, error) {
			return g.Mul(in[0]), nil
		})
	f, err := autograd.ApplyBinary(a, b, func(x, y *scalar.Scalar) *scalar.Scalar { return x.Mul(y).Add(x) }, op, nil)
	require.NoError(t, err)
	assert.Equal(t, 12.0, value(t, f))
	assert.Equal(t, "mul_add", f.ValueNode().Operator().String())

	require.NoError(t, f.Backward(autograd.BackwardConfig{}))
	assert.Equal(t, 6.0, grad(t, a))
	assert.Equal(t, 2.0, grad(t, b))
}

// TestApply_CustomWithoutGradient checks a nil GradFunc stops the gradient.
func TestApply_CustomWithoutGradient(t *testing.T) {
	a := scalar.Param(2, "a")
	op := autograd.Custom[*scalar.Scalar, scalar.Unit]("stop_gradient", nil)
	f, err := autograd.ApplyUnary(a, func(x *scalar.Scalar) *scalar.Scalar { return x.MulScalar(1) }, op, nil)
	require.NoError(t, err)
	require.NoError(t, f.Backward(autograd.BackwardConfig{}))
	assert.Nil(t, must.M1(a.Grad()))
}

// TestApply_ContextMapperError checks context errors fail at forward time.
func TestApply_ContextMapperError(t *testing.T) {
	a := scalar.Param(2, "a")
	b := scalar.Param(3, "b")
	_, err := autograd.ApplyBinary(a, b, func(x, y *scalar.Scalar) *scalar.Scalar { return x.Add(y) },
		autograd.Operator[*scalar.Scalar, scalar.Unit]{Kind: autograd.OpAdd},
		func(x, y scalar.Unit) (scalar.Unit, error) { return x, autograd.ErrShapeMismatch })
	require.ErrorIs(t, err, autograd.ErrShapeMismatch)
	assert.Empty(t, a.Next())
}

// TestNativeGradient checks native gradients are authoritative unless
// disabled, and match the engine.
func TestNativeGradient(t *testing.T) {
	x := scalar.Param(1.5, "x")
	y := x.Mul(x).Mul(x)
	require.NoError(t, y.Backward(autograd.BackwardConfig{}))
	engine := grad(t, x)

	calls := 0
	gn := x.GradNode()
	gn.SetNativeSource(func() (*scalar.Scalar, error) {
		calls++
		return scalar.New(3 * 1.5 * 1.5), nil
	})
	assert.True(t, gn.HasNativeSource())
	assert.False(t, gn.IsDisableNativeGradient())

	native := must.M1(x.Grad())
	assert.Same(t, native, must.M1(x.Grad()))
	assert.Equal(t, 1, calls, "native gradient is cached between reads")
	assert.InDelta(t, engine, value(t, native), 1e-12)

	gn.SetDisableNativeGradient(true)
	assert.True(t, gn.IsDisableNativeGradient())
	assert.Same(t, gn.Value(), must.M1(x.Grad()))
	assert.InDelta(t, 6.75, grad(t, x), 1e-12)
}

// TestLazyLeaf checks lazy leaves are evaluated once, on first use.
func TestLazyLeaf(t *testing.T) {
	calls := 0
	x := autograd.NewLazy(func() (*scalar.Scalar, error) {
		calls++
		return scalar.New(4), nil
	}, autograd.Properties[scalar.Unit]{RequiresGrad: true, Name: "lazy"})
	assert.Equal(t, 0, calls)
	assert.Contains(t, x.String(), "<lazy>")

	y := x.Mul(x)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 16.0, value(t, y))
	require.NoError(t, y.Backward(autograd.BackwardConfig{}))
	assert.Equal(t, 8.0, grad(t, x))
	assert.Equal(t, 1, calls)
}

// TestLazyLeaf_Error checks evaluation errors surface from operators.
func TestLazyLeaf_Error(t *testing.T) {
	x := autograd.NewLazy(func() (*scalar.Scalar, error) {
		return nil, autograd.ErrInvalidArgument
	}, autograd.Properties[scalar.Unit]{RequiresGrad: true})
	err := autograd.Try(func() { x.AddScalar(1) })
	require.ErrorIs(t, err, autograd.ErrInvalidArgument)
	require.ErrorIs(t, x.Backward(autograd.BackwardConfig{}), autograd.ErrInvalidArgument)
}

// TestClose checks closing is idempotent and releases graph links.
func TestClose(t *testing.T) {
	a := scalar.Param(2, "a")
	b := scalar.Param(3, "b")
	c := a.Mul(b)
	require.Len(t, a.Next(), 1)

	require.NoError(t, c.Close())
	assert.Equal(t, registry.Closed, c.State())
	require.NoError(t, c.Close())
	assert.Empty(t, c.Prev())
	assert.Empty(t, a.Next())

	_, err := c.Data()
	require.ErrorIs(t, err, autograd.ErrInvalidState)
	_, err = c.Grad()
	require.ErrorIs(t, err, autograd.ErrInvalidState)
	require.ErrorIs(t, c.Backward(autograd.BackwardConfig{}), autograd.ErrGraphConsumed)
	err = autograd.Try(func() { c.Add(a) })
	require.ErrorIs(t, err, autograd.ErrInvalidState)
}

// TestCloseGraph closes shared substructure once.
func TestCloseGraph(t *testing.T) {
	a := scalar.Param(2, "a")
	b := a.Mul(a)
	c := b.Add(b).Add(a)
	require.NoError(t, c.CloseGraph())
	for _, v := range []*scalar.Value{a, b, c} {
		assert.Equal(t, registry.Closed, v.State())
	}
	require.NoError(t, c.CloseGraph())
}

// TestBackward_ClosedOperand fails before accumulating anything.
func TestBackward_ClosedOperand(t *testing.T) {
	a := scalar.Param(2, "a")
	b := scalar.Param(3, "b")
	c := a.Mul(b)
	require.NoError(t, a.Close())
	require.ErrorIs(t, c.Backward(autograd.BackwardConfig{}), autograd.ErrGraphConsumed)
	assert.Nil(t, must.M1(b.Grad()))
}

// TestValue_String renders data and gradient.
func TestValue_String(t *testing.T) {
	a := scalar.Param(2, "a")
	assert.Contains(t, a.String(), `"a"`)
	assert.Contains(t, a.String(), "grad=<none>")
	c := a.MulScalar(3)
	require.NoError(t, c.Backward(autograd.BackwardConfig{}))
	assert.Contains(t, a.String(), "grad=[3]")
	assert.Contains(t, c.String(), "mul_scalar")
	require.NoError(t, c.Close())
	assert.Contains(t, c.String(), "closed")
}

// TestDetach_ViewDiesWithBase checks views of closed values cannot be read.
func TestDetach_ViewDiesWithBase(t *testing.T) {
	x := scalar.Param(2, "x")
	view := must.M1(x.Detach())
	assert.False(t, view.RequiresGrad())
	assert.Equal(t, 2.0, value(t, view))

	require.NoError(t, x.Close())
	_, err := view.Data()
	require.ErrorIs(t, err, autograd.ErrInvalidState)
	assert.Contains(t, view.String(), "view of closed value")
}

// TestNativeGradient_RefreshedByBackward checks a cached native gradient is
// read again once a backward pass adds to the node.
func TestNativeGradient_RefreshedByBackward(t *testing.T) {
	x := scalar.Param(2, "x")
	y := x.Mul(x)
	gn := x.GradNode()
	gn.SetNativeSource(func() (*scalar.Scalar, error) {
		return gn.Value().Data()
	})

	require.NoError(t, y.Backward(autograd.BackwardConfig{KeepGraph: true}))
	first := must.M1(x.Grad())
	assert.Equal(t, 4.0, value(t, first))
	assert.Same(t, first, must.M1(x.Grad()))

	require.NoError(t, y.Backward(autograd.BackwardConfig{KeepGraph: true}))
	second := must.M1(x.Grad())
	assert.NotSame(t, first, second)
	assert.Equal(t, 8.0, value(t, second))
	assert.Same(t, second, must.M1(x.Grad()))
}

// TestGrad_SharedGradientsAreReadOnly checks gradients shared by several
// GradNodes cannot be modified in place.
func TestGrad_SharedGradientsAreReadOnly(t *testing.T) {
	a := scalar.Param(1, "a")
	b := scalar.Param(2, "b")
	c := a.Add(b)
	require.NoError(t, c.Backward(autograd.BackwardConfig{KeepGraph: true}))

	ga := must.M1(a.Grad())
	err := autograd.Try(func() { ga.AddInPlace(scalar.Const(5)) })
	require.ErrorIs(t, err, autograd.ErrInvalidState)
	assert.Contains(t, err.Error(), "gradient")
	for _, v := range []*scalar.Value{a, b, c} {
		assert.Equal(t, 1.0, grad(t, v), v.Name())
	}

	// Out-of-place arithmetic on gradients is fine.
	assert.Equal(t, 6.0, value(t, ga.AddScalar(5)))
}

// TestErrors_UntrackedLabels checks error messages only show registry handles
// of tracked values.
func TestErrors_UntrackedLabels(t *testing.T) {
	a := scalar.Param(1, "a")
	c := a.Add(a)
	require.NoError(t, c.Backward(autograd.BackwardConfig{}))
	err := c.Backward(autograd.BackwardConfig{})
	require.ErrorIs(t, err, autograd.ErrGraphConsumed)
	assert.Contains(t, err.Error(), "add was used by a backward pass")
	assert.NotContains(t, err.Error(), "#-1")

	r := registry.New("labels")
	tracked := scalar.ParamIn(r, 1, "t")
	assert.Contains(t, tracked.String(), `value "t" #0`)
	require.NoError(t, r.Close())
}
