package autograd

// Data is the contract a numeric backend must satisfy to be differentiated.
//
// All operations except AddInPlace and SubInPlace are pure: they return new
// data and never mutate their operands. The in-place variants mutate and return
// the receiver.
type Data[D any] interface {
	Add(other D) D
	Sub(other D) D
	Mul(other D) D
	Div(other D) D

	AddScalar(s float64) D
	SubScalar(s float64) D
	MulScalar(s float64) D
	DivScalar(s float64) D

	AddInPlace(other D) D
	SubInPlace(other D) D

	Neg() D

	// Gt and Gte return a 0/1 mask of the same shape.
	Gt(s float64) D
	Gte(s float64) D

	// Float64s returns a flat copy of the values, in the backend's order.
	Float64s() []float64
}

// Filler is implemented by data that can build a constant of its own shape.
type Filler[D any] interface {
	FullLike(v float64) D
}

// Releaser is implemented by data holding buffers that must be freed
// explicitly when their node closes.
type Releaser interface {
	Release() error
}

// Sizer reports the number of bytes held by data.
type Sizer interface {
	NumBytes() int
}

// fullLike returns data shaped like d filled with v.
// Backends without Filler get d*0+v, which is wrong for non-finite values of d.
func fullLike[D Data[D]](d D, v float64) D {
	if f, ok := any(d).(Filler[D]); ok {
		return f.FullLike(v)
	}
	return d.MulScalar(0).AddScalar(v)
}
