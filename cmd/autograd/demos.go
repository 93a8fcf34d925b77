package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/autograd/autograd"
	"github.com/born-ml/autograd/backend/dense"
	"github.com/born-ml/autograd/backend/half"
	"github.com/born-ml/autograd/backend/scalar"
	"github.com/born-ml/autograd/registry"
)

// row is one line of a result table.
type row struct {
	Backend, Quantity string
	Got, Want         float64
}

// referenceExpression builds g from a and b:
//
//	c = a + b; d = a*b + b³
//	c += c + 1; c += 1 + c - a
//	d += 2d + relu(b + a); d += 3d + relu(b - a)
//	e = c - d; f = e²; g = f/2 + 10/f
func referenceExpression[D autograd.Data[D], C any](a, b *autograd.Value[D, C]) *autograd.Value[D, C] {
	c := a.Add(b)
	d := a.Mul(b).Add(b.Mul(b).Mul(b))
	c = c.Add(c.AddScalar(1))
	c = c.Add(c.AddScalar(1).Sub(a))
	d = d.Add(d.MulScalar(2).Add(b.Add(a).ReLU()))
	d = d.Add(d.MulScalar(3).Add(b.Sub(a).ReLU()))
	e := c.Sub(d)
	f := e.Square()
	return f.DivScalar(2).Add(f.RDivScalar(10))
}

// referenceRows evaluates the reference expression on the scalar, dense and
// half precision backends.
func referenceRows() ([]row, error) {
	var rows []row
	err := registry.Scope("demo", func(r *registry.Registry) error {
		a, b := scalar.Param(-4, "a"), scalar.Param(2, "b")
		sRows, err := evaluate("scalar", a, b)
		if err != nil {
			return err
		}
		rows = append(rows, sRows...)

		ta, err := dense.FromSlice([]float64{-4}, dense.Shape{1})
		if err != nil {
			return err
		}
		tb, err := dense.FromSlice([]float64{2}, dense.Shape{1})
		if err != nil {
			return err
		}
		dRows, err := evaluate("dense/float64", dense.Param(ta, "a"), dense.Param(tb, "b"))
		if err != nil {
			return err
		}
		rows = append(rows, dRows...)

		ha, err := half.FromFloat32s([]float32{-4}, dense.Shape{1})
		if err != nil {
			return err
		}
		hb, err := half.FromFloat32s([]float32{2}, dense.Shape{1})
		if err != nil {
			return err
		}
		hRows, err := evaluate("half", half.Param(ha, "a"), half.Param(hb, "b"))
		if err != nil {
			return err
		}
		rows = append(rows, hRows...)
		klog.V(1).Infof("demo graphs before release: %s", r)
		return nil
	})
	return rows, err
}

func evaluate[D autograd.Data[D], C any](backend string, a, b *autograd.Value[D, C]) ([]row, error) {
	var g *autograd.Value[D, C]
	if err := autograd.Try(func() { g = referenceExpression(a, b) }); err != nil {
		return nil, errors.WithMessagef(err, "%s: forward", backend)
	}
	if err := g.Backward(autograd.BackwardConfig{}); err != nil {
		return nil, errors.WithMessagef(err, "%s: backward", backend)
	}
	gv, err := first(g)
	if err != nil {
		return nil, err
	}
	ga, err := firstGrad(a)
	if err != nil {
		return nil, err
	}
	gb, err := firstGrad(b)
	if err != nil {
		return nil, err
	}
	return []row{
		{backend, "g", gv, 24.7041},
		{backend, "dg/da", ga, 138.8338},
		{backend, "dg/db", gb, 645.5773},
	}, nil
}

// hessianRows computes z = x² + xy + y² at (0.5, 0.6), then the gradient of
// s = 2·dz/dx + dz/dy accumulated on top of the first gradients.
func hessianRows() ([]row, error) {
	var rows []row
	err := registry.Scope("hvp", func(*registry.Registry) error {
		x, y := scalar.Param(0.5, "x"), scalar.Param(0.6, "y")
		z := x.Square().Add(y.Mul(x)).Add(y.Square())
		if err := z.Backward(autograd.BackwardConfig{KeepGraph: true}); err != nil {
			return err
		}
		gx, err := x.Grad()
		if err != nil {
			return err
		}
		gy, err := y.Grad()
		if err != nil {
			return err
		}
		for _, r := range []struct {
			name string
			v    *scalar.Value
			want float64
		}{{"dz/dx", x, 1.6}, {"dz/dy", y, 1.7}} {
			got, err := scalar.GradFloat64(r.v)
			if err != nil {
				return err
			}
			rows = append(rows, row{"scalar", r.name, got, r.want})
		}

		s := gx.MulScalar(2).Add(gy)
		if err := s.Backward(autograd.BackwardConfig{KeepGraph: true}); err != nil {
			return err
		}
		for _, r := range []struct {
			name string
			v    *scalar.Value
			want float64
		}{{"dz/dx + d(s)/dx", x, 6.6}, {"dz/dy + d(s)/dy", y, 5.7}} {
			got, err := scalar.GradFloat64(r.v)
			if err != nil {
				return err
			}
			rows = append(rows, row{"scalar", r.name, got, r.want})
		}
		return nil
	})
	return rows, err
}

func first[D autograd.Data[D], C any](v *autograd.Value[D, C]) (float64, error) {
	values, err := v.Float64s()
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, errors.Wrap(autograd.ErrInvalidArgument, "empty value")
	}
	return values[0], nil
}

func firstGrad[D autograd.Data[D], C any](v *autograd.Value[D, C]) (float64, error) {
	g, err := v.Grad()
	if err != nil {
		return 0, err
	}
	if g == nil {
		return 0, nil
	}
	return first(g)
}

func renderTable(rows []row) string {
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	headerStyle := lipgloss.NewStyle().Padding(0, 1).Bold(true).Reverse(true)
	table := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == lgtable.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	table.Headers("Backend", "Quantity", "Got", "Reference")
	for _, r := range rows {
		table.Row(r.Backend, r.Quantity, fmt.Sprintf("%.4f", r.Got), fmt.Sprintf("%.4f", r.Want))
	}
	return table.String()
}
