package half

import (
	"github.com/born-ml/autograd/internal/autograd"
	"github.com/born-ml/autograd/internal/backend/dense"
)

// Value is a differentiable half precision tensor.
type Value = autograd.Value[*Tensor, dense.Shape]

// Param creates a leaf from t that requires gradients, with strict shape rules.
func Param(t *Tensor, name string) *Value {
	return autograd.NewLeaf(t, autograd.Properties[dense.Shape]{
		RequiresGrad: true,
		Context:      t.Shape(),
		Name:         name,
		Rules:        dense.StrictRules,
	})
}
