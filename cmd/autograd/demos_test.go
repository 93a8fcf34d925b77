package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceRows(t *testing.T) {
	rows, err := referenceRows()
	require.NoError(t, err)
	require.Len(t, rows, 9)
	for _, r := range rows {
		if r.Backend == "half" {
			assert.InEpsilon(t, r.Want, r.Got, 0.02, "%s %s", r.Backend, r.Quantity)
			continue
		}
		assert.InDelta(t, r.Want, r.Got, 1e-4, "%s %s", r.Backend, r.Quantity)
	}
}

func TestHessianRows(t *testing.T) {
	rows, err := hessianRows()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	for _, r := range rows {
		assert.InDelta(t, r.Want, r.Got, 1e-9, r.Quantity)
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]row{{"scalar", "dg/da", 138.83381, 138.8338}})
	assert.Contains(t, out, "Quantity")
	assert.Contains(t, out, "dg/da")
	assert.Contains(t, out, "138.8338")
}
