// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xform

import (
	"math"
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/stretchr/testify/require"
)

// hostMatMul multiplies dim×dim row-major matrices on the host.
func hostMatMul(dim int, a, b []float64) []float64 {
	out := make([]float64, dim*dim)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			for k := 0; k < dim; k++ {
				out[i*dim+j] += a[i*dim+k] * b[k*dim+j]
			}
		}
	}
	return out
}

func TestRotate2DEntries(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	theta := math.Pi / 3
	got := MustExecOnce(backend, func(g *Graph) *Node {
		return Rotate2D(Const(g, []float64{theta}))
	})
	c, s := math.Cos(theta), math.Sin(theta)
	want := []float64{c, -s, 0, s, c, 0, 0, 0, 1}
	require.InDeltaSlice(t, want, tensors.MustCopyFlatData[float64](got), 1e-15)
}

func TestClosedFormInverses(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	identity := []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	for name, fn := range map[string]func(g *Graph) *Node{
		"rotate": func(g *Graph) *Node {
			theta := Const(g, []float64{0.7, -2.1})
			return Compose(Rotate2D(theta), Rotate2DInv(theta))
		},
		"scale": func(g *Graph) *Node {
			sx := Const(g, []float64{2.0, 0.25})
			sy := Const(g, []float64{0.5, 3.0})
			return Compose(Scale2D(sx, sy), Scale2DInv(sx, sy))
		},
		"translate": func(g *Graph) *Node {
			tx := Const(g, []float64{13.0, -2.0})
			ty := Const(g, []float64{-7.5, 0.0})
			return Compose(Translate2D(tx, ty), Translate2DInv(tx, ty))
		},
	} {
		got := tensors.MustCopyFlatData[float64](MustExecOnce(backend, fn))
		require.Len(t, got, 2*9)
		require.InDeltaSlicef(t, identity, got[:9], 1e-14, "%s, batch element 0", name)
		require.InDeltaSlicef(t, identity, got[9:], 1e-14, "%s, batch element 1", name)
	}
}

// TestCompositionOrder fixes flip, 90°-rotation and translation parameters
// and checks the accumulated matrix is the explicit left-to-right product.
func TestCompositionOrder(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	const quarterTurn = -math.Pi / 2
	got := MustExecOnce(backend, func(g *Graph) *Node {
		flip := Scale2DInv(Const(g, []float64{-1}), Const(g, []float64{1}))
		rot90 := Rotate2DInv(Const(g, []float64{quarterTurn}))
		translate := Translate2DInv(Const(g, []float64{3}), Const(g, []float64{-5}))
		return Compose(flip, rot90, translate)
	})

	flip := []float64{-1, 0, 0, 0, 1, 0, 0, 0, 1}
	c, s := math.Cos(-quarterTurn), math.Sin(-quarterTurn)
	rot90 := []float64{c, -s, 0, s, c, 0, 0, 0, 1}
	translate := []float64{1, 0, -3, 0, 1, 5, 0, 0, 1}
	want := hostMatMul(3, hostMatMul(3, flip, rot90), translate)
	require.InDeltaSlice(t, want, tensors.MustCopyFlatData[float64](got), 1e-14)
}

func TestRotate3DKeepsAxisFixed(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	lumaAxis := []float64{1 / math.Sqrt(3), 1 / math.Sqrt(3), 1 / math.Sqrt(3)}
	got := MustExecOnce(backend, func(g *Graph) *Node {
		v := Const(g, lumaAxis)
		theta := Const(g, []float64{1.9})
		// Rotate the axis itself (homogeneous, w=1): must be a fixed point.
		axisH := Const(g, []float64{lumaAxis[0], lumaAxis[1], lumaAxis[2], 1})
		axisH = Reshape(axisH, 1, 4)
		return Einsum("bij,bj->bi", Rotate3D(v, theta), axisH)
	})
	want := append(append([]float64(nil), lumaAxis...), 1)
	require.InDeltaSlice(t, want, tensors.MustCopyFlatData[float64](got), 1e-14)
}

func TestRotate3DZeroAngleIsIdentity(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	got := MustExecOnce(backend, func(g *Graph) *Node {
		v := Const(g, []float64{0, 0, 1})
		return Rotate3D(v, Const(g, []float64{0}))
	})
	want := []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
	require.InDeltaSlice(t, want, tensors.MustCopyFlatData[float64](got), 1e-15)
}
