// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package upfirdn

import (
	"math/rand/v2"
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/compute/dtypes"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/augments/wavelets"
)

// randomImage builds a deterministic random NCHW tensor as a flat slice.
func randomImage(seed uint64, size int) []float64 {
	rng := rand.New(rand.NewPCG(seed, 0))
	data := make([]float64, size)
	for i := range data {
		data[i] = rng.Float64()*2 - 1
	}
	return data
}

func TestReflectPad2D(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	got := MustExecOnce(backend, func(g *Graph) *Node {
		x := Const(g, []float64{1, 2, 3, 4, 5, 6, 7, 8})
		x = Reshape(x, 1, 1, 2, 4)
		return ReflectPad2D(x, Padding{Left: 2, Right: 1, Top: 1, Bottom: 1})
	})
	require.Equal(t, []int{1, 1, 4, 7}, got.Shape().Dimensions)
	want := []float64{
		7, 6, 5, 6, 7, 8, 7,
		3, 2, 1, 2, 3, 4, 3,
		7, 6, 5, 6, 7, 8, 7,
		3, 2, 1, 2, 3, 4, 3,
	}
	require.InDeltaSlice(t, want, tensors.MustCopyFlatData[float64](got), 0)
}

func TestReflectPad2DTooLargePanics(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	require.Panics(t, func() {
		MustExecOnce(backend, func(g *Graph) *Node {
			x := Iota(g, shapes.Make(dtypes.Float32, 1, 1, 3, 3), 3)
			return ReflectPad2D(x, Padding{Left: 3})
		})
	})
}

// TestUpDownRoundTrip checks the orthogonal-wavelet property the geometric
// executor relies on: upsample ×2 followed by downsample ×2 with the same
// low-pass filter reconstructs the image away from the boundary.
func TestUpDownRoundTrip(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	const size = 32
	taps := wavelets.GeomLowpass()
	data := randomImage(1, 2*1*size*size)
	interior := func(x *Node) *Node {
		return Slice(x, AxisRange(), AxisRange(), AxisRange(8, size-8), AxisRange(8, size-8))
	}
	got := MustExecOnce(backend, func(g *Graph) *Node {
		x := Reshape(Const(g, data), 2, 1, size, size)
		y := Downsample2D(Upsample2D(x, taps, 2), taps, 2, 0, true)
		require.Equal(t, x.Shape().Dimensions, y.Shape().Dimensions)
		return interior(y)
	})
	want := MustExecOnce(backend, func(g *Graph) *Node {
		return interior(Reshape(Const(g, data), 2, 1, size, size))
	})
	require.InDeltaSlice(t, tensors.MustCopyFlatData[float64](want),
		tensors.MustCopyFlatData[float64](got), 1e-4)
}

func TestUpsample2DKeepsConstantLevel(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	const size, level = 16, 0.625
	taps := wavelets.GeomLowpass()
	got := MustExecOnce(backend, func(g *Graph) *Node {
		x := MulScalar(Ones(g, shapes.Make(dtypes.Float64, 1, 3, size, size)), level)
		y := Upsample2D(x, taps, 2)
		require.Equal(t, []int{1, 3, 2 * size, 2 * size}, y.Shape().Dimensions)
		// Interior only: the zero padding bleeds into the filter support.
		return Slice(y, AxisRange(), AxisRange(), AxisRange(12, 2*size-12), AxisRange(12, 2*size-12))
	})
	for _, v := range tensors.MustCopyFlatData[float64](got) {
		require.InDelta(t, level, v, 1e-6)
	}
}

func TestGridSampleIdentity(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	const size = 8
	data := randomImage(7, 2*3*size*size)
	got := MustExecOnce(backend, func(g *Graph) *Node {
		x := Reshape(Const(g, data), 2, 3, size, size)
		// NDC texel centers: (2i+1)/size − 1 on both axes.
		ndc := func(coords *Node) *Node {
			return AddScalar(MulScalar(AddScalar(MulScalar(coords, 2), 1), 1.0/size), -1)
		}
		gx := ndc(Iota(g, shapes.Make(dtypes.Float64, 2, size, size), 2))
		gy := ndc(Iota(g, shapes.Make(dtypes.Float64, 2, size, size), 1))
		grid := Stack([]*Node{gx, gy}, -1) // [2, size, size, 2]
		return GridSample2D(x, grid)
	})
	require.InDeltaSlice(t, data, tensors.MustCopyFlatData[float64](got), 1e-9)
}

func TestGridSampleOutsideReadsZero(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	got := MustExecOnce(backend, func(g *Graph) *Node {
		x := Ones(g, shapes.Make(dtypes.Float64, 1, 1, 4, 4))
		// Every sample position far outside the input.
		grid := MulScalar(Ones(g, shapes.Make(dtypes.Float64, 1, 2, 2, 2)), 5)
		return GridSample2D(x, grid)
	})
	for _, v := range tensors.MustCopyFlatData[float64](got) {
		require.Zero(t, v)
	}
}

func TestFilterSeparable2DDelta(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	const size = 6
	data := randomImage(3, 2*1*size*size)
	got := MustExecOnce(backend, func(g *Graph) *Node {
		x := Reshape(Const(g, data), 2, 1, size, size)
		// Element 0: unit impulse (identity); element 1: doubled impulse,
		// which scales by 2 per separable pass.
		taps := Const(g, [][]float64{{0, 1, 0}, {0, 2, 0}})
		return FilterSeparable2D(x, taps)
	})
	flat := tensors.MustCopyFlatData[float64](got)
	half := size * size
	require.InDeltaSlice(t, data[:half], flat[:half], 1e-12)
	for i, v := range flat[half:] {
		require.InDelta(t, 4*data[half+i], v, 1e-12)
	}
}
