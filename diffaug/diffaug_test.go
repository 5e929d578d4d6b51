// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package diffaug

import (
	"math"
	"math/rand/v2"
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImages(seed uint64, dims ...int) *tensors.Tensor {
	rng := rand.New(rand.NewPCG(seed, 0))
	size := 1
	for _, d := range dims {
		size *= d
	}
	data := make([]float32, size)
	for i := range data {
		data[i] = rng.Float32()*2 - 1
	}
	return tensors.FromFlatDataAndDimensions(data, dims...)
}

func TestNewValidation(t *testing.T) {
	_, err := New(0.5)
	require.NoError(t, err)
	for _, prob := range []float64{-0.1, 1.5, math.NaN()} {
		_, err := New(prob)
		require.Error(t, err, "prob=%g", prob)
	}
}

func TestZeroStrengthIsIdentity(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	ctx.SetRNGStateFromSeed(17)
	pipe, err := New(1)
	require.NoError(t, err)
	require.NoError(t, pipe.SetStrength(ctx, 0))
	images := testImages(1, 2, 3, 16, 16)
	got := context.MustExecOnce(backend, ctx, func(ctx *context.Context, x *Node) *Node {
		return pipe.Apply(ctx, x)
	}, images)
	assert.InDeltaSlice(t, tensors.MustCopyFlatData[float32](images),
		tensors.MustCopyFlatData[float32](got), 1e-5)
}

func TestShapeInvariance(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	pipe, err := New(1)
	require.NoError(t, err)
	for _, dims := range [][]int{{1, 3, 16, 16}, {4, 1, 8, 8}} {
		ctx := context.New()
		ctx.SetRNGStateFromSeed(23)
		images := testImages(2, dims...)
		got := context.MustExecOnce(backend, ctx, func(ctx *context.Context, x *Node) *Node {
			return pipe.Apply(ctx, x)
		}, images)
		require.Equal(t, dims, got.Shape().Dimensions)
		for _, v := range tensors.MustCopyFlatData[float32](got) {
			require.False(t, math.IsNaN(float64(v)) || math.IsInf(float64(v), 0))
		}
	}
}

// Gradients must reach the input images through every op of the pipeline.
func TestGradientFlowsToImages(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	ctx.SetRNGStateFromSeed(31)
	pipe, err := New(0.8)
	require.NoError(t, err)
	images := testImages(5, 2, 3, 16, 16)
	grad := context.MustExecOnce(backend, ctx, func(ctx *context.Context, x *Node) *Node {
		return Gradient(ReduceAllSum(pipe.Apply(ctx, x)), x)[0]
	}, images)
	require.Equal(t, images.Shape().Dimensions, grad.Shape().Dimensions)
	nonZero := 0
	for _, v := range tensors.MustCopyFlatData[float32](grad) {
		require.False(t, math.IsNaN(float64(v)) || math.IsInf(float64(v), 0))
		if v != 0 {
			nonZero++
		}
	}
	require.Greater(t, nonZero, 0)
}

// Two fresh contexts seeded identically must draw the same augmentations.
func TestSeededDeterminism(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	pipe, err := New(0.8)
	require.NoError(t, err)
	images := testImages(4, 2, 3, 16, 16)
	run := func() []float32 {
		ctx := context.New()
		ctx.SetRNGStateFromSeed(29)
		out := context.MustExecOnce(backend, ctx, func(ctx *context.Context, x *Node) *Node {
			return pipe.Apply(ctx, x)
		}, images)
		return tensors.MustCopyFlatData[float32](out)
	}
	require.InDeltaSlice(t, run(), run(), 0)
}

func TestApplyRejectsBadRank(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	ctx.SetRNGStateFromSeed(5)
	pipe, err := New(0.5)
	require.NoError(t, err)
	require.Panics(t, func() {
		context.MustExecOnce(backend, ctx, func(ctx *context.Context, x *Node) *Node {
			return pipe.Apply(ctx, x)
		}, testImages(3, 3, 8, 8))
	})
}
