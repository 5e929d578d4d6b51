// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package augments

import (
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/augments/adaaug"
	"github.com/gomlx/augments/diffaug"
)

func TestNewSelectsBackend(t *testing.T) {
	aug, err := New(Options{})
	require.NoError(t, err)
	require.IsType(t, (*adaaug.Pipe)(nil), aug)

	aug, err = New(Options{Preset: "bgcfnc"})
	require.NoError(t, err)
	require.IsType(t, (*adaaug.Pipe)(nil), aug)

	aug, err = New(Options{Lightweight: true, Prob: 0.3})
	require.NoError(t, err)
	require.IsType(t, (*diffaug.Pipe)(nil), aug)

	_, err = New(Options{Preset: "nope"})
	require.Error(t, err)
	_, err = New(Options{Lightweight: true, Prob: 2})
	require.Error(t, err)
}

func TestBackendsShareTheInterface(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	for _, opts := range []Options{{Preset: "bg"}, {Lightweight: true, Prob: 0.5}} {
		aug, err := New(opts)
		require.NoError(t, err)
		ctx := context.New()
		ctx.SetRNGStateFromSeed(11)
		require.NoError(t, aug.SetStrength(ctx, 0.5))
		require.InDelta(t, 0.5, aug.Strength(ctx), 1e-7)

		images := tensors.FromFlatDataAndDimensions(make([]float32, 2*3*16*16), 2, 3, 16, 16)
		got := context.MustExecOnce(backend, ctx, func(ctx *context.Context, x *Node) *Node {
			return aug.Apply(ctx, x)
		}, images)
		require.Equal(t, []int{2, 3, 16, 16}, got.Shape().Dimensions)
	}
}
