// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package upfirdn implements the resampling primitives behind the geometric
// augmentation executor: upsample → FIR filter → downsample chains, boundary
// reflection padding, bilinear grid sampling and per-batch-element separable
// filtering.
//
// Everything operates on [batch, channels, height, width] (NCHW) float nodes
// and is built purely from graph ops with registered gradients, so the
// primitives are differentiable end to end.
//
// Numeric contract of UpFirDn2D (the core primitive): the input is upsampled
// by zero interleaving (factor up), zero-padded (negative pads crop),
// convolved with a separable 1-D FIR filter on each spatial axis, and
// subsampled by factor down. Output spatial size per axis is
// (size·up + padBefore + padAfter − numTaps) / down, rounded down, plus 1.
package upfirdn

import (
	"math"

	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors/images"
)

// Padding is the extra padding applied on each edge, in the order
// left, right, top, bottom (x0, x1, y0, y1). Negative values crop.
type Padding struct {
	Left, Right, Top, Bottom int
}

// checkNCHW panics unless x is a rank-4 float node.
func checkNCHW(x *Node, op string) {
	if x.Rank() != 4 || !x.DType().IsFloat() {
		exceptions.Panicf("upfirdn.%s: input must be a float [batch, channels, height, width] node, got %s",
			op, x.Shape())
	}
}

// kernel1D builds the [1, taps, 1, 1] (or [taps, 1, 1, 1] for the vertical
// pass) channels-last convolution kernel from the host-side filter taps.
// Convolve computes correlation, so for a true convolution the taps are
// reversed; flipFilter skips the reversal. Each of the two separable passes
// carries √gain so the full 2-D pass carries gain.
func kernel1D(g *Graph, x *Node, taps []float64, vertical, flipFilter bool, gain float64) *Node {
	scaled := make([]float64, len(taps))
	scale := math.Sqrt(gain)
	for i, tap := range taps {
		if flipFilter {
			scaled[i] = tap * scale
		} else {
			scaled[len(taps)-1-i] = tap * scale
		}
	}
	k := ConvertDType(Const(g, scaled), x.DType())
	if vertical {
		return Reshape(k, len(taps), 1, 1, 1)
	}
	return Reshape(k, 1, len(taps), 1, 1)
}

// UpFirDn2D upsamples x by zero interleaving, pads, applies the separable 1-D
// FIR filter taps on both spatial axes and subsamples. See the package doc
// for the numeric contract.
func UpFirDn2D(x *Node, taps []float64, up, down int, pad Padding, flipFilter bool, gain float64) *Node {
	checkNCHW(x, "UpFirDn2D")
	if up < 1 || down < 1 {
		exceptions.Panicf("upfirdn.UpFirDn2D: up and down factors must be ≥ 1, got up=%d, down=%d", up, down)
	}
	g := x.Graph()
	batchSize, channels := x.Shape().Dim(0), x.Shape().Dim(1)
	height, width := x.Shape().Dim(2), x.Shape().Dim(3)

	// Fold batch and channels together: the filter is shared across both.
	x = Reshape(x, batchSize*channels, height, width, 1)

	// Zero-interleave by up and pad, in one Pad op. The up−1 trailing zeros
	// complete the last upsampled sample.
	zero := ScalarZero(g, x.DType())
	x = Pad(x, zero,
		PadAxis{},
		PadAxis{Start: pad.Top, End: pad.Bottom + up - 1, Interior: up - 1},
		PadAxis{Start: pad.Left, End: pad.Right + up - 1, Interior: up - 1},
		PadAxis{})

	// Separable filtering, horizontal then vertical, with the down-sampling
	// folded into the convolution strides.
	x = Convolve(x, kernel1D(g, x, taps, false, flipFilter, gain)).
		ChannelsAxis(images.ChannelsLast).NoPadding().StridePerDim(1, down).Done()
	x = Convolve(x, kernel1D(g, x, taps, true, flipFilter, gain)).
		ChannelsAxis(images.ChannelsLast).NoPadding().StridePerDim(down, 1).Done()

	return Reshape(x, batchSize, channels, x.Shape().Dim(1), x.Shape().Dim(2))
}

// Upsample2D upsamples x by the integer factor up, anti-aliased by the
// separable FIR filter taps. The filter is centered so the image center stays
// put, and the gain up² preserves the mean pixel value.
func Upsample2D(x *Node, taps []float64, up int) *Node {
	numTaps := len(taps)
	pad := Padding{
		Left: (numTaps + up - 1) / 2, Right: (numTaps - up) / 2,
		Top: (numTaps + up - 1) / 2, Bottom: (numTaps - up) / 2,
	}
	return UpFirDn2D(x, taps, up, 1, pad, false, float64(up*up))
}

// Downsample2D low-pass filters x with the separable FIR filter taps and
// subsamples by the integer factor down. extraPad is added to the filter's
// own centering padding on every edge; negative values crop, which is how the
// geometric executor folds its reflection margin removal into the
// downsampling pass.
func Downsample2D(x *Node, taps []float64, down, extraPad int, flipFilter bool) *Node {
	numTaps := len(taps)
	pad := Padding{
		Left: extraPad + (numTaps-down+1)/2, Right: extraPad + (numTaps-down)/2,
		Top: extraPad + (numTaps-down+1)/2, Bottom: extraPad + (numTaps-down)/2,
	}
	return UpFirDn2D(x, taps, 1, down, pad, flipFilter, 1)
}

// ReflectPad2D pads the spatial axes of x by reflection, excluding the edge
// sample (the same convention as torch-style "reflect" padding). Each padding
// amount must be at most the corresponding spatial dimension minus one.
func ReflectPad2D(x *Node, pad Padding) *Node {
	checkNCHW(x, "ReflectPad2D")
	height, width := x.Shape().Dim(2), x.Shape().Dim(3)
	if pad.Left < 0 || pad.Right < 0 || pad.Top < 0 || pad.Bottom < 0 {
		exceptions.Panicf("upfirdn.ReflectPad2D: negative padding %+v", pad)
	}
	if pad.Left > width-1 || pad.Right > width-1 || pad.Top > height-1 || pad.Bottom > height-1 {
		exceptions.Panicf("upfirdn.ReflectPad2D: padding %+v too large for input %s (reflection excludes the edge)",
			pad, x.Shape())
	}
	x = reflectPadAxis(x, 3, width, pad.Left, pad.Right)
	x = reflectPadAxis(x, 2, height, pad.Top, pad.Bottom)
	return x
}

func reflectPadAxis(x *Node, axis, dim, before, after int) *Node {
	if before == 0 && after == 0 {
		return x
	}
	full := func() []SliceAxisSpec {
		return []SliceAxisSpec{AxisRange(), AxisRange(), AxisRange(), AxisRange()}
	}
	parts := make([]*Node, 0, 3)
	if before > 0 {
		spec := full()
		spec[axis] = AxisRange(1, before+1)
		parts = append(parts, Reverse(Slice(x, spec...), axis))
	}
	parts = append(parts, x)
	if after > 0 {
		spec := full()
		spec[axis] = AxisRange(dim-1-after, dim-1)
		parts = append(parts, Reverse(Slice(x, spec...), axis))
	}
	if len(parts) == 1 {
		return x
	}
	return Concatenate(parts, axis)
}
