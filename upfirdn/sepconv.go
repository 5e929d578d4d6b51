// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package upfirdn

import (
	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
)

// FilterSeparable2D filters every image of x with its own separable 1-D FIR
// filter: taps is [batch, numTaps] with numTaps odd, applied horizontally and
// then vertically, shared across channels. Boundaries are handled by
// reflection padding of half the filter support, so the output keeps x's
// shape. The taps are applied as correlation, not flipped.
//
// The per-sample filters rule out a single shared convolution kernel, and
// grouped convolutions have no gradient yet, so the correlation is unrolled
// into numTaps shifted slices per axis. Filters here are a few dozen taps, so
// the unrolled form stays small.
func FilterSeparable2D(x *Node, taps *Node) *Node {
	checkNCHW(x, "FilterSeparable2D")
	if taps.Rank() != 2 || taps.Shape().Dim(0) != x.Shape().Dim(0) {
		exceptions.Panicf("upfirdn.FilterSeparable2D: taps must be [batch, numTaps] with the batch of the images (%s), got %s",
			x.Shape(), taps.Shape())
	}
	numTaps := taps.Shape().Dim(1)
	if numTaps%2 != 1 {
		exceptions.Panicf("upfirdn.FilterSeparable2D: numTaps must be odd, got %d", numTaps)
	}
	if taps.DType() != x.DType() {
		taps = ConvertDType(taps, x.DType())
	}
	height, width := x.Shape().Dim(2), x.Shape().Dim(3)
	half := numTaps / 2

	x = ReflectPad2D(x, Padding{Left: half, Right: half, Top: half, Bottom: half})

	shiftAccumulate := func(x *Node, axis, outDim int) *Node {
		var sum *Node
		for k := 0; k < numTaps; k++ {
			spec := []SliceAxisSpec{AxisRange(), AxisRange(), AxisRange(), AxisRange()}
			spec[axis] = AxisRange(k, k+outDim)
			window := Slice(x, spec...)
			tap := Squeeze(Slice(taps, AxisRange(), AxisElem(k)), 1)
			tap = BroadcastToDims(InsertAxes(tap, -1, -1, -1), window.Shape().Dimensions...)
			term := Mul(window, tap)
			if sum == nil {
				sum = term
			} else {
				sum = Add(sum, term)
			}
		}
		return sum
	}

	x = shiftAccumulate(x, 3, width)  // width back to the input's, height still padded
	x = shiftAccumulate(x, 2, height)
	return x
}
