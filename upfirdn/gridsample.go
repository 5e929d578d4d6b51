// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package upfirdn

import (
	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/compute/dtypes"
)

// GridSample2D samples x ([batch, channels, inH, inW]) at the positions given
// by grid ([batch, outH, outW, 2], normalized device coordinates with the
// corners-excluded convention: x=−1 maps half a texel left of the first
// column, x=+1 half a texel right of the last). Interpolation is bilinear and
// positions outside the input read as zero.
//
// Gradients flow both into x (through the gathered texels) and into grid
// (through the bilinear weights).
func GridSample2D(x, grid *Node) *Node {
	checkNCHW(x, "GridSample2D")
	g := x.Graph()
	dtype := x.DType()
	batchSize, channels := x.Shape().Dim(0), x.Shape().Dim(1)
	inH, inW := x.Shape().Dim(2), x.Shape().Dim(3)
	if grid.Rank() != 4 || grid.Shape().Dim(0) != batchSize || grid.Shape().Dim(3) != 2 {
		exceptions.Panicf("upfirdn.GridSample2D: grid must be shaped [%d, outH, outW, 2], got %s",
			batchSize, grid.Shape())
	}
	outH, outW := grid.Shape().Dim(1), grid.Shape().Dim(2)

	// NDC → continuous input texel coordinates (corners excluded).
	gx := Squeeze(Slice(grid, AxisRange(), AxisRange(), AxisRange(), AxisElem(0)), -1)
	gy := Squeeze(Slice(grid, AxisRange(), AxisRange(), AxisRange(), AxisElem(1)), -1)
	ix := MulScalar(AddScalar(MulScalar(OnePlus(gx), float64(inW)), -1), 0.5)
	iy := MulScalar(AddScalar(MulScalar(OnePlus(gy), float64(inH)), -1), 0.5)

	ix0, iy0 := Floor(ix), Floor(iy)
	fx, fy := Sub(ix, ix0), Sub(iy, iy0) // [batch, outH, outW]

	// Texels are addressed into the flattened [batch·inH·inW, channels] view.
	// Int64 indices: batch·inH·inW exceeds 2³¹ already for modest batches of
	// padded, upsampled high-resolution canvases.
	flat := Reshape(TransposeAllDims(x, 0, 2, 3, 1), batchSize*inH*inW, channels)
	batchBase := Iota(g, shapes.Make(dtypes.Int64, batchSize, outH, outW), 0)
	batchBase = MulScalar(batchBase, float64(inH*inW))

	// corner fetches one of the four neighboring texels with its bilinear
	// weight, reading zero when the texel is out of bounds.
	corner := func(cx, cy, weight *Node) *Node {
		inBounds := LogicalAnd(
			LogicalAnd(GreaterOrEqual(cx, ScalarZero(g, dtype)), LessOrEqual(cx, Scalar(g, dtype, float64(inW-1)))),
			LogicalAnd(GreaterOrEqual(cy, ScalarZero(g, dtype)), LessOrEqual(cy, Scalar(g, dtype, float64(inH-1)))))
		cxI := ConvertDType(ClipScalar(cx, 0, float64(inW-1)), dtypes.Int64)
		cyI := ConvertDType(ClipScalar(cy, 0, float64(inH-1)), dtypes.Int64)
		indices := Add(batchBase, Add(MulScalar(cyI, float64(inW)), cxI))
		texels := Gather(flat, ExpandAxes(indices, -1)) // [batch, outH, outW, channels]
		weight = Mul(weight, ConvertDType(inBounds, dtype))
		return Mul(texels, ExpandAxes(weight, -1))
	}

	one := ScalarOne(g, dtype)
	ix1, iy1 := OnePlus(ix0), OnePlus(iy0)
	out := corner(ix0, iy0, Mul(Sub(one, fx), Sub(one, fy)))
	out = Add(out, corner(ix1, iy0, Mul(fx, Sub(one, fy))))
	out = Add(out, corner(ix0, iy1, Mul(Sub(one, fx), fy)))
	out = Add(out, corner(ix1, iy1, Mul(fx, fy)))

	// [batch, outH, outW, channels] → NCHW.
	return TransposeAllDims(out, 0, 3, 1, 2)
}
