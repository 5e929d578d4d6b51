// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package adaaug

import (
	"math"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"

	"github.com/gomlx/augments/upfirdn"
	"github.com/gomlx/augments/xform"
)

// applyGeometric samples the pixel-blitting and general geometric categories,
// accumulates them into one batched inverse transform G_inv mapping output
// pixel coordinates to input coordinates, and executes it in a single
// resampling pass: reflect-pad, upsample ×2, bilinear warp on the upsampled
// grid, and filtered downsample ×2 back to the input resolution.
//
// Folding all eight categories into one warp means the image is resampled
// once no matter how many of them trigger.
func (p *Pipe) applyGeometric(s *sampler, x *Node) *Node {
	if !p.anyGeom {
		return x
	}
	cfg := &p.cfg
	g := s.g
	dims := x.Shape().Dimensions
	height, width := dims[2], dims[3]

	ones := Ones(g, s.shape())
	zeros := ZerosLike(ones)
	var gInv *Node
	accumulate := func(m *Node) {
		if gInv == nil {
			gInv = m
		} else {
			gInv = xform.Compose(gInv, m)
		}
	}

	// X-flip.
	if cfg.XFlip > 0 {
		i := Floor(MulScalar(s.uniform(), 2))
		i = s.gateScalar(cfg.XFlip, i, zeros)
		i = s.override(i, func(d *Node) *Node { return Floor(MulScalar(d, 2)) })
		accumulate(xform.Scale2DInv(AddScalar(MulScalar(i, -2), 1), ones))
	}

	// 90 degree rotations.
	if cfg.Rotate90 > 0 {
		i := Floor(MulScalar(s.uniform(), 4))
		i = s.gateScalar(cfg.Rotate90, i, zeros)
		i = s.override(i, func(d *Node) *Node { return Floor(MulScalar(d, 4)) })
		accumulate(xform.Rotate2DInv(MulScalar(i, -math.Pi/2)))
	}

	// Integer translation, rounded to whole pixels. One gate draw covers
	// both axes.
	if cfg.XInt > 0 {
		t := MulScalar(AddScalar(MulScalar(s.uniform(2), 2), -1), cfg.XIntMax)
		t = s.gateScalar(cfg.XInt, t, ZerosLike(t), 1)
		t = s.override(t, func(d *Node) *Node { return symmetric(d, cfg.XIntMax) })
		tx := Round(MulScalar(column(t, 0), float64(width)))
		ty := Round(MulScalar(column(t, 1), float64(height)))
		accumulate(xform.Translate2DInv(tx, ty))
	}

	// Isotropic scaling, log-normal in base 2.
	if cfg.Scale > 0 {
		sc := exp2(MulScalar(s.normal(), cfg.ScaleStd))
		sc = s.gateScalar(cfg.Scale, sc, ones)
		sc = s.override(sc, func(d *Node) *Node { return exp2(normalQuantile(d, cfg.ScaleStd)) })
		accumulate(xform.Scale2DInv(sc, sc))
	}

	// Rotation is split around the anisotropic scaling so that aniso gets a
	// random orientation. Each half triggers with probability pRot chosen so
	// that P(pre or post) equals the category probability.
	pRot := OneMinus(Sqrt(ClipScalar(OneMinus(MulScalar(s.strength, cfg.Rotate)), 0, 1)))

	// Pre-rotation.
	if cfg.Rotate > 0 {
		theta := MulScalar(AddScalar(MulScalar(s.uniform(), 2), -1), math.Pi*cfg.RotateMax)
		theta = s.gate(pRot, theta, zeros)
		theta = s.override(theta, func(d *Node) *Node { return symmetric(d, math.Pi*cfg.RotateMax) })
		accumulate(xform.Rotate2DInv(Neg(theta)))
	}

	// Anisotropic scaling.
	if cfg.Aniso > 0 {
		sc := exp2(MulScalar(s.normal(), cfg.AnisoStd))
		sc = s.gateScalar(cfg.Aniso, sc, ones)
		sc = s.override(sc, func(d *Node) *Node { return exp2(normalQuantile(d, cfg.AnisoStd)) })
		accumulate(xform.Scale2DInv(sc, Reciprocal(sc)))
	}

	// Post-rotation. Disabled at a fixed percentile so debug images show the
	// pre-rotation alone.
	if cfg.Rotate > 0 {
		theta := MulScalar(AddScalar(MulScalar(s.uniform(), 2), -1), math.Pi*cfg.RotateMax)
		theta = s.gate(pRot, theta, zeros)
		theta = s.override(theta, func(d *Node) *Node { return ScalarZero(s.g, s.dtype) })
		accumulate(xform.Rotate2DInv(Neg(theta)))
	}

	// Fractional translation.
	if cfg.XFrac > 0 {
		t := MulScalar(s.normal(2), cfg.XFracStd)
		t = s.gateScalar(cfg.XFrac, t, ZerosLike(t), 1)
		t = s.override(t, func(d *Node) *Node { return normalQuantile(d, cfg.XFracStd) })
		accumulate(xform.Translate2DInv(
			MulScalar(column(t, 0), float64(width)),
			MulScalar(column(t, 1), float64(height))))
	}

	if gInv == nil {
		return x
	}
	return p.executeGeometric(s, x, gInv)
}

// executeGeometric warps x by the batched inverse transform gInv, expressed
// in pixel coordinates centered on the image.
func (p *Pipe) executeGeometric(s *sampler, x, gInv *Node) *Node {
	g := s.g
	dims := x.Shape().Dimensions
	height, width := dims[2], dims[3]
	hzPad := len(p.hzGeom) / 4

	ones := Ones(g, s.shape())
	scale := func(sx, sy float64) *Node {
		return xform.Scale2D(MulScalar(ones, sx), MulScalar(ones, sy))
	}
	scaleInv := func(sx, sy float64) *Node {
		return xform.Scale2DInv(MulScalar(ones, sx), MulScalar(ones, sy))
	}
	translate := func(tx, ty float64) *Node {
		return xform.Translate2D(MulScalar(ones, tx), MulScalar(ones, ty))
	}
	translateInv := func(tx, ty float64) *Node {
		return xform.Translate2DInv(MulScalar(ones, tx), MulScalar(ones, ty))
	}

	// Pad with reflection out to the worst case the transform can reach, one
	// pixel short of each dimension. The padding is symmetric, so the image
	// center, and with it gInv's frame, stays put.
	x = upfirdn.ReflectPad2D(x, upfirdn.Padding{
		Left: width - 1, Right: width - 1, Top: height - 1, Bottom: height - 1,
	})

	// Upsample ×2 and move gInv to the upsampled pixel grid.
	x = upfirdn.Upsample2D(x, p.hzGeom, 2)
	gInv = xform.Compose(scale(2, 2), gInv, scaleInv(2, 2))
	gInv = xform.Compose(translate(-0.5, -0.5), gInv, translateInv(-0.5, -0.5))

	// Bilinear warp at the upsampled resolution, with the output canvas kept
	// a filter margin larger than 2× the input so the final downsample can
	// crop the filter transient away.
	upDims := x.Shape().Dimensions
	upHeight, upWidth := upDims[2], upDims[3]
	outHeight := (height + 2*hzPad) * 2
	outWidth := (width + 2*hzPad) * 2
	gInv = xform.Compose(
		scale(2/float64(upWidth), 2/float64(upHeight)),
		gInv,
		scaleInv(2/float64(outWidth), 2/float64(outHeight)))

	theta := Slice(gInv, AxisRange(), AxisRange(0, 2), AxisRange())
	ndc := func(coords *Node, n int) *Node {
		return AddScalar(MulScalar(AddScalar(MulScalar(coords, 2), 1), 1/float64(n)), -1)
	}
	gridShape := shapes.Make(s.dtype, outHeight, outWidth)
	xs := ndc(Iota(g, gridShape, 1), outWidth)
	ys := ndc(Iota(g, gridShape, 0), outHeight)
	coords := Stack([]*Node{xs, ys, Ones(g, gridShape)}, -1)
	grid := Einsum("bij,hwj->bhwi", theta, coords)
	x = upfirdn.GridSample2D(x, grid)

	// Downsample ×2 with the same filter, cropping back to [height, width].
	return upfirdn.Downsample2D(x, p.hzGeom, 2, -2*hzPad, true)
}

// column extracts column i of a [batch, n] node as [batch].
func column(t *Node, i int) *Node {
	return Squeeze(Slice(t, AxisRange(), AxisElem(i)), 1)
}
