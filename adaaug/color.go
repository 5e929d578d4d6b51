// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package adaaug

import (
	"math"

	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"

	"github.com/gomlx/augments/xform"
)

// applyColor samples the five color categories, accumulates them into one
// batched homogeneous color matrix C acting on homogeneous RGB vectors, and
// applies it in a single pass. Luma flip, hue rotation and saturation all
// operate about the luma axis (1,1,1)/√3, so they change chroma without
// moving the perceived brightness.
func (p *Pipe) applyColor(s *sampler, x *Node) *Node {
	if !p.anyColor {
		return x
	}
	cfg := &p.cfg
	g := s.g
	dims := x.Shape().Dimensions
	channels := dims[1]
	if channels != 3 && channels != 1 {
		exceptions.Panicf("adaaug: color transforms need RGB (3 channels) or grayscale (1 channel) images, got %d channels", channels)
	}

	ones := Ones(g, s.shape())
	zeros := ZerosLike(ones)
	var c *Node
	accumulate := func(m *Node) {
		if c == nil {
			c = m
		} else {
			c = xform.Compose(m, c)
		}
	}

	// Brightness, additive.
	if cfg.Brightness > 0 {
		b := MulScalar(s.normal(), cfg.BrightnessStd)
		b = s.gateScalar(cfg.Brightness, b, zeros)
		b = s.override(b, func(d *Node) *Node { return normalQuantile(d, cfg.BrightnessStd) })
		accumulate(xform.Translate3D(b, b, b))
	}

	// Contrast, multiplicative log-normal in base 2.
	if cfg.Contrast > 0 {
		ct := exp2(MulScalar(s.normal(), cfg.ContrastStd))
		ct = s.gateScalar(cfg.Contrast, ct, ones)
		ct = s.override(ct, func(d *Node) *Node { return exp2(normalQuantile(d, cfg.ContrastStd)) })
		accumulate(xform.Scale3D(ct, ct, ct))
	}

	// The luma axis, homogeneous.
	invSqrt3 := 1 / math.Sqrt(3)
	lumaOuter := lumaOuterProduct(s)
	eye := batchedEye4(s)

	// Luma flip, a Householder reflection about the plane orthogonal to the
	// luma axis.
	if cfg.LumaFlip > 0 {
		i := Floor(MulScalar(s.uniform(), 2))
		i = s.gateScalar(cfg.LumaFlip, i, zeros)
		i = s.override(i, func(d *Node) *Node { return Floor(MulScalar(d, 2)) })
		iB := BroadcastToDims(InsertAxes(i, -1, -1), s.batch, 4, 4)
		accumulate(Sub(eye, Mul(MulScalar(lumaOuter, 2), iB)))
	}

	// Hue rotation about the luma axis. Meaningless for grayscale, skipped.
	if cfg.Hue > 0 && channels > 1 {
		theta := MulScalar(AddScalar(MulScalar(s.uniform(), 2), -1), math.Pi*cfg.HueMax)
		theta = s.gateScalar(cfg.Hue, theta, zeros)
		theta = s.override(theta, func(d *Node) *Node { return symmetric(d, math.Pi*cfg.HueMax) })
		axis := ConvertDType(Const(g, []float64{invSqrt3, invSqrt3, invSqrt3}), s.dtype)
		accumulate(xform.Rotate3D(axis, theta))
	}

	// Saturation, scaling the chroma component while keeping luma fixed.
	if cfg.Saturation > 0 && channels > 1 {
		sat := exp2(MulScalar(s.normal(), cfg.SaturationStd))
		sat = s.gateScalar(cfg.Saturation, sat, ones)
		sat = s.override(sat, func(d *Node) *Node { return exp2(normalQuantile(d, cfg.SaturationStd)) })
		satB := BroadcastToDims(InsertAxes(sat, -1, -1), s.batch, 4, 4)
		accumulate(Add(lumaOuter, Mul(Sub(eye, lumaOuter), satB)))
	}

	if c == nil {
		return x
	}
	return executeColor(s, x, c)
}

// executeColor applies the batched homogeneous color matrix c to x. RGB
// images get the full affine transform; grayscale images get the transform
// averaged over the RGB rows, reduced to one gain and one offset.
func executeColor(s *sampler, x, c *Node) *Node {
	dims := x.Shape().Dimensions
	channels, height, width := dims[1], dims[2], dims[3]
	flat := Reshape(x, s.batch, channels, height*width)

	if channels == 3 {
		m := Slice(c, AxisRange(), AxisRange(0, 3), AxisRange(0, 3))
		bias := Slice(c, AxisRange(), AxisRange(0, 3), AxisRange(3, 4))
		flat = Einsum("bij,bjn->bin", m, flat)
		flat = Add(flat, BroadcastToDims(bias, s.batch, 3, height*width))
	} else {
		mean := ReduceMean(Slice(c, AxisRange(), AxisRange(0, 3), AxisRange()), 1) // [batch, 4]
		gain := ReduceSum(Slice(mean, AxisRange(), AxisRange(0, 3)), -1)           // [batch]
		bias := column(mean, 3)
		flat = Mul(flat, BroadcastToDims(InsertAxes(gain, -1, -1), s.batch, 1, height*width))
		flat = Add(flat, BroadcastToDims(InsertAxes(bias, -1, -1), s.batch, 1, height*width))
	}
	return Reshape(flat, dims...)
}

// lumaOuterProduct returns the outer product of the homogeneous luma axis
// with itself, broadcast to [batch, 4, 4].
func lumaOuterProduct(s *sampler) *Node {
	third := 1.0 / 3
	outer := Const(s.g, [][]float64{
		{third, third, third, 0},
		{third, third, third, 0},
		{third, third, third, 0},
		{0, 0, 0, 0},
	})
	outer = ConvertDType(outer, s.dtype)
	return BroadcastToDims(InsertAxes(outer, 0), s.batch, 4, 4)
}

func batchedEye4(s *sampler) *Node {
	eye := Const(s.g, [][]float64{
		{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1},
	})
	eye = ConvertDType(eye, s.dtype)
	return BroadcastToDims(InsertAxes(eye, 0), s.batch, 4, 4)
}
