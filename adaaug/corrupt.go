// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package adaaug

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
)

// applyNoise adds Gaussian pixel noise whose per-sample magnitude is drawn
// from a half-normal distribution, so most triggered samples get mild noise
// and a few get a lot. The noise image itself stays random even in debug
// mode; only its magnitude is pinned.
func (p *Pipe) applyNoise(s *sampler, x *Node) *Node {
	cfg := &p.cfg
	if cfg.Noise <= 0 {
		return x
	}
	sigma := MulScalar(Abs(s.normal()), cfg.NoiseStd)
	sigma = s.gateScalar(cfg.Noise, sigma, ZerosLike(sigma))
	sigma = s.override(sigma, func(d *Node) *Node {
		return MulScalar(erfInv(d), cfg.NoiseStd)
	})
	dims := x.Shape().Dimensions
	noise := s.ctx.RandomNormal(s.g, shapes.Make(s.dtype, dims...))
	sigma = BroadcastToDims(InsertAxes(sigma, -1, -1, -1), dims...)
	return Add(x, Mul(noise, sigma))
}

// applyCutout zeroes one axis-aligned rectangle per triggered sample, with a
// fixed relative size and uniformly random center. The mask is the OR of two
// per-axis outside-of-band masks, so a rectangle partially off the image
// simply cuts less.
func (p *Pipe) applyCutout(s *sampler, x *Node) *Node {
	cfg := &p.cfg
	if cfg.Cutout <= 0 {
		return x
	}
	g := s.g
	dims := x.Shape().Dimensions
	height, width := dims[2], dims[3]

	size := MulScalar(Ones(g, s.shape(2)), cfg.CutoutSize)
	size = s.gateScalar(cfg.Cutout, size, ZerosLike(size), 1)
	center := s.uniform(2)
	if s.debug != nil {
		size = MulScalar(Ones(g, s.shape(2)), cfg.CutoutSize)
		center = BroadcastToDims(s.debug, s.batch, 2)
	}

	// Per-axis mask: pixel centers at least size/2 away from the rectangle
	// center on that axis.
	outside := func(n, axis int) *Node {
		coords := MulScalar(AddScalar(Iota(g, shapes.Make(s.dtype, n), 0), 0.5), 1/float64(n))
		coords = BroadcastToDims(InsertAxes(coords, 0), s.batch, n)
		delta := Sub(coords, BroadcastToDims(ExpandAxes(column(center, axis), -1), s.batch, n))
		half := MulScalar(ExpandAxes(column(size, axis), -1), 0.5)
		return GreaterOrEqual(Abs(delta), BroadcastToDims(half, s.batch, n))
	}
	maskX := outside(width, 0)  // [batch, width]
	maskY := outside(height, 1) // [batch, height]

	mask := LogicalOr(
		BroadcastToDims(InsertAxes(maskX, 1, 1), s.batch, 1, height, width),
		BroadcastToDims(ExpandAxes(maskY, 1, -1), s.batch, 1, height, width))
	return Mul(x, BroadcastToDims(ConvertDType(mask, s.dtype), dims...))
}
