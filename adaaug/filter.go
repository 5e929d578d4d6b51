// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package adaaug

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"

	"github.com/gomlx/augments/upfirdn"
	"github.com/gomlx/augments/wavelets"
)

// expectedPower is the assumed power spectrum of natural images across the
// filter bank's four octaves, roughly 1/f.
var expectedPower = [wavelets.NumBands]float64{10.0 / 13, 1.0 / 13, 1.0 / 13, 1.0 / 13}

// applyFilter amplifies or attenuates individual frequency bands of the
// images. Each band gets an independent log-normal gain with probability
// (ImgFilter × strength × band multiplier); the per-band gain vector is
// renormalized after every draw so the expected image power stays constant,
// then the weighted bank rows are summed into one separable FIR filter per
// batch element.
func (p *Pipe) applyFilter(s *sampler, x *Node) *Node {
	cfg := &p.cfg
	if cfg.ImgFilter <= 0 {
		return x
	}
	g := s.g

	power := ConvertDType(Const(g, expectedPower[:]), s.dtype)
	power = BroadcastToDims(InsertAxes(power, 0), s.batch, wavelets.NumBands)

	onesBand := Ones(g, s.shape())
	gain := Ones(g, s.shape(wavelets.NumBands))
	for band, bandStrength := range cfg.ImgFilterBands {
		ti := exp2(MulScalar(s.normal(), cfg.ImgFilterStd))
		ti = s.gateScalar(cfg.ImgFilter*bandStrength, ti, onesBand)
		if bandStrength > 0 {
			ti = s.override(ti, func(d *Node) *Node { return exp2(normalQuantile(d, cfg.ImgFilterStd)) })
		} else if s.debug != nil {
			ti = onesBand
		}

		// Gain vector with only this band's element replaced, power
		// normalized, accumulated multiplicatively.
		columns := make([]*Node, wavelets.NumBands)
		for j := range columns {
			columns[j] = onesBand
		}
		columns[band] = ti
		t := Stack(columns, 1) // [batch, NumBands]
		norm := Sqrt(ReduceAndKeep(Mul(power, Square(t)), ReduceSum, -1))
		t = Div(t, BroadcastToDims(norm, s.batch, wavelets.NumBands))
		gain = Mul(gain, t)
	}

	bank := ConvertDType(Const(g, p.hzFbank), s.dtype)
	bank = Reshape(bank, wavelets.NumBands, p.fbankTaps)
	taps := Einsum("bi,ik->bk", gain, bank) // [batch, taps]
	return upfirdn.FilterSeparable2D(x, taps)
}
