// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package adaaug

import (
	"math"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/compute/dtypes"
)

// sampler draws the per-category augmentation parameters for one Apply call.
// Every draw has a leading batch axis, so each batch element gets its own
// transform. In debug mode (debug != nil) the drawn values are replaced after
// gating by the deterministic percentile of their distribution, which forces
// every enabled category on.
type sampler struct {
	ctx      *context.Context
	g        *Graph
	dtype    dtypes.DType
	batch    int
	strength *Node // scalar
	debug    *Node // scalar percentile, or nil
}

func (s *sampler) shape(dims ...int) shapes.Shape {
	return shapes.Make(s.dtype, append([]int{s.batch}, dims...)...)
}

// uniform draws U[0,1) with shape [batch, dims...].
func (s *sampler) uniform(dims ...int) *Node {
	return s.ctx.RandomUniform(s.g, s.shape(dims...))
}

// normal draws N(0,1) with shape [batch, dims...].
func (s *sampler) normal(dims ...int) *Node {
	return s.ctx.RandomNormal(s.g, s.shape(dims...))
}

// gate keeps value where an independent U[0,1) draw of shape [batch,
// gateDims...] falls below prob, and fallback elsewhere. The gate is
// broadcast over value's trailing axes, so one draw can gate a vector of
// parameters jointly.
func (s *sampler) gate(prob *Node, value, fallback *Node, gateDims ...int) *Node {
	keep := LessThan(s.uniform(gateDims...), prob)
	keep = BroadcastToDims(keep, value.Shape().Dimensions...)
	return Where(keep, value, fallback)
}

// gateScalar is gate with a host-side probability multiplier applied to the
// overall strength.
func (s *sampler) gateScalar(multiplier float64, value, fallback *Node, gateDims ...int) *Node {
	return s.gate(MulScalar(s.strength, multiplier), value, fallback, gateDims...)
}

// override replaces value by the broadcast debug expression when running in
// debug mode, and is a no-op otherwise. expr receives the scalar percentile.
func (s *sampler) override(value *Node, expr func(d *Node) *Node) *Node {
	if s.debug == nil {
		return value
	}
	return BroadcastToDims(expr(s.debug), value.Shape().Dimensions...)
}

// symmetric maps a percentile to the uniform distribution on [-max, max].
func symmetric(d *Node, max float64) *Node {
	return MulScalar(AddScalar(MulScalar(d, 2), -1), max)
}

// normalQuantile maps a percentile to N(0, std) via the inverse error
// function.
func normalQuantile(d *Node, std float64) *Node {
	return MulScalar(erfInv(AddScalar(MulScalar(d, 2), -1)), std)
}

// exp2 computes 2^x.
func exp2(x *Node) *Node {
	return Exp(MulScalar(x, math.Ln2))
}

// erfInv computes the inverse error function elementwise for |x| < 1, using
// the two-branch polynomial approximation from Giles, "Approximating the
// erfinv function" (2012). Good to single precision over the whole domain.
func erfInv(x *Node) *Node {
	w := Neg(Log(Mul(OneMinus(x), OnePlus(x))))

	// Central branch, w < 5.
	wc := AddScalar(w, -2.5)
	pc := polyEval(wc, []float64{
		2.81022636e-08, 3.43273939e-07, -3.5233877e-06, -4.39150654e-06,
		0.00021858087, -0.00125372503, -0.00417768164, 0.246640727, 1.50140941,
	})

	// Tail branch. The Sqrt argument is clamped away from the central
	// branch's small values only to keep its gradient finite; the result is
	// discarded there.
	wt := AddScalar(Sqrt(Max(w, Scalar(x.Graph(), x.DType(), 1e-6))), -3)
	pt := polyEval(wt, []float64{
		-0.000200214257, 0.000100950558, 0.00134934322, -0.00367342844,
		0.00573950773, -0.0076224613, 0.00943887047, 1.00167406, 2.83297682,
	})

	p := Where(LessThan(w, Scalar(x.Graph(), x.DType(), 5)), pc, pt)
	return Mul(p, x)
}

// polyEval evaluates a polynomial with the given coefficients, highest degree
// first, by Horner's rule.
func polyEval(x *Node, coefficients []float64) *Node {
	p := Scalar(x.Graph(), x.DType(), coefficients[0])
	for _, c := range coefficients[1:] {
		p = AddScalar(Mul(p, x), c)
	}
	return p
}
