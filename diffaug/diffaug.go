// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package diffaug is a lightweight differentiable augmentation backend: a
// small fixed set of cheap image ops, each gated per sample by one shared
// probability. It trades the calibrated distributions and anti-aliased
// resampling of package adaaug for a handful of graph ops, useful on small
// datasets or as a baseline.
//
// The ops are brightness, saturation and contrast jitter, integer translation
// with zeros revealed at the edges, and cutout of a half-size rectangle.
package diffaug

import (
	"math"

	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/pkg/errors"

	"github.com/gomlx/augments/upfirdn"
)

// Scope is the context scope under which the pipeline keeps its strength
// variable.
const Scope = "diffaug_pipe"

const strengthVariableName = "strength"

// Pipe applies the lightweight augmentation set. The per-sample probability
// of each op is Prob × strength, with strength read from the context exactly
// like package adaaug does, so the two backends are interchangeable in a
// training loop.
type Pipe struct {
	prob float64
}

// New builds a pipeline whose ops each trigger with base probability prob.
func New(prob float64) (*Pipe, error) {
	if math.IsNaN(prob) || prob < 0 || prob > 1 {
		return nil, errors.Errorf("diffaug: probability must be in [0, 1], got %g", prob)
	}
	return &Pipe{prob: prob}, nil
}

func (p *Pipe) strengthVar(ctx *context.Context) *context.Variable {
	v := ctx.Checked(false).In(Scope).VariableWithValue(strengthVariableName, float32(1))
	return v.SetTrainable(false)
}

// SetStrength scales the base probability of every op. See adaaug.Pipe.SetStrength.
func (p *Pipe) SetStrength(ctx *context.Context, strength float64) error {
	if math.IsNaN(strength) || math.IsInf(strength, 0) || strength < 0 {
		return errors.Errorf("diffaug: strength must be finite and ≥ 0, got %g", strength)
	}
	return p.strengthVar(ctx).SetValue(tensors.FromScalar(float32(strength)))
}

// Strength reads the current strength from ctx.
func (p *Pipe) Strength(ctx *context.Context) float64 {
	return float64(tensors.ToScalar[float32](p.strengthVar(ctx).MustValue()))
}

// Apply augments the [batch, channels, height, width] float image batch x.
func (p *Pipe) Apply(ctx *context.Context, x *Node) *Node {
	if x.Rank() != 4 || !x.DType().IsFloat() {
		exceptions.Panicf("diffaug: images must be rank-4 float NCHW, got %s", x.Shape())
	}
	g := x.Graph()
	dtype := x.DType()
	batch := x.Shape().Dimensions[0]
	prob := MulScalar(ConvertDType(p.strengthVar(ctx).ValueGraph(g), dtype), p.prob)

	draw := func(dims ...int) *Node {
		return ctx.RandomUniform(g, shapes.Make(dtype, append([]int{batch}, dims...)...))
	}
	gate := func(value, fallback *Node, gateDims ...int) *Node {
		keep := LessThan(draw(gateDims...), prob)
		keep = BroadcastToDims(keep, value.Shape().Dimensions...)
		return Where(keep, value, fallback)
	}

	x = brightness(x, draw, gate)
	x = saturation(x, draw, gate)
	x = contrast(x, draw, gate)
	x = translation(x, draw, gate)
	x = cutout(x, draw, gate)
	return x
}

type drawFn func(dims ...int) *Node
type gateFn func(value, fallback *Node, gateDims ...int) *Node

// brightness shifts all channels by U[-0.5, 0.5).
func brightness(x *Node, draw drawFn, gate gateFn) *Node {
	b := AddScalar(draw(), -0.5)
	b = gate(b, ZerosLike(b))
	return Add(x, broadcastPerSample(b, x))
}

// saturation scales the deviation from the per-pixel channel mean by U[0, 2).
func saturation(x *Node, draw drawFn, gate gateFn) *Node {
	s := MulScalar(draw(), 2)
	s = gate(s, OnesLike(s))
	mean := ReduceAndKeep(x, ReduceMean, 1)
	mean = BroadcastToDims(mean, x.Shape().Dimensions...)
	return Add(Mul(Sub(x, mean), broadcastPerSample(s, x)), mean)
}

// contrast scales the deviation from the per-sample mean by U[0.5, 1.5).
func contrast(x *Node, draw drawFn, gate gateFn) *Node {
	c := AddScalar(draw(), 0.5)
	c = gate(c, OnesLike(c))
	mean := ReduceAndKeep(x, ReduceMean, 1, 2, 3)
	mean = BroadcastToDims(mean, x.Shape().Dimensions...)
	return Add(Mul(Sub(x, mean), broadcastPerSample(c, x)), mean)
}

// translation shifts each sample by up to 1/8th of its size on both axes,
// revealing zeros at the edges.
func translation(x *Node, draw drawFn, gate gateFn) *Node {
	g := x.Graph()
	dims := x.Shape().Dimensions
	batch, height, width := dims[0], dims[2], dims[3]
	shiftX, shiftY := width/8, height/8
	if shiftX == 0 && shiftY == 0 {
		return x
	}

	// Integer shifts, uniform over [-shift, shift], one joint gate.
	randShift := func(shift int) *Node {
		t := Floor(MulScalar(draw(), float64(2*shift+1)))
		return AddScalar(t, float64(-shift))
	}
	tx := randShift(shiftX)
	ty := randShift(shiftY)
	joint := Stack([]*Node{tx, ty}, 1)
	joint = gate(joint, ZerosLike(joint), 1)
	tx = Squeeze(Slice(joint, AxisRange(), AxisElem(0)), 1)
	ty = Squeeze(Slice(joint, AxisRange(), AxisElem(1)), 1)

	// Shifted identity sampling grid; out-of-range positions read zero.
	ndc := func(n, axis int) *Node {
		coords := Iota(g, shapes.Make(x.DType(), height, width), axis)
		return AddScalar(MulScalar(AddScalar(MulScalar(coords, 2), 1), 1/float64(n)), -1)
	}
	gx := BroadcastToDims(InsertAxes(ndc(width, 1), 0), batch, height, width)
	gy := BroadcastToDims(InsertAxes(ndc(height, 0), 0), batch, height, width)
	gx = Sub(gx, BroadcastToDims(InsertAxes(MulScalar(tx, 2/float64(width)), -1, -1), batch, height, width))
	gy = Sub(gy, BroadcastToDims(InsertAxes(MulScalar(ty, 2/float64(height)), -1, -1), batch, height, width))
	grid := Stack([]*Node{gx, gy}, -1)
	return upfirdn.GridSample2D(x, grid)
}

// cutout zeroes a centered-at-random rectangle of half the image size.
func cutout(x *Node, draw drawFn, gate gateFn) *Node {
	g := x.Graph()
	dims := x.Shape().Dimensions
	batch, height, width := dims[0], dims[2], dims[3]
	dtype := x.DType()

	size := MulScalar(Ones(g, shapes.Make(dtype, batch, 2)), 0.5)
	size = gate(size, ZerosLike(size), 1)
	center := draw(2)

	outside := func(n, axis int) *Node {
		coords := MulScalar(AddScalar(Iota(g, shapes.Make(dtype, n), 0), 0.5), 1/float64(n))
		coords = BroadcastToDims(InsertAxes(coords, 0), batch, n)
		axisCenter := Squeeze(Slice(center, AxisRange(), AxisElem(axis)), 1)
		axisSize := Squeeze(Slice(size, AxisRange(), AxisElem(axis)), 1)
		delta := Sub(coords, BroadcastToDims(ExpandAxes(axisCenter, -1), batch, n))
		half := MulScalar(ExpandAxes(axisSize, -1), 0.5)
		return GreaterOrEqual(Abs(delta), BroadcastToDims(half, batch, n))
	}
	mask := LogicalOr(
		BroadcastToDims(InsertAxes(outside(width, 0), 1, 1), batch, 1, height, width),
		BroadcastToDims(ExpandAxes(outside(height, 1), 1, -1), batch, 1, height, width))
	return Mul(x, BroadcastToDims(ConvertDType(mask, dtype), dims...))
}

// broadcastPerSample broadcasts a [batch] node over the full image shape.
func broadcastPerSample(v *Node, like *Node) *Node {
	return BroadcastToDims(InsertAxes(v, -1, -1, -1), like.Shape().Dimensions...)
}
