// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xform

import (
	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
)

// Translate3D builds 3D homogeneous (4×4) translation matrices for the
// [batch] offsets tx, ty, tz. Used for color-space translations (brightness),
// where the coordinates are RGB values.
func Translate3D(tx, ty, tz *Node) *Node {
	checkParams(tx, ty, tz)
	zero, one := ZerosLike(tx), OnesLike(tx)
	return fromEntries(4,
		one, zero, zero, tx,
		zero, one, zero, ty,
		zero, zero, one, tz,
		zero, zero, zero, one)
}

// Translate3DInv is the closed-form inverse of Translate3D.
func Translate3DInv(tx, ty, tz *Node) *Node {
	return Translate3D(Neg(tx), Neg(ty), Neg(tz))
}

// Scale3D builds 3D homogeneous (4×4) scaling matrices for the [batch]
// factors sx, sy, sz.
func Scale3D(sx, sy, sz *Node) *Node {
	checkParams(sx, sy, sz)
	zero, one := ZerosLike(sx), OnesLike(sx)
	return fromEntries(4,
		sx, zero, zero, zero,
		zero, sy, zero, zero,
		zero, zero, sz, zero,
		zero, zero, zero, one)
}

// Scale3DInv is the closed-form inverse of Scale3D.
func Scale3DInv(sx, sy, sz *Node) *Node {
	return Scale3D(Reciprocal(sx), Reciprocal(sy), Reciprocal(sz))
}

// Rotate3D builds 3D homogeneous (4×4) rotation matrices of the [batch]
// angles theta around the unit axis v (a constant [3] node), by the Rodrigues
// rotation formula. The homogeneous translation components stay zero.
func Rotate3D(v *Node, theta *Node) *Node {
	checkParams(theta)
	if v.Rank() != 1 || v.Shape().Dim(0) != 3 {
		exceptions.Panicf("xform.Rotate3D: axis v must be shaped [3], got %s", v.Shape())
	}
	vx := Squeeze(Slice(v, AxisElem(0)), 0)
	vy := Squeeze(Slice(v, AxisElem(1)), 0)
	vz := Squeeze(Slice(v, AxisElem(2)), 0)

	s, c := Sin(theta), Cos(theta)
	cc := OneMinus(c)
	zero, one := ZerosLike(theta), OnesLike(theta)
	entry := func(a, b *Node, sTerm *Node) *Node {
		// a·b·(1−cos θ) + sTerm, with a, b scalar axis components.
		return Add(Mul(Mul(a, b), cc), sTerm)
	}
	return fromEntries(4,
		entry(vx, vx, c), entry(vx, vy, Neg(Mul(vz, s))), entry(vx, vz, Mul(vy, s)), zero,
		entry(vy, vx, Mul(vz, s)), entry(vy, vy, c), entry(vy, vz, Neg(Mul(vx, s))), zero,
		entry(vz, vx, Neg(Mul(vy, s))), entry(vz, vy, Mul(vx, s)), entry(vz, vz, c), zero,
		zero, zero, zero, one)
}

// Rotate3DInv is the closed-form inverse of Rotate3D.
func Rotate3DInv(v *Node, theta *Node) *Node {
	return Rotate3D(v, Neg(theta))
}
