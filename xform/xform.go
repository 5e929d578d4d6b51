// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package xform builds batched homogeneous transform matrices as graph nodes:
// 2D (3×3) matrices for geometric augmentations and 3D (4×4) matrices for
// color-space augmentations.
//
// Every builder takes per-batch-element parameters shaped [batch] and returns
// a [batch, 3, 3] (or [batch, 4, 4]) node. Inverses are closed form (negated
// angles and translations, reciprocal scales) rather than a numeric matrix
// inversion, so they stay exact no matter how many are composed.
package xform

import (
	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
)

// checkParams panics unless all parameter nodes are rank-1 with the same
// dimension and dtype.
func checkParams(params ...*Node) {
	first := params[0]
	if first.Rank() != 1 {
		exceptions.Panicf("xform: matrix parameters must be shaped [batch], got %s", first.Shape())
	}
	for _, p := range params[1:] {
		if !p.Shape().Equal(first.Shape()) {
			exceptions.Panicf("xform: matrix parameters must all have the same shape, got %s and %s",
				first.Shape(), p.Shape())
		}
	}
}

// fromEntries assembles [batch, dim, dim] matrices from row-major entries,
// each shaped [batch].
func fromEntries(dim int, entries ...*Node) *Node {
	batchSize := entries[0].Shape().Dim(0)
	m := Stack(entries, 1)
	return Reshape(m, batchSize, dim, dim)
}

// Compose multiplies batched square matrices left to right:
// Compose(a, b, c) = a·b·c per batch element.
func Compose(first *Node, rest ...*Node) *Node {
	result := first
	for _, m := range rest {
		result = Einsum("bij,bjk->bik", result, m)
	}
	return result
}

// Translate2D builds 2D homogeneous translation matrices for the [batch]
// offsets tx, ty.
func Translate2D(tx, ty *Node) *Node {
	checkParams(tx, ty)
	zero, one := ZerosLike(tx), OnesLike(tx)
	return fromEntries(3,
		one, zero, tx,
		zero, one, ty,
		zero, zero, one)
}

// Translate2DInv is the closed-form inverse of Translate2D.
func Translate2DInv(tx, ty *Node) *Node {
	return Translate2D(Neg(tx), Neg(ty))
}

// Scale2D builds 2D homogeneous scaling matrices for the [batch] factors
// sx, sy.
func Scale2D(sx, sy *Node) *Node {
	checkParams(sx, sy)
	zero, one := ZerosLike(sx), OnesLike(sx)
	return fromEntries(3,
		sx, zero, zero,
		zero, sy, zero,
		zero, zero, one)
}

// Scale2DInv is the closed-form inverse of Scale2D.
func Scale2DInv(sx, sy *Node) *Node {
	return Scale2D(Reciprocal(sx), Reciprocal(sy))
}

// Rotate2D builds 2D homogeneous rotation matrices for the [batch] angles
// theta (radians, counter-clockwise).
func Rotate2D(theta *Node) *Node {
	checkParams(theta)
	zero, one := ZerosLike(theta), OnesLike(theta)
	s, c := Sin(theta), Cos(theta)
	return fromEntries(3,
		c, Neg(s), zero,
		s, c, zero,
		zero, zero, one)
}

// Rotate2DInv is the closed-form inverse of Rotate2D.
func Rotate2DInv(theta *Node) *Node {
	return Rotate2D(Neg(theta))
}
