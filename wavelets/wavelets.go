// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package wavelets holds the fixed wavelet coefficient tables and the FIR
// filter constructions derived from them, used by the augmentation pipeline:
// an orthogonal low-pass filter for anti-aliased geometric resampling, and a
// 4-band filter bank for image-space frequency filtering.
//
// The coefficient tables are constants of the method, not tunable parameters:
// models trained with one set of coefficients are only compatible with
// pipelines built from the exact same floating-point values, so the tables
// below must not be "cleaned up" or re-derived.
//
// All the construction here is host-side float64 math, done once at pipeline
// creation; nothing in this package touches the computation graph.
package wavelets

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Decomposition low-pass coefficients of the wavelet families used by the
// pipeline. Values are the standard pywt tables, bit-for-bit.
var (
	// Haar is the Haar (db1) low-pass filter.
	Haar = []float64{0.7071067811865476, 0.7071067811865476}

	// Sym2 is the symlet-2 low-pass filter. It seeds the 4-band image-space
	// filter bank.
	Sym2 = []float64{-0.12940952255092145, 0.22414386804185735, 0.836516303737469, 0.48296291314469025}

	// Sym6 is the symlet-6 low-pass filter. It is the anti-aliasing filter
	// bracketing the geometric resampling pass.
	Sym6 = []float64{0.015404109327027373, 0.0034907120842174702, -0.11799011114819057,
		-0.048311742585633, 0.4910559419267466, 0.787641141030194, 0.3379294217276218,
		-0.07263752278646252, -0.021060292512300564, 0.04472490177066578,
		0.0017677118642428036, -0.007800708325034148}
)

// NumBands is the number of frequency bands in the filter bank built by
// FilterBank.
const NumBands = 4

// GeomLowpass returns the separable 1-D low-pass filter used around the
// geometric resampling pass: Sym6 normalized to unit DC gain.
func GeomLowpass() []float64 {
	f := append([]float64(nil), Sym6...)
	floats.Scale(1/floats.Sum(f), f)
	return f
}

// FilterBank builds the fixed [NumBands, taps] bank of band-pass FIR filters
// for image-space frequency filtering.
//
// Band 0 is the residual low-pass; band i (i ≥ 1) isolates one octave below
// the previous one, constructed by cascading the half-band decomposition
// H(z)·H(z⁻¹)/2 of Sym2: at every level each row is upsampled by 2 (zero
// interleaving), convolved with the low-pass product filter, and the
// high-pass product filter is summed into the center of row i.
//
// Row 0 sums to 1 (passband gain) and every other row sums to 0; the
// expected-power weighting across bands happens at application time, not
// here.
func FilterBank() *mat.Dense {
	lo := append([]float64(nil), Sym2...)
	hi := make([]float64, len(lo)) // H(-z)
	sign := 1.0
	for i, c := range lo {
		hi[i] = c * sign
		sign = -sign
	}
	lo2 := autoProduct(lo) // H(z)·H(z⁻¹)/2
	hi2 := autoProduct(hi) // H(-z)·H(-z⁻¹)/2

	rows := make([][]float64, NumBands)
	for i := range rows {
		rows[i] = []float64{0}
	}
	rows[0][0] = 1
	for i := 1; i < NumBands; i++ {
		for j := range rows {
			rows[j] = convolve(interleaveZeros(rows[j]), lo2)
		}
		center := rows[i][(len(rows[i])-len(hi2))/2:]
		floats.Add(center[:len(hi2)], hi2)
	}

	bank := mat.NewDense(NumBands, len(rows[0]), nil)
	for i, row := range rows {
		bank.SetRow(i, row)
	}
	return bank
}

// autoProduct returns conv(f, reverse(f)) / 2, the zero-phase product filter
// of f with its time reversal.
func autoProduct(f []float64) []float64 {
	rev := append([]float64(nil), f...)
	floats.Reverse(rev)
	out := convolve(f, rev)
	floats.Scale(0.5, out)
	return out
}

// convolve is direct full linear convolution, output length len(a)+len(b)-1.
// The filters here are a handful of taps, so the O(n·m) direct form wins over
// anything FFT based.
func convolve(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, av := range a {
		for j, bv := range b {
			out[i+j] += av * bv
		}
	}
	return out
}

// interleaveZeros upsamples f by 2 without the trailing zero:
// [a, b, c] → [a, 0, b, 0, c].
func interleaveZeros(f []float64) []float64 {
	out := make([]float64, 2*len(f)-1)
	for i, v := range f {
		out[2*i] = v
	}
	return out
}
