// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package wavelets

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestTables(t *testing.T) {
	// Orthogonal wavelet low-pass filters sum to √2.
	for name, table := range map[string][]float64{"haar": Haar, "sym2": Sym2, "sym6": Sym6} {
		assert.InDeltaf(t, math.Sqrt2, floats.Sum(table), 1e-12, "DC gain of %q", name)
	}
	require.Len(t, Sym2, 4)
	require.Len(t, Sym6, 12)
}

func TestGeomLowpass(t *testing.T) {
	f := GeomLowpass()
	require.Len(t, f, len(Sym6))
	assert.InDelta(t, 1.0, floats.Sum(f), 1e-12)
	// Normalization must not touch the shared table.
	assert.InDelta(t, math.Sqrt2, floats.Sum(Sym6), 1e-12)
}

func TestFilterBank(t *testing.T) {
	bank := FilterBank()
	numRows, numTaps := bank.Dims()
	require.Equal(t, NumBands, numRows)
	// Three cascade levels over the 7-tap sym2 product filter: 1 → 7 → 19 → 43.
	require.Equal(t, 43, numTaps)

	// Row 0 is the residual low-pass with unit passband gain; every band-pass
	// row has zero DC response.
	assert.InDelta(t, 1.0, floats.Sum(bank.RawRowView(0)), 1e-12)
	for i := 1; i < numRows; i++ {
		assert.InDeltaf(t, 0.0, floats.Sum(bank.RawRowView(i)), 1e-12, "DC response of band %d", i)
	}

	// Every row is a zero-phase (symmetric) FIR.
	for i := 0; i < numRows; i++ {
		row := bank.RawRowView(i)
		for j := 0; j < numTaps/2; j++ {
			assert.InDeltaf(t, row[j], row[numTaps-1-j], 1e-12, "row %d tap %d", i, j)
		}
	}
}

func TestFilterBankIsDeterministic(t *testing.T) {
	a, b := FilterBank(), FilterBank()
	numRows, numTaps := a.Dims()
	for i := 0; i < numRows; i++ {
		for j := 0; j < numTaps; j++ {
			require.Equal(t, a.At(i, j), b.At(i, j))
		}
	}
}
