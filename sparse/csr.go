// Copyright ©2025 The ParGMRES Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sparse provides compressed-row (CSR) matrices and the parallel
// sparse matrix-vector product used by the solver. A Matrix is immutable
// for the lifetime of a solve; the solver borrows it read-only.
package sparse

import (
	"fmt"

	"github.com/numerical-fun/ParGMRES/compute"
)

// Matrix is a sparse matrix in compressed-row storage. RowPtr has length
// Rows+1 and indexes the contiguous nonzero run of each row within the
// parallel ColIndex/Values arrays.
type Matrix struct {
	Rows, Cols int
	RowPtr     []int
	ColIndex   []int
	Values     []float64
}

// NewCSR validates the given CSR arrays and returns a matrix borrowing
// them. The arrays must not be mutated afterwards.
func NewCSR(rows, cols int, rowPtr, colIndex []int, values []float64) (*Matrix, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrBadShape, rows, cols)
	}
	if len(colIndex) != len(values) {
		return nil, fmt.Errorf("%w: %d column indices, %d values", ErrDimensionMismatch, len(colIndex), len(values))
	}
	if len(rowPtr) != rows+1 {
		return nil, fmt.Errorf("%w: %d offsets for %d rows", ErrBadOffsets, len(rowPtr), rows)
	}
	if rowPtr[0] != 0 || rowPtr[rows] != len(values) {
		return nil, fmt.Errorf("%w: run [%d, %d] does not cover %d entries", ErrBadOffsets, rowPtr[0], rowPtr[rows], len(values))
	}
	for i := 0; i < rows; i++ {
		if rowPtr[i] > rowPtr[i+1] {
			return nil, fmt.Errorf("%w: row %d", ErrBadOffsets, i)
		}
	}
	for k, j := range colIndex {
		if j < 0 || cols <= j {
			return nil, fmt.Errorf("%w: entry %d has column %d", ErrBadIndex, k, j)
		}
	}
	return &Matrix{
		Rows:     rows,
		Cols:     cols,
		RowPtr:   rowPtr,
		ColIndex: colIndex,
		Values:   values,
	}, nil
}

// NewCSRFromDense compresses a dense row-major matrix, dropping zeros.
func NewCSRFromDense(dense [][]float64) *Matrix {
	rows := len(dense)
	cols := 0
	if rows > 0 {
		cols = len(dense[0])
	}
	var values []float64
	var colIndex []int
	rowPtr := make([]int, 1, rows+1)
	for _, row := range dense {
		for j, v := range row {
			if v != 0 {
				values = append(values, v)
				colIndex = append(colIndex, j)
			}
		}
		rowPtr = append(rowPtr, len(values))
	}
	return &Matrix{
		Rows:     rows,
		Cols:     cols,
		RowPtr:   rowPtr,
		ColIndex: colIndex,
		Values:   values,
	}
}

// Dims returns the matrix dimensions.
func (m *Matrix) Dims() (rows, cols int) {
	return m.Rows, m.Cols
}

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int {
	return len(m.Values)
}

// At returns the entry at (i, j), summing duplicates. It walks the row run
// and is meant for inspection, not inner loops.
func (m *Matrix) At(i, j int) float64 {
	if i < 0 || m.Rows <= i {
		panic("sparse: row index out of range")
	}
	if j < 0 || m.Cols <= j {
		panic("sparse: column index out of range")
	}
	var v float64
	for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
		if m.ColIndex[k] == j {
			v += m.Values[k]
		}
	}
	return v
}

// ToDense expands the matrix into row-major dense form.
func (m *Matrix) ToDense() [][]float64 {
	dense := make([][]float64, m.Rows)
	for i := range dense {
		dense[i] = make([]float64, m.Cols)
		for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
			dense[i][m.ColIndex[k]] += m.Values[k]
		}
	}
	return dense
}

// MulVec computes dst = A·src on the device with one worker per matrix
// row. Each worker walks its row's nonzero run, accumulates into a private
// register and performs a single store, so rows need no synchronization.
func (m *Matrix) MulVec(d *compute.Device, dst, src *compute.Vector) {
	if src.Len() != m.Cols || dst.Len() != m.Rows {
		panic("sparse: dimension mismatch")
	}
	w := dst.Data()
	x := src.Data()
	d.Launch(m.Rows, func(i int) {
		var acc float64
		for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
			acc += m.Values[k] * x[m.ColIndex[k]]
		}
		w[i] = acc
	})
}

// MulVecHost is the sequential reference product used for cross-checking
// the device kernel.
func (m *Matrix) MulVecHost(dst, x []float64) {
	if len(x) != m.Cols || len(dst) != m.Rows {
		panic("sparse: dimension mismatch")
	}
	for i := 0; i < m.Rows; i++ {
		var acc float64
		for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
			acc += m.Values[k] * x[m.ColIndex[k]]
		}
		dst[i] = acc
	}
}
