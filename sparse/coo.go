// Copyright ©2025 The ParGMRES Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import "sort"

type entry struct {
	i, j int
	v    float64
}

// COO is an append-only coordinate-format staging matrix. File loaders
// build a COO and convert it to CSR once all entries are known.
type COO struct {
	rows, cols int
	data       []entry
}

// NewCOO returns an empty r×c coordinate matrix.
func NewCOO(r, c int) *COO {
	return &COO{
		rows: r,
		cols: c,
	}
}

// Dims returns the matrix dimensions.
func (m *COO) Dims() (r, c int) {
	return m.rows, m.cols
}

// NNZ returns the number of appended entries.
func (m *COO) NNZ() int {
	return len(m.data)
}

// Append records the entry (i, j, v). Indices are validated eagerly so a
// malformed input surfaces at the append site.
func (m *COO) Append(i, j int, v float64) {
	if i < 0 || m.rows <= i {
		panic("sparse: row index out of range")
	}
	if j < 0 || m.cols <= j {
		panic("sparse: column index out of range")
	}
	m.data = append(m.data, entry{i, j, v})
}

// ToCSR converts the accumulated entries into compressed-row storage.
// Entries are bucketed by row with a counting pass and sorted by column
// within each row. Duplicate coordinates are kept as separate stored
// entries; the matrix-vector product accumulates them, so they behave as
// their sum.
func (m *COO) ToCSR() *Matrix {
	rowPtr := make([]int, m.rows+1)
	for _, e := range m.data {
		rowPtr[e.i+1]++
	}
	for i := 0; i < m.rows; i++ {
		rowPtr[i+1] += rowPtr[i]
	}

	nnz := len(m.data)
	colIndex := make([]int, nnz)
	values := make([]float64, nnz)
	next := make([]int, m.rows)
	copy(next, rowPtr[:m.rows])
	for _, e := range m.data {
		k := next[e.i]
		colIndex[k] = e.j
		values[k] = e.v
		next[e.i]++
	}
	for i := 0; i < m.rows; i++ {
		lo, hi := rowPtr[i], rowPtr[i+1]
		sort.Sort(&rowRun{colIndex[lo:hi], values[lo:hi]})
	}

	return &Matrix{
		Rows:     m.rows,
		Cols:     m.cols,
		RowPtr:   rowPtr,
		ColIndex: colIndex,
		Values:   values,
	}
}

// MulVec computes dst = A·x sequentially on the host.
func (m *COO) MulVec(dst, x []float64) {
	if m.cols != len(x) {
		panic("sparse: dimension mismatch")
	}
	if m.rows != len(dst) {
		panic("sparse: dimension mismatch")
	}
	for i := range dst {
		dst[i] = 0
	}
	for _, e := range m.data {
		dst[e.i] += e.v * x[e.j]
	}
}

// rowRun sorts one row's column/value pair by column index.
type rowRun struct {
	cols []int
	vals []float64
}

func (r *rowRun) Len() int           { return len(r.cols) }
func (r *rowRun) Less(i, j int) bool { return r.cols[i] < r.cols[j] }
func (r *rowRun) Swap(i, j int) {
	r.cols[i], r.cols[j] = r.cols[j], r.cols[i]
	r.vals[i], r.vals[j] = r.vals[j], r.vals[i]
}
