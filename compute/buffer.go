// Copyright ©2025 The ParGMRES Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compute

import (
	"math"
	"sync/atomic"
)

// Vector is a fixed-length buffer of float64 scalars resident in device
// memory. Host code moves data in and out with CopyFromHost and CopyToHost;
// kernels access it only through Device methods.
type Vector struct {
	data []float64
}

// NewVector allocates a zeroed device vector of length n. Allocation
// failure aborts the process; there is no partial-result recovery.
func (d *Device) NewVector(n int) *Vector {
	if n < 0 {
		panic("compute: negative vector length")
	}
	return &Vector{data: make([]float64, n)}
}

// NewVectorFrom allocates a device vector holding a copy of src.
func (d *Device) NewVectorFrom(src []float64) *Vector {
	v := d.NewVector(len(src))
	copy(v.data, src)
	return v
}

// Len returns the number of elements.
func (v *Vector) Len() int {
	return len(v.data)
}

// Data exposes the device buffer to kernel implementations outside this
// package, such as the sparse matrix-vector product. Host code must not
// touch the returned slice while a launch using the vector is in flight.
func (v *Vector) Data() []float64 {
	return v.data
}

// View returns a vector sharing v's storage over [lo, hi). It is how rows
// of a larger allocation (the Krylov basis) are addressed without copies.
func (v *Vector) View(lo, hi int) *Vector {
	if lo < 0 || hi < lo || len(v.data) < hi {
		panic("compute: view out of range")
	}
	return &Vector{data: v.data[lo:hi:hi]}
}

// CopyFromHost copies src into the device buffer.
// The lengths must match.
func (v *Vector) CopyFromHost(src []float64) {
	if len(src) != len(v.data) {
		panic("compute: dimension mismatch")
	}
	copy(v.data, src)
}

// CopyToHost copies the device buffer into dst.
// The lengths must match.
func (v *Vector) CopyToHost(dst []float64) {
	if len(dst) != len(v.data) {
		panic("compute: dimension mismatch")
	}
	copy(dst, v.data)
}

// Scalar is a single-element device buffer. Reductions accumulate into it
// atomically and later kernels consume it, making the cell the
// synchronization handle between the two phases: it must be written by
// exactly one reduction (plus an optional Sqrt) between a Zero and the
// dependent read, with a completed launch in between.
type Scalar struct {
	bits atomic.Uint64
}

// NewScalar allocates a zeroed scalar cell.
func (d *Device) NewScalar() *Scalar {
	return &Scalar{}
}

// Zero resets the cell. Callers must reset before every reduction; the
// reduction primitives never do it themselves.
func (s *Scalar) Zero() {
	s.bits.Store(0)
}

// Set stores v.
func (s *Scalar) Set(v float64) {
	s.bits.Store(math.Float64bits(v))
}

// Value loads the current value.
func (s *Scalar) Value() float64 {
	return math.Float64frombits(s.bits.Load())
}

// Add atomically adds v to the cell. Concurrent adds from many workers
// commute, so the final value is the mathematical sum up to floating-point
// reassociation; the summation order is not deterministic across launches.
func (s *Scalar) Add(v float64) {
	for {
		old := s.bits.Load()
		upd := math.Float64bits(math.Float64frombits(old) + v)
		if s.bits.CompareAndSwap(old, upd) {
			return
		}
	}
}
