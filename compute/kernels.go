// Copyright ©2025 The ParGMRES Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compute

import "math"

// Elementwise kernel library. Every operation is data-parallel with one
// logical worker per element. Operations taking a *Scalar read the cell
// once at launch time; the cell must not have an in-flight producer, which
// the barrier semantics of Launch guarantee when the producing reduction
// was issued earlier by the same host goroutine.

// Fill sets every element of dst to v.
func (d *Device) Fill(dst *Vector, v float64) {
	d.Launch(dst.Len(), func(i int) {
		dst.data[i] = v
	})
}

// Copy copies src into dst. The lengths must match.
func (d *Device) Copy(dst, src *Vector) {
	sameLen(dst, src)
	d.Launch(dst.Len(), func(i int) {
		dst.data[i] = src.data[i]
	})
}

// Sub computes dst[i] = a[i] - b[i]. The lengths must match.
func (d *Device) Sub(dst, a, b *Vector) {
	sameLen(dst, a)
	sameLen(dst, b)
	d.Launch(dst.Len(), func(i int) {
		dst.data[i] = a.data[i] - b.data[i]
	})
}

// Scale multiplies every element of dst by alpha.
func (d *Device) Scale(dst *Vector, alpha float64) {
	d.Launch(dst.Len(), func(i int) {
		dst.data[i] *= alpha
	})
}

// AddScaled computes dst[i] += alpha * src[i]. The lengths must match.
func (d *Device) AddScaled(dst *Vector, alpha float64, src *Vector) {
	sameLen(dst, src)
	d.Launch(dst.Len(), func(i int) {
		dst.data[i] += alpha * src.data[i]
	})
}

// SubScaled computes w[i] -= v[i] * s, the projection-removal step of
// modified Gram-Schmidt. The cell s must have been produced by a completed
// reduction.
func (d *Device) SubScaled(w, v *Vector, s *Scalar) {
	sameLen(w, v)
	h := s.Value()
	d.Launch(w.Len(), func(i int) {
		w.data[i] -= v.data[i] * h
	})
}

// DivScalar computes dst[i] = src[i] / s. The result is undefined when the
// cell holds zero; orchestration must check the breakdown condition before
// issuing the divide.
func (d *Device) DivScalar(dst, src *Vector, s *Scalar) {
	sameLen(dst, src)
	c := s.Value()
	d.Launch(dst.Len(), func(i int) {
		dst.data[i] = src.data[i] / c
	})
}

// Sqrt replaces the cell value with its square root, finalizing a
// sum-of-squares reduction into a norm. It is a one-element launch so the
// usual barrier semantics apply.
func (d *Device) Sqrt(s *Scalar) {
	d.Launch(1, func(int) {
		s.Set(math.Sqrt(s.Value()))
	})
}

// CombineLinear computes the fused update
//
//	x[i] += Σ_t basis[t*ldv+i] * coeffs[t],
//
// adding a linear combination of the first len(coeffs) rows of basis to x.
// Each row of basis has leading dimension ldv ≥ x.Len().
func (d *Device) CombineLinear(x *Vector, basis *Vector, ldv int, coeffs []float64) {
	n := x.Len()
	if ldv < n {
		panic("compute: leading dimension smaller than vector length")
	}
	if len(basis.data) < len(coeffs)*ldv {
		panic("compute: basis too short for coefficients")
	}
	d.Launch(n, func(i int) {
		acc := x.data[i]
		for t, c := range coeffs {
			acc += basis.data[t*ldv+i] * c
		}
		x.data[i] = acc
	})
}

func sameLen(a, b *Vector) {
	if len(a.data) != len(b.data) {
		panic("compute: dimension mismatch")
	}
}
