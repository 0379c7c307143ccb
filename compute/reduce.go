// Copyright ©2025 The ParGMRES Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compute

// Reduction primitives. Each block of workers accumulates a private partial
// sum in a register and contributes it to the accumulator cell with a
// single atomic add. The caller must zero the cell beforehand; the
// primitive never resets it, which permits chained accumulation when that
// is explicitly wanted.

// Dot accumulates Σ x[i]*y[i] into acc. The lengths must match.
func (d *Device) Dot(acc *Scalar, x, y *Vector) {
	sameLen(x, y)
	d.launchBlocks(x.Len(), func(lo, hi int) {
		var part float64
		for i := lo; i < hi; i++ {
			part += x.data[i] * y.data[i]
		}
		acc.Add(part)
	})
}

// SumSquares accumulates Σ x[i]*x[i] into acc.
func (d *Device) SumSquares(acc *Scalar, x *Vector) {
	d.launchBlocks(x.Len(), func(lo, hi int) {
		var part float64
		for i := lo; i < hi; i++ {
			part += x.data[i] * x.data[i]
		}
		acc.Add(part)
	})
}

// Norm2 computes the Euclidean norm of x into acc: the cell is zeroed, a
// sum-of-squares reduction runs, and a Sqrt launch finalizes it. After
// Norm2 returns the cell holds ‖x‖₂ and is safe to consume.
func (d *Device) Norm2(acc *Scalar, x *Vector) {
	acc.Zero()
	d.SumSquares(acc, x)
	d.Sqrt(acc)
}
