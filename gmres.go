// Copyright ©2025 The ParGMRES Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pargmres

import (
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/numerical-fun/ParGMRES/compute"
)

// GMRES implements the restarted Generalized Minimal Residual method. In
// every restart it grows a Krylov subspace of dimension at most Restart
// with the Arnoldi process, orthogonalizing with modified Gram-Schmidt, and
// minimizes the residual over that subspace through an incremental QR
// factorization of the upper-Hessenberg projection by Givens rotations.
//
// The Krylov basis and all full-length vectors live on the device. Each
// Hessenberg entry is produced on the device by a dot-product reduction
// into a scalar cell and consumed there by the projection-removal kernel
// before the host reads it back for the rotation bookkeeping; the completed
// launch between producer and consumer is the synchronization point.
//
// A zero remainder norm during orthogonalization (breakdown) means the
// subspace cannot grow further. It truncates the current restart's basis,
// is detected before any divide is issued, and is not an error: the solve
// proceeds to the least-squares update with the columns built.
type GMRES struct {
	// Restart is the restart parameter.
	// It must be 0 <= Restart <= dim.
	// If it is 0, it will be set to dim.
	Restart int

	dev *compute.Device

	resume    int
	i         int  // Counter for inner iterations within the restart.
	k         int  // Basis columns built when the restart ends.
	breakdown bool // Basis cannot grow further in this restart.

	s    []float64 // Rotated right-hand side β·e₁ of the small problem.
	y    []float64
	givs []givens

	// Host mirror of the Hessenberg matrix, column-major with row
	// stride ldh = Restart+1. Entries below the first subdiagonal are
	// never written.
	h   []float64
	ldh int

	v    *compute.Vector // Krylov basis, Restart+1 rows of stride ldv.
	ldv  int
	w    *compute.Vector // Orthogonalization work vector.
	cell *compute.Scalar // Reduction cell: Hessenberg entries and norms.
}

type givens struct {
	c, s float64
}

// Init initializes the method for a dim×dim system on dev.
func (g *GMRES) Init(dev *compute.Device, dim int) {
	if dim <= 0 {
		panic("pargmres: invalid dim")
	}
	if dev == nil {
		panic("pargmres: nil device")
	}

	if g.Restart == 0 {
		g.Restart = dim
	}
	if g.Restart <= 0 || dim < g.Restart {
		panic("pargmres: invalid GMRES.Restart")
	}

	g.dev = dev
	m := g.Restart
	g.s = reuse(g.s, m+1)
	g.y = reuse(g.y, m)
	g.ldh = m + 1
	g.h = reuse(g.h, g.ldh*m)
	if cap(g.givs) < m {
		g.givs = make([]givens, m)
	} else {
		g.givs = g.givs[:m]
	}

	g.ldv = dim
	if g.v == nil || g.v.Len() != g.ldv*(m+1) {
		g.v = dev.NewVector(g.ldv * (m + 1))
	}
	if g.w == nil || g.w.Len() != dim {
		g.w = dev.NewVector(dim)
	}
	if g.cell == nil {
		g.cell = dev.NewScalar()
	}

	g.resume = 1
}

func (g *GMRES) Iterate(ctx *Context) (Operation, error) {
	n := ctx.X.Len()
	switch g.resume {
	case 1:
		// Seed the restart: V[0] = r/|r|, s = |r|·e₁, H cleared.
		for i := range g.h {
			g.h[i] = 0
		}
		v0 := g.v.View(0, n)
		g.dev.Copy(v0, ctx.Residual)
		g.dev.Norm2(g.cell, v0)
		rnorm := g.cell.Value()
		// rnorm > 0 here: the driver never starts a restart on a
		// converged residual, and convergence is checked against
		// tol·|b| > 0.
		g.dev.DivScalar(v0, v0, g.cell)
		for i := range g.s {
			g.s[i] = 0
		}
		g.s[0] = rnorm

		g.i = 0
		g.breakdown = false
		fallthrough
	case 2:
		i := g.i
		if i == g.Restart {
			g.k = g.Restart
			g.resume = 5
			ctx.Src = nil
			ctx.Dst = nil
			return NoOperation, nil
		}
		ctx.Src = g.v.View(i*g.ldv, i*g.ldv+n)
		ctx.Dst = g.w
		g.resume = 3
		// Compute A V[:,i].
		return MulVec, nil
	case 3:
		i := g.i
		hi := g.h[i*g.ldh : i*g.ldh+g.ldh]

		// Construct the i-th column of the upper-Hessenberg matrix
		// with modified Gram-Schmidt: project the already-updated w
		// onto each prior basis vector in increasing order. The dot
		// product must have fully accumulated before the subtract
		// launch consumes its cell, and the subtract must complete
		// before the host reads the entry back.
		for k := 0; k <= i; k++ {
			vk := g.v.View(k*g.ldv, k*g.ldv+n)
			g.cell.Zero()
			g.dev.Dot(g.cell, g.w, vk)
			g.dev.SubScaled(g.w, vk, g.cell)
			hi[k] = g.cell.Value()
		}
		g.dev.Norm2(g.cell, g.w)
		wnorm := g.cell.Value()
		hi[i+1] = wnorm // H[i+1,i] = |w|
		if wnorm == 0 {
			// Breakdown: the new direction lies in the span of the
			// basis. Skip the divide and stop growing the subspace.
			g.breakdown = true
		} else {
			vip1 := g.v.View((i+1)*g.ldv, (i+1)*g.ldv+n)
			g.dev.DivScalar(vip1, g.w, g.cell)
		}

		// Apply the previous Givens rotations to the i-th column of H.
		for j := 0; j < i; j++ {
			hi[j], hi[j+1] = rotvec(hi[j], hi[j+1], g.givs[j])
		}
		// Compute the (i+1)st Givens rotation that zeroes H[i+1,i]
		// and apply it to the column and to (s[i], s[i+1]).
		g.givs[i] = drotg(hi[i], hi[i+1])
		hi[i], hi[i+1] = rotvec(hi[i], hi[i+1], g.givs[i])
		g.s[i], g.s[i+1] = rotvec(g.s[i], g.s[i+1], g.givs[i])

		// |s[i+1]| estimates the residual norm of the updated
		// solution without forming it.
		ctx.ResidualNorm = math.Abs(g.s[i+1])
		ctx.Src = nil
		ctx.Dst = nil
		ctx.Converged = false
		g.resume = 4
		return CheckResidualNorm, nil
	case 4:
		if ctx.Converged || g.breakdown {
			// Leave the inner loop and form the solution; the true
			// residual check decides convergence so that the
			// estimate is never trusted on its own.
			ctx.Converged = false
			g.k = g.i + 1
			g.resume = 5
		} else {
			g.i++
			g.resume = 2
		}
		return EndIteration, nil
	case 5:
		// Update x from the basis actually built.
		g.update(ctx.X)
		g.resume = 6
		// Compute the true residual b - A*x.
		return ComputeResidual, nil
	case 6:
		g.dev.Norm2(g.cell, ctx.Residual)
		ctx.ResidualNorm = g.cell.Value()
		ctx.Converged = false
		g.resume = 7
		return CheckResidualNorm, nil
	case 7:
		if ctx.Converged {
			g.resume = 0
			return EndIteration, nil
		}
		// Restart: reseed from the new residual.
		g.resume = 1
		return NoOperation, nil

	default:
		panic("pargmres: GMRES.Init not called")
	}
}

// update solves the small triangular system left by the rotations and adds
// the Krylov correction to x.
func (g *GMRES) update(x *compute.Vector) {
	k := g.k
	// A zero pivot means the minimization problem is rank deficient;
	// truncate to the leading nonsingular block.
	for t := 0; t < k; t++ {
		if g.h[t*g.ldh+t] == 0 {
			k = t
			break
		}
	}
	if k == 0 {
		return
	}
	y := g.y[:k]
	copy(y, g.s[:k])
	// Solve R*y = s for the upper triangular R accumulated in H. R is
	// upper triangular but stored in column-major order while Dtrsv
	// expects row-major, so it is addressed as its lower-triangular
	// transpose.
	bi := blas64.Implementation()
	bi.Dtrsv(blas.Lower, blas.Trans, blas.NonUnit, k, g.h, g.ldh, y, 1)
	// x += Σ y_t V[:,t] in one fused kernel.
	g.dev.CombineLinear(x, g.v, g.ldv, y)
}

func drotg(a, b float64) givens {
	if b == 0 {
		return givens{c: 1, s: 0}
	}
	if math.Abs(b) > math.Abs(a) {
		tmp := -a / b
		s := 1 / math.Sqrt(1+tmp*tmp)
		return givens{c: tmp * s, s: s}
	}
	tmp := -b / a
	c := 1 / math.Sqrt(1+tmp*tmp)
	return givens{c: c, s: tmp * c}
}

func rotvec(x, y float64, g givens) (rx, ry float64) {
	rx = g.c*x - g.s*y
	ry = g.s*x + g.c*y
	return
}
