// Copyright ©2025 The ParGMRES Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pargmres

import "github.com/numerical-fun/ParGMRES/compute"

// CG implements the conjugate gradient method for systems with a symmetric
// positive-definite matrix. The caller is responsible for supplying such a
// matrix; for general non-symmetric systems use GMRES.
type CG struct {
	dev *compute.Device

	first        bool
	rho, rhoPrev float64
	resume       int

	r    *compute.Vector
	p    *compute.Vector
	ap   *compute.Vector
	cell *compute.Scalar
}

// Init initializes the method for a dim×dim system on dev.
func (cg *CG) Init(dev *compute.Device, dim int) {
	if dim <= 0 {
		panic("pargmres: invalid dim")
	}
	if dev == nil {
		panic("pargmres: nil device")
	}
	cg.dev = dev
	if cg.r == nil || cg.r.Len() != dim {
		cg.r = dev.NewVector(dim)
		cg.p = dev.NewVector(dim)
		cg.ap = dev.NewVector(dim)
	}
	if cg.cell == nil {
		cg.cell = dev.NewScalar()
	}
	cg.first = true
	cg.resume = 1
}

func (cg *CG) Iterate(ctx *Context) (Operation, error) {
	switch cg.resume {
	case 1:
		if cg.first {
			cg.dev.Copy(cg.r, ctx.Residual)
		}
		cg.cell.Zero()
		cg.dev.Dot(cg.cell, cg.r, cg.r) // ρ_i = r_{i-1} · r_{i-1}
		cg.rho = cg.cell.Value()
		if cg.first {
			cg.dev.Copy(cg.p, cg.r) // p_1 = r_0
		} else {
			beta := cg.rho / cg.rhoPrev // β = ρ_i / ρ_{i-1}
			cg.dev.Scale(cg.p, beta)
			cg.dev.AddScaled(cg.p, 1, cg.r) // p_i = r_{i-1} + β p_{i-1}
		}

		ctx.Src = cg.p
		ctx.Dst = cg.ap
		cg.resume = 2
		// Compute Ap_i.
		return MulVec, nil
	case 2:
		cg.cell.Zero()
		cg.dev.Dot(cg.cell, cg.p, cg.ap)
		alpha := cg.rho / cg.cell.Value() // α = ρ_i / (p_i · Ap_i)
		cg.dev.AddScaled(cg.r, -alpha, cg.ap)  // r_i = r_{i-1} - α Ap_i
		cg.dev.AddScaled(ctx.X, alpha, cg.p)   // x_i = x_{i-1} + α p_i

		cg.dev.Copy(ctx.Residual, cg.r)
		cg.dev.Norm2(cg.cell, cg.r)
		ctx.ResidualNorm = cg.cell.Value()
		ctx.Src = nil
		ctx.Dst = nil
		ctx.Converged = false
		cg.resume = 3
		return CheckResidualNorm, nil
	case 3:
		if ctx.Converged {
			cg.resume = 0
			return EndIteration, nil
		}
		cg.rhoPrev = cg.rho
		cg.first = false
		cg.resume = 1
		return EndIteration, nil

	default:
		panic("pargmres: CG.Init not called")
	}
}
