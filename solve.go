// Copyright ©2025 The ParGMRES Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pargmres

import (
	"errors"
	"time"

	"github.com/numerical-fun/ParGMRES/compute"
)

// ErrIterationLimit is returned by Solve when the iteration budget is
// exhausted before the tolerance is met. The Result still carries the best
// available approximate solution.
var ErrIterationLimit = errors.New("pargmres: iteration limit reached")

// Operator describes the matrix of the linear system in terms of the A*x
// operation. The product must run on the same device the solve uses; both
// vectors are device-resident, and the operator must not return before its
// kernels have completed.
type Operator struct {
	// Compute A*x and store the result into dst.
	// It must be non-nil.
	MulVec func(dst, x *compute.Vector)
}

// Settings holds various settings for solving a linear system.
type Settings struct {
	// X0 is an initial guess.
	// If it is nil, the zero vector will be used.
	// If it is not nil, the length of X0 must be equal to the dimension
	// of the system.
	X0 []float64

	// Tolerance specifies the error tolerance for the final approximate
	// solution relative to the norm of the right-hand side: the solve
	// stops once |r| < Tolerance * |b|. Tolerance must be smaller than
	// one and greater than the machine epsilon.
	Tolerance float64

	// MaxIterations is the limit on the total number of inner
	// iterations across all restarts.
	// If it is zero, it will be set to twice the dimension of the
	// system.
	MaxIterations int

	// Monitor, if non-nil, is called after every iteration with the
	// iteration count and the current residual norm (or its estimate).
	Monitor func(iteration int, residualNorm float64)
}

func defaultSettings(s *Settings, dim int) {
	if s.Tolerance == 0 {
		s.Tolerance = 1e-8
	}
	if s.MaxIterations == 0 {
		s.MaxIterations = 2 * dim
	}
}

// Result holds the result of an iterative solve.
type Result struct {
	// X is the approximate solution, copied back to the host.
	X []float64
	// Stats holds the statistics of the solve.
	Stats Stats
}

// Stats holds statistics about an iterative solve.
type Stats struct {
	// Iterations is the number of iterations done by Method.
	Iterations int
	// MulVec is the number of MulVec operations commanded by Method
	// plus the residual computations done by the driver.
	MulVec int
	// ResidualNorm is the final norm of the residual.
	ResidualNorm float64
	// StartTime is an approximate time when the solve was started.
	StartTime time.Time
	// Runtime is an approximate duration of the solve.
	Runtime time.Duration
}

// Solve solves the system of n linear equations
//
//	A*x = b,
//
// where the n×n matrix A is represented by the matrix-vector operation in
// a. The dimension of the problem n is determined by the length of b.
//
// method is an iterative method used for finding an approximate solution
// of the linear system. It must not be nil.
//
// settings provide means for adjusting the iterative process. Zero values
// of the fields mean default values.
//
// A zero right-hand side (or an initial guess whose residual is already
// under tolerance) is a degenerate success: Solve returns immediately.
func Solve(dev *compute.Device, a Operator, b []float64, method Method, settings Settings) (Result, error) {
	stats := Stats{StartTime: time.Now()}

	dim := len(b)
	if dev == nil {
		panic("pargmres: nil device")
	}
	if a.MulVec == nil {
		panic("pargmres: nil matrix-vector multiplication")
	}
	if settings.X0 != nil && len(settings.X0) != dim {
		panic("pargmres: mismatched length of initial guess")
	}

	if dim == 0 {
		return Result{Stats: stats}, nil
	}

	defaultSettings(&settings, dim)
	if settings.Tolerance < dlamchE || 1 <= settings.Tolerance {
		panic("pargmres: invalid tolerance")
	}

	ctx := &Context{
		X:        dev.NewVector(dim),
		Residual: dev.NewVector(dim),
	}
	bdev := dev.NewVectorFrom(b)
	cell := dev.NewScalar()
	if settings.X0 != nil {
		ctx.X.CopyFromHost(settings.X0)
		a.MulVec(ctx.Residual, ctx.X)
		stats.MulVec++
		dev.Sub(ctx.Residual, bdev, ctx.Residual) // r = b - A*x
	} else {
		dev.Copy(ctx.Residual, bdev) // r = b
	}

	dev.Norm2(cell, bdev)
	bnorm := cell.Value()
	if bnorm == 0 {
		bnorm = 1
	}
	dev.Norm2(cell, ctx.Residual)
	ctx.ResidualNorm = cell.Value()
	stats.ResidualNorm = ctx.ResidualNorm

	var err error
	if ctx.ResidualNorm/bnorm >= settings.Tolerance {
		err = iterate(dev, a, bdev, bnorm, ctx, settings, method, &stats)
	}

	x := make([]float64, dim)
	ctx.X.CopyToHost(x)
	stats.Runtime = time.Since(stats.StartTime)
	return Result{
		X:     x,
		Stats: stats,
	}, err
}

func iterate(dev *compute.Device, a Operator, b *compute.Vector, bnorm float64, ctx *Context, settings Settings, method Method, stats *Stats) error {
	method.Init(dev, ctx.X.Len())

	for {
		op, err := method.Iterate(ctx)
		if err != nil {
			return err
		}

		switch op {
		case NoOperation:

		case ComputeResidual:
			a.MulVec(ctx.Residual, ctx.X)
			stats.MulVec++
			dev.Sub(ctx.Residual, b, ctx.Residual) // r = b - A*x

		case MulVec:
			a.MulVec(ctx.Dst, ctx.Src)
			stats.MulVec++

		case CheckResidualNorm:
			ctx.Converged = ctx.ResidualNorm/bnorm < settings.Tolerance

		case EndIteration:
			stats.Iterations++
			stats.ResidualNorm = ctx.ResidualNorm
			if settings.Monitor != nil {
				settings.Monitor(stats.Iterations, ctx.ResidualNorm)
			}
			if ctx.Converged {
				return nil
			}
			if stats.Iterations == settings.MaxIterations {
				return ErrIterationLimit
			}

		default:
			panic("pargmres: invalid operation")
		}
	}
}

func reuse(v []float64, n int) []float64 {
	if cap(v) < n {
		return make([]float64, n)
	}
	return v[:n]
}

const dlamchE = 1.0 / (1 << 53)
