// Copyright ©2025 The ParGMRES Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pargmres solves large sparse linear systems A·x = b with
// iterative Krylov-subspace methods whose vector work runs as bulk-parallel
// kernel launches on a compute device.
package pargmres

import "github.com/numerical-fun/ParGMRES/compute"

// Operation specifies the type of operation commanded by a Method.
type Operation uint64

// Operations commanded by Method.Iterate.
const (
	NoOperation Operation = 0

	// Multiply A*x where x is stored in Context.Src and the result must
	// be stored into Context.Dst.
	MulVec Operation = 1 << (iota - 1)

	// Compute b - A*x where x is stored in Context.X and store the
	// result into Context.Residual.
	ComputeResidual

	// Check convergence using the residual norm in Context.ResidualNorm.
	// If convergence is detected, Context.Converged must be set to true
	// before calling Method.Iterate again.
	CheckResidualNorm

	// EndIteration indicates that Method has finished what it considers
	// to be one iteration. It can be used to update an iteration
	// counter. If Context.Converged is true, the iterative process must
	// be terminated, and Method.Init must be called before calling
	// Method.Iterate again.
	EndIteration
)

// Method is an iterative method that produces a sequence of vectors
// converging to the vector x satisfying a system of linear equations
//
//	A x = b,
//
// where A is a non-singular dim×dim matrix, and x and b are vectors of
// dimension dim.
//
// Method uses a reverse-communication interface between the iterative
// algorithm and the caller. Method acts as a client that commands the
// caller to perform needed operations via Operation returned from Iterate.
// This keeps Method independent of the representation of the matrix A and
// lets the caller maintain statistics and convergence checks in one place.
// All vector state lives on the device; Method issues its own elementwise
// and reduction kernels through the Device handed to Init.
type Method interface {
	// Init initializes the method for solving a dim×dim linear system
	// whose kernels run on dev.
	Init(dev *compute.Device, dim int)

	// Iterate retrieves data from Context, updates it, and returns the
	// next operation. The caller must perform the Operation using data
	// in Context, and depending on the state call Iterate again.
	Iterate(*Context) (Operation, error)
}

// Context mediates the communication between a Method and the caller. It
// must not be modified or accessed apart from the commanded Operations.
type Context struct {
	// X is the current approximate solution. On the first call to
	// Method.Iterate, X must contain the initial estimate. Method must
	// update X with the current estimate when it commands
	// ComputeResidual and EndIteration.
	X *compute.Vector
	// Residual is the current residual b - A*x. On the first call to
	// Method.Iterate, Residual must contain the initial residual.
	Residual *compute.Vector
	// ResidualNorm is (an estimate of) the norm of the current
	// residual. Method must update it when it commands
	// CheckResidualNorm. It does not have to be equal to the norm of
	// Residual; GMRES estimates it from the rotated right-hand side
	// without forming the residual itself.
	ResidualNorm float64
	// Converged indicates to Method that ResidualNorm satisfies the
	// stopping criterion as a result of a CheckResidualNorm operation.
	// If a Method commands EndIteration with Converged true, the caller
	// must not call Method.Iterate again without calling Method.Init
	// first.
	Converged bool

	// Src and Dst are the source and destination vectors for the MulVec
	// operation.
	Src, Dst *compute.Vector
}
