// Copyright ©2025 The ParGMRES Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pargmres solves a sparse linear system A·x = b read from
// coordinate-format files and writes the solution in the same format.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	pargmres "github.com/numerical-fun/ParGMRES"
	"github.com/numerical-fun/ParGMRES/compute"
	"github.com/numerical-fun/ParGMRES/diag"
	"github.com/numerical-fun/ParGMRES/mtx"
)

func main() {
	var (
		matrixPath = flag.String("matrix", "", "path to the coefficient matrix (coordinate format)")
		rhsPath    = flag.String("rhs", "", "path to the right-hand side vector (coordinate format)")
		outPath    = flag.String("out", "", "path to write the solution vector (optional)")
		restart    = flag.Int("restart", 30, "GMRES restart dimension (0 = problem dimension)")
		tol        = flag.Float64("tol", 1e-8, "relative convergence tolerance")
		maxiter    = flag.Int("maxiter", 0, "total inner iteration budget (0 = 2*dimension)")
		workers    = flag.Int("workers", 0, "device scheduling width (0 = GOMAXPROCS)")
		probe      = flag.Bool("probe", false, "print compute capability diagnostics")
	)
	flag.Parse()

	if *probe {
		diag.Fprint(os.Stdout)
	}
	if *matrixPath == "" || *rhsPath == "" {
		if *probe {
			return
		}
		fmt.Fprintln(os.Stderr, "pargmres: -matrix and -rhs are required")
		flag.Usage()
		os.Exit(2)
	}

	a, err := mtx.LoadMatrix(*matrixPath)
	if err != nil {
		fatal(err)
	}
	b, err := mtx.LoadVector(*rhsPath)
	if err != nil {
		fatal(err)
	}
	if a.Rows != a.Cols {
		fatal(fmt.Errorf("matrix is %dx%d, want square", a.Rows, a.Cols))
	}
	if a.Rows != len(b) {
		fatal(fmt.Errorf("matrix is %dx%d but right-hand side has %d entries", a.Rows, a.Cols, len(b)))
	}
	if *restart < 0 {
		fatal(fmt.Errorf("restart must not be negative"))
	}
	if *tol <= 0 || 1 <= *tol {
		fatal(fmt.Errorf("tolerance must be in (0, 1)"))
	}

	dev := compute.New(*workers)
	op := pargmres.Operator{
		MulVec: func(dst, src *compute.Vector) {
			a.MulVec(dev, dst, src)
		},
	}
	method := &pargmres.GMRES{Restart: min(*restart, a.Rows)}

	fmt.Printf("system: n=%d nnz=%d restart=%d tol=%g workers=%d\n",
		a.Rows, a.NNZ(), method.Restart, *tol, dev.Workers())

	res, err := pargmres.Solve(dev, op, b, method, pargmres.Settings{
		Tolerance:     *tol,
		MaxIterations: *maxiter,
	})
	switch {
	case err == nil:
		fmt.Printf("converged: iterations=%d matvecs=%d residual=%.6e runtime=%v\n",
			res.Stats.Iterations, res.Stats.MulVec, res.Stats.ResidualNorm, res.Stats.Runtime)
	case errors.Is(err, pargmres.ErrIterationLimit):
		fmt.Printf("did not converge: iterations=%d residual=%.6e runtime=%v\n",
			res.Stats.Iterations, res.Stats.ResidualNorm, res.Stats.Runtime)
	default:
		fatal(err)
	}

	if *outPath != "" {
		if err := mtx.SaveVector(*outPath, res.X); err != nil {
			fatal(err)
		}
		fmt.Printf("solution written to %s\n", *outPath)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "pargmres:", err)
	os.Exit(1)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
