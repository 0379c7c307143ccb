// Copyright ©2025 The ParGMRES Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pargmres

import (
	"testing"

	"github.com/numerical-fun/ParGMRES/compute"
	"github.com/numerical-fun/ParGMRES/sparse"
)

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%v: expected panic", name)
		}
	}()
	fn()
}

func TestSolveArgumentChecks(t *testing.T) {
	dev := compute.Default()
	a := sparse.NewCSRFromDense([][]float64{{2, 0}, {0, 3}})
	op := operator(dev, a)
	b := []float64{1, 1}

	mustPanic(t, "nil device", func() {
		Solve(nil, op, b, &GMRES{}, Settings{})
	})
	mustPanic(t, "nil MulVec", func() {
		Solve(dev, Operator{}, b, &GMRES{}, Settings{})
	})
	mustPanic(t, "mismatched X0", func() {
		Solve(dev, op, b, &GMRES{}, Settings{X0: []float64{1}})
	})
	mustPanic(t, "tolerance too large", func() {
		Solve(dev, op, b, &GMRES{}, Settings{Tolerance: 1})
	})
	mustPanic(t, "tolerance below machine epsilon", func() {
		Solve(dev, op, b, &GMRES{}, Settings{Tolerance: 1e-17})
	})
}

func TestSolveEmptySystem(t *testing.T) {
	dev := compute.Default()
	called := false
	op := Operator{MulVec: func(dst, x *compute.Vector) { called = true }}

	r, err := Solve(dev, op, nil, &GMRES{}, Settings{})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(r.X) != 0 {
		t.Errorf("got solution of length %d for an empty system", len(r.X))
	}
	if called {
		t.Error("MulVec was called for an empty system")
	}
}

func TestSolveStats(t *testing.T) {
	dev := compute.Default()
	a := sparse.NewCSRFromDense([][]float64{
		{4, 1, 0},
		{1, 4, 1},
		{0, 1, 4},
	})
	b := []float64{1, 2, 3}

	var monitored int
	r, err := Solve(dev, operator(dev, a), b, &GMRES{}, Settings{
		Monitor: func(iteration int, rnorm float64) {
			monitored++
			if iteration != monitored {
				t.Errorf("monitor got iteration %d, want %d", iteration, monitored)
			}
			if rnorm < 0 {
				t.Errorf("monitor got negative residual norm %v", rnorm)
			}
		},
	})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if r.Stats.Iterations != monitored {
		t.Errorf("Stats.Iterations = %d, monitor saw %d calls", r.Stats.Iterations, monitored)
	}
	if r.Stats.MulVec == 0 {
		t.Error("Stats.MulVec is zero after a non-trivial solve")
	}
	if r.Stats.ResidualNorm < 0 {
		t.Errorf("Stats.ResidualNorm = %v", r.Stats.ResidualNorm)
	}
	if r.Stats.Runtime <= 0 {
		t.Errorf("Stats.Runtime = %v", r.Stats.Runtime)
	}
}
