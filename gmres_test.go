// Copyright ©2025 The ParGMRES Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pargmres

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/numerical-fun/ParGMRES/compute"
	"github.com/numerical-fun/ParGMRES/sparse"
)

type testCase struct {
	name  string
	n     int
	a     *sparse.Matrix
	iters int
	tol   float64
}

// randomDiagDominant generates a sparse strictly diagonally dominant
// system, which GMRES handles well regardless of symmetry.
func randomDiagDominant(n int, rnd *rand.Rand) testCase {
	dense := make([][]float64, n)
	for i := range dense {
		dense[i] = make([]float64, n)
		for j := range dense[i] {
			if i == j || rnd.Float64() < 0.3 {
				dense[i][j] = rnd.Float64()
			}
		}
		dense[i][i] += float64(n)
	}
	return testCase{
		name:  "diagDominant",
		n:     n,
		a:     sparse.NewCSRFromDense(dense),
		iters: 10 * n,
		tol:   1e-8,
	}
}

func operator(dev *compute.Device, m *sparse.Matrix) Operator {
	return Operator{
		MulVec: func(dst, src *compute.Vector) {
			m.MulVec(dev, dst, src)
		},
	}
}

func TestGMRES(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	dev := compute.Default()
	for _, tc := range []testCase{
		randomDiagDominant(1, rnd),
		randomDiagDominant(2, rnd),
		randomDiagDominant(3, rnd),
		randomDiagDominant(4, rnd),
		randomDiagDominant(5, rnd),
		randomDiagDominant(10, rnd),
		randomDiagDominant(20, rnd),
		randomDiagDominant(50, rnd),
		randomDiagDominant(100, rnd),
		randomDiagDominant(200, rnd),
		randomDiagDominant(500, rnd),
	} {
		n := tc.n
		// Compute the right-hand side b so that the vector
		// [1,1,...,1] is the solution.
		want := make([]float64, n)
		for i := range want {
			want[i] = 1
		}
		b := make([]float64, n)
		tc.a.MulVecHost(b, want)

		for _, restart := range []int{0, min(10, n)} {
			r, err := Solve(dev, operator(dev, tc.a), b, &GMRES{Restart: restart}, Settings{
				MaxIterations: tc.iters,
				Tolerance:     1e-11,
			})
			if err != nil {
				t.Errorf("Case %v (n=%v, restart=%v): unexpected error %v", tc.name, n, restart, err)
				continue
			}
			dist := floats.Distance(r.X, want, math.Inf(1))
			if dist > tc.tol {
				t.Errorf("Case %v (n=%v, restart=%v): unexpected solution, |want-got|=%v", tc.name, n, restart, dist)
			}
		}
	}
}

func TestGMRESMatchesDenseSolve(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	dev := compute.Default()
	n := 60
	tc := randomDiagDominant(n, rnd)

	flat := make([]float64, n*n)
	for i, row := range tc.a.ToDense() {
		copy(flat[i*n:], row)
	}
	b := make([]float64, n)
	for i := range b {
		b[i] = rnd.NormFloat64()
	}

	var wantVec mat.VecDense
	if err := wantVec.SolveVec(mat.NewDense(n, n, flat), mat.NewVecDense(n, b)); err != nil {
		t.Fatalf("dense reference solve failed: %v", err)
	}

	r, err := Solve(dev, operator(dev, tc.a), b, &GMRES{}, Settings{Tolerance: 1e-12})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	dist := floats.Distance(r.X, wantVec.RawVector().Data, math.Inf(1))
	if dist > 1e-8 {
		t.Errorf("disagrees with dense reference, |want-got|=%v", dist)
	}
}

func TestGMRES1x1(t *testing.T) {
	dev := compute.Default()
	a := sparse.NewCSRFromDense([][]float64{{2}})
	r, err := Solve(dev, operator(dev, a), []float64{4}, &GMRES{}, Settings{Tolerance: 1e-6})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if math.Abs(r.X[0]-2) > 1e-6 {
		t.Errorf("got x=%v, want 2", r.X[0])
	}
}

func TestGMRESIdentity(t *testing.T) {
	dev := compute.Default()
	n := 17
	dense := make([][]float64, n)
	b := make([]float64, n)
	rnd := rand.New(rand.NewSource(3))
	for i := range dense {
		dense[i] = make([]float64, n)
		dense[i][i] = 1
		b[i] = rnd.NormFloat64()
	}
	g := &GMRES{}
	r, err := Solve(dev, operator(dev, sparse.NewCSRFromDense(dense)), b, g, Settings{Tolerance: 1e-10})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	// The first Arnoldi step breaks down with a 1×1 Hessenberg equal to
	// one, and the update reproduces b exactly up to roundoff.
	if r.Stats.Iterations > 2 {
		t.Errorf("took %d iterations, want at most 2", r.Stats.Iterations)
	}
	if math.Abs(g.h[0]-1) > 1e-12 {
		t.Errorf("H[0,0] = %v, want 1", g.h[0])
	}
	if dist := floats.Distance(r.X, b, math.Inf(1)); dist > 1e-13 {
		t.Errorf("|x-b| = %v", dist)
	}
}

func TestGMRESBreakdownOnSingularDirection(t *testing.T) {
	dev := compute.Default()
	// Two identical rows: the second Krylov direction is in the span of
	// the first, triggering breakdown instead of a divide by zero.
	a := sparse.NewCSRFromDense([][]float64{
		{1, 0},
		{1, 0},
	})
	b := []float64{1, 1}
	r, err := Solve(dev, operator(dev, a), b, &GMRES{}, Settings{Tolerance: 1e-10, MaxIterations: 20})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	for i, x := range r.X {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			t.Fatalf("x[%d] = %v", i, x)
		}
	}
	got := make([]float64, 2)
	a.MulVecHost(got, r.X)
	if dist := floats.Distance(got, b, math.Inf(1)); dist > 1e-9 {
		t.Errorf("|A·x-b| = %v", dist)
	}
}

func TestGMRESResidualMonotonic(t *testing.T) {
	rnd := rand.New(rand.NewSource(4))
	dev := compute.Default()
	tc := randomDiagDominant(80, rnd)
	b := make([]float64, tc.n)
	for i := range b {
		b[i] = rnd.NormFloat64()
	}

	var norms []float64
	_, err := Solve(dev, operator(dev, tc.a), b, &GMRES{Restart: 20}, Settings{
		Tolerance: 1e-10,
		Monitor: func(_ int, rnorm float64) {
			norms = append(norms, rnorm)
		},
	})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(norms) == 0 {
		t.Fatal("monitor was never called")
	}
	for i := 1; i < len(norms); i++ {
		// Small violations near convergence are tolerated.
		if norms[i] > norms[i-1]*(1+1e-6)+1e-10 {
			t.Errorf("residual grew at iteration %d: %v -> %v", i, norms[i-1], norms[i])
		}
	}
}

func TestGMRESIterationLimit(t *testing.T) {
	rnd := rand.New(rand.NewSource(5))
	dev := compute.Default()
	tc := randomDiagDominant(50, rnd)
	b := make([]float64, tc.n)
	for i := range b {
		b[i] = rnd.NormFloat64()
	}

	r, err := Solve(dev, operator(dev, tc.a), b, &GMRES{Restart: 5}, Settings{
		Tolerance:     1e-12,
		MaxIterations: 3,
	})
	if !errors.Is(err, ErrIterationLimit) {
		t.Fatalf("got error %v, want ErrIterationLimit", err)
	}
	if r.Stats.Iterations != 3 {
		t.Errorf("got %d iterations, want 3", r.Stats.Iterations)
	}
	if len(r.X) != tc.n {
		t.Errorf("best-effort solution has length %d, want %d", len(r.X), tc.n)
	}
}

func TestGMRESZeroRHS(t *testing.T) {
	dev := compute.Default()
	a := sparse.NewCSRFromDense([][]float64{{2, 1}, {0, 3}})
	r, err := Solve(dev, operator(dev, a), []float64{0, 0}, &GMRES{}, Settings{})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if r.Stats.Iterations != 0 {
		t.Errorf("degenerate success took %d iterations", r.Stats.Iterations)
	}
	if r.X[0] != 0 || r.X[1] != 0 {
		t.Errorf("got x=%v, want the zero vector", r.X)
	}
}

func TestGMRESExactInitialGuess(t *testing.T) {
	dev := compute.Default()
	a := sparse.NewCSRFromDense([][]float64{{2, 0}, {0, 4}})
	r, err := Solve(dev, operator(dev, a), []float64{2, 4}, &GMRES{}, Settings{
		X0: []float64{1, 1},
	})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if r.Stats.Iterations != 0 {
		t.Errorf("exact initial guess still iterated %d times", r.Stats.Iterations)
	}
	if r.Stats.MulVec != 1 {
		t.Errorf("got %d matvecs, want exactly the initial residual", r.Stats.MulVec)
	}
}

func TestArnoldiOrthogonalityAndHessenbergShape(t *testing.T) {
	rnd := rand.New(rand.NewSource(6))
	dev := compute.Default()
	tc := randomDiagDominant(30, rnd)
	b := make([]float64, tc.n)
	for i := range b {
		b[i] = rnd.NormFloat64()
	}

	g := &GMRES{Restart: 10}
	if _, err := Solve(dev, operator(dev, tc.a), b, g, Settings{Tolerance: 1e-10}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	// Inspect the basis and Hessenberg mirror of the final restart.
	k := g.k
	if k < 1 {
		t.Fatal("no basis columns were built")
	}
	n := tc.n
	data := g.v.Data()
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			var dot float64
			for e := 0; e < n; e++ {
				dot += data[i*g.ldv+e] * data[j*g.ldv+e]
			}
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(dot-want) > 1e-8 {
				t.Errorf("<V[%d], V[%d]> = %v, want %v", i, j, dot, want)
			}
		}
	}

	for j := 0; j < g.Restart; j++ {
		for r := j + 2; r <= g.Restart; r++ {
			if got := g.h[j*g.ldh+r]; got != 0 {
				t.Errorf("H[%d,%d] = %v, want untouched zero", r, j, got)
			}
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
