package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/yourusername/replay-labeller/internal/models"
)

const (
	// intTol is how far a relaxation value may sit from an integer and
	// still count as integral.
	intTol = 1e-6
	// pruneTol guards bound comparisons against floating noise.
	pruneTol = 1e-9
	// simplexTol is passed through to the LP solver.
	simplexTol = 1e-10
)

// SimplexBackend solves binary integer programs by branch and bound over LP
// relaxations, using gonum's simplex method for the relaxations. The
// assignment structure keeps relaxations near-integral, so the search tree
// stays shallow in practice.
type SimplexBackend struct{}

// NewSimplexBackend returns the default solving backend.
func NewSimplexBackend() *SimplexBackend {
	return &SimplexBackend{}
}

// node is one branch-and-bound subproblem: per-variable upper bounds (0
// closes a variable) and the set of variables fixed to 1.
type node struct {
	upper []float64
	ones  []int
}

func (n *node) branch(j int) (zero, one *node) {
	zeroUpper := make([]float64, len(n.upper))
	copy(zeroUpper, n.upper)
	zeroUpper[j] = 0
	zero = &node{upper: zeroUpper, ones: n.ones}

	oneOnes := make([]int, len(n.ones), len(n.ones)+1)
	copy(oneOnes, n.ones)
	one = &node{upper: n.upper, ones: append(oneOnes, j)}
	return zero, one
}

// Solve runs branch and bound. It returns models.ErrSolverInfeasible when no
// feasible binary assignment exists, and models.ErrSolverNodeLimit when the
// node budget runs out before optimality is proven.
func (b *SimplexBackend) Solve(ctx context.Context, p *Problem) (*Solution, error) {
	n := len(p.Objective)
	if n == 0 {
		return &Solution{Objective: 0, Values: nil}, nil
	}

	root := &node{upper: make([]float64, n), ones: append([]int(nil), p.ForcedOne...)}
	for j := range root.upper {
		root.upper[j] = 1
	}

	bestObj := math.Inf(-1)
	var bestX []float64

	stack := []*node{root}
	visited := 0
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("solve cancelled after %d nodes: %w", visited, err)
		}
		visited++
		if p.MaxNodes > 0 && visited > p.MaxNodes {
			return nil, fmt.Errorf("%w: budget %d", models.ErrSolverNodeLimit, p.MaxNodes)
		}

		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		relaxObj, x, err := b.solveRelaxation(p, nd)
		if errors.Is(err, lp.ErrInfeasible) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("LP relaxation failed at node %d: %w", visited, err)
		}

		// The relaxation bounds every binary solution below this node.
		if relaxObj <= bestObj+pruneTol {
			continue
		}

		j := mostFractional(x[:n])
		if j < 0 {
			// Integral relaxation: a new incumbent.
			bestObj = relaxObj
			bestX = roundBinary(x[:n])
			continue
		}

		zero, one := nd.branch(j)
		// Explore the forced-one child first; candidate payoffs make it the
		// likelier source of a strong incumbent.
		stack = append(stack, zero, one)
	}

	if bestX == nil {
		return nil, models.ErrSolverInfeasible
	}
	return &Solution{Objective: bestObj, Values: bestX}, nil
}

// solveRelaxation solves the node's LP relaxation in standard form:
// minimize -objective subject to the problem rows (LE rows slacked), the
// per-variable upper bounds, and the node's fixed-to-one equalities.
func (b *SimplexBackend) solveRelaxation(p *Problem, nd *node) (float64, []float64, error) {
	n := len(p.Objective)

	leRows := 0
	for _, row := range p.Rows {
		if row.Sense == SenseLE {
			leRows++
		}
	}

	nRows := len(p.Rows) + n + len(nd.ones)
	nCols := n + leRows + n

	build := NewMatrixBuilder()
	rhs := make([]float64, nRows)

	// Problem rows, with one slack column per LE row.
	slack := 0
	p.Matrix.Each(func(row, col int, v float64) {
		build.Append(row, col, v)
	})
	for i, row := range p.Rows {
		rhs[i] = row.RHS
		if row.Sense == SenseLE {
			build.Append(i, n+slack, 1)
			slack++
		}
	}

	// Upper-bound rows x_j + s_j = ub_j; a zero bound closes the variable.
	for j := 0; j < n; j++ {
		r := len(p.Rows) + j
		build.Append(r, j, 1)
		build.Append(r, n+leRows+j, 1)
		rhs[r] = nd.upper[j]
	}

	// Fixed-to-one rows.
	for k, j := range nd.ones {
		r := len(p.Rows) + n + k
		build.Append(r, j, 1)
		rhs[r] = 1
	}

	a, err := build.Dense(nRows, nCols)
	if err != nil {
		return 0, nil, err
	}

	c := make([]float64, nCols)
	for j := 0; j < n; j++ {
		c[j] = -p.Objective[j]
	}

	optF, optX, err := simplexSolve(c, a, rhs)
	if err != nil {
		return 0, nil, err
	}
	return -optF, optX, nil
}

func simplexSolve(c []float64, a *mat.Dense, b []float64) (float64, []float64, error) {
	return lp.Simplex(c, a, b, simplexTol, nil)
}

// mostFractional returns the index of the variable farthest from
// integrality, or -1 when all values are integral within tolerance.
func mostFractional(x []float64) int {
	best, bestDist := -1, intTol
	for j, v := range x {
		dist := math.Min(v-math.Floor(v), math.Ceil(v)-v)
		if dist > bestDist {
			best, bestDist = j, dist
		}
	}
	return best
}

func roundBinary(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = math.Round(v)
	}
	return out
}
