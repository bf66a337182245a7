package solver

import "context"

// ConstraintSense distinguishes equality from upper-bound rows.
type ConstraintSense int

const (
	// SenseEQ constrains a row to equal its RHS.
	SenseEQ ConstraintSense = iota
	// SenseLE constrains a row to at most its RHS.
	SenseLE
)

// Row describes one linear constraint: sense and right-hand side. Its
// coefficients live in the Problem's matrix builder under the row's index.
type Row struct {
	Sense ConstraintSense
	RHS   float64
}

// Problem is a binary integer program: maximize Objective over x in {0,1}^n
// subject to the rows of the constraint matrix. The candidate list and the
// variable layout are fixed when the problem is built; nothing mutates a
// Problem after construction.
type Problem struct {
	// Objective[j] is the coefficient of variable j; the problem maximizes.
	Objective []float64
	// Matrix holds the constraint coefficients as row/col/value triples.
	Matrix *MatrixBuilder
	// Rows gives each constraint's sense and right-hand side; row indices in
	// Matrix refer to this slice.
	Rows []Row
	// ForcedOne pins the listed variables to exactly 1 before solving,
	// enabling best-achievable-given-this-choice queries.
	ForcedOne []int
	// MaxNodes bounds the search; exceeding it is a solver failure, never a
	// silent "no solution".
	MaxNodes int
}

// Solution is a solved assignment of the problem's variables. Values must
// all be exactly 0 or 1; anything else is a backend contract violation.
type Solution struct {
	Objective float64
	Values    []float64
}

// Backend is the narrow adapter any binary integer-programming engine must
// satisfy.
type Backend interface {
	Solve(ctx context.Context, p *Problem) (*Solution, error)
}
