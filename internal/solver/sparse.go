// Package solver formulates the candidate-assignment problem as a binary
// integer program and solves it through a pluggable backend.
package solver

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// MatrixBuilder assembles a constraint matrix from (row, column, value)
// triples. It is decoupled from any solving backend; backends materialize
// whatever representation they need from it.
type MatrixBuilder struct {
	rows []int
	cols []int
	vals []float64
}

// NewMatrixBuilder returns an empty builder.
func NewMatrixBuilder() *MatrixBuilder {
	return &MatrixBuilder{}
}

// Append records the entry A[row, col] = v. Appending the same coordinate
// twice accumulates.
func (b *MatrixBuilder) Append(row, col int, v float64) {
	b.rows = append(b.rows, row)
	b.cols = append(b.cols, col)
	b.vals = append(b.vals, v)
}

// NonZeros returns the number of recorded entries.
func (b *MatrixBuilder) NonZeros() int {
	return len(b.vals)
}

// Dense materializes the triples into an nRows x nCols dense matrix.
// Coordinates outside the requested shape are an error: the formulation and
// the shape are fixed together at build time.
func (b *MatrixBuilder) Dense(nRows, nCols int) (*mat.Dense, error) {
	m := mat.NewDense(nRows, nCols, nil)
	for i, v := range b.vals {
		r, c := b.rows[i], b.cols[i]
		if r < 0 || r >= nRows || c < 0 || c >= nCols {
			return nil, fmt.Errorf("matrix entry (%d,%d) outside %dx%d shape", r, c, nRows, nCols)
		}
		m.Set(r, c, m.At(r, c)+v)
	}
	return m, nil
}

// Each calls fn for every recorded triple in insertion order.
func (b *MatrixBuilder) Each(fn func(row, col int, v float64)) {
	for i, v := range b.vals {
		fn(b.rows[i], b.cols[i], v)
	}
}
