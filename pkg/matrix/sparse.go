package matrix

import (
	"fmt"
	"io"
	"math"

	"github.com/edp1096/sparse"

	"github.com/edp1096/toy-breadboard/internal/consts"
)

// SparseMatrix factors with the Markowitz-ordered sparse LU of
// github.com/edp1096/sparse. Every stamp is mirrored into a DenseMatrix which
// takes over when the sparse path panics, hits a pivot below PivotEpsilon or
// produces a non-finite solution.
type SparseMatrix struct {
	size     int
	matrix   *sparse.Matrix
	rhs      []float64 // 1-based
	solution []float64
	fallback *DenseMatrix
	config   *sparse.Configuration
	broken   bool // a stamp failed, the sparse copy is incomplete

	PivotEpsilon float64

	// FellBack is set when the last Solve used the dense eliminator.
	FellBack bool
}

func NewSparseMatrix(size int) (*SparseMatrix, error) {
	config := &sparse.Configuration{
		Real:                    true,
		Complex:                 false,
		SeparatedComplexVectors: false,
		Expandable:              true,
		Translate:               true,
		ModifiedNodal:           true,
		TiesMultiplier:          5,
		PrinterWidth:            140,
		Annotate:                0,
	}

	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, fmt.Errorf("creating sparse matrix: %w", err)
	}

	return &SparseMatrix{
		size:     size,
		matrix:   mat,
		rhs:      make([]float64, size+1),
		solution: make([]float64, size+1),
		fallback: NewDenseMatrix(size),
		config:   config,

		PivotEpsilon: consts.PIVOT_EPSILON,
	}, nil
}

func (m *SparseMatrix) Size() int { return m.size }

func (m *SparseMatrix) AddElement(i, j int, value float64) {
	if i <= 0 || j <= 0 || i > m.size || j > m.size {
		return
	}
	m.add(i, j, value)
	m.fallback.AddElement(i, j, value)
}

// add stamps into the sparse copy only. A library panic marks the matrix
// broken so the next Solve goes straight to the dense copy.
func (m *SparseMatrix) add(i, j int, value float64) {
	if m.broken {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.broken = true
		}
	}()

	e := m.matrix.GetElement(int64(i), int64(j))
	if e == nil {
		m.broken = true
		return
	}
	e.Real += value
}

func (m *SparseMatrix) AddRHS(i int, value float64) {
	if i <= 0 || i > m.size {
		return
	}
	m.rhs[i] += value
	m.fallback.AddRHS(i, value)
}

func (m *SparseMatrix) LoadGmin(gmin float64, rows int) {
	if rows > m.size {
		rows = m.size
	}
	for i := 1; i <= rows; i++ {
		m.add(i, i, gmin)
	}
	m.fallback.LoadGmin(gmin, rows)
}

func (m *SparseMatrix) Clear() {
	if !m.broken {
		m.matrix.Clear()
	}
	clear(m.rhs)
	m.fallback.Clear()
}

func (m *SparseMatrix) Solve() error {
	m.FellBack = false

	var solution []float64
	err := fmt.Errorf("sparse matrix is incomplete")
	if !m.broken {
		solution, err = m.factorAndSolve()
	}
	if err == nil && finite(solution) {
		copy(m.solution, solution)
		m.solution[0] = 0
		return nil
	}

	m.FellBack = true
	if err := m.fallback.Solve(); err != nil {
		return fmt.Errorf("dense fallback failed: %w", err)
	}
	copy(m.solution, m.fallback.Solution())
	return nil
}

func (m *SparseMatrix) factorAndSolve() (solution []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			solution, err = nil, fmt.Errorf("sparse solve panicked: %v", r)
		}
	}()

	if err = m.matrix.Factor(); err != nil {
		return nil, fmt.Errorf("matrix factorization failed: %w", err)
	}
	if step, ok := m.smallPivot(); ok {
		return nil, fmt.Errorf("near-singular pivot at step %d", step)
	}
	solution, err = m.matrix.Solve(m.rhs)
	if err != nil {
		return nil, fmt.Errorf("matrix solve failed: %w", err)
	}
	return solution, nil
}

// smallPivot reports the first factored pivot below PivotEpsilon, or the
// last step when the pivots spread wider than 1/PivotEpsilon. Diags holds
// reciprocals after Factor.
func (m *SparseMatrix) smallPivot() (int64, bool) {
	minPivot, maxPivot := math.Inf(1), 0.0
	for step := int64(1); step <= m.matrix.Size; step++ {
		d := m.matrix.Diags[step]
		if d == nil || d.Real == 0 {
			return step, true
		}
		p := 1 / math.Abs(d.Real)
		if p < m.PivotEpsilon {
			return step, true
		}
		minPivot = math.Min(minPivot, p)
		maxPivot = math.Max(maxPivot, p)
	}
	if maxPivot*m.PivotEpsilon > minPivot {
		return m.matrix.Size, true
	}
	return 0, false
}

func (m *SparseMatrix) Solution() []float64 {
	return m.solution
}

func (m *SparseMatrix) Destroy() {
	if m.matrix != nil {
		m.matrix.Destroy()
		m.matrix = nil
	}
	m.fallback.Destroy()
}

func (m *SparseMatrix) PrintSystem(w io.Writer) {
	m.fallback.PrintSystem(w)
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
