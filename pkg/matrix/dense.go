package matrix

import (
	"fmt"
	"io"
	"math"

	"github.com/edp1096/toy-breadboard/internal/consts"
)

// DenseMatrix solves the MNA system by Gaussian elimination with partial
// pivoting. Columns whose best pivot is below PivotEpsilon are skipped and
// their unknowns come back as 0 instead of failing the solve.
type DenseMatrix struct {
	size         int
	a            [][]float64 // 0-based storage behind the 1-based API
	rhs          []float64
	solution     []float64 // 1-based, solution[0] is ground
	unresolved   []bool    // 1-based
	PivotEpsilon float64
}

func NewDenseMatrix(size int) *DenseMatrix {
	if size < 0 {
		size = 0
	}

	a := make([][]float64, size)
	for i := range a {
		a[i] = make([]float64, size)
	}

	return &DenseMatrix{
		size:         size,
		a:            a,
		rhs:          make([]float64, size),
		solution:     make([]float64, size+1),
		unresolved:   make([]bool, size+1),
		PivotEpsilon: consts.PIVOT_EPSILON,
	}
}

func (m *DenseMatrix) Size() int { return m.size }

func (m *DenseMatrix) AddElement(i, j int, value float64) {
	if i <= 0 || j <= 0 || i > m.size || j > m.size {
		return
	}
	m.a[i-1][j-1] += value
}

func (m *DenseMatrix) AddRHS(i int, value float64) {
	if i <= 0 || i > m.size {
		return
	}
	m.rhs[i-1] += value
}

// Element returns the stamped (unfactored) value at (i, j).
func (m *DenseMatrix) Element(i, j int) float64 {
	if i <= 0 || j <= 0 || i > m.size || j > m.size {
		return 0
	}
	return m.a[i-1][j-1]
}

func (m *DenseMatrix) RHS(i int) float64 {
	if i <= 0 || i > m.size {
		return 0
	}
	return m.rhs[i-1]
}

// LoadGmin adds gmin to the diagonal of rows 1..rows.
func (m *DenseMatrix) LoadGmin(gmin float64, rows int) {
	if rows > m.size {
		rows = m.size
	}
	for i := 0; i < rows; i++ {
		m.a[i][i] += gmin
	}
}

func (m *DenseMatrix) Clear() {
	for i := range m.a {
		clear(m.a[i])
	}
	clear(m.rhs)
}

// Solve factors a working copy so the stamped system stays printable.
func (m *DenseMatrix) Solve() error {
	n := m.size
	w := make([][]float64, n)
	for i := range w {
		w[i] = append([]float64(nil), m.a[i]...)
	}
	b := append([]float64(nil), m.rhs...)
	skipped := make([]bool, n)

	for k := 0; k < n; k++ {
		p := k
		best := math.Abs(w[k][k])
		for i := k + 1; i < n; i++ {
			if v := math.Abs(w[i][k]); v > best {
				best, p = v, i
			}
		}
		if p != k {
			w[k], w[p] = w[p], w[k]
			b[k], b[p] = b[p], b[k]
		}

		if best < m.PivotEpsilon {
			skipped[k] = true
			continue
		}

		for i := k + 1; i < n; i++ {
			f := w[i][k] / w[k][k]
			if f == 0 {
				continue
			}
			for j := k; j < n; j++ {
				w[i][j] -= f * w[k][j]
			}
			b[i] -= f * b[k]
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		if skipped[i] {
			continue
		}
		sum := b[i]
		for j := i + 1; j < n; j++ {
			sum -= w[i][j] * x[j]
		}
		x[i] = sum / w[i][i]
	}

	m.solution[0] = 0
	for i := 0; i < n; i++ {
		m.solution[i+1] = x[i]
		m.unresolved[i+1] = skipped[i]
	}

	return nil
}

// Solution is 1-based with index 0 standing for ground.
func (m *DenseMatrix) Solution() []float64 {
	return m.solution
}

// Unresolved reports whether unknown i hit a near-singular pivot in the last
// solve.
func (m *DenseMatrix) Unresolved(i int) bool {
	if i <= 0 || i > m.size {
		return false
	}
	return m.unresolved[i]
}

func (m *DenseMatrix) Destroy() {
	m.a = nil
	m.rhs = nil
	m.solution = nil
	m.unresolved = nil
	m.size = 0
}

// PrintSystem writes the assembled equations, one per row.
func (m *DenseMatrix) PrintSystem(w io.Writer) {
	fmt.Fprintf(w, "\nCircuit Equations (%dx%d):\n", m.size, m.size)
	fmt.Fprintln(w, "Node equations 1..n, followed by battery branch equations")

	for i := 1; i <= m.size; i++ {
		fmt.Fprintf(w, "Equation %d:", i)
		for j := 1; j <= m.size; j++ {
			if v := m.Element(i, j); v != 0 {
				fmt.Fprintf(w, "  %+g*x%d", v, j)
			}
		}
		fmt.Fprintf(w, " = %g\n", m.RHS(i))
	}
}
