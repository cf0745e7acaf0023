package matrix

import "io"

// DeviceMatrix is what a component sees while stamping. Indices are 1-based,
// index 0 is ground and must not be passed in.
type DeviceMatrix interface {
	AddElement(i, j int, value float64)
	AddRHS(i int, value float64)
}

// Solver is a linear system backend owned by one solve call.
type Solver interface {
	DeviceMatrix
	Size() int
	Clear()
	LoadGmin(gmin float64, rows int)
	Solve() error
	Solution() []float64
	PrintSystem(w io.Writer)
	Destroy()
}

type Backend string

const (
	BackendDense  Backend = "dense"
	BackendSparse Backend = "sparse"
)

// New returns a solver of the requested backend. Unknown backends and empty
// systems get the dense solver.
func New(backend Backend, size int) Solver {
	if backend == BackendSparse && size > 0 {
		if m, err := NewSparseMatrix(size); err == nil {
			return m
		}
	}
	return NewDenseMatrix(size)
}
