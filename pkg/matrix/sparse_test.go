package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	divR1  = 1000.0
	divR2  = 2000.0
	divVin = 5.0
)

// stampDivider loads node 1 as the source node, node 2 as the divider tap and
// row 3 as the source branch.
func stampDivider(m Solver) {
	g1, g2 := 1/divR1, 1/divR2
	m.AddElement(1, 1, g1)
	m.AddElement(1, 2, -g1)
	m.AddElement(2, 1, -g1)
	m.AddElement(2, 2, g1+g2)
	m.AddElement(1, 3, -1)
	m.AddElement(3, 1, 1)
	m.AddRHS(3, divVin)
}

func assertDivider(t *testing.T, x []float64) {
	t.Helper()
	assert.InDelta(t, divVin, x[1], 1e-9)
	assert.InDelta(t, divVin*divR2/(divR1+divR2), x[2], 1e-9)
	assert.InDelta(t, divVin/(divR1+divR2), x[3], 1e-12)
}

func TestSparseVoltageDivider(t *testing.T) {
	m, err := NewSparseMatrix(3)
	require.NoError(t, err)
	defer m.Destroy()

	stampDivider(m)
	require.NoError(t, m.Solve())
	assertDivider(t, m.Solution())
}

func TestSparseRestampAfterFactor(t *testing.T) {
	m, err := NewSparseMatrix(3)
	require.NoError(t, err)
	defer m.Destroy()

	for pass := 1; pass <= 3; pass++ {
		m.Clear()
		m.LoadGmin(1e-12, 2)
		require.NotPanics(t, func() { stampDivider(m) }, "pass %d", pass)
		require.NoError(t, m.Solve())
		assert.False(t, m.FellBack, "pass %d", pass)
		assertDivider(t, m.Solution())
	}
}

func TestSparseSkipsTinyPivot(t *testing.T) {
	m, err := NewSparseMatrix(2)
	require.NoError(t, err)
	defer m.Destroy()

	// The sparse factorization accepts a 1e-12 pivot, the dense one skips it.
	m.AddElement(1, 1, 1e-12)
	m.AddRHS(1, 1)
	m.AddElement(2, 2, 4)
	m.AddRHS(2, 8)

	require.NoError(t, m.Solve())
	assert.True(t, m.FellBack)

	x := m.Solution()
	assert.Equal(t, 0.0, x[1])
	assert.InDelta(t, 2.0, x[2], 1e-12)
}

func TestSparseFallsBackOnSingular(t *testing.T) {
	m, err := NewSparseMatrix(2)
	require.NoError(t, err)
	defer m.Destroy()

	m.AddElement(1, 1, 2)
	m.AddRHS(1, 4)

	require.NoError(t, m.Solve())
	assert.True(t, m.FellBack)

	x := m.Solution()
	assert.InDelta(t, 2.0, x[1], 1e-12)
	assert.Equal(t, 0.0, x[2])
}

func TestNewPicksBackend(t *testing.T) {
	s := New(BackendSparse, 2)
	_, ok := s.(*SparseMatrix)
	assert.True(t, ok)
	s.Destroy()

	_, ok = New(BackendSparse, 0).(*DenseMatrix)
	assert.True(t, ok, "empty systems cannot be created sparse")

	_, ok = New("bogus", 2).(*DenseMatrix)
	assert.True(t, ok)
}
