package circuit

import (
	"math"

	"go.uber.org/zap"

	"github.com/edp1096/toy-breadboard/internal/consts"
	"github.com/edp1096/toy-breadboard/pkg/device"
	"github.com/edp1096/toy-breadboard/pkg/matrix"
)

// Result describes one solve. It is informational only.
type Result struct {
	Unknowns  int     // non-ground nodes + batteries
	Nodes     int     // non-ground nodes
	Batteries int     // battery branch unknowns
	Passes    int     // passes run, 0 when there was nothing to solve
	MaxDelta  float64 // largest node voltage change in the last pass
	Converged bool
}

// bound is a component resolved to matrix rows for one solve.
type bound struct {
	c      *device.Component
	rows   []int
	branch int
}

// solveLocked runs up to maxPasses assemble-solve-update passes. From the
// second pass on it stops once no node voltage moved by tolerance or more.
func (s *Simulation) solveLocked() Result {
	nodes := s.store.Nodes()

	row := make(map[device.NodeID]int, len(nodes))
	res := Result{}
	for _, n := range nodes {
		if n.IsGround {
			row[n.ID] = 0
			continue
		}
		res.Nodes++
		row[n.ID] = res.Nodes
	}

	var elements []bound
	for _, c := range s.store.Components() {
		b := bound{c: c, rows: make([]int, len(c.Terminals))}
		wired := true
		for k, id := range c.Terminals {
			r, ok := row[id]
			if !ok {
				wired = false
				break
			}
			b.rows[k] = r
		}
		if !wired {
			// Added after the last rebuild.
			continue
		}
		if c.Kind == device.Battery {
			res.Batteries++
			b.branch = res.Nodes + res.Batteries
		}
		elements = append(elements, b)
	}

	res.Unknowns = res.Nodes + res.Batteries
	if res.Unknowns == 0 {
		s.last = res
		return res
	}

	solver := matrix.New(s.backend, res.Unknowns)
	defer solver.Destroy()

	prev := make([]float64, len(nodes))
	for pass := 1; pass <= s.maxPasses; pass++ {
		for i, n := range nodes {
			prev[i] = n.Voltage
		}

		s.assemble(solver, elements, res.Nodes, &device.Status{Pass: pass, Gmin: consts.GMIN})
		if err := solver.Solve(); err != nil {
			s.logger.Warn("linear solve failed, keeping previous state",
				zap.Int("pass", pass),
				zap.Error(err),
			)
			break
		}

		res.MaxDelta = update(solver.Solution(), nodes, row, prev, elements)
		res.Passes = pass

		if pass > 1 && res.MaxDelta < s.tolerance {
			res.Converged = true
			break
		}
	}

	if s.systemOut != nil && res.Passes > 0 {
		solver.PrintSystem(s.systemOut)
	}

	if res.Converged {
		s.logger.Debug("solve converged",
			zap.Int("unknowns", res.Unknowns),
			zap.Int("passes", res.Passes),
			zap.Float64("maxDelta", res.MaxDelta),
		)
	} else {
		s.logger.Warn("solve stopped without converging",
			zap.Int("unknowns", res.Unknowns),
			zap.Int("passes", res.Passes),
			zap.Float64("maxDelta", res.MaxDelta),
		)
	}

	s.last = res
	return res
}

func (s *Simulation) assemble(m matrix.Solver, elements []bound, nodeRows int, status *device.Status) {
	m.Clear()
	m.LoadGmin(status.Gmin, nodeRows)
	for _, e := range elements {
		device.Load(m, e.c, e.rows, e.branch, status)
	}
}

// update writes a solution back and returns the largest node voltage change.
func update(x []float64, nodes []*Node, row map[device.NodeID]int, prev []float64, elements []bound) float64 {
	maxDelta := 0.0
	for i, n := range nodes {
		if n.IsGround {
			n.Voltage = 0
		} else {
			n.Voltage = x[row[n.ID]]
		}
		if d := math.Abs(n.Voltage - prev[i]); d > maxDelta {
			maxDelta = d
		}
	}

	v := make([]float64, 3)
	for _, e := range elements {
		for k, r := range e.rows {
			v[k] = x[r]
		}
		branchCurrent := 0.0
		if e.branch > 0 {
			branchCurrent = x[e.branch]
		}
		e.c.UpdateState(v[:len(e.rows)], branchCurrent)
	}

	return maxDelta
}
