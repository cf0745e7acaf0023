package analysis

import (
	"errors"
	"fmt"

	"github.com/edp1096/toy-breadboard/pkg/circuit"
	"github.com/edp1096/toy-breadboard/pkg/device"
)

// ErrNotConverged is returned after the results were stored when at least one
// solve hit the pass cap.
var ErrNotConverged = errors.New("analysis: solve did not converge")

type Analysis interface {
	Setup(sim *circuit.Simulation, names map[string]device.ComponentID) error
	Execute() error
	GetResults() map[string][]float64
}

type BaseAnalysis struct {
	Sim     *circuit.Simulation
	Names   map[string]device.ComponentID
	results map[string][]float64 // key: variable name, value: result by sweep point
}

func NewBaseAnalysis() *BaseAnalysis {
	return &BaseAnalysis{results: make(map[string][]float64)}
}

// setup binds the simulation. Without names every component is labelled by
// kind and id, e.g. "resistor3".
func (a *BaseAnalysis) setup(sim *circuit.Simulation, names map[string]device.ComponentID) error {
	if sim == nil {
		return fmt.Errorf("simulation not set")
	}
	a.Sim = sim

	if names == nil {
		names = make(map[string]device.ComponentID)
		for _, c := range sim.Components() {
			names[fmt.Sprintf("%s%d", c.Kind, c.ID)] = c.ID
		}
	}
	a.Names = names
	return nil
}

func (a *BaseAnalysis) appendResult(name string, value float64) {
	if _, exists := a.results[name]; !exists {
		a.results[name] = make([]float64, 0)
	}
	a.results[name] = append(a.results[name], value)
}

// StorePoint records every non-ground node voltage as V(node), and the drop
// and current of every named component as V(name) and I(name).
func (a *BaseAnalysis) StorePoint(res circuit.Result) {
	for _, n := range a.Sim.Nodes() {
		if n.IsGround {
			continue
		}
		a.appendResult(fmt.Sprintf("V(%s)", n.Name()), n.Voltage)
	}

	for name, id := range a.Names {
		c, ok := a.Sim.Component(id)
		if !ok {
			continue
		}
		a.appendResult(fmt.Sprintf("V(%s)", name), c.Drop)
		a.appendResult(fmt.Sprintf("I(%s)", name), c.Current)
	}

	a.appendResult("PASSES", float64(res.Passes))
}

func (a *BaseAnalysis) GetResults() map[string][]float64 {
	return a.results
}
