package analysis

import (
	"fmt"

	"github.com/edp1096/toy-breadboard/pkg/circuit"
	"github.com/edp1096/toy-breadboard/pkg/device"
)

type OperatingPoint struct {
	BaseAnalysis
	Result circuit.Result
}

func NewOP() *OperatingPoint {
	return &OperatingPoint{
		BaseAnalysis: *NewBaseAnalysis(),
	}
}

func (op *OperatingPoint) Setup(sim *circuit.Simulation, names map[string]device.ComponentID) error {
	return op.setup(sim, names)
}

// Execute rebuilds the topology from the current wires and solves it once.
func (op *OperatingPoint) Execute() error {
	if op.Sim == nil {
		return fmt.Errorf("simulation not set")
	}

	op.Result = op.Sim.Rebuild()
	op.StorePoint(op.Result)

	if op.Result.Unknowns > 0 && !op.Result.Converged {
		return fmt.Errorf("operating point after %d passes: %w", op.Result.Passes, ErrNotConverged)
	}
	return nil
}
