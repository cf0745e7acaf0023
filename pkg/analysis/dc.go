package analysis

import (
	"fmt"
	"math"

	"github.com/edp1096/toy-breadboard/pkg/circuit"
	"github.com/edp1096/toy-breadboard/pkg/device"
)

type DCSweep struct {
	BaseAnalysis
	sourceNames []string    // Names of batteries to sweep
	startVals   []float64   // Start values for each source
	stopVals    []float64   // Stop values for each source
	increments  []float64   // Incremental value of steps for each source
	sweepVals   [][]float64 // Generated sweep values for each source
	sourceIDs   []device.ComponentID
	origVals    []float64 // Original values of the sources

	Unconverged int // points that hit the pass cap
}

func NewDCSweep(sources []string, starts, stops, increments []float64) (*DCSweep, error) {
	if len(sources) != len(starts) || len(sources) != len(stops) || len(sources) != len(increments) {
		return nil, fmt.Errorf("inconsistent parameter lengths")
	}
	if len(sources) < 1 || len(sources) > 2 {
		return nil, fmt.Errorf("unsupported number of sweep sources: %d", len(sources))
	}

	dc := &DCSweep{
		BaseAnalysis: *NewBaseAnalysis(),
		sourceNames:  sources,
		startVals:    starts,
		stopVals:     stops,
		increments:   increments,
		sweepVals:    make([][]float64, len(sources)),
		sourceIDs:    make([]device.ComponentID, len(sources)),
		origVals:     make([]float64, len(sources)),
	}

	for i := range sources {
		sweep, err := sweepValues(starts[i], stops[i], increments[i])
		if err != nil {
			return nil, fmt.Errorf("sweep of %s: %w", sources[i], err)
		}
		dc.sweepVals[i] = sweep
	}

	return dc, nil
}

// sweepValues steps by index so that the stop value is hit without
// accumulated rounding.
func sweepValues(start, stop, inc float64) ([]float64, error) {
	if inc <= 0 || math.IsNaN(inc) || math.IsInf(inc, 0) {
		return nil, fmt.Errorf("increment must be positive, got %g", inc)
	}
	if stop < start {
		return nil, fmt.Errorf("stop %g is below start %g", stop, start)
	}

	steps := int(math.Floor((stop-start)/inc + 1e-9))
	sweep := make([]float64, 0, steps+1)
	for i := 0; i <= steps; i++ {
		sweep = append(sweep, start+float64(i)*inc)
	}
	return sweep, nil
}

func (dc *DCSweep) Setup(sim *circuit.Simulation, names map[string]device.ComponentID) error {
	err := dc.setup(sim, names)
	if err != nil {
		return err
	}

	// Store original source values
	for i, name := range dc.sourceNames {
		id, ok := dc.Names[name]
		if !ok {
			return fmt.Errorf("source %s not found", name)
		}
		c, ok := sim.Component(id)
		if !ok || c.Kind != device.Battery {
			return fmt.Errorf("source %s is not a battery", name)
		}
		dc.sourceIDs[i] = id
		dc.origVals[i] = c.Voltage
	}

	return nil
}

// SweepValues returns the generated values of source i.
func (dc *DCSweep) SweepValues(i int) []float64 {
	return dc.sweepVals[i]
}

// Execute rebuilds once and then re-solves the fixed topology for every
// sweep point. Source voltages are restored afterwards.
func (dc *DCSweep) Execute() (err error) {
	if dc.Sim == nil {
		return fmt.Errorf("simulation not set")
	}

	defer func() {
		for i, id := range dc.sourceIDs {
			if rerr := dc.Sim.SetSourceVoltage(id, dc.origVals[i]); rerr != nil && err == nil {
				err = fmt.Errorf("restoring %s: %w", dc.sourceNames[i], rerr)
			}
		}
		dc.Sim.Solve()
	}()

	dc.Sim.Rebuild()

	if len(dc.sourceNames) == 1 {
		err = dc.singleSweep()
	} else {
		err = dc.nestedSweep()
	}
	if err != nil {
		return err
	}

	if dc.Unconverged > 0 {
		return fmt.Errorf("%d of %d sweep points: %w", dc.Unconverged, len(dc.results["SWEEP1"]), ErrNotConverged)
	}
	return nil
}

func (dc *DCSweep) solveAt(vals ...float64) error {
	for i, v := range vals {
		err := dc.Sim.SetSourceVoltage(dc.sourceIDs[i], v)
		if err != nil {
			return fmt.Errorf("setting %s=%g: %w", dc.sourceNames[i], v, err)
		}
	}

	res := dc.Sim.Solve()
	if res.Unknowns > 0 && !res.Converged {
		dc.Unconverged++
	}

	dc.appendResult("SWEEP1", vals[0])
	if len(vals) > 1 {
		dc.appendResult("SWEEP2", vals[1])
	}
	dc.StorePoint(res)
	return nil
}

func (dc *DCSweep) singleSweep() error {
	for _, val := range dc.sweepVals[0] {
		if err := dc.solveAt(val); err != nil {
			return err
		}
	}
	return nil
}

func (dc *DCSweep) nestedSweep() error {
	for _, val1 := range dc.sweepVals[0] {
		for _, val2 := range dc.sweepVals[1] {
			if err := dc.solveAt(val1, val2); err != nil {
				return err
			}
		}
	}
	return nil
}
