package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-breadboard/internal/config"
	"github.com/edp1096/toy-breadboard/pkg/circuit"
	"github.com/edp1096/toy-breadboard/pkg/device"
)

func dividerSim(t *testing.T, opts ...circuit.Option) (*circuit.Simulation, map[string]device.ComponentID) {
	t.Helper()
	sim := circuit.New(opts...)
	t.Cleanup(sim.Destroy)

	names := map[string]device.ComponentID{}
	for _, part := range []struct {
		name string
		kind device.Kind
	}{{"B1", device.Battery}, {"R1", device.Resistor}, {"R2", device.Resistor}} {
		id, err := sim.AddComponent(part.kind, device.Position{})
		require.NoError(t, err)
		names[part.name] = id
	}

	wire := func(a string, ai int, b string, bi int) {
		require.NoError(t, sim.Connect(
			circuit.Terminal{Component: names[a], Index: ai},
			circuit.Terminal{Component: names[b], Index: bi},
		))
	}
	wire("B1", 0, "R1", 0)
	wire("R1", 1, "R2", 0)
	wire("R2", 1, "B1", 1)

	return sim, names
}

func TestOperatingPoint(t *testing.T) {
	sim, names := dividerSim(t)

	op := NewOP()
	require.NoError(t, op.Setup(sim, names))
	require.NoError(t, op.Execute())

	res := op.GetResults()
	assert.InDelta(t, 9.0/200.1, res["I(R1)"][0], 1e-9)
	assert.InDelta(t, 9.0/200.1, res["I(B1)"][0], 1e-9)
	assert.InDelta(t, 900.0/200.1, res["V(R2)"][0], 1e-9)
	assert.Equal(t, []float64{2}, res["PASSES"])

	nodeKeys := 0
	for _, n := range sim.Nodes() {
		if _, ok := res["V("+n.Name()+")"]; ok {
			nodeKeys++
		}
		assert.NotContains(t, res, "V(gnd)")
	}
	assert.Equal(t, 2, nodeKeys)
	assert.True(t, op.Result.Converged)
}

func TestOperatingPointDefaultNames(t *testing.T) {
	sim, _ := dividerSim(t)

	op := NewOP()
	require.NoError(t, op.Setup(sim, nil))
	require.NoError(t, op.Execute())

	res := op.GetResults()
	assert.Contains(t, res, "I(battery0)")
	assert.Contains(t, res, "I(resistor1)")
	assert.Contains(t, res, "I(resistor2)")
}

func TestOperatingPointNotConverged(t *testing.T) {
	sim, names := dividerSim(t, circuit.WithSolverConfig(config.Solver{MaxPasses: 1}))

	op := NewOP()
	require.NoError(t, op.Setup(sim, names))
	err := op.Execute()

	assert.ErrorIs(t, err, ErrNotConverged)
	assert.Len(t, op.GetResults()["I(R1)"], 1)
}

func TestOperatingPointEmpty(t *testing.T) {
	sim := circuit.New()
	t.Cleanup(sim.Destroy)

	op := NewOP()
	require.NoError(t, op.Setup(sim, nil))
	require.NoError(t, op.Execute())
	assert.Equal(t, []float64{0}, op.GetResults()["PASSES"])
}

func TestSetupRequiresSimulation(t *testing.T) {
	assert.Error(t, NewOP().Setup(nil, nil))
	assert.Error(t, NewOP().Execute())
}

func TestDCSweepSingle(t *testing.T) {
	sim, names := dividerSim(t)

	dc, err := NewDCSweep([]string{"B1"}, []float64{0}, []float64{9}, []float64{3})
	require.NoError(t, err)
	require.NoError(t, dc.Setup(sim, names))
	require.NoError(t, dc.Execute())

	res := dc.GetResults()
	assert.Equal(t, []float64{0, 3, 6, 9}, res["SWEEP1"])
	require.Len(t, res["I(R1)"], 4)
	for i, v := range res["SWEEP1"] {
		assert.InDelta(t, v/200.1, res["I(R1)"][i], 1e-9)
	}
	assert.NotContains(t, res, "SWEEP2")

	// The source is back at its original value and the state matches it.
	b, ok := sim.Component(names["B1"])
	require.True(t, ok)
	assert.Equal(t, 9.0, b.Voltage)
	i, err := sim.Current(names["R1"])
	require.NoError(t, err)
	assert.InDelta(t, 9.0/200.1, i, 1e-9)
}

func TestDCSweepNested(t *testing.T) {
	sim, names := dividerSim(t)

	// A second battery in series with the first.
	b2, err := sim.AddComponent(device.Battery, device.Position{})
	require.NoError(t, err)
	names["B2"] = b2
	sim.SetConnections([]circuit.Connection{
		{A: circuit.Terminal{Component: names["B1"], Index: 0}, B: circuit.Terminal{Component: names["R1"], Index: 0}},
		{A: circuit.Terminal{Component: names["R1"], Index: 1}, B: circuit.Terminal{Component: names["R2"], Index: 0}},
		{A: circuit.Terminal{Component: names["R2"], Index: 1}, B: circuit.Terminal{Component: b2, Index: 0}},
		{A: circuit.Terminal{Component: b2, Index: 1}, B: circuit.Terminal{Component: names["B1"], Index: 1}},
	})

	dc, err := NewDCSweep([]string{"B1", "B2"}, []float64{0, -1}, []float64{2, 1}, []float64{1, 2})
	require.NoError(t, err)
	require.NoError(t, dc.Setup(sim, names))
	require.NoError(t, dc.Execute())

	res := dc.GetResults()
	assert.Equal(t, []float64{0, 0, 1, 1, 2, 2}, res["SWEEP1"])
	assert.Equal(t, []float64{-1, 1, -1, 1, -1, 1}, res["SWEEP2"])
	for k := range res["SWEEP1"] {
		// B2 is wired with its positive terminal toward R2, against B1.
		want := (res["SWEEP1"][k] - res["SWEEP2"][k]) / 200.2
		assert.InDelta(t, want, res["I(R1)"][k], 1e-9)
	}

	b, _ := sim.Component(b2)
	assert.Equal(t, 9.0, b.Voltage)
}

func TestDCSweepErrors(t *testing.T) {
	_, err := NewDCSweep([]string{"B1"}, []float64{0, 1}, []float64{9}, []float64{1})
	assert.Error(t, err)
	_, err = NewDCSweep(nil, nil, nil, nil)
	assert.Error(t, err)
	_, err = NewDCSweep([]string{"B1"}, []float64{0}, []float64{9}, []float64{0})
	assert.Error(t, err)
	_, err = NewDCSweep([]string{"B1"}, []float64{9}, []float64{0}, []float64{1})
	assert.Error(t, err)

	sim, names := dividerSim(t)
	dc, err := NewDCSweep([]string{"R1"}, []float64{0}, []float64{1}, []float64{1})
	require.NoError(t, err)
	assert.Error(t, dc.Setup(sim, names))

	dc, err = NewDCSweep([]string{"B9"}, []float64{0}, []float64{1}, []float64{1})
	require.NoError(t, err)
	assert.Error(t, dc.Setup(sim, names))
}

func TestSweepValuesHitStop(t *testing.T) {
	vals, err := sweepValues(0, 1, 0.1)
	require.NoError(t, err)
	assert.Len(t, vals, 11)
	assert.InDelta(t, 1.0, vals[10], 1e-12)
}
