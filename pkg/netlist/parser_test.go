package netlist

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-breadboard/pkg/circuit"
	"github.com/edp1096/toy-breadboard/pkg/device"
)

const ledCircuit = `
title: led with switch
components:
  - {name: B1, kind: battery, value: "9V"}
  - {name: S1, kind: switch, open: false, x: 10, y: 20}
  - {name: D1, kind: led, rotation: 90}
  - {name: R1, kind: resistor, value: 1k}
wires:
  - [B1.0, S1.0]
  - [S1.1, D1.0]
  - [D1.1, R1.0]
  - [R1.1, B1.1]
sweep:
  - {source: B1, start: 0, stop: 9, step: 3}
`

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"100", 100},
		{"4.7k", 4700},
		{"1meg", 1e6},
		{"2.2K", 2200},
		{"10m", 0.01},
		{"9V", 9},
		{"330ohm", 330},
		{"1e3", 1000},
		{"-1.5", -1.5},
		{" 5u ", 5e-6},
		{"1G", 1e9},
	}
	for _, tt := range tests {
		got, err := ParseValue(tt.in)
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, math.Abs(tt.want)*1e-12+1e-18, tt.in)
	}

	for _, bad := range []string{"", "abc", "1x", "k1", "1.2.3"} {
		_, err := ParseValue(bad)
		assert.Error(t, err, bad)
	}
}

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(ledCircuit))
	require.NoError(t, err)

	assert.Equal(t, "led with switch", doc.Title)
	require.Len(t, doc.Components, 4)
	assert.Equal(t, "9V", doc.Components[0].Value)
	require.NotNil(t, doc.Components[1].Open)
	assert.False(t, *doc.Components[1].Open)
	assert.Nil(t, doc.Components[2].Open)
	assert.Equal(t, 90, doc.Components[2].Rotation)
	assert.Len(t, doc.Wires, 4)
	require.Len(t, doc.Sweep, 1)
	assert.Equal(t, 3.0, doc.Sweep[0].Step)
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"no components":  "title: empty\n",
		"unknown kind":   "components:\n  - {name: X1, kind: capacitor}\n",
		"missing name":   "components:\n  - {kind: resistor}\n",
		"dotted name":    "components:\n  - {name: R.1, kind: resistor}\n",
		"bad rotation":   "components:\n  - {name: R1, kind: resistor, rotation: 45}\n",
		"bad state":      "components:\n  - {name: W1, kind: spdt, state: 2}\n",
		"short wire":     "components:\n  - {name: R1, kind: resistor}\nwires:\n  - [R1.0]\n",
		"duplicate name": "components:\n  - {name: R1, kind: resistor}\n  - {name: R1, kind: bulb}\n",
		"bad sweep":      "components:\n  - {name: B1, kind: battery}\nsweep:\n  - {source: B1, start: 5, stop: 1, step: 1}\n",
		"not yaml":       "components: [",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src))
			assert.Error(t, err)
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "led.yaml")
	require.NoError(t, os.WriteFile(path, []byte(ledCircuit), 0o644))

	doc, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, doc.Components, 4)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	doc, err := Parse([]byte(ledCircuit))
	require.NoError(t, err)

	sim, names, err := Load(doc)
	require.NoError(t, err)
	t.Cleanup(sim.Destroy)

	require.Len(t, names, 4)
	assert.Len(t, sim.Connections(), 4)

	s1, ok := sim.Component(names["S1"])
	require.True(t, ok)
	assert.False(t, s1.IsOpen)
	assert.Equal(t, device.Position{X: 10, Y: 20}, s1.Position)

	d1, _ := sim.Component(names["D1"])
	assert.Equal(t, 90, d1.Rotation)

	r1, _ := sim.Component(names["R1"])
	assert.Equal(t, 1000.0, r1.Resistance)

	res := sim.Rebuild()
	require.True(t, res.Converged)
	i, err := sim.Current(names["R1"])
	require.NoError(t, err)
	assert.InDelta(t, 9.0/1090.101, i, 1e-9)
}

func TestLoadRejects(t *testing.T) {
	tests := map[string]string{
		"resistance on switch": "components:\n  - {name: S1, kind: switch, value: 10}\n",
		"open on resistor":     "components:\n  - {name: R1, kind: resistor, open: true}\n",
		"state on resistor":    "components:\n  - {name: R1, kind: resistor, state: 1}\n",
		"pot out of range":     "components:\n  - {name: P1, kind: potentiometer, value: 1k}\n",
		"bad value":            "components:\n  - {name: R1, kind: resistor, value: lots}\n",
		"unknown wire end":     "components:\n  - {name: R1, kind: resistor}\nwires:\n  - [R1.0, R2.1]\n",
		"bad terminal index":   "components:\n  - {name: R1, kind: resistor}\n  - {name: R2, kind: resistor}\nwires:\n  - [R1.2, R2.1]\n",
		"no index":             "components:\n  - {name: R1, kind: resistor}\nwires:\n  - [R1, R1.1]\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			doc, err := Parse([]byte(src))
			require.NoError(t, err)
			_, _, err = Load(doc)
			assert.Error(t, err)
		})
	}
}

func TestLoadWrapsCircuitErrors(t *testing.T) {
	doc, err := Parse([]byte("components:\n  - {name: S1, kind: switch, value: \"10\"}\n"))
	require.NoError(t, err)

	_, _, err = Load(doc)
	assert.ErrorIs(t, err, circuit.ErrInvalidProperty)
}

func TestParseTerminal(t *testing.T) {
	names := map[string]device.ComponentID{"SW.A": 3, "R1": 0}

	term, err := ParseTerminal(" R1.1 ", names)
	require.NoError(t, err)
	assert.Equal(t, circuit.Terminal{Component: 0, Index: 1}, term)

	term, err = ParseTerminal("SW.A.2", names)
	require.NoError(t, err)
	assert.Equal(t, circuit.Terminal{Component: 3, Index: 2}, term)

	for _, bad := range []string{"R1", ".1", "R1.", "R1.x", "R9.0"} {
		_, err := ParseTerminal(bad, names)
		assert.Error(t, err, bad)
	}
}
