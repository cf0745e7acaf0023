package device

import (
	"fmt"
	"strings"

	"github.com/edp1096/toy-breadboard/internal/consts"
	"github.com/edp1096/toy-breadboard/pkg/matrix"
)

type ComponentID int

type NodeID int

// NoNode marks a terminal that has not been through a rebuild yet.
const NoNode NodeID = -1

type Kind int

const (
	Resistor Kind = iota
	Battery
	Switch
	Pushbutton
	Bulb
	LED
	Voltmeter
	Ammeter
	Buzzer
	LDR
	Potentiometer
	Motor
	SPDT
	Joint
	numKinds
)

var kindNames = [numKinds]string{
	Resistor:      "resistor",
	Battery:       "battery",
	Switch:        "switch",
	Pushbutton:    "pushbutton",
	Bulb:          "bulb",
	LED:           "led",
	Voltmeter:     "voltmeter",
	Ammeter:       "ammeter",
	Buzzer:        "buzzer",
	LDR:           "ldr",
	Potentiometer: "potentiometer",
	Motor:         "motor",
	SPDT:          "spdt",
	Joint:         "joint",
}

func (k Kind) Valid() bool { return k >= 0 && k < numKinds }

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown component kind %q", name)
}

// TerminalCount is 3 for the spdt (common, output 1, output 2) and 2 for
// everything else.
func (k Kind) TerminalCount() int {
	if k == SPDT {
		return 3
	}
	return 2
}

// Adjustable reports the resistance range a user may dial in.
func (k Kind) Adjustable() (lo, hi float64, ok bool) {
	switch k {
	case LDR, Potentiometer:
		return 0, 500, true
	}
	return 0, 0, false
}

type Position struct {
	X float64
	Y float64
}

type Component struct {
	ID         ComponentID
	Kind       Kind
	Terminals  []NodeID
	Resistance float64 // ohm
	Voltage    float64 // battery source voltage
	IsOpen     bool    // switch, pushbutton
	SpdtState  int     // 0 or 1, selects the output tied to the common terminal

	// Solver outputs
	Current   float64 // A, terminal 0 to terminal 1 (battery: delivered current)
	Drop      float64 // V(terminal 0) - V(active terminal) after the last pass
	Effective float64 // resistance stamped in the last pass

	// Presentation only
	Position Position
	Rotation int
}

// New returns a component with the defaults of its kind.
func New(id ComponentID, kind Kind, pos Position) (*Component, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("component %d: unknown kind %d", id, int(kind))
	}

	c := &Component{
		ID:        id,
		Kind:      kind,
		Terminals: make([]NodeID, kind.TerminalCount()),
		Position:  pos,
	}
	for i := range c.Terminals {
		c.Terminals[i] = NoNode
	}
	c.setDefaultParameters()
	c.Effective = c.Resistance

	return c, nil
}

func (c *Component) setDefaultParameters() {
	switch c.Kind {
	case Battery:
		c.Voltage = 9
		c.Resistance = 0.1 // Internal resistance
	case Bulb:
		c.Resistance = 50
	case Switch:
		c.Resistance = consts.R_CLOSED
		c.IsOpen = true
	case Resistor:
		c.Resistance = 100
	case Voltmeter:
		c.Resistance = consts.R_OPEN
	case Ammeter:
		c.Resistance = consts.R_CLOSED
	case LED:
		c.Resistance = 10
	case Pushbutton:
		c.Resistance = consts.R_OPEN
		c.IsOpen = true
	case Buzzer:
		c.Resistance = 100
	case LDR, Potentiometer:
		c.Resistance = 250
	case Motor:
		c.Resistance = 20
	case SPDT:
		c.Resistance = consts.R_CLOSED
	case Joint:
		c.Resistance = consts.R_CLOSED
	}
}

// Clone returns a copy that shares no slices with c.
func (c *Component) Clone() Component {
	cp := *c
	cp.Terminals = append([]NodeID(nil), c.Terminals...)
	return cp
}

type Status struct {
	Pass int // 1-based pass of the current solve
	Gmin float64
}

// Stamp is what the per-kind model decides for one pass.
type Stamp struct {
	Resistance  float64
	Conductance float64
	Conducting  bool
}

// Model evaluates the two-terminal equivalent of c for this pass. Batteries
// and spdts are not two-terminal conductances and report their contact or
// internal resistance only.
func Model(c *Component, status *Status) Stamp {
	switch c.Kind {
	case Switch, Pushbutton:
		return switchModel(c.IsOpen)
	case SPDT:
		return switchModel(false)
	case LED:
		return ledModel(c, status)
	case Battery:
		return Stamp{Resistance: c.Resistance, Conducting: true}
	default:
		return resistiveModel(c.Resistance)
	}
}

// Load stamps c into m. nodes holds the matrix row of every terminal, 0 for
// ground; branch is the auxiliary row of a battery and ignored otherwise.
func Load(m matrix.DeviceMatrix, c *Component, nodes []int, branch int, status *Status) Stamp {
	st := Model(c, status)

	switch c.Kind {
	case Battery:
		stampBattery(m, nodes[0], nodes[1], branch, c.Voltage, c.Resistance)
	case SPDT:
		stampSpdt(m, nodes, c.SpdtState)
	default:
		stampConductance(m, nodes[0], nodes[1], st.Conductance)
	}

	c.Effective = st.Resistance
	return st
}

// UpdateState takes the terminal voltages of the finished pass and, for a
// battery, its branch current.
func (c *Component) UpdateState(v []float64, branchCurrent float64) {
	switch c.Kind {
	case Battery:
		c.Drop = v[0] - v[1]
		c.Current = branchCurrent
	case SPDT:
		active := spdtActiveTerminal(c.SpdtState)
		c.Drop = v[0] - v[active]
		c.Current = c.Drop / consts.R_CLOSED
	default:
		c.Drop = v[0] - v[1]
		c.Current = c.Drop / c.Effective
	}
}

// Power dissipated (or delivered, for a battery) at the last solve.
func (c *Component) Power() float64 {
	if c.Kind == Battery {
		return c.Voltage * c.Current
	}
	return c.Drop * c.Current
}
