package device

import (
	"github.com/edp1096/toy-breadboard/pkg/matrix"
)

// stampBattery adds the branch equation
//
//	V(+) - V(-) + R*I = V
//
// where I is the current leaving the positive terminal into the circuit.
func stampBattery(m matrix.DeviceMatrix, np, nn, bIdx int, voltage, resistance float64) {
	if np != 0 {
		m.AddElement(bIdx, np, 1)  // v+ coefficient
		m.AddElement(np, bIdx, -1) // I leaves through n+
	}
	if nn != 0 {
		m.AddElement(bIdx, nn, -1) // -v- coefficient
		m.AddElement(nn, bIdx, 1)  // I returns through n-
	}
	if resistance > 0 {
		m.AddElement(bIdx, bIdx, resistance)
	}

	m.AddRHS(bIdx, voltage)
}
