package device

import (
	"github.com/edp1096/toy-breadboard/internal/consts"
	"github.com/edp1096/toy-breadboard/pkg/matrix"
)

// clampResistance keeps 1/R finite.
func clampResistance(r float64) float64 {
	if r < consts.RMIN {
		return consts.RMIN
	}
	return r
}

func resistiveModel(r float64) Stamp {
	r = clampResistance(r)
	return Stamp{Resistance: r, Conductance: 1.0 / r, Conducting: true}
}

// stampConductance loads g between n1 and n2. Ground sides (0) are dropped.
func stampConductance(m matrix.DeviceMatrix, n1, n2 int, g float64) {
	if n1 != 0 {
		m.AddElement(n1, n1, g)
		if n2 != 0 {
			m.AddElement(n1, n2, -g)
		}
	}
	if n2 != 0 {
		if n1 != 0 {
			m.AddElement(n2, n1, -g)
		}
		m.AddElement(n2, n2, g)
	}
}
