package device

import (
	"github.com/edp1096/toy-breadboard/internal/consts"
	"github.com/edp1096/toy-breadboard/pkg/matrix"
)

func switchModel(open bool) Stamp {
	if open {
		return Stamp{Resistance: consts.R_OPEN, Conductance: 1.0 / consts.R_OPEN}
	}
	return Stamp{Resistance: consts.R_CLOSED, Conductance: 1.0 / consts.R_CLOSED, Conducting: true}
}

func spdtActiveTerminal(state int) int {
	if state == 1 {
		return 2
	}
	return 1
}

// stampSpdt ties the common terminal to the selected output through a closed
// contact and to the other output through an open one.
func stampSpdt(m matrix.DeviceMatrix, nodes []int, state int) {
	common := nodes[0]
	for out := 1; out <= 2; out++ {
		st := switchModel(out != spdtActiveTerminal(state))
		stampConductance(m, common, nodes[out], st.Conductance)
	}
}
