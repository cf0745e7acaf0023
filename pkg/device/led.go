package device

import (
	"github.com/edp1096/toy-breadboard/internal/consts"
)

// ledModel switches between two resistances on the forward drop of the
// previous pass. The first pass of every solve starts from the off state.
func ledModel(c *Component, status *Status) Stamp {
	if status == nil || status.Pass <= 1 || c.Drop <= consts.LED_THRESHOLD {
		return Stamp{Resistance: consts.LED_R_OFF, Conductance: 1.0 / consts.LED_R_OFF}
	}
	return Stamp{Resistance: consts.LED_R_ON, Conductance: 1.0 / consts.LED_R_ON, Conducting: true}
}
