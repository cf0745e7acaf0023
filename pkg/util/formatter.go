package util

import (
	"fmt"
	"math"
	"strings"
)

func FormatValueFactor(value float64, unit string) string {
	absValue := math.Abs(value)
	switch {
	case absValue >= 1e6:
		return fmt.Sprintf("%.3f M%s", value/1e6, unit)
	case absValue >= 1e3:
		return fmt.Sprintf("%.3f k%s", value/1e3, unit)
	case absValue >= 1:
		return fmt.Sprintf("%.3f %s", value, unit)
	case absValue >= 1e-3:
		return fmt.Sprintf("%.3f m%s", value*1e3, unit)
	case absValue >= 1e-6:
		return fmt.Sprintf("%.3f u%s", value*1e6, unit)
	case absValue >= 1e-9:
		return fmt.Sprintf("%.3f n%s", value*1e9, unit)
	case absValue >= 1e-12:
		return fmt.Sprintf("%.3f p%s", value*1e12, unit)
	case absValue == 0:
		return fmt.Sprintf("%.3f %s", value, unit)
	default:
		return fmt.Sprintf("%.3e %s", value, unit)
	}
}

// UnitOf picks the unit of a result key such as "V(R1)" or "I(B1)".
func UnitOf(key string) string {
	switch {
	case strings.HasPrefix(key, "V("):
		return "V"
	case strings.HasPrefix(key, "I("):
		return "A"
	case strings.HasPrefix(key, "SWEEP"):
		return "V"
	}
	return ""
}

// FormatResult renders one result value, e.g. "I(R1) = 44.978 mA".
func FormatResult(key string, value float64) string {
	unit := UnitOf(key)
	if unit == "" {
		return fmt.Sprintf("%s = %g", key, value)
	}
	return fmt.Sprintf("%s = %s", key, FormatValueFactor(value, unit))
}
