package ui

import (
	"math"
	"strconv"

	"ising-mc/internal/core"
)

const defaultFloatStep = 0.05

// nudge returns the value one step from current in direction (±1), clamped to
// the control bounds, and whether that differs from current.
func nudge(ctrl core.ParameterControl, current float64, direction int) (float64, bool) {
	if direction == 0 {
		return current, false
	}
	step := ctrl.Step
	if step <= 0 {
		step = defaultFloatStep
	}
	target := ctrl.Clamp(current + float64(direction)*step)
	if math.Abs(target-current) < 1e-9 {
		return current, false
	}
	return target, true
}

// formatControl renders v with enough decimals to show one step change.
func formatControl(ctrl core.ParameterControl, v float64) string {
	step := ctrl.Step
	if step <= 0 {
		step = defaultFloatStep
	}
	precision := 1
	switch {
	case step < 0.001:
		precision = 4
	case step < 0.01:
		precision = 3
	case step < 0.1:
		precision = 2
	}
	return strconv.FormatFloat(v, 'f', precision, 64)
}

// formatParam shortens float parameters for the read-only HUD lines.
func formatParam(p core.Parameter) string {
	if p.Type != core.ParamTypeFloat {
		return p.Value
	}
	v, err := strconv.ParseFloat(p.Value, 64)
	if err != nil {
		return p.Value
	}
	return strconv.FormatFloat(v, 'f', 5, 64)
}
