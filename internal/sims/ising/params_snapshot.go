package ising

import (
	"strconv"

	"ising-mc/internal/core"
)

// Parameters reports the model configuration and live observables for the HUD.
func (m *Model) Parameters() core.ParameterSnapshot {
	groups := []core.ParameterGroup{
		{
			Name: "Lattice",
			Params: []core.Parameter{
				int64Param("L", "Side", int64(m.cfg.L)),
				int64Param("seed", "Seed", m.cfg.Seed),
				{Key: "seq", Label: "Sequence", Type: core.ParamTypeInt, Value: strconv.FormatUint(m.cfg.Sequence, 10)},
				{Key: "schedule", Label: "Schedule", Type: core.ParamTypeString, Value: string(m.cfg.Schedule)},
			},
		},
		{
			Name: "Temperature",
			Params: []core.Parameter{
				floatParam("beta", "Beta", m.cfg.Beta),
				floatParam("beta_c", "Beta critical", BetaCritical),
			},
		},
		{
			Name: "Observables",
			Params: []core.Parameter{
				int64Param("step", "Step", m.steps),
				floatParam("m", "Magnetization", m.Magnetization()),
				floatParam("e", "Energy", m.Energy()),
				floatParam("acceptance", "Acceptance", m.AcceptanceRate()),
			},
		},
	}
	return core.ParameterSnapshot{Groups: groups}
}

// ParameterControls lists the values the HUD may adjust.
func (m *Model) ParameterControls() []core.ParameterControl {
	return []core.ParameterControl{
		{
			Key:    "beta",
			Label:  "Beta",
			Type:   core.ParamTypeFloat,
			Step:   0.005,
			Min:    0,
			Max:    2,
			HasMin: true,
			HasMax: true,
		},
	}
}

// SetFloatParameter updates a float parameter by key.
func (m *Model) SetFloatParameter(key string, value float64) bool {
	switch key {
	case "beta":
		for _, ctrl := range m.ParameterControls() {
			if ctrl.Key == key {
				value = ctrl.Clamp(value)
			}
		}
		return m.SetBeta(value) == nil
	default:
		return false
	}
}

func int64Param(key, label string, value int64) core.Parameter {
	return core.Parameter{
		Key:   key,
		Label: label,
		Type:  core.ParamTypeInt,
		Value: strconv.FormatInt(value, 10),
	}
}

func floatParam(key, label string, value float64) core.Parameter {
	return core.Parameter{
		Key:   key,
		Label: label,
		Type:  core.ParamTypeFloat,
		Value: strconv.FormatFloat(value, 'f', -1, 64),
	}
}
