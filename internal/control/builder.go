package control

import (
	"smarter-bulb/internal/domain"
)

// Settings field names as they appear in the control object.
const (
	FieldPower      = "power"
	FieldMode       = "mode"
	FieldBrightness = "brightness"
	FieldColorTemp  = "color_temp"
	FieldColor      = "color"
	FieldScene      = "scene"
	FieldCountdown  = "countdown"
)

// Tuya data point codes.
const (
	CodeSwitchLED  = "switch_led"
	CodeWorkMode   = "work_mode"
	CodeBrightness = "bright_value_v2"
	CodeTemp       = "temp_value_v2"
	CodeColour     = "colour_data_v2"
	CodeScene      = "scene_data_v2"
	CodeCountdown  = "countdown_1"
)

type mapping struct {
	field string
	code  string
	value func(s domain.Settings) (any, bool)
}

// commandTable fixes both the field to code mapping and the emission order.
// Some bulbs apply commands in array order, so mode precedes the values that
// depend on it.
var commandTable = []mapping{
	{FieldPower, CodeSwitchLED, func(s domain.Settings) (any, bool) {
		if s.Power == nil {
			return nil, false
		}
		return *s.Power, true
	}},
	{FieldMode, CodeWorkMode, func(s domain.Settings) (any, bool) {
		if s.Mode == nil {
			return nil, false
		}
		return string(*s.Mode), true
	}},
	{FieldBrightness, CodeBrightness, func(s domain.Settings) (any, bool) {
		if s.Brightness == nil {
			return nil, false
		}
		return *s.Brightness, true
	}},
	{FieldColorTemp, CodeTemp, func(s domain.Settings) (any, bool) {
		if s.ColorTemp == nil {
			return nil, false
		}
		return *s.ColorTemp, true
	}},
	{FieldColor, CodeColour, func(s domain.Settings) (any, bool) {
		if s.Color == nil {
			return nil, false
		}
		return domain.ColourData{H: s.Color.H, S: s.Color.S, V: s.Color.V}, true
	}},
	{FieldScene, CodeScene, func(s domain.Settings) (any, bool) {
		if s.Scene == nil {
			return nil, false
		}
		data := domain.SceneData{SceneNum: s.Scene.SceneNum}
		if s.Scene.SceneUnits != nil {
			units := append([]domain.SceneUnit{}, s.Scene.SceneUnits...)
			data.SceneUnits = &units
		}
		return data, true
	}},
	{FieldCountdown, CodeCountdown, func(s domain.Settings) (any, bool) {
		if s.Countdown == nil {
			return nil, false
		}
		return *s.Countdown, true
	}},
}

// Build maps validated settings to a command batch, one command per present
// field in table order. It has no side effects.
func Build(s domain.Settings) domain.CommandBatch {
	commands := make([]domain.Command, 0, len(commandTable))
	for _, m := range commandTable {
		if v, ok := m.value(s); ok {
			commands = append(commands, domain.Command{Code: m.code, Value: v})
		}
	}
	return domain.CommandBatch{Commands: commands}
}

// CodeFor returns the command code for a settings field.
func CodeFor(field string) (string, bool) {
	for _, m := range commandTable {
		if m.field == field {
			return m.code, true
		}
	}
	return "", false
}
