package domain

type Mode string

const (
	ModeWhite  Mode = "white"
	ModeColour Mode = "colour"
	ModeScene  Mode = "scene"
	ModeMusic  Mode = "music"
)

type ChangeMode string

const (
	ChangeModeStatic   ChangeMode = "static"
	ChangeModeJump     ChangeMode = "jump"
	ChangeModeGradient ChangeMode = "gradient"
)

// Settings is the sparse set of bulb attributes requested in one command.
// A nil field was not requested.
type Settings struct {
	Power      *bool  `json:"power,omitempty"`
	Brightness *int   `json:"brightness,omitempty"`
	ColorTemp  *int   `json:"color_temp,omitempty"`
	Color      *Color `json:"color,omitempty"`
	Mode       *Mode  `json:"mode,omitempty"`
	Scene      *Scene `json:"scene,omitempty"`
	Countdown  *int   `json:"countdown,omitempty"`
}

type Color struct {
	H int `json:"h"`
	S int `json:"s"`
	V int `json:"v"`
}

// Scene selects a built-in scene and optionally overrides its steps.
// SceneUnits is nil when the caller did not send any.
type Scene struct {
	SceneNum   int         `json:"scene_num"`
	SceneUnits []SceneUnit `json:"scene_units,omitempty"`
}

// SceneUnit is one step of a scene. Only the fields declared here reach the
// device; any other keys in the input are dropped.
type SceneUnit struct {
	UnitChangeMode       ChangeMode `json:"unit_change_mode"`
	UnitSwitchDuration   int        `json:"unit_switch_duration"`
	UnitGradientDuration int        `json:"unit_gradient_duration"`
	Bright               int        `json:"bright"`
	Temperature          *int       `json:"temperature,omitempty"`
	H                    int        `json:"h"`
	S                    int        `json:"s"`
	V                    int        `json:"v"`
}

// IsEmpty reports whether no attribute was requested.
func (s Settings) IsEmpty() bool {
	return s.Power == nil && s.Brightness == nil && s.ColorTemp == nil &&
		s.Color == nil && s.Mode == nil && s.Scene == nil && s.Countdown == nil
}
