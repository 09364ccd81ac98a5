package control_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smarter-bulb/internal/control"
	"smarter-bulb/internal/domain"
)

func requireValidationError(t *testing.T, err error) *domain.ValidationError {
	t.Helper()
	require.Error(t, err)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %T: %v", err, err)
	return verr
}

func TestParseSettings_BrightnessBounds(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{`{"brightness": 10}`, true},
		{`{"brightness": 1000}`, true},
		{`{"brightness": 9}`, false},
		{`{"brightness": 1001}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			s, err := control.ParseSettings([]byte(tt.input))
			if tt.valid {
				require.NoError(t, err)
				require.NotNil(t, s.Brightness)
				return
			}
			verr := requireValidationError(t, err)
			assert.True(t, verr.HasField("brightness"))
		})
	}
}

func TestParseSettings_ColorRequiresHSV(t *testing.T) {
	inputs := []string{
		`{"color": {"s": 1000, "v": 1000}}`,
		`{"color": {"h": 10, "v": 1000}}`,
		`{"color": {"h": 10, "s": 1000}}`,
		`{"color": {}}`,
		`{"color": {"h": null, "s": 1, "v": 1}}`,
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := control.ParseSettings([]byte(in))
			verr := requireValidationError(t, err)
			assert.True(t, verr.HasField("color"))
		})
	}
}

func TestParseSettings_SceneRequiresSceneNum(t *testing.T) {
	_, err := control.ParseSettings([]byte(`{"scene": {"scene_units": []}}`))
	verr := requireValidationError(t, err)
	assert.Equal(t, []domain.FieldError{{Field: "scene", Reason: `missing required field "scene_num"`}}, verr.Fields)
}

func TestParseSettings_SceneUnitRequiredFields(t *testing.T) {
	in := `{"scene": {"scene_num": 1, "scene_units": [
		{"unit_change_mode":"static","unit_switch_duration":1,"unit_gradient_duration":1,"bright":1,"h":1,"s":1,"v":1},
		{"unit_change_mode":"static","unit_switch_duration":1,"bright":1,"h":1,"s":1}
	]}}`

	_, err := control.ParseSettings([]byte(in))
	verr := requireValidationError(t, err)

	assert.Equal(t, []domain.FieldError{
		{Field: "scene.scene_units[1]", Reason: `missing required field "unit_gradient_duration"`},
		{Field: "scene.scene_units[1]", Reason: `missing required field "v"`},
	}, verr.Fields)
}

func TestParseSettings_TemperatureOptionalInUnit(t *testing.T) {
	in := `{"scene": {"scene_num": 8, "scene_units": [
		{"unit_change_mode":"jump","unit_switch_duration":0,"unit_gradient_duration":100,"bright":0,"h":360,"s":0,"v":0}
	]}}`

	s, err := control.ParseSettings([]byte(in))
	require.NoError(t, err)
	require.Len(t, s.Scene.SceneUnits, 1)
	assert.Nil(t, s.Scene.SceneUnits[0].Temperature)
}

func TestParseSettings_ReportsEveryViolation(t *testing.T) {
	in := `{
		"power": "yes",
		"brightness": 2000,
		"color_temp": -1,
		"color": {"h": 361, "s": 1000},
		"mode": "disco",
		"scene": {"scene_num": 0},
		"countdown": 86401
	}`

	_, err := control.ParseSettings([]byte(in))
	verr := requireValidationError(t, err)

	for _, field := range []string{"power", "brightness", "color_temp", "color", "mode", "scene", "countdown"} {
		assert.True(t, verr.HasField(field), "missing error for %s", field)
	}
	assert.Len(t, verr.Fields, 8)
}

func TestParseSettings_WrongTypes(t *testing.T) {
	tests := []struct {
		input  string
		field  string
		reason string
	}{
		{`{"brightness": 50.5}`, "brightness", "expected integer, got 50.5"},
		{`{"brightness": "500"}`, "brightness", "expected integer, got string"},
		{`{"power": 1}`, "power", "expected boolean, got number"},
		{`{"mode": 1}`, "mode", "expected string, got number"},
		{`{"color": [1,2,3]}`, "color", "expected object, got array"},
		{`{"scene": {"scene_num": 1, "scene_units": {}}}`, "scene.scene_units", "expected array, got object"},
		{`[]`, "settings", "expected object, got array"},
		{`null`, "settings", "expected object, got null"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := control.ParseSettings([]byte(tt.input))
			verr := requireValidationError(t, err)
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
			assert.Equal(t, tt.reason, verr.Fields[0].Reason)
		})
	}
}

func TestParseSettings_NoClampingOrDefaults(t *testing.T) {
	s, err := control.ParseSettings([]byte(`{"power": true}`))
	require.NoError(t, err)
	assert.Nil(t, s.Brightness)
	assert.Nil(t, s.Mode)

	_, err = control.ParseSettings([]byte(`{"countdown": 90000}`))
	verr := requireValidationError(t, err)
	assert.Equal(t, "must be between 0 and 86400, got 90000", verr.Fields[0].Reason)
}

func TestParseSettings_NullMeansAbsent(t *testing.T) {
	s, err := control.ParseSettings([]byte(`{"power": true, "scene": null, "brightness": null}`))
	require.NoError(t, err)
	assert.Nil(t, s.Scene)
	assert.Nil(t, s.Brightness)
	assert.Equal(t, []string{control.CodeSwitchLED}, control.Build(s).Codes())
}

func TestParseSettings_UnknownFieldsIgnored(t *testing.T) {
	s, err := control.ParseSettings([]byte(`{"power": false, "volume": 11}`))
	require.NoError(t, err)
	assert.Equal(t, []string{control.CodeSwitchLED}, control.Build(s).Codes())
}

func TestParseSettings_MalformedJSON(t *testing.T) {
	_, err := control.ParseSettings([]byte(`{"power": tru`))
	verr := requireValidationError(t, err)
	assert.Equal(t, "settings", verr.Fields[0].Field)

	_, err = control.ParseSettings([]byte(`{} {}`))
	requireValidationError(t, err)
}

func TestValidateValue_AcceptsDecodedFloats(t *testing.T) {
	var v any
	require.NoError(t, json.Unmarshal([]byte(`{"brightness": 500, "color": {"h": 1, "s": 2, "v": 3}}`), &v))
	assert.NoError(t, control.ValidateValue(v))

	require.NoError(t, json.Unmarshal([]byte(`{"brightness": 5}`), &v))
	requireValidationError(t, control.ValidateValue(v))
}

func TestValidate_TypedSettings(t *testing.T) {
	brightness := 9
	mode := domain.Mode("party")
	s := domain.Settings{Brightness: &brightness, Mode: &mode}

	verr := requireValidationError(t, control.Validate(s))
	assert.True(t, verr.HasField("brightness"))
	assert.True(t, verr.HasField("mode"))

	brightness = 10
	mode = domain.ModeWhite
	assert.NoError(t, control.Validate(s))
}

func TestParseSettings_KeysAreCaseSensitive(t *testing.T) {
	s, err := control.ParseSettings([]byte(`{"Brightness": 5000}`))
	require.NoError(t, err)
	assert.Nil(t, s.Brightness)
	assert.Empty(t, control.Build(s).Commands)

	s, err = control.ParseSettings([]byte(`{"brightness": 500, "BRIGHTNESS": 5}`))
	require.NoError(t, err)
	require.NotNil(t, s.Brightness)
	assert.Equal(t, 500, *s.Brightness)

	s, err = control.ParseSettings([]byte(`{"color": {"h": 1, "s": 1, "v": 1, "H": 9999}}`))
	require.NoError(t, err)
	require.NotNil(t, s.Color)
	assert.Equal(t, domain.Color{H: 1, S: 1, V: 1}, *s.Color)

	s, err = control.ParseSettings([]byte(`{"Scene": {"scene_num": 99}}`))
	require.NoError(t, err)
	assert.Nil(t, s.Scene)

	s, err = control.ParseSettings([]byte(`{"scene": {"scene_num": 1, "scene_units": [
		{"unit_change_mode": "static", "unit_switch_duration": 1, "unit_gradient_duration": 1,
		 "bright": 10, "h": 0, "s": 0, "v": 0, "Temperature": 50000}]}}`))
	require.NoError(t, err)
	require.Len(t, s.Scene.SceneUnits, 1)
	assert.Nil(t, s.Scene.SceneUnits[0].Temperature)
}

func TestParseSettings_IntegralSpellings(t *testing.T) {
	s, err := control.ParseSettings([]byte(`{"brightness": 1e3, "countdown": 50.0}`))
	require.NoError(t, err)
	assert.Equal(t, 1000, *s.Brightness)
	assert.Equal(t, 50, *s.Countdown)

	_, err = control.ParseSettings([]byte(`{"brightness": 2e3}`))
	verr := requireValidationError(t, err)
	assert.Equal(t, "must be between 10 and 1000, got 2000", verr.Fields[0].Reason)

	_, err = control.ParseSettings([]byte(`{"brightness": 1e-1}`))
	verr = requireValidationError(t, err)
	assert.Equal(t, "expected integer, got 1e-1", verr.Fields[0].Reason)
}

func TestParseSettings_SceneUnitUnknownKeysDropped(t *testing.T) {
	s, err := control.ParseSettings([]byte(`{"scene": {"scene_num": 2, "scene_units": [
		{"unit_change_mode": "jump", "unit_switch_duration": 5, "unit_gradient_duration": 5,
		 "bright": 100, "h": 10, "s": 20, "v": 30, "vendor_flag": 1}]}}`))
	require.NoError(t, err)

	data, err := json.Marshal(control.Build(s))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "vendor_flag")
	assert.Contains(t, string(data), `"unit_change_mode":"jump"`)
}
