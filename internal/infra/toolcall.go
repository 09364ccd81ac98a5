package infra

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// SystemPrompt steers every language model towards a single control_bulb
// call. Defaults such as brightness 500 are decided here, never by the
// validator.
const SystemPrompt = "You are a smart home assistant. Interpret short user inputs like 'blue', 'off', 'bright' " +
	"and convert them to full parameters to control the smart bulb. " +
	"If user input is 'off' or 'turn off', set power to false. " +
	"If color name is given, convert it to approximate HSV values. " +
	"If brightness is not specified, use a default brightness of 500. " +
	"If a colour is given, always set power to true. " +
	"Always return function calls only with valid JSON arguments."

var ErrNoToolCall = errors.New("model did not call control_bulb")

// ExtractControl pulls the "control" argument out of a tool call's arguments.
func ExtractControl(arguments []byte) (json.RawMessage, error) {
	var args struct {
		Control json.RawMessage `json:"control"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("parsing tool arguments (%s): %w", string(arguments), err)
	}

	trimmed := bytes.TrimSpace(args.Control)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("tool arguments have no control object: %s", string(arguments))
	}

	return trimmed, nil
}
