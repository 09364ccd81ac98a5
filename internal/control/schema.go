// Package control holds the bulb settings schema, its validator and the
// builder that turns validated settings into a Tuya command batch.
//
// The same schema value drives validation and the JSON Schema published to
// language models, so the two cannot drift apart.
package control

import (
	"smarter-bulb/internal/domain"
)

type Kind string

const (
	KindBoolean Kind = "boolean"
	KindInteger Kind = "integer"
	KindString  Kind = "string"
	KindObject  Kind = "object"
	KindArray   Kind = "array"
)

// Range is an inclusive integer bound.
type Range struct {
	Min int
	Max int
}

type Property struct {
	Name   string
	Schema *Schema
}

// Schema is a small declarative subset of JSON Schema: typed values,
// inclusive integer ranges, string enums, objects with ordered properties and
// required keys, and homogeneous arrays.
type Schema struct {
	Kind        Kind
	Description string
	Range       *Range
	Enum        []string
	Properties  []Property
	Required    []string
	Items       *Schema
}

func boolean(desc string) *Schema {
	return &Schema{Kind: KindBoolean, Description: desc}
}

func integer(min, max int, desc string) *Schema {
	return &Schema{Kind: KindInteger, Description: desc, Range: &Range{Min: min, Max: max}}
}

func enum(desc string, values ...string) *Schema {
	return &Schema{Kind: KindString, Description: desc, Enum: values}
}

func object(desc string, required []string, props ...Property) *Schema {
	return &Schema{Kind: KindObject, Description: desc, Required: required, Properties: props}
}

func array(desc string, items *Schema) *Schema {
	return &Schema{Kind: KindArray, Description: desc, Items: items}
}

func prop(name string, s *Schema) Property {
	return Property{Name: name, Schema: s}
}

// Property looks up a child schema by name.
func (s *Schema) Property(name string) (*Schema, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p.Schema, true
		}
	}
	return nil, false
}

const (
	ToolName        = "control_bulb"
	ToolDescription = "Control a Wipro/Tuya smart bulb with settings such as power, brightness, color, temperature, mode, scenes, or a countdown timer."
)

var sceneUnitSchema = object("",
	[]string{
		"unit_change_mode",
		"unit_switch_duration",
		"unit_gradient_duration",
		"bright",
		"h",
		"s",
		"v",
	},
	prop("unit_change_mode", enum("Transition style between colors.",
		string(domain.ChangeModeStatic),
		string(domain.ChangeModeJump),
		string(domain.ChangeModeGradient),
	)),
	prop("unit_switch_duration", integer(0, 100, "Time to hold each color before transition (in seconds).")),
	prop("unit_gradient_duration", integer(0, 100, "Time to fade between colors (in seconds).")),
	prop("bright", integer(0, 1000, "Brightness for this step.")),
	prop("temperature", integer(0, 1000, "White color temperature for this step (optional).")),
	prop("h", integer(0, 360, "Hue for this step.")),
	prop("s", integer(0, 1000, "Saturation for this step.")),
	prop("v", integer(0, 1000, "Brightness value for this step.")),
)

var controlSchema = object("A dictionary of settings to apply to the smart bulb.",
	nil,
	prop(FieldPower, boolean("Turn the light ON or OFF (does not power off the device, only the LED).")),
	prop(FieldBrightness, integer(10, 1000, "Set brightness level (10-1000).")),
	prop(FieldColorTemp, integer(0, 1000, "Set white color temperature: 0 = warmest, 1000 = coolest.")),
	prop(FieldColor, object("Set color using HSV format. Must set mode to 'colour' to apply.",
		[]string{"h", "s", "v"},
		prop("h", integer(0, 360, "Hue (0-360 degrees).")),
		prop("s", integer(0, 1000, "Saturation (0-1000).")),
		prop("v", integer(0, 1000, "Brightness value (0-1000).")),
	)),
	prop(FieldMode, enum("Select operating mode: 'white' for temperature control, 'colour' for HSV color, 'scene' for animated scenes, or 'music' to sync with sound.",
		string(domain.ModeWhite),
		string(domain.ModeColour),
		string(domain.ModeScene),
		string(domain.ModeMusic),
	)),
	prop(FieldScene, object("Apply a preset or custom scene animation (use with mode 'scene').",
		[]string{"scene_num"},
		prop("scene_num", integer(1, 8, "Built-in scene number (1-8).")),
		prop("scene_units", array("Optional array of custom color steps for the scene.", sceneUnitSchema)),
	)),
	prop(FieldCountdown, integer(0, 86400, "Set a timer (in seconds) to automatically turn the light off. 0 = no timer.")),
)

// Settings returns the schema of the control object.
func Settings() *Schema {
	return controlSchema
}

// JSONSchema renders s as a JSON Schema document.
func (s *Schema) JSONSchema() map[string]any {
	out := map[string]any{"type": string(s.Kind)}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if s.Range != nil {
		out["minimum"] = s.Range.Min
		out["maximum"] = s.Range.Max
	}
	if len(s.Enum) > 0 {
		out["enum"] = append([]string(nil), s.Enum...)
	}
	if s.Kind == KindObject {
		props := make(map[string]any, len(s.Properties))
		for _, p := range s.Properties {
			props[p.Name] = p.Schema.JSONSchema()
		}
		out["properties"] = props
		if len(s.Required) > 0 {
			out["required"] = append([]string(nil), s.Required...)
		}
	}
	if s.Items != nil {
		out["items"] = s.Items.JSONSchema()
	}
	return out
}

// ControlSchema is the JSON Schema of the control object.
func ControlSchema() map[string]any {
	return controlSchema.JSONSchema()
}

// ToolDefinition describes the function exposed to a language model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolSchema wraps the control schema as the single required "control"
// argument of the control_bulb tool.
func ToolSchema() ToolDefinition {
	return ToolDefinition{
		Name:        ToolName,
		Description: ToolDescription,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"control": ControlSchema(),
			},
			"required": []string{"control"},
		},
	}
}
