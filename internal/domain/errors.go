package domain

import (
	"fmt"
	"strings"
)

// FieldError describes one settings field that failed validation. Field is a
// dotted path such as "color" or "scene.scene_units[1].bright".
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Reason
}

// ValidationError lists every invalid field of a settings object.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return "invalid settings: " + strings.Join(parts, "; ")
}

// HasField reports whether name, or any field nested under it, is invalid.
func (e *ValidationError) HasField(name string) bool {
	for _, f := range e.Fields {
		if f.Field == name ||
			strings.HasPrefix(f.Field, name+".") ||
			strings.HasPrefix(f.Field, name+"[") {
			return true
		}
	}
	return false
}

// TransportError is a failed call to the device cloud. It is returned to the
// caller as-is; commands are never re-sent.
type TransportError struct {
	Op         string
	StatusCode int
	Code       int
	Msg        string
	Err        error
}

func (e *TransportError) Error() string {
	var sb strings.Builder
	sb.WriteString("tuya ")
	sb.WriteString(e.Op)
	if e.StatusCode != 0 {
		sb.WriteString(fmt.Sprintf(": http %d", e.StatusCode))
	}
	if e.Code != 0 {
		sb.WriteString(fmt.Sprintf(": code %d", e.Code))
	}
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
