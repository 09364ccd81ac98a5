package application

import (
	"context"
	"encoding/json"

	"smarter-bulb/internal/domain"
)

// Interpreter turns a free-form command into the raw control object of a
// control_bulb tool call. The result is untrusted and validated afterwards.
type Interpreter interface {
	Interpret(ctx context.Context, text string) (json.RawMessage, error)
}

// DeviceController delivers one command batch to one device. Implementations
// report failures as *domain.TransportError.
type DeviceController interface {
	SendCommands(ctx context.Context, deviceID string, batch domain.CommandBatch) error
}

// Notifier reports the outcome of a send. Notification failures are logged,
// never returned to the caller of the controller.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// NoopNotifier discards every message.
type NoopNotifier struct{}

func (*NoopNotifier) Notify(context.Context, string) error { return nil }
