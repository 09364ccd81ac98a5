package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"smarter-bulb/internal/control"
	"smarter-bulb/internal/domain"
)

var (
	ErrEmptyCommand   = errors.New("empty command")
	ErrNoInterpreter  = errors.New("no language model configured")
	ErrNothingToApply = errors.New("no settings to apply")
)

// Result is the outcome of one command: the validated settings and the batch
// built from them.
type Result struct {
	Settings domain.Settings
	Batch    domain.CommandBatch
}

type Controller struct {
	interpreter Interpreter
	device      DeviceController
	deviceID    string
	notifier    Notifier
	logger      *slog.Logger
}

// NewController wires the use case. interpreter may be nil when only raw
// settings are applied.
func NewController(
	interpreter Interpreter,
	device DeviceController,
	deviceID string,
	notifier Notifier,
	logger *slog.Logger,
) *Controller {
	if notifier == nil {
		notifier = &NoopNotifier{}
	}
	return &Controller{
		interpreter: interpreter,
		device:      device,
		deviceID:    deviceID,
		notifier:    notifier,
		logger:      logger,
	}
}

// Plan interprets text and builds the batch without contacting the bulb.
func (c *Controller) Plan(ctx context.Context, text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyCommand
	}
	if c.interpreter == nil {
		return nil, ErrNoInterpreter
	}

	raw, err := c.interpreter.Interpret(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("interpreting command: %w", err)
	}

	c.logger.Info("interpreted command", "text", text, "control", string(raw))

	return c.prepare(raw)
}

// Handle interprets text, sends the resulting batch and reports the outcome
// through the notifier.
func (c *Controller) Handle(ctx context.Context, text string) (*Result, error) {
	res, err := c.Plan(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.send(ctx, res); err != nil {
		return res, err
	}
	return res, nil
}

// Apply validates a raw control object and sends it, bypassing the language
// model.
func (c *Controller) Apply(ctx context.Context, raw json.RawMessage) (*Result, error) {
	res, err := c.prepare(raw)
	if err != nil {
		return nil, err
	}
	if err := c.send(ctx, res); err != nil {
		return res, err
	}
	return res, nil
}

// Prepare validates a raw control object and builds its batch.
func (c *Controller) Prepare(raw json.RawMessage) (*Result, error) {
	return c.prepare(raw)
}

func (c *Controller) prepare(raw json.RawMessage) (*Result, error) {
	settings, err := control.ParseSettings(raw)
	if err != nil {
		return nil, fmt.Errorf("validating settings: %w", err)
	}

	batch := control.Build(settings)
	if len(batch.Commands) == 0 {
		return nil, ErrNothingToApply
	}

	return &Result{Settings: settings, Batch: batch}, nil
}

func (c *Controller) send(ctx context.Context, res *Result) error {
	codes := res.Batch.Codes()
	c.logger.Info("sending commands", "device_id", c.deviceID, "codes", codes)

	if err := c.device.SendCommands(ctx, c.deviceID, res.Batch); err != nil {
		if notifyErr := c.notifier.Notify(ctx, fmt.Sprintf("Error: %s", err.Error())); notifyErr != nil {
			c.logger.Error("notifying error", "error", notifyErr)
		}
		return fmt.Errorf("sending commands: %w", err)
	}

	c.logger.Info("commands applied", "device_id", c.deviceID, "count", len(codes))

	if err := c.notifier.Notify(ctx, "Bulb updated: "+strings.Join(codes, ", ")); err != nil {
		c.logger.Error("notifying result", "error", err)
	}

	return nil
}
