package httpapi_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smarter-bulb/internal/application"
	"smarter-bulb/internal/domain"
	"smarter-bulb/internal/infra/httpapi"
)

type fakeInterpreter struct{}

func (fakeInterpreter) Interpret(_ context.Context, text string) (json.RawMessage, error) {
	if text == "off" {
		return json.RawMessage(`{"power": false}`), nil
	}
	return json.RawMessage(`{"brightness": 5}`), nil
}

type fakeDevice struct {
	batches []domain.CommandBatch
	err     error
}

func (f *fakeDevice) SendCommands(_ context.Context, _ string, batch domain.CommandBatch) error {
	f.batches = append(f.batches, batch)
	return f.err
}

func newServer(token string, device *fakeDevice) *httpapi.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := application.NewController(fakeInterpreter{}, device, "bulb-1", nil, logger)
	return httpapi.NewServer(":0", token, ctrl, logger)
}

type body struct {
	Status   string              `json:"status"`
	Commands []domain.Command    `json:"commands"`
	Error    string              `json:"error"`
	Fields   []domain.FieldError `json:"fields"`
}

func do(t *testing.T, h http.Handler, method, target, payload string, header map[string]string) (int, body) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(payload))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var b body
	_ = json.Unmarshal(rec.Body.Bytes(), &b)
	return rec.Code, b
}

func TestServer_Settings(t *testing.T) {
	device := &fakeDevice{}
	h := newServer("", device).Handler()

	code, b := do(t, h, http.MethodPost, "/settings",
		`{"color":{"h":240,"s":1000,"v":1000},"mode":"colour","power":true}`, nil)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", b.Status)
	require.Len(t, b.Commands, 3)
	assert.Equal(t, "switch_led", b.Commands[0].Code)
	assert.Equal(t, "work_mode", b.Commands[1].Code)
	assert.Equal(t, "colour_data_v2", b.Commands[2].Code)
	assert.Len(t, device.batches, 1)
}

func TestServer_SettingsInvalid(t *testing.T) {
	device := &fakeDevice{}
	h := newServer("", device).Handler()

	code, b := do(t, h, http.MethodPost, "/settings", `{"brightness": 1001, "color": {"h": 1}}`, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "invalid", b.Status)
	assert.Len(t, b.Fields, 3)
	assert.Empty(t, device.batches)
}

func TestServer_Text(t *testing.T) {
	device := &fakeDevice{}
	h := newServer("", device).Handler()

	code, b := do(t, h, http.MethodPost, "/text", "off", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []domain.Command{{Code: "switch_led", Value: false}}, b.Commands)

	code, _ = do(t, h, http.MethodPost, "/text", "too dim", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = do(t, h, http.MethodPost, "/text", "   ", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestServer_TransportError(t *testing.T) {
	device := &fakeDevice{err: &domain.TransportError{Op: "send commands", Code: 2001, Msg: "device is offline"}}
	h := newServer("", device).Handler()

	code, b := do(t, h, http.MethodPost, "/settings", `{"power": true}`, nil)

	assert.Equal(t, http.StatusBadGateway, code)
	assert.Contains(t, b.Error, "device is offline")
}

func TestServer_AuthToken(t *testing.T) {
	const token = "test-secret-token-123"

	tests := []struct {
		name       string
		target     string
		header     map[string]string
		wantStatus int
	}{
		{"valid token in header", "/text", map[string]string{"X-Auth-Token": token}, http.StatusOK},
		{"valid token in query", "/text?token=" + token, nil, http.StatusOK},
		{"invalid token", "/text", map[string]string{"X-Auth-Token": "wrong-token"}, http.StatusUnauthorized},
		{"missing token", "/text", nil, http.StatusUnauthorized},
		{"settings also protected", "/settings", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newServer(token, &fakeDevice{}).Handler()
			code, _ := do(t, h, http.MethodPost, tt.target, "off", tt.header)
			assert.Equal(t, tt.wantStatus, code)
		})
	}
}

func TestServer_Schema(t *testing.T) {
	h := newServer("", &fakeDevice{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/schema", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var tool struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tool))
	assert.Equal(t, "control_bulb", tool.Name)
}

func TestServer_HealthBeforeStart(t *testing.T) {
	h := newServer("", &fakeDevice{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := httpapi.NewRateLimiter(2, time.Minute)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestServer_OversizeBodyRejected(t *testing.T) {
	device := &fakeDevice{}
	h := newServer("", device).Handler()

	long := strings.Repeat("a", 1020) + " do not turn off the light"
	code, b := do(t, h, http.MethodPost, "/text", long, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
	assert.Contains(t, b.Error, "exceeds 1024 bytes")

	settings := `{"power": true, "pad": "` + strings.Repeat("x", 64*1024) + `"}`
	code, _ = do(t, h, http.MethodPost, "/settings", settings, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)

	assert.Empty(t, device.batches)

	code, _ = do(t, h, http.MethodPost, "/text", strings.Repeat("a", 1021)+" off", nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)

	code, _ = do(t, h, http.MethodPost, "/text", strings.Repeat(" ", 1021)+"off", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, device.batches, 1)
}
