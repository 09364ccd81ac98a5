package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Tuya      TuyaConfig      `yaml:"tuya"`
	LLM       LLMConfig       `yaml:"llm"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	HTTP      HTTPConfig      `yaml:"http"`
	Pushover  PushoverConfig  `yaml:"pushover"`
	Log       LogConfig       `yaml:"log"`
}

type TuyaConfig struct {
	ClientID string `yaml:"client_id"`
	Secret   string `yaml:"secret"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	DeviceID string `yaml:"device_id"`
	Timeout  string `yaml:"timeout"`
}

// LLMConfig selects the language model that turns text into settings.
type LLMConfig struct {
	Provider string `yaml:"provider"`
}

type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type HTTPConfig struct {
	Addr      string `yaml:"addr"`
	AuthToken string `yaml:"auth_token"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Title   string `yaml:"title"`
	Enabled bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ConfigurationError names every required setting that is missing.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required configuration: %s (set them in the environment or .env file)",
		strings.Join(e.Missing, ", "))
}

// Load reads the optional .env file and the YAML config at path, then applies
// environment overrides and defaults. A missing config file is not an error;
// the environment alone may be enough.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg.applyEnv()
	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		key string
		dst *string
	}{
		{"TUYA_CLIENT_ID", &c.Tuya.ClientID},
		{"TUYA_CLIENT_SECRET", &c.Tuya.Secret},
		{"TUYA_API_ENDPOINT", &c.Tuya.Endpoint},
		{"TUYA_DEVICE_ID", &c.Tuya.DeviceID},
		{"LLM_PROVIDER", &c.LLM.Provider},
		{"OPENAI_API_KEY", &c.OpenAI.APIKey},
		{"ANTHROPIC_API_KEY", &c.Anthropic.APIKey},
		{"GEMINI_API_KEY", &c.Gemini.APIKey},
		{"LOG_LEVEL", &c.Log.Level},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.key); ok && v != "" {
			*o.dst = v
		}
	}
}

func (c *Config) setDefaults() {
	if c.Tuya.Region == "" {
		c.Tuya.Region = "in"
	}
	if c.Tuya.Timeout == "" {
		c.Tuya.Timeout = "15s"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.Anthropic.Model == "" {
		c.Anthropic.Model = "claude-sonnet-4-20250514"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks the settings needed for one run: Tuya credentials when the
// bulb is contacted, the selected provider's API key when text is interpreted.
func (c *Config) Validate(needDevice, needLLM bool) error {
	var missing []string

	if needDevice {
		if c.Tuya.ClientID == "" {
			missing = append(missing, "TUYA_CLIENT_ID")
		}
		if c.Tuya.Secret == "" {
			missing = append(missing, "TUYA_CLIENT_SECRET")
		}
		if c.Tuya.DeviceID == "" {
			missing = append(missing, "TUYA_DEVICE_ID")
		}
	}

	if needLLM {
		switch c.LLM.Provider {
		case "openai":
			if c.OpenAI.APIKey == "" {
				missing = append(missing, "OPENAI_API_KEY")
			}
		case "anthropic":
			if c.Anthropic.APIKey == "" {
				missing = append(missing, "ANTHROPIC_API_KEY")
			}
		case "gemini":
			if c.Gemini.APIKey == "" {
				missing = append(missing, "GEMINI_API_KEY")
			}
		default:
			return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
		}
	}

	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}
