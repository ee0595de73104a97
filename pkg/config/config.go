package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/duluk/clima/pkg/weather/openweather"
)

const (
	ProviderOpenWeather = "openweather"
	ProviderOpenMeteo   = "openmeteo"
)

var ErrMissingAPIKey = errors.New("API key not found in environment or config file")

type Config struct {
	APIKey     string `mapstructure:"OPENWEATHER_API_KEY"`
	APIKeyFile string `mapstructure:"OPENWEATHER_API_KEY_FILE"`
	BaseURL    string `mapstructure:"WEATHER_BASE_URL"`
	Provider   string `mapstructure:"WEATHER_PROVIDER"`
	Debug      bool   `mapstructure:"WEATHER_DEBUG"`
	ZipkinURL  string `mapstructure:"ZIPKIN_URL"`
	Addr       string `mapstructure:"WEATHER_ADDR"`
}

var defaults = map[string]any{
	"OPENWEATHER_API_KEY":      "",
	"OPENWEATHER_API_KEY_FILE": "$HOME/.config/weather/openweather_api_key",
	"WEATHER_BASE_URL":         openweather.DefaultBaseURL,
	"WEATHER_PROVIDER":         ProviderOpenWeather,
	"WEATHER_DEBUG":            false,
	"ZIPKIN_URL":               "",
	"WEATHER_ADDR":             ":8080",
}

// Load reads an optional .env file from dir, then the environment. When no
// API key is set it falls back to the key file.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, ".env"))
	v.SetConfigType("env")
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}

	if cfg.APIKey == "" {
		key, err := readKeyFile(os.ExpandEnv(cfg.APIKeyFile))
		if err != nil {
			return nil, err
		}
		cfg.APIKey = key
	}

	return &cfg, nil
}

func readKeyFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("error reading API key file: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// Validate checks the settings needed by the selected provider.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenWeather:
		if c.APIKey == "" {
			return ErrMissingAPIKey
		}
	case ProviderOpenMeteo:
	default:
		return fmt.Errorf("unknown provider: %s", c.Provider)
	}
	return nil
}
