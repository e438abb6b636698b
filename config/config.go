package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIBaseURL             = "http://127.0.0.1:8000"
	DefaultStateDir               = ".unchained"
	DefaultSearchDebounce         = 200 * time.Millisecond
	DefaultSearchLimit            = 10
	DefaultNotificationMaxBackoff = 30 * time.Second
	DefaultLogLevel               = "info"
)

type Config struct {
	APIBaseURL    string        `json:"api_base_url"  yaml:"api_base_url"`
	StateDir      string        `json:"state_dir"     yaml:"state_dir"`
	LogLevel      string        `json:"log_level"     yaml:"log_level"`
	Search        Search        `json:"search"        yaml:"search"`
	Notifications Notifications `json:"notifications" yaml:"notifications"`
}

type Search struct {
	Debounce time.Duration `json:"debounce" yaml:"debounce"`
	Limit    int           `json:"limit"    yaml:"limit"`
}

type Notifications struct {
	MaxBackoff time.Duration `json:"max_backoff" yaml:"max_backoff"`
}

func Default() *Config {
	cfg := &Config{} //nolint:exhaustruct
	cfg.setDefaults()
	return cfg
}

func (cfg *Config) setDefaults() {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.StateDir == "" {
		cfg.StateDir = DefaultStateDir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.Search.Debounce == 0 {
		cfg.Search.Debounce = DefaultSearchDebounce
	}
	if cfg.Search.Limit == 0 {
		cfg.Search.Limit = DefaultSearchLimit
	}
	if cfg.Notifications.MaxBackoff == 0 {
		cfg.Notifications.MaxBackoff = DefaultNotificationMaxBackoff
	}
}

func (cfg *Config) validate() error {
	u, err := url.Parse(cfg.APIBaseURL)
	if nil != err {
		return fmt.Errorf("invalid api base url %q: %v", cfg.APIBaseURL, err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("api base url must be http or https, got scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("api base url has no host")
	}

	if cfg.Search.Debounce < 0 {
		return errors.New("search debounce must not be negative")
	}

	if cfg.Search.Limit < 0 {
		return errors.New("search limit must not be negative")
	}

	return nil
}

// WithAPIBaseURL overrides the configured base URL, e.g. from UNCHAINED_API_BASE.
func (cfg *Config) WithAPIBaseURL(baseURL string) error {
	if baseURL == "" {
		return nil
	}
	prev := cfg.APIBaseURL
	cfg.APIBaseURL = baseURL
	if err := cfg.validate(); nil != err {
		cfg.APIBaseURL = prev
		return fmt.Errorf("validation failed: %v", err)
	}
	return nil
}

func FromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if nil != err {
		return nil, fmt.Errorf("failed to read config file %q: %v", filePath, err)
	}

	cfg, err := FromString(string(data))
	if nil != err {
		return nil, fmt.Errorf("failed to load config file %q: %v", filePath, err)
	}
	return cfg, nil
}

func FromString(data string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(data), &cfg); nil != err {
		return nil, fmt.Errorf("failed to unmarshal config: %v", err)
	}
	cfg.setDefaults()

	if err := cfg.validate(); nil != err {
		return nil, fmt.Errorf("validation failed: %v", err)
	}

	return &cfg, nil
}
