package slackwire

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config controls how the SDK connects and how events are routed.
type Config struct {
	URL    string `yaml:"url"`     // RTM websocket URL; resolved through rtm.connect when empty
	APIURL string `yaml:"api_url"` // Web API base URL
	Token  string `yaml:"token"`
	Self   string `yaml:"self"` // own user id; learned from rtm.connect when empty

	OpenChat       bool `yaml:"open_chat"`       // open a conversation for messages in closed channels
	DisplayThreads bool `yaml:"display_threads"` // prefix thread replies with the parent timestamp
	EscapeText     bool `yaml:"escape_text"`     // escape & and > in literal text
	HistoryCount   uint `yaml:"history_count"`

	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`

	APIRate  float64 `yaml:"api_rate"` // Web API requests per second
	APIBurst int     `yaml:"api_burst"`
}

// DefaultConfig returns sensible defaults.
// Set a timeout to 0 to disable it.
func DefaultConfig() Config {
	return Config{
		APIURL:           "https://slack.com/api",
		HistoryCount:     100,
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      30 * time.Second,
		WriteTimeout:     10 * time.Second,
		RequestTimeout:   30 * time.Second,
		PingInterval:     15 * time.Second,
		APIRate:          1,
		APIBurst:         3,
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig and applies
// SLACK_TOKEN, SLACK_SELF and SLACK_OPEN_CHAT from the environment.
// An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path supplied by the operator
		if err != nil {
			return cfg, WrapError(ErrorInvalidConfig, "read config", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, WrapError(ErrorInvalidConfig, "parse config", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SLACK_TOKEN"); v != "" {
		c.Token = v
	}
	if v := os.Getenv("SLACK_SELF"); v != "" {
		c.Self = v
	}
	if v := os.Getenv("SLACK_OPEN_CHAT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return WrapError(ErrorInvalidConfig, "SLACK_OPEN_CHAT", err)
		}
		c.OpenChat = b
	}
	return nil
}

// Validate reports configuration that cannot produce a working client.
func (c Config) Validate() error {
	if c.URL == "" && c.Token == "" {
		return NewError(ErrorInvalidConfig, "either url or token is required")
	}
	if c.URL == "" && c.APIURL == "" {
		return NewError(ErrorInvalidConfig, "api_url is required to resolve the RTM url")
	}
	if c.APIRate < 0 || c.APIBurst < 0 {
		return NewError(ErrorInvalidConfig, fmt.Sprintf("invalid api rate %v/%d", c.APIRate, c.APIBurst))
	}
	return nil
}
