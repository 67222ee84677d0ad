// ABOUTME: Configuration loading and parsing for the fdc3 provider.
// ABOUTME: Supports YAML files with environment variable expansion and hex color parsing.

package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bryangaleOF/fdc3-service/protocol"
)

// Config represents the complete fdc3-provider configuration.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Logging  LoggingConfig   `yaml:"logging"`
	Channels []ChannelConfig `yaml:"channels"`
}

// ServerConfig holds server address configuration.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ChannelConfig describes one desktop channel. The channel list is fixed for
// the lifetime of the service; windows cannot create or remove channels.
type ChannelConfig struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Color uint32 `yaml:"-"`

	// Raw hex value for YAML unmarshaling, e.g. "#FF0000".
	ColorRaw string `yaml:"color"`
}

// Transport converts the channel config into its wire descriptor.
func (c ChannelConfig) Transport() protocol.ChannelTransport {
	return protocol.ChannelTransport{
		ID:    protocol.ChannelID(c.ID),
		Type:  protocol.ChannelTypeDesktop,
		Name:  c.Name,
		Color: c.Color,
	}
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
// Channel colors are parsed from "#RRGGBB" hex strings.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if len(cfg.Channels) == 0 {
		cfg.Channels = DefaultChannels()
	}

	if err := parseColors(&cfg); err != nil {
		return nil, fmt.Errorf("parsing channel colors: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// DefaultChannels returns the built-in desktop channel set used when the
// config file does not define one.
func DefaultChannels() []ChannelConfig {
	return []ChannelConfig{
		{ID: "red", Name: "Red", Color: 0xFF0000, ColorRaw: "#FF0000"},
		{ID: "orange", Name: "Orange", Color: 0xFF8000, ColorRaw: "#FF8000"},
		{ID: "yellow", Name: "Yellow", Color: 0xFFE733, ColorRaw: "#FFE733"},
		{ID: "green", Name: "Green", Color: 0x00CC88, ColorRaw: "#00CC88"},
		{ID: "blue", Name: "Blue", Color: 0x0000FF, ColorRaw: "#0000FF"},
		{ID: "purple", Name: "Purple", Color: 0x8000FF, ColorRaw: "#8000FF"},
	}
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}

	seen := make(map[string]bool, len(c.Channels))
	for _, ch := range c.Channels {
		if ch.ID == "" {
			return fmt.Errorf("channel id is required")
		}
		if ch.ID == string(protocol.DefaultChannelID) {
			return fmt.Errorf("channel id %q is reserved", protocol.DefaultChannelID)
		}
		if seen[ch.ID] {
			return fmt.Errorf("duplicate channel id %q", ch.ID)
		}
		seen[ch.ID] = true
	}

	return nil
}

// parseColors converts the raw "#RRGGBB" strings into numeric color values.
func parseColors(cfg *Config) error {
	for i := range cfg.Channels {
		ch := &cfg.Channels[i]
		if ch.ColorRaw == "" {
			continue
		}

		hex := strings.TrimPrefix(ch.ColorRaw, "#")
		if len(hex) != 6 {
			return fmt.Errorf("channel %q: color %q must be #RRGGBB", ch.ID, ch.ColorRaw)
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return fmt.Errorf("channel %q: color %q: %w", ch.ID, ch.ColorRaw, err)
		}
		ch.Color = uint32(v)
	}

	return nil
}
