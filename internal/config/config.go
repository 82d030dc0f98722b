// Package config loads the agent configuration from a TOML or JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"

	"settingsync/internal/picker"
)

// ServerConfig - WebSocket/HTTP server settings.
type ServerConfig struct {
	Port           string   `json:"port" toml:"port"`
	AllowedOrigins []string `json:"allowed_origins" toml:"allowed_origins"`
}

// StoreConfig - where settings documents live.
type StoreConfig struct {
	Root      string `json:"root" toml:"root"`
	Subfolder string `json:"subfolder" toml:"subfolder"`
}

// DevicesConfig - device name source. Script wins over the static lists.
type DevicesConfig struct {
	Script      string   `json:"script" toml:"script"`
	Cameras     []string `json:"cameras" toml:"cameras"`
	Microphones []string `json:"microphones" toml:"microphones"`
}

// NotifyConfig - notification throttling.
type NotifyConfig struct {
	RateLimit float64 `json:"rate_limit" toml:"rate_limit"`
	RateBurst int     `json:"rate_burst" toml:"rate_burst"`
}

// MQTTConfig - optional MQTT mirror of the notification channel.
type MQTTConfig struct {
	Enabled     bool   `json:"enabled" toml:"enabled"`
	Broker      string `json:"broker" toml:"broker"` // tcp://IP:PORT
	Username    string `json:"username" toml:"username"`
	Password    string `json:"password" toml:"password"`
	ClientID    string `json:"client_id" toml:"client_id"`
	TopicPrefix string `json:"topic_prefix" toml:"topic_prefix"`
}

// ScheduleConfig - cron specs for periodic jobs. Empty disables a job.
type ScheduleConfig struct {
	Resync string `json:"resync" toml:"resync"`
	Verify string `json:"verify" toml:"verify"`
}

// PickerConfig - external file chooser.
type PickerConfig struct {
	Command string   `json:"command" toml:"command"`
	Args    []string `json:"args" toml:"args"`
}

// Config - the agent configuration.
type Config struct {
	Server   ServerConfig   `json:"server" toml:"server"`
	Store    StoreConfig    `json:"store" toml:"store"`
	Devices  DevicesConfig  `json:"devices" toml:"devices"`
	Notify   NotifyConfig   `json:"notify" toml:"notify"`
	MQTT     MQTTConfig     `json:"mqtt" toml:"mqtt"`
	Schedule ScheduleConfig `json:"schedule" toml:"schedule"`
	Picker   PickerConfig   `json:"picker" toml:"picker"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load reads path, decoding TOML or JSON by extension, then applies
// sanitization, defaults and validation. A missing file yields defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to open config file '%s': %w", path, err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode json: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to decode toml: %w", err)
		}
	}

	cfg.sanitize()
	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) sanitize() {
	c.Server.Port = strings.TrimSpace(c.Server.Port)
	c.Store.Root = strings.TrimSpace(c.Store.Root)
	c.Store.Subfolder = strings.Trim(strings.TrimSpace(c.Store.Subfolder), `\/`)
	c.Devices.Script = strings.TrimSpace(c.Devices.Script)
	c.Schedule.Resync = strings.TrimSpace(c.Schedule.Resync)
	c.Schedule.Verify = strings.TrimSpace(c.Schedule.Verify)
	c.Picker.Command = strings.TrimSpace(c.Picker.Command)
	// Device names are matched exactly against stored selections; leave them alone.
}

func (c *Config) setDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8090"
	}
	if c.Store.Root == "" {
		c.Store.Root = defaultStoreRoot()
	}
	if c.Notify.RateLimit == 0 {
		c.Notify.RateLimit = 20.0
	}
	if c.Notify.RateBurst <= 0 {
		c.Notify.RateBurst = 10
	}
	if c.MQTT.Broker == "" {
		c.MQTT.Broker = "tcp://localhost:1883"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "settingsync"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "settingsync/video_conference"
	}
	if c.Picker.Command == "" {
		def := picker.DefaultCommand()
		c.Picker.Command = def.Name
		c.Picker.Args = def.Args
	}
}

func (c *Config) validate() error {
	if c.Notify.RateLimit < 0 {
		return fmt.Errorf("config error: 'notify.rate_limit' must be positive")
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{"schedule.resync": c.Schedule.Resync, "schedule.verify": c.Schedule.Verify} {
		if spec == "" {
			continue
		}
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("config error: '%s': %w", name, err)
		}
	}
	return nil
}

func defaultStoreRoot() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "settingsync")
	}
	return "settings"
}
