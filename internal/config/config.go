// Package config loads runtime configuration for the insole service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Defaults applied when a field is absent from the config file.
const (
	DefaultPortPath       = "/dev/ttyUSB0"
	DefaultBaudRate       = 115200
	DefaultSampleInterval = 20 // milliseconds between poll iterations
)

// Config is the root service configuration. Fields are pointers so a
// partial JSON file only overrides what it names; the Get* accessors
// supply defaults for the rest.
type Config struct {
	// Serial connection
	PortPath *string `json:"port_path,omitempty"`
	BaudRate *int    `json:"baud_rate,omitempty"`
	DataBits *int    `json:"data_bits,omitempty"`
	StopBits *int    `json:"stop_bits,omitempty"`
	Parity   *string `json:"parity,omitempty"`

	// Decode loop
	SampleIntervalMs *int `json:"sample_interval_ms,omitempty"`

	// Optional MQTT publishing. Empty broker disables publishing.
	MQTTBroker      *string `json:"mqtt_broker,omitempty"`
	MQTTTopicPrefix *string `json:"mqtt_topic_prefix,omitempty"`
}

// Load reads a Config from a JSON file. Fields omitted from the file
// retain their defaults, so partial configs are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks field ranges on whatever the file set.
func (c *Config) Validate() error {
	if c.BaudRate != nil && *c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be positive, got %d", *c.BaudRate)
	}
	if c.SampleIntervalMs != nil && *c.SampleIntervalMs < 1 {
		return fmt.Errorf("sample_interval_ms must be >= 1, got %d", *c.SampleIntervalMs)
	}
	if c.DataBits != nil && (*c.DataBits < 5 || *c.DataBits > 8) {
		return fmt.Errorf("data_bits must be between 5 and 8, got %d", *c.DataBits)
	}
	if c.StopBits != nil && *c.StopBits != 1 && *c.StopBits != 2 {
		return fmt.Errorf("stop_bits must be 1 or 2, got %d", *c.StopBits)
	}
	return nil
}

// GetPortPath returns the serial device path.
func (c *Config) GetPortPath() string {
	if c.PortPath != nil {
		return *c.PortPath
	}
	return DefaultPortPath
}

// GetBaudRate returns the serial baud rate.
func (c *Config) GetBaudRate() int {
	if c.BaudRate != nil {
		return *c.BaudRate
	}
	return DefaultBaudRate
}

// GetDataBits returns the serial data bits (0 lets the mux default).
func (c *Config) GetDataBits() int {
	if c.DataBits != nil {
		return *c.DataBits
	}
	return 0
}

// GetStopBits returns the serial stop bits (0 lets the mux default).
func (c *Config) GetStopBits() int {
	if c.StopBits != nil {
		return *c.StopBits
	}
	return 0
}

// GetParity returns the serial parity ("" lets the mux default).
func (c *Config) GetParity() string {
	if c.Parity != nil {
		return *c.Parity
	}
	return ""
}

// GetSampleIntervalMs returns the decode poll interval in milliseconds.
func (c *Config) GetSampleIntervalMs() int {
	if c.SampleIntervalMs != nil {
		return *c.SampleIntervalMs
	}
	return DefaultSampleInterval
}

// GetMQTTBroker returns the broker URL, empty when publishing is off.
func (c *Config) GetMQTTBroker() string {
	if c.MQTTBroker != nil {
		return *c.MQTTBroker
	}
	return ""
}

// GetMQTTTopicPrefix returns the topic prefix for published metrics.
func (c *Config) GetMQTTTopicPrefix() string {
	if c.MQTTTopicPrefix != nil {
		return *c.MQTTTopicPrefix
	}
	return "plantar"
}
