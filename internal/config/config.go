// Package config loads the server's JSON configuration document.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config mirrors spec §6's recognized keys plus the log sink keys the
// logging ambient stack needs.
type Config struct {
	ListenAddress      string `json:"listen_address"`
	ListenPort         int    `json:"listen_port"`
	RtpPortMin         int    `json:"rtp_port_min"`
	RtpPortMax         int    `json:"rtp_port_max"`
	ReadTimeoutSeconds int    `json:"read_timeout_seconds"`
	MaxConnections     int    `json:"max_connections"`

	LogDir   string `json:"log_dir"`
	LogLevel string `json:"log_level"`
}

const (
	defaultListenAddress      = "0.0.0.0"
	defaultListenPort         = 554
	defaultRtpPortMin         = 20000
	defaultRtpPortMax         = 30000
	defaultReadTimeoutSeconds = 60
	defaultMaxConnections     = 0 // 0 == unbounded
	defaultLogLevel           = "info"
)

// Load reads and decodes the JSON document at path, applying defaults for
// any key left unset. An empty path is valid and yields an all-defaults
// Config, since every key is optional per spec §6.
func Load(path string) (Config, error) {
	var c Config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()

		dec := json.NewDecoder(f)
		if err := dec.Decode(&c); err != nil {
			return Config{}, fmt.Errorf("decode config: %w", err)
		}
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddress == "" {
		c.ListenAddress = defaultListenAddress
	}
	if c.ListenPort == 0 {
		c.ListenPort = defaultListenPort
	}
	if c.RtpPortMin == 0 {
		c.RtpPortMin = defaultRtpPortMin
	}
	if c.RtpPortMax == 0 {
		c.RtpPortMax = defaultRtpPortMax
	}
	if c.ReadTimeoutSeconds == 0 {
		c.ReadTimeoutSeconds = defaultReadTimeoutSeconds
	}
	if c.MaxConnections == 0 {
		c.MaxConnections = defaultMaxConnections
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
}

func (c *Config) validate() error {
	if c.RtpPortMin%2 != 0 {
		return fmt.Errorf("rtp_port_min must be even, got %d", c.RtpPortMin)
	}
	if c.RtpPortMax < c.RtpPortMin+1 {
		return fmt.Errorf("rtp_port_max (%d) must be greater than rtp_port_min (%d)", c.RtpPortMax, c.RtpPortMin)
	}
	return nil
}
