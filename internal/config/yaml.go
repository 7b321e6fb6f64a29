// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load builds a Config from defaults, an optional YAML file and
// environment overrides. If path is empty it tries SDRFILE_CONFIG and
// then ./sdrfile.yaml; a missing file is not an error, the defaults are
// used. Command line flags are layered on afterwards by the CLI.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		if env := os.Getenv("SDRFILE_CONFIG"); env != "" {
			path = env
		} else if _, err := os.Stat("sdrfile.yaml"); err == nil {
			path = "sdrfile.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides layers SDRFILE_* environment variables over the
// current values. Only settings that make sense for deployment are
// exposed this way.
func (c *Config) applyEnvOverrides() {
	if v, ok := os.LookupEnv("SDRFILE_HOSTNAME"); ok {
		c.Hostname = v
	}
	if v, ok := os.LookupEnv("SDRFILE_PORT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Port = n
		}
	}
	if v, ok := os.LookupEnv("SDRFILE_OUTPUT"); ok {
		c.Output = v
	}
	if v, ok := os.LookupEnv("SDRFILE_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv("SDRFILE_UDP_TARGET"); ok {
		c.UDPTarget = v
	}
}
