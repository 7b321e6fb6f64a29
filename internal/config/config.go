// SPDX-License-Identifier: MIT
package config

import "fmt"

// Defaults and limits for the capture pipeline.
const (
	DefaultDevice     = "sim"
	DefaultOutput     = "output"
	DefaultPacketSize = 1024 // samples per block
	DefaultBufferMB   = 256  // per-consumer queue budget
	DefaultHostname   = "0.0.0.0"
	DefaultPort       = 8080
	DefaultRefresh    = 2.0 // peak meter refresh (sec)
	DefaultFFTAvg     = 64
	DefaultWaterfall  = 80 // waterfall line width (chars)

	MinPacketSize = 64
	MaxFFTSize    = 1 << 20
)

// Config holds all runtime options for the capture pipeline. It is built
// from defaults, an optional YAML file, environment overrides and finally
// command line flags.
type Config struct {
	// Radio front end.
	Device    string  `yaml:"device"`    // "sim" or "soundcard[:id]"
	Frequency float64 `yaml:"frequency"` // center frequency (Hz), 0 = leave as is
	Rate      float64 `yaml:"rate"`      // sample rate (Hz), 0 = leave as is
	Gain      float64 `yaml:"gain"`      // front end gain (dB)
	AGC       bool    `yaml:"agc"`       // enable hardware AGC

	// Recording.
	PCM16       bool   `yaml:"pcm16"`        // write 16-bit PCM samples
	RF64        bool   `yaml:"rf64"`         // write an RF64 container
	Raw         bool   `yaml:"raw"`          // write headerless raw samples
	NoTimestamp bool   `yaml:"no_timestamp"` // do not append timestamp to file names
	Pause       bool   `yaml:"pause"`        // start with recording paused
	Output      string `yaml:"output"`       // output file base name
	PacketSize  int    `yaml:"packet_size"`  // samples per block
	BufferMB    int    `yaml:"buffer_size"`  // queue budget in MB, <=0 unbounded

	// Control / streaming server.
	Hostname string `yaml:"hostname"`
	Port     int    `yaml:"port"`

	// Peak meter.
	Refresh float64 `yaml:"refresh"` // refresh window in seconds
	Quiet   bool    `yaml:"quiet"`   // do not print peak values

	// Spectrum engine.
	FFTSize         int     `yaml:"fft_size"`         // explicit FFT size, 0 = derive
	RBW             float64 `yaml:"rbw"`              // resolution bandwidth (Hz)
	FFTAvg          int     `yaml:"fft_avg"`          // explicit averaging count, 0 = derive
	IntegrationTime float64 `yaml:"integration_time"` // seconds per published average
	WaterfallWidth  int     `yaml:"waterfall_width"`  // chars per waterfall line
	UDPTarget       string  `yaml:"udp_target"`       // optional addr for UDP spectrum rows

	// Debug.
	LogLevel string `yaml:"log_level"`
	Verbose  bool   `yaml:"verbose,omitempty"`

	// One-off command ("list") instead of running the pipeline.
	Command string `yaml:"-"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Device:         DefaultDevice,
		Output:         DefaultOutput,
		PacketSize:     DefaultPacketSize,
		BufferMB:       DefaultBufferMB,
		Hostname:       DefaultHostname,
		Port:           DefaultPort,
		Refresh:        DefaultRefresh,
		FFTAvg:         DefaultFFTAvg,
		WaterfallWidth: DefaultWaterfall,
		LogLevel:       "info",
	}
}

// Validate checks limits that would otherwise surface as obscure runtime
// failures deep in the pipeline.
func (c *Config) Validate() error {
	if c.PacketSize < MinPacketSize {
		return fmt.Errorf("packet size %d below minimum %d", c.PacketSize, MinPacketSize)
	}
	if c.FFTSize < 0 || c.FFTSize > MaxFFTSize {
		return fmt.Errorf("fft size %d out of range", c.FFTSize)
	}
	if c.RBW < 0 {
		return fmt.Errorf("rbw must be positive, got %g", c.RBW)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Refresh < 0 {
		return fmt.Errorf("refresh must be positive, got %g", c.Refresh)
	}
	if c.WaterfallWidth < 8 {
		return fmt.Errorf("waterfall width %d too small", c.WaterfallWidth)
	}
	return nil
}
