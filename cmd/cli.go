// SPDX-License-Identifier: MIT
package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sdrfile/internal/config"
	"sdrfile/pkg/build"
)

// ParseArgs builds the runtime configuration: defaults, optional YAML
// file, environment overrides, then command line flags on top. The
// config file path is pre-scanned from the arguments so the file loads
// before the remaining flags are layered over it.
func ParseArgs() (*config.Config, error) {
	buildInfo := build.GetBuildFlags()

	configPath := configPathArg(os.Args[1:])
	options, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "SDR capture server: record I/Q sample streams and serve them over HTTP",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return options.Validate()
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available capture devices",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", configPath,
		"Path to a YAML configuration file")

	// Radio front end.
	rootCmd.PersistentFlags().StringVarP(&options.Device, "device", "d", options.Device,
		"Capture device: sim, soundcard or soundcard:<id>")
	rootCmd.PersistentFlags().Float64VarP(&options.Frequency, "frequency", "f", options.Frequency,
		"Center frequency in Hz (0 leaves the device setting)")
	rootCmd.PersistentFlags().Float64VarP(&options.Rate, "rate", "r", options.Rate,
		"Sample rate in Hz (0 leaves the device setting)")
	rootCmd.PersistentFlags().Float64VarP(&options.Gain, "gain", "g", options.Gain,
		"Front end gain in dB (ignored when AGC is on)")
	rootCmd.PersistentFlags().BoolVarP(&options.AGC, "agc", "a", options.AGC,
		"Enable hardware automatic gain control")

	// Recording.
	rootCmd.PersistentFlags().BoolVar(&options.PCM16, "pcm16", options.PCM16,
		"Record 16-bit PCM samples instead of 32-bit float")
	rootCmd.PersistentFlags().BoolVar(&options.RF64, "rf64", options.RF64,
		"Write an RF64 container instead of classic WAV")
	rootCmd.PersistentFlags().BoolVar(&options.Raw, "raw", options.Raw,
		"Write headerless raw samples")
	rootCmd.PersistentFlags().BoolVar(&options.NoTimestamp, "no-timestamp", options.NoTimestamp,
		"Do not append a UTC timestamp to the output file name")
	rootCmd.PersistentFlags().BoolVar(&options.Pause, "pause", options.Pause,
		"Start with recording paused")
	rootCmd.PersistentFlags().StringVarP(&options.Output, "output", "o", options.Output,
		"Output file name, extension optional")
	rootCmd.PersistentFlags().IntVar(&options.PacketSize, "packet-size", options.PacketSize,
		"Samples per block")
	rootCmd.PersistentFlags().IntVar(&options.BufferMB, "buffer-size", options.BufferMB,
		"Per-consumer queue budget in MB (0 for the built-in cap)")

	// Server.
	rootCmd.PersistentFlags().StringVar(&options.Hostname, "hostname", options.Hostname,
		"Listen address for the HTTP server")
	rootCmd.PersistentFlags().IntVarP(&options.Port, "port", "p", options.Port,
		"Listen port for the HTTP server")

	// Peak meter and spectrum.
	rootCmd.PersistentFlags().Float64Var(&options.Refresh, "refresh", options.Refresh,
		"Peak meter refresh window in seconds")
	rootCmd.PersistentFlags().BoolVarP(&options.Quiet, "quiet", "q", options.Quiet,
		"Do not print peak values")
	rootCmd.PersistentFlags().IntVar(&options.FFTSize, "fft-size", options.FFTSize,
		"FFT size, rounded up to a power of two (0 derives from --rbw)")
	rootCmd.PersistentFlags().Float64Var(&options.RBW, "rbw", options.RBW,
		"Desired resolution bandwidth in Hz")
	rootCmd.PersistentFlags().IntVar(&options.FFTAvg, "fft-avg", options.FFTAvg,
		"FFT frames per published average (0 derives from --integration-time)")
	rootCmd.PersistentFlags().Float64Var(&options.IntegrationTime, "integration-time", options.IntegrationTime,
		"Integration time per published average in seconds")
	rootCmd.PersistentFlags().IntVar(&options.WaterfallWidth, "waterfall-width", options.WaterfallWidth,
		"Waterfall line width in characters")
	rootCmd.PersistentFlags().StringVar(&options.UDPTarget, "udp-target", options.UDPTarget,
		"host:port receiving spectrum rows as JSON datagrams")

	// Debug.
	rootCmd.PersistentFlags().StringVar(&options.LogLevel, "log-level", options.LogLevel,
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&options.Verbose, "verbose", "v", options.Verbose,
		"Print waterfall lines to stdout")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return options, nil
}

// configPathArg finds --config in the raw arguments ahead of cobra
// parsing. The flag is still registered on the command so it shows up
// in help and passes validation.
func configPathArg(args []string) string {
	for i, a := range args {
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
	}
	return ""
}
