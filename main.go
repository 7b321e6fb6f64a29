// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"sdrfile/cmd"
	"sdrfile/internal/bus"
	"sdrfile/internal/capture"
	"sdrfile/internal/config"
	"sdrfile/internal/container"
	applog "sdrfile/internal/log"
	"sdrfile/internal/recorder"
	"sdrfile/internal/sdr"
	"sdrfile/internal/server"
	"sdrfile/internal/spectrum"
	"sdrfile/pkg/build"
)

func main() {
	build.Initialize()

	cfg, err := cmd.ParseArgs()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}

	if cfg.Command == "list" {
		if err := sdr.ListSoundcards(); err != nil {
			applog.Fatalf("list devices: %v", err)
		}
		return
	}

	if err := run(cfg); err != nil {
		applog.Fatalf("%v", err)
	}
}

// run assembles the pipeline, starts every consumer and blocks in the
// producer loop until quit. Consumers drain to completion before the
// process exits so the last recording is always finalized.
func run(cfg *config.Config) error {
	dev, err := sdr.Open(cfg.Device, cfg.PacketSize)
	if err != nil {
		return err
	}
	defer dev.Close()

	radio := sdr.NewState(dev)
	tune(radio, cfg)

	b := bus.New(bus.CapacityForBudget(int64(cfg.BufferMB)<<20, cfg.PacketSize))
	pipe := capture.New(dev, radio, b, cfg.PacketSize)
	if cfg.Pause {
		pipe.SetPause(true)
	}

	applog.Infof("device %s: %d Hz at %d S/s, gain %.1f dB (agc %v)",
		cfg.Device, int64(radio.Frequency()), int64(radio.Rate()), radio.Gain(), radio.AGC())

	var wg sync.WaitGroup

	rec := recorder.New(pipe, recorder.Options{
		Output:      cfg.Output,
		NoTimestamp: cfg.NoTimestamp,
		Format:      recordFormat(cfg),
		Kind:        recordKind(cfg),
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		rec.Run()
	}()

	bcast := spectrum.NewBroadcaster()
	hub := server.NewHub()
	bcast.AddSink(hub)
	if cfg.Verbose {
		bcast.AddSink(spectrum.LogSink{})
	}
	if cfg.UDPTarget != "" {
		udp, err := spectrum.NewUDPSink(cfg.UDPTarget)
		if err != nil {
			return err
		}
		defer udp.Close()
		bcast.AddSink(udp)
	}

	eng := spectrum.NewEngine(pipe, bcast, spectrum.Config{
		FFTSize:     cfg.FFTSize,
		RBW:         cfg.RBW,
		Averages:    cfg.FFTAvg,
		Integration: cfg.IntegrationTime,
		Width:       cfg.WaterfallWidth,
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		eng.Run()
	}()

	meter := spectrum.NewPeakMeter(pipe, bcast, cfg.Refresh, cfg.Quiet)
	wg.Add(1)
	go func() {
		defer wg.Done()
		meter.Run()
	}()

	srv := server.New(pipe, hub)
	wg.Add(1)
	go func() {
		defer wg.Done()
		addr := fmt.Sprintf("%s:%d", cfg.Hostname, cfg.Port)
		if err := srv.Run(addr); err != nil {
			applog.Errorf("server: %v", err)
			pipe.Quit()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-sig
		applog.Infof("received %s, shutting down", s)
		pipe.Quit()
	}()

	pipe.Run()
	wg.Wait()
	hub.Close()
	return nil
}

// tune applies the requested initial settings. Zero values leave the
// device configuration untouched; a manual gain switches AGC off
// first.
func tune(radio *sdr.State, cfg *config.Config) {
	if cfg.Rate > 0 {
		radio.SetRate(cfg.Rate)
	}
	if cfg.Frequency > 0 {
		radio.SetFrequency(cfg.Frequency)
	}
	if cfg.AGC {
		radio.SetAGC(true)
	} else if cfg.Gain != 0 {
		radio.SetAGC(false)
		radio.SetGain(cfg.Gain)
	}
}

func recordFormat(cfg *config.Config) container.Format {
	if cfg.PCM16 {
		return container.S16
	}
	return container.F32
}

func recordKind(cfg *config.Config) container.Kind {
	if cfg.Raw {
		return container.Raw
	}
	if cfg.RF64 {
		return container.RF64
	}
	return container.WAV
}
