// SPDX-License-Identifier: MIT

/*
Package sdr abstracts the radio front end feeding the capture pipeline.

A Device yields fixed-size blocks of interleaved I/Q samples as
[]complex64 and exposes best-effort tuning controls. Two
implementations are provided: a synthetic signal generator (Sim) and a
soundcard front end treating a stereo line-in as a direct-conversion
I/Q pair (Soundcard).

State is the read/write cache mirroring the device; the hardware stays
the source of truth, the cache serves metadata stamping without a
device round-trip per request.
*/
package sdr

import (
	"fmt"
	"strconv"
	"strings"
)

// Device is the radio front end collaborator. ReadBlock is the only
// call allowed to fail fatally; all tuning calls are best-effort and
// their errors are swallowed by State.
type Device interface {
	SetFrequency(hz float64) error
	Frequency() (float64, error)
	SetSampleRate(hz float64) error
	SampleRate() (float64, error)
	SetGain(db float64) error
	Gain() (float64, error)
	SetGainMode(agc bool) error
	GainMode() (bool, error)

	WriteSetting(name, value string) error
	ReadSetting(name string) (string, error)
	SettingNames() []string

	// ReadBlock reads n I/Q samples from the stream. The returned
	// slice is owned by the caller until the next ReadBlock call.
	ReadBlock(n int) ([]complex64, error)

	Close() error
}

// Open resolves a device name to a Device. Supported names are "sim"
// (or empty) and "soundcard" / "soundcard:<id>".
func Open(name string, blockSize int) (Device, error) {
	switch {
	case name == "" || name == "sim":
		return NewSim(), nil
	case name == "soundcard":
		return OpenSoundcard(-1, blockSize)
	case strings.HasPrefix(name, "soundcard:"):
		id, err := strconv.Atoi(strings.TrimPrefix(name, "soundcard:"))
		if err != nil {
			return nil, fmt.Errorf("invalid soundcard id in %q: %w", name, err)
		}
		return OpenSoundcard(id, blockSize)
	default:
		return nil, fmt.Errorf("unknown device %q", name)
	}
}
