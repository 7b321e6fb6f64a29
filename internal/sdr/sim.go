// SPDX-License-Identifier: MIT
package sdr

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Sim is a synthetic front end producing a complex tone at a fixed
// offset from the tuned center frequency. It paces ReadBlock to the
// configured sample rate so the pipeline behaves like a real stream,
// and accepts the usual named settings as inert key/value storage.
type Sim struct {
	mu        sync.Mutex
	frequency float64
	rate      float64
	gain      float64
	agc       bool
	settings  map[string]string

	toneOffset float64 // Hz relative to center
	amplitude  float64
	phase      float64
	buf        []complex64
	pace       bool
	closed     bool
}

// NewSim returns a simulated device tuned to 100 MHz at 1 MS/s with a
// tone 100 kHz above center.
func NewSim() *Sim {
	return &Sim{
		frequency:  100e6,
		rate:       1e6,
		gain:       20,
		toneOffset: 100e3,
		amplitude:  0.5,
		pace:       true,
		settings: map[string]string{
			"iq_swap":     "false",
			"biastee":     "false",
			"digital_agc": "false",
			"offset_tune": "false",
			"direct_samp": "0",
		},
	}
}

// SetPacing disables the real-time pacing of ReadBlock. Tests use this
// to run the pipeline as fast as possible.
func (d *Sim) SetPacing(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pace = on
}

// SetTone changes the generated tone offset (Hz from center) and
// amplitude (full scale is 1.0).
func (d *Sim) SetTone(offset, amplitude float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.toneOffset = offset
	d.amplitude = amplitude
}

func (d *Sim) SetFrequency(hz float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frequency = hz
	return nil
}

func (d *Sim) Frequency() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frequency, nil
}

func (d *Sim) SetSampleRate(hz float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if hz > 0 {
		d.rate = hz
	}
	return nil
}

func (d *Sim) SampleRate() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rate, nil
}

func (d *Sim) SetGain(db float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gain = db
	return nil
}

func (d *Sim) Gain() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gain, nil
}

func (d *Sim) SetGainMode(agc bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.agc = agc
	return nil
}

func (d *Sim) GainMode() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.agc, nil
}

func (d *Sim) WriteSetting(name, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settings[name] = value
	return nil
}

func (d *Sim) ReadSetting(name string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settings[name], nil
}

func (d *Sim) SettingNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.settings))
	for n := range d.settings {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ReadBlock generates n samples of the tone with phase continuity
// across blocks. The returned slice is reused by the next call.
func (d *Sim) ReadBlock(n int) ([]complex64, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, errClosed
	}
	if cap(d.buf) < n {
		d.buf = make([]complex64, n)
	}
	buf := d.buf[:n]
	step := 2 * math.Pi * d.toneOffset / d.rate
	amp := d.amplitude
	phase := d.phase
	for i := range buf {
		s, c := math.Sincos(phase)
		buf[i] = complex(float32(amp*c), float32(amp*s))
		phase += step
		if phase > 2*math.Pi {
			phase -= 2 * math.Pi
		}
	}
	d.phase = phase
	pace := d.pace
	rate := d.rate
	d.mu.Unlock()

	if pace {
		time.Sleep(time.Duration(float64(n) / rate * float64(time.Second)))
	}
	return buf, nil
}

func (d *Sim) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

var errClosed = &DeviceError{Op: "read", Msg: "device closed"}

// DeviceError describes a failed device operation.
type DeviceError struct {
	Op  string
	Msg string
}

func (e *DeviceError) Error() string {
	return "sdr: " + e.Op + ": " + e.Msg
}
