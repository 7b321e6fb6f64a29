// SPDX-License-Identifier: MIT
package sdr

import (
	"sync"

	applog "sdrfile/internal/log"
)

// State is the read/write cache in front of a Device. Setters drive the
// hardware best-effort and then read the actual value back, so the cache
// reflects what the device settled on rather than what was requested.
// Device errors are logged at debug level and otherwise ignored; the
// operation degrades to a no-op on the cache refresh side.
type State struct {
	dev Device

	mu        sync.RWMutex
	frequency float64
	rate      float64
	gain      float64
	agc       bool
}

// NewState snapshots the device into a fresh cache.
func NewState(dev Device) *State {
	s := &State{dev: dev}
	s.refresh()
	return s
}

func (s *State) refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, err := s.dev.Frequency(); err == nil {
		s.frequency = v
	}
	if v, err := s.dev.SampleRate(); err == nil {
		s.rate = v
	}
	if v, err := s.dev.Gain(); err == nil {
		s.gain = v
	}
	if v, err := s.dev.GainMode(); err == nil {
		s.agc = v
	}
}

// SetFrequency tunes the device and refreshes the cached value.
func (s *State) SetFrequency(hz float64) {
	if err := s.dev.SetFrequency(hz); err != nil {
		applog.Debugf("sdr: set frequency: %v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, err := s.dev.Frequency(); err == nil {
		s.frequency = v
	}
}

// Frequency returns the cached center frequency in Hz.
func (s *State) Frequency() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frequency
}

// SetRate changes the device sample rate and refreshes the cached value.
func (s *State) SetRate(hz float64) {
	if err := s.dev.SetSampleRate(hz); err != nil {
		applog.Debugf("sdr: set sample rate: %v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, err := s.dev.SampleRate(); err == nil {
		s.rate = v
	}
}

// Rate returns the cached sample rate in Hz.
func (s *State) Rate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rate
}

// SetGain sets the front end gain in dB and refreshes the cached value.
func (s *State) SetGain(db float64) {
	if err := s.dev.SetGain(db); err != nil {
		applog.Debugf("sdr: set gain: %v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, err := s.dev.Gain(); err == nil {
		s.gain = v
	}
}

// Gain returns the cached gain in dB.
func (s *State) Gain() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gain
}

// SetAGC toggles hardware AGC and refreshes the cached flag.
func (s *State) SetAGC(on bool) {
	if err := s.dev.SetGainMode(on); err != nil {
		applog.Debugf("sdr: set gain mode: %v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, err := s.dev.GainMode(); err == nil {
		s.agc = v
	}
}

// AGC returns the cached AGC flag.
func (s *State) AGC() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agc
}

// WriteSetting writes a named device setting, best-effort.
func (s *State) WriteSetting(name, value string) {
	if err := s.dev.WriteSetting(name, value); err != nil {
		applog.Debugf("sdr: write setting %s: %v", name, err)
	}
}

// ReadSetting reads one named setting. ok is false when the device does
// not expose a setting with that name.
func (s *State) ReadSetting(name string) (value string, ok bool) {
	for _, n := range s.dev.SettingNames() {
		if n == name {
			v, err := s.dev.ReadSetting(name)
			if err != nil {
				applog.Debugf("sdr: read setting %s: %v", name, err)
				return "", false
			}
			return v, true
		}
	}
	return "", false
}

// SettingNames returns the device setting names in stable order.
func (s *State) SettingNames() []string {
	return s.dev.SettingNames()
}
