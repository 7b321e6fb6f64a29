// SPDX-License-Identifier: MIT
package sdr

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Soundcard adapts a stereo line-in to the Device interface: the left
// channel carries I, the right channel Q, the way direct-conversion
// front ends (softrock-style) present baseband to a sound interface.
// Center frequency and gain are fixed by the analog hardware, so the
// corresponding setters are no-ops that keep the requested value for
// metadata stamping.
type Soundcard struct {
	mu        sync.Mutex
	info      *portaudio.DeviceInfo
	stream    *portaudio.Stream
	buf       []float32 // interleaved stereo, blockSize*2
	blockSize int
	rate      float64
	frequency float64
	out       []complex64
}

// OpenSoundcard opens the input device with the given ID (-1 selects
// the system default) and starts a blocking-read stereo stream.
func OpenSoundcard(deviceID, blockSize int) (*Soundcard, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	info, err := inputDevice(deviceID)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	sc := &Soundcard{
		info:      info,
		blockSize: blockSize,
		rate:      info.DefaultSampleRate,
		buf:       make([]float32, blockSize*2),
		out:       make([]complex64, blockSize),
	}
	if err := sc.open(); err != nil {
		portaudio.Terminate()
		return nil, err
	}
	return sc, nil
}

// open (re)creates the stream at the current rate. Caller holds no lock
// during OpenSoundcard; SetSampleRate locks around it.
func (sc *Soundcard) open() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   sc.info,
			Channels: 2,
			Latency:  sc.info.DefaultHighInputLatency,
		},
		SampleRate:      sc.rate,
		FramesPerBuffer: sc.blockSize,
	}
	stream, err := portaudio.OpenStream(params, &sc.buf)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	sc.stream = stream
	return nil
}

func (sc *Soundcard) SetFrequency(hz float64) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.frequency = hz
	return nil
}

func (sc *Soundcard) Frequency() (float64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.frequency, nil
}

// SetSampleRate reopens the stream at the new rate. The recorder must be
// paused when this is called, which the control surface enforces.
func (sc *Soundcard) SetSampleRate(hz float64) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if hz <= 0 || hz == sc.rate {
		return nil
	}
	if sc.stream != nil {
		sc.stream.Stop()
		sc.stream.Close()
		sc.stream = nil
	}
	sc.rate = hz
	return sc.open()
}

func (sc *Soundcard) SampleRate() (float64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.rate, nil
}

func (sc *Soundcard) SetGain(float64) error    { return nil }
func (sc *Soundcard) Gain() (float64, error)   { return 0, nil }
func (sc *Soundcard) SetGainMode(bool) error   { return nil }
func (sc *Soundcard) GainMode() (bool, error)  { return false, nil }
func (sc *Soundcard) SettingNames() []string   { return nil }
func (sc *Soundcard) WriteSetting(name, value string) error {
	return fmt.Errorf("soundcard has no setting %q", name)
}
func (sc *Soundcard) ReadSetting(name string) (string, error) {
	return "", fmt.Errorf("soundcard has no setting %q", name)
}

// ReadBlock blocks until one buffer of stereo frames is available and
// repacks it as I/Q samples. The returned slice is reused next call.
func (sc *Soundcard) ReadBlock(n int) ([]complex64, error) {
	sc.mu.Lock()
	stream := sc.stream
	sc.mu.Unlock()
	if stream == nil {
		return nil, &DeviceError{Op: "read", Msg: "stream not open"}
	}
	if err := stream.Read(); err != nil {
		return nil, fmt.Errorf("input stream read failed: %w", err)
	}
	if n > sc.blockSize {
		n = sc.blockSize
	}
	out := sc.out[:n]
	for i := range out {
		out[i] = complex(sc.buf[2*i], sc.buf[2*i+1])
	}
	return out, nil
}

func (sc *Soundcard) Close() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.stream != nil {
		sc.stream.Stop()
		sc.stream.Close()
		sc.stream = nil
	}
	return portaudio.Terminate()
}

// inputDevice resolves a device ID to portaudio device info, -1 meaning
// the system default input.
func inputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID < 0 {
		return portaudio.DefaultInputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	if deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	return devices[deviceID], nil
}

// ListSoundcards prints the available input devices, one per line with
// channel counts and default rates.
func ListSoundcards() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return err
	}
	for i, dev := range devices {
		if dev.MaxInputChannels < 2 {
			continue
		}
		fmt.Printf("[%d] %s\n", i, dev.Name)
		fmt.Printf("    Input channels: %d, default rate: %.0f Hz\n",
			dev.MaxInputChannels, dev.DefaultSampleRate)
	}
	return nil
}
