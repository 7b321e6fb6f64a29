// SPDX-License-Identifier: MIT

/*
Package spectrum computes running spectral metrics from the capture
stream: an averaged FFT power spectrum published as timestamped CSV
rows and ASCII waterfall lines, and an independent peak meter tracking
the maximum sample level over a wall-clock window.

FFT size and averaging count are fixed for the lifetime of one engine
run; changing resolution or integration means restarting the engine.
*/
package spectrum

import (
	"math"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/dsp/fourier"

	"sdrfile/internal/bus"
	"sdrfile/internal/capture"
	applog "sdrfile/internal/log"
	"sdrfile/pkg/bitint"
)

// powerFloor keeps the dB conversion away from log(0).
const powerFloor = 1e-20

// ramp is the character scale for waterfall lines, quiet to loud.
const ramp = " .:-=+*#%@"

// Config sizes one engine run. Explicit values win over derived ones.
type Config struct {
	FFTSize     int     // explicit size, rounded up to a power of two
	RBW         float64 // desired resolution bandwidth (Hz)
	Averages    int     // explicit averaging count
	Integration float64 // desired integration time (sec)
	Width       int     // waterfall line width in characters
}

// FFTSizeFor resolves the FFT size: an explicit request is rounded up
// to the next power of two, otherwise the size giving at most the
// requested resolution bandwidth is used. Falls back to 1024. The
// minimum is 2; the window term divides by size-1.
func FFTSizeFor(rate float64, cfg Config) int {
	size := 1024
	switch {
	case cfg.FFTSize > 0:
		size = bitint.NextPowerOfTwo(cfg.FFTSize)
	case cfg.RBW > 0 && rate > 0:
		size = bitint.NextPowerOfTwo(int(math.Ceil(rate / cfg.RBW)))
	}
	if size < 2 {
		return 2
	}
	return size
}

// AveragesFor resolves the accumulation count: explicit, or the number
// of FFT frames covering the requested integration time, rounded up.
func AveragesFor(rate float64, size int, cfg Config) int {
	if cfg.Averages > 0 {
		return cfg.Averages
	}
	if cfg.Integration > 0 && rate > 0 && size > 0 {
		return int(math.Ceil(cfg.Integration * rate / float64(size)))
	}
	return 1
}

// Engine is the continuous FFT consumer.
type Engine struct {
	pipe  *capture.Pipeline
	q     *bus.Queue
	bcast *Broadcaster

	rate  float64
	size  int
	avg   int
	width int

	fft    *fourier.CmplxFFT
	window []float64
	frame  []complex128
	fill   int

	windowed []complex128
	spec     []complex128
	sum      []float64
	count    int
	row      []float64
}

// NewEngine registers a consumer queue and fixes size and averaging
// from the current sample rate.
func NewEngine(pipe *capture.Pipeline, bcast *Broadcaster, cfg Config) *Engine {
	rate := pipe.Radio.Rate()
	size := FFTSizeFor(rate, cfg)
	avg := AveragesFor(rate, size, cfg)
	width := cfg.Width
	if width <= 0 {
		width = 80
	}

	// Hann window.
	window := make([]float64, size)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}

	applog.Infof("spectrum: fft size %d (rbw %.1f Hz), averaging %d frames",
		size, rate/float64(size), avg)

	return &Engine{
		pipe:     pipe,
		q:        pipe.Bus.Register(),
		bcast:    bcast,
		rate:     rate,
		size:     size,
		avg:      avg,
		width:    width,
		fft:      fourier.NewCmplxFFT(size),
		window:   window,
		frame:    make([]complex128, size),
		windowed: make([]complex128, size),
		spec:     make([]complex128, size),
		sum:      make([]float64, size),
		row:      make([]float64, size),
	}
}

// FFTSize returns the resolved transform size.
func (e *Engine) FFTSize() int { return e.size }

// Averages returns the resolved accumulation count.
func (e *Engine) Averages() int { return e.avg }

// Run consumes blocks until the bus closes, accumulating FFT frames
// across block boundaries.
func (e *Engine) Run() {
	defer e.pipe.Bus.Unregister(e.q)
	for {
		block, ok := e.q.Pop()
		if !ok {
			return
		}
		for _, s := range block {
			e.frame[e.fill] = complex128(s)
			e.fill++
			if e.fill == e.size {
				e.fill = 0
				e.transform()
			}
		}
	}
}

// transform windows one frame, accumulates its power spectrum and
// publishes when the averaging count is reached. Bins are shifted so
// index 0 is -rate/2.
func (e *Engine) transform() {
	for i, v := range e.frame {
		e.windowed[i] = complex(real(v)*e.window[i], imag(v)*e.window[i])
	}
	e.fft.Coefficients(e.spec, e.windowed)

	half := e.size / 2
	for i, c := range e.spec {
		e.sum[(i+half)%e.size] += real(c)*real(c) + imag(c)*imag(c)
	}
	e.count++
	if e.count >= e.avg {
		e.publish(time.Now().UTC())
		for i := range e.sum {
			e.sum[i] = 0
		}
		e.count = 0
	}
}

func (e *Engine) publish(t time.Time) {
	for i, p := range e.sum {
		e.row[i] = 10 * math.Log10(p/float64(e.avg)+powerFloor)
	}
	e.bcast.Publish(Message{
		Type: MsgPSD,
		Time: t,
		Row:  csvRow(t, e.row),
	})
	e.bcast.Publish(Message{
		Type: MsgWaterfall,
		Time: t,
		Line: WaterfallLine(e.row, e.width),
	})
}

// PeakBin returns the shifted bin index holding the strongest level of
// the last published row, for diagnostics and tests.
func (e *Engine) PeakBin() int {
	peak := 0
	for i, v := range e.row {
		if v > e.row[peak] {
			peak = i
		}
	}
	return peak
}

// BinFrequency maps a shifted bin index to its offset from the center
// frequency in Hz.
func (e *Engine) BinFrequency(i int) float64 {
	return (float64(i) - float64(e.size)/2) * e.rate / float64(e.size)
}

// csvRow renders "timestamp,db0,db1,..." with two decimals per bin.
func csvRow(t time.Time, row []float64) string {
	var sb strings.Builder
	sb.Grow(len(row)*8 + 32)
	sb.WriteString(t.Format(time.RFC3339Nano))
	for _, v := range row {
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatFloat(v, 'f', 2, 64))
	}
	return sb.String()
}

// WaterfallLine rescales a dB row into a fixed-width character ramp.
// Each column takes the maximum of its bin group; the line is
// normalized to its own min/max.
func WaterfallLine(row []float64, width int) string {
	if len(row) == 0 || width <= 0 {
		return ""
	}
	if width > len(row) {
		width = len(row)
	}

	cols := make([]float64, width)
	for c := range cols {
		lo := c * len(row) / width
		hi := (c + 1) * len(row) / width
		m := row[lo]
		for _, v := range row[lo+1 : hi] {
			if v > m {
				m = v
			}
		}
		cols[c] = m
	}

	min, max := cols[0], cols[0]
	for _, v := range cols[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	line := make([]byte, width)
	for i, v := range cols {
		idx := 0
		if max > min {
			idx = int((v - min) / (max - min) * float64(len(ramp)-1))
		}
		line[i] = ramp[idx]
	}
	return string(line)
}
