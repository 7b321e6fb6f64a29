// SPDX-License-Identifier: MIT
package spectrum

import (
	"math"
	"time"

	"sdrfile/internal/bus"
	"sdrfile/internal/capture"
	applog "sdrfile/internal/log"
)

// PeakMeter tracks the maximum absolute sample component over a
// wall-clock refresh window, independent of FFT framing, and publishes
// it in dBFS.
type PeakMeter struct {
	pipe    *capture.Pipeline
	q       *bus.Queue
	bcast   *Broadcaster
	refresh float64 // seconds
	quiet   bool
}

// NewPeakMeter registers its consumer queue with the bus.
func NewPeakMeter(pipe *capture.Pipeline, bcast *Broadcaster, refresh float64, quiet bool) *PeakMeter {
	return &PeakMeter{
		pipe:    pipe,
		q:       pipe.Bus.Register(),
		bcast:   bcast,
		refresh: refresh,
		quiet:   quiet,
	}
}

// Run consumes blocks until the bus closes. The window counts
// interleaved components (two per sample), matching the refresh
// interval at the configured rate.
func (p *PeakMeter) Run() {
	defer p.pipe.Bus.Unregister(p.q)

	window := 2 * p.refresh * p.pipe.Radio.Rate()
	level := 0.0
	count := 0

	for {
		block, ok := p.q.Pop()
		if !ok {
			return
		}
		if window <= 0 {
			continue
		}
		for _, s := range block {
			if v := math.Abs(float64(real(s))); v > level {
				level = v
			}
			if v := math.Abs(float64(imag(s))); v > level {
				level = v
			}
		}
		count += 2 * len(block)
		if float64(count) > window {
			dbfs := DBFS(level)
			p.pipe.SetPeak(dbfs)
			p.bcast.Publish(Message{Type: MsgPeak, Time: time.Now().UTC(), DBFS: dbfs})
			if !p.quiet {
				applog.Infof("peak: %.2f dBFS", dbfs)
			}
			level = 0
			count = 0
		}
	}
}

// DBFS converts an amplitude to decibels relative to full scale; zero
// maps to negative infinity.
func DBFS(v float64) float64 {
	if v == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v)
}
