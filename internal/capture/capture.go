// SPDX-License-Identifier: MIT

/*
Package capture owns the shared pipeline state and the producer loop.

Pipeline is the explicit context object handed to every component:
radio state cache, sample bus, pause flag, peak level slot and the
cancellation context that implements the cooperative one-way quit
signal. Nothing in the pipeline is a process-wide singleton.
*/
package capture

import (
	"context"
	"math"
	"sync/atomic"

	"sdrfile/internal/bus"
	applog "sdrfile/internal/log"
	"sdrfile/internal/sdr"
)

// Pipeline carries everything the components share.
type Pipeline struct {
	Radio *sdr.State
	Bus   *bus.Bus

	dev        sdr.Device
	packetSize int

	ctx    context.Context
	cancel context.CancelFunc
	pause  atomic.Bool
	peak   atomic.Uint64 // float64 bits, dBFS
}

// New assembles a pipeline around an opened device.
func New(dev sdr.Device, radio *sdr.State, b *bus.Bus, packetSize int) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		Radio:      radio,
		Bus:        b,
		dev:        dev,
		packetSize: packetSize,
		ctx:        ctx,
		cancel:     cancel,
	}
	p.peak.Store(math.Float64bits(math.NaN()))
	return p
}

// Context returns the quit context. Components check it at every loop
// boundary; it is never reset once cancelled.
func (p *Pipeline) Context() context.Context {
	return p.ctx
}

// Quit sets the one-way quit signal.
func (p *Pipeline) Quit() {
	p.cancel()
}

// Quitting reports whether quit has been signalled.
func (p *Pipeline) Quitting() bool {
	return p.ctx.Err() != nil
}

// SetPause flips the recorder pause flag. It has no effect on sample
// production, live streams or the spectrum engine.
func (p *Pipeline) SetPause(on bool) {
	p.pause.Store(on)
}

// Paused reports the recorder pause flag.
func (p *Pipeline) Paused() bool {
	return p.pause.Load()
}

// SetPeak publishes the latest peak level in dBFS.
func (p *Pipeline) SetPeak(dbfs float64) {
	p.peak.Store(math.Float64bits(dbfs))
}

// Peak returns the latest peak level in dBFS (NaN before the first
// measurement).
func (p *Pipeline) Peak() float64 {
	return math.Float64frombits(p.peak.Load())
}

// Run is the producer loop: read one block from the device, broadcast
// it, repeat until quit. A device read failure is fatal for the whole
// capture: it logs, sets quit and returns. On exit the bus is closed so
// every consumer unblocks and drains.
func (p *Pipeline) Run() {
	defer p.Bus.Close()
	for {
		if p.ctx.Err() != nil {
			return
		}
		block, err := p.dev.ReadBlock(p.packetSize)
		if err != nil {
			applog.Errorf("capture: stream read failed: %v", err)
			p.cancel()
			return
		}
		p.Bus.Broadcast(block)
	}
}
