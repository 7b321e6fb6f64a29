// SPDX-License-Identifier: MIT
package capture

import (
	"math"
	"testing"
	"time"

	"sdrfile/internal/bus"
	"sdrfile/internal/sdr"
)

func newTestPipeline() (*Pipeline, *sdr.Sim) {
	dev := sdr.NewSim()
	dev.SetPacing(false)
	return New(dev, sdr.NewState(dev), bus.New(256), 128), dev
}

func TestRunDeliversBlocksUntilQuit(t *testing.T) {
	p, _ := newTestPipeline()
	q := p.Bus.Register()

	go p.Run()

	for i := 0; i < 10; i++ {
		block, ok := q.Pop()
		if !ok {
			t.Fatalf("bus closed after %d blocks", i)
		}
		if len(block) != 128 {
			t.Fatalf("block %d has %d samples, want 128", i, len(block))
		}
	}

	p.Quit()

	// The bus closes once the producer observes quit; drain to the end.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("bus never closed after quit")
		default:
		}
		if _, ok := q.Pop(); !ok {
			return
		}
	}
}

func TestFatalReadErrorSetsQuit(t *testing.T) {
	p, dev := newTestPipeline()
	dev.Close() // next ReadBlock fails

	p.Run() // returns on its own

	if !p.Quitting() {
		t.Error("fatal read error should set quit")
	}
}

func TestPauseAndPeakSlots(t *testing.T) {
	p, _ := newTestPipeline()

	if p.Paused() {
		t.Error("pipeline should start unpaused")
	}
	p.SetPause(true)
	if !p.Paused() {
		t.Error("SetPause(true) not observed")
	}

	if !math.IsNaN(p.Peak()) {
		t.Error("peak should start as NaN")
	}
	p.SetPeak(-6.02)
	if got := p.Peak(); got != -6.02 {
		t.Errorf("Peak() = %g, want -6.02", got)
	}
}
