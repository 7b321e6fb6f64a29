// SPDX-License-Identifier: MIT
package spectrum

import (
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"sdrfile/internal/bus"
	"sdrfile/internal/capture"
	"sdrfile/internal/sdr"
)

// collectSink records published messages for inspection.
type collectSink struct {
	mu   sync.Mutex
	msgs []Message
}

func (c *collectSink) Publish(m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
}

func (c *collectSink) byType(kind string) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Message
	for _, m := range c.msgs {
		if m.Type == kind {
			out = append(out, m)
		}
	}
	return out
}

func newTestPipeline(tone float64) (*capture.Pipeline, *sdr.Sim) {
	dev := sdr.NewSim()
	dev.SetPacing(false)
	dev.SetSampleRate(1e6)
	dev.SetTone(tone, 0.5)
	return capture.New(dev, sdr.NewState(dev), bus.New(64), 256), dev
}

func TestFFTSizeFor(t *testing.T) {
	if got := FFTSizeFor(1e6, Config{FFTSize: 1000}); got != 1024 {
		t.Errorf("explicit 1000 -> %d, want 1024", got)
	}
	if got := FFTSizeFor(1e6, Config{FFTSize: 2048}); got != 2048 {
		t.Errorf("explicit 2048 -> %d, want 2048", got)
	}
	// rate/rbw = 1e6/500 = 2000 -> next power of two 2048.
	if got := FFTSizeFor(1e6, Config{RBW: 500}); got != 2048 {
		t.Errorf("rbw 500 -> %d, want 2048", got)
	}
	if got := FFTSizeFor(1e6, Config{}); got != 1024 {
		t.Errorf("default -> %d, want 1024", got)
	}
	// A one-point transform would make the window divide by zero.
	if got := FFTSizeFor(1e6, Config{FFTSize: 1}); got != 2 {
		t.Errorf("explicit 1 -> %d, want 2", got)
	}
	if got := FFTSizeFor(1, Config{RBW: 1}); got != 2 {
		t.Errorf("rbw at rate -> %d, want 2", got)
	}
}

func TestAveragesFor(t *testing.T) {
	if got := AveragesFor(1e6, 1024, Config{Averages: 7}); got != 7 {
		t.Errorf("explicit -> %d, want 7", got)
	}
	// 10 ms of 1 MS/s is 10000 samples; 10000/1024 rounds up to 10.
	if got := AveragesFor(1e6, 1024, Config{Integration: 0.01}); got != 10 {
		t.Errorf("integration -> %d, want 10", got)
	}
	if got := AveragesFor(1e6, 1024, Config{}); got != 1 {
		t.Errorf("default -> %d, want 1", got)
	}
}

func TestEngineFindsTone(t *testing.T) {
	const toneOffset = 125e3
	pipe, _ := newTestPipeline(toneOffset)

	sink := &collectSink{}
	bcast := NewBroadcaster()
	bcast.AddSink(sink)

	eng := NewEngine(pipe, bcast, Config{FFTSize: 1024, Averages: 4, Width: 64})

	done := make(chan struct{})
	go func() { eng.Run(); close(done) }()
	go pipe.Run()

	deadline := time.After(10 * time.Second)
	for len(sink.byType(MsgPSD)) == 0 {
		select {
		case <-deadline:
			t.Fatal("no spectrum published")
		case <-time.After(10 * time.Millisecond):
		}
	}
	pipe.Quit()
	<-done

	// The tone must land in the strongest bin, within one bin of the
	// expected offset.
	binHz := 1e6 / 1024
	got := eng.BinFrequency(eng.PeakBin())
	if math.Abs(got-toneOffset) > binHz {
		t.Errorf("peak bin at %.0f Hz, want %.0f +- %.0f", got, toneOffset, binHz)
	}

	psd := sink.byType(MsgPSD)[0]
	fields := strings.Split(psd.Row, ",")
	if len(fields) != 1+1024 {
		t.Errorf("CSV row has %d fields, want timestamp + 1024 bins", len(fields))
	}
	if _, err := time.Parse(time.RFC3339Nano, fields[0]); err != nil {
		t.Errorf("CSV row timestamp %q invalid: %v", fields[0], err)
	}

	wf := sink.byType(MsgWaterfall)[0]
	if len(wf.Line) != 64 {
		t.Errorf("waterfall line width %d, want 64", len(wf.Line))
	}
	if !strings.Contains(wf.Line, string(ramp[len(ramp)-1])) {
		t.Errorf("waterfall line %q has no full-scale column for a strong tone", wf.Line)
	}
}

func TestWaterfallLine(t *testing.T) {
	row := make([]float64, 128)
	for i := range row {
		row[i] = -100
	}
	row[64] = -10

	line := WaterfallLine(row, 32)
	if len(line) != 32 {
		t.Fatalf("line width %d, want 32", len(line))
	}
	if line[16] != ramp[len(ramp)-1] {
		t.Errorf("hot bin column = %q, want %q", line[16], ramp[len(ramp)-1])
	}
	for i, c := range line {
		if i != 16 && byte(c) != ramp[0] {
			t.Errorf("cold column %d = %q, want %q", i, c, ramp[0])
		}
	}

	// A flat row maps every column to the quiet end.
	flat := WaterfallLine(make([]float64, 16), 16)
	if flat != strings.Repeat(string(ramp[0]), 16) {
		t.Errorf("flat row line = %q", flat)
	}
}

func TestPeakMeter(t *testing.T) {
	pipe, _ := newTestPipeline(50e3)

	sink := &collectSink{}
	bcast := NewBroadcaster()
	bcast.AddSink(sink)

	meter := NewPeakMeter(pipe, bcast, 0.01, true)

	done := make(chan struct{})
	go func() { meter.Run(); close(done) }()
	go pipe.Run()

	deadline := time.After(10 * time.Second)
	for len(sink.byType(MsgPeak)) == 0 {
		select {
		case <-deadline:
			t.Fatal("no peak published")
		case <-time.After(5 * time.Millisecond):
		}
	}
	pipe.Quit()
	<-done

	// Tone amplitude 0.5: peak component level is 0.5, -6.02 dBFS.
	got := pipe.Peak()
	if math.Abs(got-DBFS(0.5)) > 0.1 {
		t.Errorf("peak = %.2f dBFS, want about %.2f", got, DBFS(0.5))
	}
}

func TestDBFS(t *testing.T) {
	if !math.IsInf(DBFS(0), -1) {
		t.Error("DBFS(0) should be -Inf")
	}
	if got := DBFS(1); got != 0 {
		t.Errorf("DBFS(1) = %g, want 0", got)
	}
	if got := DBFS(0.1); math.Abs(got+20) > 1e-9 {
		t.Errorf("DBFS(0.1) = %g, want -20", got)
	}
}
