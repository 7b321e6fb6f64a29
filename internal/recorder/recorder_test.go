// SPDX-License-Identifier: MIT
package recorder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"sdrfile/internal/bus"
	"sdrfile/internal/capture"
	"sdrfile/internal/container"
	"sdrfile/internal/sdr"
)

func newTestPipeline(t *testing.T) *capture.Pipeline {
	t.Helper()
	// Pacing stays on so the unpaced producer does not flood the disk;
	// at 1 MS/s and 256-sample blocks a 100 ms window still carries
	// hundreds of blocks.
	dev := sdr.NewSim()
	dev.SetSampleRate(1e6)
	dev.SetFrequency(100e6)
	return capture.New(dev, sdr.NewState(dev), bus.New(1024), 256)
}

func waitFinalized(t *testing.T, path string) container.Info {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && len(data) >= container.HeaderLen(container.WAV) {
			info, err := container.ParseHeader(data)
			if err == nil && info.Finalized {
				return info
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("file %q never finalized", path)
	return container.Info{}
}

func TestFilename(t *testing.T) {
	r := &Recorder{opts: Options{Output: "capture", Kind: container.WAV}}
	now := time.Date(2026, 8, 26, 9, 30, 15, 0, time.UTC)
	if got, want := r.Filename(now), "capture_260826093015.wav"; got != want {
		t.Errorf("Filename = %q, want %q", got, want)
	}

	r.opts.NoTimestamp = true
	if got, want := r.Filename(now), "capture.wav"; got != want {
		t.Errorf("Filename(no timestamp) = %q, want %q", got, want)
	}

	r.opts.Output = "capture.iq"
	if got, want := r.Filename(now), "capture.iq"; got != want {
		t.Errorf("Filename should keep an explicit extension, got %q, want %q", got, want)
	}

	r.opts = Options{Output: "capture", Kind: container.Raw, NoTimestamp: true}
	if got, want := r.Filename(now), "capture.raw"; got != want {
		t.Errorf("Filename(raw) = %q, want %q", got, want)
	}
}

func TestRecordFinalizesOnQuit(t *testing.T) {
	pipe := newTestPipeline(t)
	out := filepath.Join(t.TempDir(), "session")

	rec := New(pipe, Options{
		Output:      out,
		NoTimestamp: true,
		Format:      container.S16,
		Kind:        container.WAV,
	})

	done := make(chan struct{})
	go func() { rec.Run(); close(done) }()
	go pipe.Run()

	time.Sleep(100 * time.Millisecond)
	pipe.Quit()
	<-done

	info := waitFinalized(t, out+".wav")
	if info.DataSize == 0 {
		t.Error("finalized file reports zero data bytes")
	}
	st, err := os.Stat(out + ".wav")
	if err != nil {
		t.Fatal(err)
	}
	if want := uint64(st.Size()) - uint64(container.HeaderLen(container.WAV)); info.DataSize != want {
		t.Errorf("header data size %d != payload bytes on disk %d", info.DataSize, want)
	}
	if info.DataSize%4 != 0 {
		t.Errorf("S16 data size %d not a multiple of the block align", info.DataSize)
	}
}

func TestPauseResumeProducesTwoValidFiles(t *testing.T) {
	pipe := newTestPipeline(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "session")

	rec := New(pipe, Options{
		Output: out,
		Format: container.F32,
		Kind:   container.WAV,
	})

	done := make(chan struct{})
	go func() { rec.Run(); close(done) }()
	go pipe.Run()

	time.Sleep(100 * time.Millisecond)
	pipe.SetPause(true)

	// Distinct timestamps need a second boundary between sessions.
	time.Sleep(1100 * time.Millisecond)
	pipe.SetPause(false)
	time.Sleep(100 * time.Millisecond)
	pipe.Quit()
	<-done

	matches, err := filepath.Glob(filepath.Join(dir, "session_*.wav"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 session files, found %v", matches)
	}
	for _, path := range matches {
		info := waitFinalized(t, path)
		if info.Format != container.F32 {
			t.Errorf("%s: format = %v, want F32", path, info.Format)
		}
		st, _ := os.Stat(path)
		if want := uint64(st.Size()) - uint64(container.HeaderLen(container.WAV)); info.DataSize != want {
			t.Errorf("%s: header size %d != payload %d", path, info.DataSize, want)
		}
	}
}

func TestRF64SampleCountMatchesBlockAlign(t *testing.T) {
	pipe := newTestPipeline(t)
	out := filepath.Join(t.TempDir(), "big")

	rec := New(pipe, Options{
		Output:      out,
		NoTimestamp: true,
		Format:      container.S16,
		Kind:        container.RF64,
	})

	done := make(chan struct{})
	go func() { rec.Run(); close(done) }()
	go pipe.Run()

	time.Sleep(100 * time.Millisecond)
	pipe.Quit()
	<-done

	data, err := os.ReadFile(out + ".wav")
	if err != nil {
		t.Fatal(err)
	}
	info, err := container.ParseHeader(data)
	if err != nil {
		t.Fatal(err)
	}
	if info.Kind != container.RF64 {
		t.Fatalf("kind = %v, want RF64", info.Kind)
	}
	if !info.Finalized {
		t.Fatal("RF64 file not finalized")
	}
	if info.SampleCount*uint64(info.BlockAlign) != info.DataSize {
		t.Errorf("sample count %d x block align %d != data size %d",
			info.SampleCount, info.BlockAlign, info.DataSize)
	}
}
