// SPDX-License-Identifier: MIT

// Package recorder writes the captured stream to container files. One
// recording session runs per unpaused stretch; pausing finalizes the
// current file and resuming opens a fresh one. Any file error is fatal
// for the whole pipeline.
package recorder

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sdrfile/internal/bus"
	"sdrfile/internal/capture"
	"sdrfile/internal/container"
	applog "sdrfile/internal/log"
)

// Options configures the recorder for the lifetime of the pipeline.
type Options struct {
	Output      string // base name, extension optional
	NoTimestamp bool   // omit the timestamp suffix (same-name overwrite)
	Format      container.Format
	Kind        container.Kind
}

// Recorder is the single continuous file-writing consumer.
type Recorder struct {
	pipe *capture.Pipeline
	q    *bus.Queue
	opts Options
	enc  []byte // reusable encode buffer
}

// New registers the recorder's queue with the bus.
func New(pipe *capture.Pipeline, opts Options) *Recorder {
	return &Recorder{
		pipe: pipe,
		q:    pipe.Bus.Register(),
		opts: opts,
	}
}

// Run loops between paused draining and recording sessions until quit.
// While paused the queue is still drained and discarded so the paused
// recorder never back-pressures the producer.
func (r *Recorder) Run() {
	defer r.pipe.Bus.Unregister(r.q)
	for {
		for !r.pipe.Quitting() && r.pipe.Paused() {
			if _, ok := r.q.Pop(); !ok {
				return
			}
		}
		if r.pipe.Quitting() {
			return
		}
		if !r.record() {
			return
		}
	}
}

// Filename derives the session file name from the configured base name,
// the optional UTC timestamp suffix and the container extension.
func (r *Recorder) Filename(now time.Time) string {
	ext := filepath.Ext(r.opts.Output)
	base := strings.TrimSuffix(r.opts.Output, ext)
	if !r.opts.NoTimestamp {
		base = fmt.Sprintf("%s_%s", base, now.UTC().Format("060102150405"))
	}
	if ext == "" {
		ext = r.opts.Kind.Ext()
	}
	return base + ext
}

// record runs one session: provisional header, write loop, finalize.
// It returns false when the recorder should stop for good (quit, bus
// closed, or a fatal file error).
func (r *Recorder) record() bool {
	params := container.Params{
		Format:     r.opts.Format,
		Kind:       r.opts.Kind,
		SampleRate: uint32(r.pipe.Radio.Rate()),
		Frequency:  uint32(r.pipe.Radio.Frequency()),
	}

	filename := r.Filename(time.Now())
	applog.Infof("recorder: writing stream to %s file %q", params.Kind, filename)

	f, err := os.Create(filename)
	if err != nil {
		return r.fatal(fmt.Errorf("failed to create %q: %w", filename, err))
	}

	w := bufio.NewWriterSize(f, 1<<16)
	if _, err := w.Write(container.Header(params, container.UnknownSize)); err != nil {
		f.Close()
		return r.fatal(fmt.Errorf("failed to write header: %w", err))
	}

	var dataSize uint64
	running := true
	for !r.pipe.Quitting() && !r.pipe.Paused() {
		block, ok := r.q.Pop()
		if !ok {
			running = false
			break
		}
		r.enc = container.Encode(params.Format, r.enc, block)
		n, err := w.Write(r.enc)
		if err != nil {
			f.Close()
			return r.fatal(fmt.Errorf("write to %q failed: %w", filename, err))
		}
		dataSize += uint64(n)
	}

	// Finalize: flush, patch the header in place, close.
	if err := w.Flush(); err != nil {
		f.Close()
		return r.fatal(fmt.Errorf("flush of %q failed: %w", filename, err))
	}
	if params.Kind != container.Raw {
		if _, err := f.Seek(0, 0); err != nil {
			f.Close()
			return r.fatal(fmt.Errorf("seek in %q failed: %w", filename, err))
		}
		if _, err := f.Write(container.Header(params, dataSize)); err != nil {
			f.Close()
			return r.fatal(fmt.Errorf("header patch of %q failed: %w", filename, err))
		}
	}
	if err := f.Close(); err != nil {
		return r.fatal(fmt.Errorf("close of %q failed: %w", filename, err))
	}
	applog.Infof("recorder: %s closed, %d data bytes", filename, dataSize)
	return running && !r.pipe.Quitting()
}

// fatal logs the error and brings the whole pipeline down. There is no
// partial-session retry.
func (r *Recorder) fatal(err error) bool {
	applog.Errorf("recorder: fatal: %v", err)
	r.pipe.Quit()
	return false
}
