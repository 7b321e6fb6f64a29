// SPDX-License-Identifier: MIT
package container

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"
)

var testTime = time.Date(2026, 3, 15, 12, 30, 45, 250e6, time.UTC)

func TestHeaderRoundTripWAV(t *testing.T) {
	p := Params{Format: S16, Kind: WAV, SampleRate: 2_000_000, Frequency: 103_000_000}

	hdr := headerAt(p, 4096, testTime)
	if len(hdr) != HeaderLen(WAV) {
		t.Fatalf("WAV header length = %d, want %d", len(hdr), HeaderLen(WAV))
	}

	info, err := ParseHeader(hdr)
	if err != nil {
		t.Fatal(err)
	}
	if info.Kind != WAV || info.Format != S16 {
		t.Errorf("kind/format = %v/%v", info.Kind, info.Format)
	}
	if info.Channels != 2 {
		t.Errorf("channels = %d, want 2", info.Channels)
	}
	if info.SampleRate != 2_000_000 {
		t.Errorf("rate = %d", info.SampleRate)
	}
	if info.Frequency != 103_000_000 {
		t.Errorf("frequency = %d", info.Frequency)
	}
	if info.BlockAlign != 4 {
		t.Errorf("block align = %d, want 4", info.BlockAlign)
	}
	if info.DataSize != 4096 || !info.Finalized {
		t.Errorf("data size = %d finalized=%v", info.DataSize, info.Finalized)
	}
	if info.RIFFSize != 4096+112 {
		t.Errorf("riff size = %d, want %d", info.RIFFSize, 4096+112)
	}
}

func TestHeaderPlaceholderThenPatch(t *testing.T) {
	p := Params{Format: F32, Kind: WAV, SampleRate: 48000, Frequency: 7_100_000}

	provisional := headerAt(p, UnknownSize, testTime)
	info, err := ParseHeader(provisional)
	if err != nil {
		t.Fatal(err)
	}
	if info.Finalized {
		t.Error("placeholder header should not parse as finalized")
	}
	if info.DataSize != maxUint32 {
		t.Errorf("placeholder data size = %d, want capped uint32 max", info.DataSize)
	}

	final := headerAt(p, 8000, testTime)
	if len(final) != len(provisional) {
		t.Fatalf("patched header length %d differs from provisional %d",
			len(final), len(provisional))
	}
	info, err = ParseHeader(final)
	if err != nil {
		t.Fatal(err)
	}
	if !info.Finalized || info.DataSize != 8000 {
		t.Errorf("patched header: finalized=%v size=%d", info.Finalized, info.DataSize)
	}
}

func TestHeaderRF64(t *testing.T) {
	p := Params{Format: S16, Kind: RF64, SampleRate: 10_000_000, Frequency: 433_920_000}

	const dataSize = uint64(5) << 32 // beyond classic RIFF
	hdr := headerAt(p, dataSize, testTime)
	if len(hdr) != HeaderLen(RF64) {
		t.Fatalf("RF64 header length = %d, want %d", len(hdr), HeaderLen(RF64))
	}

	info, err := ParseHeader(hdr)
	if err != nil {
		t.Fatal(err)
	}
	if info.Kind != RF64 {
		t.Fatalf("kind = %v, want RF64", info.Kind)
	}
	if info.DataSize != dataSize {
		t.Errorf("data size = %d, want %d", info.DataSize, dataSize)
	}
	if info.SampleCount != dataSize/uint64(info.BlockAlign) {
		t.Errorf("sample count %d != data size / block align %d",
			info.SampleCount, dataSize/uint64(info.BlockAlign))
	}

	// The 32-bit fields must hold the sentinel.
	if got := binary.LittleEndian.Uint32(hdr[4:]); got != maxUint32 {
		t.Errorf("outer size field = %#x, want sentinel", got)
	}
	if got := binary.LittleEndian.Uint32(hdr[len(hdr)-4:]); got != maxUint32 {
		t.Errorf("data chunk size field = %#x, want sentinel", got)
	}
}

func TestClassicRIFFCapsAtUint32(t *testing.T) {
	p := Params{Format: S16, Kind: WAV, SampleRate: 1_000_000, Frequency: 0}
	hdr := headerAt(p, uint64(6)<<32, testTime)
	info, err := ParseHeader(hdr)
	if err != nil {
		t.Fatal(err)
	}
	if info.DataSize != maxUint32 {
		t.Errorf("oversized classic data field = %d, want capped", info.DataSize)
	}
	if info.RIFFSize != maxUint32 {
		t.Errorf("oversized classic riff field = %d, want capped", info.RIFFSize)
	}
}

func TestRawHasNoHeader(t *testing.T) {
	p := Params{Format: F32, Kind: Raw, SampleRate: 1_000_000}
	if hdr := Header(p, 1234); len(hdr) != 0 {
		t.Errorf("raw container emitted %d header bytes", len(hdr))
	}
}

func TestSystemTimeLayout(t *testing.T) {
	st := systemTime(testTime)
	if len(st) != 16 {
		t.Fatalf("systemTime length = %d, want 16", len(st))
	}
	// 2026-03-15 is a Sunday; the day-of-week field counts Sunday as 0.
	fields := []uint16{2026, 3, 0, 15, 12, 30, 45, 250}
	for i, want := range fields {
		if got := binary.LittleEndian.Uint16(st[2*i:]); got != want {
			t.Errorf("systemTime field %d = %d, want %d", i, got, want)
		}
	}
}

func TestS16CeilScaling(t *testing.T) {
	cases := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{0.5, 16384},
		{-0.5, -16384},
		{0.25, 8192},
		{-1.0, -32768},
		{1.0 / 32768, 1},
		{-1.0 / 32768, -1},
	}
	for _, c := range cases {
		if got := S16Sample(c.in); got != c.want {
			t.Errorf("S16Sample(%g) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestS16OverflowIsUnclamped(t *testing.T) {
	// Above full scale the 16-bit conversion wraps rather than
	// saturating; this preserved quirk is asserted so a future change
	// is a conscious one.
	got := S16Sample(1.5) // ceil(49152) wraps to -16384
	if got != -16384 {
		t.Errorf("S16Sample(1.5) = %d, want wrapped -16384", got)
	}
	if got := S16Sample(1.0); got != math.MinInt16 {
		t.Errorf("S16Sample(1.0) = %d, want wrapped %d", got, math.MinInt16)
	}
}

func TestS16RoundTripWithinTolerance(t *testing.T) {
	block := []complex64{
		complex(0.5, -0.5),
		complex(0.123, -0.321),
		complex(0.0, 0.9999),
	}
	decoded := DecodeS16(EncodeS16(nil, block))
	const tol = 1.0 / 32768
	for i := range block {
		if d := real(block[i]) - real(decoded[i]); d > tol || d < -tol {
			t.Errorf("sample %d I: %g vs %g", i, real(block[i]), real(decoded[i]))
		}
		if d := imag(block[i]) - imag(decoded[i]); d > tol || d < -tol {
			t.Errorf("sample %d Q: %g vs %g", i, imag(block[i]), imag(decoded[i]))
		}
	}
}

func TestF32RoundTripExact(t *testing.T) {
	block := []complex64{complex(0.1, -0.9), complex(1.5, -2.5)}
	decoded := DecodeF32(EncodeF32(nil, block))
	for i := range block {
		if block[i] != decoded[i] {
			t.Errorf("sample %d: %v != %v", i, block[i], decoded[i])
		}
	}
}

// TestGoAudioInterop verifies a finalized 16-bit recording parses with
// an independent WAV implementation.
func TestGoAudioInterop(t *testing.T) {
	p := Params{Format: S16, Kind: WAV, SampleRate: 48000, Frequency: 7_100_000}

	block := make([]complex64, 256)
	for i := range block {
		block[i] = complex(float32(i%64)/128, -float32(i%64)/128)
	}
	payload := EncodeS16(nil, block)

	var buf bytes.Buffer
	buf.Write(headerAt(p, uint64(len(payload)), testTime))
	buf.Write(payload)

	path := filepath.Join(t.TempDir(), "interop.wav")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		t.Fatalf("go-audio/wav rejects the file: %v", d.Err())
	}
	if d.SampleRate != 48000 {
		t.Errorf("decoder rate = %d, want 48000", d.SampleRate)
	}
	if d.NumChans != 2 {
		t.Errorf("decoder channels = %d, want 2", d.NumChans)
	}
	if d.BitDepth != 16 {
		t.Errorf("decoder bit depth = %d, want 16", d.BitDepth)
	}

	pcm, err := d.FullPCMBuffer()
	if err != nil {
		t.Fatalf("FullPCMBuffer: %v", err)
	}
	if got, want := len(pcm.Data), len(block)*2; got != want {
		t.Fatalf("decoded %d samples, want %d", got, want)
	}
	if got, want := pcm.Data[0], int(S16Sample(real(block[0]))); got != want {
		t.Errorf("first decoded sample = %d, want %d", got, want)
	}
}
