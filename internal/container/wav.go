// SPDX-License-Identifier: MIT

/*
Package container builds and parses the RIFF-family containers used for
I/Q recordings: classic WAV, RF64 for captures that may exceed 4 GiB,
and headerless raw. Headers carry the non-standard `auxi` chunk with
SDR capture metadata (capture time, center frequency, sample rate).

Headers are pure byte slices. A recording in progress writes a header
with the unknown-size placeholder; finalizing seeks back to offset 0
and emits the identical layout with the true sizes substituted.
*/
package container

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Format selects the on-disk sample encoding.
type Format int

const (
	S16 Format = iota // 16-bit signed integer PCM
	F32               // 32-bit IEEE float
)

// SampleBytes returns the width of one sample component in bytes.
func (f Format) SampleBytes() int {
	if f == S16 {
		return 2
	}
	return 4
}

// Kind selects the container framing.
type Kind int

const (
	WAV Kind = iota
	RF64
	Raw
)

// Ext returns the file extension for the container kind.
func (k Kind) Ext() string {
	if k == Raw {
		return ".raw"
	}
	return ".wav"
}

func (k Kind) String() string {
	switch k {
	case WAV:
		return "WAV"
	case RF64:
		return "RF64"
	default:
		return "raw"
	}
}

// UnknownSize is the data-size placeholder for a stream whose final
// length is not yet known.
const UnknownSize = math.MaxUint64

const (
	maxUint32 = math.MaxUint32
	channels  = 2 // interleaved I/Q
)

// Params describes one recording or stream header.
type Params struct {
	Format     Format
	Kind       Kind
	SampleRate uint32
	Frequency  uint32 // center frequency (Hz)
}

// BlockAlign returns bytes per I/Q frame across both components.
func (p Params) BlockAlign() int {
	return channels * p.Format.SampleBytes()
}

// Header builds the container header for dataSize payload bytes, using
// UnknownSize while the stream is still open. Raw containers have no
// header and yield an empty slice.
func Header(p Params, dataSize uint64) []byte {
	return headerAt(p, dataSize, time.Now().UTC())
}

func headerAt(p Params, dataSize uint64, t time.Time) []byte {
	if p.Kind == Raw {
		return nil
	}

	blockAlign := uint16(p.BlockAlign())
	sampleBytes := p.Format.SampleBytes()

	// fmt chunk: integer PCM is tag 1, IEEE float tag 3.
	var formatTag uint16 = 1
	if p.Format == F32 {
		formatTag = 3
	}
	fmtData := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtData[0:], formatTag)
	binary.LittleEndian.PutUint16(fmtData[2:], channels)
	binary.LittleEndian.PutUint32(fmtData[4:], p.SampleRate)
	binary.LittleEndian.PutUint32(fmtData[8:], p.SampleRate*uint32(blockAlign))
	binary.LittleEndian.PutUint16(fmtData[12:], blockAlign)
	binary.LittleEndian.PutUint16(fmtData[14:], uint16(8*sampleBytes))

	// auxi chunk: two identical 16-byte system-time snapshots, center
	// frequency, then the A/D rate repeated in the bandwidth slot and
	// reserved words, matching the established SDR layout.
	st := systemTime(t)
	auxiData := make([]byte, 0, 68)
	auxiData = append(auxiData, st...)
	auxiData = append(auxiData, st...)
	auxiData = appendUint32s(auxiData,
		p.Frequency, p.SampleRate, 0, p.SampleRate, 0, 0, 0, 0, 0)

	riffData := []byte("WAVE")
	riffData = appendChunk(riffData, "fmt ", fmtData)
	riffData = appendChunk(riffData, "auxi", auxiData)

	if p.Kind == RF64 {
		// True 64-bit sizes live in ds64; the 32-bit fields hold the
		// all-ones sentinel.
		const ds64Len = 24
		sampleCount := dataSize / uint64(blockAlign)
		riffSize := satAdd64(dataSize, uint64(len(riffData))+16+ds64Len)

		ds64Data := make([]byte, ds64Len)
		binary.LittleEndian.PutUint64(ds64Data[0:], riffSize)
		binary.LittleEndian.PutUint64(ds64Data[8:], dataSize)
		binary.LittleEndian.PutUint64(ds64Data[16:], sampleCount)

		riffData = appendChunk(riffData, "ds64", ds64Data)
		riffData = appendChunkHeader(riffData, "data", maxUint32)

		buf := make([]byte, 0, 8+len(riffData))
		buf = append(buf, "RF64"...)
		buf = binary.LittleEndian.AppendUint32(buf, maxUint32)
		return append(buf, riffData...)
	}

	riffData = appendChunkHeader(riffData, "data", capUint32(dataSize))
	riffSize := capUint32(satAdd64(dataSize, uint64(len(riffData))))

	buf := make([]byte, 0, 8+len(riffData))
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, riffSize)
	return append(buf, riffData...)
}

// HeaderLen returns the header size in bytes for the container kind.
func HeaderLen(k Kind) int {
	switch k {
	case WAV:
		return 120
	case RF64:
		return 152
	default:
		return 0
	}
}

// systemTime encodes t as the 16-byte Windows SYSTEMTIME layout used by
// the auxi chunk. Go weekdays already count Sunday as 0.
func systemTime(t time.Time) []byte {
	buf := make([]byte, 0, 16)
	for _, v := range []uint16{
		uint16(t.Year()),
		uint16(t.Month()),
		uint16(t.Weekday()),
		uint16(t.Day()),
		uint16(t.Hour()),
		uint16(t.Minute()),
		uint16(t.Second()),
		uint16(t.Nanosecond() / 1e6),
	} {
		buf = binary.LittleEndian.AppendUint16(buf, v)
	}
	return buf
}

func appendChunk(dst []byte, id string, data []byte) []byte {
	dst = appendChunkHeader(dst, id, uint32(len(data)))
	return append(dst, data...)
}

func appendChunkHeader(dst []byte, id string, size uint32) []byte {
	dst = append(dst, id...)
	return binary.LittleEndian.AppendUint32(dst, size)
}

func appendUint32s(dst []byte, vs ...uint32) []byte {
	for _, v := range vs {
		dst = binary.LittleEndian.AppendUint32(dst, v)
	}
	return dst
}

func capUint32(v uint64) uint32 {
	if v > maxUint32 {
		return maxUint32
	}
	return uint32(v)
}

func satAdd64(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

// Info is the result of parsing a container header back.
type Info struct {
	Kind        Kind
	Format      Format
	Channels    int
	SampleRate  uint32
	Frequency   uint32
	BlockAlign  int
	RIFFSize    uint64
	DataSize    uint64 // resolved through ds64 for RF64
	SampleCount uint64 // DataSize / BlockAlign
	Finalized   bool   // false while the size placeholder is present
}

// ParseHeader decodes a WAV or RF64 header produced by Header. Only the
// header bytes are required; the sample payload need not be present.
func ParseHeader(b []byte) (Info, error) {
	if len(b) < 12 {
		return Info{}, fmt.Errorf("container: header truncated at %d bytes", len(b))
	}

	var info Info
	switch string(b[:4]) {
	case "RIFF":
		info.Kind = WAV
	case "RF64":
		info.Kind = RF64
	default:
		return Info{}, fmt.Errorf("container: unknown outer tag %q", b[:4])
	}
	info.RIFFSize = uint64(binary.LittleEndian.Uint32(b[4:]))
	if string(b[8:12]) != "WAVE" {
		return Info{}, fmt.Errorf("container: missing WAVE form type")
	}

	var (
		ds64RIFF, ds64Data, ds64Count uint64
		data32                        uint32
		sawFmt, sawData, sawDS64      bool
	)

	off := 12
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4:]))
		off += 8

		if id == "data" {
			data32 = uint32(size)
			sawData = true
			break // payload follows, header ends here
		}
		if off+size > len(b) {
			return Info{}, fmt.Errorf("container: chunk %q overruns header", id)
		}
		body := b[off : off+size]
		switch id {
		case "fmt ":
			if size < 16 {
				return Info{}, fmt.Errorf("container: fmt chunk too short")
			}
			tag := binary.LittleEndian.Uint16(body)
			switch tag {
			case 1:
				info.Format = S16
			case 3:
				info.Format = F32
			default:
				return Info{}, fmt.Errorf("container: unsupported format tag %d", tag)
			}
			info.Channels = int(binary.LittleEndian.Uint16(body[2:]))
			info.SampleRate = binary.LittleEndian.Uint32(body[4:])
			info.BlockAlign = int(binary.LittleEndian.Uint16(body[12:]))
			sawFmt = true
		case "auxi":
			if size >= 36 {
				info.Frequency = binary.LittleEndian.Uint32(body[32:])
			}
		case "ds64":
			if size < 24 {
				return Info{}, fmt.Errorf("container: ds64 chunk too short")
			}
			ds64RIFF = binary.LittleEndian.Uint64(body)
			ds64Data = binary.LittleEndian.Uint64(body[8:])
			ds64Count = binary.LittleEndian.Uint64(body[16:])
			sawDS64 = true
		}
		off += size
	}

	if !sawFmt || !sawData {
		return Info{}, fmt.Errorf("container: missing fmt or data chunk")
	}

	switch info.Kind {
	case RF64:
		if !sawDS64 {
			return Info{}, fmt.Errorf("container: RF64 without ds64 chunk")
		}
		info.RIFFSize = ds64RIFF
		info.DataSize = ds64Data
		info.SampleCount = ds64Count
		info.Finalized = ds64Data != UnknownSize
	default:
		info.DataSize = uint64(data32)
		if info.BlockAlign > 0 {
			info.SampleCount = info.DataSize / uint64(info.BlockAlign)
		}
		info.Finalized = data32 != maxUint32
	}
	return info, nil
}
