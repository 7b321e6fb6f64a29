// SPDX-License-Identifier: MIT
package container

import (
	"encoding/binary"
	"math"
)

// S16Sample converts one float sample to 16-bit PCM by ceiling-scaling
// with 32768. There is deliberately no clamp: a source magnitude above
// full scale wraps in the 16-bit conversion, preserving the historical
// recorder behavior.
func S16Sample(x float32) int16 {
	return int16(int32(math.Ceil(float64(x) * 32768)))
}

// EncodeS16 encodes block as little-endian interleaved 16-bit PCM,
// reusing dst's capacity when it suffices.
func EncodeS16(dst []byte, block []complex64) []byte {
	need := len(block) * 4
	if cap(dst) < need {
		dst = make([]byte, need)
	}
	dst = dst[:need]
	for i, s := range block {
		binary.LittleEndian.PutUint16(dst[4*i:], uint16(S16Sample(real(s))))
		binary.LittleEndian.PutUint16(dst[4*i+2:], uint16(S16Sample(imag(s))))
	}
	return dst
}

// EncodeF32 encodes block as little-endian interleaved 32-bit floats,
// reusing dst's capacity when it suffices.
func EncodeF32(dst []byte, block []complex64) []byte {
	need := len(block) * 8
	if cap(dst) < need {
		dst = make([]byte, need)
	}
	dst = dst[:need]
	for i, s := range block {
		binary.LittleEndian.PutUint32(dst[8*i:], math.Float32bits(real(s)))
		binary.LittleEndian.PutUint32(dst[8*i+4:], math.Float32bits(imag(s)))
	}
	return dst
}

// Encode dispatches on the sample format.
func Encode(f Format, dst []byte, block []complex64) []byte {
	if f == S16 {
		return EncodeS16(dst, block)
	}
	return EncodeF32(dst, block)
}

// DecodeS16 converts interleaved 16-bit PCM bytes back to I/Q samples.
func DecodeS16(b []byte) []complex64 {
	out := make([]complex64, len(b)/4)
	for i := range out {
		re := int16(binary.LittleEndian.Uint16(b[4*i:]))
		im := int16(binary.LittleEndian.Uint16(b[4*i+2:]))
		out[i] = complex(float32(re)/32768, float32(im)/32768)
	}
	return out
}

// DecodeF32 converts interleaved float bytes back to I/Q samples.
func DecodeF32(b []byte) []complex64 {
	out := make([]complex64, len(b)/8)
	for i := range out {
		re := math.Float32frombits(binary.LittleEndian.Uint32(b[8*i:]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(b[8*i+4:]))
		out[i] = complex(re, im)
	}
	return out
}
