package capture

import (
	"encoding/binary"
	"math"

	"github.com/gen2brain/malgo"
)

// Encoding is one of the wire sample encodings a capture stream can
// deliver. The set is closed; the decoder is picked once per stream
// build, not per callback.
type Encoding int

const (
	// EncodingS16 is 16-bit signed little-endian PCM.
	EncodingS16 Encoding = iota
	// EncodingU16 is 16-bit unsigned PCM with a midpoint of 32768.
	EncodingU16
	// EncodingF32 is 32-bit IEEE float in [-1, 1].
	EncodingF32
)

func (e Encoding) String() string {
	switch e {
	case EncodingS16:
		return "s16"
	case EncodingU16:
		return "u16"
	case EncodingF32:
		return "f32"
	}
	return "unknown"
}

// bytesPerSample returns the wire size of one sample.
func (e Encoding) bytesPerSample() int {
	if e == EncodingF32 {
		return 4
	}
	return 2
}

// malgoFormat maps the encoding to the matching malgo format. The
// miniaudio backend has no unsigned 16-bit format; u16 devices are
// delivered converted, so EncodingU16 reports false.
func (e Encoding) malgoFormat() (malgo.FormatType, bool) {
	switch e {
	case EncodingS16:
		return malgo.FormatS16, true
	case EncodingF32:
		return malgo.FormatF32, true
	}
	return malgo.FormatUnknown, false
}

// decode converts raw callback bytes into 16-bit signed PCM samples.
// Unsigned samples are shifted by the unsigned midpoint; floats are
// scaled by the signed 16-bit maximum. Trailing partial samples are
// dropped.
func (e Encoding) decode(data []byte) []int16 {
	n := len(data) / e.bytesPerSample()
	out := make([]int16, n)

	switch e {
	case EncodingS16:
		for i := 0; i < n; i++ {
			out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
		}
	case EncodingU16:
		for i := 0; i < n; i++ {
			out[i] = int16(int32(binary.LittleEndian.Uint16(data[i*2:])) - 32768)
		}
	case EncodingF32:
		for i := 0; i < n; i++ {
			bits := binary.LittleEndian.Uint32(data[i*4:])
			out[i] = int16(math.Float32frombits(bits) * math.MaxInt16)
		}
	}
	return out
}

// downmixMono averages interleaved frames into a single channel. Mono
// input is returned as-is.
func downmixMono(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	mono := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int32
		for c := 0; c < channels; c++ {
			sum += int32(samples[i*channels+c])
		}
		mono[i] = int16(sum / int32(channels))
	}
	return mono
}
