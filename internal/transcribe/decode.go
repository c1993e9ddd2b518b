package transcribe

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/wav"
)

// WAV format codes from the fmt chunk.
const (
	wavFormatPCM       = 1
	wavFormatIEEEFloat = 3
)

// decodeWAV parses a WAV container into mono float32 samples in
// [-1, 1] plus the source sample rate. Integer PCM of 8/16/24/32 bits
// and 32-bit IEEE float are supported; multi-channel input is averaged
// per frame into mono.
func decodeWAV(wavBytes []byte) ([]float32, uint32, error) {
	d := wav.NewDecoder(bytes.NewReader(wavBytes))
	if !d.IsValidFile() {
		return nil, 0, fmt.Errorf("%w: not a valid WAV container", ErrInvalidAudio)
	}

	channels := int(d.NumChans)
	if channels == 0 {
		return nil, 0, fmt.Errorf("%w: zero channels", ErrInvalidAudio)
	}
	rate := d.SampleRate

	if d.WavAudioFormat == wavFormatIEEEFloat {
		mono, err := decodeFloatSamples(d, channels)
		if err != nil {
			return nil, 0, err
		}
		return mono, rate, nil
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: reading PCM samples: %v", ErrInvalidAudio, err)
	}

	// Normalize by the format's maximum magnitude: int16 for depths up
	// to 16 bits, int32 beyond that. Downmix averages the already
	// normalized per-channel values.
	scale := float32(math.MaxInt16)
	if d.BitDepth > 16 {
		scale = float32(math.MaxInt32)
	}

	frames := len(buf.Data) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += float32(buf.Data[i*channels+c]) / scale
		}
		mono[i] = sum / float32(channels)
	}
	return mono, rate, nil
}

// decodeFloatSamples reads the data chunk of a 32-bit IEEE float WAV
// and downmixes it to mono.
func decodeFloatSamples(d *wav.Decoder, channels int) ([]float32, error) {
	if d.BitDepth != 32 {
		return nil, fmt.Errorf("%w: unsupported float bit depth %d", ErrInvalidAudio, d.BitDepth)
	}
	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: locating data chunk: %v", ErrInvalidAudio, err)
	}

	raw := make([]byte, d.PCMChunk.Size)
	if _, err := io.ReadFull(d.PCMChunk, raw); err != nil {
		return nil, fmt.Errorf("%w: reading float samples: %v", ErrInvalidAudio, err)
	}

	sampleCount := len(raw) / 4
	frames := sampleCount / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			bits := binary.LittleEndian.Uint32(raw[(i*channels+c)*4:])
			sum += math.Float32frombits(bits)
		}
		mono[i] = sum / float32(channels)
	}
	return mono, nil
}

// resampleLinear converts input from srcRate to dstRate by linear
// interpolation. It is the identity for matching rates or empty input.
// Output length is round(len(input) * dstRate / srcRate).
func resampleLinear(input []float32, srcRate, dstRate uint32) []float32 {
	if len(input) == 0 || srcRate == dstRate {
		return input
	}

	ratio := float64(dstRate) / float64(srcRate)
	outLen := int(math.Round(float64(len(input)) * ratio))
	out := make([]float32, outLen)
	for i := 0; i < outLen; i++ {
		pos := float64(i) / ratio
		i0 := int(pos)
		i1 := i0 + 1
		if i1 > len(input)-1 {
			i1 = len(input) - 1
		}
		frac := float32(pos - float64(i0))
		out[i] = input[i0]*(1-frac) + input[i1]*frac
	}
	return out
}
