// Package levelmeter derives RMS/peak/dB metrics from raw capture
// frames for UI level display.
package levelmeter

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// dbFloor keeps the dB value finite on silence.
const dbFloor = 1e-12

// Levels is one audio-level measurement over a batch of frames.
type Levels struct {
	RMS       float32 `json:"rms"`
	Peak      float32 `json:"peak"`
	DB        float32 `json:"db"`
	Recording bool    `json:"recording"`
}

// Measure computes level metrics from interleaved int16 samples.
// Multi-channel frames are averaged per frame, and values are
// normalized to [-1, 1] by the int16 maximum before RMS and peak are
// taken. A zero channel count or empty batch yields zero levels at the
// dB floor.
func Measure(samples []int16, channels int) Levels {
	mono := monoFloats(samples, channels)
	if len(mono) == 0 {
		return Levels{DB: float32(20 * math.Log10(dbFloor))}
	}

	sumSquares := floats.Dot(mono, mono)
	rms := math.Sqrt(sumSquares / float64(len(mono)))

	var peak float64
	for _, v := range mono {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}

	db := 20 * math.Log10(math.Max(rms, dbFloor))
	return Levels{
		RMS:  float32(rms),
		Peak: float32(peak),
		DB:   float32(db),
	}
}

// monoFloats averages each interleaved frame across channels and
// normalizes to [-1, 1]. A trailing partial frame is ignored.
func monoFloats(samples []int16, channels int) []float64 {
	if channels <= 0 || len(samples) < channels {
		return nil
	}

	const maxI16 = float64(math.MaxInt16)
	frames := len(samples) / channels
	mono := make([]float64, frames)

	if channels == 1 {
		for i, s := range samples[:frames] {
			mono[i] = float64(s) / maxI16
		}
		return mono
	}

	for i := 0; i < frames; i++ {
		var sum int32
		for c := 0; c < channels; c++ {
			sum += int32(samples[i*channels+c])
		}
		mono[i] = float64(sum) / (float64(channels) * maxI16)
	}
	return mono
}
