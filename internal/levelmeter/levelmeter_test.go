package levelmeter

import (
	"math"
	"testing"
)

func TestMeasureSilence(t *testing.T) {
	lv := Measure(make([]int16, 1024), 1)

	if lv.RMS != 0 {
		t.Errorf("RMS = %v, want 0", lv.RMS)
	}
	if lv.Peak != 0 {
		t.Errorf("Peak = %v, want 0", lv.Peak)
	}

	wantDB := float32(20 * math.Log10(1e-12))
	if lv.DB != wantDB {
		t.Errorf("DB = %v, want floor %v", lv.DB, wantDB)
	}
	if math.IsInf(float64(lv.DB), 0) || math.IsNaN(float64(lv.DB)) {
		t.Errorf("DB = %v, must be finite", lv.DB)
	}
}

func TestMeasureFullScaleSquareWave(t *testing.T) {
	samples := make([]int16, 2000)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = math.MaxInt16
		} else {
			samples[i] = -math.MaxInt16
		}
	}

	lv := Measure(samples, 1)
	if math.Abs(float64(lv.RMS)-1.0) > 1e-4 {
		t.Errorf("RMS = %v, want ~1.0", lv.RMS)
	}
	if math.Abs(float64(lv.Peak)-1.0) > 1e-6 {
		t.Errorf("Peak = %v, want 1.0", lv.Peak)
	}
	if math.Abs(float64(lv.DB)) > 1e-3 {
		t.Errorf("DB = %v, want ~0", lv.DB)
	}
}

func TestMeasureStereoDownmix(t *testing.T) {
	// Opposite-phase stereo frames cancel when averaged per frame.
	samples := []int16{16000, -16000, 16000, -16000}
	lv := Measure(samples, 2)

	if lv.RMS != 0 {
		t.Errorf("RMS = %v, want 0 for phase-cancelled stereo", lv.RMS)
	}

	// Identical channels must measure the same as the mono signal.
	stereo := []int16{8000, 8000, -8000, -8000}
	mono := []int16{8000, -8000}
	got := Measure(stereo, 2)
	want := Measure(mono, 1)
	if math.Abs(float64(got.RMS-want.RMS)) > 1e-6 {
		t.Errorf("stereo RMS = %v, mono RMS = %v, want equal", got.RMS, want.RMS)
	}
}

func TestMeasureDegenerateInput(t *testing.T) {
	for _, channels := range []int{0, -1} {
		lv := Measure([]int16{1, 2, 3}, channels)
		if lv.RMS != 0 || lv.Peak != 0 {
			t.Errorf("channels=%d: got RMS=%v Peak=%v, want zeros", channels, lv.RMS, lv.Peak)
		}
	}
	if lv := Measure(nil, 1); lv.RMS != 0 {
		t.Errorf("empty batch RMS = %v, want 0", lv.RMS)
	}
}
