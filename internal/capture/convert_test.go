package capture

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestDecodeS16(t *testing.T) {
	data := make([]byte, 6)
	binary.LittleEndian.PutUint16(data[0:], uint16(math.MaxInt16))
	binary.LittleEndian.PutUint16(data[2:], 0)
	binary.LittleEndian.PutUint16(data[4:], 0x8000) // -32768

	got := EncodingS16.decode(data)
	want := []int16{math.MaxInt16, 0, math.MinInt16}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("decode[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestDecodeU16ShiftsMidpoint(t *testing.T) {
	data := make([]byte, 6)
	binary.LittleEndian.PutUint16(data[0:], 32768) // midpoint -> 0
	binary.LittleEndian.PutUint16(data[2:], 0)     // min -> -32768
	binary.LittleEndian.PutUint16(data[4:], 65535) // max -> 32767

	got := EncodingU16.decode(data)
	want := []int16{0, math.MinInt16, math.MaxInt16}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("decode[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestDecodeF32ScalesBySignedMax(t *testing.T) {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:], math.Float32bits(1.0))
	binary.LittleEndian.PutUint32(data[4:], math.Float32bits(0))
	binary.LittleEndian.PutUint32(data[8:], math.Float32bits(-0.5))

	got := EncodingF32.decode(data)
	if got[0] != math.MaxInt16 {
		t.Errorf("decode[0] = %d, want %d", got[0], math.MaxInt16)
	}
	if got[1] != 0 {
		t.Errorf("decode[1] = %d, want 0", got[1])
	}
	half := float32(-0.5)
	if want := int16(half * math.MaxInt16); got[2] != want {
		t.Errorf("decode[2] = %d, want %d", got[2], want)
	}
}

func TestDecodeDropsPartialSample(t *testing.T) {
	if got := EncodingS16.decode([]byte{1, 2, 3}); len(got) != 1 {
		t.Errorf("decode of 3 bytes yielded %d samples, want 1", len(got))
	}
	if got := EncodingF32.decode([]byte{1, 2, 3}); len(got) != 0 {
		t.Errorf("decode of 3 bytes yielded %d samples, want 0", len(got))
	}
}

func TestDownmixMono(t *testing.T) {
	stereo := []int16{100, 200, -100, 100}
	got := downmixMono(stereo, 2)
	want := []int16{150, 0}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("mono[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	// Mono passes through untouched.
	mono := []int16{1, 2, 3}
	if got := downmixMono(mono, 1); &got[0] != &mono[0] {
		t.Error("downmixMono copied a mono batch")
	}
}

func TestMatchDevice(t *testing.T) {
	entries := []deviceEntry{
		{name: "MacBook Pro Microphone"},
		{name: "External USB Mic"},
		{name: "Mic"},
	}

	tests := []struct {
		query     string
		wantIndex int // index into entries, -1 for no match
	}{
		{"mic", 2}, // exact beats substring
		{"external usb mic", 1},
		{"macbook", 0},
		{"AirPods", -1},
	}
	for _, tt := range tests {
		id, ok := matchDevice(entries, tt.query)
		if tt.wantIndex < 0 {
			if ok || id != nil {
				t.Errorf("matchDevice(%q) matched, want no match", tt.query)
			}
			continue
		}
		if !ok {
			t.Errorf("matchDevice(%q) found no match, want %q", tt.query, entries[tt.wantIndex].name)
			continue
		}
		if id != &entries[tt.wantIndex].id {
			t.Errorf("matchDevice(%q) matched the wrong entry", tt.query)
		}
	}
}
