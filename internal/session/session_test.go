package session

import (
	"sync"
	"testing"
	"time"
)

func TestBeginEndDrain(t *testing.T) {
	s := New(16000)

	if !s.Begin() {
		t.Fatal("Begin() = false, want true")
	}
	if !s.IsRecording() {
		t.Fatal("IsRecording() = false after Begin")
	}

	s.Ingest([]int16{1, 2, 3})
	s.Ingest([]int16{4, 5})

	got, ok := s.End()
	if !ok {
		t.Fatal("End() ok = false while recording")
	}
	want := []int16{1, 2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("End() returned %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("End()[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	if s.IsRecording() {
		t.Error("IsRecording() = true after End")
	}
	// Buffer must be empty immediately after a drain.
	if again, ok := s.End(); ok || again != nil {
		t.Errorf("second End() = %d samples, ok=%v, want none", len(again), ok)
	}
}

func TestEndWithoutBegin(t *testing.T) {
	s := New(16000)
	if got, ok := s.End(); ok || got != nil {
		t.Errorf("End() without Begin returned %d samples, ok=%v", len(got), ok)
	}
}

func TestBeginWhileRecordingKeepsBuffer(t *testing.T) {
	s := New(16000)
	s.Begin()
	s.Ingest([]int16{7, 8})

	if s.Begin() {
		t.Error("Begin() while recording = true, want false")
	}

	got, _ := s.End()
	if len(got) != 2 || got[0] != 7 || got[1] != 8 {
		t.Errorf("End() = %v, want [7 8]", got)
	}
}

func TestIngestDropsWhenNotRecording(t *testing.T) {
	s := New(16000)

	recording, _ := s.Ingest([]int16{1, 2, 3})
	if recording {
		t.Error("Ingest reported recording=true while idle")
	}

	s.Begin()
	got, _ := s.End()
	if len(got) != 0 {
		t.Errorf("buffer contains %d samples ingested while idle, want 0", len(got))
	}
}

func TestIngestAccumulatesStreamedFrames(t *testing.T) {
	// Two seconds of audio delivered as 10ms callback batches must
	// drain to exactly the delivered sample count.
	s := New(16000)
	s.Begin()

	frame := make([]int16, 160) // 10ms at 16kHz
	for i := 0; i < 200; i++ {
		s.Ingest(frame)
	}

	got, ok := s.End()
	if !ok {
		t.Fatal("End() ok = false while recording")
	}
	if len(got) != 2*16000 {
		t.Errorf("drained %d samples, want %d", len(got), 2*16000)
	}
}

func TestDuration(t *testing.T) {
	s := New(16000)
	now := time.Unix(0, 0)
	s.now = func() time.Time { return now }

	if d := s.Duration(); d != 0 {
		t.Errorf("Duration() = %v while idle, want 0", d)
	}

	s.Begin()
	now = now.Add(1500 * time.Millisecond)
	if d := s.Duration(); d != 1500*time.Millisecond {
		t.Errorf("Duration() = %v, want 1.5s", d)
	}

	s.End()
	if d := s.Duration(); d != 0 {
		t.Errorf("Duration() = %v after End, want 0", d)
	}
}

func TestLevelEmitThrottle(t *testing.T) {
	s := New(16000)
	now := time.Unix(0, 0)
	s.now = func() time.Time { return now }

	_, emit := s.Ingest(nil)
	if !emit {
		t.Fatal("first Ingest should emit a level event")
	}

	now = now.Add(10 * time.Millisecond)
	if _, emit := s.Ingest(nil); emit {
		t.Error("Ingest 10ms after last emit should not emit")
	}

	now = now.Add(45 * time.Millisecond)
	if _, emit := s.Ingest(nil); !emit {
		t.Error("Ingest 55ms after last emit should emit")
	}
}

func TestConcurrentIngestAndToggle(t *testing.T) {
	s := New(16000)
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		frame := []int16{1, 2, 3, 4}
		for {
			select {
			case <-done:
				return
			default:
				s.Ingest(frame)
			}
		}
	}()

	for i := 0; i < 200; i++ {
		s.Begin()
		got, _ := s.End()
		// Drained length must always be a whole number of frames: no
		// append may interleave with a drain.
		if len(got)%4 != 0 {
			t.Fatalf("drained %d samples, not a multiple of the frame size", len(got))
		}
	}
	close(done)
	wg.Wait()
}

func TestSampleRate(t *testing.T) {
	s := New(16000)
	if s.SampleRate() != 16000 {
		t.Errorf("SampleRate() = %d, want 16000", s.SampleRate())
	}
	s.SetSampleRate(48000)
	if s.SampleRate() != 48000 {
		t.Errorf("SampleRate() = %d, want 48000", s.SampleRate())
	}
}
