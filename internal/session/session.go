// Package session holds the shared recording state: the "are we
// recording" flag and the capture buffer that the realtime audio
// callback appends to. One State is created at startup and passed to
// every component that needs it.
package session

import (
	"sync"
	"time"
)

// levelEmitInterval throttles audio-level events to roughly 20 Hz so
// UI updates are decoupled from the audio callback rate.
const levelEmitInterval = 50 * time.Millisecond

// State is the single source of truth for the recording session.
// The flag, buffer and timestamps are mutated together under one lock;
// every critical section is allocation-and-syscall free (beyond buffer
// growth) because Ingest runs on the realtime audio callback.
type State struct {
	mu            sync.Mutex
	recording     bool
	buf           []int16
	sampleRate    uint32
	startedAt     time.Time
	lastLevelEmit time.Time

	now func() time.Time // test seam
}

// New creates a State with the given initial sample rate. The rate is
// overwritten by the capture controller on every stream build.
func New(sampleRate uint32) *State {
	return &State{
		sampleRate: sampleRate,
		now:        time.Now,
	}
}

// Begin starts a recording session. It reports whether the session was
// actually started; calling Begin while already recording is a no-op
// and leaves the in-progress buffer untouched.
func (s *State) Begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recording {
		return false
	}
	s.recording = true
	s.buf = s.buf[:0]
	s.startedAt = s.now()
	return true
}

// End stops the recording session and drains the buffer. The returned
// slice is exclusively owned by the caller; State keeps none of it.
// Calling End while not recording is a no-op reporting false.
func (s *State) End() ([]int16, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.recording {
		return nil, false
	}
	s.recording = false
	drained := s.buf
	s.buf = nil
	s.startedAt = time.Time{}
	return drained, true
}

// IsRecording reports whether a recording session is in progress.
func (s *State) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// Ingest is the realtime-callback entry point. It appends the
// mono-downmixed samples iff a recording is in progress, and decides in
// the same critical section whether a level event is due (at most one
// per 50 ms). It reports the recording flag as seen under the lock and
// whether the caller should emit a level event.
func (s *State) Ingest(mono []int16) (recording, emitLevel bool) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recording {
		s.buf = append(s.buf, mono...)
	}
	if s.lastLevelEmit.IsZero() || now.Sub(s.lastLevelEmit) >= levelEmitInterval {
		s.lastLevelEmit = now
		emitLevel = true
	}
	return s.recording, emitLevel
}

// SetSampleRate records the sample rate of the active capture stream.
func (s *State) SetSampleRate(hz uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sampleRate = hz
}

// SampleRate returns the sample rate of the active capture stream.
func (s *State) SampleRate() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleRate
}

// Duration returns how long the current recording has been running, or
// zero when not recording.
func (s *State) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.recording {
		return 0
	}
	return s.now().Sub(s.startedAt)
}
