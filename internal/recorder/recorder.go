// Package recorder drives the push-to-talk state machine: hotkey
// triggers toggle the session, drained audio is handed to a Submitter,
// and the resulting text is delivered to the focused application.
package recorder

import (
	"log"
	"sync"
	"time"

	"github.com/localvoice/whisperd/internal/events"
	"github.com/localvoice/whisperd/internal/session"
)

// Submitter turns a drained recording into text. The production
// implementation posts WAV bytes to the local transcription endpoint.
type Submitter interface {
	Submit(samples []int16, sampleRate uint32) (string, error)
}

// ModelGate reports whether a transcription model is available. A
// recording that cannot be transcribed is refused up front instead of
// failing after the user has spoken.
type ModelGate interface {
	IsLoaded() bool
}

// Deliverer places transcribed text into the active application.
type Deliverer interface {
	Inject(text string) error
}

// Recorder owns the recording lifecycle. Trigger methods are safe to
// call from any goroutine; transcription runs on its own goroutine so
// the hotkey listener is never blocked by inference.
type Recorder struct {
	state   *session.State
	bus     *events.Bus
	gate    ModelGate
	submit  Submitter
	deliver Deliverer

	wg sync.WaitGroup
}

// New creates a Recorder. deliver may be nil to disable text injection.
func New(state *session.State, bus *events.Bus, gate ModelGate, submit Submitter, deliver Deliverer) *Recorder {
	return &Recorder{
		state:   state,
		bus:     bus,
		gate:    gate,
		submit:  submit,
		deliver: deliver,
	}
}

// Toggle flips the recording state: it starts a session when idle and
// finishes one when recording. This is the single entry point for
// toggle-mode hotkeys and tray clicks.
func (r *Recorder) Toggle() {
	dur := r.state.Duration()
	if samples, ok := r.state.End(); ok {
		r.finish(samples, dur)
		return
	}
	r.start()
}

// Press starts a recording session (hold-to-talk key down).
func (r *Recorder) Press() {
	r.start()
}

// Release finishes the recording session (hold-to-talk key up). A
// release without a matching press is ignored.
func (r *Recorder) Release() {
	dur := r.state.Duration()
	if samples, ok := r.state.End(); ok {
		r.finish(samples, dur)
	}
}

// Wait blocks until all in-flight transcriptions have completed.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

func (r *Recorder) start() {
	if !r.gate.IsLoaded() {
		log.Printf("recorder: no model loaded, refusing to record")
		r.bus.Publish(events.TypeNoModelSelected, nil)
		return
	}
	if r.state.Begin() {
		log.Printf("recorder: recording started")
		r.bus.Publish(events.TypeRecordingStart, nil)
	}
}

// finish owns samples; the session has already been drained. dur is
// the wall-clock recording duration read just before the drain.
func (r *Recorder) finish(samples []int16, dur time.Duration) {
	rate := r.state.SampleRate()
	log.Printf("recorder: recording stopped, %d samples at %dHz (%s)",
		len(samples), rate, dur.Round(time.Millisecond))
	r.bus.Publish(events.TypeRecordingStop, map[string]any{
		"samples":     len(samples),
		"sample_rate": rate,
		"duration_ms": dur.Milliseconds(),
	})
	r.bus.Publish(events.TypeTranscriptionStart, nil)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		text, err := r.submit.Submit(samples, rate)
		if err != nil {
			log.Printf("recorder: transcription failed: %v", err)
			r.bus.Publish(events.TypeTranscriptionFailed, err.Error())
			return
		}
		r.bus.Publish(events.TypeTranscriptionComplete, text)

		if r.deliver == nil || text == "" {
			return
		}
		if err := r.deliver.Inject(text); err != nil {
			// The text is already on the event bus; injection is
			// best effort.
			log.Printf("recorder: inject failed: %v", err)
		}
	}()
}
