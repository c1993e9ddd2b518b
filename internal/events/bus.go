// Package events fans lifecycle and audio-level signals out to
// subscribers (the websocket route, tests, future tray code). Publish
// never blocks: the realtime audio path posts level events here.
package events

import "sync"

// Event types published by the recording and transcription pipeline.
const (
	TypeRecordingStart        = "recording-start"
	TypeRecordingStop         = "recording-stop"
	TypeTranscriptionStart    = "transcription-start"
	TypeTranscriptionComplete = "transcription-complete"
	TypeTranscriptionFailed   = "transcription-failed"
	TypeNoModelSelected       = "no-model-selected"
	TypeAudioLevel            = "audio-level"
	TypeModelDownloadStart    = "model-download-start"
	TypeModelDownloadProgress = "model-download-progress"
	TypeModelDownloadComplete = "model-download-complete"
	TypeModelDownloadError    = "model-download-error"
)

// Event is one signal on the bus.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Bus is a non-blocking fan-out of Events to subscriber channels.
type Bus struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a buffered channel that receives published
// events. Events are dropped for subscribers whose buffer is full.
func (b *Bus) Subscribe() chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish delivers an event to every subscriber without blocking.
func (b *Bus) Publish(typ string, data any) {
	ev := Event{Type: typ, Data: data}
	b.mu.Lock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default: // slow subscriber, drop
		}
	}
	b.mu.Unlock()
}
