// Package model owns the swappable handle to the loaded whisper model.
// Transcription requests take a reference-counted snapshot so a reload
// never invalidates a request already in flight.
package model

import (
	"fmt"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// Snapshot is an independently valid reference to a loaded model.
// Callers obtain one via Holder.Current and must call Release when the
// request using it is finished; the underlying model is closed once the
// holder has replaced it and the last reference is released.
type Snapshot struct {
	mu    sync.Mutex
	model whisper.Model
	path  string
	refs  int
}

// Model returns the wrapped whisper model.
func (s *Snapshot) Model() whisper.Model { return s.model }

// Path returns the filesystem path the model was loaded from.
func (s *Snapshot) Path() string { return s.path }

func (s *Snapshot) acquire() {
	s.mu.Lock()
	s.refs++
	s.mu.Unlock()
}

// Release drops one reference. The model is closed when the reference
// count reaches zero, which can only happen after the holder has
// swapped the snapshot out.
func (s *Snapshot) Release() {
	s.mu.Lock()
	s.refs--
	closeNow := s.refs == 0
	s.mu.Unlock()
	if closeNow {
		s.model.Close()
	}
}

// Holder is the concurrently readable slot for the current model.
// Readers and the loader only contend on a pointer swap.
type Holder struct {
	mu      sync.RWMutex
	current *Snapshot
}

// NewHolder returns an empty Holder; no model is loaded.
func NewHolder() *Holder {
	return &Holder{}
}

// Load constructs a model from path and, on success, atomically
// installs it as the current snapshot. On failure the previously loaded
// model (if any) is left untouched. The replaced snapshot is closed
// once its last in-flight user releases it.
func (h *Holder) Load(path string) error {
	m, err := whisper.New(path)
	if err != nil {
		return fmt.Errorf("model: load %q: %w", path, err)
	}

	// The holder itself owns one reference to the installed snapshot.
	snap := &Snapshot{model: m, path: path, refs: 1}

	h.mu.Lock()
	old := h.current
	h.current = snap
	h.mu.Unlock()

	if old != nil {
		old.Release()
	}
	return nil
}

// Current returns a snapshot of the installed model, or nil when none
// is loaded. The caller must Release the snapshot when done.
func (h *Holder) Current() *Snapshot {
	h.mu.RLock()
	snap := h.current
	if snap != nil {
		snap.acquire()
	}
	h.mu.RUnlock()
	return snap
}

// IsLoaded reports whether a model is currently installed.
func (h *Holder) IsLoaded() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current != nil
}

// Path returns the path of the currently installed model, or "".
func (h *Holder) Path() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return ""
	}
	return h.current.path
}

// Close releases the holder's reference to the current model, if any.
func (h *Holder) Close() {
	h.mu.Lock()
	old := h.current
	h.current = nil
	h.mu.Unlock()

	if old != nil {
		old.Release()
	}
}
