// Package hotkey runs the global key listener that drives the
// recording trigger. Hold mode maps key down/up to press/release;
// toggle mode flips the recording state on each press.
package hotkey

import (
	"sync"

	hook "github.com/robotn/gohook"
)

// Trigger is the recording control surface the hotkey drives.
type Trigger interface {
	Toggle()
	Press()
	Release()
}

// Listener registers a global key combo and forwards activations to a
// Trigger.
type Listener struct {
	keys []string
	mode string // "hold" or "toggle"
	trig Trigger
	done chan struct{}
	once sync.Once
}

// NewListener creates a Listener for the given key combo and mode.
// keys are lowercase key names (e.g. ["ctrl", "shift", "space"]).
func NewListener(keys []string, mode string, trig Trigger) *Listener {
	return &Listener{
		keys: keys,
		mode: mode,
		trig: trig,
		done: make(chan struct{}),
	}
}

// Run installs the hooks and blocks until Stop is called. The gohook
// event loop must run on its own goroutine.
func (l *Listener) Run() {
	switch l.mode {
	case "toggle":
		hook.Register(hook.KeyDown, l.keys, func(hook.Event) {
			l.trig.Toggle()
		})
	default: // "hold"
		hook.Register(hook.KeyDown, l.keys, func(hook.Event) {
			l.trig.Press()
		})
		hook.Register(hook.KeyUp, l.keys, func(hook.Event) {
			l.trig.Release()
		})
	}

	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	<-hook.Process(evChan)
}

// Stop terminates the listener. Safe to call more than once.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}
