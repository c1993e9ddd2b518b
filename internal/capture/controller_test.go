package capture

import (
	"testing"

	"github.com/localvoice/whisperd/internal/events"
	"github.com/localvoice/whisperd/internal/session"
)

func TestDataCallbackSkipsEmptyBatch(t *testing.T) {
	bus := events.NewBus()
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	c := &Controller{state: session.New(16000), bus: bus}
	cb := c.dataCallback(EncodingS16, 1)

	cb(nil, nil, 0)
	select {
	case ev := <-sub:
		t.Fatalf("empty batch published a %q event", ev.Type)
	default:
	}

	// The first non-empty batch emits a level event unthrottled.
	cb(nil, []byte{0x00, 0x10}, 1)
	select {
	case ev := <-sub:
		if ev.Type != events.TypeAudioLevel {
			t.Errorf("event type = %q, want %q", ev.Type, events.TypeAudioLevel)
		}
	default:
		t.Fatal("non-empty batch published no level event")
	}
}

func TestDataCallbackBuffersWhileRecording(t *testing.T) {
	state := session.New(16000)
	c := &Controller{state: state, bus: events.NewBus()}
	cb := c.dataCallback(EncodingS16, 1)

	state.Begin()
	cb(nil, []byte{0x01, 0x00, 0x02, 0x00}, 2)

	got, ok := state.End()
	if !ok {
		t.Fatal("End() ok = false while recording")
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("buffered samples = %v, want [1 2]", got)
	}
}
