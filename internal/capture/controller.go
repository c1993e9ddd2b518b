// Package capture owns the live microphone input stream. A dedicated
// worker goroutine holds the malgo device; every external intent (pick
// a different input device, retry after a failure) arrives as a rebuild
// command on its queue, so the stream handle is never shared across
// threads.
package capture

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/localvoice/whisperd/internal/events"
	"github.com/localvoice/whisperd/internal/levelmeter"
	"github.com/localvoice/whisperd/internal/session"
)

// Config sets the requested stream parameters. The controller records
// the negotiated sample rate into the session state on every build.
type Config struct {
	SampleRate uint32
	Channels   uint32
}

type rebuild struct {
	device string
}

// Controller runs the capture worker. It stays alive with no active
// stream when the device is unavailable and retries on the next
// rebuild command.
type Controller struct {
	ctx   *malgo.AllocatedContext
	state *session.State
	bus   *events.Bus
	cfg   Config

	cmds chan rebuild
	quit chan struct{}
	wg   sync.WaitGroup
}

// NewController initializes the audio context and starts the worker
// with the given preferred device name ("" means system default).
func NewController(state *session.State, bus *events.Bus, cfg Config, initialDevice string) (*Controller, error) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels == 0 {
		cfg.Channels = 1
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("capture: initializing audio context: %w", err)
	}

	c := &Controller{
		ctx:   mctx,
		state: state,
		bus:   bus,
		cfg:   cfg,
		cmds:  make(chan rebuild, 4),
		quit:  make(chan struct{}),
	}

	c.wg.Add(1)
	go c.run(initialDevice)
	return c, nil
}

// SetDevice asks the worker to rebuild the stream on the named input
// device; an empty name selects the system default.
func (c *Controller) SetDevice(name string) error {
	select {
	case c.cmds <- rebuild{device: name}:
		return nil
	case <-c.quit:
		return fmt.Errorf("capture: controller stopped")
	}
}

// Devices returns the names of the available input devices. A failed
// enumeration yields an empty list.
func (c *Controller) Devices() []string {
	infos, err := c.ctx.Devices(malgo.Capture)
	if err != nil {
		log.Printf("capture: device enumeration failed: %v", err)
		return nil
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names
}

// Close stops the worker and releases the stream and audio context.
func (c *Controller) Close() error {
	close(c.quit)
	c.wg.Wait()
	if err := c.ctx.Uninit(); err != nil {
		return fmt.Errorf("capture: uninitializing audio context: %w", err)
	}
	c.ctx.Free()
	return nil
}

// run is the worker loop. It exclusively owns the device handle.
func (c *Controller) run(device string) {
	defer c.wg.Done()

	stream := c.tryBuild(device)
	for {
		select {
		case cmd := <-c.cmds:
			if stream != nil {
				stream.Uninit()
			}
			stream = c.tryBuild(cmd.device)
		case <-c.quit:
			if stream != nil {
				stream.Uninit()
			}
			return
		}
	}
}

// tryBuild builds and starts a stream, logging instead of failing the
// worker when no usable device or encoding is available.
func (c *Controller) tryBuild(device string) *malgo.Device {
	stream, enc, err := c.buildStream(device)
	if err != nil {
		log.Printf("capture: building input stream: %v", err)
		return nil
	}
	log.Printf("capture: input stream running (device=%q encoding=%s rate=%d)",
		device, enc, c.cfg.SampleRate)
	return stream
}

// buildStream resolves the device, negotiates one of the supported
// encodings and starts the input stream. The sample rate is recorded
// into the session state before the first callback can fire.
func (c *Controller) buildStream(device string) (*malgo.Device, Encoding, error) {
	id := c.resolveDevice(device)

	var lastErr error
	for _, enc := range []Encoding{EncodingS16, EncodingF32, EncodingU16} {
		format, ok := enc.malgoFormat()
		if !ok {
			continue
		}

		deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
		deviceConfig.Capture.Format = format
		deviceConfig.Capture.Channels = c.cfg.Channels
		deviceConfig.SampleRate = c.cfg.SampleRate
		deviceConfig.Alsa.NoMMap = 1
		if id != nil {
			deviceConfig.Capture.DeviceID = id.Pointer()
		}

		c.state.SetSampleRate(c.cfg.SampleRate)

		callbacks := malgo.DeviceCallbacks{
			Data: c.dataCallback(enc, int(c.cfg.Channels)),
		}
		dev, err := malgo.InitDevice(c.ctx.Context, deviceConfig, callbacks)
		if err != nil {
			lastErr = fmt.Errorf("capture: init device (%s): %w", enc, err)
			continue
		}
		if err := dev.Start(); err != nil {
			dev.Uninit()
			lastErr = fmt.Errorf("capture: start device (%s): %w", enc, err)
			continue
		}
		return dev, enc, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("capture: no supported sample encoding")
	}
	return nil, 0, lastErr
}

// dataCallback returns the realtime callback for one stream build. The
// encoding dispatch happens here, once; the callback itself only
// converts, meters and hands the frames to the session state. It must
// never block.
func (c *Controller) dataCallback(enc Encoding, channels int) malgo.DataProc {
	return func(_, input []byte, frameCount uint32) {
		samples := enc.decode(input)
		if len(samples) == 0 {
			return
		}
		mono := downmixMono(samples, channels)

		lv := levelmeter.Measure(samples, channels)
		recording, emit := c.state.Ingest(mono)
		if emit {
			lv.Recording = recording
			c.bus.Publish(events.TypeAudioLevel, lv)
		}
	}
}

// resolveDevice matches a preferred device name against the available
// capture devices, falling back to the system default (nil) when the
// name is empty or not found.
func (c *Controller) resolveDevice(name string) *malgo.DeviceID {
	if name == "" {
		return nil
	}
	infos, err := c.ctx.Devices(malgo.Capture)
	if err != nil {
		log.Printf("capture: device enumeration failed, using default: %v", err)
		return nil
	}
	entries := make([]deviceEntry, len(infos))
	for i := range infos {
		entries[i] = deviceEntry{id: infos[i].ID, name: infos[i].Name()}
	}
	if id, ok := matchDevice(entries, name); ok {
		return id
	}
	log.Printf("capture: device %q not found, using default", name)
	return nil
}

type deviceEntry struct {
	id   malgo.DeviceID
	name string
}

// matchDevice finds a device whose name contains the wanted name,
// case-insensitively. An exact match wins over a substring match.
func matchDevice(entries []deviceEntry, name string) (*malgo.DeviceID, bool) {
	want := strings.ToLower(name)
	var partial *malgo.DeviceID
	for i := range entries {
		have := strings.ToLower(entries[i].name)
		if have == want {
			return &entries[i].id, true
		}
		if partial == nil && strings.Contains(have, want) {
			partial = &entries[i].id
		}
	}
	return partial, partial != nil
}
