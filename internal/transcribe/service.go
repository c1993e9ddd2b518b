// Package transcribe converts WAV payloads to text through the loaded
// whisper model: decode, mono downmix, resample to the model rate, run
// beam-search inference and collect segments, with each stage timed.
package transcribe

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/localvoice/whisperd/internal/model"
)

// ErrInvalidAudio marks a malformed WAV payload: bad container, zero
// channels, unsupported encoding or a corrupt sample stream. It is
// terminal for the request and never retried.
var ErrInvalidAudio = errors.New("transcribe: invalid audio format")

// beamSize is the fixed beam width for decoding.
const beamSize = 5

// Timings holds per-stage durations for one transcription request.
type Timings struct {
	SampleToMonoMs    int64 `json:"sample_to_mono_ms"`
	ResampleMs        int64 `json:"resample_ms"`
	CreateStateMs     int64 `json:"create_state_ms"`
	InferenceMs       int64 `json:"inference_ms"`
	CollectSegmentsMs int64 `json:"collect_segments_ms"`
	TotalMs           int64 `json:"total_ms"`
}

// BackendInfo describes which compute path the engine is using.
type BackendInfo struct {
	TargetOS               string `json:"target_os"`
	GGMLMetalPathResources string `json:"ggml_metal_path_resources,omitempty"`
	MetallibPresent        bool   `json:"metallib_present"`
	LikelyUsingMetal       bool   `json:"likely_using_metal"`
	ModelPath              string `json:"model_path"`
}

// Backend reports the compute-path diagnostics for the given model.
func Backend(modelPath string) BackendInfo {
	resources := os.Getenv("GGML_METAL_PATH_RESOURCES")
	metallib := false
	if resources != "" {
		_, err := os.Stat(filepath.Join(resources, "default.metallib"))
		metallib = err == nil
	}
	return BackendInfo{
		TargetOS:               runtime.GOOS,
		GGMLMetalPathResources: resources,
		MetallibPresent:        metallib,
		LikelyUsingMetal:       runtime.GOOS == "darwin" && metallib,
		ModelPath:              modelPath,
	}
}

// Request carries the optional decoding hints for one transcription.
type Request struct {
	Language      string
	InitialPrompt string
}

// Service runs transcription requests against model snapshots. It is
// stateless; concurrent requests each use their own snapshot and
// whisper context.
type Service struct{}

// NewService returns a transcription Service.
func NewService() *Service {
	return &Service{}
}

// Transcribe decodes wavBytes, normalizes the audio to mono float32 at
// the model sample rate, and runs inference on the given snapshot.
// Whether a model is loaded at all is the caller's check; snap must be
// non-nil.
func (s *Service) Transcribe(snap *model.Snapshot, wavBytes []byte, req Request) (string, Timings, error) {
	var tm Timings
	tTotal := time.Now()

	t := time.Now()
	mono, srcRate, err := decodeWAV(wavBytes)
	if err != nil {
		return "", tm, err
	}
	tm.SampleToMonoMs = time.Since(t).Milliseconds()

	t = time.Now()
	samples := resampleLinear(mono, srcRate, whisper.SampleRate)
	tm.ResampleMs = time.Since(t).Milliseconds()

	t = time.Now()
	ctx, err := snap.Model().NewContext()
	if err != nil {
		return "", tm, fmt.Errorf("transcribe: create context: %w", err)
	}
	tm.CreateStateMs = time.Since(t).Milliseconds()

	ctx.SetBeamSize(beamSize)
	if req.Language != "" {
		if err := ctx.SetLanguage(req.Language); err != nil {
			return "", tm, fmt.Errorf("transcribe: set language %q: %w", req.Language, err)
		}
	}
	if req.InitialPrompt != "" {
		ctx.SetInitialPrompt(req.InitialPrompt)
	}

	t = time.Now()
	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return "", tm, fmt.Errorf("transcribe: process: %w", err)
	}
	tm.InferenceMs = time.Since(t).Milliseconds()

	t = time.Now()
	var segments []string
	for {
		seg, err := ctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", tm, fmt.Errorf("transcribe: next segment: %w", err)
		}
		segments = append(segments, seg.Text)
	}
	text := joinSegments(segments)
	tm.CollectSegmentsMs = time.Since(t).Milliseconds()

	tm.TotalMs = time.Since(tTotal).Milliseconds()
	return text, tm, nil
}

// joinSegments trims each segment and joins the non-empty ones with
// single spaces.
func joinSegments(segments []string) string {
	var b strings.Builder
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(seg)
	}
	return b.String()
}
