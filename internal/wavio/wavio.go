// Package wavio encodes drained recordings as mono 16-bit PCM WAV,
// both in memory for submission to the transcription endpoint and as
// the per-recording debug artifact on disk.
package wavio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Encode renders samples as a mono 16-bit PCM WAV byte slice.
func Encode(samples []int16, sampleRate uint32) ([]byte, error) {
	buf := &writeSeekBuffer{}
	enc := wav.NewEncoder(buf, int(sampleRate), 16, 1, 1)

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	if err := enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: int(sampleRate)},
		Data:           data,
		SourceBitDepth: 16,
	}); err != nil {
		return nil, fmt.Errorf("wavio: writing samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("wavio: finalizing wav: %w", err)
	}
	return buf.bytes, nil
}

// SaveRecording writes the debug WAV artifact for a completed
// recording into dir, named by the capture epoch-millisecond timestamp
// and sample rate. It returns the written path.
func SaveRecording(dir string, wavBytes []byte, sampleRate uint32) (string, error) {
	if len(wavBytes) == 0 {
		return "", fmt.Errorf("wavio: no data to save")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("wavio: creating recordings dir: %w", err)
	}
	name := fmt.Sprintf("rec_%d_%dhz.wav", time.Now().UnixMilli(), sampleRate)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, wavBytes, 0o644); err != nil {
		return "", fmt.Errorf("wavio: writing %s: %w", path, err)
	}
	return path, nil
}

// writeSeekBuffer is an in-memory io.WriteSeeker; the wav encoder
// seeks back to patch chunk sizes on Close.
type writeSeekBuffer struct {
	bytes []byte
	pos   int
}

func (b *writeSeekBuffer) Write(p []byte) (int, error) {
	if end := b.pos + len(p); end > len(b.bytes) {
		grown := make([]byte, end)
		copy(grown, b.bytes)
		b.bytes = grown
	}
	copy(b.bytes[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

func (b *writeSeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(b.pos) + offset
	case io.SeekEnd:
		next = int64(len(b.bytes)) + offset
	default:
		return 0, fmt.Errorf("wavio: invalid whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("wavio: negative seek position %d", next)
	}
	b.pos = int(next)
	return next, nil
}
