// Package models manages the on-disk Whisper model catalog: listing
// what is downloaded, fetching ggml files from HuggingFace with
// progress events, and loading a downloaded model into the holder.
package models

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/localvoice/whisperd/internal/events"
	"github.com/localvoice/whisperd/internal/model"
)

const hfBase = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// progressInterval throttles download-progress events.
const progressInterval = 500 * time.Millisecond

// Info describes one catalog entry.
type Info struct {
	Name   string `json:"name"`
	File   string `json:"file"`
	SizeMB int    `json:"size_mb"`
}

// Catalog lists the models the app offers for download.
var Catalog = []Info{
	{Name: "large-v3-turbo", File: "ggml-large-v3-turbo.bin", SizeMB: 1624},
	{Name: "large-v3-turbo-q5_0", File: "ggml-large-v3-turbo-q5_0.bin", SizeMB: 574},
	{Name: "base.en", File: "ggml-base.en.bin", SizeMB: 148},
}

// Status is a catalog entry joined with its on-disk state.
type Status struct {
	Info
	Downloaded bool   `json:"downloaded"`
	Path       string `json:"path,omitempty"`
}

// Manager downloads and loads models from a single models directory.
type Manager struct {
	dir     string
	holder  *model.Holder
	bus     *events.Bus
	httpc   *http.Client
	baseURL string
}

// NewManager creates a Manager rooted at dir. holder may be nil when
// only downloads are needed.
func NewManager(dir string, holder *model.Holder, bus *events.Bus) *Manager {
	return &Manager{
		dir:     dir,
		holder:  holder,
		bus:     bus,
		httpc:   &http.Client{},
		baseURL: hfBase,
	}
}

// Status reports every catalog entry with whether its file is present
// in the models directory.
func (m *Manager) Status() []Status {
	out := make([]Status, 0, len(Catalog))
	for _, info := range Catalog {
		st := Status{Info: info}
		path := filepath.Join(m.dir, info.File)
		if fi, err := os.Stat(path); err == nil && fi.Size() > 0 {
			st.Downloaded = true
			st.Path = path
		}
		out = append(out, st)
	}
	return out
}

// Path returns the on-disk path a catalog model would occupy, whether
// or not it is downloaded.
func (m *Manager) Path(name string) (string, error) {
	info, ok := lookup(name)
	if !ok {
		return "", fmt.Errorf("models: unknown model %q", name)
	}
	return filepath.Join(m.dir, info.File), nil
}

// Download fetches the named model into the models directory and
// returns its path. An already-downloaded model is returned as is.
// Progress is published on the event bus; a partial file never
// occupies the final path.
func (m *Manager) Download(name string) (string, error) {
	info, ok := lookup(name)
	if !ok {
		return "", fmt.Errorf("models: unknown model %q", name)
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("models: creating models dir: %w", err)
	}

	dest := filepath.Join(m.dir, info.File)
	if fi, err := os.Stat(dest); err == nil && fi.Size() > 0 {
		return dest, nil
	}

	m.bus.Publish(events.TypeModelDownloadStart, map[string]any{"model": name})

	url := m.baseURL + info.File
	resp, err := m.httpc.Get(url)
	if err != nil {
		return "", m.fail(name, fmt.Errorf("models: fetching %s: %w", url, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", m.fail(name, fmt.Errorf("models: fetching %s: HTTP %d", url, resp.StatusCode))
	}

	partial := dest + ".partial"
	f, err := os.Create(partial)
	if err != nil {
		return "", m.fail(name, fmt.Errorf("models: creating %s: %w", partial, err))
	}

	pw := &progressWriter{
		w:     f,
		bus:   m.bus,
		model: name,
		total: resp.ContentLength,
	}
	_, err = io.Copy(pw, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(partial)
		return "", m.fail(name, fmt.Errorf("models: writing %s: %w", partial, err))
	}

	if err := os.Rename(partial, dest); err != nil {
		os.Remove(partial)
		return "", m.fail(name, fmt.Errorf("models: finalizing %s: %w", dest, err))
	}

	m.bus.Publish(events.TypeModelDownloadComplete, map[string]any{
		"model": name,
		"path":  dest,
	})
	return dest, nil
}

// DownloadAndLoad fetches the named model if needed, swaps it into the
// holder to prove the file actually loads, and returns its path.
func (m *Manager) DownloadAndLoad(name string) (string, error) {
	path, err := m.Download(name)
	if err != nil {
		return "", err
	}
	if m.holder == nil {
		return path, nil
	}
	if err := m.holder.Load(path); err != nil {
		return "", err
	}
	return path, nil
}

func (m *Manager) fail(name string, err error) error {
	m.bus.Publish(events.TypeModelDownloadError, map[string]any{
		"model": name,
		"error": err.Error(),
	})
	return err
}

func lookup(name string) (Info, bool) {
	for _, info := range Catalog {
		if info.Name == name {
			return info, true
		}
	}
	return Info{}, false
}

// progressWriter counts bytes through to the destination file and
// publishes a throttled progress event stream.
type progressWriter struct {
	w        io.Writer
	bus      *events.Bus
	model    string
	total    int64
	written  int64
	lastEmit time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	pw.written += int64(n)
	done := pw.total > 0 && pw.written >= pw.total
	if done || time.Since(pw.lastEmit) >= progressInterval {
		pw.lastEmit = time.Now()
		data := map[string]any{
			"model":      pw.model,
			"downloaded": pw.written,
			"total":      pw.total,
		}
		if pw.total > 0 {
			data["percent"] = float64(pw.written) / float64(pw.total) * 100
		}
		pw.bus.Publish(events.TypeModelDownloadProgress, data)
	}
	return n, err
}
