package recorder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/localvoice/whisperd/internal/wavio"
)

// Client submits recordings to the local transcription endpoint and
// keeps an on-disk WAV artifact of each one.
type Client struct {
	endpoint      string
	recordingsDir string
	language      string
	prompt        string
	httpc         *http.Client
}

// NewClient creates a Client for a /transcribe endpoint such as
// "http://127.0.0.1:9000/transcribe". recordingsDir may be empty to
// disable artifacts; language and prompt may be empty.
func NewClient(endpoint, recordingsDir, language, prompt string) *Client {
	return &Client{
		endpoint:      endpoint,
		recordingsDir: recordingsDir,
		language:      language,
		prompt:        prompt,
		// Inference on long clips can take a while on CPU.
		httpc: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Submit encodes the samples as WAV, saves an artifact, posts the bytes
// to the transcription endpoint and returns the transcribed text.
func (c *Client) Submit(samples []int16, sampleRate uint32) (string, error) {
	wavBytes, err := wavio.Encode(samples, sampleRate)
	if err != nil {
		return "", fmt.Errorf("recorder: encoding recording: %w", err)
	}

	if c.recordingsDir != "" {
		if path, err := wavio.SaveRecording(c.recordingsDir, wavBytes, sampleRate); err != nil {
			log.Printf("recorder: saving artifact: %v", err)
		} else {
			log.Printf("recorder: saved %s", path)
		}
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("recorder: parsing endpoint: %w", err)
	}
	q := u.Query()
	if c.language != "" {
		q.Set("lang", c.language)
	}
	if c.prompt != "" {
		q.Set("prompt", c.prompt)
	}
	u.RawQuery = q.Encode()

	resp, err := c.httpc.Post(u.String(), "audio/wav", bytes.NewReader(wavBytes))
	if err != nil {
		return "", fmt.Errorf("recorder: posting recording: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("recorder: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("recorder: transcribe returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("recorder: decoding response: %w", err)
	}
	return parsed.Text, nil
}
