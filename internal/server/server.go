// Package server exposes the transcription service over a loopback
// HTTP boundary: POST /transcribe for audio payloads, GET /events for
// a websocket feed of lifecycle and level events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/localvoice/whisperd/internal/events"
	"github.com/localvoice/whisperd/internal/model"
	"github.com/localvoice/whisperd/internal/transcribe"
)

var upgrader = websocket.Upgrader{
	// Loopback-only service; the UI shell connects from a file:// or
	// app origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server serves the local transcription endpoint.
type Server struct {
	holder *model.Holder
	svc    *transcribe.Service
	bus    *events.Bus
	http   *http.Server
}

// New creates a Server bound to addr (loopback, e.g. "127.0.0.1:9000").
func New(addr string, holder *model.Holder, svc *transcribe.Service, bus *events.Bus) *Server {
	s := &Server{holder: holder, svc: svc, bus: bus}
	s.http = &http.Server{Addr: addr, Handler: s.Handler()}
	return s
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /transcribe", s.handleTranscribe)
	mux.HandleFunc("GET /events", s.handleEvents)
	return mux
}

// ListenAndServe blocks serving requests until Shutdown.
func (s *Server) ListenAndServe() error {
	log.Printf("server: listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// errorBody is the structured 503 payload; the caller uses the error
// code to prompt for model selection instead of showing a generic
// failure.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type serverProfile struct {
	ReadBodyMs   int64                  `json:"read_body_ms"`
	TranscribeMs int64                  `json:"transcribe_ms"`
	TotalMs      int64                  `json:"total_ms"`
	Backend      transcribe.BackendInfo `json:"backend"`
}

type profile struct {
	Server  serverProfile      `json:"server"`
	Whisper transcribe.Timings `json:"whisper"`
}

type transcribeResponse struct {
	Text    string  `json:"text"`
	Profile profile `json:"profile"`
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()

	// Reject non-WAV payloads before consuming the body.
	contentType := r.Header.Get("Content-Type")
	if !strings.Contains(contentType, "audio/wav") &&
		!strings.Contains(contentType, "application/octet-stream") {
		http.Error(w, "unsupported Content-Type; send audio/wav", http.StatusUnsupportedMediaType)
		return
	}

	snap := s.holder.Current()
	if snap == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(errorBody{
			Error:   "model_not_loaded",
			Message: "No Whisper model is loaded. Please download and select a model.",
		})
		return
	}
	defer snap.Release()

	language := r.URL.Query().Get("lang")
	prompt := r.URL.Query().Get("prompt")

	tTotal := time.Now()
	tRead := time.Now()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read body: %v", err), http.StatusBadRequest)
		return
	}
	readBodyMs := time.Since(tRead).Milliseconds()

	log.Printf("server: [%s] transcribe request: %d bytes lang=%q", reqID, len(body), language)

	tTranscribe := time.Now()
	text, timings, err := s.svc.Transcribe(snap, body, transcribe.Request{
		Language:      language,
		InitialPrompt: prompt,
	})
	if err != nil {
		log.Printf("server: [%s] transcription failed: %v", reqID, err)
		http.Error(w, fmt.Sprintf("transcription error: %v", err), http.StatusInternalServerError)
		return
	}
	transcribeMs := time.Since(tTranscribe).Milliseconds()

	resp := transcribeResponse{Text: text}
	resp.Profile.Server = serverProfile{
		ReadBodyMs:   readBodyMs,
		TranscribeMs: transcribeMs,
		TotalMs:      time.Since(tTotal).Milliseconds(),
		Backend:      transcribe.Backend(snap.Path()),
	}
	resp.Profile.Whisper = timings

	log.Printf("server: [%s] transcribed %d bytes in %dms", reqID, len(body), resp.Profile.Server.TotalMs)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleEvents streams bus events to a websocket client until it
// disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)

	// Reader goroutine: only there to notice the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}
