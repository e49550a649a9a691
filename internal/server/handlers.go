package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	log "log/slog"

	"luna/internal/dispatch"
	"luna/internal/listen"
	"luna/internal/speech"
	"luna/pkg/audioconv"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type APIErrorBody struct {
	Error APIError `json:"error"`
}

type ChatRequest struct {
	Text string `json:"text"`
	Rate int    `json:"rate,omitempty"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
	Route string `json:"route"`
}

type TranscribeResponse struct {
	Text string `json:"text"`
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func writeErr(w http.ResponseWriter, code int, errCode, message string) {
	writeJSON(w, code, APIErrorBody{Error: APIError{Code: errCode, Message: message}})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func decodeChat(w http.ResponseWriter, r *http.Request) (ChatRequest, bool) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return req, false
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeErr(w, http.StatusBadRequest, "invalid_argument", "text is required")
		return req, false
	}
	if req.Rate < 0 {
		writeErr(w, http.StatusBadRequest, "invalid_argument", "rate must not be negative")
		return req, false
	}
	return req, true
}

// rateSpeaker voices lines at a caller-chosen rate.
type rateSpeaker struct {
	voice Voice
	rate  int
}

func (s rateSpeaker) Say(ctx context.Context, text string) { s.voice.SayAt(ctx, text, s.rate) }

// handleChat runs one command. Replies are voiced only when the caller asks
// for a rate; otherwise they come back as text alone.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChat(w, r)
	if !ok {
		return
	}

	var out speech.Speaker = speech.Tee{}
	if req.Rate > 0 && s.voice != nil {
		out = rateSpeaker{voice: s.voice, rate: req.Rate}
	}

	res, err := s.assistant.Handle(r.Context(), req.Text, out)
	if err != nil && !errors.Is(err, dispatch.ErrFarewell) {
		log.Warn("Chat failed", "err", err)
		writeErr(w, http.StatusServiceUnavailable, "unavailable", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Reply: res.Reply, Route: string(res.Route)})
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChat(w, r)
	if !ok {
		return
	}
	if s.voice == nil {
		writeErr(w, http.StatusServiceUnavailable, "unavailable", "speech output is disabled")
		return
	}

	s.voice.SayAt(r.Context(), req.Text, req.Rate)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.transcriber == nil {
		writeErr(w, http.StatusServiceUnavailable, "unavailable", "transcription is disabled")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_argument", "multipart field \"audio\" is required")
		return
	}
	defer file.Close()

	pcm, err := audioconv.Decode(r.Context(), file, header.Filename, audioconv.Options{})
	if err != nil {
		log.Warn("Upload not decoded", "file", header.Filename, "err", err)
		if errors.Is(err, audioconv.ErrUnsupported) {
			writeErr(w, http.StatusUnsupportedMediaType, "unsupported_media", err.Error())
			return
		}
		writeErr(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}

	text, err := s.transcriber.Transcribe(r.Context(), pcm)
	switch {
	case err == nil:
	case errors.Is(err, listen.ErrUnrecognized):
		writeErr(w, http.StatusUnprocessableEntity, "unrecognized", "speech not recognized")
		return
	default:
		log.Error("Transcription failed", "err", err)
		writeErr(w, http.StatusServiceUnavailable, "unavailable", "speech service unavailable")
		return
	}

	text = listen.Normalize(text)
	if text == "" {
		writeErr(w, http.StatusUnprocessableEntity, "unrecognized", "speech not recognized")
		return
	}
	writeJSON(w, http.StatusOK, TranscribeResponse{Text: text})
}

func (s *Server) handleTrigger(w http.ResponseWriter, _ *http.Request) {
	queued := s.assistant.Trigger()
	writeJSON(w, http.StatusAccepted, map[string]bool{"queued": queued})
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.assistant.Reset()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
