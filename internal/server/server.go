// Package server is the HTTP backend for the web front end.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	log "log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"luna/internal/assistant"
	"luna/internal/listen"
	"luna/internal/metrics"
	"luna/internal/speech"
)

const (
	defaultMaxUpload = 25 << 20
	shutdownTimeout  = 10 * time.Second
)

type Assistant interface {
	Handle(ctx context.Context, text string, out speech.Speaker) (assistant.Outcome, error)
	Reset()
	Trigger() bool
}

type Voice interface {
	SayAt(ctx context.Context, text string, rate int)
}

type Options struct {
	Assistant   Assistant
	Voice       Voice
	Transcriber listen.Transcriber
	Events      http.Handler
	APIKey      string
	MaxUpload   int64
}

type Server struct {
	assistant   Assistant
	voice       Voice
	transcriber listen.Transcriber
	events      http.Handler
	apiKey      string
	maxUpload   int64
}

func New(opt Options) *Server {
	s := &Server{
		assistant:   opt.Assistant,
		voice:       opt.Voice,
		transcriber: opt.Transcriber,
		events:      opt.Events,
		apiKey:      opt.APIKey,
		maxUpload:   opt.MaxUpload,
	}
	if s.maxUpload <= 0 {
		s.maxUpload = defaultMaxUpload
	}
	return s
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(logging)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(api chi.Router) {
		api.Use(APIKey(s.apiKey))

		api.Post("/chat", s.handleChat)
		api.Post("/speak", s.handleSpeak)
		api.Post("/transcribe", s.handleTranscribe)
		api.Post("/trigger", s.handleTrigger)
		api.Post("/reset", s.handleReset)
		if s.events != nil {
			api.Get("/ws", s.events.ServeHTTP)
		}
	})

	return r
}

// ListenAndServe serves addr until ctx ends, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	log.Info("HTTP backend listening", "addr", addr)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown timed out, closing", "err", err)
		_ = srv.Close()
	}
	return <-errCh
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-API-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// APIKey checks X-API-Key or a bearer token. An empty key disables the check.
func APIKey(requiredKey string) func(http.Handler) http.Handler {
	required := strings.TrimSpace(requiredKey)
	if required == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			candidate := strings.TrimSpace(r.Header.Get("X-API-Key"))
			if candidate == "" {
				authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
				if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
					candidate = strings.TrimSpace(authHeader[7:])
				}
			}
			if subtle.ConstantTimeCompare([]byte(candidate), []byte(required)) != 1 {
				writeErr(w, http.StatusUnauthorized, "unauthorized", "missing or invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug("HTTP",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"took", time.Since(start),
			"req", middleware.GetReqID(r.Context()),
		)
	})
}
