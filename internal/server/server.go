// Package server exposes a Generator over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ilocn/stampid/internal/idgen"
)

// DefaultMaxBatch caps /api/ids?count= when Options.MaxBatch is unset.
const DefaultMaxBatch = 1000

// Options configures a Server.
type Options struct {
	MaxBatch int
}

// Server holds the HTTP server state.
type Server struct {
	gen      *idgen.Generator
	maxBatch int
}

type idsJSON struct {
	IDs []string `json:"ids"`
}

type stampJSON struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Sequence  int64  `json:"sequence"`
	Time      string `json:"time"`
}

type healthJSON struct {
	Status  string `json:"status"`
	Epoch   string `json:"epoch"`
	ZeroPad bool   `json:"zero_pad"`
}

type errorJSON struct {
	Error string `json:"error"`
}

// New returns a Server issuing IDs from gen.
func New(gen *idgen.Generator, opts Options) *Server {
	if opts.MaxBatch < 1 {
		opts.MaxBatch = DefaultMaxBatch
	}
	return &Server{gen: gen, maxBatch: opts.MaxBatch}
}

// Handler returns the routes of s.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ids", s.handleIDs)
	mux.HandleFunc("/api/ids/parse", s.handleParse)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Serve listens on addr and serves s until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, s *Server, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return serveListener(ctx, s, ln)
}

func serveListener(ctx context.Context, s *Server, ln net.Listener) error {
	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", slog.Any("error", err))
		}
	}()

	slog.Info("serving ids",
		slog.String("addr", ln.Addr().String()),
		slog.String("epoch", s.gen.Epoch().Format(time.RFC3339Nano)),
		slog.Bool("zero_pad", s.gen.ZeroPad()),
		slog.Int("max_batch", s.maxBatch))
	if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleIDs issues ?count= IDs (default 1).
func (s *Server) handleIDs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	count := 1
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > s.maxBatch {
			writeError(w, http.StatusBadRequest, "count must be an integer between 1 and "+strconv.Itoa(s.maxBatch))
			return
		}
		count = n
	}

	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		id, err := s.gen.GetID()
		if err != nil {
			slog.Error("id generation failed", slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		ids = append(ids, id)
	}
	slog.Debug("issued ids", slog.Int("count", count))
	writeJSON(w, http.StatusOK, idsJSON{IDs: ids})
}

// handleParse decomposes a zero-padded ?id=.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.gen.ZeroPad() {
		writeError(w, http.StatusConflict, idgen.ErrUnpadded.Error())
		return
	}
	id := r.URL.Query().Get("id")
	st, err := idgen.Parse(id)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stampJSON{
		ID:        id,
		Timestamp: st.Timestamp,
		Sequence:  st.Sequence,
		Time:      st.Time(s.gen.Epoch()).Format(time.RFC3339Nano),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, healthJSON{
		Status:  "ok",
		Epoch:   s.gen.Epoch().Format(time.RFC3339Nano),
		ZeroPad: s.gen.ZeroPad(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorJSON{Error: msg})
}
