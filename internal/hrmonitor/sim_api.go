package hrmonitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/lowaak/smart-trainer/lift-companion/internal/safego"
)

const simIndex = `Simulated heart-rate strap

GET  /api/state                          current state
POST /api/set?bpm=150[&contact=false]    hold at a heart rate
POST /api/ramp   {"target":160,"rate_per_second":1.5}
POST /api/walk   {"target":120}
POST /api/notify                         send a notification now
`

type rampRequest struct {
	Target        int     `json:"target"`
	RatePerSecond float64 `json:"rate_per_second"`
}

type walkRequest struct {
	Target int `json:"target"`
}

// Router returns the control API of the simulated strap
func (d *SimDevice) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogging(d.logger))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(simIndex))
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", d.handleGetState)
		r.Post("/set", d.handleSet)
		r.Post("/ramp", d.handleRamp)
		r.Post("/walk", d.handleWalk)
		r.Post("/notify", d.handleNotify)
	})
	return r
}

func (d *SimDevice) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, d.State())
}

func (d *SimDevice) handleSet(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if raw := query.Get("contact"); raw != "" {
		contact, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid contact %q", raw))
			return
		}
		d.SetContact(contact)
	}
	if raw := query.Get("bpm"); raw != "" {
		bpm, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid bpm %q", raw))
			return
		}
		if err := d.Set(bpm); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, d.State())
}

func (d *SimDevice) handleRamp(w http.ResponseWriter, r *http.Request) {
	var req rampRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if err := d.Ramp(req.Target, req.RatePerSecond); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, d.State())
}

func (d *SimDevice) handleWalk(w http.ResponseWriter, r *http.Request) {
	var req walkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if err := d.Walk(req.Target); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, d.State())
}

func (d *SimDevice) handleNotify(w http.ResponseWriter, r *http.Request) {
	d.TriggerHeartRateNotification()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// requestLogging logs each request at debug level
func requestLogging(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   sw.status,
				"duration": time.Since(start).String(),
			}).Debug("request")
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// SimServer serves a SimDevice control API
type SimServer struct {
	logger   logrus.FieldLogger
	server   *http.Server
	listener net.Listener
	wg       sync.WaitGroup
	once     sync.Once
}

// StartSimServer listens on addr (":8089", "127.0.0.1:0") and serves the
// device's control API in the background
func StartSimServer(device *SimDevice, addr string, logger logrus.FieldLogger) (*SimServer, error) {
	if device == nil {
		panic("SimServer: device cannot be nil")
	}
	if logger == nil {
		panic("SimServer: logger cannot be nil")
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	s := &SimServer{
		logger:   logger.WithField("component", "SimServer"),
		listener: listener,
		server: &http.Server{
			Handler:           device.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}

	s.wg.Add(1)
	safego.Go(s.logger, func() {
		defer s.wg.Done()
		s.logger.Infof("Control API listening on http://%s", listener.Addr())
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("Control API stopped")
		}
	})
	return s, nil
}

func (s *SimServer) Addr() string {
	return s.listener.Addr().String()
}

// Shutdown stops the server, waiting up to five seconds for open requests
func (s *SimServer) Shutdown() {
	s.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.WithError(err).Warn("Error shutting down control API")
		}
		s.wg.Wait()
		s.logger.Info("Control API shut down")
	})
}
