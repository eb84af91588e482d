// Package status serves the state of a running session and its metrics over HTTP, so it can be
// followed from outside the scanner room.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/calvinmclean/uromri"
	"github.com/calvinmclean/uromri/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// Snapshot is the last thing shown on the display
type Snapshot struct {
	Phase        string    `json:"phase"`
	Kind         string    `json:"kind"`
	Countdown    int       `json:"countdown"`
	VolumeML     float64   `json:"volume_ml"`
	RateMLPerMin float64   `json:"rate_ml_per_min"`
	Message      string    `json:"message,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Board is a display that keeps the latest Snapshot
type Board struct {
	mtx  sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

func NewBoard() *Board {
	return &Board{now: time.Now}
}

// Snapshot returns a copy of the current state
func (b *Board) Snapshot() Snapshot {
	b.mtx.RLock()
	defer b.mtx.RUnlock()
	return b.snap
}

func (b *Board) update(f func(*Snapshot)) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	f(&b.snap)
	b.snap.UpdatedAt = b.now()
}

func (b *Board) ShowPhase(text string, kind uromri.Kind) {
	b.update(func(s *Snapshot) {
		s.Phase = strings.ReplaceAll(text, "\n", " ")
		s.Kind = kind.String()
		s.Message = ""
	})
}

func (b *Board) ShowFlow(volumeML, rateMLPerMin float64) {
	b.update(func(s *Snapshot) {
		s.VolumeML = volumeML
		s.RateMLPerMin = rateMLPerMin
	})
}

func (b *Board) ShowCountdown(seconds int) {
	b.update(func(s *Snapshot) {
		s.Countdown = seconds
	})
}

func (b *Board) ShowMessage(text string) {
	b.update(func(s *Snapshot) {
		s.Message = text
	})
}

func (b *Board) Refresh() {}

// Handler serves GET /status with the Snapshot and GET /metrics for Prometheus
func Handler(b *Board) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(b.Snapshot())
		if err != nil {
			log.WithComponent("status").Error().Err(err).Msg("error encoding status")
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Serve listens on addr until ctx is done
func Serve(ctx context.Context, addr string, h http.Handler) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("error listening on %q: %w", addr, err)
	}
	return serve(ctx, lis, h)
}

func serve(ctx context.Context, lis net.Listener, h http.Handler) error {
	logger := log.WithComponent("status")
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- srv.Serve(lis)
	}()
	logger.Info().Str("addr", lis.Addr().String()).Msg("serving status")

	select {
	case err := <-errs:
		return fmt.Errorf("error serving status: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("error shutting down status server: %w", err)
	}

	err = <-errs
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
