// Package generator runs the background puzzle generation worker that keeps
// the local corpus stocked.
package generator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/konpigg/soupd/internal/oracle"
	"github.com/konpigg/soupd/internal/puzzle"
)

// Config controls the generation schedule. Outside the [StartHour, EndHour)
// daily window the worker stays idle; equal hours mean always-on.
type Config struct {
	Enabled   bool
	StartHour int
	EndHour   int
	Interval  time.Duration
	Namespace string
}

// Status reports the worker's current state.
type Status struct {
	Enabled   bool   `json:"enabled"`
	Window    string `json:"window"`
	Namespace string `json:"namespace"`
}

// Worker periodically asks the oracle generator for a new puzzle and adds it
// to the local namespace until the corpus is at capacity.
type Worker struct {
	store  *puzzle.Store
	gen    oracle.Generator
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	enabled bool
}

// New creates a worker. It does nothing until Start is called.
func New(store *puzzle.Store, gen oracle.Generator, cfg Config, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, gen: gen, cfg: cfg, logger: logger, enabled: cfg.Enabled}
}

// Start launches the background loop. It stops when ctx is canceled.
func (w *Worker) Start(ctx context.Context) {
	if w.gen == nil {
		w.logger.Info("Puzzle generation worker not started: no generator configured")
		return
	}

	ticker := time.NewTicker(w.cfg.Interval)
	go func() {
		defer ticker.Stop()
		w.logger.Info("Puzzle generation worker started",
			"interval", w.cfg.Interval,
			"window_start", w.cfg.StartHour,
			"window_end", w.cfg.EndHour)

		for {
			select {
			case <-ticker.C:
				w.tick(ctx)
			case <-ctx.Done():
				w.logger.Info("Puzzle generation worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Enable turns generation on. Returns false if it was already on.
func (w *Worker) Enable() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.enabled {
		return false
	}
	w.enabled = true
	return true
}

// Disable turns generation off. Returns false if it was already off.
func (w *Worker) Disable() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.enabled {
		return false
	}
	w.enabled = false
	return true
}

// Status reports the worker's schedule and state.
func (w *Worker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	window := "always"
	if w.cfg.StartHour != w.cfg.EndHour {
		window = time.Date(0, 1, 1, w.cfg.StartHour, 0, 0, 0, time.UTC).Format("15:00") +
			"-" + time.Date(0, 1, 1, w.cfg.EndHour, 0, 0, 0, time.UTC).Format("15:00")
	}
	return Status{Enabled: w.enabled, Window: window, Namespace: w.cfg.Namespace}
}

func (w *Worker) tick(ctx context.Context) {
	w.mu.Lock()
	enabled := w.enabled
	w.mu.Unlock()
	if !enabled || !w.inWindow(time.Now()) {
		return
	}

	info, err := w.store.InfoFor(ctx, w.cfg.Namespace)
	if err != nil {
		w.logger.Error("Generation worker failed to read corpus info", "error", err)
		return
	}
	if info.Capacity > 0 && info.Total >= info.Capacity {
		w.logger.Debug("Local corpus at capacity, skipping generation",
			"total", info.Total, "capacity", info.Capacity)
		return
	}

	p, err := w.gen.GeneratePuzzle(ctx)
	if err != nil {
		w.logger.Warn("Background puzzle generation failed", "error", err)
		return
	}

	if err := w.store.Add(ctx, w.cfg.Namespace, p); err != nil {
		w.logger.Warn("Failed to store generated puzzle", "error", err)
		return
	}
	w.logger.Info("Generated puzzle added to local corpus",
		"puzzle_id", p.ID, "total", info.Total+1)
}

// inWindow reports whether t falls inside the daily generation window.
func (w *Worker) inWindow(t time.Time) bool {
	if w.cfg.StartHour == w.cfg.EndHour {
		return true
	}
	h := t.Hour()
	if w.cfg.StartHour < w.cfg.EndHour {
		return h >= w.cfg.StartHour && h < w.cfg.EndHour
	}
	// Window wraps midnight.
	return h >= w.cfg.StartHour || h < w.cfg.EndHour
}
