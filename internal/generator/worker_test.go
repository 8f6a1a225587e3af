package generator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/konpigg/soupd/internal/domain"
	"github.com/konpigg/soupd/internal/puzzle"
)

type fakeNamespace struct {
	name     string
	capacity int
	puzzles  []domain.Puzzle
}

func (n *fakeNamespace) Name() string { return n.name }

func (n *fakeNamespace) Puzzles(_ context.Context) ([]domain.Puzzle, error) {
	return n.puzzles, nil
}

func (n *fakeNamespace) Count(_ context.Context) (int, error) { return len(n.puzzles), nil }

func (n *fakeNamespace) Capacity() int { return n.capacity }

func (n *fakeNamespace) Add(_ context.Context, p domain.Puzzle) error {
	n.puzzles = append(n.puzzles, p)
	return nil
}

func (n *fakeNamespace) Close() error { return nil }

type fakeGenerator struct {
	calls int
	err   error
}

func (g *fakeGenerator) GeneratePuzzle(_ context.Context) (domain.Puzzle, error) {
	g.calls++
	if g.err != nil {
		return domain.Puzzle{}, g.err
	}
	return domain.Puzzle{
		ID:      domain.DeriveID(time.Now().String()),
		Surface: "generated surface",
		Bottom:  "generated bottom",
		Source:  domain.SourceLocal,
	}, nil
}

func newWorkerFixture(t *testing.T, ns *fakeNamespace, gen *fakeGenerator, cfg Config) *Worker {
	t.Helper()
	store := puzzle.NewStore()
	if err := store.Register(t.TempDir(), ns); err != nil {
		t.Fatalf("register namespace: %v", err)
	}
	cfg.Namespace = ns.name
	if cfg.Interval == 0 {
		cfg.Interval = time.Minute
	}
	return New(store, gen, cfg, nil)
}

func TestWorker_TickGenerates(t *testing.T) {
	ns := &fakeNamespace{name: "local"}
	gen := &fakeGenerator{}
	w := newWorkerFixture(t, ns, gen, Config{Enabled: true})

	w.tick(context.Background())

	if gen.calls != 1 {
		t.Fatalf("expected 1 generation call, got %d", gen.calls)
	}
	if len(ns.puzzles) != 1 {
		t.Fatalf("expected generated puzzle stored, corpus has %d", len(ns.puzzles))
	}
}

func TestWorker_TickSkipsWhenDisabled(t *testing.T) {
	ns := &fakeNamespace{name: "local"}
	gen := &fakeGenerator{}
	w := newWorkerFixture(t, ns, gen, Config{Enabled: false})

	w.tick(context.Background())

	if gen.calls != 0 {
		t.Errorf("disabled worker generated %d times", gen.calls)
	}
}

func TestWorker_TickSkipsAtCapacity(t *testing.T) {
	ns := &fakeNamespace{
		name:     "local",
		capacity: 1,
		puzzles:  []domain.Puzzle{{ID: "p1", Surface: "s", Bottom: "b"}},
	}
	gen := &fakeGenerator{}
	w := newWorkerFixture(t, ns, gen, Config{Enabled: true})

	w.tick(context.Background())

	if gen.calls != 0 {
		t.Errorf("worker generated %d times with corpus at capacity", gen.calls)
	}
}

func TestWorker_TickToleratesGenerationFailure(t *testing.T) {
	ns := &fakeNamespace{name: "local"}
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	w := newWorkerFixture(t, ns, gen, Config{Enabled: true})

	w.tick(context.Background())

	if len(ns.puzzles) != 0 {
		t.Errorf("failed generation must not add puzzles, corpus has %d", len(ns.puzzles))
	}
}

func TestWorker_EnableDisable(t *testing.T) {
	w := newWorkerFixture(t, &fakeNamespace{name: "local"}, &fakeGenerator{}, Config{Enabled: false})

	if !w.Enable() {
		t.Error("first enable should report a change")
	}
	if w.Enable() {
		t.Error("second enable should report no change")
	}
	if !w.Status().Enabled {
		t.Error("status should report enabled")
	}
	if !w.Disable() {
		t.Error("first disable should report a change")
	}
	if w.Disable() {
		t.Error("second disable should report no change")
	}
	if w.Status().Enabled {
		t.Error("status should report disabled")
	}
}

func TestWorker_InWindow(t *testing.T) {
	at := func(hour int) time.Time {
		return time.Date(2026, 8, 26, hour, 30, 0, 0, time.UTC)
	}

	cases := []struct {
		name  string
		start int
		end   int
		hour  int
		want  bool
	}{
		{"inside", 3, 6, 4, true},
		{"at start", 3, 6, 3, true},
		{"at end", 3, 6, 6, false},
		{"before", 3, 6, 2, false},
		{"after", 3, 6, 7, false},
		{"equal hours always", 5, 5, 12, true},
		{"wrap inside late", 22, 2, 23, true},
		{"wrap inside early", 22, 2, 1, true},
		{"wrap outside", 22, 2, 12, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := &Worker{cfg: Config{StartHour: c.start, EndHour: c.end}}
			if got := w.inWindow(at(c.hour)); got != c.want {
				t.Errorf("inWindow(%02d:30, window %d-%d) = %v, want %v",
					c.hour, c.start, c.end, got, c.want)
			}
		})
	}
}
