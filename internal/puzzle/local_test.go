package puzzle

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/konpigg/soupd/internal/domain"
)

func newTestLocal(t *testing.T, maxSize int) *LocalNamespace {
	t.Helper()
	ns, err := NewLocal(filepath.Join(t.TempDir(), "puzzles.db"), maxSize)
	if err != nil {
		t.Fatalf("open local namespace: %v", err)
	}
	t.Cleanup(func() {
		if err := ns.Close(); err != nil {
			t.Errorf("close local namespace: %v", err)
		}
	})
	return ns
}

func TestLocalNamespace_AddAndList(t *testing.T) {
	ctx := context.Background()
	ns := newTestLocal(t, 10)

	for _, id := range []string{"a", "b", "c"} {
		err := ns.Add(ctx, domain.Puzzle{ID: id, Surface: "s-" + id, Bottom: "b-" + id})
		if err != nil {
			t.Fatalf("add %q: %v", id, err)
		}
	}

	puzzles, err := ns.Puzzles(ctx)
	if err != nil {
		t.Fatalf("list puzzles: %v", err)
	}
	if len(puzzles) != 3 {
		t.Fatalf("expected 3 puzzles, got %d", len(puzzles))
	}
	for i, want := range []string{"a", "b", "c"} {
		if puzzles[i].ID != want {
			t.Errorf("puzzle %d: expected %q, got %q", i, want, puzzles[i].ID)
		}
	}
}

func TestLocalNamespace_EvictsOldestAtCapacity(t *testing.T) {
	ctx := context.Background()
	ns := newTestLocal(t, 2)

	for _, id := range []string{"a", "b", "c"} {
		err := ns.Add(ctx, domain.Puzzle{ID: id, Surface: "s-" + id, Bottom: "b-" + id})
		if err != nil {
			t.Fatalf("add %q: %v", id, err)
		}
	}

	puzzles, err := ns.Puzzles(ctx)
	if err != nil {
		t.Fatalf("list puzzles: %v", err)
	}
	if len(puzzles) != 2 {
		t.Fatalf("expected 2 puzzles after eviction, got %d", len(puzzles))
	}
	if puzzles[0].ID != "b" || puzzles[1].ID != "c" {
		t.Errorf("expected oldest evicted, got %q and %q", puzzles[0].ID, puzzles[1].ID)
	}
}

func TestLocalNamespace_DuplicateIDIgnored(t *testing.T) {
	ctx := context.Background()
	ns := newTestLocal(t, 10)

	p := domain.Puzzle{ID: "a", Surface: "s", Bottom: "b"}
	if err := ns.Add(ctx, p); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := ns.Add(ctx, p); err != nil {
		t.Fatalf("second add: %v", err)
	}

	count, err := ns.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 puzzle after duplicate add, got %d", count)
	}
}

func TestLocalNamespace_DerivesMissingID(t *testing.T) {
	ctx := context.Background()
	ns := newTestLocal(t, 10)

	if err := ns.Add(ctx, domain.Puzzle{Surface: "some surface", Bottom: "some bottom"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	puzzles, err := ns.Puzzles(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(puzzles) != 1 || puzzles[0].ID == "" {
		t.Fatalf("expected one puzzle with derived ID, got %+v", puzzles)
	}
	if puzzles[0].ID != domain.DeriveID("some surface") {
		t.Errorf("derived ID mismatch: %q", puzzles[0].ID)
	}
}
