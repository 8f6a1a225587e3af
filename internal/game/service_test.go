package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/konpigg/soupd/internal/domain"
	"github.com/konpigg/soupd/internal/puzzle"
)

// stubNamespace is an in-memory puzzle.Namespace for service tests.
type stubNamespace struct {
	name    string
	mu      sync.Mutex
	puzzles []domain.Puzzle
}

func (n *stubNamespace) Name() string { return n.name }

func (n *stubNamespace) Puzzles(_ context.Context) ([]domain.Puzzle, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.Puzzle, len(n.puzzles))
	copy(out, n.puzzles)
	return out, nil
}

func (n *stubNamespace) Count(_ context.Context) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.puzzles), nil
}

func (n *stubNamespace) Capacity() int { return 0 }

func (n *stubNamespace) Add(_ context.Context, p domain.Puzzle) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.puzzles = append(n.puzzles, p)
	return nil
}

func (n *stubNamespace) Close() error { return nil }

func newTestStore(t *testing.T, puzzles ...domain.Puzzle) *puzzle.Store {
	t.Helper()
	store := puzzle.NewStore()
	ns := &stubNamespace{name: string(domain.SourceStatic), puzzles: puzzles}
	if err := store.Register(t.TempDir(), ns); err != nil {
		t.Fatalf("register namespace: %v", err)
	}
	return store
}

func staticPuzzle(id, bottom string) domain.Puzzle {
	return domain.Puzzle{ID: id, Surface: "surface " + id, Bottom: bottom, Source: domain.SourceStatic}
}

func TestService_FullGame(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, staticPuzzle("p1", "he was the lighthouse keeper"))
	svc := NewService(store, &fakeOracle{}, nil, sessionParams(), nil, nil)

	res, err := svc.Start(ctx, "group-1", "")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if res.Surface == "" || res.SessionID == "" {
		t.Fatalf("incomplete start result: %+v", res)
	}

	sess := svc.Session("group-1")
	if sess == nil {
		t.Fatal("expected live session after start")
	}
	_, events := sess.Subscribe()

	if err := submitEventually(svc, "group-1", Message{Kind: KindQuestion, Participant: "anon_1", Text: "Was he alone?"}); err != nil {
		t.Fatalf("submit question: %v", err)
	}
	for ev := range events {
		if ev.Type == EventAnswer {
			if ev.Verdict != domain.VerdictNo {
				t.Errorf("expected no verdict, got %q", ev.Verdict)
			}
			break
		}
	}

	snap, err := svc.Status("group-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if snap.Turns != 1 || len(snap.Transcript) != 1 {
		t.Errorf("expected 1 turn recorded, got turns=%d transcript=%d", snap.Turns, len(snap.Transcript))
	}

	if err := submitEventually(svc, "group-1", Message{Kind: KindGuess, Participant: "anon_1", Text: "he was the lighthouse keeper"}); err != nil {
		t.Fatalf("submit guess: %v", err)
	}

	waitNoActiveSessions(t, svc)

	if err := svc.Submit("group-1", Message{Kind: KindQuestion, Text: "still there?"}); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("expected ErrNoActiveSession after win, got %v", err)
	}
	if _, err := svc.Status("group-1"); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("expected ErrNoActiveSession from status, got %v", err)
	}
}

func TestService_ConcurrentStartSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, staticPuzzle("p1", "b1"), staticPuzzle("p2", "b2"))
	svc := NewService(store, &fakeOracle{}, nil, sessionParams(), nil, nil)
	defer svc.Shutdown()

	const callers = 16
	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.Start(ctx, "group-1", "")
		}(i)
	}
	close(start)
	wg.Wait()

	var winners int
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrAlreadyActive):
		default:
			t.Errorf("unexpected start error: %v", err)
		}
	}
	if winners != 1 {
		t.Errorf("expected exactly 1 winning start, got %d", winners)
	}
	if svc.ActiveSessions() != 1 {
		t.Errorf("expected 1 active session, got %d", svc.ActiveSessions())
	}
}

func TestService_StartEmptyCorpus(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, &fakeOracle{}, nil, sessionParams(), nil, nil)

	_, err := svc.Start(context.Background(), "group-1", "")
	if !errors.Is(err, puzzle.ErrCorpusEmpty) {
		t.Errorf("expected ErrCorpusEmpty, got %v", err)
	}
	if svc.ActiveSessions() != 0 {
		t.Errorf("failed start left %d sessions behind", svc.ActiveSessions())
	}
}

func TestService_StartFallsBackToGeneration(t *testing.T) {
	ctx := context.Background()
	store := puzzle.NewStore()
	local := &stubNamespace{name: string(domain.SourceLocal)}
	if err := store.Register(t.TempDir(), local); err != nil {
		t.Fatalf("register: %v", err)
	}

	generated := domain.Puzzle{ID: "gen-1", Surface: "fresh surface", Bottom: "fresh bottom", Source: domain.SourceLocal}
	oracleClient := &fakeOracle{
		genFn: func(context.Context) (domain.Puzzle, error) { return generated, nil },
	}
	svc := NewService(store, oracleClient, oracleClient, sessionParams(), nil, nil)
	defer svc.Shutdown()

	res, err := svc.Start(ctx, "group-1", "")
	if err != nil {
		t.Fatalf("start with generation fallback failed: %v", err)
	}
	if res.Surface != "fresh surface" {
		t.Errorf("expected generated surface, got %q", res.Surface)
	}

	// The generated puzzle also lands in the local corpus.
	count, err := local.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected generated puzzle stored, corpus has %d", count)
	}
}

func TestService_StartUnknownNamespaceNotGenerated(t *testing.T) {
	ctx := context.Background()
	store := puzzle.NewStore()
	local := &stubNamespace{name: string(domain.SourceLocal)}
	if err := store.Register(t.TempDir(), local); err != nil {
		t.Fatalf("register: %v", err)
	}

	generated := false
	oracleClient := &fakeOracle{
		genFn: func(context.Context) (domain.Puzzle, error) {
			generated = true
			return domain.Puzzle{ID: "gen-1", Surface: "s", Bottom: "b", Source: domain.SourceLocal}, nil
		},
	}
	svc := NewService(store, oracleClient, oracleClient, sessionParams(), nil, nil)

	_, err := svc.Start(ctx, "group-1", "no-such-namespace")
	if !errors.Is(err, puzzle.ErrUnknownNamespace) {
		t.Fatalf("expected ErrUnknownNamespace, got %v", err)
	}
	if generated {
		t.Error("a mistyped namespace must not fall back to generation")
	}
	if svc.ActiveSessions() != 0 {
		t.Errorf("failed start left %d sessions behind", svc.ActiveSessions())
	}
}

func TestService_ConcurrentStartsServeDistinctPuzzles(t *testing.T) {
	ctx := context.Background()
	const groups = 8

	puzzles := make([]domain.Puzzle, 0, groups)
	for i := 0; i < groups; i++ {
		puzzles = append(puzzles, staticPuzzle(string(rune('a'+i)), "bottom"))
	}
	store := newTestStore(t, puzzles...)
	svc := NewService(store, &fakeOracle{}, nil, sessionParams(), nil, nil)
	defer svc.Shutdown()

	var wg sync.WaitGroup
	start := make(chan struct{})
	surfaces := make([]string, groups)
	for i := 0; i < groups; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			res, err := svc.Start(ctx, "group-"+string(rune('a'+i)), "")
			if err != nil {
				t.Errorf("start %d: %v", i, err)
				return
			}
			surfaces[i] = res.Surface
		}(i)
	}
	close(start)
	wg.Wait()

	seen := make(map[string]int)
	for _, surface := range surfaces {
		seen[surface]++
	}
	for surface, n := range seen {
		if n > 1 {
			t.Errorf("puzzle %q served to %d groups before exhaustion", surface, n)
		}
	}
}

func TestService_GiveUpRevealsBottom(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, staticPuzzle("p1", "the hidden story"))
	svc := NewService(store, &fakeOracle{}, nil, sessionParams(), nil, nil)

	if _, err := svc.Start(ctx, "group-1", ""); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	var bottom string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		b, err := svc.GiveUp("group-1", "anon_1")
		if err == nil {
			bottom = b
			break
		}
		if !errors.Is(err, ErrTurnBusy) {
			t.Fatalf("give up failed: %v", err)
		}
		time.Sleep(time.Millisecond)
	}
	if bottom != "the hidden story" {
		t.Errorf("expected revealed bottom, got %q", bottom)
	}

	waitNoActiveSessions(t, svc)
}

func TestService_AbortTearsDown(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, staticPuzzle("p1", "b1"))
	svc := NewService(store, &fakeOracle{}, nil, sessionParams(), nil, nil)

	if _, err := svc.Start(ctx, "group-1", ""); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !svc.Abort("group-1") {
		t.Fatal("abort reported no session")
	}
	waitNoActiveSessions(t, svc)

	if svc.Abort("group-1") {
		t.Error("abort of absent session must report false")
	}
}

func TestService_ShutdownWaitsForSessions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, staticPuzzle("p1", "b1"), staticPuzzle("p2", "b2"))
	svc := NewService(store, &fakeOracle{}, nil, sessionParams(), nil, nil)

	for _, group := range []string{"group-1", "group-2"} {
		if _, err := svc.Start(ctx, group, ""); err != nil {
			t.Fatalf("start %s: %v", group, err)
		}
	}

	done := make(chan struct{})
	go func() {
		svc.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete")
	}
	if svc.ActiveSessions() != 0 {
		t.Errorf("expected no sessions after shutdown, got %d", svc.ActiveSessions())
	}
}

// submitEventually retries Submit until the session's run loop is waiting for
// a turn, bridging the race with the previous turn's judgment.
func submitEventually(svc *Service, groupKey string, msg Message) error {
	deadline := time.Now().Add(2 * time.Second)
	var lastErr error
	for time.Now().Before(deadline) {
		lastErr = svc.Submit(groupKey, msg)
		if lastErr == nil || !errors.Is(lastErr, ErrTurnBusy) {
			return lastErr
		}
		time.Sleep(time.Millisecond)
	}
	return lastErr
}

func waitNoActiveSessions(t *testing.T, svc *Service) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if svc.ActiveSessions() == 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("sessions still active: %d", svc.ActiveSessions())
}
