package game

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/konpigg/soupd/internal/domain"
	"github.com/konpigg/soupd/internal/oracle"
)

// State is a session's position in its life cycle.
type State int

const (
	StateSelecting State = iota
	StateActive
	StateAwaitingJudgment
	StateResolvedWin
	StateResolvedGiveUp
	StateExpired
	StateAborted
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case StateSelecting:
		return "selecting"
	case StateActive:
		return "active"
	case StateAwaitingJudgment:
		return "awaiting_judgment"
	case StateResolvedWin:
		return "resolved_win"
	case StateResolvedGiveUp:
		return "resolved_giveup"
	case StateExpired:
		return "expired"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends the session.
func (s State) Terminal() bool {
	switch s {
	case StateResolvedWin, StateResolvedGiveUp, StateExpired, StateAborted:
		return true
	default:
		return false
	}
}

// Outcome is the terminal result of a session run.
type Outcome struct {
	State State
	// OracleFailed marks an expiry forced by exhausting the oracle retry
	// budget rather than by player silence.
	OracleFailed bool
	Bottom       string
	Turns        int
}

// Params bounds a session's turn loop.
type Params struct {
	TurnTimeout   time.Duration
	OracleRetries int
	// MaxTurns forces expiry once reached; 0 disables the bound.
	MaxTurns int
}

// EventType tags session events streamed to subscribers.
type EventType string

const (
	EventStarted     EventType = "started"
	EventAnswer      EventType = "answer"
	EventGuessGraded EventType = "guess_graded"
	EventRetry       EventType = "retry"
	EventEnded       EventType = "ended"
)

// Event is one observable session happening, delivered to subscribers in
// turn order.
type Event struct {
	Type        EventType           `json:"type"`
	Participant string              `json:"participant,omitempty"`
	Text        string              `json:"text,omitempty"`
	Verdict     domain.Verdict      `json:"verdict,omitempty"`
	Guess       *domain.GuessResult `json:"guess,omitempty"`
	Surface     string              `json:"surface,omitempty"`
	Bottom      string              `json:"bottom,omitempty"`
	State       string              `json:"state,omitempty"`
}

// Snapshot is a point-in-time view of a session for status reporting.
type Snapshot struct {
	SessionID  string         `json:"session_id"`
	GroupKey   string         `json:"group"`
	State      string         `json:"state"`
	Turns      int            `json:"turns"`
	Surface    string         `json:"surface"`
	Namespace  string         `json:"namespace"`
	CreatedAt  time.Time      `json:"created_at"`
	Transcript []domain.Entry `json:"transcript"`
}

// Session is one group's game: the chosen puzzle, the transcript, and the
// state machine that advances one turn at a time. All mutation happens on the
// run loop goroutine; accessors take the session lock.
type Session struct {
	ID       string
	GroupKey string
	Puzzle   domain.Puzzle

	params    Params
	judge     oracle.Client
	collector *Collector
	logger    *slog.Logger

	mu         sync.Mutex
	state      State
	transcript []domain.Entry
	turns      int
	createdAt  time.Time
	outcome    *Outcome
	cancel     context.CancelFunc
	subs       map[int]chan Event
	nextSub    int
}

// NewSession creates a session in the Selecting state.
func NewSession(groupKey string, p domain.Puzzle, judge oracle.Client, params Params, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		ID:        uuid.NewString(),
		GroupKey:  groupKey,
		Puzzle:    p,
		params:    params,
		judge:     judge,
		collector: NewCollector(),
		logger:    logger,
		state:     StateSelecting,
		createdAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Collector returns the session's turn collector.
func (s *Session) Collector() *Collector { return s.collector }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Turns returns the accepted-turn count.
func (s *Session) Turns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns
}

// Transcript returns a copy of the transcript so far.
func (s *Session) Transcript() []domain.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Entry, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Snapshot returns a point-in-time view for status reporting.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	transcript := make([]domain.Entry, len(s.transcript))
	copy(transcript, s.transcript)
	return Snapshot{
		SessionID:  s.ID,
		GroupKey:   s.GroupKey,
		State:      s.state.String(),
		Turns:      s.turns,
		Surface:    s.Puzzle.Surface,
		Namespace:  string(s.Puzzle.Source),
		CreatedAt:  s.createdAt,
		Transcript: transcript,
	}
}

// Subscribe registers an event channel. Events that cannot be delivered
// without blocking are dropped for that subscriber.
func (s *Session) Subscribe() (int, <-chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, 32)
	if s.subs == nil {
		// Session already finished: hand back a closed channel.
		close(ch)
		return id, ch
	}
	s.subs[id] = ch
	return id, ch
}

// Unsubscribe removes an event channel.
func (s *Session) Unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

// Abort forces teardown from any non-terminal state.
func (s *Session) Abort() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	if !s.state.Terminal() {
		s.state = st
	}
	s.mu.Unlock()
}

func (s *Session) emit(ev Event) {
	s.mu.Lock()
	chans := make([]chan Event, 0, len(s.subs))
	for _, ch := range s.subs {
		chans = append(chans, ch)
	}
	s.mu.Unlock()

	for _, ch := range chans {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Run drives the session until a terminal state and returns the outcome.
// It must be called exactly once.
func (s *Session) Run(ctx context.Context) Outcome {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.cancel = cancel
	s.state = StateActive
	s.mu.Unlock()

	s.emit(Event{Type: EventStarted, Surface: s.Puzzle.Surface, State: StateActive.String()})

	for {
		msg, err := s.collector.Wait(ctx, s.params.TurnTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return s.finish(StateAborted, false)
			}
			// ErrTurnTimeout: nobody spoke before the deadline.
			return s.finish(StateExpired, false)
		}

		switch msg.Kind {
		case KindGiveUp:
			return s.finish(StateResolvedGiveUp, false)

		case KindQuestion:
			verdict, err := s.judgeQuestionWithRetry(ctx, msg)
			if err != nil {
				if ctx.Err() != nil {
					return s.finish(StateAborted, false)
				}
				return s.finish(StateExpired, true)
			}
			s.acceptEntry(domain.Entry{
				Kind:        domain.EntryQuestion,
				Participant: msg.Participant,
				Text:        msg.Text,
				Verdict:     verdict,
				At:          time.Now(),
			})
			s.emit(Event{Type: EventAnswer, Participant: msg.Participant, Text: msg.Text, Verdict: verdict})

		case KindGuess:
			result, err := s.judgeGuessWithRetry(ctx, msg)
			if err != nil {
				if ctx.Err() != nil {
					return s.finish(StateAborted, false)
				}
				return s.finish(StateExpired, true)
			}
			s.acceptEntry(domain.Entry{
				Kind:        domain.EntryGuess,
				Participant: msg.Participant,
				Text:        msg.Text,
				GuessLevel:  result.Level,
				At:          time.Now(),
			})
			s.emit(Event{Type: EventGuessGraded, Participant: msg.Participant, Text: msg.Text, Guess: &result})
			if result.Level.Match() {
				return s.finish(StateResolvedWin, false)
			}
		}

		if s.params.MaxTurns > 0 && s.Turns() >= s.params.MaxTurns {
			s.logger.Info("Session reached turn bound", "group", s.GroupKey, "turns", s.Turns())
			return s.finish(StateExpired, false)
		}
	}
}

// acceptEntry appends one accepted turn. The transcript is append-only;
// entries are never reordered or removed.
func (s *Session) acceptEntry(e domain.Entry) {
	s.mu.Lock()
	s.transcript = append(s.transcript, e)
	s.turns++
	if !s.state.Terminal() {
		s.state = StateActive
	}
	s.mu.Unlock()
}

// judgeQuestionWithRetry holds the session in AwaitingJudgment while the
// oracle classifies the question. A failed call leaves the turn number
// untouched and the message unanswered; after the retry budget is spent the
// caller forces expiry so the session cannot hang.
func (s *Session) judgeQuestionWithRetry(ctx context.Context, msg Message) (domain.Verdict, error) {
	s.setState(StateAwaitingJudgment)
	defer s.setState(StateActive)

	var lastErr error
	for attempt := 1; attempt <= s.params.OracleRetries; attempt++ {
		verdict, err := s.judge.JudgeQuestion(ctx, s.Puzzle, s.Transcript(), msg.Text)
		if err == nil {
			return verdict, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.logger.Warn("Oracle failed to judge question",
			"group", s.GroupKey, "attempt", attempt, "error", err)
		if attempt < s.params.OracleRetries {
			s.emit(Event{Type: EventRetry, Participant: msg.Participant, Text: msg.Text})
		}
	}
	return "", lastErr
}

func (s *Session) judgeGuessWithRetry(ctx context.Context, msg Message) (domain.GuessResult, error) {
	s.setState(StateAwaitingJudgment)
	defer s.setState(StateActive)

	var lastErr error
	for attempt := 1; attempt <= s.params.OracleRetries; attempt++ {
		result, err := s.judge.JudgeGuess(ctx, s.Puzzle, msg.Text)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return domain.GuessResult{}, ctx.Err()
		}
		s.logger.Warn("Oracle failed to judge guess",
			"group", s.GroupKey, "attempt", attempt, "error", err)
		if attempt < s.params.OracleRetries {
			s.emit(Event{Type: EventRetry, Participant: msg.Participant, Text: msg.Text})
		}
	}
	return domain.GuessResult{}, lastErr
}

// finish performs the terminal transition exactly once and notifies
// subscribers. A second call returns the recorded outcome unchanged.
func (s *Session) finish(st State, oracleFailed bool) Outcome {
	s.mu.Lock()
	if s.outcome != nil {
		o := *s.outcome
		s.mu.Unlock()
		return o
	}
	s.state = st
	o := Outcome{State: st, OracleFailed: oracleFailed, Bottom: s.Puzzle.Bottom, Turns: s.turns}
	s.outcome = &o
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	ended := Event{Type: EventEnded, State: st.String(), Bottom: s.Puzzle.Bottom}
	for _, ch := range subs {
		select {
		case ch <- ended:
		default:
		}
		close(ch)
	}
	return o
}
