// Package game implements the concurrent session orchestration engine:
// per-group game sessions, the turn-collection protocol, and the registry
// that guarantees at most one active session per group.
package game

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrTurnTimeout means no in-scope message arrived before the per-turn
	// deadline.
	ErrTurnTimeout = errors.New("turn deadline elapsed")
	// ErrWaitInProgress means a wait is already outstanding for the session.
	ErrWaitInProgress = errors.New("turn wait already in progress")
)

// MessageKind classifies an in-scope submission.
type MessageKind int

const (
	KindQuestion MessageKind = iota
	KindGuess
	KindGiveUp
)

// Message is one submission offered to a session's current turn.
type Message struct {
	Kind        MessageKind
	Participant string
	Text        string
}

// Collector is the cooperative wait for a session's next in-scope message.
// At most one wait is outstanding at a time. When several messages race for
// the same turn window, the first observed wins; the rest are dropped, never
// queued for later turns.
type Collector struct {
	mu      sync.Mutex
	waiting chan Message
}

// NewCollector creates an idle collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Offer hands a message to the outstanding wait. It reports whether the
// message won the current turn window; false means no wait is outstanding or
// another message was observed first. The winning offer retires the wait
// slot under the lock, so at most one offer succeeds per window.
func (c *Collector) Offer(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.waiting == nil {
		return false
	}
	select {
	case c.waiting <- msg:
		c.waiting = nil
		return true
	default:
		return false
	}
}

// Wait suspends until a message arrives, the deadline elapses
// (ErrTurnTimeout), or ctx is canceled.
func (c *Collector) Wait(ctx context.Context, deadline time.Duration) (Message, error) {
	c.mu.Lock()
	if c.waiting != nil {
		c.mu.Unlock()
		return Message{}, ErrWaitInProgress
	}
	// Buffer of one: an offer that races the waiter's select still lands.
	ch := make(chan Message, 1)
	c.waiting = ch
	c.mu.Unlock()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case msg := <-ch:
		// The winning offer already retired the slot.
		return msg, nil
	case <-timer.C:
		if msg, ok := c.retire(ch); ok {
			return msg, nil
		}
		return Message{}, ErrTurnTimeout
	case <-ctx.Done():
		if msg, ok := c.retire(ch); ok {
			return msg, nil
		}
		return Message{}, ctx.Err()
	}
}

// retire closes the window under the lock so no later offer can report a win
// against it. An offer that was accepted before the lock was taken is honored
// rather than dropped: Offer returning true means the message is delivered.
func (c *Collector) retire(ch chan Message) (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.waiting == nil {
		select {
		case msg := <-ch:
			return msg, true
		default:
			return Message{}, false
		}
	}
	c.waiting = nil
	return Message{}, false
}
