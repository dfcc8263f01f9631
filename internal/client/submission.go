package client

import (
	"context"
	"sync"

	"github.com/okian/slumber/internal/domain/habit"
)

// Phase is the stage of a submission.
type Phase int

// Submission phases.
const (
	Idle Phase = iota
	Loading
	Success
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// State is a snapshot of a submission. Result is set in Success, Err in Failed.
type State struct {
	Phase  Phase
	Ticket uint64
	Result Result
	Err    error
}

// Predictor is the call a Submission drives.
type Predictor interface {
	Predict(ctx context.Context, rec habit.Record) (Result, error)
}

// Submission tracks the latest request. Every Begin issues a new ticket;
// answers for older tickets are discarded, so a slow earlier request can
// never overwrite a newer one.
type Submission struct {
	mu     sync.Mutex
	state  State
	latest uint64
}

// NewSubmission returns a Submission in Idle.
func NewSubmission() *Submission { return &Submission{} }

// State returns the current snapshot.
func (s *Submission) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Begin moves to Loading and returns the ticket for the new request.
func (s *Submission) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest++
	s.state = State{Phase: Loading, Ticket: s.latest}
	return s.latest
}

// Complete records the answer for ticket. It reports false, and leaves the
// state alone, when ticket is no longer the latest.
func (s *Submission) Complete(ticket uint64, res Result, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.latest || s.state.Phase != Loading {
		return false
	}
	if err != nil {
		s.state = State{Phase: Failed, Ticket: ticket, Err: err}
	} else {
		s.state = State{Phase: Success, Ticket: ticket, Result: res}
	}
	return true
}

// Reset returns to Idle and invalidates any request in flight.
func (s *Submission) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest++
	s.state = State{Phase: Idle, Ticket: s.latest}
}

// Submit runs one request in the background. The channel yields the state
// after the answer was applied (or discarded as stale) and is then closed.
func (s *Submission) Submit(ctx context.Context, p Predictor, rec habit.Record) <-chan State {
	ticket := s.Begin()
	out := make(chan State, 1)
	go func() {
		defer close(out)
		res, err := p.Predict(ctx, rec)
		s.Complete(ticket, res, err)
		out <- s.State()
	}()
	return out
}
