package loop

import (
	"context"

	"github.com/codefionn/concierge/internal/planning"
)

// ReplanFunc produces fresh steps once the queue ran dry.
type ReplanFunc func(ctx context.Context) []planning.PlannedStep

// Sequence is the pull-based plan queue of one run. When it runs dry, the
// next Pull asks ReplanFunc for more steps; an empty replan marks the
// sequence exhausted for good.
type Sequence struct {
	pending   []planning.PlannedStep
	replan    ReplanFunc
	replans   int
	exhausted bool
}

// NewSequence creates a sequence seeded with the initial plan. A nil replan
// function exhausts the sequence as soon as the initial steps are used up.
func NewSequence(initial []planning.PlannedStep, replan ReplanFunc) *Sequence {
	pending := make([]planning.PlannedStep, len(initial))
	copy(pending, initial)
	return &Sequence{pending: pending, replan: replan}
}

// Len returns the number of pending steps.
func (s *Sequence) Len() int { return len(s.pending) }

// Pending returns a copy of the pending steps.
func (s *Sequence) Pending() []planning.PlannedStep {
	out := make([]planning.PlannedStep, len(s.pending))
	copy(out, s.pending)
	return out
}

// Replans returns how many times the replan continuation ran.
func (s *Sequence) Replans() int { return s.replans }

// Exhausted reports whether a replan came back empty.
func (s *Sequence) Exhausted() bool { return s.exhausted }

// Pull makes sure at least one step is pending, running the replan
// continuation when the queue is empty. It returns false once exhausted.
func (s *Sequence) Pull(ctx context.Context) bool {
	if len(s.pending) > 0 {
		return true
	}
	if s.exhausted || s.replan == nil {
		s.exhausted = true
		return false
	}

	s.replans++
	next := s.replan(ctx)
	if len(next) == 0 {
		s.exhausted = true
		return false
	}
	s.pending = append(s.pending, next...)
	return true
}

// NextBatch removes and returns the first pending step plus the following
// read-only steps, up to limit entries.
func (s *Sequence) NextBatch(limit int, isReadOnly func(name string) bool) []planning.PlannedStep {
	if len(s.pending) == 0 || limit <= 0 {
		return nil
	}

	n := 1
	for n < len(s.pending) && n < limit && isReadOnly(s.pending[n].Tool) {
		n++
	}

	batch := make([]planning.PlannedStep, n)
	copy(batch, s.pending[:n])
	s.pending = s.pending[n:]
	return batch
}

// Requeue puts steps back at the front of the queue, in order.
func (s *Sequence) Requeue(steps []planning.PlannedStep) {
	if len(steps) == 0 {
		return
	}
	merged := make([]planning.PlannedStep, 0, len(steps)+len(s.pending))
	merged = append(merged, steps...)
	merged = append(merged, s.pending...)
	s.pending = merged
}
