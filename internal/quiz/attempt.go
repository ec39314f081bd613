package quiz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidState is returned when an attempt operation is invoked in the
// wrong state, e.g. submitting an attempt that is not in progress.
var ErrInvalidState = errors.New("invalid attempt state")

type State string

const (
	StateLoaded     State = "loaded"
	StateInProgress State = "in_progress"
	StateSubmitting State = "submitting"
	StateScored     State = "scored"
)

// untimed marks an attempt without a countdown.
const untimed = -1

// Attempt drives one pass through a quiz from Loaded to Scored. Each learner
// session owns its own Attempt; there are no shared singletons. The countdown
// is advanced by Tick, typically once per second from a single ticker loop.
type Attempt struct {
	mu        sync.Mutex
	id        string
	quiz      Quiz
	learnerID string
	state     State
	selected  map[string]string // questionID -> optionID
	remaining int               // seconds; untimed when no limit
	sub       *Submission
	scoredAt  time.Time

	sink  SubmissionStore
	now   func() time.Time
	newID func() string
}

type AttemptOption func(*Attempt)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) AttemptOption {
	return func(a *Attempt) { a.now = now }
}

// WithIDFunc overrides submission/attempt ID generation, for tests.
func WithIDFunc(f func() string) AttemptOption {
	return func(a *Attempt) { a.newID = f }
}

// NewAttempt loads a quiz for one learner. The attempt starts in StateLoaded
// with empty answers and, when the quiz carries a time limit, a countdown of
// timeLimit*60 seconds.
func NewAttempt(q Quiz, learnerID string, sink SubmissionStore, opts ...AttemptOption) *Attempt {
	a := &Attempt{
		quiz:      q,
		learnerID: learnerID,
		state:     StateLoaded,
		selected:  map[string]string{},
		remaining: untimed,
		sink:      sink,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(a)
	}
	a.id = a.newID()
	if q.TimeLimitMin > 0 {
		a.remaining = q.TimeLimitMin * 60
	}
	return a
}

func (a *Attempt) ID() string        { return a.id }
func (a *Attempt) LearnerID() string { return a.learnerID }
func (a *Attempt) QuizID() string    { return a.quiz.ID }

func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Remaining reports the countdown seconds left and whether the attempt is
// timed at all.
func (a *Attempt) Remaining() (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.remaining == untimed {
		return 0, false
	}
	return a.remaining, true
}

// Start moves a loaded attempt into progress.
func (a *Attempt) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateLoaded {
		return fmt.Errorf("start from %s: %w", a.state, ErrInvalidState)
	}
	a.state = StateInProgress
	return nil
}

// SelectAnswer records or overwrites the selection for a question. It reports
// whether the selection was applied: an unknown question, an option the
// question doesn't carry, or a wrong state is an observable no-op, never an
// error.
func (a *Attempt) SelectAnswer(questionID, optionID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateInProgress {
		return false
	}
	if !a.hasOption(questionID, optionID) {
		return false
	}
	a.selected[questionID] = optionID
	return true
}

func (a *Attempt) hasOption(questionID, optionID string) bool {
	for _, q := range a.quiz.Questions {
		if q.ID != questionID {
			continue
		}
		for _, o := range q.Options {
			if o.ID == optionID {
				return true
			}
		}
		return false
	}
	return false
}

// SelectedAnswers returns a snapshot of the current selections.
func (a *Attempt) SelectedAnswers() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]string, len(a.selected))
	for k, v := range a.selected {
		out[k] = v
	}
	return out
}

// Submit scores the attempt and records the submission. On a persistence
// failure the attempt rolls back to InProgress so the caller can retry; no
// half-recorded result is kept in memory.
func (a *Attempt) Submit(ctx context.Context) (Submission, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.submitLocked(ctx)
}

func (a *Attempt) submitLocked(ctx context.Context) (Submission, error) {
	if a.state != StateInProgress {
		return Submission{}, fmt.Errorf("submit from %s: %w", a.state, ErrInvalidState)
	}
	a.state = StateSubmitting
	score, passed, answers := ScoreAnswers(a.quiz, a.selected)
	sub := Submission{
		ID:          a.newID(),
		LearnerID:   a.learnerID,
		QuizID:      a.quiz.ID,
		Score:       score,
		Passed:      passed,
		CompletedAt: a.now(),
		Answers:     answers,
	}
	if err := a.sink.RecordSubmission(ctx, sub); err != nil {
		a.state = StateInProgress
		return Submission{}, fmt.Errorf("record submission: %w", err)
	}
	a.state = StateScored
	a.sub = &sub
	a.scoredAt = sub.CompletedAt
	return sub, nil
}

// ScoredAt reports when the attempt reached StateScored.
func (a *Attempt) ScoredAt() (time.Time, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateScored {
		return time.Time{}, false
	}
	return a.scoredAt, true
}

// Tick advances the countdown by one second. At zero it forces a submit with
// whatever answers are selected, skipping the confirmation a manual submit
// would get. Reports whether the timer expired on this tick. A tick on a
// scored or untimed attempt is a no-op, so a stale ticker can never produce a
// second submission.
func (a *Attempt) Tick(ctx context.Context) (expired bool, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateInProgress || a.remaining == untimed {
		return false, nil
	}
	if a.remaining > 0 {
		a.remaining--
	}
	if a.remaining > 0 {
		return false, nil
	}
	// Keep remaining at 0 so a failed auto-submit is retried next tick.
	_, err = a.submitLocked(ctx)
	return true, err
}

// Submission returns the scored result, if any.
func (a *Attempt) Submission() (Submission, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sub == nil {
		return Submission{}, false
	}
	return *a.sub, true
}

// Restart re-enters Loaded for a fresh pass: answers cleared, countdown
// reset, previous result discarded. Only a scored attempt can restart.
func (a *Attempt) Restart() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateScored {
		return fmt.Errorf("restart from %s: %w", a.state, ErrInvalidState)
	}
	a.state = StateLoaded
	a.selected = map[string]string{}
	a.sub = nil
	a.scoredAt = time.Time{}
	a.remaining = untimed
	if a.quiz.TimeLimitMin > 0 {
		a.remaining = a.quiz.TimeLimitMin * 60
	}
	return nil
}
