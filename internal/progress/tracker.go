package progress

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/learnhub-io/learnhub/internal/quiz"
)

type Status string

const (
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Enrollment links one learner to one course. Progress is derived from the
// completed-lesson set; Status only ever moves forward to completed, and
// CompletedAt is stamped once, on first reaching 100%.
type Enrollment struct {
	ID          string     `json:"id"`
	LearnerID   string     `json:"learner_id"`
	CourseID    string     `json:"course_id"`
	Progress    int        `json:"progress"` // percentage, 0..100
	Status      Status     `json:"status"`
	EnrolledAt  time.Time  `json:"enrolled_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Store persists enrollments and per-(learner, course) completed-lesson sets.
// GetEnrollment wraps quiz.ErrNotFound when no enrollment exists; a missing
// lesson set reads as empty, not as an error.
type Store interface {
	GetEnrollment(ctx context.Context, learnerID, courseID string) (Enrollment, error)
	SaveEnrollment(ctx context.Context, e Enrollment) error
	GetCompletedLessons(ctx context.Context, learnerID, courseID string) (map[string]struct{}, error)
	SaveCompletedLessons(ctx context.Context, learnerID, courseID string, lessons map[string]struct{}) error
}

// Tracker maintains the derived relationship between completed lessons and an
// enrollment's progress and status.
type Tracker struct {
	store   Store
	catalog quiz.Catalog
	now     func() time.Time
	newID   func() string
}

type TrackerOption func(*Tracker)

func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

func WithIDFunc(f func() string) TrackerOption {
	return func(t *Tracker) { t.newID = f }
}

func NewTracker(store Store, catalog quiz.Catalog, opts ...TrackerOption) *Tracker {
	t := &Tracker{store: store, catalog: catalog, now: time.Now, newID: uuid.NewString}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Enroll is idempotent: an existing enrollment is returned unchanged,
// timestamp and all. The created result is false on a re-enroll so callers
// can tell a fresh enrollment from a no-op.
func (t *Tracker) Enroll(ctx context.Context, learnerID, courseID string) (Enrollment, bool, error) {
	if _, err := t.catalog.GetCourse(ctx, courseID); err != nil {
		return Enrollment{}, false, err
	}
	existing, err := t.store.GetEnrollment(ctx, learnerID, courseID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, quiz.ErrNotFound) {
		return Enrollment{}, false, err
	}
	e := Enrollment{
		ID:         t.newID(),
		LearnerID:  learnerID,
		CourseID:   courseID,
		Progress:   0,
		Status:     StatusInProgress,
		EnrolledAt: t.now(),
	}
	if err := t.store.SaveEnrollment(ctx, e); err != nil {
		return Enrollment{}, false, fmt.Errorf("save enrollment: %w", err)
	}
	return e, true, nil
}

// SetLessonCompletion adds or removes one lesson from the completed set and
// recomputes progress. The applied result is false for the documented soft
// no-ops: no enrollment, unknown lesson, or the set already in the requested
// state. A drop below 100% after completion lowers Progress but never reverts
// Status or CompletedAt.
func (t *Tracker) SetLessonCompletion(ctx context.Context, learnerID, courseID, lessonID string, completed bool) (Enrollment, bool, error) {
	e, err := t.store.GetEnrollment(ctx, learnerID, courseID)
	if errors.Is(err, quiz.ErrNotFound) {
		return Enrollment{}, false, nil
	}
	if err != nil {
		return Enrollment{}, false, err
	}
	course, err := t.catalog.GetCourse(ctx, courseID)
	if err != nil {
		return Enrollment{}, false, err
	}
	if !hasLesson(course, lessonID) {
		return e, false, nil
	}

	set, err := t.store.GetCompletedLessons(ctx, learnerID, courseID)
	if err != nil {
		return Enrollment{}, false, err
	}
	_, done := set[lessonID]
	if done == completed {
		return e, false, nil
	}
	prev := copySet(set)
	if completed {
		set[lessonID] = struct{}{}
	} else {
		delete(set, lessonID)
	}
	if err := t.store.SaveCompletedLessons(ctx, learnerID, courseID, set); err != nil {
		return Enrollment{}, false, fmt.Errorf("save completed lessons: %w", err)
	}

	if total := len(course.Lessons); total > 0 {
		e.Progress = percent(len(set), total)
	}
	if e.Progress == 100 && e.Status != StatusCompleted {
		e.Status = StatusCompleted
		ts := t.now()
		e.CompletedAt = &ts
	}
	if err := t.store.SaveEnrollment(ctx, e); err != nil {
		// Put the lesson set back so the two records stay consistent.
		_ = t.store.SaveCompletedLessons(ctx, learnerID, courseID, prev)
		return Enrollment{}, false, fmt.Errorf("save enrollment: %w", err)
	}
	return e, true, nil
}

// GetProgress reports the current percentage and status, defaulting to
// 0 / in-progress when the learner has never enrolled.
func (t *Tracker) GetProgress(ctx context.Context, learnerID, courseID string) (Enrollment, error) {
	e, err := t.store.GetEnrollment(ctx, learnerID, courseID)
	if errors.Is(err, quiz.ErrNotFound) {
		return Enrollment{
			LearnerID: learnerID,
			CourseID:  courseID,
			Status:    StatusInProgress,
		}, nil
	}
	if err != nil {
		return Enrollment{}, err
	}
	return e, nil
}

func percent(completed, total int) int {
	return int(math.Round(100 * float64(completed) / float64(total)))
}

func hasLesson(c quiz.Course, lessonID string) bool {
	for _, l := range c.Lessons {
		if l.ID == lessonID {
			return true
		}
	}
	return false
}

func copySet(s map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}
