package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/learnhub-io/learnhub/internal/progress"
	"github.com/learnhub-io/learnhub/internal/quiz"
)

// MemoryStore is the in-process persistence adapter: quiz.Catalog,
// quiz.SubmissionStore, and progress.Store behind one mutex. Used for tests
// and offline demos; never assume anything beyond the interfaces.
type MemoryStore struct {
	mu          sync.RWMutex
	courses     map[string]quiz.Course
	quizzes     map[string]quiz.Quiz       // quizID -> quiz
	submissions map[string][]quiz.Submission // learnerID -> append-only log
	enrollments map[string]progress.Enrollment
	lessons     map[string]map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		courses:     map[string]quiz.Course{},
		quizzes:     map[string]quiz.Quiz{},
		submissions: map[string][]quiz.Submission{},
		enrollments: map[string]progress.Enrollment{},
		lessons:     map[string]map[string]struct{}{},
	}
}

func pairKey(learnerID, courseID string) string { return learnerID + "|" + courseID }

func (m *MemoryStore) PutCourse(_ context.Context, c quiz.Course) error {
	if c.ID == "" {
		return fmt.Errorf("course: missing id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[c.ID] = c
	return nil
}

func (m *MemoryStore) GetCourse(_ context.Context, courseID string) (quiz.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courses[courseID]
	if !ok {
		return quiz.Course{}, fmt.Errorf("course %s: %w", courseID, quiz.ErrNotFound)
	}
	return c, nil
}

// PutQuiz validates the definition before accepting it; a quiz that would be
// unscorable never reaches an attempt.
func (m *MemoryStore) PutQuiz(_ context.Context, q quiz.Quiz) error {
	if err := quiz.Validate(q); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quizzes[q.ID] = q
	return nil
}

func (m *MemoryStore) GetQuiz(_ context.Context, courseID, quizID string) (quiz.Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[quizID]
	if !ok || q.CourseID != courseID {
		return quiz.Quiz{}, fmt.Errorf("quiz %s: %w", quizID, quiz.ErrNotFound)
	}
	return q, nil
}

func (m *MemoryStore) RecordSubmission(_ context.Context, s quiz.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions[s.LearnerID] = append(m.submissions[s.LearnerID], s)
	return nil
}

func (m *MemoryStore) ListSubmissions(_ context.Context, learnerID string) ([]quiz.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]quiz.Submission, len(m.submissions[learnerID]))
	copy(out, m.submissions[learnerID])
	return out, nil
}

func (m *MemoryStore) GetEnrollment(_ context.Context, learnerID, courseID string) (progress.Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.enrollments[pairKey(learnerID, courseID)]
	if !ok {
		return progress.Enrollment{}, fmt.Errorf("enrollment %s/%s: %w", learnerID, courseID, quiz.ErrNotFound)
	}
	return e, nil
}

func (m *MemoryStore) SaveEnrollment(_ context.Context, e progress.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrollments[pairKey(e.LearnerID, e.CourseID)] = e
	return nil
}

func (m *MemoryStore) GetCompletedLessons(_ context.Context, learnerID, courseID string) (map[string]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := m.lessons[pairKey(learnerID, courseID)]
	out := make(map[string]struct{}, len(set))
	for k := range set {
		out[k] = struct{}{}
	}
	return out, nil
}

func (m *MemoryStore) SaveCompletedLessons(_ context.Context, learnerID, courseID string, lessons map[string]struct{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(map[string]struct{}, len(lessons))
	for k := range lessons {
		cp[k] = struct{}{}
	}
	m.lessons[pairKey(learnerID, courseID)] = cp
	return nil
}
