package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/learnhub-io/learnhub/internal/quiz"
	"github.com/learnhub-io/learnhub/internal/rbac"
	syncx "github.com/learnhub-io/learnhub/internal/sync"
)

// Handlers only — routes remain in main.go

// CatalogStore is the writable side of the catalog, satisfied by both the
// memory and SQL stores.
type CatalogStore interface {
	quiz.Catalog
	PutCourse(ctx context.Context, c quiz.Course) error
	PutQuiz(ctx context.Context, q quiz.Quiz) error
}

var checker = rbac.NewChecker(nil)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quiz.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, quiz.ErrInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func UpsertCourseHandler(store CatalogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c quiz.Course
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		c.ID = chi.URLParam(r, "courseID")
		if strings.TrimSpace(c.Title) == "" {
			http.Error(w, "title required", http.StatusBadRequest)
			return
		}
		if err := store.PutCourse(r.Context(), c); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, c)
	}
}

func UpsertQuizHandler(store CatalogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q quiz.Quiz
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		q.CourseID = chi.URLParam(r, "courseID")
		q.ID = chi.URLParam(r, "quizID")
		// Load-time validation happens in the store; a 400 here means the
		// definition itself is unusable (e.g. no single correct option).
		if err := store.PutQuiz(r.Context(), q); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, q)
	}
}

func GetCourseHandler(cat quiz.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := cat.GetCourse(r.Context(), chi.URLParam(r, "courseID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, c)
	}
}

// GetQuizHandler serves the learner-safe definition: correctness flags are
// stripped before the quiz leaves the server.
func GetQuizHandler(cat quiz.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := cat.GetQuiz(r.Context(), chi.URLParam(r, "courseID"), chi.URLParam(r, "quizID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, quiz.Sanitize(q))
	}
}

type attemptView struct {
	ID           string           `json:"id"`
	QuizID       string           `json:"quiz_id"`
	LearnerID    string           `json:"learner_id"`
	State        quiz.State       `json:"state"`
	RemainingSec *int             `json:"remaining_sec,omitempty"`
	Answers      map[string]string `json:"answers"`
	Submission   *quiz.Submission `json:"submission,omitempty"`
}

func viewOf(a *quiz.Attempt) attemptView {
	v := attemptView{
		ID:        a.ID(),
		QuizID:    a.QuizID(),
		LearnerID: a.LearnerID(),
		State:     a.State(),
		Answers:   a.SelectedAnswers(),
	}
	if sec, timed := a.Remaining(); timed {
		v.RemainingSec = &sec
	}
	if sub, ok := a.Submission(); ok {
		v.Submission = &sub
	}
	return v
}

func CreateAttemptHandler(cat quiz.Catalog, reg *quiz.Registry, sink quiz.SubmissionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CourseID string `json:"course_id"`
			QuizID   string `json:"quiz_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CourseID == "" || req.QuizID == "" {
			http.Error(w, "course_id and quiz_id required", http.StatusBadRequest)
			return
		}
		learner := rbac.SubjectFromContext(r.Context())
		if learner == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		q, err := cat.GetQuiz(r.Context(), req.CourseID, req.QuizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		a := quiz.NewAttempt(q, learner, sink)
		if err := a.Start(); err != nil {
			writeErr(w, err)
			return
		}
		reg.Add(a)
		writeJSON(w, viewOf(a))
	}
}

func attemptFromRequest(reg *quiz.Registry, w http.ResponseWriter, r *http.Request) (*quiz.Attempt, bool) {
	a, ok := reg.Get(chi.URLParam(r, "attemptID"))
	if !ok {
		http.Error(w, "attempt not found", http.StatusNotFound)
		return nil, false
	}
	return a, true
}

func SelectAnswerHandler(reg *quiz.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := attemptFromRequest(reg, w, r)
		if !ok {
			return
		}
		if rbac.SubjectFromContext(r.Context()) != a.LearnerID() {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		var req struct {
			QuestionID string `json:"question_id"`
			OptionID   string `json:"option_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuestionID == "" {
			http.Error(w, "question_id required", http.StatusBadRequest)
			return
		}
		applied := a.SelectAnswer(req.QuestionID, req.OptionID)
		writeJSON(w, map[string]any{"applied": applied, "state": a.State()})
	}
}

func SubmitAttemptHandler(reg *quiz.Registry, rec *syncx.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := attemptFromRequest(reg, w, r)
		if !ok {
			return
		}
		if rbac.SubjectFromContext(r.Context()) != a.LearnerID() {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		sub, err := a.Submit(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		if rec != nil {
			if err := rec.SubmissionRecorded(r.Context(), sub); err != nil {
				log.Printf("event log submission %s: %v", sub.ID, err)
			}
		}
		writeJSON(w, sub)
	}
}

func GetAttemptHandler(reg *quiz.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := attemptFromRequest(reg, w, r)
		if !ok {
			return
		}
		owner := rbac.SubjectFromContext(r.Context()) == a.LearnerID()
		if !owner && !checker.Has(rbac.RoleFromContext(r.Context()), "attempt:view-all") {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		writeJSON(w, viewOf(a))
	}
}

// RestartAttemptHandler starts a fresh pass over a scored attempt.
func RestartAttemptHandler(reg *quiz.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := attemptFromRequest(reg, w, r)
		if !ok {
			return
		}
		if rbac.SubjectFromContext(r.Context()) != a.LearnerID() {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if err := a.Restart(); err != nil {
			writeErr(w, err)
			return
		}
		if err := a.Start(); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, viewOf(a))
	}
}

func ListSubmissionsHandler(subs quiz.SubmissionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learnerID := chi.URLParam(r, "learnerID")
		owner := rbac.SubjectFromContext(r.Context()) == learnerID
		if !owner && !checker.Has(rbac.RoleFromContext(r.Context()), "submissions:view-all") {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		list, err := subs.ListSubmissions(r.Context(), learnerID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, list)
	}
}
