package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/learnhub-io/learnhub/internal/progress"
	"github.com/learnhub-io/learnhub/internal/rbac"
	syncx "github.com/learnhub-io/learnhub/internal/sync"
)

func EnrollHandler(tr *progress.Tracker, rec *syncx.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learner := rbac.SubjectFromContext(r.Context())
		if learner == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		e, created, err := tr.Enroll(r.Context(), learner, chi.URLParam(r, "courseID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		// A re-enroll changes nothing, so it emits nothing.
		if created && rec != nil {
			if err := rec.EnrollmentUpdated(r.Context(), e); err != nil {
				log.Printf("event log enrollment %s: %v", e.ID, err)
			}
		}
		writeJSON(w, e)
	}
}

func SetLessonCompletionHandler(tr *progress.Tracker, rec *syncx.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learner := rbac.SubjectFromContext(r.Context())
		if learner == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req struct {
			Completed bool `json:"completed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		courseID := chi.URLParam(r, "courseID")
		lessonID := chi.URLParam(r, "lessonID")
		e, applied, err := tr.SetLessonCompletion(r.Context(), learner, courseID, lessonID, req.Completed)
		if err != nil {
			writeErr(w, err)
			return
		}
		if applied && rec != nil {
			if err := rec.EnrollmentUpdated(r.Context(), e); err != nil {
				log.Printf("event log enrollment %s: %v", e.ID, err)
			}
		}
		writeJSON(w, map[string]any{"applied": applied, "enrollment": e})
	}
}

// GetProgressHandler reports the caller's own progress, or another learner's
// via ?learner_id= for roles allowed to view all.
func GetProgressHandler(tr *progress.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learner := rbac.SubjectFromContext(r.Context())
		if target := r.URL.Query().Get("learner_id"); target != "" && target != learner {
			if !checker.Has(rbac.RoleFromContext(r.Context()), "progress:view-all") {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			learner = target
		}
		if learner == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		e, err := tr.GetProgress(r.Context(), learner, chi.URLParam(r, "courseID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, e)
	}
}
