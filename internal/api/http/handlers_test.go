package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	api "github.com/learnhub-io/learnhub/internal/api/http"
	"github.com/learnhub-io/learnhub/internal/db"
	"github.com/learnhub-io/learnhub/internal/progress"
	"github.com/learnhub-io/learnhub/internal/quiz"
	"github.com/learnhub-io/learnhub/internal/rbac"
	"github.com/learnhub-io/learnhub/internal/store"
	syncx "github.com/learnhub-io/learnhub/internal/sync"
)

// asUser stamps subject and role straight into the context, standing in for
// the JWT middleware.
func asUser(sub, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := rbac.WithSubject(r.Context(), sub)
			ctx = rbac.WithRole(ctx, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestServer(t *testing.T, sub, role string) (*httptest.Server, *store.MemoryStore, *quiz.Registry) {
	t.Helper()
	st := store.NewMemoryStore()
	registry := quiz.NewRegistry()
	tracker := progress.NewTracker(st, st)

	r := chi.NewRouter()
	r.Use(asUser(sub, role))
	r.With(rbac.Require("quiz:view")).Get("/courses/{courseID}/quizzes/{quizID}", api.GetQuizHandler(st))
	r.With(rbac.Require("attempt:create")).Post("/attempts", api.CreateAttemptHandler(st, registry, st))
	r.With(rbac.Require("attempt:answer")).Post("/attempts/{attemptID}/answers", api.SelectAnswerHandler(registry))
	r.With(rbac.Require("attempt:submit")).Post("/attempts/{attemptID}/submit", api.SubmitAttemptHandler(registry, nil))
	r.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).Get("/attempts/{attemptID}", api.GetAttemptHandler(registry))
	r.With(rbac.Require("enrollment:enroll")).Post("/courses/{courseID}/enroll", api.EnrollHandler(tracker, nil))
	r.With(rbac.Require("lesson:toggle")).Put("/courses/{courseID}/lessons/{lessonID}/completion", api.SetLessonCompletionHandler(tracker, nil))
	r.With(rbac.RequireAny("progress:view-own", "progress:view-all")).Get("/courses/{courseID}/progress", api.GetProgressHandler(tracker))

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, st, registry
}

func seed(t *testing.T, st *store.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	course := quiz.Course{
		ID:    "course-1",
		Title: "Intro",
		Lessons: []quiz.Lesson{
			{ID: "l1"}, {ID: "l2"}, {ID: "l3"}, {ID: "l4"},
		},
	}
	if err := st.PutCourse(ctx, course); err != nil {
		t.Fatal(err)
	}
	q := quiz.Quiz{
		ID: "quiz-1", CourseID: "course-1", Title: "Check", PassingScore: 70,
		Questions: []quiz.Question{
			{ID: "q1", Kind: quiz.KindMultipleChoice, Points: 10, Options: []quiz.Option{
				{ID: "a"}, {ID: "b", Correct: true}, {ID: "c"},
			}},
			{ID: "q2", Kind: quiz.KindTrueFalse, Points: 10, Options: []quiz.Option{
				{ID: "t", Correct: true}, {ID: "f"},
			}},
		},
	}
	if err := st.PutQuiz(ctx, q); err != nil {
		t.Fatal(err)
	}
}

func doJSON(t *testing.T, method, url string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp
}

func TestQuizServedWithoutCorrectnessFlags(t *testing.T) {
	ts, st, _ := newTestServer(t, "u1", "learner")
	seed(t, st)

	var q quiz.Quiz
	resp := doJSON(t, "GET", ts.URL+"/courses/course-1/quizzes/quiz-1", nil, &q)
	if resp.StatusCode != 200 {
		t.Fatalf("status %d", resp.StatusCode)
	}
	for _, question := range q.Questions {
		for _, o := range question.Options {
			if o.Correct {
				t.Fatalf("correctness flag leaked on %s/%s", question.ID, o.ID)
			}
		}
	}
}

func TestAttemptFlowOverHTTP(t *testing.T) {
	ts, st, _ := newTestServer(t, "u1", "learner")
	seed(t, st)

	var att struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	resp := doJSON(t, "POST", ts.URL+"/attempts",
		map[string]string{"course_id": "course-1", "quiz_id": "quiz-1"}, &att)
	if resp.StatusCode != 200 || att.State != "in_progress" {
		t.Fatalf("create attempt: status=%d state=%s", resp.StatusCode, att.State)
	}

	var sel struct {
		Applied bool `json:"applied"`
	}
	doJSON(t, "POST", ts.URL+"/attempts/"+att.ID+"/answers",
		map[string]string{"question_id": "q1", "option_id": "b"}, &sel)
	if !sel.Applied {
		t.Fatal("answer not applied")
	}
	// Unknown question: observable no-op, still 200.
	doJSON(t, "POST", ts.URL+"/attempts/"+att.ID+"/answers",
		map[string]string{"question_id": "nope", "option_id": "b"}, &sel)
	if sel.Applied {
		t.Fatal("unknown question applied")
	}

	var sub quiz.Submission
	resp = doJSON(t, "POST", ts.URL+"/attempts/"+att.ID+"/submit", nil, &sub)
	if resp.StatusCode != 200 {
		t.Fatalf("submit status %d", resp.StatusCode)
	}
	if sub.Score != 50 || sub.Passed {
		t.Fatalf("submission = %+v, want 50/fail", sub)
	}

	// Double submit is a state conflict.
	resp = doJSON(t, "POST", ts.URL+"/attempts/"+att.ID+"/submit", nil, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double submit status %d, want 409", resp.StatusCode)
	}

	list, err := st.ListSubmissions(context.Background(), "u1")
	if err != nil || len(list) != 1 {
		t.Fatalf("submission log: %v %v", list, err)
	}
}

func TestAttemptOwnership(t *testing.T) {
	ts, st, reg := newTestServer(t, "intruder", "learner")
	seed(t, st)

	a := quiz.NewAttempt(mustQuiz(t, st), "owner", st)
	_ = a.Start()
	reg.Add(a)

	resp := doJSON(t, "POST", ts.URL+"/attempts/"+a.ID()+"/submit", nil, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign submit status %d, want 403", resp.StatusCode)
	}
	resp = doJSON(t, "GET", ts.URL+"/attempts/"+a.ID(), nil, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign view status %d, want 403", resp.StatusCode)
	}
}

func mustQuiz(t *testing.T, st *store.MemoryStore) quiz.Quiz {
	t.Helper()
	q, err := st.GetQuiz(context.Background(), "course-1", "quiz-1")
	if err != nil {
		t.Fatal(err)
	}
	return q
}

func TestProgressFlowOverHTTP(t *testing.T) {
	ts, st, _ := newTestServer(t, "u1", "learner")
	seed(t, st)

	var e progress.Enrollment
	resp := doJSON(t, "POST", ts.URL+"/courses/course-1/enroll", nil, &e)
	if resp.StatusCode != 200 || e.Status != progress.StatusInProgress {
		t.Fatalf("enroll: status=%d %+v", resp.StatusCode, e)
	}
	var e2 progress.Enrollment
	doJSON(t, "POST", ts.URL+"/courses/course-1/enroll", nil, &e2)
	if e2.ID != e.ID {
		t.Fatalf("enroll not idempotent: %s vs %s", e2.ID, e.ID)
	}

	for i, l := range []string{"l1", "l2", "l3"} {
		var out struct {
			Applied    bool                `json:"applied"`
			Enrollment progress.Enrollment `json:"enrollment"`
		}
		doJSON(t, "PUT", fmt.Sprintf("%s/courses/course-1/lessons/%s/completion", ts.URL, l),
			map[string]bool{"completed": true}, &out)
		if !out.Applied {
			t.Fatalf("toggle %d not applied", i)
		}
	}
	var got progress.Enrollment
	doJSON(t, "GET", ts.URL+"/courses/course-1/progress", nil, &got)
	if got.Progress != 75 || got.Status != progress.StatusInProgress {
		t.Fatalf("progress = %+v, want 75/in-progress", got)
	}

	var out struct {
		Enrollment progress.Enrollment `json:"enrollment"`
	}
	doJSON(t, "PUT", ts.URL+"/courses/course-1/lessons/l4/completion",
		map[string]bool{"completed": true}, &out)
	if out.Enrollment.Progress != 100 || out.Enrollment.Status != progress.StatusCompleted {
		t.Fatalf("completion: %+v", out.Enrollment)
	}

	resp = doJSON(t, "POST", ts.URL+"/courses/ghost/enroll", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("ghost course status %d, want 404", resp.StatusCode)
	}
}

func TestEnrollEmitsEventOnlyOnCreate(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:enrollevents.db?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })
	rec := syncx.NewRecorder(syncx.NewEventRepo(dbh), "site-a", nil)

	st := store.NewMemoryStore()
	seed(t, st)
	tracker := progress.NewTracker(st, st)

	r := chi.NewRouter()
	r.Use(asUser("u1", "learner"))
	r.Post("/courses/{courseID}/enroll", api.EnrollHandler(tracker, rec))
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	for i := 0; i < 2; i++ {
		if resp := doJSON(t, "POST", ts.URL+"/courses/course-1/enroll", nil, nil); resp.StatusCode != 200 {
			t.Fatalf("enroll %d: status %d", i, resp.StatusCode)
		}
	}
	var n int
	if err := dbh.QueryRow(`SELECT COUNT(*) FROM event_log WHERE typ=$1`, syncx.EventEnrollmentUpdated).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("enrollment events = %d, want 1 (re-enroll must not emit)", n)
	}
}

func TestInstructorCannotTakeQuiz(t *testing.T) {
	ts, st, _ := newTestServer(t, "t1", "instructor")
	seed(t, st)
	resp := doJSON(t, "POST", ts.URL+"/attempts",
		map[string]string{"course_id": "course-1", "quiz_id": "quiz-1"}, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("instructor attempt status %d, want 403", resp.StatusCode)
	}
}
