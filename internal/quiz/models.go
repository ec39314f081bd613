package quiz

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a course, quiz, or attempt does not exist.
// Callers should test with errors.Is; stores wrap it with the missing entity.
var ErrNotFound = errors.New("not found")

type QuestionKind string

const (
	KindMultipleChoice QuestionKind = "multiple_choice"
	KindTrueFalse      QuestionKind = "true_false"
)

type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct,omitempty"`
}

type Question struct {
	ID      string       `json:"id"`
	Prompt  string       `json:"prompt"`
	Kind    QuestionKind `json:"kind"`
	Points  int          `json:"points"`
	Options []Option     `json:"options,omitempty"`
}

type Quiz struct {
	ID           string     `json:"id"`
	CourseID     string     `json:"course_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	PassingScore int        `json:"passing_score"` // percentage, 0..100
	TimeLimitMin int        `json:"time_limit_min,omitempty"`
	Questions    []Question `json:"questions"`
}

type Lesson struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type QuizSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type Course struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	Lessons []Lesson      `json:"lessons"`
	Quizzes []QuizSummary `json:"quizzes,omitempty"`
}

// Answer is one graded response inside a Submission. Correct is derived at
// scoring time; an unanswered question keeps an empty OptionID.
type Answer struct {
	QuestionID string `json:"question_id"`
	OptionID   string `json:"option_id,omitempty"`
	Correct    bool   `json:"correct"`
}

// Submission is the immutable result of one scored attempt.
type Submission struct {
	ID          string    `json:"id"`
	LearnerID   string    `json:"learner_id"`
	QuizID      string    `json:"quiz_id"`
	Score       int       `json:"score"` // percentage, 0..100
	Passed      bool      `json:"passed"`
	CompletedAt time.Time `json:"completed_at"`
	Answers     []Answer  `json:"answers"`
}

// Catalog serves course and quiz definitions. GetQuiz returns the full
// definition including correctness flags; strip with Sanitize before serving
// to learners.
type Catalog interface {
	GetCourse(ctx context.Context, courseID string) (Course, error)
	GetQuiz(ctx context.Context, courseID, quizID string) (Quiz, error)
}

// SubmissionStore appends scored submissions to a per-learner log.
type SubmissionStore interface {
	RecordSubmission(ctx context.Context, s Submission) error
	ListSubmissions(ctx context.Context, learnerID string) ([]Submission, error)
}

// Sanitize returns a copy of q with correctness flags stripped, safe to serve
// to a learner taking the quiz.
func Sanitize(q Quiz) Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		qc := question
		qc.Options = make([]Option, len(question.Options))
		for j, o := range question.Options {
			o.Correct = false
			qc.Options[j] = o
		}
		out.Questions[i] = qc
	}
	return out
}
