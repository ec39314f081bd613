package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/learnhub-io/learnhub/internal/progress"
	"github.com/learnhub-io/learnhub/internal/quiz"
)

// SQLStore persists the catalog, submissions, and progress records over
// database/sql. Nested documents (lessons, questions, answers, completed
// sets) live in JSON columns; timestamps are unix seconds.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) PutCourse(ctx context.Context, c quiz.Course) error {
	if c.ID == "" {
		return fmt.Errorf("course: missing id")
	}
	lj, err := json.Marshal(c.Lessons)
	if err != nil {
		return err
	}
	qj, err := json.Marshal(c.Quizzes)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO courses (id,title,lessons_json,quizzes_json,created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, lessons_json=EXCLUDED.lessons_json, quizzes_json=EXCLUDED.quizzes_json`,
		c.ID, c.Title, string(lj), string(qj), time.Now().Unix())
	return err
}

func (s *SQLStore) GetCourse(ctx context.Context, courseID string) (quiz.Course, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,lessons_json,quizzes_json FROM courses WHERE id=$1`, courseID)
	var c quiz.Course
	var lj, qj string
	if err := row.Scan(&c.ID, &c.Title, &lj, &qj); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return quiz.Course{}, fmt.Errorf("course %s: %w", courseID, quiz.ErrNotFound)
		}
		return quiz.Course{}, err
	}
	if err := json.Unmarshal([]byte(lj), &c.Lessons); err != nil {
		return quiz.Course{}, err
	}
	if qj != "" && qj != "null" {
		if err := json.Unmarshal([]byte(qj), &c.Quizzes); err != nil {
			return quiz.Course{}, err
		}
	}
	return c, nil
}

func (s *SQLStore) PutQuiz(ctx context.Context, q quiz.Quiz) error {
	if err := quiz.Validate(q); err != nil {
		return err
	}
	qj, err := json.Marshal(q.Questions)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO quizzes (id,course_id,title,description,passing_score,time_limit_min,questions_json,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET course_id=EXCLUDED.course_id, title=EXCLUDED.title, description=EXCLUDED.description,
			passing_score=EXCLUDED.passing_score, time_limit_min=EXCLUDED.time_limit_min, questions_json=EXCLUDED.questions_json`,
		q.ID, q.CourseID, q.Title, q.Description, q.PassingScore, q.TimeLimitMin, string(qj), time.Now().Unix())
	return err
}

func (s *SQLStore) GetQuiz(ctx context.Context, courseID, quizID string) (quiz.Quiz, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,course_id,title,description,passing_score,time_limit_min,questions_json
		FROM quizzes WHERE id=$1 AND course_id=$2`, quizID, courseID)
	var q quiz.Quiz
	var qj string
	if err := row.Scan(&q.ID, &q.CourseID, &q.Title, &q.Description, &q.PassingScore, &q.TimeLimitMin, &qj); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return quiz.Quiz{}, fmt.Errorf("quiz %s: %w", quizID, quiz.ErrNotFound)
		}
		return quiz.Quiz{}, err
	}
	if err := json.Unmarshal([]byte(qj), &q.Questions); err != nil {
		return quiz.Quiz{}, err
	}
	return q, nil
}

func (s *SQLStore) RecordSubmission(ctx context.Context, sub quiz.Submission) error {
	aj, err := json.Marshal(sub.Answers)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO submissions (id,learner_id,quiz_id,score,passed,answers_json,completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		sub.ID, sub.LearnerID, sub.QuizID, sub.Score, sub.Passed, string(aj), sub.CompletedAt.Unix())
	return err
}

func (s *SQLStore) ListSubmissions(ctx context.Context, learnerID string) ([]quiz.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,learner_id,quiz_id,score,passed,answers_json,completed_at
		FROM submissions WHERE learner_id=$1 ORDER BY completed_at ASC, id ASC`, learnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []quiz.Submission{}
	for rows.Next() {
		var sub quiz.Submission
		var aj string
		var done int64
		if err := rows.Scan(&sub.ID, &sub.LearnerID, &sub.QuizID, &sub.Score, &sub.Passed, &aj, &done); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(aj), &sub.Answers); err != nil {
			return nil, err
		}
		sub.CompletedAt = time.Unix(done, 0).UTC()
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetEnrollment(ctx context.Context, learnerID, courseID string) (progress.Enrollment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,learner_id,course_id,progress,status,enrolled_at,completed_at
		FROM enrollments WHERE learner_id=$1 AND course_id=$2`, learnerID, courseID)
	var e progress.Enrollment
	var enrolled int64
	var completed sql.NullInt64
	if err := row.Scan(&e.ID, &e.LearnerID, &e.CourseID, &e.Progress, &e.Status, &enrolled, &completed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return progress.Enrollment{}, fmt.Errorf("enrollment %s/%s: %w", learnerID, courseID, quiz.ErrNotFound)
		}
		return progress.Enrollment{}, err
	}
	e.EnrolledAt = time.Unix(enrolled, 0).UTC()
	if completed.Valid {
		t := time.Unix(completed.Int64, 0).UTC()
		e.CompletedAt = &t
	}
	return e, nil
}

func (s *SQLStore) SaveEnrollment(ctx context.Context, e progress.Enrollment) error {
	var completed sql.NullInt64
	if e.CompletedAt != nil {
		completed.Valid = true
		completed.Int64 = e.CompletedAt.Unix()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO enrollments (id,learner_id,course_id,progress,status,enrolled_at,completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (learner_id,course_id) DO UPDATE SET progress=EXCLUDED.progress, status=EXCLUDED.status, completed_at=EXCLUDED.completed_at`,
		e.ID, e.LearnerID, e.CourseID, e.Progress, string(e.Status), e.EnrolledAt.Unix(), completed)
	return err
}

func (s *SQLStore) GetCompletedLessons(ctx context.Context, learnerID, courseID string) (map[string]struct{}, error) {
	row := s.db.QueryRowContext(ctx, `SELECT lessons_json FROM lesson_completions WHERE learner_id=$1 AND course_id=$2`,
		learnerID, courseID)
	var lj string
	if err := row.Scan(&lj); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[string]struct{}{}, nil
		}
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(lj), &ids); err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (s *SQLStore) SaveCompletedLessons(ctx context.Context, learnerID, courseID string, lessons map[string]struct{}) error {
	ids := make([]string, 0, len(lessons))
	for id := range lessons {
		ids = append(ids, id)
	}
	lj, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO lesson_completions (learner_id,course_id,lessons_json,updated_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (learner_id,course_id) DO UPDATE SET lessons_json=EXCLUDED.lessons_json, updated_at=EXCLUDED.updated_at`,
		learnerID, courseID, string(lj), time.Now().Unix())
	return err
}
