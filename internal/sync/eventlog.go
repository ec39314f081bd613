package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/learnhub-io/learnhub/internal/progress"
	"github.com/learnhub-io/learnhub/internal/quiz"
)

const (
	EventSubmissionRecorded = "SubmissionRecorded"
	EventEnrollmentUpdated  = "EnrollmentUpdated"
)

type Event struct {
	Seq       int64
	SiteID    string
	Type      string
	Key       string
	DataJSON  string
	CreatedAt int64
}

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.SiteID, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

// Publisher mirrors appended events to a broker. Optional; nil means
// log-only.
type Publisher interface {
	Publish(eventType string, payload any) error
}

// Recorder appends domain events to the local event log and, when a
// Publisher is configured, mirrors them out. The log append is authoritative;
// a publish failure is logged, not surfaced, so a broker outage never fails a
// learner-facing write.
type Recorder struct {
	repo   *EventRepo
	siteID string
	pub    Publisher
}

func NewRecorder(repo *EventRepo, siteID string, pub Publisher) *Recorder {
	if siteID == "" {
		siteID = "local"
	}
	return &Recorder{repo: repo, siteID: siteID, pub: pub}
}

func (r *Recorder) SubmissionRecorded(ctx context.Context, sub quiz.Submission) error {
	return r.record(ctx, EventSubmissionRecorded, sub.ID, sub)
}

func (r *Recorder) EnrollmentUpdated(ctx context.Context, e progress.Enrollment) error {
	return r.record(ctx, EventEnrollmentUpdated, e.ID, e)
}

func (r *Recorder) record(ctx context.Context, typ, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := r.repo.Append(ctx, Event{SiteID: r.siteID, Type: typ, Key: key, DataJSON: string(data)}); err != nil {
		return err
	}
	if r.pub != nil {
		if err := r.pub.Publish(typ, payload); err != nil {
			log.Printf("publish %s %s: %v", typ, key, err)
		}
	}
	return nil
}
