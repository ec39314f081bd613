package quiz

import (
	"context"
	"testing"
	"time"
)

func TestRegistry_EvictsScoredAfterRetention(t *testing.T) {
	reg := NewRegistry()
	scoredTime := time.Unix(1700000000, 0).UTC()

	scored := NewAttempt(twoQuestionQuiz(70), "u1", &fakeSink{},
		WithClock(func() time.Time { return scoredTime }),
		WithIDFunc(seqIDs()),
	)
	_ = scored.Start()
	if _, err := scored.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	// A distinct ID func so live does not collide with scored's "id-1" in the
	// registry map.
	live := NewAttempt(twoQuestionQuiz(70), "u1", &fakeSink{},
		WithClock(func() time.Time { return scoredTime }),
		WithIDFunc(func() string { return "live-1" }),
	)
	_ = live.Start()
	reg.Add(scored)
	reg.Add(live)

	// Inside the retention window both stay addressable.
	reg.evictScored(scoredTime.Add(scoredRetention / 2))
	if _, ok := reg.Get(scored.ID()); !ok {
		t.Fatal("scored attempt evicted inside retention window")
	}

	reg.evictScored(scoredTime.Add(scoredRetention))
	if _, ok := reg.Get(scored.ID()); ok {
		t.Fatal("scored attempt survived past retention")
	}
	if _, ok := reg.Get(live.ID()); !ok {
		t.Fatal("in-progress attempt evicted")
	}
}

func TestRegistry_RestartResetsEvictionClock(t *testing.T) {
	reg := NewRegistry()
	scoredTime := time.Unix(1700000000, 0).UTC()
	a := NewAttempt(twoQuestionQuiz(70), "u1", &fakeSink{},
		WithClock(func() time.Time { return scoredTime }),
		WithIDFunc(seqIDs()),
	)
	_ = a.Start()
	if _, err := a.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	reg.Add(a)

	if err := a.Restart(); err != nil {
		t.Fatal(err)
	}
	reg.evictScored(scoredTime.Add(2 * scoredRetention))
	if _, ok := reg.Get(a.ID()); !ok {
		t.Fatal("restarted attempt evicted")
	}
}
