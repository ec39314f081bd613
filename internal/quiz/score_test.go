package quiz

import "testing"

func twoQuestionQuiz(passing int) Quiz {
	return Quiz{
		ID:           "quiz-1",
		CourseID:     "course-1",
		Title:        "Unit 1 Check",
		PassingScore: passing,
		Questions: []Question{
			{
				ID: "q1", Prompt: "2+2?", Kind: KindMultipleChoice, Points: 10,
				Options: []Option{
					{ID: "q1a", Text: "3"},
					{ID: "q1b", Text: "4", Correct: true},
					{ID: "q1c", Text: "5"},
				},
			},
			{
				ID: "q2", Prompt: "The sky is blue.", Kind: KindTrueFalse, Points: 10,
				Options: []Option{
					{ID: "q2t", Text: "True", Correct: true},
					{ID: "q2f", Text: "False"},
				},
			},
		},
	}
}

func TestScoreAnswers_AllCorrect(t *testing.T) {
	q := twoQuestionQuiz(100)
	score, passed, answers := ScoreAnswers(q, map[string]string{"q1": "q1b", "q2": "q2t"})
	if score != 100 {
		t.Fatalf("score = %d, want 100", score)
	}
	if !passed {
		t.Fatalf("expected pass at passing score 100")
	}
	if len(answers) != 2 || !answers[0].Correct || !answers[1].Correct {
		t.Fatalf("unexpected answers: %+v", answers)
	}
}

func TestScoreAnswers_NoAnswers(t *testing.T) {
	q := twoQuestionQuiz(70)
	score, passed, answers := ScoreAnswers(q, nil)
	if score != 0 || passed {
		t.Fatalf("score = %d passed = %v, want 0/false", score, passed)
	}
	// Unanswered questions still appear in the graded list.
	if len(answers) != 2 {
		t.Fatalf("expected 2 graded answers, got %d", len(answers))
	}
	for _, a := range answers {
		if a.OptionID != "" || a.Correct {
			t.Fatalf("unanswered question graded as %+v", a)
		}
	}
}

func TestScoreAnswers_HalfCorrect(t *testing.T) {
	// 2 questions x 10 points, passing 70: one right, one wrong -> 50, fail.
	q := twoQuestionQuiz(70)
	score, passed, _ := ScoreAnswers(q, map[string]string{"q1": "q1b", "q2": "q2f"})
	if score != 50 {
		t.Fatalf("score = %d, want 50", score)
	}
	if passed {
		t.Fatalf("50 should not pass at 70")
	}
}

func TestScoreAnswers_HalfUpRounding(t *testing.T) {
	// earned 17 / total 20 -> 85; earned 1 / total 3 -> 33; earned 2/3 -> 67.
	q := Quiz{
		ID: "quiz-r", PassingScore: 0,
		Questions: []Question{
			{ID: "a", Kind: KindTrueFalse, Points: 1, Options: []Option{{ID: "at", Correct: true}, {ID: "af"}}},
			{ID: "b", Kind: KindTrueFalse, Points: 1, Options: []Option{{ID: "bt", Correct: true}, {ID: "bf"}}},
			{ID: "c", Kind: KindTrueFalse, Points: 1, Options: []Option{{ID: "ct", Correct: true}, {ID: "cf"}}},
		},
	}
	score, _, _ := ScoreAnswers(q, map[string]string{"a": "at"})
	if score != 33 {
		t.Fatalf("1/3 -> %d, want 33", score)
	}
	score, _, _ = ScoreAnswers(q, map[string]string{"a": "at", "b": "bt"})
	if score != 67 {
		t.Fatalf("2/3 -> %d, want 67", score)
	}

	weighted := Quiz{
		ID: "quiz-w", PassingScore: 0,
		Questions: []Question{
			{ID: "big", Kind: KindMultipleChoice, Points: 17, Options: []Option{{ID: "bx", Correct: true}, {ID: "by"}}},
			{ID: "small", Kind: KindTrueFalse, Points: 3, Options: []Option{{ID: "st", Correct: true}, {ID: "sf"}}},
		},
	}
	if score, _, _ = ScoreAnswers(weighted, map[string]string{"big": "bx"}); score != 85 {
		t.Fatalf("17/20 -> %d, want 85", score)
	}

	// Exact .5 rounds up: 1/8 points -> 12.5 -> 13.
	tie := Quiz{
		ID: "quiz-t", PassingScore: 0,
		Questions: []Question{
			{ID: "one", Kind: KindTrueFalse, Points: 1, Options: []Option{{ID: "ot", Correct: true}, {ID: "of"}}},
			{ID: "seven", Kind: KindTrueFalse, Points: 7, Options: []Option{{ID: "st", Correct: true}, {ID: "sf"}}},
		},
	}
	if score, _, _ = ScoreAnswers(tie, map[string]string{"one": "ot"}); score != 13 {
		t.Fatalf("12.5 -> %d, want 13", score)
	}
}

func TestScoreAnswers_UnknownOptionEarnsNothing(t *testing.T) {
	q := twoQuestionQuiz(70)
	score, _, answers := ScoreAnswers(q, map[string]string{"q1": "bogus", "q2": "q2t"})
	if score != 50 {
		t.Fatalf("score = %d, want 50", score)
	}
	if answers[0].Correct {
		t.Fatalf("unknown option graded correct")
	}
}
