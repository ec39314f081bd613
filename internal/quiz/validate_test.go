package quiz

import "testing"

func TestValidate_OK(t *testing.T) {
	if err := Validate(twoQuestionQuiz(70)); err != nil {
		t.Fatalf("valid quiz rejected: %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	base := twoQuestionQuiz(70)

	noQuestions := base
	noQuestions.Questions = nil

	badPassing := base
	badPassing.PassingScore = 101

	twoCorrect := twoQuestionQuiz(70)
	twoCorrect.Questions[0].Options[0].Correct = true

	noCorrect := twoQuestionQuiz(70)
	noCorrect.Questions[0].Options[1].Correct = false

	zeroPoints := twoQuestionQuiz(70)
	zeroPoints.Questions[0].Points = 0

	badKind := twoQuestionQuiz(70)
	badKind.Questions[0].Kind = "essay"

	cases := []struct {
		name string
		q    Quiz
	}{
		{"no questions", noQuestions},
		{"passing score out of range", badPassing},
		{"two correct options", twoCorrect},
		{"no correct option", noCorrect},
		{"non-positive points", zeroPoints},
		{"unknown kind", badKind},
	}
	for _, tc := range cases {
		if err := Validate(tc.q); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}
