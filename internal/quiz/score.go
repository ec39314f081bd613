package quiz

import "math"

// ScoreAnswers grades a set of selections against a quiz. Every question
// counts toward the total; unanswered or unknown selections earn zero. The
// score is a half-up rounded percentage, 0 when the quiz carries no points.
func ScoreAnswers(q Quiz, selected map[string]string) (score int, passed bool, answers []Answer) {
	total, earned := 0, 0
	answers = make([]Answer, 0, len(q.Questions))
	for _, question := range q.Questions {
		total += question.Points
		a := Answer{QuestionID: question.ID, OptionID: selected[question.ID]}
		if a.OptionID != "" {
			for _, o := range question.Options {
				if o.ID == a.OptionID && o.Correct {
					a.Correct = true
					earned += question.Points
					break
				}
			}
		}
		answers = append(answers, a)
	}
	if total > 0 {
		score = int(math.Round(100 * float64(earned) / float64(total)))
	}
	passed = score >= q.PassingScore
	return score, passed, answers
}
