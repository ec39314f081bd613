package quiz

import "fmt"

// Validate checks a quiz definition at load time. Stores call this before
// accepting a definition so an invalid quiz is rejected before any attempt
// can start against it.
func Validate(q Quiz) error {
	if q.ID == "" {
		return fmt.Errorf("quiz: missing id")
	}
	if q.PassingScore < 0 || q.PassingScore > 100 {
		return fmt.Errorf("quiz %s: passing score %d out of range [0,100]", q.ID, q.PassingScore)
	}
	if q.TimeLimitMin < 0 {
		return fmt.Errorf("quiz %s: negative time limit", q.ID)
	}
	if len(q.Questions) == 0 {
		return fmt.Errorf("quiz %s: no questions", q.ID)
	}
	seen := make(map[string]struct{}, len(q.Questions))
	for _, question := range q.Questions {
		if question.ID == "" {
			return fmt.Errorf("quiz %s: question with empty id", q.ID)
		}
		if _, dup := seen[question.ID]; dup {
			return fmt.Errorf("quiz %s: duplicate question %s", q.ID, question.ID)
		}
		seen[question.ID] = struct{}{}
		if question.Points <= 0 {
			return fmt.Errorf("quiz %s: question %s: points must be positive", q.ID, question.ID)
		}
		if err := validateOptions(question); err != nil {
			return fmt.Errorf("quiz %s: question %s: %w", q.ID, question.ID, err)
		}
	}
	return nil
}

func validateOptions(q Question) error {
	switch q.Kind {
	case KindMultipleChoice:
		if len(q.Options) < 2 {
			return fmt.Errorf("multiple-choice needs at least 2 options")
		}
	case KindTrueFalse:
		if len(q.Options) != 2 {
			return fmt.Errorf("true-false needs exactly 2 options")
		}
	default:
		return fmt.Errorf("unknown kind %q", q.Kind)
	}
	correct := 0
	ids := make(map[string]struct{}, len(q.Options))
	for _, o := range q.Options {
		if o.ID == "" {
			return fmt.Errorf("option with empty id")
		}
		if _, dup := ids[o.ID]; dup {
			return fmt.Errorf("duplicate option %s", o.ID)
		}
		ids[o.ID] = struct{}{}
		if o.Correct {
			correct++
		}
	}
	if correct != 1 {
		return fmt.Errorf("exactly one correct option required, got %d", correct)
	}
	return nil
}
