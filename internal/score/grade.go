package score

import (
	"github.com/shopspring/decimal"

	"github.com/prepdesk/prepdesk/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Result of grading one session's answer map against its question set.
type Result struct {
	// Correct is the number of MCQs answered with the exact stored answer.
	Correct int
	// TotalScored counts the MCQs only. Long-form questions carry no
	// correctness signal and are excluded from the denominator.
	TotalScored int
	// Score is Correct/TotalScored*100, or zero when nothing was scorable.
	Score decimal.Decimal
}

// Grade compares submitted answers to the stored correct answers by exact
// string equality. Missing answers count as incorrect.
func Grade(questions []domain.Question, answers map[string]string) Result {
	var r Result
	for _, q := range questions {
		if q.Type != domain.QuestionTypeMCQ {
			continue
		}

		r.TotalScored++
		if answers[q.QuestionID] == q.CorrectAnswer {
			r.Correct++
		}
	}

	if r.TotalScored == 0 {
		r.Score = decimal.Zero
		return r
	}

	r.Score = decimal.NewFromInt(int64(r.Correct)).Mul(hundred).Div(decimal.NewFromInt(int64(r.TotalScored)))

	return r
}
