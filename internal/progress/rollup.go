package progress

import (
	"github.com/shopspring/decimal"

	"github.com/prepdesk/prepdesk/internal/domain"
)

// NextAverage advances a running average by one more score using the weighted
// incremental mean. The rollup never re-reads raw attempt history.
func NextAverage(oldAverage decimal.Decimal, oldAttempts int64, score decimal.Decimal) decimal.Decimal {
	total := oldAverage.Mul(decimal.NewFromInt(oldAttempts)).Add(score)

	return total.Div(decimal.NewFromInt(oldAttempts + 1))
}

// Advance folds one finalized session into a rollup.
func Advance(r domain.Rollup, questions, correct, timeSpent int64, score decimal.Decimal) domain.Rollup {
	r.AverageScore = NextAverage(r.AverageScore, r.TotalAttempts, score)
	r.TotalAttempts++
	r.TotalQuestions += questions
	r.TotalCorrect += correct
	r.TotalTimeSpent += timeSpent

	return r
}

// WeightedAverage combines per-course rollups into one overall average,
// weighting each course by its attempt count.
func WeightedAverage(rollups []domain.Rollup) decimal.Decimal {
	var (
		total    decimal.Decimal
		attempts int64
	)
	for _, r := range rollups {
		total = total.Add(r.AverageScore.Mul(decimal.NewFromInt(r.TotalAttempts)))
		attempts += r.TotalAttempts
	}

	if attempts == 0 {
		return decimal.Zero
	}

	return total.Div(decimal.NewFromInt(attempts))
}
