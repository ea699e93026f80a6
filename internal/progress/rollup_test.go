package progress_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepdesk/prepdesk/internal/domain"
	"github.com/prepdesk/prepdesk/internal/progress"
)

func TestNextAverage(t *testing.T) {
	type (
		inputs struct {
			scores []float64
		}

		outputs struct {
			average decimal.Decimal
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"first score becomes the average": {
			arrange: func() inputs {
				return inputs{scores: []float64{80}}
			},

			assert: func(t *testing.T, out outputs) {
				assert.InDelta(t, 80, out.average.InexactFloat64(), 1e-9)
			},
		},

		"two scores average to their mean": {
			arrange: func() inputs {
				return inputs{scores: []float64{80, 60}}
			},

			assert: func(t *testing.T, out outputs) {
				assert.InDelta(t, 70, out.average.InexactFloat64(), 1e-9)
			},
		},

		"incremental mean matches the arithmetic mean over many scores": {
			arrange: func() inputs {
				return inputs{scores: []float64{100, 0, 50, 75, 25, 80, 60}}
			},

			assert: func(t *testing.T, out outputs) {
				want := (100.0 + 0 + 50 + 75 + 25 + 80 + 60) / 7
				assert.InDelta(t, want, out.average.InexactFloat64(), 1e-9)
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			in := tt.arrange()

			avg := decimal.Zero
			for i, s := range in.scores {
				avg = progress.NextAverage(avg, int64(i), decimal.NewFromFloat(s))
			}

			tt.assert(t, outputs{average: avg})
		})
	}
}

func TestAdvance(t *testing.T) {
	r := domain.Rollup{UserID: "u1", CourseID: "c1"}

	r = progress.Advance(r, 20, 15, 600, decimal.NewFromInt(75))
	r = progress.Advance(r, 10, 5, 300, decimal.NewFromInt(50))

	assert.Equal(t, int64(2), r.TotalAttempts)
	assert.Equal(t, int64(30), r.TotalQuestions)
	assert.Equal(t, int64(20), r.TotalCorrect)
	assert.Equal(t, int64(900), r.TotalTimeSpent)
	assert.InDelta(t, 62.5, r.AverageScore.InexactFloat64(), 1e-9)
}

func TestAdvance_NoCrossContamination(t *testing.T) {
	// Interleaved finalizations for different (user, course) pairs must not
	// affect each other's averages.
	a := domain.Rollup{UserID: "u1", CourseID: "c1"}
	b := domain.Rollup{UserID: "u1", CourseID: "c2"}

	a = progress.Advance(a, 10, 8, 60, decimal.NewFromInt(80))
	b = progress.Advance(b, 10, 2, 60, decimal.NewFromInt(20))
	a = progress.Advance(a, 10, 6, 60, decimal.NewFromInt(60))

	require.InDelta(t, 70, a.AverageScore.InexactFloat64(), 1e-9)
	require.InDelta(t, 20, b.AverageScore.InexactFloat64(), 1e-9)
}

func TestWeightedAverage(t *testing.T) {
	rollups := []domain.Rollup{
		{TotalAttempts: 3, AverageScore: decimal.NewFromInt(90)},
		{TotalAttempts: 1, AverageScore: decimal.NewFromInt(50)},
	}

	got := progress.WeightedAverage(rollups)

	assert.InDelta(t, 80, got.InexactFloat64(), 1e-9)
}

func TestWeightedAverage_Empty(t *testing.T) {
	assert.True(t, progress.WeightedAverage(nil).IsZero())
}
