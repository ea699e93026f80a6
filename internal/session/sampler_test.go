package session

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepdesk/prepdesk/internal/domain"
)

func TestSelectQuestions(t *testing.T) {
	type (
		inputs struct {
			mode Mode
			pool []domain.Question
		}

		outputs struct {
			selected []domain.Question
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, in inputs, out outputs)
	}{
		"mock draws 20 MCQ and 6 long-form from a larger pool": {
			arrange: func() inputs {
				return inputs{
					mode: ModeMock,
					pool: makePool(25, 8),
				}
			},

			assert: func(t *testing.T, in inputs, out outputs) {
				assert.Len(t, out.selected, 26)
				assert.Equal(t, 20, countType(out.selected, domain.QuestionTypeMCQ))
				assert.Equal(t, 6, countType(out.selected, domain.QuestionTypeLongForm))
			},
		},

		"mock takes the whole pool when it is smaller than the quotas": {
			arrange: func() inputs {
				return inputs{
					mode: ModeMock,
					pool: makePool(12, 3),
				}
			},

			assert: func(t *testing.T, in inputs, out outputs) {
				assert.Len(t, out.selected, 15)
			},
		},

		"quick10 draws 10 MCQs only": {
			arrange: func() inputs {
				return inputs{
					mode: ModeQuick10,
					pool: makePool(30, 10),
				}
			},

			assert: func(t *testing.T, in inputs, out outputs) {
				assert.Len(t, out.selected, 10)
				assert.Equal(t, 10, countType(out.selected, domain.QuestionTypeMCQ))
			},
		},

		"quick4 draws 4 long-form only": {
			arrange: func() inputs {
				return inputs{
					mode: ModeQuick4,
					pool: makePool(30, 10),
				}
			},

			assert: func(t *testing.T, in inputs, out outputs) {
				assert.Len(t, out.selected, 4)
				assert.Equal(t, 4, countType(out.selected, domain.QuestionTypeLongForm))
			},
		},

		"practice takes the full pool unsampled": {
			arrange: func() inputs {
				return inputs{
					mode: ModePractice,
					pool: makePool(7, 2),
				}
			},

			assert: func(t *testing.T, in inputs, out outputs) {
				assert.Len(t, out.selected, 9)
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			in := tt.arrange()

			p, err := in.mode.Policy()
			require.NoError(t, err)

			out := outputs{
				selected: selectQuestions(p, in.pool, rand.New(rand.NewSource(1))),
			}

			assertNoDuplicates(t, out.selected)
			tt.assert(t, in, out)
		})
	}
}

func TestSample_WithoutReplacement(t *testing.T) {
	pool := makePool(50, 0)

	got := sample(pool, 20, rand.New(rand.NewSource(42)))

	require.Len(t, got, 20)
	assertNoDuplicates(t, got)
}

func makePool(mcq, longForm int) []domain.Question {
	var pool []domain.Question
	for i := 0; i < mcq; i++ {
		pool = append(pool, domain.Question{
			QuestionID: "mcq-" + string(rune('a'+i%26)) + string(rune('a'+i/26)),
			Type:       domain.QuestionTypeMCQ,
		})
	}
	for i := 0; i < longForm; i++ {
		pool = append(pool, domain.Question{
			QuestionID: "lf-" + string(rune('a'+i%26)) + string(rune('a'+i/26)),
			Type:       domain.QuestionTypeLongForm,
		})
	}

	return pool
}

func countType(qs []domain.Question, typ domain.QuestionType) int {
	n := 0
	for _, q := range qs {
		if q.Type == typ {
			n++
		}
	}

	return n
}

func assertNoDuplicates(t *testing.T, qs []domain.Question) {
	t.Helper()

	seen := make(map[string]struct{}, len(qs))
	for _, q := range qs {
		_, dup := seen[q.QuestionID]
		assert.False(t, dup, "question %s selected twice", q.QuestionID)
		seen[q.QuestionID] = struct{}{}
	}
}
