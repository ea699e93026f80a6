package score_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prepdesk/prepdesk/internal/domain"
	"github.com/prepdesk/prepdesk/internal/score"
)

func TestGrade(t *testing.T) {
	type (
		inputs struct {
			questions []domain.Question
			answers   map[string]string
		}

		outputs = score.Result
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"15 of 20 correct MCQs scores 75, long-form excluded from the denominator": {
			arrange: func() inputs {
				qs := makeMCQs(20)
				for i := 0; i < 6; i++ {
					qs = append(qs, domain.Question{
						QuestionID: fmt.Sprintf("lf%d", i),
						Type:       domain.QuestionTypeLongForm,
					})
				}

				answers := correctAnswersFor(qs[:15])
				for i := 15; i < 20; i++ {
					answers[qs[i].QuestionID] = "wrong"
				}
				answers["lf0"] = "a long essay"

				return inputs{questions: qs, answers: answers}
			},

			assert: func(t *testing.T, out outputs) {
				assert.Equal(t, 15, out.Correct)
				assert.Equal(t, 20, out.TotalScored)
				assert.InDelta(t, 75.0, out.Score.InexactFloat64(), 1e-9)
			},
		},

		"zero correct answers scores zero": {
			arrange: func() inputs {
				return inputs{
					questions: makeMCQs(10),
					answers:   map[string]string{},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.Equal(t, 0, out.Correct)
				assert.Equal(t, 10, out.TotalScored)
				assert.True(t, out.Score.IsZero())
			},
		},

		"no scorable questions is a defined zero, not an error": {
			arrange: func() inputs {
				return inputs{
					questions: []domain.Question{
						{QuestionID: "lf1", Type: domain.QuestionTypeLongForm},
						{QuestionID: "lf2", Type: domain.QuestionTypeLongForm},
					},
					answers: map[string]string{"lf1": "essay"},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.Zero(t, out.TotalScored)
				assert.True(t, out.Score.IsZero())
			},
		},

		"comparison is exact string equality": {
			arrange: func() inputs {
				qs := []domain.Question{{
					QuestionID:    "q1",
					Type:          domain.QuestionTypeMCQ,
					CorrectAnswer: "Option A",
				}}

				return inputs{
					questions: qs,
					answers:   map[string]string{"q1": "option a"},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.Zero(t, out.Correct)
			},
		},

		"all correct scores 100": {
			arrange: func() inputs {
				qs := makeMCQs(4)
				return inputs{questions: qs, answers: correctAnswersFor(qs)}
			},

			assert: func(t *testing.T, out outputs) {
				assert.InDelta(t, 100.0, out.Score.InexactFloat64(), 1e-9)
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			in := tt.arrange()
			tt.assert(t, score.Grade(in.questions, in.answers))
		})
	}
}

func makeMCQs(n int) []domain.Question {
	qs := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		qs = append(qs, domain.Question{
			QuestionID:    fmt.Sprintf("q%d", i),
			Type:          domain.QuestionTypeMCQ,
			CorrectAnswer: fmt.Sprintf("answer-%d", i),
		})
	}

	return qs
}

func correctAnswersFor(qs []domain.Question) map[string]string {
	m := make(map[string]string, len(qs))
	for _, q := range qs {
		m[q.QuestionID] = q.CorrectAnswer
	}

	return m
}
