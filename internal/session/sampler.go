package session

import (
	"math/rand"

	"github.com/prepdesk/prepdesk/internal/domain"
)

// Shuffler abstracts the randomness used for question selection, so tests can
// inject a seeded source. *rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type globalRand struct{}

func (globalRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// sample draws up to n questions without replacement.
func sample(pool []domain.Question, n int, r Shuffler) []domain.Question {
	qs := make([]domain.Question, len(pool))
	copy(qs, pool)

	r.Shuffle(len(qs), func(i, j int) {
		qs[i], qs[j] = qs[j], qs[i]
	})

	if n < len(qs) {
		qs = qs[:n]
	}

	return qs
}

// selectQuestions builds the question set for a mode from the course pool.
// Sampling modes draw their per-type quotas independently, then shuffle the
// combined order so MCQs and long-form questions interleave.
func selectQuestions(p Policy, pool []domain.Question, r Shuffler) []domain.Question {
	if p.TakeAll {
		return pool
	}

	var mcq, longForm []domain.Question
	for _, q := range pool {
		switch q.Type {
		case domain.QuestionTypeMCQ:
			mcq = append(mcq, q)
		case domain.QuestionTypeLongForm:
			longForm = append(longForm, q)
		}
	}

	selected := append(sample(mcq, p.MCQCount, r), sample(longForm, p.LongFormCount, r)...)
	r.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})

	return selected
}
