package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSheet(t *testing.T) {
	t.Run("last write wins per question", func(t *testing.T) {
		s := NewSheet([]string{"q1", "q2"})

		s.Set("q1", "A")
		s.Set("q1", "B")
		s.Set("q2", "C")

		assert.Equal(t, map[string]string{"q1": "B", "q2": "C"}, s.Answers())
		assert.Equal(t, 2, s.Answered())
	})

	t.Run("answers outside the question set are ignored", func(t *testing.T) {
		s := NewSheet([]string{"q1"})

		s.Set("q9", "A")

		assert.Empty(t, s.Answers())
	})

	t.Run("empty answers are ignored", func(t *testing.T) {
		s := NewSheet([]string{"q1"})

		s.Set("q1", "")

		assert.Empty(t, s.Answers())
	})

	t.Run("clear removes a recorded answer", func(t *testing.T) {
		s := NewSheet([]string{"q1"})

		s.Set("q1", "A")
		s.Clear("q1")

		assert.Zero(t, s.Answered())
	})

	t.Run("returned map is a copy", func(t *testing.T) {
		s := NewSheet([]string{"q1"})
		s.Set("q1", "A")

		m := s.Answers()
		m["q1"] = "mutated"

		assert.Equal(t, map[string]string{"q1": "A"}, s.Answers())
	})
}
