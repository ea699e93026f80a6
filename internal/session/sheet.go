package session

// Sheet holds the answers a user builds up while a session is open. It models
// the client-held state: a plain map mutated as the user navigates, with
// last-write-wins per question and no side effects until finalization.
// It is owned by a single controller and is not safe for concurrent use.
type Sheet struct {
	questionIDs map[string]struct{}
	answers     map[string]string
}

func NewSheet(questionIDs []string) *Sheet {
	ids := make(map[string]struct{}, len(questionIDs))
	for _, id := range questionIDs {
		ids[id] = struct{}{}
	}

	return &Sheet{
		questionIDs: ids,
		answers:     make(map[string]string),
	}
}

// Set records an answer for a question. Re-answering overwrites the previous
// value. Answers for questions outside the session's set, or empty answers,
// are ignored.
func (s *Sheet) Set(questionID, answer string) {
	if answer == "" {
		return
	}
	if _, ok := s.questionIDs[questionID]; !ok {
		return
	}

	s.answers[questionID] = answer
}

// Clear removes the recorded answer for a question.
func (s *Sheet) Clear(questionID string) {
	delete(s.answers, questionID)
}

func (s *Sheet) Answered() int { return len(s.answers) }

// Answers returns a copy of the recorded answers, ready to hand to finalize.
func (s *Sheet) Answers() map[string]string {
	m := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		m[k] = v
	}

	return m
}
