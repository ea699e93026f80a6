package session

import (
	"github.com/prepdesk/prepdesk/internal/errors"
)

type Mode string

const (
	ModePractice Mode = "practice"
	ModeMock     Mode = "mock"
	ModeQuick10  Mode = "quick10"
	ModeQuick4   Mode = "quick4"
)

// Policy describes how a mode builds its question set and how much of the
// question it exposes at start time.
type Policy struct {
	// MCQCount and LongFormCount are sampling quotas. Ignored when TakeAll is set.
	MCQCount      int
	LongFormCount int

	// TakeAll selects the full question set of a (course, diet) instead of sampling.
	TakeAll bool

	// NeedsDiet marks dietId as a required start parameter.
	NeedsDiet bool

	// RevealAnswers exposes correct answers and explanations in the start
	// response, for modes that grade on the client as the user goes.
	RevealAnswers bool

	// PersistAnswers marks the mode as persisting each answer immediately
	// through the answer endpoint instead of deferring to finish.
	PersistAnswers bool
}

var policies = map[Mode]Policy{
	ModePractice: {TakeAll: true, NeedsDiet: true, RevealAnswers: true, PersistAnswers: true},
	ModeMock:     {MCQCount: 20, LongFormCount: 6},
	ModeQuick10:  {MCQCount: 10, RevealAnswers: true},
	ModeQuick4:   {LongFormCount: 4},
}

func (m Mode) Policy() (Policy, error) {
	p, ok := policies[m]
	if !ok {
		return Policy{}, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("unknown mode: %s", m))
	}

	return p, nil
}

func Modes() []Mode {
	return []Mode{ModePractice, ModeMock, ModeQuick10, ModeQuick4}
}
