package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type QuestionType string

const (
	QuestionTypeMCQ      QuestionType = "MCQ"
	QuestionTypeLongForm QuestionType = "LONG_FORM"
)

// ExamType groups courses by certification level, e.g. "Foundation Level".
type ExamType struct {
	ExamTypeID  string
	Name        string
	Description string
	Courses     []Course
}

type Course struct {
	CourseID string
	Name     string
	Diets    []Diet
}

// Diet is a historical exam sitting, e.g. "May 2023". It scopes a question
// subset within a course.
type Diet struct {
	DietID string
	Name   string
}

// Question is immutable once authored. Options is empty for long-form questions.
type Question struct {
	QuestionID            string
	CourseID              string
	DietID                string
	Type                  QuestionType
	Content               string
	Options               []string
	CorrectAnswer         string
	Explanation           string
	SimplifiedExplanation string
}

// Session is one attempt at a set of questions. QuestionIDs is snapshotted at
// creation and never changes afterwards. CompletedAt is nil until finalization,
// which happens at most once.
type Session struct {
	SessionID      string
	UserID         string
	CourseID       string
	DietID         string
	Mode           string
	QuestionIDs    []string
	Answers        map[string]string
	StartedAt      time.Time
	CompletedAt    *time.Time
	TimeSpent      int64
	CorrectAnswers int
	TotalQuestions int
	Score          decimal.Decimal
}

func (s *Session) Completed() bool { return s.CompletedAt != nil }

// Rollup holds the incrementally maintained aggregates per (user, course).
// AverageScore is a weighted incremental mean, never recomputed from history.
type Rollup struct {
	UserID         string
	CourseID       string
	TotalAttempts  int64
	TotalQuestions int64
	TotalCorrect   int64
	TotalTimeSpent int64
	AverageScore   decimal.Decimal
}

// Activity is one entry of the bounded recent-activity log.
type Activity struct {
	UserID      string
	CourseID    string
	CourseName  string
	Mode        string
	Score       decimal.Decimal
	CompletedAt time.Time
}

// Identity is the opaque authenticated user as issued by the authenticator.
type Identity struct {
	UserID string
	Email  string
	Name   string
}
