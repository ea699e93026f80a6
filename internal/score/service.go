package score

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/prepdesk/prepdesk/internal/domain"
	"github.com/prepdesk/prepdesk/internal/errors"
	"github.com/prepdesk/prepdesk/internal/event"
	"github.com/prepdesk/prepdesk/internal/progress"
)

type Config struct {
	DB       *pgxpool.Pool
	EventBus *event.Bus
	Progress *progress.Service
}

type Service struct {
	db       *pgxpool.Pool
	eb       *event.Bus
	progress *progress.Service
}

func NewService(c Config) *Service {
	return &Service{
		db:       c.DB,
		eb:       c.EventBus,
		progress: c.Progress,
	}
}

type FinalizeRequest struct {
	SessionID        string
	UserID           string
	Answers          map[string]string
	TimeSpentSeconds int64
}

type FinalizeResponse struct {
	SessionID      string
	Score          decimal.Decimal
	CorrectAnswers int
	TotalQuestions int
	TimeSpent      int64
}

// Finalize scores a session and persists completion. The session update, the
// rollup update and the activity append commit or roll back together, so a
// session never appears complete without its rollup contribution. The row lock
// taken on the session makes the manual-finish/timeout race resolve to exactly
// one success; the loser gets a failed-precondition error and mutates nothing.
func (s *Service) Finalize(ctx context.Context, req FinalizeRequest) (resp *FinalizeResponse, err error) {
	if req.SessionID == "" || req.Answers == nil {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("sessionId and answers are required"))
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	ss, courseName, err := s.lockSession(ctx, tx, req.SessionID, req.UserID)
	if err != nil {
		return nil, err
	}

	if ss.Completed() {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("session already completed: %s", req.SessionID))
	}

	// Grade against the questions snapshotted at start, loaded server-side.
	// Client-supplied question data never enters the comparison.
	questions, err := s.loadSessionQuestions(ctx, tx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("question set not found: session=%s", req.SessionID))
	}

	// Practice mode persists answers as it goes; merge so a partial client
	// resubmission cannot drop them. Finish-time answers win per question.
	answers := make(map[string]string, len(ss.Answers)+len(req.Answers))
	for k, v := range ss.Answers {
		answers[k] = v
	}
	for k, v := range req.Answers {
		answers[k] = v
	}

	result := Grade(questions, answers)
	completedAt := time.Now()

	if err := s.completeSession(ctx, tx, ss.SessionID, result, answers, req.TimeSpentSeconds, completedAt); err != nil {
		return nil, err
	}

	err = s.progress.Apply(ctx, tx, progress.ApplyRequest{
		UserID:    ss.UserID,
		CourseID:  ss.CourseID,
		Questions: int64(len(questions)),
		Correct:   int64(result.Correct),
		TimeSpent: req.TimeSpentSeconds,
		Score:     result.Score,
	})
	if err != nil {
		return nil, err
	}

	activity := domain.Activity{
		UserID:      ss.UserID,
		CourseID:    ss.CourseID,
		CourseName:  courseName,
		Mode:        ss.Mode,
		Score:       result.Score,
		CompletedAt: completedAt,
	}
	if err := s.progress.RecordActivity(ctx, tx, activity); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	ss.CompletedAt = &completedAt
	ss.CorrectAnswers = result.Correct
	ss.Score = result.Score
	ss.TimeSpent = req.TimeSpentSeconds
	ss.Answers = answers

	if s.eb != nil {
		s.eb.Publish(ctx, domain.EventSessionFinalized{
			Session:  *ss,
			Activity: activity,
		})
	}

	return &FinalizeResponse{
		SessionID:      ss.SessionID,
		Score:          result.Score,
		CorrectAnswers: result.Correct,
		TotalQuestions: len(questions),
		TimeSpent:      req.TimeSpentSeconds,
	}, nil
}

func (s *Service) lockSession(ctx context.Context, tx pgx.Tx, sessionID, userID string) (*domain.Session, string, error) {
	const stmt = `
SELECT s.session_id, s.user_id, s.course_id, COALESCE(s.diet_id::text, ''), s.mode,
       s.total_questions, s.answers, s.started_at, s.completed_at, c.name
FROM sessions s
JOIN courses c ON c.course_id = s.course_id
WHERE s.session_id = $1
FOR UPDATE OF s;`

	var (
		ss         domain.Session
		answers    []byte
		courseName string
	)
	err := tx.QueryRow(ctx, stmt, sessionID).Scan(
		&ss.SessionID, &ss.UserID, &ss.CourseID, &ss.DietID, &ss.Mode,
		&ss.TotalQuestions, &answers, &ss.StartedAt, &ss.CompletedAt, &courseName,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, "", errors.New(errors.CodeNotFound,
			errors.WithMessagef("session not found: %s", sessionID))
	}
	if err != nil {
		return nil, "", fmt.Errorf("query session: %w", err)
	}

	if ss.UserID != userID {
		return nil, "", errors.New(errors.CodeNotFound,
			errors.WithMessagef("session not found: %s", sessionID))
	}

	ss.Answers = map[string]string{}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &ss.Answers); err != nil {
			return nil, "", fmt.Errorf("decode answers: %w", err)
		}
	}

	return &ss, courseName, nil
}

func (s *Service) loadSessionQuestions(ctx context.Context, db querier, sessionID string) ([]domain.Question, error) {
	const stmt = `
SELECT q.question_id, q.course_id, COALESCE(q.diet_id::text, ''), q.type, q.content,
       q.options, q.correct_answer, q.explanation, q.simplified_explanation
FROM session_questions sq
JOIN questions q ON q.question_id = sq.question_id
WHERE sq.session_id = $1
ORDER BY sq.position;`

	rows, err := db.Query(ctx, stmt, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query session questions: %w", err)
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Question, error) {
		var (
			q       domain.Question
			options []byte
		)
		if err := r.Scan(&q.QuestionID, &q.CourseID, &q.DietID, &q.Type, &q.Content,
			&options, &q.CorrectAnswer, &q.Explanation, &q.SimplifiedExplanation); err != nil {
			return domain.Question{}, err
		}

		if len(options) > 0 {
			if err := json.Unmarshal(options, &q.Options); err != nil {
				return domain.Question{}, fmt.Errorf("decode options for question %s: %w", q.QuestionID, err)
			}
		}

		return q, nil
	})
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *Service) completeSession(ctx context.Context, tx pgx.Tx, sessionID string, r Result, answers map[string]string, timeSpent int64, completedAt time.Time) error {
	raw, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	const stmt = `
UPDATE sessions
SET completed_at = $2, correct_answers = $3, score = $4, time_spent = $5, answers = $6
WHERE session_id = $1;`

	_, err = tx.Exec(ctx, stmt, sessionID, completedAt, r.Correct, r.Score, timeSpent, raw)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	return nil
}

type SummaryRequest struct {
	SessionID string
	UserID    string
}

type SummaryQuestion struct {
	QuestionID            string
	Type                  domain.QuestionType
	Content               string
	Options               []string
	UserAnswer            string
	CorrectAnswer         string
	IsCorrect             bool
	Explanation           string
	SimplifiedExplanation string
}

type SummaryResponse struct {
	SessionID      string
	Mode           string
	CourseID       string
	Score          decimal.Decimal
	CorrectAnswers int
	TotalQuestions int
	TimeSpent      int64
	Questions      []SummaryQuestion
}

// Summary rebuilds the scored per-question breakdown of a completed session
// from the stored answer map and the authoritative question rows.
func (s *Service) Summary(ctx context.Context, req SummaryRequest) (*SummaryResponse, error) {
	if req.SessionID == "" {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("sessionId is required"))
	}

	const stmt = `
SELECT session_id, user_id, course_id, mode, answers, time_spent, completed_at
FROM sessions
WHERE session_id = $1;`

	var (
		ss      domain.Session
		answers []byte
	)
	err := s.db.QueryRow(ctx, stmt, req.SessionID).Scan(
		&ss.SessionID, &ss.UserID, &ss.CourseID, &ss.Mode, &answers, &ss.TimeSpent, &ss.CompletedAt,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("session not found: %s", req.SessionID))
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	if ss.UserID != req.UserID {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("session not found: %s", req.SessionID))
	}

	ss.Answers = map[string]string{}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &ss.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
	}

	questions, err := s.loadSessionQuestions(ctx, s.db, req.SessionID)
	if err != nil {
		return nil, err
	}

	result := Grade(questions, ss.Answers)

	resp := &SummaryResponse{
		SessionID:      ss.SessionID,
		Mode:           ss.Mode,
		CourseID:       ss.CourseID,
		Score:          result.Score,
		CorrectAnswers: result.Correct,
		TotalQuestions: len(questions),
		TimeSpent:      ss.TimeSpent,
		Questions:      make([]SummaryQuestion, 0, len(questions)),
	}

	for _, q := range questions {
		ans := ss.Answers[q.QuestionID]
		resp.Questions = append(resp.Questions, SummaryQuestion{
			QuestionID:            q.QuestionID,
			Type:                  q.Type,
			Content:               q.Content,
			Options:               q.Options,
			UserAnswer:            ans,
			CorrectAnswer:         q.CorrectAnswer,
			IsCorrect:             q.Type == domain.QuestionTypeMCQ && ans == q.CorrectAnswer,
			Explanation:           q.Explanation,
			SimplifiedExplanation: q.SimplifiedExplanation,
		})
	}

	return resp, nil
}
