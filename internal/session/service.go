package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepdesk/prepdesk/internal/domain"
	"github.com/prepdesk/prepdesk/internal/errors"
	"github.com/prepdesk/prepdesk/internal/event"
)

type Config struct {
	DB       *pgxpool.Pool
	EventBus *event.Bus
	Shuffle  Shuffler
}

type Service struct {
	db      *pgxpool.Pool
	eb      *event.Bus
	shuffle Shuffler
}

func NewService(c Config) *Service {
	s := &Service{
		db:      c.DB,
		eb:      c.EventBus,
		shuffle: c.Shuffle,
	}

	if s.shuffle == nil {
		s.shuffle = globalRand{}
	}

	return s
}

type StartSessionRequest struct {
	UserID   string
	CourseID string
	// DietID is required for practice mode only.
	DietID string
	Mode   Mode
}

// StartSession selects the question subset for the mode, snapshots it onto a
// new session row and returns the session together with the selected
// questions. Later changes to the question pool never affect the session.
func (s *Service) StartSession(ctx context.Context, req StartSessionRequest) (*domain.Session, []domain.Question, error) {
	p, err := req.Mode.Policy()
	if err != nil {
		return nil, nil, err
	}

	if req.CourseID == "" {
		return nil, nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("courseId is required"))
	}
	if p.NeedsDiet && req.DietID == "" {
		return nil, nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("dietId is required for %s mode", req.Mode))
	}

	pool, err := s.loadPool(ctx, req.CourseID, req.DietID, p)
	if err != nil {
		return nil, nil, err
	}

	if len(pool) == 0 {
		return nil, nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("no questions found: course=%s diet=%s", req.CourseID, req.DietID))
	}

	selected := selectQuestions(p, pool, s.shuffle)

	ss := &domain.Session{
		UserID:         req.UserID,
		CourseID:       req.CourseID,
		DietID:         req.DietID,
		Mode:           string(req.Mode),
		TotalQuestions: len(selected),
		Answers:        map[string]string{},
	}
	for _, q := range selected {
		ss.QuestionIDs = append(ss.QuestionIDs, q.QuestionID)
	}

	if err := s.insertSession(ctx, ss); err != nil {
		return nil, nil, err
	}

	if s.eb != nil {
		s.eb.Publish(ctx, domain.EventSessionStarted{Session: *ss})
	}

	return ss, selected, nil
}

func (s *Service) loadPool(ctx context.Context, courseID, dietID string, p Policy) ([]domain.Question, error) {
	const byCourse = `
SELECT question_id, course_id, COALESCE(diet_id::text, ''), type, content, options, correct_answer, explanation, simplified_explanation
FROM questions
WHERE course_id = $1;`

	const byCourseAndDiet = `
SELECT question_id, course_id, COALESCE(diet_id::text, ''), type, content, options, correct_answer, explanation, simplified_explanation
FROM questions
WHERE course_id = $1 AND diet_id = $2;`

	var (
		rows pgx.Rows
		err  error
	)
	if p.TakeAll {
		rows, err = s.db.Query(ctx, byCourseAndDiet, courseID, dietID)
	} else {
		rows, err = s.db.Query(ctx, byCourse, courseID)
	}
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}

	return pgx.CollectRows(rows, scanQuestion)
}

// scanQuestion decodes a question row, normalizing the jsonb options column to
// a string slice. The canonical storage shape is an array of strings; NULL
// means a long-form question with no options.
func scanQuestion(r pgx.CollectableRow) (domain.Question, error) {
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
}

func (s *Service) insertSession(ctx context.Context, ss *domain.Session) (err error) {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate session ID: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const insSessionStmt = `
INSERT INTO sessions (session_id, user_id, course_id, diet_id, mode, total_questions, answers, started_at)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, '{}'::jsonb, $7);`

	const insQuestionStmt = `INSERT INTO session_questions (session_id, question_id, position) VALUES ($1, $2, $3);`

	ss.StartedAt = time.Now()

	_, err = tx.Exec(ctx, insSessionStmt, id, ss.UserID, ss.CourseID, ss.DietID, ss.Mode, ss.TotalQuestions, ss.StartedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	ss.SessionID = id.String()

	b := &pgx.Batch{}
	for i, q := range ss.QuestionIDs {
		b.Queue(insQuestionStmt, id, q, i)
	}
	if err = tx.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("insert session questions: %w", err)
	}

	return tx.Commit(ctx)
}

type GetSessionRequest struct {
	SessionID string
}

func (s *Service) GetSession(ctx context.Context, req GetSessionRequest) (*domain.Session, error) {
	const stmt = `
SELECT s.session_id, s.user_id, s.course_id, COALESCE(s.diet_id::text, ''), s.mode,
       s.total_questions, s.correct_answers, s.time_spent, s.score, s.answers,
       s.started_at, s.completed_at,
       ARRAY(SELECT question_id FROM session_questions WHERE session_id = s.session_id ORDER BY position)
FROM sessions s
WHERE s.session_id = $1;`

	var (
		ss      domain.Session
		answers []byte
	)
	err := s.db.QueryRow(ctx, stmt, req.SessionID).Scan(
		&ss.SessionID, &ss.UserID, &ss.CourseID, &ss.DietID, &ss.Mode,
		&ss.TotalQuestions, &ss.CorrectAnswers, &ss.TimeSpent, &ss.Score, &answers,
		&ss.StartedAt, &ss.CompletedAt, &ss.QuestionIDs,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("session not found: %s", req.SessionID))
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &ss.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
	}

	return &ss, nil
}

type SubmitAnswerRequest struct {
	SessionID        string
	UserID           string
	QuestionID       string
	Answer           string
	TimeSpentSeconds int64
}

type SubmitAnswerResponse struct {
	IsCorrect bool
}

// SubmitAnswer persists a single answer immediately. Only practice mode routes
// here; the other modes hold answers client-side until finish. Re-answering a
// question overwrites the stored answer and adjusts the running correct count.
func (s *Service) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*SubmitAnswerResponse, error) {
	if req.SessionID == "" || req.QuestionID == "" || req.Answer == "" {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("sessionId, questionId and answer are required"))
	}

	const qStmt = `SELECT correct_answer FROM questions WHERE question_id = $1;`

	var correct string
	err := s.db.QueryRow(ctx, qStmt, req.QuestionID).Scan(&correct)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("question not found: %s", req.QuestionID))
	}
	if err != nil {
		return nil, fmt.Errorf("query question: %w", err)
	}

	isCorrect := req.Answer == correct

	// Last write wins per question: subtract the contribution of any previous
	// answer before adding the new one, all in one statement.
	const updStmt = `
UPDATE sessions s
SET answers = s.answers || jsonb_build_object($2::text, $3::text),
    correct_answers = s.correct_answers
        - CASE WHEN s.answers->>$2 = $5 THEN 1 ELSE 0 END
        + CASE WHEN $4 THEN 1 ELSE 0 END,
    time_spent = s.time_spent + $6
WHERE s.session_id = $1 AND s.user_id = $7 AND s.completed_at IS NULL;`

	ct, err := s.db.Exec(ctx, updStmt, req.SessionID, req.QuestionID, req.Answer, isCorrect, correct, req.TimeSpentSeconds, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("session not open: %s", req.SessionID))
	}

	return &SubmitAnswerResponse{IsCorrect: isCorrect}, nil
}
