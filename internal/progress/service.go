package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/prepdesk/prepdesk/internal/domain"
)

const (
	defaultActivityCap = 20
	recentActivitySize = 5
)

type Config struct {
	DB *pgxpool.Pool
	// ActivityCap bounds the per-user recent-activity log. Oldest entries are
	// evicted first.
	ActivityCap int
}

type Service struct {
	db  *pgxpool.Pool
	cap int
}

func NewService(c Config) *Service {
	s := &Service{
		db:  c.DB,
		cap: c.ActivityCap,
	}

	if s.cap <= 0 {
		s.cap = defaultActivityCap
	}

	return s
}

type ApplyRequest struct {
	UserID    string
	CourseID  string
	Questions int64
	Correct   int64
	TimeSpent int64
	Score     decimal.Decimal
}

// Apply folds one finalized session into the (user, course) rollup. The
// arithmetic runs inside the DO UPDATE expressions, where Postgres evaluates
// it against the current committed row. A read-then-write version loses an
// update when two first-ever finalizations race: neither sees a row to lock,
// both compute from the empty baseline, and the conflict loser overwrites the
// winner. Advance mirrors the same step in Go for the pure-math tests.
func (s *Service) Apply(ctx context.Context, tx pgx.Tx, req ApplyRequest) error {
	const upsertStmt = `
INSERT INTO user_progress (user_id, course_id, total_attempts, total_questions, total_correct, total_time_spent, average_score)
VALUES ($1, $2, 1, $3, $4, $5, $6)
ON CONFLICT (user_id, course_id) DO UPDATE SET
	total_attempts = user_progress.total_attempts + 1,
	total_questions = user_progress.total_questions + EXCLUDED.total_questions,
	total_correct = user_progress.total_correct + EXCLUDED.total_correct,
	total_time_spent = user_progress.total_time_spent + EXCLUDED.total_time_spent,
	average_score = (user_progress.average_score * user_progress.total_attempts + EXCLUDED.average_score)
		/ (user_progress.total_attempts + 1);`

	_, err := tx.Exec(ctx, upsertStmt, req.UserID, req.CourseID,
		req.Questions, req.Correct, req.TimeSpent, req.Score)
	if err != nil {
		return fmt.Errorf("upsert rollup: %w", err)
	}

	return nil
}

// RecordActivity appends a completion entry to the bounded log and evicts the
// oldest entries beyond the cap, inside the caller's transaction.
func (s *Service) RecordActivity(ctx context.Context, tx pgx.Tx, a domain.Activity) error {
	const insStmt = `
INSERT INTO recent_activity (user_id, course_id, mode, score, completed_at)
VALUES ($1, $2, $3, $4, $5);`

	_, err := tx.Exec(ctx, insStmt, a.UserID, a.CourseID, a.Mode, a.Score, a.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}

	const pruneStmt = `
DELETE FROM recent_activity
WHERE user_id = $1 AND activity_id NOT IN (
	SELECT activity_id FROM recent_activity
	WHERE user_id = $1
	ORDER BY completed_at DESC, activity_id DESC
	LIMIT $2
);`

	if _, err := tx.Exec(ctx, pruneStmt, a.UserID, s.cap); err != nil {
		return fmt.Errorf("prune activity: %w", err)
	}

	return nil
}

type Dashboard struct {
	TotalQuestionsAttempted int64
	TotalCorrect            int64
	AverageScore            decimal.Decimal
	StudyTimeWeekSeconds    int64
	MockExamsCompleted      int64
	RecentActivity          []domain.Activity
}

type GetDashboardRequest struct {
	UserID string
}

// GetDashboard is a read-only projection over rollups, sessions and the
// recent-activity log. The independent queries run concurrently.
func (s *Service) GetDashboard(ctx context.Context, req GetDashboardRequest) (*Dashboard, error) {
	var (
		d       Dashboard
		rollups []domain.Rollup
	)

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() (err error) {
		rollups, err = s.listRollups(ctx, req.UserID)
		return err
	})

	eg.Go(func() (err error) {
		d.StudyTimeWeekSeconds, err = s.weeklyStudyTime(ctx, req.UserID)
		return err
	})

	eg.Go(func() (err error) {
		d.MockExamsCompleted, err = s.countCompletedMocks(ctx, req.UserID)
		return err
	})

	eg.Go(func() (err error) {
		d.RecentActivity, err = s.listRecentActivity(ctx, req.UserID)
		return err
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for _, r := range rollups {
		d.TotalQuestionsAttempted += r.TotalQuestions
		d.TotalCorrect += r.TotalCorrect
	}
	d.AverageScore = WeightedAverage(rollups)

	return &d, nil
}

func (s *Service) listRollups(ctx context.Context, userID string) ([]domain.Rollup, error) {
	const stmt = `
SELECT course_id, total_attempts, total_questions, total_correct, total_time_spent, average_score
FROM user_progress
WHERE user_id = $1;`

	rows, err := s.db.Query(ctx, stmt, userID)
	if err != nil {
		return nil, fmt.Errorf("query rollups: %w", err)
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Rollup, error) {
		ru := domain.Rollup{UserID: userID}
		err := r.Scan(&ru.CourseID, &ru.TotalAttempts, &ru.TotalQuestions, &ru.TotalCorrect, &ru.TotalTimeSpent, &ru.AverageScore)
		return ru, err
	})
}

func (s *Service) weeklyStudyTime(ctx context.Context, userID string) (int64, error) {
	const stmt = `
SELECT COALESCE(SUM(time_spent), 0)
FROM sessions
WHERE user_id = $1 AND started_at > $2;`

	var total int64
	err := s.db.QueryRow(ctx, stmt, userID, time.Now().AddDate(0, 0, -7)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("query weekly study time: %w", err)
	}

	return total, nil
}

func (s *Service) countCompletedMocks(ctx context.Context, userID string) (int64, error) {
	const stmt = `
SELECT COUNT(*)
FROM sessions
WHERE user_id = $1 AND mode = 'mock' AND completed_at IS NOT NULL;`

	var n int64
	if err := s.db.QueryRow(ctx, stmt, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("query completed mocks: %w", err)
	}

	return n, nil
}

func (s *Service) listRecentActivity(ctx context.Context, userID string) ([]domain.Activity, error) {
	const stmt = `
SELECT a.course_id, c.name, a.mode, a.score, a.completed_at
FROM recent_activity a
JOIN courses c ON c.course_id = a.course_id
WHERE a.user_id = $1
ORDER BY a.completed_at DESC, a.activity_id DESC
LIMIT $2;`

	rows, err := s.db.Query(ctx, stmt, userID, recentActivitySize)
	if err != nil {
		return nil, fmt.Errorf("query recent activity: %w", err)
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Activity, error) {
		a := domain.Activity{UserID: userID}
		err := r.Scan(&a.CourseID, &a.CourseName, &a.Mode, &a.Score, &a.CompletedAt)
		return a, err
	})
}
