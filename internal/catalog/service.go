package catalog

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/prepdesk/prepdesk/internal/domain"
	"github.com/prepdesk/prepdesk/internal/errors"
)

type Config struct {
	DB *pgxpool.Pool
}

// Service serves the exam-type / course / diet catalog. Content authoring is
// out of scope; the catalog is read-only here.
type Service struct {
	db *pgxpool.Pool
}

func NewService(c Config) *Service {
	return &Service{db: c.DB}
}

// ListExamTypes returns all exam types with their courses and diets nested,
// the shape the mode-selection screens consume.
func (s *Service) ListExamTypes(ctx context.Context) ([]domain.ExamType, error) {
	var (
		examTypes []domain.ExamType
		courses   map[string][]domain.Course
		diets     map[string][]domain.Diet
	)

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() (err error) {
		examTypes, err = s.listExamTypes(ctx)
		return err
	})

	eg.Go(func() (err error) {
		courses, err = s.listCourses(ctx)
		return err
	})

	eg.Go(func() (err error) {
		diets, err = s.listDiets(ctx)
		return err
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for i := range examTypes {
		cs := courses[examTypes[i].ExamTypeID]
		for j := range cs {
			cs[j].Diets = diets[cs[j].CourseID]
		}
		examTypes[i].Courses = cs
	}

	return examTypes, nil
}

func (s *Service) listExamTypes(ctx context.Context) ([]domain.ExamType, error) {
	const stmt = `SELECT exam_type_id, name, COALESCE(description, '') FROM exam_types ORDER BY name;`

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("query exam types: %w", err)
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.ExamType, error) {
		var et domain.ExamType
		err := r.Scan(&et.ExamTypeID, &et.Name, &et.Description)
		return et, err
	})
}

func (s *Service) listCourses(ctx context.Context) (map[string][]domain.Course, error) {
	const stmt = `SELECT course_id, exam_type_id, name FROM courses ORDER BY name;`

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer rows.Close()

	m := make(map[string][]domain.Course)
	for rows.Next() {
		var (
			c          domain.Course
			examTypeID string
		)
		if err := rows.Scan(&c.CourseID, &examTypeID, &c.Name); err != nil {
			return nil, err
		}
		m[examTypeID] = append(m[examTypeID], c)
	}

	return m, rows.Err()
}

func (s *Service) listDiets(ctx context.Context) (map[string][]domain.Diet, error) {
	const stmt = `SELECT diet_id, course_id, name FROM diets ORDER BY name DESC;`

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("query diets: %w", err)
	}
	defer rows.Close()

	m := make(map[string][]domain.Diet)
	for rows.Next() {
		var (
			d        domain.Diet
			courseID string
		)
		if err := rows.Scan(&d.DietID, &courseID, &d.Name); err != nil {
			return nil, err
		}
		m[courseID] = append(m[courseID], d)
	}

	return m, rows.Err()
}

type GetCourseRequest struct {
	CourseID string
}

func (s *Service) GetCourse(ctx context.Context, req GetCourseRequest) (*domain.Course, error) {
	const stmt = `SELECT course_id, name FROM courses WHERE course_id = $1;`

	var c domain.Course
	err := s.db.QueryRow(ctx, stmt, req.CourseID).Scan(&c.CourseID, &c.Name)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("course not found: %s", req.CourseID))
	}
	if err != nil {
		return nil, fmt.Errorf("query course: %w", err)
	}

	return &c, nil
}
