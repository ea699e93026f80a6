package user

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/prepdesk/prepdesk/internal/domain"
	"github.com/prepdesk/prepdesk/internal/errors"
)

const codeUniqueViolation = "23505"

type Config struct {
	DB *pgxpool.Pool
}

type Service struct {
	db *pgxpool.Pool
}

func NewService(c Config) *Service {
	return &Service{db: c.DB}
}

type RegisterRequest struct {
	Name     string
	Email    string
	Password string
}

// Register creates an account with a bcrypt-hashed password. A duplicate email
// surfaces as an already-exists error, not a generic failure.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.Identity, error) {
	if req.Email == "" || req.Password == "" {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("email and password are required"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	const stmt = `INSERT INTO users (user_id, name, email, password_hash) VALUES ($1, $2, $3, $4);`

	_, err = s.db.Exec(ctx, stmt, id, req.Name, req.Email, hash)

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return nil, errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("user already exists: %s", req.Email),
			errors.WithCause(err))
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return &domain.Identity{
		UserID: id.String(),
		Email:  req.Email,
		Name:   req.Name,
	}, nil
}

type UpdateRequest struct {
	UserID string
	Name   string
	Email  string
}

// Update changes the user's name and email. A token issued before the change
// keeps its old claims; login after the change picks up the new ones.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (*domain.Identity, error) {
	if req.Name == "" || req.Email == "" {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("name and email are required"))
	}

	const stmt = `UPDATE users SET name = $2, email = $3 WHERE user_id = $1;`

	ct, err := s.db.Exec(ctx, stmt, req.UserID, req.Name, req.Email)

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return nil, errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("email already in use: %s", req.Email),
			errors.WithCause(err))
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("user not found: %s", req.UserID))
	}

	return &domain.Identity{
		UserID: req.UserID,
		Email:  req.Email,
		Name:   req.Name,
	}, nil
}

type LoginRequest struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the identity. Wrong email and wrong
// password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*domain.Identity, error) {
	if req.Email == "" || req.Password == "" {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("email and password are required"))
	}

	const stmt = `SELECT user_id, name, password_hash FROM users WHERE email = $1;`

	var (
		id   domain.Identity
		hash []byte
	)
	err := s.db.QueryRow(ctx, stmt, req.Email).Scan(&id.UserID, &id.Name, &hash)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("invalid credentials"))
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(req.Password)); err != nil {
		return nil, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("invalid credentials"),
			errors.WithCause(err))
	}

	id.Email = req.Email

	return &id, nil
}
