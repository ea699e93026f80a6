package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/prepdesk/prepdesk/internal/domain"
	"github.com/prepdesk/prepdesk/internal/errors"
)

const defaultTokenTTL = 24 * time.Hour

type Config struct {
	Secret   string
	TokenTTL time.Duration
}

// Manager issues and verifies the bearer tokens carrying the opaque user
// identity. HMAC-SHA256 signed, expiry enforced on verify.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(c Config) *Manager {
	ttl := c.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	return &Manager{
		secret: []byte(c.Secret),
		ttl:    ttl,
	}
}

type claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

func (m *Manager) Issue(id domain.Identity) (string, error) {
	now := time.Now()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: id.Email,
		Name:  id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})

	signed, err := t.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Verify parses and validates a token, returning the identity it carries.
func (m *Manager) Verify(token string) (domain.Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return domain.Identity{}, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("invalid token"),
			errors.WithCause(err),
		)
	}

	return domain.Identity{
		UserID: c.Subject,
		Email:  c.Email,
		Name:   c.Name,
	}, nil
}
