package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prepdesk/prepdesk/internal/auth"
	"github.com/prepdesk/prepdesk/internal/domain"
	"github.com/prepdesk/prepdesk/internal/errors"
)

func TestManager_IssueVerify(t *testing.T) {
	m := auth.NewManager(auth.Config{Secret: "test-secret"})

	want := domain.Identity{
		UserID: "u1",
		Email:  "u1@example.com",
		Name:   "User One",
	}

	token, err := m.Issue(want)
	require.NoError(t, err)

	got, err := m.Verify(token)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestManager_Verify_Invalid(t *testing.T) {
	tests := map[string]struct {
		token func(t *testing.T) string
	}{
		"garbage token": {
			token: func(t *testing.T) string {
				return "not.a.token"
			},
		},

		"token signed with a different secret": {
			token: func(t *testing.T) string {
				other := auth.NewManager(auth.Config{Secret: "other-secret"})
				token, err := other.Issue(domain.Identity{UserID: "u1"})
				require.NoError(t, err)
				return token
			},
		},

		"expired token": {
			token: func(t *testing.T) string {
				expired := auth.NewManager(auth.Config{
					Secret:   "test-secret",
					TokenTTL: -time.Minute,
				})
				token, err := expired.Issue(domain.Identity{UserID: "u1"})
				require.NoError(t, err)
				return token
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			m := auth.NewManager(auth.Config{Secret: "test-secret"})

			_, err := m.Verify(tt.token(t))
			require.Error(t, err)
			require.Equal(t, errors.CodeUnauthenticated, errors.Convert(err).Code)
		})
	}
}
