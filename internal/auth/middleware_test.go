package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepdesk/prepdesk/internal/auth"
	"github.com/prepdesk/prepdesk/internal/domain"
)

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m := auth.NewManager(auth.Config{Secret: "test-secret"})

	e := gin.New()
	e.GET("/me", auth.Middleware(m), func(c *gin.Context) {
		id, err := auth.IdentityFromContext(c)
		require.NoError(t, err)
		c.JSON(http.StatusOK, gin.H{"userId": id.UserID})
	})

	t.Run("valid token passes the identity through", func(t *testing.T) {
		token, err := m.Issue(domain.Identity{UserID: "u1", Email: "u1@example.com"})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		e.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"userId":"u1"}`, w.Body.String())
	})

	other := auth.NewManager(auth.Config{Secret: "other-secret"})
	wrongSecret, err := other.Issue(domain.Identity{UserID: "u1"})
	require.NoError(t, err)

	rejections := map[string]struct {
		header string
	}{
		"missing header":     {header: ""},
		"not a bearer token": {header: "Basic dXNlcjpwYXNz"},
		"malformed token":    {header: "Bearer not.a.token"},
		"wrong-secret token": {header: "Bearer " + wrongSecret},
	}

	for name, tt := range rejections {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			e.ServeHTTP(w, req)

			require.Equal(t, http.StatusUnauthorized, w.Code)

			// All API errors share one body shape.
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Contains(t, body, "error")
			assert.NotContains(t, body, "code")
		})
	}
}
