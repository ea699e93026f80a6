package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/prepdesk/prepdesk/internal/domain"
	"github.com/prepdesk/prepdesk/internal/errors"
)

const identityKey = "auth.identity"

// Middleware authenticates the request from its Authorization bearer token and
// stores the identity on the gin context. Requests without a valid token are
// rejected with 401.
func Middleware(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthenticated(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthenticated(c, "authorization header must be a bearer token")
			return
		}

		id, err := m.Verify(parts[1])
		if err != nil {
			e := errors.Convert(err)
			c.AbortWithStatusJSON(e.HTTPStatusCode(), gin.H{"error": e.Message})
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

// abortUnauthenticated rejects the request with the same body shape the API
// handlers use for errors.
func abortUnauthenticated(c *gin.Context, msg string) {
	e := errors.New(errors.CodeUnauthenticated, errors.WithMessagef("%s", msg))
	c.AbortWithStatusJSON(e.HTTPStatusCode(), gin.H{"error": e.Message})
}

// IdentityFromContext returns the authenticated identity set by Middleware.
func IdentityFromContext(c *gin.Context) (domain.Identity, error) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, errors.New(errors.CodeUnauthenticated)
	}

	id, ok := v.(domain.Identity)
	if !ok {
		return domain.Identity{}, errors.New(errors.CodeUnauthenticated)
	}

	return id, nil
}
