package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/prepdesk/prepdesk/internal/auth"
	"github.com/prepdesk/prepdesk/internal/catalog"
	"github.com/prepdesk/prepdesk/internal/domain"
	"github.com/prepdesk/prepdesk/internal/errors"
	"github.com/prepdesk/prepdesk/internal/event"
	"github.com/prepdesk/prepdesk/internal/feed"
	"github.com/prepdesk/prepdesk/internal/progress"
	"github.com/prepdesk/prepdesk/internal/score"
	"github.com/prepdesk/prepdesk/internal/session"
	"github.com/prepdesk/prepdesk/internal/user"
)

type Config struct {
	Engine   *gin.Engine
	EventBus *event.Bus

	Auth     *auth.Manager
	User     *user.Service
	Catalog  *catalog.Service
	Session  *session.Service
	Score    *score.Service
	Progress *progress.Service
	Feed     *feed.Service

	Redis        Redis
	PubsubPrefix string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	am  *auth.Manager
	us  *user.Service
	cs  *catalog.Service
	qss *session.Service
	ss  *score.Service
	ps  *progress.Service
	fs  *feed.Service

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		am:     c.Auth,
		us:     c.User,
		cs:     c.Catalog,
		qss:    c.Session,
		ss:     c.Score,
		ps:     c.Progress,
		fs:     c.Feed,
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
	}

	a.registerRoutes(c.Engine)

	c.EventBus.Subscribe(domain.EventNameSessionFinalized, func(ctx context.Context, e event.Event) error {
		return a.PublishSessionFinalized(ctx, e.(domain.EventSessionFinalized))
	})

	return a
}

func (a *API) registerRoutes(e *gin.Engine) {
	r := e.Group("/api")

	r.POST("/register", a.register)
	r.POST("/login", a.login)

	authed := r.Group("", auth.Middleware(a.am))

	authed.PUT("/profile", a.updateProfile)

	authed.GET("/catalog/exams", a.listExamTypes)
	authed.GET("/catalog/courses/:courseId", a.getCourse)
	authed.GET("/dashboard", a.dashboard)
	authed.GET("/feed", a.feedHandler)

	// Each mode exposes the same start/finish/summary shape; one handler set
	// parameterized by mode replaces the original's per-mode copies.
	for _, m := range session.Modes() {
		p, _ := m.Policy()

		g := authed.Group("/" + string(m))
		g.POST("/start", a.startSession(m))
		g.GET("/session", a.getSession(m))
		g.POST("/finish", a.finishSession(m))
		g.GET("/summary", a.summary(m))

		// Modes that persist each answer immediately; the rest hold answers
		// client-side until finish.
		if p.PersistAnswers {
			g.POST("/answer", a.submitAnswer)
		}
	}
}

func respondErr(c *gin.Context, err error) {
	e := errors.Convert(err)

	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: internal error",
			"path", c.FullPath(),
			"error", err,
		)
		// Internal detail stays out of the response body.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(e.HTTPStatusCode(), gin.H{"error": e.Message})
}
