package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/prepdesk/prepdesk/internal/api"
	"github.com/prepdesk/prepdesk/internal/auth"
	"github.com/prepdesk/prepdesk/internal/catalog"
	"github.com/prepdesk/prepdesk/internal/event"
	"github.com/prepdesk/prepdesk/internal/feed"
	"github.com/prepdesk/prepdesk/internal/progress"
	"github.com/prepdesk/prepdesk/internal/score"
	"github.com/prepdesk/prepdesk/internal/session"
	"github.com/prepdesk/prepdesk/internal/telemetry"
	"github.com/prepdesk/prepdesk/internal/user"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Auth struct {
		Secret     string
		TokenTTLHr int32
	}

	Redis struct {
		Feed struct {
			Addrs  []string
			Pass   string
			Prefix string
			Cap    int64
		}

		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Postgres struct {
		Addr string
		User string
		Pass string
		Name string
	}

	Progress struct {
		ActivityCap int
	}
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			feed   redis.UniversalClient
			pubsub redis.UniversalClient
		}

		postgres *pgxpool.Pool
	}

	service struct {
		auth     *auth.Manager
		user     *user.Service
		catalog  *catalog.Service
		session  *session.Service
		score    *score.Service
		progress *progress.Service
		feed     *feed.Service
	}

	http *http.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	connect := func(addrs []string, pass string) (redis.UniversalClient, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    addrs,
			Password: pass,
		})

		if err := telemetry.MonitorRedis(r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.feed, err = connect(s.c.Redis.Feed.Addrs, s.c.Redis.Feed.Pass)
	if err != nil {
		return fmt.Errorf("feed: %w", err)
	}

	s.infra.redis.pubsub, err = connect(s.c.Redis.Pubsub.Addrs, s.c.Redis.Pubsub.Pass)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	return nil
}

func (s *Server) initPostgres() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s",
		s.c.Postgres.User, s.c.Postgres.Pass, s.c.Postgres.Addr, s.c.Postgres.Name))
	if err != nil {
		return err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return err
	}

	if err := db.Ping(ctx); err != nil {
		return err
	}

	s.infra.postgres = db
	return nil
}

func (s *Server) initService() {
	s.service.auth = auth.NewManager(auth.Config{
		Secret:   s.c.Auth.Secret,
		TokenTTL: time.Duration(s.c.Auth.TokenTTLHr) * time.Hour,
	})

	s.service.user = user.NewService(user.Config{
		DB: s.infra.postgres,
	})

	s.service.catalog = catalog.NewService(catalog.Config{
		DB: s.infra.postgres,
	})

	s.service.session = session.NewService(session.Config{
		DB:       s.infra.postgres,
		EventBus: s.eb,
	})

	s.service.progress = progress.NewService(progress.Config{
		DB:          s.infra.postgres,
		ActivityCap: s.c.Progress.ActivityCap,
	})

	s.service.score = score.NewService(score.Config{
		DB:       s.infra.postgres,
		EventBus: s.eb,
		Progress: s.service.progress,
	})

	s.service.feed = feed.NewService(feed.Config{
		EventBus: s.eb,
		Redis:    s.infra.redis.feed,
		Prefix:   s.c.Redis.Feed.Prefix,
		Cap:      s.c.Redis.Feed.Cap,
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	api.New(api.Config{
		Engine:       e,
		EventBus:     s.eb,
		Auth:         s.service.auth,
		User:         s.service.user,
		Catalog:      s.service.catalog,
		Session:      s.service.session,
		Score:        s.service.score,
		Progress:     s.service.progress,
		Feed:         s.service.feed,
		Redis:        s.infra.redis.pubsub,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()

	s.infra.postgres.Close()

	slog.InfoContext(ctx, "server: shutdown completed")
}
