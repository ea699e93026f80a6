package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prepdesk/prepdesk/internal/domain"
	"github.com/prepdesk/prepdesk/internal/event"
)

const defaultCap = 10

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
	// Cap bounds the per-user feed; the oldest entry is evicted first.
	Cap int64
}

// Service maintains a read-optimized mirror of recent session completions as a
// capped Redis list per user. Postgres stays authoritative; losing the feed
// loses nothing but a warm cache.
type Service struct {
	eb     *event.Bus
	redis  redis.UniversalClient
	prefix string
	cap    int64
}

func NewService(c Config) *Service {
	s := &Service{
		eb:     c.EventBus,
		redis:  c.Redis,
		prefix: c.Prefix,
		cap:    c.Cap,
	}

	if s.cap <= 0 {
		s.cap = defaultCap
	}

	s.eb.Subscribe(domain.EventNameSessionFinalized, func(ctx context.Context, e event.Event) error {
		return s.Append(ctx, e.(domain.EventSessionFinalized))
	})

	return s
}

type Entry struct {
	SessionID   string    `json:"session_id"`
	CourseID    string    `json:"course_id"`
	CourseName  string    `json:"course_name"`
	Mode        string    `json:"mode"`
	Score       float64   `json:"score"`
	CompletedAt time.Time `json:"completed_at"`
}

// Append pushes a completion entry onto the user's feed and trims it to the
// cap, newest first.
func (s *Service) Append(ctx context.Context, e domain.EventSessionFinalized) error {
	entry := Entry{
		SessionID:   e.Session.SessionID,
		CourseID:    e.Activity.CourseID,
		CourseName:  e.Activity.CourseName,
		Mode:        e.Activity.Mode,
		Score:       e.Activity.Score.InexactFloat64(),
		CompletedAt: e.Activity.CompletedAt,
	}

	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("feed: marshal entry: %w", err)
	}

	key := s.feedKey(e.Session.UserID)

	pipe := s.redis.TxPipeline()
	pipe.LPush(ctx, key, b)
	pipe.LTrim(ctx, key, 0, s.cap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("feed: append: %w", err)
	}

	return nil
}

type GetFeedRequest struct {
	UserID string
}

// GetFeed returns the user's feed, newest first. An unknown user simply has an
// empty feed.
func (s *Service) GetFeed(ctx context.Context, req GetFeedRequest) ([]Entry, error) {
	raw, err := s.redis.LRange(ctx, s.feedKey(req.UserID), 0, s.cap-1).Result()
	if err != nil {
		return nil, fmt.Errorf("feed: range: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, r := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			return nil, fmt.Errorf("feed: decode entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, nil
}

func (s *Service) feedKey(userID string) string {
	return fmt.Sprintf("%s:user:%s:feed", s.prefix, userID)
}
