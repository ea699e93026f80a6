package feed_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/prepdesk/prepdesk/internal/domain"
	"github.com/prepdesk/prepdesk/internal/event"
	"github.com/prepdesk/prepdesk/internal/feed"
)

func TestService_AppendAndGetFeed(t *testing.T) {
	s := makeService(t, 5)

	err := s.Append(context.Background(), finalizedEvent("u1", "s1", 80))
	require.NoError(t, err)

	entries, err := s.GetFeed(context.Background(), feed.GetFeedRequest{UserID: "u1"})
	require.NoError(t, err)

	require.Len(t, entries, 1)
	require.Equal(t, "s1", entries[0].SessionID)
	require.Equal(t, 80.0, entries[0].Score)
}

func TestService_CapEvictsOldestFirst(t *testing.T) {
	s := makeService(t, 5)

	for i := 1; i <= 8; i++ {
		err := s.Append(context.Background(), finalizedEvent("u1", fmt.Sprintf("s%d", i), float64(i)))
		require.NoError(t, err)
	}

	entries, err := s.GetFeed(context.Background(), feed.GetFeedRequest{UserID: "u1"})
	require.NoError(t, err)

	require.Len(t, entries, 5, "feed must never exceed its cap")

	// Newest first; s1..s3 were evicted.
	var got []string
	for _, e := range entries {
		got = append(got, e.SessionID)
	}
	require.Equal(t, []string{"s8", "s7", "s6", "s5", "s4"}, got)
}

func TestService_FeedsAreIsolatedPerUser(t *testing.T) {
	s := makeService(t, 5)

	require.NoError(t, s.Append(context.Background(), finalizedEvent("u1", "s1", 10)))
	require.NoError(t, s.Append(context.Background(), finalizedEvent("u2", "s2", 20)))

	u1, err := s.GetFeed(context.Background(), feed.GetFeedRequest{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, u1, 1)
	require.Equal(t, "s1", u1[0].SessionID)

	u3, err := s.GetFeed(context.Background(), feed.GetFeedRequest{UserID: "u3"})
	require.NoError(t, err)
	require.Empty(t, u3, "unknown user has an empty feed")
}

func TestService_AppendsOnFinalizedEvent(t *testing.T) {
	eb := event.NewBus()
	s := makeService(t, 5, withEventBus(eb))

	eb.Publish(context.Background(), finalizedEvent("u1", "s1", 75))
	eb.Stop()

	entries, err := s.GetFeed(context.Background(), feed.GetFeedRequest{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func finalizedEvent(user, session string, score float64) domain.EventSessionFinalized {
	now := time.Now()

	return domain.EventSessionFinalized{
		Session: domain.Session{
			SessionID:   session,
			UserID:      user,
			CourseID:    "c1",
			Mode:        "mock",
			CompletedAt: &now,
		},
		Activity: domain.Activity{
			UserID:      user,
			CourseID:    "c1",
			CourseName:  "Financial Accounting",
			Mode:        "mock",
			Score:       decimal.NewFromFloat(score),
			CompletedAt: now,
		},
	}
}

func makeService(t *testing.T, cap int64, opts ...options) *feed.Service {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	require.NoError(t, rc.Ping(ctx).Err(), "should be able to ping redis")

	c := feed.Config{
		EventBus: event.NewBus(),
		Redis:    rc,
		Prefix:   "test",
		Cap:      cap,
	}

	for _, opt := range opts {
		opt(&c)
	}

	return feed.NewService(c)
}

type options func(c *feed.Config)

func withEventBus(eb *event.Bus) options {
	return func(c *feed.Config) {
		c.EventBus = eb
	}
}
