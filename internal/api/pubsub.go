package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/prepdesk/prepdesk/internal/domain"
)

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	SessionResult struct {
		SessionID      string `json:"session_id"`
		Mode           string `json:"mode"`
		CourseID       string `json:"course_id"`
		Score          string `json:"score"`
		CorrectAnswers int    `json:"correct_answers"`
	}
)

// PublishSessionFinalized pushes a completion notification to the user's
// channel so an open dashboard can refresh without polling.
func (a *API) PublishSessionFinalized(ctx context.Context, e domain.EventSessionFinalized) error {
	data := SessionResult{
		SessionID:      e.Session.SessionID,
		Mode:           e.Session.Mode,
		CourseID:       e.Session.CourseID,
		Score:          strconv.FormatFloat(e.Session.Score.InexactFloat64(), 'f', -1, 64),
		CorrectAnswers: e.Session.CorrectAnswers,
	}

	return a.publishNotification(ctx, e.Session.UserID, e.Name(), data)
}

func (a *API) publishNotification(ctx context.Context, user, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, fmt.Sprintf("%s:user:%s", a.prefix, user), b).Err()
}
