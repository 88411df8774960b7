package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"circles-service/internal/models"
	"circles-service/internal/rabbitmq"
	"circles-service/internal/services"
)

// activityEvent is the broker payload for collaborator activity. When Type
// is empty it is taken from the routing key suffix, e.g. activity.movie_rated.
type activityEvent struct {
	GroupID  int                    `json:"group_id"`
	UserID   int                    `json:"user_id"`
	Type     string                 `json:"type"`
	MovieID  int                    `json:"movie_id"`
	Metadata map[string]interface{} `json:"metadata"`
}

// NewActivityEventHandler returns a broker handler that ingests activity
// events. Only store failures are retried.
func NewActivityEventHandler(activity ActivityService) rabbitmq.Handler {
	return func(ctx context.Context, routingKey string, body []byte) error {
		var evt activityEvent
		if err := json.Unmarshal(body, &evt); err != nil {
			return fmt.Errorf("decode activity event: %w", err)
		}
		if evt.Type == "" {
			if i := strings.LastIndex(routingKey, "."); i >= 0 {
				evt.Type = routingKey[i+1:]
			}
		}

		err := activity.Ingest(ctx, services.ActivityEntry{
			GroupID:       evt.GroupID,
			UserID:        evt.UserID,
			Type:          models.ActivityType(evt.Type),
			TargetMovieID: &evt.MovieID,
			Metadata:      evt.Metadata,
		})
		if errors.Is(err, services.ErrInternal) {
			return fmt.Errorf("%w: %v", rabbitmq.ErrRetry, err)
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"group_id":      evt.GroupID,
				"user_id":       evt.UserID,
				"activity_type": evt.Type,
			}).WithError(err).Warn("activity event rejected")
		}
		return err
	}
}
