package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/socialapp/social-executor/internal/service"
)

// HandlePublishPostTask publishes one post on one channel. Publish failures
// return an error so asynq retries; a vanished or no-longer-eligible post is
// dropped without retrying.
func (w *Worker) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("bad publish payload: %v: %w", err, asynq.SkipRetry)
	}

	post, err := w.qs.GetPost(ctx, payload.PostID)
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			slog.Warn("publish task for missing post", "post_id", payload.PostID)
			return fmt.Errorf("post %s not found: %w", payload.PostID, asynq.SkipRetry)
		}
		return err
	}

	// The queue may have changed between enqueue and execution.
	if !post.EligibleOn(payload.Channel) {
		slog.Info("post no longer eligible, dropping task",
			"post_id", payload.PostID, "channel", payload.Channel)
		return nil
	}

	res := w.ps.PublishToChannel(ctx, post, payload.Channel)
	if !res.OK {
		return fmt.Errorf("publish %s on %s: %s", payload.PostID, payload.Channel, res.Error)
	}

	slog.Info("post published", "post_id", payload.PostID,
		"channel", payload.Channel, "external_id", res.ExternalID)
	return nil
}
