package job

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/socialapp/social-executor/internal/queue"
	"github.com/socialapp/social-executor/internal/scheduler"
	"github.com/socialapp/social-executor/internal/service"
)

// SlotJob is the twice-daily trigger: resolve the slot's channel by day
// parity, pick the next candidate and hand it to the publish queue. An empty
// pick is a logged no-op.
type SlotJob struct {
	ps     service.PublishService
	client *asynq.Client
}

func NewSlotJob(ps service.PublishService, client *asynq.Client) *SlotJob {
	return &SlotJob{ps: ps, client: client}
}

func (j *SlotJob) RunAM() {
	j.run(scheduler.SlotAM)
}

func (j *SlotJob) RunPM() {
	j.run(scheduler.SlotPM)
}

func (j *SlotJob) run(slot scheduler.Slot) {
	ctx := context.Background()

	channel, post, err := j.ps.PickForSlot(ctx, slot)
	if err != nil {
		slog.Error("slot run failed", "slot", slot, "err", err)
		return
	}
	if post == nil {
		slog.Info("no approved content for slot", "slot", slot, "channel", channel)
		return
	}

	err = queue.EnqueuePublish(j.client, queue.PublishPostPayload{PostID: post.ID, Channel: channel})
	if err != nil {
		slog.Error("enqueue publish failed", "slot", slot, "post_id", post.ID, "err", err)
		return
	}

	slog.Info("slot publish enqueued", "slot", slot, "channel", channel, "post_id", post.ID)
}
