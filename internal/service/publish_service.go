package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	cfg "github.com/socialapp/social-executor/configs"
	"github.com/socialapp/social-executor/internal/models"
	"github.com/socialapp/social-executor/internal/repository"
	"github.com/socialapp/social-executor/internal/scheduler"
	"github.com/socialapp/social-executor/internal/transfer"
)

// SlotResult reports one scheduler run. Skipped means nothing was eligible,
// which is a successful no-op, not a failure.
type SlotResult struct {
	Channel    string `json:"channel"`
	PostID     string `json:"post_id,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
	Skipped    bool   `json:"skipped"`
	Reason     string `json:"reason,omitempty"`
}

// PublishService is the dispatcher and orchestration layer: it routes a post
// to the right platform publisher, records the attempt, and on success marks
// the post as published on that channel.
type PublishService interface {
	PublishToChannel(ctx context.Context, post *models.Post, channel string) *transfer.ChannelResult
	PublishToChannels(ctx context.Context, post *models.Post, channels []string) map[string]*transfer.ChannelResult
	RunSlot(ctx context.Context, slot scheduler.Slot) (*SlotResult, error)
	PickForSlot(ctx context.Context, slot scheduler.Slot) (string, *models.Post, error)
}

type publishService struct {
	cfg      cfg.Config
	queue    QueueService
	meta     MetaService
	records  repository.PublishRecordRepository
	location *time.Location
	now      func() time.Time
}

func NewPublishService(c cfg.Config, queue QueueService, meta MetaService, records repository.PublishRecordRepository) PublishService {
	return &publishService{
		cfg:      c,
		queue:    queue,
		meta:     meta,
		records:  records,
		location: scheduler.Location(c.Scheduler.Timezone),
		now:      time.Now,
	}
}

// PublishToChannel publishes one post on one channel. The attempt is written
// to the audit log whether it succeeded or not.
func (s *publishService) PublishToChannel(ctx context.Context, post *models.Post, channel string) *transfer.ChannelResult {
	if !models.ValidChannel(channel) {
		return &transfer.ChannelResult{OK: false, Error: fmt.Sprintf("unknown channel %q", channel)}
	}

	var externalID string
	var err error
	switch channel {
	case models.ChannelFacebook:
		externalID, err = s.meta.PublishFacebook(ctx, post)
	case models.ChannelInstagram:
		externalID, err = s.meta.PublishInstagram(ctx, post)
	}

	rec := models.PublishRecord{PostID: post.ID, Channel: channel, ExternalID: externalID}
	if err != nil {
		rec.ErrorMessage = err.Error()
		slog.Error("publish failed", "post_id", post.ID, "channel", channel, "err", err)
	}
	if _, recErr := s.records.Create(ctx, &rec); recErr != nil {
		slog.Error("saving publish record failed", "post_id", post.ID, "err", recErr)
	}

	if err != nil {
		return &transfer.ChannelResult{OK: false, Error: err.Error()}
	}

	if _, err := s.queue.MarkPosted(ctx, post.ID, channel); err != nil {
		slog.Error("mark posted failed", "post_id", post.ID, "channel", channel, "err", err)
	}
	return &transfer.ChannelResult{OK: true, ExternalID: externalID}
}

// PublishToChannels fans one post out to several channels. Each channel's
// outcome is independent; one failure never blocks the others.
func (s *publishService) PublishToChannels(ctx context.Context, post *models.Post, channels []string) map[string]*transfer.ChannelResult {
	if len(channels) == 0 {
		channels = post.Platforms
	}

	results := make(map[string]*transfer.ChannelResult, len(channels))
	for _, ch := range channels {
		if !models.ValidChannel(ch) {
			continue
		}
		results[ch] = s.PublishToChannel(ctx, post, ch)
	}
	return results
}

// PickForSlot resolves today's channel for the slot and selects a candidate
// without publishing. The scheduler job uses this to enqueue work.
func (s *publishService) PickForSlot(ctx context.Context, slot scheduler.Slot) (string, *models.Post, error) {
	now := s.now().In(s.location)
	channel := scheduler.ChannelForSlot(now, slot, s.cfg.Scheduler.AnchorChannel)

	posts, err := s.queue.ListPosts(ctx, "", 0)
	if err != nil {
		return channel, nil, err
	}

	cooldown := time.Duration(s.cfg.Scheduler.CooldownDays) * 24 * time.Hour
	return channel, scheduler.PickNext(posts, channel, cooldown, now.UTC()), nil
}

// RunSlot is the synchronous slot run: resolve channel, pick, publish.
func (s *publishService) RunSlot(ctx context.Context, slot scheduler.Slot) (*SlotResult, error) {
	channel, post, err := s.PickForSlot(ctx, slot)
	if err != nil {
		return nil, err
	}
	if post == nil {
		slog.Info("nothing eligible for slot", "slot", slot, "channel", channel)
		return &SlotResult{Channel: channel, Skipped: true, Reason: "no approved content for " + channel}, nil
	}

	res := s.PublishToChannel(ctx, post, channel)
	if !res.OK {
		return &SlotResult{Channel: channel, PostID: post.ID}, fmt.Errorf("publish on %s: %s", channel, res.Error)
	}
	return &SlotResult{Channel: channel, PostID: post.ID, ExternalID: res.ExternalID}, nil
}
