package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/socialapp/social-executor/internal/repository"
	"github.com/socialapp/social-executor/internal/scheduler"
	"github.com/socialapp/social-executor/internal/service"
)

type SchedulerHandler struct {
	publish service.PublishService
	queue   service.QueueService
	records repository.PublishRecordRepository
}

func NewSchedulerHandler(publish service.PublishService, queue service.QueueService, records repository.PublishRecordRepository) *SchedulerHandler {
	return &SchedulerHandler{publish: publish, queue: queue, records: records}
}

// RunSlot triggers one slot run synchronously. Used for manual runs and as
// the target of external timers; the cron path goes through the task queue
// instead.
func (h *SchedulerHandler) RunSlot(c *fiber.Ctx) error {
	slot, ok := scheduler.ParseSlot(c.Query("slot", "am"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "slot must be am or pm",
		})
	}

	result, err := h.publish.RunSlot(c.Context(), slot)
	if err != nil {
		status := fiber.StatusInternalServerError
		resp := fiber.Map{"ok": false, "error": err.Error()}
		if result != nil {
			resp["channel"] = result.Channel
			resp["post_id"] = result.PostID
		}
		return c.Status(status).JSON(resp)
	}

	if result.Skipped {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"ok":     false,
			"reason": result.Reason,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":          true,
		"channel":     result.Channel,
		"post_id":     result.PostID,
		"external_id": result.ExternalID,
	})
}

// ListPosts dumps queue contents, optionally filtered by status.
func (h *SchedulerHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.queue.ListPosts(c.Context(), c.Query("status"), c.QueryInt("limit", 100))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "unable to list posts",
		})
	}
	return c.Status(fiber.StatusOK).JSON(posts)
}

// DebugPost dumps one post record.
func (h *SchedulerHandler) DebugPost(c *fiber.Ctx) error {
	postID := c.Query("id")
	if postID == "" {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{})
	}

	post, err := h.queue.GetPost(c.Context(), postID)
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "post not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

// ListPublishes returns the recent publish audit trail.
func (h *SchedulerHandler) ListPublishes(c *fiber.Ctx) error {
	if postID := c.Query("post_id"); postID != "" {
		recs, err := h.records.ListByPostID(c.Context(), postID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "unable to list publish records",
			})
		}
		return c.Status(fiber.StatusOK).JSON(recs)
	}

	recs, err := h.records.ListRecent(c.Context(), c.QueryInt("limit", 50))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "unable to list publish records",
		})
	}
	return c.Status(fiber.StatusOK).JSON(recs)
}
