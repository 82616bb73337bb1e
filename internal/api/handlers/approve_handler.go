package handlers

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	cfg "github.com/socialapp/social-executor/configs"
	"github.com/socialapp/social-executor/internal/service"
	"github.com/socialapp/social-executor/pkg/utils"
)

type ApproveHandler struct {
	cfg     cfg.Config
	queue   service.QueueService
	publish service.PublishService
}

func NewApproveHandler(c cfg.Config, queue service.QueueService, publish service.PublishService) *ApproveHandler {
	return &ApproveHandler{cfg: c, queue: queue, publish: publish}
}

// ApproveLink serves the one-click approval link from the notification
// email: a signed token scoped to one post, or the admin API key.
func (h *ApproveHandler) ApproveLink(c *fiber.Ctx) error {
	postID := c.Query("post_id")

	if token := c.Query("token"); token != "" {
		claims, err := utils.ValidateApprovalToken(h.cfg.ApproveSecret, token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired approval token",
			})
		}
		postID = claims.PostID
	} else if !h.validAPIKey(c.Query("api_key")) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "approval token or API key required",
		})
	}

	if postID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "post_id is required",
		})
	}

	publishNow := c.QueryBool("publish_now", false)
	var channels []string
	if raw := c.Query("channels"); raw != "" {
		channels = strings.Split(raw, ",")
	}

	return h.approveAndMaybePublish(c, postID, publishNow, channels)
}

type approveRequest struct {
	PostID     string   `json:"post_id"`
	PublishNow bool     `json:"publish_now"`
	Channels   []string `json:"channels"`
}

func (h *ApproveHandler) ApproveAPI(c *fiber.Ctx) error {
	var req approveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "request body must be valid JSON",
		})
	}
	if req.PostID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "post_id is required",
		})
	}

	return h.approveAndMaybePublish(c, req.PostID, req.PublishNow, req.Channels)
}

// approveAndMaybePublish flips the post to approved and, when asked,
// publishes immediately. Publish outcomes are reported per channel; a
// failing channel never rolls back the approval.
func (h *ApproveHandler) approveAndMaybePublish(c *fiber.Ctx, postID string, publishNow bool, channels []string) error {
	if err := h.queue.ApprovePost(c.Context(), postID); err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "post_id " + postID + " not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	resp := fiber.Map{"ok": true, "post_id": postID}

	if publishNow {
		post, err := h.queue.GetPost(c.Context(), postID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		resp["published"] = h.publish.PublishToChannels(c.Context(), post, channels)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *ApproveHandler) validAPIKey(key string) bool {
	return key != "" && subtle.ConstantTimeCompare([]byte(key), []byte(h.cfg.AdminAPIKey)) == 1
}
