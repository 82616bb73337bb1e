package handlers

import (
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	cfg "github.com/socialapp/social-executor/configs"
	"github.com/socialapp/social-executor/internal/models"
	"github.com/socialapp/social-executor/internal/service"
	"github.com/socialapp/social-executor/internal/transfer"
	"github.com/socialapp/social-executor/pkg/utils"
)

type DraftHandler struct {
	cfg      cfg.Config
	queue    service.QueueService
	media    service.MediaService
	validate *validator.Validate
}

func NewDraftHandler(c cfg.Config, queue service.QueueService, media service.MediaService) *DraftHandler {
	return &DraftHandler{cfg: c, queue: queue, media: media, validate: validator.New()}
}

// CreateDraft stores a new pending post. Media sources are tried in priority
// order: inline content, data URL, plain media URL; ingested media replaces
// any URL the client sent.
func (h *DraftHandler) CreateDraft(c *fiber.Ctx) error {
	var req transfer.DraftCreation
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "request body must be valid JSON",
		})
	}

	if err := h.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "caption is required",
		})
	}

	if req.MediaInline != nil && req.MediaInline.Content != "" {
		key, err := h.media.IngestInline(c.Context(), req.MediaInline, req.Caption)
		if err != nil {
			slog.Error("inline media ingestion failed", "err", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"ok":    false,
				"error": "media ingestion failed: " + err.Error(),
			})
		}
		return h.saveDraft(c, &req, key)
	}

	if req.MediaDataURL != "" {
		key, err := h.media.IngestDataURL(c.Context(), req.MediaDataURL, req.Caption)
		if err != nil {
			slog.Error("data URL ingestion failed", "err", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"ok":    false,
				"error": "media ingestion failed: " + err.Error(),
			})
		}
		return h.saveDraft(c, &req, key)
	}

	return h.saveDraft(c, &req, "")
}

func (h *DraftHandler) saveDraft(c *fiber.Ctx, req *transfer.DraftCreation, mediaKey string) error {
	if mediaKey != "" {
		// Ingested media wins over any URL in the request; ingestion always
		// produces an image.
		req.MediaS3Key = mediaKey
		req.MediaURL = ""
		req.MediaType = models.MediaTypeImage
	}

	postID, err := h.queue.AddDraft(c.Context(), req)
	if err != nil {
		slog.Error("saving draft failed", "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "unable to save draft",
		})
	}

	resp := fiber.Map{"ok": true, "post_id": postID}

	// The approval token goes into the one-click link mailed to the owner.
	if h.cfg.ApproveSecret != "" {
		ttl := time.Duration(h.cfg.ApproveTTLDays) * 24 * time.Hour
		token, err := utils.GenerateApprovalToken(h.cfg.ApproveSecret, postID, ttl)
		if err == nil {
			resp["approve_token"] = token
		}
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}
