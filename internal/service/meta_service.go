package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	cfg "github.com/socialapp/social-executor/configs"
	"github.com/socialapp/social-executor/internal/models"
)

// presignExpiry gives Graph enough time to fetch S3-hosted media, including
// the Instagram container processing window.
const presignExpiry = 2 * time.Hour

// MetaService publishes to the Meta Graph API: Facebook Page posts directly,
// Instagram through the container create/poll/publish flow. Both return the
// external post id on success.
type MetaService interface {
	PublishFacebook(ctx context.Context, post *models.Post) (string, error)
	PublishInstagram(ctx context.Context, post *models.Post) (string, error)
}

type metaService struct {
	cfg       cfg.Config
	media     MediaService
	client    *http.Client
	graphBase string
}

func NewMetaService(c cfg.Config, media MediaService) MetaService {
	return &metaService{
		cfg:       c,
		media:     media,
		client:    &http.Client{Timeout: time.Duration(c.Meta.HTTPTimeoutSec) * time.Second},
		graphBase: "https://graph.facebook.com/" + c.Meta.APIVersion,
	}
}

type graphError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	FBTraceID string `json:"fbtrace_id"`
}

type graphResponse struct {
	ID         string      `json:"id"`
	PostID     string      `json:"post_id"`
	StatusCode string      `json:"status_code"`
	Status     string      `json:"status"`
	Error      *graphError `json:"error"`
}

func (m *metaService) PublishFacebook(ctx context.Context, post *models.Post) (string, error) {
	if m.cfg.Meta.FBPageID == "" || m.cfg.Meta.FBPageToken == "" {
		return "", errors.New("facebook page id or token not configured")
	}

	mediaURL, err := m.resolveMediaURL(ctx, post)
	if err != nil {
		return "", err
	}

	switch {
	case post.MediaType == models.MediaTypeText || mediaURL == "":
		return m.fbTextPost(ctx, post.Caption)
	case post.MediaType == models.MediaTypeImage:
		return m.fbPhotoPost(ctx, mediaURL, post.Caption)
	default: // video, reel
		return m.fbVideoPost(ctx, mediaURL, post.Caption)
	}
}

func (m *metaService) PublishInstagram(ctx context.Context, post *models.Post) (string, error) {
	if m.cfg.Meta.IGUserID == "" || m.cfg.Meta.IGAccessToken == "" {
		return "", errors.New("instagram user id or token not configured")
	}

	mediaURL, err := m.resolveMediaURL(ctx, post)
	if err != nil {
		return "", err
	}
	if mediaURL == "" {
		return "", errors.New("instagram requires media, text-only posts are not supported")
	}

	var creationID string
	switch post.MediaType {
	case models.MediaTypeVideo:
		creationID, err = m.igCreateVideoContainer(ctx, mediaURL, post.Caption, false)
	case models.MediaTypeReel:
		creationID, err = m.igCreateVideoContainer(ctx, mediaURL, post.Caption, true)
	default:
		creationID, err = m.igCreateImageContainer(ctx, mediaURL, post.Caption)
	}
	if err != nil {
		return "", err
	}

	if err := m.igPollContainer(ctx, creationID); err != nil {
		return "", err
	}
	return m.igPublishContainer(ctx, creationID)
}

func (m *metaService) resolveMediaURL(ctx context.Context, post *models.Post) (string, error) {
	if post.MediaS3Key != "" {
		return m.media.PresignURL(ctx, post.MediaS3Key, presignExpiry)
	}
	return post.MediaURL, nil
}

// ---- Facebook Page ----

func (m *metaService) fbTextPost(ctx context.Context, message string) (string, error) {
	if message == "" {
		return "", errors.New("message is required for facebook text post")
	}
	data := url.Values{}
	data.Set("message", message)
	data.Set("access_token", m.cfg.Meta.FBPageToken)

	resp, err := m.request(ctx, http.MethodPost, m.graphBase+"/"+m.cfg.Meta.FBPageID+"/feed", data)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("missing post id in facebook response")
	}
	return resp.ID, nil
}

func (m *metaService) fbPhotoPost(ctx context.Context, imageURL, caption string) (string, error) {
	data := url.Values{}
	data.Set("url", imageURL)
	data.Set("access_token", m.cfg.Meta.FBPageToken)
	if caption != "" {
		data.Set("caption", caption)
	}

	resp, err := m.request(ctx, http.MethodPost, m.graphBase+"/"+m.cfg.Meta.FBPageID+"/photos", data)
	if err != nil {
		return "", err
	}
	if resp.PostID != "" {
		return resp.PostID, nil
	}
	if resp.ID == "" {
		return "", errors.New("missing post id in facebook photo response")
	}
	return resp.ID, nil
}

func (m *metaService) fbVideoPost(ctx context.Context, fileURL, description string) (string, error) {
	data := url.Values{}
	data.Set("file_url", fileURL)
	data.Set("access_token", m.cfg.Meta.FBPageToken)
	if description != "" {
		data.Set("description", description)
	}

	resp, err := m.request(ctx, http.MethodPost, m.graphBase+"/"+m.cfg.Meta.FBPageID+"/videos", data)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("missing video id in facebook response")
	}
	return resp.ID, nil
}

// ---- Instagram: container create -> poll -> publish ----

func (m *metaService) igCreateImageContainer(ctx context.Context, imageURL, caption string) (string, error) {
	data := url.Values{}
	data.Set("image_url", imageURL)
	data.Set("caption", caption)
	data.Set("access_token", m.cfg.Meta.IGAccessToken)

	resp, err := m.request(ctx, http.MethodPost, m.graphBase+"/"+m.cfg.Meta.IGUserID+"/media", data)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("missing creation_id in instagram response")
	}
	slog.Info("instagram image container created", "creation_id", resp.ID)
	return resp.ID, nil
}

func (m *metaService) igCreateVideoContainer(ctx context.Context, videoURL, caption string, reels bool) (string, error) {
	data := url.Values{}
	data.Set("video_url", videoURL)
	data.Set("caption", caption)
	data.Set("access_token", m.cfg.Meta.IGAccessToken)
	if reels {
		data.Set("media_type", "REELS")
	}

	resp, err := m.request(ctx, http.MethodPost, m.graphBase+"/"+m.cfg.Meta.IGUserID+"/media", data)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("missing creation_id in instagram response")
	}
	slog.Info("instagram video container created", "creation_id", resp.ID, "reels", reels)
	return resp.ID, nil
}

// igPollContainer waits for the container to finish processing. Containers
// expire after about a day, so they are created just-in-time before publish.
func (m *metaService) igPollContainer(ctx context.Context, creationID string) error {
	params := url.Values{}
	params.Set("fields", "status_code,status")
	params.Set("access_token", m.cfg.Meta.IGAccessToken)

	timeout := time.Duration(m.cfg.Meta.ContainerTimeout) * time.Second
	interval := time.Duration(m.cfg.Meta.ContainerPollSec) * time.Second
	deadline := time.Now().Add(timeout)

	for {
		resp, err := m.request(ctx, http.MethodGet, m.graphBase+"/"+creationID+"?"+params.Encode(), nil)
		if err != nil {
			return err
		}
		status := resp.StatusCode
		if status == "" {
			status = resp.Status
		}
		if strings.EqualFold(status, "FINISHED") {
			return nil
		}
		if strings.EqualFold(status, "ERROR") {
			return fmt.Errorf("instagram container %s failed processing", creationID)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("instagram container %s not ready before timeout (%s)", creationID, timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (m *metaService) igPublishContainer(ctx context.Context, creationID string) (string, error) {
	data := url.Values{}
	data.Set("creation_id", creationID)
	data.Set("access_token", m.cfg.Meta.IGAccessToken)

	resp, err := m.request(ctx, http.MethodPost, m.graphBase+"/"+m.cfg.Meta.IGUserID+"/media_publish", data)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("missing media id in instagram publish response")
	}
	slog.Info("instagram media published", "media_id", resp.ID, "creation_id", creationID)
	return resp.ID, nil
}

// request sends one Graph call with bounded retries and linear backoff.
// Graph prefers form-encoded fields on writes.
func (m *metaService) request(ctx context.Context, method, reqURL string, form url.Values) (*graphResponse, error) {
	retries := m.cfg.Meta.Retries
	if retries < 1 {
		retries = 1
	}
	backoff := time.Duration(m.cfg.Meta.RetryBackoffSec * float64(time.Second))

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		resp, err := m.doOnce(ctx, method, reqURL, form)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		slog.Warn("graph api request failed", "method", method, "url", reqURL,
			"attempt", attempt, "retries", retries, "err", err)

		if attempt < retries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff * time.Duration(attempt)):
			}
		}
	}
	return nil, fmt.Errorf("graph request failed after %d attempts: %w", retries, lastErr)
}

func (m *metaService) doOnce(ctx context.Context, method, reqURL string, form url.Values) (*graphResponse, error) {
	var req *http.Request
	var err error
	if form != nil {
		req, err = http.NewRequestWithContext(ctx, method, reqURL, strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, method, reqURL, nil)
	}
	if err != nil {
		return nil, err
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed graphResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&parsed); decodeErr != nil && resp.StatusCode < 300 {
		return nil, fmt.Errorf("decode graph response: %w", decodeErr)
	}

	if resp.StatusCode >= 300 {
		if parsed.Error != nil {
			return nil, fmt.Errorf("%d: %s (code=%d type=%s fbtrace=%s)", resp.StatusCode,
				parsed.Error.Message, parsed.Error.Code, parsed.Error.Type, parsed.Error.FBTraceID)
		}
		return nil, fmt.Errorf("graph api returned status %d", resp.StatusCode)
	}

	return &parsed, nil
}
