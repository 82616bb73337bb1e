package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/socialapp/social-executor/configs"
	"github.com/socialapp/social-executor/internal/models"
)

func metaConfig() cfg.Config {
	return cfg.Config{
		Meta: cfg.Meta{
			APIVersion:       "v23.0",
			IGUserID:         "ig_user",
			FBPageID:         "fb_page",
			IGAccessToken:    "ig_token",
			FBPageToken:      "fb_token",
			HTTPTimeoutSec:   5,
			Retries:          2,
			RetryBackoffSec:  0.01,
			ContainerTimeout: 2,
			ContainerPollSec: 1,
		},
	}
}

func newTestMetaService(t *testing.T, handler http.Handler) *metaService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &metaService{
		cfg:       metaConfig(),
		client:    &http.Client{Timeout: 5 * time.Second},
		graphBase: srv.URL,
	}
}

func TestPublishFacebookTextPost(t *testing.T) {
	var gotPath, gotMessage string
	m := newTestMetaService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotMessage = r.PostFormValue("message")
		json.NewEncoder(w).Encode(map[string]string{"id": "page_post_1"})
	}))

	post := &models.Post{Caption: "hello", MediaType: models.MediaTypeText}
	id, err := m.PublishFacebook(context.Background(), post)
	require.NoError(t, err)
	assert.Equal(t, "page_post_1", id)
	assert.Equal(t, "/fb_page/feed", gotPath)
	assert.Equal(t, "hello", gotMessage)
}

func TestPublishFacebookPhotoPost(t *testing.T) {
	m := newTestMetaService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fb_page/photos", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "https://example.com/pic.jpg", r.PostFormValue("url"))
		json.NewEncoder(w).Encode(map[string]string{"id": "photo_1", "post_id": "page_photo_1"})
	}))

	post := &models.Post{
		Caption:   "pic",
		MediaType: models.MediaTypeImage,
		MediaURL:  "https://example.com/pic.jpg",
	}
	id, err := m.PublishFacebook(context.Background(), post)
	require.NoError(t, err)
	// Graph returns both ids for photos; post_id is the page post.
	assert.Equal(t, "page_photo_1", id)
}

func TestPublishFacebookGraphError(t *testing.T) {
	m := newTestMetaService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message":    "Invalid OAuth access token",
				"type":       "OAuthException",
				"code":       190,
				"fbtrace_id": "abc",
			},
		})
	}))

	post := &models.Post{Caption: "hello", MediaType: models.MediaTypeText}
	_, err := m.PublishFacebook(context.Background(), post)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid OAuth access token")
}

func TestPublishFacebookRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	m := newTestMetaService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "page_post_2"})
	}))

	post := &models.Post{Caption: "retry me", MediaType: models.MediaTypeText}
	id, err := m.PublishFacebook(context.Background(), post)
	require.NoError(t, err)
	assert.Equal(t, "page_post_2", id)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPublishInstagramContainerFlow(t *testing.T) {
	var polls atomic.Int32
	m := newTestMetaService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ig_user/media":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "https://example.com/pic.jpg", r.PostFormValue("image_url"))
			json.NewEncoder(w).Encode(map[string]string{"id": "container_1"})
		case "/container_1":
			status := "IN_PROGRESS"
			if polls.Add(1) >= 2 {
				status = "FINISHED"
			}
			json.NewEncoder(w).Encode(map[string]string{"status_code": status})
		case "/ig_user/media_publish":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "container_1", r.PostFormValue("creation_id"))
			json.NewEncoder(w).Encode(map[string]string{"id": "media_1"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	post := &models.Post{
		Caption:   "pic",
		MediaType: models.MediaTypeImage,
		MediaURL:  "https://example.com/pic.jpg",
	}
	id, err := m.PublishInstagram(context.Background(), post)
	require.NoError(t, err)
	assert.Equal(t, "media_1", id)
	assert.GreaterOrEqual(t, polls.Load(), int32(2))
}

func TestPublishInstagramReelsContainer(t *testing.T) {
	m := newTestMetaService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ig_user/media":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "REELS", r.PostFormValue("media_type"))
			assert.Equal(t, "https://example.com/clip.mp4", r.PostFormValue("video_url"))
			json.NewEncoder(w).Encode(map[string]string{"id": "container_2"})
		case "/container_2":
			json.NewEncoder(w).Encode(map[string]string{"status_code": "FINISHED"})
		case "/ig_user/media_publish":
			json.NewEncoder(w).Encode(map[string]string{"id": "media_2"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	post := &models.Post{
		Caption:   "reel",
		MediaType: models.MediaTypeReel,
		MediaURL:  "https://example.com/clip.mp4",
	}
	id, err := m.PublishInstagram(context.Background(), post)
	require.NoError(t, err)
	assert.Equal(t, "media_2", id)
}

func TestPublishInstagramContainerError(t *testing.T) {
	m := newTestMetaService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ig_user/media":
			json.NewEncoder(w).Encode(map[string]string{"id": "container_3"})
		case "/container_3":
			json.NewEncoder(w).Encode(map[string]string{"status_code": "ERROR"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	post := &models.Post{Caption: "pic", MediaType: models.MediaTypeImage, MediaURL: "https://x.test/p.jpg"}
	_, err := m.PublishInstagram(context.Background(), post)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed processing")
}

func TestPublishInstagramRejectsTextOnly(t *testing.T) {
	m := newTestMetaService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for text-only instagram post")
	}))

	post := &models.Post{Caption: "just words", MediaType: models.MediaTypeText}
	_, err := m.PublishInstagram(context.Background(), post)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires media")
}
