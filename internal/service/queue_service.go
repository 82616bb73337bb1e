package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/socialapp/social-executor/internal/models"
	"github.com/socialapp/social-executor/internal/repository"
	"github.com/socialapp/social-executor/internal/transfer"
)

var ErrPostNotFound = errors.New("post not found")

// saveRetries bounds the reload-and-retry loop on ETag conflicts.
const saveRetries = 5

type QueueService interface {
	AddDraft(ctx context.Context, d *transfer.DraftCreation) (string, error)
	ApprovePost(ctx context.Context, postID string) error
	MarkPosted(ctx context.Context, postID, channel string) (bool, error)
	GetPost(ctx context.Context, postID string) (*models.Post, error)
	ListPosts(ctx context.Context, status string, limit int) ([]*models.Post, error)
	RemovePost(ctx context.Context, postID string) error
}

type queueService struct {
	repo repository.QueueRepository
	now  func() time.Time
}

func NewQueueService(repo repository.QueueRepository) QueueService {
	return &queueService{repo: repo, now: time.Now}
}

func (s *queueService) AddDraft(ctx context.Context, d *transfer.DraftCreation) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	draftID := "draft_" + id

	post := &models.Post{
		ID:         draftID,
		Caption:    d.Caption,
		MediaURL:   d.MediaURL,
		MediaS3Key: d.MediaS3Key,
		MediaType:  d.MediaType,
		Platforms:  d.Platforms,
		Source:     d.Source,
		Notes:      d.Notes,
		CreatedAt:  s.now().UTC().Format(time.RFC3339Nano),
		Status:     models.PostStatusPending,
	}
	post.Normalize()

	err = s.update(ctx, func(doc *models.QueueDocument) (bool, error) {
		doc.Posts = append(doc.Posts, post)
		return true, nil
	})
	if err != nil {
		return "", err
	}

	return draftID, nil
}

// ApprovePost flips a draft to approved. Approving an already approved post
// is allowed; it only re-appends the history event.
func (s *queueService) ApprovePost(ctx context.Context, postID string) error {
	return s.update(ctx, func(doc *models.QueueDocument) (bool, error) {
		p := findPost(doc, postID)
		if p == nil {
			return false, ErrPostNotFound
		}
		p.Status = models.PostStatusApproved
		p.AppendHistory("approved", s.now())
		return true, nil
	})
}

// MarkPosted records a confirmed publish on a channel. Unknown channels are a
// no-op returning false; last_posted_at is never set speculatively.
func (s *queueService) MarkPosted(ctx context.Context, postID, channel string) (bool, error) {
	if !models.ValidChannel(channel) {
		return false, nil
	}

	err := s.update(ctx, func(doc *models.QueueDocument) (bool, error) {
		p := findPost(doc, postID)
		if p == nil {
			return false, ErrPostNotFound
		}
		if p.LastPostedAt == nil {
			p.LastPostedAt = map[string]string{}
		}
		p.LastPostedAt[channel] = s.now().UTC().Format(time.RFC3339Nano)
		p.AppendHistory("posted:"+channel, s.now())
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *queueService) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	doc, _, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	p := findPost(doc, postID)
	if p == nil {
		return nil, ErrPostNotFound
	}
	return p, nil
}

func (s *queueService) ListPosts(ctx context.Context, status string, limit int) ([]*models.Post, error) {
	doc, _, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	posts := doc.Posts
	if status != "" {
		filtered := make([]*models.Post, 0, len(posts))
		for _, p := range posts {
			if p.Status == status {
				filtered = append(filtered, p)
			}
		}
		posts = filtered
	}
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

// RemovePost is an admin escape hatch, not part of the post lifecycle.
func (s *queueService) RemovePost(ctx context.Context, postID string) error {
	return s.update(ctx, func(doc *models.QueueDocument) (bool, error) {
		for i, p := range doc.Posts {
			if p.ID == postID {
				doc.Posts = append(doc.Posts[:i], doc.Posts[i+1:]...)
				return true, nil
			}
		}
		return false, ErrPostNotFound
	})
}

// update runs one read-modify-write cycle against the queue document,
// reloading and retrying when a concurrent writer got there first.
func (s *queueService) update(ctx context.Context, mutate func(*models.QueueDocument) (bool, error)) error {
	for attempt := 0; attempt < saveRetries; attempt++ {
		doc, etag, err := s.repo.Load(ctx)
		if err != nil {
			return err
		}

		changed, err := mutate(doc)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		_, err = s.repo.Save(ctx, doc, etag)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrQueueConflict) {
			return err
		}
		slog.Info("queue document conflict, retrying", "attempt", attempt+1)
	}
	return fmt.Errorf("queue update: gave up after %d conflicts", saveRetries)
}

func findPost(doc *models.QueueDocument, postID string) *models.Post {
	for _, p := range doc.Posts {
		if p.ID == postID {
			return p
		}
	}
	return nil
}
