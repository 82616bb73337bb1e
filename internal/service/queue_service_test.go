package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialapp/social-executor/internal/models"
	"github.com/socialapp/social-executor/internal/repository"
	"github.com/socialapp/social-executor/internal/transfer"
)

// fakeQueueRepo mimics the S3 document store: loads hand out copies, saves
// are conditional on the version observed at load.
type fakeQueueRepo struct {
	doc       *models.QueueDocument
	version   int
	saves     int
	conflicts int // reject this many saves before accepting
}

func newFakeQueueRepo(posts ...*models.Post) *fakeQueueRepo {
	return &fakeQueueRepo{doc: &models.QueueDocument{Posts: posts}}
}

func (f *fakeQueueRepo) Load(ctx context.Context) (*models.QueueDocument, string, error) {
	raw, _ := json.Marshal(f.doc)
	var copied models.QueueDocument
	_ = json.Unmarshal(raw, &copied)
	if copied.Posts == nil {
		copied.Posts = []*models.Post{}
	}
	return &copied, fmt.Sprintf("v%d", f.version), nil
}

func (f *fakeQueueRepo) Save(ctx context.Context, doc *models.QueueDocument, etag string) (string, error) {
	f.saves++
	if f.conflicts > 0 {
		f.conflicts--
		f.version++
		return "", repository.ErrQueueConflict
	}
	if etag != fmt.Sprintf("v%d", f.version) {
		return "", repository.ErrQueueConflict
	}
	f.doc = doc
	f.version++
	return fmt.Sprintf("v%d", f.version), nil
}

func newTestQueueService(repo repository.QueueRepository) *queueService {
	return &queueService{repo: repo, now: func() time.Time {
		return time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	}}
}

func TestAddDraftNormalizes(t *testing.T) {
	repo := newFakeQueueRepo()
	s := newTestQueueService(repo)

	id, err := s.AddDraft(context.Background(), &transfer.DraftCreation{
		Caption:   "hello world",
		MediaType: "GIF",
		Platforms: []string{"instagram", "myspace"},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "draft_"))

	post := repo.doc.Posts[0]
	assert.Equal(t, models.PostStatusPending, post.Status)
	assert.Equal(t, models.MediaTypeImage, post.MediaType)
	assert.Equal(t, []string{models.ChannelInstagram}, post.Platforms)
	assert.NotEmpty(t, post.CreatedAt)
}

func TestApprovePost(t *testing.T) {
	post := &models.Post{ID: "draft_1", Status: models.PostStatusPending}
	repo := newFakeQueueRepo(post)
	s := newTestQueueService(repo)

	require.NoError(t, s.ApprovePost(context.Background(), "draft_1"))

	got := repo.doc.Posts[0]
	assert.Equal(t, models.PostStatusApproved, got.Status)
	require.Len(t, got.History, 1)
	assert.Equal(t, "approved", got.History[0].Event)

	// Approving again is allowed and only re-appends history.
	require.NoError(t, s.ApprovePost(context.Background(), "draft_1"))
	got = repo.doc.Posts[0]
	assert.Equal(t, models.PostStatusApproved, got.Status)
	assert.Len(t, got.History, 2)
}

func TestApprovePostNotFound(t *testing.T) {
	s := newTestQueueService(newFakeQueueRepo())
	err := s.ApprovePost(context.Background(), "draft_missing")
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestMarkPosted(t *testing.T) {
	post := &models.Post{ID: "draft_1", Status: models.PostStatusApproved}
	repo := newFakeQueueRepo(post)
	s := newTestQueueService(repo)

	ok, err := s.MarkPosted(context.Background(), "draft_1", models.ChannelInstagram)
	require.NoError(t, err)
	assert.True(t, ok)

	got := repo.doc.Posts[0]
	assert.NotEmpty(t, got.LastPostedAt[models.ChannelInstagram])
	require.Len(t, got.History, 1)
	assert.Equal(t, "posted:instagram", got.History[0].Event)
}

func TestMarkPostedUnknownChannel(t *testing.T) {
	repo := newFakeQueueRepo(&models.Post{ID: "draft_1"})
	s := newTestQueueService(repo)

	ok, err := s.MarkPosted(context.Background(), "draft_1", "tiktok")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, repo.saves, "unknown channel must not touch the document")
}

func TestMarkPostedNotFound(t *testing.T) {
	s := newTestQueueService(newFakeQueueRepo())
	_, err := s.MarkPosted(context.Background(), "draft_1", models.ChannelFacebook)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestUpdateRetriesOnConflict(t *testing.T) {
	repo := newFakeQueueRepo(&models.Post{ID: "draft_1"})
	repo.conflicts = 2
	s := newTestQueueService(repo)

	require.NoError(t, s.ApprovePost(context.Background(), "draft_1"))
	assert.Equal(t, 3, repo.saves)
	assert.Equal(t, models.PostStatusApproved, repo.doc.Posts[0].Status)
}

func TestUpdateGivesUpAfterRepeatedConflicts(t *testing.T) {
	repo := newFakeQueueRepo(&models.Post{ID: "draft_1"})
	repo.conflicts = saveRetries
	s := newTestQueueService(repo)

	err := s.ApprovePost(context.Background(), "draft_1")
	assert.Error(t, err)
}

func TestListPosts(t *testing.T) {
	repo := newFakeQueueRepo(
		&models.Post{ID: "a", Status: models.PostStatusPending},
		&models.Post{ID: "b", Status: models.PostStatusApproved},
		&models.Post{ID: "c", Status: models.PostStatusApproved},
	)
	s := newTestQueueService(repo)

	all, err := s.ListPosts(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	approved, err := s.ListPosts(context.Background(), models.PostStatusApproved, 0)
	require.NoError(t, err)
	assert.Len(t, approved, 2)

	limited, err := s.ListPosts(context.Background(), "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRemovePost(t *testing.T) {
	repo := newFakeQueueRepo(&models.Post{ID: "a"}, &models.Post{ID: "b"})
	s := newTestQueueService(repo)

	require.NoError(t, s.RemovePost(context.Background(), "a"))
	require.Len(t, repo.doc.Posts, 1)
	assert.Equal(t, "b", repo.doc.Posts[0].ID)

	err := s.RemovePost(context.Background(), "a")
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestGetPost(t *testing.T) {
	repo := newFakeQueueRepo(&models.Post{ID: "a", Caption: "hi"})
	s := newTestQueueService(repo)

	post, err := s.GetPost(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "hi", post.Caption)

	_, err = s.GetPost(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrPostNotFound)
}
