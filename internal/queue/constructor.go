package queue

import (
	"github.com/socialapp/social-executor/internal/service"
)

type Worker struct {
	qs service.QueueService
	ps service.PublishService
}

func NewWorker(qs service.QueueService, ps service.PublishService) *Worker {
	return &Worker{qs: qs, ps: ps}
}

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	PostID  string `json:"post_id"`
	Channel string `json:"channel"`
}
