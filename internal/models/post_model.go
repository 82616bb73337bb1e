package models

import (
	"strings"
	"time"
)

// Post is one entry in the queue document. Timestamps are stored as RFC 3339
// strings because the document is shared with tooling that edits the JSON by
// hand; parsing happens where the values are consumed.
type Post struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	CreatedAt    string            `json:"created_at"`
	Caption      string            `json:"caption"`
	MediaURL     string            `json:"media_url,omitempty"`
	MediaS3Key   string            `json:"media_s3_key,omitempty"`
	MediaType    string            `json:"media_type"`
	Platforms    []string          `json:"platforms"`
	Source       string            `json:"source"`
	Notes        string            `json:"notes"`
	LastPostedAt map[string]string `json:"last_posted_at"`
	History      []HistoryEvent    `json:"history"`
}

type HistoryEvent struct {
	TS    string `json:"ts"`
	Event string `json:"event"`
}

// QueueDocument is the whole S3 object.
type QueueDocument struct {
	Posts []*Post `json:"posts"`
}

const (
	PostStatusPending  = "pending"
	PostStatusApproved = "approved"
)

const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
	MediaTypeReel  = "reel"
	MediaTypeText  = "text"
)

const (
	ChannelInstagram = "instagram"
	ChannelFacebook  = "facebook"
)

var Channels = []string{ChannelInstagram, ChannelFacebook}

func ValidChannel(channel string) bool {
	switch channel {
	case ChannelInstagram, ChannelFacebook:
		return true
	}
	return false
}

func validMediaType(mt string) bool {
	switch mt {
	case MediaTypeImage, MediaTypeVideo, MediaTypeReel, MediaTypeText:
		return true
	}
	return false
}

// Normalize enforces the closed enums at the store boundary. Invalid media
// types default to image; platforms collapse to the known channel set and
// default to all channels when nothing valid remains.
func (p *Post) Normalize() {
	if p.Status != PostStatusApproved {
		p.Status = PostStatusPending
	}

	mt := strings.ToLower(strings.TrimSpace(p.MediaType))
	if !validMediaType(mt) {
		mt = MediaTypeImage
	}
	p.MediaType = mt

	var platforms []string
	for _, raw := range p.Platforms {
		ch := strings.ToLower(strings.TrimSpace(raw))
		if ValidChannel(ch) && !contains(platforms, ch) {
			platforms = append(platforms, ch)
		}
	}
	if len(platforms) == 0 {
		platforms = append(platforms, Channels...)
	}
	p.Platforms = platforms

	if p.Source == "" {
		p.Source = "unknown"
	}
	if p.LastPostedAt == nil {
		p.LastPostedAt = map[string]string{}
	}
	if p.History == nil {
		p.History = []HistoryEvent{}
	}
}

// EligibleOn reports whether the post may be considered for a channel at all:
// approved and listed for that channel.
func (p *Post) EligibleOn(channel string) bool {
	return p.Status == PostStatusApproved && contains(p.Platforms, channel)
}

func (p *Post) AppendHistory(event string, at time.Time) {
	p.History = append(p.History, HistoryEvent{TS: at.UTC().Format(time.RFC3339Nano), Event: event})
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
