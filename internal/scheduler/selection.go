package scheduler

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/socialapp/social-executor/internal/models"
)

// epochStart sorts before any real posting timestamp, so never-posted content
// surfaces ahead of everything that has already run on the channel.
const epochStart = "1970-01-01T00:00:00+00:00"

// PickNext chooses the next approved post to publish on a channel.
//
// Candidates are approved posts whose platform set includes the channel,
// ordered by last-posted-on-channel (never posted first), then by creation
// time. The first candidate outside the cooldown window wins. A nil return
// means nothing is eligible right now, which is a normal outcome.
func PickNext(posts []*models.Post, channel string, cooldown time.Duration, now time.Time) *models.Post {
	channel = strings.ToLower(strings.TrimSpace(channel))
	if !models.ValidChannel(channel) {
		return nil
	}

	var candidates []*models.Post
	for _, p := range posts {
		if p.EligibleOn(channel) {
			candidates = append(candidates, p)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ki, kj := sortKey(candidates[i], channel), sortKey(candidates[j], channel)
		if ki[0] != kj[0] {
			return ki[0] < kj[0]
		}
		return ki[1] < kj[1]
	})

	for _, p := range candidates {
		if cooldownOK(p, channel, cooldown, now) {
			return p
		}
	}
	return nil
}

// sortKey orders by raw RFC 3339 strings; uniform formatting makes the
// lexicographic order match chronological order.
func sortKey(p *models.Post, channel string) [2]string {
	last := p.LastPostedAt[channel]
	if last == "" {
		last = epochStart
	}
	created := p.CreatedAt
	if created == "" {
		created = epochStart
	}
	return [2]string{last, created}
}

// cooldownOK enforces the minimum gap before a post repeats on a channel.
// Never posted passes trivially; an unparseable stored timestamp fails open
// so one bad value cannot wedge the whole channel.
func cooldownOK(p *models.Post, channel string, cooldown time.Duration, now time.Time) bool {
	raw := p.LastPostedAt[channel]
	if raw == "" {
		return true
	}
	last, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		slog.Warn("unparseable last_posted_at, treating cooldown as satisfied",
			"post_id", p.ID, "channel", channel, "value", raw)
		return true
	}
	return now.Sub(last) >= cooldown
}
