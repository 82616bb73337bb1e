// Package scheduler holds the decision logic for the twice-daily publishing
// pipeline: which channel owns which slot on a given date, and which queued
// post should go out next on a channel. Everything here is pure; callers
// bring their own clock and queue snapshot.
package scheduler

import (
	"log/slog"
	"strings"
	"time"

	"github.com/socialapp/social-executor/internal/models"
)

type Slot string

const (
	SlotAM Slot = "am"
	SlotPM Slot = "pm"
)

func ParseSlot(s string) (Slot, bool) {
	switch Slot(strings.ToLower(strings.TrimSpace(s))) {
	case SlotAM:
		return SlotAM, true
	case SlotPM:
		return SlotPM, true
	}
	return "", false
}

// Other returns the opposite channel over the fixed two-channel set.
func Other(channel string) string {
	if strings.ToLower(channel) == models.ChannelInstagram {
		return models.ChannelFacebook
	}
	return models.ChannelInstagram
}

// NormalizeAnchor validates a configured anchor channel, falling back to
// instagram when the value is not a known channel.
func NormalizeAnchor(anchor string) string {
	anchor = strings.ToLower(strings.TrimSpace(anchor))
	if !models.ValidChannel(anchor) {
		return models.ChannelInstagram
	}
	return anchor
}

// ChannelsForDay applies the odd/even day-of-year rule: on odd days the
// anchor channel takes the AM slot, on even days it takes the PM slot. Over
// any two consecutive dates each channel gets exactly one AM and one PM.
func ChannelsForDay(date time.Time, anchor string) (am, pm string) {
	anchor = NormalizeAnchor(anchor)
	if date.YearDay()%2 == 1 {
		return anchor, Other(anchor)
	}
	return Other(anchor), anchor
}

// ChannelForSlot resolves a single slot of the given date.
func ChannelForSlot(date time.Time, slot Slot, anchor string) string {
	am, pm := ChannelsForDay(date, anchor)
	if slot == SlotPM {
		return pm
	}
	return am
}

// Location resolves a timezone identifier, silently falling back to the
// host's local time when the zone database does not know it. Degraded but
// available; callers log the fallback once at startup.
func Location(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Warn("timezone not resolvable, using host local time", "tz", name)
		return time.Local
	}
	return loc
}
