package publishers

import (
	"context"
	"crypto/sha1" //nolint:gosec // non-cryptographic id generation
	"encoding/hex"
	"time"

	"github.com/Adda-Baaj/iq2us-rss/internal/domain"
)

// EventTypeNewEpisode marks an episode that appeared in the feed for the first time.
const EventTypeNewEpisode = "episode.new"

// Event is the payload delivered to publishers for one feed episode.
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Feed        string    `json:"feed"`
	DebateURL   string    `json:"debate_url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AudioURL    string    `json:"audio_url"`
	MIMEType    string    `json:"mime_type"`
	Duration    int       `json:"duration_seconds"`
	Length      int64     `json:"length_bytes"`
	PublishedAt time.Time `json:"published_at"`
	EmittedAt   time.Time `json:"emitted_at"`
}

// NewEpisodeEvent builds the event for ep as rendered in the named feed.
func NewEpisodeEvent(feed string, ep domain.Episode, length int64, now time.Time) Event {
	return Event{
		ID:          hashURL(ep.Podcast.URL),
		Type:        EventTypeNewEpisode,
		Feed:        feed,
		DebateURL:   ep.Debate.URL,
		Title:       ep.Podcast.Title,
		Description: ep.Podcast.Description,
		AudioURL:    ep.Podcast.URL,
		MIMEType:    ep.Podcast.MIMEType,
		Duration:    ep.Podcast.Duration,
		Length:      length,
		PublishedAt: ep.PublishedAt().UTC(),
		EmittedAt:   now.UTC(),
	}
}

// Attributes returns the routing attributes attached to queue messages.
func (e Event) Attributes() map[string]string {
	return map[string]string{
		"event_type": e.Type,
		"event_id":   e.ID,
		"feed":       e.Feed,
	}
}

// Publisher delivers events to one configured sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// Logger is the logging surface publishers write to.
type Logger interface {
	DebugObj(msg, key string, obj map[string]any)
	InfoObj(msg, key string, obj map[string]any)
	WarnObj(msg, key string, obj map[string]any)
	ErrorObj(msg, key string, obj map[string]any)
}

type nopLogger struct{}

func (nopLogger) DebugObj(string, string, map[string]any) {}
func (nopLogger) InfoObj(string, string, map[string]any)  {}
func (nopLogger) WarnObj(string, string, map[string]any)  {}
func (nopLogger) ErrorObj(string, string, map[string]any) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return nopLogger{}
	}
	return log
}

// hashURL generates a SHA-1 hash of the given URL string.
func hashURL(u string) string {
	sum := sha1.Sum([]byte(u))
	return hex.EncodeToString(sum[:])
}
