package domain

import "time"

// Domain contains core models shared by the scraper, filters and renderer.

// Debate is a debate page discovered in the sitemap.
type Debate struct {
	URL          string
	LastModified time.Time
}

// Podcast is one audio track found on a debate page.
type Podcast struct {
	Title       string
	Description string
	// PublishedAt is zero when the page carries no published-time metadata.
	PublishedAt  time.Time
	URL          string
	MIMEType     string
	Duration     int // seconds
	DurationText string
}

// HasPublishedAt reports whether the page exposed a publish date.
func (p Podcast) HasPublishedAt() bool {
	return !p.PublishedAt.IsZero()
}

// Episode pairs a podcast with the debate page it was extracted from.
type Episode struct {
	Debate  Debate
	Podcast Podcast
}

// PublishedAt returns the podcast publish date, falling back to the debate's
// last-modified time.
func (e Episode) PublishedAt() time.Time {
	if e.Podcast.HasPublishedAt() {
		return e.Podcast.PublishedAt
	}
	return e.Debate.LastModified
}

// Epoch is used for debates whose sitemap entry has no usable lastmod.
var Epoch = time.Unix(0, 0).UTC()
