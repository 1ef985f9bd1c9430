// Package feed renders harvested episodes as an RSS 2.0 podcast feed.
package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Adda-Baaj/iq2us-rss/internal/domain"
)

const (
	DefaultTitle       = "[unofficial] Intelligence Squared U.S. Debates"
	DefaultDescription = "Intelligence Squared U.S. Debates bring Oxford-style debate to America – one motion, one moderator, two panelists for the motion and two against. From clean energy and the financial crisis, to the Middle East and the death of mainstream media, Intelligence Squared U.S. brings together the world's leading authorities on the day's most important issues. Join the debate online and cast your vote for each topic at www.iq2us.org."
	DefaultImageURL    = "http://static.megaphone.fm/podcasts/bcc042ec-fb48-11e5-b604-930d2eb6cae2/image/uploads_2F1482274927463-5ma333ntgbmg85er-552d6f3f61ced4ca865638c3f33802a3_2FIQ2-Panoply3.jpg"
	DefaultGenerator   = "https://github.com/Adda-Baaj/iq2us-rss"
	DefaultDocs        = "https://validator.w3.org/feed/docs/rss2.html"

	itunesNamespace = "http://www.itunes.com/dtds/podcast-1.0.dtd"
	language        = "en-us"
	ttlMinutes      = 60
)

// Channel carries the channel-level fields of the feed.
type Channel struct {
	Title       string
	Description string
	Link        string
	ImageURL    string
	Generator   string
	Docs        string
}

// DefaultChannel returns the channel used when nothing is configured.
func DefaultChannel(link string) Channel {
	return Channel{
		Title:       DefaultTitle,
		Description: DefaultDescription,
		Link:        link,
		ImageURL:    DefaultImageURL,
		Generator:   DefaultGenerator,
		Docs:        DefaultDocs,
	}
}

// HomeURL derives the site home page from a sitemap URL.
func HomeURL(sitemapURL string) string {
	if strings.HasSuffix(sitemapURL, "/sitemap.xml") {
		return strings.TrimSuffix(sitemapURL, "sitemap.xml")
	}
	return sitemapURL
}

// FormatDate renders t in UTC as an RFC-822 date with a literal -0000 zone.
func FormatDate(t time.Time) string {
	return t.UTC().Format("Mon, 02 Jan 2006 15:04:05") + " -0000"
}

// Writer renders feeds. Now and Lengths default to time.Now and NopResolver.
type Writer struct {
	Now     func() time.Time
	Lengths LengthResolver
}

// Write renders the channel and its episodes, in the given order, to out.
func (w *Writer) Write(ctx context.Context, out io.Writer, ch Channel, episodes []domain.Episode) error {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	lengths := w.Lengths
	if lengths == nil {
		lengths = NopResolver{}
	}

	p := &printer{w: out}
	built := FormatDate(now())

	p.raw(`<?xml version="1.0" encoding="UTF-8" ?>` + "\n")
	p.raw(`<rss version="2.0" xmlns:itunes="` + itunesNamespace + `">` + "\n")
	p.raw("<channel>\n")
	p.elem(1, "title", ch.Title)
	p.elem(1, "description", ch.Description)
	p.elem(1, "link", ch.Link)
	p.elem(1, "language", language)
	p.raw("  <image>\n")
	p.elem(2, "url", ch.ImageURL)
	p.elem(2, "title", ch.Title)
	p.elem(2, "link", ch.Link)
	p.raw("  </image>\n")
	p.elem(1, "lastBuildDate", built)
	p.elem(1, "pubDate", built)
	p.elem(1, "generator", ch.Generator)
	p.elem(1, "docs", ch.Docs)
	p.elem(1, "ttl", fmt.Sprint(ttlMinutes))

	for _, ep := range episodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		length := lengths.ContentLength(ctx, ep.Podcast.URL)

		p.raw("  <item>\n")
		p.elem(2, "title", ep.Podcast.Title)
		p.elem(2, "link", ep.Debate.URL)
		p.elem(2, "description", ep.Podcast.Description)
		p.elem(2, "pubDate", FormatDate(ep.PublishedAt()))
		p.raw(fmt.Sprintf("    <enclosure url=\"%s\" length=\"%d\" type=\"%s\" />\n",
			escape(ep.Podcast.URL), length, escape(ep.Podcast.MIMEType)))
		p.elem(2, "itunes:duration", ep.Podcast.DurationText)
		p.raw("  </item>\n")

		if p.err != nil {
			return fmt.Errorf("write feed: %w", p.err)
		}
	}

	p.raw("</channel>\n")
	p.raw("</rss>\n")
	if p.err != nil {
		return fmt.Errorf("write feed: %w", p.err)
	}
	return nil
}

// printer writes indented elements and keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) raw(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

func (p *printer) elem(depth int, name, text string) {
	p.raw(strings.Repeat("  ", depth) + "<" + name + ">" + escape(text) + "</" + name + ">\n")
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
