package crawler

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/Adda-Baaj/iq2us-rss/internal/domain"
	"github.com/Adda-Baaj/iq2us-rss/internal/logger"
	"github.com/Adda-Baaj/iq2us-rss/pkg/iso8601"
)

const (
	descriptionSelector   = "div.details"
	publishedTimeSelector = `meta[property="article:published_time"]`
	audioSelector         = "#debate-podcasts .panoply-podcast audio"
)

// ErrMissingDescription is returned when a debate page has no description block.
var ErrMissingDescription = errors.New("debate page has no description block")

// ParsePodcasts extracts the audio entries of one debate page. Every podcast
// returned shares the page's description and published time.
func ParsePodcasts(pageURL string, body []byte, log logger.Logger) ([]domain.Podcast, error) {
	if log == nil {
		log = logger.NopLogger{}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	details := doc.Find(descriptionSelector).First()
	if details.Length() == 0 {
		return nil, ErrMissingDescription
	}
	desc := flattenText(details)
	published := publishedTime(pageURL, doc, log)

	var podcasts []domain.Podcast
	doc.Find(audioSelector).Each(func(_ int, audio *goquery.Selection) {
		source := audio.Find("source").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.TrimSpace(s.AttrOr("src", "")) != ""
		}).First()
		if source.Length() == 0 {
			log.DebugObj("audio element without source skipped", "page", map[string]any{"url": pageURL})
			return
		}

		durationText := strings.TrimSpace(audio.AttrOr("data-duration", ""))
		duration, err := strconv.Atoi(durationText)
		if err != nil {
			duration = 0
		}

		p := domain.Podcast{
			Title:        audio.AttrOr("data-title", ""),
			Description:  desc,
			PublishedAt:  published,
			URL:          strings.TrimSpace(source.AttrOr("src", "")),
			MIMEType:     strings.TrimSpace(source.AttrOr("type", "")),
			Duration:     duration,
			DurationText: durationText,
		}
		log.DebugObj("found audio", "page", map[string]any{
			"url":      pageURL,
			"title":    p.Title,
			"audio":    p.URL,
			"duration": p.Duration,
		})
		podcasts = append(podcasts, p)
	})

	return podcasts, nil
}

// publishedTime reads the article:published_time meta tag. A missing or
// unparseable value yields the zero time.
func publishedTime(pageURL string, doc *goquery.Document, log logger.Logger) (t time.Time) {
	meta := doc.Find(publishedTimeSelector).First()
	raw, ok := meta.Attr("content")
	if !ok {
		return t
	}

	parsed, err := iso8601.Parse(raw)
	if err != nil {
		log.WarnObj("failed parsing published_time", "page", map[string]any{
			"url":   pageURL,
			"value": raw,
			"error": err.Error(),
		})
		return t
	}
	return parsed
}

// flattenText joins the trimmed, non-empty text nodes under sel with single spaces.
func flattenText(sel *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}
