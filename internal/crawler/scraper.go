package crawler

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/Adda-Baaj/iq2us-rss/internal/domain"
	"github.com/Adda-Baaj/iq2us-rss/internal/logger"
	"github.com/Adda-Baaj/iq2us-rss/pkg/httpclient"
	"github.com/Adda-Baaj/iq2us-rss/pkg/iso8601"
	"github.com/Adda-Baaj/iq2us-rss/pkg/sitemaps"
)

const (
	maxPageBytes    = 8 << 20  // 8 MiB
	maxSitemapBytes = 50 << 20 // sitemap protocol limit, uncompressed
)

// Scraper discovers debates from a sitemap and extracts podcasts from debate pages.
// It is not safe for concurrent use.
type Scraper struct {
	client       httpclient.Client
	log          logger.Logger
	delay        time.Duration
	pageLimit    int
	sitemapLimit int

	pagesFetched int
}

// Option customises a Scraper.
type Option func(*Scraper)

// WithRequestDelay waits d between consecutive debate page fetches.
func WithRequestDelay(d time.Duration) Option {
	return func(s *Scraper) {
		if d > 0 {
			s.delay = d
		}
	}
}

// NewScraper creates a Scraper with the given HTTP client and logger.
func NewScraper(client httpclient.Client, log logger.Logger, opts ...Option) *Scraper {
	if client == nil {
		client = httpclient.NewRestyClient(httpclient.DefaultTimeout)
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	s := &Scraper{
		client:       client,
		log:          log,
		pageLimit:    maxPageBytes,
		sitemapLimit: maxSitemapBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Debates yields the debate pages listed in the sitemap at sitemapURL, following
// sitemap indexes. Failing to read the root sitemap is yielded as an error and ends
// the sequence; a nested sitemap that fails is logged and skipped.
func (s *Scraper) Debates(ctx context.Context, sitemapURL string) iter.Seq2[domain.Debate, error] {
	return func(yield func(domain.Debate, error) bool) {
		s.log.InfoObj("scraping sitemap", "sitemap", map[string]any{"url": sitemapURL})

		body, err := s.fetchSitemap(ctx, sitemapURL)
		if err != nil {
			yield(domain.Debate{}, fmt.Errorf("fetch sitemap: %w", err))
			return
		}

		visited := map[string]struct{}{sitemapURL: {}}
		s.walkSitemap(ctx, sitemapURL, body, true, visited, yield)
	}
}

// walkSitemap yields the debates in one sitemap document and recurses into nested
// sitemaps. It returns false once the consumer stops or a fatal error was yielded.
func (s *Scraper) walkSitemap(
	ctx context.Context,
	sitemapURL string,
	body []byte,
	root bool,
	visited map[string]struct{},
	yield func(domain.Debate, error) bool,
) bool {
	for entry, err := range sitemaps.Entries(body) {
		if err != nil {
			if root {
				yield(domain.Debate{}, err)
				return false
			}
			s.log.ErrorObj("nested sitemap decode failed", "sitemap", map[string]any{
				"url":   sitemapURL,
				"error": err.Error(),
			})
			return true
		}

		switch entry.Kind {
		case sitemaps.KindSitemap:
			if entry.Loc == "" {
				continue
			}
			if _, seen := visited[entry.Loc]; seen {
				continue
			}
			visited[entry.Loc] = struct{}{}

			s.log.DebugObj("following nested sitemap", "sitemap", map[string]any{"url": entry.Loc})
			nested, err := s.fetchSitemap(ctx, entry.Loc)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					yield(domain.Debate{}, ctxErr)
					return false
				}
				s.log.ErrorObj("nested sitemap fetch failed", "sitemap", map[string]any{
					"url":   entry.Loc,
					"error": err.Error(),
				})
				continue
			}
			if !s.walkSitemap(ctx, entry.Loc, nested, false, visited, yield) {
				return false
			}

		case sitemaps.KindURL:
			if entry.Loc == "" || !sitemaps.IsDebate(entry.Loc) {
				continue
			}
			debate := domain.Debate{URL: entry.Loc, LastModified: s.lastModified(entry)}
			if !yield(debate, nil) {
				return false
			}
		}
	}
	return true
}

// lastModified parses the entry's lastmod, falling back to the epoch.
func (s *Scraper) lastModified(entry sitemaps.Entry) time.Time {
	if entry.LastMod == "" {
		return domain.Epoch
	}
	t, err := iso8601.Parse(entry.LastMod)
	if err != nil {
		s.log.WarnObj("failed parsing lastmod", "sitemap", map[string]any{
			"url":     entry.Loc,
			"lastmod": entry.LastMod,
			"error":   err.Error(),
		})
		return domain.Epoch
	}
	return t
}

// Podcasts fetches the debate page and returns its podcasts in document order.
func (s *Scraper) Podcasts(ctx context.Context, debate domain.Debate) (iter.Seq[domain.Podcast], error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	s.log.InfoObj("scraping debate page", "debate", map[string]any{"url": debate.URL})
	body, err := s.fetchPage(ctx, debate.URL)
	s.pagesFetched++
	if err != nil {
		return nil, fmt.Errorf("fetch debate page: %w", err)
	}

	podcasts, err := ParsePodcasts(debate.URL, body, s.log)
	if err != nil {
		return nil, fmt.Errorf("parse debate page: %w", err)
	}
	return slices.Values(podcasts), nil
}

// wait sleeps for the configured delay before every page fetch but the first.
func (s *Scraper) wait(ctx context.Context) error {
	if s.delay <= 0 || s.pagesFetched == 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
