package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/Adda-Baaj/iq2us-rss/pkg/httpclient"
)

// ErrSitemapTooLarge is returned for sitemaps above the size limit.
var ErrSitemapTooLarge = errors.New("sitemap exceeds size limit")

// fetchSitemap returns the full sitemap at target. A cut sitemap cannot be
// decoded, so oversized documents fail instead of being truncated.
func (s *Scraper) fetchSitemap(ctx context.Context, target string) ([]byte, error) {
	body, err := s.fetch(ctx, target)
	if err != nil {
		return nil, err
	}
	if len(body) > s.sitemapLimit {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrSitemapTooLarge, len(body), s.sitemapLimit)
	}
	return body, nil
}

// fetchPage returns the debate page at target, truncated to the page limit.
func (s *Scraper) fetchPage(ctx context.Context, target string) ([]byte, error) {
	body, err := s.fetch(ctx, target)
	if err != nil {
		return nil, err
	}
	if len(body) > s.pageLimit {
		s.log.InfoObj("response body truncated", "truncation", map[string]any{
			"url":      target,
			"original": len(body),
			"kept":     s.pageLimit,
		})
		body = body[:s.pageLimit]
	}
	return body, nil
}

// fetch returns the body at target. file:// URLs and bare paths are read from disk,
// everything else goes through the HTTP client.
func (s *Scraper) fetch(ctx context.Context, target string) ([]byte, error) {
	if path, ok := localPath(target); ok {
		s.log.DebugObj("reading local file", "fetch", map[string]any{"path": path})
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		return data, nil
	}

	s.log.DebugObj("retrieving url", "fetch", map[string]any{"url": target})
	resp, err := s.client.Get(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("http fetch: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, httpclient.StatusError(resp)
	}
	return resp.Body(), nil
}

// localPath reports whether target names a file on disk and returns its path.
func localPath(target string) (string, bool) {
	u, err := url.Parse(target)
	if err != nil {
		return "", false
	}
	switch u.Scheme {
	case "file":
		if u.Path == "" {
			return u.Opaque, u.Opaque != ""
		}
		return u.Path, true
	case "":
		return target, target != ""
	default:
		return "", false
	}
}
