package feed

import (
	"context"
	"strconv"
	"strings"

	"github.com/Adda-Baaj/iq2us-rss/internal/logger"
	"github.com/Adda-Baaj/iq2us-rss/pkg/httpclient"
)

// LengthResolver reports the byte size of an enclosure. Failures resolve to 0.
type LengthResolver interface {
	ContentLength(ctx context.Context, url string) int64
}

// LengthCache remembers resolved lengths across runs.
type LengthCache interface {
	Length(url string) (int64, bool, error)
	PutLength(url string, n int64) error
}

// NopResolver never issues a request and always reports 0.
type NopResolver struct{}

func (NopResolver) ContentLength(context.Context, string) int64 { return 0 }

// HeadResolver reads Content-Length from a HEAD response, following redirects.
type HeadResolver struct {
	client httpclient.Client
	cache  LengthCache
	log    logger.Logger
}

// NewHeadResolver builds a HeadResolver. cache may be nil.
func NewHeadResolver(client httpclient.Client, cache LengthCache, log logger.Logger) *HeadResolver {
	if client == nil {
		client = httpclient.NewRestyClient(httpclient.DefaultTimeout)
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &HeadResolver{client: client, cache: cache, log: log}
}

func (r *HeadResolver) ContentLength(ctx context.Context, url string) int64 {
	if r.cache != nil {
		n, ok, err := r.cache.Length(url)
		if err != nil {
			r.log.WarnObj("content length cache read failed", "enclosure", map[string]any{"url": url, "error": err.Error()})
		} else if ok {
			return n
		}
	}

	r.log.InfoObj("retrieving content length of podcast stream", "enclosure", map[string]any{"url": url})
	resp, err := r.client.Head(ctx, url, nil)
	if err != nil {
		r.log.ErrorObj("failed retrieving content length", "enclosure", map[string]any{"url": url, "error": err.Error()})
		return 0
	}
	if !resp.IsSuccess() {
		r.log.ErrorObj("failed retrieving content length", "enclosure", map[string]any{
			"url":   url,
			"error": httpclient.StatusError(resp).Error(),
		})
		return 0
	}

	raw := strings.TrimSpace(resp.Header().Get("Content-Length"))
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		r.log.WarnObj("invalid content length", "enclosure", map[string]any{"url": url, "value": raw})
		return 0
	}

	if r.cache != nil && n > 0 {
		if err := r.cache.PutLength(url, n); err != nil {
			r.log.WarnObj("content length cache write failed", "enclosure", map[string]any{"url": url, "error": err.Error()})
		}
	}
	return n
}
