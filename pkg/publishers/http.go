package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Adda-Baaj/iq2us-rss/pkg/httpclient"
)

const httpPublisherRetries = 2

// httpRequester is the part of the HTTP client the webhook publisher needs.
type httpRequester interface {
	Execute(ctx context.Context, method, url string, headers map[string]string, body []byte) (*resty.Response, error)
}

// httpPublisher posts events as JSON to a webhook.
type httpPublisher struct {
	id      string
	typ     string
	url     string
	method  string
	headers map[string]string
	client  httpRequester
	log     Logger
}

// newHTTPPublisher creates a webhook publisher from cfg.
func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}
	log = ensureLogger(log)

	client := httpclient.New(httpclient.Options{
		Timeout:    time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
		RetryCount: httpPublisherRetries,
		Logger:     log,
	})

	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range cfg.HTTP.Headers {
		headers[k] = v
	}

	return &httpPublisher{
		id:      cfg.ID,
		typ:     cfg.Type,
		url:     cfg.HTTP.URL,
		method:  cfg.HTTP.Method,
		headers: headers,
		client:  client,
		log:     log,
	}, nil
}

func (p *httpPublisher) ID() string   { return p.id }
func (p *httpPublisher) Type() string { return p.typ }
func (p *httpPublisher) Close() error { return nil }

// Publish sends the event and treats any non-2xx response as a failure.
func (p *httpPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	resp, err := p.client.Execute(ctx, p.method, p.url, p.headers, payload)
	if err != nil {
		return fmt.Errorf("http publisher %s request: %w", p.id, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("http publisher %s: %w", p.id, httpclient.StatusError(resp))
	}

	p.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": p.id,
		"event_id":     evt.ID,
		"status":       resp.StatusCode(),
	})
	return nil
}
