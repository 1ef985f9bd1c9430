package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultTimeout          = 15 * time.Second
	DefaultRetryCount       = 6
	DefaultRetryWaitTime    = 300 * time.Millisecond
	DefaultRetryMaxWaitTime = 10 * time.Second
	DefaultMaxRedirects     = 20
)

// ErrStatus is wrapped by errors describing a non-2xx response.
var ErrStatus = errors.New("unexpected status")

// retryStatuses are the transient server errors worth another attempt.
var retryStatuses = map[int]struct{}{
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusGatewayTimeout:      {},
}

// Client is the HTTP surface used by the crawler and the enclosure resolver.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (*resty.Response, error)
	Head(ctx context.Context, url string, headers map[string]string) (*resty.Response, error)
}

// Logger receives resty's internal diagnostics.
type Logger interface {
	DebugObj(msg, key string, obj map[string]any)
	WarnObj(msg, key string, obj map[string]any)
	ErrorObj(msg, key string, obj map[string]any)
}

// Options tunes the resty client.
type Options struct {
	// Timeout bounds connecting and waiting for response headers.
	Timeout          time.Duration
	RetryCount       int
	RetryWaitTime    time.Duration
	RetryMaxWaitTime time.Duration
	MaxRedirects     int
	UserAgent        string
	Logger           Logger
}

// DefaultOptions returns the options used by NewRestyClient.
func DefaultOptions() Options {
	return Options{
		Timeout:          DefaultTimeout,
		RetryCount:       DefaultRetryCount,
		RetryWaitTime:    DefaultRetryWaitTime,
		RetryMaxWaitTime: DefaultRetryMaxWaitTime,
		MaxRedirects:     DefaultMaxRedirects,
	}
}

// RestyClient implements Client on top of a single shared resty client.
type RestyClient struct {
	rc *resty.Client
}

// NewRestyClient builds a client with default retry settings and the given timeout.
func NewRestyClient(timeout time.Duration) *RestyClient {
	opts := DefaultOptions()
	opts.Timeout = timeout
	return New(opts)
}

// New builds a client from opts, filling zero values with defaults.
func New(opts Options) *RestyClient {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.RetryCount < 0 {
		opts.RetryCount = 0
	}
	if opts.RetryWaitTime <= 0 {
		opts.RetryWaitTime = def.RetryWaitTime
	}
	if opts.RetryMaxWaitTime < opts.RetryWaitTime {
		opts.RetryMaxWaitTime = max(def.RetryMaxWaitTime, opts.RetryWaitTime)
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = def.MaxRedirects
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   opts.Timeout,
		ResponseHeaderTimeout: opts.Timeout,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}

	rc := resty.New().
		SetTransport(transport).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryWaitTime).
		SetRetryMaxWaitTime(opts.RetryMaxWaitTime).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(opts.MaxRedirects)).
		AddRetryCondition(shouldRetry)

	if ua := strings.TrimSpace(opts.UserAgent); ua != "" {
		rc.SetHeader("User-Agent", ua)
	}
	if opts.Logger != nil {
		rc.SetLogger(restyLogger{log: opts.Logger})
	}

	return &RestyClient{rc: rc}
}

// shouldRetry retries transport failures and a fixed set of 5xx statuses.
func shouldRetry(resp *resty.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if resp == nil {
		return false
	}
	_, ok := retryStatuses[resp.StatusCode()]
	return ok
}

func (c *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (*resty.Response, error) {
	return c.request(ctx, headers).Get(url)
}

func (c *RestyClient) Head(ctx context.Context, url string, headers map[string]string) (*resty.Response, error) {
	return c.request(ctx, headers).Head(url)
}

// Execute sends body with an arbitrary method.
func (c *RestyClient) Execute(ctx context.Context, method, url string, headers map[string]string, body []byte) (*resty.Response, error) {
	req := c.request(ctx, headers)
	if body != nil {
		req.SetBody(body)
	}
	return req.Execute(method, url)
}

func (c *RestyClient) request(ctx context.Context, headers map[string]string) *resty.Request {
	if ctx == nil {
		ctx = context.Background()
	}
	req := c.rc.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	return req
}

// StatusError describes a non-2xx response, including a short body snippet.
func StatusError(resp *resty.Response) error {
	if resp == nil {
		return fmt.Errorf("%w: no response", ErrStatus)
	}
	return fmt.Errorf("%w %d body: %s", ErrStatus, resp.StatusCode(), ResponseSnippet(resp.Body()))
}

// ResponseSnippet returns a truncated snippet of the response body for logging.
func ResponseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// restyLogger routes resty's printf-style diagnostics through Logger.
type restyLogger struct {
	log Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.log.ErrorObj("http client error", "http_client", map[string]any{"detail": fmt.Sprintf(format, v...)})
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.log.WarnObj("http client warning", "http_client", map[string]any{"detail": fmt.Sprintf(format, v...)})
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.log.DebugObj("http client debug", "http_client", map[string]any{"detail": fmt.Sprintf(format, v...)})
}
