package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adda-Baaj/iq2us-rss/pkg/httpclient"
)

func testClient() httpclient.Client {
	return httpclient.New(httpclient.Options{
		Timeout:       2 * time.Second,
		RetryCount:    0,
		RetryWaitTime: time.Millisecond,
	})
}

type memoryCache map[string]int64

func (m memoryCache) Length(url string) (int64, bool, error) {
	n, ok := m[url]
	return n, ok, nil
}

func (m memoryCache) PutLength(url string, n int64) error {
	m[url] = n
	return nil
}

func TestHeadResolverFollowsRedirects(t *testing.T) {
	var methods atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("/audio.mp3", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/cdn/audio.mp3", http.StatusFound)
	})
	mux.HandleFunc("/cdn/audio.mp3", func(w http.ResponseWriter, r *http.Request) {
		methods.Store(r.Method)
		w.Header().Set("Content-Length", "48213")
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	r := NewHeadResolver(testClient(), nil, nil)
	if got := r.ContentLength(context.Background(), server.URL+"/audio.mp3"); got != 48213 {
		t.Fatalf("expected 48213, got %d", got)
	}
	if m, _ := methods.Load().(string); m != http.MethodHead {
		t.Errorf("expected HEAD on redirect target, got %q", m)
	}
}

func TestHeadResolverDegradesToZero(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/no-length", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/forbidden", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	r := NewHeadResolver(testClient(), nil, nil)
	for _, path := range []string{"/no-length", "/forbidden"} {
		if got := r.ContentLength(context.Background(), server.URL+path); got != 0 {
			t.Errorf("%s: expected 0, got %d", path, got)
		}
	}

	server.Close()
	if got := r.ContentLength(context.Background(), server.URL+"/no-length"); got != 0 {
		t.Errorf("expected 0 for a transport failure, got %d", got)
	}
}

func TestHeadResolverUsesCache(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Length", "77")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cache := memoryCache{}
	r := NewHeadResolver(testClient(), cache, nil)
	url := server.URL + "/a.mp3"

	for range 3 {
		if got := r.ContentLength(context.Background(), url); got != 77 {
			t.Fatalf("expected 77, got %d", got)
		}
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("expected one HEAD request, got %d", got)
	}
	if cache[url] != 77 {
		t.Errorf("expected length to be cached, got %v", cache)
	}
}

func TestNopResolver(t *testing.T) {
	if got := (NopResolver{}).ContentLength(context.Background(), "https://example.com/a.mp3"); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}
