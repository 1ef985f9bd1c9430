package crawler

import (
	"errors"
	"testing"
	"time"
)

const debatePage = `<!DOCTYPE html>
<html>
<head>
  <meta property="article:published_time" content="2016-08-01T12:00:00-04:00">
</head>
<body>
  <div class="details">
    <p>Should we abolish the death penalty?</p>
    <!-- editorial note -->
    <script>var ignored = true;</script>
    <p>Four experts &amp; one motion.</p>
  </div>
  <div class="details"><p>second block</p></div>
  <div id="debate-podcasts">
    <div class="wrapper">
      <div class="node node-podcast">
        <div class="panoply-podcast">
          <div class="bottom">
            <audio data-duration="100" data-title="Edited cut" controls>
              <source src="https://cdn.example.com/edited.mp3" type="audio/mpeg">
            </audio>
          </div>
        </div>
      </div>
      <div class="node node-podcast">
        <div class="panoply-podcast">
          <div class="bottom">
            <audio data-duration="200" data-title="Unedited &quot;full&quot;" controls>
              <source src="https://cdn.example.com/full.mp3?a=1&amp;b=2" type="audio/mpeg">
            </audio>
          </div>
        </div>
      </div>
      <div class="panoply-podcast">
        <audio data-duration="50" data-title="No source"></audio>
      </div>
    </div>
  </div>
  <audio data-duration="999" data-title="Outside podcasts block">
    <source src="https://cdn.example.com/outside.mp3" type="audio/mpeg">
  </audio>
</body>
</html>`

func TestParsePodcasts(t *testing.T) {
	podcasts, err := ParsePodcasts("https://example.com/debates/x", []byte(debatePage), nil)
	if err != nil {
		t.Fatalf("ParsePodcasts failed: %v", err)
	}
	if len(podcasts) != 2 {
		t.Fatalf("expected 2 podcasts, got %d: %+v", len(podcasts), podcasts)
	}

	wantDesc := "Should we abolish the death penalty? Four experts & one motion."
	wantPub := time.Date(2016, 8, 1, 16, 0, 0, 0, time.UTC)
	for _, p := range podcasts {
		if p.Description != wantDesc {
			t.Errorf("description = %q, want %q", p.Description, wantDesc)
		}
		if !p.PublishedAt.Equal(wantPub) {
			t.Errorf("published = %v, want %v", p.PublishedAt, wantPub)
		}
		if p.MIMEType != "audio/mpeg" {
			t.Errorf("unexpected mime type %q", p.MIMEType)
		}
	}

	if podcasts[0].Title != "Edited cut" || podcasts[0].Duration != 100 || podcasts[0].DurationText != "100" {
		t.Errorf("unexpected first podcast: %+v", podcasts[0])
	}
	if podcasts[1].Title != `Unedited "full"` || podcasts[1].Duration != 200 {
		t.Errorf("unexpected second podcast: %+v", podcasts[1])
	}
	if podcasts[1].URL != "https://cdn.example.com/full.mp3?a=1&b=2" {
		t.Errorf("unexpected url %q", podcasts[1].URL)
	}
}

func TestParsePodcastsMissingDescription(t *testing.T) {
	_, err := ParsePodcasts("https://example.com/debates/x", []byte(`<html><body><div id="debate-podcasts"></div></body></html>`), nil)
	if !errors.Is(err, ErrMissingDescription) {
		t.Fatalf("expected ErrMissingDescription, got %v", err)
	}
}

func TestParsePodcastsPublishedTime(t *testing.T) {
	tests := []struct {
		name string
		meta string
	}{
		{"absent", ""},
		{"no content", `<meta property="article:published_time">`},
		{"unparseable", `<meta property="article:published_time" content="last tuesday">`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := `<html><head>` + tt.meta + `</head><body><div class="details">d</div>
<div id="debate-podcasts"><div class="panoply-podcast"><audio data-duration="abc" data-title="t"><source src="https://a/b.mp3" type="audio/mpeg"></audio></div></div></body></html>`
			podcasts, err := ParsePodcasts("https://example.com/debates/y", []byte(page), nil)
			if err != nil {
				t.Fatal(err)
			}
			if len(podcasts) != 1 {
				t.Fatalf("expected 1 podcast, got %d", len(podcasts))
			}
			if podcasts[0].HasPublishedAt() {
				t.Errorf("expected absent publish date, got %v", podcasts[0].PublishedAt)
			}
			if podcasts[0].Duration != 0 || podcasts[0].DurationText != "abc" {
				t.Errorf("non-numeric duration should parse as 0 and keep its text: %+v", podcasts[0])
			}
		})
	}
}

func TestParsePodcastsEmptyDescription(t *testing.T) {
	page := `<div class="details">   </div><div id="debate-podcasts"><div class="panoply-podcast"><audio data-duration="1" data-title="t"><source src="https://a/b.mp3" type="audio/mpeg"></audio></div></div>`
	podcasts, err := ParsePodcasts("", []byte(page), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(podcasts) != 1 || podcasts[0].Description != "" {
		t.Fatalf("expected one podcast with an empty description, got %+v", podcasts)
	}
}
