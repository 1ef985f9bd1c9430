package sitemaps

import (
	"strings"
	"testing"
)

const urlset = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url>
    <loc> https://example.com/debates/x </loc>
    <lastmod>2020-01-01T00:00Z</lastmod>
  </url>
  <url>
    <loc>https://example.com/other/y</loc>
  </url>
  <url>
    <lastmod>2020-01-02</lastmod>
  </url>
</urlset>`

func collect(t *testing.T, data string) []Entry {
	t.Helper()
	var out []Entry
	for e, err := range Entries([]byte(data)) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out = append(out, e)
	}
	return out
}

func TestEntriesURLSet(t *testing.T) {
	got := collect(t, urlset)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d: %+v", len(got), got)
	}

	want := Entry{Kind: KindURL, Loc: "https://example.com/debates/x", LastMod: "2020-01-01T00:00Z"}
	if got[0] != want {
		t.Errorf("first entry = %+v, want %+v", got[0], want)
	}
	if got[1].Loc != "https://example.com/other/y" || got[1].LastMod != "" {
		t.Errorf("unexpected second entry: %+v", got[1])
	}
	if got[2].Loc != "" {
		t.Errorf("expected entry without loc to keep an empty Loc, got %q", got[2].Loc)
	}
}

func TestEntriesSitemapIndex(t *testing.T) {
	index := `<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://example.com/sitemap-1.xml</loc></sitemap>
  <sitemap><loc>https://example.com/sitemap-2.xml</loc><lastmod>2021-01-01</lastmod></sitemap>
</sitemapindex>`

	got := collect(t, index)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	for _, e := range got {
		if e.Kind != KindSitemap {
			t.Errorf("expected sitemap kind, got %s", e.Kind)
		}
	}
	if got[1].Loc != "https://example.com/sitemap-2.xml" {
		t.Errorf("unexpected loc %q", got[1].Loc)
	}
}

func TestEntriesStopsEarly(t *testing.T) {
	count := 0
	for range Entries([]byte(urlset)) {
		count++
		break
	}
	if count != 1 {
		t.Fatalf("expected consumer to stop after one entry, got %d", count)
	}
}

func TestEntriesMalformed(t *testing.T) {
	var errs int
	for _, err := range Entries([]byte(`<urlset><url><loc>https://example.com/debates/a</loc></url><url>`)) {
		if err != nil {
			errs++
		}
	}
	if errs != 1 {
		t.Fatalf("expected exactly one error, got %d", errs)
	}
}

func TestEntriesToleratesStrayAmpersand(t *testing.T) {
	entries := collect(t, `<urlset>
  <url><loc>https://example.com/debates/a?x=1&b=2</loc></url>
  <url><loc>https://example.com/debates/b&nbsp;</loc><lastmod>2020-01-01</lastmod></url>
  <url><loc>https://example.com/debates/c</loc></url>
</urlset>`)

	if len(entries) != 3 {
		t.Fatalf("expected every entry to survive, got %+v", entries)
	}
	if !strings.HasPrefix(entries[0].Loc, "https://example.com/debates/a?x=1&b") {
		t.Errorf("unexpected first loc %q", entries[0].Loc)
	}
	if entries[1].Loc != "https://example.com/debates/b" || entries[1].LastMod != "2020-01-01" {
		t.Errorf("unexpected second entry %+v", entries[1])
	}
	if entries[2].Loc != "https://example.com/debates/c" {
		t.Errorf("unexpected third loc %q", entries[2].Loc)
	}
}

func TestIsDebate(t *testing.T) {
	tests := []struct {
		loc  string
		want bool
	}{
		{"https://example.com/debates/x", true},
		{"https://example.com/debates/", true},
		{"https://example.com/debates", false},
		{"https://example.com/other/debates/x", false},
		{"https://example.com/other/y?next=/debates/x", false},
		{"/debates/local", true},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsDebate(tt.loc); got != tt.want {
			t.Errorf("IsDebate(%q) = %v, want %v", tt.loc, got, tt.want)
		}
	}
}
