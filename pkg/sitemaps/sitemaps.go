// Package sitemaps streams entries out of XML sitemaps and sitemap indexes.
package sitemaps

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/url"
	"strings"

	"golang.org/x/net/html/charset"
)

// DebatePathPrefix is the URL path prefix of debate pages.
const DebatePathPrefix = "/debates/"

// Kind tells a page entry apart from a nested sitemap reference.
type Kind int

const (
	KindURL Kind = iota
	KindSitemap
)

func (k Kind) String() string {
	switch k {
	case KindURL:
		return "url"
	case KindSitemap:
		return "sitemap"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Entry is one <url> or <sitemap> element. Loc and LastMod are whitespace-trimmed
// and empty when the child element is absent.
type Entry struct {
	Kind    Kind
	Loc     string
	LastMod string
}

type rawEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

// Entries decodes data lazily and yields entries in document order. Decoding is
// lenient: stray ampersands, HTML entities and unclosed tags are tolerated.
// A decode error is yielded once and ends the sequence.
func Entries(data []byte) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		dec := xml.NewDecoder(bytes.NewReader(data))
		dec.CharsetReader = charset.NewReaderLabel
		dec.Strict = false
		dec.AutoClose = xml.HTMLAutoClose
		dec.Entity = xml.HTMLEntity

		for {
			tok, err := dec.Token()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Entry{}, fmt.Errorf("decode sitemap: %w", err))
				return
			}

			start, ok := tok.(xml.StartElement)
			if !ok {
				continue
			}

			var kind Kind
			switch start.Name.Local {
			case "url":
				kind = KindURL
			case "sitemap":
				kind = KindSitemap
			default:
				continue
			}

			var raw rawEntry
			if err := dec.DecodeElement(&raw, &start); err != nil {
				yield(Entry{}, fmt.Errorf("decode sitemap %s entry: %w", kind, err))
				return
			}

			entry := Entry{
				Kind:    kind,
				Loc:     strings.TrimSpace(raw.Loc),
				LastMod: strings.TrimSpace(raw.LastMod),
			}
			if !yield(entry, nil) {
				return
			}
		}
	}
}

// IsDebate reports whether loc points at a debate page.
func IsDebate(loc string) bool {
	u, err := url.Parse(strings.TrimSpace(loc))
	if err != nil {
		return false
	}
	return strings.HasPrefix(u.Path, DebatePathPrefix)
}
