// Package filters holds the debate and podcast selection strategies.
package filters

import (
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/Adda-Baaj/iq2us-rss/internal/domain"
)

// Mode selects which audio variant of a debate ends up in the feed.
type Mode string

const (
	ModeAll      Mode = "all"
	ModeEdited   Mode = "edited"
	ModeUnedited Mode = "unedited"
)

// Modes lists the accepted modes.
var Modes = []Mode{ModeAll, ModeEdited, ModeUnedited}

// ParseMode validates a mode name.
func ParseMode(raw string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(raw)))
	switch m {
	case ModeAll, ModeEdited, ModeUnedited:
		return m, nil
	case "":
		return ModeUnedited, nil
	default:
		return "", fmt.Errorf("unknown audio mode %q (expected all, edited or unedited)", raw)
	}
}

// TitleSuffix is appended to the default feed title for the mode.
func (m Mode) TitleSuffix() string {
	switch m {
	case ModeAll:
		return " [all-debates]"
	case ModeEdited:
		return " [edited]"
	default:
		return " [unedited]"
	}
}

// DebateFilter narrows the debates discovered in the sitemap.
type DebateFilter interface {
	Filter(debates iter.Seq[domain.Debate]) iter.Seq[domain.Debate]
}

// PodcastFilter selects the podcasts of one debate.
type PodcastFilter interface {
	Filter(debate domain.Debate, podcasts iter.Seq[domain.Podcast]) iter.Seq[domain.Podcast]
}

// AllDebates passes every debate through.
type AllDebates struct{}

func (AllDebates) Filter(debates iter.Seq[domain.Debate]) iter.Seq[domain.Debate] {
	return debates
}

// SinceDebates drops debates last modified before Cutoff.
type SinceDebates struct {
	Cutoff time.Time
}

func (f SinceDebates) Filter(debates iter.Seq[domain.Debate]) iter.Seq[domain.Debate] {
	return func(yield func(domain.Debate) bool) {
		for d := range debates {
			if d.LastModified.Before(f.Cutoff) {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

// AllPodcasts passes every podcast that is not older than Cutoff.
// A zero Cutoff disables the age check.
type AllPodcasts struct {
	Cutoff time.Time
}

func (f AllPodcasts) Filter(_ domain.Debate, podcasts iter.Seq[domain.Podcast]) iter.Seq[domain.Podcast] {
	if f.Cutoff.IsZero() {
		return podcasts
	}
	return fresh(podcasts, f.Cutoff)
}

// Longest yields the single longest podcast of a debate, taken to be the unedited recording.
type Longest struct {
	Cutoff time.Time
}

func (f Longest) Filter(_ domain.Debate, podcasts iter.Seq[domain.Podcast]) iter.Seq[domain.Podcast] {
	return pick(fresh(podcasts, f.Cutoff), func(candidate, best domain.Podcast) bool {
		return candidate.Duration > best.Duration
	})
}

// Shortest yields the single shortest podcast of a debate, taken to be the edited recording.
type Shortest struct {
	Cutoff time.Time
}

func (f Shortest) Filter(_ domain.Debate, podcasts iter.Seq[domain.Podcast]) iter.Seq[domain.Podcast] {
	return pick(fresh(podcasts, f.Cutoff), func(candidate, best domain.Podcast) bool {
		return candidate.Duration < best.Duration
	})
}

// ForMode returns the filters for mode. A zero cutoff disables age filtering.
func ForMode(mode Mode, cutoff time.Time) (DebateFilter, PodcastFilter) {
	var debates DebateFilter = AllDebates{}
	if !cutoff.IsZero() {
		debates = SinceDebates{Cutoff: cutoff}
	}

	switch mode {
	case ModeAll:
		return debates, AllPodcasts{Cutoff: cutoff}
	case ModeEdited:
		return debates, Shortest{Cutoff: cutoff}
	default:
		return debates, Longest{Cutoff: cutoff}
	}
}

// Cutoff returns now minus days, or the zero time when days is not positive.
func Cutoff(now time.Time, days int) time.Time {
	if days <= 0 {
		return time.Time{}
	}
	return now.UTC().AddDate(0, 0, -days)
}

// fresh drops podcasts with a known publish date before cutoff.
func fresh(podcasts iter.Seq[domain.Podcast], cutoff time.Time) iter.Seq[domain.Podcast] {
	return func(yield func(domain.Podcast) bool) {
		for p := range podcasts {
			if !cutoff.IsZero() && p.HasPublishedAt() && p.PublishedAt.Before(cutoff) {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

// pick yields at most one podcast. A candidate replaces the current pick only
// when better reports true, so the first of equal podcasts wins.
func pick(podcasts iter.Seq[domain.Podcast], better func(candidate, best domain.Podcast) bool) iter.Seq[domain.Podcast] {
	return func(yield func(domain.Podcast) bool) {
		var (
			best  domain.Podcast
			found bool
		)
		for p := range podcasts {
			if !found || better(p, best) {
				best, found = p, true
			}
		}
		if found {
			yield(best)
		}
	}
}
