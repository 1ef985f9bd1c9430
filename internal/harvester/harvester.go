// Package harvester drives the sitemap → debate page → podcast pipeline.
package harvester

import (
	"context"
	"iter"

	"github.com/Adda-Baaj/iq2us-rss/internal/domain"
	"github.com/Adda-Baaj/iq2us-rss/internal/filters"
	"github.com/Adda-Baaj/iq2us-rss/internal/logger"
)

// Source discovers debates and extracts their podcasts.
type Source interface {
	Debates(ctx context.Context, sitemapURL string) iter.Seq2[domain.Debate, error]
	Podcasts(ctx context.Context, debate domain.Debate) (iter.Seq[domain.Podcast], error)
}

// Harvester pairs every selected podcast with the debate it came from.
type Harvester struct {
	source   Source
	debates  filters.DebateFilter
	podcasts filters.PodcastFilter
	log      logger.Logger
}

// New builds a Harvester. Nil filters pass everything through.
func New(source Source, debates filters.DebateFilter, podcasts filters.PodcastFilter, log logger.Logger) *Harvester {
	if debates == nil {
		debates = filters.AllDebates{}
	}
	if podcasts == nil {
		podcasts = filters.AllPodcasts{}
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Harvester{source: source, debates: debates, podcasts: podcasts, log: log}
}

// Episodes lazily yields (debate, podcast) pairs. A failing debate page is logged
// and skipped. A sitemap failure or a cancelled context is yielded as the final
// error. Debates the consumer never reaches are never fetched.
func (h *Harvester) Episodes(ctx context.Context, sitemapURL string) iter.Seq2[domain.Episode, error] {
	return func(yield func(domain.Episode, error) bool) {
		var fatal error

		discovered := func(yieldDebate func(domain.Debate) bool) {
			for debate, err := range h.source.Debates(ctx, sitemapURL) {
				if err != nil {
					fatal = err
					return
				}
				if !yieldDebate(debate) {
					return
				}
			}
		}

		for debate := range h.debates.Filter(discovered) {
			if err := ctx.Err(); err != nil {
				fatal = err
				break
			}

			h.log.InfoObj("found debate", "debate", map[string]any{
				"url":           debate.URL,
				"last_modified": debate.LastModified,
			})

			podcasts, err := h.source.Podcasts(ctx, debate)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					fatal = ctxErr
					break
				}
				h.log.ErrorObj("failed retrieving debate page", "debate", map[string]any{
					"url":   debate.URL,
					"error": err.Error(),
				})
				continue
			}

			for podcast := range h.podcasts.Filter(debate, podcasts) {
				h.log.InfoObj("found podcast", "podcast", map[string]any{
					"debate":   debate.URL,
					"title":    podcast.Title,
					"url":      podcast.URL,
					"duration": podcast.Duration,
				})
				if !yield(domain.Episode{Debate: debate, Podcast: podcast}, nil) {
					return
				}
			}
		}

		if fatal != nil {
			yield(domain.Episode{}, fatal)
		}
	}
}

// Collect drains seq, stopping at the first error.
func Collect(seq iter.Seq2[domain.Episode, error]) ([]domain.Episode, error) {
	var out []domain.Episode
	for ep, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, ep)
	}
	return out, nil
}
