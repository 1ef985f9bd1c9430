// Package app wires the harvester, the feed renderer, the state store and the
// publishers into one run.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Adda-Baaj/iq2us-rss/internal/config"
	"github.com/Adda-Baaj/iq2us-rss/internal/crawler"
	"github.com/Adda-Baaj/iq2us-rss/internal/domain"
	"github.com/Adda-Baaj/iq2us-rss/internal/feed"
	"github.com/Adda-Baaj/iq2us-rss/internal/filters"
	"github.com/Adda-Baaj/iq2us-rss/internal/harvester"
	"github.com/Adda-Baaj/iq2us-rss/internal/logger"
	"github.com/Adda-Baaj/iq2us-rss/internal/store"
	"github.com/Adda-Baaj/iq2us-rss/pkg/httpclient"
	"github.com/Adda-Baaj/iq2us-rss/pkg/publishers"
)

// App runs one harvest with a fixed configuration.
type App struct {
	cfg    config.Config
	log    logger.Logger
	stdout io.Writer
	now    func() time.Time

	registry publishers.Registry
}

// Option customises an App.
type Option func(*App)

// WithStdout sets where the feed goes when no output file is configured.
func WithStdout(w io.Writer) Option {
	return func(a *App) { a.stdout = w }
}

// WithClock overrides the time source used for cutoffs and timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithPublisherRegistry overrides the publisher builders.
func WithPublisherRegistry(reg publishers.Registry) Option {
	return func(a *App) { a.registry = reg }
}

// New builds an App for cfg.
func New(cfg config.Config, log logger.Logger, opts ...Option) *App {
	if log == nil {
		log = logger.NopLogger{}
	}
	a := &App{
		cfg:      cfg,
		log:      log,
		stdout:   os.Stdout,
		now:      time.Now,
		registry: publishers.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run harvests the sitemap, writes the feed and announces new episodes.
// Only failures that leave no feed written are returned.
func (a *App) Run(ctx context.Context) error {
	var pubCfgs []publishers.PublisherConfig
	if a.cfg.Publishers != "" {
		reg, err := publishers.LoadRegistry(a.cfg.Publishers)
		if err != nil {
			return fmt.Errorf("load publishers: %w", err)
		}
		pubCfgs = reg.Enabled()
	}

	var st *store.Store
	if a.cfg.StateDB != "" {
		s, err := store.Open(a.cfg.StateDB)
		if err != nil {
			return err
		}
		defer func() {
			if err := s.Close(); err != nil {
				a.log.WarnObj("closing state db failed", "store", map[string]any{"path": a.cfg.StateDB, "error": err.Error()})
			}
		}()
		st = s
	}

	client := httpclient.New(httpclient.Options{
		Timeout:    a.cfg.Timeout,
		RetryCount: a.cfg.Retries,
		UserAgent:  a.cfg.UserAgent,
		Logger:     a.log,
	})

	episodes, err := a.harvest(ctx, client)
	if err != nil {
		return err
	}

	lengths := &recordingResolver{next: a.resolver(client, st), seen: map[string]int64{}}
	writer := &feed.Writer{Now: a.now, Lengths: lengths}

	var buf bytes.Buffer
	if err := writer.Write(ctx, &buf, a.cfg.Channel(), episodes); err != nil {
		return fmt.Errorf("render feed: %w", err)
	}
	if err := a.output(buf.Bytes()); err != nil {
		return err
	}

	a.log.InfoObj("feed written", "summary", map[string]any{
		"episodes": len(episodes),
		"audio":    string(a.cfg.Audio),
		"output":   a.outputName(),
	})

	fresh := a.newEpisodes(episodes, st)
	if len(pubCfgs) > 0 && len(fresh) > 0 {
		a.publish(ctx, pubCfgs, fresh, lengths)
	}
	return nil
}

func (a *App) harvest(ctx context.Context, client httpclient.Client) ([]domain.Episode, error) {
	scraper := crawler.NewScraper(client, a.log, crawler.WithRequestDelay(a.cfg.RequestDelay))
	debates, podcasts := filters.ForMode(a.cfg.Audio, filters.Cutoff(a.now(), a.cfg.SinceDays))

	h := harvester.New(scraper, debates, podcasts, a.log)
	episodes, err := harvester.Collect(h.Episodes(ctx, a.cfg.URL))
	if err != nil {
		return nil, err
	}
	if a.cfg.Sort {
		harvester.SortEpisodes(episodes)
	}
	return episodes, nil
}

func (a *App) resolver(client httpclient.Client, st *store.Store) feed.LengthResolver {
	if !a.cfg.ContentLength {
		return feed.NopResolver{}
	}
	var cache feed.LengthCache
	if st != nil {
		cache = st
	}
	return feed.NewHeadResolver(client, cache, a.log)
}

// newEpisodes returns the episodes to announce. With a state store only the
// ones never marked seen are returned.
func (a *App) newEpisodes(episodes []domain.Episode, st *store.Store) []domain.Episode {
	if st == nil {
		return episodes
	}
	var fresh []domain.Episode
	for _, ep := range episodes {
		isNew, err := st.MarkSeen(ep.Podcast.URL)
		if err != nil {
			a.log.WarnObj("recording episode failed", "store", map[string]any{"url": ep.Podcast.URL, "error": err.Error()})
			continue
		}
		if isNew {
			fresh = append(fresh, ep)
		}
	}
	return fresh
}

func (a *App) publish(ctx context.Context, cfgs []publishers.PublisherConfig, episodes []domain.Episode, lengths *recordingResolver) {
	pubs, err := publishers.BuildAll(ctx, a.registry, cfgs, a.log)
	if err != nil {
		a.log.ErrorObj("building publishers failed", "publisher_error", map[string]any{"error": err.Error()})
		return
	}
	defer publishers.CloseAll(pubs, a.log)

	now := a.now()
	title := a.cfg.FeedTitle()
	events := make([]publishers.Event, 0, len(episodes))
	for _, ep := range episodes {
		events = append(events, publishers.NewEpisodeEvent(title, ep, lengths.seen[ep.Podcast.URL], now))
	}

	if err := publishers.PublishAll(ctx, pubs, events, a.log); err != nil {
		a.log.WarnObj("some events were not delivered", "publisher_summary", map[string]any{"error": err.Error()})
	}
}

func (a *App) outputName() string {
	if a.cfg.Output == "" {
		return "stdout"
	}
	return a.cfg.Output
}

func (a *App) output(doc []byte) error {
	if a.cfg.Output == "" {
		if _, err := a.stdout.Write(doc); err != nil {
			return fmt.Errorf("write feed to stdout: %w", err)
		}
		return nil
	}
	return writeFileAtomic(a.cfg.Output, doc)
}

// writeFileAtomic replaces path with data through a synced temp file in the
// same directory, so readers never observe a partial feed.
func writeFileAtomic(path string, data []byte) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, os.Remove(tmp.Name()))
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return errors.Join(fmt.Errorf("write temp output: %w", err), tmp.Close())
	}
	if err := tmp.Sync(); err != nil {
		return errors.Join(fmt.Errorf("sync temp output: %w", err), tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp output: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace output: %w", err)
	}
	return nil
}

// recordingResolver remembers resolved lengths for the publisher events.
type recordingResolver struct {
	next feed.LengthResolver
	seen map[string]int64
}

func (r *recordingResolver) ContentLength(ctx context.Context, url string) int64 {
	if n, ok := r.seen[url]; ok {
		return n
	}
	n := r.next.ContentLength(ctx, url)
	r.seen[url] = n
	return n
}
