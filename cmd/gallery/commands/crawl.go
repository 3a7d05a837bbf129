package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/agiangrant/gallery"
	"github.com/agiangrant/gallery/scroll"
)

// pollInterval is how often the crawl driver samples the loader.
const pollInterval = 20 * time.Millisecond

// atEnd is a viewport sample that is always within the threshold.
var atEnd = scroll.Metrics{ViewportHeight: 1, DocumentHeight: 1}

// Crawl implements the 'gallery crawl' command. It runs the gallery headless
// and keeps scrolling to the end until the server runs out of pages.
func Crawl(args []string) error {
	fs := flag.NewFlagSet("crawl", flag.ExitOnError)
	configFile := fs.String("config", gallery.DefaultConfigFile, "Config file (TOML or YAML)")
	url := fs.String("url", "", "Page URL template containing {page} (overrides config)")
	maxPages := fs.Int("max-pages", 0, "Stop after this many pages (0 = no limit)")
	maxFailures := fs.Int("max-failures", 5, "Give up after this many failed fetches in a row")
	fs.Parse(args)

	config, err := gallery.LoadConfig(*configFile)
	if err != nil {
		return err
	}
	if *url != "" {
		config.Scroll.URLTemplate = *url
	}
	if config.Scroll.URLTemplate == "" {
		return fmt.Errorf("no page URL template (set scroll.url_template or pass -url)")
	}
	config.Scroll.Enabled = true
	if err := config.Validate(); err != nil {
		return err
	}

	log, err := gallery.NewLogger(config.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fetcher, err := scroll.NewHTTPFetcher(config.Scroll.URLTemplate,
		scroll.WithMarkupOptions(config.MarkupOptions()),
		scroll.WithFetchLogger(log))
	if err != nil {
		return err
	}
	first, err := fetcher.FetchPage(ctx, 1)
	if err != nil {
		return fmt.Errorf("failed to fetch first page: %w", err)
	}

	g, err := gallery.New(first, config,
		gallery.WithFetcher(fetcher),
		gallery.WithLogger(log))
	if err != nil {
		return err
	}

	start := time.Now()
	if err := g.Run(ctx, crawlDriver(g, *maxPages, *maxFailures)); err != nil {
		return err
	}

	s := g.Stats()
	log.Info("crawl finished",
		zap.Int("items", s.Items),
		zap.Int("pages", s.Pages),
		zap.Int("fetches", s.Fetches),
		zap.Int("failures", s.FetchFailures),
		zap.Duration("elapsed", time.Since(start)))
	fmt.Printf("%d items across %d pages (%d fetches, %d failed)\n", s.Items, s.Pages, s.Fetches, s.FetchFailures)
	if s.HasMore {
		fmt.Println("stopped before the last page")
	}
	return nil
}

// crawlDriver scrolls to the end whenever the loader is idle and returns
// once pages run out or maxPages is reached. It fails once maxFailures
// fetches in a row have failed.
func crawlDriver(g *gallery.Gallery, maxPages, maxFailures int) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		lastPage, failuresAtPage := 0, 0
		for {
			state, stats, ok := loaderSnapshot(ctx, g)
			if !ok {
				return nil
			}
			if !state.HasMore || (maxPages > 0 && state.Page >= maxPages) {
				return nil
			}
			if state.Page != lastPage {
				lastPage, failuresAtPage = state.Page, stats.Failures
			}
			if failed := stats.Failures - failuresAtPage; maxFailures > 0 && failed >= maxFailures {
				return fmt.Errorf("giving up on page %d after %d failed fetches in a row", state.Page+1, failed)
			}
			if !state.Loading {
				g.Post(gallery.Scrolled(atEnd))
			}

			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	}
}

// loaderSnapshot reads the loader state and counters on the UI loop. It
// reports false once ctx is done.
func loaderSnapshot(ctx context.Context, g *gallery.Gallery) (scroll.State, scroll.Stats, bool) {
	type snapshot struct {
		state scroll.State
		stats scroll.Stats
	}
	ch := make(chan snapshot, 1)
	g.Loop().Post(func() {
		ld := g.Loader()
		ch <- snapshot{state: ld.State(), stats: ld.Stats()}
	})
	select {
	case s := <-ch:
		return s.state, s.stats, true
	case <-ctx.Done():
		return scroll.State{}, scroll.Stats{}, false
	}
}
