package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"time"

	"csgostash/scraper/internal/client"
	"csgostash/scraper/internal/config"
	"csgostash/scraper/internal/domain"
	"csgostash/scraper/internal/domain/task"
	"csgostash/scraper/internal/extractor"
	"csgostash/scraper/internal/queue"
	"csgostash/scraper/internal/sink"
	"csgostash/scraper/internal/state"

	"github.com/cenkalti/backoff/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Service drives the crawl: listing roots -> pagination -> item links ->
// extraction -> sink, one category at a time. Per-item failures are recorded
// in the report and never stop the crawl.
type Service struct {
	cfg          *config.Config
	fetcher      client.Fetcher
	sink         sink.Sink
	queue        queue.Queue        // optional
	stateManager state.StateManager // optional
	seen         *lru.Cache[string, struct{}]
}

func NewService(
	cfg *config.Config,
	fetcher client.Fetcher,
	sink sink.Sink,
	queue queue.Queue,
	stateManager state.StateManager,
) (*Service, error) {
	s := &Service{
		cfg:          cfg,
		fetcher:      fetcher,
		sink:         sink,
		queue:        queue,
		stateManager: stateManager,
	}

	if cfg.Crawl.DedupWindow > 0 {
		seen, err := lru.New[string, struct{}](cfg.Crawl.DedupWindow)
		if err != nil {
			return nil, fmt.Errorf("failed to create dedup window: %w", err)
		}
		s.seen = seen
	}

	return s, nil
}

// CrawlAll crawls every category in order and returns the combined report.
// It only returns an error when ctx is cancelled.
func (s *Service) CrawlAll(ctx context.Context, categories []domain.ItemCategory) (*domain.Report, error) {
	report := domain.NewReport()
	log.Info("Starting to scrape all data...")

	for _, category := range categories {
		log.Infof("🔄 Processing category: %s", category.GetCategoryName())

		if err := s.CrawlCategory(ctx, category, report); err != nil {
			return report, err
		}

		stats := report.Stats(category)
		log.Infof("✅ Completed %s: %d listing pages, %d scraped, %d failed, %d duplicates",
			category.GetCategoryName(), stats.ListingPages, stats.Succeeded, stats.Failed, stats.Duplicates)
	}

	succeeded, failed := report.Total()
	log.Infof("Finished scraping all data. %d records, %d failures", succeeded, failed)
	return report, nil
}

// CrawlCategory crawls every listing root of category into report.
func (s *Service) CrawlCategory(ctx context.Context, category domain.ItemCategory, report *domain.Report) error {
	categoryCfg := s.cfg.Category(category)

	for root, err := range s.listingRoots(ctx, categoryCfg) {
		if err != nil {
			log.Errorf("❌ Failed to discover listing roots for %s: %v", category.GetCategoryName(), err)
			report.AddFailure(category, s.homeURL(), err)
			continue
		}

		if err := s.crawlRoot(ctx, category, root, categoryCfg.ContainerClass, report); err != nil {
			return err
		}
	}

	return ctx.Err()
}

func (s *Service) crawlRoot(ctx context.Context, category domain.ItemCategory, root, containerClass string, report *domain.Report) error {
	resumeFrom := 0
	if s.stateManager != nil {
		last, err := s.stateManager.GetLastProcessedPage(ctx, category, root)
		if err != nil {
			log.Warnf("⚠️ Could not read progress for %s, starting over: %v", root, err)
		} else if last > 0 {
			resumeFrom = last
			log.Infof("🔄 Continue from page %d for %s", resumeFrom+1, root)
		}
	}

	done, err := s.walkRoot(ctx, category, root, containerClass, resumeFrom, report)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Errorf("❌ Failed to read pagination of %s after page %d: %v", root, done, err)
		report.AddFailure(category, root, err)
		if domain.IsFetchError(err) {
			s.enqueue(ctx, &task.PageRetryTask{
				ListingURL: root,
				Category:   category,
				Walk:       true,
				SkipPages:  done,
				Error:      err.Error(),
			})
		}
		return nil
	}

	s.clearProgress(ctx, category, root)
	return ctx.Err()
}

// walkRoot crawls the listing pages of root after its first skip pages. A
// failed pagination read is retried with backoff and the walk resumes after
// the last crawled page. It returns the index of that page.
func (s *Service) walkRoot(ctx context.Context, category domain.ItemCategory, root, containerClass string, skip int, report *domain.Report) (int, error) {
	done := skip
	err := s.retry(ctx, root, func() error {
		pageIndex := 0
		for pageURL, err := range client.Paginate(ctx, s.fetcher, s.cfg.Selectors, root) {
			if err != nil {
				return err
			}

			pageIndex++
			if pageIndex <= done {
				log.Debugf("Skipping already processed listing page %d: %s", pageIndex, pageURL)
				continue
			}

			report.Stats(category).ListingPages++
			// Only cancellation comes back here, and it is never retried.
			if err := s.crawlListingPage(ctx, category, pageURL, containerClass, report); err != nil {
				return err
			}

			done = pageIndex
			s.saveProgress(ctx, category, root, done)
		}
		return nil
	})
	return done, err
}

func (s *Service) saveProgress(ctx context.Context, category domain.ItemCategory, root string, pageIndex int) {
	if s.stateManager == nil {
		return
	}
	if err := s.stateManager.SetLastProcessedPage(ctx, category, root, pageIndex); err != nil {
		log.Warnf("⚠️ Could not save progress for %s: %v", root, err)
	}
}

func (s *Service) clearProgress(ctx context.Context, category domain.ItemCategory, root string) {
	if s.stateManager == nil {
		return
	}
	if err := s.stateManager.ClearProgress(ctx, category, root); err != nil {
		log.Warnf("⚠️ Could not clear progress for %s: %v", root, err)
	}
}

// crawlListingPage scrapes every item of one listing page. Failures to
// collect the page's links are recorded, not returned; only cancellation is.
func (s *Service) crawlListingPage(ctx context.Context, category domain.ItemCategory, pageURL, containerClass string, report *domain.Report) error {
	urls, err := s.collectLinks(ctx, pageURL, containerClass)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Errorf("❌ Failed to collect item links from %s: %v", pageURL, err)
		report.AddFailure(category, pageURL, err)
		if domain.IsFetchError(err) {
			s.enqueue(ctx, &task.PageRetryTask{ListingURL: pageURL, Category: category, Error: err.Error()})
		}
		return nil
	}

	log.Debugf("Collected %d item links from %s", len(urls), pageURL)

	urls = s.dropRecentlySeen(urls, report.Stats(category))
	for _, result := range s.scrapeItems(ctx, category, urls) {
		s.deliver(ctx, result, report)
	}
	return ctx.Err()
}

func (s *Service) collectLinks(ctx context.Context, pageURL, containerClass string) ([]string, error) {
	var urls []string
	err := s.retry(ctx, pageURL, func() error {
		urls = urls[:0]
		for u, err := range client.CollectLinks(ctx, s.fetcher, s.cfg.Selectors, pageURL, containerClass) {
			if err != nil {
				return err
			}
			urls = append(urls, u)
		}
		return nil
	})
	return urls, err
}

// dropRecentlySeen removes URLs already scraped in this run. Listing order
// can shift between requests, so the same item may appear on two pages.
func (s *Service) dropRecentlySeen(urls []string, stats *domain.CategoryStats) []string {
	if s.seen == nil {
		return urls
	}

	fresh := urls[:0]
	for _, u := range urls {
		if found, _ := s.seen.ContainsOrAdd(u, struct{}{}); found {
			log.Debugf("Skipping duplicate item %s", u)
			stats.Duplicates++
			continue
		}
		fresh = append(fresh, u)
	}
	return fresh
}

// scrapeItems extracts urls with at most crawl.workers requests in flight.
// Results come back in the order of urls.
func (s *Service) scrapeItems(ctx context.Context, category domain.ItemCategory, urls []string) []domain.ItemResult {
	results := make([]domain.ItemResult, len(urls))

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Crawl.Workers)
	for i, u := range urls {
		g.Go(func() error {
			results[i] = s.ScrapeItem(ctx, category, u)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// ScrapeItem extracts one detail page, retrying transient fetch failures.
func (s *Service) ScrapeItem(ctx context.Context, category domain.ItemCategory, url string) domain.ItemResult {
	result := domain.ItemResult{URL: url, Category: category}

	err := s.retry(ctx, url, func() error {
		record, err := extractor.FromURL(ctx, s.fetcher, s.cfg.Selectors, category, url)
		if err != nil {
			return err
		}
		result.Record = &record
		return nil
	})
	result.Err = err
	return result
}

// deliver sinks a successful result, logs a failed one and records both.
func (s *Service) deliver(ctx context.Context, result domain.ItemResult, report *domain.Report) {
	if result.OK() {
		if err := s.sink.Put(ctx, *result.Record); err != nil {
			result.Err = fmt.Errorf("failed to sink record: %w", err)
		}
	}

	if result.OK() {
		log.Infof("✅ Scraped %s: %s", result.Category.GetCategoryName(), result.Record.Name())
	} else {
		log.Errorf("❌ Failed to scrape %s at URL: %s due to %v", result.Category.GetCategoryName(), result.URL, result.Err)
		if domain.IsFetchError(result.Err) && ctx.Err() == nil {
			s.enqueue(ctx, &task.ItemRetryTask{ItemURL: result.URL, Category: result.Category, Error: result.Err.Error()})
		}
	}

	report.Add(result)
}

// retry runs op until it succeeds, fails permanently or runs out of attempts.
// Only transient fetch failures are retried.
func (s *Service) retry(ctx context.Context, url string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(s.cfg.Crawl.RetryInitialWaitMs) * time.Millisecond
	b.MaxInterval = time.Duration(s.cfg.Crawl.RetryMaxWaitMs) * time.Millisecond
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(0, s.cfg.Crawl.MaxRetries))), ctx)

	return backoff.RetryNotify(func() error {
		err := op()
		if err != nil && !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		log.Warnf("🔄 Retrying %s in %v: %v", url, wait.Round(time.Millisecond), err)
	})
}

func isTransient(err error) bool {
	var fe *domain.FetchError
	if !errors.As(err, &fe) {
		return false
	}
	switch fe.Kind {
	case domain.FetchUnreachable:
		return !errors.Is(fe.Err, context.Canceled) && !errors.Is(fe.Err, context.DeadlineExceeded)
	case domain.FetchStatus:
		return fe.StatusCode >= http.StatusInternalServerError || fe.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

func (s *Service) enqueue(ctx context.Context, t task.Task) {
	if s.queue == nil {
		return
	}
	if _, err := s.queue.AddTask(ctx, t); err != nil {
		log.Errorf("❌ Failed to add %s to retry queue: %v", t.TaskType(), err)
		return
	}
	log.Warnf("🔄 Added %s to retry queue", t.TaskType())
}

// listingRoots yields the configured roots resolved against the base URL,
// then the links of every configured home page menu.
func (s *Service) listingRoots(ctx context.Context, categoryCfg config.CategoryConfig) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, root := range categoryCfg.Roots {
			rootURL, err := client.ResolveURL(s.cfg.Catalog.BaseURL, root)
			if !yield(rootURL, err) {
				return
			}
		}

		for _, label := range categoryCfg.Menus {
			for link, err := range client.MenuLinks(ctx, s.fetcher, s.cfg.Selectors, s.homeURL(), label) {
				if !yield(link, err) {
					return
				}
			}
		}
	}
}

func (s *Service) homeURL() string {
	home, err := client.ResolveURL(s.cfg.Catalog.BaseURL, s.cfg.Crawl.HomePath)
	if err != nil {
		return s.cfg.Catalog.BaseURL
	}
	return home
}
