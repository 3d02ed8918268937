package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"csgostash/scraper/internal/domain"
	"csgostash/scraper/internal/domain/task"
	"csgostash/scraper/internal/queue"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RetryFailed drains the retry streams one message at a time. Tasks that fail
// again go back on the queue once the drain is over, so each run makes one
// attempt per task, until crawl.max_queue_retries is reached.
func (s *Service) RetryFailed(ctx context.Context) (*domain.Report, error) {
	if s.queue == nil {
		return nil, fmt.Errorf("retry queue is not configured (redis.enabled is false)")
	}

	report := domain.NewReport()
	group := s.cfg.Redis.ConsumerGroup
	consumer := fmt.Sprintf("retry-%d", os.Getpid())
	minIdle := time.Duration(s.cfg.Redis.MinIdleTime) * time.Second

	var retryLater []task.Task
	defer func() {
		for _, t := range retryLater {
			if _, err := s.queue.AddTask(context.WithoutCancel(ctx), t); err != nil {
				log.Errorf("❌ Failed to re-add %s: %v", t.TaskType(), err)
			}
		}
	}()

	handle := func(stream string, msg *redis.XMessage) {
		if t := s.handleMessage(ctx, stream, msg, report); t != nil {
			retryLater = append(retryLater, t)
		}
	}

	for _, taskType := range task.Types {
		stream := queue.StreamName(taskType)

		claimed, err := s.queue.AutoClaim(ctx, group, consumer, stream, minIdle)
		if err != nil {
			log.Errorf("❌ Failed to auto-claim messages for %s: %v", stream, err)
		} else if len(claimed) > 0 {
			log.Infof("🔄 Auto-claimed %d stale messages from %s", len(claimed), stream)
		}
		for i := range claimed {
			handle(stream, &claimed[i])
		}

		for {
			if err := ctx.Err(); err != nil {
				return report, err
			}

			msg, err := s.queue.GetTask(ctx, group, consumer, stream)
			if err != nil {
				return report, err
			}
			if msg == nil {
				break
			}
			handle(stream, msg)
		}
	}

	succeeded, failed := report.Total()
	log.Infof("Finished retrying. %d records recovered, %d failures, %d tasks left for the next run",
		succeeded, failed, len(retryLater))
	return report, nil
}

// handleMessage processes and acks msg. It returns the task when it should
// be attempted again.
func (s *Service) handleMessage(ctx context.Context, stream string, msg *redis.XMessage, report *domain.Report) task.Task {
	again, err := s.processMessage(ctx, msg, report)
	if err != nil {
		log.Errorf("❌ Failed to process message %s: %v", msg.ID, err)
	}
	if err := s.queue.AckTask(ctx, stream, s.cfg.Redis.ConsumerGroup, msg.ID); err != nil {
		log.Errorf("❌ Failed to ack message %s: %v", msg.ID, err)
	}
	return again
}

func (s *Service) processMessage(ctx context.Context, msg *redis.XMessage, report *domain.Report) (task.Task, error) {
	taskType, ok := msg.Values["task_type"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid task type in message %s", msg.ID)
	}

	taskData, ok := msg.Values["task_data"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid task data in message %s", msg.ID)
	}

	switch taskType {
	case task.TypePageRetry:
		pageTask, err := task.UnmarshalTask[*task.PageRetryTask]([]byte(taskData))
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal page retry task: %w", err)
		}
		return s.retryPage(ctx, pageTask, report), nil

	case task.TypeItemRetry:
		itemTask, err := task.UnmarshalTask[*task.ItemRetryTask]([]byte(taskData))
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal item retry task: %w", err)
		}
		return s.retryItem(ctx, itemTask, report), nil

	default:
		return nil, fmt.Errorf("unknown task type: %s", taskType)
	}
}

func (s *Service) retryPage(ctx context.Context, t *task.PageRetryTask, report *domain.Report) task.Task {
	t.RetryCount++
	log.Infof("🔄 Retrying listing page %s (attempt %d)", t.ListingURL, t.RetryCount)

	containerClass := s.cfg.Category(t.Category).ContainerClass

	var err error
	if t.Walk {
		t.SkipPages, err = s.walkRoot(ctx, t.Category, t.ListingURL, containerClass, t.SkipPages, report)
		if err == nil {
			s.clearProgress(ctx, t.Category, t.ListingURL)
		}
	} else {
		var urls []string
		urls, err = s.collectLinks(ctx, t.ListingURL, containerClass)
		if err == nil {
			report.Stats(t.Category).ListingPages++
			for _, result := range s.scrapeItems(ctx, t.Category, urls) {
				s.deliver(ctx, result, report)
			}
		}
	}

	if err != nil {
		log.Errorf("❌ Listing page %s failed again: %v", t.ListingURL, err)
		report.AddFailure(t.Category, t.ListingURL, err)
		if !domain.IsFetchError(err) {
			return nil
		}
		t.Error = err.Error()
		return s.retryable(t, t.RetryCount)
	}

	log.Infof("✅ Recovered listing page %s after %d attempts", t.ListingURL, t.RetryCount)
	return nil
}

func (s *Service) retryItem(ctx context.Context, t *task.ItemRetryTask, report *domain.Report) task.Task {
	t.RetryCount++
	log.Infof("🔄 Retrying item %s (attempt %d)", t.ItemURL, t.RetryCount)

	result := s.ScrapeItem(ctx, t.Category, t.ItemURL)
	if result.OK() {
		if err := s.sink.Put(ctx, *result.Record); err != nil {
			result.Err = fmt.Errorf("failed to sink record: %w", err)
		}
	}
	report.Add(result)

	if !result.OK() {
		log.Errorf("❌ Item %s failed again: %v", t.ItemURL, result.Err)
		if !domain.IsFetchError(result.Err) {
			return nil
		}
		t.Error = result.Err.Error()
		return s.retryable(t, t.RetryCount)
	}

	log.Infof("✅ Recovered %s after %d attempts", result.Record.Name(), t.RetryCount)
	return nil
}

// retryable returns t unless it has used up crawl.max_queue_retries.
func (s *Service) retryable(t task.Task, attempts int) task.Task {
	if attempts >= s.cfg.Crawl.MaxQueueRetries {
		log.Errorf("❌ Giving up on %s after %d attempts", t.TaskType(), attempts)
		return nil
	}
	return t
}

// ScrapeURL extracts a single detail page and hands it to the sink.
func (s *Service) ScrapeURL(ctx context.Context, category domain.ItemCategory, url string) (*domain.ItemRecord, error) {
	log.Infof("Scraping %s at URL: %s", category.GetCategoryName(), url)

	result := s.ScrapeItem(ctx, category, url)
	if !result.OK() {
		return nil, fmt.Errorf("failed to scrape %s at URL: %s: %w", category.GetCategoryName(), url, result.Err)
	}
	if err := s.sink.Put(ctx, *result.Record); err != nil {
		return nil, fmt.Errorf("failed to sink record: %w", err)
	}
	return result.Record, nil
}
