package state

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"csgostash/scraper/internal/domain"

	"github.com/redis/go-redis/v9"
)

// StateManager remembers how far a crawl got through the listing pages of
// one category root, so an interrupted crawl can resume.
type StateManager interface {
	GetLastProcessedPage(ctx context.Context, category domain.ItemCategory, rootURL string) (int, error)
	SetLastProcessedPage(ctx context.Context, category domain.ItemCategory, rootURL string, pageIndex int) error
	ClearProgress(ctx context.Context, category domain.ItemCategory, rootURL string) error
}

type redisStateManager struct {
	redisClient *redis.Client
	keyPrefix   string
}

func NewRedisStateManager(redisClient *redis.Client) StateManager {
	return &redisStateManager{
		redisClient: redisClient,
		keyPrefix:   "csgostash:progress:page:",
	}
}

func (s *redisStateManager) key(category domain.ItemCategory, rootURL string) string {
	return s.keyPrefix + category.String() + ":" + rootURL
}

func (s *redisStateManager) GetLastProcessedPage(ctx context.Context, category domain.ItemCategory, rootURL string) (int, error) {
	val, err := s.redisClient.Get(ctx, s.key(category, rootURL)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil // No progress saved yet
		}
		return 0, fmt.Errorf("failed to get last processed page for %s %s: %w", category, rootURL, err)
	}

	page, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("failed to parse page index for %s %s: %w", category, rootURL, err)
	}

	return page, nil
}

func (s *redisStateManager) SetLastProcessedPage(ctx context.Context, category domain.ItemCategory, rootURL string, pageIndex int) error {
	err := s.redisClient.Set(ctx, s.key(category, rootURL), pageIndex, 0).Err()
	if err != nil {
		return fmt.Errorf("failed to set last processed page for %s %s: %w", category, rootURL, err)
	}
	return nil
}

func (s *redisStateManager) ClearProgress(ctx context.Context, category domain.ItemCategory, rootURL string) error {
	if err := s.redisClient.Del(ctx, s.key(category, rootURL)).Err(); err != nil {
		return fmt.Errorf("failed to clear progress for %s %s: %w", category, rootURL, err)
	}
	return nil
}
