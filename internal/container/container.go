package container

import (
	"context"
	"fmt"
	"os"

	"csgostash/scraper/internal/client"
	"csgostash/scraper/internal/config"
	"csgostash/scraper/internal/domain"
	"csgostash/scraper/internal/proxy"
	"csgostash/scraper/internal/queue"
	"csgostash/scraper/internal/repository"
	"csgostash/scraper/internal/service"
	"csgostash/scraper/internal/sink"
	"csgostash/scraper/internal/state"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config       *config.Config
	Fetcher      client.Fetcher
	Sink         sink.Sink
	Queue        queue.Queue        // nil unless redis.enabled
	StateManager state.StateManager // nil unless redis.enabled

	Service *service.Service

	db    *pgxpool.Pool
	redis *redis.Client
}

// New creates a new container with all dependencies initialized
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
	}

	proxySupplier, err := proxy.NewProxySupplier(ctx, cfg.Catalog.Proxies, cfg.Catalog.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize proxy supplier: %w", err)
	}
	container.Fetcher = client.NewFetcher(cfg.Catalog, proxySupplier)

	sinks, err := container.initSinks(ctx)
	if err != nil {
		_ = container.Close()
		return nil, err
	}
	container.Sink = sinks

	if cfg.Redis.Enabled {
		if err := container.initRedis(ctx); err != nil {
			_ = container.Close()
			return nil, err
		}
	}

	svc, err := service.NewService(cfg, container.Fetcher, container.Sink, container.Queue, container.StateManager)
	if err != nil {
		_ = container.Close()
		return nil, err
	}
	container.Service = svc

	return container, nil
}

func (c *Container) initSinks(ctx context.Context) (sink.Sink, error) {
	var sinks sink.Multi
	for _, target := range c.Config.Sink.Targets {
		switch target {
		case "stdout":
			sinks = append(sinks, sink.NewWriter(os.Stdout))

		case "postgres":
			db, err := pgxpool.New(ctx,
				fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
					c.Config.Database.Host,
					c.Config.Database.Port,
					c.Config.Database.User,
					c.Config.Database.Password,
					c.Config.Database.Name,
				))
			if err != nil {
				return nil, fmt.Errorf("failed to connect to database: %w", err)
			}
			c.db = db

			repo := repository.NewRecordRepository(db)
			if err := repo.EnsureSchema(ctx); err != nil {
				return nil, err
			}
			log.Info("✅ Connected to PostgreSQL successfully")
			sinks = append(sinks, sink.NewRepository(repo))

		default:
			return nil, fmt.Errorf("unknown sink target %q", target)
		}
	}
	return sinks, nil
}

func (c *Container) initRedis(ctx context.Context) error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", c.Config.Redis.Host, c.Config.Redis.Port),
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.Database,
	})
	c.redis = rdb

	// Test connection
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info("✅ Connected to Redis successfully")

	redisQueue, err := queue.NewRedisQueue(ctx, rdb, c.Config.Redis)
	if err != nil {
		return err
	}
	c.Queue = redisQueue
	c.StateManager = state.NewRedisStateManager(rdb)
	return nil
}

// Run crawls categories, or every category when none are given.
func (c *Container) Run(ctx context.Context, categories []domain.ItemCategory) (*domain.Report, error) {
	if len(categories) == 0 {
		categories = domain.ItemCategories
	}
	return c.Service.CrawlAll(ctx, categories)
}

// Retry drains the retry queue.
func (c *Container) Retry(ctx context.Context) (*domain.Report, error) {
	return c.Service.RetryFailed(ctx)
}

// Scrape extracts a single detail page.
func (c *Container) Scrape(ctx context.Context, category domain.ItemCategory, url string) (*domain.ItemRecord, error) {
	return c.Service.ScrapeURL(ctx, category, url)
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	if c.db != nil {
		c.db.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			return fmt.Errorf("failed to close Redis client: %w", err)
		}
	}

	log.Info("Container shut down successfully")
	return nil
}
