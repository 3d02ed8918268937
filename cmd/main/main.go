package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"csgostash/scraper/internal/config"
	"csgostash/scraper/internal/container"
	"csgostash/scraper/internal/domain"
	"csgostash/scraper/internal/sink"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Fatalf("Application exited with error: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "csgostash-scraper",
		Short:         "Crawl the csgostash.com catalog and extract item records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ./config.yaml)")

	root.AddCommand(
		newCrawlCmd(&configPath),
		newRetryCmd(&configPath),
		newScrapeCmd(&configPath),
	)
	return root
}

func newCrawlCmd(configPath *string) *cobra.Command {
	var categoryNames []string

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl every listing of the selected categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			categories, err := parseCategories(categoryNames)
			if err != nil {
				return err
			}

			app, err := start(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.Run(cmd.Context(), categories)
			if report != nil {
				if werr := sink.WriteReport(os.Stderr, report); werr != nil {
					log.Warnf("⚠️ Could not print report: %v", werr)
				}
			}
			return err
		},
	}
	cmd.Flags().StringSliceVar(&categoryNames, "category", nil, "category to crawl (repeatable): weapon_skin, collection, souvenir_package, sticker")
	return cmd
}

func newRetryCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Retry the listing pages and items left in the retry queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := start(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.Retry(cmd.Context())
			if report != nil {
				if werr := sink.WriteReport(os.Stderr, report); werr != nil {
					log.Warnf("⚠️ Could not print report: %v", werr)
				}
			}
			return err
		},
	}
}

func newScrapeCmd(configPath *string) *cobra.Command {
	var (
		url          string
		categoryName string
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Extract a single detail page",
		RunE: func(cmd *cobra.Command, _ []string) error {
			category, err := domain.ParseItemCategory(categoryName)
			if err != nil {
				return err
			}

			app, err := start(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			_, err = app.Scrape(cmd.Context(), category, url)
			return err
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "detail page URL")
	cmd.Flags().StringVar(&categoryName, "category", "", "category of the page")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func parseCategories(names []string) ([]domain.ItemCategory, error) {
	categories := make([]domain.ItemCategory, 0, len(names))
	for _, name := range names {
		category, err := domain.ParseItemCategory(name)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, nil
}

// start loads configuration, sets up logging and builds the container.
func start(ctx context.Context, configPath string) (*container.Container, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := setupLogging(cfg.Log); err != nil {
		return nil, err
	}
	log.Info("Configuration loaded successfully")

	app, err := container.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize container: %w", err)
	}
	return app, nil
}

func setupLogging(cfg config.LogConfig) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
