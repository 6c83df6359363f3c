package commands

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"

	"ev-subsidy-scraper/scraper/evportal"
	"ev-subsidy-scraper/scraper/fetch"
	"ev-subsidy-scraper/services"
	"ev-subsidy-scraper/storage"
	"ev-subsidy-scraper/utils"
)

func (a *app) newFetcher(backend string) (fetch.Fetcher, error) {
	if backend == "" {
		backend = a.cfg.FetchBackend
	}
	f, err := fetch.New(backend, fetch.Options{
		Timeout: time.Duration(a.cfg.RequestTimeout) * time.Second,
		Logger:  a.logger,
	})
	if err != nil {
		return nil, err
	}
	a.logger.Info("Fetch backend: %s", f.Name())
	return f, nil
}

func (a *app) newInsights() *services.InsightService {
	return services.NewInsightService(services.NewClassifier(a.cfg.ProvinceMap), a.logger)
}

func (a *app) newCSVWriter() *storage.CSVWriter {
	return storage.NewCSVWriter(a.cfg.OutputDir, evportal.CategoryRank, a.logger)
}

// newSheetsWriter returns nil when no spreadsheet or credentials are configured
func (a *app) newSheetsWriter(ctx context.Context) (*storage.SheetsWriter, error) {
	if !a.cfg.SheetsEnabled() {
		a.logger.Info("Google Sheets not configured, skipping upload")
		return nil, nil
	}
	throttle := utils.NewThrottle(a.cfg.MaxRequestsPerMinute, a.cfg.RequestDelay, a.logger)
	w, err := storage.NewSheetsWriter(ctx, a.cfg.GoogleSpreadsheetID, throttle, a.logger,
		option.WithCredentialsFile(a.cfg.GoogleServiceAccountFile),
	)
	if err != nil {
		return nil, fmt.Errorf("google sheets: %w", err)
	}
	return w, nil
}

// newSQLWriter returns nil when DATABASE_URL is empty
func (a *app) newSQLWriter(ctx context.Context) (*storage.SQLWriter, error) {
	if a.cfg.DatabaseURL == "" {
		return nil, nil
	}
	w, err := storage.NewSQLWriter(a.cfg.DatabaseURL, a.logger)
	if err != nil {
		return nil, err
	}
	if err := w.CreateTables(ctx); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// newPublisher returns nil when no bucket is configured
func (a *app) newPublisher(ctx context.Context) (storage.Publisher, error) {
	if a.cfg.S3Bucket == "" {
		return nil, nil
	}
	return storage.NewS3Publisher(ctx, storage.S3Options{
		Bucket:          a.cfg.S3Bucket,
		Prefix:          a.cfg.S3Prefix,
		Region:          a.cfg.S3Region,
		Endpoint:        a.cfg.S3Endpoint,
		AccessKeyID:     a.cfg.S3AccessKeyID,
		SecretAccessKey: a.cfg.S3SecretAccessKey,
	}, a.logger)
}
