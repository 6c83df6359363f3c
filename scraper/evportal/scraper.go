package evportal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ev-subsidy-scraper/config"
	"ev-subsidy-scraper/models"
	"ev-subsidy-scraper/scraper/fetch"
	"ev-subsidy-scraper/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scraper/evportal")

// TestModeRegions is how many regions a non-full crawl visits
const TestModeRegions = 5

// CrawlOptions narrows a crawl
type CrawlOptions struct {
	Year    int
	CarType string
	Limit   int // 0 = every region

	// Skip reports regions already processed elsewhere
	Skip func(models.Region) bool
	// OnRegion receives each region's rows as soon as they are scraped
	OnRegion func(ctx context.Context, region models.Region, vehicles []models.RawVehicle) error
}

// Scraper crawls the per-region subsidy tables of the portal
type Scraper struct {
	session     *Session
	cfg         *config.Config
	logger      *utils.Logger
	rateLimiter *utils.RateLimiter
	now         func() time.Time
}

// NewScraper creates a new Scraper over any fetch backend
func NewScraper(f fetch.Fetcher, cfg *config.Config, logger *utils.Logger) *Scraper {
	return &Scraper{
		session:     NewSession(f, cfg.BaseURL, logger),
		cfg:         cfg,
		logger:      logger,
		rateLimiter: utils.NewRateLimiter(cfg.RateLimitDelay),
		now:         time.Now,
	}
}

// Session exposes the underlying portal session
func (s *Scraper) Session() *Session {
	return s.session
}

func (s *Scraper) ensureSession(ctx context.Context) error {
	if s.session.Ready() {
		return nil
	}
	s.logger.Info("Initializing portal session...")
	return utils.RetryWithBackoff(ctx, s.cfg.MaxRetries, func() error {
		return s.session.Init(ctx)
	}, s.logger)
}

// Regions returns the live region list, or the static table when the list
// page is unavailable or unparseable
func (s *Scraper) Regions(ctx context.Context, year int, carType string) []models.Region {
	html, err := s.session.RegionList(ctx, year, carType)
	if err != nil {
		s.logger.Warn("Region list unavailable, using built-in table: %v", err)
		return StaticRegions
	}
	regions := ParseRegionList(html)
	if len(regions) == 0 {
		s.logger.Warn("Region list empty, using built-in table")
		return StaticRegions
	}
	s.logger.Info("Region list: %d regions", len(regions))
	return regions
}

// Crawl scrapes every region in order. Failing regions are logged and skipped;
// only session bootstrap failure or cancellation ends the run early.
func (s *Scraper) Crawl(ctx context.Context, opts CrawlOptions) (*models.CrawlResult, error) {
	if opts.Year == 0 {
		opts.Year = s.cfg.DataYear
	}
	if opts.CarType == "" {
		opts.CarType = s.cfg.CarType
	}

	if err := s.ensureSession(ctx); err != nil {
		return nil, err
	}

	regions := s.Regions(ctx, opts.Year, opts.CarType)
	if opts.Limit > 0 && len(regions) > opts.Limit {
		regions = regions[:opts.Limit]
	}

	s.logger.Info("Crawling %d regions for %d (car type %s)", len(regions), opts.Year, opts.CarType)
	result := models.NewCrawlResult(opts.Year)

	for i, region := range regions {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if opts.Skip != nil && opts.Skip(region) {
			s.logger.Info("[%d/%d] %s (%s) already processed, skipping", i+1, len(regions), region.Name, region.Code)
			result.Skipped++
			continue
		}
		if err := s.rateLimiter.Wait(ctx); err != nil {
			return result, err
		}

		s.logger.Info("[%d/%d] %s (%s)", i+1, len(regions), region.Name, region.Code)
		vehicles, err := s.crawlRegion(ctx, opts, region)
		switch {
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			s.logger.Error("Region '%s' timed out: %v", region.Name, err)
			result.Failed++
			continue
		case errors.Is(err, ErrNoTable):
			s.logger.Warn("Region '%s': no table", region.Name)
			result.NoData++
			continue
		case err != nil:
			s.logger.Error("Region '%s' failed: %v", region.Name, err)
			result.Failed++
			continue
		}

		if len(vehicles) == 0 {
			s.logger.Warn("Region '%s': no data", region.Name)
			result.NoData++
			continue
		}

		key := result.Add(region, vehicles)
		result.Succeeded++
		s.logger.Info("Region '%s': collected %d vehicles", key, len(vehicles))

		if opts.OnRegion != nil {
			stored := region
			stored.Name = key
			if err := opts.OnRegion(ctx, stored, vehicles); err != nil {
				s.logger.Warn("Region '%s': sink failed: %v", key, err)
			}
		}
	}

	s.logger.Info("Crawl complete: %d ok, %d no data, %d failed, %d skipped, %d vehicles",
		result.Succeeded, result.NoData, result.Failed, result.Skipped, result.TotalVehicles())
	return result, nil
}

func (s *Scraper) crawlRegion(ctx context.Context, opts CrawlOptions, region models.Region) (vehicles []models.RawVehicle, err error) {
	ctx, span := tracer.Start(ctx, "crawl region")
	span.SetAttributes(
		attribute.String("region.code", region.Code),
		attribute.String("region.name", region.Name),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.Int("region.vehicles", len(vehicles)))
		span.End()
	}()

	var html string
	err = utils.RetryWithBackoff(ctx, s.cfg.MaxRetries, func() error {
		var ferr error
		html, ferr = s.session.RegionDetail(ctx, opts.Year, opts.CarType, region)
		return ferr
	}, s.logger)
	if err != nil {
		return nil, err
	}

	vehicles, err = ParseVehicleTable(html)
	if err != nil {
		return nil, err
	}
	scrapedAt := s.now()
	for i := range vehicles {
		vehicles[i].ScrapedAt = scrapedAt
	}
	return vehicles, nil
}

// CrawlNational loads the national and local overview tables
func (s *Scraper) CrawlNational(ctx context.Context, parser *NationalParser) (*SubsidyTables, error) {
	if err := s.ensureSession(ctx); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "crawl national")
	defer span.End()

	var html string
	err := utils.RetryWithBackoff(ctx, s.cfg.MaxRetries, func() error {
		var ferr error
		html, ferr = s.session.SubsidyPage(ctx)
		return ferr
	}, s.logger)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	tables, err := parser.ParseSubsidyPage(html)
	if err != nil {
		return nil, fmt.Errorf("subsidy page: %w", err)
	}
	span.SetAttributes(
		attribute.Int("national.rows", len(tables.National)),
		attribute.Int("local.rows", len(tables.Local)),
	)
	s.logger.Info("National rows: %d (skipped %d) | Local rows: %d",
		len(tables.National), parser.Skipped, len(tables.Local))
	return tables, nil
}

// RegionByName resolves a stored region key, including "고성군(경상남도)" style
// keys, against the built-in table
func RegionByName(key string) models.Region {
	name, category := key, ""
	if open := strings.LastIndex(key, "("); open > 0 && strings.HasSuffix(key, ")") {
		name, category = key[:open], key[open+1:len(key)-1]
	}
	for _, r := range StaticRegions {
		if r.Name == name && (category == "" || r.Category == category) {
			return models.Region{Code: r.Code, Name: key, Category: r.Category}
		}
	}
	return models.Region{Name: key}
}
