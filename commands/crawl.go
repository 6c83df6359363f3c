package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"ev-subsidy-scraper/models"
	"ev-subsidy-scraper/scraper/evportal"
	"ev-subsidy-scraper/services"
	"ev-subsidy-scraper/storage"
)

// crawlParams are the per-run overrides of a crawl
type crawlParams struct {
	Year     int
	CarType  string
	Backend  string
	Full     bool
	Limit    int
	NoSheets bool
}

// regionLimit resolves how many regions a run visits: test mode stops after
// a handful, full mode uses REGION_LIMIT, and --limit overrides both
func (p crawlParams) regionLimit(configured int) int {
	switch {
	case p.Limit > 0:
		return p.Limit
	case !p.Full:
		return evportal.TestModeRegions
	default:
		return configured
	}
}

var crawlFlags crawlParams

var crawlCmd = &cobra.Command{
	Use:   "crawl [full]",
	Short: "Scrape every region's subsidy table and write all outputs",
	Long: "Scrape the per-region subsidy popups of ev.or.kr. Without arguments only the first " +
		"regions are visited (test mode); pass \"full\" to crawl every region.",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"full"},
	RunE: func(cmd *cobra.Command, args []string) error {
		params := crawlFlags
		if len(args) == 1 {
			if args[0] != "full" {
				return errors.New(`the only argument crawl accepts is "full"`)
			}
			params.Full = true
		}
		_, err := current.runCrawl(cmd.Context(), params)
		return err
	},
}

func init() {
	f := crawlCmd.Flags()
	f.IntVar(&crawlFlags.Year, "year", 0, "data year (default DATA_YEAR)")
	f.StringVar(&crawlFlags.CarType, "car-type", "", "portal car type code (default CAR_TYPE)")
	f.StringVar(&crawlFlags.Backend, "backend", "", "fetch backend: auto, resty, colly, chromedp, rod")
	f.IntVar(&crawlFlags.Limit, "limit", 0, "visit at most this many regions")
	f.BoolVar(&crawlFlags.NoSheets, "no-google-sheets", false, "do not upload to Google Sheets")
	rootCmd.AddCommand(crawlCmd)
}

// runCrawl scrapes, streams each region to the configured sinks, then writes
// the file outputs and prints the report. It returns the files it produced.
func (a *app) runCrawl(ctx context.Context, p crawlParams) ([]string, error) {
	year := p.Year
	if year == 0 {
		year = a.cfg.DataYear
	}

	f, err := a.newFetcher(p.Backend)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		sinks  []storage.RegionSink
		sheets *storage.SheetsWriter
	)
	if !p.NoSheets {
		if sheets, err = a.newSheetsWriter(ctx); err != nil {
			a.logger.Error("%v", err)
		} else if sheets != nil {
			sinks = append(sinks, sheets)
		}
	}
	db, err := a.newSQLWriter(ctx)
	if err != nil {
		return nil, err
	}
	if db != nil {
		defer db.Close()
		sinks = append(sinks, db)
	}

	cleaner := services.NewDataCleaner(a.logger)
	opts := evportal.CrawlOptions{
		Year:    year,
		CarType: p.CarType,
		Limit:   p.regionLimit(a.cfg.RegionLimit),
		OnRegion: func(ctx context.Context, region models.Region, raw []models.RawVehicle) error {
			vehicles := cleaner.Clean(raw)
			var errs []error
			for _, sink := range sinks {
				if err := sink.WriteRegion(ctx, year, region, vehicles); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}
	if sheets != nil && a.cfg.SkipExistingSheets {
		opts.Skip = func(region models.Region) bool {
			exists, err := sheets.SheetExists(ctx, storage.RegionSheetTitle(year, region.Name))
			if err != nil {
				a.logger.Warn("Could not check sheet for %s: %v", region.Name, err)
				return false
			}
			return exists
		}
	}

	scraper := evportal.NewScraper(f, a.cfg, a.logger)
	result, err := scraper.Crawl(ctx, opts)
	if err != nil && result == nil {
		return nil, err
	}
	if err != nil {
		a.logger.Warn("Crawl interrupted, writing the %d regions collected so far", len(result.Data))
	}
	if len(result.Data) == 0 {
		a.logger.Warn("No vehicle data collected")
		return nil, err
	}

	files, werr := a.writeOutputs(result, f.Name(), cleaner)
	if sheets != nil {
		if serr := sheets.WriteSummary(ctx, nil); serr != nil {
			a.logger.Error("Summary sheet failed: %v", serr)
		} else {
			a.logger.Info("Google Sheets URL: %s", sheets.URL())
		}
	}
	return files, errors.Join(err, werr)
}

// writeOutputs writes the raw dump, CSV, workbook and processed datasets, then prints the report
func (a *app) writeOutputs(result *models.CrawlResult, backend string, cleaner *services.DataCleaner) ([]string, error) {
	var files []string

	raw, err := storage.NewJSONWriter(a.cfg.OutputDir, a.logger).WriteRaw(result, backend)
	if err != nil {
		return nil, err
	}
	files = append(files, raw)

	if path, err := a.newCSVWriter().WriteVehicles(result); err != nil {
		a.logger.Error("Failed to write CSV: %v", err)
	} else {
		files = append(files, path)
	}

	cleaned := cleaner.CleanAll(result)
	if path, err := storage.NewXLSXWriter(a.cfg.OutputDir, a.logger).Write(result.Year, cleaned); err != nil {
		a.logger.Error("Failed to write workbook: %v", err)
	} else {
		files = append(files, path)
	}

	processed, err := a.aggregate(result.Year, cleaned)
	if err != nil {
		return files, err
	}
	return append(files, processed...), nil
}

// aggregate writes the processed datasets for cleaned regions and prints the report
func (a *app) aggregate(year int, cleaned map[string][]models.Vehicle) ([]string, error) {
	insights := a.newInsights()
	dataset := insights.BuildDataset(year, cleaned)

	paths, err := storage.NewJSONWriter(a.cfg.OutputDir, a.logger).WriteDataset(dataset)
	if err != nil {
		return nil, err
	}

	services.PrintInsightReport(a.out, insights.Generate(dataset, cleaned))
	return paths, nil
}
