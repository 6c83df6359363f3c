package commands

import (
	"errors"
	"sort"

	"github.com/spf13/cobra"

	"ev-subsidy-scraper/models"
	"ev-subsidy-scraper/scraper/evportal"
	"ev-subsidy-scraper/services"
	"ev-subsidy-scraper/storage"
)

var (
	aggregateInput string
	aggregateYear  int
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate --input raw.json",
	Short: "Build the processed datasets from a raw dump",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := current.runAggregate(aggregateInput, aggregateYear)
		return err
	},
}

func init() {
	aggregateCmd.Flags().StringVar(&aggregateInput, "input", "", "raw dump written by crawl")
	aggregateCmd.Flags().IntVar(&aggregateYear, "year", 0, "data year (default from the dump, then DATA_YEAR)")
	_ = aggregateCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(aggregateCmd)
}

// loadDump reads a raw dump back into a crawl result. Region keys are
// resolved against the built-in table so categories survive the round trip.
func (a *app) loadDump(path string, year int) (*models.CrawlResult, error) {
	dump, err := storage.LoadRaw(path)
	if err != nil {
		return nil, err
	}
	switch {
	case year != 0:
	case dump.CrawlInfo.DataYear != 0:
		year = dump.CrawlInfo.DataYear
	default:
		year = a.cfg.DataYear
	}

	names := make([]string, 0, len(dump.Data))
	for name := range dump.Data {
		names = append(names, name)
	}
	sort.Strings(names)

	result := models.NewCrawlResult(year)
	for _, name := range names {
		result.Add(evportal.RegionByName(name), dump.Data[name])
	}
	a.logger.Info("Loaded %s: %d regions, %d vehicles", path, len(result.Data), result.TotalVehicles())
	return result, nil
}

func (a *app) runAggregate(input string, year int) ([]string, error) {
	result, err := a.loadDump(input, year)
	if err != nil {
		return nil, err
	}
	if len(result.Data) == 0 {
		return nil, errors.New("dump contains no regions")
	}
	cleaned := services.NewDataCleaner(a.logger).CleanAll(result)
	return a.aggregate(result.Year, cleaned)
}
