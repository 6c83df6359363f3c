package commands

import (
	"context"
	"errors"
	"sort"

	"github.com/spf13/cobra"

	"ev-subsidy-scraper/services"
)

var (
	sheetsInput string
	sheetsLimit int
)

var sheetsCmd = &cobra.Command{
	Use:   "sheets --input raw.json",
	Short: "Upload a raw dump to Google Sheets",
	Long: "Upload a raw dump region by region, then refresh the 요약 sheet. Every API call " +
		"waits on MAX_REQUESTS_PER_MINUTE and REQUEST_DELAY_MS.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.runSheets(cmd.Context(), sheetsInput, sheetsLimit)
	},
}

func init() {
	sheetsCmd.Flags().StringVar(&sheetsInput, "input", "", "raw dump written by crawl")
	sheetsCmd.Flags().IntVar(&sheetsLimit, "limit", 0, "upload at most this many regions")
	_ = sheetsCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(sheetsCmd)
}

func (a *app) runSheets(ctx context.Context, input string, limit int) error {
	writer, err := a.newSheetsWriter(ctx)
	if err != nil {
		return err
	}
	if writer == nil {
		return errors.New("GOOGLE_SPREADSHEET_ID and GOOGLE_SERVICE_ACCOUNT_FILE are required")
	}

	result, err := a.loadDump(input, 0)
	if err != nil {
		return err
	}
	cleaned := services.NewDataCleaner(a.logger).CleanAll(result)

	regions := result.Regions
	sort.SliceStable(regions, func(i, j int) bool { return regions[i].Name < regions[j].Name })
	if limit > 0 && len(regions) > limit {
		regions = regions[:limit]
	}

	uploaded := 0
	for _, region := range regions {
		if err := ctx.Err(); err != nil {
			return err
		}
		vehicles := cleaned[region.Name]
		if len(vehicles) == 0 {
			continue
		}
		if err := writer.WriteRegion(ctx, result.Year, region, vehicles); err != nil {
			a.logger.Error("Region '%s' upload failed: %v", region.Name, err)
			continue
		}
		uploaded++
	}

	if err := writer.WriteSummary(ctx, nil); err != nil {
		return err
	}
	a.logger.Info("Uploaded %d/%d regions to %s", uploaded, len(regions), writer.URL())
	return nil
}
