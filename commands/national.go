package commands

import (
	"context"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"ev-subsidy-scraper/scraper/evportal"
	"ev-subsidy-scraper/storage"
)

const (
	nationalCSV = "national_subsidy.csv"
	localCSV    = "local_subsidy.csv"
)

var nationalBackend string

var nationalCmd = &cobra.Command{
	Use:   "national",
	Short: "Scrape the national and local subsidy overview tables",
	Long: "Scrape the national (국고) and local (지자체) overview tables. The CSVs are rewritten " +
		"only when their content changed since the previous run, tracked in metadata.json.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := current.runNational(cmd.Context(), nationalBackend)
		return err
	},
}

func init() {
	nationalCmd.Flags().StringVar(&nationalBackend, "backend", "", "fetch backend: auto, resty, colly, chromedp, rod")
	rootCmd.AddCommand(nationalCmd)
}

// runNational returns the CSV files it rewrote
func (a *app) runNational(ctx context.Context, backend string) ([]string, error) {
	f, err := a.newFetcher(backend)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	parser := evportal.NewNationalParser(a.cfg.ElectricKeywords, a.logger)
	tables, err := evportal.NewScraper(f, a.cfg, a.logger).CrawlNational(ctx, parser)
	if err != nil {
		return nil, err
	}

	store := storage.NewMetadataStore(a.cfg.OutputDir, a.logger)
	meta, err := store.Load()
	if err != nil {
		return nil, err
	}

	csvWriter := a.newCSVWriter()
	var written []string
	for _, t := range []struct {
		name    string
		records [][]string
	}{
		{nationalCSV, storage.NationalRecords(tables.National)},
		{localCSV, storage.LocalRecords(tables.Local)},
	} {
		if len(t.records) <= 1 {
			a.logger.Warn("%s: no rows scraped, keeping the previous file", t.name)
			continue
		}
		if !meta.Changed(t.name, t.records) {
			a.logger.Info("%s unchanged, skipping rewrite", t.name)
			continue
		}
		path, err := csvWriter.WriteRecords(t.name, t.records)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}

	db, err := a.newSQLWriter(ctx)
	if err != nil {
		return written, err
	}
	if db != nil {
		defer db.Close()
		if err := db.WriteNational(ctx, a.cfg.DataYear, tables.National); err != nil {
			a.logger.Error("Failed to store national rows: %v", err)
		}
	}

	if err := store.Save(meta, f.Name()); err != nil {
		return written, err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(a.out)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Table", "Rows", "Recovered", "Rewritten"})
	recovered := 0
	for _, r := range tables.National {
		if r.Recovered {
			recovered++
		}
	}
	tw.AppendRow(table.Row{"국고 (national)", len(tables.National), recovered, contains(written, nationalCSV)})
	tw.AppendRow(table.Row{"지자체 (local)", len(tables.Local), "-", contains(written, localCSV)})
	tw.Render()

	return written, nil
}

func contains(paths []string, name string) bool {
	for _, p := range paths {
		if filepath.Base(p) == name {
			return true
		}
	}
	return false
}
