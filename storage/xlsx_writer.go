package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"ev-subsidy-scraper/models"
	"ev-subsidy-scraper/utils"
)

// XLSXWriter writes a workbook laid out like the Google spreadsheet:
// a 요약 sheet followed by one sheet per region
type XLSXWriter struct {
	dir    string
	logger *utils.Logger
	now    func() time.Time
}

// NewXLSXWriter creates a new XLSXWriter
func NewXLSXWriter(dir string, logger *utils.Logger) *XLSXWriter {
	return &XLSXWriter{dir: dir, logger: logger, now: time.Now}
}

// Write saves {dir}/{year}.xlsx and returns its path
func (w *XLSXWriter) Write(year int, regions map[string][]models.Vehicle) (string, error) {
	if len(regions) == 0 {
		return "", fmt.Errorf("no regions to write")
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SummarySheet); err != nil {
		return "", fmt.Errorf("failed to rename summary sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create header style: %w", err)
	}

	now := w.now()
	if err := writeSheet(f, SummarySheet, summaryRows(regions, now), header); err != nil {
		return "", err
	}

	names := make([]string, 0, len(regions))
	for name := range regions {
		names = append(names, name)
	}
	sort.Strings(names)

	used := map[string]bool{SummarySheet: true}
	for _, name := range names {
		sheet := xlsxSheetName(RegionSheetTitle(year, name))
		if used[sheet] {
			w.logger.Warn("Duplicate sheet name %q, skipping region %s", sheet, name)
			continue
		}
		used[sheet] = true

		if _, err := f.NewSheet(sheet); err != nil {
			w.logger.Warn("Failed to add sheet %s: %v", sheet, err)
			continue
		}
		if err := writeSheet(f, sheet, regionRows(regions[name], now), header); err != nil {
			w.logger.Warn("Failed to fill sheet %s: %v", sheet, err)
		}
	}
	f.SetActiveSheet(0)

	path := filepath.Join(w.dir, fmt.Sprintf("%d.xlsx", year))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	w.logger.Info("Saved workbook with %d region sheets to %s", len(used)-1, path)
	return path, nil
}

// writeSheet fills rows from A1 and styles the first row
func writeSheet(f *excelize.File, sheet string, rows [][]interface{}, style int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+1, sheet, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("failed to style header of %s: %w", sheet, err)
	}
	return f.SetColWidth(sheet, "A", "G", 16)
}
