package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"ev-subsidy-scraper/models"
	"ev-subsidy-scraper/utils"
)

const utf8BOM = "\xEF\xBB\xBF"

// VehicleCSVHeader is the column layout of the per-year CSV
var VehicleCSVHeader = []string{
	"데이터연도", "지역", "광역시도", "제조사", "차종", "모델명",
	"국비보조금(만원)", "지방비보조금(만원)", "총보조금(만원)", "수집일시",
}

// CSVWriter handles writing subsidy rows to CSV files
type CSVWriter struct {
	dir    string
	rank   func(category string) int
	logger *utils.Logger
	now    func() time.Time
}

// NewCSVWriter creates a new CSVWriter; rank orders region categories
func NewCSVWriter(dir string, rank func(string) int, logger *utils.Logger) *CSVWriter {
	return &CSVWriter{dir: dir, rank: rank, logger: logger, now: time.Now}
}

type csvRow struct {
	category string
	rank     int
	region   string
	vehicle  models.RawVehicle
}

// createCSV opens path with a UTF-8 BOM so spreadsheet apps detect the encoding
func createCSV(path string) (*os.File, *csv.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create CSV file: %w", err)
	}
	if _, err := file.WriteString(utf8BOM); err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to write BOM: %w", err)
	}
	return file, csv.NewWriter(file), nil
}

// WriteVehicles writes {dir}/{year}.csv from a crawl result, ordered by
// category rank, region, manufacturer and model
func (w *CSVWriter) WriteVehicles(result *models.CrawlResult) (string, error) {
	categories := make(map[string]string, len(result.Regions))
	for _, r := range result.Regions {
		categories[r.Name] = r.Category
	}

	var rows []csvRow
	for region, vehicles := range result.Data {
		category := categories[region]
		if category == "" {
			category = "기타"
		}
		for _, v := range vehicles {
			rows = append(rows, csvRow{category: category, rank: w.rank(category), region: region, vehicle: v})
		}
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("no vehicle rows to write")
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		if a.region != b.region {
			return a.region < b.region
		}
		if a.vehicle.Manufacturer != b.vehicle.Manufacturer {
			return a.vehicle.Manufacturer < b.vehicle.Manufacturer
		}
		return a.vehicle.Model < b.vehicle.Model
	})

	path := filepath.Join(w.dir, fmt.Sprintf("%d.csv", result.Year))
	file, writer, err := createCSV(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := writer.Write(VehicleCSVHeader); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}

	crawledAt := w.now().Format("2006-01-02 15:04:05")
	year := strconv.Itoa(result.Year)
	for _, r := range rows {
		record := []string{
			year,
			r.region,
			r.category,
			r.vehicle.Manufacturer,
			r.vehicle.Model,
			r.vehicle.ModelDetail,
			r.vehicle.NationalSubsidy,
			r.vehicle.LocalSubsidy,
			r.vehicle.TotalSubsidy,
			crawledAt,
		}
		if err := writer.Write(record); err != nil {
			w.logger.Error("Failed to write CSV row for '%s': %v", r.vehicle.ModelDetail, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}

	w.logger.Info("Vehicle rows written to: %s (%d rows)", path, len(rows))
	return path, nil
}

// NationalRecords renders national rows in CSV layout
func NationalRecords(rows []models.NationalSubsidy) [][]string {
	out := [][]string{{"차량구분", "제조사", "모델명", "국고보조금"}}
	for _, r := range rows {
		out = append(out, []string{r.Category, r.Manufacturer, r.Model, strconv.Itoa(r.Amount)})
	}
	return out
}

// LocalRecords renders local rows in CSV layout
func LocalRecords(rows []models.LocalSubsidy) [][]string {
	out := [][]string{{"지역", "전기차보조금"}}
	for _, r := range rows {
		out = append(out, []string{r.Region, strconv.Itoa(r.Amount)})
	}
	return out
}

// WriteRecords writes records (header first) to {dir}/{name}
func (w *CSVWriter) WriteRecords(name string, records [][]string) (string, error) {
	path := filepath.Join(w.dir, name)
	file, writer, err := createCSV(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := writer.WriteAll(records); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	w.logger.Info("Written %s (%d rows)", path, len(records)-1)
	return path, nil
}
