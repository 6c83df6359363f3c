package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ev-subsidy-scraper/models"
	"ev-subsidy-scraper/utils"
)

// JSONWriter writes raw dumps and processed datasets
type JSONWriter struct {
	dir    string
	logger *utils.Logger
	now    func() time.Time
}

// NewJSONWriter creates a writer rooted at dir
func NewJSONWriter(dir string, logger *utils.Logger) *JSONWriter {
	return &JSONWriter{dir: dir, logger: logger, now: time.Now}
}

func writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteRaw writes {output_dir}/{year}.json with crawl_info and the raw rows
func (w *JSONWriter) WriteRaw(result *models.CrawlResult, backend string) (string, error) {
	path := filepath.Join(w.dir, fmt.Sprintf("%d.json", result.Year))
	dump := models.RawDump{
		CrawlInfo: models.CrawlInfo{
			CrawlDate:     w.now().Format("2006-01-02 15:04:05"),
			DataYear:      result.Year,
			TotalRegions:  len(result.Data),
			TotalVehicles: result.TotalVehicles(),
			Backend:       backend,
		},
		Data: result.Data,
	}
	if err := writeJSON(path, dump); err != nil {
		return "", err
	}
	w.logger.Info("Raw dump written to: %s (%d regions)", path, len(result.Data))
	return path, nil
}

// WriteDataset writes the complete and light processed datasets and returns both paths
func (w *JSONWriter) WriteDataset(ds *models.Dataset) ([]string, error) {
	stamp := w.now().Format("20060102")
	complete := filepath.Join(w.dir, fmt.Sprintf("ev_complete_data_%s.json", stamp))
	light := filepath.Join(w.dir, fmt.Sprintf("ev_data_final_%s.json", stamp))

	if err := writeJSON(complete, ds); err != nil {
		return nil, err
	}
	if err := writeJSON(light, ds.Light()); err != nil {
		return nil, err
	}
	w.logger.Info("Processed datasets written to: %s, %s", complete, light)
	return []string{complete, light}, nil
}

// LoadRaw reads a raw dump. Bare {region: [rows]} files without crawl_info are accepted too.
func LoadRaw(path string) (*models.RawDump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var dump models.RawDump
	if err := json.Unmarshal(data, &dump); err == nil && dump.Data != nil {
		return &dump, nil
	}

	var bare map[string][]models.RawVehicle
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	dump = models.RawDump{Data: bare}
	dump.CrawlInfo.TotalRegions = len(bare)
	for _, rows := range bare {
		dump.CrawlInfo.TotalVehicles += len(rows)
	}
	return &dump, nil
}
