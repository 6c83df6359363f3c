package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ev-subsidy-scraper/models"
	"ev-subsidy-scraper/utils"
)

var (
	amountRegex    = regexp.MustCompile(`\d+(?:\.\d+)?`)
	spaceRegex     = regexp.MustCompile(`\s+`)
	amountStripper = strings.NewReplacer(`"`, "", "'", "", ",", "")
)

// placeholders the portal prints instead of an amount
var amountPlaceholders = map[string]bool{"": true, "-": true, "미지원": true}

// ParseAmount extracts a 만원 amount from strings like "1,234", "\"600\"" or "200~484".
// Ranges yield their lower bound; placeholders and text without digits yield ok=false.
func ParseAmount(raw string) (int, bool) {
	s := strings.TrimSpace(amountStripper.Replace(raw))
	if amountPlaceholders[s] {
		return 0, false
	}

	if idx := strings.Index(s, "~"); idx != -1 {
		s = s[:idx]
	}

	match := amountRegex.FindString(s)
	if match == "" {
		return 0, false
	}
	val, err := strconv.ParseFloat(match, 64)
	if err != nil || val > math.MaxInt32 {
		return 0, false
	}
	return int(val), true
}

func parseAmountPtr(raw string) *int {
	if n, ok := ParseAmount(raw); ok {
		return models.IntPtr(n)
	}
	return nil
}

// normalizeText collapses runs of whitespace inside a cell
func normalizeText(s string) string {
	return strings.TrimSpace(spaceRegex.ReplaceAllString(s, " "))
}

// DataCleaner normalizes raw scraped rows into Vehicle records
type DataCleaner struct {
	logger *utils.Logger
}

// NewDataCleaner creates a new DataCleaner
func NewDataCleaner(logger *utils.Logger) *DataCleaner {
	return &DataCleaner{logger: logger}
}

// Clean converts one region's raw rows to vehicles. A later row with the same
// manufacturer and trim replaces the earlier one.
func (c *DataCleaner) Clean(raw []models.RawVehicle) []models.Vehicle {
	keys := utils.NewKeySet()
	index := make(map[string]int)
	cleaned := make([]models.Vehicle, 0, len(raw))

	for _, r := range raw {
		v := models.Vehicle{
			Manufacturer:    normalizeText(r.Manufacturer),
			Model:           normalizeText(r.Model),
			ModelDetail:     normalizeText(r.ModelDetail),
			NationalSubsidy: parseAmountPtr(r.NationalSubsidy),
			LocalSubsidy:    parseAmountPtr(r.LocalSubsidy),
			TotalSubsidy:    parseAmountPtr(r.TotalSubsidy),
			Recovered:       r.Recovered,
			ScrapedAt:       r.ScrapedAt,
		}
		if v.Manufacturer == "" && v.Model == "" {
			c.logger.Debug("Skipping row without manufacturer and model")
			continue
		}
		if v.ScrapedAt.IsZero() {
			v.ScrapedAt = time.Now()
		}

		key := v.Key()
		if !keys.Add(key) {
			c.logger.Debug("Duplicate vehicle %s, keeping latest", key)
			cleaned[index[key]] = v
			continue
		}
		index[key] = len(cleaned)
		cleaned = append(cleaned, v)
	}

	c.logger.Debug("Cleaned %d vehicles from %d raw rows", len(cleaned), len(raw))
	return cleaned
}

// CleanAll cleans every region of a crawl result
func (c *DataCleaner) CleanAll(result *models.CrawlResult) map[string][]models.Vehicle {
	out := make(map[string][]models.Vehicle, len(result.Data))
	for name, raw := range result.Data {
		out[name] = c.Clean(raw)
	}
	return out
}
