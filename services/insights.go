package services

import (
	"sort"
	"time"

	"ev-subsidy-scraper/models"
	"ev-subsidy-scraper/utils"
)

// DatasetSource is the provenance string stamped into processed datasets
const DatasetSource = "환경부 전기차 보조금 데이터"

// DefaultRegionSummary is a hand-maintained average for a province or metro
// used until detail data for it has been scraped
type DefaultRegionSummary struct {
	Avg, Max, Min int
	Description   string
}

// MajorCitiesDefault seeds every processed dataset
var MajorCitiesDefault = map[string]DefaultRegionSummary{
	"서울특별시":   {400, 450, 350, "수도권"},
	"부산광역시":   {300, 350, 250, "경남권"},
	"대구광역시":   {350, 400, 300, "경북권"},
	"인천광역시":   {350, 400, 300, "수도권"},
	"광주광역시":   {380, 450, 330, "전남권"},
	"대전광역시":   {360, 400, 320, "충청권"},
	"울산광역시":   {350, 400, 300, "경남권"},
	"세종특별자치시": {400, 450, 350, "충청권"},
	"경기도":     {300, 400, 200, "수도권"},
	"강원도":     {450, 500, 400, "강원권"},
	"충청북도":    {400, 450, 350, "충청권"},
	"충청남도":    {400, 450, 350, "충청권"},
	"전라북도":    {420, 500, 350, "전북권"},
	"전라남도":    {450, 500, 400, "전남권"},
	"경상북도":    {400, 450, 350, "경북권"},
	"경상남도":    {380, 450, 330, "경남권"},
}

// InsightService computes per-region statistics and processed datasets
type InsightService struct {
	classifier *Classifier
	logger     *utils.Logger
	now        func() time.Time
}

// NewInsightService creates a new InsightService
func NewInsightService(classifier *Classifier, logger *utils.Logger) *InsightService {
	if classifier == nil {
		classifier = NewClassifier(nil)
	}
	return &InsightService{classifier: classifier, logger: logger, now: time.Now}
}

// Summarize aggregates the known, non-zero local subsidies of one region.
// ok is false when no vehicle qualifies.
func (s *InsightService) Summarize(region string, vehicles []models.Vehicle) (models.RegionSummary, bool) {
	summary := models.RegionSummary{Region: region, VehicleCount: len(vehicles)}

	sum, n := 0, 0
	for _, v := range vehicles {
		if v.LocalSubsidy == nil || *v.LocalSubsidy == 0 {
			continue
		}
		local := *v.LocalSubsidy
		if n == 0 || local > summary.MaxSubsidy {
			summary.MaxSubsidy = local
		}
		if n == 0 || local < summary.MinSubsidy {
			summary.MinSubsidy = local
		}
		sum += local
		n++
	}
	if n == 0 {
		return summary, false
	}

	summary.AvgSubsidy = sum / n
	summary.HasDetailData = true
	return summary, true
}

// BuildDataset turns cleaned per-region vehicles into the processed dataset.
// Default provinces are always present; scraped summaries replace them.
func (s *InsightService) BuildDataset(year int, regions map[string][]models.Vehicle) *models.Dataset {
	summaries := make(map[string]models.RegionSummary, len(MajorCitiesDefault)+len(regions))
	for name, d := range MajorCitiesDefault {
		summaries[name] = models.RegionSummary{
			Region:      name,
			AvgSubsidy:  d.Avg,
			MaxSubsidy:  d.Max,
			MinSubsidy:  d.Min,
			Description: d.Description,
		}
	}

	catalog := make(map[string]models.CatalogVehicle)
	manufacturers := make(map[string]bool)
	byRegion := make(map[string]map[string]int)

	for _, name := range sortedKeys(regions) {
		vehicles := regions[name]
		if len(vehicles) == 0 {
			continue
		}

		for _, v := range vehicles {
			if v.NationalSubsidy == nil || v.LocalSubsidy == nil {
				s.logger.Debug("Skipping %s - %s: subsidy unknown", name, v.ModelDetail)
				continue
			}
			key := v.Key()
			if _, exists := catalog[key]; !exists {
				catalog[key] = models.CatalogVehicle{
					ID:              key,
					Manufacturer:    v.Manufacturer,
					Model:           v.ModelDetail,
					Category:        v.Model,
					NationalSubsidy: *v.NationalSubsidy,
				}
			}
			if byRegion[name] == nil {
				byRegion[name] = make(map[string]int)
			}
			byRegion[name][key] = *v.LocalSubsidy
			manufacturers[v.Manufacturer] = true
		}

		summary, ok := s.Summarize(name, vehicles)
		if !ok {
			continue
		}
		summary.ParentRegion = s.classifier.Parent(name)
		summaries[name] = summary
	}

	dataset := &models.Dataset{
		Vehicles:               make([]models.CatalogVehicle, 0, len(catalog)),
		Manufacturers:          make([]string, 0, len(manufacturers)),
		Regions:                make([]models.RegionSummary, 0, len(summaries)),
		VehicleSubsidyByRegion: byRegion,
	}
	for _, v := range catalog {
		dataset.Vehicles = append(dataset.Vehicles, v)
	}
	sort.Slice(dataset.Vehicles, func(i, j int) bool {
		a, b := dataset.Vehicles[i], dataset.Vehicles[j]
		if a.Manufacturer != b.Manufacturer {
			return a.Manufacturer < b.Manufacturer
		}
		return a.Model < b.Model
	})

	for m := range manufacturers {
		dataset.Manufacturers = append(dataset.Manufacturers, m)
	}
	sort.Strings(dataset.Manufacturers)

	majorCities := 0
	for _, r := range summaries {
		dataset.Regions = append(dataset.Regions, r)
		if _, ok := MajorCitiesDefault[r.Region]; ok {
			majorCities++
		}
	}
	sort.Slice(dataset.Regions, func(i, j int) bool {
		a, b := dataset.Regions[i], dataset.Regions[j]
		_, aMajor := MajorCitiesDefault[a.Region]
		_, bMajor := MajorCitiesDefault[b.Region]
		if aMajor != bMajor {
			return aMajor
		}
		if a.AvgSubsidy != b.AvgSubsidy {
			return a.AvgSubsidy > b.AvgSubsidy
		}
		return a.Region < b.Region
	})

	dataset.Metadata = models.DatasetMetadata{
		LastUpdated:        s.now().Format(time.RFC3339),
		Source:             DatasetSource,
		Year:               year,
		TotalVehicles:      len(dataset.Vehicles),
		TotalManufacturers: len(dataset.Manufacturers),
		TotalRegions:       len(dataset.Regions),
		MajorCities:        majorCities,
	}

	s.logger.Info("Dataset built: %d vehicles, %d manufacturers, %d regions",
		len(dataset.Vehicles), len(dataset.Manufacturers), len(dataset.Regions))
	return dataset
}

// Generate computes the terminal report for a processed dataset
func (s *InsightService) Generate(dataset *models.Dataset, regions map[string][]models.Vehicle) *models.InsightReport {
	report := &models.InsightReport{
		Year:            dataset.Metadata.Year,
		TotalRegions:    len(regions),
		VehiclesByMaker: make(map[string]int),
	}

	if len(regions) == 0 {
		s.logger.Warn("No regions to generate insights from")
		return report
	}

	for _, name := range sortedKeys(regions) {
		vehicles := regions[name]
		report.TotalVehicles += len(vehicles)
		for _, v := range vehicles {
			report.VehiclesByMaker[v.Manufacturer]++
			if v.Recovered {
				report.RecoveredRows++
			}
		}
	}

	sum, n := 0, 0
	var detailed []models.RegionSummary
	for _, r := range dataset.Regions {
		if !r.HasDetailData {
			report.RegionsWithoutDetail = append(report.RegionsWithoutDetail, r.Region)
			continue
		}
		detailed = append(detailed, r)
		sum += r.AvgSubsidy
		n++
	}
	if n > 0 {
		report.AverageLocalSubsidy = sum / n
	}

	// Top 5 regions by average local subsidy
	sort.SliceStable(detailed, func(i, j int) bool {
		return detailed[i].AvgSubsidy > detailed[j].AvgSubsidy
	})
	maxTop := 5
	if len(detailed) < maxTop {
		maxTop = len(detailed)
	}
	report.TopRegions = detailed[:maxTop]

	return report
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
