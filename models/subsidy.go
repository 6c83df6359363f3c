package models

import "time"

// Region is one administrative unit the portal accepts as local_cd
type Region struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// RawVehicle represents unprocessed cells scraped from a region detail table.
// Amounts stay as the portal printed them, e.g. "1,234" or "200~484".
type RawVehicle struct {
	Manufacturer    string    `json:"manufacturer"`
	Model           string    `json:"model"`
	ModelDetail     string    `json:"model_detail,omitempty"`
	NationalSubsidy string    `json:"national_subsidy,omitempty"`
	LocalSubsidy    string    `json:"local_subsidy,omitempty"`
	TotalSubsidy    string    `json:"total_subsidy,omitempty"`
	Recovered       bool      `json:"recovered,omitempty"`
	ScrapedAt       time.Time `json:"-"`
}

// Vehicle is a cleaned subsidy record. Nil amounts are unknown, not zero.
type Vehicle struct {
	Manufacturer    string    `json:"manufacturer"`
	Model           string    `json:"model"`
	ModelDetail     string    `json:"model_detail"`
	NationalSubsidy *int      `json:"national_subsidy,omitempty"`
	LocalSubsidy    *int      `json:"local_subsidy,omitempty"`
	TotalSubsidy    *int      `json:"total_subsidy,omitempty"`
	Recovered       bool      `json:"recovered,omitempty"`
	ScrapedAt       time.Time `json:"-"`
}

// Key is the identity of a vehicle across regions
func (v Vehicle) Key() string {
	return v.Manufacturer + "_" + v.ModelDetail
}

// IntPtr is a small helper for optional amounts
func IntPtr(n int) *int {
	return &n
}

// CrawlInfo is the metadata header of a raw dump
type CrawlInfo struct {
	CrawlDate     string `json:"crawl_date"`
	DataYear      int    `json:"data_year"`
	TotalRegions  int    `json:"total_regions"`
	TotalVehicles int    `json:"total_vehicles"`
	Backend       string `json:"backend,omitempty"`
}

// CrawlResult holds every region scraped in one run, in crawl order
type CrawlResult struct {
	Year    int
	Regions []Region
	Data    map[string][]RawVehicle

	Succeeded int
	NoData    int
	Failed    int
	Skipped   int
}

// NewCrawlResult creates an empty result for year
func NewCrawlResult(year int) *CrawlResult {
	return &CrawlResult{Year: year, Data: make(map[string][]RawVehicle)}
}

// Add records the vehicles scraped for region and returns the key they were
// stored under. Two regions sharing a name (고성군) are told apart by category,
// and Regions always holds the key as Name.
func (r *CrawlResult) Add(region Region, vehicles []RawVehicle) string {
	key := region.Name
	for _, known := range r.Regions {
		if known.Name == region.Name && known.Code != region.Code && region.Category != "" {
			key = region.Name + "(" + region.Category + ")"
			break
		}
	}
	if _, exists := r.Data[key]; !exists {
		region.Name = key
		r.Regions = append(r.Regions, region)
	}
	r.Data[key] = vehicles
	return key
}

// TotalVehicles counts vehicles across all regions
func (r *CrawlResult) TotalVehicles() int {
	total := 0
	for _, vehicles := range r.Data {
		total += len(vehicles)
	}
	return total
}

// RawDump is the on-disk format of a crawl: {"crawl_info": ..., "data": {region: [...]}}
type RawDump struct {
	CrawlInfo CrawlInfo               `json:"crawl_info"`
	Data      map[string][]RawVehicle `json:"data"`
}

// RegionSummary is the per-region aggregate of local subsidies
type RegionSummary struct {
	Region        string `json:"region"`
	AvgSubsidy    int    `json:"avgSubsidy"`
	MaxSubsidy    int    `json:"maxSubsidy"`
	MinSubsidy    int    `json:"minSubsidy"`
	Description   string `json:"description,omitempty"`
	VehicleCount  int    `json:"vehicleCount"`
	HasDetailData bool   `json:"hasDetailData"`
	ParentRegion  string `json:"parentRegion,omitempty"`
}

// CatalogVehicle is one entry of the deduplicated vehicle list
type CatalogVehicle struct {
	ID              string `json:"id"`
	Manufacturer    string `json:"manufacturer"`
	Model           string `json:"model"`
	Category        string `json:"category"`
	NationalSubsidy int    `json:"nationalSubsidy"`
}

// DatasetMetadata describes a processed dataset
type DatasetMetadata struct {
	LastUpdated        string `json:"lastUpdated"`
	Source             string `json:"source"`
	Year               int    `json:"year"`
	TotalVehicles      int    `json:"totalVehicles"`
	TotalManufacturers int    `json:"totalManufacturers"`
	TotalRegions       int    `json:"totalRegions"`
	MajorCities        int    `json:"majorCities"`
}

// Dataset is the processed, web-facing view of a crawl
type Dataset struct {
	Metadata               DatasetMetadata           `json:"metadata"`
	Vehicles               []CatalogVehicle          `json:"vehicles"`
	Manufacturers          []string                  `json:"manufacturers"`
	Regions                []RegionSummary           `json:"regions"`
	VehicleSubsidyByRegion map[string]map[string]int `json:"vehicleSubsidyByRegion,omitempty"`
}

// Light drops the per-region vehicle matrix
func (d *Dataset) Light() *Dataset {
	light := *d
	light.VehicleSubsidyByRegion = nil
	return &light
}

// NationalSubsidy is one row of the national (국고) subsidy table
type NationalSubsidy struct {
	Category     string `json:"차량구분"`
	Manufacturer string `json:"제조사"`
	Model        string `json:"모델명"`
	Amount       int    `json:"국고보조금"`
	Recovered    bool   `json:"recovered,omitempty"`
}

// LocalSubsidy is one row of the local (지자체) subsidy table
type LocalSubsidy struct {
	Region string `json:"지역"`
	Amount int    `json:"전기차보조금"`
}

// InsightReport holds computed analytics for the terminal report
type InsightReport struct {
	Year                 int
	TotalRegions         int
	TotalVehicles        int
	RecoveredRows        int
	AverageLocalSubsidy  int
	TopRegions           []RegionSummary
	VehiclesByMaker      map[string]int
	RegionsWithoutDetail []string
}
