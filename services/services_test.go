package services

import (
	"bytes"
	"testing"

	"ev-subsidy-scraper/models"
	"ev-subsidy-scraper/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"1,234", 1234, true},
		{"1234", 1234, true},
		{" \"600\" ", 600, true},
		{"'400'", 400, true},
		{"200~484", 200, true},
		{"1,200 ~ 1,500", 1200, true},
		{"350.7", 350, true},
		{"약 300만원", 300, true},
		{"-", 0, false},
		{"미지원", 0, false},
		{"", 0, false},
		{"   ", 0, false},
		{"해당없음", 0, false},
		{`1,2"34`, 1234, true},
		{`"1'000"`, 1000, true},
		{"99999999999999999999999", 0, false},
		{"2147483648", 0, false},
		{"2147483647", 2147483647, true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseAmount(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseAmountCommaInsensitive(t *testing.T) {
	for _, s := range []string{"1,000", "12,345", "1,234,567"} {
		withComma, ok1 := ParseAmount(s)
		without, ok2 := ParseAmount(removeCommas(s))
		assert.True(t, ok1)
		assert.True(t, ok2)
		assert.Equal(t, without, withComma)
	}
}

func removeCommas(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r != ',' {
			out = append(out, r)
		}
	}
	return string(out)
}

func TestClassifierParent(t *testing.T) {
	c := NewClassifier(nil)
	assert.Equal(t, "경기도", c.Parent("가평군"))
	assert.Equal(t, "충청남도", c.Parent("천안시"))
	assert.Equal(t, "전라남도", c.Parent("목포시"))
	assert.Equal(t, "서울특별시", c.Parent("서울특별시"))
	assert.Equal(t, "증평군", c.Parent("증평군"))
}

func TestClassifierOverrides(t *testing.T) {
	c := NewClassifier(map[string]string{"증평군": "충청북도", "천안시": "테스트도"})
	assert.Equal(t, "충청북도", c.Parent("증평군"))
	assert.Equal(t, "테스트도", c.Parent("천안시"))
	assert.Equal(t, "경기도", c.Parent("양평군"))
}

func TestDataCleanerClean(t *testing.T) {
	cleaner := NewDataCleaner(utils.Discard())
	raw := []models.RawVehicle{
		{Manufacturer: " 현대자동차 ", Model: "EV", ModelDetail: "아이오닉5  롱레인지", NationalSubsidy: "600", LocalSubsidy: "400", TotalSubsidy: "1,000"},
		{Manufacturer: "", Model: "", ModelDetail: "orphan"},
		{Manufacturer: "기아", Model: "EV", ModelDetail: "EV6", NationalSubsidy: "-", LocalSubsidy: "미지원"},
		{Manufacturer: "현대자동차", Model: "EV", ModelDetail: "아이오닉5 롱레인지", NationalSubsidy: "650", LocalSubsidy: "450"},
	}

	got := cleaner.Clean(raw)
	require.Len(t, got, 2)

	assert.Equal(t, "현대자동차", got[0].Manufacturer)
	assert.Equal(t, "아이오닉5 롱레인지", got[0].ModelDetail)
	require.NotNil(t, got[0].NationalSubsidy)
	assert.Equal(t, 650, *got[0].NationalSubsidy)
	assert.Nil(t, got[0].TotalSubsidy)
	assert.False(t, got[0].ScrapedAt.IsZero())

	assert.Nil(t, got[1].NationalSubsidy)
	assert.Nil(t, got[1].LocalSubsidy)
}

func vehicle(maker, detail string, national, local int) models.Vehicle {
	return models.Vehicle{
		Manufacturer:    maker,
		Model:           "EV",
		ModelDetail:     detail,
		NationalSubsidy: models.IntPtr(national),
		LocalSubsidy:    models.IntPtr(local),
	}
}

func TestSummarize(t *testing.T) {
	svc := NewInsightService(nil, utils.Discard())

	summary, ok := svc.Summarize("가평군", []models.Vehicle{
		vehicle("현대자동차", "a", 600, 400),
		vehicle("기아", "b", 600, 400),
		vehicle("테슬라", "c", 300, 300),
		vehicle("르노", "d", 500, 0),
		{Manufacturer: "BYD", ModelDetail: "e"},
	})
	require.True(t, ok)
	assert.Equal(t, 366, summary.AvgSubsidy)
	assert.Equal(t, 400, summary.MaxSubsidy)
	assert.Equal(t, 300, summary.MinSubsidy)
	assert.Equal(t, 5, summary.VehicleCount)
	assert.True(t, summary.HasDetailData)

	_, ok = svc.Summarize("없음", []models.Vehicle{vehicle("기아", "x", 500, 0)})
	assert.False(t, ok)
}

func TestBuildDataset(t *testing.T) {
	svc := NewInsightService(NewClassifier(nil), utils.Discard())
	regions := map[string][]models.Vehicle{
		"가평군": {
			vehicle("현대자동차", "아이오닉5", 600, 500),
			vehicle("기아", "EV6", 580, 480),
		},
		"서울특별시": {
			vehicle("현대자동차", "아이오닉5", 600, 180),
		},
		"빈지역": {
			vehicle("기아", "EV6", 580, 0),
		},
		"empty": nil,
	}

	ds := svc.BuildDataset(2025, regions)

	assert.Equal(t, 2025, ds.Metadata.Year)
	assert.Equal(t, DatasetSource, ds.Metadata.Source)
	assert.Equal(t, []string{"기아", "현대자동차"}, ds.Manufacturers)
	require.Len(t, ds.Vehicles, 2)
	assert.Equal(t, "기아_EV6", ds.Vehicles[0].ID)
	assert.Equal(t, "EV", ds.Vehicles[0].Category)

	// 16 defaults plus 가평군; 빈지역 has no qualifying vehicles
	assert.Equal(t, 17, ds.Metadata.TotalRegions)
	assert.Equal(t, 16, ds.Metadata.MajorCities)

	var seoul, gapyeong *models.RegionSummary
	for i := range ds.Regions {
		switch ds.Regions[i].Region {
		case "서울특별시":
			seoul = &ds.Regions[i]
		case "가평군":
			gapyeong = &ds.Regions[i]
		}
	}
	require.NotNil(t, seoul)
	require.NotNil(t, gapyeong)
	assert.True(t, seoul.HasDetailData)
	assert.Equal(t, 180, seoul.AvgSubsidy)
	assert.Equal(t, "경기도", gapyeong.ParentRegion)
	assert.Equal(t, 490, gapyeong.AvgSubsidy)

	// defaults first, then by average descending
	assert.Equal(t, "가평군", ds.Regions[len(ds.Regions)-1].Region)
	assert.Equal(t, "강원도", ds.Regions[0].Region)

	assert.Equal(t, 0, ds.VehicleSubsidyByRegion["빈지역"]["기아_EV6"])
	assert.Equal(t, 500, ds.VehicleSubsidyByRegion["가평군"]["현대자동차_아이오닉5"])
	assert.Nil(t, ds.Light().VehicleSubsidyByRegion)
	assert.NotNil(t, ds.VehicleSubsidyByRegion)
}

func TestGenerateAndPrint(t *testing.T) {
	svc := NewInsightService(nil, utils.Discard())
	regions := map[string][]models.Vehicle{
		"가평군": {vehicle("현대자동차", "a", 600, 500)},
		"포천시": {vehicle("기아", "b", 600, 300), {Manufacturer: "기아", ModelDetail: "c", Recovered: true}},
	}
	ds := svc.BuildDataset(2025, regions)
	report := svc.Generate(ds, regions)

	assert.Equal(t, 2, report.TotalRegions)
	assert.Equal(t, 3, report.TotalVehicles)
	assert.Equal(t, 1, report.RecoveredRows)
	assert.Equal(t, 2, report.VehiclesByMaker["기아"])
	assert.Len(t, report.TopRegions, 2)
	assert.Equal(t, "가평군", report.TopRegions[0].Region)
	assert.Equal(t, 400, report.AverageLocalSubsidy)
	assert.Len(t, report.RegionsWithoutDetail, 16)

	var buf bytes.Buffer
	PrintInsightReport(&buf, report)
	assert.Contains(t, buf.String(), "EV SUBSIDY REPORT 2025")
	assert.Contains(t, buf.String(), "가평군")
}
