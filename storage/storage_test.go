package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ev-subsidy-scraper/models"
	"ev-subsidy-scraper/utils"
)

var fixedNow = func() time.Time { return time.Date(2025, 7, 12, 19, 10, 9, 0, time.Local) }

func sampleResult() *models.CrawlResult {
	result := models.NewCrawlResult(2025)
	result.Add(models.Region{Code: "4111", Name: "수원시", Category: "경기도"}, []models.RawVehicle{
		{Manufacturer: "기아", Model: "EV", ModelDetail: "EV6", NationalSubsidy: "580", LocalSubsidy: "300"},
	})
	result.Add(models.Region{Code: "1100", Name: "서울특별시", Category: "특별시"}, []models.RawVehicle{
		{Manufacturer: "현대자동차", Model: "EV", ModelDetail: "아이오닉5", NationalSubsidy: "600", LocalSubsidy: "400"},
		{Manufacturer: "기아", Model: "EV", ModelDetail: "EV3", NationalSubsidy: "560", LocalSubsidy: "150"},
	})
	result.Add(models.Region{Code: "9999", Name: "가상시"}, []models.RawVehicle{
		{Manufacturer: "테슬라", Model: "EV", ModelDetail: "Model Y"},
	})
	return result
}

func testRank(category string) int {
	order := map[string]int{"특별시": 0, "경기도": 1, "기타": 12}
	if r, ok := order[category]; ok {
		return r
	}
	return 13
}

func TestCSVWriterWriteVehicles(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, testRank, utils.Discard())
	w.now = fixedNow

	path, err := w.WriteVehicles(sampleResult())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2025.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte(utf8BOM)), "file must start with a UTF-8 BOM")

	records, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, VehicleCSVHeader, records[0])

	// 특별시 first, then 경기도, unknown category last as 기타
	assert.Equal(t, []string{"서울특별시", "기아"}, []string{records[1][1], records[1][3]})
	assert.Equal(t, []string{"서울특별시", "현대자동차"}, []string{records[2][1], records[2][3]})
	assert.Equal(t, "수원시", records[3][1])
	assert.Equal(t, []string{"가상시", "기타"}, records[4][1:3])
	assert.Equal(t, "2025-07-12 19:10:09", records[1][9])
}

func TestCSVWriterEmptyResult(t *testing.T) {
	w := NewCSVWriter(t.TempDir(), testRank, utils.Discard())
	_, err := w.WriteVehicles(models.NewCrawlResult(2025))
	assert.Error(t, err)
}

func TestJSONWriterRawAndLoad(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONWriter(dir, utils.Discard())
	w.now = fixedNow

	path, err := w.WriteRaw(sampleResult(), "resty")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"crawl_date": "2025-07-12 19:10:09"`)
	assert.Contains(t, string(data), `"아이오닉5"`)
	// unknown amounts are omitted, not written as empty strings
	assert.NotContains(t, string(data), `"local_subsidy": ""`)

	dump, err := LoadRaw(path)
	require.NoError(t, err)
	assert.Equal(t, 2025, dump.CrawlInfo.DataYear)
	assert.Equal(t, 3, dump.CrawlInfo.TotalRegions)
	assert.Equal(t, 4, dump.CrawlInfo.TotalVehicles)
	assert.Len(t, dump.Data["서울특별시"], 2)
}

func TestLoadRawBareFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bare.json")
	bare := `{"서울특별시": [{"manufacturer": "현대자동차", "model": "EV", "model_detail": "아이오닉5", "local_subsidy": "400"}]}`
	require.NoError(t, os.WriteFile(path, []byte(bare), 0644))

	dump, err := LoadRaw(path)
	require.NoError(t, err)
	assert.Equal(t, 1, dump.CrawlInfo.TotalRegions)
	assert.Equal(t, 1, dump.CrawlInfo.TotalVehicles)
	assert.Equal(t, "400", dump.Data["서울특별시"][0].LocalSubsidy)
}

func TestJSONWriterDatasetOmitsUnknownAmounts(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONWriter(dir, utils.Discard())
	w.now = fixedNow

	ds := &models.Dataset{
		Metadata: models.DatasetMetadata{Year: 2025},
		Regions:  []models.RegionSummary{{Region: "서울특별시", AvgSubsidy: 400}},
		VehicleSubsidyByRegion: map[string]map[string]int{
			"서울특별시": {"현대자동차_아이오닉5": 400},
		},
	}
	paths, err := w.WriteDataset(ds)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "ev_complete_data_20250712.json", filepath.Base(paths[0]))
	assert.Equal(t, "ev_data_final_20250712.json", filepath.Base(paths[1]))

	light, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.NotContains(t, string(light), "vehicleSubsidyByRegion")

	complete, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(complete), "vehicleSubsidyByRegion")
}

func TestMetadataChanged(t *testing.T) {
	dir := t.TempDir()
	store := NewMetadataStore(dir, utils.Discard())

	meta, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, meta.TotalRuns)

	records := NationalRecords([]models.NationalSubsidy{
		{Category: "승용", Manufacturer: "현대자동차", Model: "아이오닉5", Amount: 580},
	})
	assert.True(t, meta.Changed("national", records))
	assert.False(t, meta.Changed("national", records))

	require.NoError(t, store.Save(meta, "resty"))
	reloaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.TotalRuns)
	assert.Equal(t, "resty", reloaded.MethodUsed)
	assert.False(t, reloaded.Changed("national", records))

	records[1][3] = "600"
	assert.True(t, reloaded.Changed("national", records))
}

func TestCSVWriterWriteRecords(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, testRank, utils.Discard())

	path, err := w.WriteRecords("local_subsidy.csv", LocalRecords([]models.LocalSubsidy{{Region: "서울", Amount: 150}}))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, utf8BOM+"지역,전기차보조금\n서울,150\n", string(data))
}

func cleanedRegions() map[string][]models.Vehicle {
	return map[string][]models.Vehicle{
		"서울특별시": {
			{Manufacturer: "현대자동차", Model: "EV", ModelDetail: "아이오닉5", NationalSubsidy: models.IntPtr(600), LocalSubsidy: models.IntPtr(400), TotalSubsidy: models.IntPtr(1000)},
			{Manufacturer: "기아", Model: "EV", ModelDetail: "EV3", NationalSubsidy: models.IntPtr(560), LocalSubsidy: models.IntPtr(300)},
			{Manufacturer: "테슬라", Model: "EV", ModelDetail: "Model Y"},
		},
		"수원시": {
			{Manufacturer: "기아", Model: "EV", ModelDetail: "EV6", LocalSubsidy: models.IntPtr(250)},
		},
	}
}

func TestSummarizeSheetRowKnownAmountsOnly(t *testing.T) {
	row := SummarizeSheetRow("서울특별시", cleanedRegions()["서울특별시"])
	assert.Equal(t, SummaryRow{
		Region:       "서울특별시",
		VehicleCount: 3,
		AvgNational:  580,
		AvgLocal:     350,
		MaxLocal:     400,
		MinLocal:     300,
	}, row)

	empty := SummarizeSheetRow("없음", nil)
	assert.Equal(t, 0, empty.AvgLocal)
	assert.Equal(t, 0, empty.MinLocal)
}

func TestXLSXSheetName(t *testing.T) {
	assert.Equal(t, "2025 서울특별시", xlsxSheetName("2025 서울특별시"))
	assert.Equal(t, "a_b_c", xlsxSheetName("a/b:c"))
	assert.Len(t, []rune(xlsxSheetName("2025 "+strings.Repeat("가", 40))), 31)
}

func TestXLSXWriterWrite(t *testing.T) {
	dir := t.TempDir()
	w := NewXLSXWriter(dir, utils.Discard())
	w.now = fixedNow

	path, err := w.Write(2025, cleanedRegions())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2025.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, "2025 서울특별시", "2025 수원시"}, f.GetSheetList())

	rows, err := f.GetRows("2025 서울특별시")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "제조사", rows[0][0])
	assert.Equal(t, "최종수정시간", rows[0][6])
	assert.Equal(t, []string{"현대자동차", "EV", "아이오닉5", "600", "400", "1000", "2025-07-12 19:10:09"}, rows[1])
	assert.Equal(t, "", rows[3][3])

	summary, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, []string{"서울특별시", "3", "580", "350", "400", "300", "2025-07-12 19:10"}, summary[1])
}

func TestXLSXWriterNoRegions(t *testing.T) {
	_, err := NewXLSXWriter(t.TempDir(), utils.Discard()).Write(2025, nil)
	assert.Error(t, err)
}

type fakePutter struct {
	keys   []string
	bodies map[string]string
	types  map[string]string
	failOn string
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)
	if key == f.failOn {
		return nil, errors.New("access denied")
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.keys = append(f.keys, key)
	f.bodies[key] = string(body)
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestS3PublisherPublish(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "2025.json")
	csvPath := filepath.Join(dir, "2025.csv")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"data":{}}`), 0644))
	require.NoError(t, os.WriteFile(csvPath, []byte("a,b\n"), 0644))

	client := &fakePutter{bodies: map[string]string{}, types: map[string]string{}}
	p := NewS3PublisherWithClient(client, "ev-bucket", "/ev-subsidy/", utils.Discard())

	uris, err := p.Publish(context.Background(), []string{jsonPath, csvPath})
	require.NoError(t, err)
	assert.Equal(t, []string{"s3://ev-bucket/ev-subsidy/2025.json", "s3://ev-bucket/ev-subsidy/2025.csv"}, uris)
	assert.Equal(t, `{"data":{}}`, client.bodies["ev-subsidy/2025.json"])
	assert.Equal(t, "application/json", client.types["ev-subsidy/2025.json"])
	assert.Equal(t, "text/csv; charset=utf-8", client.types["ev-subsidy/2025.csv"])
}

func TestS3PublisherContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(good, []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(bad, []byte("{}"), 0644))

	client := &fakePutter{bodies: map[string]string{}, types: map[string]string{}, failOn: "bad.json"}
	p := NewS3PublisherWithClient(client, "b", "", utils.Discard())

	uris, err := p.Publish(context.Background(), []string{bad, filepath.Join(dir, "missing.json"), good})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Equal(t, []string{"s3://b/good.json"}, uris)
}
