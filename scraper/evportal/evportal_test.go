package evportal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"ev-subsidy-scraper/config"
	"ev-subsidy-scraper/models"
	"ev-subsidy-scraper/scraper/fetch"
	"ev-subsidy-scraper/services"
	"ev-subsidy-scraper/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalDetail = `<table class="table01">
<thead><tr><th>제조사</th><th>차종</th><th>모델명</th><th>국비(만원)</th><th>지방비(만원)</th></tr></thead>
<tbody><tr><td>현대자동차</td><td>EV</td><td>아이오닉5</td><td>600</td><td>400</td></tr></tbody>
</table>`

func TestParseVehicleTableEndToEnd(t *testing.T) {
	raw, err := ParseVehicleTable(minimalDetail)
	require.NoError(t, err)
	require.Len(t, raw, 1)

	vehicles := services.NewDataCleaner(utils.Discard()).Clean(raw)
	require.Len(t, vehicles, 1)
	v := vehicles[0]
	assert.Equal(t, "현대자동차", v.Manufacturer)
	assert.Equal(t, "EV", v.Model)
	assert.Equal(t, "아이오닉5", v.ModelDetail)
	require.NotNil(t, v.NationalSubsidy)
	require.NotNil(t, v.LocalSubsidy)
	assert.Equal(t, 600, *v.NationalSubsidy)
	assert.Equal(t, 400, *v.LocalSubsidy)
	assert.Nil(t, v.TotalSubsidy)
}

func TestParseVehicleTableRows(t *testing.T) {
	html := `<html><body><table>
<thead><tr><th>차종</th><th>제조사</th><th>모델명</th><th>국비(만원)</th><th>지방비(만원)</th><th>보조금 합계(만원)</th></tr></thead>
<tbody>
<tr><td>EV</td><td>기아</td><td>EV6 롱레인지</td><td>580</td><td>1,200~1,500</td><td>1,780</td></tr>
<tr><td colspan="6">자료가 없습니다</td></tr>
<tr><td></td><td>기아</td><td>빈칸</td></tr>
<tr><td>EV</td><td>테슬라</td></tr>
<tr><td>EV</td><td></td><td>제조사없음</td><td>1</td><td>1</td><td>2</td></tr>
</tbody></table></body></html>`

	raw, err := ParseVehicleTable(html)
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, models.RawVehicle{
		Manufacturer:    "기아",
		Model:           "EV",
		ModelDetail:     "EV6 롱레인지",
		NationalSubsidy: "580",
		LocalSubsidy:    "1,200~1,500",
		TotalSubsidy:    "1,780",
	}, raw[0])
}

func TestParseVehicleTableDefaultsWithoutHeader(t *testing.T) {
	html := `<table><tbody><tr><td>BYD</td><td>EV</td><td>ATTO 3</td></tr></tbody></table>`
	raw, err := ParseVehicleTable(html)
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, "BYD", raw[0].Manufacturer)
	assert.Equal(t, "ATTO 3", raw[0].ModelDetail)
	assert.Empty(t, raw[0].NationalSubsidy)
}

func TestParseVehicleTableHeaderOutsideThead(t *testing.T) {
	html := `<table><tr><th>제조사</th><th>차종</th><th>모델명</th><th>국비(만원)</th><th>지방비(만원)</th></tr>
<tr><td>현대자동차</td><td>EV</td><td>아이오닉5</td><td>600</td><td>400</td></tr></table>`

	raw, err := ParseVehicleTable(html)
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, models.RawVehicle{
		Manufacturer:    "현대자동차",
		Model:           "EV",
		ModelDetail:     "아이오닉5",
		NationalSubsidy: "600",
		LocalSubsidy:    "400",
	}, raw[0])

	tdHeader := strings.ReplaceAll(strings.ReplaceAll(html, "<th>", "<td>"), "</th>", "</td>")
	raw, err = ParseVehicleTable(tdHeader)
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, "600", raw[0].NationalSubsidy)
	assert.Equal(t, "400", raw[0].LocalSubsidy)
}

func TestParseVehicleTableMalformed(t *testing.T) {
	_, err := ParseVehicleTable("<div>nothing here")
	assert.ErrorIs(t, err, ErrNoTable)

	raw, err := ParseVehicleTable("<table><tbody></tbody></table>")
	require.NoError(t, err)
	assert.Empty(t, raw)
}

const regionListHTML = `<table><tbody>
<tr><td>서울특별시</td><td>100</td><td><a href="#" onclick="goLocalCarPirce('1100','11','서울특별시')">보기</a></td></tr>
<tr><td>증평군</td><td>10</td><td><a href="#" onclick="goLocalCarPirce('43745','11','증평군')">보기</a></td></tr>
<tr><td>없는코드</td><td>10</td><td><a href="#">보기</a></td></tr>
<tr><td>짧은행</td><td><a onclick="goLocalCarPirce('1','11','x')">x</a></td></tr>
</tbody></table>`

func TestParseRegionList(t *testing.T) {
	regions := ParseRegionList(regionListHTML)
	require.Len(t, regions, 2)
	assert.Equal(t, models.Region{Code: "1100", Name: "서울특별시", Category: "특별시"}, regions[0])
	assert.Equal(t, models.Region{Code: "43745", Name: "증평군", Category: "충청북도"}, regions[1])

	assert.Empty(t, ParseRegionList("<p>broken"))
}

func TestStaticRegions(t *testing.T) {
	assert.Len(t, StaticRegions, 160)

	codes := utils.NewKeySet()
	for _, r := range StaticRegions {
		assert.True(t, codes.Add(r.Code), "duplicate code %s", r.Code)
		assert.NotEmpty(t, r.Category, r.Name)
	}

	r, ok := LookupRegion("44825")
	require.True(t, ok)
	assert.Equal(t, "태안군", r.Name)

	assert.Equal(t, 1, CategoryRank("특별시"))
	assert.Equal(t, 13, CategoryRank("기타"))
	assert.Equal(t, 14, CategoryRank("모름"))
}

func TestRegionByName(t *testing.T) {
	assert.Equal(t, "4882", RegionByName("고성군(경상남도)").Code)
	assert.Equal(t, "4282", RegionByName("고성군").Code)
	assert.Equal(t, "경기도", RegionByName("가평군").Category)
	assert.Equal(t, models.Region{Name: "미지"}, RegionByName("미지"))
}

func nationalTable(rows string) *goquery.Selection {
	html := `<table class="table01 fz15"><thead><tr><th>구분</th><th>제조/수입사</th><th>차종</th><th>국고보조금 지원금액(만원)</th><th>비고</th></tr></thead><tbody>` +
		rows + `</tbody></table>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		panic(err)
	}
	return doc.Find("table")
}

func TestNationalParserRowspan(t *testing.T) {
	table := nationalTable(`
<tr><td rowspan="3">승용</td><td rowspan="2">현대자동차</td><td>아이오닉5</td><td>690</td></tr>
<tr><td>코나 일렉트릭</td><td>623</td></tr>
<tr><td>기아</td><td>EV6</td><td>650</td></tr>
<tr><td>화물</td><td>현대자동차</td><td>포터2</td><td>1000</td></tr>
<tr><td>승용</td><td>현대자동차</td><td>넥쏘 수소</td><td>2250</td></tr>`)

	p := NewNationalParser(config.DefaultElectricKeywords, utils.Discard())
	rows := p.Parse(table)

	require.Len(t, rows, 3)
	assert.Equal(t, models.NationalSubsidy{Category: "승용", Manufacturer: "현대자동차", Model: "아이오닉5", Amount: 690}, rows[0])
	assert.Equal(t, models.NationalSubsidy{Category: "승용", Manufacturer: "현대자동차", Model: "코나 일렉트릭", Amount: 623}, rows[1])
	assert.Equal(t, models.NationalSubsidy{Category: "승용", Manufacturer: "기아", Model: "EV6", Amount: 650}, rows[2])
	assert.Equal(t, 2, p.Skipped)
	assert.Equal(t, "기아", p.LastManufacturer())
}

func TestNationalParserRecovery(t *testing.T) {
	// a rowspan the table lost: the model lands in 제조/수입사 and the amount in 차종
	table := nationalTable(`
<tr><td>승용</td><td>기아</td><td>EV3</td><td>565</td></tr>
<tr><td>승용</td><td>레이 EV</td><td>452</td></tr>
<tr><td>EV9 롱레인지</td><td>300</td></tr>`)

	p := NewNationalParser(config.DefaultElectricKeywords, utils.Discard())
	rows := p.Parse(table)

	require.Len(t, rows, 3)
	assert.False(t, rows[0].Recovered)
	assert.Equal(t, models.NationalSubsidy{Category: "승용", Manufacturer: "기아", Model: "레이 EV", Amount: 452, Recovered: true}, rows[1])
	assert.Equal(t, models.NationalSubsidy{Category: "승용", Manufacturer: "기아", Model: "EV9 롱레인지", Amount: 300, Recovered: true}, rows[2])
}

func TestNationalParserKeywordsAreConfigurable(t *testing.T) {
	table := nationalTable(`<tr><td>승합</td><td>우진산전</td><td>아폴로</td><td>7000</td></tr>`)

	assert.Empty(t, NewNationalParser(config.DefaultElectricKeywords, utils.Discard()).Parse(table))

	p := NewNationalParser([]string{"아폴로"}, utils.Discard())
	rows := p.Parse(table)
	// matched as electric but 승합 is not a passenger category
	assert.Empty(t, rows)
	assert.Equal(t, 1, p.Skipped)
}

func TestParseLocalTable(t *testing.T) {
	html := `<table class="table01 fz15"><thead><tr><th>시도</th><th>전기자동차</th><th>수소자동차</th></tr></thead><tbody>
<tr><td>서울</td><td>"1,100"</td><td>3,000</td></tr>
<tr><td>부산</td><td>200~484</td><td>-</td></tr>
<tr><td>세종</td><td>미지원</td><td>-</td></tr>
<tr><td>대구</td><td>-</td><td>-</td></tr>
</tbody></table>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	rows := ParseLocalTable(doc.Find("table"))
	assert.Equal(t, []models.LocalSubsidy{{Region: "서울", Amount: 1100}, {Region: "부산", Amount: 200}}, rows)
}

func subsidyPageHTML(nationalRows int) string {
	var b strings.Builder
	b.WriteString(`<html><body><div><table class="table01 fz15"><thead><tr><th>구분</th><th>제조/수입사</th><th>차종</th><th>국고보조금 지원금액(만원)</th></tr></thead><tbody>`)
	for i := 0; i < nationalRows; i++ {
		fmt.Fprintf(&b, `<tr><td>승용</td><td>현대자동차</td><td>아이오닉%d</td><td>%d</td></tr>`, i, 500+i)
	}
	b.WriteString(`</tbody></table></div>`)
	b.WriteString(`<div><table class="table01 fz15"><thead><tr><th>시도</th><th>전기자동차</th></tr></thead><tbody><tr><td>서울</td><td>180</td></tr></tbody></table></div>`)
	b.WriteString(`</body></html>`)
	return b.String()
}

func TestParseSubsidyPage(t *testing.T) {
	p := NewNationalParser(config.DefaultElectricKeywords, utils.Discard())
	tables, err := p.ParseSubsidyPage(subsidyPageHTML(95))
	require.NoError(t, err)
	assert.Len(t, tables.National, 95)
	assert.Equal(t, []models.LocalSubsidy{{Region: "서울", Amount: 180}}, tables.Local)

	_, err = p.ParseSubsidyPage("<html></html>")
	assert.ErrorIs(t, err, ErrNoTable)
}

func TestParseSubsidyPageLooseFallback(t *testing.T) {
	// too few rows for the national table to qualify, so the loose scan wins
	p := NewNationalParser(config.DefaultElectricKeywords, utils.Discard())
	tables, err := p.ParseSubsidyPage(subsidyPageHTML(3))
	require.NoError(t, err)
	require.Len(t, tables.National, 3)
	assert.True(t, tables.National[0].Recovered)
	assert.Equal(t, 500, tables.National[0].Amount)
}

// fakePortal serves the portal endpoints and records detail requests
type fakePortal struct {
	mu      sync.Mutex
	details []string
	failing map[string]bool
}

func (p *fakePortal) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(PathMain, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "s1", Path: "/"})
	})
	mux.HandleFunc(PathPaymentCheck, func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc(PathRegionList, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(regionListHTML))
	})
	mux.HandleFunc(PathRegionDetail, func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("JSESSIONID"); err != nil {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_ = r.ParseForm()
		code := r.PostForm.Get("local_cd")
		p.mu.Lock()
		p.details = append(p.details, code+"|"+r.PostForm.Get("local_nm")+"|"+r.PostForm.Get("year"))
		p.mu.Unlock()
		if p.failing[code] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(minimalDetail))
	})
	mux.HandleFunc(PathSubsidyTables, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(subsidyPageHTML(95)))
	})
	return mux
}

func newTestScraper(t *testing.T, portal *fakePortal) *Scraper {
	t.Helper()
	srv := httptest.NewServer(portal.handler())
	t.Cleanup(srv.Close)

	f, err := fetch.NewRestyFetcher(fetch.Options{})
	require.NoError(t, err)

	cfg := &config.Config{BaseURL: srv.URL, DataYear: 2025, CarType: "11", MaxRetries: 1}
	return NewScraper(f, cfg, utils.Discard())
}

func TestScraperCrawl(t *testing.T) {
	portal := &fakePortal{failing: map[string]bool{"43745": true}}
	s := newTestScraper(t, portal)

	var sunk []string
	result, err := s.Crawl(context.Background(), CrawlOptions{
		OnRegion: func(_ context.Context, r models.Region, v []models.RawVehicle) error {
			sunk = append(sunk, r.Name)
			return nil
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{"서울특별시"}, sunk)
	require.Len(t, result.Data["서울특별시"], 1)
	assert.False(t, result.Data["서울특별시"][0].ScrapedAt.IsZero())
	assert.Equal(t, []string{"1100|서울특별시|2025", "43745|증평군|2025"}, portal.details)
}

func TestScraperCrawlSkipAndLimit(t *testing.T) {
	portal := &fakePortal{}
	s := newTestScraper(t, portal)

	result, err := s.Crawl(context.Background(), CrawlOptions{
		Year:  2024,
		Limit: 1,
		Skip:  func(r models.Region) bool { return r.Code == "1100" },
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Succeeded)
	assert.Empty(t, portal.details)
	assert.Equal(t, 2024, result.Year)
}

func TestScraperSessionFailure(t *testing.T) {
	f, err := fetch.NewRestyFetcher(fetch.Options{})
	require.NoError(t, err)
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	s := NewScraper(f, &config.Config{BaseURL: srv.URL, DataYear: 2025, CarType: "11"}, utils.Discard())
	_, err = s.Crawl(context.Background(), CrawlOptions{})
	assert.ErrorIs(t, err, ErrSessionInit)
}

func TestScraperCrawlNational(t *testing.T) {
	s := newTestScraper(t, &fakePortal{})
	tables, err := s.CrawlNational(context.Background(), NewNationalParser(config.DefaultElectricKeywords, utils.Discard()))
	require.NoError(t, err)
	assert.Len(t, tables.National, 95)
	assert.Len(t, tables.Local, 1)
}
