package evportal

import (
	"errors"
	"regexp"
	"strings"

	"ev-subsidy-scraper/models"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoTable is returned when a page carries no table at all
var ErrNoTable = errors.New("no table found")

const noDataMarker = "자료가 없습니다"

var regionCodeRegex = regexp.MustCompile(`goLocalCarPirce\('(\d+)'`)

func parseDocument(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func cellText(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}

// headerTexts reads the header cells of a table: thead's first row, else the first row
func headerTexts(table *goquery.Selection) []string {
	row := table.Find("thead tr").First()
	if row.Length() == 0 {
		row = table.Find("tr").First()
	}
	var headers []string
	row.Find("th, td").Each(func(_ int, c *goquery.Selection) {
		headers = append(headers, cellText(c))
	})
	return headers
}

// ParseRegionList extracts region codes and names from the region list popup.
// Rows need at least three cells and a goLocalCarPirce('<code>' handler.
func ParseRegionList(html string) []models.Region {
	doc, err := parseDocument(html)
	if err != nil {
		return nil
	}

	var regions []models.Region
	doc.Find("tbody").First().Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}
		onclick, ok := row.Find("a[onclick]").First().Attr("onclick")
		if !ok {
			return
		}
		m := regionCodeRegex.FindStringSubmatch(onclick)
		if m == nil {
			return
		}
		region := models.Region{Code: m[1], Name: cellText(cells.First())}
		if known, ok := LookupRegion(region.Code); ok {
			region.Category = known.Category
		}
		regions = append(regions, region)
	})
	return regions
}

// columnMap locates the vehicle fields in a detail table header
type columnMap struct {
	manufacturer, model, detail int
	national, local, total      int
}

func mapVehicleColumns(headers []string) columnMap {
	cols := columnMap{manufacturer: 0, model: 1, detail: 2, national: -1, local: -1, total: -1}

	for i, h := range headers {
		switch {
		case strings.Contains(h, "제조사"):
			cols.manufacturer = i
		case strings.Contains(h, "차종") && !strings.Contains(h, "모델명"):
			cols.model = i
		case strings.Contains(h, "모델명"):
			cols.detail = i
		}
	}

	for i, h := range headers {
		if !strings.Contains(h, "만원") {
			continue
		}
		switch {
		case strings.Contains(h, "국비"):
			cols.national = i
		case strings.Contains(h, "지방비"):
			cols.local = i
		case strings.Contains(h, "보조금") || strings.Contains(h, "합계"):
			cols.total = i
		}
	}
	return cols
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// isVehicleHeader reports whether a first row without thead is the header row
func isVehicleHeader(cells []string) bool {
	for _, c := range cells {
		if strings.Contains(c, "제조사") || strings.Contains(c, "만원") {
			return true
		}
	}
	return false
}

// ParseVehicleTable reads the per-region vehicle table of a detail page.
// Columns are located by header text; rows without manufacturer and model are dropped.
func ParseVehicleTable(html string) ([]models.RawVehicle, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, err
	}

	table := doc.Find("table.table01").First()
	if table.Length() == 0 {
		table = doc.Find("table").First()
	}
	if table.Length() == 0 {
		return nil, ErrNoTable
	}

	headers := headerTexts(table)
	hasThead := table.Find("thead tr").Length() > 0
	inlineHeader := !hasThead && isVehicleHeader(headers)
	if !hasThead && !inlineHeader {
		headers = nil
	}
	cols := mapVehicleColumns(headers)

	vehicles := []models.RawVehicle{}
	table.Find("tbody tr").Each(func(i int, tr *goquery.Selection) {
		if inlineHeader && i == 0 {
			return
		}
		cells := tr.Find("td")
		if cells.Length() < 3 {
			return
		}
		row := make([]string, 0, cells.Length())
		cells.Each(func(_ int, c *goquery.Selection) {
			row = append(row, cellText(c))
		})
		if row[0] == "" || strings.Contains(strings.Join(row, ""), noDataMarker) {
			return
		}

		v := models.RawVehicle{
			Manufacturer:    cellAt(row, cols.manufacturer),
			Model:           cellAt(row, cols.model),
			NationalSubsidy: cellAt(row, cols.national),
			LocalSubsidy:    cellAt(row, cols.local),
			TotalSubsidy:    cellAt(row, cols.total),
		}
		if cols.detail != cols.model {
			v.ModelDetail = cellAt(row, cols.detail)
		}
		if v.Manufacturer == "" || v.Model == "" {
			return
		}
		vehicles = append(vehicles, v)
	})
	return vehicles, nil
}
