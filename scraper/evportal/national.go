package evportal

import (
	"strconv"
	"strings"
	"unicode"

	"ev-subsidy-scraper/models"
	"ev-subsidy-scraper/services"
	"ev-subsidy-scraper/utils"

	"github.com/PuerkitoBio/goquery"
)

// MinNationalRows is the row count below which the loose table scan is tried
const MinNationalRows = 90

const defaultManufacturer = "현대자동차"

var validCategories = map[string]bool{"승용": true, "경·소형": true}

// knownManufacturers are accepted as the carried-over manufacturer
var knownManufacturers = []string{
	"현대자동차", "기아", "BMW", "테슬라코리아", "메르세데스벤츠코리아",
	"케이지모빌리티", "폴스타오토모티브코리아", "볼보자동차코리아",
	"폭스바겐그룹코리아", "비와이디코리아",
}

// manufacturerAliases also recognise a manufacturer cell that slid into another column
var manufacturerAliases = append(append([]string{}, knownManufacturers...),
	"BYD", "현대", "기아자동차", "테슬라", "메르세데스벤츠", "볼보", "폴스타", "폭스바겐")

var modelIndicators = []string{
	"EV", "electric", "Electrified", "e-tron", "Model", "GV60", "GV70",
	"아이오닉", "레이", "코나", "KONA", "ID.", "i4", "iX", "MINI",
	"Polestar", "EQA", "EQB", "캐스퍼", "토레스", "EVX", "볼보", "EX30",
	"ATTO", "BYD", "일렉트릭", "전기", "EV6", "EV9", "e-GMP", "bZ4X",
	"Taycan", "EQS", "EQC", "EQV", "iX3", "i7",
	"XC40", "C40", "EX90", "EM90", "Seal", "Dolphin", "Yuan", "Song",
}

// nationalRow is one national table row in column order: 구분, 제조/수입사, 차종, 지원금액
type nationalRow struct {
	category, manufacturer, model, subsidy string
}

func (r nationalRow) isEmpty() bool {
	return strings.TrimSpace(r.category+r.manufacturer+r.model+r.subsidy) == ""
}

func (r nationalRow) text() string {
	return strings.Join([]string{r.category, r.manufacturer, r.model, r.subsidy}, " ")
}

// NationalParser extracts electric passenger cars from the national subsidy table.
// It carries rowspan cells and the last seen manufacturer across rows, and falls
// back to recovery patterns when a row does not validate.
type NationalParser struct {
	keywords         []string
	lastManufacturer string
	logger           *utils.Logger

	Skipped int
}

// NewNationalParser creates a parser matching electric cars by keywords
func NewNationalParser(keywords []string, logger *utils.Logger) *NationalParser {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			lowered = append(lowered, strings.ToLower(k))
		}
	}
	return &NationalParser{keywords: lowered, lastManufacturer: defaultManufacturer, logger: logger}
}

// Parse reads a national table
func (p *NationalParser) Parse(table *goquery.Selection) []models.NationalSubsidy {
	var out []models.NationalSubsidy
	for _, row := range readSpannedRows(table, 4) {
		r := nationalRow{category: row[0], manufacturer: row[1], model: row[2], subsidy: row[3]}
		if r.isEmpty() {
			p.Skipped++
			continue
		}
		if !p.isElectric(r) {
			p.logger.Debug("not electric: %s", r.text())
			p.Skipped++
			continue
		}

		p.rememberManufacturer(r.manufacturer)

		if rec, ok := p.standardize(r); ok {
			out = append(out, rec)
			continue
		}
		if rec, ok := p.recover(r); ok {
			p.logger.Debug("recovered row: %s -> %+v", r.text(), rec)
			out = append(out, rec)
			continue
		}
		p.logger.Debug("could not standardize: %s", r.text())
		p.Skipped++
	}
	return out
}

// readSpannedRows returns tbody rows as width-wide cell slices, repeating cells
// that declare rowspan into the rows below them
func readSpannedRows(table *goquery.Selection, width int) [][]string {
	type carry struct {
		value     string
		remaining int
	}
	spans := map[int]*carry{}
	var rows [][]string

	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td, th")
		if cells.Length() == 0 {
			return
		}

		row := make([]string, width)
		cellIdx := 0
		for col := 0; col < width; col++ {
			if c, ok := spans[col]; ok {
				row[col] = c.value
				c.remaining--
				if c.remaining <= 0 {
					delete(spans, col)
				}
				continue
			}
			if cellIdx >= cells.Length() {
				continue
			}
			cell := cells.Eq(cellIdx)
			cellIdx++
			row[col] = cellText(cell)
			if span, err := strconv.Atoi(cell.AttrOr("rowspan", "1")); err == nil && span > 1 {
				spans[col] = &carry{value: row[col], remaining: span - 1}
			}
		}
		rows = append(rows, row)
	})
	return rows
}

func (p *NationalParser) isElectric(r nationalRow) bool {
	all := strings.ToLower(r.text())
	for _, k := range p.keywords {
		if strings.Contains(all, k) {
			return true
		}
	}

	category := strings.ToLower(r.category)
	if strings.Contains(category, "수소") || strings.Contains(category, "화물") {
		return false
	}
	if strings.Contains(category, "승용") || strings.Contains(category, "경") || strings.Contains(category, "소형") {
		model := strings.TrimSpace(r.model)
		return model != "" && !strings.Contains(model, "수소")
	}
	return false
}

func (p *NationalParser) rememberManufacturer(name string) {
	name = strings.TrimSpace(name)
	if name == "" || isDigits(name) {
		return
	}
	for _, m := range knownManufacturers {
		if strings.Contains(name, m) {
			p.lastManufacturer = name
			return
		}
	}
}

// LastManufacturer is the manufacturer rows with a missing maker are attributed to
func (p *NationalParser) LastManufacturer() string {
	return p.lastManufacturer
}

func (p *NationalParser) standardize(r nationalRow) (models.NationalSubsidy, bool) {
	return validate(strings.TrimSpace(r.category), strings.TrimSpace(r.manufacturer),
		strings.TrimSpace(r.model), strings.TrimSpace(r.subsidy), false)
}

// recover tries the known column-shift patterns of the portal table in order
func (p *NationalParser) recover(r nationalRow) (models.NationalSubsidy, bool) {
	category := strings.TrimSpace(r.category)
	maker := strings.TrimSpace(r.manufacturer)
	model := strings.TrimSpace(r.model)
	subsidy := strings.TrimSpace(r.subsidy)
	prev := p.lastManufacturer

	var candidates [][4]string
	switch {
	case isDigits(model) && subsidy == "" && isCarModelName(maker):
		// amount slid into 차종, model into 제조사
		fixed := category
		if !validCategories[fixed] {
			fixed = "승용"
		}
		candidates = append(candidates, [4]string{fixed, prev, maker, model})
	case isDigits(maker) && subsidy == "" && isCarModelName(category):
		candidates = append(candidates, [4]string{"승용", prev, category, maker})
	case isManufacturerName(category) && isCarModelName(maker):
		amount := model
		if !isDigits(amount) {
			amount = "0"
		}
		candidates = append(candidates, [4]string{"승용", category, maker, amount})
	case isCarModelName(category) && isDigits(maker):
		candidates = append(candidates, [4]string{"승용", prev, category, maker})
	}

	candidates = append(candidates,
		[4]string{"승용", prev, category, maker},
		[4]string{category, prev, maker, model},
		[4]string{category, maker, subsidy, model},
	)

	for _, c := range candidates {
		if rec, ok := validate(c[0], c[1], c[2], c[3], true); ok {
			return rec, true
		}
	}
	return models.NationalSubsidy{}, false
}

func validate(category, maker, model, subsidy string, recovered bool) (models.NationalSubsidy, bool) {
	if category == "" || maker == "" || model == "" || subsidy == "" {
		return models.NationalSubsidy{}, false
	}
	if !validCategories[category] || !isDigits(subsidy) || isDigits(model) || isDigits(maker) {
		return models.NationalSubsidy{}, false
	}
	amount, err := strconv.Atoi(subsidy)
	if err != nil {
		return models.NationalSubsidy{}, false
	}
	return models.NationalSubsidy{
		Category:     category,
		Manufacturer: maker,
		Model:        model,
		Amount:       amount,
		Recovered:    recovered,
	}, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isManufacturerName(text string) bool {
	if text == "" {
		return false
	}
	t := strings.ToLower(text)
	for _, m := range manufacturerAliases {
		m = strings.ToLower(m)
		if strings.Contains(t, m) || strings.Contains(m, t) {
			return true
		}
	}
	return false
}

func isCarModelName(text string) bool {
	if text == "" || isDigits(text) {
		return false
	}
	t := strings.ToLower(text)
	for _, ind := range modelIndicators {
		if strings.Contains(t, strings.ToLower(ind)) {
			return true
		}
	}
	if len([]rune(text)) <= 3 {
		return false
	}
	for _, r := range text {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// ParseLocalTable reads the 시도 / 전기자동차 columns of the local summary table.
// Rows whose amount is a placeholder are dropped.
func ParseLocalTable(table *goquery.Selection) []models.LocalSubsidy {
	headers := headerTexts(table)
	regionIdx, amountIdx := -1, -1
	for i, h := range headers {
		switch {
		case regionIdx < 0 && strings.Contains(h, "시도"):
			regionIdx = i
		case amountIdx < 0 && strings.Contains(h, "전기") && !strings.Contains(h, "수소"):
			amountIdx = i
		}
	}
	if regionIdx < 0 || amountIdx < 0 {
		return nil
	}

	var out []models.LocalSubsidy
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td, th")
		if cells.Length() < 2 {
			return
		}
		region := cellText(cells.Eq(regionIdx))
		amount, ok := services.ParseAmount(cellText(cells.Eq(amountIdx)))
		if region == "" || !ok {
			return
		}
		out = append(out, models.LocalSubsidy{Region: region, Amount: amount})
	})
	return out
}

// SubsidyTables is the result of parsing the national/local subsidy overview page
type SubsidyTables struct {
	National []models.NationalSubsidy
	Local    []models.LocalSubsidy
}

// ParseSubsidyPage classifies the page's table01 fz15 tables by header and parses both
func (p *NationalParser) ParseSubsidyPage(html string) (*SubsidyTables, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, err
	}

	var national, local *goquery.Selection
	doc.Find("table.table01.fz15").Each(func(i int, table *goquery.Selection) {
		headers := headerTexts(table)
		p.logger.Debug("table %d headers: %v", i, headers)

		switch {
		case anyContains(headers, "시도") && anyContains(headers, "전기"):
			local = table
		case national == nil &&
			anyContains(headers, "구분") &&
			(anyContains(headers, "제조") || anyContains(headers, "수입")) &&
			anyContains(headers, "차종") &&
			anyContains(headers, "보조금") &&
			table.Find("tbody tr").Length() > 10:
			national = table
		}
	})

	if national == nil && local == nil {
		return nil, ErrNoTable
	}

	result := &SubsidyTables{}
	if national != nil {
		result.National = p.Parse(national)
	} else {
		p.logger.Warn("National subsidy table not found")
	}
	if len(result.National) < MinNationalRows {
		if loose := p.parseLoose(doc); len(loose) > len(result.National) {
			p.logger.Info("Loose table scan found %d rows (strict %d)", len(loose), len(result.National))
			result.National = loose
		}
	}

	if local != nil {
		result.Local = ParseLocalTable(local)
	} else {
		p.logger.Warn("Local subsidy table not found")
	}
	return result, nil
}

var looseKeywords = []string{"전기", "ev", "electric", "아이오닉", "코나"}

// parseLoose scans every table row for electric keywords and maps the first four cells
func (p *NationalParser) parseLoose(doc *goquery.Document) []models.NationalSubsidy {
	var out []models.NationalSubsidy
	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("td, th").Each(func(_ int, c *goquery.Selection) {
			cells = append(cells, cellText(c))
		})
		if len(cells) < 4 {
			return
		}
		text := strings.ToLower(strings.Join(cells, " "))
		matched := false
		for _, k := range looseKeywords {
			if strings.Contains(text, k) {
				matched = true
				break
			}
		}
		if !matched {
			return
		}

		category := cells[0]
		if category == "" {
			category = "승용"
		}
		amount := 0
		if isDigits(cells[3]) {
			amount, _ = strconv.Atoi(cells[3])
		}
		out = append(out, models.NationalSubsidy{
			Category:     category,
			Manufacturer: cells[1],
			Model:        cells[2],
			Amount:       amount,
			Recovered:    true,
		})
	})
	return out
}

func anyContains(items []string, sub string) bool {
	for _, s := range items {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
