package storage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"ev-subsidy-scraper/models"
)

// SummarySheet is the title of the per-workbook summary sheet
const SummarySheet = "요약"

// RegionSheetHeader is the first row of every region sheet
var RegionSheetHeader = []interface{}{
	"제조사", "차종", "모델명", "국비(만원)", "지방비(만원)", "총보조금(만원)", "최종수정시간",
}

// SummaryHeader is the first row of the summary sheet
var SummaryHeader = []interface{}{
	"지역", "차량수", "평균 국고보조금", "평균 지방비", "최대 지방비", "최소 지방비", "업데이트 시간",
}

// RegionSheetTitle names the sheet holding one region, e.g. "2025 서울특별시"
func RegionSheetTitle(year int, region string) string {
	return fmt.Sprintf("%d %s", year, region)
}

func amountCell(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

// regionRows renders the header plus one row per vehicle
func regionRows(vehicles []models.Vehicle, now time.Time) [][]interface{} {
	stamp := now.Format("2006-01-02 15:04:05")
	rows := make([][]interface{}, 0, len(vehicles)+1)
	rows = append(rows, RegionSheetHeader)
	for _, v := range vehicles {
		rows = append(rows, []interface{}{
			v.Manufacturer,
			v.Model,
			v.ModelDetail,
			amountCell(v.NationalSubsidy),
			amountCell(v.LocalSubsidy),
			amountCell(v.TotalSubsidy),
			stamp,
		})
	}
	return rows
}

// SummaryRow is one line of the summary sheet. Averages are floored and
// computed over known amounts only.
type SummaryRow struct {
	Region       string
	VehicleCount int
	AvgNational  int
	AvgLocal     int
	MaxLocal     int
	MinLocal     int
}

// SummarizeSheetRow computes the 요약 sheet line for one region; zero amounts count
func SummarizeSheetRow(region string, vehicles []models.Vehicle) SummaryRow {
	row := SummaryRow{Region: region, VehicleCount: len(vehicles)}

	var nationalSum, nationalN, localSum, localN int
	for _, v := range vehicles {
		if v.NationalSubsidy != nil {
			nationalSum += *v.NationalSubsidy
			nationalN++
		}
		if v.LocalSubsidy == nil {
			continue
		}
		local := *v.LocalSubsidy
		if localN == 0 || local > row.MaxLocal {
			row.MaxLocal = local
		}
		if localN == 0 || local < row.MinLocal {
			row.MinLocal = local
		}
		localSum += local
		localN++
	}
	if nationalN > 0 {
		row.AvgNational = nationalSum / nationalN
	}
	if localN > 0 {
		row.AvgLocal = localSum / localN
	}
	return row
}

// summaryRows renders the header plus one summary line per region, by region name
func summaryRows(regions map[string][]models.Vehicle, now time.Time) [][]interface{} {
	names := make([]string, 0, len(regions))
	for name := range regions {
		names = append(names, name)
	}
	sort.Strings(names)

	stamp := now.Format("2006-01-02 15:04")
	rows := make([][]interface{}, 0, len(names)+1)
	rows = append(rows, SummaryHeader)
	for _, name := range names {
		s := SummarizeSheetRow(name, regions[name])
		rows = append(rows, []interface{}{
			s.Region, s.VehicleCount, s.AvgNational, s.AvgLocal, s.MaxLocal, s.MinLocal, stamp,
		})
	}
	return rows
}

// xlsxSheetName fits a title into Excel's 31 character sheet name limit and
// strips characters Excel rejects
func xlsxSheetName(title string) string {
	title = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, title)
	runes := []rune(title)
	if len(runes) > 31 {
		runes = runes[:31]
	}
	return string(runes)
}
