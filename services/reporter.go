package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"ev-subsidy-scraper/models"

	"github.com/jedib0t/go-pretty/v6/table"
)

// PrintInsightReport formats and prints the insight report
func PrintInsightReport(w io.Writer, report *models.InsightReport) {
	border := strings.Repeat("═", 55)
	thin := strings.Repeat("─", 55)

	fmt.Fprintf(w, "\n╔%s╗\n", border)
	fmt.Fprintf(w, "║%s║\n", center(fmt.Sprintf("EV SUBSIDY REPORT %d", report.Year), 55))
	fmt.Fprintf(w, "╚%s╝\n", border)

	fmt.Fprintf(w, "\n OVERVIEW\n%s\n", thin)
	fmt.Fprintf(w, "  Regions Scraped         : %d\n", report.TotalRegions)
	fmt.Fprintf(w, "  Vehicle Rows            : %d\n", report.TotalVehicles)
	fmt.Fprintf(w, "  Recovered Rows          : %d\n", report.RecoveredRows)
	fmt.Fprintf(w, "  Avg Local Subsidy       : %d만원\n", report.AverageLocalSubsidy)

	if len(report.TopRegions) > 0 {
		fmt.Fprintf(w, "\n TOP %d REGIONS BY LOCAL SUBSIDY\n", len(report.TopRegions))
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.AppendHeader(table.Row{"#", "Region", "Avg", "Max", "Min", "Vehicles"})
		for i, r := range report.TopRegions {
			t.AppendRow(table.Row{i + 1, r.Region, r.AvgSubsidy, r.MaxSubsidy, r.MinSubsidy, r.VehicleCount})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	}

	if len(report.VehiclesByMaker) > 0 {
		fmt.Fprintf(w, "\n VEHICLES PER MANUFACTURER\n")
		type makerCount struct {
			maker string
			count int
		}
		var makers []makerCount
		for m, cnt := range report.VehiclesByMaker {
			makers = append(makers, makerCount{m, cnt})
		}
		sort.Slice(makers, func(i, j int) bool {
			if makers[i].count != makers[j].count {
				return makers[i].count > makers[j].count
			}
			return makers[i].maker < makers[j].maker
		})

		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.AppendHeader(table.Row{"Manufacturer", "Rows"})
		for _, mc := range makers {
			t.AppendRow(table.Row{truncate(mc.maker, 30), mc.count})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	}

	if len(report.RegionsWithoutDetail) > 0 {
		fmt.Fprintf(w, "\n DEFAULT VALUES USED FOR\n%s\n", thin)
		fmt.Fprintf(w, "  %s\n", strings.Join(report.RegionsWithoutDetail, ", "))
	}

	fmt.Fprintf(w, "\n%s\n\n", border)
}

func center(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return s
	}
	pad := (width - len(runes)) / 2
	return strings.Repeat(" ", pad) + s + strings.Repeat(" ", width-len(runes)-pad)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
