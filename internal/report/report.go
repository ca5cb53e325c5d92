// Package report renders traffic and contribution rankings into an Excel
// workbook with bar charts.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/turnstat/turnstat/internal/aggregate"
	"github.com/turnstat/turnstat/internal/ranking"
)

// Sheet names.
const (
	TrafficSheet      = "Traffic"
	ContributionSheet = "Contribution"
)

var (
	trafficHeader      = []interface{}{"Station", "Traffic"}
	contributionHeader = []interface{}{"Station", "Zip", "Traffic", "Median Contribution", "Potential Contribution"}
)

// WriteWorkbook writes the traffic table and the contribution ranking to an
// xlsx file at path. Each sheet carries a horizontal bar chart of its rows,
// listed in the given order.
func WriteWorkbook(path string, traffic []aggregate.StationTotal, ranked []ranking.RankedStation) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TrafficSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(ContributionSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	if err := writeTraffic(f, traffic); err != nil {
		return err
	}
	if err := writeContribution(f, ranked); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeTraffic(f *excelize.File, traffic []aggregate.StationTotal) error {
	if err := f.SetSheetRow(TrafficSheet, "A1", &trafficHeader); err != nil {
		return fmt.Errorf("write traffic header: %w", err)
	}
	for i, t := range traffic {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{t.Station, t.Total}
		if err := f.SetSheetRow(TrafficSheet, cell, &row); err != nil {
			return fmt.Errorf("write traffic row: %w", err)
		}
	}
	if err := f.SetColWidth(TrafficSheet, "A", "A", 24); err != nil {
		return err
	}

	title := fmt.Sprintf("Top %d Stations by Traffic", len(traffic))
	return addBarChart(f, TrafficSheet, "D2", title, "B", len(traffic))
}

func writeContribution(f *excelize.File, ranked []ranking.RankedStation) error {
	if err := f.SetSheetRow(ContributionSheet, "A1", &contributionHeader); err != nil {
		return fmt.Errorf("write contribution header: %w", err)
	}
	for i, r := range ranked {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{r.Station, r.Zip, r.Traffic, r.MedianContribution, r.PotentialContribution}
		if err := f.SetSheetRow(ContributionSheet, cell, &row); err != nil {
			return fmt.Errorf("write contribution row: %w", err)
		}
	}
	if err := f.SetColWidth(ContributionSheet, "A", "A", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(ContributionSheet, "D", "E", 22); err != nil {
		return err
	}

	title := fmt.Sprintf("Top %d Stations by Potential Contribution", len(ranked))
	return addBarChart(f, ContributionSheet, "G2", title, "E", len(ranked))
}

// addBarChart plots column valueCol against station names in column A for
// rows 2..n+1. Nothing is drawn for an empty table.
func addBarChart(f *excelize.File, sheet, anchor, title, valueCol string, n int) error {
	if n == 0 {
		return nil
	}

	last := n + 1
	err := f.AddChart(sheet, anchor, &excelize.Chart{
		Type: excelize.Bar,
		Series: []excelize.ChartSeries{
			{
				Name:       fmt.Sprintf("%s!$%s$1", sheet, valueCol),
				Categories: fmt.Sprintf("%s!$A$2:$A$%d", sheet, last),
				Values:     fmt.Sprintf("%s!$%s$2:$%s$%d", sheet, valueCol, valueCol, last),
			},
		},
		Title:  []excelize.RichTextRun{{Text: title}},
		Legend: excelize.ChartLegend{Position: "none"},
		// Busiest row on top.
		XAxis:     excelize.ChartAxis{ReverseOrder: true},
		Dimension: excelize.ChartDimension{Width: 960, Height: 640},
	})
	if err != nil {
		return fmt.Errorf("add %s chart: %w", sheet, err)
	}
	return nil
}
