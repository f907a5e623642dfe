package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"crmpulse/internal/analytics"
)

// WriteWorkbook renders a snapshot's chart data into an .xlsx workbook under
// outputDir and returns the file name. One sheet per sub-view, mirroring the
// charts the report appendix is built from.
func WriteWorkbook(snap *analytics.Snapshot, insights []string, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeOverviewSheet(f, snap, insights); err != nil {
		return "", err
	}
	if err := writeCountSheet(f, "Sentiment", "Sentiment", snap.SentimentDistribution); err != nil {
		return "", err
	}
	if err := writeCategorySheet(f, snap); err != nil {
		return "", err
	}
	if err := writeTimeSeriesSheet(f, snap.TimeSeries); err != nil {
		return "", err
	}
	if err := writeCrossTabSheet(f, snap.CrossTab); err != nil {
		return "", err
	}
	if err := writePrioritySheet(f, snap); err != nil {
		return "", err
	}
	f.DeleteSheet("Sheet1")

	name := fmt.Sprintf("crm_analytics_%s_%s.xlsx",
		time.Now().UTC().Format("20060102"), uuid.NewString()[:8])
	if err := f.SaveAs(filepath.Join(outputDir, name)); err != nil {
		return "", err
	}
	return name, nil
}

func writeOverviewSheet(f *excelize.File, snap *analytics.Snapshot, insights []string) error {
	const sheet = "Overview"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	rows := [][]interface{}{
		{"Total Complaints", snap.TotalComplaints},
		{"Priority Issues", len(snap.PriorityIssues)},
		{"Priority Threshold", snap.PriorityThreshold},
		{"Confidence Mean", snap.ConfidenceStats.Mean},
		{"Confidence Median", snap.ConfidenceStats.Median},
		{"Confidence Min", snap.ConfidenceStats.Min},
		{"Confidence Max", snap.ConfidenceStats.Max},
	}
	for i, row := range rows {
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return err
		}
	}
	start := len(rows) + 2
	if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", start), "Insights"); err != nil {
		return err
	}
	for i, insight := range insights {
		if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", start+1+i), insight); err != nil {
			return err
		}
	}
	return nil
}

func writeCountSheet(f *excelize.File, sheet, label string, counts map[string]int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []interface{}{label, "Count"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		row := []interface{}{k, counts[k]}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}
	return nil
}

func writeCategorySheet(f *excelize.File, snap *analytics.Snapshot) error {
	const sheet = "Categories"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []interface{}{"Category", "Count", "Avg Rating"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	keys := make([]string, 0, len(snap.CategoryDistribution))
	for k := range snap.CategoryDistribution {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		row := []interface{}{k, snap.CategoryDistribution[k], snap.RatingByCategory[k]}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}
	return nil
}

func writeTimeSeriesSheet(f *excelize.File, series []analytics.DateCount) error {
	const sheet = "Time Series"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []interface{}{"Date", "Complaints"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, dc := range series {
		row := []interface{}{dc.Date, dc.Count}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}
	return nil
}

func writeCrossTabSheet(f *excelize.File, crossTab []analytics.CategorySentimentCount) error {
	const sheet = "Cross Tab"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []interface{}{"Category", "Sentiment", "Count"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, cell := range crossTab {
		row := []interface{}{cell.Category, string(cell.Sentiment), cell.Count}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}
	return nil
}

func writePrioritySheet(f *excelize.File, snap *analytics.Snapshot) error {
	const sheet = "Priority Issues"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []interface{}{"ID", "Category", "Sentiment", "Rating", "Complaint"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, issue := range snap.PriorityIssues {
		row := []interface{}{issue.ID, issue.Category, string(issue.Sentiment), issue.Rating, issue.Text}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}
	return nil
}
