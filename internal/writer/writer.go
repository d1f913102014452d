// Package writer renders a priced batch to an estimate workbook and an
// audit CSV. The workbook carries three sheets: Estimate (one row per pay
// item), AltSeek (alternate-seek provenance for items priced without
// direct history), and Summary (batch totals).
package writer

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/sells-group/costest-cli/internal/altseek"
	"github.com/sells-group/costest-cli/internal/estimator"
	"github.com/sells-group/costest-cli/internal/pricing"
)

const (
	estimateSheet = "Estimate"
	altSeekSheet  = "AltSeek"
	summarySheet  = "Summary"
)

// WriteWorkbook writes the estimate workbook to path.
func WriteWorkbook(path string, rows []estimator.EstimateRow, sum estimator.Summary) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			zap.L().Warn("closing workbook", zap.Error(err))
		}
	}()

	if err := writeEstimateSheet(f, rows); err != nil {
		return err
	}
	if err := writeAltSeekSheet(f, rows); err != nil {
		return err
	}
	if err := writeSummarySheet(f, rows, sum); err != nil {
		return err
	}
	f.DeleteSheet("Sheet1")

	if err := f.SaveAs(path); err != nil {
		return eris.Wrapf(err, "writer: save workbook %s", path)
	}
	zap.L().Info("estimate workbook written",
		zap.String("path", path), zap.Int("rows", len(rows)))
	return nil
}

func writeEstimateSheet(f *excelize.File, rows []estimator.EstimateRow) error {
	idx, err := f.NewSheet(estimateSheet)
	if err != nil {
		return eris.Wrap(err, "writer: create estimate sheet")
	}
	f.SetActiveSheet(idx)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
	})
	if err != nil {
		return eris.Wrap(err, "writer: header style")
	}
	zeroStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFC7CE"}, Pattern: 1},
	})
	if err != nil {
		return eris.Wrap(err, "writer: zero-price style")
	}

	header := []interface{}{
		"Item", "Description", "Unit", "Quantity", "Unit Price", "Extended",
		"Data Points", "Source", "Confidence", "Alt Seek", "Notes",
	}
	for _, name := range pricing.CategoryNames() {
		header = append(header, name+" Price", name+" Count", name+" Used")
	}
	if err := f.SetSheetRow(estimateSheet, "A1", &header); err != nil {
		return eris.Wrap(err, "writer: estimate header")
	}
	endCell, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(estimateSheet, "A1", endCell, headerStyle); err != nil {
		return eris.Wrap(err, "writer: estimate header style")
	}

	for i, row := range rows {
		values := []interface{}{
			row.ItemCode, row.Description, row.Unit, row.Quantity,
			row.UnitPrice, row.Extended, row.DataPoints, row.Source,
			row.Confidence, row.AlternateUsed, joinNotes(row.Notes),
		}
		for _, name := range pricing.CategoryNames() {
			cell, ok := row.Categories[name]
			if !ok || cell.Count == 0 {
				values = append(values, "", 0, false)
				continue
			}
			values = append(values, cell.Price, cell.Count, cell.Included)
		}

		anchor, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(estimateSheet, anchor, &values); err != nil {
			return eris.Wrapf(err, "writer: estimate row %d", i+2)
		}
		if row.UnitPrice == 0 {
			last, _ := excelize.CoordinatesToCellName(len(values), i+2)
			if err := f.SetCellStyle(estimateSheet, anchor, last, zeroStyle); err != nil {
				return eris.Wrapf(err, "writer: zero-price highlight row %d", i+2)
			}
		}
	}

	if err := f.SetColWidth(estimateSheet, "B", "B", 48); err != nil {
		return eris.Wrap(err, "writer: estimate column width")
	}
	return nil
}

func writeAltSeekSheet(f *excelize.File, rows []estimator.EstimateRow) error {
	if _, err := f.NewSheet(altSeekSheet); err != nil {
		return eris.Wrap(err, "writer: create altseek sheet")
	}

	header := []interface{}{
		"Target Item", "Candidate", "Source", "Selected", "Weight",
		"Area Sqft", "Ratio", "Base Price", "Adjusted Price", "Data Points",
		"Overall Score", "Geometry", "Spec", "Recency", "Locality",
		"Data Volume", "Notes",
	}
	if err := f.SetSheetRow(altSeekSheet, "A1", &header); err != nil {
		return eris.Wrap(err, "writer: altseek header")
	}

	line := 2
	for _, row := range rows {
		if !row.AlternateUsed || row.Alternate == nil {
			continue
		}
		res := row.Alternate

		selected := make(map[string]float64, len(res.Selections))
		for _, sel := range res.Selections {
			selected[sel.ItemCode] = sel.Weight
		}

		for _, cand := range res.Candidates {
			weight, isSelected := selected[cand.ItemCode]
			values := []interface{}{
				res.TargetCode, cand.ItemCode, cand.Source, isSelected, weight,
				cand.AreaSqft, cand.Ratio, cand.BasePrice, cand.AdjustedPrice,
				cand.DataPoints, cand.Overall(),
				cand.Similarity[altseek.ScoreGeometry], cand.Similarity[altseek.ScoreSpec],
				cand.Similarity[altseek.ScoreRecency], cand.Similarity[altseek.ScoreLocality],
				cand.Similarity[altseek.ScoreDataVolume], joinNotes(cand.Notes),
			}
			anchor, _ := excelize.CoordinatesToCellName(1, line)
			if err := f.SetSheetRow(altSeekSheet, anchor, &values); err != nil {
				return eris.Wrapf(err, "writer: altseek row %d", line)
			}
			line++
		}
	}
	return nil
}

func writeSummarySheet(f *excelize.File, rows []estimator.EstimateRow, sum estimator.Summary) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return eris.Wrap(err, "writer: create summary sheet")
	}

	subtotal := 0.0
	for _, row := range rows {
		subtotal += row.Extended
	}

	cells := [][2]interface{}{
		{"Generated", time.Now().Format("2006-01-02 15:04")},
		{"Items", len(rows)},
		{"Priced Directly", sum.Direct},
		{"Priced via Alternate Seek", sum.Alternate},
		{"No Data", sum.NoData},
		{"Contract Total", subtotal},
	}
	for i, kv := range cells {
		keyCell, _ := excelize.CoordinatesToCellName(1, i+1)
		valCell, _ := excelize.CoordinatesToCellName(2, i+1)
		if err := f.SetCellValue(summarySheet, keyCell, kv[0]); err != nil {
			return eris.Wrap(err, "writer: summary cell")
		}
		if err := f.SetCellValue(summarySheet, valCell, kv[1]); err != nil {
			return eris.Wrap(err, "writer: summary cell")
		}
	}
	return nil
}

// WriteAuditCSV writes one line per contributing historical record for
// every item, preserving the full pricing trail.
func WriteAuditCSV(path string, rows []estimator.EstimateRow) error {
	file, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "writer: create audit csv %s", path)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	header := []string{
		"item", "source_item", "row_id", "unit_price", "letting_date",
		"region", "quantity", "weight", "alt_weight", "alt_ratio",
	}
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "writer: audit header")
	}

	for _, row := range rows {
		if row.AlternateUsed && row.Alternate != nil {
			for _, det := range row.Alternate.Detail {
				rec := []string{
					row.ItemCode, det.SourceItem, strconv.Itoa(det.RowID),
					formatFloat(det.UnitPrice), formatDate(det.LettingDate),
					strconv.Itoa(det.Region), formatFloat(det.Quantity),
					formatFloat(det.Record.Weight),
					formatFloat(det.Weight), formatFloat(det.Ratio),
				}
				if err := w.Write(rec); err != nil {
					return eris.Wrap(err, "writer: audit row")
				}
			}
			continue
		}
		for _, det := range row.Detail {
			rec := []string{
				row.ItemCode, row.ItemCode, strconv.Itoa(det.RowID),
				formatFloat(det.UnitPrice), formatDate(det.LettingDate),
				strconv.Itoa(det.Region), formatFloat(det.Quantity),
				formatFloat(det.Weight), "", "",
			}
			if err := w.Write(rec); err != nil {
				return eris.Wrap(err, "writer: audit row")
			}
		}
	}

	zap.L().Info("audit csv written", zap.String("path", path))
	return nil
}

func joinNotes(notes []string) string {
	return strings.Join(notes, "; ")
}

func formatFloat(v float64) string {
	if v != v {
		return ""
	}
	return fmt.Sprintf("%.4f", v)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
