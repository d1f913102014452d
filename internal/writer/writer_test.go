package writer

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sells-group/costest-cli/internal/altseek"
	"github.com/sells-group/costest-cli/internal/bidtabs"
	"github.com/sells-group/costest-cli/internal/estimator"
)

func sampleRows() []estimator.EstimateRow {
	return []estimator.EstimateRow{
		{
			ItemCode:    "204-00010",
			Description: "STRUCT EXCAVATION",
			Unit:        "CY",
			Quantity:    1000,
			UnitPrice:   100,
			Extended:    100000,
			DataPoints:  3,
			Source:      "DIST_12M",
			Categories: map[string]estimator.CategoryCell{
				"DIST_12M": {Price: 100, Count: 3, Included: true},
			},
			Detail: []bidtabs.Record{
				{RowID: 0, ItemCode: "204-00010", UnitPrice: 95},
				{RowID: 1, ItemCode: "204-00010", UnitPrice: 105},
			},
		},
		{
			ItemCode:      "601-00100",
			Description:   "CONC BOX CULVERT 9' x 6'",
			Unit:          "EA",
			Quantity:      2,
			UnitPrice:     43.2,
			Extended:      86.4,
			DataPoints:    1,
			Source:        "ALT_SEEK",
			AlternateUsed: true,
			Alternate: &altseek.Result{
				TargetCode: "601-00100",
				TargetArea: 54,
				Candidates: []altseek.Candidate{
					{
						ItemCode:      "601-00050",
						Source:        altseek.SourcePrefix,
						AreaSqft:      50,
						BasePrice:     40,
						AdjustedPrice: 43.2,
						Ratio:         1.08,
						DataPoints:    1,
						Similarity:    map[string]float64{altseek.ScoreOverall: 0.8},
					},
				},
				Selections: []altseek.Selection{
					{
						Candidate: altseek.Candidate{ItemCode: "601-00050"},
						Weight:    1.0,
					},
				},
				Detail: []altseek.DetailRecord{
					{
						Record:     bidtabs.Record{RowID: 7, ItemCode: "601-00050", UnitPrice: 40},
						SourceItem: "601-00050",
						Weight:     1.0,
						Ratio:      1.08,
					},
				},
			},
		},
		{
			ItemCode:  "629-99999",
			Unit:      "LS",
			Quantity:  1,
			UnitPrice: 0,
			Notes:     []string{"No bid history in any category"},
		},
	}
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "estimate.xlsx")
	sum := estimator.Summary{Direct: 1, Alternate: 1, NoData: 1}

	require.NoError(t, WriteWorkbook(path, sampleRows(), sum))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	for _, sheet := range []string{estimateSheet, altSeekSheet, summarySheet} {
		idx, err := f.GetSheetIndex(sheet)
		require.NoError(t, err)
		assert.NotEqual(t, -1, idx, "missing sheet %s", sheet)
	}

	item, err := f.GetCellValue(estimateSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "204-00010", item)

	candidate, err := f.GetCellValue(altSeekSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "601-00050", candidate)
}

func TestWriteAuditCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.csv")
	require.NoError(t, WriteAuditCSV(path, sampleRows()))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)

	// Header plus two direct detail rows plus one alternate detail row.
	require.Len(t, records, 4)
	assert.Equal(t, "item", records[0][0])
	assert.Equal(t, "204-00010", records[1][0])
	assert.Equal(t, "601-00050", records[3][1], "alternate rows carry the source item")
}
