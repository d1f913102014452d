package bidtabs

import (
	"context"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/costest-cli/internal/geometry"
)

// dateLayouts covers the letting-date formats observed in BidTabs exports.
var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"2-Jan-06",
	"2-Jan-2006",
	time.RFC3339,
}

// LoadDir reads every CSV/XLSX file in dir and stacks them into one pool.
// Files are parsed concurrently; records keep deterministic order (files
// sorted by name, rows in file order) so RowIDs are stable across runs.
func LoadDir(ctx context.Context, dir string) (*Pool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrap(err, "bidtabs: read dir")
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".csv", ".xlsx":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, eris.Errorf("bidtabs: no CSV/XLSX files in %s", dir)
	}
	sort.Strings(files)

	perFile := make([][]Record, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			recs, err := loadFile(path)
			if err != nil {
				return err
			}
			perFile[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Record
	for _, recs := range perFile {
		all = append(all, recs...)
	}

	zap.L().Info("bidtabs: pool loaded",
		zap.Int("files", len(files)),
		zap.Int("records", len(all)),
	)

	return NewPool(all), nil
}

func loadFile(path string) ([]Record, error) {
	header, rows, err := ReadTable(path)
	if err != nil {
		return nil, err
	}

	recs, err := ParseRows(header, rows)
	if err != nil {
		return nil, eris.Wrapf(err, "bidtabs: parse %s", filepath.Base(path))
	}
	return recs, nil
}

// ReadTable reads a CSV or XLSX file as a header row plus data rows.
func ReadTable(path string) ([]string, [][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path)
	case ".xlsx":
		return readXLSX(path)
	default:
		return nil, nil, eris.Errorf("bidtabs: unsupported file %s", path)
	}
}

func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "bidtabs: open csv")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, eris.Wrap(err, "bidtabs: read csv")
	}
	if len(all) == 0 {
		return nil, nil, eris.Errorf("bidtabs: empty file %s", path)
	}
	return all[0], all[1:], nil
}

func readXLSX(path string) ([]string, [][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "bidtabs: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, nil, eris.Errorf("bidtabs: no sheets in %s", path)
	}

	sheet := f.Sheets[0]
	var header []string
	var rows [][]string
	for i, row := range sheet.Rows {
		var cells []string
		for _, c := range row.Cells {
			cells = append(cells, c.String())
		}
		if i == 0 {
			header = cells
			continue
		}
		rows = append(rows, cells)
	}
	if header == nil {
		return nil, nil, eris.Errorf("bidtabs: empty sheet in %s", path)
	}
	return header, rows, nil
}

// ParseRows converts raw string rows into records using the header alias
// table. Item code and unit price columns are required; rows without a
// usable price are dropped. Records missing explicit geometry columns fall
// back to parsing the description.
func ParseRows(header []string, rows [][]string) ([]Record, error) {
	cols := MatchColumns(header)

	if _, ok := cols["item_code"]; !ok {
		return nil, eris.New("bidtabs: missing required item code column")
	}
	if _, ok := cols["price"]; !ok {
		return nil, eris.New("bidtabs: missing required unit price column")
	}

	cell := func(row []string, key string) string {
		idx, ok := cols[key]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var out []Record
	for _, row := range rows {
		code := NormalizeItemCode(cell(row, "item_code"))
		if code == "" {
			continue
		}
		price, ok := parseFloat(cell(row, "price"))
		if !ok {
			continue
		}

		rec := Record{
			ItemCode:    code,
			Description: cell(row, "desc"),
			UnitPrice:   price,
			Weight:      parseOptFloat(cell(row, "weight")),
			Quantity:    parseOptFloat(cell(row, "qty")),
			JobSize:     parseOptFloat(cell(row, "job_size")),
			LettingDate: parseDate(cell(row, "letting")),
			Region:      parseRegion(cell(row, "region")),
			Shape:       strings.ToLower(cell(row, "shape")),
			AreaSqft:    parseOptFloat(cell(row, "area")),
		}

		if !rec.HasArea() && rec.Description != "" {
			if geo := geometry.Parse(rec.Description); geo != nil {
				rec.Shape = geo.Shape
				rec.AreaSqft = geo.AreaSqft
			}
		}

		out = append(out, rec)
	}
	return out, nil
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseOptFloat(s string) float64 {
	if v, ok := parseFloat(s); ok {
		return v
	}
	return math.NaN()
}

func parseRegion(s string) int {
	if v, ok := parseFloat(s); ok && v > 0 {
		return int(v)
	}
	return 0
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
