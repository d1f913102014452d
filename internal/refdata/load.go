package refdata

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/costest-cli/internal/bidtabs"
)

// Paths points at the reference source files. Empty paths are skipped; the
// catalog then answers lookups with misses instead of failing.
type Paths struct {
	PayItemsXLSX  string
	UnitPriceXLSX string
	SpecJSON      string
}

// Load reads the reference datasets, consulting the cache (when non-nil)
// before parsing each workbook.
func Load(paths Paths, cache *Cache) (*Catalog, error) {
	payItems := map[string]PayItem{}
	unitPrices := map[string]UnitPrice{}
	sections := map[string]SpecSection{}

	if paths.PayItemsXLSX != "" {
		if err := loadCached(cache, paths.PayItemsXLSX, &payItems, func() (map[string]PayItem, error) {
			return parsePayItems(paths.PayItemsXLSX)
		}); err != nil {
			return nil, err
		}
	}

	if paths.UnitPriceXLSX != "" {
		if err := loadCached(cache, paths.UnitPriceXLSX, &unitPrices, func() (map[string]UnitPrice, error) {
			return parseUnitPrices(paths.UnitPriceXLSX)
		}); err != nil {
			return nil, err
		}
	}

	if paths.SpecJSON != "" {
		loaded, err := parseSpecSections(paths.SpecJSON)
		if err != nil {
			return nil, err
		}
		sections = loaded
	}

	zap.L().Info("refdata: catalog loaded",
		zap.Int("pay_items", len(payItems)),
		zap.Int("unit_prices", len(unitPrices)),
		zap.Int("spec_sections", len(sections)),
	)

	return NewCatalog(payItems, unitPrices, sections), nil
}

// loadCached fills dst from the cache when fresh, otherwise parses and
// stores the result. Cache failures fall through to a plain parse.
func loadCached[T any](cache *Cache, path string, dst *T, parse func() (T, error)) error {
	if cache != nil {
		if ok, err := cache.Get(path, dst); err == nil && ok {
			return nil
		}
	}

	parsed, err := parse()
	if err != nil {
		return err
	}
	*dst = parsed

	if cache != nil {
		if err := cache.Put(path, parsed); err != nil {
			zap.L().Warn("refdata: cache write failed", zap.String("path", path), zap.Error(err))
		}
	}
	return nil
}

// parsePayItems reads the pay-item catalog workbook. The sheet carries a
// banner row, then the header row, then data.
func parsePayItems(path string) (map[string]PayItem, error) {
	rows, err := readSheet(path, 1)
	if err != nil {
		return nil, eris.Wrap(err, "refdata: pay items")
	}

	out := make(map[string]PayItem)
	for _, row := range rows {
		rawCode := cellAt(row, 1)
		if rawCode == "" || strings.EqualFold(rawCode, "ITEM") {
			continue
		}
		code := bidtabs.NormalizeItemCode(rawCode)
		out[code] = PayItem{
			Section:     cellAt(row, 0),
			Description: cellAt(row, 2),
			Unit:        cellAt(row, 3),
			Type:        cellAt(row, 4),
			Comments:    cellAt(row, 5),
		}
	}
	return out, nil
}

// parseUnitPrices reads the statewide unit-price summary. The sheet carries
// six banner rows, then ten fixed columns: year, section, item, description,
// unit, lowest, highest, weighted average, contracts, total value.
func parseUnitPrices(path string) (map[string]UnitPrice, error) {
	rows, err := readSheet(path, 7)
	if err != nil {
		return nil, eris.Wrap(err, "refdata: unit prices")
	}

	out := make(map[string]UnitPrice)
	for _, row := range rows {
		rawCode := cellAt(row, 2)
		if rawCode == "" || strings.HasPrefix(strings.ToUpper(rawCode), "ITEM") {
			continue
		}
		code := bidtabs.NormalizeItemCode(rawCode)
		out[code] = UnitPrice{
			Year:            int(numAt(row, 0)),
			Section:         cellAt(row, 1),
			Description:     cellAt(row, 3),
			Unit:            cellAt(row, 4),
			Lowest:          numAt(row, 5),
			Highest:         numAt(row, 6),
			WeightedAverage: numAt(row, 7),
			Contracts:       numAt(row, 8),
			TotalValue:      numAt(row, 9),
		}
	}
	return out, nil
}

// parseSpecSections reads pre-extracted specification sections from JSON.
// PDF text extraction happens upstream; this package only consumes the
// extracted map of section id -> section.
func parseSpecSections(path string) (map[string]SpecSection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "refdata: read spec sections")
	}

	out := make(map[string]SpecSection)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "refdata: decode spec sections")
	}
	return out, nil
}

func readSheet(path string, skipRows int) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "refdata: open workbook")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("refdata: no sheets in %s", path)
	}

	var rows [][]string
	for i, row := range f.Sheets[0].Rows {
		if i < skipRows {
			continue
		}
		var cells []string
		for _, c := range row.Cells {
			cells = append(cells, strings.TrimSpace(c.String()))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func cellAt(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}

func numAt(row []string, idx int) float64 {
	s := strings.ReplaceAll(strings.TrimPrefix(cellAt(row, idx), "$"), ",", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
