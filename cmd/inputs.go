package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/costest-cli/internal/bidtabs"
	"github.com/sells-group/costest-cli/internal/refdata"
)

// loadInputs reads the bid-history pool and reference catalog configured
// under data.*. A cache open failure is non-fatal; reference workbooks are
// then parsed fresh.
func loadInputs(ctx context.Context) (*bidtabs.Pool, *refdata.Catalog, error) {
	pool, err := bidtabs.LoadDir(ctx, cfg.Data.BidTabsDir)
	if err != nil {
		return nil, nil, err
	}

	cache, err := refdata.OpenCache(cfg.Data.CachePath)
	if err != nil {
		zap.L().Warn("reference cache unavailable, parsing fresh", zap.Error(err))
		cache = nil
	}
	if cache != nil {
		defer cache.Close()
	}

	catalog, err := refdata.Load(refdata.Paths{
		PayItemsXLSX:  cfg.Data.PayItemsXLSX,
		UnitPriceXLSX: cfg.Data.UnitPriceXLSX,
		SpecJSON:      cfg.Data.SpecJSON,
	}, cache)
	if err != nil {
		return nil, nil, err
	}

	return pool, catalog, nil
}
