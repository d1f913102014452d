package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/sells-group/costest-cli/internal/bidtabs"
	"github.com/sells-group/costest-cli/internal/pricing"
	"github.com/sells-group/costest-cli/internal/stats"
)

var (
	poolRegion int
	poolItem   string
)

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Inspect the loaded bid-history pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := bidtabs.LoadDir(ctx, cfg.Data.BidTabsDir)
		if err != nil {
			return err
		}

		if poolItem == "" {
			fmt.Printf("records: %d\n", pool.Len())
			fmt.Printf("items:   %d\n", len(pool.ItemCodes()))
			return nil
		}

		code := bidtabs.NormalizeItemCode(poolItem)
		pcfg := pricing.Config{
			Region:          poolRegion,
			MinSampleTarget: cfg.Pricing.MinSampleTarget,
			Mode:            pricing.AggregationMode(cfg.Pricing.Mode),
		}
		out := pricing.Breakdown(pool, code, pcfg, 0)

		fmt.Printf("item:   %s\n", code)
		if math.IsNaN(out.Price) {
			fmt.Println("price:  no data in any category")
		} else {
			fmt.Printf("price:  %.2f (%s, %d points)\n", out.Price, out.Source, out.TotalUsed)
		}
		for _, name := range pricing.CategoryNames() {
			cat := out.Categories[name]
			if cat.Count == 0 {
				fmt.Printf("  %-10s -\n", name)
				continue
			}
			fmt.Printf("  %-10s %.2f (%d)\n", name, cat.Price, cat.Count)
		}

		var prices []float64
		for _, rec := range out.Detail {
			prices = append(prices, rec.UnitPrice)
		}
		sum := stats.Compute(prices)
		fmt.Printf("mean %.2f stddev %.2f cv %.3f confidence %.3f\n",
			sum.Mean, sum.StdDev, sum.CoefVar, sum.Confidence)
		return nil
	},
}

func init() {
	poolCmd.Flags().StringVarP(&poolItem, "item", "i", "", "pay-item code to break down")
	poolCmd.Flags().IntVar(&poolRegion, "region", 0, "project region/district")
	rootCmd.AddCommand(poolCmd)
}
