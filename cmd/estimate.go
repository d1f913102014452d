package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/costest-cli/internal/altseek"
	"github.com/sells-group/costest-cli/internal/estimator"
	"github.com/sells-group/costest-cli/internal/pricing"
	"github.com/sells-group/costest-cli/internal/writer"
	"github.com/sells-group/costest-cli/pkg/anthropic"
)

var (
	estimateQuantities string
	estimateRegion     int
	estimateOut        string
	estimateAudit      string
	estimateNoAI       bool
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Price a project quantities table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, catalog, err := loadInputs(ctx)
		if err != nil {
			return err
		}

		items, err := estimator.LoadItems(estimateQuantities)
		if err != nil {
			return err
		}

		region := estimateRegion
		if region == 0 {
			region = cfg.Pricing.Region
		}
		pcfg := pricing.Config{
			Region:          region,
			MinSampleTarget: cfg.Pricing.MinSampleTarget,
			Mode:            pricing.AggregationMode(cfg.Pricing.Mode),
		}

		var ranker altseek.Ranker
		if !estimateNoAI && !cfg.AltSeek.DisableRemoteRank && cfg.Anthropic.Key != "" {
			client := anthropic.NewClient(cfg.Anthropic.Key)
			ranker = altseek.NewClaudeRanker(client, cfg.Anthropic.Model)
		} else {
			zap.L().Info("remote ranking disabled, using local fallback only")
		}

		p := estimator.New(pool, catalog, pcfg, ranker)
		p.Selector.Sourcer.PrefixTolerance = cfg.AltSeek.PrefixTolerance
		p.Selector.Sourcer.RelatedTolerance = cfg.AltSeek.RelatedTolerance
		p.Overrides = []estimator.Override{
			{ItemCode: cfg.AltSeek.MobilizationItem, Percent: cfg.AltSeek.MobilizationPct},
			{ItemCode: cfg.AltSeek.BondingItem, Percent: cfg.AltSeek.BondingPct},
		}

		rows, sum := p.Run(ctx, items)

		out := estimateOut
		if out == "" {
			out = cfg.Output.WorkbookPath
		}
		if err := writer.WriteWorkbook(out, rows, sum); err != nil {
			return err
		}

		audit := estimateAudit
		if audit == "" {
			audit = cfg.Output.AuditCSVPath
		}
		if audit != "" {
			if err := writer.WriteAuditCSV(audit, rows); err != nil {
				return err
			}
		}

		zap.L().Info("estimate complete",
			zap.Int("items", len(rows)),
			zap.Int("direct", sum.Direct),
			zap.Int("alternate", sum.Alternate),
			zap.Int("no_data", sum.NoData),
			zap.String("workbook", out))
		return nil
	},
}

func init() {
	estimateCmd.Flags().StringVarP(&estimateQuantities, "quantities", "q", "", "project quantities table (CSV or XLSX)")
	estimateCmd.Flags().IntVar(&estimateRegion, "region", 0, "project region/district (overrides config)")
	estimateCmd.Flags().StringVarP(&estimateOut, "out", "o", "", "output workbook path")
	estimateCmd.Flags().StringVar(&estimateAudit, "audit", "", "audit CSV path")
	estimateCmd.Flags().BoolVar(&estimateNoAI, "no-ai", false, "disable remote candidate ranking")
	if err := estimateCmd.MarkFlagRequired("quantities"); err != nil {
		panic(eris.Wrap(err, "estimate: mark required flag"))
	}
	rootCmd.AddCommand(estimateCmd)
}
