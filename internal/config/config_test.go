package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "data/bidtabs", cfg.Data.BidTabsDir)
	assert.Equal(t, "data/refcache.db", cfg.Data.CachePath)
	assert.Equal(t, 50, cfg.Pricing.MinSampleTarget)
	assert.Equal(t, "WGT_AVG", cfg.Pricing.Mode)
	assert.InDelta(t, 0.20, cfg.AltSeek.PrefixTolerance, 0.001)
	assert.InDelta(t, 0.35, cfg.AltSeek.RelatedTolerance, 0.001)
	assert.Equal(t, "110-01001", cfg.AltSeek.MobilizationItem)
	assert.InDelta(t, 0.02, cfg.AltSeek.MobilizationPct, 0.001)
	assert.Equal(t, "110-01002", cfg.AltSeek.BondingItem)
	assert.InDelta(t, 0.05, cfg.AltSeek.BondingPct, 0.001)
	assert.Equal(t, "estimate.xlsx", cfg.Output.WorkbookPath)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
  format: console
pricing:
  region: 3
  min_sample_target: 25
  mode: MEDIAN
altseek:
  prefix_tolerance: 0.10
  disable_remote_rank: true
`
	require.NoError(t, os.WriteFile("config.yaml", []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 3, cfg.Pricing.Region)
	assert.Equal(t, 25, cfg.Pricing.MinSampleTarget)
	assert.Equal(t, "MEDIAN", cfg.Pricing.Mode)
	assert.InDelta(t, 0.10, cfg.AltSeek.PrefixTolerance, 0.001)
	assert.True(t, cfg.AltSeek.DisableRemoteRank)

	// Unset keys keep their defaults.
	assert.InDelta(t, 0.35, cfg.AltSeek.RelatedTolerance, 0.001)
	assert.Equal(t, "110-01001", cfg.AltSeek.MobilizationItem)
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("COSTEST_PRICING_REGION", "5")
	t.Setenv("COSTEST_ANTHROPIC_KEY", "sk-test")
	t.Setenv("COSTEST_ALTSEEK_DISABLE_REMOTE_RANK", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Pricing.Region)
	assert.Equal(t, "sk-test", cfg.Anthropic.Key)
	assert.True(t, cfg.AltSeek.DisableRemoteRank)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	assert.Error(t, err, "unknown level must fail")
}
