package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data      DataConfig      `yaml:"data" mapstructure:"data"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	AltSeek   AltSeekConfig   `yaml:"altseek" mapstructure:"altseek"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the input datasets.
type DataConfig struct {
	BidTabsDir    string `yaml:"bidtabs_dir" mapstructure:"bidtabs_dir"`
	PayItemsXLSX  string `yaml:"payitems_xlsx" mapstructure:"payitems_xlsx"`
	UnitPriceXLSX string `yaml:"unit_price_xlsx" mapstructure:"unit_price_xlsx"`
	SpecJSON      string `yaml:"spec_json" mapstructure:"spec_json"`
	CachePath     string `yaml:"cache_path" mapstructure:"cache_path"`
}

// PricingConfig configures the category-hierarchy engine.
type PricingConfig struct {
	Region          int    `yaml:"region" mapstructure:"region"`
	MinSampleTarget int    `yaml:"min_sample_target" mapstructure:"min_sample_target"`
	Mode            string `yaml:"mode" mapstructure:"mode"`
}

// AltSeekConfig configures alternate-seek candidate sourcing and the
// percent-of-subtotal overrides.
type AltSeekConfig struct {
	PrefixTolerance   float64 `yaml:"prefix_tolerance" mapstructure:"prefix_tolerance"`
	RelatedTolerance  float64 `yaml:"related_tolerance" mapstructure:"related_tolerance"`
	MobilizationItem  string  `yaml:"mobilization_item" mapstructure:"mobilization_item"`
	MobilizationPct   float64 `yaml:"mobilization_pct" mapstructure:"mobilization_pct"`
	BondingItem       string  `yaml:"bonding_item" mapstructure:"bonding_item"`
	BondingPct        float64 `yaml:"bonding_pct" mapstructure:"bonding_pct"`
	DisableRemoteRank bool    `yaml:"disable_remote_rank" mapstructure:"disable_remote_rank"`
}

// AnthropicConfig holds Anthropic API settings for candidate ranking.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// OutputConfig locates the generated files.
type OutputConfig struct {
	WorkbookPath string `yaml:"workbook_path" mapstructure:"workbook_path"`
	AuditCSVPath string `yaml:"audit_csv_path" mapstructure:"audit_csv_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COSTEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("data.bidtabs_dir", "data/bidtabs")
	v.SetDefault("data.payitems_xlsx", "data/payitems.xlsx")
	v.SetDefault("data.unit_price_xlsx", "data/unit_price_summary.xlsx")
	v.SetDefault("data.spec_json", "data/spec_sections.json")
	v.SetDefault("data.cache_path", "data/refcache.db")
	v.SetDefault("pricing.region", 0)
	v.SetDefault("pricing.min_sample_target", 50)
	v.SetDefault("pricing.mode", "WGT_AVG")
	v.SetDefault("altseek.prefix_tolerance", 0.20)
	v.SetDefault("altseek.related_tolerance", 0.35)
	v.SetDefault("altseek.mobilization_item", "110-01001")
	v.SetDefault("altseek.mobilization_pct", 0.02)
	v.SetDefault("altseek.bonding_item", "110-01002")
	v.SetDefault("altseek.bonding_pct", 0.05)
	v.SetDefault("altseek.disable_remote_rank", false)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5")
	v.SetDefault("output.workbook_path", "estimate.xlsx")
	v.SetDefault("output.audit_csv_path", "estimate_audit.csv")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
