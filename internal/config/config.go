// Package config holds the run configuration consumed by the trading
// core. It is loaded once at startup, validated, and passed by value
// into each component; no component reads configuration ambiently.
package config

import (
	"encoding/json"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/quantforge/papertrade/pkg/errors"
)

// StrategyConfig enables one strategy with a vote weight and its
// strategy-specific parameters.
type StrategyConfig struct {
	Name    string             `yaml:"name" json:"name" jsonschema:"title=Strategy Name,description=Registry name of the strategy" validate:"required"`
	Enabled bool               `yaml:"enabled" json:"enabled" jsonschema:"title=Enabled"`
	Weight  float64            `yaml:"weight" json:"weight" jsonschema:"title=Weight,description=Relative vote weight; normalized across enabled strategies,minimum=0" validate:"gte=0"`
	Params  map[string]float64 `yaml:"params" json:"params,omitempty" jsonschema:"title=Parameters,description=Strategy-specific numeric parameters"`
}

// Config is the full configuration surface recognized by the core.
type Config struct {
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,minimum=0" validate:"gt=0"`

	// Execution cost model. Stamp tax is charged on sells only.
	CommissionRate float64 `yaml:"commission_rate" json:"commission_rate" jsonschema:"title=Commission Rate,minimum=0" validate:"gte=0"`
	MinCommission  float64 `yaml:"min_commission" json:"min_commission" jsonschema:"title=Minimum Commission,minimum=0" validate:"gte=0"`
	StampTaxRate   float64 `yaml:"stamp_tax_rate" json:"stamp_tax_rate" jsonschema:"title=Stamp Tax Rate,minimum=0" validate:"gte=0"`

	// Position sizing.
	LotSize             int64   `yaml:"lot_size" json:"lot_size" jsonschema:"title=Board Lot Size,minimum=1" validate:"gte=1"`
	MaxPositionPct      float64 `yaml:"max_position_pct" json:"max_position_pct" jsonschema:"title=Max Single Position Fraction,minimum=0,maximum=1" validate:"gt=0,lte=1"`
	MaxTotalPositionPct float64 `yaml:"max_total_position_pct" json:"max_total_position_pct" jsonschema:"title=Max Total Position Fraction,minimum=0,maximum=1" validate:"gt=0,lte=1"`
	CashReserve         float64 `yaml:"cash_reserve" json:"cash_reserve" jsonschema:"title=Cash Reserve Fraction,minimum=0,maximum=1" validate:"gte=0,lt=1"`
	// SellRatio scales strategy-initiated sells; 1 means full exit.
	// Risk-initiated exits are always full regardless of this value.
	SellRatio float64 `yaml:"sell_ratio" json:"sell_ratio" jsonschema:"title=Sell Ratio,minimum=0,maximum=1" validate:"gt=0,lte=1"`

	// Risk limits, all expressed as positive fractions.
	StopLoss     float64 `yaml:"stop_loss" json:"stop_loss" jsonschema:"title=Stop Loss,minimum=0" validate:"gt=0,lt=1"`
	TakeProfit   float64 `yaml:"take_profit" json:"take_profit" jsonschema:"title=Take Profit,minimum=0" validate:"gt=0"`
	MaxDailyLoss float64 `yaml:"max_daily_loss" json:"max_daily_loss" jsonschema:"title=Max Daily Loss,minimum=0" validate:"gt=0,lt=1"`

	// SignalThreshold is the minimum absolute weighted score that turns
	// an aggregated vote into a trade decision.
	SignalThreshold float64 `yaml:"signal_threshold" json:"signal_threshold" jsonschema:"title=Signal Threshold,minimum=0,maximum=1" validate:"gte=0,lte=1"`

	// RiskFreeRate feeds the Sharpe ratio, annualized.
	RiskFreeRate float64 `yaml:"risk_free_rate" json:"risk_free_rate" jsonschema:"title=Risk Free Rate,minimum=0" validate:"gte=0"`

	Symbols    []string         `yaml:"symbols" json:"symbols" jsonschema:"title=Symbol Universe" validate:"min=1,dive,required"`
	Strategies []StrategyConfig `yaml:"strategies" json:"strategies" jsonschema:"title=Strategies" validate:"min=1,dive"`
}

// Default returns a Config with the conventional A-share market
// parameters filled in. Symbols and strategies are left empty.
func Default() Config {
	return Config{
		InitialCapital:      1_000_000,
		CommissionRate:      0.0003,
		MinCommission:       0,
		StampTaxRate:        0.001,
		LotSize:             100,
		MaxPositionPct:      0.25,
		MaxTotalPositionPct: 0.90,
		CashReserve:         0,
		SellRatio:           1.0,
		StopLoss:            0.08,
		TakeProfit:          0.15,
		MaxDailyLoss:        0.05,
		SignalThreshold:     0.3,
		RiskFreeRate:        0.03,
		Symbols:             nil,
		Strategies:          nil,
	}
}

// Load reads, parses and validates a YAML config file.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	return Parse(raw)
}

// Parse parses and validates YAML config content. Defaults are applied
// before the file content so omitted keys keep their conventional values.
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the struct tags plus the constraints the tags cannot
// express. Any violation is fatal at startup, before a run begins.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	if _, err := c.NormalizedWeights(); err != nil {
		return err
	}

	return nil
}

// EnabledStrategies returns the enabled strategy configs in file order.
func (c *Config) EnabledStrategies() []StrategyConfig {
	enabled := make([]StrategyConfig, 0, len(c.Strategies))

	for _, sc := range c.Strategies {
		if sc.Enabled {
			enabled = append(enabled, sc)
		}
	}

	return enabled
}

// NormalizedWeights returns the enabled strategies' weights scaled to
// sum to 1. A weight vector that cannot be normalized (all zero, or no
// enabled strategies) is an invalid configuration.
func (c *Config) NormalizedWeights() (map[string]float64, error) {
	enabled := c.EnabledStrategies()
	if len(enabled) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidWeights, "no enabled strategies")
	}

	var total float64
	for _, sc := range enabled {
		total += sc.Weight
	}

	if total <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidWeights, "strategy weights sum to zero and cannot be normalized")
	}

	weights := make(map[string]float64, len(enabled))
	for _, sc := range enabled {
		weights[sc.Name] = sc.Weight / total
	}

	return weights, nil
}

// GenerateSchema generates a JSON schema for the Config struct.
func (c *Config) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
	}

	schema := reflector.Reflect(c)
	schema.Title = "papertrade-config"
	schema.Description = "Configuration schema for the papertrade engines"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON renders the schema as indented JSON.
func (c *Config) GenerateSchemaJSON() (string, error) {
	schemaBytes, err := json.MarshalIndent(c.GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
